package jobs

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/sevigo/code-mentor/internal/core"
)

// ValidateEvent ensures a queued review event carries everything the job
// needs. Empty snippets and empty comment lists are valid; they produce a
// report with zero analysis sections.
func ValidateEvent(event *core.ReviewEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.ReportID == "" {
		return fmt.Errorf("report ID cannot be empty")
	}
	if _, err := uuid.Parse(event.ReportID); err != nil {
		return fmt.Errorf("report ID must be a valid UUID, got %q: %w", event.ReportID, err)
	}
	return nil
}
