package main

// Indicates that the review pipeline has been assembled and is ready to
// take commands. offline is true when no language model could be reached
// and the rule-based deriver is serving instead.
type pipelineReadyMsg struct {
	pipeline *reviewPipeline
	offline  bool
	err      error
}

// Carries a finished review. markdown is the raw report, rendered is the
// terminal-styled version shown in the viewport.
type reviewDoneMsg struct {
	markdown string
	rendered string
	sections int
	err      error
}

// Indicates that the current report was written to disk.
type reportSavedMsg struct {
	path string
	err  error
}

// A generic error message for reporting failures from commands.
type errorMsg struct{ err error }

func (e errorMsg) Error() string {
	return e.err.Error()
}
