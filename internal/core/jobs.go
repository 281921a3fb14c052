package core

import "context"

// JobDispatcher defines the contract for a system that can accept and queue
// background jobs for asynchronous processing. This interface decouples the
// event source (e.g., an HTTP handler) from the job execution mechanism.
type JobDispatcher interface {
	// Dispatch accepts a ReviewEvent and queues it for processing.
	// It returns an error if the job cannot be queued, for example, if the
	// queue is full, providing a mechanism for backpressure.
	Dispatch(ctx context.Context, event *ReviewEvent) error
}

// Job represents a single, executable unit of work that can be processed by
// the application's job dispatcher. Each job is triggered by a ReviewEvent
// and performs a specific task, such as generating a review report.
type Job interface {
	// Run executes the job's logic. It receives a context for managing its
	// lifecycle and a ReviewEvent containing the data needed to perform
	// its task. It returns an error if the job fails to complete.
	Run(ctx context.Context, event *ReviewEvent) error
}
