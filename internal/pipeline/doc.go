// Package pipeline drives independent audio chunks through the worker pool
// and reduces the per-chunk outcomes into one aggregate success flag. A
// single failed chunk makes the aggregate false regardless of completion
// order; in-flight chunks are never aborted early.
package pipeline
