// Package pool implements a fixed-size worker pool executing submitted
// tasks concurrently and delivering each result through a one-shot future.
// It has no knowledge of audio processing and is reusable for any task type.
package pool
