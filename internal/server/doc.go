// Package server provides the optional HTTP listener exposing health,
// pipeline status, and Prometheus metrics endpoints for long-running
// filtering jobs.
package server
