// Package filter provides noise suppression for PCM audio using a spectral
// gate with an adaptive noise-floor estimate. It exposes the per-chunk
// processing entry point driven by the pipeline orchestrator.
package filter
