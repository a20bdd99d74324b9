package audio

import (
	"fmt"
	"time"
)

// Chunk identifies one contiguous, independent segment of the input audio.
// Chunks carry no shared mutable state, which is the precondition that makes
// parallel filtering correct.
type Chunk struct {
	Index        int           `json:"index"`
	StartSample  int           `json:"start_sample"`
	NumSamples   int           `json:"num_samples"`
	Offset       time.Duration `json:"offset"`
	Duration     time.Duration `json:"duration"`
	SampleRate   int           `json:"sample_rate"`
	Path         string        `json:"path"`          // Input chunk WAV file
	FilteredPath string        `json:"filtered_path"` // Output written by the filter
}

// ID returns a human-readable identifier for logging
func (c Chunk) ID() string {
	return fmt.Sprintf("chunk_%03d", c.Index)
}
