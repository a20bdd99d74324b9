// Package merge joins filtered chunk files into the final output file by
// invoking an external ffmpeg binary through its concat demuxer. The merge
// step is driven by the pipeline caller, never by the orchestrator itself.
package merge
