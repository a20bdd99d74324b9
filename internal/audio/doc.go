// Package audio handles the chunk model, PCM splitting, and WAV encoding.
// It splits decoded PCM audio into fixed-duration independent chunks written
// as temporary WAV files for parallel filtering, and provides the mono
// PCM-16 WAV codec used throughout the pipeline.
package audio
