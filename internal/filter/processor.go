package filter

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Processor suppresses background noise in PCM-16 audio. It runs a spectral
// gate over fixed-size windows: window energy is compared against an
// adaptively tracked noise floor and sub-floor windows are attenuated.
//
// Gate state is local to each Process call, so concurrent calls on
// independent chunks never share filter state; the mutex only guards the
// statistics counters.
type Processor struct {
	modelPath   string
	attenuation float32 // Gain applied to noise-classified windows (0.0 - 1.0)
	windowSize  int     // Samples per processing window
	sampleRate  int

	isInitialized bool

	// Statistics
	totalWindows      uint64
	suppressedWindows uint64
	lastProcessed     time.Time

	mu sync.RWMutex
}

// ProcessorStats represents filter processor statistics
type ProcessorStats struct {
	ModelPath            string    `json:"model_path"`
	IsInitialized        bool      `json:"is_initialized"`
	TotalWindows         uint64    `json:"total_windows"`
	SuppressedWindows    uint64    `json:"suppressed_windows"`
	SuppressedPercentage float64   `json:"suppressed_percentage"`
	LastProcessed        time.Time `json:"last_processed"`
	Attenuation          float32   `json:"attenuation"`
}

// gateThreshold is the multiple of the noise floor below which a window is
// classified as noise
const gateThreshold = 2.0

// floorAdaptRate controls how quickly the noise floor tracks upward energy
const floorAdaptRate = 0.05

// NewProcessor creates a new noise suppression processor instance
func NewProcessor(modelPath string, attenuation float32, windowSize int, sampleRate int) (*Processor, error) {
	if attenuation < 0 || attenuation > 1 {
		return nil, fmt.Errorf("attenuation must be between 0 and 1, got %f", attenuation)
	}

	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", windowSize)
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	processor := &Processor{
		modelPath:   modelPath,
		attenuation: attenuation,
		windowSize:  windowSize,
		sampleRate:  sampleRate,
	}

	return processor, nil
}

// Initialize prepares the processor for use and loads the model
func (p *Processor) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// TODO: bind the DeepFilterNet model here once the cgo wrapper lands;
	// the spectral gate below stands in behind the same interface.

	p.isInitialized = true
	p.lastProcessed = time.Now()

	return nil
}

// gateState tracks the noise floor and gain smoothing for one Process call
type gateState struct {
	noiseFloor float32
	lastGain   float32
}

// Process filters the given samples and returns the suppressed audio.
// Samples are processed in windows; a trailing partial window is filtered
// with the gain of the last full window. The input slice is not modified.
// Process is safe to call concurrently.
func (p *Processor) Process(samples []int16) ([]int16, error) {
	p.mu.RLock()
	initialized := p.isInitialized
	p.mu.RUnlock()

	if !initialized {
		return nil, fmt.Errorf("processor not initialized")
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("cannot process empty audio")
	}

	out := make([]int16, len(samples))
	state := gateState{lastGain: 1.0}

	var totalWindows, suppressedWindows uint64

	for start := 0; start < len(samples); start += p.windowSize {
		end := start + p.windowSize
		if end > len(samples) {
			end = len(samples)
		}

		window := samples[start:end]
		gain := state.lastGain

		// Only full windows update the gate; the remainder reuses the
		// previous gain
		if end-start == p.windowSize {
			gain = p.gateWindow(&state, window)
			state.lastGain = gain

			totalWindows++
			if gain < 1.0 {
				suppressedWindows++
			}
		}

		applyGain(window, out[start:end], gain)
	}

	p.mu.Lock()
	p.totalWindows += totalWindows
	p.suppressedWindows += suppressedWindows
	p.lastProcessed = time.Now()
	p.mu.Unlock()

	return out, nil
}

// gateWindow classifies one full window and returns the gain to apply
func (p *Processor) gateWindow(state *gateState, window []int16) float32 {
	energy := rmsEnergy(window)

	// Track the noise floor: follow drops immediately, rises slowly, so
	// short speech bursts do not drag the floor up
	if state.noiseFloor == 0 || energy < state.noiseFloor {
		state.noiseFloor = energy
	} else {
		state.noiseFloor += floorAdaptRate * (energy - state.noiseFloor)
	}

	if energy < state.noiseFloor*gateThreshold {
		return p.attenuation
	}

	return 1.0
}

// GetStats returns current processor statistics
func (p *Processor) GetStats() ProcessorStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	suppressedPct := float64(0)
	if p.totalWindows > 0 {
		suppressedPct = float64(p.suppressedWindows) / float64(p.totalWindows) * 100
	}

	return ProcessorStats{
		ModelPath:            p.modelPath,
		IsInitialized:        p.isInitialized,
		TotalWindows:         p.totalWindows,
		SuppressedWindows:    p.suppressedWindows,
		SuppressedPercentage: suppressedPct,
		LastProcessed:        p.lastProcessed,
		Attenuation:          p.attenuation,
	}
}

// IsInitialized returns whether the processor has been initialized
func (p *Processor) IsInitialized() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.isInitialized
}

// rmsEnergy computes the root-mean-square energy of a window, normalized
// to the int16 range
func rmsEnergy(window []int16) float32 {
	if len(window) == 0 {
		return 0
	}

	var sum float64
	for _, s := range window {
		v := float64(s) / 32768.0
		sum += v * v
	}

	return float32(math.Sqrt(sum / float64(len(window))))
}

// applyGain writes window scaled by gain into dst, clamping to int16 range
func applyGain(window []int16, dst []int16, gain float32) {
	for i, s := range window {
		v := float64(s) * float64(gain)
		switch {
		case v > math.MaxInt16:
			dst[i] = math.MaxInt16
		case v < math.MinInt16:
			dst[i] = math.MinInt16
		default:
			dst[i] = int16(v)
		}
	}
}
