package audio

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resampler converts mono float frames between sample rates. It keeps filter
// state across calls so consecutive frames join without clicks.
type Resampler struct {
	inRate    int
	outRate   int
	resampler resampling.Resampler
}

// NewResampler creates a mono resampler from inRate to outRate
func NewResampler(inRate, outRate int) (*Resampler, error) {
	if inRate <= 0 || outRate <= 0 {
		return nil, fmt.Errorf("invalid sample rates %d -> %d", inRate, outRate)
	}

	r := &Resampler{inRate: inRate, outRate: outRate}
	if inRate == outRate {
		return r, nil
	}

	config := &resampling.Config{
		InputRate:  float64(inRate),
		OutputRate: float64(outRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	}
	rs, err := resampling.New(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}
	r.resampler = rs
	return r, nil
}

// InputRate returns the rate frames are expected at
func (r *Resampler) InputRate() int { return r.inRate }

// OutputRate returns the rate frames are produced at
func (r *Resampler) OutputRate() int { return r.outRate }

// Process resamples one frame. With equal rates the frame is returned as is.
func (r *Resampler) Process(frame []float32) ([]float32, error) {
	if r.resampler == nil {
		return frame, nil
	}

	input := make([]float64, len(frame))
	for i, s := range frame {
		input[i] = float64(s)
	}

	output, err := r.resampler.Process(input)
	if err != nil {
		return nil, fmt.Errorf("failed to resample frame: %w", err)
	}

	out := make([]float32, len(output))
	for i, s := range output {
		out[i] = float32(s)
	}
	return out, nil
}
