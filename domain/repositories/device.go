package repositories

import (
	"context"

	"github.com/satriahrh/pesan/domain/entities"
)

// OutputState mirrors the state of an audio output device
type OutputState string

const (
	OutputStateRunning   OutputState = "running"
	OutputStateSuspended OutputState = "suspended"
	OutputStateClosed    OutputState = "closed"
)

// AudioBuffer is a block of float samples ready for the speaker
type AudioBuffer struct {
	SampleRate int
	Channels   int
	Samples    []float32
}

// AudioInput is a microphone
type AudioInput interface {
	// Start begins delivering mono float frames at sampleRate to onFrame
	Start(ctx context.Context, sampleRate int, onFrame func(frame []float32)) error
	Stop() error
}

// AudioOutput is a speaker
type AudioOutput interface {
	State() OutputState
	Resume(ctx context.Context) error
	// Play submits buf and calls onEnded once it has finished playing
	Play(buf AudioBuffer, onEnded func()) error
	Close() error
}

// Presenter renders session state to the user
type Presenter interface {
	ShowStatus(text string)
	AppendTranscript(entry entities.TranscriptEntry)
	ClearTranscript()
	ShowCart(items []entities.CartLineItem, total float64)
	ShowMenu(categories []entities.Category)
}
