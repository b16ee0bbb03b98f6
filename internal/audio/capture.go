package audio

import (
	"encoding/base64"

	"go.uber.org/zap"

	"github.com/satriahrh/pesan/domain"
)

// AudioSender is the outbound half of the assistant channel
type AudioSender interface {
	SendRealtimeAudio(chunk domain.AudioChunk) error
}

// Capture turns microphone frames into outbound PCM chunks, one chunk per frame.
// It is driven from the session event loop and is not safe for concurrent use.
type Capture struct {
	sender    AudioSender
	recording bool

	// OnSendError is called when a send fails while still recording
	OnSendError func(err error)

	framesSent int
	logger     *zap.Logger
}

// NewCapture creates an idle capture pipeline
func NewCapture(logger *zap.Logger) *Capture {
	return &Capture{logger: logger}
}

// Attach sets the channel frames are sent to
func (c *Capture) Attach(sender AudioSender) {
	c.sender = sender
}

// Detach drops the channel reference. Frames arriving afterwards are discarded.
func (c *Capture) Detach() {
	c.sender = nil
}

// SetRecording switches frame forwarding on or off
func (c *Capture) SetRecording(recording bool) {
	c.recording = recording
	if !recording {
		c.framesSent = 0
	}
}

// Recording reports whether frames are being forwarded
func (c *Capture) Recording() bool {
	return c.recording
}

// FramesSent returns the number of chunks sent since recording began
func (c *Capture) FramesSent() int {
	return c.framesSent
}

// HandleFrame encodes one frame and sends it. Frames are dropped while not
// recording or without an attached channel.
func (c *Capture) HandleFrame(frame []float32) {
	if !c.recording || c.sender == nil {
		return
	}

	chunk := domain.AudioChunk{
		Data:     base64.StdEncoding.EncodeToString(FloatTo16BitPCM(frame)),
		MIMEType: domain.RealtimeAudioMIMEType,
	}
	if err := c.sender.SendRealtimeAudio(chunk); err != nil {
		if !c.recording {
			return
		}
		c.logger.Error("Failed to send audio chunk",
			zap.Int("samples", len(frame)),
			zap.Error(err))
		if c.OnSendError != nil {
			c.OnSendError(err)
		}
		return
	}
	c.framesSent++
}
