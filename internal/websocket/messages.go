package websocket

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/satriahrh/pesan/domain/entities"
	"github.com/satriahrh/pesan/domain/repositories"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Messages sent by the browser
const (
	MessageTypeHello         MessageType = "hello"
	MessageTypeStart         MessageType = "start"
	MessageTypeStop          MessageType = "stop"
	MessageTypeOutputState   MessageType = "output_state"
	MessageTypePlaybackEnded MessageType = "playback_ended"
	MessageTypePing          MessageType = "ping"
)

// Messages sent by the server
const (
	MessageTypeStatus          MessageType = "status"
	MessageTypeTranscript      MessageType = "transcript"
	MessageTypeTranscriptClear MessageType = "transcript_clear"
	MessageTypeCart            MessageType = "cart"
	MessageTypeMenu            MessageType = "menu"
	MessageTypeResume          MessageType = "resume"
	MessageTypePong            MessageType = "pong"
	MessageTypeError           MessageType = "error"
)

const (
	minSampleRate = 8000
	maxSampleRate = 192000
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
	MessageID string      `json:"message_id,omitempty"`
}

// HelloMessage announces the browser's microphone sample rate
type HelloMessage struct {
	BaseMessage
	SampleRate int `json:"sample_rate"`
}

// StartMessage asks the server to open an ordering session. APIKey is
// optional when the server has its own key.
type StartMessage struct {
	BaseMessage
	APIKey string `json:"api_key,omitempty"`
}

// StopMessage ends the ordering session
type StopMessage struct {
	BaseMessage
}

// OutputStateMessage reports the browser's audio output state
type OutputStateMessage struct {
	BaseMessage
	State repositories.OutputState `json:"state"`
}

// PlaybackEndedMessage reports that a playback frame finished playing
type PlaybackEndedMessage struct {
	BaseMessage
	ID uint32 `json:"id"`
}

// PingMessage represents a ping message for connection health check
type PingMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// PongMessage represents a pong response
type PongMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// StatusMessage carries the session status line
type StatusMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// TranscriptMessage carries one transcript line
type TranscriptMessage struct {
	BaseMessage
	Role entities.TranscriptRole `json:"role"`
	Text string                  `json:"text"`
}

// CartMessage carries the full cart after every change
type CartMessage struct {
	BaseMessage
	Items []entities.CartLineItem `json:"items"`
	Total float64                 `json:"total"`
}

// MenuMessage carries the categories to display
type MenuMessage struct {
	BaseMessage
	Categories []entities.Category `json:"categories"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// MessageValidator provides validation for WebSocket messages
type MessageValidator struct{}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// ValidateMessage parses and validates an incoming text message
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypeHello:
		var msg HelloMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid hello message: %w", err)
		}
		if msg.SampleRate < minSampleRate || msg.SampleRate > maxSampleRate {
			return nil, fmt.Errorf("sample_rate must be between %d and %d", minSampleRate, maxSampleRate)
		}
		return &msg, nil

	case MessageTypeStart:
		var msg StartMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid start message: %w", err)
		}
		return &msg, nil

	case MessageTypeStop:
		return &StopMessage{BaseMessage: base}, nil

	case MessageTypeOutputState:
		var msg OutputStateMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid output state message: %w", err)
		}
		switch msg.State {
		case repositories.OutputStateRunning, repositories.OutputStateSuspended, repositories.OutputStateClosed:
		default:
			return nil, fmt.Errorf("state must be one of: running, suspended, closed")
		}
		return &msg, nil

	case MessageTypePlaybackEnded:
		var msg PlaybackEndedMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid playback ended message: %w", err)
		}
		return &msg, nil

	case MessageTypePing:
		var msg PingMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid ping message: %w", err)
		}
		return &msg, nil

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

func newBase(t MessageType) BaseMessage {
	return BaseMessage{Type: t, Timestamp: time.Now().Format(time.RFC3339)}
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message, details string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: newBase(MessageTypeError),
		Code:        code,
		Message:     message,
		Details:     details,
	}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage(data string) *PongMessage {
	return &PongMessage{BaseMessage: newBase(MessageTypePong), Data: data}
}

// CreateStatusMessage creates a status line update
func CreateStatusMessage(text string) *StatusMessage {
	return &StatusMessage{BaseMessage: newBase(MessageTypeStatus), Text: text}
}

// CreateCartMessage creates a cart update. A nil cart is sent as an empty list.
func CreateCartMessage(items []entities.CartLineItem, total float64) *CartMessage {
	if items == nil {
		items = []entities.CartLineItem{}
	}
	return &CartMessage{BaseMessage: newBase(MessageTypeCart), Items: items, Total: total}
}

// EncodePlaybackFrame builds a binary playback frame: a little endian uint32
// id followed by little endian float32 samples.
func EncodePlaybackFrame(id uint32, samples []float32) []byte {
	frame := make([]byte, 4+len(samples)*4)
	binary.LittleEndian.PutUint32(frame, id)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(frame[4+i*4:], math.Float32bits(s))
	}
	return frame
}

// DecodePlaybackFrame splits a playback frame into id and samples
func DecodePlaybackFrame(frame []byte) (uint32, []float32, error) {
	if len(frame) < 4 {
		return 0, nil, fmt.Errorf("playback frame too short: %d bytes", len(frame))
	}
	samples, err := DecodeMicFrame(frame[4:])
	if err != nil {
		return 0, nil, err
	}
	return binary.LittleEndian.Uint32(frame), samples, nil
}

// DecodeMicFrame decodes little endian float32 samples
func DecodeMicFrame(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("audio frame length %d is not a multiple of 4", len(data))
	}
	samples := make([]float32, len(data)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return samples, nil
}
