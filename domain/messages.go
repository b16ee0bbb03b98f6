package domain

import "github.com/satriahrh/pesan/domain/entities"

// Mime type of microphone audio sent to the assistant
const RealtimeAudioMIMEType = "audio/pcm;rate=16000"

// AudioChunk is base64 encoded PCM audio
type AudioChunk struct {
	Data     string `json:"data"` // base64 encoded
	MIMEType string `json:"mimeType"`
}

// LivePart is one piece of model turn content
type LivePart struct {
	Text  string      `json:"text,omitempty"`
	Audio *AudioChunk `json:"inlineData,omitempty"`
}

// LiveMessage is an application message received from the assistant
type LiveMessage struct {
	ToolCalls       []entities.ToolCall `json:"toolCalls,omitempty"`
	Parts           []LivePart          `json:"parts,omitempty"`
	Interrupted     bool                `json:"interrupted,omitempty"`
	TurnComplete    bool                `json:"turnComplete,omitempty"`
	InputTranscript string              `json:"inputTranscription,omitempty"`
}
