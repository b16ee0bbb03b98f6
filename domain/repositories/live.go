package repositories

import (
	"context"

	"github.com/satriahrh/pesan/domain"
	"github.com/satriahrh/pesan/domain/entities"
)

// LiveConfig configures a connection to the conversational assistant
type LiveConfig struct {
	APIKey            string
	Model             string
	Voice             string
	SystemInstruction string
	Tools             []entities.ToolDefinition
}

// LiveHandler receives channel events. Callbacks may arrive on any goroutine.
type LiveHandler struct {
	OnOpen    func()
	OnMessage func(msg domain.LiveMessage)
	OnError   func(err error)
	OnClose   func(reason string)
}

// LiveConnector opens channels to the assistant
type LiveConnector interface {
	Connect(ctx context.Context, cfg LiveConfig) (LiveChannel, error)
}

// LiveChannel is an open bidirectional session with the assistant
type LiveChannel interface {
	// Listen starts delivering events to h. It must be called once.
	Listen(h LiveHandler)
	SendRealtimeAudio(chunk domain.AudioChunk) error
	SendToolResponses(responses []entities.ToolResponse) error
	Close() error
}
