package repositories

import (
	"context"

	"github.com/satriahrh/pesan/domain/entities"
)

// ChatConfig configures a typed conversation with the assistant
type ChatConfig struct {
	APIKey            string
	Model             string
	SystemInstruction string
	Tools             []entities.ToolDefinition
}

// ChatTurn is one assistant reply. A reply either asks for tools or speaks.
type ChatTurn struct {
	Text      string
	ToolCalls []entities.ToolCall
}

// ChatConnector starts typed conversations
type ChatConnector interface {
	NewChat(ctx context.Context, cfg ChatConfig) (ChatSession, error)
}

// ChatSession is a request/response conversation that keeps its own history
type ChatSession interface {
	SendText(ctx context.Context, text string) (ChatTurn, error)
	SendToolResponses(ctx context.Context, responses []entities.ToolResponse) (ChatTurn, error)
	History() []entities.TranscriptEntry
}
