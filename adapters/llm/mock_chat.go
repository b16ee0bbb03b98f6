package llm

import (
	"context"
	"errors"
	"sync"

	"github.com/satriahrh/pesan/domain/entities"
	"github.com/satriahrh/pesan/domain/repositories"
)

// ErrScriptExhausted is returned when a MockChatSession has no replies left
var ErrScriptExhausted = errors.New("mock chat script exhausted")

// MockChatConnector hands out MockChatSessions that reply from a script
type MockChatConnector struct {
	// Script is copied into every new session
	Script []repositories.ChatTurn

	mu       sync.Mutex
	sessions []*MockChatSession
}

// NewMockChatConnector creates a connector whose sessions reply with script in order
func NewMockChatConnector(script ...repositories.ChatTurn) *MockChatConnector {
	return &MockChatConnector{Script: script}
}

// NewChat implements repositories.ChatConnector
func (m *MockChatConnector) NewChat(ctx context.Context, cfg repositories.ChatConfig) (repositories.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &MockChatSession{script: append([]repositories.ChatTurn(nil), m.Script...), config: cfg}
	m.sessions = append(m.sessions, s)
	return s, nil
}

// Last returns the most recent session, or nil
func (m *MockChatConnector) Last() *MockChatSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sessions) == 0 {
		return nil
	}
	return m.sessions[len(m.sessions)-1]
}

// MockChatSession implements repositories.ChatSession
type MockChatSession struct {
	mu            sync.Mutex
	script        []repositories.ChatTurn
	config        repositories.ChatConfig
	history       []entities.TranscriptEntry
	toolResponses [][]entities.ToolResponse
}

// SendText implements repositories.ChatSession
func (s *MockChatSession) SendText(ctx context.Context, text string) (repositories.ChatTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, entities.TranscriptEntry{Role: entities.TranscriptRoleUser, Text: text})
	return s.next()
}

// SendToolResponses implements repositories.ChatSession
func (s *MockChatSession) SendToolResponses(ctx context.Context, responses []entities.ToolResponse) (repositories.ChatTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolResponses = append(s.toolResponses, responses)
	return s.next()
}

func (s *MockChatSession) next() (repositories.ChatTurn, error) {
	if len(s.script) == 0 {
		return repositories.ChatTurn{}, ErrScriptExhausted
	}
	turn := s.script[0]
	s.script = s.script[1:]
	if turn.Text != "" {
		s.history = append(s.history, entities.TranscriptEntry{Role: entities.TranscriptRoleAssistant, Text: turn.Text})
	}
	return turn, nil
}

// History implements repositories.ChatSession
func (s *MockChatSession) History() []entities.TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entities.TranscriptEntry(nil), s.history...)
}

// Config returns the configuration the session was created with
func (s *MockChatSession) Config() repositories.ChatConfig {
	return s.config
}

// ToolResponses returns every batch of tool responses sent so far
func (s *MockChatSession) ToolResponses() [][]entities.ToolResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]entities.ToolResponse(nil), s.toolResponses...)
}
