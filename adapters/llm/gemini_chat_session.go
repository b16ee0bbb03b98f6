package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/pesan/domain/entities"
	"github.com/satriahrh/pesan/domain/repositories"
)

const (
	// DefaultChatModel is used for typed conversations when none is configured
	DefaultChatModel = "gemini-2.5-flash"

	defaultTemperature    = 0.7
	defaultTimeoutSeconds = 30
	maxAttempts           = 3
)

// ErrEmptyReply is returned when the model answers with neither text nor tool calls
var ErrEmptyReply = errors.New("empty reply from model")

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GeminiChatConnector starts typed ordering conversations on GenerateContent
type GeminiChatConnector struct {
	logger *zap.Logger
}

// NewGeminiChatConnector creates a new Gemini chat connector
func NewGeminiChatConnector(logger *zap.Logger) *GeminiChatConnector {
	return &GeminiChatConnector{logger: logger}
}

// NewChat implements repositories.ChatConnector
func (g *GeminiChatConnector) NewChat(ctx context.Context, cfg repositories.ChatConfig) (repositories.ChatSession, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Google AI API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return newGeminiChatSession(client.Models.GenerateContent, cfg, g.logger), nil
}

// GeminiChatSession implements repositories.ChatSession. History holds every
// exchanged content, tool calls and responses included, and is resent in full
// on each request.
type GeminiChatSession struct {
	generate       generateFunc
	logger         *zap.Logger
	model          string
	config         *genai.GenerateContentConfig
	timeoutSeconds int
	retryDelay     time.Duration
	history        []*genai.Content
}

func newGeminiChatSession(generate generateFunc, cfg repositories.ChatConfig, logger *zap.Logger) *GeminiChatSession {
	model := cfg.Model
	if model == "" {
		model = DefaultChatModel
		logger.Info("Using default model", zap.String("model", model))
	}

	return &GeminiChatSession{
		generate:       generate,
		logger:         logger.With(zap.String("model", model)),
		model:          model,
		config:         buildChatConfig(cfg),
		timeoutSeconds: defaultTimeoutSeconds,
		retryDelay:     time.Second,
	}
}

func buildChatConfig(cfg repositories.ChatConfig) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(defaultTemperature)),
	}
	if cfg.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(cfg.SystemInstruction, genai.RoleUser)
	}
	if len(cfg.Tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: convertToolDefinitions(cfg.Tools)}}
	}
	return config
}

// SendText implements repositories.ChatSession
func (s *GeminiChatSession) SendText(ctx context.Context, text string) (repositories.ChatTurn, error) {
	return s.send(ctx, genai.NewContentFromText(text, genai.RoleUser))
}

// SendToolResponses implements repositories.ChatSession
func (s *GeminiChatSession) SendToolResponses(ctx context.Context, responses []entities.ToolResponse) (repositories.ChatTurn, error) {
	parts := make([]*genai.Part, 0, len(responses))
	for _, r := range responses {
		parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
			ID:       r.ID,
			Name:     r.Name,
			Response: r.Response,
		}})
	}
	return s.send(ctx, genai.NewContentFromParts(parts, genai.RoleUser))
}

// send appends content to the history and asks for the next reply. On failure
// the history is left as it was.
func (s *GeminiChatSession) send(ctx context.Context, content *genai.Content) (repositories.ChatTurn, error) {
	contents := append(append([]*genai.Content(nil), s.history...), content)

	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.timeoutSeconds)*time.Second)
	defer cancel()

	var response *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		response, err = s.generate(ctx, s.model, contents, s.config)
		if err == nil {
			break
		}

		s.logger.Warn("Failed to generate content, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if attempt < maxAttempts-1 {
			select {
			case <-time.After(time.Duration(attempt+1) * s.retryDelay):
			case <-ctx.Done():
				return repositories.ChatTurn{}, ctx.Err()
			}
		}
	}
	if err != nil {
		return repositories.ChatTurn{}, fmt.Errorf("failed to generate content: %w", err)
	}

	reply, turn := convertResponse(response)
	if reply == nil {
		return repositories.ChatTurn{}, ErrEmptyReply
	}

	s.history = append(contents, reply)

	s.logger.Debug("Chat turn processed",
		zap.Int("toolCalls", len(turn.ToolCalls)),
		zap.Int("historyLength", len(s.history)))

	return turn, nil
}

// convertResponse returns the first candidate's content and what it asks for
func convertResponse(response *genai.GenerateContentResponse) (*genai.Content, repositories.ChatTurn) {
	var turn repositories.ChatTurn
	if response == nil || len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return nil, turn
	}

	content := response.Candidates[0].Content
	for _, part := range content.Parts {
		switch {
		case part.FunctionCall != nil:
			turn.ToolCalls = append(turn.ToolCalls, entities.ToolCall{
				ID:   part.FunctionCall.ID,
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
		case part.Text != "" && !part.Thought:
			turn.Text += part.Text
		}
	}

	if turn.Text == "" && len(turn.ToolCalls) == 0 {
		return nil, turn
	}
	if content.Role == "" {
		content.Role = genai.RoleModel
	}
	return content, turn
}

// History implements repositories.ChatSession. Only text is reported.
func (s *GeminiChatSession) History() []entities.TranscriptEntry {
	var entries []entities.TranscriptEntry
	for _, content := range s.history {
		role := entities.TranscriptRoleUser
		if content.Role == genai.RoleModel {
			role = entities.TranscriptRoleAssistant
		}

		var text string
		for _, part := range content.Parts {
			if part.Text != "" && !part.Thought {
				text += part.Text
			}
		}
		if text != "" {
			entries = append(entries, entities.TranscriptEntry{Role: role, Text: text})
		}
	}
	return entries
}
