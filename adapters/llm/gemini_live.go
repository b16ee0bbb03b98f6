package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/pesan/domain"
	"github.com/satriahrh/pesan/domain/entities"
	"github.com/satriahrh/pesan/domain/repositories"
)

const (
	// DefaultLiveModel is the native audio model used when none is configured
	DefaultLiveModel = "gemini-2.5-flash-native-audio-preview-09-2025"

	liveAPIVersion = "v1beta"
)

// ErrChannelClosed is returned when sending on a closed live channel
var ErrChannelClosed = errors.New("live channel closed")

// GeminiLiveConnector opens Gemini Live sessions. A client is created per
// connection because the API key is supplied by whoever starts the session.
type GeminiLiveConnector struct {
	logger *zap.Logger
}

// NewGeminiLiveConnector creates a new Gemini Live connector
func NewGeminiLiveConnector(logger *zap.Logger) *GeminiLiveConnector {
	return &GeminiLiveConnector{logger: logger}
}

// Connect implements repositories.LiveConnector
func (g *GeminiLiveConnector) Connect(ctx context.Context, cfg repositories.LiveConfig) (repositories.LiveChannel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultLiveModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: liveAPIVersion},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	session, err := client.Live.Connect(ctx, model, buildLiveConnectConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Gemini Live: %w", err)
	}

	g.logger.Info("Connected to Gemini Live", zap.String("model", model))

	return &GeminiLiveChannel{
		session: session,
		logger:  g.logger.With(zap.String("model", model)),
	}, nil
}

func buildLiveConnectConfig(cfg repositories.LiveConfig) *genai.LiveConnectConfig {
	config := &genai.LiveConnectConfig{
		ResponseModalities:      []genai.Modality{genai.ModalityAudio},
		InputAudioTranscription: &genai.AudioTranscriptionConfig{},
	}

	if cfg.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(cfg.SystemInstruction, genai.RoleUser)
	}

	if cfg.Voice != "" {
		config.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
		}
	}

	if len(cfg.Tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: convertToolDefinitions(cfg.Tools)}}
	}

	return config
}

func convertToolDefinitions(defs []entities.ToolDefinition) []*genai.FunctionDeclaration {
	declarations := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, def := range defs {
		decl := &genai.FunctionDeclaration{
			Name:        def.Name,
			Description: def.Description,
		}
		if len(def.Params) > 0 {
			schema := &genai.Schema{
				Type:       genai.TypeObject,
				Properties: make(map[string]*genai.Schema, len(def.Params)),
			}
			for _, p := range def.Params {
				schema.Properties[p.Name] = &genai.Schema{
					Type:        convertParamType(p.Type),
					Description: p.Description,
				}
				if p.Required {
					schema.Required = append(schema.Required, p.Name)
				}
			}
			decl.Parameters = schema
		}
		declarations = append(declarations, decl)
	}
	return declarations
}

func convertParamType(t entities.ToolParamType) genai.Type {
	switch t {
	case entities.ToolParamNumber:
		return genai.TypeNumber
	default:
		return genai.TypeString
	}
}

// GeminiLiveChannel implements repositories.LiveChannel on a genai live session
type GeminiLiveChannel struct {
	session *genai.Session
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
	once   sync.Once
}

// Listen implements repositories.LiveChannel
func (c *GeminiLiveChannel) Listen(h repositories.LiveHandler) {
	c.once.Do(func() {
		go c.receiveLoop(h)
	})
}

func (c *GeminiLiveChannel) receiveLoop(h repositories.LiveHandler) {
	if h.OnOpen != nil {
		h.OnOpen()
	}

	for {
		msg, err := c.session.Receive()
		if err != nil {
			c.mu.Lock()
			closedByUs := c.closed
			c.mu.Unlock()

			var closeErr *websocket.CloseError
			switch {
			case closedByUs:
				c.logger.Debug("Live receive loop finished after close")
			case errors.As(err, &closeErr):
				c.logger.Info("Live session closed by server",
					zap.Int("code", closeErr.Code),
					zap.String("reason", closeErr.Text))
				if h.OnClose != nil {
					h.OnClose(closeErr.Text)
				}
			default:
				c.logger.Error("Live session receive failed", zap.Error(err))
				if h.OnError != nil {
					h.OnError(err)
				}
			}
			return
		}

		if msg.SetupComplete != nil {
			c.logger.Debug("Live session setup complete")
		}
		if msg.GoAway != nil {
			c.logger.Warn("Live session going away", zap.Duration("timeLeft", msg.GoAway.TimeLeft))
		}

		if converted, ok := convertServerMessage(msg); ok && h.OnMessage != nil {
			h.OnMessage(converted)
		}
	}
}

// convertServerMessage maps a genai server message to the domain shape. Inline
// audio is re-encoded to base64, which is how the playback pipeline takes it.
func convertServerMessage(msg *genai.LiveServerMessage) (domain.LiveMessage, bool) {
	var out domain.LiveMessage
	relevant := false

	if msg.ToolCall != nil {
		for _, fc := range msg.ToolCall.FunctionCalls {
			if fc == nil {
				continue
			}
			out.ToolCalls = append(out.ToolCalls, entities.ToolCall{
				ID:   fc.ID,
				Name: fc.Name,
				Args: fc.Args,
			})
		}
		relevant = true
	}

	if sc := msg.ServerContent; sc != nil {
		relevant = true
		out.Interrupted = sc.Interrupted
		out.TurnComplete = sc.TurnComplete
		if sc.InputTranscription != nil {
			out.InputTranscript = sc.InputTranscription.Text
		}
		if sc.ModelTurn != nil {
			for _, part := range sc.ModelTurn.Parts {
				if part == nil {
					continue
				}
				var p domain.LivePart
				if part.Text != "" && !part.Thought {
					p.Text = part.Text
				}
				if part.InlineData != nil && len(part.InlineData.Data) > 0 {
					p.Audio = &domain.AudioChunk{
						Data:     base64.StdEncoding.EncodeToString(part.InlineData.Data),
						MIMEType: part.InlineData.MIMEType,
					}
				}
				if p.Text != "" || p.Audio != nil {
					out.Parts = append(out.Parts, p)
				}
			}
		}
	}

	return out, relevant
}

// SendRealtimeAudio implements repositories.LiveChannel
func (c *GeminiLiveChannel) SendRealtimeAudio(chunk domain.AudioChunk) error {
	data, err := base64.StdEncoding.DecodeString(chunk.Data)
	if err != nil {
		return fmt.Errorf("failed to decode audio chunk: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	return c.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{Data: data, MIMEType: chunk.MIMEType},
	})
}

// SendToolResponses implements repositories.LiveChannel
func (c *GeminiLiveChannel) SendToolResponses(responses []entities.ToolResponse) error {
	functionResponses := make([]*genai.FunctionResponse, 0, len(responses))
	for _, r := range responses {
		functionResponses = append(functionResponses, &genai.FunctionResponse{
			ID:       r.ID,
			Name:     r.Name,
			Response: r.Response,
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	if err := c.session.SendToolResponse(genai.LiveToolResponseInput{FunctionResponses: functionResponses}); err != nil {
		return fmt.Errorf("failed to send tool responses: %w", err)
	}
	return nil
}

// Close implements repositories.LiveChannel
func (c *GeminiLiveChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.session.Close()
}
