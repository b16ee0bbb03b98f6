package llm

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"
	"google.golang.org/genai"

	"github.com/satriahrh/pesan/domain/entities"
	"github.com/satriahrh/pesan/domain/repositories"
)

type fakeGenerator struct {
	calls     [][]*genai.Content
	responses []*genai.GenerateContentResponse
	errs      []error
}

func (f *fakeGenerator) generate(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls = append(f.calls, contents)
	i := len(f.calls) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return f.responses[i], nil
}

func modelReply(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: genai.RoleModel, Parts: parts},
	}}}
}

func newTestChatSession(t *testing.T, gen *fakeGenerator) *GeminiChatSession {
	s := newGeminiChatSession(gen.generate, repositories.ChatConfig{
		SystemInstruction: "take orders",
		Tools:             []entities.ToolDefinition{{Name: "getMenu"}},
	}, zaptest.NewLogger(t))
	s.retryDelay = 0
	return s
}

func TestBuildChatConfig(t *testing.T) {
	cfg := buildChatConfig(repositories.ChatConfig{
		SystemInstruction: "take orders",
		Tools:             []entities.ToolDefinition{{Name: "getMenu"}, {Name: "checkout"}},
	})

	if cfg.SystemInstruction == nil || cfg.SystemInstruction.Parts[0].Text != "take orders" {
		t.Errorf("Expected system instruction, got %+v", cfg.SystemInstruction)
	}
	if len(cfg.Tools) != 1 || len(cfg.Tools[0].FunctionDeclarations) != 2 {
		t.Errorf("Expected 2 function declarations, got %+v", cfg.Tools)
	}
	if cfg.Temperature == nil {
		t.Error("Expected a temperature")
	}

	if bare := buildChatConfig(repositories.ChatConfig{}); bare.SystemInstruction != nil || bare.Tools != nil {
		t.Errorf("Expected no instruction or tools, got %+v", bare)
	}
}

func TestGeminiChatSession_ToolRoundTrip(t *testing.T) {
	gen := &fakeGenerator{responses: []*genai.GenerateContentResponse{
		modelReply(&genai.Part{FunctionCall: &genai.FunctionCall{ID: "c1", Name: "getMenu"}}),
		modelReply(genai.NewPartFromText("We have burgers.")),
	}}
	s := newTestChatSession(t, gen)

	turn, err := s.SendText(context.Background(), "what do you have?")
	if err != nil {
		t.Fatalf("SendText failed: %v", err)
	}
	if len(turn.ToolCalls) != 1 || turn.ToolCalls[0].Name != "getMenu" || turn.ToolCalls[0].ID != "c1" {
		t.Fatalf("Expected a getMenu call, got %+v", turn)
	}

	turn, err = s.SendToolResponses(context.Background(), []entities.ToolResponse{
		{ID: "c1", Name: "getMenu", Response: map[string]any{"menu": "burgers"}},
	})
	if err != nil {
		t.Fatalf("SendToolResponses failed: %v", err)
	}
	if turn.Text != "We have burgers." {
		t.Errorf("Expected reply text, got %q", turn.Text)
	}

	// user text, model call, tool response
	second := gen.calls[1]
	if len(second) != 3 {
		t.Fatalf("Expected 3 contents in the second request, got %d", len(second))
	}
	fr := second[2].Parts[0].FunctionResponse
	if fr == nil || fr.ID != "c1" || fr.Name != "getMenu" {
		t.Errorf("Expected the function response last, got %+v", second[2].Parts[0])
	}

	history := s.History()
	if len(history) != 2 {
		t.Fatalf("Expected 2 text entries, got %+v", history)
	}
	if history[0].Role != entities.TranscriptRoleUser || history[1].Role != entities.TranscriptRoleAssistant {
		t.Errorf("Unexpected roles %+v", history)
	}
}

func TestGeminiChatSession_RetriesThenFails(t *testing.T) {
	boom := errors.New("unavailable")
	gen := &fakeGenerator{errs: []error{boom, boom, boom}}
	s := newTestChatSession(t, gen)

	_, err := s.SendText(context.Background(), "hello")
	if !errors.Is(err, boom) {
		t.Fatalf("Expected the generate error, got %v", err)
	}
	if len(gen.calls) != maxAttempts {
		t.Errorf("Expected %d attempts, got %d", maxAttempts, len(gen.calls))
	}
	if len(s.History()) != 0 {
		t.Errorf("Expected history untouched after failure, got %+v", s.History())
	}
}

func TestGeminiChatSession_RetrySucceeds(t *testing.T) {
	gen := &fakeGenerator{
		errs:      []error{errors.New("unavailable"), nil},
		responses: []*genai.GenerateContentResponse{nil, modelReply(genai.NewPartFromText("Hi!"))},
	}
	s := newTestChatSession(t, gen)

	turn, err := s.SendText(context.Background(), "hello")
	if err != nil {
		t.Fatalf("SendText failed: %v", err)
	}
	if turn.Text != "Hi!" {
		t.Errorf("Expected Hi!, got %q", turn.Text)
	}
}

func TestGeminiChatSession_EmptyReply(t *testing.T) {
	gen := &fakeGenerator{responses: []*genai.GenerateContentResponse{
		{Candidates: []*genai.Candidate{}},
	}}
	s := newTestChatSession(t, gen)

	if _, err := s.SendText(context.Background(), "hello"); !errors.Is(err, ErrEmptyReply) {
		t.Errorf("Expected ErrEmptyReply, got %v", err)
	}
}

func TestConvertResponse_SkipsThoughts(t *testing.T) {
	_, turn := convertResponse(modelReply(
		&genai.Part{Text: "thinking...", Thought: true},
		genai.NewPartFromText("Sure."),
	))
	if turn.Text != "Sure." {
		t.Errorf("Expected only the answer, got %q", turn.Text)
	}
}
