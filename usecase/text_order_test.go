package usecase

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/pesan/adapters/catalog"
	"github.com/satriahrh/pesan/adapters/llm"
	"github.com/satriahrh/pesan/domain/entities"
	"github.com/satriahrh/pesan/domain/repositories"
	"github.com/satriahrh/pesan/internal/tools"
)

func newTextSession(t *testing.T, connector *llm.MockChatConnector, presenter *recordingPresenter, orders tools.OrderPlacer) *TextOrderSession {
	t.Helper()
	s, err := NewTextOrderSession(context.Background(), OrderSessionConfig{Model: "text-model"}, "key", TextOrderDeps{
		Connector: connector,
		Presenter: presenter,
		Catalog:   catalog.Default(),
		Orders:    orders,
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewTextOrderSession failed: %v", err)
	}
	return s
}

func TestTextOrderSession_MissingKey(t *testing.T) {
	presenter := &recordingPresenter{}
	_, err := NewTextOrderSession(context.Background(), OrderSessionConfig{}, "", TextOrderDeps{
		Connector: llm.NewMockChatConnector(),
		Presenter: presenter,
		Catalog:   catalog.Default(),
	}, zaptest.NewLogger(t))

	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("Expected ErrMissingCredential, got %v", err)
	}
	if presenter.LastStatus() != entities.StatusMissingKey {
		t.Errorf("Expected missing key status, got %q", presenter.LastStatus())
	}
}

func TestTextOrderSession_ConfiguresChat(t *testing.T) {
	connector := llm.NewMockChatConnector()
	newTextSession(t, connector, &recordingPresenter{}, nil)

	cfg := connector.Last().Config()
	if cfg.Model != "text-model" || cfg.APIKey != "key" {
		t.Errorf("Unexpected chat config %+v", cfg)
	}
	if cfg.SystemInstruction != tools.SystemInstruction {
		t.Error("Expected the default ordering instruction")
	}
	if len(cfg.Tools) != len(tools.Definitions()) {
		t.Errorf("Expected %d tools, got %d", len(tools.Definitions()), len(cfg.Tools))
	}
}

func TestTextOrderSession_ToolsThenReply(t *testing.T) {
	connector := llm.NewMockChatConnector(
		repositories.ChatTurn{ToolCalls: []entities.ToolCall{
			{ID: "1", Name: tools.AddToCart, Args: map[string]any{"productName": "spicy chicken", "quantity": float64(2)}},
		}},
		repositories.ChatTurn{ToolCalls: []entities.ToolCall{{ID: "2", Name: tools.Checkout}}},
		repositories.ChatTurn{Text: "Your order is placed."},
	)
	presenter := &recordingPresenter{}
	orders := &placedOrders{}
	s := newTextSession(t, connector, presenter, orders)

	reply, err := s.Send(context.Background(), "two spicy chicken burgers and check out")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if reply != "Your order is placed." {
		t.Errorf("Expected the final reply, got %q", reply)
	}

	responses := connector.Last().ToolResponses()
	if len(responses) != 2 {
		t.Fatalf("Expected 2 tool response batches, got %d", len(responses))
	}
	if responses[0][0].ID != "1" || responses[1][0].Name != tools.Checkout {
		t.Errorf("Unexpected responses %+v", responses)
	}

	if len(orders.items) != 1 || orders.items[0][0].Quantity != 2 {
		t.Errorf("Expected one order of 2 burgers, got %+v", orders.items)
	}
	if s.Cart().Len() != 0 {
		t.Errorf("Expected the cart cleared after checkout, got %d items", s.Cart().Len())
	}

	if len(presenter.transcript) != 2 {
		t.Fatalf("Expected user and assistant lines, got %+v", presenter.transcript)
	}
	if presenter.transcript[1].Role != entities.TranscriptRoleAssistant {
		t.Errorf("Expected the assistant line last, got %+v", presenter.transcript[1])
	}
}

func TestTextOrderSession_TooManyToolRounds(t *testing.T) {
	var script []repositories.ChatTurn
	for i := 0; i <= maxToolRounds; i++ {
		script = append(script, repositories.ChatTurn{ToolCalls: []entities.ToolCall{{ID: "m", Name: tools.GetMenu}}})
	}
	s := newTextSession(t, llm.NewMockChatConnector(script...), &recordingPresenter{}, nil)

	if _, err := s.Send(context.Background(), "menu?"); !errors.Is(err, ErrTooManyToolRounds) {
		t.Errorf("Expected ErrTooManyToolRounds, got %v", err)
	}
}

func TestTextOrderSession_ChatError(t *testing.T) {
	s := newTextSession(t, llm.NewMockChatConnector(), &recordingPresenter{}, nil)

	if _, err := s.Send(context.Background(), "hello"); !errors.Is(err, llm.ErrScriptExhausted) {
		t.Errorf("Expected the chat error, got %v", err)
	}
}
