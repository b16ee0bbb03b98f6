package llm

import (
	"context"
	"errors"
	"sync"

	"github.com/satriahrh/pesan/domain"
	"github.com/satriahrh/pesan/domain/entities"
	"github.com/satriahrh/pesan/domain/repositories"
)

// MockLiveConnector hands out MockLiveChannels. It is used by tests and by the
// server when no Gemini key is configured.
type MockLiveConnector struct {
	mu       sync.Mutex
	channels []*MockLiveChannel
	configs  []repositories.LiveConfig

	// ConnectErr, when set, is returned by the next Connect
	ConnectErr error
	// AutoOpen makes Listen fire OnOpen immediately
	AutoOpen bool
}

// NewMockLiveConnector creates a mock connector that opens channels right away
func NewMockLiveConnector() *MockLiveConnector {
	return &MockLiveConnector{AutoOpen: true}
}

// Connect implements repositories.LiveConnector
func (m *MockLiveConnector) Connect(ctx context.Context, cfg repositories.LiveConfig) (repositories.LiveChannel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ConnectErr != nil {
		err := m.ConnectErr
		m.ConnectErr = nil
		return nil, err
	}

	ch := &MockLiveChannel{autoOpen: m.AutoOpen, listening: make(chan struct{})}
	m.channels = append(m.channels, ch)
	m.configs = append(m.configs, cfg)
	return ch, nil
}

// Last returns the most recently opened channel, or nil
func (m *MockLiveConnector) Last() *MockLiveChannel {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.channels) == 0 {
		return nil
	}
	return m.channels[len(m.channels)-1]
}

// LastConfig returns the config of the most recent Connect
func (m *MockLiveConnector) LastConfig() repositories.LiveConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.configs) == 0 {
		return repositories.LiveConfig{}
	}
	return m.configs[len(m.configs)-1]
}

// Connections returns how many channels were opened
func (m *MockLiveConnector) Connections() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.channels)
}

// MockLiveChannel records what is sent and lets tests inject server events
type MockLiveChannel struct {
	mu        sync.Mutex
	handler   repositories.LiveHandler
	autoOpen  bool
	listening chan struct{}
	closed    bool

	audio     []domain.AudioChunk
	responses [][]entities.ToolResponse

	// SendErr, when set, fails every send
	SendErr error
}

// Listen implements repositories.LiveChannel
func (c *MockLiveChannel) Listen(h repositories.LiveHandler) {
	c.mu.Lock()
	c.handler = h
	close(c.listening)
	c.mu.Unlock()

	if c.autoOpen && h.OnOpen != nil {
		h.OnOpen()
	}
}

// Listening is closed once Listen has been called
func (c *MockLiveChannel) Listening() <-chan struct{} {
	return c.listening
}

// SendRealtimeAudio implements repositories.LiveChannel
func (c *MockLiveChannel) SendRealtimeAudio(chunk domain.AudioChunk) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	if c.SendErr != nil {
		return c.SendErr
	}
	c.audio = append(c.audio, chunk)
	return nil
}

// SendToolResponses implements repositories.LiveChannel
func (c *MockLiveChannel) SendToolResponses(responses []entities.ToolResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	if c.SendErr != nil {
		return c.SendErr
	}
	c.responses = append(c.responses, responses)
	return nil
}

// Close implements repositories.LiveChannel
func (c *MockLiveChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Closed reports whether Close was called
func (c *MockLiveChannel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Audio returns the audio chunks sent so far
func (c *MockLiveChannel) Audio() []domain.AudioChunk {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.AudioChunk, len(c.audio))
	copy(out, c.audio)
	return out
}

// ToolResponses returns the tool response batches sent so far
func (c *MockLiveChannel) ToolResponses() [][]entities.ToolResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]entities.ToolResponse, len(c.responses))
	copy(out, c.responses)
	return out
}

func (c *MockLiveChannel) currentHandler() (repositories.LiveHandler, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.listening:
	default:
		return repositories.LiveHandler{}, errors.New("channel is not listening")
	}
	return c.handler, nil
}

// Open fires OnOpen
func (c *MockLiveChannel) Open() error {
	h, err := c.currentHandler()
	if err != nil {
		return err
	}
	if h.OnOpen != nil {
		h.OnOpen()
	}
	return nil
}

// Emit delivers msg to OnMessage
func (c *MockLiveChannel) Emit(msg domain.LiveMessage) error {
	h, err := c.currentHandler()
	if err != nil {
		return err
	}
	if h.OnMessage != nil {
		h.OnMessage(msg)
	}
	return nil
}

// Fail delivers err to OnError
func (c *MockLiveChannel) Fail(err error) error {
	h, herr := c.currentHandler()
	if herr != nil {
		return herr
	}
	if h.OnError != nil {
		h.OnError(err)
	}
	return nil
}

// CloseRemote simulates the server closing the channel
func (c *MockLiveChannel) CloseRemote(reason string) error {
	h, err := c.currentHandler()
	if err != nil {
		return err
	}
	if h.OnClose != nil {
		h.OnClose(reason)
	}
	return nil
}
