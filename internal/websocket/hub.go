package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/pesan/domain/entities"
	"github.com/satriahrh/pesan/internal/eventloop"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024

	// Time allowed for a session to stop when its client goes away.
	stopWait = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

var (
	// ErrClientClosed is returned when sending to a disconnected client
	ErrClientClosed = errors.New("client closed")
	// ErrHubStopped is logged for connections arriving after the hub stopped
	ErrHubStopped = errors.New("hub stopped")
)

// OrderSession is the ordering session a client drives
type OrderSession interface {
	Start(ctx context.Context, apiKey string) error
	Stop(ctx context.Context) error
}

// SessionFactory builds the ordering session of a newly connected client. The
// client provides the session's microphone, speaker, presenter and event loop.
type SessionFactory func(client *Client) OrderSession

// HubConfig tunes client handling
type HubConfig struct {
	// APIKey is used when a start message carries no key
	APIKey string
	// IdleTimeout closes clients that sent nothing for this long
	IdleTimeout time.Duration
	// ResumeTimeout bounds how long a speaker waits for the browser to resume output
	ResumeTimeout time.Duration
}

// Hub maintains the set of connected kiosk clients
type Hub struct {
	// Registered clients.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	// Closed when Run returns
	done chan struct{}

	newSession SessionFactory
	config     HubConfig
	validator  *MessageValidator
	now        func() time.Time

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(newSession SessionFactory, config HubConfig, logger *zap.Logger) *Hub {
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = 10 * time.Minute
	}
	if config.ResumeTimeout <= 0 {
		config.ResumeTimeout = 2 * time.Second
	}
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		newSession: newSession,
		config:     config,
		validator:  NewMessageValidator(),
		now:        time.Now,
		logger:     logger,
	}
}

// Run starts the hub's main loop. On return every client is disconnected.
func (h *Hub) Run(ctx context.Context) {
	reaper := time.NewTicker(reapInterval(h.config.IdleTimeout))
	defer reaper.Stop()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, client := range h.clients {
				client.conn.Close()
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			h.logger.Info("Client registered",
				zap.String("clientID", client.id),
				zap.String("kioskID", client.kioskID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				client.closeSend()
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("clientID", client.id))

		case <-reaper.C:
			h.reapIdle()
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// WriteData is one outbound websocket message
type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is one kiosk browser. It is the microphone, the speaker and the
// display of its ordering session.
type Client struct {
	id      string
	kioskID string
	hub     *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send   chan WriteData
	sendMu sync.Mutex
	closed bool

	loop       *eventloop.Loop
	loopCancel context.CancelFunc

	// control serializes start and stop requests
	control       chan func(ctx context.Context)
	controlCtx    context.Context
	controlCancel context.CancelFunc

	session OrderSession
	mic     *RemoteMicrophone
	speaker *RemoteSpeaker

	lastActivity atomic.Int64

	logger *zap.Logger
}

// HandleWebSocket upgrades the request and attaches a client for kioskID
func HandleWebSocket(hub *Hub, c echo.Context, kioskID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := newClient(hub, conn, kioskID, logger)
	select {
	case hub.register <- client:
	case <-hub.done:
		client.shutdown()
		conn.Close()
		logger.Warn("Connection refused", zap.Error(ErrHubStopped))
		return nil
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.controlPump()
	go client.readPump()

	return nil
}

func newClient(hub *Hub, conn *websocket.Conn, kioskID string, logger *zap.Logger) *Client {
	id := uuid.NewString()
	logger = logger.With(zap.String("clientID", id))

	c := &Client{
		id:      id,
		kioskID: kioskID,
		hub:     hub,
		conn:    conn,
		send:    make(chan WriteData, 256),
		control: make(chan func(ctx context.Context), 8),
		logger:  logger,
	}
	c.touch()

	loopCtx, loopCancel := context.WithCancel(context.Background())
	c.loop = eventloop.New(logger)
	c.loopCancel = loopCancel
	go c.loop.Run(loopCtx)

	c.controlCtx, c.controlCancel = context.WithCancel(context.Background())

	c.mic = newRemoteMicrophone(logger)
	c.speaker = newRemoteSpeaker(c.enqueue, c.sendJSON, hub.config.ResumeTimeout, logger)
	c.session = hub.newSession(c)
	return c
}

// ID identifies the connection
func (c *Client) ID() string { return c.id }

// KioskID is the kiosk the connection authenticated as, or empty
func (c *Client) KioskID() string { return c.kioskID }

// Loop is the event loop the client's session runs on
func (c *Client) Loop() *eventloop.Loop { return c.loop }

// Microphone is the browser's microphone
func (c *Client) Microphone() *RemoteMicrophone { return c.mic }

// Speaker is the browser's audio output
func (c *Client) Speaker() *RemoteSpeaker { return c.speaker }

// ShowStatus implements repositories.Presenter
func (c *Client) ShowStatus(text string) {
	c.present(CreateStatusMessage(text))
}

// AppendTranscript implements repositories.Presenter
func (c *Client) AppendTranscript(entry entities.TranscriptEntry) {
	c.present(&TranscriptMessage{
		BaseMessage: newBase(MessageTypeTranscript),
		Role:        entry.Role,
		Text:        entry.Text,
	})
}

// ClearTranscript implements repositories.Presenter
func (c *Client) ClearTranscript() {
	c.present(&BaseMessage{Type: MessageTypeTranscriptClear, Timestamp: time.Now().Format(time.RFC3339)})
}

// ShowCart implements repositories.Presenter
func (c *Client) ShowCart(items []entities.CartLineItem, total float64) {
	c.present(CreateCartMessage(items, total))
}

// ShowMenu implements repositories.Presenter
func (c *Client) ShowMenu(categories []entities.Category) {
	c.present(&MenuMessage{BaseMessage: newBase(MessageTypeMenu), Categories: categories})
}

func (c *Client) present(v interface{}) {
	if err := c.sendJSON(v); err != nil && !errors.Is(err, ErrClientClosed) {
		c.logger.Warn("Failed to send update", zap.Error(err))
	}
}

func (c *Client) sendJSON(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.enqueue(WriteData{Type: websocket.TextMessage, Payload: payload})
}

// enqueue hands a message to the write pump without blocking
func (c *Client) enqueue(data WriteData) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errors.New("send buffer full")
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

// LastActivity is when the client last sent a message
func (c *Client) LastActivity() time.Time {
	return time.Unix(0, c.lastActivity.Load())
}

// readPump pumps messages from the websocket connection to the session.
func (c *Client) readPump() {
	defer func() {
		c.shutdown()
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
			c.closeSend()
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}
		c.touch()
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		switch messageType {
		case websocket.TextMessage:
			c.processMessage(message)
		case websocket.BinaryMessage:
			c.mic.handleFrame(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// controlPump runs start and stop requests one at a time in arrival order
func (c *Client) controlPump() {
	for {
		select {
		case <-c.controlCtx.Done():
			return
		case fn := <-c.control:
			fn(c.controlCtx)
		}
	}
}

func (c *Client) submit(fn func(ctx context.Context)) {
	select {
	case c.control <- fn:
	default:
		c.present(CreateErrorMessage("busy", "Too many pending requests", ""))
	}
}

// processMessage processes incoming control messages from the browser
func (c *Client) processMessage(message []byte) {
	msg, err := c.hub.validator.ValidateMessage(message)
	if err != nil {
		c.logger.Warn("Invalid message", zap.Error(err))
		c.present(CreateErrorMessage("invalid_message", "Invalid message", err.Error()))
		return
	}

	switch m := msg.(type) {
	case *HelloMessage:
		c.mic.SetDeviceRate(m.SampleRate)
		c.logger.Info("Client hello", zap.Int("sampleRate", m.SampleRate))

	case *StartMessage:
		apiKey := m.APIKey
		if apiKey == "" {
			apiKey = c.hub.config.APIKey
		}
		c.submit(func(ctx context.Context) {
			if err := c.session.Start(ctx, apiKey); err != nil {
				c.logger.Warn("Session did not start", zap.Error(err))
			}
		})

	case *StopMessage:
		c.submit(func(ctx context.Context) {
			if err := c.session.Stop(ctx); err != nil {
				c.logger.Warn("Failed to stop session", zap.Error(err))
			}
		})

	case *OutputStateMessage:
		c.speaker.setState(m.State)

	case *PlaybackEndedMessage:
		c.speaker.ended(m.ID)

	case *PingMessage:
		c.present(CreatePongMessage(m.Data))
	}
}

// shutdown stops the session and its loop once the connection is gone
func (c *Client) shutdown() {
	c.controlCancel()

	ctx, cancel := context.WithTimeout(context.Background(), stopWait)
	defer cancel()
	if err := c.session.Stop(ctx); err != nil {
		c.logger.Warn("Failed to stop session on disconnect", zap.Error(err))
	}
	c.loopCancel()
}
