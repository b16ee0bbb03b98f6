package websocket

import (
	"time"

	"go.uber.org/zap"
)

// reapInterval checks for idle clients a few times per timeout
func reapInterval(idleTimeout time.Duration) time.Duration {
	interval := idleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

// reapIdle closes clients that have been silent longer than the idle timeout.
// Their read pumps then unregister them.
func (h *Hub) reapIdle() int {
	cutoff := h.now().Add(-h.config.IdleTimeout)

	h.mu.RLock()
	var idle []*Client
	for _, client := range h.clients {
		if client.LastActivity().Before(cutoff) {
			idle = append(idle, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range idle {
		h.logger.Info("Closing idle client",
			zap.String("clientID", client.id),
			zap.Time("lastActivity", client.LastActivity()))
		client.conn.Close()
	}
	return len(idle)
}
