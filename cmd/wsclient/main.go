// Command wsclient walks a running pesan server through the kiosk websocket
// handshake: token, hello, ping, start and stop. Server messages are printed
// as they arrive.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type kioskTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	KioskID   string    `json:"kiosk_id"`
}

func main() {
	server := flag.String("server", "localhost:8080", "server host:port")
	kioskID := flag.String("kiosk", "wsclient", "kiosk id")
	accessCode := flag.String("access-code", "", "kiosk access code (empty when auth is disabled)")
	apiKey := flag.String("api-key", "", "Gemini API key sent with start (empty uses the server key)")
	listen := flag.Duration("listen", 5*time.Second, "how long to print server messages after start")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	// Step 1: Get authentication token
	var token string
	if *accessCode != "" {
		var err error
		token, err = fetchToken(*server, *kioskID, *accessCode)
		if err != nil {
			logger.Fatal("Failed to authenticate kiosk", zap.Error(err))
		}
		logger.Info("Authentication successful", zap.String("kioskID", *kioskID))
	}

	// Step 2: Connect to WebSocket with token
	wsURL := url.URL{Scheme: "ws", Host: *server, Path: "/ws"}
	if token != "" {
		q := wsURL.Query()
		q.Set("token", token)
		wsURL.RawQuery = q.Encode()
	}

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		if resp != nil {
			logger.Fatal("WebSocket connection failed", zap.Int("status", resp.StatusCode), zap.Error(err))
		}
		logger.Fatal("WebSocket connection failed", zap.Error(err))
	}
	defer conn.Close()
	logger.Info("WebSocket connection successful")

	// Step 3: Say hello and check the connection
	send(logger, conn, map[string]interface{}{"type": "hello", "sample_rate": 16000})
	send(logger, conn, map[string]interface{}{"type": "ping", "data": "wsclient"})

	// Step 4: Start a session and print what comes back
	send(logger, conn, map[string]interface{}{"type": "start", "api_key": *apiKey})

	deadline := time.Now().Add(*listen)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			break
		}
		switch messageType {
		case websocket.TextMessage:
			var msg map[string]interface{}
			if err := json.Unmarshal(message, &msg); err == nil && msg["type"] == "resume" {
				// Pretend the speaker came up.
				send(logger, conn, map[string]interface{}{"type": "output_state", "state": "running"})
			}
			fmt.Fprintf(os.Stdout, "< %s\n", message)
		case websocket.BinaryMessage:
			fmt.Fprintf(os.Stdout, "< %d bytes of audio\n", len(message))
		}
	}

	// Step 5: Stop the session
	send(logger, conn, map[string]interface{}{"type": "stop"})
	logger.Info("Done")
}

func fetchToken(server, kioskID, accessCode string) (string, error) {
	reqBody, err := json.Marshal(map[string]string{"kiosk_id": kioskID, "access_code": accessCode})
	if err != nil {
		return "", err
	}

	resp, err := http.Post("http://"+server+"/api/v1/session/token", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("authentication failed with status: %d", resp.StatusCode)
	}

	var tokenResp kioskTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	return tokenResp.Token, nil
}

func send(logger *zap.Logger, conn *websocket.Conn, msg map[string]interface{}) {
	if err := conn.WriteJSON(msg); err != nil {
		logger.Fatal("Failed to send message", zap.Any("type", msg["type"]), zap.Error(err))
	}
	fmt.Fprintf(os.Stdout, "> %v\n", msg["type"])
}
