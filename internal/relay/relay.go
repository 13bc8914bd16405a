// Package relay implements the client side of the relay HTTP contract.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cchalm/shopchat/internal/chat"
)

// ChatPath is the relay endpoint path
const ChatPath = "/chat"

// FallbackReply replaces an empty reply from the relay
const FallbackReply = "Sorry, something went wrong."

const maxResponseBytes = 1 << 20

// ChatRequest is the body of POST /chat
type ChatRequest struct {
	Message string         `json:"message"`
	History []chat.Message `json:"history"`
}

// ChatResponse is the body of every /chat response, including failures
type ChatResponse struct {
	Reply string `json:"reply"`
}

// StatusError is returned for a non-2xx relay response
type StatusError struct {
	StatusCode int
	Reply      string
}

func (e *StatusError) Error() string {
	if e.Reply == "" {
		return fmt.Sprintf("relay returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("relay returned status %d: %s", e.StatusCode, e.Reply)
}

// Client sends chat requests to a relay server
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a client for the relay at baseURL. A nil httpClient uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		endpoint:   strings.TrimRight(baseURL, "/") + ChatPath,
		httpClient: httpClient,
	}
}

// Send posts the message and prior history and returns the reply text. Deadlines come from ctx.
func (c *Client) Send(ctx context.Context, message string, history []chat.Message) (string, error) {
	if history == nil {
		history = []chat.Message{}
	}
	body, err := json.Marshal(ChatRequest{Message: message, History: history})
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send chat request: %w", err)
	}
	defer resp.Body.Close()

	var decoded ChatResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&decoded)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode, Reply: decoded.Reply}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", decodeErr)
	}
	if decoded.Reply == "" {
		return FallbackReply, nil
	}
	return decoded.Reply, nil
}
