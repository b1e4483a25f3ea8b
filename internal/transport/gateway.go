package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	connectAttempts = 5
	connectDelay    = 3 * time.Second
)

// Gateway is an HTTP client for the messaging gateway's send API.
type Gateway struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGateway creates a Gateway targeting the given base URL. The token
// is sent as a bearer credential when non-empty.
func NewGateway(baseURL, token string) *Gateway {
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default(),
	}
}

// Connect verifies the gateway is reachable, retrying a fixed number
// of times with a fixed delay. It fails only once all attempts are
// exhausted.
func (g *Gateway) Connect(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if err := g.ping(ctx); err != nil {
			lastErr = err
			g.logger.Warn("gateway not reachable", "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(connectDelay):
			}
			continue
		}
		g.logger.Info("connected to messaging gateway", "url", g.baseURL)
		return nil
	}
	return fmt.Errorf("gateway unreachable after %d attempts: %w", connectAttempts, lastErr)
}

func (g *Gateway) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	g.authorize(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// sendRequest is the JSON body for POST /messages.
type sendRequest struct {
	ID   string `json:"id"`
	To   string `json:"to"`
	Body string `json:"body"`
}

// SendText delivers a text message to the given user.
func (g *Gateway) SendText(ctx context.Context, userID, text string) error {
	body, err := json.Marshal(sendRequest{
		ID:   uuid.New().String(),
		To:   userID,
		Body: text,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	g.authorize(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%w: unexpected status %d", ErrSendFailed, resp.StatusCode)
	}
	return nil
}

func (g *Gateway) authorize(req *http.Request) {
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
}
