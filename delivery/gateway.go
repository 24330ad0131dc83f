package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
)

// GatewayConfig configures the primary telephony gateway channel.
type GatewayConfig struct {
	BaseURL  string
	APIKey   string
	SenderID string
	// HTTPClient may be replaced in tests. Nil uses http.DefaultClient.
	HTTPClient *http.Client
}

// Gateway sends codes through the primary HTTP telephony gateway.
type Gateway struct {
	config GatewayConfig
}

func NewGateway(cfg GatewayConfig) *Gateway {
	return &Gateway{config: cfg}
}

func (g *Gateway) Name() string { return "gateway" }

func (g *Gateway) Configured() bool {
	return g != nil && g.config.BaseURL != "" && g.config.APIKey != ""
}

type gatewayRequest struct {
	To     string `json:"to"`
	Sender string `json:"sender,omitempty"`
	Body   string `json:"body"`
	Ref    string `json:"ref"`
}

type gatewayResponse struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}

func (g *Gateway) Send(ctx context.Context, identifier string, msg Message) (Result, error) {
	if !g.Configured() {
		return Result{}, ErrNotConfigured
	}

	payload, err := json.Marshal(gatewayRequest{
		To:     identifier,
		Sender: g.config.SenderID,
		Body:   msg.Body,
		Ref:    uuid.NewString(),
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.BaseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.config.APIKey)

	resp, err := g.client().Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("%w: gateway status %d", ErrSendFailed, resp.StatusCode)
	}

	var decoded gatewayResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&decoded); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	return Result{
		Accepted:    true,
		Channel:     g.Name(),
		ProviderRef: decoded.MessageID,
	}, nil
}

func (g *Gateway) client() *http.Client {
	if g.config.HTTPClient != nil {
		return g.config.HTTPClient
	}
	return http.DefaultClient
}
