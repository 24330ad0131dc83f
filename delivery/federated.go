package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// FederatedConfig configures the secondary channel: a federated
// phone-identity provider that performs its own code delivery.
type FederatedConfig struct {
	BaseURL    string
	ProjectID  string
	APIToken   string
	HTTPClient *http.Client
}

// Federated asks a phone-identity provider to deliver the code on our
// behalf. Used as a fallback when the primary gateway is down or over
// budget.
type Federated struct {
	config FederatedConfig
}

func NewFederated(cfg FederatedConfig) *Federated {
	return &Federated{config: cfg}
}

func (f *Federated) Name() string { return "federated" }

func (f *Federated) Configured() bool {
	return f != nil && f.config.BaseURL != "" && f.config.ProjectID != "" && f.config.APIToken != ""
}

type federatedRequest struct {
	Project string `json:"project"`
	Phone   string `json:"phone"`
	Code    string `json:"code"`
}

type federatedResponse struct {
	SessionInfo string `json:"session_info"`
}

func (f *Federated) Send(ctx context.Context, identifier string, msg Message) (Result, error) {
	if !f.Configured() {
		return Result{}, ErrNotConfigured
	}

	payload, err := json.Marshal(federatedRequest{
		Project: f.config.ProjectID,
		Phone:   identifier,
		Code:    msg.Code,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.config.BaseURL+"/v1/sendVerificationCode", bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.config.APIToken)

	resp, err := f.client().Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("%w: federated status %d", ErrSendFailed, resp.StatusCode)
	}

	var decoded federatedResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&decoded); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	return Result{
		Accepted:    true,
		Channel:     f.Name(),
		ProviderRef: decoded.SessionInfo,
	}, nil
}

func (f *Federated) client() *http.Client {
	if f.config.HTTPClient != nil {
		return f.config.HTTPClient
	}
	return http.DefaultClient
}
