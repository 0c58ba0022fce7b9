package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"school_payments/internal/config"
)

// CollectRequest is the signed payload for creating a collection session
// at the aggregator.
type CollectRequest struct {
	SchoolID    string `json:"school_id"`
	Amount      string `json:"amount"`
	CallbackURL string `json:"callback_url"`
	Sign        string `json:"sign"`
}

// CollectResponse is the aggregator's answer to a create call. The raw body
// is retained for the transaction's audit trail.
type CollectResponse struct {
	CollectRequestID  string
	CollectRequestURL string
	Raw               json.RawMessage
}

// The aggregator has historically answered with either snake_case keys or
// an "id"/"Collect_request_url" variant, so decoding accepts both.
func (r *CollectResponse) UnmarshalJSON(data []byte) error {
	var body struct {
		CollectRequestID     string `json:"collect_request_id"`
		ID                   string `json:"id"`
		CollectRequestURL    string `json:"collect_request_url"`
		AltCollectRequestURL string `json:"Collect_request_url"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}

	r.CollectRequestID = body.CollectRequestID
	if r.CollectRequestID == "" {
		r.CollectRequestID = body.ID
	}
	r.CollectRequestURL = body.CollectRequestURL
	if r.CollectRequestURL == "" {
		r.CollectRequestURL = body.AltCollectRequestURL
	}
	r.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// CollectStatusResponse is the aggregator's answer to a status check.
type CollectStatusResponse struct {
	Status  string          `json:"status"`
	Amount  float64         `json:"amount"`
	Details json.RawMessage `json:"details"`
	Raw     json.RawMessage `json:"-"`
}

// GatewayAPI is the boundary to the upstream payment aggregator.
type GatewayAPI interface {
	CreateCollectRequest(ctx context.Context, req CollectRequest) (*CollectResponse, error)
	CheckCollectStatus(ctx context.Context, collectRequestID, schoolID, sign string) (*CollectStatusResponse, error)
}

// GatewayService talks to the aggregator's REST API with bearer auth and a
// bounded request timeout.
type GatewayService struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewGatewayService(cfg config.Gateway) *GatewayService {
	return &GatewayService{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond,
		},
	}
}

// CreateCollectRequest opens a payment-collection session upstream.
func (g *GatewayService) CreateCollectRequest(ctx context.Context, req CollectRequest) (*CollectResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshalling collect request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/create-collect-request", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	respBody, err := g.do(httpReq)
	if err != nil {
		return nil, err
	}

	var resp CollectResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decoding collect response: %w", err)
	}
	return &resp, nil
}

// CheckCollectStatus fetches the aggregator's view of a collect request.
func (g *GatewayService) CheckCollectStatus(ctx context.Context, collectRequestID, schoolID, sign string) (*CollectStatusResponse, error) {
	params := url.Values{}
	params.Set("school_id", schoolID)
	params.Set("sign", sign)

	endpoint := fmt.Sprintf("%s/collect-request/%s?%s", g.baseURL, url.PathEscape(collectRequestID), params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	respBody, err := g.do(httpReq)
	if err != nil {
		return nil, err
	}

	var resp CollectStatusResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decoding status response: %w", err)
	}
	resp.Raw = respBody
	return &resp, nil
}

func (g *GatewayService) do(req *http.Request) ([]byte, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &GatewayError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
