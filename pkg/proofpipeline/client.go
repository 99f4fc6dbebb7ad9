// Copyright 2025 Near Private Payroll
//
// Proof Server Client
// Typed HTTP client for the external proof generation service

package proofpipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Client is the typed HTTP client for the external proof server. The server
// is trusted only for liveness: everything it returns is cryptographically
// checked by the verifier before anything is recorded.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a proof server client. timeout bounds each request
// end-to-end, including proof generation on the server side.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// GenerateRequest is the POST /api/v1/proof/generate request body.
type GenerateRequest struct {
	Family            string          `json:"family"`
	PrivateInputs     json.RawMessage `json:"private_inputs"`
	PublicParameters  json.RawMessage `json:"public_parameters"`
	HistoryCommitment hexutil.Bytes   `json:"history_commitment"`
}

// GenerateResponse is the proof server's reply: the serialized seal
// (selector || proof || journal), the claim digest the recursion circuit
// emitted, and the image id of the guest the server executed.
type GenerateResponse struct {
	Seal        hexutil.Bytes `json:"seal"`
	ClaimDigest hexutil.Bytes `json:"claim_digest"`
	ImageID     hexutil.Bytes `json:"image_id"`
}

// errorEnvelope matches the server's structured error body.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate asks the proof server to execute the guest for family and
// shrink-wrap the result into a Groth16 seal.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("proofpipeline: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/proof/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("proofpipeline: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("proofpipeline: proof server unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<22))
	if err != nil {
		return nil, fmt.Errorf("proofpipeline: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var envelope errorEnvelope
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Code != "" {
			return nil, fmt.Errorf("proofpipeline: proof server %s: %s", envelope.Error.Code, envelope.Error.Message)
		}
		return nil, fmt.Errorf("proofpipeline: proof server returned HTTP %d", resp.StatusCode)
	}

	var out GenerateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("proofpipeline: decode response: %w", err)
	}
	if len(out.ClaimDigest) != 32 {
		return nil, fmt.Errorf("proofpipeline: claim digest must be 32 bytes, got %d", len(out.ClaimDigest))
	}
	if len(out.ImageID) != 32 {
		return nil, fmt.Errorf("proofpipeline: image id must be 32 bytes, got %d", len(out.ImageID))
	}
	return &out, nil
}

// Health probes the proof server's liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("proofpipeline: proof server unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("proofpipeline: proof server health returned HTTP %d", resp.StatusCode)
	}
	return nil
}
