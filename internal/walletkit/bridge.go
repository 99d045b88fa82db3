package walletkit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// BridgeKit talks to an external wallet bridge daemon (Freighter-style) over
// plain JSON request/response. The daemon owns keys and approval prompts;
// this client only forwards requests and relays results.
type BridgeKit struct {
	baseURL string
	http    *http.Client
}

func NewBridgeKit(baseURL string) *BridgeKit {
	return &BridgeKit{baseURL: strings.TrimRight(baseURL, "/"), http: http.DefaultClient}
}

func (k *BridgeKit) Name() string { return "bridge" }

type addressResponse struct {
	Address string `json:"address"`
	Error   string `json:"error,omitempty"`
}

type signRequest struct {
	XDR               string `json:"xdr"`
	NetworkPassphrase string `json:"network_passphrase"`
}

type signResponse struct {
	SignedXDR string `json:"signed_xdr"`
	Error     string `json:"error,omitempty"`
}

func (k *BridgeKit) Address(ctx context.Context) (string, error) {
	var out addressResponse
	if err := k.call(ctx, http.MethodGet, "/v1/address", nil, &out); err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", fmt.Errorf("wallet bridge: %s", out.Error)
	}
	return out.Address, nil
}

func (k *BridgeKit) RequestAuthorization(ctx context.Context) (string, error) {
	var out addressResponse
	if err := k.call(ctx, http.MethodPost, "/v1/authorize", nil, &out); err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", fmt.Errorf("wallet bridge: %s", out.Error)
	}
	return out.Address, nil
}

func (k *BridgeKit) SignTransaction(ctx context.Context, xdrBase64, networkPassphrase string) (string, error) {
	var out signResponse
	req := signRequest{XDR: xdrBase64, NetworkPassphrase: networkPassphrase}
	if err := k.call(ctx, http.MethodPost, "/v1/sign", req, &out); err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", fmt.Errorf("wallet bridge: %s", out.Error)
	}
	return out.SignedXDR, nil
}

func (k *BridgeKit) Disconnect(ctx context.Context) error {
	return k.call(ctx, http.MethodPost, "/v1/disconnect", nil, nil)
}

func (k *BridgeKit) call(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, k.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := k.http.Do(req)
	if err != nil {
		return fmt.Errorf("wallet bridge unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if msg, ok := apiErr["error"].(string); ok && msg != "" {
			return fmt.Errorf("wallet bridge: %s", msg)
		}
		return fmt.Errorf("wallet bridge: http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("wallet bridge: decode response: %w", err)
	}
	return nil
}
