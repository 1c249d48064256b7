// Package client calls the SM2 HTTP service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/glinharesb/sm2-server/internal/audit"
	"github.com/glinharesb/sm2-server/internal/signer"
)

// MaxResponseLength caps the size of a response body the client will read.
const MaxResponseLength = 1 << 20

// StatusError is returned when the server answers with a non-success status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// Client talks to an SM2 service at BaseURL.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	authHeader string
}

// New returns a Client for baseURL. A non-empty token is sent as a bearer
// token on every request.
func New(baseURL, token string) *Client {
	c := &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
	}
	if token != "" {
		c.authHeader = "Bearer " + strings.TrimSpace(token)
	}
	return c
}

// Ping checks that the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	body, err := c.do(ctx, http.MethodGet, "/ping", nil, http.StatusOK)
	if err != nil {
		return err
	}
	if string(body) != "pong" {
		return fmt.Errorf("unexpected ping reply %q", body)
	}
	return nil
}

// Keypair asks the server for a fresh key pair.
func (c *Client) Keypair(ctx context.Context) (*signer.Keypair, error) {
	var kp signer.Keypair
	if err := c.call(ctx, http.MethodPost, "/sm2/keypair", nil, http.StatusCreated, &kp); err != nil {
		return nil, err
	}
	return &kp, nil
}

// SignRaw signs the SM3 digest of raw.
func (c *Client) SignRaw(ctx context.Context, privateKeyHex, rawHex string) (string, error) {
	return c.sign(ctx, "/sm2/raw/signature", map[string]string{"privateKey": privateKeyHex, "raw": rawHex})
}

// SignDigest signs a pre-computed digest.
func (c *Client) SignDigest(ctx context.Context, privateKeyHex, digestHex string) (string, error) {
	return c.sign(ctx, "/sm2/digest/signature", map[string]string{"privateKey": privateKeyHex, "digest": digestHex})
}

// VerifyRaw verifies a signature over the SM3 digest of raw.
func (c *Client) VerifyRaw(ctx context.Context, publicKeyHex, signatureHex, rawHex string) (bool, error) {
	return c.verify(ctx, "/sm2/raw/verification", map[string]string{"publicKey": publicKeyHex, "signature": signatureHex, "raw": rawHex})
}

// VerifyDigest verifies a signature over a pre-computed digest.
func (c *Client) VerifyDigest(ctx context.Context, publicKeyHex, signatureHex, digestHex string) (bool, error) {
	return c.verify(ctx, "/sm2/digest/verification", map[string]string{"publicKey": publicKeyHex, "signature": signatureHex, "digest": digestHex})
}

// Audit queries the server's audit trail. Only Operation, Subject and Limit
// are sent.
func (c *Client) Audit(ctx context.Context, f audit.Filter) ([]audit.Entry, error) {
	q := url.Values{}
	if f.Operation != "" {
		q.Set("operation", f.Operation)
	}
	if f.Subject != "" {
		q.Set("subject", f.Subject)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	path := "/audit"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var entries []audit.Entry
	if err := c.call(ctx, http.MethodGet, path, nil, http.StatusOK, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) sign(ctx context.Context, path string, req map[string]string) (string, error) {
	var resp struct {
		Signature string `json:"signature"`
	}
	if err := c.call(ctx, http.MethodPost, path, req, http.StatusCreated, &resp); err != nil {
		return "", err
	}
	return resp.Signature, nil
}

func (c *Client) verify(ctx context.Context, path string, req map[string]string) (bool, error) {
	var resp struct {
		Result bool `json:"result"`
	}
	if err := c.call(ctx, http.MethodPost, path, req, http.StatusOK, &resp); err != nil {
		return false, err
	}
	return resp.Result, nil
}

func (c *Client) call(ctx context.Context, method, path string, req any, want int, out any) error {
	body, err := c.do(ctx, method, path, req, want)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, req any, want int) ([]byte, error) {
	var payload io.Reader
	if req != nil {
		data, err := json.Marshal(req)
		if err != nil {
			return nil, fmt.Errorf("encode request to %s: %w", path, err)
		}
		payload = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, payload)
	if err != nil {
		return nil, fmt.Errorf("error constructing request to %s: %w", path, err)
	}
	if req != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.authHeader != "" {
		request.Header.Set("Authorization", c.authHeader)
	}

	response, err := c.HTTPClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("error sending request to %s: %w", path, err)
	}
	defer response.Body.Close()

	reader := io.LimitedReader{R: response.Body, N: MaxResponseLength}
	body, err := io.ReadAll(&reader)
	if err != nil {
		return nil, fmt.Errorf("error reading response from %s: %w", path, err)
	}
	if response.StatusCode != want {
		return nil, &StatusError{Code: response.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	return body, nil
}
