package httpserver

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ruteri/package-registry/cryptoutils"
)

// AdminClient talks to the admin API mounted under /admin.
type AdminClient struct {
	baseURL string
	adminID string
	key     *cryptoutils.Keypair
	client  *http.Client
}

// NewAdminClient creates a client for the admin API at baseURL, for example
// "http://127.0.0.1:8080/admin". key may be nil for Status.
func NewAdminClient(baseURL, adminID string, key *cryptoutils.Keypair) *AdminClient {
	return &AdminClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		adminID: adminID,
		key:     key,
		client:  http.DefaultClient,
	}
}

// Status returns the unlock state.
func (c *AdminClient) Status(ctx context.Context) (*AdminStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}

	var status AdminStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}
	return &status, nil
}

// SubmitShare submits this admin's share of the oracle key.
func (c *AdminClient) SubmitShare(ctx context.Context, share []byte) error {
	if c.key == nil {
		return fmt.Errorf("admin key required to submit a share")
	}

	body, err := json.Marshal(map[string]string{"share": hex.EncodeToString(share)})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/share", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := SignAdminRequest(req, c.adminID, c.key, body); err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to submit share: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return responseError(resp)
	}
	return nil
}

func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("admin API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
