package oraclehandler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ruteri/package-registry/api"
	"github.com/ruteri/package-registry/cryptoutils"
	"github.com/ruteri/package-registry/interfaces"
)

// ResponseError is a non-200 oracle response. Message is the response body,
// unmodified.
type ResponseError struct {
	StatusCode int
	Message    string
}

func (e *ResponseError) Error() string {
	return e.Message
}

// Client calls a remote oracle.
type Client struct {
	URL    string
	Client *http.Client
}

func NewClient(url string) *Client {
	return &Client{URL: url, Client: http.DefaultClient}
}

// Attest asks the oracle to register username with kp as payer and
// authority. pubkey optionally names a different proven key.
func (c *Client) Attest(ctx context.Context, username string, kp *cryptoutils.Keypair, pubkey string) (interfaces.Address, error) {
	req := api.NewAttestRequest(username, kp, pubkey)
	encoded, err := json.Marshal(req)
	clear(req.Keypair)
	if err != nil {
		return interfaces.Address{}, fmt.Errorf("could not encode attest request: %w", err)
	}
	defer clear(encoded)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(encoded))
	if err != nil {
		return interfaces.Address{}, fmt.Errorf("could not initialize request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return interfaces.Address{}, fmt.Errorf("%w: could not request oracle: %w", interfaces.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return interfaces.Address{}, fmt.Errorf("%w: could not read oracle response: %w", interfaces.ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		return interfaces.Address{}, &ResponseError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	address, err := interfaces.NewPublicKeyFromBase58(strings.TrimSpace(string(body)))
	if err != nil {
		return interfaces.Address{}, fmt.Errorf("could not parse oracle response: %w", err)
	}
	return address, nil
}
