package storehandler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ruteri/package-registry/api"
	"github.com/ruteri/package-registry/interfaces"
)

// RemoteStore implements interfaces.RegistryStore against a registry node.
// Store errors are decoded into *interfaces.StoreError; network failures
// wrap interfaces.ErrTransport.
type RemoteStore struct {
	BaseURL string
	Client  *http.Client
}

func NewRemoteStore(baseURL string) *RemoteStore {
	return &RemoteStore{BaseURL: strings.TrimRight(baseURL, "/"), Client: http.DefaultClient}
}

func (s *RemoteStore) Submit(ctx context.Context, tx *interfaces.Transaction) (interfaces.TransactionReceipt, error) {
	var receipt interfaces.TransactionReceipt
	err := s.do(ctx, http.MethodPost, "/api/v1/transactions", tx, &receipt)
	return receipt, err
}

func (s *RemoteStore) ReadRecord(ctx context.Context, address interfaces.Address) (*interfaces.Record, error) {
	var resp api.RecordResponse
	if err := s.do(ctx, http.MethodGet, "/api/v1/accounts/"+address.String(), nil, &resp); err != nil {
		return nil, err
	}
	record, err := resp.Record()
	if err != nil {
		return nil, fmt.Errorf("could not parse record response: %w", err)
	}
	return record, nil
}

func (s *RemoteStore) Balance(ctx context.Context, key interfaces.PublicKey) (uint64, error) {
	var resp api.BalanceResponse
	if err := s.do(ctx, http.MethodGet, "/api/v1/balances/"+key.String(), nil, &resp); err != nil {
		return 0, err
	}
	return resp.Lamports, nil
}

func (s *RemoteStore) Airdrop(ctx context.Context, key interfaces.PublicKey, lamports uint64) (interfaces.TransactionReceipt, error) {
	var receipt interfaces.TransactionReceipt
	err := s.do(ctx, http.MethodPost, "/api/v1/airdrop", api.AirdropRequest{Pubkey: key, Lamports: lamports}, &receipt)
	return receipt, err
}

func (s *RemoteStore) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("could not encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("could not initialize request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: could not request registry node: %w", interfaces.ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: could not read registry node response: %w", interfaces.ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		var storeErr interfaces.StoreError
		if err := json.Unmarshal(respBody, &storeErr); err != nil || storeErr.Code == "" {
			return fmt.Errorf("%w: registry node returned %d: %s", interfaces.ErrTransport, resp.StatusCode, strings.TrimSpace(string(respBody)))
		}
		return &storeErr
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("could not parse registry node response: %w", err)
	}
	return nil
}
