package api

import (
	"fmt"

	"github.com/ruteri/package-registry/cryptoutils"
	"github.com/ruteri/package-registry/interfaces"
)

// AttestRequest is the oracle request body. Keypair is the 64-byte payer
// keypair as a JSON array of byte values.
type AttestRequest struct {
	Username string `json:"username"`
	Keypair  []int  `json:"keypair"`
	Pubkey   string `json:"pubkey,omitempty"`
}

// KeypairBytes converts the keypair array, failing on out-of-range values.
func (r *AttestRequest) KeypairBytes() ([]byte, error) {
	if len(r.Keypair) == 0 {
		return nil, nil
	}
	return cryptoutils.BytesFromInts(r.Keypair)
}

// NewAttestRequest encodes kp into an oracle request.
func NewAttestRequest(username string, kp *cryptoutils.Keypair, pubkey string) *AttestRequest {
	raw := kp.Bytes()
	values := make([]int, len(raw))
	for i, b := range raw {
		values[i] = int(b)
	}
	clear(raw)
	return &AttestRequest{Username: username, Keypair: values, Pubkey: pubkey}
}

// AirdropRequest asks the faucet to credit a wallet.
type AirdropRequest struct {
	Pubkey   interfaces.PublicKey `json:"pubkey"`
	Lamports uint64               `json:"lamports"`
}

// BalanceResponse reports the lamports held at a key.
type BalanceResponse struct {
	Pubkey   interfaces.PublicKey `json:"pubkey"`
	Lamports uint64               `json:"lamports"`
}

// RecordResponse is the wire form of a live record.
type RecordResponse struct {
	Address   interfaces.Address   `json:"address"`
	Kind      string               `json:"kind"`
	Bump      uint8                `json:"bump"`
	Scope     string               `json:"scope,omitempty"`
	Name      string               `json:"name"`
	Authority interfaces.PublicKey `json:"authority"`
	Lamports  uint64               `json:"lamports"`
}

func NewRecordResponse(r *interfaces.Record) *RecordResponse {
	resp := &RecordResponse{
		Address:   r.Address,
		Kind:      r.Kind.String(),
		Authority: r.Authority(),
		Lamports:  r.Lamports,
	}
	switch {
	case r.Author != nil:
		resp.Bump = r.Author.Bump
		resp.Name = r.Author.Name.String()
	case r.Package != nil:
		resp.Bump = r.Package.Bump
		resp.Scope = r.Package.Scope.String()
		resp.Name = r.Package.Name.String()
	}
	return resp
}

// Record converts the response back into a record projection.
func (r *RecordResponse) Record() (*interfaces.Record, error) {
	name, err := interfaces.NewBoundedString(r.Name)
	if err != nil {
		return nil, err
	}

	record := &interfaces.Record{Address: r.Address, Lamports: r.Lamports}
	switch r.Kind {
	case interfaces.KindAuthor.String():
		record.Kind = interfaces.KindAuthor
		record.Author = &interfaces.AuthorRecord{Bump: r.Bump, Name: name, Authority: r.Authority}
	case interfaces.KindPackage.String():
		scope, err := interfaces.NewBoundedString(r.Scope)
		if err != nil {
			return nil, err
		}
		record.Kind = interfaces.KindPackage
		record.Package = &interfaces.PackageRecord{Bump: r.Bump, Scope: scope, Name: name, Authority: r.Authority}
	default:
		return nil, fmt.Errorf("unknown record kind %q", r.Kind)
	}
	return record, nil
}
