// Package client implements the registry operations of the command-line
// tool: publishing and inspecting packages and registering authors.
//
// Every operation derives the record address locally, sends the signed
// request, then re-reads the affected record and prints it. Failures are
// returned unmodified.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ruteri/package-registry/cryptoutils"
	"github.com/ruteri/package-registry/interfaces"
	"github.com/ruteri/package-registry/registry"
)

var ErrInvalidPackageName = errors.New("package name must have the form @scope/name")

// Oracle registers authors after checking their proof.
type Oracle interface {
	Attest(ctx context.Context, username string, kp *cryptoutils.Keypair, pubkey string) (interfaces.Address, error)
}

type Client struct {
	cfg    registry.Config
	store  interfaces.RegistryStore
	oracle Oracle
	wallet *cryptoutils.Keypair
	out    io.Writer
}

// New creates a client acting as wallet. out receives the printed records.
func New(cfg registry.Config, store interfaces.RegistryStore, oracle Oracle, wallet *cryptoutils.Keypair, out io.Writer) *Client {
	return &Client{
		cfg:    cfg,
		store:  store,
		oracle: oracle,
		wallet: wallet,
		out:    out,
	}
}

// ParsePackageName splits "@scope/name".
func ParsePackageName(full string) (scope, name string, err error) {
	rest, ok := strings.CutPrefix(full, "@")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPackageName, full)
	}
	scope, name, ok = strings.Cut(rest, "/")
	if !ok || scope == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPackageName, full)
	}
	return scope, name, nil
}

// Publish creates the package record @scope/name with the wallet as payer
// and authority.
func (c *Client) Publish(ctx context.Context, scope, name string) (*interfaces.Record, error) {
	address, bump, err := c.cfg.PackageAddress(scope, name)
	if err != nil {
		return nil, err
	}

	tx, err := c.newTransaction(interfaces.Message{
		Instruction: interfaces.InstructionCreatePackage,
		Address:     address,
		Bump:        bump,
		Scope:       scope,
		Name:        name,
		Payer:       c.wallet.PublicKey(),
		Authority:   c.wallet.PublicKey(),
	})
	if err != nil {
		return nil, err
	}

	if _, err := c.store.Submit(ctx, tx); err != nil {
		return nil, err
	}
	return c.show(ctx, address)
}

// Info prints the package record @scope/name.
func (c *Client) Info(ctx context.Context, scope, name string) (*interfaces.Record, error) {
	address, _, err := c.cfg.PackageAddress(scope, name)
	if err != nil {
		return nil, err
	}
	return c.show(ctx, address)
}

// Register asks the oracle to register username with the wallet as payer
// and authority. pubkey optionally names the key proven in the profile.
func (c *Client) Register(ctx context.Context, username, pubkey string) (*interfaces.Record, error) {
	address, err := c.oracle.Attest(ctx, username, c.wallet, pubkey)
	if err != nil {
		return nil, err
	}
	return c.show(ctx, address)
}

// Unregister deletes the author record of username. Only its authority can.
func (c *Client) Unregister(ctx context.Context, username string) error {
	address, _, err := c.cfg.AuthorAddress(username)
	if err != nil {
		return err
	}

	tx, err := c.newTransaction(interfaces.Message{
		Instruction: interfaces.InstructionDeleteAuthor,
		Address:     address,
		Name:        username,
		Authority:   c.wallet.PublicKey(),
	})
	if err != nil {
		return err
	}

	if _, err := c.store.Submit(ctx, tx); err != nil {
		return err
	}

	_, err = c.store.ReadRecord(ctx, address)
	switch {
	case errors.Is(err, interfaces.ErrNotFound):
		fmt.Fprintf(c.out, "Unregistered %s (%s)\n", username, address)
		return nil
	case err != nil:
		return err
	default:
		return fmt.Errorf("author record %s still exists after delete", address)
	}
}

// Author prints the author record of username.
func (c *Client) Author(ctx context.Context, username string) (*interfaces.Record, error) {
	address, _, err := c.cfg.AuthorAddress(username)
	if err != nil {
		return nil, err
	}
	return c.show(ctx, address)
}

// Airdrop requests lamports for the wallet from a local faucet and prints
// the new balance.
func (c *Client) Airdrop(ctx context.Context, lamports uint64) (uint64, error) {
	if _, err := c.store.Airdrop(ctx, c.wallet.PublicKey(), lamports); err != nil {
		return 0, err
	}
	balance, err := c.store.Balance(ctx, c.wallet.PublicKey())
	if err != nil {
		return 0, err
	}
	fmt.Fprintf(c.out, "Balance of %s: %d lamports\n", c.wallet.PublicKey(), balance)
	return balance, nil
}

func (c *Client) newTransaction(msg interfaces.Message) (*interfaces.Transaction, error) {
	nonce, err := interfaces.RandomNonce()
	if err != nil {
		return nil, err
	}
	msg.ProgramID = c.cfg.ProgramID
	msg.Nonce = nonce

	tx := &interfaces.Transaction{Message: msg}
	if err := tx.Sign(c.wallet); err != nil {
		return nil, err
	}
	return tx, nil
}

func (c *Client) show(ctx context.Context, address interfaces.Address) (*interfaces.Record, error) {
	record, err := c.store.ReadRecord(ctx, address)
	if err != nil {
		return nil, err
	}
	PrintRecord(c.out, record)
	return record, nil
}

// PrintRecord writes a human-readable rendering of record.
func PrintRecord(w io.Writer, record *interfaces.Record) {
	fmt.Fprintf(w, "Address:   %s\n", record.Address)
	fmt.Fprintf(w, "Kind:      %s\n", record.Kind)
	switch {
	case record.Author != nil:
		fmt.Fprintf(w, "Name:      %s\n", record.Author.Name)
		fmt.Fprintf(w, "Bump:      %d\n", record.Author.Bump)
	case record.Package != nil:
		fmt.Fprintf(w, "Name:      %s\n", record.Package.FullName())
		fmt.Fprintf(w, "Bump:      %d\n", record.Package.Bump)
	}
	fmt.Fprintf(w, "Authority: %s\n", record.Authority())
	fmt.Fprintf(w, "Lamports:  %d\n", record.Lamports)
}
