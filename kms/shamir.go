package kms

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/vault/shamir"
	"github.com/ruteri/package-registry/cryptoutils"
)

var (
	ErrInsufficientShares = errors.New("not enough shares to recover the key")
	ErrDuplicateShare     = errors.New("share already submitted")
)

// SplitKeypair splits the 64-byte keypair into n shares, any threshold of
// which recover it.
func SplitKeypair(kp *cryptoutils.Keypair, n, threshold int) ([][]byte, error) {
	if threshold < 2 {
		return nil, errors.New("threshold must be at least 2")
	}
	if n < threshold {
		return nil, errors.New("total shares must be at least equal to threshold")
	}

	secret := kp.Bytes()
	defer wipe(secret)

	shares, err := shamir.Split(secret, n, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to split keypair: %w", err)
	}
	return shares, nil
}

// CombineKeypair recovers a keypair from shares. Too few shares produce
// bytes that fail the keypair consistency check.
func CombineKeypair(shares [][]byte) (*cryptoutils.Keypair, error) {
	if len(shares) < 2 {
		return nil, ErrInsufficientShares
	}

	secret, err := shamir.Combine(shares)
	if err != nil {
		return nil, fmt.Errorf("failed to combine shares: %w", err)
	}
	defer wipe(secret)

	kp, err := cryptoutils.NewKeypairFromBytes(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInsufficientShares, err)
	}
	return kp, nil
}

// EncodeShares renders shares as a comma-separated hex list, the format of
// ORACLE_KEY_SHARES.
func EncodeShares(shares [][]byte) string {
	encoded := make([]string, len(shares))
	for i, share := range shares {
		encoded[i] = hex.EncodeToString(share)
	}
	return strings.Join(encoded, ",")
}

// DecodeShares parses a comma-separated hex list of shares.
func DecodeShares(s string) ([][]byte, error) {
	var shares [][]byte
	for i, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		share, err := hex.DecodeString(part)
		if err != nil {
			return nil, fmt.Errorf("invalid share %d: %w", i, err)
		}
		shares = append(shares, share)
	}
	return shares, nil
}

// ShareCollector gathers shares submitted one at a time, for example by
// operators unlocking the oracle key, and recovers the keypair once the
// threshold is reached.
type ShareCollector struct {
	mu        sync.Mutex
	threshold int
	shares    map[string][]byte
	keypair   *cryptoutils.Keypair
}

func NewShareCollector(threshold int) (*ShareCollector, error) {
	if threshold < 2 {
		return nil, errors.New("threshold must be at least 2")
	}
	return &ShareCollector{
		threshold: threshold,
		shares:    make(map[string][]byte),
	}, nil
}

// Submit adds a share. It returns true once the keypair has been recovered.
func (c *ShareCollector) Submit(share []byte) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.keypair != nil {
		return true, nil
	}

	key := hex.EncodeToString(share)
	if _, ok := c.shares[key]; ok {
		return false, ErrDuplicateShare
	}
	c.shares[key] = append([]byte(nil), share...)

	if len(c.shares) < c.threshold {
		return false, nil
	}

	collected := make([][]byte, 0, len(c.shares))
	for _, s := range c.shares {
		collected = append(collected, s)
	}

	kp, err := CombineKeypair(collected)
	if err != nil {
		return false, err
	}

	c.keypair = kp
	for k, s := range c.shares {
		wipe(s)
		delete(c.shares, k)
	}
	return true, nil
}

// Keypair returns the recovered keypair, or nil before the threshold.
func (c *ShareCollector) Keypair() *cryptoutils.Keypair {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keypair
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
