package registry

import (
	"errors"
	"fmt"

	"github.com/ruteri/package-registry/interfaces"
	"github.com/ruteri/package-registry/pda"
)

const (
	// ProgramIDBase58 identifies the registry program in every environment.
	ProgramIDBase58 = "Hmo7aZ3yDGYiNsme2sFfhHqrbh6x8QuqXmWeVQtqYwGa"

	// LocalOracleBase58 is the oracle key of local test ledgers. Its secret
	// half is public test material.
	LocalOracleBase58 = "H8JbkMcu35zRTShU3Sy3usNnUUJymR3wHZ6XvWFPv9TY"

	// ProductionOracleBase58 is the oracle key of the production ledger.
	ProductionOracleBase58 = "FzPR9pz93ecai3shwEh9WrSSLsskgjsm1dxV2DtnL1Se"
)

// Environment selects a predefined Config.
type Environment string

const (
	EnvLocal      Environment = "local"
	EnvProduction Environment = "production"
)

// ParseEnvironment validates an environment name; empty means local.
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(s) {
	case "", EnvLocal:
		return EnvLocal, nil
	case EnvProduction:
		return EnvProduction, nil
	default:
		return "", fmt.Errorf("unknown environment %q, expected %q or %q", s, EnvLocal, EnvProduction)
	}
}

// Config is the process-wide registry configuration. It is built once at
// startup and never changes afterwards.
type Config struct {
	ProgramID    interfaces.PublicKey
	OraclePubkey interfaces.PublicKey

	// VersionTag is prepended to every seed list when non-empty.
	VersionTag string

	// FaucetEnabled allows Airdrop. Only local ledgers enable it.
	FaucetEnabled bool

	// ReplayWindow is how many committed transaction signatures are kept to
	// reject duplicates. Zero means DefaultReplayWindow.
	ReplayWindow int
}

// ConfigFor returns the predefined configuration of env.
func ConfigFor(env Environment) (Config, error) {
	switch env {
	case EnvLocal:
		return LocalTestConfig()
	case EnvProduction:
		return ProductionConfig()
	default:
		return Config{}, fmt.Errorf("unknown environment %q", env)
	}
}

// LocalTestConfig trusts the local test oracle and enables the faucet.
func LocalTestConfig() (Config, error) {
	return newConfig(LocalOracleBase58, true)
}

// ProductionConfig trusts the production oracle.
func ProductionConfig() (Config, error) {
	return newConfig(ProductionOracleBase58, false)
}

func newConfig(oracle string, faucet bool) (Config, error) {
	programID, err := interfaces.NewPublicKeyFromBase58(ProgramIDBase58)
	if err != nil {
		return Config{}, fmt.Errorf("invalid program ID: %w", err)
	}
	oracleKey, err := interfaces.NewPublicKeyFromBase58(oracle)
	if err != nil {
		return Config{}, fmt.Errorf("invalid oracle key: %w", err)
	}
	return Config{
		ProgramID:     programID,
		OraclePubkey:  oracleKey,
		FaucetEnabled: faucet,
	}, nil
}

// Validate checks that the configuration can derive addresses.
func (c Config) Validate() error {
	if c.ProgramID.IsZero() {
		return errors.New("program ID is not set")
	}
	if c.OraclePubkey.IsZero() {
		return errors.New("oracle public key is not set")
	}
	if c.ReplayWindow < 0 {
		return errors.New("replay window must not be negative")
	}
	if len(c.VersionTag) > pda.MaxSeedLength {
		return fmt.Errorf("version tag exceeds %d bytes", pda.MaxSeedLength)
	}
	return nil
}

// AuthorAddress derives the canonical address and bump of the author name.
func (c Config) AuthorAddress(name string) (interfaces.Address, uint8, error) {
	return pda.AuthorAddress(c.VersionTag, name, c.ProgramID)
}

// PackageAddress derives the canonical address and bump of @scope/name.
func (c Config) PackageAddress(scope, name string) (interfaces.Address, uint8, error) {
	return pda.PackageAddress(c.VersionTag, scope, name, c.ProgramID)
}
