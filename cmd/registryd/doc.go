// Package main (cmd/registryd) runs a registry node: the authoritative store
// of author and package records, served over HTTP.
//
// Account state is loaded from the configured storage backends at start and
// every committed transaction is written through to all of them. An optional
// journal receives one entry per committed transaction.
//
// Example usage with a local directory and an IPFS journal:
//
//	registryd --listen-addr=0.0.0.0:8899 \
//	    --storage=file:///var/lib/registry \
//	    --journal=ipfs://127.0.0.1:5001
//
// The local environment enables the airdrop faucet and trusts the local test
// oracle. Set REGISTRY_ENV=production to trust the production oracle.
package main
