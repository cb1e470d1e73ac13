// Package main (cmd/oracle) runs the GitHub oracle.
//
// The oracle checks that a GitHub user's bio contains "Solana Wallet: <key>"
// and, if so, co-signs a CreateAuthor transaction and submits it to the
// registry node at --node-url.
//
// The oracle key comes from the first configured source: KEYPAIR (a JSON
// byte array), --keystore with KEYSTORE_PASSPHRASE, or ORACLE_KEY_SHARES.
// When none is set and --admin-keys-file is given, the server starts with
// only the admin API and waits until --unlock-threshold admins have
// submitted their shares:
//
//	oracle --admin-keys-file=./admins.json --unlock-threshold=2 \
//	    --node-url=http://127.0.0.1:8899
package main
