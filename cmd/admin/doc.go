// Package main (cmd/admin) manages Shamir shares of the oracle key.
//
// Commands:
//
//	status              - Query the unlock state of a locked oracle
//	generate-admin      - Generate an admin keypair
//	generate-admin-keys - Write the admin keys file read by the oracle
//	split-oracle-key    - Split the oracle keypair into one share per admin
//	submit-share        - Submit a share to a locked oracle
//
// Example workflow:
//
//  1. Each admin generates a keypair and publishes the printed public key:
//     admin generate-admin --admin-keypair-file=alice.json
//
//  2. The operator writes the admin keys file:
//     admin generate-admin-keys alice=<pubkey> bob=<pubkey> carol=<pubkey>
//
//  3. The operator splits the oracle key with a 2-of-3 threshold and hands
//     each admin their share file:
//     admin split-oracle-key --oracle-keypair-file=oracle.json --threshold=2
//
//  4. The oracle starts with --admin-keys-file and no key. Admins submit
//     shares until the threshold is reached:
//     admin submit-share --admin-id=alice --admin-keypair-file=alice.json \
//     --share-file=alice.share.hex
//
// Submissions are signed with the admin key over the request path and body.
package main
