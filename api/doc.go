/*
Package api holds the wire types shared by the HTTP handlers and clients of
the package registry.

The subpackages pair a chi handler with its client:

  - oraclehandler serves the attestation oracle (POST / and /api/v1/attest)
    and provides the client the CLI uses to register authors.
  - storehandler exposes a RegistryStore over HTTP and provides RemoteStore,
    a RegistryStore implementation backed by a remote registry node.

Errors from the store travel as interfaces.StoreError JSON so that
errors.Is keeps matching the sentinel on the client side.
*/
package api
