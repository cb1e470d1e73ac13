/*
Package httpserver runs the HTTP servers of the registry node and the oracle.

A Server mounts the routes of one or more RouteRegistrar handlers next to
the operational endpoints every deployment needs:

  - GET /livez - Liveness check
  - GET /readyz - Readiness check
  - GET /drain - Gracefully mark server as not ready
  - GET /undrain - Mark server as ready
  - /debug/pprof - Profiling, when EnablePprof is set

Prometheus metrics are served by a separate metrics server on MetricsAddr.

# Oracle Key Unlock

An oracle whose key is held as Shamir shares starts without service routes
and with an AdminHandler mounted under /admin:

  - GET /admin/status - Unlock state and number of submitted shares
  - POST /admin/share - Submit one share, signed by a whitelisted admin

Once the threshold is reached and the recovered key matches the configured
oracle public key, WaitForUnlock returns the keypair and the caller installs
the oracle routes with SetRoutes. AdminClient is the client side of both
endpoints and is what cmd/admin uses.

# Example Usage

	server, err := httpserver.New(cfg, storehandler.NewHandler(store, logger))
	if err != nil {
		return err
	}
	server.RunInBackground()
	defer server.Shutdown()
*/
package httpserver
