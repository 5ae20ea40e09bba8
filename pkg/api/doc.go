/*
Package api exposes the monitor daemon's HTTP surface: liveness,
readiness, and Prometheus metrics.

Endpoints:

	GET /healthz   liveness; 200 while the process is alive
	GET /readyz    readiness; verifies the store is readable and the
	               control plane answers a ping
	GET /metrics   Prometheus exposition

This is operational plumbing only. The operator-facing API that drives
fleet operations is a separate layer outside this repository; these
endpoints exist for process supervisors and scrapers.
*/
package api
