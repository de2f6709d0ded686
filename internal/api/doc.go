// Package api serves the dubline HTTP API and defines its wire types.
//
// # Endpoints
//
// POST /api/runs starts a run in the background and answers 202 with the run
// id. GET /api/runs lists recent runs, GET /api/runs/{id} describes one run
// with its per-language outcomes, and GET /metrics exposes Prometheus
// instruments. When api.token is set every /api route requires
// "Authorization: Bearer <token>".
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Ledger statuses are exposed as lowercase
// strings and timestamps use RFC3339 with milliseconds. Each request gets a
// correlation id that is stamped on the context, echoed in the
// X-Request-ID header, and carried into the logs of the run it starts.
package api
