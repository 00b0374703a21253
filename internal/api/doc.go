// Package api hosts the HTTP server, middleware, and REST handlers used by
// crawler workers and operators. Notable routes:
//   - GET /healthz / readyz for Kubernetes liveness and readiness checks.
//   - GET /metrics for Prometheus scraping.
//   - GET /api/scraper/run hands out the current task; PUT
//     /api/scraper/progress/{progress_id} records a worker's report.
//   - GET /api/scraper/progress/{progress_id} returns one record.
//   - GET /api/scraper/progress and /api/scraper/status for operators.
//   - /api/niches, /api/queries, and /api/queries/{query_id}/sub-queries seed
//     the taxonomy the tasks are enumerated from.
package api
