// Package http provides HTTP handlers and middleware for the conflict API.
//
// The router exposes the following endpoints:
//   - GET /conflicts: the conflict table of the snapshot together with the
//     current state (`unscanned`, `clean` or `conflicted`).
//   - POST /conflicts/scan, POST /conflicts/resolve: a full rescan and a single
//     resolution pass. The resolve response lists what happened per entry.
//   - POST /snapshot/apply, POST /snapshot/reset: commit the snapshot to the
//     live schedule, or discard snapshot edits.
//   - POST /profiles/refresh: recompute working hours from the snapshot.
//   - GET /rules, POST /rules, PUT /rules/{id}, DELETE /rules/{id},
//     POST /rules/{id}/duplicate, POST /rules/{id}/toggle: rule management
//     exchanging the `ruleDTO` payload defined in rule_handler.go.
//   - GET /profiles, POST /profiles, PUT /profiles/{name}, DELETE /profiles/{name}:
//     profile management exchanging `profileDTO` from profile_handler.go.
//   - GET /calendars (live) and GET /calendars?view=snapshot.
//   - POST /calendars/{name}/entries, DELETE /calendars/{name}/entries/{id}:
//     live entry edits, mirrored into the snapshot.
//   - POST /save: persist rules, profiles and the live schedule.
//   - GET /metrics: Prometheus exposition when a metrics handler is configured.
//   - GET /health: liveness, never behind authentication.
//
// Every endpoint except /health sits behind the optional API key middleware.
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
