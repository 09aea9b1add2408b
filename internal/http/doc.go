// Package http provides HTTP handlers and middleware for the event form service.
//
// The router exposes the following endpoints:
//   - GET /?event={id}: public form view. Body: {"state":"open","event",...,"intents"}
//     or {"state":"closed","message":"Registration Closed"}. Without the event
//     parameter the request falls through to the administrator summary.
//   - POST /?event={id}: submits a response. Body: {"fullName","email","phone",
//     "title","company","intents"}. Closed or unknown events answer 410 with the
//     closed view; invalid input answers 422 with per-field errors.
//   - GET /events, POST /events/upload (multipart field "file"),
//     POST /events/{id}/cycle, POST /events/bulk-status {"ids","status"},
//     POST /events/delete {"ids","confirm"}, GET /events/{id}/qr.png: event
//     management. Requires the administrator bearer token.
//   - GET /responses?event=, GET /responses/export?event=&quote=: response
//     listing and CSV download. Export answers 204 when no response exists.
//   - GET /keys, POST /keys {"label"}, DELETE /keys/{id}?confirm=true: API key
//     management. The full secret appears only in the POST response.
//   - GET /api/events, GET /api/responses?event=: integration feed. Requires an
//     Authorization header shaped like "Bearer sk_live_...". POST /api/keys is
//     an administrator alias of POST /keys.
//
// Request/response DTOs live alongside their respective handlers and use the
// camelCase field names of the stored records.
package http
