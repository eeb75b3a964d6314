// Package http exposes the reservation and access use cases as a JSON API.
//
// The router exposes the following endpoints:
//   - GET /api/usages: future reservations, or those of one owner with
//     ?owner=<email>.
//   - POST /api/usages: creates a reservation. Body: `createUsageRequest`.
//   - GET, PATCH, DELETE /api/usages/{id}: reads, changes the period or notes
//     of, or cancels one reservation. Mutations are limited to the owner.
//   - POST /api/access-grants: links a Slack user to an email and shares
//     every resource calendar with it. Body: `accessGrantRequest`.
//   - GET /healthz and GET /metrics.
//
// Every /api request names its acting user in the X-User-Email header.
// Errors are JSON `errorResponse` bodies: 400 for malformed requests, 403
// for other owners' reservations, 404 for unknown ids, 409 for double
// bookings and 422 for validation failures.
package http
