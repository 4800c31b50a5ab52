// Package api implements the HTTP surface of promptgate.
//
// Routes fall into three groups:
//
// # Public
//
// POST /api/auth/login exchanges email+password for a session JWT.
// GET /health reports database connectivity.
//
// # Credential-gated
//
// Everything under /api except login passes through the auth middleware,
// which accepts either a session JWT or an API token (see internal/auth).
// GET /api/auth/validate echoes the resolved identity, /api/tokens manages
// API tokens, and /api/prompts plus /api/articles provide resource CRUD.
//
// # Authorization
//
// Reads of private resources are owner-only and answer 404 for everyone
// else. Mutations run the internal/authz predicate and answer 403 with a
// stable reason code on denial.
package api
