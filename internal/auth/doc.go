// Package auth provides authentication for promptgate's HTTP API.
//
// # Credential Schemes
//
// Two schemes are supported:
//
//   - API tokens: long-lived bearer secrets with the "pgt_" prefix, created
//     through the token service and validated against their stored hash.
//     Carried in the X-API-Key header, the api_key query parameter, or the
//     Authorization bearer value.
//
//   - Session JWTs: short-lived HS256 tokens issued at login, carried in the
//     Authorization bearer value.
//
// The dispatcher middleware classifies each request's credential, validates
// it through the matching path, and attaches a normalized Identity to the
// request context. Handlers retrieve it with FromContext and never branch
// on the scheme.
//
// # Carrier Precedence
//
// X-API-Key header, then api_key query parameter, then the Authorization
// bearer value. A bearer value with the pgt_ prefix goes to API token
// validation; anything else is treated as a session JWT. The shape-based
// bearer classification is kept for compatibility with existing clients;
// new integrations should prefer the explicit X-API-Key header.
package auth
