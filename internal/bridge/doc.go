// Package bridge exposes the promptgate API to MCP clients over stdio.
//
// The bridge holds one configured credential (normally an API token) and
// validates it exactly once at startup; a rejected credential aborts the
// process. Each registered tool maps to one REST endpoint, forwarding the
// credential as a bearer header. Upstream failures and bad arguments come
// back as tool error results so the MCP session itself stays healthy.
package bridge
