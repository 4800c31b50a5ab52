// Package store provides persistent storage for promptgate using SQLite.
//
// # Architecture
//
// The store package uses an interface-driven architecture with specialized
// interfaces:
//
//   - UserStore: Account records (read-mostly)
//   - TokenStore: API token lifecycle, including lookup by secret hash
//   - PromptStore: Prompt templates with visibility-aware listing
//   - ArticleStore: Markdown documents, optionally linked to prompts
//
// SQLiteStore implements all interfaces in a single struct, allowing easy
// composition while maintaining clear interface boundaries. Services receive
// the narrow interface they depend on, never the concrete type.
//
// # Data Models
//
//   - User: Account with active/admin flags and a subscription tier
//   - APIToken: Bearer credential metadata; only the SHA-256 hash of the
//     secret is stored, never the plaintext
//   - Prompt: Owned prompt template with a public/private flag and extracted
//     {{placeholder}} variables
//   - Article: Owned markdown document with a public/private flag
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: Requested entity does not exist (also returned for
//     owner-scoped token operations on someone else's token)
//   - ErrDuplicateEmail: Email already registered
//
// All methods accept context.Context for cancellation support.
package store
