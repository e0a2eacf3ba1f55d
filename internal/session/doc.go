// Package session provides the session-scoped key/value storage that backs
// local drafts.
//
// # Overview
//
// Storage is the collaborator the Draft Store writes to. It mirrors a browser
// session store: values live only for the session, reads of absent keys are
// not errors, and removing an absent key is a no-op.
//
// Implementations
//
//   - Memory: process-local map, the default for tests and one-shot runs.
//   - SQLite: rows scoped to a session id in a modernc.org/sqlite database,
//     migrated with embedded goose migrations. Close ends the session.
//   - Sealed: wraps another Storage and encrypts values with AES-GCM.
//
// Typical Usage
//
//	st, err := session.OpenSQLite(ctx, "file:session.db", sessionID)
//	if err != nil { ... }
//	defer st.Close(ctx)
//	_ = st.SetItem(ctx, "draft:article:u1:new", payload)
package session
