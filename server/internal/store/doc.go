// Package store persists generated QR records in a line-oriented flat file.
//
// Each line holds one record:
//
//	<key> / <url> / <artifact>
//
// The key is unique within the file. Upsert removes any previous line for the
// key and appends the new one, so the most recently written record is always
// last. The whole file is rewritten on every upsert via a temp file and a
// rename, so readers never observe a half-written store.
//
// Writers are serialized by an in-process mutex and an advisory lock on the
// sidecar file "<path>.lock", which also covers other processes (for example
// the qrledger CLI) sharing the same store file.
//
// Malformed lines are handled according to Policy:
//   - PolicyFail (default): Load and Upsert return a *ParseError.
//   - PolicySkip: Load logs and omits them; Upsert keeps them verbatim.
package store
