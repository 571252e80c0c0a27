// Package ir provides the constrained value model and canonical JSON used
// wherever bequest needs bytes that are identical across processes and
// replays.
//
// Two things depend on this determinism:
//   - Audit event IDs are content-addressed over the canonical payload, so the
//     same committed operation always yields the same ID.
//   - The allocation descriptor handed to the encryption collaborator is the
//     canonical form of the beneficiary list, so re-encrypting an unchanged
//     allocation produces the same plaintext.
//
// ir imports nothing internal. Floats are forbidden (share math is integer
// basis points), null is forbidden in canonical output, and object keys are
// ordered by UTF-16 code units per RFC 8785.
package ir
