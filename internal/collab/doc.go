// Package collab provides reference implementations of the collaborator
// capabilities the lifecycle engine depends on.
//
//   - Registry: a static membership set, or open to everyone.
//   - Sealer: AES-256-GCM encryption of the allocation descriptor. The
//     ciphertext header lists an 8-byte digest per recipient, so membership
//     can be checked without the plaintext.
//   - MemoryVault: vault custody in memory, optionally persisted to a JSON
//     file with temp-file + rename.
//   - HMACOracle: a single oracle whose proofs are HMAC-SHA256 tags over the
//     canonical condition list.
//   - LogDispatcher and RecordingDispatcher: claim notifications.
//
// None of these calls back into the engine or its store.
package collab
