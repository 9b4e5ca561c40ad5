// Package password implements the hash-and-verify contract used by user
// directories, backed by Argon2id.
//
// Hashes are PHC strings; verification derives the key with the parameters
// stored in the hash and compares with crypto/subtle. Password policy beyond
// the byte-length bounds belongs to the identity package.
package password
