// Package password provides Argon2id hashing and constant-time
// verification of PHC-encoded password hashes.
package password
