// Package internal holds random-material generation shared by the engine:
// session tokens, TOTP secrets, and backup codes.
package internal
