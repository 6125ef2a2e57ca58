package adminauth

import (
	"strings"

	"github.com/hallgate/adminauth/internal"
)

// newBackupCodes generates count plaintext codes and their storage
// hashes. Plaintext is returned to the caller exactly once and never
// persisted.
func newBackupCodes(userID string, count, length int) ([]string, [][32]byte, error) {
	codes := make([]string, 0, count)
	hashes := make([][32]byte, 0, count)
	for i := 0; i < count; i++ {
		code, err := internal.NewBackupCode(length)
		if err != nil {
			return nil, nil, err
		}
		codes = append(codes, code)
		hashes = append(hashes, internal.BackupCodeHash(userID, code))
	}
	return codes, hashes, nil
}

// canonicalBackupCode normalizes user input: whitespace and separators
// stripped, lowercased.
func canonicalBackupCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	code = strings.ReplaceAll(code, "-", "")
	return strings.ReplaceAll(code, " ", "")
}
