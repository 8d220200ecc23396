package testutil

import (
	"studydesk/internal/desk"
	"studydesk/internal/encryption"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() desk.Encryptor {
	return encryption.NewTestEncryptor()
}
