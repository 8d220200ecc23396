package encryption

import (
	"fmt"
	"io"

	"studydesk/internal/desk"
)

// PlainEncryptor stores snapshots as-is. It is the default when no
// encryption is configured.
type PlainEncryptor struct{}

var _ desk.Encryptor = PlainEncryptor{}

func (PlainEncryptor) Setup(string) error { return nil }

func (PlainEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (PlainEncryptor) Unlock(string) (desk.DecryptionContext, error) {
	return plainDecryptionContext{}, nil
}

func (PlainEncryptor) IsConfigured() bool { return true }

type plainDecryptionContext struct{}

func (plainDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
