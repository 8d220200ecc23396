package desk

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// SnapshotName is the vault item name under which database snapshots are kept.
const SnapshotName = "db"

// SnapshotService copies the database to a vault and back.
type SnapshotService struct {
	db        Database
	vault     Vault
	encryptor Encryptor
	hostID    string
	logger    Logger
}

// NewSnapshotService creates a SnapshotService.
func NewSnapshotService(db Database, vault Vault, encryptor Encryptor, hostID string, logger Logger) *SnapshotService {
	return &SnapshotService{db: db, vault: vault, encryptor: encryptor, hostID: hostID, logger: logger}
}

// CheckVersion refuses to continue when the vault holds a snapshot newer
// than the local operation log.
func (s *SnapshotService) CheckVersion() error {
	remote, err := s.vault.GetMetadataVersion(s.hostID, SnapshotName)
	if err != nil {
		return fmt.Errorf("checking remote snapshot version: %w", err)
	}
	local, err := s.db.MaxOperationID()
	if err != nil {
		return fmt.Errorf("checking local snapshot version: %w", err)
	}
	if remote > local {
		return fmt.Errorf("local database is behind remote (local=%d, remote=%d): restore the snapshot first", local, remote)
	}
	return nil
}

// Push snapshots the database, encrypts it and uploads it with the given version.
func (s *SnapshotService) Push(version int64) error {
	tmp, err := os.CreateTemp("", "studydesk-snapshot-*.db")
	if err != nil {
		return fmt.Errorf("creating temp file for snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	// VACUUM INTO refuses to overwrite an existing file.
	os.Remove(tmpPath)
	defer os.Remove(tmpPath)

	if err := s.db.BackupTo(tmpPath); err != nil {
		return fmt.Errorf("snapshotting database: %w", err)
	}

	plain, err := os.Open(tmpPath)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer plain.Close()

	var sealed bytes.Buffer
	if err := s.encryptor.Encrypt(plain, &sealed); err != nil {
		return fmt.Errorf("encrypting snapshot: %w", err)
	}

	size := int64(sealed.Len())
	if err := s.vault.PutMetadata(s.hostID, SnapshotName, &sealed, size, version); err != nil {
		return fmt.Errorf("uploading snapshot: %w", err)
	}

	s.logger.Info("snapshot uploaded", "version", version, "size", size)
	return nil
}

// Pull downloads the latest snapshot and writes the decrypted database to w.
func (s *SnapshotService) Pull(dec DecryptionContext, w io.Writer) error {
	var sealed bytes.Buffer
	if err := s.vault.GetMetadata(s.hostID, SnapshotName, &sealed); err != nil {
		return fmt.Errorf("downloading snapshot: %w", err)
	}
	if err := dec.Decrypt(&sealed, w); err != nil {
		return fmt.Errorf("decrypting snapshot: %w", err)
	}
	return nil
}
