package vault

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"

	"studydesk/internal/desk"
)

// FileSystemVault keeps snapshots in a directory tree, typically a mounted
// backup drive:
//
//	<root>/
//	  metadata/
//	    <hostID>/
//	      <name>          (item data)
//	      <name>.version  (decimal version)
type FileSystemVault struct {
	name        string
	root        string
	metadataDir string
}

// NewFileSystemVault returns a vault under root, creating its layout.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	metadataDir := filepath.Join(root, "metadata")
	if err := os.MkdirAll(metadataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating vault layout: %w", err)
	}

	return &FileSystemVault{
		name:        name,
		root:        root,
		metadataDir: metadataDir,
	}, nil
}

func (v *FileSystemVault) itemPath(hostID, name string) string {
	return filepath.Join(v.metadataDir, hostID, name)
}

// PutMetadata stores a named item for a host along with a version marker.
// The version file is written after the data so a reader never sees a
// version whose data is missing.
func (v *FileSystemVault) PutMetadata(hostID string, name string, r io.Reader, size int64, version int64) error {
	destPath := v.itemPath(hostID, name)
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("creating host directory: %w", err)
	}

	if err := writeFile(destPath, r, size); err != nil {
		return err
	}

	data := strconv.FormatInt(version, 10)
	return writeFile(destPath+".version", strings.NewReader(data), int64(len(data)))
}

// GetMetadataVersion returns the version of a named item on a host.
// Returns 0 if no version file exists.
func (v *FileSystemVault) GetMetadataVersion(hostID string, name string) (int64, error) {
	data, err := os.ReadFile(v.itemPath(hostID, name) + ".version")
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading version of %s: %w", name, err)
	}

	version, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad version for %s: %w", name, err)
	}
	return version, nil
}

// GetMetadata retrieves a named item for a host and writes it to w.
func (v *FileSystemVault) GetMetadata(hostID string, name string, w io.Writer) error {
	err := copyFile(v.itemPath(hostID, name), w)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("metadata %q not found for host: %s", name, hostID)
	}
	return err
}

// ValidateSetup fails when the vault root or its metadata directory is gone,
// as happens when a backup drive is unmounted.
func (v *FileSystemVault) ValidateSetup() error {
	for _, dir := range []string{v.root, v.metadataDir} {
		fi, err := os.Stat(dir)
		switch {
		case err != nil:
			return fmt.Errorf("vault %s unavailable: %w", v.name, err)
		case !fi.IsDir():
			return fmt.Errorf("vault %s: %s is not a directory", v.name, dir)
		}
	}
	return nil
}

// writeFile copies r to destPath, replacing it atomically once exactly
// expectedSize bytes have been read.
func writeFile(destPath string, r io.Reader, expectedSize int64) error {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return fmt.Errorf("reading item data: %w", err)
	}
	if n != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, n)
	}
	if err := atomic.WriteFile(destPath, &buf); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(destPath), err)
	}
	return nil
}

func copyFile(srcPath string, w io.Writer) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("copying %s: %w", filepath.Base(srcPath), err)
	}
	return nil
}

var _ desk.Vault = (*FileSystemVault)(nil)
