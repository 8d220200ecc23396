package vault

import (
	"bytes"
	"strings"
	"testing"
)

func TestMemoryVault_PutAndGetMetadata(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	tests := []struct {
		name    string
		host    string
		item    string
		content string
		version int64
	}{
		{name: "store and retrieve", host: "host-a", item: "db", content: "snapshot bytes", version: 3},
		{name: "empty item", host: "host-a", item: "empty", content: "", version: 1},
		{name: "large item", host: "host-b", item: "db", content: strings.Repeat("x", 10000), version: 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := vault.PutMetadata(tt.host, tt.item, strings.NewReader(tt.content), int64(len(tt.content)), tt.version)
			if err != nil {
				t.Fatalf("PutMetadata() error = %v", err)
			}

			var buf bytes.Buffer
			if err := vault.GetMetadata(tt.host, tt.item, &buf); err != nil {
				t.Fatalf("GetMetadata() unexpected error: %v", err)
			}
			if got := buf.String(); got != tt.content {
				t.Errorf("GetMetadata() = %q, want %q", got, tt.content)
			}

			version, err := vault.GetMetadataVersion(tt.host, tt.item)
			if err != nil {
				t.Fatalf("GetMetadataVersion() error = %v", err)
			}
			if version != tt.version {
				t.Errorf("GetMetadataVersion() = %d, want %d", version, tt.version)
			}
		})
	}
}

func TestMemoryVault_Overwrite(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	for i, content := range []string{"first", "second"} {
		if err := vault.PutMetadata("host", "db", strings.NewReader(content), int64(len(content)), int64(i+1)); err != nil {
			t.Fatalf("PutMetadata() iteration %d error: %v", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := vault.GetMetadata("host", "db", &buf); err != nil {
		t.Fatalf("GetMetadata() error: %v", err)
	}
	if buf.String() != "second" {
		t.Errorf("GetMetadata() = %q, want %q", buf.String(), "second")
	}
	if v, _ := vault.GetMetadataVersion("host", "db"); v != 2 {
		t.Errorf("GetMetadataVersion() = %d, want 2", v)
	}
}

func TestMemoryVault_NotFound(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	var buf bytes.Buffer
	if err := vault.GetMetadata("host", "db", &buf); err == nil {
		t.Error("GetMetadata() expected error for missing item")
	}

	version, err := vault.GetMetadataVersion("host", "db")
	if err != nil {
		t.Fatalf("GetMetadataVersion() error = %v", err)
	}
	if version != 0 {
		t.Errorf("GetMetadataVersion() = %d, want 0", version)
	}
}

func TestMemoryVault_SizeMismatch(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	err := vault.PutMetadata("host", "db", strings.NewReader("abc"), 10, 1)
	if err == nil {
		t.Fatal("PutMetadata() expected size mismatch error")
	}
	if v, _ := vault.GetMetadataVersion("host", "db"); v != 0 {
		t.Errorf("version recorded despite failed put: %d", v)
	}
}

func TestMemoryVault_HostsAreIsolated(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	if err := vault.PutMetadata("host-a", "db", strings.NewReader("a"), 1, 1); err != nil {
		t.Fatalf("PutMetadata() error: %v", err)
	}

	var buf bytes.Buffer
	if err := vault.GetMetadata("host-b", "db", &buf); err == nil {
		t.Error("GetMetadata() returned another host's item")
	}
}
