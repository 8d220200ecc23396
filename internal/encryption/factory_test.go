package encryption

import (
	"testing"

	"studydesk/internal/config"
)

func TestNewEncryptorFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.EncryptionConfig
		wantErr bool
	}{
		{name: "age", cfg: config.EncryptionConfig{Type: "age", PublicKeyPath: "k.pub", PrivateKeyPath: "k.key"}},
		{name: "age without key paths", cfg: config.EncryptionConfig{Type: "age"}, wantErr: true},
		{name: "none", cfg: config.EncryptionConfig{Type: "none"}},
		{name: "empty type", cfg: config.EncryptionConfig{}},
		{name: "test", cfg: config.EncryptionConfig{Type: "test"}},
		{name: "unknown", cfg: config.EncryptionConfig{Type: "rot13"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewEncryptorFromConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewEncryptorFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && enc == nil {
				t.Error("NewEncryptorFromConfig() returned nil")
			}
		})
	}
}
