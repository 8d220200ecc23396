package main

import (
	"errors"
	"fmt"
	"os"

	"studydesk/internal/app"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage snapshot encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the key pair used to encrypt snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		passphrase, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return errors.New("passphrases do not match")
		}

		if err := app.SetupKeys(cfg, passphrase); err != nil {
			return fmt.Errorf("setting up keys: %w", err)
		}
		fmt.Printf("Keys written to %s and %s\n", cfg.Encryption.PublicKeyPath, cfg.Encryption.PrivateKeyPath)
		return nil
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage database snapshots",
}

var snapshotRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Replace the local database with the latest vault snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		passphrase := ""
		if cfg.Encryption.Type == "age" {
			if passphrase, err = readPassphrase("Passphrase: "); err != nil {
				return err
			}
		}

		path, err := app.RestoreSnapshot(cfg, passphrase)
		if err != nil {
			return fmt.Errorf("restoring snapshot: %w", err)
		}
		fmt.Printf("Restored database to %s\n", path)
		return nil
	},
}

// readPassphrase prompts on stderr and reads a line without echo.
func readPassphrase(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("a terminal is required to read the passphrase")
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

func init() {
	keysCmd.AddCommand(keysInitCmd)
	snapshotCmd.AddCommand(snapshotRestoreCmd)
}
