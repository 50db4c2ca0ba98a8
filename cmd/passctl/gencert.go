package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/vbncursed/vkr/pass-service/internal/crypto"
)

func newGenCertCmd() *cobra.Command {
	var (
		passTypeID string
		dir        string
		passphrase string
		validFor   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "gen-cert",
		Short: "Write a self-signed development credential pair for a pass type",
		RunE: func(cmd *cobra.Command, _ []string) error {
			certPEM, keyPEM, err := crypto.GenerateSelfSigned(passTypeID, passphrase, validFor)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			certPath := filepath.Join(dir, passTypeID+crypto.CertExt)
			keyPath := filepath.Join(dir, passTypeID+crypto.KeyExt)
			if err := os.WriteFile(certPath, certPEM, 0o644); err != nil {
				return err
			}
			if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s and %s\n", certPath, keyPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&passTypeID, "pass-type-id", "", "pass type identifier")
	cmd.Flags().StringVar(&dir, "dir", "certs", "credentials directory")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "encrypt the private key with this passphrase")
	cmd.Flags().DurationVar(&validFor, "valid-for", 365*24*time.Hour, "certificate lifetime")
	_ = cmd.MarkFlagRequired("pass-type-id")
	return cmd
}
