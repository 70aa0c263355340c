package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/accountvault/internal/domain/model"
)

// seedFile is the YAML layout accepted by `vaultctl import`.
type seedFile struct {
	Accounts []seedAccount `yaml:"accounts"`
}

type seedAccount struct {
	Platform        string `yaml:"platform"`
	Handle          string `yaml:"handle"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	TwoFactorSecret string `yaml:"two_factor_secret"`
	Notes           string `yaml:"notes"`
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Create accounts from a YAML seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			accounts, err := parseSeed(f)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			env, err := openVault(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			for i, a := range accounts {
				if _, err := env.vault.Create(cmd.Context(), a); err != nil {
					return fmt.Errorf("account %d (%s): %w", i+1, a.Handle, err)
				}
			}

			return printf(cmd.OutOrStdout(), "imported %d accounts\n", len(accounts))
		},
	}
}

// parseSeed decodes a seed file. Unknown keys are rejected so typos in field
// names do not silently drop data.
func parseSeed(r io.Reader) ([]model.Account, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var seed seedFile
	if err := dec.Decode(&seed); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty seed file")
		}
		return nil, err
	}

	accounts := make([]model.Account, 0, len(seed.Accounts))
	for _, s := range seed.Accounts {
		accounts = append(accounts, model.Account{
			Platform:        s.Platform,
			Handle:          s.Handle,
			Username:        s.Username,
			Password:        s.Password,
			TwoFactorSecret: s.TwoFactorSecret,
			Notes:           s.Notes,
		})
	}
	return accounts, nil
}
