package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"cryptid-vote-backend/wallet"

	"github.com/spf13/cobra"
)

func keygenCommand(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Create a local ed25519 wallet keypair file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.WalletKeypair
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			kp, err := wallet.GenerateKeypairFile(path)
			if err != nil {
				return err
			}
			address, _ := kp.Address()
			fmt.Fprintf(a.out, "Wrote %s\nAddress: %s\n", path, address)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing keypair file")
	return cmd
}
