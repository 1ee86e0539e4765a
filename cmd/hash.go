package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/microgrid/auth"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print the bcrypt hash to store in api.auth.users",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := auth.HashPassword(args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), h)
		return err
	},
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)
}
