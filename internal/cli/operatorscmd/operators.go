// Package operatorscmd implements `playhub operators`.
package operatorscmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuihairu/playhub/internal/auth/operators"
	common "github.com/cuihairu/playhub/internal/cli/common"
)

// New returns the `playhub operators` command.
func New(root *common.Root) *cobra.Command {
	cmd := &cobra.Command{Use: "operators", Short: "Manage admin API operators"}
	cmd.AddCommand(newToken(), newVerify(root))
	return cmd
}

func newToken() *cobra.Command {
	return &cobra.Command{
		Use:   "token NAME",
		Short: "Mint a bearer token and print the config entry holding its hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, hash, err := operators.NewToken(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "token: %s\n\n", token)
			fmt.Fprintln(w, "# add under admin.operators:")
			fmt.Fprintf(w, "- name: %s\n  token_hash: %q\n", args[0], hash)
			return nil
		},
	}
}

func newVerify(root *common.Root) *cobra.Command {
	return &cobra.Command{
		Use:   "verify TOKEN",
		Short: "Check a token against the configured operators",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := common.Operators(root.V)
			if err != nil {
				return err
			}
			reg, err := operators.NewRegistry(ops)
			if err != nil {
				return err
			}
			name, err := reg.Authenticate(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token belongs to %s\n", name)
			return nil
		},
	}
}
