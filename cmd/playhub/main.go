package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	adscmd "github.com/cuihairu/playhub/internal/cli/adscmd"
	common "github.com/cuihairu/playhub/internal/cli/common"
	contentcmd "github.com/cuihairu/playhub/internal/cli/contentcmd"
	operatorscmd "github.com/cuihairu/playhub/internal/cli/operatorscmd"
)

func main() {
	if err := newRoot().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRoot() *cobra.Command {
	r := &common.Root{}
	root := &cobra.Command{
		Use:           "playhub",
		Short:         "PlayHub content operator CLI",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return r.Load()
		},
	}
	r.BindFlags(root)

	root.AddCommand(adscmd.New(r))
	root.AddCommand(contentcmd.New(r))
	root.AddCommand(operatorscmd.New(r))
	root.AddCommand(newConfig(r))

	comp := &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Generate shell completion",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletion(out)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			default:
				return root.GenPowerShellCompletionWithDesc(out)
			}
		},
	}
	root.AddCommand(comp)
	return root
}

func newConfig(r *common.Root) *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Inspect configuration"}
	var strict bool
	test := &cobra.Command{
		Use:   "test",
		Short: "Validate the effective config",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := common.ValidateConfig(r.V, strict); err != nil {
				return fmt.Errorf("config invalid: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "config OK")
			return nil
		},
	}
	test.Flags().BoolVar(&strict, "strict", false, "also require operators and an rbac policy")
	cmd.AddCommand(test)
	return cmd
}
