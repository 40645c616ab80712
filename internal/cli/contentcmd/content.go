// Package contentcmd implements `playhub content`: moving documents between local files
// and the configured store, and telling running portals to drop their cached copies.
package contentcmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	common "github.com/cuihairu/playhub/internal/cli/common"
	"github.com/cuihairu/playhub/internal/ports"
	"github.com/cuihairu/playhub/internal/service/content"
	"github.com/cuihairu/playhub/internal/validation"
)

const timeout = 30 * time.Second

// New returns the `playhub content` command.
func New(root *common.Root) *cobra.Command {
	cmd := &cobra.Command{Use: "content", Short: "Manage content documents in the configured store"}
	cmd.AddCommand(newPush(root), newPull(root), newInvalidate(root), newValidate(), newSchema())
	return cmd
}

func newPush(root *common.Root) *cobra.Command {
	return &cobra.Command{
		Use:   "push KEY [FILE|-]",
		Short: "Validate a document and write it to the store, then announce the change",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := common.ParseKey(args[0])
			if err != nil {
				return err
			}
			doc, err := readDoc(cmd, args[1:])
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			svc, done, err := root.ContentService(ctx)
			if err != nil {
				return err
			}
			defer done()
			if err := svc.Save(ctx, key, doc); err != nil {
				var rej *content.AdRejectedError
				if errors.As(err, &rej) {
					for _, r := range rej.Rejections {
						fmt.Fprintf(cmd.ErrOrStderr(), "rejected %s (%s): %s %s\n", r.ID, r.Placement, r.Reason, r.Detail)
					}
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pushed %s to %s\n", key, svc.StoreName())
			return nil
		},
	}
}

func newPull(root *common.Root) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "pull KEY",
		Short: "Print a document from the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := common.ParseKey(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			svc, done, err := root.ContentService(ctx)
			if err != nil {
				return err
			}
			defer done()
			doc, err := svc.Document(ctx, key)
			if err != nil {
				return err
			}
			if out != "" && out != "-" {
				return os.WriteFile(out, doc, 0o644)
			}
			w := cmd.OutOrStdout()
			if _, err := w.Write(doc); err != nil {
				return err
			}
			_, err = fmt.Fprintln(w)
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func newInvalidate(root *common.Root) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "invalidate [KEY...]",
		Short: "Announce a change so running portals drop their cached copies",
		RunE: func(cmd *cobra.Command, args []string) error {
			var keys []ports.ContentKey
			if all {
				keys = ports.ContentKeys()
			}
			for _, a := range args {
				k, err := common.ParseKey(a)
				if err != nil {
					return err
				}
				keys = append(keys, k)
			}
			if len(keys) == 0 {
				return errors.New("name at least one key or pass --all")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			svc, done, err := root.ContentService(ctx)
			if err != nil {
				return err
			}
			defer done()
			for _, k := range keys {
				if err := svc.Invalidate(ctx, k); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "invalidated %s\n", k)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "invalidate every content key")
	return cmd
}

func newValidate() *cobra.Command {
	return &cobra.Command{
		Use:   "validate KEY [FILE|-]",
		Short: "Check a document against its schema without writing it",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := common.ParseKey(args[0])
			if err != nil {
				return err
			}
			doc, err := readDoc(cmd, args[1:])
			if err != nil {
				return err
			}
			v, err := validation.New()
			if err != nil {
				return err
			}
			if err := v.Validate(key, doc); err != nil {
				var ve *validation.ValidationError
				if errors.As(err, &ve) {
					for _, p := range ve.Problems {
						fmt.Fprintln(cmd.ErrOrStderr(), "-", p)
					}
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", key)
			return nil
		},
	}
}

func newSchema() *cobra.Command {
	return &cobra.Command{
		Use:   "schema KEY",
		Short: "Print the JSON schema for a content key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := common.ParseKey(args[0])
			if err != nil {
				return err
			}
			b, err := validation.Schema(key)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
}

func readDoc(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}
