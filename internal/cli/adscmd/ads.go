// Package adscmd implements `playhub ads`.
package adscmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	common "github.com/cuihairu/playhub/internal/cli/common"
	"github.com/cuihairu/playhub/internal/ports"
)

// ErrRejected makes the command exit non-zero when any snippet fails.
var ErrRejected = errors.New("ad snippets rejected")

// New returns the `playhub ads` command.
func New(root *common.Root) *cobra.Command {
	cmd := &cobra.Command{Use: "ads", Short: "Inspect and check ad snippets"}
	cmd.AddCommand(newCheck(root), newPolicy(root))
	return cmd
}

type result struct {
	ID        string          `json:"id,omitempty"`
	Placement ports.Placement `json:"placement"`
	Approved  bool            `json:"approved"`
	Reason    string          `json:"reason,omitempty"`
	Detail    string          `json:"detail,omitempty"`
}

func newCheck(root *common.Root) *cobra.Command {
	var placement string
	var doc, asJSON bool
	cmd := &cobra.Command{
		Use:   "check [FILE|-]",
		Short: "Run the ad validator on a snippet or an ads document",
		Long: "Reads a snippet (or, with --doc, an ads JSON document) from FILE or stdin and " +
			"prints the verdict. Exits non-zero when anything is rejected.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			v, err := root.Validator()
			if err != nil {
				return err
			}
			var results []result
			if doc {
				var d ports.AdsDocument
				if err := json.Unmarshal(input, &d); err != nil {
					return fmt.Errorf("decode ads document: %w", err)
				}
				for _, ad := range d.Ads {
					p, err := ports.ParsePlacement(string(ad.Position))
					if err != nil {
						results = append(results, result{ID: ad.ID, Placement: ad.Position, Reason: "unknown_placement", Detail: err.Error()})
						continue
					}
					vd := v.Validate(p, ad.HTMLContent)
					results = append(results, result{ID: ad.ID, Placement: p, Approved: vd.Approved, Reason: string(vd.Reason), Detail: vd.Detail})
				}
			} else {
				p, err := ports.ParsePlacement(placement)
				if err != nil {
					return err
				}
				vd := v.Validate(p, string(input))
				results = append(results, result{Placement: p, Approved: vd.Approved, Reason: string(vd.Reason), Detail: vd.Detail})
			}
			if err := printResults(cmd.OutOrStdout(), results, asJSON); err != nil {
				return err
			}
			for _, r := range results {
				if !r.Approved {
					return ErrRejected
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&placement, "placement", string(ports.PlacementInContent), "placement the snippet is meant for")
	cmd.Flags().BoolVar(&doc, "doc", false, "input is an ads document ({\"ads\":[...]})")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print verdicts as JSON")
	return cmd
}

func newPolicy(root *common.Root) *cobra.Command {
	return &cobra.Command{
		Use:   "policy",
		Short: "Print the effective allowlist and danger patterns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := root.Validator()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string][]string{
				"allow_domains": v.AllowDomains(),
				"deny_patterns": v.DenyPatterns(),
			})
		},
	}
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}

func printResults(w io.Writer, results []result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	for _, r := range results {
		label := string(r.Placement)
		if r.ID != "" {
			label = r.ID + " (" + label + ")"
		}
		if r.Approved {
			fmt.Fprintf(w, "%s: approved\n", label)
			continue
		}
		line := fmt.Sprintf("%s: rejected: %s", label, r.Reason)
		if r.Detail != "" {
			line += " [" + strings.TrimSpace(r.Detail) + "]"
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
