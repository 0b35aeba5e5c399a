package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// NewVersionsCmd returns the `versions` cobra command.
func NewVersionsCmd(deps *Deps) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "versions",
		Aliases: []string{"ls"},
		Short:   "list saved versions, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := deps.siteStore()
			if err != nil {
				return err
			}
			versions := st.ListVersions(cmd.Context())
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSONLines(out, versions)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, v := range versions {
				kind := ""
				if v.BeforeRevert {
					kind = "before-revert"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
					v.Filename, v.CreatedAt.Local().Format(time.DateTime), v.Size, kind)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as a JSON array")
	return cmd
}

// NewHistoryCmd returns the `history` cobra command.
func NewHistoryCmd(deps *Deps) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "show recent changes to the content document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := deps.siteStore()
			if err != nil {
				return err
			}
			entries, err := st.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSONLines(out, entries)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, e := range entries {
				ref := e.Snapshot
				if e.Target != "" {
					ref = "-> " + e.Target
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					e.Time.Local().Format(time.DateTime), e.Action, e.Actor, ref)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as a JSON array")
	return cmd
}

func writeJSONLines(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
