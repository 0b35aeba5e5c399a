package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jlrickert/sitedoc/pkg/document"
	"github.com/spf13/cobra"
)

// NewWatchCmd returns the `watch` cobra command. It prints one line per
// change to the content file until interrupted.
func NewWatchCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "print a line whenever the content document changes on disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := deps.siteStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			err = st.Watch(cmd.Context(), func(doc *document.Document) {
				title := ""
				if home, err := doc.Home(); err == nil {
					title = home.Hero.Title
				}
				_, _ = fmt.Fprintf(out, "%s\tchanged\t%q\n", time.Now().Format(time.DateTime), title)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
