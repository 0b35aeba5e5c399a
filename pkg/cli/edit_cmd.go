package cli

import (
	"fmt"
	"os"

	"github.com/jlrickert/sitedoc/pkg/document"
	"github.com/jlrickert/sitedoc/pkg/internal"
	"github.com/jlrickert/sitedoc/pkg/log"
	"github.com/jlrickert/sitedoc/pkg/store"
	"github.com/spf13/cobra"
)

// NewEditCmd returns the `edit` cobra command. The document is copied to a
// temp file and opened in $VISUAL or $EDITOR; every save is written back
// through the store, so each save becomes a version.
func NewEditCmd(deps *Deps) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "edit the content document in your editor; every save is applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			lg := log.FromContext(ctx)
			st, err := deps.siteStore()
			if err != nil {
				return err
			}
			if actor == "" {
				actor = deps.defaultActor()
			}

			doc, err := st.Read(ctx)
			if err != nil {
				return err
			}
			data, err := doc.Bytes()
			if err != nil {
				return err
			}

			f, err := os.CreateTemp("", "sitedoc-*.json")
			if err != nil {
				return fmt.Errorf("create edit file: %w", err)
			}
			path := f.Name()
			defer func() { _ = os.Remove(path) }()
			if _, err := f.Write(data); err != nil {
				_ = f.Close()
				return fmt.Errorf("write edit file: %w", err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("write edit file: %w", err)
			}

			editor := internal.ResolveEditor(deps.getenv)
			lg.Debug("opening editor", "editor", editor, "path", path)

			saves := 0
			err = editWithLiveSaves(ctx, editor, os.Environ(), deps.Streams, path, func(raw []byte) error {
				next, err := document.Parse(raw)
				if err != nil {
					return fmt.Errorf("not saved, invalid document: %w", err)
				}
				if err := st.Write(ctx, next, store.WriteOptions{Actor: actor}); err != nil {
					return err
				}
				saves++
				return nil
			})
			if err != nil {
				return err
			}
			if saves == 0 {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "no changes")
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "applied %d save(s) to %s\n", saves, st.Path())
			return err
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "who is making the change (default $USER)")
	return cmd
}
