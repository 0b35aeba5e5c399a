package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jlrickert/sitedoc/pkg/document"
	"github.com/jlrickert/sitedoc/pkg/store"
	"github.com/spf13/cobra"
)

// NewInitCmd returns the `init` cobra command.
func NewInitCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "create the content document from the seed if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := deps.siteStore()
			if err != nil {
				return err
			}
			if err := st.Ensure(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), st.Path())
			return err
		},
	}
}

// NewCatCmd returns the `cat` cobra command.
//
// Usage examples:
//
//	sitedoc cat
//	sitedoc cat --section nav
func NewCatCmd(deps *Deps) *cobra.Command {
	var section string

	cmd := &cobra.Command{
		Use:   "cat",
		Short: "print the current content document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := deps.siteStore()
			if err != nil {
				return err
			}
			doc, err := st.Read(cmd.Context())
			if err != nil {
				return err
			}
			if section == "" {
				return printDocument(cmd.OutOrStdout(), doc)
			}
			raw, ok := doc.Section(section)
			if !ok {
				return fmt.Errorf("section %q not found", section)
			}
			var buf bytes.Buffer
			if err := json.Indent(&buf, raw, "", "  "); err != nil {
				return err
			}
			buf.WriteByte('\n')
			_, err = cmd.OutOrStdout().Write(buf.Bytes())
			return err
		},
	}

	cmd.Flags().StringVarP(&section, "section", "s", "", "print a single top-level section")
	return cmd
}

// NewWriteCmd returns the `write` cobra command.
//
// Usage examples:
//
//	sitedoc write content.json
//	cat content.json | sitedoc write --actor ci
func NewWriteCmd(deps *Deps) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "write [FILE|-]",
		Short: "replace the content document, keeping the current one as a version",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := deps.siteStore()
			if err != nil {
				return err
			}

			src := "-"
			if len(args) == 1 {
				src = args[0]
			}
			raw, err := readInput(cmd.InOrStdin(), src)
			if err != nil {
				return err
			}
			doc, err := document.Parse(raw)
			if err != nil {
				return fmt.Errorf("invalid document %s: %w", src, err)
			}

			if actor == "" {
				actor = deps.defaultActor()
			}
			if err := st.Write(cmd.Context(), doc, store.WriteOptions{Actor: actor}); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", st.Path())
			return err
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "who is making the change (default $USER)")
	return cmd
}

// NewShowCmd returns the `show` cobra command.
func NewShowCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "show VERSION",
		Short: "print a saved version without restoring it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := deps.siteStore()
			if err != nil {
				return err
			}
			doc, err := st.ReadVersion(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printDocument(cmd.OutOrStdout(), doc)
		},
	}
}

// NewRevertCmd returns the `revert` cobra command.
func NewRevertCmd(deps *Deps) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "revert VERSION",
		Short: "restore a saved version; the current content is saved first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := deps.siteStore()
			if err != nil {
				return err
			}
			if actor == "" {
				actor = deps.defaultActor()
			}
			if err := st.RevertTo(cmd.Context(), args[0], store.WriteOptions{Actor: actor}); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "reverted to %s\n", args[0])
			return err
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "who is making the change (default $USER)")
	return cmd
}

func printDocument(w io.Writer, doc *document.Document) error {
	data, err := doc.Bytes()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func readInput(stdin io.Reader, src string) ([]byte, error) {
	if src == "-" {
		if stdin == nil {
			return nil, fmt.Errorf("no input")
		}
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src, err)
	}
	return data, nil
}
