package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ConfabulousDev/teamdocs/internal/client"
)

func newDocsCmd(api func() *client.Client) *cobra.Command {
	docs := &cobra.Command{
		Use:   "docs",
		Short: "List, create, show, edit and delete documents",
	}

	docs.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the team's documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := api().ListDocuments(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No documents yet.")
				return nil
			}
			for _, d := range list {
				fmt.Fprintf(out, "%s  %-40s  updated %s\n", d.ID, d.Title, humanize.Time(d.UpdatedAt))
			}
			return nil
		},
	})

	docs.AddCommand(&cobra.Command{
		Use:   "create <title>",
		Short: "Create an empty document",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := api().CreateDocument(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	})

	docs.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print a document's content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := api().GetDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), doc.Content)
			return nil
		},
	})

	var file string
	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Replace a document's content from a file or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			if err := api().UpdateDocument(cmd.Context(), args[0], content); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Document updated (%s)\n", humanize.Bytes(uint64(len(content))))
			return nil
		},
	}
	edit.Flags().StringVarP(&file, "file", "f", "", "read content from this file instead of stdin")
	docs.AddCommand(edit)

	docs.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := api().DeleteDocument(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Document deleted")
			return nil
		},
	})

	return docs
}

func newUploadCmd(api func() *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file.docx>",
		Short: "Import a .docx file as a new document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !strings.EqualFold(filepath.Ext(args[0]), ".docx") {
				return fmt.Errorf("only .docx files are supported")
			}
			id, err := api().UploadDocx(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Uploaded %s as %s\n", filepath.Base(args[0]), id)
			return nil
		},
	}
}

// readInput returns the named file's content, or stdin when path is empty.
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}
