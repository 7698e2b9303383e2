package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tendant/simple-blog/pkg/blog"
	"github.com/tendant/simple-blog/pkg/blog/auth"
	"github.com/tendant/simple-blog/pkg/blog/migrate"
)

// NewMigrateCommand creates the migrate command
func NewMigrateCommand() *cobra.Command {
	var dir string
	var extensions []string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Import Markdown articles into the blob store",
		Long: `Import every .mdx/.md file in a directory as a published article.

The file name (without extension) becomes the slug; title, summary and
publishedAt are read from the YAML front matter. Existing articles with the
same slug are replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeStore, err := newServiceFromFlags(cmd)
			defer closeStore()
			if err != nil {
				return err
			}

			report, err := migrate.New(svc, migrate.WithExtensions(extensions...)).Run(cmd.Context(), dir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, res := range report.Results {
				if res.Err != nil {
					fmt.Fprintf(out, "FAIL  %s: %v\n", res.File, res.Err)
					continue
				}
				fmt.Fprintf(out, "OK    %s -> %s (%s)\n", res.File, res.Slug, res.URL)
			}

			failed := len(report.Failed())
			fmt.Fprintf(out, "Migrated %d of %d articles\n", report.Succeeded(), len(report.Results))
			if failed > 0 {
				return fmt.Errorf("%d articles failed to migrate", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "content", "directory containing article files")
	cmd.Flags().StringSliceVar(&extensions, "ext", migrate.DefaultExtensions, "file extensions to import")

	return cmd
}

// NewListCommand creates the list command
func NewListCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:       "list <articles|drafts>",
		Short:     "List articles or drafts",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"articles", "drafts"},
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeStore, err := newServiceFromFlags(cmd)
			defer closeStore()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch args[0] {
			case "articles":
				articles, err := svc.ListArticles(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to list articles: %w", err)
				}
				if asJSON {
					return writeJSON(out, articles)
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "SLUG\tPUBLISHED\tTITLE")
				for _, a := range articles {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Slug, a.Metadata.PublishedAt, a.Metadata.Title)
				}
				return tw.Flush()

			case "drafts":
				drafts, err := svc.ListDrafts(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to list drafts: %w", err)
				}
				if asJSON {
					return writeJSON(out, drafts)
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "SLUG\tSAVED\tTITLE")
				for _, d := range drafts {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Slug, d.Metadata.SavedAt, d.Metadata.Title)
				}
				return tw.Flush()
			}

			return fmt.Errorf("unknown record kind %q, expected articles or drafts", args[0])
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")

	return cmd
}

// NewPublishDraftCommand creates the publish-draft command
func NewPublishDraftCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "publish-draft <slug>",
		Short: "Publish a draft as an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeStore, err := newServiceFromFlags(cmd)
			defer closeStore()
			if err != nil {
				return err
			}

			result, err := svc.PublishDraft(cmd.Context(), args[0])
			if errors.Is(err, blog.ErrNotFound) {
				return fmt.Errorf("draft %q not found", args[0])
			}
			if err != nil {
				return fmt.Errorf("publish failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Published %s at %s\n", result.Slug, result.URL)
			return nil
		},
	}
}

// NewSlugCommand creates the slug command
func NewSlugCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "slug <title>",
		Short: "Print the slug derived from a title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := blog.Slugify(strings.Join(args, " "))
			if slug == "" {
				return errors.New("title has no characters usable in a slug")
			}
			fmt.Fprintln(cmd.OutOrStdout(), slug)
			return nil
		},
	}
}

// NewHashPasswordCommand creates the hash-password command
func NewHashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Long:  `Hash the given password, or the first line of stdin when no argument is given.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("failed to read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New("password cannot be empty")
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
