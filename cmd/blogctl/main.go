package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/tendant/simple-blog/pkg/blog"
	"github.com/tendant/simple-blog/pkg/blog/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "blogctl",
		Short: "Blog content administration",
		Long: `Command line tool for the blog content store.

Reads the same environment as the server (STORAGE_URL, AWS_*, BLOB_DB_SCHEMA, ...)
and talks to the blob store directly, without going through HTTP.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(tint.NewHandler(cmd.ErrOrStderr(), &tint.Options{
				Level:      level,
				TimeFormat: time.Kitchen,
			})))
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("storage", "", "storage URL, overrides STORAGE_URL")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file to load if present")

	rootCmd.AddCommand(NewMigrateCommand())
	rootCmd.AddCommand(NewListCommand())
	rootCmd.AddCommand(NewPublishDraftCommand())
	rootCmd.AddCommand(NewSlugCommand())
	rootCmd.AddCommand(NewHashPasswordCommand())

	return rootCmd
}

// newServiceFromFlags builds a blog service over the configured blob store.
// The returned close function is never nil.
func newServiceFromFlags(cmd *cobra.Command) (blog.Service, func(), error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	storageURL, _ := cmd.Flags().GetString("storage")

	opts := []config.Option{
		config.WithDotEnv(envFile),
		config.WithEnv(),
		config.WithoutAdminAuth(),
	}
	if storageURL != "" {
		opts = append(opts, config.WithStorageURL(storageURL))
	}

	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to load configuration: %w", err)
	}

	slog.Debug("Opening blob store", "storage", cfg.Storage.Type)

	store, closeStore, err := cfg.BuildStore(cmd.Context())
	if err != nil {
		return nil, closeStore, fmt.Errorf("failed to create blob store: %w", err)
	}

	svc, err := cfg.BuildService(store)
	if err != nil {
		return nil, closeStore, fmt.Errorf("failed to create blog service: %w", err)
	}
	return svc, closeStore, nil
}
