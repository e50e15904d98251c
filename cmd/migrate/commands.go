package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/phenomboxing/storefront/internal/catalog"
	"github.com/phenomboxing/storefront/pkg/config"
	"github.com/phenomboxing/storefront/pkg/db"
	"github.com/phenomboxing/storefront/pkg/logger"
	"github.com/phenomboxing/storefront/pkg/migrate"
)

func newRootCmd(out io.Writer) *cobra.Command {
	var dir string
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the storefront database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&dir, "dir", migrate.DefaultDir, "goose migrations directory")

	withRunner := func(fn func(context.Context, *migrate.Runner) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd.Context(), func(ctx context.Context, client *db.Client) error {
				runner, err := migrate.NewRunner(client, dir)
				if err != nil {
					return err
				}
				return fn(ctx, runner)
			})
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE: withRunner(func(ctx context.Context, r *migrate.Runner) error {
				return r.Up(ctx)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			Args:  cobra.NoArgs,
			RunE: withRunner(func(ctx context.Context, r *migrate.Runner) error {
				return r.Down(ctx)
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "List applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE: withRunner(func(ctx context.Context, r *migrate.Runner) error {
				return r.Status(ctx)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRunner(func(ctx context.Context, r *migrate.Runner) error {
					v, err := r.Version(ctx)
					if err == nil {
						fmt.Fprintln(cmd.OutOrStdout(), v)
					}
					return err
				})(cmd, args)
			},
		},
		&cobra.Command{
			Use:   "to VERSION",
			Short: "Migrate up or down to VERSION (YYYYMMDDHHMMSS)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRunner(func(ctx context.Context, r *migrate.Runner) error {
					return r.To(ctx, args[0])
				})(cmd, args)
			},
		},
		&cobra.Command{
			Use:   "create NAME",
			Short: "Scaffold an empty SQL migration",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := migrate.CreateSQLMigration(dir, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "created", path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Lint migration files without touching a database",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := migrate.ValidateDir(dir); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations ok")
				return nil
			},
		},
		&cobra.Command{
			Use:   "seed FILE",
			Short: "Upsert categories and products from a catalog seed file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDatabase(cmd.Context(), func(ctx context.Context, client *db.Client) error {
					result, err := seedCatalog(ctx, client, args[0])
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "seeded %d categories and %d products\n", result.Categories, result.Products)
					return nil
				})
			},
		},
	)
	return root
}

// withDatabase loads PHENOM_* config and opens the database for fn.
func withDatabase(ctx context.Context, fn func(context.Context, *db.Client) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
		Output:      os.Stderr,
	})

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(ctx, client)
}

func seedCatalog(ctx context.Context, client *db.Client, path string) (catalog.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return catalog.ImportResult{}, err
	}
	defer f.Close()

	seed, err := catalog.DecodeSeed(f)
	if err != nil {
		return catalog.ImportResult{}, fmt.Errorf("%s: %w", path, err)
	}
	return catalog.Import(ctx, client.DB(), seed)
}
