package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/app"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/config"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/drive"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/storage"
	"github.com/andresuchdata/stock-rotation/backend-go/migrations"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func buildApp(c *cli.Context) (*app.App, error) {
	db, err := dbFrom(c)
	if err != nil {
		return nil, err
	}
	return app.Build(config.Load(), db)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending schema migrations",
		Action: func(c *cli.Context) error {
			db, err := dbFrom(c)
			if err != nil {
				return err
			}
			applied, err := migrations.Apply(c.Context, db.DB.DB)
			if err != nil {
				return err
			}
			log.Info().Int("applied", len(applied)).Msg("Migrations complete")
			return nil
		},
	}
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Run a rotation analysis and publish a new snapshot",
		Action: func(c *cli.Context) error {
			application, err := buildApp(c)
			if err != nil {
				return err
			}
			defer application.Close()

			summary, err := application.Rotation.RunAnalysis(c.Context)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}
			return writeJSON(c.App.Writer, summary)
		},
	}
}

func proposalsCommand() *cli.Command {
	return &cli.Command{
		Name:  "proposals",
		Usage: "Compute purchase proposals for a category tag",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tag", Usage: "Product purpose tag (defaults to PROPOSALS_CATEGORY_TAG)"},
			&cli.IntFlag{Name: "min-stock-days", Usage: "Default minimum stock days"},
			&cli.StringFlag{Name: "out", Usage: "Write an XLSX workbook to this path instead of printing JSON"},
		},
		Action: func(c *cli.Context) error {
			application, err := buildApp(c)
			if err != nil {
				return err
			}
			defer application.Close()

			params := domain.ProposalParams{
				CategoryTag:  c.String("tag"),
				MinStockDays: c.Int("min-stock-days"),
			}

			if out := c.String("out"); out != "" {
				var buf bytes.Buffer
				if err := application.Proposals.ExportXLSX(c.Context, params, &buf); err != nil {
					return err
				}
				if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", out, err)
				}
				log.Info().Str("path", out).Msg("Proposals exported")
				return nil
			}

			result, err := application.Proposals.Compute(c.Context, params)
			if err != nil {
				return err
			}
			return writeJSON(c.App.Writer, result)
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the dead-stock snapshot to XLSX",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Usage: "Local output path"},
			&cli.BoolFlag{Name: "upload", Usage: "Upload to the configured object storage"},
			&cli.StringSliceFlag{Name: "status", Usage: "Rotation statuses to include (repeatable)"},
			&cli.IntFlag{Name: "min-days", Usage: "Minimum days without movement", Value: -1},
		},
		Action: func(c *cli.Context) error {
			if c.String("out") == "" && !c.Bool("upload") {
				return fmt.Errorf("either --out or --upload is required")
			}

			filter := domain.DeadStockFilter{}
			for _, raw := range c.StringSlice("status") {
				status, ok := domain.ParseRotationStatus(raw)
				if !ok {
					return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, raw)
				}
				filter.RotationStatus = append(filter.RotationStatus, status)
			}
			if d := c.Int("min-days"); d >= 0 {
				filter.MinDays = &d
			}

			application, err := buildApp(c)
			if err != nil {
				return err
			}
			defer application.Close()

			if out := c.String("out"); out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", out, err)
				}
				defer f.Close()
				if err := application.Rotation.ExportXLSX(c.Context, filter, f); err != nil {
					return err
				}
				log.Info().Str("path", out).Msg("Dead stock exported")
			}

			if c.Bool("upload") {
				cfg := config.Load().Storage
				store, err := storage.New(cfg)
				if err != nil {
					return err
				}
				key, err := application.Rotation.ExportToStorage(c.Context, filter, store, cfg.Prefix)
				if err != nil {
					return err
				}
				log.Info().Str("key", key).Str("bucket", cfg.Bucket).Msg("Dead stock uploaded")
			}
			return nil
		},
	}
}

func importPeriodsCommand() *cli.Command {
	return &cli.Command{
		Name:  "import-periods",
		Usage: "Bulk import custom stock periods from a spreadsheet",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Usage: "Local XLSX file"},
			&cli.StringFlag{Name: "storage-key", Usage: "Object key in the configured storage bucket"},
			&cli.StringFlag{Name: "drive-file-id", Usage: "Google Drive file id", EnvVars: []string{"DRIVE_PERIODS_FILE_ID"}},
			&cli.StringFlag{Name: "download-dir", Usage: "Scratch directory for downloads", Value: os.TempDir()},
		},
		Action: func(c *cli.Context) error {
			application, err := buildApp(c)
			if err != nil {
				return err
			}
			defer application.Close()

			r, err := openPeriodSheet(c)
			if err != nil {
				return err
			}
			defer r.Close()

			result, err := application.Proposals.ImportPeriods(c.Context, r)
			if err != nil {
				return err
			}
			for _, rej := range result.Rejected {
				log.Warn().Int("row", rej.Row).Str("symbol", rej.Symbol).Str("reason", rej.Reason).Msg("Row rejected")
			}
			log.Info().Int("imported", result.Imported).Int("rejected", len(result.Rejected)).Msg("Stock periods imported")
			return nil
		},
	}
}

// openPeriodSheet resolves the import source: a local file, then an object
// storage key, then a Drive file.
func openPeriodSheet(c *cli.Context) (io.ReadCloser, error) {
	if path := c.String("file"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		return f, nil
	}

	if key := c.String("storage-key"); key != "" {
		store, err := storage.New(config.Load().Storage)
		if err != nil {
			return nil, err
		}
		dest := filepath.Join(c.String("download-dir"), filepath.Base(key))
		if err := store.DownloadObject(c.Context, key, dest); err != nil {
			return nil, err
		}
		f, err := os.Open(dest)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", dest, err)
		}
		return f, nil
	}

	if fileID := c.String("drive-file-id"); fileID != "" {
		svc, err := drive.NewService(c.Context, config.Load().Drive.CredentialsJSON)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := svc.DownloadXLSX(c.Context, fileID, &buf); err != nil {
			return nil, err
		}
		return io.NopCloser(&buf), nil
	}

	return nil, fmt.Errorf("one of --file, --storage-key or --drive-file-id is required")
}

func ignoreCommand() *cli.Command {
	return &cli.Command{
		Name:  "ignore",
		Usage: "Manage products excluded from analysis",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Exclude a symbol",
				ArgsUsage: "<symbol>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "reason", Usage: "Why the symbol is excluded"},
				},
				Action: func(c *cli.Context) error {
					application, err := buildApp(c)
					if err != nil {
						return err
					}
					defer application.Close()

					item, err := application.Rotation.IgnoreProduct(c.Context, c.Args().First(), c.String("reason"))
					if err != nil {
						return err
					}
					log.Info().Str("symbol", item.Symbol).Msg("Product ignored")
					return nil
				},
			},
			{
				Name:      "remove",
				Usage:     "Include a previously excluded symbol again",
				ArgsUsage: "<symbol>",
				Action: func(c *cli.Context) error {
					application, err := buildApp(c)
					if err != nil {
						return err
					}
					defer application.Close()

					symbol := strings.TrimSpace(c.Args().First())
					if err := application.Rotation.UnignoreProduct(c.Context, symbol); err != nil {
						return err
					}
					log.Info().Str("symbol", symbol).Msg("Product no longer ignored")
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List excluded symbols",
				Action: func(c *cli.Context) error {
					application, err := buildApp(c)
					if err != nil {
						return err
					}
					defer application.Close()

					items, err := application.Rotation.ListIgnored(c.Context)
					if err != nil {
						return err
					}
					return writeJSON(c.App.Writer, items)
				},
			},
		},
	}
}
