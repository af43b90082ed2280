package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/futig/benchwatch/internal/builder"
	"github.com/futig/benchwatch/internal/config"
	"github.com/futig/benchwatch/internal/entity"
	pkglogger "github.com/futig/benchwatch/internal/pkg/logger"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const closeTimeout = 30 * time.Second

// withComponents wires the pipeline for one command and tears it down after.
func withComponents(cmd *cobra.Command, environment string, fn func(ctx context.Context, c *builder.Components) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(environment)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := pkglogger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	c, err := builder.NewComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := c.Close(closeCtx); err != nil {
			logger.Warn("shutdown error", zap.Error(err))
		}
	}()

	return fn(ctxzap.ToContext(ctx, logger.With(zap.String("command", cmd.Name()))), c)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func buildCycleCmd(environment *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cycle",
		Short: "Run one monitor cycle and wait for the dispatched runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComponents(cmd, *environment, func(ctx context.Context, c *builder.Components) error {
				c.MonitorPool.Start()

				report, err := c.Monitor.RunCycle(ctx)
				if err != nil {
					return err
				}

				// Stop drains the queue, so every dispatched run finishes first.
				if err := c.MonitorPool.Stop(ctx); err != nil {
					return fmt.Errorf("wait for runs: %w", err)
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
}

func buildDueCmd(environment *string) *cobra.Command {
	return &cobra.Command{
		Use:   "due",
		Short: "List the projects the next cycle would test",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComponents(cmd, *environment, func(ctx context.Context, c *builder.Components) error {
				due, scanned, err := c.Monitor.Due(ctx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%d of %d active projects due\n", len(due), scanned)
				for _, s := range due {
					last := "never"
					if s.LastResultAt != nil {
						last = s.LastResultAt.UTC().Format(time.RFC3339)
					}
					fmt.Fprintf(out, "%s\tevery %dh\tlast tested %s\n", s.ProjectID, s.TestIntervalHours, last)
				}
				return nil
			})
		},
	}
}

func buildRunCmd(environment *string) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "run [project-id]",
		Short: "Test one project now, ignoring its schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComponents(cmd, *environment, func(ctx context.Context, c *builder.Components) error {
				if timeout <= 0 {
					timeout = c.Config.MonitorCfg.RunTimeout
				}
				runCtx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()

				report, err := c.Runner.Run(runCtx, args[0])
				if perr := printJSON(cmd.OutOrStdout(), report); perr != nil && err == nil {
					err = perr
				}
				return err
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Run timeout (defaults to MONITOR_RUN_TIMEOUT)")
	return cmd
}

func buildIngestCmd(environment *string) *cobra.Command {
	var ownerID string
	cmd := &cobra.Command{
		Use:   "ingest [project-id] [file...]",
		Short: "Chunk documents and synthesize QA pairs for a project",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]entity.FileData, 0, len(args)-1)
			for _, path := range args[1:] {
				content, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				files = append(files, entity.FileData{Filename: filepath.Base(path), Content: content})
			}

			return withComponents(cmd, *environment, func(ctx context.Context, c *builder.Components) error {
				status, err := c.Ingestion.Ingest(ctx, &entity.IngestionRequest{
					ProjectID: args[0],
					OwnerID:   ownerID,
					Files:     files,
				})
				if status != nil {
					if perr := printJSON(cmd.OutOrStdout(), status); perr != nil && err == nil {
						err = perr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&ownerID, "owner", "", "Owner ID recorded on the generated documents")
	return cmd
}

func buildResultsCmd(environment *string) *cobra.Command {
	var page, pageSize int
	cmd := &cobra.Command{
		Use:   "results [project-id]",
		Short: "Show stored test results, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComponents(cmd, *environment, func(ctx context.Context, c *builder.Components) error {
				resp, err := c.Results.ListResults(ctx, &entity.ListResultsRequest{
					ProjectID: args[0],
					Page:      page,
					PageSize:  pageSize,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", entity.DefaultPageSize, "Results per page")
	return cmd
}

func buildExportCmd(environment *string) *cobra.Command {
	var (
		format string
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "export [project-id]",
		Short: "Write a results report as markdown, docx or pdf",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComponents(cmd, *environment, func(ctx context.Context, c *builder.Components) error {
				file, err := c.Results.Export(ctx, args[0], entity.ResultFormat(format))
				if err != nil {
					return err
				}

				path := filepath.Join(outDir, file.Filename)
				if err := os.WriteFile(path, file.Data, 0o644); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(entity.FormatMarkdown), "Report format (markdown, docx, pdf)")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory to write the report to")
	return cmd
}
