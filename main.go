package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/giygas/prescription-builder/catalog"
	"github.com/giygas/prescription-builder/client"
	"github.com/giygas/prescription-builder/config"
	"github.com/giygas/prescription-builder/data"
	"github.com/giygas/prescription-builder/handlers"
	"github.com/giygas/prescription-builder/health"
	"github.com/giygas/prescription-builder/logging"
	"github.com/giygas/prescription-builder/prescription"
	"github.com/giygas/prescription-builder/render"
	"github.com/giygas/prescription-builder/scheduler"
	"github.com/giygas/prescription-builder/server"
	"github.com/giygas/prescription-builder/session"
	"github.com/giygas/prescription-builder/validation"
	"github.com/spf13/cobra"
)

// Build information, set by ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const appName = "prescription-builder"

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "FATAL: panic: %v\n%s\n", r, debug.Stack())
			os.Exit(2)
		}
	}()

	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Medicine catalog service and prescription builder",
		Long: `Serves the medicine catalog (options, details, PDF rendering) over HTTP
and drives an interactive prescription session against it.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug console logging")

	cmd.AddCommand(serveCmd(&verbose))
	cmd.AddCommand(sessionCmd(&verbose))
	cmd.AddCommand(genericsCmd(&verbose))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (built %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

// setup loads .env and the configuration and starts logging. The returned
// func closes the log file.
func setup(verbose bool) (*config.Config, func(), error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logging.InitLogger(logging.Options{
		Dir:            cfg.LogDir,
		Env:            cfg.Env,
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
		Verbose:        verbose,
	})

	return cfg, func() { _ = logging.Close() }, nil
}

func serveCmd(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the catalog HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closeLogs, err := setup(*verbose)
			if err != nil {
				return err
			}
			defer closeLogs()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	store := data.NewDataContainer()
	store.SetServerStartTime(time.Now())

	loader := catalog.NewLoader(cfg.CatalogSource)
	sched := scheduler.NewScheduler(store, loader, cfg.CatalogRefreshAt)

	if fl, ok := loader.(*catalog.FileLoader); ok && cfg.CatalogWatch {
		if err := sched.WatchFile(fl.Path, 0); err != nil {
			logging.Warn("Catalog file watch disabled", "path", fl.Path, "error", err)
		}
	}

	// keep serving on a failed first load; /health reports it
	if err := sched.Start(); err != nil {
		logging.Error("Initial catalog load failed", "source", loader.Describe(), "error", err)
	}
	defer sched.Stop()

	handler := handlers.NewHTTPHandler(
		store,
		validation.NewDataValidator(),
		render.NewPDFRenderer(),
		health.NewHealthChecker(store, cfg.CatalogRefreshAt),
	)
	srv := server.NewServer(cfg, handler)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func sessionCmd(verbose *bool) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Build a prescription interactively against the catalog service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closeLogs, err := setup(*verbose)
			if err != nil {
				return err
			}
			defer closeLogs()

			prescriber, err := config.LoadPrescriber(cfg.PrescriberFile)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			api := client.New(cfg.ServiceURL, cfg.RequestTimeout)
			exporter := prescription.NewExporter(api, prescription.FileSink{Path: out}, prescriber)
			s := session.New(prescription.NewResolver(api), exporter, cmd.OutOrStdout())

			err = s.Run(ctx, cmd.InOrStdin())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", prescription.DefaultArtifactName, "where export writes the prescription PDF")

	return cmd
}

func genericsCmd(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "generics",
		Short: "List the generic names known to the catalog service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closeLogs, err := setup(*verbose)
			if err != nil {
				return err
			}
			defer closeLogs()

			generics, err := client.New(cfg.ServiceURL, cfg.RequestTimeout).Generics(cmd.Context())
			if err != nil {
				return err
			}
			for _, g := range generics {
				fmt.Fprintln(cmd.OutOrStdout(), g)
			}
			return nil
		},
	}
}
