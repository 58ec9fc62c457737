package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/patientdesk/patientdesk/internal/config"
	"github.com/patientdesk/patientdesk/internal/domain/patient"
	"github.com/patientdesk/patientdesk/internal/domain/session"
	"github.com/patientdesk/patientdesk/internal/platform/csvio"
	"github.com/patientdesk/patientdesk/internal/platform/db"
	"github.com/patientdesk/patientdesk/internal/platform/middleware"
	"github.com/patientdesk/patientdesk/internal/registry"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "patientdesk",
		Short: "Single-user patient registry server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(csvCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(dev bool) zerolog.Logger {
	if dev {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// openStore loads config, opens the embedded store, and applies the schema.
func openStore() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	gdb, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database %q: %w", cfg.DBPath, err)
	}
	if err := db.Migrate(gdb, &patient.Patient{}, &session.Session{}); err != nil {
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return cfg, gdb, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the registry API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := openStore()
			if err != nil {
				return err
			}
			fmt.Printf("Schema applied to %s\n", cfg.DBPath)
			return nil
		},
	}
}

func csvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "csv",
		Short: "Import and export patients as CSV",
	}

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import patients from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := openStore()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			svc := patient.NewService(patient.NewRepo(store))
			ctx := context.Background()
			res, err := csvio.Import(f, func(p *patient.Patient) error {
				return svc.Create(ctx, p)
			})
			if err != nil {
				return err
			}

			fmt.Printf("Imported %d patient(s), %d error(s)\n", res.Created, len(res.Errors))
			if len(res.Errors) > 0 {
				report, _ := cmd.Flags().GetString("error-report")
				if report == "" {
					for _, re := range res.Errors {
						fmt.Printf("  line %d: %s\n", re.Line, re.Message)
					}
					return nil
				}
				out, err := os.Create(report)
				if err != nil {
					return err
				}
				defer out.Close()
				if err := csvio.WriteErrorReport(out, res.Errors); err != nil {
					return err
				}
				fmt.Printf("Error report written to %s\n", report)
			}
			return nil
		},
	}
	importCmd.Flags().String("error-report", "", "Write rejected rows to this CSV file")
	cmd.AddCommand(importCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "export <file>",
		Short: "Export every patient to a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := openStore()
			if err != nil {
				return err
			}
			repo := patient.NewRepo(store)
			rows, err := repo.Search(context.Background(), "")
			if err != nil {
				return err
			}
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			if err := csvio.Export(f, rows); err != nil {
				return err
			}
			fmt.Printf("Exported %d patient(s) to %s\n", len(rows), args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "template <file>",
		Short: "Write an empty import template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return csvio.WriteTemplate(f)
		},
	})

	return cmd
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.IsDev())

	gdb, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open database")
	}
	if err := db.Migrate(gdb, &patient.Patient{}, &session.Session{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply schema")
	}
	logger.Info().Str("path", cfg.DBPath).Msg("database ready")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.BodyLimit("1M", "16M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
	}))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(gdb))

	// Domain services
	patientSvc := patient.NewService(patient.NewRepo(gdb))
	sessionSvc := session.NewService(session.NewRepo(gdb))

	apiV1 := e.Group("/api/v1")

	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	session.NewHandler(sessionSvc).RegisterRoutes(apiV1)

	// Registry view: the stateful filter/pagination/editor pipeline
	ctl := registry.NewController(patientSvc, cfg.PageSize,
		time.Duration(cfg.SearchDebounceMS)*time.Millisecond, logger)
	if err := ctl.Refresh(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("failed to load patients")
	}
	registry.NewHandler(ctl, patientSvc).RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
