package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/healthhistory/healthhistory/internal/config"
	"github.com/healthhistory/healthhistory/internal/domain/account"
	"github.com/healthhistory/healthhistory/internal/domain/records"
	"github.com/healthhistory/healthhistory/internal/platform/apperr"
	"github.com/healthhistory/healthhistory/internal/platform/auth"
	"github.com/healthhistory/healthhistory/internal/platform/db"
	"github.com/healthhistory/healthhistory/internal/platform/hipaa"
	"github.com/healthhistory/healthhistory/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "healthhistory-server",
		Short: "Health History API Server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(schemaCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func schemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "apply",
		Short: "Create the users and records tables if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: 1})
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := db.EnsureSchema(ctx, pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show which tables exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: 1})
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.SchemaStatus(ctx, pool)
			if err != nil {
				return err
			}
			printSchemaStatus(cmd.OutOrStdout(), statuses)
			return nil
		},
	})

	return cmd
}

func printSchemaStatus(w io.Writer, statuses []db.TableStatus) {
	for _, s := range statuses {
		state := "missing"
		if s.Exists {
			state = "present"
		}
		fmt.Fprintf(w, "%-10s %s\n", s.Name, state)
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// resolveJWTSecret returns the configured signing secret. In development an
// empty value is replaced by a random 32-byte secret; the second return
// value is true when that happened.
func resolveJWTSecret(value string, dev bool) ([]byte, bool, error) {
	if value != "" {
		return []byte(value), false, nil
	}
	if !dev {
		return nil, false, fmt.Errorf("JWT_SECRET is required")
	}
	secret := make([]byte, config.MinSecretLength)
	if _, err := rand.Read(secret); err != nil {
		return nil, false, fmt.Errorf("generate random JWT secret: %w", err)
	}
	return secret, true, nil
}

// services holds everything the router needs. Nothing here is global.
type services struct {
	accounts  *account.Service
	records   *records.Service
	issuer    *auth.TokenIssuer
	pinger    db.Pinger
	poolStats func() *db.PoolStats
}

func newRouter(cfg *config.Config, logger zerolog.Logger, svc services) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.RequestBodyLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
	}))

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"message": "Health History API is running and connected to DB!",
		})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(svc.pinger, svc.poolStats, logger))

	account.NewHandler(svc.accounts).RegisterRoutes(e.Group("/auth"))
	records.NewHandler(svc.records).RegisterRoutes(e.Group("/records", auth.Middleware(svc.issuer)))

	return e
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := newLogger(os.Getenv("ENV"))
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg.Env)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	secret, generated, err := resolveJWTSecret(cfg.JWTSecret, cfg.IsDev())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve JWT secret")
	}
	if generated {
		logger.Warn().Msg("JWT_SECRET not set: using a random secret, tokens will not survive a restart")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns:       cfg.DBMaxConns,
		MinConns:       cfg.DBMinConns,
		ConnectTimeout: cfg.StoreTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	if err := db.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply schema")
	}

	enc, err := hipaa.NewEncryptionService(cfg.RecordEncryptionKey, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize record encryption")
	}

	issuer := auth.NewTokenIssuer(secret)
	accountSvc := account.NewService(account.NewUserRepo(pool), issuer, cfg.StoreTimeout, logger)

	var patients records.PatientDirectory
	if cfg.VerifyPatientRef {
		patients = accountSvc
	}
	recordSvc := records.NewService(records.NewRecordRepo(pool, enc), patients, cfg.StoreTimeout, logger)

	e := newRouter(cfg, logger, services{
		accounts:  accountSvc,
		records:   recordSvc,
		issuer:    issuer,
		pinger:    pool,
		poolStats: func() *db.PoolStats { return db.GetPoolStats(pool) },
	})

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
