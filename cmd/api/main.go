package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ovaphlow/pitchfork/service-portfolio/internal/ai"
	"github.com/ovaphlow/pitchfork/service-portfolio/internal/auth"
	"github.com/ovaphlow/pitchfork/service-portfolio/internal/config"
	"github.com/ovaphlow/pitchfork/service-portfolio/internal/portfolio"
	"github.com/ovaphlow/pitchfork/service-portfolio/internal/portfolio/repo"
	"github.com/ovaphlow/pitchfork/service-portfolio/internal/router"
	"github.com/ovaphlow/pitchfork/service-portfolio/pkg/database"
	"github.com/ovaphlow/pitchfork/service-portfolio/pkg/utilities"
)

var (
	configPath string
	sugar      *zap.SugaredLogger
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "portfolio",
	Short:         "AI portfolio generator backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// best-effort: a missing .env leaves the real environment in charge
		_ = godotenv.Load()

		lg, err := utilities.Init(utilities.ConfigFromEnv())
		if err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}
		sugar = lg.Sugar()

		if configPath == "" {
			configPath = os.Getenv("CONFIG_FILE")
		}
		cfg, err = config.Load(configPath)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if sugar != nil {
			_ = sugar.Sync()
		}
	},
	RunE: serve,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  serve,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the portfolios table and its indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Connect(database.ConfigFromEnv())
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		if err := repo.NewPortfolioRepo(db, cfg.Store).EnsureTable(ctx); err != nil {
			return err
		}
		sugar.Info("schema ready")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sugar.Infow("starting service-portfolio", "addr", cfg.Server.Addr)

	db, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()

	httpClient := &http.Client{}
	gemini, err := ai.NewGemini(ctx, cfg.AI.Gemini, httpClient)
	if err != nil {
		return err
	}
	orch := ai.NewOrchestrator(sugar, cfg.AI.Timeout(),
		ai.NewAzure(cfg.AI.Azure, httpClient),
		ai.NewOpenRouter(cfg.AI.OpenRouter, httpClient),
		gemini,
	)
	aiSvc := ai.NewService(orch, cfg.AI, sugar)
	status := aiSvc.Status()
	sugar.Infow("ai providers", "gemini", status.Gemini, "azure", status.Azure, "openrouter", status.OpenRouter)

	authClient := auth.NewClient(cfg.Auth, httpClient)
	if !authClient.Configured() {
		sugar.Warn("identity provider not configured; auth endpoints will fail")
	}
	verifier := auth.NewVerifier(cfg.Auth, authClient)

	store := repo.NewPortfolioRepo(db, cfg.Store)
	portfolioSvc := portfolio.NewService(store, verifier, cfg.Auth.ServiceRoleEnabled(), sugar)

	handler := router.RegisterRoutes(sugar, router.Handlers{
		AI:        ai.NewHandler(aiSvc, cfg.Speech, sugar),
		Auth:      auth.NewHandler(authClient, sugar),
		Portfolio: portfolio.NewHandler(portfolioSvc, sugar),
	}, router.Options{
		PublicDir:      cfg.Server.PublicDir,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sugar.Info("shutting down")

		// give a short grace period for in-flight requests
		doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(doneCtx); err != nil {
			sugar.Warnf("http server shutdown failed: %v", err)
		}
		return nil
	})

	err = g.Wait()
	sugar.Info("goodbye")
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
