// Command napfox runs the sleep-schedule assistant API.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/napfox-dev/napfox/internal/knowledge"
	"github.com/napfox-dev/napfox/internal/llm"
	"github.com/napfox-dev/napfox/internal/observability"
	"github.com/napfox-dev/napfox/internal/pipeline"
	"github.com/napfox-dev/napfox/internal/schedule"
	"github.com/napfox-dev/napfox/internal/server"
	"github.com/napfox-dev/napfox/internal/session"
	"github.com/napfox-dev/napfox/pkg/config"
	metrics "github.com/napfox-dev/napfox/pkg/observability"
	"github.com/napfox-dev/napfox/pkg/security"
)

var version = "dev"

func main() {
	// A missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "napfox",
		Short:         "Conversational sleep-schedule assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), validateCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		log.Fatalf("napfox: %v", err)
	}
}

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the turn API and metrics servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	return cmd
}

func serve(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := observability.InitFromEnv(); err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := observability.Shutdown(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()
	metrics.InitMetrics()

	fast, quality, err := buildCompleters(ctx, cfg)
	if err != nil {
		return err
	}

	kb := knowledge.Default()
	if cfg.KnowledgePath != "" {
		kb, err = knowledge.Load(cfg.KnowledgePath)
		if err != nil {
			return err
		}
	}

	store, err := buildStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("session store close: %v", err)
		}
	}()

	var limiter *security.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = security.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	p := pipeline.New(fast, quality, kb, pipeline.Config{
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	api := server.New(p, store, limiter, server.Config{
		ListenAddr:      cfg.Server.ListenAddr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	obs := metrics.NewServer(cfg.Server.MetricsAddr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.Start(gctx)
	})
	g.Go(func() error {
		log.Printf("metrics server listening on %s", cfg.Server.MetricsAddr)
		return obs.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return obs.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func buildCompleters(ctx context.Context, cfg *config.Config) (fast, quality llm.Completer, err error) {
	switch cfg.Provider {
	case "openai":
		fast, err = llm.NewOpenAICompleter(cfg.OpenAIKey, cfg.FastModel)
		if err != nil {
			return nil, nil, err
		}
		quality, err = llm.NewOpenAICompleter(cfg.OpenAIKey, cfg.QualityModel)
		if err != nil {
			return nil, nil, err
		}
	case "gemini":
		fast, err = llm.NewGeminiCompleter(ctx, cfg.GeminiKey, cfg.FastModel)
		if err != nil {
			return nil, nil, err
		}
		quality, err = llm.NewGeminiCompleter(ctx, cfg.GeminiKey, cfg.QualityModel)
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
	return fast, quality, nil
}

func buildStore(cfg *config.Config) (session.Store, error) {
	if cfg.Session.Backend == "redis" {
		return session.NewRedisStore(session.RedisConfig{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
			TTL:      cfg.Session.TTL,
		})
	}
	return session.NewMemoryStore(cfg.Session.TTL), nil
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a schedule markdown file against the structural rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			issues := schedule.Validate(string(data))
			if len(issues) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schedule is valid")
				return nil
			}
			for _, issue := range issues {
				fmt.Fprintf(cmd.OutOrStdout(), "- %s\n", issue.Message)
			}
			return fmt.Errorf("%d issue(s) found", len(issues))
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "napfox %s\n", version)
		},
	}
}
