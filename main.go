package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"assistant/config"
	"assistant/controllers"
	"assistant/services"
	"assistant/utils"
)

const shutdownTimeout = 10 * time.Second

// Options holds the command line overrides
type Options struct {
	Port          string
	EnvFiles      []string
	EnableDiscord bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		klog.Flush()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	defer klog.Flush()

	var opt Options
	rootCmd := &cobra.Command{
		Use:          "assistant",
		Short:        "HTTP assistant that answers chat and search requests with Gemini",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opt)
		},
	}
	rootCmd.Flags().StringVar(&opt.Port, "port", "", "port to listen on (overrides PORT)")
	rootCmd.Flags().StringSliceVar(&opt.EnvFiles, "env-file", nil, "env files to load (default .env, .env.local, config/.env)")
	rootCmd.Flags().BoolVar(&opt.EnableDiscord, "enable-discord", true, "start the Discord bot when DISCORD_BOT_TOKEN is set")
	rootCmd.PersistentFlags().AddGoFlag(klogFlags.Lookup("v"))
	rootCmd.PersistentFlags().AddGoFlag(klogFlags.Lookup("logtostderr"))

	redirectStdLogToKlog()

	return rootCmd.ExecuteContext(ctx)
}

func serve(ctx context.Context, opt Options) error {
	if err := utils.LoadEnvWithFallback(opt.EnvFiles...); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if opt.Port != "" {
		cfg.Port = opt.Port
	}

	gemini, err := services.NewGeminiService(ctx, cfg.APIKey, cfg.ChatModel, cfg.VisionModel)
	if err != nil {
		return err
	}
	defer gemini.Close()

	direct := services.NewDirectClient(cfg.APIKey, cfg.APIURL, cfg.DirectModel, cfg.HTTPTimeout)
	sessions := services.NewSessionStore(gemini, cfg.MaxHistoryLength, cfg.SessionScope, cfg.SessionTTL)
	responder := services.NewResponder(direct, sessions, services.NewImageAnalyzer(gemini))
	searcher := services.NewSearchFormatter(gemini, cfg.SearchCacheTTL, cfg.SearchStrictEmoji)

	limiter := services.NewRateLimiter(cfg.RateLimitPerMinute)
	limiter.StartCleanup(ctx, cfg.RateLimitIdleTTL)

	var discordToken string
	if opt.EnableDiscord {
		discordToken = cfg.DiscordToken
	}
	discord := services.NewDiscordService(discordToken, cfg.DiscordCommandPrefix, responder, searcher, limiter)

	controller := controllers.NewController(controllers.Options{
		Generator: responder,
		Searcher:  searcher,
		Limiter:   limiter,
		ClientKey: controllers.NewClientKeyFunc(cfg.ClientKeyStrategy, cfg.ClientKeyHeader),
		Reporters: map[string]controllers.StatusReporter{
			"gemini":   gemini,
			"direct":   direct,
			"sessions": sessions,
			"search":   searcher,
			"discord":  discord,
		},
		FrontendDir: cfg.FrontendDir,
	})

	router := mux.NewRouter()
	controller.RegisterRoutes(router)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		klog.Infof("Server starting on %s", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		klog.Infof("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := discord.Stop(); err != nil {
			klog.Warningf("Error stopping Discord service: %v", err)
		}
		return server.Shutdown(shutdownCtx)
	})
	if discord.IsEnabled() {
		g.Go(func() error {
			// the HTTP API keeps serving; /health reports the failure
			if err := discord.Start(); err != nil {
				klog.Errorf("Discord bot not started: %v", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// redirectStdLogToKlog sends third-party std log output through klog
func redirectStdLogToKlog() {
	log.SetOutput(klogWriter{})
	log.SetFlags(0)
}

type klogWriter struct{}

func (writer klogWriter) Write(data []byte) (n int, err error) {
	klog.Warning(string(bytes.TrimSuffix(data, []byte("\n"))))
	return len(data), nil
}
