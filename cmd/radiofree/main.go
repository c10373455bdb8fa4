// Package main is the radiofree CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"radiofree/internal/core"
	"radiofree/internal/flood"
	"radiofree/internal/history"
	httpserver "radiofree/internal/http"
	"radiofree/internal/i18n"
	"radiofree/internal/library"
	"radiofree/internal/llm"
	"radiofree/internal/lyrics"
	"radiofree/internal/prompts"
	"radiofree/internal/scrobble"
	"radiofree/internal/spotify"
	"radiofree/internal/tui"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "radiofree",
	Short: "RadioFree - terminal Auto-DJ for Spotify",
	Long: `RadioFree is a terminal music-session controller that layers an automated
recommendation loop over Spotify playback. An LLM picks the next track,
the repeat guard keeps the session fresh, and everything stays one
keypress away.`,
	RunE: runSession,
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Run the Spotify OAuth flow and save the token",
	RunE:  runAuth,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the persisted session history",
	RunE:  runHistory,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-path", "./radiofree.log", "log file path")
	rootCmd.PersistentFlags().String("spotify-client-id", "", "Spotify client ID")
	rootCmd.PersistentFlags().String("spotify-client-secret", "", "Spotify client secret")
	rootCmd.PersistentFlags().String("spotify-redirect-url", "", "Spotify OAuth redirect URL")
	rootCmd.PersistentFlags().String("llm-provider", "openai", "LLM provider (openai, anthropic, ollama, none)")
	rootCmd.PersistentFlags().String("llm-model", "", "LLM model name")
	rootCmd.PersistentFlags().String("llm-api-key", "", "LLM API key")
	rootCmd.PersistentFlags().String("prompts-path", "", "JSON file overriding prompt templates")
	rootCmd.PersistentFlags().String("history-path", "./song_history.jsonl", "session history JSONL path")
	rootCmd.PersistentFlags().String("library-path", "./radiofree_library.db", "saved/disliked tracks database")
	rootCmd.PersistentFlags().Int("repeat-window", 8, "history entries a track must clear before re-queueing")
	rootCmd.PersistentFlags().Int("queue-ahead", 2, "auto-queued tracks to keep pending")
	rootCmd.PersistentFlags().Int("chatter-level", 1, "DJ intro frequency (0 never, 1 sometimes, 2 always)")
	rootCmd.PersistentFlags().String("lastfm-api-key", "", "Last.fm API key")
	rootCmd.PersistentFlags().String("lastfm-secret", "", "Last.fm shared secret")
	rootCmd.PersistentFlags().String("lastfm-session-key", "", "Last.fm session key")
	rootCmd.PersistentFlags().Int("server-port", 9100, "metrics server port")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(historyCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(".env")
		viper.SetConfigType("env")
	}

	viper.SetEnvPrefix("RADIOFREE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}

	config = buildConfig()
	logger = buildLogger(&config.Log)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	if url := viper.GetString("spotify-redirect-url"); url != "" {
		cfg.Spotify.RedirectURL = url
	}
	if path := viper.GetString("spotify-token-path"); path != "" {
		cfg.Spotify.TokenPath = path
	}

	cfg.LLM.Provider = viper.GetString("llm-provider")
	cfg.LLM.Model = viper.GetString("llm-model")
	cfg.LLM.APIKey = viper.GetString("llm-api-key")
	cfg.LLM.BaseURL = viper.GetString("llm-base-url")
	cfg.LLM.PromptsPath = viper.GetString("prompts-path")

	if window := viper.GetInt("repeat-window"); window > 0 {
		cfg.AutoDJ.RepeatWindow = window
	}
	if ahead := viper.GetInt("queue-ahead"); ahead > 0 {
		cfg.AutoDJ.QueueAhead = ahead
	}
	cfg.AutoDJ.ChatterLevel = viper.GetInt("chatter-level")

	cfg.History.Path = viper.GetString("history-path")
	cfg.Library.Path = viper.GetString("library-path")

	cfg.Lastfm.APIKey = viper.GetString("lastfm-api-key")
	cfg.Lastfm.Secret = viper.GetString("lastfm-secret")
	cfg.Lastfm.SessionKey = viper.GetString("lastfm-session-key")

	cfg.Server.Port = viper.GetInt("server-port")

	cfg.Log.Level = viper.GetString("log-level")
	if path := viper.GetString("log-path"); path != "" {
		cfg.Log.Path = path
	}

	return cfg
}

// buildLogger writes to a file: the terminal UI owns stdout for the whole
// session.
func buildLogger(logCfg *core.LogConfig) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(logCfg.Level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.OutputPaths = []string{logCfg.Path}
	cfg.ErrorOutputPaths = []string{logCfg.Path}

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func validateConfig() error {
	if config.Spotify.ClientID == "" {
		return fmt.Errorf("spotify client ID is required")
	}
	if config.Spotify.ClientSecret == "" {
		return fmt.Errorf("spotify client secret is required")
	}
	if config.LLM.Provider != "none" && config.LLM.Provider != "ollama" && config.LLM.APIKey == "" {
		return fmt.Errorf("%s API key is required", config.LLM.Provider)
	}
	return nil
}

func runSession(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	defer logger.Sync() //nolint:errcheck

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	logger.Info("Starting RadioFree",
		zap.String("llm_provider", config.LLM.Provider))

	spotifyClient := spotify.NewClient(&config.Spotify, logger.Named("spotify"))
	if err := spotifyClient.Authenticate(ctx); err != nil {
		return fmt.Errorf("failed to authenticate with Spotify: %w", err)
	}

	promptSet, err := prompts.Load(config.LLM.PromptsPath)
	if err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}
	recommender, err := llm.NewProvider(&config.LLM, promptSet, logger.Named("llm"))
	if err != nil {
		return fmt.Errorf("failed to create LLM provider: %w", err)
	}

	historyLog, err := history.Open(config.History.Path, logger.Named("history"))
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	seen := history.NewSeen(10000, 0.001)
	for _, entry := range historyLog.Recent(historyLog.Size()) {
		seen.Add(entry.Track.Label())
	}

	// An empty path disables the library; save and dislike report it as off.
	var lib core.Library
	if config.Library.Path != "" {
		store, err := library.Open(config.Library.Path, logger.Named("library"))
		if err != nil {
			return fmt.Errorf("failed to open library: %w", err)
		}
		defer store.Close()
		lib = store
	}

	lyricsClient := lyrics.NewClient(&config.Lyrics, logger.Named("lyrics"))
	scrobbler := scrobble.NewClient(&config.Lastfm, logger.Named("scrobble"))
	gate := flood.New(config.AutoDJ.CallsPerMinute)
	metricsServer := httpserver.NewServer(&config.Server, logger.Named("http"))

	autodj := core.NewAutoDJ(
		&config.AutoDJ,
		recommender,
		spotifyClient,
		historyLog,
		seen,
		gate,
		metricsServer,
		logger.Named("autodj"),
	)

	session := core.NewSession(config, core.SessionDeps{
		Playback:  spotifyClient,
		History:   historyLog,
		Seen:      seen,
		Lyrics:    lyricsClient,
		Scrobbler: scrobbler,
		Library:   lib,
		Metrics:   metricsServer,
		Localizer: i18n.NewLocalizer(config.UI.Locale),
		AutoDJ:    autodj,
	}, logger.Named("session"))

	app := tui.NewApp(tui.Options{
		Session:  session,
		Playback: spotifyClient,
		Lyrics:   lyricsClient,
		Locale:   config.UI.Locale,
		TickMs:   config.UI.TickMillis,
	}, logger.Named("tui"))

	program := tea.NewProgram(app, tea.WithAltScreen())

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return metricsServer.Start(gCtx)
	})

	g.Go(func() error {
		_, err := program.Run()
		cancel()
		return err
	})

	g.Go(func() error {
		<-gCtx.Done()
		program.Quit()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("RadioFree stopped with error", zap.Error(err))
		return err
	}

	logger.Info("RadioFree stopped gracefully")
	return nil
}

func runAuth(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	spotifyClient := spotify.NewClient(&config.Spotify, logger.Named("spotify"))
	if err := spotifyClient.Authenticate(ctx); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	fmt.Printf("Token saved to %s\n", config.Spotify.TokenPath)
	return nil
}

func runHistory(_ *cobra.Command, _ []string) error {
	historyLog, err := history.Open(config.History.Path, zap.NewNop())
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer historyLog.Close()

	entries := historyLog.Recent(historyLog.Size())
	if len(entries) == 0 {
		fmt.Println("No history yet.")
		return nil
	}

	for _, entry := range entries {
		fmt.Printf("%s  %-7s %-7s %s\n",
			entry.Timestamp.Local().Format(time.DateTime),
			entry.Source,
			entry.Action,
			entry.Track.Label())
	}
	return nil
}
