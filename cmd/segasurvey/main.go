package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/segasurvey/internal/config"
	"github.com/TobiSchelling/segasurvey/internal/database"
	"github.com/TobiSchelling/segasurvey/internal/generate"
	"github.com/TobiSchelling/segasurvey/internal/llm"
	"github.com/TobiSchelling/segasurvey/internal/logger"
	"github.com/TobiSchelling/segasurvey/internal/mixer"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	envFile    string
	cfg        *config.Config
	log        *slog.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "segasurvey",
	Short:   "Human or AI? A Sega lyric survey",
	Long:    "segasurvey serves a blind survey mixing human-written and generated Sega lyrics, and manages the lyric corpus behind it.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnv(envFile); err != nil {
			return err
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			log = logger.New(logger.Config{Level: logger.ParseLevel("info")})
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		level := logger.ParseLevel(cfg.Logging.Level)
		if verbose {
			level = slog.LevelDebug
		}
		log = logger.New(logger.Config{Format: cfg.Logging.Format, Level: level, AddSource: verbose})
		slog.SetDefault(log)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load before reading config")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(mixCmd)
	rootCmd.AddCommand(corpusCmd)
	rootCmd.AddCommand(poolCmd)
}

// loadEnv loads an env file if present. Variables already set win.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("segasurvey", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/segasurvey/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the database, LLM provider, and corpus feeds.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and survey status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s (%s)\n\n", db.Driver(), db.Path())
		fmt.Println("Lyrics:")
		fmt.Printf("  Human corpus: %s\n", humanize.Comma(int64(stats.HumanLyrics)))
		fmt.Printf("  Generated: %s across %s sessions\n", humanize.Comma(int64(stats.AILyrics)), humanize.Comma(int64(stats.AISessions)))
		if stats.LastGenerated != "" {
			if t, err := database.ParseTimestamp(stats.LastGenerated); err == nil {
				fmt.Printf("  Last generated: %s\n", humanize.Time(t))
			}
		}
		fmt.Println("\nSurvey:")
		fmt.Printf("  Sessions: %s\n", humanize.Comma(int64(stats.Sessions)))
		fmt.Printf("  Mixes recorded: %s\n", humanize.Comma(int64(stats.Selections)))
		fmt.Printf("  Votes: %s\n", humanize.Comma(int64(stats.Votes)))
		fmt.Printf("  Devices locked: %s\n", humanize.Comma(int64(stats.LockedIPs)))
		return nil
	},
}

func openDB() (*database.DB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	db, err := database.Open(cfg.Database.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func newMixer(db *database.DB) *mixer.Mixer {
	return mixer.New(db, db, db, mixer.Options{
		Weights:  mixerWeights(cfg.Mixer.Weights),
		WarmPool: cfg.Mixer.WarmPool,
		Rand:     mixer.NewRand(),
		Logger:   log,
	})
}

func newGenerator(db *database.DB) *generate.Generator {
	g := cfg.Generation
	provider := llm.CreateProvider(llm.ProviderConfig{
		Provider:    g.Provider,
		Model:       g.Model,
		OllamaURL:   g.OllamaURL,
		OpenAIModel: g.OpenAIModel,
		APIKeyEnv:   g.APIKeyEnv,
		OrgIDEnv:    g.OrgIDEnv,
		BaseURL:     g.BaseURL,
	}, log)
	return generate.NewGenerator(db, provider, generate.Options{
		Genres:            g.Genres,
		PerSession:        g.PerSession,
		MaxTokens:         g.MaxTokens,
		Temperature:       g.Temperature,
		FrequencyPenalty:  g.FrequencyPenalty,
		RequestsPerSecond: g.RequestsPerSecond,
	}, mixer.NewRand(), log)
}

// mixerWeights overlays the configured scoring table on the defaults.
func mixerWeights(c config.Weights) mixer.Weights {
	w := mixer.DefaultWeights()
	setFloat(&w.AgeProximity, c.AgeProximity)
	setFloat(&w.PopularityFactor, c.PopularityFactor)
	setFloat(&w.CommentsDensityFactor, c.CommentsDensityFactor)
	setFloat(&w.FamiliarityBonus, c.FamiliarityBonus)
	setFloat(&w.SentimentBonus, c.SentimentBonus)
	setFloat(&w.AgeBracketBonus, c.AgeBracketBonus)
	setFloat(&w.Jitter, c.Jitter)
	if c.GenreCap > 0 {
		w.GenreCap = c.GenreCap
	}
	if len(c.TraditionalGenres) > 0 {
		w.TraditionalGenres = c.TraditionalGenres
	}
	if len(c.ModernGenres) > 0 {
		w.ModernGenres = c.ModernGenres
	}
	if len(c.ExperimentalGenres) > 0 {
		w.ExperimentalGenres = c.ExperimentalGenres
	}
	if len(c.AgeBrackets) > 0 {
		w.AgeBrackets = make([]mixer.AgeBracket, len(c.AgeBrackets))
		for i, b := range c.AgeBrackets {
			w.AgeBrackets[i] = mixer.AgeBracket{Min: b.Min, Max: b.Max, Genres: b.Genres}
		}
	}
	return w
}

func setFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}
