package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Database   Database   `yaml:"database"`
	Server     Server     `yaml:"server"`
	Logging    Logging    `yaml:"logging"`
	Generation Generation `yaml:"generation"`
	Mixer      Mixer      `yaml:"mixer"`
	Survey     Survey     `yaml:"survey"`
	Corpus     Corpus     `yaml:"corpus"`
}

type Database struct {
	// Driver is "sqlite" or "postgres".
	Driver  string `yaml:"driver"`
	DataDir string `yaml:"data_dir"`
	// URLEnv names the environment variable holding the postgres DSN.
	URLEnv string `yaml:"url_env"`
}

type Server struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// RequestsPerMinute limits generation triggers per client IP.
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Generation struct {
	Provider          string   `yaml:"provider"`
	Model             string   `yaml:"model"`
	OllamaURL         string   `yaml:"ollama_url"`
	OpenAIModel       string   `yaml:"openai_model"`
	BaseURL           string   `yaml:"base_url"`
	APIKeyEnv         string   `yaml:"api_key_env"`
	OrgIDEnv          string   `yaml:"org_id_env"`
	MaxTokens         int      `yaml:"max_tokens"`
	Temperature       float64  `yaml:"temperature"`
	FrequencyPenalty  float64  `yaml:"frequency_penalty"`
	Genres            []string `yaml:"genres"`
	PerSession        int      `yaml:"per_session"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
	Workers           int      `yaml:"workers"`
	QueueSize         int      `yaml:"queue_size"`
}

type Mixer struct {
	WarmPool bool    `yaml:"warm_pool"`
	Weights  Weights `yaml:"weights"`
}

// Weights mirrors mixer.Weights so the scoring table can live in YAML.
type Weights struct {
	AgeProximity          float64   `yaml:"age_proximity"`
	PopularityFactor      float64   `yaml:"popularity_factor"`
	CommentsDensityFactor float64   `yaml:"comments_density_factor"`
	FamiliarityBonus      float64   `yaml:"familiarity_bonus"`
	SentimentBonus        float64   `yaml:"sentiment_bonus"`
	AgeBracketBonus       float64   `yaml:"age_bracket_bonus"`
	Jitter                float64   `yaml:"jitter"`
	GenreCap              int       `yaml:"genre_cap"`
	TraditionalGenres     []string  `yaml:"traditional_genres"`
	ModernGenres          []string  `yaml:"modern_genres"`
	ExperimentalGenres    []string  `yaml:"experimental_genres"`
	AgeBrackets           []Bracket `yaml:"age_brackets"`
}

// Bracket is an inclusive age range; Max of 0 means unbounded.
type Bracket struct {
	Min    int      `yaml:"min"`
	Max    int      `yaml:"max"`
	Genres []string `yaml:"genres"`
}

type Survey struct {
	WhitelistIPs     []string      `yaml:"whitelist_ips"`
	OpinionWordLimit int           `yaml:"opinion_word_limit"`
	WaitInterval     time.Duration `yaml:"wait_interval"`
	WaitAttempts     int           `yaml:"wait_attempts"`
}

type Corpus struct {
	Feeds []Feed `yaml:"feeds"`
	// MinLength is the shortest item body kept without fetching the linked page.
	MinLength int `yaml:"min_length"`
}

type Feed struct {
	URL   string `yaml:"url"`
	Name  string `yaml:"name"`
	Genre string `yaml:"genre"`
}

// ConfigDir returns the XDG config directory for segasurvey.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "segasurvey")
}

// DataDir returns the XDG data directory for segasurvey.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "segasurvey")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/segasurvey/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'segasurvey init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Database: Database{
			Driver: "sqlite",
			URLEnv: "DATABASE_URL",
		},
		Server: Server{
			Host:              "127.0.0.1",
			Port:              8000,
			AllowedOrigins:    []string{"*"},
			RequestsPerMinute: 10,
		},
		Logging: Logging{Level: "INFO", Format: "text"},
		Generation: Generation{
			Provider:          "openai",
			Model:             "qwen2.5:7b",
			OllamaURL:         "http://localhost:11434",
			OpenAIModel:       "gpt-4o-mini",
			APIKeyEnv:         "OPENAI_API_KEY",
			OrgIDEnv:          "OPENAI_ORG_ID",
			MaxTokens:         1200,
			Temperature:       0.85,
			FrequencyPenalty:  0.3,
			Genres:            []string{"politics", "engager", "romance", "celebration", "tipik", "seggae", "hotel", "modern"},
			PerSession:        5,
			RequestsPerSecond: 2,
			Workers:           2,
			QueueSize:         64,
		},
		Mixer: Mixer{
			WarmPool: true,
			Weights: Weights{
				AgeProximity:          10,
				PopularityFactor:      2,
				CommentsDensityFactor: 1.5,
				FamiliarityBonus:      15,
				SentimentBonus:        10,
				AgeBracketBonus:       12,
				Jitter:                5,
				GenreCap:              3,
				TraditionalGenres:     []string{"tipik", "traditional"},
				ModernGenres:          []string{"engager", "celebration", "modern"},
				ExperimentalGenres:    []string{"engager", "modern"},
				AgeBrackets: []Bracket{
					{Min: 18, Max: 30, Genres: []string{"modern", "engager"}},
					{Min: 40, Max: 59, Genres: []string{"hotel"}},
					{Min: 60, Max: 0, Genres: []string{"tipik"}},
				},
			},
		},
		Survey: Survey{
			OpinionWordLimit: 200,
			WaitInterval:     2 * time.Second,
			WaitAttempts:     30,
		},
		Corpus: Corpus{MinLength: 200},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Database.Driver != "sqlite" && cfg.Database.Driver != "postgres" {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Database.DataDir != "" {
		return c.Database.DataDir
	}
	return DataDir()
}

// DSN returns the data source name for the configured driver.
func (c *Config) DSN() (string, error) {
	if c.Database.Driver == "postgres" {
		url := os.Getenv(c.Database.URLEnv)
		if url == "" {
			return "", fmt.Errorf("postgres driver selected but %s is not set", c.Database.URLEnv)
		}
		return url, nil
	}
	return filepath.Join(c.GetDataDir(), "segasurvey.db"), nil
}

// Addr returns host:port for the HTTP server.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
