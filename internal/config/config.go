// Package config handles Stratagem configuration loading.
//
// Configuration comes from three layers, lowest precedence first: built-in
// defaults, an optional YAML file, and the process environment (including a
// .env file in the working directory). Provider credentials are required;
// [Config.Validate] reports every missing one at once.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider names accepted in the model and search sections.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"

	SearchTavily  = "tavily"
	SearchBrave   = "brave"
	SearchSearXNG = "searxng"
)

// Defaults applied when the corresponding field is unset.
const (
	DefaultPort          = 8501
	DefaultTemperature   = 0.1
	DefaultMaxToolRounds = 5
	DefaultSearchDepth   = "advanced"
	DefaultQuoteBaseURL  = "https://query2.finance.yahoo.com"
)

// defaultModels maps each model provider to the model used when none is
// configured.
var defaultModels = map[string]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-3-5-haiku-latest",
	ProviderGemini:    "gemini-2.0-flash",
}

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/stratagem/config.yaml, /etc/stratagem/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "stratagem", "config.yaml"))
	}

	paths = append(paths, "/etc/stratagem/config.yaml")
	return paths
}

// ErrNoConfigFile is returned by [FindConfig] when no file exists on any
// search path.
var ErrNoConfigFile = errors.New("no config file found")

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("%w (searched: %v)", ErrNoConfigFile, DefaultSearchPaths())
}

// Config holds all Stratagem configuration.
type Config struct {
	Listen    ListenConfig `yaml:"listen"`
	Model     ModelConfig  `yaml:"model"`
	Search    SearchConfig `yaml:"search"`
	Quote     QuoteConfig  `yaml:"quote"`
	LogLevel  string       `yaml:"log_level"`
	LogFormat string       `yaml:"log_format"` // text (default) or json
}

// ListenConfig defines the dashboard server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// ModelConfig selects the hosted model that drives the agent loop.
type ModelConfig struct {
	Provider    string  `yaml:"provider"` // openai, anthropic, gemini
	Name        string  `yaml:"name"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"` // OpenAI-compatible endpoint override
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	// MaxToolRounds bounds how many times the model may ask for tools
	// before it is required to answer.
	MaxToolRounds int `yaml:"max_tool_rounds"`
}

// SearchConfig selects the web search provider.
type SearchConfig struct {
	Provider string        `yaml:"provider"` // tavily, brave, searxng
	Depth    string        `yaml:"depth"`    // basic or advanced
	Tavily   TavilyConfig  `yaml:"tavily"`
	Brave    BraveConfig   `yaml:"brave"`
	SearXNG  SearXNGConfig `yaml:"searxng"`
}

// TavilyConfig holds Tavily API settings.
type TavilyConfig struct {
	APIKey string `yaml:"api_key"`
}

// BraveConfig holds Brave Search API settings.
type BraveConfig struct {
	APIKey string `yaml:"api_key"`
}

// SearXNGConfig points at a self-hosted SearXNG instance.
type SearXNGConfig struct {
	URL string `yaml:"url"`
}

// QuoteConfig configures the market data provider.
type QuoteConfig struct {
	BaseURL string `yaml:"base_url"`
}

// Load reads configuration from a YAML file, expanding ${VAR} references,
// then layers environment fallbacks and defaults on top.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// Resolve loads the config file named by explicit, or the first one found
// on the search path. When no file exists and none was named, it returns
// [Default] so the program can run from environment variables alone.
// The returned path is empty in that case.
func Resolve(explicit string) (*Config, string, error) {
	path, err := FindConfig(explicit)
	if err != nil {
		if explicit == "" && errors.Is(err, ErrNoConfigFile) {
			return Default(), "", nil
		}
		return nil, "", err
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Default returns a configuration built only from defaults and the
// environment.
func Default() *Config {
	cfg := &Config{}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg
}

// LoadDotEnv loads KEY=VALUE pairs from the named files (".env" when none
// are given) into the process environment. Variables that are already set
// win. Missing files are not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// applyEnv fills empty credentials and endpoints from well-known
// environment variables.
func (c *Config) applyEnv() {
	c.Model.Provider = strings.ToLower(strings.TrimSpace(c.Model.Provider))
	if c.Model.Provider == "" {
		c.Model.Provider = ProviderOpenAI
	}
	if c.Model.APIKey == "" {
		c.Model.APIKey = os.Getenv(ModelKeyEnv(c.Model.Provider))
	}

	c.Search.Provider = strings.ToLower(strings.TrimSpace(c.Search.Provider))
	if c.Search.Provider == "" {
		c.Search.Provider = SearchTavily
	}
	if c.Search.Tavily.APIKey == "" {
		c.Search.Tavily.APIKey = os.Getenv("TAVILY_API_KEY")
	}
	if c.Search.Brave.APIKey == "" {
		c.Search.Brave.APIKey = os.Getenv("BRAVE_API_KEY")
	}
	if c.Search.SearXNG.URL == "" {
		c.Search.SearXNG.URL = os.Getenv("SEARXNG_URL")
	}
}

func (c *Config) applyDefaults() {
	if c.Listen.Port == 0 {
		c.Listen.Port = DefaultPort
	}
	if c.Model.Name == "" {
		c.Model.Name = defaultModels[c.Model.Provider]
	}
	if c.Model.Temperature == 0 {
		c.Model.Temperature = DefaultTemperature
	}
	if c.Model.MaxToolRounds == 0 {
		c.Model.MaxToolRounds = DefaultMaxToolRounds
	}
	if c.Model.MaxTokens == 0 {
		c.Model.MaxTokens = 4096
	}
	if c.Search.Depth == "" {
		c.Search.Depth = DefaultSearchDepth
	}
	if c.Quote.BaseURL == "" {
		c.Quote.BaseURL = DefaultQuoteBaseURL
	}
}

// ModelKeyEnv returns the environment variable that supplies the API key
// for a model provider.
func ModelKeyEnv(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

// searchCredential returns the setting the selected search provider cannot
// run without, and the environment variable naming it.
func (c *Config) searchCredential() (value, env string) {
	switch c.Search.Provider {
	case SearchBrave:
		return c.Search.Brave.APIKey, "BRAVE_API_KEY"
	case SearchSearXNG:
		return c.Search.SearXNG.URL, "SEARXNG_URL"
	default:
		return c.Search.Tavily.APIKey, "TAVILY_API_KEY"
	}
}

// Validate checks that the configuration is usable. Missing credentials are
// reported as a single [*MissingKeysError]; other problems are returned as
// plain errors.
func (c *Config) Validate() error {
	if _, ok := defaultModels[c.Model.Provider]; !ok {
		return fmt.Errorf("unknown model provider %q (valid: openai, anthropic, gemini)", c.Model.Provider)
	}
	switch c.Search.Provider {
	case SearchTavily, SearchBrave, SearchSearXNG:
	default:
		return fmt.Errorf("unknown search provider %q (valid: tavily, brave, searxng)", c.Search.Provider)
	}
	if c.Model.MaxToolRounds < 0 {
		return fmt.Errorf("model.max_tool_rounds must not be negative, got %d", c.Model.MaxToolRounds)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := ParseLogFormat(c.LogFormat); err != nil {
		return err
	}

	var missing []string
	if strings.TrimSpace(c.Model.APIKey) == "" {
		missing = append(missing, ModelKeyEnv(c.Model.Provider))
	}
	if v, env := c.searchCredential(); strings.TrimSpace(v) == "" {
		missing = append(missing, env)
	}
	if len(missing) > 0 {
		return &MissingKeysError{Missing: missing}
	}
	return nil
}

// MissingKeysMessage is the operator-facing text shown when required
// credentials are absent.
const MissingKeysMessage = "🚨 Missing API Keys! Please check your .env file."

// MissingKeysError reports required credentials that were not configured.
type MissingKeysError struct {
	Missing []string
}

func (e *MissingKeysError) Error() string {
	return fmt.Sprintf("%s (missing: %s)", MissingKeysMessage, strings.Join(e.Missing, ", "))
}
