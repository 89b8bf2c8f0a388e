// Package config handles Aiko configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./aiko.yaml, ~/.config/aiko/config.yaml, /etc/aiko/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"aiko.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "aiko", "config.yaml"))
	}

	paths = append(paths, "/etc/aiko/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
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

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Duration is a time.Duration that unmarshals from YAML strings like
// "2h" or "90s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"2h\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a standard time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds all Aiko configuration.
type Config struct {
	Listen      ListenConfig  `yaml:"listen"`
	Models      ModelsConfig  `yaml:"models"`
	Engine      EngineConfig  `yaml:"engine"`
	Session     SessionConfig `yaml:"session"`
	MQTT        MQTTConfig    `yaml:"mqtt"`
	DataDir     string        `yaml:"data_dir"`
	PersonaFile string        `yaml:"persona_file"`
	LogLevel    string        `yaml:"log_level"`
	LogFormat   string        `yaml:"log_format"` // "text" or "json"
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// ModelsConfig defines the generation model bindings. Text and Vision
// name the models used for the two modalities; both are served through
// the same Ollama-compatible endpoint.
type ModelsConfig struct {
	OllamaURL string `yaml:"ollama_url"`
	Text      string `yaml:"text"`
	Vision    string `yaml:"vision"`
}

// EngineConfig tunes the conversation orchestration engine.
type EngineConfig struct {
	// GapThreshold is the idle duration after which a thread's context
	// is considered stale and reset.
	GapThreshold Duration `yaml:"gap_threshold"`
	// SummarizeThreshold is the message count above which history is
	// compacted into a summary after a turn.
	SummarizeThreshold int `yaml:"summarize_threshold"`
	// KeepRecent is the number of most recent messages preserved when
	// history is compacted.
	KeepRecent int `yaml:"keep_recent"`
	// MaxToolRounds bounds how many tool-call/follow-up cycles a single
	// turn may perform before the engine stops looping.
	MaxToolRounds int `yaml:"max_tool_rounds"`
	// TurnTimeout bounds one complete turn, covering all generation and
	// tool calls. Zero disables the timeout.
	TurnTimeout Duration `yaml:"turn_timeout"`
	// SummaryWordCap is the instructed maximum summary length in words.
	SummaryWordCap int `yaml:"summary_word_cap"`
}

// SessionConfig controls conversation state persistence.
type SessionConfig struct {
	// Persist enables the sqlite-backed session store. When false,
	// conversation state lives in process memory only.
	Persist bool `yaml:"persist"`
}

// MQTTConfig defines the optional operational event publisher.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"` // e.g. mqtt://host:1883 or mqtts://host:8883
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	DeviceName  string `yaml:"device_name"`
}

// Load reads configuration from a YAML file, overlays AIKO_* values
// from the environment, and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a config with all defaults applied and no file loaded.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyEnv overlays values from the process environment, typically
// populated from a .env file at startup. Environment wins over the
// YAML so credentials can stay out of the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("AIKO_MQTT_BROKER"); v != "" {
		c.MQTT.Broker = v
	}
	if v := os.Getenv("AIKO_MQTT_USERNAME"); v != "" {
		c.MQTT.Username = v
	}
	if v := os.Getenv("AIKO_MQTT_PASSWORD"); v != "" {
		c.MQTT.Password = v
	}
	if v := os.Getenv("AIKO_OLLAMA_URL"); v != "" {
		c.Models.OllamaURL = v
	}
}

func (c *Config) applyDefaults() {
	if c.Listen.Port == 0 {
		c.Listen.Port = 8594
	}
	if c.Models.OllamaURL == "" {
		c.Models.OllamaURL = "http://localhost:11434"
	}
	if c.Models.Text == "" {
		c.Models.Text = "llama3.1"
	}
	if c.Models.Vision == "" {
		c.Models.Vision = "llava"
	}
	if c.Engine.GapThreshold == 0 {
		c.Engine.GapThreshold = Duration(2 * time.Hour)
	}
	if c.Engine.SummarizeThreshold == 0 {
		c.Engine.SummarizeThreshold = 16
	}
	if c.Engine.KeepRecent == 0 {
		c.Engine.KeepRecent = 5
	}
	if c.Engine.MaxToolRounds == 0 {
		c.Engine.MaxToolRounds = 8
	}
	if c.Engine.TurnTimeout == 0 {
		c.Engine.TurnTimeout = Duration(2 * time.Minute)
	}
	if c.Engine.SummaryWordCap == 0 {
		c.Engine.SummaryWordCap = 200
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "aiko"
	}
	if c.MQTT.DeviceName == "" {
		c.MQTT.DeviceName = "aiko"
	}
}

func (c *Config) validate() error {
	if c.Engine.KeepRecent < 0 {
		return fmt.Errorf("engine.keep_recent must not be negative")
	}
	if c.Engine.KeepRecent >= c.Engine.SummarizeThreshold {
		return fmt.Errorf("engine.keep_recent (%d) must be below engine.summarize_threshold (%d)",
			c.Engine.KeepRecent, c.Engine.SummarizeThreshold)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.enabled requires mqtt.broker")
	}
	return nil
}

// SessionDBPath returns the sqlite path for the session store.
func (c *Config) SessionDBPath() string {
	return filepath.Join(c.DataDir, "sessions.db")
}

// LyricsDBPath returns the sqlite path for the lyrics cache.
func (c *Config) LyricsDBPath() string {
	return filepath.Join(c.DataDir, "lyrics.db")
}
