package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Feed names one RSS source.
type Feed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Config is the process-wide configuration loaded from YAML. Credentials stay
// out of the file: the LLM key is read from the environment variable named by
// llm.api_key_env.
type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	Feeds  []Feed `yaml:"feeds"`
	Ingest struct {
		PerFeedLimit int `yaml:"per_feed_limit"`
	} `yaml:"ingest"`
	Process struct {
		BatchLimit int `yaml:"batch_limit"`
	} `yaml:"process"`
	Poll struct {
		Enabled         bool `yaml:"enabled"`
		IntervalSeconds int  `yaml:"interval_seconds"`
	} `yaml:"poll"`
	LLM struct {
		Provider    string  `yaml:"provider"` // GEMINI, OPENAI or NOOP
		Model       string  `yaml:"model"`
		APIKeyEnv   string  `yaml:"api_key_env"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float32 `yaml:"temperature"`
	} `yaml:"llm"`
}

// DefaultFeeds lists the financial news sources ingested when the config file
// names none.
var DefaultFeeds = []Feed{
	{Name: "reuters_business", URL: "https://feeds.reuters.com/reuters/businessNews"},
	{Name: "yahoo_finance", URL: "https://feeds.finance.yahoo.com/rss/2.0/headline"},
	{Name: "cnbc", URL: "https://feeds.cnbc.com/cnbc/financialnews/"},
	{Name: "bloomberg", URL: "https://feeds.bloomberg.com/markets/news.rss"},
	{Name: "seeking_alpha", URL: "https://seekingalpha.com/feed.xml"},
}

func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "GEMINI", "OPENAI", "NOOP":
	default:
		return fmt.Errorf("invalid llm.provider '%s': must be 'GEMINI', 'OPENAI' or 'NOOP'", c.LLM.Provider)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn cannot be empty")
	}
	if c.Poll.Enabled && c.Poll.IntervalSeconds <= 0 {
		return fmt.Errorf("poll.interval_seconds must be positive when polling is enabled, got %d", c.Poll.IntervalSeconds)
	}
	if c.Ingest.PerFeedLimit <= 0 {
		return fmt.Errorf("ingest.per_feed_limit must be positive, got %d", c.Ingest.PerFeedLimit)
	}
	if c.Process.BatchLimit <= 0 {
		return fmt.Errorf("process.batch_limit must be positive, got %d", c.Process.BatchLimit)
	}
	return nil
}

// LoadConfig reads, defaults and validates the YAML config at path.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if len(c.Feeds) == 0 {
		c.Feeds = DefaultFeeds
	}
	if c.Ingest.PerFeedLimit == 0 {
		c.Ingest.PerFeedLimit = 10
	}
	if c.Process.BatchLimit == 0 {
		c.Process.BatchLimit = 10
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "GEMINI"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gemini-pro"
	}
	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = "GENAI_API_KEY"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 500
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.3
	}
	if c.Poll.Enabled && c.Poll.IntervalSeconds == 0 {
		c.Poll.IntervalSeconds = 900
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
