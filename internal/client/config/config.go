package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds runtime settings for the ContentIQ CLI.
type Config struct {
	// Local durable store.
	DataDir      string `validate:"required"`
	StoreBackend string `validate:"oneof=sqlite badger"`

	// Remote archive.
	ArchiveBackend   string  `validate:"oneof=drive s3"`
	ArchiveFolder    string  `validate:"required"`
	RecordPrefix     string  `validate:"required"`
	ListPageSize     int     `validate:"min=1,max=1000"`
	FetchConcurrency int     `validate:"min=1,max=64"`
	RemoteRPS        float64 `validate:"gte=0"`
	DriveEndpoint    string  `validate:"omitempty,url"`
	S3Bucket         string  `validate:"required_if=ArchiveBackend s3"`
	S3Region         string
	S3Endpoint       string `validate:"omitempty,url"`
	S3AccessKey      string
	S3SecretKey      string

	// History.
	HistoryLimit  int `validate:"min=1,max=50"`
	SyncWorkers   int `validate:"min=1,max=32"`
	SyncQueueSize int `validate:"min=1"`

	// Authentication. Without a client id the simulated provider is used.
	GoogleClientID     string
	GoogleClientSecret string
	Simulate           bool

	// Analysis provider.
	AnalysisBaseURL string `validate:"required,url"`
	AnalysisAPIKey  string
	AnalysisModel   string        `validate:"required"`
	ImageModel      string        `validate:"required"`
	RequestTimeout  time.Duration `validate:"gt=0"`

	// Google Search grounding for YouTube analyses, served by the native
	// Gemini API at SearchBaseURL.
	SearchGrounding bool
	SearchBaseURL   string `validate:"omitempty,url"`

	LogLevel    string `validate:"oneof=debug info warn error"`
	LogFormat   string `validate:"oneof=auto text json"`
	MetricsAddr string `validate:"omitempty,hostname_port"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = "contentiq-data"
	c.StoreBackend = "sqlite"

	c.ArchiveBackend = "drive"
	c.ArchiveFolder = "ContentIQ_Archive"
	c.RecordPrefix = "CIQ_LOG_"
	c.ListPageSize = 50
	c.FetchConcurrency = 8
	c.RemoteRPS = 10
	c.S3Region = "us-east-1"

	c.HistoryLimit = 50
	c.SyncWorkers = 2
	c.SyncQueueSize = 64

	c.AnalysisBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	c.AnalysisModel = "gemini-2.5-flash"
	c.ImageModel = "imagen-3.0-generate-002"
	c.RequestTimeout = 2 * time.Minute
	c.SearchGrounding = true
	c.SearchBaseURL = "https://generativelanguage.googleapis.com/"

	c.LogLevel = "info"
	c.LogFormat = "auto"
}

// UseSimulatedAuth reports whether logins should fabricate credentials
// instead of running the Google device flow.
func (c *Config) UseSimulatedAuth() bool {
	return c.Simulate || c.GoogleClientID == ""
}

func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadConfig builds a Config from the process environment and command line.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:], os.LookupEnv, DefaultEnvFile)
}

// Load applies defaults, then envFile (missing is fine), then lookupEnv,
// then the JSON file named by -c/-config, then flags, and validates the
// result. Later sources take precedence over earlier ones.
func Load(args []string, lookupEnv func(string) (string, bool), envFile string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	env, err := newEnvSource(lookupEnv, envFile)
	if err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, env); err != nil {
		return nil, err
	}
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
