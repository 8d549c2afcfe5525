package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const DefaultEnvFile = ".env"

// envSource resolves a variable from the process environment first and the
// dotenv file second.
type envSource struct {
	lookup func(string) (string, bool)
	file   map[string]string
}

func newEnvSource(lookup func(string) (string, bool), envFile string) (envSource, error) {
	src := envSource{lookup: lookup, file: map[string]string{}}
	if envFile == "" {
		return src, nil
	}

	m, err := godotenv.Read(envFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return src, nil
		}
		return src, fmt.Errorf("read %s: %w", envFile, err)
	}
	src.file = m
	return src, nil
}

func (e envSource) get(key string) (string, bool) {
	if e.lookup != nil {
		if v, ok := e.lookup(key); ok && v != "" {
			return v, true
		}
	}
	v, ok := e.file[key]
	return v, ok && v != ""
}

type envParser struct {
	src envSource
	err error
}

func (p *envParser) readString(dst *string, keys ...string) {
	for _, k := range keys {
		if v, ok := p.src.get(k); ok {
			*dst = v
			return
		}
	}
}

func (p *envParser) readInt(dst *int, key string) {
	v, ok := p.src.get(key)
	if !ok || p.err != nil {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = n
}

func (p *envParser) readFloat(dst *float64, key string) {
	v, ok := p.src.get(key)
	if !ok || p.err != nil {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = f
}

func (p *envParser) readBool(dst *bool, key string) {
	v, ok := p.src.get(key)
	if !ok || p.err != nil {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = b
}

func (p *envParser) readDuration(dst *time.Duration, key string) {
	v, ok := p.src.get(key)
	if !ok || p.err != nil {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = d
}

// parseEnv overlays cfg with CIQ_* variables and the well-known provider
// keys.
func parseEnv(cfg *Config, src envSource) error {
	p := &envParser{src: src}

	p.readString(&cfg.DataDir, "CIQ_DATA_DIR")
	p.readString(&cfg.StoreBackend, "CIQ_STORE_BACKEND")

	p.readString(&cfg.ArchiveBackend, "CIQ_ARCHIVE_BACKEND")
	p.readString(&cfg.ArchiveFolder, "CIQ_ARCHIVE_FOLDER")
	p.readString(&cfg.RecordPrefix, "CIQ_RECORD_PREFIX")
	p.readInt(&cfg.ListPageSize, "CIQ_LIST_PAGE_SIZE")
	p.readInt(&cfg.FetchConcurrency, "CIQ_FETCH_CONCURRENCY")
	p.readFloat(&cfg.RemoteRPS, "CIQ_REMOTE_RPS")
	p.readString(&cfg.DriveEndpoint, "CIQ_DRIVE_ENDPOINT")
	p.readString(&cfg.S3Bucket, "CIQ_S3_BUCKET")
	p.readString(&cfg.S3Region, "CIQ_S3_REGION", "AWS_REGION")
	p.readString(&cfg.S3Endpoint, "CIQ_S3_ENDPOINT")
	p.readString(&cfg.S3AccessKey, "CIQ_S3_ACCESS_KEY")
	p.readString(&cfg.S3SecretKey, "CIQ_S3_SECRET_KEY")

	p.readInt(&cfg.HistoryLimit, "CIQ_HISTORY_LIMIT")
	p.readInt(&cfg.SyncWorkers, "CIQ_SYNC_WORKERS")
	p.readInt(&cfg.SyncQueueSize, "CIQ_SYNC_QUEUE_SIZE")

	p.readString(&cfg.GoogleClientID, "GOOGLE_CLIENT_ID")
	p.readString(&cfg.GoogleClientSecret, "GOOGLE_CLIENT_SECRET")
	p.readBool(&cfg.Simulate, "CIQ_SIMULATE")

	p.readString(&cfg.AnalysisBaseURL, "CIQ_ANALYSIS_BASE_URL")
	p.readString(&cfg.AnalysisAPIKey, "CIQ_ANALYSIS_API_KEY", "GEMINI_API_KEY")
	p.readString(&cfg.AnalysisModel, "CIQ_ANALYSIS_MODEL")
	p.readString(&cfg.ImageModel, "CIQ_IMAGE_MODEL")
	p.readDuration(&cfg.RequestTimeout, "CIQ_REQUEST_TIMEOUT")
	p.readBool(&cfg.SearchGrounding, "CIQ_SEARCH_GROUNDING")
	p.readString(&cfg.SearchBaseURL, "CIQ_SEARCH_BASE_URL")

	p.readString(&cfg.LogLevel, "CIQ_LOG_LEVEL")
	p.readString(&cfg.LogFormat, "CIQ_LOG_FORMAT")
	p.readString(&cfg.MetricsAddr, "CIQ_METRICS_ADDR")

	return p.err
}
