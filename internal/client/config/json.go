package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/contentiq/internal/flagx"
	"github.com/dmitrijs2005/contentiq/internal/timex"
)

// JSONConfig is a DTO used exclusively for JSON unmarshalling. Absent keys
// leave the current value alone.
type JSONConfig struct {
	DataDir          string         `json:"data_dir"`
	StoreBackend     string         `json:"store_backend"`
	ArchiveBackend   string         `json:"archive_backend"`
	ArchiveFolder    string         `json:"archive_folder"`
	RecordPrefix     string         `json:"record_prefix"`
	ListPageSize     int            `json:"list_page_size"`
	FetchConcurrency int            `json:"fetch_concurrency"`
	RemoteRPS        float64        `json:"remote_rps"`
	DriveEndpoint    string         `json:"drive_endpoint"`
	S3Bucket         string         `json:"s3_bucket"`
	S3Region         string         `json:"s3_region"`
	S3Endpoint       string         `json:"s3_endpoint"`
	HistoryLimit     int            `json:"history_limit"`
	SyncWorkers      int            `json:"sync_workers"`
	SyncQueueSize    int            `json:"sync_queue_size"`
	GoogleClientID   string         `json:"google_client_id"`
	Simulate         *bool          `json:"simulate"`
	AnalysisBaseURL  string         `json:"analysis_base_url"`
	AnalysisModel    string         `json:"analysis_model"`
	ImageModel       string         `json:"image_model"`
	RequestTimeout   timex.Duration `json:"request_timeout"`
	SearchGrounding  *bool          `json:"search_grounding"`
	SearchBaseURL    string         `json:"search_base_url"`
	LogLevel         string         `json:"log_level"`
	LogFormat        string         `json:"log_format"`
	MetricsAddr      string         `json:"metrics_addr"`
}

func setStr(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// parseJSON overlays cfg with the file named by -c / -config, if any.
// Secrets are deliberately not read from JSON; use the environment.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.JSONConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var jc JSONConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setStr(&cfg.DataDir, jc.DataDir)
	setStr(&cfg.StoreBackend, jc.StoreBackend)
	setStr(&cfg.ArchiveBackend, jc.ArchiveBackend)
	setStr(&cfg.ArchiveFolder, jc.ArchiveFolder)
	setStr(&cfg.RecordPrefix, jc.RecordPrefix)
	setInt(&cfg.ListPageSize, jc.ListPageSize)
	setInt(&cfg.FetchConcurrency, jc.FetchConcurrency)
	if jc.RemoteRPS != 0 {
		cfg.RemoteRPS = jc.RemoteRPS
	}
	setStr(&cfg.DriveEndpoint, jc.DriveEndpoint)
	setStr(&cfg.S3Bucket, jc.S3Bucket)
	setStr(&cfg.S3Region, jc.S3Region)
	setStr(&cfg.S3Endpoint, jc.S3Endpoint)
	setInt(&cfg.HistoryLimit, jc.HistoryLimit)
	setInt(&cfg.SyncWorkers, jc.SyncWorkers)
	setInt(&cfg.SyncQueueSize, jc.SyncQueueSize)
	setStr(&cfg.GoogleClientID, jc.GoogleClientID)
	if jc.Simulate != nil {
		cfg.Simulate = *jc.Simulate
	}
	setStr(&cfg.AnalysisBaseURL, jc.AnalysisBaseURL)
	setStr(&cfg.AnalysisModel, jc.AnalysisModel)
	setStr(&cfg.ImageModel, jc.ImageModel)
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.SearchGrounding != nil {
		cfg.SearchGrounding = *jc.SearchGrounding
	}
	setStr(&cfg.SearchBaseURL, jc.SearchBaseURL)
	setStr(&cfg.LogLevel, jc.LogLevel)
	setStr(&cfg.LogFormat, jc.LogFormat)
	setStr(&cfg.MetricsAddr, jc.MetricsAddr)

	return nil
}
