package config

import (
	"TrafficParser/internal/logging"
	"TrafficParser/internal/model"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DatabaseConfig selects the store backend by URL scheme.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// ParseConfig holds the ingestion settings.
type ParseConfig struct {
	PcapDir   string `yaml:"pcap_dir"`
	BatchSize int    `yaml:"batch_size"`
	// MaxFramesPerFile caps frames read per capture file; 0 means unlimited.
	MaxFramesPerFile int `yaml:"max_frames_per_file"`
}

// ExportConfig holds the export settings.
type ExportConfig struct {
	Output     string `yaml:"output"`
	Statistics bool   `yaml:"statistics"`
}

// LogConfig holds the logging settings.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// NATSConfig enables record publishing when URL is set.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// ObjectStorageConfig enables export uploads when Endpoint and Bucket are set.
type ObjectStorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Prefix    string `yaml:"prefix"`
}

// APIConfig holds the listen addresses of the serve command.
type APIConfig struct {
	Listen     string `yaml:"listen"`
	GRPCListen string `yaml:"grpc_listen"`
}

// MetricsConfig holds where metrics are dumped on exit.
type MetricsConfig struct {
	File string `yaml:"file"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	Parse         ParseConfig         `yaml:"parse"`
	Export        ExportConfig        `yaml:"export"`
	Log           LogConfig           `yaml:"log"`
	NATS          NATSConfig          `yaml:"nats"`
	ObjectStorage ObjectStorageConfig `yaml:"object_storage"`
	API           APIConfig           `yaml:"api"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{URL: "sqlite:///traffic_data.db"},
		Parse: ParseConfig{
			PcapDir:          "./pcap_files",
			BatchSize:        1000,
			MaxFramesPerFile: 10000,
		},
		Export: ExportConfig{Output: "./traffic_export.json", Statistics: true},
		Log:    LogConfig{Level: "info", MaxSizeMB: 100, MaxBackups: 3},
		NATS:   NATSConfig{Subject: "traffic.records"},
		API:    APIConfig{Listen: ":8080", GRPCListen: ":9090"},
	}
}

// LoadOptions names the sources Load reads.
type LoadOptions struct {
	// File is a YAML config file; empty skips it.
	File string
	// EnvFile is a dotenv file; a missing file is skipped.
	EnvFile string
	// LookupEnv reads the process environment; nil means os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load builds the configuration from defaults, the YAML file, the dotenv file
// and the process environment, each overriding the previous one. The dotenv
// file never modifies the process environment.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, model.NewPathError(model.ErrConfiguration, opts.File, fmt.Errorf("failed to read config file: %w", err))
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, model.NewPathError(model.ErrConfiguration, opts.File, fmt.Errorf("failed to unmarshal config YAML: %w", err))
		}
	}

	dotenv := map[string]string{}
	if opts.EnvFile != "" {
		values, err := godotenv.Read(opts.EnvFile)
		switch {
		case err == nil:
			dotenv = values
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, model.NewPathError(model.ErrConfiguration, opts.EnvFile, err)
		}
	}

	lookupEnv := opts.LookupEnv
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	lookup := func(key string) (string, bool) {
		if v, ok := lookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"DATABASE_URL":     &c.Database.URL,
		"PCAP_DIRECTORY":   &c.Parse.PcapDir,
		"OUTPUT_JSON_FILE": &c.Export.Output,
		"LOG_LEVEL":        &c.Log.Level,
		"LOG_FILE":         &c.Log.File,
		"METRICS_FILE":     &c.Metrics.File,
		"NATS_URL":         &c.NATS.URL,
		"NATS_SUBJECT":     &c.NATS.Subject,
		"S3_ENDPOINT":      &c.ObjectStorage.Endpoint,
		"S3_BUCKET":        &c.ObjectStorage.Bucket,
		"S3_ACCESS_KEY":    &c.ObjectStorage.AccessKey,
		"S3_SECRET_KEY":    &c.ObjectStorage.SecretKey,
		"S3_PREFIX":        &c.ObjectStorage.Prefix,
		"API_LISTEN_ADDR":  &c.API.Listen,
		"GRPC_LISTEN_ADDR": &c.API.GRPCListen,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	ints := map[string]*int{
		"BATCH_SIZE":           &c.Parse.BatchSize,
		"MAX_PACKETS_PER_FILE": &c.Parse.MaxFramesPerFile,
	}
	for key, dst := range ints {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return model.Configurationf("%s=%q is not an integer", key, v)
			}
			*dst = n
		}
	}

	if v, ok := lookup("S3_USE_SSL"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return model.Configurationf("S3_USE_SSL=%q is not a boolean", v)
		}
		c.ObjectStorage.UseSSL = b
	}
	return nil
}

// Validate rejects settings no command can run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return model.Configurationf("database url is empty")
	}
	if c.Parse.BatchSize <= 0 {
		return model.Configurationf("batch size must be positive, got %d", c.Parse.BatchSize)
	}
	if c.Parse.MaxFramesPerFile < 0 {
		return model.Configurationf("max frames per file must not be negative, got %d", c.Parse.MaxFramesPerFile)
	}
	if strings.TrimSpace(c.Export.Output) == "" {
		return model.Configurationf("export output path is empty")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.NATS.URL != "" && c.NATS.Subject == "" {
		return model.Configurationf("nats subject is empty")
	}
	return nil
}

// UploadEnabled reports whether exports should be copied to object storage.
func (c *Config) UploadEnabled() bool {
	return c.ObjectStorage.Endpoint != "" && c.ObjectStorage.Bucket != ""
}
