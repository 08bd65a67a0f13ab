package config

import (
	"fmt"
	"strings"
)

// EmbeddedConfig holds the raw bytes of the YAML configuration compiled into the binary.
type EmbeddedConfig []byte

// LogLevel names a logging level accepted in configuration.
type LogLevel string

const (
	LogLevelDebug  LogLevel = "DEBUG"
	LogLevelInfo   LogLevel = "INFO"
	LogLevelWarn   LogLevel = "WARN"
	LogLevelError  LogLevel = "ERROR"
	LogLevelSilent LogLevel = "SILENT"
)

// PublishMode controls where tables are written during a run.
type PublishMode string

const (
	// PublishModeStaged writes every table under a per-run staging prefix and publishes them
	// into the live locations only after all steps succeed.
	PublishModeStaged PublishMode = "staged"
	// PublishModeDirect overwrites the live locations as each step finishes.
	PublishModeDirect PublishMode = "direct"
)

// Repository types accepted by InfrastructureConfig.JobRepositoryType.
const (
	JobRepositoryInMemory = "inmemory"
	JobRepositorySQL      = "sql"
)

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR.
	Level string `yaml:"level"`
}

// SystemConfig holds process-wide settings.
type SystemConfig struct {
	// Timezone is the IANA zone used to derive calendar fields from event timestamps.
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

// TablesConfig holds the path suffix of each output table below the output base.
type TablesConfig struct {
	Songs     string `yaml:"songs"`
	Artists   string `yaml:"artists"`
	Users     string `yaml:"users"`
	Time      string `yaml:"time"`
	Songplays string `yaml:"songplays"`
}

// PipelineConfig holds the settings of the songplays job.
type PipelineConfig struct {
	JobName string `yaml:"job_name"`
	// InputBase is the location holding the song and log datasets (e.g. "s3a://udacity-dend/", "/data/in").
	InputBase string `yaml:"input_base"`
	// OutputBase is the location receiving the five tables.
	OutputBase   string `yaml:"output_base"`
	SongDataPath string `yaml:"song_data_path"`
	LogDataPath  string `yaml:"log_data_path"`
	// StagingDir is the prefix under OutputBase used in staged mode.
	StagingDir      string       `yaml:"staging_dir"`
	Tables          TablesConfig `yaml:"tables"`
	CompressionType string       `yaml:"compression_type"`
	PublishMode     PublishMode  `yaml:"publish_mode"`
	// DedupeDimensions collapses artists and users to one row per key.
	DedupeDimensions bool `yaml:"dedupe_dimensions"`
	// SequentialExtract runs the catalog and event steps one after the other instead of concurrently.
	SequentialExtract bool `yaml:"sequential_extract"`
	// ReadConcurrency bounds parallel object downloads per dataset.
	ReadConcurrency int `yaml:"read_concurrency"`
}

// InfrastructureConfig selects the run metadata store.
type InfrastructureConfig struct {
	JobRepositoryType string `yaml:"job_repository_type"`
	// JobRepositoryDBRef names the adapter.database entry used when the type is "sql".
	JobRepositoryDBRef string `yaml:"job_repository_db_ref"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// PushgatewayURL, when set, receives the registry at the end of the run.
	PushgatewayURL string `yaml:"pushgateway_url"`
	PushJobName    string `yaml:"push_job_name"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// SongplaysConfig holds everything under the "songplays" top-level key.
type SongplaysConfig struct {
	System         SystemConfig         `yaml:"system"`
	Pipeline       PipelineConfig       `yaml:"pipeline"`
	Infrastructure InfrastructureConfig `yaml:"infrastructure"`
	Metrics        MetricsConfig        `yaml:"metrics"`
	Tracing        TracingConfig        `yaml:"tracing"`
	// AdapterConfigs holds raw adapter settings keyed by kind ("storage", "database") and then by name.
	AdapterConfigs map[string]interface{} `yaml:"adapter"`
}

// Config is the root of the application configuration.
type Config struct {
	Songplays SongplaysConfig `yaml:"songplays"`
	// Settings holds the KEY=VALUE pairs read from the local settings file.
	Settings map[string]string `yaml:"-"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Songplays: SongplaysConfig{
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: string(LogLevelInfo)},
			},
			Pipeline: PipelineConfig{
				JobName:      "songplaysJob",
				SongDataPath: "song_data",
				LogDataPath:  "log_data",
				StagingDir:   "_staging",
				Tables: TablesConfig{
					Songs:     "songs_data",
					Artists:   "artists_table",
					Users:     "users_table",
					Time:      "time_table",
					Songplays: "songplays_table",
				},
				CompressionType: "SNAPPY",
				PublishMode:     PublishModeStaged,
				ReadConcurrency: 8,
			},
			Infrastructure: InfrastructureConfig{
				JobRepositoryType:  JobRepositoryInMemory,
				JobRepositoryDBRef: "metadata",
			},
			Metrics: MetricsConfig{
				Enabled:     true,
				PushJobName: "songplays",
			},
			Tracing: TracingConfig{
				ServiceName: "songplays",
			},
			AdapterConfigs: map[string]interface{}{},
		},
		Settings: map[string]string{},
	}
}

// AdapterConfig returns the raw settings of adapter kind/name, e.g. ("storage", "s3").
func (c *Config) AdapterConfig(kind, name string) (interface{}, bool) {
	byKind, ok := c.Songplays.AdapterConfigs[kind].(map[string]interface{})
	if !ok {
		return nil, false
	}
	raw, ok := byKind[name]
	return raw, ok
}

// SetAdapterValue sets one key of adapter kind/name, creating intermediate maps as needed.
func (c *Config) SetAdapterValue(kind, name, key string, value interface{}) {
	if c.Songplays.AdapterConfigs == nil {
		c.Songplays.AdapterConfigs = map[string]interface{}{}
	}
	byKind, ok := c.Songplays.AdapterConfigs[kind].(map[string]interface{})
	if !ok {
		byKind = map[string]interface{}{}
		c.Songplays.AdapterConfigs[kind] = byKind
	}
	entry, ok := byKind[name].(map[string]interface{})
	if !ok {
		entry = map[string]interface{}{}
		byKind[name] = entry
	}
	entry[key] = value
}

// TableNames returns the configured table suffixes keyed by logical table name.
func (t TablesConfig) TableNames() map[string]string {
	return map[string]string{
		"songs":     t.Songs,
		"artists":   t.Artists,
		"users":     t.Users,
		"time":      t.Time,
		"songplays": t.Songplays,
	}
}

// Validate checks settings the pipeline cannot run without.
func (c *Config) Validate() error {
	p := c.Songplays.Pipeline
	if strings.TrimSpace(p.InputBase) == "" {
		return fmt.Errorf("pipeline.input_base must be set")
	}
	if strings.TrimSpace(p.OutputBase) == "" {
		return fmt.Errorf("pipeline.output_base must be set")
	}
	switch p.PublishMode {
	case PublishModeStaged, PublishModeDirect:
	default:
		return fmt.Errorf("pipeline.publish_mode must be '%s' or '%s', got '%s'", PublishModeStaged, PublishModeDirect, p.PublishMode)
	}
	switch strings.ToUpper(p.CompressionType) {
	case "SNAPPY", "GZIP", "NONE", "":
	default:
		return fmt.Errorf("pipeline.compression_type '%s' is not supported", p.CompressionType)
	}
	if p.ReadConcurrency <= 0 {
		return fmt.Errorf("pipeline.read_concurrency must be positive, got %d", p.ReadConcurrency)
	}
	for name, suffix := range p.Tables.TableNames() {
		if strings.TrimSpace(suffix) == "" {
			return fmt.Errorf("pipeline.tables.%s must not be empty", name)
		}
	}
	switch c.Songplays.Infrastructure.JobRepositoryType {
	case JobRepositoryInMemory, JobRepositorySQL:
	default:
		return fmt.Errorf("infrastructure.job_repository_type must be '%s' or '%s', got '%s'",
			JobRepositoryInMemory, JobRepositorySQL, c.Songplays.Infrastructure.JobRepositoryType)
	}
	return nil
}
