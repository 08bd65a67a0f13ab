package config

import (
	"bufio"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/songplays/pkg/batch/support/util/exception"
	"github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

const moduleName = "config"

// Overrides carries values given on the command line. They win over every other source.
type Overrides struct {
	InputBase         string
	OutputBase        string
	LogLevel          string
	PublishMode       string
	DedupeDimensions  *bool
	SequentialExtract *bool
}

// LoadOptions describes where configuration comes from.
type LoadOptions struct {
	// Embedded is the YAML compiled into the binary.
	Embedded EmbeddedConfig
	// ConfigFile, when set, replaces Embedded with the contents of that file.
	ConfigFile string
	// SettingsFile is a KEY=VALUE credentials file (dl.cfg style, INI section headers allowed).
	SettingsFile string
	Overrides    Overrides
}

// LoadConfig builds a Config in this order: defaults, YAML, environment and settings file,
// command-line overrides. The process environment is only read, never modified.
func LoadConfig(opts LoadOptions) (*Config, error) {
	settings, err := ReadSettingsFile(opts.SettingsFile)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to read settings file '%s'", opts.SettingsFile), err, false, false)
	}
	lookup := NewLookup(settings)

	cfg := NewConfig()
	cfg.Settings = settings

	raw := []byte(opts.Embedded)
	if opts.ConfigFile != "" {
		raw, err = os.ReadFile(opts.ConfigFile)
		if err != nil {
			return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to read config file '%s'", opts.ConfigFile), err, false, false)
		}
	}

	if len(raw) > 0 {
		expanded, err := NewLookupEnvironmentExpander(lookup).Expand(raw)
		if err != nil {
			return nil, exception.NewBatchError(moduleName, "failed to expand config placeholders", err, false, false)
		}
		var yamlConfig Config
		if err := yaml.Unmarshal(expanded, &yamlConfig); err != nil {
			return nil, exception.NewBatchError(moduleName, "failed to unmarshal config", err, false, false)
		}
		mergeConfig(cfg, &yamlConfig)
	}

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), "", lookup); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load config from environment variables", err, false, false)
	}

	applyCredentials(cfg, lookup)
	applyOverrides(cfg, opts.Overrides)

	if err := cfg.Validate(); err != nil {
		return nil, exception.NewBatchError(moduleName, "invalid configuration", err, false, false)
	}
	if _, err := time.LoadLocation(cfg.Songplays.System.Timezone); err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("unknown timezone '%s'", cfg.Songplays.System.Timezone), err, false, false)
	}
	return cfg, nil
}

// ReadSettingsFile parses a KEY=VALUE settings file with godotenv.
// INI section headers ("[AWS]") and ';' comment lines are ignored so dl.cfg files load unchanged.
// An empty path yields an empty map.
func ReadSettingsFile(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var b strings.Builder
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			continue
		}
		if strings.HasPrefix(line, ";") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	settings, err := godotenv.Parse(strings.NewReader(b.String()))
	if err != nil {
		return nil, err
	}
	logger.Debugf("Loaded %d settings from '%s'.", len(settings), path)
	return settings, nil
}

// LookupFunc resolves a variable name to a value.
type LookupFunc func(key string) (string, bool)

// NewLookup resolves names from the process environment first, then from settings.
func NewLookup(settings map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := settings[key]
		return v, ok
	}
}

// applyCredentials copies well-known credential keys into the storage adapter settings
// unless the adapter already defines them.
func applyCredentials(cfg *Config, lookup LookupFunc) {
	fill := func(kind, name, key string, envKeys ...string) {
		if raw, ok := cfg.AdapterConfig(kind, name); ok {
			if m, ok := raw.(map[string]interface{}); ok {
				if v, ok := m[key].(string); ok && v != "" {
					return
				}
			}
		}
		for _, envKey := range envKeys {
			if v, ok := lookup(envKey); ok && v != "" {
				cfg.SetAdapterValue(kind, name, key, v)
				return
			}
		}
	}
	fill("storage", "s3", "access_key_id", "AWS_ACCESS_KEY_ID")
	fill("storage", "s3", "secret_access_key", "AWS_SECRET_ACCESS_KEY")
	fill("storage", "s3", "session_token", "AWS_SESSION_TOKEN")
	fill("storage", "s3", "region", "AWS_REGION", "AWS_DEFAULT_REGION")
	fill("storage", "gcs", "credentials_file", "GOOGLE_APPLICATION_CREDENTIALS")
}

func applyOverrides(cfg *Config, o Overrides) {
	p := &cfg.Songplays.Pipeline
	if o.InputBase != "" {
		p.InputBase = o.InputBase
	}
	if o.OutputBase != "" {
		p.OutputBase = o.OutputBase
	}
	if o.PublishMode != "" {
		p.PublishMode = PublishMode(strings.ToLower(o.PublishMode))
	}
	if o.DedupeDimensions != nil {
		p.DedupeDimensions = *o.DedupeDimensions
	}
	if o.SequentialExtract != nil {
		p.SequentialExtract = *o.SequentialExtract
	}
	if o.LogLevel != "" {
		cfg.Songplays.System.Logging.Level = o.LogLevel
	}
}

// mergeConfig copies every non-zero value of source into dest.
func mergeConfig(dest, source *Config) {
	mergeSystemConfig(&dest.Songplays.System, &source.Songplays.System)
	mergePipelineConfig(&dest.Songplays.Pipeline, &source.Songplays.Pipeline)

	if source.Songplays.Infrastructure.JobRepositoryType != "" {
		dest.Songplays.Infrastructure.JobRepositoryType = source.Songplays.Infrastructure.JobRepositoryType
	}
	if source.Songplays.Infrastructure.JobRepositoryDBRef != "" {
		dest.Songplays.Infrastructure.JobRepositoryDBRef = source.Songplays.Infrastructure.JobRepositoryDBRef
	}

	// Booleans are taken as written: a YAML file that mentions the section decides them.
	if source.Songplays.Metrics != (MetricsConfig{}) {
		m := source.Songplays.Metrics
		if m.PushJobName == "" {
			m.PushJobName = dest.Songplays.Metrics.PushJobName
		}
		dest.Songplays.Metrics = m
	}
	if source.Songplays.Tracing != (TracingConfig{}) {
		tr := source.Songplays.Tracing
		if tr.ServiceName == "" {
			tr.ServiceName = dest.Songplays.Tracing.ServiceName
		}
		dest.Songplays.Tracing = tr
	}

	if source.Songplays.AdapterConfigs != nil {
		if dest.Songplays.AdapterConfigs == nil {
			dest.Songplays.AdapterConfigs = make(map[string]interface{})
		}
		for key, value := range source.Songplays.AdapterConfigs {
			dest.Songplays.AdapterConfigs[key] = value
		}
	}
}

func mergeSystemConfig(dest, source *SystemConfig) {
	if source.Timezone != "" {
		dest.Timezone = source.Timezone
	}
	if source.Logging.Level != "" {
		dest.Logging.Level = source.Logging.Level
	}
}

func mergePipelineConfig(dest, source *PipelineConfig) {
	if source.JobName != "" {
		dest.JobName = source.JobName
	}
	if source.InputBase != "" {
		dest.InputBase = source.InputBase
	}
	if source.OutputBase != "" {
		dest.OutputBase = source.OutputBase
	}
	if source.SongDataPath != "" {
		dest.SongDataPath = source.SongDataPath
	}
	if source.LogDataPath != "" {
		dest.LogDataPath = source.LogDataPath
	}
	if source.StagingDir != "" {
		dest.StagingDir = source.StagingDir
	}
	if source.Tables.Songs != "" {
		dest.Tables.Songs = source.Tables.Songs
	}
	if source.Tables.Artists != "" {
		dest.Tables.Artists = source.Tables.Artists
	}
	if source.Tables.Users != "" {
		dest.Tables.Users = source.Tables.Users
	}
	if source.Tables.Time != "" {
		dest.Tables.Time = source.Tables.Time
	}
	if source.Tables.Songplays != "" {
		dest.Tables.Songplays = source.Tables.Songplays
	}
	if source.CompressionType != "" {
		dest.CompressionType = source.CompressionType
	}
	if source.PublishMode != "" {
		dest.PublishMode = source.PublishMode
	}
	if source.DedupeDimensions {
		dest.DedupeDimensions = true
	}
	if source.SequentialExtract {
		dest.SequentialExtract = true
	}
	if source.ReadConcurrency != 0 {
		dest.ReadConcurrency = source.ReadConcurrency
	}
}

// loadStructFromEnv walks val and sets each scalar field whose upper-cased yaml path
// resolves through lookup, e.g. SONGPLAYS_PIPELINE_INPUT_BASE.
func loadStructFromEnv(val reflect.Value, prefix string, lookup LookupFunc) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		switch field.Kind() {
		case reflect.Struct:
			if err := loadStructFromEnv(field, envVarName+"_", lookup); err != nil {
				return err
			}
			continue
		case reflect.Map, reflect.Slice, reflect.Interface, reflect.Ptr:
			continue
		}

		envValue, exists := lookup(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	}
	return nil
}
