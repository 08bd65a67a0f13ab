// Package config holds the per-connection settings of the storage adapters.
package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// StorageConfig holds configuration for a single storage connection.
type StorageConfig struct {
	Type            string `yaml:"type"`              // Type of storage ("local", "s3", "gcs").
	BucketName      string `yaml:"bucket_name"`       // Default bucket used when a call passes none.
	CredentialsFile string `yaml:"credentials_file"`  // Service account key for GCS.
	BaseDir         string `yaml:"base_dir"`          // Root for local paths. Empty means paths are used as given.
	Region          string `yaml:"region"`            // AWS region.
	Endpoint        string `yaml:"endpoint"`          // Custom S3 endpoint (MinIO, localstack).
	AccessKeyID     string `yaml:"access_key_id"`     // Static AWS credentials. Empty uses the default chain.
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	ForcePathStyle  bool   `yaml:"force_path_style"`  // Path-style S3 addressing.
}

// DatasourcesConfig holds a map of named storage configurations.
type DatasourcesConfig map[string]StorageConfig

// Decode converts a raw adapter entry (as loaded from YAML) into a StorageConfig.
// A nil entry yields a zero config.
func Decode(raw interface{}) (StorageConfig, error) {
	var cfg StorageConfig
	if raw == nil {
		return cfg, nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return cfg, fmt.Errorf("failed to create decoder for storage config: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return cfg, fmt.Errorf("failed to decode storage config: %w", err)
	}
	return cfg, nil
}
