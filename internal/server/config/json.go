package config

import (
	"encoding/json"
	"os"

	"github.com/kwarc/cheatsheets/internal/flagx"
	"github.com/kwarc/cheatsheets/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON configuration file. Durations
// accept "30s" style strings or integer nanoseconds. Pointer fields tell an
// explicit zero (Sunday, false) apart from an absent key.
type JsonConfig struct {
	HTTPAddr              string         `json:"http_addr"`
	HealthAddrGRPC        string         `json:"grpc_health_addr"`
	DatabaseDSN           string         `json:"database_dsn"`
	JWTSecret             string         `json:"jwt_secret"`
	QRSecret              string         `json:"qr_secret"`
	StorageBackend        string         `json:"storage_backend"`
	CheatsheetsDir        string         `json:"cheatsheets_dir"`
	S3AccessKey           string         `json:"s3_access_key"`
	S3SecretKey           string         `json:"s3_secret_key"`
	S3Bucket              string         `json:"s3_bucket"`
	S3Region              string         `json:"s3_region"`
	S3BaseEndpoint        string         `json:"s3_base_endpoint"`
	S3KeyPrefix           string         `json:"s3_key_prefix"`
	UploadStartDay        *int           `json:"upload_start_day"`
	UploadEndDay          *int           `json:"upload_end_day"`
	MaxUploadBytes        int64          `json:"max_upload_bytes"`
	MaxPages              int            `json:"max_pages"`
	ExtractionTimeout     timex.Duration `json:"extraction_timeout"`
	SemesterStart         string         `json:"semester_start"`
	TrustInstructorHeader *bool          `json:"trust_instructor_header"`
	LogLevel              string         `json:"log_level"`
}

// parseJson overlays values from the file named by -c/-config. Keys that are
// absent keep their current value. Unreadable files and invalid JSON panic.
func parseJson(config *Config) {
	jsonConfigFile, _ := flagx.ConfigFiles(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&config.HTTPAddr, c.HTTPAddr)
	set(&config.HealthAddrGRPC, c.HealthAddrGRPC)
	set(&config.DatabaseDSN, c.DatabaseDSN)
	set(&config.JWTSecret, c.JWTSecret)
	set(&config.QRSecret, c.QRSecret)
	set(&config.StorageBackend, c.StorageBackend)
	set(&config.CheatsheetsDir, c.CheatsheetsDir)
	set(&config.S3AccessKey, c.S3AccessKey)
	set(&config.S3SecretKey, c.S3SecretKey)
	set(&config.S3Bucket, c.S3Bucket)
	set(&config.S3Region, c.S3Region)
	set(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	set(&config.S3KeyPrefix, c.S3KeyPrefix)
	set(&config.SemesterStart, c.SemesterStart)
	set(&config.LogLevel, c.LogLevel)

	if c.UploadStartDay != nil {
		config.UploadStartDay = *c.UploadStartDay
	}
	if c.UploadEndDay != nil {
		config.UploadEndDay = *c.UploadEndDay
	}
	if c.MaxUploadBytes > 0 {
		config.MaxUploadBytes = c.MaxUploadBytes
	}
	if c.MaxPages > 0 {
		config.MaxPages = c.MaxPages
	}
	if c.ExtractionTimeout.Duration > 0 {
		config.ExtractionTimeout = c.ExtractionTimeout.Duration
	}
	if c.TrustInstructorHeader != nil {
		config.TrustInstructorHeader = *c.TrustInstructorHeader
	}
}
