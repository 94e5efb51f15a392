package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/kwarc/cheatsheets/internal/common"
	"github.com/kwarc/cheatsheets/internal/flagx"
)

// parseEnv loads a .env file (the -env flag, or ./.env when present) without
// overriding variables already set, then copies known variables into config.
// Malformed numeric or duration values panic.
func parseEnv(config *Config) {
	_, envFile := flagx.ConfigFiles(os.Args[1:])
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			panic(err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				panic(key + ": " + err.Error())
			}
			*dst = n
		}
	}

	str("HTTP_ADDR", &config.HTTPAddr)
	str("GRPC_HEALTH_ADDR", &config.HealthAddrGRPC)
	str("DATABASE_DSN", &config.DatabaseDSN)
	str("JWT_SECRET", &config.JWTSecret)
	str("QR_SECRET", &config.QRSecret)
	str("STORAGE_BACKEND", &config.StorageBackend)
	str(common.CheatsheetsDirEnv, &config.CheatsheetsDir)
	str("S3_ACCESS_KEY", &config.S3AccessKey)
	str("S3_SECRET_KEY", &config.S3SecretKey)
	str("S3_BUCKET", &config.S3Bucket)
	str("S3_REGION", &config.S3Region)
	str("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	str("S3_KEY_PREFIX", &config.S3KeyPrefix)
	num("UPLOAD_START_DAY", &config.UploadStartDay)
	num("UPLOAD_END_DAY", &config.UploadEndDay)
	num("MAX_PAGES", &config.MaxPages)
	str("SEMESTER_START", &config.SemesterStart)
	str("LOG_LEVEL", &config.LogLevel)

	if v, ok := os.LookupEnv("MAX_UPLOAD_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			panic("MAX_UPLOAD_BYTES: " + err.Error())
		}
		config.MaxUploadBytes = n
	}
	if v, ok := os.LookupEnv("EXTRACTION_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic("EXTRACTION_TIMEOUT: " + err.Error())
		}
		config.ExtractionTimeout = d
	}
	if v, ok := os.LookupEnv("TRUST_INSTRUCTOR_HEADER"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic("TRUST_INSTRUCTOR_HEADER: " + err.Error())
		}
		config.TrustInstructorHeader = b
	}
}
