package config

import (
	"flag"
	"os"

	"github.com/kwarc/cheatsheets/internal/flagx"
)

var flagNames = []string{"-a", "-g", "-d", "-s", "-q", "-storage", "-dir", "-start-day", "-end-day", "-max-pages", "-l"}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string          HTTP bind address (e.g. ":8080")
//	-g string          gRPC health bind address
//	-d string          PostgreSQL DSN
//	-s string          JWT HMAC secret
//	-q string          QR signing secret
//	-storage string    storage backend: local or s3
//	-dir string        local storage root
//	-start-day int     first weekday of the upload window (0 = Sunday)
//	-end-day int       last weekday of the upload window
//	-max-pages int     page ceiling for uploads
//	-l string          log level
//
// Args are filtered with flagx.FilterArgs first so config-file flags and
// flags owned elsewhere do not collide.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], flagNames)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run the HTTP API")
	fs.StringVar(&config.HealthAddrGRPC, "g", config.HealthAddrGRPC, "address and port of the gRPC health endpoint")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.JWTSecret, "s", config.JWTSecret, "JWT secret key")
	fs.StringVar(&config.QRSecret, "q", config.QRSecret, "QR signing secret")
	fs.StringVar(&config.StorageBackend, "storage", config.StorageBackend, "storage backend (local|s3)")
	fs.StringVar(&config.CheatsheetsDir, "dir", config.CheatsheetsDir, "local storage root")
	fs.IntVar(&config.UploadStartDay, "start-day", config.UploadStartDay, "upload window start weekday")
	fs.IntVar(&config.UploadEndDay, "end-day", config.UploadEndDay, "upload window end weekday")
	fs.IntVar(&config.MaxPages, "max-pages", config.MaxPages, "max pages per upload")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
