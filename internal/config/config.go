package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config carries everything the server and CLI read from the environment.
type Config struct {
	Addr      string // HTTP listen address
	DBPath    string // sqlite database file
	ImportDir string // default directory for spreadsheet imports
	UploadDir string // registrant file attachments
}

// Load reads .env when present, then the environment. Missing keys fall back
// to development defaults.
func Load() Config {
	_ = godotenv.Load() // optional; real deployments set env directly

	return Config{
		Addr:      getEnv("ADDR", ":8080"),
		DBPath:    getEnv("DB_PATH", "regadmin.db"),
		ImportDir: getEnv("IMPORT_DIR", "storage/imports"),
		UploadDir: getEnv("UPLOAD_DIR", "storage/uploads"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
