package initializers

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv reads .env into the process environment. Variables already set
// win, and a missing file is normal outside local development.
func LoadEnv() {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env file", "error", err)
	}
}
