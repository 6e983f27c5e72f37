package config

import (
	"os"

	"github.com/joho/godotenv"
)

// loadEnvFiles loads the given files if they exist. Variables already present
// in the environment win; errors are ignored.
func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}
