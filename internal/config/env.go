package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by the application.
const (
	EnvToken   = "HF_TOKEN"
	EnvDataset = "FTCLUTCH_DB"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env").
// Variables already present in the process environment win. Missing files
// are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// Token returns the Hugging Face access token, if any.
func Token() string {
	return strings.TrimSpace(os.Getenv(EnvToken))
}

// DatasetPathFromEnv returns the dataset path override, if any.
func DatasetPathFromEnv() string {
	return strings.TrimSpace(os.Getenv(EnvDataset))
}
