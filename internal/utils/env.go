package utils

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

// LoadEnv loads the first .env found in the working directory or the project
// root. Variables already set in the process win. It returns the loaded path,
// or "" when there is no .env file.
func LoadEnv() (string, error) {
	var candidates []string
	if wd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(wd, ".env"))
	}
	if root, err := FindProjectRoot(); err == nil {
		candidates = append(candidates, filepath.Join(root, ".env"))
	}
	for _, envPath := range candidates {
		if !FileExists(envPath) {
			continue
		}
		return envPath, godotenv.Load(envPath)
	}
	return "", nil
}
