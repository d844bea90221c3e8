package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// envFiles are read in order; earlier files and the process environment win.
var envFiles = []string{".env", ".env.local"}

// LoadEnv loads the .env files present in dir without overriding variables
// that are already set. It returns the files it loaded.
func LoadEnv(dir string) ([]string, error) {
	var loaded []string
	for _, name := range envFiles {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return loaded, err
		}
		loaded = append(loaded, p)
	}
	return loaded, nil
}
