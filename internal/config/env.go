package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// EnvBaseURL overrides service.base_url when set.
const EnvBaseURL = "REMEDIATE_BASE_URL"

// applyEnv reads REMEDIATE_BASE_URL from the environment first, then falls
// back to ~/.remediate/.env.
func applyEnv(cfg *Config) {
	v := os.Getenv(EnvBaseURL)
	if v == "" {
		if dir, err := HomeDir(); err == nil {
			v = readEnvFileVar(filepath.Join(dir, ".env"), EnvBaseURL)
		}
	}
	if v != "" {
		cfg.Service.BaseURL = strings.TrimRight(v, "/")
	}
}

// readEnvFileVar reads the value of a specific key from a .env file.
// Supports both "KEY=VALUE" and "export KEY=VALUE" formats.
func readEnvFileVar(path, key string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key0, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if strings.TrimSpace(key0) == key {
			return strings.Trim(strings.TrimSpace(value), `"'`)
		}
	}
	return ""
}
