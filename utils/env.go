package utils

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"k8s.io/klog/v2"
)

// DefaultEnvFiles are the .env locations tried by LoadEnvWithFallback, in order
var DefaultEnvFiles = []string{
	".env",        // Current directory
	".env.local",  // Local override
	"config/.env", // Config directory
}

// LoadEnv loads environment variables from a .env file.
// Variables already present in the process environment are left untouched.
// It reports whether the file existed.
func LoadEnv(filename string) (bool, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("error opening %s file: %w", filename, err)
	}
	defer file.Close()

	klog.Infof("Loading environment variables from %s", filename)

	scanner := bufio.NewScanner(file)
	lineNumber := 0

	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, found := strings.Cut(line, "=")
		if !found {
			klog.Warningf("Invalid format in %s line %d", filename, lineNumber)
			continue
		}

		key = strings.TrimSpace(key)
		value = unquote(strings.TrimSpace(value))

		if _, set := os.LookupEnv(key); set {
			klog.V(2).Infof("Environment variable %s already set, keeping existing value", key)
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return true, fmt.Errorf("error setting %s from %s: %w", key, filename, err)
		}
		klog.V(2).Infof("Set %s from %s", key, filename)
	}

	if err := scanner.Err(); err != nil {
		return true, fmt.Errorf("error reading %s file: %w", filename, err)
	}

	return true, nil
}

// LoadEnvWithFallback loads the first .env file found among the given locations,
// or DefaultEnvFiles when none are given. A missing file is not an error.
func LoadEnvWithFallback(locations ...string) error {
	if len(locations) == 0 {
		locations = DefaultEnvFiles
	}

	for _, location := range locations {
		found, err := LoadEnv(location)
		if err != nil {
			return err
		}
		if found {
			return nil
		}
	}

	klog.Infof("No .env files found in %v, using system environment only", locations)
	return nil
}

func unquote(value string) string {
	if len(value) < 2 {
		return value
	}
	if (strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"")) ||
		(strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'")) {
		return value[1 : len(value)-1]
	}
	return value
}
