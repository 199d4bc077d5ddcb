// Package config reads gitu's optional credential file and the
// environment variables the CLI honors.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// FileName is the credential file looked up in the home directory.
const FileName = ".gitu-config"

// Credential supplies authentication for one host.
type Credential struct {
	Host     string `yaml:"host"`
	Username string `yaml:"username"`
	Token    string `yaml:"token"` // Inline, ${ENV_VAR}, or file path
}

// Config is the top-level credential file document.
type Config struct {
	Credentials []Credential `yaml:"credentials"`
}

// Environment carries the environment variables consumed by the CLI.
type Environment struct {
	Host           string
	Project        string
	Username       string
	Token          string
	URL            string
	CACertPath     string
	VerboseLogging bool
}

// envVarPattern matches ${VAR_NAME} placeholders.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)}`)

// DefaultPath returns the standard location of the credential file.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(homeDir, FileName), nil
}

// Load reads and parses a credential file, expanding environment
// variables and resolving token file paths. A missing file yields an
// empty config, not an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	var cfg Config
	if unmarshalErr := yaml.Unmarshal(data, &cfg); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}

	for i := range cfg.Credentials {
		cfg.Credentials[i].Token = resolveToken(cfg.Credentials[i].Token)
	}
	return &cfg, nil
}

// Lookup returns the first credential entry matching host.
func (c *Config) Lookup(host string) (Credential, bool) {
	for _, cred := range c.Credentials {
		if cred.Host == host {
			return cred, true
		}
	}
	return Credential{}, false
}

// ReadEnvironment collects the GIT_* environment variables.
func ReadEnvironment() Environment {
	return Environment{
		Host:           os.Getenv("GIT_HOST"),
		Project:        os.Getenv("GIT_PROJECT"),
		Username:       os.Getenv("GIT_USERNAME"),
		Token:          os.Getenv("GIT_TOKEN"),
		URL:            os.Getenv("GIT_URL"),
		CACertPath:     os.Getenv("GIT_CA_CERT"),
		VerboseLogging: os.Getenv("VERBOSE_LOGGING") == "true",
	}
}

// resolveToken expands environment variable references (${VAR}) and, if
// the resulting string is a path to an existing file, reads the token
// from the file.
func resolveToken(raw string) string {
	if raw == "" {
		return raw
	}

	resolved := envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		logger.Warnf("Environment variable %q is not set", varName)
		return ""
	})

	if _, statErr := os.Stat(resolved); statErr == nil {
		data, readErr := os.ReadFile(resolved)
		if readErr != nil {
			logger.Warnf("Failed to read token file %q: %v", resolved, readErr)
			return resolved
		}
		return strings.TrimSpace(string(data))
	}

	return resolved
}
