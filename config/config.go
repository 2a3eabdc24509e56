// Package config loads conduit client settings from the environment and
// from JSON config files.
//
//	f, err := config.Load()
//	if err != nil {
//		return err
//	}
//	c, err := conduit.NewClient(f.Config())
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bhandras/fab/conduit"
)

// Environment variables read by FromEnv and Load. Each has a PHABRICATOR_*
// fallback spelling.
const (
	EnvConfigFile = "FAB_CONFIG"
	EnvHost       = "FAB_HOST"
	EnvUser       = "FAB_USER"
	EnvCert       = "FAB_CERT"
	EnvToken      = "FAB_TOKEN"
	EnvUserAgent  = "FAB_USER_AGENT"
)

// ErrNotConfigured is returned by Load when no host was provided anywhere.
var ErrNotConfigured = errors.New("config: no conduit host configured")

// File is the on-disk JSON layout:
//
//	{"host": "...", "username": "...", "token": "...", "certificate": "..."}
type File struct {
	Host        string `json:"host"`
	Username    string `json:"username"`
	Token       string `json:"token,omitempty"`
	Certificate string `json:"certificate,omitempty"`
	UserAgent   string `json:"user_agent,omitempty"`
}

// Config converts f into a conduit.Config.
func (f File) Config() conduit.Config {
	return conduit.Config{
		Host:      f.Host,
		User:      f.Username,
		Cert:      f.Certificate,
		Token:     f.Token,
		UserAgent: f.UserAgent,
	}
}

// LoadFile reads a JSON config file.
func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return f, nil
}

// FromEnv reads conduit settings from FAB_* variables.
func FromEnv() File {
	return File{
		Host:        getenvFirst(EnvHost, "PHABRICATOR_HOST"),
		Username:    getenvFirst(EnvUser, "PHABRICATOR_USER"),
		Certificate: getenvFirst(EnvCert, "PHABRICATOR_CERT"),
		Token:       getenvFirst(EnvToken, "PHABRICATOR_TOKEN"),
		UserAgent:   getenvFirst(EnvUserAgent, "PHABRICATOR_USER_AGENT"),
	}
}

// Load reads the file named by FAB_CONFIG, if any, and lets non-empty
// environment variables override its fields.
func Load() (File, error) {
	var f File
	if path := getenvFirst(EnvConfigFile, "PHABRICATOR_CONFIG"); path != "" {
		loaded, err := LoadFile(path)
		if err != nil {
			return File{}, err
		}
		f = loaded
	}
	f = f.merge(FromEnv())
	if strings.TrimSpace(f.Host) == "" {
		return File{}, ErrNotConfigured
	}
	return f, nil
}

// merge returns f with every non-empty field of override applied.
func (f File) merge(override File) File {
	if override.Host != "" {
		f.Host = override.Host
	}
	if override.Username != "" {
		f.Username = override.Username
	}
	if override.Token != "" {
		f.Token = override.Token
	}
	if override.Certificate != "" {
		f.Certificate = override.Certificate
	}
	if override.UserAgent != "" {
		f.UserAgent = override.UserAgent
	}
	return f
}

func getenvFirst(primary, fallback string) string {
	if val := os.Getenv(primary); val != "" {
		return val
	}
	return os.Getenv(fallback)
}
