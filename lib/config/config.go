// Package config holds the process-wide Config struct and its
// defaulting/validation logic, following the CheckAndSetDefaults
// convention used throughout the teacher codebase.
package config

import (
	"path/filepath"

	"github.com/mat-1/protocols"
)

// Config is the top-level configuration for the protocolsd daemon.
type Config struct {
	// Hostname is the canonical hostname served over Gemini/Gopher/Finger.
	Hostname string
	// Debug remaps every listener to its debug-mode port and enables
	// verbose logging.
	Debug bool
	// DataDir is the root directory holding the SSH host key, the
	// Gemini TLS certificate, the QOTD message/secret files and the
	// site data cache.
	DataDir string
	// MediaDir is the root directory holding blog-post media referenced
	// by PostPart.Image values with a Local source.
	MediaDir string
}

// CheckAndSetDefaults fills in zero-value defaults. It performs no
// validation and always returns nil.
func (c *Config) CheckAndSetDefaults() error {
	if c.Hostname == "" {
		c.Hostname = protocols.Hostname
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.MediaDir == "" {
		c.MediaDir = filepath.Join(c.DataDir, protocols.MediaDir)
	}
	return nil
}

// DataPath joins the data directory with the given relative path, e.g.
// one of the protocols.SSHHostKeyFile-style constants.
func (c *Config) DataPath(rel string) string {
	return filepath.Join(c.DataDir, rel)
}

// Port returns the port a given canonical port number should bind to,
// substituting the debug-mode port when Debug is set.
func (c *Config) Port(canonical, debug int) int {
	if c.Debug {
		return debug
	}
	return canonical
}
