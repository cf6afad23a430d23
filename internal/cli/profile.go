package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const defaultServer = "http://localhost:8080"

// Profile is what taskctl remembers between runs.
type Profile struct {
	Server string `yaml:"server"`
	Token  string `yaml:"token,omitempty"`
	Email  string `yaml:"email,omitempty"`
}

// DefaultProfilePath is ~/.config/taskctl/config.yaml (or the platform's
// user config directory).
func DefaultProfilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "taskctl.yaml")
	}
	return filepath.Join(dir, "taskctl", "config.yaml")
}

// LoadProfile reads path. A missing file gives the default profile.
func LoadProfile(path string) (*Profile, error) {
	p := &Profile{Server: defaultServer}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	if err := yaml.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if p.Server == "" {
		p.Server = defaultServer
	}
	return p, nil
}

// Save writes the profile with owner-only permissions since it holds a
// bearer token.
func (p *Profile) Save(path string) error {
	raw, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create profile dir: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}
