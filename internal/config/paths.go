package config

import (
	"os"
	"path/filepath"
)

const defaultBaseDir = ".salesbot"

// Paths holds resolved filesystem locations for salesbot.
type Paths struct {
	Base    string // ~/.salesbot
	Config  string // ~/.salesbot/config.yaml
	EnvFile string // ~/.salesbot/.env
	Data    string // ~/.salesbot/data
}

// ResolvePaths computes the standard paths. SALESBOT_HOME overrides the base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("SALESBOT_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:    base,
		Config:  filepath.Join(base, "config.yaml"),
		EnvFile: filepath.Join(base, ".env"),
		Data:    filepath.Join(base, "data"),
	}, nil
}

// DefaultSQLitePath is where the development database lives when no URL is set.
func (p Paths) DefaultSQLitePath() string {
	return filepath.Join(p.Data, "salesbot.db")
}

// EnsureDirs creates the base and data directories.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Base, p.Data} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}
