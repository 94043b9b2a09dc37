// Package manifest loads declarative ChatKalibr configuration from YAML:
// goal, candidate paths, credentials, exploration rate and the
// auto-registration flag.
package manifest

import (
	"fmt"
	"io/fs"
	"os"

	kalibr "github.com/kalibr-ai/langchain-kalibr"
	"github.com/kalibr-ai/langchain-kalibr/router"

	"gopkg.in/yaml.v3"
)

// fileManifest is the YAML manifest shape bound directly to domain types.
type fileManifest struct {
	Goal            string        `yaml:"goal"`
	Paths           []router.Path `yaml:"paths"`
	ExplorationRate *float64      `yaml:"exploration_rate"`
	AutoRegister    *bool         `yaml:"auto_register"`
	Credentials     struct {
		APIKey   string `yaml:"api_key"`
		TenantID string `yaml:"tenant_id"`
	} `yaml:"credentials"`
}

// Manifest is a parsed, not yet initialized adapter configuration.
type Manifest struct {
	Goal            string
	Paths           []router.Path
	APIKey          string
	TenantID        string
	ExplorationRate *float64
	AutoRegister    *bool
}

// ParseBytes parses a YAML manifest.
func ParseBytes(data []byte) (*Manifest, error) {
	var m fileManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", kalibr.ErrInvalidManifest, err)
	}
	return buildManifest(&m)
}

// ParseFile reads and parses a manifest file.
func ParseFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is validated by caller
	if err != nil {
		return nil, fmt.Errorf("manifest: read file: %w", err)
	}
	return ParseBytes(data)
}

// ParseFS reads and parses a manifest from fs.FS (e.g. embed.FS).
func ParseFS(fsys fs.FS, name string) (*Manifest, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("manifest: read fs: %w", err)
	}
	return ParseBytes(data)
}

func buildManifest(m *fileManifest) (*Manifest, error) {
	if m.Goal == "" {
		return nil, fmt.Errorf("%w: missing goal", kalibr.ErrInvalidManifest)
	}
	for i, p := range m.Paths {
		if p.Model == "" {
			return nil, fmt.Errorf("%w: path %d: missing model", kalibr.ErrInvalidManifest, i)
		}
	}
	return &Manifest{
		Goal:            m.Goal,
		Paths:           m.Paths,
		APIKey:          m.Credentials.APIKey,
		TenantID:        m.Credentials.TenantID,
		ExplorationRate: m.ExplorationRate,
		AutoRegister:    m.AutoRegister,
	}, nil
}

// Options renders the manifest as construction options for kalibr.New.
func (m *Manifest) Options() []kalibr.Option {
	var opts []kalibr.Option
	if len(m.Paths) > 0 {
		opts = append(opts, kalibr.WithPaths(m.Paths...))
	}
	if m.APIKey != "" {
		opts = append(opts, kalibr.WithAPIKey(m.APIKey))
	}
	if m.TenantID != "" {
		opts = append(opts, kalibr.WithTenantID(m.TenantID))
	}
	if m.ExplorationRate != nil {
		opts = append(opts, kalibr.WithExplorationRate(*m.ExplorationRate))
	}
	if m.AutoRegister != nil {
		opts = append(opts, kalibr.WithAutoRegister(*m.AutoRegister))
	}
	return opts
}

// New initializes a ChatKalibr from the manifest. Extra options are applied
// after the manifest's own, so they win on conflict (e.g. a test Router
// factory).
func (m *Manifest) New(extra ...kalibr.Option) (*kalibr.ChatKalibr, error) {
	return kalibr.New(m.Goal, append(m.Options(), extra...)...)
}
