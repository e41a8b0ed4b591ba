package ingest

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

const (
	defaultChunkSize    = 400
	defaultChunkOverlap = 20
)

// Source is one document to ingest: either a local file path or an
// object name in the configured bucket
type Source struct {
	Path   string `yaml:"path,omitempty"`
	Object string `yaml:"object,omitempty"`
}

func (s *Source) Name() string {
	if s.Object != "" {
		return s.Object
	}
	return s.Path
}

func (s *Source) Validate() error {
	if (s.Path == "") == (s.Object == "") {
		return goerr.New("source requires exactly one of path or object",
			goerr.V("path", s.Path), goerr.V("object", s.Object))
	}
	return nil
}

// Manifest describes an ingestion run
type Manifest struct {
	ChunkSize    int       `yaml:"chunk_size"`
	ChunkOverlap int       `yaml:"chunk_overlap"`
	Sources      []*Source `yaml:"sources"`
}

func (m *Manifest) Validate() error {
	if len(m.Sources) == 0 {
		return goerr.New("manifest has no sources")
	}
	if m.ChunkSize <= 0 {
		return goerr.New("chunk_size must be positive", goerr.V("chunk_size", m.ChunkSize))
	}
	if m.ChunkOverlap < 0 || m.ChunkOverlap >= m.ChunkSize {
		return goerr.New("chunk_overlap must be smaller than chunk_size",
			goerr.V("chunk_size", m.ChunkSize), goerr.V("chunk_overlap", m.ChunkOverlap))
	}
	for _, src := range m.Sources {
		if err := src.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// LoadManifest reads and validates a YAML manifest file. Omitted chunk
// parameters fall back to the defaults.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read manifest", goerr.V("path", path))
	}

	return ParseManifest(data)
}

// ParseManifest decodes a YAML manifest
func ParseManifest(data []byte) (*Manifest, error) {
	manifest := &Manifest{
		ChunkSize:    defaultChunkSize,
		ChunkOverlap: defaultChunkOverlap,
	}
	if err := yaml.Unmarshal(data, manifest); err != nil {
		return nil, goerr.Wrap(err, "failed to parse manifest")
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	return manifest, nil
}
