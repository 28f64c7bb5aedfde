package codec

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"anchorwatch/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML export and whitelist seed files
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// ContentType returns the HTTP media type
func (c *YAMLCodec) ContentType() string {
	return "application/yaml"
}

// yamlSnapshot represents the YAML structure for an export
type yamlSnapshot struct {
	CycleID     string          `yaml:"cycle_id"`
	GeneratedAt string          `yaml:"generated_at"`
	Detections  []yamlDetection `yaml:"detections"`
}

type yamlDetection struct {
	ID     int64  `yaml:"id,omitempty"`
	Anchor string `yaml:"anchor"`
	SSID   string `yaml:"ssid,omitempty"`
	MAC    string `yaml:"mac,omitempty"`
	RSSI   int    `yaml:"rssi"`
	Block  int    `yaml:"block"`
	Signal string `yaml:"signal"`
}

// Export writes the snapshot as YAML
func (c *YAMLCodec) Export(snapshot *domain.Snapshot, w io.Writer) error {
	ys := yamlSnapshot{
		CycleID:     snapshot.CycleID,
		GeneratedAt: snapshot.GeneratedAt.UTC().Format(time.RFC3339),
		Detections:  make([]yamlDetection, 0, len(snapshot.Detections)),
	}

	for _, d := range snapshot.Detections {
		ys.Detections = append(ys.Detections, yamlDetection{
			ID:     d.ID,
			Anchor: d.AnchorID,
			SSID:   d.SSID,
			MAC:    d.MAC,
			RSSI:   d.RSSI,
			Block:  d.Block,
			Signal: string(domain.ClassifySignal(d.RSSI)),
		})
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&ys); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}

// yamlSeed is the whitelist seed file layout. Entries are either bare MAC
// strings or mappings with a mac key.
type yamlSeed struct {
	Whitelist []yamlSeedEntry `yaml:"whitelist"`
}

type yamlSeedEntry struct {
	MAC  string `yaml:"mac"`
	Note string `yaml:"note,omitempty"`
}

// UnmarshalYAML accepts both the scalar and mapping forms
func (e *yamlSeedEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		e.MAC = node.Value
		return nil
	}
	type plain yamlSeedEntry
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*e = yamlSeedEntry(p)
	return nil
}

// ParseWhitelist reads a seed file and returns the listed MACs as written.
// Blank entries are skipped; validation is left to the caller.
func (c *YAMLCodec) ParseWhitelist(r io.Reader) ([]string, error) {
	var seed yamlSeed
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&seed); err != nil {
		if errors.Is(err, io.EOF) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	macs := make([]string, 0, len(seed.Whitelist))
	for _, entry := range seed.Whitelist {
		if mac := strings.TrimSpace(entry.MAC); mac != "" {
			macs = append(macs, mac)
		}
	}
	return macs, nil
}
