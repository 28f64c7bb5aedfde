package codec

import (
	"io"

	"anchorwatch/internal/domain"
)

// Exporter writes a reconciled snapshot in some format
type Exporter interface {
	Export(snapshot *domain.Snapshot, w io.Writer) error
	Format() string
	ContentType() string
}

// WhitelistImporter reads operator-maintained MAC lists
type WhitelistImporter interface {
	ParseWhitelist(r io.Reader) ([]string, error)
}

// ForFormat returns the exporter for a format name, or nil
func ForFormat(format string) Exporter {
	switch format {
	case "json":
		return NewJSONCodec()
	case "yaml", "yml":
		return NewYAMLCodec()
	default:
		return nil
	}
}
