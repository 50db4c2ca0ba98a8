package pkpass

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
)

type ManifestEntry struct {
	Name   string
	Digest string
}

// Manifest maps file names to SHA-1 digests in insertion order:
// descriptor, then localizations, then images.
type Manifest []ManifestEntry

func NewManifest(p *Pass) Manifest {
	m := make(Manifest, 0, 1+len(p.Localizations)+len(p.Images))
	m = append(m, ManifestEntry{Name: DescriptorName, Digest: digest(p.Descriptor)})
	for _, f := range p.Localizations {
		m = append(m, ManifestEntry{Name: f.Name, Digest: digest(f.Data)})
	}
	for _, f := range p.Images {
		m = append(m, ManifestEntry{Name: f.Name, Digest: digest(f.Data)})
	}
	return m
}

// MarshalJSON writes a compact object preserving entry order.
func (m Manifest) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(&buf, e.Name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeString(&buf, e.Digest); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// Hash returns the hex SHA-1 of the serialized manifest of p. Two passes
// with identical descriptor, localizations and images hash identically.
func Hash(p *Pass) string {
	b, err := NewManifest(p).MarshalJSON()
	if err != nil {
		// only reachable on a failing bytes.Buffer write
		panic(err)
	}
	return digest(b)
}

func digest(b []byte) string {
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}
