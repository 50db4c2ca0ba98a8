package pkpass

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zip"
)

// Signer produces a detached signature over manifest.json.
type Signer interface {
	Sign(manifest []byte) ([]byte, error)
}

// Build writes the signed bundle for p: its content files, manifest.json
// and the detached signature.
func Build(p *Pass, signer Signer) ([]byte, error) {
	manifest, err := NewManifest(p).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	sig, err := signer.Sign(manifest)
	if err != nil {
		return nil, fmt.Errorf("sign manifest: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entries := make([]File, 0, 3+len(p.Localizations)+len(p.Images))
	entries = append(entries, File{Name: DescriptorName, Data: p.Descriptor})
	entries = append(entries, p.Localizations...)
	entries = append(entries, p.Images...)
	entries = append(entries,
		File{Name: ManifestName, Data: manifest},
		File{Name: SignatureName, Data: sig},
	)
	for _, f := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Deflate})
		if err != nil {
			return nil, fmt.Errorf("zip %s: %w", f.Name, err)
		}
		if _, err := w.Write(f.Data); err != nil {
			return nil, fmt.Errorf("zip %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip close: %w", err)
	}
	return buf.Bytes(), nil
}
