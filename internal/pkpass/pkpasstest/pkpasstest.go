// Package pkpasstest builds template packages and signing credentials for
// tests.
package pkpasstest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"github.com/vbncursed/vkr/pass-service/internal/crypto"
)

// IconPNG is a 1x1 image.
var IconPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// Descriptor returns a valid pass.json with one QR barcode.
func Descriptor(passTypeID, serialNumber string) []byte {
	return []byte(fmt.Sprintf(`{
  "formatVersion": 1,
  "passTypeIdentifier": %q,
  "serialNumber": %q,
  "teamIdentifier": "A1B2C3D4E5",
  "organizationName": "Example Org",
  "description": "Demo pass",
  "barcodes": [
    {"message": "initial", "format": "PKBarcodeFormatQR", "messageEncoding": "iso-8859-1", "altText": "initial"}
  ],
  "generic": {"primaryFields": [{"key": "name", "label": "Name", "value": "Demo"}]}
}`, passTypeID, serialNumber))
}

// Zip packs files into a zip archive in name order.
func Zip(t testing.TB, files map[string][]byte) []byte {
	t.Helper()
	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, n := range names {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: n, Method: zip.Deflate, Modified: time.Now()})
		require.NoError(t, err)
		_, err = w.Write(files[n])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// Template returns a complete template package for the key: descriptor,
// icon and one localization.
func Template(t testing.TB, passTypeID, serialNumber string) []byte {
	t.Helper()
	return Zip(t, map[string][]byte{
		"pass.json":             Descriptor(passTypeID, serialNumber),
		"icon.png":              IconPNG,
		"en.lproj/pass.strings": []byte(`"name" = "Name";`),
	})
}

// WriteCredentials writes a self-signed PEM pair for passTypeID into dir.
func WriteCredentials(t testing.TB, dir, passTypeID, passphrase string) {
	t.Helper()
	certPEM, keyPEM, err := crypto.GenerateSelfSigned(passTypeID, passphrase, time.Hour)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, passTypeID+crypto.CertExt), certPEM, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, passTypeID+crypto.KeyExt), keyPEM, 0o600))
}
