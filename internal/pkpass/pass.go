// Package pkpass models a wallet pass as its three content categories
// (descriptor, localizations, images), computes its content hash and
// produces signed .pkpass bundles.
package pkpass

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	DescriptorName = "pass.json"
	ManifestName   = "manifest.json"
	SignatureName  = "signature"

	// Extension and ContentType of a stored bundle.
	Extension   = ".pkpass"
	ContentType = "application/vnd.apple.pkpass"
)

var ErrInvalidTemplate = errors.New("invalid_template")

// File is one named entry of a pass.
type File struct {
	Name string
	Data []byte
}

// Pass holds the content a bundle is built from. Localizations and Images
// are kept sorted by name.
type Pass struct {
	Descriptor    []byte
	Localizations []File
	Images        []File
}

func (p *Pass) str(path string) string {
	return gjson.GetBytes(p.Descriptor, path).String()
}

func (p *Pass) PassTypeIdentifier() string  { return p.str("passTypeIdentifier") }
func (p *Pass) SerialNumber() string        { return p.str("serialNumber") }
func (p *Pass) AuthenticationToken() string { return p.str("authenticationToken") }
func (p *Pass) ExpirationDate() string      { return p.str("expirationDate") }

func (p *Pass) set(path string, v any) error {
	b, err := sjson.SetBytes(p.Descriptor, path, v)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	p.Descriptor = b
	return nil
}

func (p *Pass) SetAuthenticationToken(token string) error {
	return p.set("authenticationToken", token)
}

func (p *Pass) SetWebServiceURL(u string) error {
	return p.set("webServiceURL", u)
}

// SetBarcode overwrites message and altText of the first barcode. Passes
// without a barcode are left untouched.
func (p *Pass) SetBarcode(message, altText string) error {
	var prefix string
	switch {
	case gjson.GetBytes(p.Descriptor, "barcodes.0").IsObject():
		prefix = "barcodes.0"
	case gjson.GetBytes(p.Descriptor, "barcode").IsObject():
		prefix = "barcode"
	default:
		return nil
	}
	if err := p.set(prefix+".message", message); err != nil {
		return err
	}
	return p.set(prefix+".altText", altText)
}

// SetExpirationDate sets expirationDate; an empty value removes the key.
func (p *Pass) SetExpirationDate(v string) error {
	if v == "" {
		b, err := sjson.DeleteBytes(p.Descriptor, "expirationDate")
		if err != nil {
			return fmt.Errorf("delete expirationDate: %w", err)
		}
		p.Descriptor = b
		return nil
	}
	return p.set("expirationDate", v)
}

// HasBarcode reports whether the descriptor carries a barcode to update.
func (p *Pass) HasBarcode() bool {
	return gjson.GetBytes(p.Descriptor, "barcodes.0").IsObject() ||
		gjson.GetBytes(p.Descriptor, "barcode").IsObject()
}
