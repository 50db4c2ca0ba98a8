package pkpass

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/tidwall/gjson"
)

// ValidationError lists every structural problem found in a pass.
type ValidationError struct {
	errs *multierror.Error
}

func (e *ValidationError) Error() string {
	return "invalid pass: " + strings.Join(e.Problems(), "; ")
}

func (e *ValidationError) Unwrap() error { return e.errs }

func (e *ValidationError) Problems() []string {
	out := make([]string, 0, len(e.errs.Errors))
	for _, err := range e.errs.Errors {
		out = append(out, err.Error())
	}
	return out
}

var requiredStrings = []string{
	"passTypeIdentifier",
	"serialNumber",
	"teamIdentifier",
	"organizationName",
	"description",
}

var barcodeFormats = map[string]bool{
	"PKBarcodeFormatQR":      true,
	"PKBarcodeFormatPDF417":  true,
	"PKBarcodeFormatAztec":   true,
	"PKBarcodeFormatCode128": true,
}

const minAuthTokenLen = 16

// Validate checks p against the pass format's structural rules.
func Validate(p *Pass) error {
	var result *multierror.Error
	d := p.Descriptor
	if !gjson.ValidBytes(d) || !gjson.ParseBytes(d).IsObject() {
		result = multierror.Append(result, errors.New("pass.json must be a JSON object"))
		return &ValidationError{errs: result}
	}

	for _, key := range requiredStrings {
		r := gjson.GetBytes(d, key)
		if r.Type != gjson.String || strings.TrimSpace(r.Str) == "" {
			result = multierror.Append(result, fmt.Errorf("%s is required", key))
		}
	}
	if v := gjson.GetBytes(d, "formatVersion"); v.Type != gjson.Number || v.Int() != 1 {
		result = multierror.Append(result, errors.New("formatVersion must be 1"))
	}
	if !p.hasIcon() {
		result = multierror.Append(result, errors.New("icon.png is required"))
	}

	if arr := gjson.GetBytes(d, "barcodes"); arr.Exists() {
		if !arr.IsArray() {
			result = multierror.Append(result, errors.New("barcodes must be an array"))
		} else {
			for i, b := range arr.Array() {
				result = multierror.Append(result, validateBarcode(fmt.Sprintf("barcodes[%d]", i), b)...)
			}
		}
	}
	if b := gjson.GetBytes(d, "barcode"); b.Exists() {
		result = multierror.Append(result, validateBarcode("barcode", b)...)
	}

	if r := gjson.GetBytes(d, "expirationDate"); r.Exists() {
		if _, err := time.Parse(time.RFC3339, r.String()); r.Type != gjson.String || err != nil {
			result = multierror.Append(result, errors.New("expirationDate must be an RFC 3339 date"))
		}
	}

	if r := gjson.GetBytes(d, "webServiceURL"); r.Exists() {
		if u, err := url.Parse(r.String()); r.Type != gjson.String || err != nil || u.Host == "" ||
			(u.Scheme != "https" && u.Scheme != "http") {
			result = multierror.Append(result, errors.New("webServiceURL must be an absolute http(s) URL"))
		}
		if len(p.AuthenticationToken()) < minAuthTokenLen {
			result = multierror.Append(result, fmt.Errorf("authenticationToken must be at least %d characters", minAuthTokenLen))
		}
	}

	if result.ErrorOrNil() == nil {
		return nil
	}
	return &ValidationError{errs: result}
}

func validateBarcode(field string, b gjson.Result) []error {
	if !b.IsObject() {
		return []error{fmt.Errorf("%s must be an object", field)}
	}
	var errs []error
	if b.Get("message").Type != gjson.String {
		errs = append(errs, fmt.Errorf("%s.message must be a string", field))
	}
	if !barcodeFormats[b.Get("format").String()] {
		errs = append(errs, fmt.Errorf("%s.format is not supported", field))
	}
	if enc := b.Get("messageEncoding"); enc.Type != gjson.String || enc.Str == "" {
		errs = append(errs, fmt.Errorf("%s.messageEncoding is required", field))
	}
	return errs
}

func (p *Pass) hasIcon() bool {
	for _, f := range p.Images {
		switch path.Base(f.Name) {
		case "icon.png", "icon@2x.png", "icon@3x.png":
			return true
		}
	}
	return false
}
