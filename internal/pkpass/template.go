package pkpass

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/tidwall/gjson"
)

// maxEntrySize bounds a single decompressed entry.
const maxEntrySize = 16 << 20

var localizationRe = regexp.MustCompile(`^[A-Za-z0-9_-]+\.lproj/pass\.strings$`)

// Read parses a template package or a previously built bundle. Both are zip
// archives; pass.json may sit at the root or inside a single folder
// (e.g. "Demo.pass/pass.json"). manifest.json, signature and unrecognised
// entries are skipped.
func Read(data []byte) (*Pass, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	root, ok := findRoot(zr.File)
	if !ok {
		return nil, fmt.Errorf("%w: %s missing", ErrInvalidTemplate, DescriptorName)
	}

	p := &Pass{}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasPrefix(f.Name, root) {
			continue
		}
		name := strings.TrimPrefix(f.Name, root)
		kind := classify(name)
		if kind == kindSkip {
			continue
		}
		b, err := readEntry(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTemplate, f.Name, err)
		}
		switch kind {
		case kindDescriptor:
			p.Descriptor = b
		case kindLocalization:
			p.Localizations = append(p.Localizations, File{Name: name, Data: b})
		case kindImage:
			p.Images = append(p.Images, File{Name: name, Data: b})
		}
	}
	if !gjson.ValidBytes(p.Descriptor) {
		return nil, fmt.Errorf("%w: %s is not valid JSON", ErrInvalidTemplate, DescriptorName)
	}
	sortFiles(p.Localizations)
	sortFiles(p.Images)
	return p, nil
}

func findRoot(files []*zip.File) (string, bool) {
	found, root := false, ""
	for _, f := range files {
		if strings.HasPrefix(f.Name, "__MACOSX/") || path.Base(f.Name) != DescriptorName {
			continue
		}
		dir := path.Dir(f.Name)
		if dir == "." {
			return "", true
		}
		if strings.Contains(dir, "/") {
			continue
		}
		if !found {
			found, root = true, dir+"/"
		}
	}
	return root, found
}

type entryKind int

const (
	kindSkip entryKind = iota
	kindDescriptor
	kindLocalization
	kindImage
)

func classify(name string) entryKind {
	switch {
	case name == DescriptorName:
		return kindDescriptor
	case name == ManifestName, name == SignatureName:
		return kindSkip
	case localizationRe.MatchString(name):
		return kindLocalization
	case strings.EqualFold(path.Ext(name), ".png"):
		dir := path.Dir(name)
		if dir == "." || (!strings.Contains(dir, "/") && strings.HasSuffix(dir, ".lproj")) {
			return kindImage
		}
	}
	return kindSkip
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	b, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxEntrySize {
		return nil, fmt.Errorf("entry exceeds %d bytes", maxEntrySize)
	}
	return b, nil
}

func sortFiles(files []File) {
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
}
