package slidegraft

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// maxZipEntrySize is the maximum allowed size for a single file extracted
// from a ZIP. This prevents zip bomb attacks. 50 MB is generous for any
// legitimate PPTX part.
const maxZipEntrySize = 50 << 20 // 50 MB

// maxZipTotalSize is the cumulative limit for all extracted content from a
// single ZIP.
const maxZipTotalSize = 200 << 20 // 200 MB

// maxZipEntries is the maximum number of files allowed in a ZIP archive.
const maxZipEntries = 10000

const contentTypesPath = "[Content_Types].xml"

// ReadPackageFrom reads an OPC package from an io.ReaderAt with the given
// size. Every zip entry becomes a Part; [Content_Types].xml and the .rels
// entries are parsed into the package's content-type table and per-part
// relationship sets.
func ReadPackageFrom(reader io.ReaderAt, size int64) (*Package, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid reader size: %d", size)
	}
	if size > int64(maxZipTotalSize) {
		return nil, fmt.Errorf("file size %d exceeds maximum allowed (%d bytes)", size, maxZipTotalSize)
	}

	zr, err := zip.NewReader(reader, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	if len(zr.File) > maxZipEntries {
		return nil, fmt.Errorf("zip archive contains too many entries (%d > %d)", len(zr.File), maxZipEntries)
	}

	pkg := newPackage()
	relsFiles := make(map[string][]byte)

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		data, err := readZipEntry(f)
		if err != nil {
			return nil, err
		}
		name := strings.TrimPrefix(f.Name, "/")
		switch {
		case name == contentTypesPath:
			if err := pkg.types.unmarshal(data); err != nil {
				return nil, err
			}
		case strings.HasSuffix(name, ".rels"):
			relsFiles[name] = data
		default:
			pkg.parts[name] = &Part{pkg: pkg, name: name, blob: data}
		}
	}

	// Content types become known only after every entry is seen, so fill
	// them in a second pass.
	for name, part := range pkg.parts {
		part.contentType = pkg.types.lookup(name)
	}

	for relsPath, data := range relsFiles {
		rels, err := parseRelationships(relsPath, data)
		if err != nil {
			return nil, err
		}
		owner := ownerNameForRels(relsPath)
		if owner == "" {
			pkg.rels = rels
			continue
		}
		part := pkg.parts[owner]
		if part == nil {
			// Orphan rels entry; nothing references it, drop it.
			continue
		}
		part.rels = rels
	}

	return pkg, nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > maxZipEntrySize {
		return nil, fmt.Errorf("file %s exceeds maximum allowed size (%d bytes)", f.Name, maxZipEntrySize)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s in zip: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, int64(maxZipEntrySize)+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from zip: %w", f.Name, err)
	}
	if int64(len(data)) > int64(maxZipEntrySize) {
		return nil, fmt.Errorf("file %s actual size exceeds maximum allowed size", f.Name)
	}
	return data, nil
}

// ownerNameForRels maps a .rels path back to its owning part name.
// "_rels/.rels" owns the package itself and maps to "".
func ownerNameForRels(relsPath string) string {
	dir, base := "", relsPath
	if i := strings.LastIndex(relsPath, "/"); i >= 0 {
		dir, base = relsPath[:i], relsPath[i+1:]
	}
	owner := strings.TrimSuffix(base, ".rels")
	parent := strings.TrimSuffix(dir, "_rels")
	parent = strings.TrimSuffix(parent, "/")
	if owner == "" {
		return ""
	}
	if parent == "" {
		return owner
	}
	return parent + "/" + owner
}

// --- Relationship parsing ---

type xmlRelationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

type xmlRelationships struct {
	XMLName       xml.Name          `xml:"http://schemas.openxmlformats.org/package/2006/relationships Relationships"`
	Relationships []xmlRelationship `xml:"Relationship"`
}

func parseRelationships(path string, data []byte) ([]*Relationship, error) {
	var raw xmlRelationships
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse relationships %s: %w", path, err)
	}
	rels := make([]*Relationship, 0, len(raw.Relationships))
	for _, r := range raw.Relationships {
		rels = append(rels, &Relationship{
			ID:       r.ID,
			Type:     r.Type,
			Target:   r.Target,
			External: strings.EqualFold(r.TargetMode, "External"),
		})
	}
	// Stable order for deterministic rId allocation.
	sort.SliceStable(rels, func(i, j int) bool {
		ni, iok := relIDNumber(rels[i].ID)
		nj, jok := relIDNumber(rels[j].ID)
		if iok && jok {
			return ni < nj
		}
		return rels[i].ID < rels[j].ID
	})
	return rels, nil
}

// OpenPackage reads an OPC package from a file on disk.
func OpenPackage(path string) (*Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	return ReadPackageFrom(f, info.Size())
}
