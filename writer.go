package slidegraft

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Save writes the package to a file.
func (p *Package) Save(path string) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	writeErr := p.WriteTo(f)
	closeErr := f.Close()

	if writeErr != nil {
		// Attempt cleanup on write failure
		os.Remove(path)
		return writeErr
	}
	return closeErr
}

// WriteTo writes the package to a writer as a zip archive. XML parts that
// have been parsed (and possibly mutated) are serialized from their DOM;
// untouched parts are written back byte-for-byte.
func (p *Package) WriteTo(w io.Writer) error {
	zw := zip.NewWriter(w)

	ctData, err := p.types.marshal()
	if err != nil {
		return err
	}
	if err := writeZipEntry(zw, contentTypesPath, ctData); err != nil {
		return err
	}

	if err := p.writeRels(zw, "", p.rels); err != nil {
		return err
	}

	for _, name := range p.PartNames() {
		part := p.parts[name]
		data := part.blob
		if part.doc != nil {
			data = []byte(part.doc.OutputXML(true))
		}
		if err := writeZipEntry(zw, name, data); err != nil {
			return err
		}
		if err := p.writeRels(zw, name, part.rels); err != nil {
			return err
		}
	}

	return zw.Close()
}

func (p *Package) writeRels(zw *zip.Writer, ownerName string, rels []*Relationship) error {
	if len(rels) == 0 {
		return nil
	}
	raw := xmlRelationships{}
	for _, rel := range rels {
		xr := xmlRelationship{ID: rel.ID, Type: rel.Type, Target: rel.Target}
		if rel.External {
			xr.TargetMode = "External"
		}
		raw.Relationships = append(raw.Relationships, xr)
	}
	data, err := xml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal relationships for %s: %w", ownerName, err)
	}
	return writeZipEntry(zw, relsPathFor(ownerName), append([]byte(xml.Header), data...))
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	f, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create zip entry %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write zip entry %s: %w", name, err)
	}
	return nil
}
