package slidegraft

import (
	"bytes"
	"fmt"
	"image"
	"path"
	"strings"
	"sync/atomic"

	// Registered so MediaAllocator can sniff formats the content type
	// does not identify. GIF/JPEG/PNG come with the standard library.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MediaAllocator hands out globally unique media part names for one entire
// transplant run. Scoping it to the run (not the slide) is what keeps part
// paths from colliding across a multi-slide, multi-source batch; the
// counter is atomic so concurrent slide copies stay safe.
type MediaAllocator struct {
	counter atomic.Int64
}

// extensionByContentType maps recognized media content types to part name
// extensions.
var extensionByContentType = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/gif":     ".gif",
	"image/bmp":     ".bmp",
	"image/tiff":    ".tiff",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
	"image/x-emf":   ".emf",
	"image/x-wmf":   ".wmf",
}

// NextName allocates a fresh media part name. The extension comes from the
// content type; unrecognized types are sniffed from the payload, and
// anything still unknown falls back to .bin.
func (a *MediaAllocator) NextName(contentType string, blob []byte) string {
	n := a.counter.Add(1)
	ext, ok := extensionByContentType[strings.ToLower(contentType)]
	if !ok {
		ext = sniffImageExtension(blob)
	}
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("ppt/media/copied_image%d%s", n, ext)
}

// nextAdoptedName allocates a fresh name for an adopted part whose
// original name is already taken in the destination, keeping the
// directory and extension so the part stays recognizable.
func (a *MediaAllocator) nextAdoptedName(pkg *Package, original string) string {
	dir := path.Dir(original)
	ext := path.Ext(original)
	stem := strings.TrimRight(strings.TrimSuffix(path.Base(original), ext), "0123456789")
	for {
		name := fmt.Sprintf("%s/copied_%s%d%s", dir, stem, a.counter.Add(1), ext)
		if pkg.parts[name] == nil {
			return name
		}
	}
}

// sniffImageExtension detects the image format from the payload's magic
// bytes, returning "" when no registered decoder recognizes it.
func sniffImageExtension(blob []byte) string {
	if len(blob) == 0 {
		return ""
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(blob))
	if err != nil {
		return ""
	}
	if format == "jpeg" {
		return ".jpg"
	}
	return "." + format
}

// excludedRelType reports relationship kinds the relocator must not carry
// over: the destination slide owns its own layout and notes links.
func excludedRelType(relType string) bool {
	return strings.Contains(relType, "slideLayout") || strings.Contains(relType, "notesSlide")
}

// relocateResources duplicates or relinks every non-excluded relationship
// of the source slide part into the destination slide part and returns the
// old-to-new identifier map.
//
// External relationships are reused when an identical one already exists
// on the destination. Image media is copied into a fresh, uniquely named
// part so concurrent packages never contend on the same file entry; every
// other internal relationship is adopted into the destination together
// with its full dependency closure (a chart brings its embedded workbook,
// colors, and style parts). The source package is never mutated.
func relocateResources(src, dst *Part, alloc *MediaAllocator) (map[string]string, error) {
	idMap := make(map[string]string)
	adopted := make(map[*Part]*Part)

	for _, rel := range src.Relationships() {
		if excludedRelType(rel.Type) {
			continue
		}

		if rel.External {
			idMap[rel.ID] = dst.GetOrAddExternalRelationship(rel.Type, rel.Target)
			continue
		}

		target, err := src.TargetPart(rel)
		if err != nil {
			return nil, fmt.Errorf("failed to relocate %s: %w", src.name, err)
		}

		if strings.Contains(rel.Type, "image") {
			blob := append([]byte(nil), target.blob...)
			name := alloc.NextName(target.contentType, blob)
			fresh, err := dst.pkg.AddPart(name, target.contentType, blob)
			if err != nil {
				return nil, fmt.Errorf("failed to relocate %s: %w", src.name, err)
			}
			idMap[rel.ID] = dst.RelateTo(fresh, rel.Type).ID
			continue
		}

		part, err := adoptPartClosure(dst.pkg, target, alloc, adopted)
		if err != nil {
			return nil, fmt.Errorf("failed to relocate %s: %w", src.name, err)
		}
		idMap[rel.ID] = dst.AddRelationship(rel.Type, relativeTarget(dst.name, part.name), false).ID
	}

	return idMap, nil
}

// adoptPartClosure copies a source part and every part reachable through
// its internal relationships into the destination package, so the saved
// output never carries a relationship to a part that was left behind.
//
// An existing destination part with the same name and identical bytes is
// reused (it was adopted, closure included, by an earlier relocation). A
// same-named part with different content is NOT shared: identical names
// across independent source packages do not imply identical roles, so the
// incoming part gets a fresh unique name instead. Adopted parts are real
// copies owned by the destination; relationship identifiers are kept but
// targets are recomputed, so renames propagate without touching the
// source.
func adoptPartClosure(dst *Package, src *Part, alloc *MediaAllocator, seen map[*Part]*Part) (*Part, error) {
	if part, ok := seen[src]; ok {
		return part, nil
	}

	name := src.name
	if existing := dst.parts[name]; existing != nil {
		if bytes.Equal(existing.blob, src.blob) {
			seen[src] = existing
			return existing, nil
		}
		name = alloc.nextAdoptedName(dst, src.name)
	}

	part := &Part{
		pkg:         dst,
		name:        name,
		contentType: src.contentType,
		blob:        append([]byte(nil), src.blob...),
	}
	dst.parts[name] = part
	dst.types.register(name, src.contentType)
	// Registered before recursing so relationship cycles terminate.
	seen[src] = part

	for _, rel := range src.rels {
		if rel.External {
			part.rels = append(part.rels, &Relationship{
				ID:       rel.ID,
				Type:     rel.Type,
				Target:   rel.Target,
				External: true,
			})
			continue
		}
		child, err := src.TargetPart(rel)
		if err != nil {
			return nil, fmt.Errorf("failed to adopt %s: %w", src.name, err)
		}
		adoptedChild, err := adoptPartClosure(dst, child, alloc, seen)
		if err != nil {
			return nil, err
		}
		part.rels = append(part.rels, &Relationship{
			ID:     rel.ID,
			Type:   rel.Type,
			Target: relativeTarget(part.name, adoptedChild.name),
		})
	}

	return part, nil
}
