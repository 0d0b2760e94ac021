// Package slidegraft transplants slides between PowerPoint presentation
// files (.pptx) following the Office Open XML (OOXML) standard.
//
// Unlike a typed presentation model, slidegraft operates directly on the
// OPC package: the zip container's parts, their relationships, and their
// XML documents. Source slide content is carried over byte-for-byte while
// relationship identifiers, theme colors, and theme fonts are rewritten to
// fit the destination template.
//
// See the Version variable for the current library version.
package slidegraft

import (
	"encoding/xml"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
)

// OOXML namespace URIs used throughout the package.
const (
	nsContentTypes    = "http://schemas.openxmlformats.org/package/2006/content-types"
	nsPackageRels     = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsDocumentRels    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsDrawingML       = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPresentationML  = "http://schemas.openxmlformats.org/presentationml/2006/main"
)

// Relationship types relevant to slide transplantation.
const (
	RelTypeOfficeDocument = nsDocumentRels + "/officeDocument"
	RelTypeSlide          = nsDocumentRels + "/slide"
	RelTypeSlideLayout    = nsDocumentRels + "/slideLayout"
	RelTypeSlideMaster    = nsDocumentRels + "/slideMaster"
	RelTypeTheme          = nsDocumentRels + "/theme"
	RelTypeImage          = nsDocumentRels + "/image"
	RelTypeNotesSlide     = nsDocumentRels + "/notesSlide"
)

// Content types for the parts this library creates.
const (
	ContentTypeSlide = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"
)

// Package is an in-memory OPC container: a set of named parts plus the
// relationship graph connecting them.
type Package struct {
	parts map[string]*Part
	types contentTypes
	rels  []*Relationship // package-level relationships (_rels/.rels)
}

// Part is a single named resource inside a Package. XML parts expose a
// lazily parsed DOM via Document; binary parts only carry Blob.
type Part struct {
	pkg         *Package
	name        string // zip-style path without leading slash, e.g. "ppt/slides/slide1.xml"
	contentType string
	blob        []byte
	doc         *xmlquery.Node // document node, non-nil once parsed
	rels        []*Relationship
}

// Relationship is a typed, identified edge from an owning part to another
// part (internal) or an external URI. Identifiers are part-local: the same
// literal ID means different things in different parts.
type Relationship struct {
	ID       string
	Type     string
	Target   string // part-relative path, or URI for external relationships
	External bool
}

// contentTypes mirrors [Content_Types].xml: extension defaults plus
// per-part overrides. Part names in overrides carry a leading slash.
type contentTypes struct {
	defaults  map[string]string // extension (no dot) -> content type
	overrides map[string]string // "/ppt/slides/slide1.xml" -> content type
	// defaultOrder preserves the order defaults were first seen so that
	// serialization is deterministic.
	defaultOrder []string
}

func newPackage() *Package {
	return &Package{
		parts: make(map[string]*Part),
		types: contentTypes{
			defaults:  make(map[string]string),
			overrides: make(map[string]string),
		},
	}
}

// Part returns the part with the given name, or nil if absent.
// Names are zip-style without a leading slash.
func (p *Package) Part(name string) *Part {
	return p.parts[strings.TrimPrefix(name, "/")]
}

// PartNames returns all part names in sorted order.
func (p *Package) PartNames() []string {
	names := make([]string, 0, len(p.parts))
	for name := range p.parts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddPart creates a new part with the given name, content type, and
// payload, registering its content type. Part names must not collide.
func (p *Package) AddPart(name, contentType string, blob []byte) (*Part, error) {
	name = strings.TrimPrefix(name, "/")
	if _, exists := p.parts[name]; exists {
		return nil, fmt.Errorf("part name collision: %s", name)
	}
	part := &Part{
		pkg:         p,
		name:        name,
		contentType: contentType,
		blob:        blob,
	}
	p.parts[name] = part
	p.types.register(name, contentType)
	return part, nil
}

// RemovePart deletes a part, its relationships, and its content-type
// override. Relationships from other parts pointing at it are untouched.
func (p *Package) RemovePart(name string) {
	name = strings.TrimPrefix(name, "/")
	delete(p.parts, name)
	delete(p.types.overrides, "/"+name)
}

// Relationships returns the package-level relationships (_rels/.rels).
func (p *Package) Relationships() []*Relationship {
	return p.rels
}

// Name returns the part's name (zip-style, no leading slash).
func (pt *Part) Name() string { return pt.name }

// ContentType returns the part's content type.
func (pt *Part) ContentType() string { return pt.contentType }

// Blob returns the part's raw payload as read from the container. For XML
// parts that have been parsed and mutated, the serialized Document is
// authoritative; Blob is the original bytes.
func (pt *Part) Blob() []byte { return pt.blob }

// Document returns the part's XML document node, parsing the payload on
// first use. The returned node is the live tree: mutations are reflected
// when the package is saved.
func (pt *Part) Document() (*xmlquery.Node, error) {
	if pt.doc != nil {
		return pt.doc, nil
	}
	doc, err := xmlquery.Parse(strings.NewReader(string(pt.blob)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", pt.name, err)
	}
	pt.doc = doc
	return doc, nil
}

// SetDocument replaces the part's XML document.
func (pt *Part) SetDocument(doc *xmlquery.Node) {
	pt.doc = doc
}

// Relationships returns the part's relationships in document order.
func (pt *Part) Relationships() []*Relationship {
	return pt.rels
}

// Relationship returns the relationship with the given ID, or an error
// wrapping ErrRelationshipNotFound.
func (pt *Part) Relationship(id string) (*Relationship, error) {
	for _, rel := range pt.rels {
		if rel.ID == id {
			return rel, nil
		}
	}
	return nil, fmt.Errorf("part %s: relationship %q: %w", pt.name, id, ErrRelationshipNotFound)
}

// nextRelID allocates the next unused rId within this part.
func (pt *Part) nextRelID() string {
	max := 0
	for _, rel := range pt.rels {
		if n, ok := relIDNumber(rel.ID); ok && n > max {
			max = n
		}
	}
	return fmt.Sprintf("rId%d", max+1)
}

func relIDNumber(id string) (int, bool) {
	if !strings.HasPrefix(id, "rId") {
		return 0, false
	}
	n, err := strconv.Atoi(id[3:])
	if err != nil {
		return 0, false
	}
	return n, true
}

// AddRelationship creates a new relationship from this part and returns it.
// target is a part-relative path for internal relationships, a URI for
// external ones.
func (pt *Part) AddRelationship(relType, target string, external bool) *Relationship {
	rel := &Relationship{
		ID:       pt.nextRelID(),
		Type:     relType,
		Target:   target,
		External: external,
	}
	pt.rels = append(pt.rels, rel)
	return rel
}

// GetOrAddExternalRelationship returns the ID of an existing external
// relationship with the same type and target, creating one if absent.
func (pt *Part) GetOrAddExternalRelationship(relType, target string) string {
	for _, rel := range pt.rels {
		if rel.External && rel.Type == relType && rel.Target == target {
			return rel.ID
		}
	}
	return pt.AddRelationship(relType, target, true).ID
}

// RelateTo creates an internal relationship from this part to the given
// target part, computing the relative target path.
func (pt *Part) RelateTo(target *Part, relType string) *Relationship {
	return pt.AddRelationship(relType, relativeTarget(pt.name, target.name), false)
}

// TargetPart resolves an internal relationship to its target part. External
// relationships and dangling targets yield an error wrapping ErrPartNotFound.
func (pt *Part) TargetPart(rel *Relationship) (*Part, error) {
	if rel.External {
		return nil, fmt.Errorf("relationship %s of %s is external: %w", rel.ID, pt.name, ErrPartNotFound)
	}
	name := resolveTarget(pt.name, rel.Target)
	target := pt.pkg.parts[name]
	if target == nil {
		return nil, fmt.Errorf("relationship %s of %s: target %s: %w", rel.ID, pt.name, name, ErrPartNotFound)
	}
	return target, nil
}

// resolveTarget turns a relationship target into a package part name.
// Targets are relative to the owning part's directory unless they start
// with a slash.
func resolveTarget(ownerName, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join(path.Dir(ownerName), target))
}

// relativeTarget computes a relationship target for toName relative to the
// directory of fromName, e.g. ("ppt/slides/slide1.xml",
// "ppt/media/image1.png") -> "../media/image1.png".
func relativeTarget(fromName, toName string) string {
	fromDir := strings.Split(path.Dir(fromName), "/")
	to := strings.Split(toName, "/")
	common := 0
	for common < len(fromDir) && common < len(to)-1 && fromDir[common] == to[common] {
		common++
	}
	var parts []string
	for i := common; i < len(fromDir); i++ {
		parts = append(parts, "..")
	}
	parts = append(parts, to[common:]...)
	return strings.Join(parts, "/")
}

// relsPathFor returns the .rels file path for a part name, or the package
// rels path for the empty name.
func relsPathFor(name string) string {
	if name == "" {
		return "_rels/.rels"
	}
	return path.Join(path.Dir(name), "_rels", path.Base(name)+".rels")
}

// register records a content type for a part. Media extensions get a
// Default entry; XML parts get per-part Overrides (an xml Default would
// claim every other XML part in the package).
func (ct *contentTypes) register(name, contentType string) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if ext != "" {
		if existing, ok := ct.defaults[ext]; ok {
			if existing == contentType {
				return
			}
		} else if ext != "xml" {
			ct.defaults[ext] = contentType
			ct.defaultOrder = append(ct.defaultOrder, ext)
			return
		}
	}
	ct.overrides["/"+name] = contentType
}

// lookup returns the content type for a part name.
func (ct *contentTypes) lookup(name string) string {
	if t, ok := ct.overrides["/"+name]; ok {
		return t
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	return ct.defaults[ext]
}

// --- [Content_Types].xml serialization ---
// Struct shapes follow the OPC content-types schema; compare excelize's
// xlsxTypes mapping of the same document.

type xmlTypes struct {
	XMLName   xml.Name      `xml:"http://schemas.openxmlformats.org/package/2006/content-types Types"`
	Defaults  []xmlDefault  `xml:"Default"`
	Overrides []xmlOverride `xml:"Override"`
}

type xmlDefault struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type xmlOverride struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

func (ct *contentTypes) marshal() ([]byte, error) {
	types := xmlTypes{}
	for _, ext := range ct.defaultOrder {
		types.Defaults = append(types.Defaults, xmlDefault{Extension: ext, ContentType: ct.defaults[ext]})
	}
	names := make([]string, 0, len(ct.overrides))
	for name := range ct.overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		types.Overrides = append(types.Overrides, xmlOverride{PartName: name, ContentType: ct.overrides[name]})
	}
	data, err := xml.Marshal(types)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal content types: %w", err)
	}
	return append([]byte(xml.Header), data...), nil
}

func (ct *contentTypes) unmarshal(data []byte) error {
	var types xmlTypes
	if err := xml.Unmarshal(data, &types); err != nil {
		return fmt.Errorf("failed to parse [Content_Types].xml: %w", err)
	}
	for _, d := range types.Defaults {
		ext := strings.ToLower(d.Extension)
		if _, ok := ct.defaults[ext]; !ok {
			ct.defaults[ext] = d.ContentType
			ct.defaultOrder = append(ct.defaultOrder, ext)
		}
	}
	for _, o := range types.Overrides {
		ct.overrides[o.PartName] = o.ContentType
	}
	return nil
}
