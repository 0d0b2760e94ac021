package slidegraft

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
)

// Slide part skeleton used when instantiating a layout. Matches what
// PowerPoint emits for a freshly inserted slide: an empty shape tree plus
// the master color mapping.
const slideSkeletonXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/></p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`

// PresentationPart returns the package's main document part
// (ppt/presentation.xml), located through the officeDocument relationship.
func (p *Package) PresentationPart() (*Part, error) {
	for _, rel := range p.rels {
		if rel.Type == RelTypeOfficeDocument && !rel.External {
			name := strings.TrimPrefix(rel.Target, "/")
			if part := p.parts[name]; part != nil {
				return part, nil
			}
			return nil, fmt.Errorf("officeDocument target %s: %w", name, ErrPartNotFound)
		}
	}
	return nil, fmt.Errorf("no officeDocument relationship: %w", ErrPartNotFound)
}

// sldIdList returns the presentation's p:sldIdLst element, optionally
// creating it right after p:sldMasterIdLst when absent.
func (p *Package) sldIdList(create bool) (*Part, *xmlquery.Node, error) {
	pres, err := p.PresentationPart()
	if err != nil {
		return nil, nil, err
	}
	doc, err := pres.Document()
	if err != nil {
		return nil, nil, err
	}
	root := documentRoot(doc)
	if !isElement(root, nsPresentationML, "presentation") {
		return nil, nil, fmt.Errorf("%s: no p:presentation root: %w", pres.name, ErrPartNotFound)
	}
	list := findChild(root, nsPresentationML, "sldIdLst")
	if list == nil && create {
		list = newElement("p", nsPresentationML, "sldIdLst")
		switch masters := findChild(root, nsPresentationML, "sldMasterIdLst"); {
		case masters != nil && masters.NextSibling != nil:
			insertBefore(list, masters.NextSibling)
		case masters != nil:
			// Master list is the last child; the slide list follows it.
			appendChild(root, list)
		case root.FirstChild != nil:
			insertBefore(list, root.FirstChild)
		default:
			appendChild(root, list)
		}
	}
	return pres, list, nil
}

// idListTargets resolves an id-list element (p:sldIdLst, p:sldMasterIdLst,
// p:sldLayoutIdLst) to the parts its r:id attributes reference, in order.
func idListTargets(owner *Part, list *xmlquery.Node) ([]*Part, error) {
	if list == nil {
		return nil, nil
	}
	var parts []*Part
	for _, entry := range childElements(list) {
		rid := attrValueNS(entry, nsDocumentRels, "id")
		if rid == "" {
			continue
		}
		rel, err := owner.Relationship(rid)
		if err != nil {
			return nil, err
		}
		target, err := owner.TargetPart(rel)
		if err != nil {
			return nil, err
		}
		parts = append(parts, target)
	}
	return parts, nil
}

// SlideParts returns the slide parts in presentation order.
func (p *Package) SlideParts() ([]*Part, error) {
	pres, list, err := p.sldIdList(false)
	if err != nil {
		return nil, err
	}
	return idListTargets(pres, list)
}

// SlideCount returns the number of slides in the presentation.
func (p *Package) SlideCount() (int, error) {
	slides, err := p.SlideParts()
	if err != nil {
		return 0, err
	}
	return len(slides), nil
}

// MasterParts returns the slide master parts in presentation order.
func (p *Package) MasterParts() ([]*Part, error) {
	pres, err := p.PresentationPart()
	if err != nil {
		return nil, err
	}
	doc, err := pres.Document()
	if err != nil {
		return nil, err
	}
	root := documentRoot(doc)
	return idListTargets(pres, findChild(root, nsPresentationML, "sldMasterIdLst"))
}

// LayoutParts returns every slide layout part, in master order then
// layout order within each master.
func (p *Package) LayoutParts() ([]*Part, error) {
	masters, err := p.MasterParts()
	if err != nil {
		return nil, err
	}
	var layouts []*Part
	for _, master := range masters {
		doc, err := master.Document()
		if err != nil {
			return nil, err
		}
		root := documentRoot(doc)
		list := findChild(root, nsPresentationML, "sldLayoutIdLst")
		targets, err := idListTargets(master, list)
		if err != nil {
			return nil, err
		}
		layouts = append(layouts, targets...)
	}
	return layouts, nil
}

// DropRelationship removes the relationship with the given ID from the
// part. Removing an unknown ID is a no-op.
func (pt *Part) DropRelationship(id string) {
	kept := pt.rels[:0]
	for _, rel := range pt.rels {
		if rel.ID != id {
			kept = append(kept, rel)
		}
	}
	pt.rels = kept
}

// RemoveAllSlides drops every slide from the presentation while keeping
// masters, layouts, and themes. Slide parts are removed from the package;
// media they referenced is left in place (it may be shared).
func (p *Package) RemoveAllSlides() error {
	pres, list, err := p.sldIdList(false)
	if err != nil {
		return err
	}
	if list == nil {
		return nil
	}
	for _, entry := range childElements(list) {
		rid := attrValueNS(entry, nsDocumentRels, "id")
		if rel, err := pres.Relationship(rid); err == nil {
			if target, err := pres.TargetPart(rel); err == nil {
				p.RemovePart(target.name)
			}
			pres.DropRelationship(rid)
		}
		detach(entry)
	}
	return nil
}

// OpenTemplate opens a presentation file and removes all of its slides so
// new ones can be grafted in using the template's layouts. Slide layouts,
// masters, and the theme are preserved.
func OpenTemplate(path string) (*Package, error) {
	pkg, err := OpenPackage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}
	if err := pkg.RemoveAllSlides(); err != nil {
		return nil, fmt.Errorf("failed to clear template slides: %w", err)
	}
	return pkg, nil
}

// nextSlidePartName allocates the next free ppt/slides/slideN.xml name.
func (p *Package) nextSlidePartName() string {
	max := 0
	for name := range p.parts {
		if !strings.HasPrefix(name, "ppt/slides/slide") || !strings.HasSuffix(name, ".xml") {
			continue
		}
		num := strings.TrimSuffix(strings.TrimPrefix(name, "ppt/slides/slide"), ".xml")
		if n, err := strconv.Atoi(num); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("ppt/slides/slide%d.xml", max+1)
}

// AddSlideFromLayout creates a new empty slide bound to the layout at the
// given index, cloning the layout's placeholder shapes as the slide's
// initial shape skeleton, and appends it to the slide list.
func (p *Package) AddSlideFromLayout(layoutIndex int) (*Part, error) {
	layouts, err := p.LayoutParts()
	if err != nil {
		return nil, err
	}
	if layoutIndex < 0 || layoutIndex >= len(layouts) {
		return nil, fmt.Errorf("layout index %d out of range (0-%d): %w",
			layoutIndex, len(layouts)-1, ErrLayoutIndexOutOfRange)
	}
	layout := layouts[layoutIndex]

	doc, err := xmlquery.Parse(strings.NewReader(slideSkeletonXML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse slide skeleton: %w", err)
	}
	spTree, err := shapeTreeOf(doc)
	if err != nil {
		return nil, err
	}

	if err := clonePlaceholdersInto(layout, spTree); err != nil {
		return nil, err
	}

	slide, err := p.AddPart(p.nextSlidePartName(), ContentTypeSlide, nil)
	if err != nil {
		return nil, err
	}
	slide.SetDocument(doc)
	slide.RelateTo(layout, RelTypeSlideLayout)

	pres, list, err := p.sldIdList(true)
	if err != nil {
		return nil, err
	}
	rel := pres.RelateTo(slide, RelTypeSlide)

	entry := newElement("p", nsPresentationML, "sldId")
	setAttr(entry, "id", strconv.Itoa(nextSlideID(list)))
	setAttrNS(entry, "r", nsDocumentRels, "id", rel.ID)
	appendChild(list, entry)

	return slide, nil
}

// nextSlideID returns a fresh slide ID. PowerPoint slide IDs start at 256.
func nextSlideID(list *xmlquery.Node) int {
	max := 255
	for _, entry := range childElements(list) {
		if n, err := strconv.Atoi(attrValue(entry, "id")); err == nil && n > max {
			max = n
		}
	}
	return max + 1
}

// systemPlaceholderTypes are layout placeholders that belong to the
// layout chrome, not the slide: a fresh slide never instantiates them.
var systemPlaceholderTypes = map[string]bool{
	"dt":     true,
	"ftr":    true,
	"sldNum": true,
}

// clonePlaceholdersInto copies the layout's content placeholder shapes
// into a slide's shape tree, renumbering shape IDs so they stay unique
// within the new slide. Date, footer, and slide-number placeholders are
// skipped.
func clonePlaceholdersInto(layout *Part, spTree *xmlquery.Node) error {
	layoutDoc, err := layout.Document()
	if err != nil {
		return err
	}
	layoutTree, err := shapeTreeOf(layoutDoc)
	if err != nil {
		return fmt.Errorf("layout %s: %w", layout.name, err)
	}
	nextID := 2
	for _, child := range childElements(layoutTree) {
		phType, _, ok := placeholderInfo(child)
		if !ok || systemPlaceholderTypes[phType] {
			continue
		}
		clone := cloneTree(child)
		renumberShapeID(clone, nextID)
		nextID++
		appendChild(spTree, clone)
	}
	return nil
}

// renumberShapeID rewrites the shape's p:cNvPr id attribute.
func renumberShapeID(sp *xmlquery.Node, id int) {
	nv := findChild(sp, nsPresentationML, "nvSpPr")
	if nv == nil {
		return
	}
	if cNvPr := findChild(nv, nsPresentationML, "cNvPr"); cNvPr != nil {
		setAttr(cNvPr, "id", strconv.Itoa(id))
	}
}

// shapeTreeOf returns the p:spTree element of a slide-like document
// (slide, layout, or master). A missing tree is a structural error.
func shapeTreeOf(doc *xmlquery.Node) (*xmlquery.Node, error) {
	root := documentRoot(doc)
	if root == nil {
		return nil, ErrShapeTreeMissing
	}
	cSld := findChild(root, nsPresentationML, "cSld")
	if cSld == nil {
		return nil, ErrShapeTreeMissing
	}
	spTree := findChild(cSld, nsPresentationML, "spTree")
	if spTree == nil {
		return nil, ErrShapeTreeMissing
	}
	return spTree, nil
}
