package slidegraft

import (
	"github.com/antchfx/xmlquery"
)

// shapeKind is the closed set of top-level shape variants the mapper
// recognizes. Anything else in a shape tree (extension lists, the group
// shape properties) is passed through untouched.
type shapeKind int

const (
	shapeUnknown shapeKind = iota
	shapePlain
	shapeGroup
	shapePicture
	shapeGraphicFrame
	shapeConnector
)

func shapeKindOf(n *xmlquery.Node) shapeKind {
	if n == nil || n.Type != xmlquery.ElementNode || n.NamespaceURI != nsPresentationML {
		return shapeUnknown
	}
	switch n.Data {
	case "sp":
		return shapePlain
	case "grpSp":
		return shapeGroup
	case "pic":
		return shapePicture
	case "graphicFrame":
		return shapeGraphicFrame
	case "cxnSp":
		return shapeConnector
	default:
		return shapeUnknown
	}
}

// placeholderInfo returns a shape's placeholder type and index. Only plain
// p:sp shapes can be placeholders; shapes nested inside groups are never
// scanned, a deliberate scope limit.
func placeholderInfo(sp *xmlquery.Node) (phType, phIdx string, ok bool) {
	if shapeKindOf(sp) != shapePlain {
		return "", "", false
	}
	nvSpPr := findChild(sp, nsPresentationML, "nvSpPr")
	if nvSpPr == nil {
		return "", "", false
	}
	nvPr := findChild(nvSpPr, nsPresentationML, "nvPr")
	if nvPr == nil {
		return "", "", false
	}
	ph := findChild(nvPr, nsPresentationML, "ph")
	if ph == nil {
		return "", "", false
	}
	return attrValue(ph, "type"), attrValue(ph, "idx"), true
}

// placeholderKey derives the classification key used for matching: the
// semantic type when present, otherwise the positional index. The key is
// used for matching only, never for identity.
func placeholderKey(phType, phIdx string) string {
	if phType != "" {
		return phType
	}
	return "idx:" + phIdx
}

// isTitleShape reports whether a shape is a title-class placeholder.
func isTitleShape(sp *xmlquery.Node) bool {
	phType, _, ok := placeholderInfo(sp)
	return ok && (phType == "title" || phType == "ctrTitle")
}

// removePlaceholderRef strips the placeholder designation from a shape so
// it renders as an ordinary shape, no longer layout-bound.
func removePlaceholderRef(sp *xmlquery.Node) {
	nvSpPr := findChild(sp, nsPresentationML, "nvSpPr")
	if nvSpPr == nil {
		return
	}
	nvPr := findChild(nvSpPr, nsPresentationML, "nvPr")
	if nvPr == nil {
		return
	}
	if ph := findChild(nvPr, nsPresentationML, "ph"); ph != nil {
		detach(ph)
	}
}

// copyPlaceholderText replaces the destination placeholder's paragraphs
// with verbatim copies of the source's. The destination's formatting
// container survives: body properties and list style stay the template's.
// A shape missing its text body is skipped, not an error.
func copyPlaceholderText(srcSp, dstSp *xmlquery.Node) {
	srcBody := findChild(srcSp, nsPresentationML, "txBody")
	dstBody := findChild(dstSp, nsPresentationML, "txBody")
	if srcBody == nil || dstBody == nil {
		return
	}
	for _, p := range childElementsNamed(dstBody, nsDrawingML, "p") {
		detach(p)
	}
	for _, p := range childElementsNamed(srcBody, nsDrawingML, "p") {
		appendChild(dstBody, cloneTree(p))
	}
}

func childElementsNamed(n *xmlquery.Node, nsURI, local string) []*xmlquery.Node {
	var found []*xmlquery.Node
	for _, child := range childElements(n) {
		if isElement(child, nsURI, local) {
			found = append(found, child)
		}
	}
	return found
}

// keyedShape pairs a source placeholder with its classification key,
// preserving document order.
type keyedShape struct {
	key   string
	shape *xmlquery.Node
}

// mergePlaceholders reconciles the source slide's shapes with the
// destination slide's template skeleton:
//
//  1. Source shapes are classified into keyed placeholders (first
//     occurrence per key wins) and ordered non-placeholder shapes.
//  2. Each destination placeholder whose key has an unconsumed source
//     match receives the source's paragraphs; first match in document
//     order wins and the key is consumed either way.
//  3. Non-placeholder source shapes are deep-copied, reference-rewritten,
//     and appended after all template shapes, in source order.
//  4. Unconsumed source placeholders are deep-copied, demoted to ordinary
//     shapes, reference-rewritten, and appended.
func mergePlaceholders(srcSlide, dstSlide *Part, idMap map[string]string) error {
	srcDoc, err := srcSlide.Document()
	if err != nil {
		return err
	}
	srcTree, err := shapeTreeOf(srcDoc)
	if err != nil {
		return err
	}
	dstDoc, err := dstSlide.Document()
	if err != nil {
		return err
	}
	dstTree, err := shapeTreeOf(dstDoc)
	if err != nil {
		return err
	}

	var srcPlaceholders []keyedShape
	srcByKey := make(map[string]*xmlquery.Node)
	var srcOther []*xmlquery.Node

	for _, child := range childElements(srcTree) {
		if shapeKindOf(child) == shapeUnknown {
			continue
		}
		if phType, phIdx, ok := placeholderInfo(child); ok {
			key := placeholderKey(phType, phIdx)
			if _, seen := srcByKey[key]; !seen {
				srcByKey[key] = child
				srcPlaceholders = append(srcPlaceholders, keyedShape{key: key, shape: child})
			}
			continue
		}
		srcOther = append(srcOther, child)
	}

	consumed := make(map[string]bool)
	for _, dstChild := range childElements(dstTree) {
		phType, phIdx, ok := placeholderInfo(dstChild)
		if !ok {
			continue
		}
		key := placeholderKey(phType, phIdx)
		srcSp, found := srcByKey[key]
		if !found || consumed[key] {
			continue
		}
		copyPlaceholderText(srcSp, dstChild)
		consumed[key] = true
	}

	for _, sp := range srcOther {
		clone := cloneTree(sp)
		rewriteRelIDs(clone, idMap)
		appendChild(dstTree, clone)
	}

	for _, ph := range srcPlaceholders {
		if consumed[ph.key] {
			continue
		}
		clone := cloneTree(ph.shape)
		rewriteRelIDs(clone, idMap)
		removePlaceholderRef(clone)
		appendChild(dstTree, clone)
	}

	return nil
}
