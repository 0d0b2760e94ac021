package slidegraft

import (
	"strings"

	"github.com/antchfx/xmlquery"
)

// Theme normalization converts literal colors and fonts in a merged shape
// tree back into symbolic theme references so the destination template's
// identity takes over. Substitution is exact-match only: a literal is
// promoted only when it equals a theme-derived value bit-for-bit after
// case normalization.

// RemapColorsToTheme replaces every a:srgbClr node under root whose value
// matches a color in the scheme with an a:schemeClr reference to the
// matching slot, re-parenting child modifier nodes (alpha, tint, shade,
// luminance adjustments) onto the new node unchanged. Literal colors with
// no exact theme match are left untouched.
func RemapColorsToTheme(root *xmlquery.Node, colors ColorScheme) {
	if len(colors) == 0 {
		return
	}
	// Reverse index, first slot wins on a hex collision: canonical slot
	// order makes the winner deterministic.
	hexToSlot := make(map[string]string, len(colors))
	for _, slot := range colorSlots {
		hex, ok := colors[slot]
		if !ok || hex == "" {
			continue
		}
		if _, taken := hexToSlot[hex]; !taken {
			hexToSlot[hex] = slot
		}
	}

	for _, srgb := range collectElements(root, nsDrawingML, "srgbClr") {
		slot, ok := hexToSlot[strings.ToUpper(attrValue(srgb, "val"))]
		if !ok {
			continue
		}
		scheme := newElement(srgb.Prefix, nsDrawingML, "schemeClr")
		setAttr(scheme, "val", slot)
		for child := srgb.FirstChild; child != nil; {
			next := child.NextSibling
			detach(child)
			appendChild(scheme, child)
			child = next
		}
		replaceNode(srgb, scheme)
	}
}

// fontVariantSuffix maps the three language-variant font elements to the
// suffix of their symbolic theme reference.
var fontVariantSuffix = map[string]string{
	"latin": "-lt",
	"ea":    "-ea",
	"cs":    "-cs",
}

// Literal-typeface metadata that is meaningless on a symbolic reference.
var fontMetadataAttrs = []string{"panose", "pitchFamily", "charset"}

const (
	majorFontPrefix = "+mj"
	minorFontPrefix = "+mn"
)

// RemapFontsToTheme rewrites every literal font-face reference under root
// to a symbolic theme font: shapes classified as titles get the major
// font, everything else (including font nodes outside any classified
// shape, such as table styles inside graphic frames) gets the minor font.
// Typefaces already expressed symbolically are left unchanged.
func RemapFontsToTheme(root *xmlquery.Node) {
	processed := make(map[*xmlquery.Node]bool)

	for _, sp := range collectElements(root, nsPresentationML, "sp") {
		prefix := minorFontPrefix
		if isTitleShape(sp) {
			prefix = majorFontPrefix
		}
		for variant := range fontVariantSuffix {
			for _, font := range collectElements(sp, nsDrawingML, variant) {
				remapFontElement(font, prefix)
				processed[font] = true
			}
		}
	}

	for variant := range fontVariantSuffix {
		for _, font := range collectElements(root, nsDrawingML, variant) {
			if !processed[font] {
				remapFontElement(font, minorFontPrefix)
			}
		}
	}
}

// remapFontElement rewrites one a:latin/a:ea/a:cs element to the symbolic
// reference for the given prefix, stripping literal font metadata. A
// typeface already starting with "+" is a theme reference and is left
// alone, which makes the pass idempotent.
func remapFontElement(font *xmlquery.Node, prefix string) {
	if strings.HasPrefix(attrValue(font, "typeface"), "+") {
		return
	}
	suffix, ok := fontVariantSuffix[font.Data]
	if !ok {
		return
	}
	setAttr(font, "typeface", prefix+suffix)
	for _, attr := range fontMetadataAttrs {
		removeAttr(font, attr)
	}
}
