package slidegraft

import (
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"github.com/tiendc/go-deepcopy"
)

// colorSlots lists the twelve canonical color scheme slots in scheme order.
// The order matters: the reverse hex index is built first-slot-wins.
var colorSlots = []string{
	"dk1", "dk2", "lt1", "lt2",
	"accent1", "accent2", "accent3", "accent4", "accent5", "accent6",
	"hlink", "folHlink",
}

// ColorScheme maps a theme color slot name to its uppercase hex value,
// e.g. "accent1" -> "4472C4".
type ColorScheme map[string]string

// FontSet holds the three language-variant typefaces of one theme font.
type FontSet struct {
	Latin         string
	EastAsian     string
	ComplexScript string
}

// FontScheme holds the theme's major (heading) and minor (body) fonts.
type FontScheme struct {
	Major FontSet
	Minor FontSet
}

// Theme is the extracted color and font definition of a presentation.
type Theme struct {
	Colors ColorScheme
	Fonts  FontScheme
}

// Clone returns an independent deep copy of the theme.
func (t *Theme) Clone() *Theme {
	clone := &Theme{}
	if err := deepcopy.Copy(clone, t); err != nil {
		// Theme is a plain value tree; a copy failure means a programming
		// error, so fall back to an empty theme rather than panic.
		return &Theme{Colors: ColorScheme{}}
	}
	return clone
}

var (
	clrSchemeQuery  = xpath.MustCompile("//*[local-name()='clrScheme']")
	fontSchemeQuery = xpath.MustCompile("//*[local-name()='fontScheme']")
)

// ExtractTheme reads the theme of the first slide master whose theme part
// yields a non-empty color scheme. Packages with several masters carrying
// divergent themes are unspecified; the first non-empty one wins, matching
// long-standing behavior.
//
// A package without a resolvable theme yields a Theme with an empty color
// table, not an error: color normalization simply becomes a no-op.
func ExtractTheme(pkg *Package) (*Theme, error) {
	masters, err := pkg.MasterParts()
	if err != nil {
		return nil, err
	}
	for _, master := range masters {
		for _, rel := range master.Relationships() {
			if rel.External || !strings.Contains(rel.Type, "theme") {
				continue
			}
			themePart, err := master.TargetPart(rel)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve theme of %s: %w", master.name, err)
			}
			doc, err := themePart.Document()
			if err != nil {
				return nil, err
			}
			scheme := xmlquery.QuerySelector(doc, clrSchemeQuery)
			if scheme == nil {
				continue
			}
			colors := parseColorScheme(scheme)
			if len(colors) == 0 {
				continue
			}
			theme := &Theme{Colors: colors}
			if fonts := xmlquery.QuerySelector(doc, fontSchemeQuery); fonts != nil {
				theme.Fonts = parseFontScheme(fonts)
			}
			return theme, nil
		}
	}
	return &Theme{Colors: ColorScheme{}}, nil
}

// ExtractThemeColors is a convenience wrapper returning only the color
// table.
func ExtractThemeColors(pkg *Package) (ColorScheme, error) {
	theme, err := ExtractTheme(pkg)
	if err != nil {
		return nil, err
	}
	return theme.Colors, nil
}

// parseColorScheme reads the twelve canonical slots from an a:clrScheme
// element. A slot holding a literal srgbClr records its value uppercased;
// a slot forwarding to a system color records the system color's
// last-resolved literal. Slots with neither are omitted.
func parseColorScheme(scheme *xmlquery.Node) ColorScheme {
	colors := make(ColorScheme)
	for _, slot := range colorSlots {
		elem := findChild(scheme, nsDrawingML, slot)
		if elem == nil {
			continue
		}
		if srgb := findChild(elem, nsDrawingML, "srgbClr"); srgb != nil {
			if val := attrValue(srgb, "val"); val != "" {
				colors[slot] = strings.ToUpper(val)
			}
			continue
		}
		if sys := findChild(elem, nsDrawingML, "sysClr"); sys != nil {
			if val := attrValue(sys, "lastClr"); val != "" {
				colors[slot] = strings.ToUpper(val)
			}
		}
	}
	return colors
}

// parseFontScheme reads major/minor font definitions from an a:fontScheme
// element.
func parseFontScheme(scheme *xmlquery.Node) FontScheme {
	read := func(name string) FontSet {
		var set FontSet
		font := findChild(scheme, nsDrawingML, name)
		if font == nil {
			return set
		}
		if latin := findChild(font, nsDrawingML, "latin"); latin != nil {
			set.Latin = attrValue(latin, "typeface")
		}
		if ea := findChild(font, nsDrawingML, "ea"); ea != nil {
			set.EastAsian = attrValue(ea, "typeface")
		}
		if cs := findChild(font, nsDrawingML, "cs"); cs != nil {
			set.ComplexScript = attrValue(cs, "typeface")
		}
		return set
	}
	return FontScheme{Major: read("majorFont"), Minor: read("minorFont")}
}
