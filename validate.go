package slidegraft

import (
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
)

// ValidateReferences checks the package's referential integrity after a
// transplant run and returns an error describing all problems found, or
// nil if the package is sound. Two properties are verified:
//
//   - every relationship-identifier attribute (the r: namespace family)
//     inside a slide document resolves to a relationship of that slide
//     part, and
//   - every internal relationship of every slide resolves to a part that
//     exists in the package.
func (p *Package) ValidateReferences() error {
	var errs []string

	slides, err := p.SlideParts()
	if err != nil {
		return err
	}

	for _, slide := range slides {
		prefix := slide.name

		for _, rel := range slide.Relationships() {
			if rel.External {
				continue
			}
			if _, err := slide.TargetPart(rel); err != nil {
				errs = append(errs, fmt.Sprintf("%s: relationship %s: target %s does not exist",
					prefix, rel.ID, rel.Target))
			}
		}

		doc, err := slide.Document()
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", prefix, err))
			continue
		}
		walkElements(doc, func(e *xmlquery.Node) {
			for _, attr := range e.Attr {
				if attr.NamespaceURI != nsDocumentRels || attr.Value == "" {
					continue
				}
				if _, err := slide.Relationship(attr.Value); err != nil {
					errs = append(errs, fmt.Sprintf("%s: element %s: attribute %s references unknown relationship %q",
						prefix, e.Data, attr.Name.Local, attr.Value))
				}
			}
		})
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("reference validation failed:\n  %s", strings.Join(errs, "\n  "))
}
