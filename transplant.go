package slidegraft

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/antchfx/xmlquery"
)

// CopyOptions controls one slide transplant.
type CopyOptions struct {
	// LayoutIndex selects the destination layout applied to copied slides.
	LayoutIndex int
	// ApplyTemplateBackground keeps the template's background. When false,
	// the source slide's background (if any) replaces it.
	ApplyTemplateBackground bool
	// RemapFonts rewrites literal typefaces to theme font references.
	RemapFonts bool
	// RemapColors rewrites theme-derived literal colors to scheme
	// references.
	RemapColors bool
	// UsePlaceholders merges source content into the template's
	// placeholder skeleton instead of replacing the whole shape tree.
	UsePlaceholders bool
}

// DefaultCopyOptions mirrors what most template fills want: template
// background and theme normalization on, wholesale shape transfer.
func DefaultCopyOptions() CopyOptions {
	return CopyOptions{
		LayoutIndex:             0,
		ApplyTemplateBackground: true,
		RemapFonts:              true,
		RemapColors:             true,
	}
}

// Transplanter copies slides from source packages into one destination
// package. It owns the media allocator for the whole run, so part names
// stay unique across every source and slide, and caches each source's
// extracted theme.
type Transplanter struct {
	dst    *Package
	opts   CopyOptions
	alloc  MediaAllocator
	themes map[*Package]ColorScheme
}

// NewTransplanter creates a transplanter targeting dst.
func NewTransplanter(dst *Package, opts CopyOptions) *Transplanter {
	return &Transplanter{
		dst:    dst,
		opts:   opts,
		themes: make(map[*Package]ColorScheme),
	}
}

// Destination returns the package being built.
func (t *Transplanter) Destination() *Package {
	return t.dst
}

func (t *Transplanter) sourceColors(src *Package) (ColorScheme, error) {
	if colors, ok := t.themes[src]; ok {
		return colors, nil
	}
	colors, err := ExtractThemeColors(src)
	if err != nil {
		return nil, err
	}
	t.themes[src] = colors
	return colors, nil
}

// CopySlide transplants the source slide at index into the destination,
// returning the new slide part.
//
// The sequence is load-bearing: resources are relocated first so the
// identifier map exists before any subtree is rewritten, and theme
// normalization runs after shape transfer so it sees the final merged
// tree including appended placeholders.
func (t *Transplanter) CopySlide(src *Package, index int) (*Part, error) {
	slides, err := src.SlideParts()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(slides) {
		return nil, fmt.Errorf("slide index %d out of range (0-%d): %w",
			index, len(slides)-1, ErrSlideIndexOutOfRange)
	}
	srcSlide := slides[index]

	// Theme extraction up front: a structural failure here must abort
	// before the destination grows a half-built slide.
	var colors ColorScheme
	if t.opts.RemapColors {
		if colors, err = t.sourceColors(src); err != nil {
			return nil, err
		}
	}

	dstSlide, err := t.dst.AddSlideFromLayout(t.opts.LayoutIndex)
	if err != nil {
		return nil, err
	}

	if err := t.buildSlide(src, srcSlide, dstSlide, colors); err != nil {
		t.removeSlide(dstSlide)
		return nil, err
	}
	return dstSlide, nil
}

// buildSlide runs the transplant steps against an already-created
// destination slide. On error the caller rolls the slide back so the
// destination package never keeps a partial write.
func (t *Transplanter) buildSlide(src *Package, srcSlide, dstSlide *Part, colors ColorScheme) error {
	idMap, err := relocateResources(srcSlide, dstSlide, &t.alloc)
	if err != nil {
		return err
	}

	srcDoc, err := srcSlide.Document()
	if err != nil {
		return err
	}

	if t.opts.UsePlaceholders {
		if err := mergePlaceholders(srcSlide, dstSlide, idMap); err != nil {
			return err
		}
	} else {
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
		clone := cloneTree(srcTree)
		rewriteRelIDs(clone, idMap)
		replaceNode(dstTree, clone)
	}

	dstDoc, err := dstSlide.Document()
	if err != nil {
		return err
	}
	dstTree, err := shapeTreeOf(dstDoc)
	if err != nil {
		return err
	}

	if t.opts.RemapFonts {
		RemapFontsToTheme(dstTree)
	}
	if t.opts.RemapColors {
		RemapColorsToTheme(dstTree, colors)
	}

	if !t.opts.ApplyTemplateBackground {
		if err := t.copyBackground(srcDoc, dstSlide, idMap); err != nil {
			return err
		}
	}
	return nil
}

// copyBackground replaces the destination slide's background with the
// source slide's, inserted immediately before the shape tree container.
// A source slide without an explicit background leaves the destination
// untouched.
func (t *Transplanter) copyBackground(srcDoc *xmlquery.Node, dstSlide *Part, idMap map[string]string) error {
	srcRoot := documentRoot(srcDoc)
	srcCSld := findChild(srcRoot, nsPresentationML, "cSld")
	if srcCSld == nil {
		return nil
	}
	srcBg := findChild(srcCSld, nsPresentationML, "bg")
	if srcBg == nil {
		return nil
	}

	dstDoc, err := dstSlide.Document()
	if err != nil {
		return err
	}
	dstCSld := findChild(documentRoot(dstDoc), nsPresentationML, "cSld")
	if dstCSld == nil {
		return ErrShapeTreeMissing
	}
	dstTree := findChild(dstCSld, nsPresentationML, "spTree")
	if dstTree == nil {
		return ErrShapeTreeMissing
	}

	if old := findChild(dstCSld, nsPresentationML, "bg"); old != nil {
		detach(old)
	}
	bg := cloneTree(srcBg)
	rewriteRelIDs(bg, idMap)
	insertBefore(bg, dstTree)
	return nil
}

// removeSlide rolls back a partially built slide: the part, its
// presentation relationship, and its sldIdLst entry all go.
func (t *Transplanter) removeSlide(slide *Part) {
	pres, list, err := t.dst.sldIdList(false)
	if err != nil || list == nil {
		return
	}
	for _, entry := range childElements(list) {
		rid := attrValueNS(entry, nsDocumentRels, "id")
		rel, err := pres.Relationship(rid)
		if err != nil {
			continue
		}
		if target, err := pres.TargetPart(rel); err == nil && target == slide {
			pres.DropRelationship(rid)
			detach(entry)
			break
		}
	}
	t.dst.RemovePart(slide.name)
}

// Selection names a source file and the 0-based slide indices to copy
// from it.
type Selection struct {
	Path    string
	Indices []int
}

// CopyToTemplate builds a presentation from a template and a batch of
// slide selections, saving the result to outputPath. Out-of-range indices
// are logged and skipped; structural errors abort the run. Returns the
// number of slides copied.
func CopyToTemplate(templatePath string, selections []Selection, outputPath string, opts CopyOptions) (int, error) {
	dst, err := OpenTemplate(templatePath)
	if err != nil {
		return 0, err
	}
	slog.Info("opened template",
		slog.String("template", filepath.Base(templatePath)),
		slog.Int("layout", opts.LayoutIndex))

	tp := NewTransplanter(dst, opts)
	copied := 0
	sources := make(map[string]*Package)

	for _, sel := range selections {
		src, ok := sources[sel.Path]
		if !ok {
			if src, err = OpenPackage(sel.Path); err != nil {
				return copied, fmt.Errorf("failed to open source %s: %w", sel.Path, err)
			}
			sources[sel.Path] = src
		}
		total, err := src.SlideCount()
		if err != nil {
			return copied, fmt.Errorf("failed to enumerate slides of %s: %w", sel.Path, err)
		}
		slog.Info("copying from source",
			slog.String("source", filepath.Base(sel.Path)),
			slog.Int("slides", total))

		for _, idx := range sel.Indices {
			if _, err := tp.CopySlide(src, idx); err != nil {
				if errors.Is(err, ErrSlideIndexOutOfRange) {
					slog.Warn("skipping slide",
						slog.String("source", filepath.Base(sel.Path)),
						slog.Int("index", idx),
						slog.String("reason", err.Error()))
					continue
				}
				return copied, err
			}
			copied++
			slog.Info("copied slide",
				slog.String("source", filepath.Base(sel.Path)),
				slog.Int("index", idx),
				slog.Int("destination", copied))
		}
	}

	if err := dst.Save(outputPath); err != nil {
		return copied, err
	}
	slog.Info("saved presentation",
		slog.String("output", outputPath),
		slog.Int("slides", copied))
	return copied, nil
}

// FirstN returns the indices of the first n slides of a presentation file.
func FirstN(path string, n int) ([]int, error) {
	total, err := slideCountOf(path)
	if err != nil {
		return nil, err
	}
	if n > total {
		n = total
	}
	return SlideRange(0, n-1), nil
}

// LastN returns the indices of the last n slides of a presentation file.
func LastN(path string, n int) ([]int, error) {
	total, err := slideCountOf(path)
	if err != nil {
		return nil, err
	}
	start := total - n
	if start < 0 {
		start = 0
	}
	return SlideRange(start, total-1), nil
}

// SlideRange returns the indices from start to end inclusive, 0-based.
func SlideRange(start, end int) []int {
	if end < start {
		return nil
	}
	indices := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		indices = append(indices, i)
	}
	return indices
}

func slideCountOf(path string) (int, error) {
	pkg, err := OpenPackage(path)
	if err != nil {
		return 0, err
	}
	return pkg.SlideCount()
}
