package slidegraft

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/antchfx/xmlquery"
)

// helper: create a minimal 1x1 PNG
func testPNG() []byte {
	return []byte{
		0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
		0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53,
		0xDE, 0x00, 0x00, 0x00, 0x0C, 0x49, 0x44, 0x41,
		0x54, 0x08, 0xD7, 0x63, 0xF8, 0xCF, 0xC0, 0x00,
		0x00, 0x00, 0x02, 0x00, 0x01, 0xE2, 0x21, 0xBC,
		0x33, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4E,
		0x44, 0xAE, 0x42, 0x60, 0x82,
	}
}

// helper: assemble a zip archive from entries and parse it as a Package
func buildPackage(t *testing.T, entries map[string][]byte) *Package {
	t.Helper()
	data := buildZip(t, entries)
	pkg, err := ReadPackageFrom(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("ReadPackageFrom failed: %v", err)
	}
	return pkg
}

func buildZip(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s failed: %v", name, err)
		}
		if _, err := f.Write(content); err != nil {
			t.Fatalf("zip write %s failed: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close failed: %v", err)
	}
	return buf.Bytes()
}

// helper: write package to buffer and read back
func roundTrip(t *testing.T, p *Package) *Package {
	t.Helper()
	var buf bytes.Buffer
	if err := p.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	pkg, err := ReadPackageFrom(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("ReadPackageFrom failed: %v", err)
	}
	return pkg
}

const (
	xmlnsDecls = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`

	relTypeHyperlink = nsDocumentRels + "/hyperlink"

	contentTypePresentation = "application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"
	contentTypeSlideMaster  = "application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"
	contentTypeSlideLayout  = "application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"
	contentTypeTheme        = "application/vnd.openxmlformats-officedocument.theme+xml"
)

const fixtureContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Default Extension="png" ContentType="image/png"/>
<Override PartName="/ppt/presentation.xml" ContentType="` + contentTypePresentation + `"/>
<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="` + contentTypeSlideMaster + `"/>
<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="` + contentTypeSlideLayout + `"/>
<Override PartName="/ppt/theme/theme1.xml" ContentType="` + contentTypeTheme + `"/>
<Override PartName="/ppt/slides/slide1.xml" ContentType="` + ContentTypeSlide + `"/>
</Types>`

const fixtureRootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="` + RelTypeOfficeDocument + `" Target="ppt/presentation.xml"/>
</Relationships>`

const fixturePresentation = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation ` + xmlnsDecls + `><p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst><p:sldIdLst><p:sldId id="256" r:id="rId2"/></p:sldIdLst><p:sldSz cx="12192000" cy="6858000"/></p:presentation>`

const fixturePresentationRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="` + RelTypeSlideMaster + `" Target="slideMasters/slideMaster1.xml"/>
<Relationship Id="rId2" Type="` + RelTypeSlide + `" Target="slides/slide1.xml"/>
</Relationships>`

const fixtureMaster = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sldMaster ` + xmlnsDecls + `><p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/></p:spTree></p:cSld><p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/><p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst></p:sldMaster>`

const fixtureMasterRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="` + RelTypeSlideLayout + `" Target="../slideLayouts/slideLayout1.xml"/>
<Relationship Id="rId2" Type="` + RelTypeTheme + `" Target="../theme/theme1.xml"/>
</Relationships>`

const fixtureLayout = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sldLayout ` + xmlnsDecls + `><p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/><p:sp><p:nvSpPr><p:cNvPr id="2" name="Title 1"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr anchor="ctr"/><a:lstStyle/><a:p><a:endParaRPr lang="en-US"/></a:p></p:txBody></p:sp><p:sp><p:nvSpPr><p:cNvPr id="3" name="Content Placeholder 2"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph type="body" idx="1"/></p:nvPr></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:lstStyle/><a:p><a:endParaRPr lang="en-US"/></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sldLayout>`

const fixtureLayoutRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="` + RelTypeSlideMaster + `" Target="../slideMasters/slideMaster1.xml"/>
</Relationships>`

// Theme with accent1 = 4472C4 so fixture slides can carry theme-derived
// literal colors.
const fixtureTheme = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<a:theme xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" name="Office"><a:themeElements><a:clrScheme name="Office"><a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1><a:lt1><a:sysClr val="window" lastClr="FFFFFF"/></a:lt1><a:dk2><a:srgbClr val="44546A"/></a:dk2><a:lt2><a:srgbClr val="E7E6E6"/></a:lt2><a:accent1><a:srgbClr val="4472C4"/></a:accent1><a:accent2><a:srgbClr val="ED7D31"/></a:accent2><a:accent3><a:srgbClr val="A5A5A5"/></a:accent3><a:accent4><a:srgbClr val="FFC000"/></a:accent4><a:accent5><a:srgbClr val="5B9BD5"/></a:accent5><a:accent6><a:srgbClr val="70AD47"/></a:accent6><a:hlink><a:srgbClr val="0563C1"/></a:hlink><a:folHlink><a:srgbClr val="954F72"/></a:folHlink></a:clrScheme><a:fontScheme name="Office"><a:majorFont><a:latin typeface="Calibri Light"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont><a:minorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont></a:fontScheme></a:themeElements></a:theme>`

// Template slide: placeholder text only, removed by OpenTemplate in most
// tests.
const fixtureTemplateSlide = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld ` + xmlnsDecls + `><p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/></p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`

const fixtureTemplateSlideRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="` + RelTypeSlideLayout + `" Target="../slideLayouts/slideLayout1.xml"/>
</Relationships>`

// Source slide: title/body/subtitle placeholders, a free-standing caption
// with a hyperlink, and a picture. The title fill carries the source
// theme's accent1 literal with a luminance modifier.
const fixtureSourceSlide = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld ` + xmlnsDecls + `><p:cSld><p:bg><p:bgPr><a:solidFill><a:srgbClr val="112233"/></a:solidFill><a:effectLst/></p:bgPr></p:bg><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/><p:sp><p:nvSpPr><p:cNvPr id="2" name="Title 1"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr><p:spPr><a:solidFill><a:srgbClr val="4472C4"><a:lumMod val="75000"/></a:srgbClr></a:solidFill></p:spPr><p:txBody><a:bodyPr anchor="b"/><a:lstStyle/><a:p><a:r><a:rPr lang="en-US" dirty="0"><a:latin typeface="Arial" panose="020F0502020204030204" pitchFamily="34" charset="0"/></a:rPr><a:t>Quarterly Results</a:t></a:r></a:p></p:txBody></p:sp><p:sp><p:nvSpPr><p:cNvPr id="3" name="Content 2"/><p:cNvSpPr/><p:nvPr><p:ph type="body" idx="1"/></p:nvPr></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:lstStyle/><a:p><a:r><a:rPr lang="en-US"/><a:t>Revenue up 12%</a:t></a:r></a:p><a:p><a:r><a:rPr lang="en-US"/><a:t>Churn down</a:t></a:r></a:p></p:txBody></p:sp><p:sp><p:nvSpPr><p:cNvPr id="4" name="Subtitle 3"/><p:cNvSpPr/><p:nvPr><p:ph type="subTitle" idx="2"/></p:nvPr></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:lstStyle/><a:p><a:r><a:rPr lang="en-US"/><a:t>FY2026 Q2</a:t></a:r></a:p></p:txBody></p:sp><p:sp><p:nvSpPr><p:cNvPr id="5" name="Caption"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr><a:solidFill><a:srgbClr val="FF1234"/></a:solidFill></p:spPr><p:txBody><a:bodyPr/><a:lstStyle/><a:p><a:r><a:rPr lang="en-US"><a:latin typeface="Arial" panose="020B0604020202020204" pitchFamily="34" charset="0"/><a:hlinkClick r:id="rId3"/></a:rPr><a:t>See details</a:t></a:r></a:p></p:txBody></p:sp><p:pic><p:nvPicPr><p:cNvPr id="6" name="Picture 5"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr><p:blipFill><a:blip r:embed="rId2"/><a:stretch><a:fillRect/></a:stretch></p:blipFill><p:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="914400" cy="914400"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic></p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`

const fixtureSourceSlideRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="` + RelTypeSlideLayout + `" Target="../slideLayouts/slideLayout1.xml"/>
<Relationship Id="rId2" Type="` + RelTypeImage + `" Target="../media/image1.png"/>
<Relationship Id="rId3" Type="` + relTypeHyperlink + `" Target="https://example.com/report" TargetMode="External"/>
</Relationships>`

func templateEntries() map[string][]byte {
	entries := make(map[string][]byte)
	entries["[Content_Types].xml"] = []byte(fixtureContentTypes)
	entries["_rels/.rels"] = []byte(fixtureRootRels)
	entries["ppt/presentation.xml"] = []byte(fixturePresentation)
	entries["ppt/_rels/presentation.xml.rels"] = []byte(fixturePresentationRels)
	entries["ppt/slideMasters/slideMaster1.xml"] = []byte(fixtureMaster)
	entries["ppt/slideMasters/_rels/slideMaster1.xml.rels"] = []byte(fixtureMasterRels)
	entries["ppt/slideLayouts/slideLayout1.xml"] = []byte(fixtureLayout)
	entries["ppt/slideLayouts/_rels/slideLayout1.xml.rels"] = []byte(fixtureLayoutRels)
	entries["ppt/theme/theme1.xml"] = []byte(fixtureTheme)
	entries["ppt/slides/slide1.xml"] = []byte(fixtureTemplateSlide)
	entries["ppt/slides/_rels/slide1.xml.rels"] = []byte(fixtureTemplateSlideRels)
	return entries
}

func sourceEntries() map[string][]byte {
	entries := templateEntries()
	entries["ppt/slides/slide1.xml"] = []byte(fixtureSourceSlide)
	entries["ppt/slides/_rels/slide1.xml.rels"] = []byte(fixtureSourceSlideRels)
	entries["ppt/media/image1.png"] = testPNG()
	return entries
}

// helper: a template package with its placeholder slide already removed
func templatePackage(t *testing.T) *Package {
	t.Helper()
	pkg := buildPackage(t, templateEntries())
	if err := pkg.RemoveAllSlides(); err != nil {
		t.Fatalf("RemoveAllSlides failed: %v", err)
	}
	return pkg
}

func sourcePackage(t *testing.T) *Package {
	t.Helper()
	return buildPackage(t, sourceEntries())
}

// helper: all a:t text under a node, concatenated with |
func textContent(n *xmlquery.Node) string {
	var parts []string
	walkElements(n, func(e *xmlquery.Node) {
		if isElement(e, nsDrawingML, "t") {
			if e.FirstChild != nil && e.FirstChild.Type == xmlquery.TextNode {
				parts = append(parts, e.FirstChild.Data)
			}
		}
	})
	return strings.Join(parts, "|")
}

// helper: parse a standalone XML fragment for tree-level tests
func parseXMLFragment(t *testing.T, src string) *xmlquery.Node {
	t.Helper()
	doc, err := xmlquery.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse fragment failed: %v", err)
	}
	return doc
}

// helper: the shape tree of a slide part
func slideTree(t *testing.T, slide *Part) *xmlquery.Node {
	t.Helper()
	doc, err := slide.Document()
	if err != nil {
		t.Fatalf("Document failed: %v", err)
	}
	tree, err := shapeTreeOf(doc)
	if err != nil {
		t.Fatalf("shapeTreeOf failed: %v", err)
	}
	return tree
}
