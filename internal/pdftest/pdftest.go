// Package pdftest writes small PDFs for tests. Text is set in Type0 fonts
// with Identity-H encoding and a ToUnicode CMap, the way Korean reports
// embed their fonts, so extraction goes through the same decoding path as
// real documents. No font program is embedded.
package pdftest

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Font names as they appear after subset prefixes are removed.
const (
	Regular = "NanumGothic"
	Bold    = "NanumGothic-Bold"
)

// A4 in points.
const (
	PageWidth  = 595.0
	PageHeight = 842.0
)

const subsetPrefix = "HLSUBS+"

// Document collects pages. All coordinates are in points from the top-left
// corner of the page.
type Document struct {
	pages []*Page
	cids  map[rune]int
	runes []rune
}

func New() *Document {
	return &Document{cids: make(map[rune]int)}
}

// Page is a content stream under construction.
type Page struct {
	doc *Document
	ops bytes.Buffer
}

func (d *Document) AddPage() *Page {
	p := &Page{doc: d}
	d.pages = append(d.pages, p)
	return p
}

// cid assigns glyph ids in order of first use, starting at 1.
func (d *Document) cid(r rune) int {
	if c, ok := d.cids[r]; ok {
		return c
	}
	d.runes = append(d.runes, r)
	d.cids[r] = len(d.runes)
	return len(d.runes)
}

// Text shows s in one Tj with its baseline at (x, y).
func (p *Page) Text(font string, size, x, y float64, s string) *Page {
	res := "F1"
	if font == Bold {
		res = "F2"
	}
	var hex strings.Builder
	for _, r := range s {
		fmt.Fprintf(&hex, "%04X", p.doc.cid(r))
	}
	fmt.Fprintf(&p.ops, "BT /%s %s Tf 1 0 0 1 %s %s Tm <%s> Tj ET\n",
		res, num(size), num(x), num(PageHeight-y), hex.String())
	return p
}

// Line strokes a segment.
func (p *Page) Line(x0, y0, x1, y1 float64) *Page {
	fmt.Fprintf(&p.ops, "%s %s m %s %s l S\n", num(x0), num(PageHeight-y0), num(x1), num(PageHeight-y1))
	return p
}

// Rect strokes a rectangle whose top-left corner is (x, y).
func (p *Page) Rect(x, y, w, h float64) *Page {
	fmt.Fprintf(&p.ops, "%s %s %s %s re S\n", num(x), num(PageHeight-y-h), num(w), num(h))
	return p
}

// Image paints a one-pixel gray image stretched over the box whose top-left
// corner is (x, y).
func (p *Page) Image(x, y, w, h float64) *Page {
	fmt.Fprintf(&p.ops, "q %s 0 0 %s %s %s cm /Im1 Do Q\n", num(w), num(h), num(x), num(PageHeight-y-h))
	return p
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Fixed object numbers; pages follow from firstPageObj in pairs of page
// dictionary and content stream.
const (
	catalogObj = iota + 1
	pagesObj
	regularObj
	regularCIDObj
	boldObj
	boldCIDObj
	regularDescObj
	boldDescObj
	toUnicodeObj
	imageObj
	firstPageObj
)

// Bytes serializes the document with a classic cross-reference table.
func (d *Document) Bytes() []byte {
	objs := make([][]byte, firstPageObj+2*len(d.pages))

	kids := make([]string, len(d.pages))
	for i := range d.pages {
		kids[i] = fmt.Sprintf("%d 0 R", firstPageObj+2*i)
	}
	objs[catalogObj] = dict("/Type /Catalog /Pages %d 0 R", pagesObj)
	objs[pagesObj] = dict("/Type /Pages /Kids [%s] /Count %d", strings.Join(kids, " "), len(d.pages))

	objs[regularObj] = type0(Regular, regularCIDObj)
	objs[regularCIDObj] = cidFont(Regular, regularDescObj)
	objs[regularDescObj] = descriptor(Regular, 32)
	objs[boldObj] = type0(Bold, boldCIDObj)
	objs[boldCIDObj] = cidFont(Bold, boldDescObj)
	objs[boldDescObj] = descriptor(Bold, 262176)
	objs[toUnicodeObj] = stream("", d.toUnicode())
	objs[imageObj] = stream("/Type /XObject /Subtype /Image /Width 1 /Height 1 /ColorSpace /DeviceGray /BitsPerComponent 8", []byte{0x80})

	resources := fmt.Sprintf("<< /Font << /F1 %d 0 R /F2 %d 0 R >> /XObject << /Im1 %d 0 R >> >>", regularObj, boldObj, imageObj)
	for i, p := range d.pages {
		n := firstPageObj + 2*i
		objs[n] = dict("/Type /Page /Parent %d 0 R /MediaBox [0 0 %s %s] /Resources %s /Contents %d 0 R",
			pagesObj, num(PageWidth), num(PageHeight), resources, n+1)
		objs[n+1] = stream("", p.ops.Bytes())
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n%\xE2\xE3\xCF\xD3\n")
	offsets := make([]int, len(objs))
	for n := 1; n < len(objs); n++ {
		offsets[n] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", n)
		buf.Write(objs[n])
		buf.WriteString("\nendobj\n")
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs))
	for n := 1; n < len(objs); n++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[n])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs), catalogObj, xref)
	return buf.Bytes()
}

func dict(format string, args ...any) []byte {
	return []byte("<< " + fmt.Sprintf(format, args...) + " >>")
}

func stream(entries string, data []byte) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "<< %s /Length %d >>\nstream\n", strings.TrimSpace(entries), len(data))
	b.Write(data)
	b.WriteString("\nendstream")
	return b.Bytes()
}

func type0(name string, descendant int) []byte {
	return dict("/Type /Font /Subtype /Type0 /BaseFont /%s%s /Encoding /Identity-H /DescendantFonts [%d 0 R] /ToUnicode %d 0 R",
		subsetPrefix, name, descendant, toUnicodeObj)
}

func cidFont(name string, desc int) []byte {
	return dict("/Type /Font /Subtype /CIDFontType2 /BaseFont /%s%s "+
		"/CIDSystemInfo << /Registry (Adobe) /Ordering (Identity) /Supplement 0 >> "+
		"/FontDescriptor %d 0 R /DW 1000 /CIDToGIDMap /Identity", subsetPrefix, name, desc)
}

func descriptor(name string, flags int) []byte {
	return dict("/Type /FontDescriptor /FontName /%s%s /Flags %d /FontBBox [0 -200 1000 800] "+
		"/ItalicAngle 0 /Ascent 800 /Descent -200 /CapHeight 700 /StemV 80", subsetPrefix, name, flags)
}

// toUnicode maps every assigned glyph id back to its rune, in bfchar blocks
// of at most 100 entries.
func (d *Document) toUnicode() []byte {
	var b bytes.Buffer
	b.WriteString("/CIDInit /ProcSet findresource begin\n12 dict begin\nbegincmap\n")
	b.WriteString("/CMapName /Adobe-Identity-UCS def\n/CMapType 2 def\n")
	b.WriteString("1 begincodespacerange\n<0000> <FFFF>\nendcodespacerange\n")
	for start := 0; start < len(d.runes); start += 100 {
		block := d.runes[start:min(start+100, len(d.runes))]
		fmt.Fprintf(&b, "%d beginbfchar\n", len(block))
		for i, r := range block {
			fmt.Fprintf(&b, "<%04X> <", start+i+1)
			for _, u := range utf16.Encode([]rune{r}) {
				fmt.Fprintf(&b, "%04X", u)
			}
			b.WriteString(">\n")
		}
		b.WriteString("endbfchar\n")
	}
	b.WriteString("endcmap\nend\nend\n")
	return b.Bytes()
}
