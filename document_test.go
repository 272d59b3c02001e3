// seehuhn.de/go/pdfsplit - split PDF files into single-page documents
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package pdfsplit

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/pdfsplit/internal/testdoc"
	"seehuhn.de/go/pdfsplit/pdf"
)

func openTestDoc(t *testing.T, pages []testdoc.Page) *Document {
	t.Helper()
	path, _ := writeTestDoc(t, pages)
	doc, err := OpenDocument(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { doc.Close() })
	return doc
}

func TestDocument(t *testing.T) {
	doc := openTestDoc(t, testdoc.Simple(2))
	if doc.NumPages() != 2 {
		t.Errorf("wrong page count %d", doc.NumPages())
	}
	if doc.Version() != pdf.V1_7 {
		t.Errorf("wrong version %s", doc.Version())
	}
	if doc.Repaired() {
		t.Error("document unexpectedly repaired")
	}

	for _, pageNo := range []int{-1, 2} {
		_, err := doc.LoadPage(pageNo)
		if err == nil {
			t.Errorf("page %d: missing error", pageNo)
		}
	}

	page, err := doc.LoadPage(1)
	if err != nil {
		t.Fatal(err)
	}
	if page.Number != 1 || page.Ref == 0 {
		t.Errorf("wrong page %d %s", page.Number, page.Ref)
	}
	if err := page.Close(); err != nil {
		t.Error(err)
	}
	if err := page.Close(); err == nil {
		t.Error("page closed twice")
	}
}

func TestDocumentClose(t *testing.T) {
	path, _ := writeTestDoc(t, testdoc.Simple(1))
	doc, err := OpenDocument(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = doc.Close()
	if err != nil {
		t.Fatal(err)
	}
	if err := doc.Close(); err == nil {
		t.Error("document closed twice")
	}
	if _, err := doc.LoadPage(0); err == nil {
		t.Error("page loaded from closed document")
	}
}

func TestOpenDocumentError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.pdf")
	_, err := OpenDocument(path, nil)
	if !errors.Is(err, ErrCannotOpen) {
		t.Errorf("expected ErrCannotOpen, got %v", err)
	}
	if !strings.Contains(err.Error(), "missing.pdf") {
		t.Errorf("file name missing from error %q", err)
	}
}

func TestBound(t *testing.T) {
	doc := openTestDoc(t, testdoc.Simple(1))

	box := func(x ...pdf.Object) pdf.Array { return pdf.Array(x) }
	cases := []struct {
		name string
		dict pdf.Dict
		want rect.Rect
	}{
		{"no boxes", pdf.Dict{}, Letter},
		{"media box", pdf.Dict{
			"MediaBox": box(pdf.Integer(0), pdf.Integer(0), pdf.Integer(200), pdf.Integer(100)),
		}, rect.Rect{URx: 200, URy: 100}},
		{"flipped media box", pdf.Dict{
			"MediaBox": box(pdf.Integer(200), pdf.Integer(100), pdf.Integer(0), pdf.Integer(0)),
		}, rect.Rect{URx: 200, URy: 100}},
		{"empty media box", pdf.Dict{
			"MediaBox": box(pdf.Integer(0), pdf.Integer(0), pdf.Integer(0), pdf.Integer(100)),
		}, Letter},
		{"invalid media box", pdf.Dict{
			"MediaBox": pdf.Name("A4"),
		}, Letter},
		{"crop box", pdf.Dict{
			"MediaBox": box(pdf.Integer(0), pdf.Integer(0), pdf.Integer(200), pdf.Integer(100)),
			"CropBox":  box(pdf.Integer(10), pdf.Integer(10), pdf.Integer(300), pdf.Real(50.5)),
		}, rect.Rect{LLx: 10, LLy: 10, URx: 200, URy: 50.5}},
		{"disjoint crop box", pdf.Dict{
			"MediaBox": box(pdf.Integer(0), pdf.Integer(0), pdf.Integer(200), pdf.Integer(100)),
			"CropBox":  box(pdf.Integer(300), pdf.Integer(300), pdf.Integer(400), pdf.Integer(400)),
		}, rect.Rect{URx: 200, URy: 100}},
		{"crop box without media box", pdf.Dict{
			"CropBox": box(pdf.Integer(10), pdf.Integer(20), pdf.Integer(30), pdf.Integer(40)),
		}, rect.Rect{LLx: 10, LLy: 20, URx: 30, URy: 40}},
	}
	for _, test := range cases {
		p := &Page{Dict: test.dict, doc: doc}
		if got := p.Bound(); got != test.want {
			t.Errorf("%s: got %v, expected %v", test.name, got, test.want)
		}
	}
}

func TestRotation(t *testing.T) {
	cases := []struct {
		in   pdf.Object
		want int
	}{
		{nil, 0},
		{pdf.Integer(90), 90},
		{pdf.Integer(-90), 270},
		{pdf.Integer(450), 90},
		{pdf.Integer(45), 0},
		{pdf.Name("90"), 0},
	}
	for _, test := range cases {
		p := &Page{Dict: pdf.Dict{"Rotate": test.in}}
		if got := p.Rotation(); got != test.want {
			t.Errorf("%s: got %d, expected %d", pdf.Format(test.in), got, test.want)
		}
	}
}

func TestDocumentWriter(t *testing.T) {
	dir := t.TempDir()
	_, err := NewDocumentWriter(filepath.Join(dir, "x.png"), "png")
	if err == nil {
		t.Error("unsupported format not detected")
	}

	w, err := NewDocumentWriter(filepath.Join(dir, "x.pdf"), "pdf")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.BeginPage(rect.Rect{}); err == nil {
		t.Error("empty media box not detected")
	}
	if err := w.EndPage(); err == nil {
		t.Error("EndPage without BeginPage not detected")
	}
	_, err = w.BeginPage(Letter)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.BeginPage(Letter); err == nil {
		t.Error("nested BeginPage not detected")
	}
	err = w.EndPage()
	if err != nil {
		t.Fatal(err)
	}
	err = w.Close()
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err == nil {
		t.Error("writer closed twice")
	}

	// a page without contents
	r, dict := readOutput(t, filepath.Join(dir, "x.pdf"))
	box, err := pdf.GetRectangle(r, dict["MediaBox"])
	if err != nil || box == nil || *box != Letter {
		t.Errorf("wrong media box %v", box)
	}
	if _, ok := dict["Contents"]; ok {
		t.Error("unexpected contents")
	}
}

func TestRunPageTransformed(t *testing.T) {
	doc := openTestDoc(t, testdoc.Simple(1))
	page, err := doc.LoadPage(0)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "scaled.pdf")
	w, err := NewDocumentWriter(path, "pdf")
	if err != nil {
		t.Fatal(err)
	}
	mediaBox := rect.Rect{URx: testdoc.A4.URx / 2, URy: testdoc.A4.URy / 2}
	dev, err := w.BeginPage(mediaBox)
	if err != nil {
		t.Fatal(err)
	}
	if dev.MediaBox() != mediaBox {
		t.Errorf("wrong media box %v", dev.MediaBox())
	}
	err = dev.RunPage(page, matrix.Matrix{0.5, 0, 0, 0.5, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	if err := dev.RunPage(page, matrix.Identity); err == nil {
		t.Error("page drawn twice")
	}
	err = w.EndPage()
	if err != nil {
		t.Fatal(err)
	}
	err = w.Close()
	if err != nil {
		t.Fatal(err)
	}

	r, dict := readOutput(t, path)
	contents, ok := dict["Contents"].(pdf.Array)
	if !ok || len(contents) != 3 {
		t.Fatalf("wrong contents %s", pdf.Format(dict["Contents"]))
	}
	text := pageContents(t, r, dict)
	if !strings.HasPrefix(text, "q 0.5 0 0 0.5 0 0 cm\n") || !strings.HasSuffix(text, "\nQ") {
		t.Errorf("contents not wrapped: %q", text)
	}
	if !strings.Contains(text, "(page 1) Tj") {
		t.Errorf("page contents missing: %q", text)
	}
}

func TestExtractPageVersion(t *testing.T) {
	data, _, err := testdoc.Build(pdf.V2_0, testdoc.Simple(1))
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	input := filepath.Join(dir, "in.pdf")
	err = os.WriteFile(input, data, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := OpenDocument(input, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()

	out := filepath.Join(dir, "out.pdf")
	err = ExtractPage(doc, 0, out)
	if err != nil {
		t.Fatal(err)
	}
	r, _ := readOutput(t, out)
	if v := r.GetMeta().Version; v != pdf.V2_0 {
		t.Errorf("wrong output version %s", v)
	}
}
