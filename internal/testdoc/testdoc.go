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

// Package testdoc generates PDF files for use in tests.
package testdoc

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"os"

	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/pdfsplit/pdf"
	"seehuhn.de/go/pdfsplit/pdf/pagetree"
)

// Page describes one page of a generated document.
type Page struct {
	// MediaBox is the media box of the page.  If this is zero, A4 is used.
	MediaBox rect.Rect

	// CropBox, if non-nil, is written as the crop box of the page.
	CropBox *rect.Rect

	// Rotate is the value of the /Rotate entry, if non-zero.
	Rotate int

	// Text is shown on the page.  If empty, "page <n>" is used.
	Text string

	// LinkTo, if positive, adds a link annotation which points to the
	// given one-based page number.
	LinkTo int
}

// A4 is the size of an A4 page in PDF units.
var A4 = rect.Rect{URx: 595, URy: 842}

// Info describes where the objects of a generated document are stored.
type Info struct {
	Pages    []pdf.Reference
	Contents []pdf.Reference
	Font     pdf.Reference
}

// Simple returns n pages with default settings.
func Simple(n int) []Page {
	return make([]Page, n)
}

// Build generates a PDF document with the given pages.
func Build(v pdf.Version, pages []Page) ([]byte, *Info, error) {
	return BuildTitled(v, "", pages)
}

// BuildTitled generates a PDF document with the given pages.  If title is
// not empty, it is stored in the document information dictionary.
func BuildTitled(v pdf.Version, title string, pages []Page) ([]byte, *Info, error) {
	buf := &bytes.Buffer{}
	w, err := pdf.NewWriter(buf, v, nil)
	if err != nil {
		return nil, nil, err
	}

	info := &Info{
		Font: w.Alloc(),
	}
	err = w.Put(info.Font, pdf.Dict{
		"Type":     pdf.Name("Font"),
		"Subtype":  pdf.Name("Type1"),
		"BaseFont": pdf.Name("Helvetica"),
	})
	if err != nil {
		return nil, nil, err
	}

	for range pages {
		info.Pages = append(info.Pages, w.Alloc())
	}

	tree := pagetree.NewWriter(w)
	for i, p := range pages {
		text := p.Text
		if text == "" {
			text = fmt.Sprintf("page %d", i+1)
		}
		box := p.MediaBox
		if box.IsZero() {
			box = A4
		}

		contentRef := w.Alloc()
		info.Contents = append(info.Contents, contentRef)
		content := fmt.Sprintf("BT\n/F1 24 Tf\n%g %g Td\n%s Tj\nET\n",
			box.LLx+72, box.URy-72, pdf.Format(pdf.String(text)))
		err = w.Put(contentRef, compressed(content))
		if err != nil {
			return nil, nil, err
		}

		dict := pdf.Dict{
			"MediaBox": pdf.RectangleObject(box),
			"Resources": pdf.Dict{
				"Font": pdf.Dict{"F1": info.Font},
			},
			"Contents": contentRef,
		}
		if p.CropBox != nil {
			dict["CropBox"] = pdf.RectangleObject(*p.CropBox)
		}
		if p.Rotate != 0 {
			dict["Rotate"] = pdf.Integer(p.Rotate)
		}
		if p.LinkTo > 0 && p.LinkTo <= len(pages) {
			annot := pdf.Dict{
				"Type":    pdf.Name("Annot"),
				"Subtype": pdf.Name("Link"),
				"Rect":    pdf.Array{pdf.Integer(72), pdf.Integer(72), pdf.Integer(144), pdf.Integer(144)},
				"Dest":    pdf.Array{info.Pages[p.LinkTo-1], pdf.Name("Fit")},
				"P":       info.Pages[i],
			}
			dict["Annots"] = pdf.Array{annot}
		}

		err = tree.AppendPageRef(info.Pages[i], dict)
		if err != nil {
			return nil, nil, err
		}
	}

	root, err := tree.Close()
	if err != nil {
		return nil, nil, err
	}
	w.GetMeta().Catalog = pdf.Dict{
		"Type":  pdf.Name("Catalog"),
		"Pages": root,
	}
	w.GetMeta().Info = pdf.Dict{
		"Producer": pdf.TextString("seehuhn.de/go/pdfsplit/internal/testdoc"),
	}
	if title != "" {
		w.GetMeta().Info["Title"] = pdf.TextString(title)
	}
	err = w.Close()
	if err != nil {
		return nil, nil, err
	}

	return buf.Bytes(), info, nil
}

// WriteFile generates a PDF document and writes it to the named file.
func WriteFile(fname string, pages []Page) (*Info, error) {
	data, info, err := Build(pdf.V1_7, pages)
	if err != nil {
		return nil, err
	}
	err = os.WriteFile(fname, data, 0o644)
	if err != nil {
		return nil, err
	}
	return info, nil
}

// BreakObject damages the indirect object ref in the PDF file data, so that
// the object can no longer be read.  The rest of the file is left intact.
func BreakObject(data []byte, ref pdf.Reference) []byte {
	old := fmt.Sprintf("\n%d %d obj", ref.Number(), ref.Generation())
	repl := fmt.Sprintf("\n%d %d xxx", ref.Number(), ref.Generation())
	return bytes.Replace(data, []byte(old), []byte(repl), 1)
}

func compressed(content string) *pdf.Stream {
	buf := &bytes.Buffer{}
	zw := zlib.NewWriter(buf)
	zw.Write([]byte(content))
	zw.Close()
	return &pdf.Stream{
		Dict: pdf.Dict{"Filter": pdf.Name("FlateDecode")},
		R:    buf,
	}
}
