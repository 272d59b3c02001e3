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

	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/pdfsplit/pdf"
)

// Page is a page loaded from a [Document].
type Page struct {
	// Number is the zero-based index of the page in the document.
	Number int

	// Ref is the reference of the page dictionary in the source file.
	// This is 0 for page dictionaries stored directly in the page tree.
	Ref pdf.Reference

	// Dict is the page dictionary, with inherited attributes filled in.
	Dict pdf.Dict

	doc *Document
}

// Letter is the page size used when a page has no valid media box.
var Letter = rect.Rect{URx: 612, URy: 792}

// Bound returns the bounding box of the page in default user space units:
// the crop box clipped to the media box.  Missing or invalid boxes fall back
// to the media box, and a missing media box to US Letter.
func (p *Page) Bound() rect.Rect {
	mediaBox := Letter
	if p.doc != nil && p.doc.r != nil {
		mb, err := pdf.GetRectangle(p.doc.r, p.Dict["MediaBox"])
		if err == nil && mb != nil && !isEmpty(*mb) {
			mediaBox = *mb
		}

		cb, err := pdf.GetRectangle(p.doc.r, p.Dict["CropBox"])
		if err == nil && cb != nil {
			box := intersect(*cb, mediaBox)
			if !isEmpty(box) {
				return box
			}
		}
	}
	return mediaBox
}

// Rotation returns the clockwise rotation of the page in degrees, as one of
// 0, 90, 180 or 270.
func (p *Page) Rotation() int {
	rot, ok := p.Dict["Rotate"].(pdf.Integer)
	if !ok {
		return 0
	}
	r := int(rot) % 360
	if r < 0 {
		r += 360
	}
	return r / 90 * 90
}

// Close releases the page.  The page cannot be used afterwards.
func (p *Page) Close() error {
	if p.doc == nil {
		return errPageClosed
	}
	p.doc = nil
	p.Dict = nil
	return nil
}

func intersect(a, b rect.Rect) rect.Rect {
	return rect.Rect{
		LLx: max(a.LLx, b.LLx),
		LLy: max(a.LLy, b.LLy),
		URx: min(a.URx, b.URx),
		URy: min(a.URy, b.URy),
	}
}

func isEmpty(r rect.Rect) bool {
	return r.URx <= r.LLx || r.URy <= r.LLy
}

var errPageClosed = errors.New("page is closed")
