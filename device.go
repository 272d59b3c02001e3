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
	"bytes"
	"errors"
	"strconv"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/pdfsplit/pdf"
	"seehuhn.de/go/pdfsplit/pdf/pdfcopy"
)

// Device receives the contents of one output page.  Use
// [DocumentWriter.BeginPage] to obtain a Device.
type Device struct {
	w        *DocumentWriter
	mediaBox rect.Rect
	ref      pdf.Reference
	dict     pdf.Dict
}

// MediaBox returns the media box of the page being written.
func (dev *Device) MediaBox() rect.Rect {
	return dev.mediaBox
}

// skipKeys lists page dictionary entries which are not carried over into
// the new file.  Parent and Type are set by the page tree writer, the boxes
// are replaced by the media box of the device, and article beads refer to
// threads of the source document.
var skipKeys = map[pdf.Name]bool{
	"Parent":   true,
	"Type":     true,
	"MediaBox": true,
	"CropBox":  true,
	"B":        true,
}

// RunPage replays the source page p onto the device, using the
// transformation ctm from the page's user space to the device space.
//
// The content streams, resources, annotations and the remaining attributes
// of the page are copied to the output file without modification.  For a
// transformation other than the identity, the page contents are wrapped in
// a "q ... cm ... Q" block.  Other pages and page tree nodes referenced from
// the copied objects, for example by link annotations, are replaced by null.
func (dev *Device) RunPage(p *Page, ctm matrix.Matrix) error {
	if dev.w == nil {
		return errors.New("device is not active")
	}
	if p.doc == nil || p.doc.r == nil {
		return errPageClosed
	}
	if dev.dict != nil {
		return errors.New("page already drawn")
	}
	src := p.doc.r

	copier := pdfcopy.NewCopier(dev.w.out, src)
	copier.Filter = func(ref pdf.Reference, obj pdf.Object) bool {
		var dict pdf.Dict
		switch obj := obj.(type) {
		case pdf.Dict:
			dict = obj
		case *pdf.Stream:
			dict = obj.Dict
		default:
			return true
		}
		tp := dict["Type"]
		return tp != pdf.Name("Page") && tp != pdf.Name("Pages")
	}
	if p.Ref != 0 {
		copier.Redirect(p.Ref, dev.ref)
	}

	in := make(pdf.Dict, len(p.Dict))
	for key, val := range p.Dict {
		if !skipKeys[key] {
			in[key] = val
		}
	}

	if ctm != matrix.Identity {
		contents, err := contentStreams(src, p.Dict["Contents"])
		if err != nil {
			return err
		}
		in["Contents"] = contents
	}

	dict, err := copier.CopyDict(in)
	if err != nil {
		return err
	}

	if ctm != matrix.Identity {
		pre, post, err := dev.wrapContents(ctm)
		if err != nil {
			return err
		}
		contents, _ := dict["Contents"].(pdf.Array)
		wrapped := make(pdf.Array, 0, len(contents)+2)
		wrapped = append(wrapped, pre)
		wrapped = append(wrapped, contents...)
		wrapped = append(wrapped, post)
		dict["Contents"] = wrapped
	}
	if _, hasResources := dict["Resources"]; !hasResources {
		dict["Resources"] = pdf.Dict{}
	}

	if v := p.doc.Version(); v > dev.w.version {
		dev.w.version = v
	}
	dev.dict = dict
	return nil
}

// contentStreams returns the content streams of a page as an array.
func contentStreams(r pdf.Getter, obj pdf.Object) (pdf.Array, error) {
	if ref, isRef := obj.(pdf.Reference); isRef {
		resolved, err := pdf.Resolve(r, ref)
		if err != nil {
			return nil, err
		}
		if a, isArray := resolved.(pdf.Array); isArray {
			return a, nil
		}
		return pdf.Array{ref}, nil
	}
	switch obj := obj.(type) {
	case nil:
		return pdf.Array{}, nil
	case pdf.Array:
		return obj, nil
	default:
		return pdf.Array{obj}, nil
	}
}

func (dev *Device) wrapContents(ctm matrix.Matrix) (pdf.Reference, pdf.Reference, error) {
	buf := &bytes.Buffer{}
	buf.WriteString("q")
	for _, x := range ctm {
		buf.WriteByte(' ')
		buf.WriteString(strconv.FormatFloat(x, 'f', -1, 64))
	}
	buf.WriteString(" cm\n")

	out := dev.w.out
	pre := out.Alloc()
	err := out.Put(pre, &pdf.Stream{Dict: pdf.Dict{}, R: buf})
	if err != nil {
		return 0, 0, err
	}
	post := out.Alloc()
	err = out.Put(post, &pdf.Stream{Dict: pdf.Dict{}, R: bytes.NewReader([]byte("\nQ"))})
	if err != nil {
		return 0, 0, err
	}
	return pre, post, nil
}
