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
	"fmt"

	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/pdfsplit/pdf"
	"seehuhn.de/go/pdfsplit/pdf/pagetree"
)

// DocumentWriter writes pages to a new PDF file.
type DocumentWriter struct {
	out  *pdf.Writer
	tree *pagetree.Writer

	version pdf.Version
	title   string
	dev     *Device
	closed  bool
}

// NewDocumentWriter creates the file at path for writing.  The only
// supported format is "pdf".
func NewDocumentWriter(path, format string) (*DocumentWriter, error) {
	if format != "pdf" {
		return nil, fmt.Errorf("unsupported output format %q", format)
	}

	out, err := pdf.Create(path, pdf.V1_7, nil)
	if err != nil {
		return nil, err
	}
	w := &DocumentWriter{
		out:     out,
		tree:    pagetree.NewWriter(out),
		version: pdf.V1_7,
	}
	return w, nil
}

// SetTitle sets the title stored in the document information dictionary
// of the new file.  An empty title means that no title is stored.
func (w *DocumentWriter) SetTitle(title string) {
	w.title = title
}

// BeginPage starts a new page with the given media box.  The returned
// device receives the page contents; it is valid until [DocumentWriter.EndPage]
// is called.
func (w *DocumentWriter) BeginPage(mediaBox rect.Rect) (*Device, error) {
	if w.closed {
		return nil, errWriterClosed
	}
	if w.dev != nil {
		return nil, errors.New("page already in progress")
	}
	if isEmpty(mediaBox) {
		return nil, errors.New("empty media box")
	}

	w.dev = &Device{
		w:        w,
		mediaBox: mediaBox,
		ref:      w.out.Alloc(),
	}
	return w.dev, nil
}

// EndPage completes the current page and adds it to the file.
func (w *DocumentWriter) EndPage() error {
	if w.closed {
		return errWriterClosed
	}
	dev := w.dev
	if dev == nil {
		return errors.New("no page in progress")
	}
	w.dev = nil
	dev.w = nil

	dict := dev.dict
	if dict == nil {
		// nothing was drawn on the page
		dict = pdf.Dict{"Resources": pdf.Dict{}}
	}
	dict["MediaBox"] = pdf.RectangleObject(dev.mediaBox)
	return w.tree.AppendPageRef(dev.ref, dict)
}

// Close writes the page tree and the document catalog, and closes the file.
func (w *DocumentWriter) Close() error {
	if w.closed {
		return errWriterClosed
	}
	w.closed = true

	if w.dev != nil {
		w.out.Abort()
		return errors.New("page not finished")
	}

	root, err := w.tree.Close()
	if err != nil {
		w.out.Abort()
		return err
	}
	catalog := pdf.Dict{
		"Type":  pdf.Name("Catalog"),
		"Pages": root,
	}
	if w.version > pdf.V1_7 {
		catalog["Version"] = pdf.Name(w.version.String())
	}
	w.out.GetMeta().Catalog = catalog
	if w.title != "" {
		w.out.GetMeta().Info = pdf.Dict{"Title": pdf.TextString(w.title)}
	}

	return w.out.Close()
}

// abort closes the underlying file without completing it.
func (w *DocumentWriter) abort() {
	if w.closed {
		return
	}
	w.closed = true
	w.out.Abort()
}

var errWriterClosed = errors.New("document writer is closed")
