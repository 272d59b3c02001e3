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

	"seehuhn.de/go/pdfsplit/pdf"
	"seehuhn.de/go/pdfsplit/pdf/pagetree"
)

// ErrCannotOpen is returned (wrapped) when an input document cannot be
// opened.
var ErrCannotOpen = errors.New("cannot open document")

// Document is a PDF document opened for page extraction.
//
// A Document must not be used concurrently from different goroutines.
type Document struct {
	r    *pdf.Reader
	tree *pagetree.Tree
}

// OpenDocument opens the PDF file at path.  All errors returned by this
// function wrap [ErrCannotOpen].
func OpenDocument(path string, opt *pdf.ReaderOptions) (*Document, error) {
	r, err := pdf.Open(path, opt)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrCannotOpen, path, err)
	}

	tree, err := pagetree.Open(r)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("%w %q: %w", ErrCannotOpen, path, err)
	}

	doc := &Document{
		r:    r,
		tree: tree,
	}
	return doc, nil
}

// NumPages returns the number of pages in the document.
func (doc *Document) NumPages() int {
	return doc.tree.NumPages()
}

// Version returns the PDF version of the document.
func (doc *Document) Version() pdf.Version {
	return doc.r.GetMeta().Version
}

// Repaired reports whether the document structure was damaged and had to
// be reconstructed while opening the file.
func (doc *Document) Repaired() bool {
	return doc.r.Repaired()
}

// Title returns the title from the document information dictionary, or
// the empty string if the document has no title.
func (doc *Document) Title() string {
	if doc.r == nil {
		return ""
	}
	title, err := pdf.GetString(doc.r, doc.r.GetMeta().Info["Title"])
	if err != nil {
		return ""
	}
	return title.AsTextString()
}

// LoadPage loads the page with the given zero-based index.
func (doc *Document) LoadPage(pageNo int) (*Page, error) {
	if doc.r == nil {
		return nil, errDocumentClosed
	}

	ref, dict, err := doc.tree.Page(pageNo)
	if err != nil {
		return nil, err
	}

	p := &Page{
		Number: pageNo,
		Ref:    ref,
		Dict:   dict,
		doc:    doc,
	}
	return p, nil
}

// Close closes the underlying file.
func (doc *Document) Close() error {
	if doc.r == nil {
		return errDocumentClosed
	}
	err := doc.r.Close()
	doc.r = nil
	doc.tree = nil
	return err
}

var errDocumentClosed = errors.New("document is closed")
