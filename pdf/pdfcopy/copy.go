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

// Package pdfcopy copies object graphs between PDF files.
package pdfcopy

import (
	"seehuhn.de/go/pdfsplit/pdf"
)

// Putter is the part of [pdf.Writer] used by the Copier.
type Putter interface {
	Alloc() pdf.Reference
	Put(ref pdf.Reference, obj pdf.Object) error
}

// A Copier is used to copy objects from one PDF file to another.  The Copier
// keeps track of the objects that have already been copied and ensures that
// each object is copied only once.
//
// Indirect objects are allocated in the target file as needed, and references
// are translated accordingly.  Stream data is copied without decoding.
type Copier struct {
	// Filter, if set, is called once for every indirect object before it
	// is copied.  If Filter returns false, the object is not copied and all
	// references to it are replaced by null.
	Filter func(ref pdf.Reference, obj pdf.Object) bool

	trans   map[pdf.Reference]pdf.Reference
	dropped map[pdf.Reference]bool
	r       pdf.Getter
	w       Putter
}

// NewCopier creates a new Copier.
func NewCopier(w Putter, r pdf.Getter) *Copier {
	c := &Copier{
		trans:   make(map[pdf.Reference]pdf.Reference),
		dropped: make(map[pdf.Reference]bool),
		w:       w,
		r:       r,
	}
	return c
}

// Copy copies an object from the source file to the target file, recursively.
// References are replaced by references to the copied objects, or by nil if
// the referenced object was filtered out.
func (c *Copier) Copy(obj pdf.Object) (pdf.Object, error) {
	switch x := obj.(type) {
	case pdf.Dict:
		return c.CopyDict(x)
	case pdf.Array:
		return c.CopyArray(x)
	case *pdf.Stream:
		dict, err := c.CopyDict(x.Dict)
		if err != nil {
			return nil, err
		}
		res := &pdf.Stream{
			Dict: dict,
			R:    x.R,
		}
		return res, nil
	case pdf.Reference:
		newRef, err := c.CopyReference(x)
		if err != nil || newRef == 0 {
			return nil, err
		}
		return newRef, nil
	default:
		return obj, nil
	}
}

// CopyDict copies a dictionary from the source file to the target file.
// Entries whose value becomes null are omitted.
func (c *Copier) CopyDict(obj pdf.Dict) (pdf.Dict, error) {
	res := make(pdf.Dict, len(obj))
	for key, val := range obj {
		repl, err := c.Copy(val)
		if err != nil {
			return nil, err
		}
		if repl != nil {
			res[key] = repl
		}
	}
	return res, nil
}

// CopyArray copies an array from the source file to the target file.
func (c *Copier) CopyArray(obj pdf.Array) (pdf.Array, error) {
	res := make(pdf.Array, 0, len(obj))
	for _, val := range obj {
		repl, err := c.Copy(val)
		if err != nil {
			return nil, err
		}
		res = append(res, repl)
	}
	return res, nil
}

// CopyReference copies an indirect object from the source file to the
// target file and returns the new reference.  If the object was removed by
// the Filter, 0 is returned.
func (c *Copier) CopyReference(ref pdf.Reference) (pdf.Reference, error) {
	if newRef, ok := c.trans[ref]; ok {
		return newRef, nil
	}
	if c.dropped[ref] {
		return 0, nil
	}

	val, err := c.r.Get(ref)
	if err != nil {
		return 0, err
	}
	if c.Filter != nil && !c.Filter(ref, val) {
		c.dropped[ref] = true
		return 0, nil
	}

	newRef := c.w.Alloc()
	c.trans[ref] = newRef

	trans, err := c.Copy(val)
	if err != nil {
		return 0, err
	}
	err = c.w.Put(newRef, trans)
	if err != nil {
		return 0, err
	}

	return newRef, nil
}

// Redirect replaces an indirect object in the old file with one in the new
// file.  Subsequent references to origRef are translated to newRef, and
// origRef itself is not copied.
func (c *Copier) Redirect(origRef, newRef pdf.Reference) {
	c.trans[origRef] = newRef
	delete(c.dropped, origRef)
}

// NumCopied returns the number of indirect objects allocated in the target
// file so far, including redirected ones.
func (c *Copier) NumCopied() int {
	return len(c.trans)
}
