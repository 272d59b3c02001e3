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

package pagetree

import (
	"errors"

	"seehuhn.de/go/pdfsplit/pdf"
)

// maxDegree is the maximal number of children of a page tree node.
const maxDegree = 16

// Writer writes a page tree to a PDF file.
//
// Pages are written to the file immediately, the intermediate nodes of the
// tree are written when the Writer is closed.  The resulting tree is
// balanced, with at most maxDegree children per node.
type Writer struct {
	Out *pdf.Writer

	// cur is the node which receives the next page.
	cur *nodeInfo

	// done contains the completed nodes of the lowest level.
	done []*nodeInfo

	isClosed bool
}

type nodeInfo struct {
	ref   pdf.Reference
	kids  pdf.Array
	count int
}

// NewWriter creates a new page tree which adds pages to the PDF document w.
func NewWriter(w *pdf.Writer) *Writer {
	return &Writer{Out: w}
}

// NextParent returns the reference of the page tree node which will become
// the parent of the next page added.
func (w *Writer) NextParent() pdf.Reference {
	if w.cur == nil {
		w.cur = &nodeInfo{ref: w.Out.Alloc()}
	}
	return w.cur.ref
}

// AppendPage adds a new page to the page tree and writes the page dictionary
// to the file.  The /Type and /Parent entries of dict are set automatically.
func (w *Writer) AppendPage(dict pdf.Dict) (pdf.Reference, error) {
	ref := w.Out.Alloc()
	err := w.AppendPageRef(ref, dict)
	if err != nil {
		return 0, err
	}
	return ref, nil
}

// AppendPageRef is like [Writer.AppendPage], but uses a previously
// allocated reference for the page dictionary.
func (w *Writer) AppendPageRef(ref pdf.Reference, dict pdf.Dict) error {
	if w.isClosed {
		return errClosed
	}

	parent := w.NextParent()
	dict["Type"] = pdf.Name("Page")
	dict["Parent"] = parent
	err := w.Out.Put(ref, dict)
	if err != nil {
		return err
	}

	w.cur.kids = append(w.cur.kids, ref)
	w.cur.count++
	if len(w.cur.kids) >= maxDegree {
		w.done = append(w.done, w.cur)
		w.cur = nil
	}
	return nil
}

// Close writes the remaining nodes of the page tree and returns a reference
// to the root node.  After a tree has been closed, no more pages can be
// added.
func (w *Writer) Close() (pdf.Reference, error) {
	if w.isClosed {
		return 0, errClosed
	}
	w.isClosed = true

	level := w.done
	if w.cur != nil || len(level) == 0 {
		// An empty document has a root node without kids.
		w.NextParent()
		level = append(level, w.cur)
	}
	w.cur = nil
	w.done = nil

	for len(level) > 1 {
		var next []*nodeInfo
		for start := 0; start < len(level); start += maxDegree {
			end := min(start+maxDegree, len(level))
			node := &nodeInfo{ref: w.Out.Alloc()}
			for _, child := range level[start:end] {
				node.kids = append(node.kids, child.ref)
				node.count += child.count
				err := w.writeNode(child, node.ref)
				if err != nil {
					return 0, err
				}
			}
			next = append(next, node)
		}
		level = next
	}

	root := level[0]
	err := w.writeNode(root, 0)
	if err != nil {
		return 0, err
	}
	return root.ref, nil
}

func (w *Writer) writeNode(node *nodeInfo, parent pdf.Reference) error {
	kids := node.kids
	if kids == nil {
		kids = pdf.Array{}
	}
	dict := pdf.Dict{
		"Type":  pdf.Name("Pages"),
		"Kids":  kids,
		"Count": pdf.Integer(node.count),
	}
	if parent != 0 {
		dict["Parent"] = parent
	}
	return w.Out.Put(node.ref, dict)
}

var errClosed = errors.New("page tree is closed")
