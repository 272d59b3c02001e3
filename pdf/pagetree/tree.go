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

// Package pagetree reads and writes PDF page trees.
package pagetree

import (
	"errors"
	"fmt"
	"math"

	"seehuhn.de/go/pdfsplit/pdf"
)

// Tree gives access to the pages of a PDF document.
type Tree struct {
	r        pdf.Getter
	root     pdf.Object
	numPages int

	leaves []*leaf
}

// leaf is one entry of the flattened page tree.  If the node could not be
// read, dict is nil and err describes the problem.
type leaf struct {
	ref  pdf.Reference
	dict pdf.Dict
	err  error
}

// inheritable lists the page attributes which can be set on intermediate
// nodes of the page tree (section 7.7.3.4 of ISO 32000-2:2020).
var inheritable = []pdf.Name{"Resources", "MediaBox", "CropBox", "Rotate"}

// maxDepth limits the nesting of page tree nodes.
const maxDepth = 64

// Open locates the page tree of a document.
func Open(r pdf.Getter) (*Tree, error) {
	root := r.GetMeta().Catalog["Pages"]
	rootDict, err := pdf.GetDict(r, root)
	if err != nil {
		return nil, pdf.Wrap(err, "page tree root")
	}
	if rootDict == nil {
		return nil, errInvalidPageTree
	}

	count, err := pdf.GetInt(r, rootDict["Count"])
	if err != nil {
		return nil, pdf.Wrap(err, "page tree root")
	}
	if count < 0 || count > math.MaxInt32 {
		return nil, errInvalidPageTree
	}

	t := &Tree{
		r:        r,
		root:     root,
		numPages: int(count),
	}
	return t, nil
}

// NumPages returns the number of pages, as given by the /Count entry of the
// root node.
func (t *Tree) NumPages() int {
	return t.numPages
}

// Page returns the reference and the dictionary of the page with the given
// zero-based index.  The inheritable attributes (Resources, MediaBox,
// CropBox and Rotate) are copied into the returned dictionary.  The
// returned dictionary is a copy and can be modified by the caller.
func (t *Tree) Page(pageNo int) (pdf.Reference, pdf.Dict, error) {
	if pageNo < 0 || pageNo >= t.numPages {
		return 0, nil, fmt.Errorf("page %d out of range", pageNo+1)
	}

	if t.leaves == nil {
		t.leaves = t.flatten()
	}
	if pageNo >= len(t.leaves) {
		return 0, nil, fmt.Errorf("page %d not found in page tree", pageNo+1)
	}

	l := t.leaves[pageNo]
	if l.err != nil {
		return l.ref, nil, l.err
	}
	return l.ref, copyDict(l.dict), nil
}

// flatten enumerates all leaves of the page tree, in page order.
func (t *Tree) flatten() []*leaf {
	res := make([]*leaf, 0, t.numPages)
	seen := make(map[pdf.Reference]bool)

	var walk func(obj pdf.Object, inherited pdf.Dict, depth int)
	walk = func(obj pdf.Object, inherited pdf.Dict, depth int) {
		ref, _ := obj.(pdf.Reference)
		failN := func(err error, n int) {
			for range n {
				res = append(res, &leaf{ref: ref, err: err})
			}
		}
		fail := func(err error) {
			failN(err, 1)
		}

		if ref != 0 {
			if seen[ref] {
				fail(errors.New("loop in page tree at " + ref.String()))
				return
			}
			seen[ref] = true
		}
		if depth > maxDepth {
			fail(errors.New("page tree too deep"))
			return
		}

		node, err := pdf.GetDict(t.r, obj)
		if err != nil {
			fail(err)
			return
		}
		if node == nil {
			fail(errors.New("missing page tree node"))
			return
		}

		tp, _ := node["Type"].(pdf.Name)
		_, hasKids := node["Kids"]
		if tp == "Pages" || tp != "Page" && hasKids {
			kids, err := pdf.GetArray(t.r, node["Kids"])
			if err != nil {
				// every page of the subtree is lost
				failN(err, t.subtreeSize(node, len(res)))
				return
			}
			inh := inherited
			copied := false
			for _, name := range inheritable {
				if val, ok := node[name]; ok {
					if !copied {
						inh = copyDict(inherited)
						copied = true
					}
					inh[name] = val
				}
			}
			for _, kid := range kids {
				walk(kid, inh, depth+1)
			}
			return
		}

		page := copyDict(node)
		page["Type"] = pdf.Name("Page")
		for _, name := range inheritable {
			if _, ok := page[name]; ok {
				continue
			}
			if val, ok := inherited[name]; ok {
				page[name] = val
			}
		}
		res = append(res, &leaf{ref: ref, dict: page})
	}
	walk(t.root, nil, 0)

	return res
}

// subtreeSize returns the number of page indices to use for an intermediate
// node whose kids cannot be read.  The node's /Count is used where possible,
// limited to the pages which are still unaccounted for.
func (t *Tree) subtreeSize(node pdf.Dict, done int) int {
	if node["Count"] == nil {
		return 1
	}
	count, err := pdf.GetInt(t.r, node["Count"])
	if err != nil || count < 0 {
		return 1
	}
	return int(max(0, min(int64(count), int64(t.numPages-done))))
}

func copyDict(dict pdf.Dict) pdf.Dict {
	res := make(pdf.Dict, len(dict)+len(inheritable))
	for key, val := range dict {
		res[key] = val
	}
	return res
}

var errInvalidPageTree = &pdf.MalformedFileError{
	Err: errors.New("invalid page tree"),
}
