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

// Package pdf implements the file structure layer of PDF documents.
//
// This package treats PDF files as containers for a set of objects
// (typically dictionaries and streams).  Objects are written sequentially,
// but can be read in any order.  Content streams are never interpreted;
// stream data is passed through with its filters still applied.
//
// A [Reader] can be used to read objects from an existing PDF file:
//
//	r, err := pdf.Open("in.pdf", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//	catalog := r.GetMeta().Catalog
//	... use catalog to locate objects in the file ...
//
// A [Writer] can be used to write objects to a new PDF file:
//
//	w, err := pdf.Create("out.pdf", pdf.V1_7, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ref := w.Alloc()
//	err = w.Put(ref, obj)
//	...
//	w.GetMeta().Catalog = pdf.Dict{"Type": pdf.Name("Catalog"), ...}
//	err = w.Close()
//
// The following types implement the native PDF object types.
// All of these implement the [Object] interface:
//
//	Array
//	Bool
//	Dict
//	Integer
//	Name
//	Real
//	Reference
//	*Stream
//	String
//
// The reader can read files which use cross-reference streams, object
// streams and the standard security handler.  Damaged cross-reference
// information is reconstructed by scanning the file.
package pdf
