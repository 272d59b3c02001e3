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

// Package pdfsplit splits PDF documents into single-page files.
//
// The main entry point is [Split], which writes every page of a document to
// a file of its own:
//
//	res, err := pdfsplit.Split("doc.pdf", "out", "part", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Written(), "of", res.PageCount, "pages written")
//
// This creates out/part_1.pdf, out/part_2.pdf, and so on.  Pages which
// cannot be read are skipped and reported in [Result.Pages].
//
// The building blocks used by Split are exported as well: a [Document] is
// opened with [OpenDocument], its pages are loaded with
// [Document.LoadPage], and a [DocumentWriter] replays a page into a new
// file via a [Device].  [ExtractPage] combines these for a single page.
//
// Pages are copied, not rendered: the content streams, resources and
// annotations of a page are transferred unchanged, and the media box of the
// new page is set to the bounding box of the source page.
package pdfsplit
