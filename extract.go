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
	"os"

	"seehuhn.de/go/geom/matrix"
)

// ExtractPage writes the page with the given zero-based index to a new
// single-page PDF file at path.  The media box of the new page is the
// bounding box of the source page, and the document title is carried over.
//
// If an error occurs, the partially written file is removed.
func ExtractPage(doc *Document, pageNo int, path string) (err error) {
	page, err := doc.LoadPage(pageNo)
	if err != nil {
		return err
	}
	defer page.Close()

	bbox := page.Bound()

	w, err := NewDocumentWriter(path, "pdf")
	if err != nil {
		return err
	}
	w.SetTitle(doc.Title())
	defer func() {
		if err != nil {
			w.abort()
			if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				err = errors.Join(err, rmErr)
			}
		}
	}()

	dev, err := w.BeginPage(bbox)
	if err != nil {
		return err
	}
	err = dev.RunPage(page, matrix.Identity)
	if err != nil {
		return fmt.Errorf("copying page %d: %w", pageNo+1, err)
	}
	err = w.EndPage()
	if err != nil {
		return err
	}
	return w.Close()
}
