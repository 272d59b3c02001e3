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

package pdf

import (
	"bufio"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
)

// Writer represents a PDF file open for writing.  Use [NewWriter] or
// [Create] to create a new Writer.
type Writer struct {
	meta MetaInfo

	w      *posWriter
	closer io.Closer

	nextRef uint32
	xref    map[uint32]int64
}

// WriterOptions allows to influence the way a PDF file is generated.
type WriterOptions struct {
	// ID is the file identifier.  If this is nil, a random identifier is
	// generated.
	ID [][]byte
}

// Create creates the named PDF file and opens it for output.  If a previous
// file with the same name exists, it is overwritten.  After writing is
// complete, [Writer.Close] must be called to write the trailer and to close
// the underlying file.
func Create(fname string, v Version, opt *WriterOptions) (*Writer, error) {
	fd, err := os.Create(fname)
	if err != nil {
		return nil, err
	}
	pdf, err := NewWriter(fd, v, opt)
	if err != nil {
		fd.Close()
		return nil, err
	}
	pdf.closer = fd
	return pdf, nil
}

// NewWriter prepares a PDF file for writing.
//
// The [Writer.Close] method must be called after the file contents have
// been written, to add the trailer and the cross reference table to the
// file.  If w implements [io.Closer], Close also closes w.
func NewWriter(w io.Writer, v Version, opt *WriterOptions) (*Writer, error) {
	if opt == nil {
		opt = &WriterOptions{}
	}

	versionString, err := v.ToString()
	if err != nil {
		return nil, err
	}

	ID := opt.ID
	if ID != nil && len(ID) != 2 {
		return nil, errors.New("file ID must consist of two byte strings")
	}
	if ID == nil {
		id := make([]byte, 16)
		_, err := rand.Read(id)
		if err != nil {
			return nil, err
		}
		ID = [][]byte{id, id}
	}

	pdf := &Writer{
		meta: MetaInfo{
			Version: v,
			ID:      ID,
		},
		w:       &posWriter{w: bufio.NewWriter(w)},
		nextRef: 1,
		xref:    make(map[uint32]int64),
	}
	if closer, ok := w.(io.Closer); ok {
		pdf.closer = closer
	}

	_, err = fmt.Fprintf(pdf.w, "%%PDF-%s\n%%\x80\x80\x80\x80\n", versionString)
	if err != nil {
		return nil, err
	}
	return pdf, nil
}

// GetMeta returns the meta information of the file being written.  The
// Catalog and Info fields must be filled in by the caller before
// [Writer.Close] is called.
func (pdf *Writer) GetMeta() *MetaInfo {
	return &pdf.meta
}

// Alloc allocates an object number for an indirect object.
func (pdf *Writer) Alloc() Reference {
	ref := NewReference(pdf.nextRef, 0)
	pdf.nextRef++
	return ref
}

// Put writes an indirect object to the file, using a reference previously
// obtained from [Writer.Alloc].  Each reference can be used only once.
func (pdf *Writer) Put(ref Reference, obj Object) error {
	if pdf.w == nil {
		return errWriterClosed
	}
	number := ref.Number()
	if number == 0 || number >= pdf.nextRef || ref.Generation() != 0 {
		return fmt.Errorf("invalid reference %s", ref)
	}
	if _, seen := pdf.xref[number]; seen {
		return fmt.Errorf("object %s written twice", ref)
	}
	pdf.xref[number] = pdf.w.pos

	_, err := fmt.Fprintf(pdf.w, "%d 0 obj\n", number)
	if err != nil {
		return err
	}
	if obj == nil {
		_, err = io.WriteString(pdf.w, "null")
	} else {
		err = obj.PDF(pdf.w)
	}
	if err != nil {
		return err
	}
	_, err = io.WriteString(pdf.w, "\nendobj\n")
	return err
}

// Close writes the document catalog, the cross-reference table and the
// trailer, and then closes the underlying file.  The underlying file is
// closed even if an error occurs.
func (pdf *Writer) Close() error {
	if pdf.w == nil {
		return errWriterClosed
	}
	defer func() {
		if pdf.w != nil {
			// writing the file failed
			pdf.Abort()
		}
	}()

	if pdf.meta.Catalog == nil {
		return errors.New("missing document catalog")
	}

	trailer := Dict{
		"ID": Array{String(pdf.meta.ID[0]), String(pdf.meta.ID[1])},
	}
	for key, val := range pdf.meta.Trailer {
		trailer[key] = val
	}

	rootRef := pdf.Alloc()
	err := pdf.Put(rootRef, pdf.meta.Catalog)
	if err != nil {
		return err
	}
	trailer["Root"] = rootRef
	if pdf.meta.Info != nil {
		infoRef := pdf.Alloc()
		err = pdf.Put(infoRef, pdf.meta.Info)
		if err != nil {
			return err
		}
		trailer["Info"] = infoRef
	}
	trailer["Size"] = Integer(pdf.nextRef)

	xRefPos := pdf.w.pos
	_, err = fmt.Fprintf(pdf.w, "xref\n0 %d\n", pdf.nextRef)
	if err != nil {
		return err
	}
	for i := uint32(0); i < pdf.nextRef; i++ {
		pos, ok := pdf.xref[i]
		if ok {
			_, err = fmt.Fprintf(pdf.w, "%010d 00000 n\r\n", pos)
		} else if i == 0 {
			_, err = io.WriteString(pdf.w, "0000000000 65535 f\r\n")
		} else {
			_, err = io.WriteString(pdf.w, "0000000000 00000 f\r\n")
		}
		if err != nil {
			return err
		}
	}
	_, err = io.WriteString(pdf.w, "trailer\n")
	if err != nil {
		return err
	}
	err = trailer.PDF(pdf.w)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(pdf.w, "\nstartxref\n%d\n%%%%EOF\n", xRefPos)
	if err != nil {
		return err
	}

	err = pdf.w.w.Flush()
	pdf.w = nil
	if pdf.closer != nil {
		closeErr := pdf.closer.Close()
		if err == nil {
			err = closeErr
		}
	}
	return err
}

// Abort stops writing without completing the file.  The underlying file is
// closed, but its contents are not valid PDF.
func (pdf *Writer) Abort() error {
	pdf.w = nil
	if pdf.closer != nil {
		return pdf.closer.Close()
	}
	return nil
}

var errWriterClosed = errors.New("PDF writer is closed")

// posWriter keeps track of the current file position.
type posWriter struct {
	w   *bufio.Writer
	pos int64
}

func (w *posWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.pos += int64(n)
	return n, err
}
