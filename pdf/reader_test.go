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
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// writeTestFile writes a small PDF file and returns the file contents,
// together with the objects written.
func writeTestFile(t *testing.T, v Version) ([]byte, map[Reference]Object) {
	t.Helper()

	buf := &bytes.Buffer{}
	w, err := NewWriter(buf, v, &WriterOptions{
		ID: [][]byte{[]byte("0123456789abcdef"), []byte("fedcba9876543210")},
	})
	if err != nil {
		t.Fatal(err)
	}

	objects := make(map[Reference]Object)
	put := func(obj Object) Reference {
		ref := w.Alloc()
		err := w.Put(ref, obj)
		if err != nil {
			t.Fatal(err)
		}
		objects[ref] = obj
		return ref
	}

	put(Integer(42))
	put(Real(-1.25))
	put(Name("Test Name"))
	put(String("a (string) with\n\x00 bytes"))
	put(Array{Bool(true), nil, Integer(1)})
	ref := put(Dict{"Type": Name("Test"), "Key": String("value")})
	put(Dict{"Link": ref})
	pages := put(Dict{"Type": Name("Pages"), "Kids": Array{}, "Count": Integer(0)})

	w.GetMeta().Catalog = Dict{"Type": Name("Catalog"), "Pages": pages}
	w.GetMeta().Info = Dict{"Title": TextString("Test")}
	err = w.Close()
	if err != nil {
		t.Fatal(err)
	}

	return buf.Bytes(), objects
}

func TestWriterRoundTrip(t *testing.T) {
	data, objects := writeTestFile(t, V1_4)

	r, err := NewReader(bytes.NewReader(data), int64(len(data)), nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Repaired() {
		t.Error("file was unexpectedly repaired")
	}

	meta := r.GetMeta()
	if meta.Version != V1_4 {
		t.Errorf("wrong version %s", meta.Version)
	}
	if d := cmp.Diff([][]byte{[]byte("0123456789abcdef"), []byte("fedcba9876543210")}, meta.ID); d != "" {
		t.Errorf("ID: (-want +got):\n%s", d)
	}
	if title, _ := meta.Info["Title"].(String); title.AsTextString() != "Test" {
		t.Errorf("wrong title %q", title)
	}
	if meta.Catalog["Type"] != Name("Catalog") {
		t.Errorf("wrong catalog %s", Format(meta.Catalog))
	}

	for ref, expected := range objects {
		obj, err := r.Get(ref)
		if err != nil {
			t.Errorf("%s: %s", ref, err)
			continue
		}
		if d := cmp.Diff(expected, obj); d != "" {
			t.Errorf("%s: (-want +got):\n%s", ref, d)
		}
	}

	// missing objects are null
	obj, err := r.Get(NewReference(1000, 0))
	if obj != nil || err != nil {
		t.Errorf("missing object: got %v, %v", obj, err)
	}
	// wrong generation numbers are null
	obj, err = r.Get(NewReference(1, 1))
	if obj != nil || err != nil {
		t.Errorf("wrong generation: got %v, %v", obj, err)
	}
}

func TestWriterStream(t *testing.T) {
	buf := &bytes.Buffer{}
	w, err := NewWriter(buf, V1_7, nil)
	if err != nil {
		t.Fatal(err)
	}
	length := w.Alloc()
	stm := w.Alloc()
	err = w.Put(stm, &Stream{
		Dict: Dict{"Type": Name("Test")},
		R:    bytes.NewReader([]byte("stream data\nendstream\nin the middle")),
	})
	if err != nil {
		t.Fatal(err)
	}
	err = w.Put(length, Integer(7))
	if err != nil {
		t.Fatal(err)
	}
	w.GetMeta().Catalog = Dict{"Type": Name("Catalog")}
	err = w.Close()
	if err != nil {
		t.Fatal(err)
	}

	data := buf.Bytes()
	r, err := NewReader(bytes.NewReader(data), int64(len(data)), nil)
	if err != nil {
		t.Fatal(err)
	}
	obj, err := GetStream(r, stm)
	if err != nil {
		t.Fatal(err)
	}
	body, err := io.ReadAll(obj.R)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "stream data\nendstream\nin the middle" {
		t.Errorf("wrong stream data %q", body)
	}
}

func TestWriterErrors(t *testing.T) {
	w, err := NewWriter(io.Discard, V1_7, nil)
	if err != nil {
		t.Fatal(err)
	}
	ref := w.Alloc()
	if err := w.Put(ref, Integer(1)); err != nil {
		t.Fatal(err)
	}
	if err := w.Put(ref, Integer(2)); err == nil {
		t.Error("writing an object twice was not detected")
	}
	if err := w.Put(NewReference(100, 0), Integer(2)); err == nil {
		t.Error("unallocated reference was not detected")
	}
	if err := w.Close(); err == nil {
		t.Error("missing catalog was not detected")
	}

	_, err = NewWriter(io.Discard, V1_7, &WriterOptions{ID: [][]byte{{1}}})
	if err == nil {
		t.Error("invalid ID was not detected")
	}
	_, err = NewWriter(io.Discard, Version(100), nil)
	if err == nil {
		t.Error("invalid version was not detected")
	}
}

// failingFile is an io.WriteCloser where all writes fail.
type failingFile struct {
	closed int
}

func (f *failingFile) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func (f *failingFile) Close() error {
	f.closed++
	return nil
}

func TestWriterCloseOnError(t *testing.T) {
	for _, withCatalog := range []bool{false, true} {
		out := &failingFile{}
		w, err := NewWriter(out, V1_7, nil)
		if err != nil {
			t.Fatal(err)
		}
		if withCatalog {
			// large enough to overflow the output buffer
			w.GetMeta().Catalog = Dict{
				"Type": Name("Catalog"),
				"Junk": String(bytes.Repeat([]byte("x"), 10000)),
			}
		}

		err = w.Close()
		if err == nil {
			t.Errorf("catalog=%t: missing error", withCatalog)
		}
		if out.closed != 1 {
			t.Errorf("catalog=%t: file closed %d times", withCatalog, out.closed)
		}
		if err := w.Close(); err == nil {
			t.Errorf("catalog=%t: second Close succeeded", withCatalog)
		}
		if out.closed != 1 {
			t.Errorf("catalog=%t: file closed %d times", withCatalog, out.closed)
		}
	}
}

func TestRepairBrokenXRef(t *testing.T) {
	data, objects := writeTestFile(t, V1_7)

	startxref := regexp.MustCompile(`startxref\s+\d+`)
	broken := startxref.ReplaceAll(bytes.Clone(data), []byte("startxref\n99999999"))

	r, err := NewReader(bytes.NewReader(broken), int64(len(broken)), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Repaired() {
		t.Error("file was not repaired")
	}
	if r.GetMeta().Catalog["Type"] != Name("Catalog") {
		t.Error("catalog not found")
	}
	for ref, expected := range objects {
		obj, err := r.Get(ref)
		if err != nil {
			t.Errorf("%s: %s", ref, err)
			continue
		}
		if d := cmp.Diff(expected, obj); d != "" {
			t.Errorf("%s: (-want +got):\n%s", ref, d)
		}
	}
}

func TestRepairShiftedObjects(t *testing.T) {
	data, objects := writeTestFile(t, V1_7)

	// Inserting data after the header invalidates all xref offsets.
	idx := bytes.Index(data, []byte("1 0 obj"))
	shifted := slices.Concat(data[:idx], []byte("% some junk\n"), data[idx:])

	r, err := NewReader(bytes.NewReader(shifted), int64(len(shifted)), nil)
	if err != nil {
		t.Fatal(err)
	}
	for ref, expected := range objects {
		obj, err := r.Get(ref)
		if r.Repaired() {
			// all objects are available after the repair
			if err != nil {
				t.Errorf("%s: %s", ref, err)
			} else if d := cmp.Diff(expected, obj); d != "" {
				t.Errorf("%s: (-want +got):\n%s", ref, d)
			}
		} else if err == nil {
			t.Errorf("%s: broken offset not detected", ref)
		}
	}
}

func TestMissingCatalog(t *testing.T) {
	data := []byte("%PDF-1.7\n1 0 obj\n<< /Type /Pages >>\nendobj\n")
	_, err := NewReader(bytes.NewReader(data), int64(len(data)), nil)
	var mf *MalformedFileError
	if !errors.As(err, &mf) {
		t.Errorf("expected MalformedFileError, got %v", err)
	}

	data = []byte("this is not a PDF file")
	_, err = NewReader(bytes.NewReader(data), int64(len(data)), nil)
	if !errors.As(err, &mf) {
		t.Errorf("expected MalformedFileError, got %v", err)
	}
}

func TestXRefPrevLoop(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.WriteString("%PDF-1.4\n")
	pos1 := buf.Len()
	buf.WriteString("1 0 obj\n<</Type/Catalog>>\nendobj\n")
	xrefPos := buf.Len()
	fmt.Fprintf(buf, "xref\n0 2\n0000000000 65535 f\r\n%010d 00000 n\r\n", pos1)
	fmt.Fprintf(buf, "trailer\n<</Size 2/Root 1 0 R/Prev %d>>\n", xrefPos)
	fmt.Fprintf(buf, "startxref\n%d\n%%%%EOF\n", xrefPos)
	data := buf.Bytes()

	r := &Reader{
		size: int64(len(data)),
		r:    bytes.NewReader(data),
	}
	r.file = io.NewSectionReader(r.r, 0, r.size)
	r.clearCaches()
	_, _, err := r.readXRef()
	if err == nil {
		t.Error("loop in xref chain not detected")
	}

	// NewReader falls back to reconstructing the xref table
	r2, err := NewReader(bytes.NewReader(data), int64(len(data)), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !r2.Repaired() {
		t.Error("file was not repaired")
	}
}

// objStmFile returns a PDF file which stores the catalog and the page tree
// root in an object stream, and uses an xref stream.
func objStmFile(t *testing.T) []byte {
	t.Helper()

	buf := &bytes.Buffer{}
	buf.WriteString("%PDF-1.5\n%\x80\x80\x80\x80\n")

	objs := []string{
		"<</Type/Catalog/Pages 3 0 R>>",
		"<</Type/Pages/Kids[]/Count 0/Note(in stream)>>",
	}
	head := fmt.Sprintf("2 0 3 %d\n", len(objs[0])+1)
	body := flate(t, []byte(head+objs[0]+"\n"+objs[1]))
	pos1 := buf.Len()
	fmt.Fprintf(buf, "1 0 obj\n<</Type/ObjStm/N 2/First %d/Length %d/Filter/FlateDecode>>\nstream\n",
		len(head), len(body))
	buf.Write(body)
	buf.WriteString("\nendstream\nendobj\n")

	pos4 := buf.Len()
	var rows []byte
	addRow := func(tp byte, a uint32, b uint16) {
		rows = append(rows, tp, byte(a>>24), byte(a>>16), byte(a>>8), byte(a), byte(b>>8), byte(b))
	}
	addRow(0, 0, 65535)
	addRow(1, uint32(pos1), 0)
	addRow(2, 1, 0)
	addRow(2, 1, 1)
	addRow(1, uint32(pos4), 0)
	xrefData := flate(t, rows)
	fmt.Fprintf(buf, "4 0 obj\n<</Type/XRef/Size 5/W[1 4 2]/Root 2 0 R/Length %d/Filter/FlateDecode>>\nstream\n",
		len(xrefData))
	buf.Write(xrefData)
	buf.WriteString("\nendstream\nendobj\n")
	fmt.Fprintf(buf, "startxref\n%d\n%%%%EOF\n", pos4)

	return buf.Bytes()
}

func TestObjectStream(t *testing.T) {
	data := objStmFile(t)
	r, err := NewReader(bytes.NewReader(data), int64(len(data)), nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Repaired() {
		t.Error("file was unexpectedly repaired")
	}
	if r.GetMeta().Version != V1_5 {
		t.Errorf("wrong version %s", r.GetMeta().Version)
	}

	pages, err := GetDict(r, r.GetMeta().Catalog["Pages"])
	if err != nil {
		t.Fatal(err)
	}
	expected := Dict{
		"Type":  Name("Pages"),
		"Kids":  Array{},
		"Count": Integer(0),
		"Note":  String("in stream"),
	}
	if d := cmp.Diff(expected, pages); d != "" {
		t.Errorf("(-want +got):\n%s", d)
	}
}

func TestObjectStreamRepair(t *testing.T) {
	data := objStmFile(t)
	startxref := regexp.MustCompile(`startxref\s+\d+`)
	broken := startxref.ReplaceAll(bytes.Clone(data), []byte("startxref\n0"))

	r, err := NewReader(bytes.NewReader(broken), int64(len(broken)), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Repaired() {
		t.Error("file was not repaired")
	}
	pages, err := GetDict(r, r.GetMeta().Catalog["Pages"])
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(String("in stream"), pages["Note"]); d != "" {
		t.Errorf("(-want +got):\n%s", d)
	}
}
