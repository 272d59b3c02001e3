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
	"maps"
	"regexp"
	"slices"
	"strconv"
)

// xRefEntry describes where an object is stored in the file.
type xRefEntry struct {
	// InStream is the object stream containing the object, or 0 if the
	// object is stored directly in the file.
	InStream Reference

	// Pos is the byte offset of the object in the file, or the index of
	// the object inside the object stream.  Free objects have Pos < 0.
	Pos int64

	Generation uint16
}

// IsFree reports whether the entry describes a free (deleted) object.
func (entry *xRefEntry) IsFree() bool {
	return entry == nil || entry.Pos < 0
}

type xRefSubSection struct {
	Start, Size int
}

// findXRef returns the file offset given after the last "startxref" keyword.
func (r *Reader) findXRef() (int64, error) {
	pos, err := r.lastOccurrence("startxref")
	if err != nil {
		return 0, err
	}
	s := r.scannerAt(pos + 9)
	err = s.SkipWhiteSpace()
	if err != nil {
		return 0, err
	}
	xRefPos, err := s.ReadInteger()
	if err != nil {
		return 0, err
	}
	if xRefPos <= 0 || int64(xRefPos) >= r.size {
		return 0, &MalformedFileError{
			Pos: s.currentPos(),
			Err: errors.New("invalid xref position"),
		}
	}
	return int64(xRefPos), nil
}

// lastOccurrence returns the file offset of the last occurrence of pat.
func (r *Reader) lastOccurrence(pat string) (int64, error) {
	const chunkSize = 1024

	buf := make([]byte, chunkSize)
	k := int64(len(pat))
	pos := r.size
	for pos >= k {
		start := max(pos-chunkSize, 0)
		n, err := r.r.ReadAt(buf[:pos-start], start)
		if err != nil && err != io.EOF {
			return 0, err
		}

		idx := bytes.LastIndex(buf[:n], []byte(pat))
		if idx >= 0 {
			return start + int64(idx), nil
		}
		if start == 0 {
			break
		}
		pos = start + k - 1
	}
	return 0, &MalformedFileError{
		Err: fmt.Errorf("%q not found", pat),
	}
}

// readXRef reads all cross-reference sections of the file, following the
// /Prev chain.  Entries in later sections (which are read first) take
// precedence.
func (r *Reader) readXRef() (map[uint32]*xRefEntry, Dict, error) {
	start, err := r.findXRef()
	if err != nil {
		return nil, nil, err
	}

	xref := make(map[uint32]*xRefEntry)
	trailer := Dict{}
	seen := make(map[int64]bool)
	for {
		if seen[start] {
			return nil, nil, &MalformedFileError{
				Pos: start,
				Err: errors.New("loop in xref chain"),
			}
		}
		seen[start] = true

		s := r.scannerAt(start)
		err := s.SkipWhiteSpace()
		if err != nil {
			return nil, nil, err
		}
		buf, err := s.Peek(4)
		if err != nil {
			return nil, nil, err
		}

		var dict Dict
		if bytes.Equal(buf, []byte("xref")) {
			dict, err = readXRefTable(xref, s)
			if err != nil {
				return nil, nil, err
			}

			// In hybrid files, the /XRefStm stream supplements the table.
			if zStart, ok := dict["XRefStm"].(Integer); ok && zStart > 0 && int64(zStart) < r.size && !seen[int64(zStart)] {
				seen[int64(zStart)] = true
				_, err = r.readXRefStream(xref, r.scannerAt(int64(zStart)))
				if err != nil {
					return nil, nil, Wrap(err, "XRefStm")
				}
			}
		} else {
			dict, err = r.readXRefStream(xref, s)
			if err != nil {
				return nil, nil, err
			}
		}

		for _, key := range []Name{"Root", "Encrypt", "Info", "ID"} {
			if _, done := trailer[key]; done {
				continue
			}
			if val, ok := dict[key]; ok {
				trailer[key] = val
			}
		}

		prev, ok := dict["Prev"]
		if !ok {
			break
		}
		prevStart, ok := prev.(Integer)
		if !ok || prevStart <= 0 || int64(prevStart) >= r.size {
			return nil, nil, &MalformedFileError{
				Pos: start,
				Err: fmt.Errorf("invalid /Prev value %s", Format(prev)),
			}
		}
		start = int64(prevStart)
	}

	return xref, trailer, nil
}

func readXRefTable(xref map[uint32]*xRefEntry, s *scanner) (Dict, error) {
	err := s.SkipString("xref")
	if err != nil {
		return nil, err
	}

	for {
		err = s.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}
		buf, err := s.Peek(1)
		if err != nil {
			return nil, err
		}
		if len(buf) == 0 || buf[0] < '0' || buf[0] > '9' {
			break
		}

		start, err := s.ReadInteger()
		if err != nil {
			return nil, err
		}
		err = s.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}
		size, err := s.ReadInteger()
		if err != nil {
			return nil, err
		}
		if start < 0 || size < 0 || start+size > 1<<31 {
			return nil, &MalformedFileError{
				Pos: s.currentPos(),
				Err: errors.New("invalid xref subsection"),
			}
		}

		err = decodeXRefSection(xref, s, xRefSubSection{int(start), int(size)})
		if err != nil {
			return nil, err
		}
	}

	err = s.SkipString("trailer")
	if err != nil {
		return nil, err
	}
	err = s.SkipWhiteSpace()
	if err != nil {
		return nil, err
	}
	return s.ReadDict()
}

// decodeXRefSection reads the entries of one subsection of a classic xref
// table.  The entries are parsed leniently: the fixed 20-byte layout is not
// required.
func decodeXRefSection(xref map[uint32]*xRefEntry, s *scanner, sec xRefSubSection) error {
	for i := 0; i < sec.Size; i++ {
		err := s.SkipWhiteSpace()
		if err != nil {
			return err
		}
		pos, err := s.ReadInteger()
		if err != nil {
			return err
		}
		err = s.SkipWhiteSpace()
		if err != nil {
			return err
		}
		gen, err := s.ReadInteger()
		if err != nil {
			return err
		}
		err = s.SkipWhiteSpace()
		if err != nil {
			return err
		}
		buf, err := s.Peek(1)
		if err != nil {
			return err
		}
		if len(buf) == 0 || (buf[0] != 'n' && buf[0] != 'f') {
			return &MalformedFileError{
				Pos: s.currentPos(),
				Err: errors.New("malformed xref table"),
			}
		}
		tp := buf[0]
		s.pos++

		// Some writers start the first subsection at 1 instead of 0.
		if i == 0 && sec.Start == 1 && tp == 'f' && gen == 65535 {
			sec.Start = 0
		}

		number := uint32(sec.Start + i)
		if xref[number] != nil {
			continue
		}
		if gen > 65535 {
			gen = 65535
		}
		entry := &xRefEntry{Pos: int64(pos), Generation: uint16(gen)}
		if tp == 'f' || pos <= 0 {
			entry.Pos = -1
		}
		xref[number] = entry
	}
	return nil
}

func (r *Reader) readXRefStream(xref map[uint32]*xRefEntry, s *scanner) (Dict, error) {
	obj, _, err := s.ReadIndirectObject()
	if err != nil {
		return nil, err
	}
	stream, ok := obj.(*Stream)
	if !ok {
		return nil, &MalformedFileError{
			Pos: s.currentPos(),
			Err: errors.New("invalid xref stream"),
		}
	}

	w, ss, err := checkXRefStreamDict(stream.Dict)
	if err != nil {
		return nil, err
	}
	data, err := stream.Decode(r)
	if err != nil {
		return nil, err
	}
	err = decodeXRefStream(xref, data, w, ss)
	if err != nil {
		return nil, err
	}

	return stream.Dict, nil
}

func checkXRefStreamDict(dict Dict) ([]int, []xRefSubSection, error) {
	size, ok := dict["Size"].(Integer)
	if !ok || size < 0 {
		return nil, nil, &MalformedFileError{Err: errors.New("invalid /Size in xref stream")}
	}
	W, ok := dict["W"].(Array)
	if !ok || len(W) < 3 {
		return nil, nil, &MalformedFileError{Err: errors.New("invalid /W in xref stream")}
	}
	w := make([]int, 3)
	for i := range w {
		wi, ok := W[i].(Integer)
		if !ok || wi < 0 || wi > 8 {
			return nil, nil, &MalformedFileError{Err: errors.New("invalid /W in xref stream")}
		}
		w[i] = int(wi)
	}

	var ss []xRefSubSection
	switch ind := dict["Index"].(type) {
	case nil:
		ss = append(ss, xRefSubSection{0, int(size)})
	case Array:
		if len(ind)%2 != 0 {
			return nil, nil, &MalformedFileError{Err: errors.New("invalid /Index in xref stream")}
		}
		for i := 0; i < len(ind); i += 2 {
			start, ok1 := ind[i].(Integer)
			n, ok2 := ind[i+1].(Integer)
			if !ok1 || !ok2 || start < 0 || n < 0 {
				return nil, nil, &MalformedFileError{Err: errors.New("invalid /Index in xref stream")}
			}
			ss = append(ss, xRefSubSection{int(start), int(n)})
		}
	default:
		return nil, nil, &MalformedFileError{Err: errors.New("invalid /Index in xref stream")}
	}
	return w, ss, nil
}

func decodeXRefStream(xref map[uint32]*xRefEntry, data []byte, w []int, ss []xRefSubSection) error {
	wTotal := w[0] + w[1] + w[2]
	if wTotal == 0 {
		return &MalformedFileError{Err: errors.New("invalid /W in xref stream")}
	}

	for _, sec := range ss {
		for i := sec.Start; i < sec.Start+sec.Size; i++ {
			if len(data) < wTotal {
				// Truncated xref streams are common; keep what we have.
				return nil
			}
			row := data[:wTotal]
			data = data[wTotal:]

			number := uint32(i)
			if xref[number] != nil {
				continue
			}

			tp := int64(1) // default if the type field is omitted
			if w[0] > 0 {
				tp = decodeInt(row[:w[0]])
			}
			a := decodeInt(row[w[0] : w[0]+w[1]])
			b := decodeInt(row[w[0]+w[1]:])
			switch tp {
			case 0:
				xref[number] = &xRefEntry{Pos: -1, Generation: uint16(b)}
			case 1:
				xref[number] = &xRefEntry{Pos: a, Generation: uint16(b)}
			case 2:
				xref[number] = &xRefEntry{
					InStream: NewReference(uint32(a), 0),
					Pos:      b,
				}
			}
			// other types are reserved and treated as null references
		}
	}
	return nil
}

func decodeInt(buf []byte) (res int64) {
	for _, x := range buf {
		res = res<<8 | int64(x)
	}
	return res
}

var (
	objStartRegexp = regexp.MustCompile(`(\d{1,10})[\x00\t\n\f\r ]+(\d{1,5})[\x00\t\n\f\r ]+obj\b`)
	trailerRegexp  = regexp.MustCompile(`trailer[\x00\t\n\f\r ]*<<`)
)

// reconstructXRef rebuilds the cross-reference information by scanning the
// whole file for "n g obj" markers.  This is used if the xref table is
// missing or damaged.
func (r *Reader) reconstructXRef() (map[uint32]*xRefEntry, Dict, error) {
	const chunkSize = 64 * 1024
	const overlap = 32

	xref := make(map[uint32]*xRefEntry)
	var trailers []int64
	var objStms []Reference

	buf := make([]byte, chunkSize+overlap)
	for start := int64(0); start < r.size; start += chunkSize {
		n, err := r.r.ReadAt(buf[:min(int64(len(buf)), r.size-start)], start)
		if err != nil && err != io.EOF {
			return nil, nil, err
		}
		chunk := buf[:n]

		for _, m := range objStartRegexp.FindAllSubmatchIndex(chunk, -1) {
			if m[0] >= chunkSize {
				break // found again in the next chunk
			}
			if m[0] > 0 && chunk[m[0]-1] >= '0' && chunk[m[0]-1] <= '9' {
				continue
			}
			number, err1 := strconv.ParseUint(string(chunk[m[2]:m[3]]), 10, 32)
			gen, err2 := strconv.ParseUint(string(chunk[m[4]:m[5]]), 10, 16)
			if err1 != nil || err2 != nil {
				continue
			}
			// Later definitions override earlier ones.
			xref[uint32(number)] = &xRefEntry{
				Pos:        start + int64(m[0]),
				Generation: uint16(gen),
			}
		}
		for _, m := range trailerRegexp.FindAllIndex(chunk, -1) {
			if m[0] < chunkSize {
				trailers = append(trailers, start+int64(m[0]))
			}
		}
	}
	if len(xref) == 0 {
		return nil, nil, &MalformedFileError{Err: errors.New("no objects found")}
	}

	// Objects in the file take precedence over objects in object streams,
	// so the original map is used to look up streams.
	direct := make(map[uint32]*xRefEntry, len(xref))
	for number, entry := range xref {
		direct[number] = entry
	}
	r.xref = direct

	trailer := Dict{}
	var candidates []Dict
	for i := len(trailers) - 1; i >= 0; i-- {
		s := r.scannerAt(trailers[i] + 7)
		if s.SkipWhiteSpace() != nil {
			continue
		}
		dict, err := s.ReadDict()
		if err == nil {
			candidates = append(candidates, dict)
		}
	}
	for _, number := range slices.Sorted(maps.Keys(direct)) {
		entry := direct[number]
		ref := NewReference(number, entry.Generation)
		s := r.scannerAt(entry.Pos)
		obj, _, err := s.ReadIndirectObject()
		if err != nil {
			continue
		}
		stm, ok := obj.(*Stream)
		if !ok {
			continue
		}
		switch stm.Dict["Type"] {
		case Name("ObjStm"):
			objStms = append(objStms, ref)
		case Name("XRef"):
			candidates = append(candidates, stm.Dict)
		}
	}
	for _, dict := range candidates {
		for _, key := range []Name{"Root", "Encrypt", "Info", "ID"} {
			if _, done := trailer[key]; done {
				continue
			}
			if val, ok := dict[key]; ok {
				trailer[key] = val
			}
		}
	}

	for _, ref := range objStms {
		contents, err := r.loadObjStm(ref)
		if err != nil {
			continue
		}
		for i, number := range contents.numbers {
			if xref[number] != nil {
				continue
			}
			xref[number] = &xRefEntry{InStream: ref, Pos: int64(i)}
		}
	}

	if _, ok := trailer["Root"]; !ok {
		// Search for the document catalog.
		r.xref = xref
		for _, number := range slices.Sorted(maps.Keys(xref)) {
			ref := NewReference(number, xref[number].Generation)
			obj, err := r.Get(ref)
			if err != nil {
				continue
			}
			if dict, ok := obj.(Dict); ok && dict["Type"] == Name("Catalog") {
				trailer["Root"] = ref
				break
			}
		}
	}

	return xref, trailer, nil
}
