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
	"io"
	"os"
)

// Reader represents a PDF file opened for reading.  Use [Open] or
// [NewReader] to create a new Reader.
//
// A Reader must not be used concurrently from different goroutines.
type Reader struct {
	meta MetaInfo

	size int64
	r    io.ReaderAt
	file *io.SectionReader

	xref     map[uint32]*xRefEntry
	repaired bool

	enc     *encryptInfo
	special map[Reference]bool

	cache   *lruCache[Reference, Object]
	objStms *lruCache[Reference, *objStm]
	level   int
}

// ReaderOptions provides additional information for opening a PDF file.
type ReaderOptions struct {
	// ReadPassword is used to obtain the password for encrypted files.
	// The empty password is always tried first.  If this is not enough,
	// ReadPassword is called with try = 0, 1, 2, ... until either the
	// returned password is correct, or the function returns the empty
	// string.  In the latter case, an [*AuthenticationError] is returned.
	ReadPassword func(ID []byte, try int) string
}

// Open opens the named PDF file for reading.  After use, [Reader.Close]
// must be called to close the underlying file.
func Open(fname string, opt *ReaderOptions) (*Reader, error) {
	fd, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	fi, err := fd.Stat()
	if err != nil {
		fd.Close()
		return nil, err
	}
	r, err := NewReader(fd, fi.Size(), opt)
	if err != nil {
		fd.Close()
		return nil, err
	}
	return r, nil
}

// NewReader creates a new Reader which reads the PDF file from data.
// If data implements [io.Closer], [Reader.Close] closes data.
func NewReader(data io.ReaderAt, size int64, opt *ReaderOptions) (*Reader, error) {
	if opt == nil {
		opt = &ReaderOptions{}
	}

	r := &Reader{
		size:    size,
		r:       data,
		file:    io.NewSectionReader(data, 0, size),
		special: make(map[Reference]bool),
	}
	r.clearCaches()

	s := r.scannerAt(0)
	version, _, err := s.readHeaderVersion()
	if err != nil {
		return nil, err
	}
	r.meta.Version = version

	xref, trailer, err := r.readXRef()
	if err != nil {
		xref, trailer, err = r.repair()
		if err != nil {
			return nil, err
		}
	}
	r.xref = xref

	err = r.setTrailer(trailer, opt)
	if err != nil {
		return nil, err
	}

	catalog, err := GetDict(r, trailer["Root"])
	if (err != nil || catalog == nil) && !r.repaired {
		var mf *MalformedFileError
		if err != nil && !errors.As(err, &mf) {
			return nil, err
		}
		xref, trailer, err = r.repair()
		if err != nil {
			return nil, err
		}
		r.xref = xref
		err = r.setTrailer(trailer, opt)
		if err != nil {
			return nil, err
		}
		catalog, err = GetDict(r, trailer["Root"])
	}
	if err != nil {
		return nil, Wrap(err, "document catalog")
	}
	if catalog == nil {
		return nil, &MalformedFileError{Err: errors.New("document catalog not found")}
	}
	r.meta.Catalog = catalog

	// The catalog /Version entry can only increase the version.
	if name, ok := catalog["Version"].(Name); ok {
		v, err := ParseVersion(string(name))
		if err == nil && v > r.meta.Version {
			r.meta.Version = v
		}
	}

	info, err := GetDict(r, trailer["Info"])
	if err == nil {
		r.meta.Info = info
	}

	return r, nil
}

// repair rebuilds the xref information from the objects found in the file.
func (r *Reader) repair() (map[uint32]*xRefEntry, Dict, error) {
	r.repaired = true
	xref, trailer, err := r.reconstructXRef()
	r.clearCaches()
	return xref, trailer, err
}

func (r *Reader) setTrailer(trailer Dict, opt *ReaderOptions) error {
	r.meta.Trailer = trailer
	r.meta.ID = nil
	if ID, ok := trailer["ID"].(Array); ok && len(ID) >= 2 {
		for _, obj := range ID[:2] {
			s, ok := obj.(String)
			if !ok {
				break
			}
			r.meta.ID = append(r.meta.ID, []byte(s))
		}
		if len(r.meta.ID) != 2 {
			r.meta.ID = nil
		}
	}

	r.enc = nil
	if encObj, ok := trailer["Encrypt"]; ok {
		if ref, ok := encObj.(Reference); ok {
			r.special[ref] = true
		}
		enc, err := r.parseEncryptDict(encObj, opt.ReadPassword)
		if err != nil {
			return err
		}
		r.enc = enc
		// Objects read so far were not decrypted.
		r.clearCaches()
	}
	return nil
}

func (r *Reader) clearCaches() {
	r.cache = newCache[Reference, Object](objectCacheSize)
	r.objStms = newCache[Reference, *objStm](objStmCacheSize)
}

const (
	objectCacheSize = 1000
	objStmCacheSize = 10
)

// Close closes the file underlying the reader.  This call only has an effect
// if the io.ReaderAt passed to NewReader() has a Close() method, or if the
// Reader was created using Open().
func (r *Reader) Close() error {
	if closer, ok := r.r.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// GetMeta returns the meta information of the file.
// This implements the [Getter] interface.
func (r *Reader) GetMeta() *MetaInfo {
	return &r.meta
}

// Repaired reports whether the cross-reference information had to be
// reconstructed because the file was damaged.
func (r *Reader) Repaired() bool {
	return r.repaired
}

// Get reads an indirect object from the file.  References to missing or
// free objects yield a nil object and no error.
// This implements the [Getter] interface.
func (r *Reader) Get(ref Reference) (Object, error) {
	if r.xref == nil {
		return nil, &MalformedFileError{
			Err: errors.New("cannot use references while reading xref table"),
		}
	}

	if obj, ok := r.cache.Get(ref); ok {
		return obj, nil
	}

	entry := r.xref[ref.Number()]
	if entry.IsFree() {
		return nil, nil
	}

	var obj Object
	var err error
	if entry.InStream != 0 {
		if ref.Generation() != 0 {
			return nil, nil
		}
		obj, err = r.getFromObjectStream(ref.Number(), entry)
	} else {
		if entry.Generation != ref.Generation() {
			return nil, nil
		}
		var fileRef Reference
		s := r.scannerAt(entry.Pos)
		obj, fileRef, err = s.ReadIndirectObject()
		if err == nil && fileRef != ref {
			err = &MalformedFileError{
				Pos: entry.Pos,
				Err: errors.New("xref corrupted"),
			}
		}
	}
	if err != nil {
		return nil, Wrap(err, "object "+ref.String())
	}

	// Streams contain a reader and cannot be reused.
	if _, isStream := obj.(*Stream); !isStream {
		r.cache.Put(ref, obj)
	}
	return obj, nil
}

// objStm holds the decoded contents of an object stream.
type objStm struct {
	data    []byte
	numbers []uint32
	offsets []int
}

func (r *Reader) loadObjStm(ref Reference) (*objStm, error) {
	if contents, ok := r.objStms.Get(ref); ok {
		return contents, nil
	}

	entry := r.xref[ref.Number()]
	if entry.IsFree() || entry.InStream != 0 {
		return nil, &MalformedFileError{
			Err: errors.New("invalid object stream " + ref.String()),
		}
	}
	s := r.scannerAt(entry.Pos)
	obj, _, err := s.ReadIndirectObject()
	if err != nil {
		return nil, err
	}
	stream, ok := obj.(*Stream)
	if !ok {
		return nil, &MalformedFileError{
			Pos: entry.Pos,
			Err: errors.New("wrong type for object stream"),
		}
	}

	N, ok := stream.Dict["N"].(Integer)
	if !ok || N < 0 || N > 1<<20 {
		return nil, &MalformedFileError{
			Pos: entry.Pos,
			Err: errors.New("no valid /N for ObjStm"),
		}
	}
	first, ok := stream.Dict["First"].(Integer)
	if !ok || first < 0 {
		return nil, &MalformedFileError{
			Pos: entry.Pos,
			Err: errors.New("no valid /First for ObjStm"),
		}
	}

	data, err := stream.Decode(r)
	if err != nil {
		return nil, err
	}
	if int(first) > len(data) {
		return nil, &MalformedFileError{
			Pos: entry.Pos,
			Err: errors.New("ObjStm /First out of range"),
		}
	}

	hs := newScanner(bytes.NewReader(data[:first]), 0, nil)
	contents := &objStm{
		data:    data,
		numbers: make([]uint32, 0, N),
		offsets: make([]int, 0, N),
	}
	for range N {
		err = hs.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}
		no, err := hs.ReadInteger()
		if err != nil {
			return nil, err
		}
		err = hs.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}
		offs, err := hs.ReadInteger()
		if err != nil {
			return nil, err
		}
		if no < 0 || no > 1<<31 || offs < 0 || int(first)+int(offs) > len(data) {
			return nil, &MalformedFileError{
				Pos: entry.Pos,
				Err: errors.New("invalid ObjStm header"),
			}
		}
		contents.numbers = append(contents.numbers, uint32(no))
		contents.offsets = append(contents.offsets, int(first)+int(offs))
	}

	r.objStms.Put(ref, contents)
	return contents, nil
}

func (r *Reader) getFromObjectStream(number uint32, entry *xRefEntry) (Object, error) {
	contents, err := r.loadObjStm(entry.InStream)
	if err != nil {
		return nil, err
	}

	idx := int(entry.Pos)
	if idx < 0 || idx >= len(contents.numbers) || contents.numbers[idx] != number {
		idx = -1
		for i, no := range contents.numbers {
			if no == number {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return nil, &MalformedFileError{
			Err: errors.New("object missing from stream " + entry.InStream.String()),
		}
	}

	s := newScanner(bytes.NewReader(contents.data[contents.offsets[idx]:]), 0, r.safeGetInt)
	return s.ReadObject()
}

// safeGetInt resolves the /Length of a stream.  The depth of nested lookups
// is limited, to avoid infinite recursion on malicious files.
func (r *Reader) safeGetInt(obj Object) (Integer, error) {
	if x, ok := obj.(Integer); ok {
		return x, nil
	}
	if r.level > 2 || r.xref == nil {
		return 0, &MalformedFileError{
			Err: errors.New("cannot resolve stream length"),
		}
	}

	r.level++
	defer func() { r.level-- }()

	resolved, err := Resolve(r, obj)
	if err != nil {
		return 0, err
	}
	x, ok := resolved.(Integer)
	if !ok {
		return 0, &MalformedFileError{Err: errors.New("invalid stream length")}
	}
	return x, nil
}

// findEndstream returns the file offset of the first "endstream" keyword
// after the given position.
func (r *Reader) findEndstream(start int64) (int64, error) {
	const chunkSize = 4096
	pat := []byte("endstream")

	buf := make([]byte, chunkSize)
	pos := start
	for pos < r.size {
		n, err := r.r.ReadAt(buf[:min(int64(chunkSize), r.size-pos)], pos)
		if err != nil && err != io.EOF {
			return 0, err
		}
		if idx := bytes.Index(buf[:n], pat); idx >= 0 {
			return pos + int64(idx), nil
		}
		if int64(n) < int64(len(pat)) {
			break
		}
		pos += int64(n - len(pat) + 1)
	}
	return 0, &MalformedFileError{
		Pos: start,
		Err: errors.New("endstream not found"),
	}
}

func (r *Reader) scannerAt(pos int64) *scanner {
	s := newScanner(io.NewSectionReader(r.r, pos, r.size-pos), pos, r.safeGetInt)
	s.ra = r.file
	s.findEnd = r.findEndstream
	s.enc = r.enc
	s.special = r.special
	return s
}
