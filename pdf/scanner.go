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
	"strconv"
)

const scannerBufSize = 1024

// scanner reads PDF objects from a byte stream.
type scanner struct {
	r         io.Reader
	buf       []byte
	used, pos int
	total     int64 // number of bytes discarded from buf so far

	// base is the file offset corresponding to the start of r.
	base int64

	// ra gives random access to the whole file, for stream data.  This is
	// nil when reading from inside an object stream.
	ra io.ReaderAt

	getInt func(Object) (Integer, error)

	// findEnd locates the "endstream" keyword when a stream has an invalid
	// /Length.  It returns the file offset of the keyword.
	findEnd func(start int64) (int64, error)

	enc     *encryptInfo
	special map[Reference]bool
	ref     Reference // the indirect object currently being read
}

func newScanner(r io.Reader, base int64, getInt func(Object) (Integer, error)) *scanner {
	return &scanner{
		r:      r,
		buf:    make([]byte, scannerBufSize),
		base:   base,
		getInt: getInt,
	}
}

// currentPos returns the file offset of the next byte to be read.
func (s *scanner) currentPos() int64 {
	return s.base + s.bytesRead()
}

// bytesRead returns the number of bytes consumed since the start of r.
func (s *scanner) bytesRead() int64 {
	return s.total + int64(s.pos)
}

// ReadIndirectObject reads an object of the form "n g obj ... endobj".
func (s *scanner) ReadIndirectObject() (Object, Reference, error) {
	// Some files point the xref entries at the end of the previous line.
	// Try to fix this up by skipping any leading white space.
	err := s.SkipWhiteSpace()
	if err != nil {
		return nil, 0, err
	}

	number, err := s.ReadInteger()
	if err != nil {
		return nil, 0, err
	}
	err = s.SkipWhiteSpace()
	if err != nil {
		return nil, 0, err
	}
	generation, err := s.ReadInteger()
	if err != nil {
		return nil, 0, err
	}
	if number < 0 || number > 1<<31 || generation < 0 || generation > 65535 {
		return nil, 0, &MalformedFileError{
			Pos: s.currentPos(),
			Err: fmt.Errorf("invalid object number %d %d", number, generation),
		}
	}
	ref := NewReference(uint32(number), uint16(generation))

	err = s.SkipWhiteSpace()
	if err != nil {
		return nil, 0, err
	}
	err = s.SkipString("obj")
	if err != nil {
		return nil, 0, err
	}
	err = s.SkipWhiteSpace()
	if err != nil {
		return nil, 0, err
	}

	s.ref = ref
	obj, err := s.ReadObject()
	if err != nil {
		return nil, 0, err
	}
	err = s.SkipWhiteSpace()
	if err != nil {
		return nil, 0, err
	}

	// Many files omit the "endobj" or have garbage after the object.  Since
	// the object itself was read successfully, we don't check.

	return obj, ref, nil
}

// ReadObject reads one direct object or a reference.
func (s *scanner) ReadObject() (Object, error) {
	err := s.SkipWhiteSpace()
	if err != nil {
		return nil, err
	}

	buf, err := s.Peek(5) // len("false") == 5
	if err != nil {
		return nil, err
	}
	if len(buf) == 0 {
		return nil, &MalformedFileError{Pos: s.currentPos(), Err: io.ErrUnexpectedEOF}
	}

	switch {
	case bytes.HasPrefix(buf, []byte("null")):
		s.pos += 4
		return nil, nil
	case bytes.HasPrefix(buf, []byte("true")):
		s.pos += 4
		return Bool(true), nil
	case bytes.HasPrefix(buf, []byte("false")):
		s.pos += 5
		return Bool(false), nil
	case buf[0] == '/':
		return s.ReadName()
	case buf[0] >= '0' && buf[0] <= '9', buf[0] == '+', buf[0] == '-', buf[0] == '.':
		x, err := s.ReadNumber()
		if err != nil {
			return nil, err
		}
		if a, isInt := x.(Integer); isInt {
			if ref, isRef := s.tryReference(a); isRef {
				return ref, nil
			}
		}
		return x, nil
	case bytes.HasPrefix(buf, []byte("<<")):
		dict, err := s.ReadDict()
		if err != nil {
			return nil, err
		}

		// check whether this is the start of a stream
		err = s.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}
		buf, err = s.Peek(6) // len("stream") == 6
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(buf, []byte("stream")) {
			return dict, nil
		}
		return s.ReadStreamData(dict)
	case buf[0] == '(':
		s.pos++
		str, err := s.ReadQuotedString()
		if err != nil {
			return nil, err
		}
		return s.decryptString(str)
	case buf[0] == '<':
		s.pos++
		str, err := s.ReadHexString()
		if err != nil {
			return nil, err
		}
		return s.decryptString(str)
	case buf[0] == '[':
		s.pos++
		return s.ReadArray()
	}
	return nil, &MalformedFileError{
		Pos: s.currentPos(),
		Err: fmt.Errorf("unexpected input %q", buf),
	}
}

// tryReference checks whether the integer a just read is the start of a
// reference "a b R".  If so, the remaining part is consumed.
func (s *scanner) tryReference(a Integer) (Reference, bool) {
	if a < 0 || a > 1<<31 {
		return 0, false
	}
	buf, _ := s.Peek(32)
	i := 0
	skipWS := func() bool {
		start := i
		for i < len(buf) && isSpace[buf[i]] {
			i++
		}
		return i > start
	}
	if !skipWS() {
		return 0, false
	}
	start := i
	for i < len(buf) && buf[i] >= '0' && buf[i] <= '9' {
		i++
	}
	if i == start || i-start > 5 {
		return 0, false
	}
	b, _ := strconv.Atoi(string(buf[start:i]))
	if b > 65535 {
		return 0, false
	}
	if !skipWS() {
		return 0, false
	}
	if i >= len(buf) || buf[i] != 'R' {
		return 0, false
	}
	i++
	if i < len(buf) && !isSpace[buf[i]] && !isDelimiter[buf[i]] {
		return 0, false
	}
	s.pos += i
	return NewReference(uint32(a), uint16(b)), true
}

// ReadInteger reads an integer.
func (s *scanner) ReadInteger() (Integer, error) {
	first := true
	var res []byte
	err := s.ScanBytes(func(c byte) bool {
		if first && (c == '+' || c == '-') {
			res = append(res, c)
		} else if c >= '0' && c <= '9' {
			res = append(res, c)
		} else {
			return false
		}
		first = false
		return true
	})
	if err != nil {
		return 0, err
	}

	x, err := strconv.ParseInt(string(res), 10, 64)
	if err != nil {
		return 0, &MalformedFileError{
			Pos: s.currentPos(),
			Err: err,
		}
	}
	return Integer(x), nil
}

// ReadNumber reads an integer or real number.
func (s *scanner) ReadNumber() (Object, error) {
	hasDot := false
	first := true
	var res []byte
	err := s.ScanBytes(func(c byte) bool {
		if !hasDot && c == '.' {
			hasDot = true
			res = append(res, c)
		} else if first && (c == '+' || c == '-') {
			res = append(res, c)
		} else if c >= '0' && c <= '9' {
			res = append(res, c)
		} else if !first && (c == '-' || c == '+') {
			// some writers emit things like "0.00-12"; ignore the junk
		} else {
			return false
		}
		first = false
		return true
	})
	if err != nil {
		return nil, err
	}

	if hasDot {
		if bytes.Equal(res, []byte(".")) || bytes.HasSuffix(res, []byte("-.")) {
			return Real(0), nil
		}
		x, err := strconv.ParseFloat(string(res), 64)
		if err != nil {
			return nil, &MalformedFileError{Pos: s.currentPos(), Err: err}
		}
		return Real(x), nil
	}

	x, err := strconv.ParseInt(string(res), 10, 64)
	if err != nil {
		return nil, &MalformedFileError{Pos: s.currentPos(), Err: err}
	}
	return Integer(x), nil
}

// ReadQuotedString reads a ()-delimited string, starting after the opening
// bracket.
func (s *scanner) ReadQuotedString() (String, error) {
	res := []byte{}
	parentCount := 0
	escape := false
	ignoreLF := false
	isOctal := 0
	octalVal := byte(0)
	done := false
	err := s.ScanBytes(func(c byte) bool {
		if ignoreLF {
			ignoreLF = false
			if c == '\n' {
				return true
			}
		}
		if isOctal > 0 {
			if c >= '0' && c <= '7' {
				octalVal = octalVal*8 + (c - '0')
				isOctal--
				if isOctal == 0 {
					res = append(res, octalVal)
				}
				return true
			}
			// short octal escape
			res = append(res, octalVal)
			isOctal = 0
		}
		if escape {
			escape = false
			switch c {
			case '\n':
				return true
			case '\r':
				ignoreLF = true
				return true
			case 'n':
				c = '\n'
			case 'r':
				c = '\r'
			case 't':
				c = '\t'
			case 'b':
				c = '\b'
			case 'f':
				c = '\f'
			}
			if c >= '0' && c <= '7' {
				isOctal = 2
				octalVal = c - '0'
				return true
			}
		} else if c == '\\' {
			escape = true
			return true
		} else if c == '(' {
			parentCount++
		} else if c == ')' {
			if parentCount == 0 {
				done = true
				return false
			}
			parentCount--
		} else if c == '\r' {
			c = '\n'
			ignoreLF = true
		}
		res = append(res, c)
		return true
	})
	if err != nil {
		return nil, err
	}
	if isOctal > 0 {
		res = append(res, octalVal)
	}
	if !done {
		return nil, &MalformedFileError{Pos: s.currentPos(), Err: io.ErrUnexpectedEOF}
	}

	s.pos++ // we have already seen the closing ")".
	return String(res), nil
}

// ReadHexString reads a <>-delimited string, starting after the opening
// angled bracket.
func (s *scanner) ReadHexString() (String, error) {
	res := []byte{}
	var hexVal byte
	first := true
	err := s.ScanBytes(func(c byte) bool {
		d, ok := hexDigit(c)
		if !ok {
			return c != '>'
		}
		if first {
			hexVal = d
		} else {
			res = append(res, 16*hexVal+d)
		}
		first = !first
		return true
	})
	if err != nil {
		return nil, err
	}
	if !first {
		res = append(res, 16*hexVal)
	}

	// If we reach the end of the file, the trailing ">" will be missing.
	s.SkipString(">")

	return String(res), nil
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}

// ReadName reads a PDF name object.
func (s *scanner) ReadName() (Name, error) {
	err := s.SkipString("/")
	if err != nil {
		return "", err
	}

	var res []byte
	err = s.ScanBytes(func(c byte) bool {
		if isSpace[c] || isDelimiter[c] {
			return false
		}
		res = append(res, c)
		return true
	})
	if err != nil {
		return "", err
	}

	// decode #xx escapes
	out := res[:0]
	for i := 0; i < len(res); i++ {
		if res[i] == '#' && i+2 < len(res) {
			hi, ok1 := hexDigit(res[i+1])
			lo, ok2 := hexDigit(res[i+2])
			if ok1 && ok2 {
				out = append(out, hi<<4|lo)
				i += 2
				continue
			}
		}
		out = append(out, res[i])
	}

	return Name(out), nil
}

// ReadArray reads an array, starting after the opening "[".
func (s *scanner) ReadArray() (Array, error) {
	array := Array{}
	for {
		err := s.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}

		buf, err := s.Peek(1)
		if err != nil {
			return nil, err
		}
		if len(buf) == 0 {
			return nil, &MalformedFileError{Pos: s.currentPos(), Err: io.ErrUnexpectedEOF}
		}
		if buf[0] == ']' {
			break
		}

		obj, err := s.ReadObject()
		if err != nil {
			return nil, err
		}
		array = append(array, obj)
	}
	s.pos++ // we have already seen the closing "]"

	return array, nil
}

// ReadDict reads a PDF dictionary.
func (s *scanner) ReadDict() (Dict, error) {
	err := s.SkipString("<<")
	if err != nil {
		return nil, err
	}

	dict := make(Dict)
	for {
		err = s.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}
		buf, err := s.Peek(2)
		if err != nil {
			return nil, err
		}
		if len(buf) == 0 {
			return nil, &MalformedFileError{Pos: s.currentPos(), Err: io.ErrUnexpectedEOF}
		}
		if buf[0] != '/' {
			break
		}

		key, err := s.ReadName()
		if err != nil {
			return nil, err
		}

		val, err := s.ReadObject()
		if err != nil {
			return nil, err
		}
		if val != nil {
			dict[key] = val
		}
	}
	err = s.SkipString(">>")
	if err != nil {
		return nil, err
	}

	return dict, nil
}

// ReadStreamData reads the data of a PDF Stream, starting after the Dict.
func (s *scanner) ReadStreamData(dict Dict) (*Stream, error) {
	if s.ra == nil {
		return nil, &MalformedFileError{
			Pos: s.currentPos(),
			Err: errors.New("streams not allowed inside object streams"),
		}
	}

	err := s.SkipString("stream")
	if err != nil {
		return nil, err
	}

	buf, err := s.Peek(2)
	if err != nil {
		return nil, err
	}
	switch {
	case len(buf) >= 2 && buf[0] == '\r' && buf[1] == '\n':
		s.pos += 2
	case len(buf) >= 1 && (buf[0] == '\n' || buf[0] == '\r'):
		s.pos++
	}

	start := s.currentPos()
	length, err := s.getInt(dict["Length"])
	if err == nil && length >= 0 {
		err = s.Discard(int64(length))
		if err == nil {
			err = s.SkipWhiteSpace()
		}
		if err == nil {
			err = s.SkipString("endstream")
		}
	}
	if err != nil || length < 0 {
		// The /Length is missing or wrong, try to locate "endstream" instead.
		if s.findEnd == nil {
			return nil, &MalformedFileError{
				Pos: start,
				Err: errors.New("invalid stream length"),
			}
		}
		end, err := s.findEnd(start)
		if err != nil {
			return nil, err
		}
		length = Integer(end - start)
		for length > 0 {
			// strip the end-of-line marker before "endstream"
			var c [1]byte
			_, err := s.ra.ReadAt(c[:], start+int64(length)-1)
			if err != nil || (c[0] != '\n' && c[0] != '\r') {
				break
			}
			length--
		}
		*s = *s.reposition(end + int64(len("endstream")))
	}

	var data io.Reader = io.NewSectionReader(s.ra, start, int64(length))
	if s.needsDecryption(dict) {
		data, err = s.enc.DecryptStream(s.ref, data)
		if err != nil {
			return nil, err
		}
	}

	return &Stream{
		Dict: dict,
		R:    data,
	}, nil
}

// reposition returns a copy of s which reads from the given file offset.
func (s *scanner) reposition(pos int64) *scanner {
	size := int64(1) << 62
	if sr, ok := s.ra.(interface{ Size() int64 }); ok {
		size = sr.Size()
	}
	res := newScanner(io.NewSectionReader(s.ra, pos, size-pos), pos, s.getInt)
	res.ra = s.ra
	res.findEnd = s.findEnd
	res.enc = s.enc
	res.special = s.special
	res.ref = s.ref
	return res
}

func (s *scanner) decryptString(str String) (Object, error) {
	if s.enc == nil || s.special[s.ref] {
		return str, nil
	}
	res, err := s.enc.DecryptBytes(s.ref, []byte(str))
	if err != nil {
		return nil, &MalformedFileError{Pos: s.currentPos(), Err: err}
	}
	return String(res), nil
}

func (s *scanner) needsDecryption(dict Dict) bool {
	if s.enc == nil || s.special[s.ref] {
		return false
	}
	if dict["Type"] == Name("XRef") {
		return false
	}
	if dict["Type"] == Name("Metadata") && !s.enc.encryptMetadata {
		return false
	}
	switch f := dict["Filter"].(type) {
	case Name:
		return f != "Crypt"
	case Array:
		return len(f) == 0 || f[0] != Name("Crypt")
	}
	return true
}

// readHeaderVersion reads the "%PDF-x.y" header at the start of a file.
// Up to 1024 bytes of garbage before the header are tolerated.
func (s *scanner) readHeaderVersion() (Version, int64, error) {
	buf, err := s.Peek(scannerBufSize)
	if err != nil {
		return 0, 0, err
	}

	idx := bytes.Index(buf, []byte("%PDF-"))
	if idx < 0 || idx+8 > len(buf) {
		return 0, 0, &MalformedFileError{
			Err: errors.New("PDF header not found"),
		}
	}
	s.pos += idx

	version, err := ParseVersion(string(buf[idx+5 : idx+8]))
	if err != nil {
		// Unknown versions are common in the wild; the rest of the file
		// decides whether it can be read.
		version = V1_7
	}

	return version, int64(idx), nil
}

// refill discards the read part of the buffer and reads as much new data as
// possible.  Once the end of file is reached, s.used will be smaller than the
// buffer size, but no error will be returned.
func (s *scanner) refill() error {
	s.total += int64(s.pos)
	copy(s.buf, s.buf[s.pos:s.used])
	s.used -= s.pos
	s.pos = 0

	n, err := io.ReadFull(s.r, s.buf[s.used:])
	s.used += n

	if err == io.ErrUnexpectedEOF || err == io.EOF {
		err = nil
	}
	return err
}

// Peek returns a view of the next n bytes of input.  The function panics, if n
// is larger than scannerBufSize.  On EOF, short buffers without an error code
// will be returned.
func (s *scanner) Peek(n int) ([]byte, error) {
	if n > scannerBufSize {
		panic("peek window too large")
	}

	var err error
	if s.pos+n > s.used {
		err = s.refill()
	}

	if s.pos+n > s.used {
		return s.buf[s.pos:s.used], err
	}

	return s.buf[s.pos : s.pos+n], nil
}

// Discard skips the next n bytes of input.
func (s *scanner) Discard(n int64) error {
	if n < 0 {
		panic("negative offset for Discard()")
	}
	unread := int64(s.used - s.pos)
	if n <= unread {
		s.pos += int(n)
		return nil
	}

	n -= unread
	s.total += int64(s.used)
	s.pos = 0
	s.used = 0

	m, err := io.CopyN(io.Discard, s.r, n)
	s.total += m
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// ScanBytes calls accept for each input byte, until accept returns false or
// the end of input is reached.  The byte for which accept returned false is
// not consumed.
func (s *scanner) ScanBytes(accept func(c byte) bool) error {
	for {
		for s.pos < s.used {
			if !accept(s.buf[s.pos]) {
				return nil
			}
			s.pos++
		}
		err := s.refill()
		if err != nil {
			return err
		}
		if s.used == 0 {
			return nil
		}
	}
}

// SkipWhiteSpace skips white space and comments.
func (s *scanner) SkipWhiteSpace() error {
	isComment := false
	return s.ScanBytes(func(c byte) bool {
		if isComment {
			if c == '\r' || c == '\n' {
				isComment = false
			}
		} else if c == '%' {
			isComment = true
		} else {
			return isSpace[c]
		}
		return true
	})
}

// SkipString consumes pat, which must be the next part of the input.
func (s *scanner) SkipString(pat string) error {
	n := len(pat)
	buf, err := s.Peek(n)
	if err != nil {
		return err
	}
	if string(buf) != pat {
		return &MalformedFileError{
			Pos: s.currentPos(),
			Err: fmt.Errorf("expected %q but found %q", pat, string(buf)),
		}
	}
	s.pos += n
	return nil
}
