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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testScanner(contents string) *scanner {
	r := strings.NewReader(contents)
	s := newScanner(r, 0, func(obj Object) (Integer, error) {
		x, ok := obj.(Integer)
		if !ok {
			return 0, errors.New("not an integer")
		}
		return x, nil
	})
	s.ra = strings.NewReader(contents)
	return s
}

func TestRefill(t *testing.T) {
	n := scannerBufSize + 2
	s := newScanner(bytes.NewReader(make([]byte, n)), 0, nil)

	for _, inc := range []int{0, 1, scannerBufSize, 1} {
		s.pos += inc
		err := s.refill()
		if err != nil {
			t.Fatal(err)
		}
		consumed := int(s.bytesRead())
		expectUsed := min(scannerBufSize, n-consumed)
		if s.pos != 0 || s.used != expectUsed {
			t.Errorf("%d: s.pos = %d, s.used = %d", consumed, s.pos, s.used)
		}
	}
}

func TestReadObject(t *testing.T) {
	cases := []struct {
		in  string
		val Object
		ok  bool
	}{
		{"", nil, false},
		{"null", nil, true},

		{"true", Bool(true), true},
		{"false", Bool(false), true},
		{"TRUE", nil, false},
		{"fals", nil, false},
		{"abc", nil, false},

		{"0", Integer(0), true},
		{"+1", Integer(1), true},
		{"-12", Integer(-12), true},
		{"999999999999999999", Integer(999999999999999999), true},

		{".5", Real(.5), true},
		{"-.5", Real(-.5), true},
		{"+0.5", Real(.5), true},
		{"4.", Real(4), true},

		{"/a", Name("a"), true},
		{"/A;Name_With-Various***Characters?", Name("A;Name_With-Various***Characters?"), true},
		{"/1.2", Name("1.2"), true},
		{"/A#42", Name("AB"), true},
		{"/F#23#20minor", Name("F# minor"), true},
		{"/ab#4", Name("ab#4"), true},
		{"/", Name(""), true},

		{"()", String{}, true},
		{"(hello)", String("hello"), true},
		{"(he(ll)o)", String("he(ll)o"), true},
		{`(he\)ll\(o)`, String("he)ll(o"), true},
		{"(hello\n)", String("hello\n"), true},
		{"(hello\r\n)", String("hello\n"), true},
		{"(hell\\\no)", String("hello"), true},
		{"(hell\\\r\no)", String("hello"), true},
		{`(h\145llo)`, String("hello"), true},
		{`(\0612)`, String("12"), true},
		{`(\5x)`, String("\005x"), true},
		{"(unterminated", nil, false},

		{"<>", String{}, true},
		{"<68656c6c6f>", String("hello"), true},
		{"<68 65 6C 6C 6F>", String("hello"), true},
		{"<68656C7>", String("help"), true},

		{"[1 2 3]", Array{Integer(1), Integer(2), Integer(3)}, true},
		{"[1 2 3 R 4]", Array{Integer(1), NewReference(2, 3), Integer(4)}, true},
		{"[1 2 R]", Array{NewReference(1, 2)}, true},
		{"[1 2 Rx]", nil, false},
		{"[null]", Array{nil}, true},

		{"<< /key 12 /val /23 >>", Dict{
			"key": Integer(12),
			"val": Name("23"),
		}, true},
		{"<< /key1 1 /key2 2 0 R /key3 null >>", Dict{
			"key1": Integer(1),
			"key2": NewReference(2, 0),
		}, true},
		{"<</A<</B[(x)]>>>>", Dict{
			"A": Dict{"B": Array{String("x")}},
		}, true},
	}

	for _, test := range cases {
		for _, suffix := range []string{"", "\n"} {
			body := test.in + suffix
			s := testScanner(body)

			val, err := s.ReadObject()
			if test.ok {
				if err != nil {
					t.Errorf("%q: unexpected error %q", body, err)
					continue
				}
				if d := cmp.Diff(test.val, val); d != "" {
					t.Errorf("%q: (-want +got):\n%s", body, d)
				}
				continue
			}

			var mf *MalformedFileError
			if err == nil {
				t.Errorf("%q: missing error", body)
			} else if !errors.As(err, &mf) {
				t.Errorf("%q: wrong error type %T", body, err)
			}
		}
	}
}

func TestReadStream(t *testing.T) {
	cases := []struct {
		in   string
		data string
	}{
		{"<< /Length 5 >>\nstream\nhello\nendstream", "hello"},
		{"<< /Length 5 >>\nstream\r\nhello\r\nendstream", "hello"},
		{"<< /Length 5 >> stream\nhelloendstream", "hello"},
		{"<< >>\nstream\nhello\nendstream", "hello"},
		{"<< /Length 100 >>\nstream\nhello\nendstream", "hello"},
		{"<< /Length 2 >>\nstream\nhello\r\nendstream", "hello"},
	}
	for _, test := range cases {
		s := testScanner(test.in)
		s.findEnd = func(start int64) (int64, error) {
			idx := strings.Index(test.in[start:], "endstream")
			if idx < 0 {
				return 0, io.ErrUnexpectedEOF
			}
			return start + int64(idx), nil
		}

		obj, err := s.ReadObject()
		if err != nil {
			t.Errorf("%q: %s", test.in, err)
			continue
		}
		stm, ok := obj.(*Stream)
		if !ok {
			t.Errorf("%q: wrong type %T", test.in, obj)
			continue
		}
		data, err := io.ReadAll(stm.R)
		if err != nil {
			t.Errorf("%q: %s", test.in, err)
			continue
		}
		if string(data) != test.data {
			t.Errorf("%q: wrong data %q", test.in, data)
		}
	}
}

func TestReadIndirectObject(t *testing.T) {
	s := testScanner("\n12 3 obj\n<</Type/Test>>\nendobj\n")
	obj, ref, err := s.ReadIndirectObject()
	if err != nil {
		t.Fatal(err)
	}
	if ref != NewReference(12, 3) {
		t.Errorf("wrong reference %s", ref)
	}
	if d := cmp.Diff(Dict{"Type": Name("Test")}, obj); d != "" {
		t.Errorf("(-want +got):\n%s", d)
	}

	for _, in := range []string{"12 3 xxx 7", "12 obj 7", "-1 0 obj 7"} {
		s := testScanner(in)
		_, _, err := s.ReadIndirectObject()
		if err == nil {
			t.Errorf("%q: missing error", in)
		}
	}
}

func TestSkipWhiteSpace(t *testing.T) {
	cases := []string{
		"", " ", "\t\r\n", "% comment\n", "  % comment\r\n  ",
	}
	for _, in := range cases {
		s := testScanner(in + "x")
		err := s.SkipWhiteSpace()
		if err != nil {
			t.Fatal(err)
		}
		if got := s.bytesRead(); got != int64(len(in)) {
			t.Errorf("%q: skipped %d bytes, expected %d", in, got, len(in))
		}
	}
}

func TestHeaderVersion(t *testing.T) {
	cases := []struct {
		in   string
		v    Version
		offs int64
		ok   bool
	}{
		{"%PDF-1.4\n", V1_4, 0, true},
		{"%PDF-2.0\r\n", V2_0, 0, true},
		{"junk\n%PDF-1.7\n", V1_7, 5, true},
		{"%PDF-9.9\n", V1_7, 0, true},
		{"%!PS-Adobe-3.0\n", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, test := range cases {
		s := testScanner(test.in)
		v, offs, err := s.readHeaderVersion()
		if (err == nil) != test.ok {
			t.Errorf("%q: unexpected error %v", test.in, err)
			continue
		}
		if !test.ok {
			continue
		}
		if v != test.v || offs != test.offs {
			t.Errorf("%q: got %s at %d, expected %s at %d",
				test.in, v, offs, test.v, test.offs)
		}
	}
}
