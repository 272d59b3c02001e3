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
	"errors"
	"fmt"

	"seehuhn.de/go/geom/rect"
)

// Getter gives read access to the objects of a PDF file.
type Getter interface {
	GetMeta() *MetaInfo
	Get(Reference) (Object, error)
}

// MetaInfo represents the meta information of a PDF file.
type MetaInfo struct {
	// Version is the PDF version used in this file.
	Version Version

	// ID is the file identifier.  This is either a slice of two byte slices
	// (the original ID of the file, and the ID of the current version), or
	// nil if the file does not specify an ID.
	ID [][]byte

	// Catalog is the document catalog dictionary.
	Catalog Dict

	// Info is the document information dictionary, or nil if the file
	// has none.
	Info Dict

	// Trailer is the trailer dictionary for the file, excluding the
	// entries related to the cross-reference table.
	Trailer Dict
}

// Resolve resolves references to indirect objects.
//
// If obj is a [Reference], the function reads the corresponding object from
// the file and returns the result.  If obj is not a [Reference], it is
// returned unchanged.  Chains of references are followed until a
// non-reference object is found.
func Resolve(r Getter, obj Object) (Object, error) {
	origObj := obj

	count := 0
	for {
		ref, isReference := obj.(Reference)
		if !isReference {
			break
		}
		count++
		if count > 16 {
			return nil, &MalformedFileError{
				Err: errors.New("too many levels of indirection"),
				Loc: []string{"object " + origObj.(Reference).String()},
			}
		}

		var err error
		obj, err = r.Get(ref)
		if err != nil {
			return nil, err
		}
	}

	return obj, nil
}

func resolveAndCast[T Object](r Getter, obj Object) (x T, err error) {
	obj, err = Resolve(r, obj)
	if err != nil {
		return x, err
	}

	if obj == nil {
		return x, nil
	}

	var isCorrectType bool
	x, isCorrectType = obj.(T)
	if isCorrectType {
		return x, nil
	}

	return x, &MalformedFileError{
		Err: fmt.Errorf("expected %T but got %T", x, obj),
	}
}

// Helper functions for getting objects of a specific type.  Each of these
// functions calls Resolve on the object before attempting to convert it to the
// desired type.  If the object is `null`, a zero object is returned without
// error.  If the object is of the wrong type, an error is returned.
var (
	GetArray  = resolveAndCast[Array]
	GetBool   = resolveAndCast[Bool]
	GetDict   = resolveAndCast[Dict]
	GetInt    = resolveAndCast[Integer]
	GetName   = resolveAndCast[Name]
	GetStream = resolveAndCast[*Stream]
	GetString = resolveAndCast[String]
)

// GetNumber resolves references to indirect objects and makes sure the
// resulting object is an Integer or a Real.
func GetNumber(r Getter, obj Object) (float64, error) {
	obj, err := Resolve(r, obj)
	if err != nil {
		return 0, err
	}
	switch x := obj.(type) {
	case Integer:
		return float64(x), nil
	case Real:
		return float64(x), nil
	default:
		return 0, &MalformedFileError{
			Err: fmt.Errorf("expected number but got %T", obj),
		}
	}
}

// GetRectangle resolves references to indirect objects and makes sure the
// resulting object is a PDF rectangle object.  The corners are normalised
// so that LLx <= URx and LLy <= URy.  If the object is null, nil is
// returned.
func GetRectangle(r Getter, obj Object) (*rect.Rect, error) {
	a, err := GetArray(r, obj)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, nil
	}
	if len(a) != 4 {
		return nil, &MalformedFileError{Err: errNoRectangle}
	}

	var x [4]float64
	for i, obj := range a {
		x[i], err = GetNumber(r, obj)
		if err != nil {
			return nil, &MalformedFileError{Err: errNoRectangle}
		}
	}
	return &rect.Rect{
		LLx: min(x[0], x[2]),
		LLy: min(x[1], x[3]),
		URx: max(x[0], x[2]),
		URy: max(x[1], x[3]),
	}, nil
}

// RectangleObject converts a rectangle to a PDF array.
func RectangleObject(r rect.Rect) Array {
	return Array{number(r.LLx), number(r.LLy), number(r.URx), number(r.URy)}
}

func number(x float64) Object {
	if i := Integer(x); float64(i) == x {
		return i
	}
	return Real(x)
}
