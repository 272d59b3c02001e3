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
	"strconv"
	"strings"
)

// MalformedFileError indicates that a PDF file could not be parsed.
type MalformedFileError struct {
	Err error
	Pos int64
	Loc []string
}

func (err *MalformedFileError) Error() string {
	parts := []string{"not a valid PDF file"}
	if len(err.Loc) > 0 {
		parts = append(parts, strings.Join(err.Loc, ": "))
	}
	if err.Err != nil {
		parts = append(parts, err.Err.Error())
	}
	msg := strings.Join(parts, ": ")
	if err.Pos > 0 {
		msg += " (at byte " + strconv.FormatInt(err.Pos, 10) + ")"
	}
	return msg
}

func (err *MalformedFileError) Unwrap() error {
	return err.Err
}

// Wrap adds location information to an error.  If err is a
// *MalformedFileError, the location is prepended to its Loc field.
// Otherwise, the error is returned with the location prefixed to its
// message.
func Wrap(err error, loc string) error {
	if err == nil {
		return nil
	}
	var mf *MalformedFileError
	if errors.As(err, &mf) {
		return &MalformedFileError{
			Err: mf.Err,
			Pos: mf.Pos,
			Loc: append([]string{loc}, mf.Loc...),
		}
	}
	return fmt.Errorf("%s: %w", loc, err)
}

// AuthenticationError indicates that none of the passwords tried could
// unlock the document.
type AuthenticationError struct {
	ID []byte
}

func (err *AuthenticationError) Error() string {
	return fmt.Sprintf("cannot authenticate for file ID %x", err.ID)
}

var (
	errCorrupted       = errors.New("corrupted ciphertext")
	errInvalidPassword = errors.New("invalid password")
	errVersion         = errors.New("unsupported PDF version")
	errNoRectangle     = errors.New("not a valid PDF rectangle")
)
