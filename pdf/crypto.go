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
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"io"

	"github.com/xdg-go/stringprep"
)

// encryptInfo holds the information needed to decrypt the strings and
// streams of an encrypted file.
type encryptInfo struct {
	sec *stdSecHandler

	strF *cryptFilter // strings
	stmF *cryptFilter // streams

	encryptMetadata bool
}

// parseEncryptDict reads the /Encrypt dictionary of a file and authenticates
// the user.  Only the standard security handler is supported.
func (r *Reader) parseEncryptDict(encObj Object, readPwd func([]byte, int) string) (*encryptInfo, error) {
	enc, err := GetDict(r, encObj)
	if err != nil {
		return nil, err
	}
	if len(r.meta.ID) != 2 {
		return nil, &MalformedFileError{Err: errors.New("found Encrypt but no ID")}
	}

	filter, err := GetName(r, enc["Filter"])
	if err != nil {
		return nil, err
	}
	if filter != "Standard" {
		return nil, &MalformedFileError{
			Err: fmt.Errorf("unsupported security handler %q", filter),
		}
	}

	V, err := GetInt(r, enc["V"])
	if err != nil {
		return nil, err
	}

	res := &encryptInfo{encryptMetadata: true}
	var keyBytes int
	switch V {
	case 1, 2, 3:
		cf := &cryptFilter{Cipher: cipherRC4, Length: 40}
		if V > 1 {
			if length, ok := enc["Length"].(Integer); ok {
				cf.Length = int(length)
			}
			if cf.Length < 40 || cf.Length > 128 || cf.Length%8 != 0 {
				return nil, &MalformedFileError{
					Err: fmt.Errorf("invalid key length %d", cf.Length),
				}
			}
		}
		res.stmF = cf
		res.strF = cf
		keyBytes = cf.Length / 8
	case 4, 5:
		CF, _ := enc["CF"].(Dict)
		if name, ok := enc["StmF"].(Name); ok {
			res.stmF, err = getCryptFilter(name, CF)
			if err != nil {
				return nil, Wrap(err, "StmF")
			}
		}
		if name, ok := enc["StrF"].(Name); ok {
			res.strF, err = getCryptFilter(name, CF)
			if err != nil {
				return nil, Wrap(err, "StrF")
			}
		}
		if emd, ok := enc["EncryptMetadata"].(Bool); ok {
			res.encryptMetadata = bool(emd)
		}
		keyBytes = 16
		if V == 5 {
			keyBytes = 32
		}
	default:
		return nil, &MalformedFileError{
			Err: fmt.Errorf("unsupported encryption algorithm V=%d", V),
		}
	}

	sec, err := openStdSecHandler(enc, keyBytes, r.meta.ID[0], res.encryptMetadata)
	if err != nil {
		return nil, Wrap(err, "standard security handler")
	}
	err = sec.unlock(readPwd)
	if err != nil {
		return nil, err
	}
	res.sec = sec

	return res, nil
}

// DecryptBytes decrypts a string belonging to the indirect object ref.
func (enc *encryptInfo) DecryptBytes(ref Reference, buf []byte) ([]byte, error) {
	cf := enc.strF
	if cf == nil {
		return buf, nil
	}
	return cf.decrypt(enc.sec.keyForRef(cf, ref), buf)
}

// DecryptStream returns a reader for the decrypted contents of a stream
// belonging to the indirect object ref.
func (enc *encryptInfo) DecryptStream(ref Reference, r io.Reader) (io.Reader, error) {
	cf := enc.stmF
	if cf == nil {
		return r, nil
	}
	key := enc.sec.keyForRef(cf, ref)

	switch cf.Cipher {
	case cipherRC4:
		c, err := rc4.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return &cipher.StreamReader{S: c, R: r}, nil
	default:
		return &lazyReader{
			load: func() ([]byte, error) {
				data, err := io.ReadAll(r)
				if err != nil {
					return nil, err
				}
				return cf.decrypt(key, data)
			},
		}, nil
	}
}

// lazyReader defers the (expensive) decryption of AES encrypted stream data
// until the data is actually read.
type lazyReader struct {
	load func() ([]byte, error)
	data []byte
	err  error
}

func (r *lazyReader) Read(p []byte) (int, error) {
	if r.load != nil {
		r.data, r.err = r.load()
		r.load = nil
	}
	if r.err != nil {
		return 0, r.err
	}
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

// cryptFilter describes the cipher used for strings or streams.
type cryptFilter struct {
	Cipher cipherType

	// Length is the key length in bits.
	Length int
}

func (cf *cryptFilter) String() string {
	return fmt.Sprintf("%s-%d", cf.Cipher, cf.Length)
}

func (cf *cryptFilter) decrypt(key, buf []byte) ([]byte, error) {
	out := make([]byte, len(buf))
	switch cf.Cipher {
	case cipherRC4:
		c, err := rc4.NewCipher(key)
		if err != nil {
			return nil, err
		}
		c.XORKeyStream(out, buf)
		return out, nil
	case cipherAES:
		// The first block is the initialisation vector.
		if len(buf) < 32 || len(buf)%16 != 0 {
			return nil, errCorrupted
		}
		c, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		cbc := cipher.NewCBCDecrypter(c, buf[:16])
		out = out[:len(buf)-16]
		cbc.CryptBlocks(out, buf[16:])

		nPad := int(out[len(out)-1])
		if nPad < 1 || nPad > 16 {
			return nil, errCorrupted
		}
		return out[:len(out)-nPad], nil
	}
	return nil, fmt.Errorf("unsupported cipher %s", cf.Cipher)
}

func getCryptFilter(name Name, CF Dict) (*cryptFilter, error) {
	if name == "Identity" {
		return nil, nil
	}
	cfDict, ok := CF[name].(Dict)
	if !ok {
		return nil, fmt.Errorf("crypt filter %q not defined", name)
	}

	switch cfDict["CFM"] {
	case Name("V2"):
		length := 128
		if l, ok := cfDict["Length"].(Integer); ok && l >= 5 && l <= 16 {
			length = int(l) * 8
		}
		return &cryptFilter{Cipher: cipherRC4, Length: length}, nil
	case Name("AESV2"):
		return &cryptFilter{Cipher: cipherAES, Length: 128}, nil
	case Name("AESV3"):
		return &cryptFilter{Cipher: cipherAES, Length: 256}, nil
	case Name("None"), nil:
		return nil, nil
	}
	return nil, fmt.Errorf("unsupported crypt filter method %s", Format(cfDict["CFM"]))
}

type cipherType int

const (
	cipherUnknown cipherType = iota
	cipherRC4
	cipherAES
)

func (c cipherType) String() string {
	switch c {
	case cipherRC4:
		return "RC4"
	case cipherAES:
		return "AES"
	}
	return "unknown"
}

// stdSecHandler implements the password checks of the PDF standard
// security handler (section 7.6.4 of ISO 32000-2:2020).
type stdSecHandler struct {
	R int

	// ID is the first element of the file identifier.
	ID []byte

	O, U   []byte
	OE, UE []byte
	Perms  []byte
	P      uint32

	keyBytes        int
	encryptMetadata bool

	key []byte
}

func openStdSecHandler(enc Dict, keyBytes int, ID []byte, encryptMetadata bool) (*stdSecHandler, error) {
	R, ok := enc["R"].(Integer)
	if !ok || R < 2 || R == 5 || R > 6 {
		return nil, errors.New("invalid Encrypt.R")
	}
	ouLength := 32
	if R == 6 {
		ouLength = 48
	}

	// Some writers pad O and U with extra bytes; only the prefix matters.
	O, ok := enc["O"].(String)
	if !ok || len(O) < ouLength {
		return nil, errors.New("invalid Encrypt.O")
	}
	U, ok := enc["U"].(String)
	if !ok || len(U) < ouLength {
		return nil, errors.New("invalid Encrypt.U")
	}
	P, ok := enc["P"].(Integer)
	if !ok {
		return nil, errors.New("invalid Encrypt.P")
	}

	sec := &stdSecHandler{
		R:               int(R),
		ID:              ID,
		O:               []byte(O[:ouLength]),
		U:               []byte(U[:ouLength]),
		P:               uint32(P),
		keyBytes:        keyBytes,
		encryptMetadata: encryptMetadata,
	}

	if R == 6 {
		OE, ok := enc["OE"].(String)
		if !ok || len(OE) != 32 {
			return nil, errors.New("invalid Encrypt.OE")
		}
		UE, ok := enc["UE"].(String)
		if !ok || len(UE) != 32 {
			return nil, errors.New("invalid Encrypt.UE")
		}
		Perms, ok := enc["Perms"].(String)
		if !ok || len(Perms) != 16 {
			return nil, errors.New("invalid Encrypt.Perms")
		}
		sec.OE = []byte(OE)
		sec.UE = []byte(UE)
		sec.Perms = []byte(Perms)
	}

	return sec, nil
}

// unlock determines the file encryption key.  The empty password is tried
// first, further passwords are obtained from readPwd until either a password
// works or readPwd returns the empty string.
func (sec *stdSecHandler) unlock(readPwd func([]byte, int) string) error {
	passwd := ""
	for try := 0; ; try++ {
		if sec.tryPassword(passwd) {
			return nil
		}
		if readPwd == nil {
			break
		}
		passwd = readPwd(sec.ID, try)
		if passwd == "" {
			break
		}
	}
	return &AuthenticationError{ID: sec.ID}
}

// tryPassword checks whether passwd is the user or the owner password.
// On success, the file encryption key is stored in sec.key.
func (sec *stdSecHandler) tryPassword(passwd string) bool {
	if sec.R == 6 {
		pw, err := saslPrep(passwd)
		if err != nil {
			return false
		}
		return sec.checkUser6(pw) || sec.checkOwner6(pw)
	}

	padded, err := padPasswd(passwd)
	if err != nil {
		return false
	}
	return sec.checkUser(padded) || sec.checkOwner(padded)
}

// keyForRef computes the key used for the strings and streams of one
// indirect object.
func (sec *stdSecHandler) keyForRef(cf *cryptFilter, ref Reference) []byte {
	if sec.R == 6 {
		return sec.key
	}

	h := md5.New()
	h.Write(sec.key)
	num := ref.Number()
	gen := ref.Generation()
	h.Write([]byte{
		byte(num), byte(num >> 8), byte(num >> 16),
		byte(gen), byte(gen >> 8)})
	if cf.Cipher == cipherAES {
		h.Write([]byte("sAlT"))
	}
	return h.Sum(nil)[:min(sec.keyBytes+5, 16)]
}

// fileKey computes the file encryption key from a padded user password,
// for revisions 2 to 4.
func (sec *stdSecHandler) fileKey(padded []byte) []byte {
	h := md5.New()
	h.Write(padded)
	h.Write(sec.O)
	var p [4]byte
	binary.LittleEndian.PutUint32(p[:], sec.P)
	h.Write(p[:])
	h.Write(sec.ID)
	if sec.R >= 4 && !sec.encryptMetadata {
		h.Write([]byte{255, 255, 255, 255})
	}
	key := h.Sum(nil)

	if sec.R >= 3 {
		for range 50 {
			sum := md5.Sum(key[:sec.keyBytes])
			key = sum[:]
		}
	}
	return key[:sec.keyBytes]
}

// userHash computes the value stored in /U for the given file key.  For
// revisions 3 and 4 only the first 16 bytes are significant.
func (sec *stdSecHandler) userHash(key []byte) []byte {
	if sec.R == 2 {
		U := make([]byte, 32)
		c, _ := rc4.NewCipher(key)
		c.XORKeyStream(U, passwdPad)
		return U
	}

	h := md5.New()
	h.Write(passwdPad)
	h.Write(sec.ID)
	U := h.Sum(nil)
	rc4Rounds(U, key, 0, 19)
	return U
}

// rc4Rounds encrypts buf in place, using RC4 with key XOR i for i = from,
// ..., to.
func rc4Rounds(buf, key []byte, from, to int) {
	tmp := make([]byte, len(key))
	step := 1
	if from > to {
		step = -1
	}
	for i := from; ; i += step {
		for j := range tmp {
			tmp[j] = key[j] ^ byte(i)
		}
		c, _ := rc4.NewCipher(tmp)
		c.XORKeyStream(buf, buf)
		if i == to {
			break
		}
	}
}

func (sec *stdSecHandler) checkUser(padded []byte) bool {
	key := sec.fileKey(padded)
	U := sec.userHash(key)
	n := 32
	if sec.R >= 3 {
		n = 16
	}
	if !bytes.Equal(U[:n], sec.U[:n]) {
		return false
	}
	sec.key = key
	return true
}

// ownerKey computes the RC4 key derived from the padded owner password.
func (sec *stdSecHandler) ownerKey(padded []byte) []byte {
	sum := md5.Sum(padded)
	key := sum[:]
	if sec.R >= 3 {
		for range 50 {
			sum = md5.Sum(key[:sec.keyBytes])
			key = sum[:]
		}
	}
	return key[:sec.keyBytes]
}

func (sec *stdSecHandler) checkOwner(padded []byte) bool {
	key := sec.ownerKey(padded)

	// Decrypting /O gives the padded user password.
	user := bytes.Clone(sec.O)
	if sec.R == 2 {
		c, _ := rc4.NewCipher(key)
		c.XORKeyStream(user, user)
	} else {
		rc4Rounds(user, key, 19, 0)
	}
	return sec.checkUser(user)
}

func (sec *stdSecHandler) checkUser6(pw []byte) bool {
	if !bytes.Equal(slowHash(pw, sec.U[32:40], nil), sec.U[:32]) {
		return false
	}
	return sec.unwrapKey6(slowHash(pw, sec.U[40:48], nil), sec.UE)
}

func (sec *stdSecHandler) checkOwner6(pw []byte) bool {
	if !bytes.Equal(slowHash(pw, sec.O[32:40], sec.U), sec.O[:32]) {
		return false
	}
	return sec.unwrapKey6(slowHash(pw, sec.O[40:48], sec.U), sec.OE)
}

// unwrapKey6 decrypts the file encryption key from /UE or /OE and verifies
// it against /Perms.
func (sec *stdSecHandler) unwrapKey6(kek, wrapped []byte) bool {
	c, _ := aes.NewCipher(kek)
	key := make([]byte, 32)
	cipher.NewCBCDecrypter(c, make([]byte, 16)).CryptBlocks(key, wrapped)

	c, _ = aes.NewCipher(key)
	perms := make([]byte, 16)
	c.Decrypt(perms, sec.Perms)
	if !bytes.Equal(perms[9:12], []byte("adb")) {
		return false
	}
	if binary.LittleEndian.Uint32(perms[:4]) != sec.P {
		return false
	}

	sec.key = key
	return true
}

// slowHash implements algorithm 2.B of ISO 32000-2:2020, the hash used by
// revision 6 of the standard security handler.  U is nil when checking the
// user password.
func slowHash(passwd, salt, U []byte) []byte {
	h := sha256.New()
	h.Write(passwd)
	h.Write(salt)
	h.Write(U)
	K := h.Sum(nil)

	K1 := make([]byte, 0, 64*(len(passwd)+64+len(U)))
	for round := 0; ; round++ {
		K1 = K1[:0]
		for range 64 {
			K1 = append(K1, passwd...)
			K1 = append(K1, K...)
			K1 = append(K1, U...)
		}

		c, _ := aes.NewCipher(K[:16])
		E := K1
		cipher.NewCBCEncrypter(c, K[16:32]).CryptBlocks(E, K1)

		// The first 16 bytes of E as a big-endian integer, modulo 3.
		// Since 256 % 3 == 1, this equals the byte sum modulo 3.
		sum := 0
		for _, b := range E[:16] {
			sum += int(b)
		}
		var next hash.Hash
		switch sum % 3 {
		case 0:
			next = sha256.New()
		case 1:
			next = sha512.New384()
		default:
			next = sha512.New()
		}
		next.Write(E)
		K = next.Sum(nil)

		if round >= 63 && int(E[len(E)-1]) <= round-31 {
			break
		}
	}

	return K[:32]
}

// saslPrep prepares a revision 6 password.
func saslPrep(passwd string) ([]byte, error) {
	prepped, err := stringprep.SASLprep.Prepare(passwd)
	if err != nil {
		return nil, errInvalidPassword
	}
	buf := []byte(prepped)
	if len(buf) > 127 {
		buf = buf[:127]
	}
	return buf, nil
}

// padPasswd converts a password to PDFDocEncoding and pads it to 32 bytes,
// for revisions 2 to 4.
func padPasswd(passwd string) ([]byte, error) {
	buf, ok := pdfDocEncode(passwd)
	if !ok {
		return nil, errInvalidPassword
	}

	padded := make([]byte, 32)
	n := copy(padded, buf)
	copy(padded[n:], passwdPad)
	return padded, nil
}

var passwdPad = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}
