// Package keycodec converts between key UUIDs and their human-typable
// scratch-card form.
//
// A key's canonical identity is a UUID. Clients never see the UUID; they
// see the encoded form, the 16 UUID bytes in Crockford base32 split into
// dash-separated groups:
//
//	XXXXXXX-XXXXXXX-XXXXXXX-XXXXX
//
// Crockford base32 excludes I, L, O and U, so keys survive being read
// aloud or retyped. Decoding folds case and maps the ambiguous characters
// (O to 0, I and L to 1) back before decoding.
package keycodec

import (
	"encoding/base32"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrMalformedKey indicates the input is not a well-formed scratch-card key.
var ErrMalformedKey = errors.New("keycodec: malformed key")

// crockford is the Crockford base32 alphabet.
const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// encodedLength is the length of the raw encoding: 16 bytes in base32.
const encodedLength = 26

var encoding = base32.NewEncoding(crockford).WithPadding(base32.NoPadding)

// groupSizes is how the 26 raw characters split into display groups.
var groupSizes = []int{7, 7, 7, 5}

// Encode converts a key UUID into its scratch-card form.
func Encode(uuidStr string) (string, error) {
	id, err := uuid.Parse(uuidStr)
	if err != nil {
		return "", err
	}

	raw := encoding.EncodeToString(id[:])

	var b strings.Builder
	b.Grow(encodedLength + len(groupSizes) - 1)
	offset := 0
	for i, size := range groupSizes {
		if i > 0 {
			b.WriteByte('-')
		}
		b.WriteString(raw[offset : offset+size])
		offset += size
	}
	return b.String(), nil
}

// Decode converts a scratch-card key back into its UUID.
func Decode(key string) (string, error) {
	raw, err := normalize(key)
	if err != nil {
		return "", err
	}

	data, err := encoding.DecodeString(raw)
	if err != nil {
		return "", ErrMalformedKey
	}
	if len(data) != 16 {
		return "", ErrMalformedKey
	}

	id, err := uuid.FromBytes(data)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// IsKey reports whether s looks like a scratch-card key. It tolerates the
// same typing slack Decode does.
func IsKey(s string) bool {
	raw, err := normalize(s)
	if err != nil {
		return false
	}
	_, err = encoding.DecodeString(raw)
	return err == nil
}

// normalize strips group separators, folds case and maps the characters
// Crockford base32 treats as aliases.
func normalize(key string) (string, error) {
	var b strings.Builder
	b.Grow(encodedLength)

	for _, r := range strings.ToUpper(key) {
		switch r {
		case '-', ' ':
			continue
		case 'O':
			b.WriteByte('0')
		case 'I', 'L':
			b.WriteByte('1')
		default:
			if !strings.ContainsRune(crockford, r) {
				return "", ErrMalformedKey
			}
			b.WriteRune(r)
		}
	}

	if b.Len() != encodedLength {
		return "", ErrMalformedKey
	}
	return b.String(), nil
}
