// Package encoding converts the EUC-KR strings stored in model files and
// archives to UTF-8 and back.
package encoding

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// DecodeEUCKR converts EUC-KR bytes to a UTF-8 string. Bytes that do not
// decode are returned unchanged.
func DecodeEUCKR(data []byte) string {
	out, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(out)
}

// EncodeEUCKR converts a UTF-8 string to EUC-KR. Strings with characters
// outside EUC-KR are returned as their UTF-8 bytes.
func EncodeEUCKR(s string) []byte {
	out, _, err := transform.Bytes(korean.EUCKR.NewEncoder(), []byte(s))
	if err != nil {
		return []byte(s)
	}
	return out
}

// DecodeFixed decodes a NUL-padded fixed-width field.
func DecodeFixed(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	return DecodeEUCKR(field)
}

// EncodeFixed encodes s into a NUL-padded field of size bytes, truncating
// if it does not fit.
func EncodeFixed(s string, size int) []byte {
	field := make([]byte, size)
	copy(field, EncodeEUCKR(s))
	return field
}

// NormalizePath returns the lookup key for an archive path: forward
// slashes, lower case, no leading slash.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimLeft(p, "/")
	return strings.ToLower(p)
}
