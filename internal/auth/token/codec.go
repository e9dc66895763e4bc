package token

import "github.com/golang-jwt/jwt/v5"

// segmentParser only decodes segments. Strict mode rejects encodings with
// non-zero trailing bits, so every segment has exactly one accepted spelling.
var segmentParser = jwt.NewParser(jwt.WithStrictDecoding())

// EncodeSegment returns the unpadded base64url form of seg.
func EncodeSegment(seg []byte) string {
	return new(jwt.Token).EncodeSegment(seg)
}

// DecodeSegment reverses EncodeSegment. Padded, non-canonical or truncated
// input is an error.
func DecodeSegment(seg string) ([]byte, error) {
	return segmentParser.DecodeSegment(seg)
}
