package blindrsa

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

// EncodeInt encodes a non-negative integer as lowercase big-endian hex without prefix.
// Zero encodes as "0". A nil value encodes as the empty string.
func EncodeInt(x *big.Int) string {
	if x == nil {
		return ""
	}
	return x.Text(16)
}

// DecodeInt parses the output of EncodeInt. An optional 0x/0X prefix and surrounding
// whitespace are accepted; signs, empty input and non-hex digits are rejected.
func DecodeInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")

	if s == "" {
		return nil, errors.Wrap(ErrInvalidInput, "empty integer encoding")
	}
	for _, c := range s {
		if !isHexDigit(c) {
			return nil, errors.Wrapf(ErrInvalidInput, "invalid hex digit %q", c)
		}
	}

	z, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidInput, "invalid hex integer %q", s)
	}
	return z, nil
}

func isHexDigit(c rune) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
