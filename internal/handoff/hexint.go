package handoff

import (
	"bytes"
	"encoding/json"
	"math/big"

	"github.com/pkg/errors"

	"github.com/mahdiidarabi/blind-rsa/pkg/blindrsa"
)

// HexInt is a big integer carried in JSON as a lowercase hex string without prefix.
//
// Decoding also accepts "0x"-prefixed strings and bare decimal JSON numbers, so files
// produced by other tools can be read back.
type HexInt struct {
	v *big.Int
}

// NewHexInt copies x into a HexInt.
func NewHexInt(x *big.Int) HexInt {
	if x == nil {
		return HexInt{}
	}
	return HexInt{v: new(big.Int).Set(x)}
}

// Int returns a copy of the value, or nil when unset.
func (h HexInt) Int() *big.Int {
	if h.v == nil {
		return nil
	}
	return new(big.Int).Set(h.v)
}

// IsZero reports whether the value is unset.
func (h HexInt) IsZero() bool { return h.v == nil }

// String returns the hex encoding.
func (h HexInt) String() string { return blindrsa.EncodeInt(h.v) }

// MarshalJSON implements json.Marshaler.
func (h HexInt) MarshalJSON() ([]byte, error) {
	if h.v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(blindrsa.EncodeInt(h.v))
}

// UnmarshalJSON implements json.Unmarshaler.
func (h *HexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		h.v = nil
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.Wrap(err, "failed to decode hex integer")
		}
		v, err := blindrsa.DecodeInt(s)
		if err != nil {
			return err
		}
		h.v = v
		return nil
	}

	// Decimal JSON number
	v, ok := new(big.Int).SetString(string(data), 10)
	if !ok || v.Sign() < 0 {
		return errors.Wrapf(blindrsa.ErrInvalidInput, "invalid integer %q", string(data))
	}
	h.v = v
	return nil
}
