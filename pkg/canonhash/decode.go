package canonhash

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Parse decodes JSON text into a Value. It uses json.Decoder.UseNumber so
// that every numeric literal arrives as a json.Number rather than a
// float64 -- the decoder can then reject non-integral literals itself
// instead of silently losing precision through a float64 round trip.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, newErr(CodeSerializeFailed, "$", fmt.Sprintf("invalid JSON: %v", err))
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, newErr(CodeSerializeFailed, "$", "trailing data after JSON document")
	}

	return fromAny(raw, "$")
}
