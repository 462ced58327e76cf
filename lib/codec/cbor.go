// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2): sorted map
// keys, shortest integers, definite lengths. An operation always
// encodes to the same bytes, so stored blobs and bundles compare
// byte-for-byte.
var encMode cbor.EncMode

// decMode accepts standard CBOR and ignores unknown struct fields, so
// records written by a newer client still load.
var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// oplog.Operator, ref.UserID and ref.RoomID encode through
	// MarshalText. Operators are stored by name ("INS"), not by their
	// enum number, and the ID types would otherwise encode as empty
	// maps because their fields are unexported.
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Operands are map[string]any, and the "sealed" attribute nests
		// another map of {ciphertext, iv} maps inside them. Decoding
		// into any must yield map[string]any at every level, the shape
		// encoding/json produces and lib/vault expects, rather than
		// CBOR's default map[any]any.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		// Operand integers decoded into any become int64 whatever
		// their sign. CBOR's default gives uint64 for non-negative
		// values and int64 for negative ones, so one operand would
		// carry two integer types depending on its value.
		IntDec: cbor.IntDecConvertSigned,
		// Mirrors TextMarshaler: operators and IDs decode through
		// UnmarshalText, so an unknown operator name becomes
		// OperatorUnknown instead of failing the whole record.
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v deterministically.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Encoder writes a CBOR sequence.
type Encoder = cbor.Encoder

// Decoder reads a CBOR sequence.
type Decoder = cbor.Decoder

// NewEncoder returns a deterministic encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return decMode.NewDecoder(r)
}

// Diagnose returns the RFC 8949 diagnostic notation for data, for
// debugging stored records.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
