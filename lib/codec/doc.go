// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is Khora's CBOR configuration.
//
// Operation records are stored and bundled as CBOR. Encoding uses Core
// Deterministic Encoding (RFC 8949 §4.2), so the same record always
// produces the same bytes; lib/store relies on that to detect a
// redelivered operation whose content differs from the stored copy.
//
// Types shared with JSON (oplog.Operation, schema contents) carry only
// json struct tags; fxamacker/cbor falls back to them. Types that
// implement encoding.TextMarshaler (ref.UserID, oplog.Operator) encode
// as CBOR text strings.
//
// Decoding into any yields map[string]any for maps and int64 for every
// integer, so an operand decoded from CBOR has the same shapes the
// projection engine sees from hand-written JSON, except that JSON
// numbers decode to float64.
package codec
