// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package opbundle

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/clovenbradshaw-ctrl/khora/lib/codec"
	"github.com/clovenbradshaw-ctrl/khora/lib/oplog"
)

const (
	magic      = "KHOB"
	version    = 1
	headerSize = 14

	// MaxPayloadSize bounds the uncompressed payload a reader will
	// allocate for.
	MaxPayloadSize = 256 << 20
)

// ErrNotBundle is returned when data does not start with a bundle
// header.
var ErrNotBundle = errors.New("opbundle: not an operation bundle")

// Header describes a bundle without decoding its payload.
type Header struct {
	Version     uint8
	Compression Compression
	Count       uint32
	PayloadSize uint32
}

// Encode serializes operations into a bundle. The requested
// compression is used only when it shrinks the payload.
func Encode(operations []oplog.Operation, compression Compression) ([]byte, error) {
	var payload bytes.Buffer
	encoder := codec.NewEncoder(&payload)
	for i := range operations {
		if err := encoder.Encode(&operations[i]); err != nil {
			return nil, fmt.Errorf("opbundle: encoding operation %d (%s): %w", i, operations[i].ID, err)
		}
	}
	if payload.Len() > MaxPayloadSize {
		return nil, fmt.Errorf("opbundle: payload of %d bytes exceeds limit of %d", payload.Len(), MaxPayloadSize)
	}

	body, err := compress(payload.Bytes(), compression)
	if errors.Is(err, errIncompressible) {
		body, compression = payload.Bytes(), CompressionNone
	} else if err != nil {
		return nil, fmt.Errorf("opbundle: %w", err)
	}

	output := make([]byte, headerSize, headerSize+len(body))
	copy(output, magic)
	output[4] = version
	output[5] = byte(compression)
	binary.BigEndian.PutUint32(output[6:], uint32(len(operations)))
	binary.BigEndian.PutUint32(output[10:], uint32(payload.Len()))
	return append(output, body...), nil
}

// ReadHeader parses the bundle header at the start of data.
func ReadHeader(data []byte) (Header, error) {
	if len(data) < headerSize || string(data[:4]) != magic {
		return Header{}, ErrNotBundle
	}
	header := Header{
		Version:     data[4],
		Compression: Compression(data[5]),
		Count:       binary.BigEndian.Uint32(data[6:]),
		PayloadSize: binary.BigEndian.Uint32(data[10:]),
	}
	if header.Version != version {
		return Header{}, fmt.Errorf("opbundle: unsupported format version %d", header.Version)
	}
	if header.PayloadSize > MaxPayloadSize {
		return Header{}, fmt.Errorf("opbundle: payload of %d bytes exceeds limit of %d", header.PayloadSize, MaxPayloadSize)
	}
	// Every encoded operation takes at least one payload byte.
	if header.Count > header.PayloadSize {
		return Header{}, fmt.Errorf("opbundle: %d operations cannot fit in %d payload bytes", header.Count, header.PayloadSize)
	}
	return header, nil
}

// Decode parses a bundle produced by Encode.
func Decode(data []byte) ([]oplog.Operation, error) {
	header, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}
	payload, err := decompress(data[headerSize:], header.Compression, int(header.PayloadSize))
	if err != nil {
		return nil, fmt.Errorf("opbundle: %w", err)
	}

	operations := make([]oplog.Operation, 0, min(header.Count, uint32(len(payload))))
	decoder := codec.NewDecoder(bytes.NewReader(payload))
	for {
		var operation oplog.Operation
		err := decoder.Decode(&operation)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("opbundle: decoding operation %d: %w", len(operations), err)
		}
		operations = append(operations, operation)
	}
	if uint32(len(operations)) != header.Count {
		return nil, fmt.Errorf("opbundle: decoded %d operations, header says %d", len(operations), header.Count)
	}
	return operations, nil
}

// Write encodes operations and writes the bundle to w.
func Write(w io.Writer, operations []oplog.Operation, compression Compression) error {
	data, err := Encode(operations, compression)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("opbundle: writing: %w", err)
	}
	return nil
}

// Read reads a whole bundle from r and decodes it.
func Read(r io.Reader) ([]oplog.Operation, error) {
	data, err := io.ReadAll(io.LimitReader(r, headerSize+MaxPayloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("opbundle: reading: %w", err)
	}
	return Decode(data)
}
