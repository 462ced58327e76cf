// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

// Package opbundle reads and writes operation bundles: a portable file
// holding a batch of vault operations, used to export a replica, to
// seed a new one, and to feed the projection CLI.
//
// A bundle is a fixed header followed by a payload. The payload is a
// CBOR sequence of operations (lib/codec), optionally compressed with
// LZ4 or zstd. The header records the compression actually used:
// payloads that do not shrink are stored uncompressed whatever was
// requested.
//
//	offset  size  field
//	0       4     magic "KHOB"
//	4       1     format version (1)
//	5       1     compression tag
//	6       4     operation count, big-endian
//	10      4     uncompressed payload size, big-endian
//	14      ...   payload
//
// Hand-written operation files use JSON with comments and trailing
// commas; see [ParseJSON].
package opbundle
