// Copyright 2025 Decentralized Rights Protocol
//
// Package canonical computes the exact bytes signed and hashed by the
// Quorum Service. The contract is strict: a JSON object
// containing only the eight named BlockHeader fields, keys sorted
// lexicographically, no whitespace, numeric fields as minimal integer
// decimals, empty strings serialized as "" rather than omitted. Any
// deviation must be treated as a different header for signature purposes,
// so this package hand-assembles the byte string rather than routing
// through encoding/json's map-reordering (which would also risk float64
// precision loss for large uint64 values).
package canonical

import (
	"strconv"
	"strings"
)

// BlockHeader is the input to signing. Only these eight fields affect the
// canonical serialization: no other field on a richer struct
// may leak into the signed bytes.
type BlockHeader struct {
	Index        uint64
	PreviousHash string
	Timestamp    uint64
	MerkleRoot   string
	DataHash     string
	MinerID      string
	Nonce        uint64
	Difficulty   uint64
}

// Header returns the canonical byte representation of h: a JSON object with
// keys in lexicographic order (data_hash, difficulty, index, merkle_root,
// miner_id, nonce, previous_hash, timestamp), no interior whitespace, UTF-8
// encoded.
func Header(h BlockHeader) []byte {
	var b strings.Builder
	b.WriteByte('{')
	writeStringField(&b, "data_hash", h.DataHash)
	b.WriteByte(',')
	writeUintField(&b, "difficulty", h.Difficulty)
	b.WriteByte(',')
	writeUintField(&b, "index", h.Index)
	b.WriteByte(',')
	writeStringField(&b, "merkle_root", h.MerkleRoot)
	b.WriteByte(',')
	writeStringField(&b, "miner_id", h.MinerID)
	b.WriteByte(',')
	writeUintField(&b, "nonce", h.Nonce)
	b.WriteByte(',')
	writeStringField(&b, "previous_hash", h.PreviousHash)
	b.WriteByte(',')
	writeUintField(&b, "timestamp", h.Timestamp)
	b.WriteByte('}')
	return []byte(b.String())
}

func writeStringField(b *strings.Builder, key, value string) {
	b.WriteByte('"')
	b.WriteString(key)
	b.WriteString(`":`)
	b.WriteString(quoteJSONString(value))
}

func writeUintField(b *strings.Builder, key string, value uint64) {
	b.WriteByte('"')
	b.WriteString(key)
	b.WriteString(`":`)
	b.WriteString(strconv.FormatUint(value, 10))
}

// quoteJSONString escapes value per RFC 8259 and wraps it in double quotes.
// Written by hand (rather than encoding/json.Marshal) so the rest of this
// package never needs to touch encoding/json at all, keeping the canonical
// path independent of any library's number/string formatting choices.
func quoteJSONString(value string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range value {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				b.WriteString(`\u`)
				hex := strconv.FormatInt(int64(r), 16)
				for i := len(hex); i < 4; i++ {
					b.WriteByte('0')
				}
				b.WriteString(hex)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
