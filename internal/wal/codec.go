package wal

import (
	"encoding/binary"
	"io"

	"github.com/hashicorp/go-msgpack/v2/codec"

	"goreldb/internal/errs"
)

var mpHandle = &codec.MsgpackHandle{}

// wireEntry is Entry's on-the-wire shape. TxnID is carried unconditionally
// (zero when HasTxnID is false) because msgpack has no notion of an
// absent-vs-zero fixed-width field without an extra tag.
type wireEntry struct {
	Kind      uint8
	Payload   []byte
	Timestamp uint64
	HasTxnID  bool
	TxnID     uint64
}

func encodeEntry(e Entry) ([]byte, error) {
	w := wireEntry{Kind: uint8(e.Kind), Payload: e.Payload, Timestamp: e.Timestamp, HasTxnID: e.HasTxnID, TxnID: e.TxnID}
	var buf []byte
	if err := codec.NewEncoderBytes(&buf, mpHandle).Encode(w); err != nil {
		return nil, errs.NewWALError("encode entry", err)
	}
	return buf, nil
}

func decodeEntry(b []byte) (Entry, error) {
	var w wireEntry
	if err := codec.NewDecoderBytes(b, mpHandle).Decode(&w); err != nil {
		return Entry{}, errs.NewWALError("decode entry", err)
	}
	return Entry{Kind: EntryKind(w.Kind), Payload: w.Payload, Timestamp: w.Timestamp, HasTxnID: w.HasTxnID, TxnID: w.TxnID}, nil
}

// writeEntry appends a length-prefixed encoded entry to w: a 4-byte
// big-endian length followed by the msgpack body. The length prefix is
// what lets the reader stop cleanly at a truncated trailing record after
// an unclean shutdown, instead of misinterpreting partial bytes.
func writeEntry(w io.Writer, e Entry) (int, error) {
	body, err := encodeEntry(e)
	if err != nil {
		return 0, err
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	n1, err := w.Write(lenBuf[:])
	if err != nil {
		return n1, errs.NewWALError("write entry length prefix", err)
	}
	n2, err := w.Write(body)
	if err != nil {
		return n1 + n2, errs.NewWALError("write entry body", err)
	}
	return n1 + n2, nil
}

// decodeAllTolerant decodes as many complete length-prefixed entries as
// are present in data, stopping silently at the first truncated or
// malformed trailing record (unclean shutdown).
func decodeAllTolerant(data []byte) []Entry {
	var out []Entry
	pos := 0
	for pos+4 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		if length < 0 || pos+4+length > len(data) {
			break
		}
		e, err := decodeEntry(data[pos+4 : pos+4+length])
		if err != nil {
			break
		}
		out = append(out, e)
		pos += 4 + length
	}
	return out
}
