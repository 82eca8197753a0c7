package executor

import (
	"github.com/hashicorp/go-msgpack/v2/codec"

	"goreldb/internal/errs"
	"goreldb/internal/sql"
)

var mpHandle = &codec.MsgpackHandle{}

// walRecord is the payload shape stored inside every mutating wal.Entry.
// Insert only ever needs RowBytes: replaying inserts in original order
// against an empty heap reproduces identical RowIDs deterministically,
// since page layout only grows on insert and tombstoning never reclaims
// space. Delete and Set (update) need the existing RowID to identify
// which slot to tombstone.
type walRecord struct {
	Database string
	Table    string
	RowID    sql.RowID
	RowBytes []byte
}

func encodeWALRecord(r walRecord) ([]byte, error) {
	var buf []byte
	if err := codec.NewEncoderBytes(&buf, mpHandle).Encode(r); err != nil {
		return nil, errs.NewWALError("encode wal record", err)
	}
	return buf, nil
}

func decodeWALRecord(data []byte) (walRecord, error) {
	var r walRecord
	if err := codec.NewDecoderBytes(data, mpHandle).Decode(&r); err != nil {
		return walRecord{}, errs.NewWALError("decode wal record", err)
	}
	return r, nil
}
