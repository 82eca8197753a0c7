package heap

import (
	"goreldb/internal/errs"
	"goreldb/internal/sql"

	"github.com/hashicorp/go-msgpack/v2/codec"
)

var mpHandle = &codec.MsgpackHandle{}

// wireValue/wireField/wireRow are the self-describing on-the-wire shapes
// a Row is encoded to before it is handed to TableHeap.Insert. Encoding
// fields by name (not struct position) is what lets a column add/drop
// skip a table rewrite: old payloads simply lack/carry extra fields.
type wireValue struct {
	Kind uint8
	I    int64
	F    float64
	B    bool
	S    string
}

type wireField struct {
	Column string
	Value  wireValue
}

type wireRow struct {
	Fields []wireField
}

func toWireValue(v sql.Value) wireValue {
	return wireValue{Kind: uint8(v.Kind), I: v.I, F: v.F, B: v.B, S: v.S}
}

func fromWireValue(w wireValue) sql.Value {
	return sql.Value{Kind: sql.ValueKind(w.Kind), I: w.I, F: w.F, B: w.B, S: w.S}
}

// EncodeRow serializes a Row into the self-describing blob format stored
// in heap pages.
func EncodeRow(row sql.Row) ([]byte, error) {
	wr := wireRow{Fields: make([]wireField, len(row.Fields))}
	for i, f := range row.Fields {
		wr.Fields[i] = wireField{Column: f.Column, Value: toWireValue(f.Value)}
	}
	var buf []byte
	if err := codec.NewEncoderBytes(&buf, mpHandle).Encode(wr); err != nil {
		return nil, errs.NewExecuteError("encode row", err)
	}
	return buf, nil
}

// DecodeRow deserializes a blob previously produced by EncodeRow.
func DecodeRow(blob []byte) (sql.Row, error) {
	var wr wireRow
	if err := codec.NewDecoderBytes(blob, mpHandle).Decode(&wr); err != nil {
		return sql.Row{}, errs.NewExecuteError("decode row", err)
	}
	fields := make([]sql.Field, len(wr.Fields))
	for i, f := range wr.Fields {
		fields[i] = sql.Field{Column: f.Column, Value: fromWireValue(f.Value)}
	}
	return sql.Row{Fields: fields}, nil
}
