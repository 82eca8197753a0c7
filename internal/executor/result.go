// Package executor drives statement execution: it dispatches a parsed
// statement to the right handler, walks planner pipelines over staged
// (RowId,Row) working sets, and routes every mutation through the WAL
// before it is acknowledged against the table heap.
package executor

import "goreldb/internal/sql"

// ColumnInfo describes one column of an ExecuteResult.
type ColumnInfo struct {
	Name string
	Kind sql.ColumnKind
}

// ExecuteResult is the uniform shape every statement kind resolves to:
// zero columns/rows for DDL and session statements, a single "affected"
// column for INSERT/UPDATE/DELETE, and the projected columns for SELECT.
type ExecuteResult struct {
	Columns []ColumnInfo
	Rows    []sql.Row
}

func emptyResult() ExecuteResult { return ExecuteResult{} }

func affectedResult(n int) ExecuteResult {
	return ExecuteResult{
		Columns: []ColumnInfo{{Name: "affected", Kind: sql.ColInt}},
		Rows:    []sql.Row{sql.NewRow(sql.Field{Column: "affected", Value: sql.IntValue(int64(n))})},
	}
}
