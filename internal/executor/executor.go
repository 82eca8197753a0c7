package executor

import (
	"context"
	"fmt"

	"goreldb/internal/catalog"
	"goreldb/internal/errs"
	"goreldb/internal/planner"
	"goreldb/internal/reducer"
	"goreldb/internal/sql"
	"goreldb/internal/storage/heap"
	"goreldb/internal/wal"
)

// Process dispatches one parsed statement to its handler. Every call is
// cancellable: a cancelled context drops any partially-built working set
// without writing to the WAL.
func (s *Session) Process(ctx context.Context, stmt sql.Statement) (ExecuteResult, error) {
	if err := ctx.Err(); err != nil {
		return ExecuteResult{}, err
	}
	switch st := stmt.(type) {
	case *sql.CreateDatabaseStmt:
		return emptyResult(), s.Engine.cat.CreateDatabase(st.Name, st.IfNotExists)
	case *sql.AlterDatabaseStmt:
		return emptyResult(), s.Engine.cat.RenameDatabase(st.Name, st.NewName)
	case *sql.DropDatabaseStmt:
		return emptyResult(), s.Engine.cat.DropDatabase(st.Name, st.IfExists)
	case *sql.CreateTableStmt:
		return s.executeCreateTable(st)
	case *sql.AlterTableStmt:
		return s.executeAlterTable(st)
	case *sql.DropTableStmt:
		return s.executeDropTable(st)
	case *sql.CreateIndexStmt:
		return s.executeCreateIndex(st)
	case *sql.InsertStmt:
		return s.executeInsert(ctx, st)
	case *sql.SelectStmt:
		return s.executeSelect(ctx, st)
	case *sql.UpdateStmt:
		return s.executeUpdate(ctx, st)
	case *sql.DeleteStmt:
		return s.executeDelete(ctx, st)
	case *sql.ShowStmt:
		return s.executeShow(st)
	case *sql.DescStmt:
		return s.executeDesc(st)
	case *sql.UseStmt:
		return s.executeUse(st)
	case *sql.BeginStmt:
		return s.executeBegin()
	case *sql.CommitStmt:
		return s.executeCommit()
	case *sql.RollbackStmt:
		return s.executeRollback()
	default:
		return ExecuteResult{}, errs.NewExecuteError(fmt.Sprintf("unsupported statement type %T", stmt), nil)
	}
}

func (s *Session) executeCreateTable(st *sql.CreateTableStmt) (ExecuteResult, error) {
	db, _, err := s.resolveTable(st.Name)
	if err != nil {
		return ExecuteResult{}, err
	}
	schema := sql.TableSchema{
		Name:        sql.QualifiedName{Database: db, Table: st.Name.Table},
		Columns:     st.Columns,
		PrimaryKey:  st.PrimaryKey,
		ForeignKeys: st.ForeignKeys,
		UniqueKeys:  st.UniqueKeys,
	}
	return emptyResult(), s.Engine.cat.CreateTable(db, schema, st.IfNotExists)
}

func (s *Session) executeAlterTable(st *sql.AlterTableStmt) (ExecuteResult, error) {
	db, table, err := s.resolveTable(st.Name)
	if err != nil {
		return ExecuteResult{}, err
	}
	if err := s.Engine.cat.ApplyAlterTable(db, table, st.Action); err != nil {
		return ExecuteResult{}, err
	}
	if st.Action.Kind == sql.AlterRenameTable {
		s.Engine.renameHeap(db, table, st.Action.NewName)
	}
	return emptyResult(), nil
}

func (s *Session) executeDropTable(st *sql.DropTableStmt) (ExecuteResult, error) {
	db, table, err := s.resolveTable(st.Name)
	if err != nil {
		return ExecuteResult{}, err
	}
	if err := s.Engine.cat.DropTable(db, table, st.IfExists); err != nil {
		return ExecuteResult{}, err
	}
	s.Engine.dropHeap(db, table)
	return emptyResult(), nil
}

func (s *Session) executeCreateIndex(st *sql.CreateIndexStmt) (ExecuteResult, error) {
	db, table, err := s.resolveTable(st.Table)
	if err != nil {
		return ExecuteResult{}, err
	}
	meta := catalog.IndexMeta{Name: st.Name, Columns: st.Columns, Unique: st.Unique}
	if err := s.Engine.cat.CreateIndex(db, table, meta); err != nil {
		return ExecuteResult{}, err
	}
	if len(meta.Columns) == 1 {
		if err := s.Engine.backfillIndex(db, table, meta.Columns[0]); err != nil {
			return ExecuteResult{}, err
		}
	}
	return emptyResult(), nil
}

func (s *Session) executeUse(st *sql.UseStmt) (ExecuteResult, error) {
	if _, err := s.Engine.cat.ListTables(st.Database); err != nil {
		return ExecuteResult{}, errs.NewExecuteError("database does not exist: "+st.Database, err)
	}
	s.CurrentDatabase = st.Database
	return emptyResult(), nil
}

func (s *Session) executeShow(st *sql.ShowStmt) (ExecuteResult, error) {
	switch st.Kind {
	case sql.ShowDatabases:
		names, err := s.Engine.cat.ListDatabases()
		if err != nil {
			return ExecuteResult{}, err
		}
		return stringListResult("database", names), nil
	case sql.ShowTables:
		if s.CurrentDatabase == "" {
			return ExecuteResult{}, errs.NewExecuteError("no database selected", nil)
		}
		names, err := s.Engine.cat.ListTables(s.CurrentDatabase)
		if err != nil {
			return ExecuteResult{}, err
		}
		return stringListResult("table", names), nil
	default:
		return ExecuteResult{}, errs.NewExecuteError("unknown SHOW kind", nil)
	}
}

func stringListResult(column string, names []string) ExecuteResult {
	rows := make([]sql.Row, len(names))
	for i, n := range names {
		rows[i] = sql.NewRow(sql.Field{Column: column, Value: sql.StringValue(n)})
	}
	return ExecuteResult{Columns: []ColumnInfo{{Name: column, Kind: sql.ColString}}, Rows: rows}
}

func (s *Session) executeDesc(st *sql.DescStmt) (ExecuteResult, error) {
	db, table, err := s.resolveTable(st.Table)
	if err != nil {
		return ExecuteResult{}, err
	}
	schema, err := s.Engine.cat.GetSchema(db, table)
	if err != nil {
		return ExecuteResult{}, err
	}
	cols := []ColumnInfo{
		{Name: "column", Kind: sql.ColString},
		{Name: "type", Kind: sql.ColString},
		{Name: "not_null", Kind: sql.ColBool},
		{Name: "primary_key", Kind: sql.ColBool},
	}
	rows := make([]sql.Row, len(schema.Columns))
	for i, c := range schema.Columns {
		rows[i] = sql.NewRow(
			sql.Field{Column: "column", Value: sql.StringValue(c.Name)},
			sql.Field{Column: "type", Value: sql.StringValue(c.Type.String())},
			sql.Field{Column: "not_null", Value: sql.BoolValue(c.NotNull)},
			sql.Field{Column: "primary_key", Value: sql.BoolValue(c.PrimaryKey)},
		)
	}
	return ExecuteResult{Columns: cols, Rows: rows}, nil
}

func (s *Session) executeBegin() (ExecuteResult, error) {
	if s.Txn != nil && s.Txn.Active {
		return ExecuteResult{}, errs.NewExecuteError("a transaction is already in progress", nil)
	}
	s.Txn = &Transaction{Active: true}
	return emptyResult(), nil
}

func (s *Session) executeCommit() (ExecuteResult, error) {
	if s.Txn == nil || !s.Txn.Active {
		return ExecuteResult{}, errs.NewExecuteError("no transaction is in progress", nil)
	}
	ops := s.Txn.Ops
	s.Txn = nil
	return emptyResult(), s.Engine.applyOps(ops, true)
}

func (s *Session) executeRollback() (ExecuteResult, error) {
	if s.Txn == nil || !s.Txn.Active {
		return ExecuteResult{}, errs.NewExecuteError("no transaction is in progress", nil)
	}
	s.Txn = nil
	return emptyResult(), nil
}

func (s *Session) executeSelect(ctx context.Context, st *sql.SelectStmt) (ExecuteResult, error) {
	plan, err := planner.BuildSelectPlan(st)
	if err != nil {
		return ExecuteResult{}, err
	}
	rows, err := s.runPipeline(ctx, plan)
	if err != nil {
		return ExecuteResult{}, err
	}
	projected, cols, err := s.projectRows(rows, plan)
	if err != nil {
		return ExecuteResult{}, err
	}
	return ExecuteResult{Columns: cols, Rows: projected}, nil
}

func (s *Session) executeInsert(ctx context.Context, st *sql.InsertStmt) (ExecuteResult, error) {
	db, table, err := s.resolveTable(st.Table)
	if err != nil {
		return ExecuteResult{}, err
	}
	schema, err := s.Engine.cat.GetSchema(db, table)
	if err != nil {
		return ExecuteResult{}, err
	}

	targetColumns := st.Columns
	if len(targetColumns) == 0 {
		targetColumns = make([]string, len(schema.Columns))
		for i, c := range schema.Columns {
			targetColumns[i] = c.Name
		}
	}

	var valueRows [][]sql.Value
	if st.Select != nil {
		plan, err := planner.BuildSelectPlan(st.Select)
		if err != nil {
			return ExecuteResult{}, err
		}
		rows, err := s.runPipeline(ctx, plan)
		if err != nil {
			return ExecuteResult{}, err
		}
		projected, _, err := s.projectRows(rows, plan)
		if err != nil {
			return ExecuteResult{}, err
		}
		for _, r := range projected {
			values := make([]sql.Value, len(r.Fields))
			for i, f := range r.Fields {
				values[i] = f.Value
			}
			valueRows = append(valueRows, values)
		}
	} else {
		for _, exprRow := range st.Values {
			values := make([]sql.Value, len(exprRow))
			for i, e := range exprRow {
				v, err := reducer.Reduce(reducer.ReduceContext{}, e)
				if err != nil {
					return ExecuteResult{}, err
				}
				values[i] = v
			}
			valueRows = append(valueRows, values)
		}
	}

	ops := make([]mutationOp, 0, len(valueRows))
	for _, values := range valueRows {
		if len(values) != len(targetColumns) {
			return ExecuteResult{}, errs.NewExecuteError("INSERT column/value count mismatch", nil)
		}
		row, err := buildInsertRow(schema, targetColumns, values)
		if err != nil {
			return ExecuteResult{}, err
		}
		bytes, err := heapEncodeRow(row)
		if err != nil {
			return ExecuteResult{}, err
		}
		ops = append(ops, mutationOp{Database: db, Table: table, Kind: wal.EntryInsert, NewRowBytes: bytes})
	}
	if err := s.stage(ops); err != nil {
		return ExecuteResult{}, err
	}
	return affectedResult(len(ops)), nil
}

func buildInsertRow(schema sql.TableSchema, targetColumns []string, values []sql.Value) (sql.Row, error) {
	provided := map[string]sql.Value{}
	for i, name := range targetColumns {
		if schema.ColumnIndex(name) < 0 {
			return sql.Row{}, errs.NewExecuteError("unknown column in INSERT: "+name, nil)
		}
		provided[name] = values[i]
	}
	fields := make([]sql.Field, len(schema.Columns))
	for i, col := range schema.Columns {
		v, ok := provided[col.Name]
		if !ok {
			if col.Default != nil {
				dv, err := reducer.Reduce(reducer.ReduceContext{}, *col.Default)
				if err != nil {
					return sql.Row{}, err
				}
				v = dv
			} else {
				v = sql.NullValue()
			}
		}
		if col.NotNull && v.IsNull() {
			return sql.Row{}, errs.NewExecuteError("NOT NULL violation on column: "+col.Name, nil)
		}
		fields[i] = sql.Field{Column: col.Name, Value: v}
	}
	return sql.Row{Fields: fields}, nil
}

func (s *Session) executeUpdate(ctx context.Context, st *sql.UpdateStmt) (ExecuteResult, error) {
	plan, err := planner.BuildUpdatePlan(st)
	if err != nil {
		return ExecuteResult{}, err
	}
	db, table, err := s.resolveTable(st.Table)
	if err != nil {
		return ExecuteResult{}, err
	}
	rows, err := s.loadTableRows(db, table)
	if err != nil {
		return ExecuteResult{}, err
	}
	for _, item := range plan.Items {
		if item.Kind == planner.PlanFilter {
			rows, err = s.applyFilter(plan, rows, item.Predicate)
			if err != nil {
				return ExecuteResult{}, err
			}
		}
	}

	ops := make([]mutationOp, 0, len(rows))
	for _, r := range rows {
		newData := r.Data.Clone()
		for _, asn := range st.Assignments {
			v, err := reducer.Reduce(s.reduceCtx(plan, r), asn.Value)
			if err != nil {
				return ExecuteResult{}, err
			}
			setBareField(&newData, asn.Column, v)
		}
		bytes, err := heapEncodeRow(bareRow(newData))
		if err != nil {
			return ExecuteResult{}, err
		}
		ops = append(ops, mutationOp{Database: db, Table: table, Kind: wal.EntrySet, ExistingRowID: r.RowID, NewRowBytes: bytes})
	}
	if err := s.stage(ops); err != nil {
		return ExecuteResult{}, err
	}
	return affectedResult(len(ops)), nil
}

func (s *Session) executeDelete(ctx context.Context, st *sql.DeleteStmt) (ExecuteResult, error) {
	plan, err := planner.BuildDeletePlan(st)
	if err != nil {
		return ExecuteResult{}, err
	}
	db, table, err := s.resolveTable(st.Table)
	if err != nil {
		return ExecuteResult{}, err
	}
	rows, err := s.loadTableRows(db, table)
	if err != nil {
		return ExecuteResult{}, err
	}
	for _, item := range plan.Items {
		if item.Kind == planner.PlanFilter {
			rows, err = s.applyFilter(plan, rows, item.Predicate)
			if err != nil {
				return ExecuteResult{}, err
			}
		}
	}

	ops := make([]mutationOp, 0, len(rows))
	for _, r := range rows {
		ops = append(ops, mutationOp{Database: db, Table: table, Kind: wal.EntryDelete, ExistingRowID: r.RowID})
	}
	if err := s.stage(ops); err != nil {
		return ExecuteResult{}, err
	}
	return affectedResult(len(ops)), nil
}

// setBareField replaces (or appends) the bare-name field for column,
// leaving any table-qualified duplicate of the same column untouched
// (recomputed wholesale by bareRow before encoding).
func setBareField(row *sql.Row, column string, v sql.Value) {
	for i, f := range row.Fields {
		if f.Column == column {
			row.Fields[i].Value = v
			return
		}
	}
	row.Fields = append(row.Fields, sql.Field{Column: column, Value: v})
}

// bareRow strips the table-qualified duplicate fields loadTableRows adds,
// keeping only bare column names for on-disk encoding.
func bareRow(row sql.Row) sql.Row {
	out := sql.Row{}
	for _, f := range row.Fields {
		if !containsDot(f.Column) {
			out.Fields = append(out.Fields, f)
		}
	}
	return out
}

func containsDot(s string) bool {
	for _, r := range s {
		if r == '.' {
			return true
		}
	}
	return false
}

func heapEncodeRow(row sql.Row) ([]byte, error) {
	return heap.EncodeRow(row)
}
