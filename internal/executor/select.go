package executor

import (
	"context"
	"sort"
	"strings"

	"goreldb/internal/errs"
	"goreldb/internal/planner"
	"goreldb/internal/reducer"
	"goreldb/internal/sql"
	"goreldb/internal/storage/heap"
)

// workingRow is one row flowing through a pipeline. Bucket is populated
// only after a Group/GroupAll stage runs, holding every raw row folded
// into that bucket so aggregate calls in the projection/HAVING clause can
// see the whole group rather than just the representative row.
type workingRow struct {
	RowID  sql.RowID
	Data   sql.Row
	Bucket []sql.Row
}

func (s *Session) reduceCtx(plan *planner.Plan, r workingRow) reducer.ReduceContext {
	return reducer.ReduceContext{
		Row:      &r.Data,
		AliasMap: plan.AliasMap,
		Bucket:   r.Bucket,
		RunSubquery: func(stmt *sql.SelectStmt) ([]sql.Row, error) {
			sub, err := planner.BuildSelectPlan(stmt)
			if err != nil {
				return nil, err
			}
			rows, err := s.runPipeline(context.Background(), sub)
			if err != nil {
				return nil, err
			}
			projected, _, err := s.projectRows(rows, sub)
			return projected, err
		},
	}
}

// loadTableRows scans a base table's heap and builds working rows whose
// fields are addressable both by bare column name and by
// "table.column", so unqualified and table-qualified references both
// resolve without needing the alias map.
func (s *Session) loadTableRows(db, table string) ([]workingRow, error) {
	scanned, err := s.Engine.scanTable(db, table)
	if err != nil {
		return nil, err
	}
	out := make([]workingRow, 0, len(scanned))
	for _, sc := range scanned {
		decoded, err := heap.DecodeRow(sc.Payload)
		if err != nil {
			return nil, err
		}
		fields := make([]sql.Field, 0, len(decoded.Fields)*2)
		for _, f := range decoded.Fields {
			fields = append(fields, f, sql.Field{Column: table + "." + f.Column, Value: f.Value})
		}
		out = append(out, workingRow{RowID: sc.RowID, Data: sql.Row{Fields: fields}})
	}
	return out, nil
}

// runPipeline executes every stage of plan in order and returns the
// working set immediately before final projection (i.e. after
// Join/Filter/Group/Order/LimitOffset but with the source row shape
// still intact, suitable for either top-level projection into an
// ExecuteResult or materialization as a subquery's FROM source).
func (s *Session) runPipeline(ctx context.Context, plan *planner.Plan) ([]workingRow, error) {
	rows := fromLessSeed(plan)
	for _, item := range plan.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		switch item.Kind {
		case planner.PlanFrom:
			db, table, rerr := s.resolveTable(item.Table)
			if rerr != nil {
				return nil, rerr
			}
			rows, err = s.loadTableRows(db, table)
		case planner.PlanSubquery:
			rows, err = s.loadSubqueryRows(ctx, item.SubqueryPlan, item.Alias)
		case planner.PlanJoin:
			rows, err = s.applyJoin(ctx, plan, rows, item)
		case planner.PlanFilter:
			rows, err = s.applyFilter(plan, rows, item.Predicate)
		case planner.PlanGroup, planner.PlanGroupAll:
			rows, err = s.applyGroup(plan, rows, item)
		case planner.PlanOrder:
			err = s.applyOrder(plan, rows, item.OrderBy)
		case planner.PlanLimitOffset:
			rows = applyLimitOffset(rows, item.Limit, item.Offset)
		default:
			return nil, errs.NewExecuteError("unsupported plan stage in SELECT pipeline", nil)
		}
		if err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// fromLessSeed seeds the pipeline with a single synthetic empty row when
// the plan has no FROM or subquery source at all (e.g. "SELECT 1+NULL"),
// so the projection still runs once instead of over zero rows. A plan
// with a real source overwrites this as soon as its PlanFrom/PlanSubquery
// stage runs.
func fromLessSeed(plan *planner.Plan) []workingRow {
	for _, item := range plan.Items {
		if item.Kind == planner.PlanFrom || item.Kind == planner.PlanSubquery {
			return nil
		}
	}
	return []workingRow{{}}
}

func (s *Session) resolveTable(name sql.QualifiedName) (string, string, error) {
	db := name.Database
	if db == "" {
		db = s.CurrentDatabase
	}
	if db == "" {
		return "", "", errs.NewExecuteError("no database selected", nil)
	}
	return db, name.Table, nil
}

func (s *Session) loadSubqueryRows(ctx context.Context, subPlan *planner.Plan, alias string) ([]workingRow, error) {
	inner, err := s.runPipeline(ctx, subPlan)
	if err != nil {
		return nil, err
	}
	projected, cols, err := s.projectRows(inner, subPlan)
	if err != nil {
		return nil, err
	}
	out := make([]workingRow, len(projected))
	for i, r := range projected {
		fields := make([]sql.Field, 0, len(r.Fields)*2)
		for j, f := range r.Fields {
			fields = append(fields, f)
			if alias != "" {
				fields = append(fields, sql.Field{Column: alias + "." + cols[j].Name, Value: f.Value})
			}
		}
		out[i] = workingRow{Data: sql.Row{Fields: fields}}
	}
	return out, nil
}

func mergeWorkingRows(left, right workingRow) workingRow {
	fields := make([]sql.Field, 0, len(left.Data.Fields)+len(right.Data.Fields))
	fields = append(fields, left.Data.Fields...)
	fields = append(fields, right.Data.Fields...)
	return workingRow{RowID: left.RowID, Data: sql.Row{Fields: fields}}
}

func nullRowLike(sample workingRow) workingRow {
	fields := make([]sql.Field, len(sample.Data.Fields))
	for i, f := range sample.Data.Fields {
		fields[i] = sql.Field{Column: f.Column, Value: sql.NullValue()}
	}
	return workingRow{Data: sql.Row{Fields: fields}}
}

func (s *Session) applyJoin(ctx context.Context, plan *planner.Plan, left []workingRow, item planner.PlanItem) ([]workingRow, error) {
	var right []workingRow
	var err error
	if item.RhsSubquery != nil {
		right, err = s.loadSubqueryRows(ctx, item.RhsSubquery, item.RhsAlias)
	} else {
		var db, table string
		db, table, err = s.resolveTable(item.RhsTable)
		if err == nil {
			right, err = s.loadTableRows(db, table)
		}
	}
	if err != nil {
		return nil, err
	}

	rctx := reducer.ReduceContext{AliasMap: plan.AliasMap}
	var out []workingRow
	rightMatched := make([]bool, len(right))
	for _, l := range left {
		matchedAny := false
		for ri, r := range right {
			merged := mergeWorkingRows(l, r)
			c := rctx
			c.Row = &merged.Data
			v, err := reducer.Reduce(c, item.On)
			if err != nil {
				return nil, err
			}
			if v.Kind == sql.ValBool && v.B {
				out = append(out, merged)
				matchedAny = true
				rightMatched[ri] = true
			}
		}
		if !matchedAny && (item.JoinKind == sql.JoinLeft || item.JoinKind == sql.JoinFull) {
			if len(right) > 0 {
				out = append(out, mergeWorkingRows(l, nullRowLike(right[0])))
			} else {
				out = append(out, l)
			}
		}
	}
	if item.JoinKind == sql.JoinRight || item.JoinKind == sql.JoinFull {
		sample := workingRow{}
		if len(left) > 0 {
			sample = left[0]
		}
		for ri, r := range right {
			if rightMatched[ri] {
				continue
			}
			if len(left) > 0 {
				out = append(out, mergeWorkingRows(nullRowLike(sample), r))
			} else {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (s *Session) applyFilter(plan *planner.Plan, rows []workingRow, predicate sql.Expression) ([]workingRow, error) {
	var out []workingRow
	for _, r := range rows {
		v, err := reducer.Reduce(s.reduceCtx(plan, r), predicate)
		if err != nil {
			return nil, err
		}
		if v.Kind == sql.ValBool && v.B {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Session) applyGroup(plan *planner.Plan, rows []workingRow, item planner.PlanItem) ([]workingRow, error) {
	type bucket struct {
		rep  workingRow
		rows []sql.Row
	}
	order := []string{}
	buckets := map[string]*bucket{}
	for _, r := range rows {
		var key string
		if item.Kind == planner.PlanGroup {
			k, err := reducer.GroupKey(s.reduceCtx(plan, r), r.Data, item.GroupBy)
			if err != nil {
				return nil, err
			}
			key = k
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{rep: r}
			buckets[key] = b
			order = append(order, key)
		}
		b.rows = append(b.rows, r.Data)
	}
	out := make([]workingRow, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		grouped := workingRow{RowID: b.rep.RowID, Data: b.rep.Data, Bucket: b.rows}
		out = append(out, grouped)
	}
	if item.Having.Arena != nil {
		filtered := make([]workingRow, 0, len(out))
		for _, r := range out {
			v, err := reducer.Reduce(s.reduceCtx(plan, r), item.Having)
			if err != nil {
				return nil, err
			}
			if v.Kind == sql.ValBool && v.B {
				filtered = append(filtered, r)
			}
		}
		out = filtered
	}
	return out, nil
}

func (s *Session) applyOrder(plan *planner.Plan, rows []workingRow, orderBy []sql.OrderByItem) error {
	var sortErr error
	sort.SliceStable(rows, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		for _, o := range orderBy {
			vi, err := reducer.Reduce(s.reduceCtx(plan, rows[i]), o.Expr)
			if err != nil {
				sortErr = err
				return false
			}
			vj, err := reducer.Reduce(s.reduceCtx(plan, rows[j]), o.Expr)
			if err != nil {
				sortErr = err
				return false
			}
			cmp := compareValues(vi, vj)
			if cmp == 0 {
				continue
			}
			if o.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return sortErr
}

// compareValues orders NULL as least, then by kind-appropriate ordering.
func compareValues(a, b sql.Value) int {
	if a.IsNull() && b.IsNull() {
		return 0
	}
	if a.IsNull() {
		return -1
	}
	if b.IsNull() {
		return 1
	}
	switch {
	case a.Kind == sql.ValInt || a.Kind == sql.ValFloat:
		af, bf := asFloatValue(a), asFloatValue(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	case a.Kind == sql.ValString:
		return strings.Compare(a.S, b.S)
	case a.Kind == sql.ValBool:
		if a.B == b.B {
			return 0
		}
		if !a.B {
			return -1
		}
		return 1
	default:
		return 0
	}
}

func asFloatValue(v sql.Value) float64 {
	if v.Kind == sql.ValInt {
		return float64(v.I)
	}
	return v.F
}

func applyLimitOffset(rows []workingRow, limit, offset *int64) []workingRow {
	start := 0
	if offset != nil && *offset > 0 {
		start = int(*offset)
	}
	if start > len(rows) {
		return nil
	}
	rows = rows[start:]
	if limit != nil && *limit >= 0 && int(*limit) < len(rows) {
		rows = rows[:*limit]
	}
	return rows
}

// projectRows applies plan's SELECT list to the final working set,
// returning both the resulting rows and their column descriptors.
// projectRows always returns bare column names; a caller materializing a
// subquery's output as an outer FROM source adds alias-prefixed
// duplicates of the returned fields itself (see loadSubqueryRows).
func (s *Session) projectRows(rows []workingRow, plan *planner.Plan) ([]sql.Row, []ColumnInfo, error) {
	var cols []ColumnInfo
	colsSet := false
	out := make([]sql.Row, 0, len(rows))
	for _, r := range rows {
		var fields []sql.Field
		for _, item := range plan.Projection {
			if item.Wildcard {
				expanded := expandWildcard(r.Data, item.WildcardTable, plan.AliasMap)
				fields = append(fields, expanded...)
				continue
			}
			v, err := reducer.Reduce(s.reduceCtx(plan, r), item.Expr)
			if err != nil {
				return nil, nil, err
			}
			name := projectionColumnName(item)
			fields = append(fields, sql.Field{Column: name, Value: v})
		}
		if !colsSet {
			cols = make([]ColumnInfo, len(fields))
			for i, f := range fields {
				cols[i] = ColumnInfo{Name: f.Column, Kind: sql.ValueKindToColumnKind(f.Value.Kind)}
			}
			colsSet = true
		}
		out = append(out, sql.Row{Fields: fields})
	}
	if !colsSet {
		// Zero rows: still resolve column names (types default to string).
		for _, item := range plan.Projection {
			if item.Wildcard {
				continue
			}
			cols = append(cols, ColumnInfo{Name: projectionColumnName(item), Kind: sql.ColString})
		}
	}
	return out, cols, nil
}

func expandWildcard(row sql.Row, wildcardTable string, aliasMap map[string]string) []sql.Field {
	real := wildcardTable
	if r, ok := aliasMap[wildcardTable]; ok {
		real = r
	}
	var out []sql.Field
	for _, f := range row.Fields {
		if wildcardTable == "" {
			if !strings.Contains(f.Column, ".") {
				out = append(out, f)
			}
			continue
		}
		if strings.HasPrefix(f.Column, real+".") {
			out = append(out, sql.Field{Column: strings.TrimPrefix(f.Column, real+"."), Value: f.Value})
		}
	}
	return out
}

func projectionColumnName(item sql.SelectItem) string {
	if item.Alias != "" {
		return item.Alias
	}
	n := item.Expr.Node()
	switch n.Kind {
	case sql.ExprColumnRef:
		return n.Column
	case sql.ExprCall:
		return strings.ToLower(n.Func)
	default:
		return "?column?"
	}
}
