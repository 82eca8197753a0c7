// Package reducer evaluates a SQL expression tree against an optional
// current row and alias map, reducing it to a single typed sql.Value.
// Evaluation is pure: given a fixed (row, alias_map) and expression, it
// reads no external state and always yields the same value.
package reducer

import (
	"regexp"
	"strings"

	"goreldb/internal/errs"
	"goreldb/internal/sql"
)

// ReduceContext carries everything the reducer needs to resolve column
// references and dispatch aggregate functions.
type ReduceContext struct {
	// Row is the current row being evaluated against, nil for a FROM-less
	// SELECT (e.g. `SELECT 1+NULL`).
	Row *sql.Row
	// AliasMap maps a FROM/JOIN alias to its underlying table name, so
	// `t.id` resolves even when the row's fields are keyed by real table
	// name rather than alias.
	AliasMap map[string]string
	// ConfigColumns offers declared-type hints keyed by "table.column" or
	// bare column name. Reduce does not read it. May be nil.
	ConfigColumns map[string]sql.DataType
	// Bucket is the set of rows belonging to the current Group/GroupAll
	// bucket; nil outside an aggregation context. Aggregate function
	// calls are only legal when Bucket is non-nil.
	Bucket []sql.Row
	// RunSubquery executes a scalar subquery and returns its result rows;
	// supplied by the executor, which owns plan execution. The reducer
	// itself never touches storage.
	RunSubquery func(*sql.SelectStmt) ([]sql.Row, error)
}

// TotalCount is the number of rows in the current aggregation bucket.
func (c ReduceContext) TotalCount() int { return len(c.Bucket) }

// Reduce evaluates expr under ctx to a typed value, or a TypeError/
// ExecuteError on failure.
func Reduce(ctx ReduceContext, expr sql.Expression) (sql.Value, error) {
	n := expr.Node()
	switch n.Kind {
	case sql.ExprLiteral:
		return n.Literal, nil
	case sql.ExprColumnRef:
		return reduceColumnRef(ctx, n.Table, n.Column)
	case sql.ExprUnary:
		return reduceUnary(ctx, n.UnaryOp, expr.Operand())
	case sql.ExprBinary:
		return reduceBinary(ctx, n.BinOp, expr.Left(), expr.Right())
	case sql.ExprLogical:
		return reduceLogical(ctx, n.LogOp, expr.Left(), expr.Right())
	case sql.ExprIs:
		return reduceIsNull(ctx, expr.Operand(), n.Not)
	case sql.ExprLike:
		return reduceLike(ctx, expr.Left(), expr.Right(), n.Not)
	case sql.ExprIn:
		return reduceIn(ctx, expr.Left(), expr.SetMembers(), n.Not)
	case sql.ExprBetween:
		return reduceBetween(ctx, expr.Left(), expr.Low(), expr.High(), n.Not)
	case sql.ExprCall:
		return reduceCall(ctx, n.Func, expr.CallArgs())
	case sql.ExprSubquery:
		return reduceSubquery(ctx, n.Subquery)
	case sql.ExprParen:
		return Reduce(ctx, expr.Inner())
	default:
		return sql.Value{}, errs.NewTypeError("unknown expression kind", nil)
	}
}

func reduceColumnRef(ctx ReduceContext, table, column string) (sql.Value, error) {
	if ctx.Row == nil {
		return sql.Value{}, errs.NewExecuteError("column reference with no current row: "+qualify(table, column), nil)
	}
	candidates := columnCandidates(ctx, table, column)
	for _, name := range candidates {
		if v, ok := ctx.Row.Get(name); ok {
			return v, nil
		}
	}
	return sql.Value{}, errs.NewExecuteError("column not found: "+qualify(table, column), nil)
}

func columnCandidates(ctx ReduceContext, table, column string) []string {
	var out []string
	if table != "" {
		out = append(out, table+"."+column)
		if real, ok := ctx.AliasMap[table]; ok && real != table {
			out = append(out, real+"."+column)
		}
	}
	out = append(out, column)
	return out
}

func qualify(table, column string) string {
	if table == "" {
		return column
	}
	return table + "." + column
}

func isNumeric(v sql.Value) bool { return v.Kind == sql.ValInt || v.Kind == sql.ValFloat }

func asFloat(v sql.Value) float64 {
	if v.Kind == sql.ValInt {
		return float64(v.I)
	}
	return v.F
}

func reduceUnary(ctx ReduceContext, op sql.UnaryOp, operand sql.Expression) (sql.Value, error) {
	v, err := Reduce(ctx, operand)
	if err != nil {
		return sql.Value{}, err
	}
	switch op {
	case sql.OpPos:
		return v, nil
	case sql.OpNeg:
		if v.IsNull() {
			return sql.NullValue(), nil
		}
		switch v.Kind {
		case sql.ValInt:
			return sql.IntValue(-v.I), nil
		case sql.ValFloat:
			return sql.FloatValue(-v.F), nil
		default:
			return sql.Value{}, errs.NewTypeError("unary minus requires a numeric operand", nil)
		}
	case sql.OpNot:
		if v.IsNull() {
			return sql.NullValue(), nil
		}
		if v.Kind != sql.ValBool {
			return sql.Value{}, errs.NewTypeError("NOT requires a boolean operand", nil)
		}
		return sql.BoolValue(!v.B), nil
	default:
		return sql.Value{}, errs.NewTypeError("unknown unary operator", nil)
	}
}

func reduceBinary(ctx ReduceContext, op sql.BinaryOp, leftExpr, rightExpr sql.Expression) (sql.Value, error) {
	left, err := Reduce(ctx, leftExpr)
	if err != nil {
		return sql.Value{}, err
	}
	right, err := Reduce(ctx, rightExpr)
	if err != nil {
		return sql.Value{}, err
	}
	if op.IsComparison() {
		return reduceComparison(op, left, right)
	}
	return reduceArithmetic(op, left, right)
}

func reduceArithmetic(op sql.BinaryOp, left, right sql.Value) (sql.Value, error) {
	if left.IsNull() || right.IsNull() {
		return sql.NullValue(), nil
	}
	if !isNumeric(left) || !isNumeric(right) {
		return sql.Value{}, errs.NewTypeError("arithmetic requires numeric operands", nil)
	}
	bothInt := left.Kind == sql.ValInt && right.Kind == sql.ValInt
	if bothInt {
		l, r := left.I, right.I
		switch op {
		case sql.OpAdd:
			return sql.IntValue(l + r), nil
		case sql.OpSub:
			return sql.IntValue(l - r), nil
		case sql.OpMul:
			return sql.IntValue(l * r), nil
		case sql.OpDiv:
			if r == 0 {
				return sql.Value{}, errs.NewExecuteError("division by zero", nil)
			}
			return sql.IntValue(l / r), nil
		}
	}
	l, r := asFloat(left), asFloat(right)
	switch op {
	case sql.OpAdd:
		return sql.FloatValue(l + r), nil
	case sql.OpSub:
		return sql.FloatValue(l - r), nil
	case sql.OpMul:
		return sql.FloatValue(l * r), nil
	case sql.OpDiv:
		if r == 0 {
			return sql.Value{}, errs.NewExecuteError("division by zero", nil)
		}
		return sql.FloatValue(l / r), nil
	}
	return sql.Value{}, errs.NewTypeError("unknown arithmetic operator", nil)
}

func reduceComparison(op sql.BinaryOp, left, right sql.Value) (sql.Value, error) {
	if left.IsNull() || right.IsNull() {
		return sql.NullValue(), nil
	}
	var cmp int
	switch {
	case isNumeric(left) && isNumeric(right):
		l, r := asFloat(left), asFloat(right)
		switch {
		case l < r:
			cmp = -1
		case l > r:
			cmp = 1
		default:
			cmp = 0
		}
	case left.Kind == sql.ValString && right.Kind == sql.ValString:
		cmp = strings.Compare(left.S, right.S)
	case left.Kind == sql.ValBool && right.Kind == sql.ValBool:
		switch {
		case left.B == right.B:
			cmp = 0
		case !left.B && right.B:
			cmp = -1
		default:
			cmp = 1
		}
	default:
		return sql.Value{}, errs.NewTypeError("cannot compare incompatible types", nil)
	}
	var result bool
	switch op {
	case sql.OpLt:
		result = cmp < 0
	case sql.OpGt:
		result = cmp > 0
	case sql.OpLe:
		result = cmp <= 0
	case sql.OpGe:
		result = cmp >= 0
	case sql.OpEq:
		result = cmp == 0
	case sql.OpNe:
		result = cmp != 0
	default:
		return sql.Value{}, errs.NewTypeError("unknown comparison operator", nil)
	}
	return sql.BoolValue(result), nil
}

func reduceLogical(ctx ReduceContext, op sql.LogicalOp, leftExpr, rightExpr sql.Expression) (sql.Value, error) {
	left, err := Reduce(ctx, leftExpr)
	if err != nil {
		return sql.Value{}, err
	}
	right, err := Reduce(ctx, rightExpr)
	if err != nil {
		return sql.Value{}, err
	}
	if err := requireBoolOrNull(left); err != nil {
		return sql.Value{}, err
	}
	if err := requireBoolOrNull(right); err != nil {
		return sql.Value{}, err
	}
	switch op {
	case sql.OpAnd:
		return threeValuedAnd(left, right), nil
	case sql.OpOr:
		return threeValuedOr(left, right), nil
	default:
		return sql.Value{}, errs.NewTypeError("unknown logical operator", nil)
	}
}

func requireBoolOrNull(v sql.Value) error {
	if v.IsNull() || v.Kind == sql.ValBool {
		return nil
	}
	return errs.NewTypeError("logical operator requires a boolean operand", nil)
}

func threeValuedAnd(l, r sql.Value) sql.Value {
	if l.Kind == sql.ValBool && !l.B {
		return sql.BoolValue(false)
	}
	if r.Kind == sql.ValBool && !r.B {
		return sql.BoolValue(false)
	}
	if l.IsNull() || r.IsNull() {
		return sql.NullValue()
	}
	return sql.BoolValue(true)
}

func threeValuedOr(l, r sql.Value) sql.Value {
	if l.Kind == sql.ValBool && l.B {
		return sql.BoolValue(true)
	}
	if r.Kind == sql.ValBool && r.B {
		return sql.BoolValue(true)
	}
	if l.IsNull() || r.IsNull() {
		return sql.NullValue()
	}
	return sql.BoolValue(false)
}

func reduceIsNull(ctx ReduceContext, operand sql.Expression, not bool) (sql.Value, error) {
	v, err := Reduce(ctx, operand)
	if err != nil {
		return sql.Value{}, err
	}
	result := v.IsNull()
	if not {
		result = !result
	}
	return sql.BoolValue(result), nil
}

func reduceLike(ctx ReduceContext, subjectExpr, patternExpr sql.Expression, not bool) (sql.Value, error) {
	subject, err := Reduce(ctx, subjectExpr)
	if err != nil {
		return sql.Value{}, err
	}
	pattern, err := Reduce(ctx, patternExpr)
	if err != nil {
		return sql.Value{}, err
	}
	if subject.IsNull() || pattern.IsNull() {
		return sql.NullValue(), nil
	}
	if subject.Kind != sql.ValString || pattern.Kind != sql.ValString {
		return sql.Value{}, errs.NewTypeError("LIKE requires string operands", nil)
	}
	re, err := likePatternToRegexp(pattern.S)
	if err != nil {
		return sql.Value{}, errs.NewTypeError("invalid LIKE pattern", err)
	}
	matched := re.MatchString(subject.S)
	if not {
		matched = !matched
	}
	return sql.BoolValue(matched), nil
}

// likePatternToRegexp translates SQL LIKE wildcards (`%` any run, `_` any
// single char) into an anchored regexp, escaping every other rune.
func likePatternToRegexp(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return regexp.Compile(sb.String())
}

func reduceIn(ctx ReduceContext, subjectExpr sql.Expression, set []sql.Expression, not bool) (sql.Value, error) {
	subject, err := Reduce(ctx, subjectExpr)
	if err != nil {
		return sql.Value{}, err
	}
	if subject.IsNull() {
		return sql.NullValue(), nil
	}
	sawNull := false
	matched := false
	for _, member := range set {
		v, err := Reduce(ctx, member)
		if err != nil {
			return sql.Value{}, err
		}
		if v.IsNull() {
			sawNull = true
			continue
		}
		cmp, err := reduceComparison(sql.OpEq, subject, v)
		if err != nil {
			return sql.Value{}, err
		}
		if cmp.Kind == sql.ValBool && cmp.B {
			matched = true
		}
	}
	var result sql.Value
	switch {
	case matched:
		result = sql.BoolValue(true)
	case sawNull:
		result = sql.NullValue()
	default:
		result = sql.BoolValue(false)
	}
	if not {
		if result.IsNull() {
			return result, nil
		}
		return sql.BoolValue(!result.B), nil
	}
	return result, nil
}

func reduceBetween(ctx ReduceContext, subjectExpr, lowExpr, highExpr sql.Expression, not bool) (sql.Value, error) {
	geLow, err := reduceComparison2(ctx, sql.OpGe, subjectExpr, lowExpr)
	if err != nil {
		return sql.Value{}, err
	}
	leHigh, err := reduceComparison2(ctx, sql.OpLe, subjectExpr, highExpr)
	if err != nil {
		return sql.Value{}, err
	}
	result := threeValuedAnd(geLow, leHigh)
	if not {
		if result.IsNull() {
			return result, nil
		}
		return sql.BoolValue(!result.B), nil
	}
	return result, nil
}

func reduceComparison2(ctx ReduceContext, op sql.BinaryOp, a, b sql.Expression) (sql.Value, error) {
	l, err := Reduce(ctx, a)
	if err != nil {
		return sql.Value{}, err
	}
	r, err := Reduce(ctx, b)
	if err != nil {
		return sql.Value{}, err
	}
	return reduceComparison(op, l, r)
}

func reduceSubquery(ctx ReduceContext, stmt *sql.SelectStmt) (sql.Value, error) {
	if ctx.RunSubquery == nil {
		return sql.Value{}, errs.NewExecuteError("subqueries are not available in this context", nil)
	}
	rows, err := ctx.RunSubquery(stmt)
	if err != nil {
		return sql.Value{}, err
	}
	if len(rows) == 0 {
		return sql.NullValue(), nil
	}
	if len(rows) > 1 {
		return sql.Value{}, errs.NewExecuteError("scalar subquery returned more than one row", nil)
	}
	if len(rows[0].Fields) != 1 {
		return sql.Value{}, errs.NewExecuteError("scalar subquery must yield exactly one column", nil)
	}
	return rows[0].Fields[0].Value, nil
}

func reduceCall(ctx ReduceContext, name string, args []sql.Expression) (sql.Value, error) {
	if sql.IsAggregateCall(name) {
		if ctx.Bucket == nil {
			return sql.Value{}, errs.NewExecuteError(name+" is only legal inside GROUP BY/aggregation", nil)
		}
		return reduceAggregate(ctx, name, args)
	}
	switch name {
	case "NULLIF":
		return reduceNullif(ctx, args)
	case "COALESCE":
		return reduceCoalesce(ctx, args)
	case "GREATEST":
		return reduceGreatestLeast(ctx, args, true)
	case "LEAST":
		return reduceGreatestLeast(ctx, args, false)
	default:
		return sql.Value{}, errs.NewExecuteError("unknown function: "+name, nil)
	}
}

func reduceNullif(ctx ReduceContext, args []sql.Expression) (sql.Value, error) {
	if len(args) != 2 {
		return sql.Value{}, errs.NewExecuteError("NULLIF requires exactly 2 arguments", nil)
	}
	a, err := Reduce(ctx, args[0])
	if err != nil {
		return sql.Value{}, err
	}
	b, err := Reduce(ctx, args[1])
	if err != nil {
		return sql.Value{}, err
	}
	if !a.IsNull() && !b.IsNull() {
		cmp, err := reduceComparison(sql.OpEq, a, b)
		if err == nil && cmp.Kind == sql.ValBool && cmp.B {
			return sql.NullValue(), nil
		}
	}
	return a, nil
}

func reduceCoalesce(ctx ReduceContext, args []sql.Expression) (sql.Value, error) {
	for _, a := range args {
		v, err := Reduce(ctx, a)
		if err != nil {
			return sql.Value{}, err
		}
		if !v.IsNull() {
			return v, nil
		}
	}
	return sql.NullValue(), nil
}

func reduceGreatestLeast(ctx ReduceContext, args []sql.Expression, greatest bool) (sql.Value, error) {
	var best sql.Value
	haveBest := false
	for _, a := range args {
		v, err := Reduce(ctx, a)
		if err != nil {
			return sql.Value{}, err
		}
		if v.IsNull() {
			continue
		}
		if !haveBest {
			best = v
			haveBest = true
			continue
		}
		cmp, err := reduceComparison(sql.OpLt, v, best)
		if err != nil {
			return sql.Value{}, err
		}
		vLess := cmp.Kind == sql.ValBool && cmp.B
		if (greatest && !vLess) || (!greatest && vLess) {
			best = v
		}
	}
	if !haveBest {
		return sql.NullValue(), nil
	}
	return best, nil
}

func reduceAggregate(ctx ReduceContext, name string, args []sql.Expression) (sql.Value, error) {
	rowCtx := func(row sql.Row) ReduceContext {
		c := ctx
		r := row
		c.Row = &r
		c.Bucket = nil
		return c
	}

	switch name {
	case "COUNT":
		if len(args) == 1 && isCountStar(args[0]) {
			return sql.IntValue(int64(len(ctx.Bucket))), nil
		}
		n := int64(0)
		for _, row := range ctx.Bucket {
			v, err := Reduce(rowCtx(row), args[0])
			if err != nil {
				return sql.Value{}, err
			}
			if !v.IsNull() {
				n++
			}
		}
		return sql.IntValue(n), nil
	case "SUM", "AVG":
		sum := 0.0
		isFloat := false
		n := 0
		for _, row := range ctx.Bucket {
			v, err := Reduce(rowCtx(row), args[0])
			if err != nil {
				return sql.Value{}, err
			}
			if v.IsNull() {
				continue
			}
			if !isNumeric(v) {
				return sql.Value{}, errs.NewTypeError(name+" requires a numeric argument", nil)
			}
			if v.Kind == sql.ValFloat {
				isFloat = true
			}
			sum += asFloat(v)
			n++
		}
		if n == 0 {
			return sql.NullValue(), nil
		}
		if name == "AVG" {
			return sql.FloatValue(sum / float64(n)), nil
		}
		if isFloat {
			return sql.FloatValue(sum), nil
		}
		return sql.IntValue(int64(sum)), nil
	case "MAX", "MIN":
		var best sql.Value
		have := false
		for _, row := range ctx.Bucket {
			v, err := Reduce(rowCtx(row), args[0])
			if err != nil {
				return sql.Value{}, err
			}
			if v.IsNull() {
				continue
			}
			if !have {
				best = v
				have = true
				continue
			}
			cmp, err := reduceComparison(sql.OpLt, v, best)
			if err != nil {
				return sql.Value{}, err
			}
			vLess := cmp.Kind == sql.ValBool && cmp.B
			if (name == "MAX" && !vLess) || (name == "MIN" && vLess) {
				best = v
			}
		}
		if !have {
			return sql.NullValue(), nil
		}
		return best, nil
	case "EVERY":
		result := true
		any := false
		for _, row := range ctx.Bucket {
			v, err := Reduce(rowCtx(row), args[0])
			if err != nil {
				return sql.Value{}, err
			}
			if v.IsNull() {
				continue
			}
			if v.Kind != sql.ValBool {
				return sql.Value{}, errs.NewTypeError("EVERY requires a boolean argument", nil)
			}
			any = true
			if !v.B {
				result = false
			}
		}
		if !any {
			return sql.NullValue(), nil
		}
		return sql.BoolValue(result), nil
	case "ARRAY_AGG":
		var parts []string
		for _, row := range ctx.Bucket {
			v, err := Reduce(rowCtx(row), args[0])
			if err != nil {
				return sql.Value{}, err
			}
			parts = append(parts, v.String())
		}
		return sql.StringValue("[" + strings.Join(parts, ",") + "]"), nil
	case "STRING_AGG":
		if len(args) != 2 {
			return sql.Value{}, errs.NewExecuteError("STRING_AGG requires exactly 2 arguments", nil)
		}
		sep, err := Reduce(ctx, args[1])
		if err != nil {
			return sql.Value{}, err
		}
		var parts []string
		for _, row := range ctx.Bucket {
			v, err := Reduce(rowCtx(row), args[0])
			if err != nil {
				return sql.Value{}, err
			}
			if v.IsNull() {
				continue
			}
			parts = append(parts, v.String())
		}
		return sql.StringValue(strings.Join(parts, sep.String())), nil
	default:
		return sql.Value{}, errs.NewExecuteError("unknown aggregate: "+name, nil)
	}
}

func isCountStar(e sql.Expression) bool {
	n := e.Node()
	return n.Kind == sql.ExprColumnRef && n.Column == "*"
}

// GroupKey computes a stable, comparable string key for a row under a set
// of GROUP BY expressions, used by the executor's Group stage to bucket
// rows without depending on the reducer's internals directly.
func GroupKey(ctx ReduceContext, row sql.Row, groupBy []sql.Expression) (string, error) {
	c := ctx
	c.Row = &row
	c.Bucket = nil
	parts := make([]string, len(groupBy))
	for i, e := range groupBy {
		v, err := Reduce(c, e)
		if err != nil {
			return "", err
		}
		parts[i] = v.String()
	}
	return strings.Join(parts, "\x1f"), nil
}
