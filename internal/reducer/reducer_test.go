package reducer

import (
	"testing"

	"goreldb/internal/sql"
)

func TestReduceArithmeticAndComparison(t *testing.T) {
	a := sql.NewExprArena()
	expr := sql.BinaryExpr(a, sql.OpGt,
		sql.BinaryExpr(a, sql.OpAdd, sql.LitExpr(a, sql.IntValue(2)), sql.LitExpr(a, sql.IntValue(3))),
		sql.LitExpr(a, sql.IntValue(4)),
	)
	v, err := Reduce(ReduceContext{}, expr)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if v.Kind != sql.ValBool || !v.B {
		t.Fatalf("expected true, got %+v", v)
	}
}

func TestReduceNullPropagation(t *testing.T) {
	a := sql.NewExprArena()
	expr := sql.BinaryExpr(a, sql.OpAdd, sql.LitExpr(a, sql.IntValue(1)), sql.LitExpr(a, sql.NullValue()))
	v, err := Reduce(ReduceContext{}, expr)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if !v.IsNull() {
		t.Fatalf("expected null, got %+v", v)
	}
}

func TestReduceColumnRefWithAlias(t *testing.T) {
	a := sql.NewExprArena()
	expr := sql.ColExpr(a, "u", "name")
	row := sql.NewRow(sql.Field{Column: "users.name", Value: sql.StringValue("ana")})
	ctx := ReduceContext{Row: &row, AliasMap: map[string]string{"u": "users"}}
	v, err := Reduce(ctx, expr)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if v.Kind != sql.ValString || v.S != "ana" {
		t.Fatalf("unexpected value: %+v", v)
	}
}

func TestReduceLogicalThreeValued(t *testing.T) {
	a := sql.NewExprArena()
	expr := sql.LogicalExpr(a, sql.OpAnd, sql.LitExpr(a, sql.NullValue()), sql.LitExpr(a, sql.BoolValue(false)))
	v, err := Reduce(ReduceContext{}, expr)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if v.Kind != sql.ValBool || v.B {
		t.Fatalf("expected false (NULL AND false = false), got %+v", v)
	}

	expr2 := sql.LogicalExpr(a, sql.OpAnd, sql.LitExpr(a, sql.NullValue()), sql.LitExpr(a, sql.BoolValue(true)))
	v2, err := Reduce(ReduceContext{}, expr2)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if !v2.IsNull() {
		t.Fatalf("expected NULL (NULL AND true = NULL), got %+v", v2)
	}
}

func TestReduceLike(t *testing.T) {
	a := sql.NewExprArena()
	expr := sql.LikeExpr(a, sql.LitExpr(a, sql.StringValue("hello world")), sql.LitExpr(a, sql.StringValue("hello%")), false)
	v, err := Reduce(ReduceContext{}, expr)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if !v.B {
		t.Fatalf("expected LIKE match")
	}
}

func TestReduceInWithNull(t *testing.T) {
	a := sql.NewExprArena()
	subject := sql.LitExpr(a, sql.IntValue(5))
	set := []sql.Expression{sql.LitExpr(a, sql.IntValue(1)), sql.LitExpr(a, sql.NullValue())}
	expr := sql.InExpr(a, subject, set, false)
	v, err := Reduce(ReduceContext{}, expr)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if !v.IsNull() {
		t.Fatalf("expected NULL when no match but a NULL member present, got %+v", v)
	}
}

func TestReduceBetween(t *testing.T) {
	a := sql.NewExprArena()
	expr := sql.BetweenExpr(a, sql.LitExpr(a, sql.IntValue(5)), sql.LitExpr(a, sql.IntValue(1)), sql.LitExpr(a, sql.IntValue(10)), false)
	v, err := Reduce(ReduceContext{}, expr)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if !v.B {
		t.Fatalf("expected 5 BETWEEN 1 AND 10 to be true")
	}
}

func TestReduceAggregatesOverBucket(t *testing.T) {
	a := sql.NewExprArena()
	col := sql.ColExpr(a, "", "amount")
	sumExpr := sql.CallExpr(a, "SUM", []sql.Expression{col})
	countExpr := sql.CallExpr(a, "COUNT", []sql.Expression{col})

	bucket := []sql.Row{
		sql.NewRow(sql.Field{Column: "amount", Value: sql.IntValue(10)}),
		sql.NewRow(sql.Field{Column: "amount", Value: sql.IntValue(20)}),
		sql.NewRow(sql.Field{Column: "amount", Value: sql.NullValue()}),
	}
	ctx := ReduceContext{Bucket: bucket}

	sum, err := Reduce(ctx, sumExpr)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if sum.Kind != sql.ValInt || sum.I != 30 {
		t.Fatalf("expected sum 30, got %+v", sum)
	}

	count, err := Reduce(ctx, countExpr)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count.I != 2 {
		t.Fatalf("expected count 2 (NULLs excluded), got %+v", count)
	}
}

func TestReduceCoalesceAndNullif(t *testing.T) {
	a := sql.NewExprArena()
	coalesce := sql.CallExpr(a, "COALESCE", []sql.Expression{sql.LitExpr(a, sql.NullValue()), sql.LitExpr(a, sql.IntValue(7))})
	v, err := Reduce(ReduceContext{}, coalesce)
	if err != nil {
		t.Fatalf("coalesce: %v", err)
	}
	if v.I != 7 {
		t.Fatalf("expected 7, got %+v", v)
	}

	nullif := sql.CallExpr(a, "NULLIF", []sql.Expression{sql.LitExpr(a, sql.IntValue(5)), sql.LitExpr(a, sql.IntValue(5))})
	v2, err := Reduce(ReduceContext{}, nullif)
	if err != nil {
		t.Fatalf("nullif: %v", err)
	}
	if !v2.IsNull() {
		t.Fatalf("expected NULL when NULLIF args equal, got %+v", v2)
	}
}

func TestReduceDivisionByZero(t *testing.T) {
	a := sql.NewExprArena()
	expr := sql.BinaryExpr(a, sql.OpDiv, sql.LitExpr(a, sql.IntValue(1)), sql.LitExpr(a, sql.IntValue(0)))
	if _, err := Reduce(ReduceContext{}, expr); err == nil {
		t.Fatalf("expected division by zero error")
	}
}

func TestAggregateOutsideBucketFails(t *testing.T) {
	a := sql.NewExprArena()
	expr := sql.CallExpr(a, "SUM", []sql.Expression{sql.LitExpr(a, sql.IntValue(1))})
	if _, err := Reduce(ReduceContext{}, expr); err == nil {
		t.Fatalf("expected error calling aggregate outside a group context")
	}
}
