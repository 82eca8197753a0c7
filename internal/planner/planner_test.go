package planner

import (
	"testing"

	"goreldb/internal/sql"
)

func parseSelect(t *testing.T, src string) *sql.SelectStmt {
	t.Helper()
	stmt, err := sql.Parse(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	sel, ok := stmt.(*sql.SelectStmt)
	if !ok {
		t.Fatalf("expected *sql.SelectStmt, got %T", stmt)
	}
	return sel
}

func TestPlanSimpleSelectStageOrder(t *testing.T) {
	sel := parseSelect(t, "SELECT id FROM users WHERE id > 1 ORDER BY id LIMIT 10")
	plan, err := BuildSelectPlan(sel)
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}
	wantKinds := []PlanItemKind{PlanFrom, PlanFilter, PlanOrder, PlanLimitOffset}
	assertKinds(t, plan, wantKinds)
}

func TestPlanJoinStageOrder(t *testing.T) {
	sel := parseSelect(t, "SELECT u.id FROM users u INNER JOIN orders o ON u.id = o.user_id WHERE o.total > 0")
	plan, err := BuildSelectPlan(sel)
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}
	assertKinds(t, plan, []PlanItemKind{PlanFrom, PlanJoin, PlanFilter})
	if plan.AliasMap["u"] != "users" || plan.AliasMap["o"] != "orders" {
		t.Fatalf("unexpected alias map: %+v", plan.AliasMap)
	}
}

func TestPlanGroupByDetected(t *testing.T) {
	sel := parseSelect(t, "SELECT dept, COUNT(id) FROM employees GROUP BY dept HAVING COUNT(id) > 1")
	plan, err := BuildSelectPlan(sel)
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}
	if !plan.HasAggregate {
		t.Fatalf("expected HasAggregate to be true")
	}
	assertKinds(t, plan, []PlanItemKind{PlanFrom, PlanGroup, PlanFilter})
}

func TestPlanGroupAllWithoutGroupBy(t *testing.T) {
	sel := parseSelect(t, "SELECT COUNT(id) FROM employees")
	plan, err := BuildSelectPlan(sel)
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}
	assertKinds(t, plan, []PlanItemKind{PlanFrom, PlanGroupAll})
}

func TestPlanNoGroupWithoutAggregate(t *testing.T) {
	sel := parseSelect(t, "SELECT id FROM employees")
	plan, err := BuildSelectPlan(sel)
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}
	if plan.HasAggregate {
		t.Fatalf("did not expect aggregation")
	}
	assertKinds(t, plan, []PlanItemKind{PlanFrom})
}

func TestPlanUpdateAndDelete(t *testing.T) {
	stmt, err := sql.Parse("UPDATE employees SET dept = 'eng' WHERE id = 1")
	if err != nil {
		t.Fatalf("parse update: %v", err)
	}
	up := stmt.(*sql.UpdateStmt)
	plan, err := BuildUpdatePlan(up)
	if err != nil {
		t.Fatalf("build update plan: %v", err)
	}
	assertKinds(t, plan, []PlanItemKind{PlanUpdateFrom, PlanFilter})

	stmt2, err := sql.Parse("DELETE FROM employees WHERE id = 1")
	if err != nil {
		t.Fatalf("parse delete: %v", err)
	}
	del := stmt2.(*sql.DeleteStmt)
	plan2, err := BuildDeletePlan(del)
	if err != nil {
		t.Fatalf("build delete plan: %v", err)
	}
	assertKinds(t, plan2, []PlanItemKind{PlanDeleteFrom, PlanFilter})
}

func assertKinds(t *testing.T, plan *Plan, want []PlanItemKind) {
	t.Helper()
	if len(plan.Items) != len(want) {
		t.Fatalf("expected %d stages %v, got %d: %+v", len(want), want, len(plan.Items), plan.Items)
	}
	for i, k := range want {
		if plan.Items[i].Kind != k {
			t.Fatalf("stage %d: expected %v, got %v", i, k, plan.Items[i].Kind)
		}
	}
}
