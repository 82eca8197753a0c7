package planner

import (
	"goreldb/internal/errs"
	"goreldb/internal/sql"
)

// BuildSelectPlan lowers a SELECT statement into its pipeline, detecting
// aggregation during planning by inspecting the projection and HAVING
// clause (the resolved aggregate-detection strategy: the optimizer, not
// the executor, decides whether a Group/GroupAll stage is needed).
func BuildSelectPlan(stmt *sql.SelectStmt) (*Plan, error) {
	plan := &Plan{Projection: stmt.Columns, AliasMap: map[string]string{}}

	// A FROM-less SELECT (e.g. "SELECT 1+NULL") has no From/Join stages at
	// all: the pipeline starts empty and the executor evaluates the
	// projection against a single synthetic row.
	if stmt.From != nil {
		fromItem, err := fromSourceItem(stmt.From, PlanFrom)
		if err != nil {
			return nil, err
		}
		plan.Items = append(plan.Items, fromItem)
		recordAlias(plan.AliasMap, *stmt.From)

		for _, j := range stmt.Joins {
			joinItem, err := joinItem(j)
			if err != nil {
				return nil, err
			}
			plan.Items = append(plan.Items, joinItem)
			recordAlias(plan.AliasMap, j.Rhs)
		}
	}

	if stmt.Where != nil {
		plan.Items = append(plan.Items, PlanItem{Kind: PlanFilter, Predicate: *stmt.Where})
	}

	hasAggregate := len(stmt.GroupBy) > 0 || projectionHasAggregate(stmt.Columns) || (stmt.Having != nil && containsAggregate(*stmt.Having))
	plan.HasAggregate = hasAggregate
	if hasAggregate {
		groupItem := PlanItem{GroupBy: stmt.GroupBy}
		if len(stmt.GroupBy) > 0 {
			groupItem.Kind = PlanGroup
		} else {
			groupItem.Kind = PlanGroupAll
		}
		plan.Items = append(plan.Items, groupItem)
		if stmt.Having != nil {
			plan.Items = append(plan.Items, PlanItem{Kind: PlanFilter, Predicate: *stmt.Having})
		}
	}

	if len(stmt.OrderBy) > 0 {
		plan.Items = append(plan.Items, PlanItem{Kind: PlanOrder, OrderBy: stmt.OrderBy})
	}

	if stmt.Limit != nil || stmt.Offset != nil {
		plan.Items = append(plan.Items, PlanItem{Kind: PlanLimitOffset, Limit: stmt.Limit, Offset: stmt.Offset})
	}

	return plan, nil
}

// BuildUpdatePlan lowers UPDATE into UpdateFrom->Filter.
func BuildUpdatePlan(stmt *sql.UpdateStmt) (*Plan, error) {
	plan := &Plan{
		Items:       []PlanItem{{Kind: PlanUpdateFrom, Table: stmt.Table}},
		Assignments: stmt.Assignments,
	}
	if stmt.Where != nil {
		plan.Items = append(plan.Items, PlanItem{Kind: PlanFilter, Predicate: *stmt.Where})
	}
	return plan, nil
}

// BuildDeletePlan lowers DELETE into DeleteFrom->Filter.
func BuildDeletePlan(stmt *sql.DeleteStmt) (*Plan, error) {
	plan := &Plan{
		Items: []PlanItem{{Kind: PlanDeleteFrom, Table: stmt.Table}},
	}
	if stmt.Where != nil {
		plan.Items = append(plan.Items, PlanItem{Kind: PlanFilter, Predicate: *stmt.Where})
	}
	return plan, nil
}

func fromSourceItem(src *sql.FromSource, kind PlanItemKind) (PlanItem, error) {
	switch src.Kind {
	case sql.FromTable:
		return PlanItem{Kind: kind, Table: src.Table, Alias: src.Alias}, nil
	case sql.FromSubquery:
		subPlan, err := BuildSelectPlan(src.Subquery)
		if err != nil {
			return PlanItem{}, err
		}
		k := PlanSubquery
		return PlanItem{Kind: k, SubqueryPlan: subPlan, SubqueryStmt: src.Subquery, Alias: src.Alias}, nil
	default:
		return PlanItem{}, errs.NewExecuteError("unknown FROM source kind", nil)
	}
}

func joinItem(j sql.JoinClause) (PlanItem, error) {
	item := PlanItem{Kind: PlanJoin, JoinKind: j.Kind, On: j.On}
	switch j.Rhs.Kind {
	case sql.FromTable:
		item.RhsTable = j.Rhs.Table
		item.RhsAlias = j.Rhs.Alias
	case sql.FromSubquery:
		subPlan, err := BuildSelectPlan(j.Rhs.Subquery)
		if err != nil {
			return PlanItem{}, err
		}
		item.RhsSubquery = subPlan
		item.RhsAlias = j.Rhs.Alias
	default:
		return PlanItem{}, errs.NewExecuteError("unknown JOIN source kind", nil)
	}
	return item, nil
}

func recordAlias(aliasMap map[string]string, src sql.FromSource) {
	if src.Alias == "" || src.Kind != sql.FromTable {
		return
	}
	aliasMap[src.Alias] = src.Table.Table
}

func projectionHasAggregate(items []sql.SelectItem) bool {
	for _, item := range items {
		if item.Wildcard {
			continue
		}
		if containsAggregate(item.Expr) {
			return true
		}
	}
	return false
}

// containsAggregate walks an expression tree looking for any call to a
// function in the fixed aggregate catalog.
func containsAggregate(e sql.Expression) bool {
	n := e.Node()
	switch n.Kind {
	case sql.ExprCall:
		if sql.IsAggregateCall(n.Func) {
			return true
		}
		for _, arg := range e.CallArgs() {
			if containsAggregate(arg) {
				return true
			}
		}
		return false
	case sql.ExprUnary:
		return containsAggregate(e.Operand())
	case sql.ExprBinary, sql.ExprLogical:
		return containsAggregate(e.Left()) || containsAggregate(e.Right())
	case sql.ExprIs:
		return containsAggregate(e.Operand())
	case sql.ExprLike:
		return containsAggregate(e.Left()) || containsAggregate(e.Right())
	case sql.ExprIn:
		if containsAggregate(e.Left()) {
			return true
		}
		for _, m := range e.SetMembers() {
			if containsAggregate(m) {
				return true
			}
		}
		return false
	case sql.ExprBetween:
		return containsAggregate(e.Left()) || containsAggregate(e.Low()) || containsAggregate(e.High())
	case sql.ExprParen:
		return containsAggregate(e.Inner())
	default:
		return false
	}
}
