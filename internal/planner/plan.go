// Package planner lowers a parsed statement into an ordered pipeline of
// PlanItems the executor walks in sequence, per the fixed stage ordering:
// From/Subquery -> Join(s) -> Filter(WHERE) -> Group/GroupAll(+Filter for
// HAVING) -> Order -> LimitOffset for SELECT; UpdateFrom->Filter for
// UPDATE; DeleteFrom->Filter for DELETE.
package planner

import "goreldb/internal/sql"

// PlanItemKind tags the variant of one pipeline stage.
type PlanItemKind int

const (
	PlanFrom PlanItemKind = iota
	PlanSubquery
	PlanJoin
	PlanFilter
	PlanGroup
	PlanGroupAll
	PlanOrder
	PlanLimitOffset
	PlanUpdateFrom
	PlanDeleteFrom
)

func (k PlanItemKind) String() string {
	switch k {
	case PlanFrom:
		return "From"
	case PlanSubquery:
		return "Subquery"
	case PlanJoin:
		return "Join"
	case PlanFilter:
		return "Filter"
	case PlanGroup:
		return "Group"
	case PlanGroupAll:
		return "GroupAll"
	case PlanOrder:
		return "Order"
	case PlanLimitOffset:
		return "LimitOffset"
	case PlanUpdateFrom:
		return "UpdateFrom"
	case PlanDeleteFrom:
		return "DeleteFrom"
	default:
		return "?"
	}
}

// PlanItem is one stage of a pipeline. Only the fields relevant to Kind
// are populated; the executor switches on Kind to know which to read.
type PlanItem struct {
	Kind PlanItemKind

	// PlanFrom / PlanUpdateFrom / PlanDeleteFrom
	Table sql.QualifiedName
	Alias string

	// PlanSubquery
	SubqueryPlan *Plan
	SubqueryStmt *sql.SelectStmt

	// PlanJoin
	JoinKind    sql.JoinKind
	RhsTable    sql.QualifiedName
	RhsAlias    string
	RhsSubquery *Plan
	On          sql.Expression

	// PlanFilter
	Predicate sql.Expression

	// PlanGroup
	GroupBy []sql.Expression
	Having  sql.Expression

	// PlanOrder
	OrderBy []sql.OrderByItem

	// PlanLimitOffset
	Limit  *int64
	Offset *int64
}

// Plan is the full lowered pipeline for one statement, plus the metadata
// the executor needs to project a result set or apply a mutation.
type Plan struct {
	Items []PlanItem

	// SELECT-only
	Projection   []sql.SelectItem
	HasAggregate bool
	AliasMap     map[string]string

	// UPDATE-only
	Assignments []sql.Assignment

	// INSERT passthrough so the executor has a single entry point per
	// statement kind; Insert never goes through a pipeline.
}
