package sql

// ExprKind tags the variant of an Expr node.
type ExprKind int

const (
	ExprLiteral ExprKind = iota
	ExprColumnRef
	ExprUnary
	ExprBinary
	ExprLogical
	ExprIs
	ExprLike
	ExprIn
	ExprBetween
	ExprCall
	ExprSubquery
	ExprParen
)

type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpPos
	OpNot
)

type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpLt
	OpGt
	OpLe
	OpGe
	OpEq
	OpNe
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpLt:
		return "<"
	case OpGt:
		return ">"
	case OpLe:
		return "<="
	case OpGe:
		return ">="
	case OpEq:
		return "="
	case OpNe:
		return "<>"
	default:
		return "?"
	}
}

func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpLt, OpGt, OpLe, OpGe, OpEq, OpNe:
		return true
	default:
		return false
	}
}

type LogicalOp int

const (
	OpAnd LogicalOp = iota
	OpOr
)

// Expr is one node of an expression tree. Children are referenced by index
// into the owning ExprArena rather than by pointer, so that an entire
// expression can be cloned, serialized, or walked without following
// pointers across allocations.
type Expr struct {
	Kind ExprKind

	// ExprLiteral
	Literal Value

	// ExprColumnRef: Table is the table name or alias, empty if unqualified.
	Table  string
	Column string

	// ExprUnary
	UnaryOp UnaryOp
	Operand int

	// ExprBinary
	BinOp BinaryOp
	Left  int
	Right int

	// ExprLogical
	LogOp LogicalOp

	// ExprIs: IS [NOT] NULL only; IS TRUE / IS FALSE are not parsed.
	// ExprLike: [NOT] LIKE, Left is the subject, Right is the pattern.
	// ExprIn: [NOT] IN, Left is the subject, Set holds the candidate list.
	// ExprBetween: [NOT] BETWEEN, Left is the subject, Low/High bound it.
	Not    bool
	IsWhat Value // for ExprIs: always NullValue(); the reducer does not read it
	Set    []int
	Low    int
	High   int

	// ExprCall
	Func string
	Args []int

	// ExprSubquery
	Subquery *SelectStmt

	// ExprParen
	Inner int
}

// ExprArena owns the nodes of one or more expression trees built during
// parsing. Nodes are never removed; indices remain stable for the arena's
// lifetime.
type ExprArena struct {
	Nodes []Expr
}

// Add appends a node and returns its index.
func (a *ExprArena) Add(e Expr) int {
	a.Nodes = append(a.Nodes, e)
	return len(a.Nodes) - 1
}

func (a *ExprArena) Get(i int) Expr { return a.Nodes[i] }

// Expression is a root reference into an arena: the externally-visible
// handle planner/reducer code actually passes around.
type Expression struct {
	Arena *ExprArena
	Root  int
}

func (e Expression) Node() Expr { return e.Arena.Get(e.Root) }

func (e Expression) at(i int) Expression { return Expression{Arena: e.Arena, Root: i} }

// Left/Right/Operand/Inner/Low/High return the sub-expression rooted at
// the corresponding child index of the current node.
func (e Expression) Left() Expression    { return e.at(e.Node().Left) }
func (e Expression) Right() Expression   { return e.at(e.Node().Right) }
func (e Expression) Operand() Expression { return e.at(e.Node().Operand) }
func (e Expression) Inner() Expression   { return e.at(e.Node().Inner) }
func (e Expression) Low() Expression     { return e.at(e.Node().Low) }
func (e Expression) High() Expression    { return e.at(e.Node().High) }

func (e Expression) SetMembers() []Expression {
	n := e.Node()
	out := make([]Expression, len(n.Set))
	for i, idx := range n.Set {
		out[i] = e.at(idx)
	}
	return out
}

func (e Expression) CallArgs() []Expression {
	n := e.Node()
	out := make([]Expression, len(n.Args))
	for i, idx := range n.Args {
		out[i] = e.at(idx)
	}
	return out
}

// Builder helpers used by both the parser and tests to construct small
// expression trees without hand-managing arena indices.

func NewExprArena() *ExprArena { return &ExprArena{} }

func LitExpr(a *ExprArena, v Value) Expression {
	return Expression{Arena: a, Root: a.Add(Expr{Kind: ExprLiteral, Literal: v})}
}

func ColExpr(a *ExprArena, table, column string) Expression {
	return Expression{Arena: a, Root: a.Add(Expr{Kind: ExprColumnRef, Table: table, Column: column})}
}

func UnaryExpr(a *ExprArena, op UnaryOp, operand Expression) Expression {
	return Expression{Arena: a, Root: a.Add(Expr{Kind: ExprUnary, UnaryOp: op, Operand: operand.Root})}
}

func BinaryExpr(a *ExprArena, op BinaryOp, left, right Expression) Expression {
	return Expression{Arena: a, Root: a.Add(Expr{Kind: ExprBinary, BinOp: op, Left: left.Root, Right: right.Root})}
}

func LogicalExpr(a *ExprArena, op LogicalOp, left, right Expression) Expression {
	return Expression{Arena: a, Root: a.Add(Expr{Kind: ExprLogical, LogOp: op, Left: left.Root, Right: right.Root})}
}

// IsNullExpr builds `<operand> IS [NOT] NULL`.
func IsNullExpr(a *ExprArena, operand Expression, not bool) Expression {
	return Expression{Arena: a, Root: a.Add(Expr{Kind: ExprIs, Operand: operand.Root, Not: not, IsWhat: NullValue()})}
}

func LikeExpr(a *ExprArena, subject, pattern Expression, not bool) Expression {
	return Expression{Arena: a, Root: a.Add(Expr{Kind: ExprLike, Left: subject.Root, Right: pattern.Root, Not: not})}
}

func InExpr(a *ExprArena, subject Expression, set []Expression, not bool) Expression {
	idxs := make([]int, len(set))
	for i, e := range set {
		idxs[i] = e.Root
	}
	return Expression{Arena: a, Root: a.Add(Expr{Kind: ExprIn, Left: subject.Root, Set: idxs, Not: not})}
}

func BetweenExpr(a *ExprArena, subject, low, high Expression, not bool) Expression {
	return Expression{Arena: a, Root: a.Add(Expr{Kind: ExprBetween, Left: subject.Root, Low: low.Root, High: high.Root, Not: not})}
}

func CallExpr(a *ExprArena, fn string, args []Expression) Expression {
	idxs := make([]int, len(args))
	for i, e := range args {
		idxs[i] = e.Root
	}
	return Expression{Arena: a, Root: a.Add(Expr{Kind: ExprCall, Func: fn, Args: idxs})}
}

func SubqueryExpr(a *ExprArena, sel *SelectStmt) Expression {
	return Expression{Arena: a, Root: a.Add(Expr{Kind: ExprSubquery, Subquery: sel})}
}

func ParenExpr(a *ExprArena, inner Expression) Expression {
	return Expression{Arena: a, Root: a.Add(Expr{Kind: ExprParen, Inner: inner.Root})}
}

// AggregateFunctions is the fixed catalog of functions the reducer treats
// as aggregates rather than scalar/row functions.
var AggregateFunctions = map[string]bool{
	"SUM":        true,
	"COUNT":      true,
	"MAX":        true,
	"MIN":        true,
	"AVG":        true,
	"EVERY":      true,
	"ARRAY_AGG":  true,
	"STRING_AGG": true,
}

// ScalarFunctions is the fixed catalog of non-aggregate call-form builtins.
var ScalarFunctions = map[string]bool{
	"NULLIF":   true,
	"COALESCE": true,
	"GREATEST": true,
	"LEAST":    true,
}

func IsAggregateCall(name string) bool { return AggregateFunctions[name] }
