package sql

import (
	"strconv"
	"strings"
)

// Parse tokenizes and parses a single SQL statement. A trailing `;` is
// optional. This is the executor's AST producer, not a standards-complete
// SQL frontend: it covers exactly the statement and expression surface
// the executor/planner/reducer are built against.
func Parse(src string) (Statement, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	p.skipPunct(";")
	if !p.at(tokEOF) {
		return nil, newParsingError("unexpected trailing input after statement", nil)
	}
	return stmt, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) at(k tokenKind) bool { return p.cur().kind == k }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) isKeyword(kw string) bool { return p.cur().is(kw) }

func (p *parser) eatKeyword(kw string) bool {
	if p.isKeyword(kw) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expectKeyword(kw string) error {
	if !p.eatKeyword(kw) {
		return newParsingError("expected keyword "+kw+", got "+p.cur().text, nil)
	}
	return nil
}

func (p *parser) skipPunct(s string) bool {
	if p.cur().isPunct(s) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expectPunct(s string) error {
	if !p.skipPunct(s) {
		return newParsingError("expected '"+s+"', got "+p.cur().text, nil)
	}
	return nil
}

func (p *parser) expectIdent() (string, error) {
	if p.cur().kind != tokIdent {
		return "", newParsingError("expected identifier, got "+p.cur().text, nil)
	}
	t := p.advance()
	return t.raw, nil
}

func (p *parser) parseStatement() (Statement, error) {
	switch {
	case p.isKeyword("CREATE"):
		return p.parseCreate()
	case p.isKeyword("ALTER"):
		return p.parseAlter()
	case p.isKeyword("DROP"):
		return p.parseDrop()
	case p.isKeyword("INSERT"):
		return p.parseInsert()
	case p.isKeyword("SELECT"):
		sel, err := p.parseSelect()
		return sel, err
	case p.isKeyword("UPDATE"):
		return p.parseUpdate()
	case p.isKeyword("DELETE"):
		return p.parseDelete()
	case p.isKeyword("SHOW"):
		return p.parseShow()
	case p.isKeyword("DESC"), p.isKeyword("DESCRIBE"):
		return p.parseDesc()
	case p.isKeyword("USE"):
		return p.parseUse()
	case p.isKeyword("BEGIN"):
		p.advance()
		p.eatKeyword("TRANSACTION")
		return &BeginStmt{}, nil
	case p.isKeyword("COMMIT"):
		p.advance()
		return &CommitStmt{}, nil
	case p.isKeyword("ROLLBACK"):
		p.advance()
		return &RollbackStmt{}, nil
	default:
		return nil, newParsingError("unexpected token "+p.cur().text, nil)
	}
}

func (p *parser) parseQualifiedName() (QualifiedName, error) {
	first, err := p.expectIdent()
	if err != nil {
		return QualifiedName{}, err
	}
	if p.skipPunct(".") {
		second, err := p.expectIdent()
		if err != nil {
			return QualifiedName{}, err
		}
		return QualifiedName{Database: first, Table: second}, nil
	}
	return QualifiedName{Table: first}, nil
}

// --- CREATE ----------------------------------------------------------------

func (p *parser) parseCreate() (Statement, error) {
	p.advance() // CREATE
	switch {
	case p.eatKeyword("DATABASE"):
		ifNotExists := p.parseIfNotExists()
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		return &CreateDatabaseStmt{Name: name, IfNotExists: ifNotExists}, nil
	case p.isKeyword("UNIQUE") || p.isKeyword("INDEX"):
		unique := p.eatKeyword("UNIQUE")
		if err := p.expectKeyword("INDEX"); err != nil {
			return nil, err
		}
		idxName, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("ON"); err != nil {
			return nil, err
		}
		tbl, err := p.parseQualifiedName()
		if err != nil {
			return nil, err
		}
		cols, err := p.parseColumnNameList()
		if err != nil {
			return nil, err
		}
		return &CreateIndexStmt{Name: idxName, Table: tbl, Columns: cols, Unique: unique}, nil
	case p.eatKeyword("TABLE"):
		return p.parseCreateTableRest()
	default:
		return nil, newParsingError("expected DATABASE, TABLE, or INDEX after CREATE", nil)
	}
}

func (p *parser) parseIfNotExists() bool {
	if p.isKeyword("IF") {
		save := p.pos
		p.advance()
		if p.eatKeyword("NOT") && p.eatKeyword("EXISTS") {
			return true
		}
		p.pos = save
	}
	return false
}

func (p *parser) parseIfExists() bool {
	if p.isKeyword("IF") {
		save := p.pos
		p.advance()
		if p.eatKeyword("EXISTS") {
			return true
		}
		p.pos = save
	}
	return false
}

func (p *parser) parseColumnNameList() ([]string, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var cols []string
	for {
		c, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
		if p.skipPunct(",") {
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return cols, nil
}

func (p *parser) parseCreateTableRest() (Statement, error) {
	ifNotExists := p.parseIfNotExists()
	name, err := p.parseQualifiedName()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	stmt := &CreateTableStmt{Name: name, IfNotExists: ifNotExists}
	for {
		if p.isKeyword("PRIMARY") {
			p.advance()
			if err := p.expectKeyword("KEY"); err != nil {
				return nil, err
			}
			cols, err := p.parseColumnNameList()
			if err != nil {
				return nil, err
			}
			stmt.PrimaryKey = cols
		} else if p.isKeyword("UNIQUE") {
			p.advance()
			p.eatKeyword("KEY")
			cols, err := p.parseColumnNameList()
			if err != nil {
				return nil, err
			}
			stmt.UniqueKeys = append(stmt.UniqueKeys, UniqueKey{Columns: cols})
		} else if p.isKeyword("FOREIGN") {
			p.advance()
			if err := p.expectKeyword("KEY"); err != nil {
				return nil, err
			}
			cols, err := p.parseColumnNameList()
			if err != nil {
				return nil, err
			}
			if err := p.expectKeyword("REFERENCES"); err != nil {
				return nil, err
			}
			refTable, err := p.parseQualifiedName()
			if err != nil {
				return nil, err
			}
			refCols, err := p.parseColumnNameList()
			if err != nil {
				return nil, err
			}
			stmt.ForeignKeys = append(stmt.ForeignKeys, ForeignKey{Columns: cols, RefTable: refTable, RefColumns: refCols})
		} else {
			col, err := p.parseColumnDef()
			if err != nil {
				return nil, err
			}
			stmt.Columns = append(stmt.Columns, col)
			if col.PrimaryKey {
				stmt.PrimaryKey = append(stmt.PrimaryKey, col.Name)
			}
		}
		if p.skipPunct(",") {
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *parser) parseColumnDef() (Column, error) {
	name, err := p.expectIdent()
	if err != nil {
		return Column{}, err
	}
	typ, err := p.parseDataType()
	if err != nil {
		return Column{}, err
	}
	col := Column{Name: name, Type: typ}
	for {
		switch {
		case p.isKeyword("NOT"):
			p.advance()
			if err := p.expectKeyword("NULL"); err != nil {
				return Column{}, err
			}
			col.NotNull = true
		case p.eatKeyword("PRIMARY"):
			if err := p.expectKeyword("KEY"); err != nil {
				return Column{}, err
			}
			col.PrimaryKey = true
			col.NotNull = true
		case p.eatKeyword("DEFAULT"):
			arena := NewExprArena()
			expr, err := p.parseExprInto(arena)
			if err != nil {
				return Column{}, err
			}
			col.Default = &expr
		case p.eatKeyword("COMMENT"):
			if p.cur().kind != tokString {
				return Column{}, newParsingError("expected string literal after COMMENT", nil)
			}
			col.Comment = p.advance().text
		default:
			return col, nil
		}
	}
}

func (p *parser) parseDataType() (DataType, error) {
	switch {
	case p.eatKeyword("INT"), p.eatKeyword("INTEGER"), p.eatKeyword("BIGINT"):
		return Int(), nil
	case p.eatKeyword("FLOAT"), p.eatKeyword("DOUBLE"), p.eatKeyword("REAL"):
		return Float(), nil
	case p.eatKeyword("BOOL"), p.eatKeyword("BOOLEAN"):
		return Bool(), nil
	case p.eatKeyword("VARCHAR"), p.eatKeyword("TEXT"), p.eatKeyword("STRING"):
		n := 0
		if p.skipPunct("(") {
			if p.cur().kind != tokNumber {
				return DataType{}, newParsingError("expected length in VARCHAR(n)", nil)
			}
			v, _ := strconv.Atoi(p.advance().text)
			n = v
			if err := p.expectPunct(")"); err != nil {
				return DataType{}, err
			}
		}
		return Varchar(n), nil
	default:
		return DataType{}, newParsingError("unknown data type "+p.cur().text, nil)
	}
}

// --- ALTER / DROP ------------------------------------------------------------

func (p *parser) parseAlter() (Statement, error) {
	p.advance() // ALTER
	switch {
	case p.eatKeyword("DATABASE"):
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("RENAME"); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("TO"); err != nil {
			return nil, err
		}
		newName, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		return &AlterDatabaseStmt{Name: name, NewName: newName}, nil
	case p.eatKeyword("TABLE"):
		name, err := p.parseQualifiedName()
		if err != nil {
			return nil, err
		}
		action, err := p.parseAlterTableAction()
		if err != nil {
			return nil, err
		}
		return &AlterTableStmt{Name: name, Action: action}, nil
	default:
		return nil, newParsingError("expected DATABASE or TABLE after ALTER", nil)
	}
}

func (p *parser) parseAlterTableAction() (AlterTableAction, error) {
	switch {
	case p.eatKeyword("RENAME"):
		if p.eatKeyword("COLUMN") {
			from, err := p.expectIdent()
			if err != nil {
				return AlterTableAction{}, err
			}
			if err := p.expectKeyword("TO"); err != nil {
				return AlterTableAction{}, err
			}
			to, err := p.expectIdent()
			if err != nil {
				return AlterTableAction{}, err
			}
			return AlterTableAction{Kind: AlterRenameColumn, ColumnRef: from, NewName: to}, nil
		}
		if err := p.expectKeyword("TO"); err != nil {
			return AlterTableAction{}, err
		}
		newName, err := p.expectIdent()
		if err != nil {
			return AlterTableAction{}, err
		}
		return AlterTableAction{Kind: AlterRenameTable, NewName: newName}, nil
	case p.eatKeyword("ADD"):
		p.eatKeyword("COLUMN")
		col, err := p.parseColumnDef()
		if err != nil {
			return AlterTableAction{}, err
		}
		return AlterTableAction{Kind: AlterAddColumn, Column: col}, nil
	case p.eatKeyword("DROP"):
		p.eatKeyword("COLUMN")
		name, err := p.expectIdent()
		if err != nil {
			return AlterTableAction{}, err
		}
		return AlterTableAction{Kind: AlterDropColumn, ColumnRef: name}, nil
	case p.eatKeyword("ALTER"):
		p.eatKeyword("COLUMN")
		name, err := p.expectIdent()
		if err != nil {
			return AlterTableAction{}, err
		}
		if err := p.expectKeyword("TYPE"); err != nil {
			return AlterTableAction{}, err
		}
		typ, err := p.parseDataType()
		if err != nil {
			return AlterTableAction{}, err
		}
		return AlterTableAction{Kind: AlterAlterColumn, ColumnRef: name, Column: Column{Name: name, Type: typ}}, nil
	default:
		return AlterTableAction{}, newParsingError("unsupported ALTER TABLE action "+p.cur().text, nil)
	}
}

func (p *parser) parseDrop() (Statement, error) {
	p.advance() // DROP
	switch {
	case p.eatKeyword("DATABASE"):
		ifExists := p.parseIfExists()
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		return &DropDatabaseStmt{Name: name, IfExists: ifExists}, nil
	case p.eatKeyword("TABLE"):
		ifExists := p.parseIfExists()
		name, err := p.parseQualifiedName()
		if err != nil {
			return nil, err
		}
		return &DropTableStmt{Name: name, IfExists: ifExists}, nil
	default:
		return nil, newParsingError("expected DATABASE or TABLE after DROP", nil)
	}
}

// --- INSERT ------------------------------------------------------------------

func (p *parser) parseInsert() (Statement, error) {
	p.advance() // INSERT
	if err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	table, err := p.parseQualifiedName()
	if err != nil {
		return nil, err
	}
	stmt := &InsertStmt{Table: table}
	if p.cur().isPunct("(") {
		cols, err := p.parseColumnNameList()
		if err != nil {
			return nil, err
		}
		stmt.Columns = cols
	}
	if p.isKeyword("SELECT") {
		sel, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		stmt.Select = sel
		return stmt, nil
	}
	if err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}
	for {
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		arena := NewExprArena()
		var row []Expression
		for {
			e, err := p.parseExprInto(arena)
			if err != nil {
				return nil, err
			}
			row = append(row, e)
			if p.skipPunct(",") {
				continue
			}
			break
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		stmt.Values = append(stmt.Values, row)
		if p.skipPunct(",") {
			continue
		}
		break
	}
	return stmt, nil
}

// --- SELECT ------------------------------------------------------------------

func (p *parser) parseSelect() (*SelectStmt, error) {
	p.advance() // SELECT
	stmt := &SelectStmt{}
	arena := NewExprArena()
	for {
		item, err := p.parseSelectItem(arena)
		if err != nil {
			return nil, err
		}
		stmt.Columns = append(stmt.Columns, item)
		if p.skipPunct(",") {
			continue
		}
		break
	}
	// FROM is optional: a FROM-less SELECT (e.g. "SELECT 1+NULL") evaluates
	// its projection against a single synthetic row instead of a scan.
	if p.eatKeyword("FROM") {
		from, err := p.parseFromSource(arena)
		if err != nil {
			return nil, err
		}
		stmt.From = &from

		for p.isJoinStart() {
			jc, err := p.parseJoinClause(arena)
			if err != nil {
				return nil, err
			}
			stmt.Joins = append(stmt.Joins, jc)
		}
	}

	if p.eatKeyword("WHERE") {
		e, err := p.parseExprInto(arena)
		if err != nil {
			return nil, err
		}
		stmt.Where = &e
	}
	if p.eatKeyword("GROUP") {
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExprInto(arena)
			if err != nil {
				return nil, err
			}
			stmt.GroupBy = append(stmt.GroupBy, e)
			if p.skipPunct(",") {
				continue
			}
			break
		}
	}
	if p.eatKeyword("HAVING") {
		e, err := p.parseExprInto(arena)
		if err != nil {
			return nil, err
		}
		stmt.Having = &e
	}
	if p.eatKeyword("ORDER") {
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExprInto(arena)
			if err != nil {
				return nil, err
			}
			desc := false
			if p.eatKeyword("DESC") {
				desc = true
			} else {
				p.eatKeyword("ASC")
			}
			stmt.OrderBy = append(stmt.OrderBy, OrderByItem{Expr: e, Desc: desc})
			if p.skipPunct(",") {
				continue
			}
			break
		}
	}
	if p.eatKeyword("LIMIT") {
		if p.cur().kind != tokNumber {
			return nil, newParsingError("expected number after LIMIT", nil)
		}
		n, _ := strconv.ParseInt(p.advance().text, 10, 64)
		stmt.Limit = &n
	}
	if p.eatKeyword("OFFSET") {
		if p.cur().kind != tokNumber {
			return nil, newParsingError("expected number after OFFSET", nil)
		}
		n, _ := strconv.ParseInt(p.advance().text, 10, 64)
		stmt.Offset = &n
	}
	return stmt, nil
}

func (p *parser) parseSelectItem(arena *ExprArena) (SelectItem, error) {
	if p.cur().isPunct("*") {
		p.advance()
		return SelectItem{Wildcard: true}, nil
	}
	// Lookahead for `ident . *`
	if p.cur().kind == tokIdent && p.peekAt(1).isPunct(".") && p.peekAt(2).isPunct("*") {
		tbl := p.advance().raw
		p.advance() // .
		p.advance() // *
		return SelectItem{Wildcard: true, WildcardTable: tbl}, nil
	}
	e, err := p.parseExprInto(arena)
	if err != nil {
		return SelectItem{}, err
	}
	item := SelectItem{Expr: e}
	if p.eatKeyword("AS") {
		alias, err := p.expectIdent()
		if err != nil {
			return SelectItem{}, err
		}
		item.Alias = alias
	} else if p.cur().kind == tokIdent && !p.isReservedFollower() {
		item.Alias = p.advance().raw
	}
	return item, nil
}

// isReservedFollower reports whether the current identifier token is a
// keyword that can legally follow a select item/expr (so it must NOT be
// consumed as a bare alias).
func (p *parser) isReservedFollower() bool {
	switch p.cur().text {
	case "FROM", "WHERE", "GROUP", "HAVING", "ORDER", "LIMIT", "OFFSET", "AND", "OR",
		"JOIN", "INNER", "LEFT", "RIGHT", "FULL", "ON", "AS", "UNION":
		return true
	default:
		return false
	}
}

func (p *parser) peekAt(n int) token {
	idx := p.pos + n
	if idx >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[idx]
}

func (p *parser) parseFromSource(arena *ExprArena) (FromSource, error) {
	if p.cur().isPunct("(") {
		p.advance()
		sub, err := p.parseSelect()
		if err != nil {
			return FromSource{}, err
		}
		if err := p.expectPunct(")"); err != nil {
			return FromSource{}, err
		}
		src := FromSource{Kind: FromSubquery, Subquery: sub}
		src.Alias = p.parseOptionalAlias()
		return src, nil
	}
	name, err := p.parseQualifiedName()
	if err != nil {
		return FromSource{}, err
	}
	src := FromSource{Kind: FromTable, Table: name}
	src.Alias = p.parseOptionalAlias()
	return src, nil
}

func (p *parser) parseOptionalAlias() string {
	if p.eatKeyword("AS") {
		if p.cur().kind == tokIdent {
			return p.advance().raw
		}
		return ""
	}
	if p.cur().kind == tokIdent && !p.isReservedFollower() {
		return p.advance().raw
	}
	return ""
}

func (p *parser) isJoinStart() bool {
	switch p.cur().text {
	case "JOIN", "INNER", "LEFT", "RIGHT", "FULL":
		return true
	default:
		return false
	}
}

func (p *parser) parseJoinClause(arena *ExprArena) (JoinClause, error) {
	kind := JoinInner
	switch {
	case p.eatKeyword("INNER"):
		kind = JoinInner
	case p.eatKeyword("LEFT"):
		kind = JoinLeft
		p.eatKeyword("OUTER")
	case p.eatKeyword("RIGHT"):
		kind = JoinRight
		p.eatKeyword("OUTER")
	case p.eatKeyword("FULL"):
		kind = JoinFull
		p.eatKeyword("OUTER")
	}
	if err := p.expectKeyword("JOIN"); err != nil {
		return JoinClause{}, err
	}
	rhs, err := p.parseFromSource(arena)
	if err != nil {
		return JoinClause{}, err
	}
	if err := p.expectKeyword("ON"); err != nil {
		return JoinClause{}, err
	}
	on, err := p.parseExprInto(arena)
	if err != nil {
		return JoinClause{}, err
	}
	return JoinClause{Kind: kind, Rhs: rhs, On: on}, nil
}

// --- UPDATE / DELETE -----------------------------------------------------------

func (p *parser) parseUpdate() (Statement, error) {
	p.advance() // UPDATE
	table, err := p.parseQualifiedName()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}
	arena := NewExprArena()
	stmt := &UpdateStmt{Table: table}
	for {
		col, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct("="); err != nil {
			return nil, err
		}
		val, err := p.parseExprInto(arena)
		if err != nil {
			return nil, err
		}
		stmt.Assignments = append(stmt.Assignments, Assignment{Column: col, Value: val})
		if p.skipPunct(",") {
			continue
		}
		break
	}
	if p.eatKeyword("WHERE") {
		e, err := p.parseExprInto(arena)
		if err != nil {
			return nil, err
		}
		stmt.Where = &e
	}
	return stmt, nil
}

func (p *parser) parseDelete() (Statement, error) {
	p.advance() // DELETE
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	table, err := p.parseQualifiedName()
	if err != nil {
		return nil, err
	}
	stmt := &DeleteStmt{Table: table}
	if p.eatKeyword("WHERE") {
		arena := NewExprArena()
		e, err := p.parseExprInto(arena)
		if err != nil {
			return nil, err
		}
		stmt.Where = &e
	}
	return stmt, nil
}

// --- SHOW / DESC / USE -----------------------------------------------------

func (p *parser) parseShow() (Statement, error) {
	p.advance() // SHOW
	switch {
	case p.eatKeyword("DATABASES"):
		return &ShowStmt{Kind: ShowDatabases}, nil
	case p.eatKeyword("TABLES"):
		return &ShowStmt{Kind: ShowTables}, nil
	default:
		return nil, newParsingError("expected DATABASES or TABLES after SHOW", nil)
	}
}

func (p *parser) parseDesc() (Statement, error) {
	p.advance() // DESC / DESCRIBE
	name, err := p.parseQualifiedName()
	if err != nil {
		return nil, err
	}
	return &DescStmt{Table: name}, nil
}

func (p *parser) parseUse() (Statement, error) {
	p.advance() // USE
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	return &UseStmt{Database: name}, nil
}

// --- Expressions ---------------------------------------------------------
//
// Precedence (low to high), per the operator table: level 10 covers
// + - comparisons AND OR LIKE IN IS BETWEEN, evaluated strictly
// left-to-right; level 40 covers * / and binds tighter.

func (p *parser) parseExprInto(arena *ExprArena) (Expression, error) {
	return p.parseLevel10(arena)
}

func (p *parser) parseLevel10(arena *ExprArena) (Expression, error) {
	left, err := p.parseLevel40(arena)
	if err != nil {
		return Expression{}, err
	}
	for {
		switch {
		case p.cur().isPunct("+"):
			p.advance()
			right, err := p.parseLevel40(arena)
			if err != nil {
				return Expression{}, err
			}
			left = BinaryExpr(arena, OpAdd, left, right)
		case p.cur().isPunct("-"):
			p.advance()
			right, err := p.parseLevel40(arena)
			if err != nil {
				return Expression{}, err
			}
			left = BinaryExpr(arena, OpSub, left, right)
		case p.cur().isPunct("<"):
			p.advance()
			right, err := p.parseLevel40(arena)
			if err != nil {
				return Expression{}, err
			}
			left = BinaryExpr(arena, OpLt, left, right)
		case p.cur().isPunct(">"):
			p.advance()
			right, err := p.parseLevel40(arena)
			if err != nil {
				return Expression{}, err
			}
			left = BinaryExpr(arena, OpGt, left, right)
		case p.cur().isPunct("<="):
			p.advance()
			right, err := p.parseLevel40(arena)
			if err != nil {
				return Expression{}, err
			}
			left = BinaryExpr(arena, OpLe, left, right)
		case p.cur().isPunct(">="):
			p.advance()
			right, err := p.parseLevel40(arena)
			if err != nil {
				return Expression{}, err
			}
			left = BinaryExpr(arena, OpGe, left, right)
		case p.cur().isPunct("="):
			p.advance()
			right, err := p.parseLevel40(arena)
			if err != nil {
				return Expression{}, err
			}
			left = BinaryExpr(arena, OpEq, left, right)
		case p.cur().isPunct("<>"), p.cur().isPunct("!="):
			p.advance()
			right, err := p.parseLevel40(arena)
			if err != nil {
				return Expression{}, err
			}
			left = BinaryExpr(arena, OpNe, left, right)
		case p.isKeyword("AND"):
			p.advance()
			right, err := p.parseLevel40(arena)
			if err != nil {
				return Expression{}, err
			}
			left = LogicalExpr(arena, OpAnd, left, right)
		case p.isKeyword("OR"):
			p.advance()
			right, err := p.parseLevel40(arena)
			if err != nil {
				return Expression{}, err
			}
			left = LogicalExpr(arena, OpOr, left, right)
		case p.isKeyword("IS"):
			p.advance()
			not := p.eatKeyword("NOT")
			if err := p.expectKeyword("NULL"); err != nil {
				return Expression{}, err
			}
			left = IsNullExpr(arena, left, not)
		case p.isKeyword("LIKE"):
			p.advance()
			right, err := p.parseLevel40(arena)
			if err != nil {
				return Expression{}, err
			}
			left = LikeExpr(arena, left, right, false)
		case p.isKeyword("NOT") && p.peekAt(1).is("LIKE"):
			p.advance()
			p.advance()
			right, err := p.parseLevel40(arena)
			if err != nil {
				return Expression{}, err
			}
			left = LikeExpr(arena, left, right, true)
		case p.isKeyword("NOT") && p.peekAt(1).is("IN"):
			p.advance()
			p.advance()
			set, err := p.parseInSet(arena)
			if err != nil {
				return Expression{}, err
			}
			left = InExpr(arena, left, set, true)
		case p.isKeyword("IN"):
			p.advance()
			set, err := p.parseInSet(arena)
			if err != nil {
				return Expression{}, err
			}
			left = InExpr(arena, left, set, false)
		case p.isKeyword("NOT") && p.peekAt(1).is("BETWEEN"):
			p.advance()
			p.advance()
			lo, hi, err := p.parseBetweenBounds(arena)
			if err != nil {
				return Expression{}, err
			}
			left = BetweenExpr(arena, left, lo, hi, true)
		case p.isKeyword("BETWEEN"):
			p.advance()
			lo, hi, err := p.parseBetweenBounds(arena)
			if err != nil {
				return Expression{}, err
			}
			left = BetweenExpr(arena, left, lo, hi, false)
		default:
			return left, nil
		}
	}
}

func (p *parser) parseInSet(arena *ExprArena) ([]Expression, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	if p.isKeyword("SELECT") {
		sub, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return []Expression{SubqueryExpr(arena, sub)}, nil
	}
	var set []Expression
	for {
		e, err := p.parseLevel40(arena)
		if err != nil {
			return nil, err
		}
		set = append(set, e)
		if p.skipPunct(",") {
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return set, nil
}

func (p *parser) parseBetweenBounds(arena *ExprArena) (Expression, Expression, error) {
	lo, err := p.parseLevel40(arena)
	if err != nil {
		return Expression{}, Expression{}, err
	}
	if err := p.expectKeyword("AND"); err != nil {
		return Expression{}, Expression{}, err
	}
	hi, err := p.parseLevel40(arena)
	if err != nil {
		return Expression{}, Expression{}, err
	}
	return lo, hi, nil
}

func (p *parser) parseLevel40(arena *ExprArena) (Expression, error) {
	left, err := p.parseUnary(arena)
	if err != nil {
		return Expression{}, err
	}
	for {
		switch {
		case p.cur().isPunct("*"):
			p.advance()
			right, err := p.parseUnary(arena)
			if err != nil {
				return Expression{}, err
			}
			left = BinaryExpr(arena, OpMul, left, right)
		case p.cur().isPunct("/"):
			p.advance()
			right, err := p.parseUnary(arena)
			if err != nil {
				return Expression{}, err
			}
			left = BinaryExpr(arena, OpDiv, left, right)
		default:
			return left, nil
		}
	}
}

func (p *parser) parseUnary(arena *ExprArena) (Expression, error) {
	switch {
	case p.cur().isPunct("-"):
		p.advance()
		operand, err := p.parseUnary(arena)
		if err != nil {
			return Expression{}, err
		}
		return UnaryExpr(arena, OpNeg, operand), nil
	case p.cur().isPunct("+"):
		p.advance()
		return p.parseUnary(arena)
	case p.isKeyword("NOT"):
		p.advance()
		operand, err := p.parseUnary(arena)
		if err != nil {
			return Expression{}, err
		}
		return UnaryExpr(arena, OpNot, operand), nil
	default:
		return p.parsePrimary(arena)
	}
}

func (p *parser) parsePrimary(arena *ExprArena) (Expression, error) {
	t := p.cur()
	switch {
	case t.kind == tokNumber:
		p.advance()
		if strings.Contains(t.text, ".") {
			f, _ := strconv.ParseFloat(t.text, 64)
			return LitExpr(arena, FloatValue(f)), nil
		}
		n, _ := strconv.ParseInt(t.text, 10, 64)
		return LitExpr(arena, IntValue(n)), nil
	case t.kind == tokString:
		p.advance()
		return LitExpr(arena, StringValue(t.text)), nil
	case t.is("TRUE"):
		p.advance()
		return LitExpr(arena, BoolValue(true)), nil
	case t.is("FALSE"):
		p.advance()
		return LitExpr(arena, BoolValue(false)), nil
	case t.is("NULL"):
		p.advance()
		return LitExpr(arena, NullValue()), nil
	case t.isPunct("("):
		p.advance()
		if p.isKeyword("SELECT") {
			sub, err := p.parseSelect()
			if err != nil {
				return Expression{}, err
			}
			if err := p.expectPunct(")"); err != nil {
				return Expression{}, err
			}
			return SubqueryExpr(arena, sub), nil
		}
		inner, err := p.parseExprInto(arena)
		if err != nil {
			return Expression{}, err
		}
		if err := p.expectPunct(")"); err != nil {
			return Expression{}, err
		}
		return ParenExpr(arena, inner), nil
	case t.kind == tokIdent:
		// function call: IDENT '(' ...
		if p.peekAt(1).isPunct("(") {
			name := p.advance().text
			p.advance() // (
			var args []Expression
			if p.cur().isPunct("*") && name == "COUNT" {
				p.advance()
				args = append(args, ColExpr(arena, "", "*"))
			} else if !p.cur().isPunct(")") {
				for {
					a, err := p.parseExprInto(arena)
					if err != nil {
						return Expression{}, err
					}
					args = append(args, a)
					if p.skipPunct(",") {
						continue
					}
					break
				}
			}
			if err := p.expectPunct(")"); err != nil {
				return Expression{}, err
			}
			return CallExpr(arena, name, args), nil
		}
		// qualified column: ident.ident
		first := p.advance().raw
		if p.skipPunct(".") {
			second, err := p.expectIdent()
			if err != nil {
				return Expression{}, err
			}
			return ColExpr(arena, first, second), nil
		}
		return ColExpr(arena, "", first), nil
	default:
		return Expression{}, newParsingError("unexpected token in expression: "+t.text, nil)
	}
}
