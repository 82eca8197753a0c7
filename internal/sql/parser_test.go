package sql

import "testing"

func TestParseCreateTable(t *testing.T) {
	stmt, err := Parse(`CREATE TABLE users (
		id INT PRIMARY KEY,
		name VARCHAR(64) NOT NULL,
		active BOOL DEFAULT true
	)`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	ct, ok := stmt.(*CreateTableStmt)
	if !ok {
		t.Fatalf("expected *CreateTableStmt, got %T", stmt)
	}
	if ct.Name.Table != "users" {
		t.Fatalf("expected table users, got %q", ct.Name.Table)
	}
	if len(ct.Columns) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(ct.Columns))
	}
	if ct.Columns[0].Name != "id" || !ct.Columns[0].PrimaryKey {
		t.Fatalf("expected id PRIMARY KEY column, got %+v", ct.Columns[0])
	}
	if ct.Columns[1].Type.Kind != KindVarchar || ct.Columns[1].Type.Len != 64 {
		t.Fatalf("expected VARCHAR(64), got %+v", ct.Columns[1].Type)
	}
	if !ct.Columns[1].NotNull {
		t.Fatalf("expected name NOT NULL")
	}
	if ct.Columns[2].Default == nil {
		t.Fatalf("expected active to have a DEFAULT expression")
	}
}

func TestParseInsert(t *testing.T) {
	stmt, err := Parse(`INSERT INTO users (id, name) VALUES (1, 'Alice'), (2, 'Bob')`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	ins, ok := stmt.(*InsertStmt)
	if !ok {
		t.Fatalf("expected *InsertStmt, got %T", stmt)
	}
	if len(ins.Values) != 2 {
		t.Fatalf("expected 2 value rows, got %d", len(ins.Values))
	}
	v := ins.Values[0][1].Node()
	if v.Kind != ExprLiteral || v.Literal.S != "Alice" {
		t.Fatalf("expected literal 'Alice', got %+v", v)
	}
}

func TestParseSelectWhereAndOrderLimit(t *testing.T) {
	stmt, err := Parse(`SELECT id, name AS n FROM users WHERE active = true AND id > 1 ORDER BY id DESC LIMIT 10 OFFSET 5`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	sel, ok := stmt.(*SelectStmt)
	if !ok {
		t.Fatalf("expected *SelectStmt, got %T", stmt)
	}
	if len(sel.Columns) != 2 || sel.Columns[1].Alias != "n" {
		t.Fatalf("unexpected columns: %+v", sel.Columns)
	}
	if sel.Where == nil {
		t.Fatalf("expected WHERE clause")
	}
	if len(sel.OrderBy) != 1 || !sel.OrderBy[0].Desc {
		t.Fatalf("expected ORDER BY id DESC, got %+v", sel.OrderBy)
	}
	if sel.Limit == nil || *sel.Limit != 10 {
		t.Fatalf("expected LIMIT 10, got %+v", sel.Limit)
	}
	if sel.Offset == nil || *sel.Offset != 5 {
		t.Fatalf("expected OFFSET 5, got %+v", sel.Offset)
	}
}

func TestParseSelectJoinGroupHaving(t *testing.T) {
	stmt, err := Parse(`SELECT t.id, COUNT(o.id) FROM users t LEFT JOIN orders o ON o.user_id = t.id GROUP BY t.id HAVING COUNT(o.id) > 0`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	sel := stmt.(*SelectStmt)
	if len(sel.Joins) != 1 || sel.Joins[0].Kind != JoinLeft {
		t.Fatalf("expected one LEFT JOIN, got %+v", sel.Joins)
	}
	if len(sel.GroupBy) != 1 {
		t.Fatalf("expected 1 GROUP BY expr, got %d", len(sel.GroupBy))
	}
	if sel.Having == nil {
		t.Fatalf("expected HAVING clause")
	}
}

func TestParseUpdateDelete(t *testing.T) {
	stmt, err := Parse(`UPDATE users SET name = 'X', active = false WHERE id = 1`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	up := stmt.(*UpdateStmt)
	if len(up.Assignments) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(up.Assignments))
	}

	stmt2, err := Parse(`DELETE FROM users WHERE id = 1`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if _, ok := stmt2.(*DeleteStmt); !ok {
		t.Fatalf("expected *DeleteStmt, got %T", stmt2)
	}
}

func TestParseLikeInBetween(t *testing.T) {
	stmt, err := Parse(`SELECT * FROM users WHERE name LIKE 'A%' AND id IN (1, 2, 3) AND id NOT BETWEEN 10 AND 20`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	sel := stmt.(*SelectStmt)
	if !sel.Columns[0].Wildcard {
		t.Fatalf("expected wildcard select item")
	}
	if sel.Where == nil {
		t.Fatalf("expected WHERE clause")
	}
}

func TestParseTransactionAndSession(t *testing.T) {
	cases := map[string]Statement{
		"BEGIN":          &BeginStmt{},
		"COMMIT":         &CommitStmt{},
		"ROLLBACK":       &RollbackStmt{},
		"SHOW TABLES":    &ShowStmt{Kind: ShowTables},
		"SHOW DATABASES": &ShowStmt{Kind: ShowDatabases},
	}
	for src := range cases {
		if _, err := Parse(src); err != nil {
			t.Fatalf("parse %q: %v", src, err)
		}
	}
	if _, err := Parse("USE mydb"); err != nil {
		t.Fatalf("parse USE: %v", err)
	}
	if _, err := Parse("DESC users"); err != nil {
		t.Fatalf("parse DESC: %v", err)
	}
}
