package catalog

import (
	"testing"

	"goreldb/internal/sql"
)

func newTestCatalog() *Catalog {
	return New(NewMemFS(), "/data")
}

func TestCreateDropDatabase(t *testing.T) {
	c := newTestCatalog()
	if err := c.CreateDatabase("demo", false); err != nil {
		t.Fatalf("create database: %v", err)
	}
	if err := c.CreateDatabase("demo", false); err == nil {
		t.Fatalf("expected error creating duplicate database")
	}
	if err := c.CreateDatabase("demo", true); err != nil {
		t.Fatalf("IF NOT EXISTS should suppress duplicate error: %v", err)
	}

	dbs, err := c.ListDatabases()
	if err != nil {
		t.Fatalf("list databases: %v", err)
	}
	if len(dbs) != 1 || dbs[0] != "demo" {
		t.Fatalf("expected [demo], got %v", dbs)
	}

	if err := c.DropDatabase("demo", false); err != nil {
		t.Fatalf("drop database: %v", err)
	}
	if err := c.DropDatabase("demo", false); err == nil {
		t.Fatalf("expected error dropping missing database")
	}
	if err := c.DropDatabase("demo", true); err != nil {
		t.Fatalf("IF EXISTS should suppress missing error: %v", err)
	}
}

func TestCreateTableAndGetSchema(t *testing.T) {
	c := newTestCatalog()
	if err := c.CreateDatabase("demo", false); err != nil {
		t.Fatalf("create database: %v", err)
	}
	schema := sql.TableSchema{
		Name: sql.QualifiedName{Database: "demo", Table: "t"},
		Columns: []sql.Column{
			{Name: "id", Type: sql.Int(), PrimaryKey: true, NotNull: true},
			{Name: "name", Type: sql.Varchar(32)},
		},
		PrimaryKey: []string{"id"},
	}
	if err := c.CreateTable("demo", schema, false); err != nil {
		t.Fatalf("create table: %v", err)
	}

	got, err := c.GetSchema("demo", "t")
	if err != nil {
		t.Fatalf("get schema: %v", err)
	}
	if len(got.Columns) != 2 || got.Columns[1].Type.Len != 32 {
		t.Fatalf("unexpected schema roundtrip: %+v", got)
	}

	tables, err := c.ListTables("demo")
	if err != nil {
		t.Fatalf("list tables: %v", err)
	}
	if len(tables) != 1 || tables[0] != "t" {
		t.Fatalf("expected [t], got %v", tables)
	}
}

func TestAlterTableAddDropRenameColumn(t *testing.T) {
	c := newTestCatalog()
	_ = c.CreateDatabase("demo", false)
	schema := sql.TableSchema{
		Name:    sql.QualifiedName{Database: "demo", Table: "t"},
		Columns: []sql.Column{{Name: "id", Type: sql.Int()}},
	}
	_ = c.CreateTable("demo", schema, false)

	if err := c.ApplyAlterTable("demo", "t", sql.AlterTableAction{
		Kind:   sql.AlterAddColumn,
		Column: sql.Column{Name: "age", Type: sql.Int()},
	}); err != nil {
		t.Fatalf("add column: %v", err)
	}
	got, _ := c.GetSchema("demo", "t")
	if len(got.Columns) != 2 {
		t.Fatalf("expected 2 columns after add, got %d", len(got.Columns))
	}

	if err := c.ApplyAlterTable("demo", "t", sql.AlterTableAction{
		Kind:      sql.AlterRenameColumn,
		ColumnRef: "age",
		NewName:   "years",
	}); err != nil {
		t.Fatalf("rename column: %v", err)
	}
	got, _ = c.GetSchema("demo", "t")
	if got.Columns[1].Name != "years" {
		t.Fatalf("expected renamed column 'years', got %+v", got.Columns[1])
	}

	if err := c.ApplyAlterTable("demo", "t", sql.AlterTableAction{
		Kind:      sql.AlterDropColumn,
		ColumnRef: "years",
	}); err != nil {
		t.Fatalf("drop column: %v", err)
	}
	got, _ = c.GetSchema("demo", "t")
	if len(got.Columns) != 1 {
		t.Fatalf("expected 1 column after drop, got %d", len(got.Columns))
	}
}

func TestCreateIndexPersistsMetadata(t *testing.T) {
	c := newTestCatalog()
	_ = c.CreateDatabase("demo", false)
	schema := sql.TableSchema{Name: sql.QualifiedName{Database: "demo", Table: "t"}, Columns: []sql.Column{{Name: "id", Type: sql.Int()}}}
	_ = c.CreateTable("demo", schema, false)

	if err := c.CreateIndex("demo", "t", IndexMeta{Name: "idx_id", Columns: []string{"id"}}); err != nil {
		t.Fatalf("create index: %v", err)
	}
	idxs, err := c.GetIndexes("demo", "t")
	if err != nil {
		t.Fatalf("get indexes: %v", err)
	}
	if len(idxs) != 1 || idxs[0].Name != "idx_id" {
		t.Fatalf("unexpected indexes: %+v", idxs)
	}
}
