// Package catalog owns per-database and per-table metadata, persisted as
// config blobs next to where a table's (currently in-memory-only) row
// data lives, per spec §4.3.
package catalog

import (
	"os"
	"path/filepath"

	"github.com/hashicorp/go-msgpack/v2/codec"

	"goreldb/internal/errs"
	"goreldb/internal/sql"
)

var mpHandle = &codec.MsgpackHandle{}

// Catalog is the metadata store for every database and table under one
// data directory. It does not own row data (see internal/storage/heap);
// it owns the on-disk layout, schema documents, and index metadata.
type Catalog struct {
	fs      FS
	dataDir string
}

// New creates a Catalog rooted at dataDir using fs for all filesystem
// access.
func New(fs FS, dataDir string) *Catalog {
	return &Catalog{fs: fs, dataDir: dataDir}
}

func (c *Catalog) dbDir(name string) string      { return filepath.Join(c.dataDir, name) }
func (c *Catalog) dbConfigPath(name string) string { return filepath.Join(c.dbDir(name), "database.config") }
func (c *Catalog) tablesDir(db string) string     { return filepath.Join(c.dbDir(db), "tables") }
func (c *Catalog) tableDir(db, table string) string {
	return filepath.Join(c.tablesDir(db), table)
}
func (c *Catalog) tableConfigPath(db, table string) string {
	return filepath.Join(c.tableDir(db, table), "table.config")
}
func (c *Catalog) rowsDir(db, table string) string  { return filepath.Join(c.tableDir(db, table), "rows") }
func (c *Catalog) indexDir(db, table string) string { return filepath.Join(c.tableDir(db, table), "index") }

type databaseDocument struct {
	Name string
}

func (c *Catalog) exists(path string) bool {
	_, err := c.fs.Read(path)
	return err == nil
}

func encodeDoc(v any) ([]byte, error) {
	var buf []byte
	if err := codec.NewEncoderBytes(&buf, mpHandle).Encode(v); err != nil {
		return nil, errs.NewExecuteError("encode catalog document", err)
	}
	return buf, nil
}

func decodeDoc(data []byte, out any) error {
	if err := codec.NewDecoderBytes(data, mpHandle).Decode(out); err != nil {
		return errs.NewExecuteError("decode catalog document", err)
	}
	return nil
}

// CreateDatabase creates <data>/<name>/ with an empty tables/ child and a
// database.config blob. Honors IF NOT EXISTS.
func (c *Catalog) CreateDatabase(name string, ifNotExists bool) error {
	cfgPath := c.dbConfigPath(name)
	if c.exists(cfgPath) {
		if ifNotExists {
			return nil
		}
		return errs.NewExecuteError("database already exists: "+name, nil)
	}
	if err := c.fs.CreateDir(c.dbDir(name)); err != nil {
		return err
	}
	if err := c.fs.CreateDir(c.tablesDir(name)); err != nil {
		return err
	}
	blob, err := encodeDoc(databaseDocument{Name: name})
	if err != nil {
		return err
	}
	return c.fs.Write(cfgPath, blob)
}

// RenameDatabase renames a database's directory and rewrites its config.
func (c *Catalog) RenameDatabase(name, newName string) error {
	if !c.exists(c.dbConfigPath(name)) {
		return errs.NewExecuteError("database does not exist: "+name, nil)
	}
	if err := c.fs.Rename(c.dbDir(name), c.dbDir(newName)); err != nil {
		return err
	}
	blob, err := encodeDoc(databaseDocument{Name: newName})
	if err != nil {
		return err
	}
	return c.fs.Write(c.dbConfigPath(newName), blob)
}

// DropDatabase recursively removes a database's directory. Honors IF
// EXISTS.
func (c *Catalog) DropDatabase(name string, ifExists bool) error {
	if !c.exists(c.dbConfigPath(name)) {
		if ifExists {
			return nil
		}
		return errs.NewExecuteError("database does not exist: "+name, nil)
	}
	return c.fs.RemoveAll(c.dbDir(name))
}

// ListDatabases returns the names of all known databases.
func (c *Catalog) ListDatabases() ([]string, error) {
	names, err := c.fs.ReadDir(c.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return names, nil
}

// tableDocument is the persisted shape of table.config: the schema plus
// its declared indexes.
type tableDocument struct {
	Schema  sql.TableSchema
	Indexes []IndexMeta
}

// IndexMeta is the persisted metadata for one CREATE INDEX statement.
// Per the resolved secondary-index Open Question, this metadata (and the
// B-tree it describes) is maintained on every mutation but never
// consulted by the planner.
type IndexMeta struct {
	Name    string
	Columns []string
	Unique  bool
}

// CreateTable creates tables/<name>/ with table.config, rows/, and
// index/. Honors IF NOT EXISTS.
func (c *Catalog) CreateTable(db string, schema sql.TableSchema, ifNotExists bool) error {
	if !c.exists(c.dbConfigPath(db)) {
		return errs.NewExecuteError("database does not exist: "+db, nil)
	}
	cfgPath := c.tableConfigPath(db, schema.Name.Table)
	if c.exists(cfgPath) {
		if ifNotExists {
			return nil
		}
		return errs.NewExecuteError("table already exists: "+schema.Name.Table, nil)
	}
	if err := c.fs.CreateDir(c.tableDir(db, schema.Name.Table)); err != nil {
		return err
	}
	if err := c.fs.CreateDir(c.rowsDir(db, schema.Name.Table)); err != nil {
		return err
	}
	if err := c.fs.CreateDir(c.indexDir(db, schema.Name.Table)); err != nil {
		return err
	}
	return c.writeTableDoc(db, tableDocument{Schema: schema})
}

func (c *Catalog) writeTableDoc(db string, doc tableDocument) error {
	blob, err := encodeDoc(doc)
	if err != nil {
		return err
	}
	return c.fs.Write(c.tableConfigPath(db, doc.Schema.Name.Table), blob)
}

func (c *Catalog) readTableDoc(db, table string) (tableDocument, error) {
	data, err := c.fs.Read(c.tableConfigPath(db, table))
	if err != nil {
		return tableDocument{}, errs.NewExecuteError("table does not exist: "+table, err)
	}
	var doc tableDocument
	if err := decodeDoc(data, &doc); err != nil {
		return tableDocument{}, err
	}
	return doc, nil
}

// GetSchema returns a table's current schema.
func (c *Catalog) GetSchema(db, table string) (sql.TableSchema, error) {
	doc, err := c.readTableDoc(db, table)
	if err != nil {
		return sql.TableSchema{}, err
	}
	return doc.Schema, nil
}

// GetIndexes returns a table's declared secondary indexes.
func (c *Catalog) GetIndexes(db, table string) ([]IndexMeta, error) {
	doc, err := c.readTableDoc(db, table)
	if err != nil {
		return nil, err
	}
	return doc.Indexes, nil
}

// ApplyAlterTable mutates a table's schema document per action, renaming
// the table's directory for AlterRenameTable.
func (c *Catalog) ApplyAlterTable(db, table string, action sql.AlterTableAction) error {
	doc, err := c.readTableDoc(db, table)
	if err != nil {
		return err
	}
	switch action.Kind {
	case sql.AlterRenameTable:
		oldDir := c.tableDir(db, table)
		newDir := c.tableDir(db, action.NewName)
		if err := c.fs.Rename(oldDir, newDir); err != nil {
			return err
		}
		doc.Schema.Name.Table = action.NewName
		return c.writeTableDoc(db, doc)
	case sql.AlterAddColumn:
		doc.Schema.Columns = append(doc.Schema.Columns, action.Column)
		return c.writeTableDoc(db, doc)
	case sql.AlterDropColumn:
		out := doc.Schema.Columns[:0]
		for _, col := range doc.Schema.Columns {
			if col.Name != action.ColumnRef {
				out = append(out, col)
			}
		}
		doc.Schema.Columns = out
		return c.writeTableDoc(db, doc)
	case sql.AlterAlterColumn:
		for i, col := range doc.Schema.Columns {
			if col.Name == action.ColumnRef {
				doc.Schema.Columns[i].Type = action.Column.Type
			}
		}
		return c.writeTableDoc(db, doc)
	case sql.AlterRenameColumn:
		for i, col := range doc.Schema.Columns {
			if col.Name == action.ColumnRef {
				doc.Schema.Columns[i].Name = action.NewName
			}
		}
		for i, pk := range doc.Schema.PrimaryKey {
			if pk == action.ColumnRef {
				doc.Schema.PrimaryKey[i] = action.NewName
			}
		}
		return c.writeTableDoc(db, doc)
	default:
		return errs.NewExecuteError("unsupported ALTER TABLE action", nil)
	}
}

// DropTable recursively removes a table's directory.
func (c *Catalog) DropTable(db, table string, ifExists bool) error {
	if !c.exists(c.tableConfigPath(db, table)) {
		if ifExists {
			return nil
		}
		return errs.NewExecuteError("table does not exist: "+table, nil)
	}
	return c.fs.RemoveAll(c.tableDir(db, table))
}

// ListTables returns the names of every table in db.
func (c *Catalog) ListTables(db string) ([]string, error) {
	return c.fs.ReadDir(c.tablesDir(db))
}

// CreateIndex persists index metadata against a table's document. The
// B-tree itself is built and maintained by the executor (internal/index/
// btree), which calls this only to make the index durable/listable.
func (c *Catalog) CreateIndex(db, table string, meta IndexMeta) error {
	doc, err := c.readTableDoc(db, table)
	if err != nil {
		return err
	}
	doc.Indexes = append(doc.Indexes, meta)
	return c.writeTableDoc(db, doc)
}
