package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"goreldb/internal/executor"
	"goreldb/internal/frontend"
	"goreldb/internal/sql"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive SQL session",
	RunE:  runREPL,
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".goreldb_history")
}

type repl struct {
	fe    *frontend.Engine
	liner *liner.State
}

func runREPL(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}

	r := &repl{
		fe:    frontend.NewEngine(executor.NewSession(eng), 64),
		liner: liner.NewLiner(),
	}
	defer r.fe.Close()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Println("goreldb - interactive SQL session")
	fmt.Println("Type SQL statements terminated by ';'. Meta commands: .tables .schema <tbl> .help .exit")
	fmt.Println()

	var buffer strings.Builder
	for {
		prompt := "goreldb> "
		if buffer.Len() > 0 {
			prompt = "     ...> "
		}

		line, err := r.liner.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Println("\nBye.")
				r.saveHistory()
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if buffer.Len() == 0 && line == "" {
			continue
		}

		if buffer.Len() == 0 && strings.HasPrefix(line, ".") {
			r.liner.AppendHistory(line)
			if r.handleMetaCommand(line) {
				r.saveHistory()
				return nil
			}
			continue
		}

		if line != "" {
			if buffer.Len() > 0 {
				buffer.WriteString(" ")
			}
			buffer.WriteString(line)
		}

		if strings.HasSuffix(line, ";") {
			statement := buffer.String()
			buffer.Reset()
			r.liner.AppendHistory(statement)
			r.handleSQL(statement)
		}
	}
}

func (r *repl) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

// handleMetaCommand processes dot-prefixed commands. Returns true when
// the REPL should exit.
func (r *repl) handleMetaCommand(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}

	switch strings.ToLower(parts[0]) {
	case ".exit", ".quit":
		fmt.Println("Bye.")
		return true
	case ".help":
		fmt.Println("Supported SQL: CREATE/ALTER/DROP DATABASE|TABLE, CREATE INDEX, INSERT, SELECT, UPDATE, DELETE,")
		fmt.Println("SHOW DATABASES|TABLES, DESCRIBE <table>, USE <database>, BEGIN/COMMIT/ROLLBACK.")
		fmt.Println()
		fmt.Println("Meta commands:")
		fmt.Println("  .tables        List tables in the current database")
		fmt.Println("  .schema <tbl>  Show column definitions for a table")
		fmt.Println("  .help          Show this help")
		fmt.Println("  .exit          Exit the REPL")
	case ".tables":
		r.runMeta("SHOW TABLES")
	case ".schema":
		if len(parts) < 2 {
			fmt.Println("Usage: .schema <table>")
			return false
		}
		r.runMeta(fmt.Sprintf("DESCRIBE %s", parts[1]))
	default:
		fmt.Printf("Unknown meta command: %s\n", line)
	}
	return false
}

func (r *repl) runMeta(src string) {
	r.handleSQL(src + ";")
}

func (r *repl) handleSQL(src string) {
	portal, err := r.fe.Prepare(context.Background(), src)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	rows, _, err := portal.Fetch(context.Background(), 0)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	cols := portal.Columns()
	if len(cols) == 0 {
		fmt.Println("OK")
		return
	}
	printResultSet(cols, rows)
}

func printResultSet(cols []executor.ColumnInfo, rows []sql.Row) {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	fmt.Println(strings.Join(names, " | "))

	for _, row := range rows {
		parts := make([]string, len(cols))
		for i, c := range cols {
			v, ok := row.Get(c.Name)
			if !ok {
				parts[i] = "NULL"
				continue
			}
			parts[i] = v.String()
		}
		fmt.Println(strings.Join(parts, " | "))
	}
}
