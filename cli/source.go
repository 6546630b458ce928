package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/asaidimu/rowql/core/row"
	"github.com/asaidimu/rowql/sqlite"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// loadFile reads a JSON or YAML file holding an array of objects. The format
// follows the extension; anything other than .yaml or .yml is read as JSON.
func loadFile(path string) ([]row.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from %q: %w", path, err)
	}

	var rows []row.Row
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &rows)
	default:
		err = json.Unmarshal(data, &rows)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode rows from %q: %w", path, err)
	}
	return rows, nil
}

// loadSQL runs a query against a SQLite database file.
func loadSQL(ctx context.Context, logger *zap.Logger, dbPath, query string) ([]row.Row, error) {
	db, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return sqlite.NewLoader(db, logger).Load(ctx, query)
}

// source is one input of the query command: a file or a SQL query.
type source struct {
	file string
	sql  string
}

func (s source) empty() bool {
	return s.file == "" && s.sql == ""
}

func (s source) load(ctx context.Context, logger *zap.Logger, dbPath string) ([]row.Row, error) {
	switch {
	case s.file != "" && s.sql != "":
		return nil, fmt.Errorf("give either a file or a SQL query, not both")
	case s.file != "":
		return loadFile(s.file)
	case s.sql != "":
		if dbPath == "" {
			return nil, fmt.Errorf("a SQL query needs --sqlite")
		}
		return loadSQL(ctx, logger, dbPath, s.sql)
	}
	return nil, fmt.Errorf("no source given")
}
