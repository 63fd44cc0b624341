// Package export renders an aggregate table to terminals, files and
// databases.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/seenimoa/tickersent/internal/aggregate"
)

// Format specifies the output format.
type Format string

const (
	FormatTable   Format = "table"
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatHTML    Format = "html"
	FormatParquet Format = "parquet"
	FormatSQLite  Format = "sqlite"
)

var (
	// ErrUnknownFormat is returned by Write for an unsupported format name.
	ErrUnknownFormat = errors.New("unknown export format")

	// ErrPathRequired is returned for file-only formats when no path is given.
	ErrPathRequired = errors.New("output path required")
)

// Formats lists every supported format.
func Formats() []Format {
	return []Format{FormatTable, FormatCSV, FormatJSON, FormatHTML, FormatParquet, FormatSQLite}
}

// ParseFormat resolves a format name, case-insensitively. Empty means table.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FormatTable, nil
	}
	for _, f := range Formats() {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Write renders table in the given format. Stream formats go to w when path
// is empty and to a new file at path otherwise; parquet and sqlite always
// need a path.
func Write(ctx context.Context, format string, path string, w io.Writer, table *aggregate.Table) (err error) {
	f, err := ParseFormat(format)
	if err != nil {
		return err
	}

	switch f {
	case FormatParquet:
		if path == "" {
			return fmt.Errorf("%s: %w", f, ErrPathRequired)
		}
		return WriteParquet(path, table)
	case FormatSQLite:
		if path == "" {
			return fmt.Errorf("%s: %w", f, ErrPathRequired)
		}
		return WriteSQLite(ctx, path, table)
	}

	if path != "" {
		file, ferr := createFile(path)
		if ferr != nil {
			return ferr
		}
		defer func() {
			if cerr := file.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("closing %s: %w", path, cerr)
			}
		}()
		w = file
	}

	return writeStream(f, w, table)
}

func writeStream(f Format, w io.Writer, table *aggregate.Table) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, table)
	case FormatJSON:
		return WriteJSON(w, table)
	case FormatHTML:
		return WriteHTML(w, table, "")
	default:
		_, err := io.WriteString(w, RenderHeatmap(table))
		return err
	}
}

// createFile opens path for a stream export, creating parent directories.
var createFile = func(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return file, nil
}

// formatScore renders a mean score to four decimals.
func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
