package mediastore

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Cursor holds the rows of one query, read in full before Query returns.
//
// Iteration starts before the first row; call Next before reading.
type Cursor struct {
	columns []string
	rows    [][]any
	pos     int
}

func newCursor(rows *sql.Rows) (*Cursor, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	c := &Cursor{columns: columns, pos: -1}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		c.rows = append(c.rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return c, nil
}

// Next advances to the next row and reports whether there is one.
func (c *Cursor) Next() bool {
	if c.pos < len(c.rows) {
		c.pos++
	}
	return c.pos < len(c.rows)
}

// Count returns the number of rows.
func (c *Cursor) Count() int { return len(c.rows) }

// Columns returns the result column names in projection order.
func (c *Cursor) Columns() []string { return c.columns }

// ColumnIndex returns the index of the named column, or -1.
//
// Names are matched case-insensitively, as SQLite does.
func (c *Cursor) ColumnIndex(name string) int {
	for i, col := range c.columns {
		if strings.EqualFold(col, name) {
			return i
		}
	}
	return -1
}

func (c *Cursor) at(i int) (any, error) {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return nil, ErrNoRow
	}
	if i < 0 || i >= len(c.columns) {
		return nil, fmt.Errorf("%w: index %d", ErrColumnNotFound, i)
	}
	return c.rows[c.pos][i], nil
}

// ValueAt returns column i of the current row as nil or a string.
func (c *Cursor) ValueAt(i int) (any, error) {
	v, err := c.at(i)
	if err != nil || v == nil {
		return nil, err
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(t), nil
	default:
		return fmt.Sprint(t), nil
	}
}

// Value returns the named column of the current row as nil or a string.
func (c *Cursor) Value(column string) (any, error) {
	i := c.ColumnIndex(column)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, column)
	}
	return c.ValueAt(i)
}

// String returns the named column as a string; NULL reads as "".
func (c *Cursor) String(column string) (string, error) {
	v, err := c.Value(column)
	if err != nil || v == nil {
		return "", err
	}
	return v.(string), nil
}

// IntAt returns column i of the current row as an integer; NULL reads as 0.
func (c *Cursor) IntAt(i int) (int64, error) {
	v, err := c.at(i)
	if err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return t, nil
	case float64:
		return int64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("column %s is not an integer: %w", c.columns[i], err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("column %s has unsupported type %T", c.columns[i], v)
	}
}

// Int returns the named column of the current row as an integer.
func (c *Cursor) Int(column string) (int64, error) {
	i := c.ColumnIndex(column)
	if i < 0 {
		return 0, fmt.Errorf("%w: %s", ErrColumnNotFound, column)
	}
	return c.IntAt(i)
}

// Close releases the rows. A closed cursor is empty.
func (c *Cursor) Close() {
	c.rows = nil
	c.pos = -1
}
