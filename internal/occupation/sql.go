package occupation

import (
	"context"
	"database/sql"
	"fmt"
)

// Dialect abstracts the bind-parameter syntax of the supported databases.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) placeholder(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS occupations (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS occupation_items (
		code       TEXT NOT NULL REFERENCES occupations(code),
		attr_group TEXT NOT NULL,
		position   INTEGER NOT NULL,
		item       TEXT NOT NULL,
		importance DOUBLE PRECISION,
		PRIMARY KEY (code, attr_group, position)
	)`,
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// EnsureSchema creates the occupation tables when they do not exist.
func EnsureSchema(ctx context.Context, db execer) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating occupation schema: %w", err)
		}
	}
	return nil
}

// SaveSQL writes every record of store, replacing rows with the same code.
// It is meant to run inside a transaction.
func SaveSQL(ctx context.Context, tx execer, d Dialect, store *Store) error {
	p := d.placeholder
	delItems := fmt.Sprintf("DELETE FROM occupation_items WHERE code = %s", p(1))
	delOcc := fmt.Sprintf("DELETE FROM occupations WHERE code = %s", p(1))
	insOcc := fmt.Sprintf("INSERT INTO occupations (code, name) VALUES (%s, %s)", p(1), p(2))
	insItem := fmt.Sprintf(
		"INSERT INTO occupation_items (code, attr_group, position, item, importance) VALUES (%s, %s, %s, %s, %s)",
		p(1), p(2), p(3), p(4), p(5),
	)

	for _, code := range store.Codes() {
		rec, _ := store.Get(code)
		if _, err := tx.ExecContext(ctx, delItems, code); err != nil {
			return fmt.Errorf("clearing items of %s: %w", code, err)
		}
		if _, err := tx.ExecContext(ctx, delOcc, code); err != nil {
			return fmt.Errorf("clearing occupation %s: %w", code, err)
		}
		if _, err := tx.ExecContext(ctx, insOcc, code, rec.Name); err != nil {
			return fmt.Errorf("inserting occupation %s: %w", code, err)
		}
		for _, g := range rec.Groups() {
			for pos, item := range g.Items {
				var importance any
				if item.Importance != nil {
					importance = *item.Importance
				}
				if _, err := tx.ExecContext(ctx, insItem, code, g.Name, pos, item.Name, importance); err != nil {
					return fmt.Errorf("inserting %s item %q of %s: %w", g.Name, item.Name, code, err)
				}
			}
		}
	}
	return nil
}

// LoadSQL reads all occupations and their attribute items into a Store.
func LoadSQL(ctx context.Context, db querier) (*Store, error) {
	byCode := make(map[string]*Record)
	order := make([]*Record, 0)

	rows, err := db.QueryContext(ctx, `SELECT code, name FROM occupations`)
	if err != nil {
		return nil, fmt.Errorf("querying occupations: %w", err)
	}
	for rows.Next() {
		rec := &Record{}
		if err := rows.Scan(&rec.Code, &rec.Name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning occupation row: %w", err)
		}
		byCode[rec.Code] = rec
		order = append(order, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating occupations: %w", err)
	}
	rows.Close()

	itemRows, err := db.QueryContext(ctx,
		`SELECT code, attr_group, item, importance FROM occupation_items ORDER BY code, attr_group, position`)
	if err != nil {
		return nil, fmt.Errorf("querying occupation items: %w", err)
	}
	defer itemRows.Close()

	groups := make(map[string]map[string][]Item)
	for itemRows.Next() {
		var (
			code, group, name string
			importance        sql.NullFloat64
		)
		if err := itemRows.Scan(&code, &group, &name, &importance); err != nil {
			return nil, fmt.Errorf("scanning occupation item row: %w", err)
		}
		if _, ok := byCode[code]; !ok {
			return nil, fmt.Errorf("item %q references unknown occupation %s", name, code)
		}
		item := Item{Name: itemName(name)}
		if importance.Valid {
			v := importance.Float64
			item.Importance = &v
		}
		if groups[code] == nil {
			groups[code] = make(map[string][]Item)
		}
		groups[code][group] = append(groups[code][group], item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating occupation items: %w", err)
	}

	for code, byGroup := range groups {
		for group, items := range byGroup {
			if err := byCode[code].setGroup(group, items); err != nil {
				return nil, fmt.Errorf("occupation %s: %w", code, err)
			}
		}
	}
	return NewStore(order)
}
