package export

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/maruel/natural"
	"go.uber.org/multierr"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"dtc/content"
	"dtc/geom"
	"dtc/layout"
)

const docdbSchema = `
CREATE TABLE elements (
	ord      INTEGER PRIMARY KEY,
	location TEXT NOT NULL,
	kind     TEXT NOT NULL,
	label    TEXT,
	page     INTEGER,
	x        REAL,
	y        REAL,
	text     TEXT
);

CREATE TABLE pages (
	number    INTEGER PRIMARY KEY,
	numbering TEXT,
	width     REAL NOT NULL,
	height    REAL NOT NULL,
	items     INTEGER NOT NULL
);

CREATE TABLE counters (
	key      TEXT NOT NULL,
	location TEXT,
	page     INTEGER,
	value    TEXT NOT NULL
);

CREATE TABLE queries (
	selector TEXT NOT NULL,
	matches  INTEGER NOT NULL,
	first    TEXT
);
`

// writeDatabase saves introspection results as a SQLite database so layout
// questions can be answered with plain SQL.
func (d *Doc) writeDatabase(ctx context.Context, outputPath string) (rerr error) {

	conn, err := sqlite.OpenConn(outputPath, sqlite.OpenReadWrite, sqlite.OpenCreate)
	if err != nil {
		return fmt.Errorf("unable to create database (%s): %w", outputPath, err)
	}
	defer func() {
		rerr = multierr.Append(rerr, conn.Close())
	}()
	conn.SetInterrupt(ctx.Done())

	// single writer, nothing to roll back
	err = sqlitex.ExecuteTransient(conn, "PRAGMA journal_mode = OFF;", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error { return nil },
	})
	if err != nil {
		return fmt.Errorf("unable to configure database: %w", err)
	}
	if err := sqlitex.ExecuteScript(conn, docdbSchema, nil); err != nil {
		return fmt.Errorf("unable to create database schema: %w", err)
	}

	if err := d.insertElements(conn); err != nil {
		return err
	}
	if err := d.insertPages(conn); err != nil {
		return err
	}
	if err := d.insertCounters(conn); err != nil {
		return err
	}
	return d.insertQueries(conn)
}

func (d *Doc) insertElements(conn *sqlite.Conn) error {
	for i, n := range d.result.Info.All() {
		loc, _ := n.Location()

		var label any
		if l := n.Label(); l != content.NoLabel {
			label = string(l)
		}
		var page, x, y any
		if pos, ok := d.result.Info.PositionOf(loc); ok {
			page, x, y = pos.Page, pos.X.Pt(), pos.Y.Pt()
		}
		var text any
		if t := n.PlainText(); t != "" {
			text = t
		}

		err := sqlitex.Execute(conn,
			`INSERT INTO elements (ord, location, kind, label, page, x, y, text) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{i + 1, loc.String(), n.Kind().Name(), label, page, x, y, text}})
		if err != nil {
			return fmt.Errorf("unable to store element %s: %w", loc, err)
		}
	}
	return nil
}

func (d *Doc) insertPages(conn *sqlite.Conn) error {
	for _, p := range d.result.Document.Pages {
		items := 0
		p.Frame.Walk(func(geom.Point, layout.Item) { items++ })

		var numbering any
		if p.Numbering != "" {
			numbering = p.Numbering
		}

		err := sqlitex.Execute(conn,
			`INSERT INTO pages (number, numbering, width, height, items) VALUES (?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{p.Number, numbering, p.Size.W.Pt(), p.Size.H.Pt(), items}})
		if err != nil {
			return fmt.Errorf("unable to store page %d: %w", p.Number, err)
		}
	}
	return nil
}

// insertCounters stores one row per counter element with the value visible at
// its location, then one summary row per key with location NULL holding the
// final value.
func (d *Doc) insertCounters(conn *sqlite.Conn) error {
	keys := map[string]content.CounterKey{
		content.PageCounter().ID(): content.PageCounter(),
	}

	for _, n := range d.result.Info.All() {
		switch n.Kind() {
		case content.KindCounterUpdate, content.KindCounterDisplay:
		default:
			continue
		}
		v, ok := n.Field("key")
		if !ok {
			continue
		}
		key, ok := v.(content.CounterKey)
		if !ok {
			continue
		}
		keys[key.ID()] = key

		loc, _ := n.Location()
		var page any
		if p, ok := d.result.Info.PageOf(loc); ok {
			page = p
		}

		err := sqlitex.Execute(conn,
			`INSERT INTO counters (key, location, page, value) VALUES (?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{key.ID(), loc.String(), page, counterValue(d.result.Info.CounterAt(key, loc))}})
		if err != nil {
			return fmt.Errorf("unable to store counter %s: %w", key, err)
		}
	}

	ids := slices.Collect(maps.Keys(keys))
	sort.Sort(natural.StringSlice(ids))
	for _, id := range ids {
		err := sqlitex.Execute(conn,
			`INSERT INTO counters (key, location, page, value) VALUES (?, NULL, NULL, ?)`,
			&sqlitex.ExecOptions{Args: []any{id, counterValue(d.result.Info.CounterFinal(keys[id]))}})
		if err != nil {
			return fmt.Errorf("unable to store counter summary %s: %w", id, err)
		}
	}
	return nil
}

// insertQueries records the result size of every kind and label query the
// document can answer, with the location of the first match.
func (d *Doc) insertQueries(conn *sqlite.Conn) error {
	kinds := make(map[string]struct{})
	labels := make(map[string]struct{})
	for _, n := range d.result.Info.All() {
		kinds[n.Kind().Name()] = struct{}{}
		if l := n.Label(); l != content.NoLabel {
			labels[string(l)] = struct{}{}
		}
	}

	var selectors []content.Selector
	names := slices.Collect(maps.Keys(kinds))
	sort.Sort(natural.StringSlice(names))
	for _, name := range names {
		if k, ok := content.KindByName(name); ok {
			selectors = append(selectors, content.SelectKind(k))
		}
	}
	names = slices.Collect(maps.Keys(labels))
	sort.Sort(natural.StringSlice(names))
	for _, name := range names {
		selectors = append(selectors, content.SelectLabel(content.Label(name)))
	}

	for _, sel := range selectors {
		matched := d.result.Info.Query(sel)
		var first any
		if len(matched) > 0 {
			if loc, ok := matched[0].Location(); ok {
				first = loc.String()
			}
		}
		err := sqlitex.Execute(conn,
			`INSERT INTO queries (selector, matches, first) VALUES (?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{sel.String(), len(matched), first}})
		if err != nil {
			return fmt.Errorf("unable to store query %s: %w", sel, err)
		}
	}
	return nil
}

func counterValue(values []int) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, strconv.Itoa(v))
	}
	return strings.Join(parts, ".")
}
