// Package store exports a scan result to a SQLite file and answers link
// queries from it. Every Save replaces the previous contents.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"linkgraph/internal/engine"
	"linkgraph/internal/graph"
	"linkgraph/util"
)

const schema = `
DROP TABLE IF EXISTS edges;
DROP TABLE IF EXISTS nodes;
DROP TABLE IF EXISTS decisions;

CREATE TABLE nodes (
	uid      TEXT PRIMARY KEY,
	identity TEXT NOT NULL,
	kind     TEXT NOT NULL,
	label    TEXT NOT NULL,
	position INTEGER NOT NULL
);

CREATE TABLE edges (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	source    TEXT NOT NULL REFERENCES nodes(uid),
	target    TEXT NOT NULL REFERENCES nodes(uid),
	text      TEXT NOT NULL,
	line      INTEGER NOT NULL,
	fragment  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX idx_edges_source ON edges(source);
CREATE INDEX idx_edges_target ON edges(target);

CREATE TABLE decisions (
	path     TEXT NOT NULL,
	excluded INTEGER NOT NULL,
	source   TEXT NOT NULL,
	pattern  TEXT NOT NULL DEFAULT '',
	origin   TEXT NOT NULL DEFAULT ''
);
`

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the database contents with res.
func (s *Store) Save(ctx context.Context, res *engine.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if err := insertNodes(ctx, tx, res.Graph.Nodes()); err != nil {
		return err
	}
	if err := insertEdges(ctx, tx, res.Graph); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO decisions (path, excluded, source, pattern, origin) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare decision insert: %w", err)
	}
	defer stmt.Close()
	for _, d := range res.Decisions {
		if _, err := stmt.ExecContext(ctx, d.Path, d.Excluded, d.Source.String(), d.Pattern, d.Origin); err != nil {
			return fmt.Errorf("failed to insert decision %s: %w", d.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func insertNodes(ctx context.Context, tx *sql.Tx, nodes []graph.Node) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO nodes (uid, identity, kind, label, position) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare node insert: %w", err)
	}
	defer stmt.Close()

	for i, n := range nodes {
		uid := util.GenerateNodeID(n.Kind.String(), n.ID)
		if _, err := stmt.ExecContext(ctx, uid, n.ID, n.Kind.String(), n.Label, i); err != nil {
			return fmt.Errorf("failed to insert node %s: %w", n.ID, err)
		}
	}
	return nil
}

func insertEdges(ctx context.Context, tx *sql.Tx, m *graph.Model) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO edges (source, target, text, line, fragment) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare edge insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range m.Edges() {
		target, ok := m.Lookup(e.TargetRef())
		if !ok {
			return fmt.Errorf("edge target %s has no node", e.Target)
		}
		src := util.GenerateNodeID(graph.KindDocument.String(), e.Source)
		dst := util.GenerateNodeID(target.Kind.String(), target.ID)
		if _, err := stmt.ExecContext(ctx, src, dst, e.Text, e.Line, e.Fragment); err != nil {
			return fmt.Errorf("failed to insert edge %s:%d: %w", e.Source, e.Line, err)
		}
	}
	return nil
}

// Nodes returns the stored nodes in first-seen order.
func (s *Store) Nodes(ctx context.Context) ([]graph.Node, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT identity, kind, label FROM nodes ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	var nodes []graph.Node
	for rows.Next() {
		var n graph.Node
		var kind string
		if err := rows.Scan(&n.ID, &kind, &n.Label); err != nil {
			return nil, err
		}
		if n.Kind, err = graph.ParseKind(kind); err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// Backlinks returns the edges that point at the document or missing document
// identity.
func (s *Store) Backlinks(ctx context.Context, identity string) ([]graph.Edge, error) {
	return s.queryEdges(ctx, `WHERE t.identity = ? AND t.kind != ?`, identity, graph.KindExternal.String())
}

// BrokenLinks returns the edges that point at missing documents.
func (s *Store) BrokenLinks(ctx context.Context) ([]graph.Edge, error) {
	return s.queryEdges(ctx, `WHERE t.kind = ?`, graph.KindMissing.String())
}

func (s *Store) queryEdges(ctx context.Context, where string, args ...any) ([]graph.Edge, error) {
	query := `
		SELECT src.identity, t.identity, t.kind, e.text, e.line, e.fragment
		FROM edges e
		JOIN nodes src ON src.uid = e.source
		JOIN nodes t ON t.uid = e.target
		` + where + `
		ORDER BY e.id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	var edges []graph.Edge
	for rows.Next() {
		var e graph.Edge
		var kind string
		if err := rows.Scan(&e.Source, &e.Target, &kind, &e.Text, &e.Line, &e.Fragment); err != nil {
			return nil, err
		}
		e.External = kind == graph.KindExternal.String()
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
