package slabstore

import (
	"fmt"
	"path"
)

// Group is a directory-like container of groups and datasets.
type Group struct {
	node
}

// Name returns the last path element ("/" for the root).
func (g *Group) Name() string { return path.Base(g.path) }

// CreateGroup creates a direct child group.
func (g *Group) CreateGroup(name string) (*Group, error) {
	p, err := childPath(g.path, name)
	if err != nil {
		return nil, err
	}
	if err := g.f.insertNode(p, g.path, kindGroup); err != nil {
		return nil, err
	}
	return &Group{node{f: g.f, path: p}}, nil
}

// RequireGroup opens the child group name, creating it if needed.
func (g *Group) RequireGroup(name string) (*Group, error) {
	p, err := childPath(g.path, name)
	if err != nil {
		return nil, err
	}
	kind, err := g.f.kindOf(p)
	switch {
	case err == nil && kind == kindGroup:
		return &Group{node{f: g.f, path: p}}, nil
	case err == nil:
		return nil, fmt.Errorf("%w: %s", ErrNotGroup, p)
	}
	return g.CreateGroup(name)
}

// OpenGroup opens a group relative to g (or absolute if rel starts with /).
func (g *Group) OpenGroup(rel string) (*Group, error) {
	p, err := joinPath(g.path, rel)
	if err != nil {
		return nil, err
	}
	kind, err := g.f.kindOf(p)
	if err != nil {
		return nil, err
	}
	if kind != kindGroup {
		return nil, fmt.Errorf("%w: %s", ErrNotGroup, p)
	}
	return &Group{node{f: g.f, path: p}}, nil
}

// OpenDataset opens a dataset relative to g (or absolute if rel starts with /).
func (g *Group) OpenDataset(rel string) (*Dataset, error) {
	p, err := joinPath(g.path, rel)
	if err != nil {
		return nil, err
	}
	kind, err := g.f.kindOf(p)
	if err != nil {
		return nil, err
	}
	if kind != kindDataset {
		return nil, fmt.Errorf("%w: %s", ErrNotDataset, p)
	}
	return g.f.loadDataset(p)
}

// Members returns the names of g's direct children in lexical order.
func (g *Group) Members() ([]string, error) {
	db, err := g.f.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(`SELECT path FROM nodes WHERE parent = ? ORDER BY path`, g.path)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", g.path, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		names = append(names, path.Base(p))
	}
	return names, rows.Err()
}

func (f *File) insertNode(p, parent, kind string) error {
	db, err := f.writeConn()
	if err != nil {
		return err
	}
	res, err := db.Exec(`INSERT OR IGNORE INTO nodes (path, parent, kind) VALUES (?, ?, ?)`, p, parent, kind)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", p, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrExists, p)
	}
	return nil
}
