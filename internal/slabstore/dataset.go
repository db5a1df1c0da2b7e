package slabstore

import (
	"database/sql"
	"errors"
	"fmt"
	"path"
)

// DefaultChunkRows is the number of rows stored per chunk.
const DefaultChunkRows = 4096

// DatasetOption configures CreateDataset.
type DatasetOption func(*datasetOptions)

type datasetOptions struct {
	chunkRows int
}

// WithChunkRows sets the rows per stored chunk.
func WithChunkRows(n int) DatasetOption {
	return func(o *datasetOptions) {
		if n > 0 {
			o.chunkRows = n
		}
	}
}

// Dataset is a growable two-dimensional float64 array (rows × rowWidth)
// stored in fixed-size row chunks.
type Dataset struct {
	node
	rows      int64
	rowWidth  int
	chunkRows int
}

// CreateDataset creates an empty dataset whose rows hold rowWidth values.
func (g *Group) CreateDataset(name string, rowWidth int, opts ...DatasetOption) (*Dataset, error) {
	if rowWidth <= 0 {
		return nil, fmt.Errorf("%w: row width %d", ErrShape, rowWidth)
	}
	p, err := childPath(g.path, name)
	if err != nil {
		return nil, err
	}
	o := datasetOptions{chunkRows: DefaultChunkRows}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := g.f.writeConn()
	if err != nil {
		return nil, err
	}
	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT OR IGNORE INTO nodes (path, parent, kind) VALUES (?, ?, ?)`, p, g.path, kindDataset)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", p, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrExists, p)
	}
	if _, err := tx.Exec(`INSERT INTO datasets (path, rows, row_width, chunk_rows) VALUES (?, 0, ?, ?)`,
		p, rowWidth, o.chunkRows); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", p, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &Dataset{node: node{f: g.f, path: p}, rowWidth: rowWidth, chunkRows: o.chunkRows}, nil
}

// WriteDataset creates a dataset and fills it with data.
func (g *Group) WriteDataset(name string, rowWidth int, data []float64, opts ...DatasetOption) (*Dataset, error) {
	ds, err := g.CreateDataset(name, rowWidth, opts...)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return ds, nil
	}
	if err := ds.WriteSlab(0, data); err != nil {
		return nil, err
	}
	return ds, nil
}

func (f *File) loadDataset(p string) (*Dataset, error) {
	db, err := f.conn()
	if err != nil {
		return nil, err
	}
	ds := &Dataset{node: node{f: f, path: p}}
	err = db.QueryRow(`SELECT rows, row_width, chunk_rows FROM datasets WHERE path = ?`, p).
		Scan(&ds.rows, &ds.rowWidth, &ds.chunkRows)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotDataset, p)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", p, err)
	}
	return ds, nil
}

func (d *Dataset) Name() string { return path.Base(d.path) }

// Rows is the row count as of the last open or write through this handle.
func (d *Dataset) Rows() int64 { return d.rows }

func (d *Dataset) RowWidth() int { return d.rowWidth }

func (d *Dataset) ChunkRows() int { return d.chunkRows }

// Shape returns {rows, rowWidth}.
func (d *Dataset) Shape() []int64 { return []int64{d.rows, int64(d.rowWidth)} }

func (d *Dataset) NumElements() int64 { return d.rows * int64(d.rowWidth) }

// Append writes data after the last row.
func (d *Dataset) Append(data []float64) error {
	return d.WriteSlab(d.rows, data)
}

// WriteSlab writes whole rows starting at rowOffset. The slab may extend the
// dataset but may not leave a gap past its end.
func (d *Dataset) WriteSlab(rowOffset int64, data []float64) error {
	if len(data)%d.rowWidth != 0 {
		return fmt.Errorf("%w: %d values is not a multiple of row width %d", ErrShape, len(data), d.rowWidth)
	}
	count := int64(len(data) / d.rowWidth)

	db, err := d.f.writeConn()
	if err != nil {
		return err
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var rows int64
	if err := tx.QueryRow(`SELECT rows FROM datasets WHERE path = ?`, d.path).Scan(&rows); err != nil {
		return fmt.Errorf("failed to read %s: %w", d.path, err)
	}
	if rowOffset < 0 || rowOffset > rows {
		return fmt.Errorf("%w: write at row %d of %d in %s", ErrOutOfRange, rowOffset, rows, d.path)
	}

	chunk := int64(d.chunkRows)
	w := int64(d.rowWidth)
	for r := rowOffset; r < rowOffset+count; {
		ci := r / chunk
		chunkStart := ci * chunk
		end := min(chunkStart+chunk, rowOffset+count)

		var blob []byte
		err := tx.QueryRow(`SELECT data FROM dataset_chunks WHERE path = ? AND chunk_index = ?`, d.path, ci).Scan(&blob)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to read chunk %d of %s: %w", ci, d.path, err)
		}
		vals := decodeFloats(blob)
		need := int((end - chunkStart) * w)
		if len(vals) < need {
			vals = append(vals, make([]float64, need-len(vals))...)
		}
		copy(vals[(r-chunkStart)*w:], data[(r-rowOffset)*w:(end-rowOffset)*w])

		if _, err := tx.Exec(`INSERT INTO dataset_chunks (path, chunk_index, data) VALUES (?, ?, ?)
			ON CONFLICT (path, chunk_index) DO UPDATE SET data = excluded.data`,
			d.path, ci, encodeFloats(vals)); err != nil {
			return fmt.Errorf("failed to write chunk %d of %s: %w", ci, d.path, err)
		}
		r = end
	}

	rows = max(rows, rowOffset+count)
	if _, err := tx.Exec(`UPDATE datasets SET rows = ? WHERE path = ?`, rows, d.path); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	d.rows = rows
	return nil
}

// ReadSlab returns count rows starting at rowOffset, flattened row-major.
func (d *Dataset) ReadSlab(rowOffset, count int64) ([]float64, error) {
	db, err := d.f.conn()
	if err != nil {
		return nil, err
	}
	var rows int64
	if err := db.QueryRow(`SELECT rows FROM datasets WHERE path = ?`, d.path).Scan(&rows); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", d.path, err)
	}
	d.rows = rows
	if rowOffset < 0 || count < 0 || rowOffset+count > rows {
		return nil, fmt.Errorf("%w: rows [%d, %d) of %d in %s", ErrOutOfRange, rowOffset, rowOffset+count, rows, d.path)
	}
	out := make([]float64, count*int64(d.rowWidth))
	if count == 0 {
		return out, nil
	}

	chunk := int64(d.chunkRows)
	w := int64(d.rowWidth)
	first, last := rowOffset/chunk, (rowOffset+count-1)/chunk
	res, err := db.Query(`SELECT chunk_index, data FROM dataset_chunks
		WHERE path = ? AND chunk_index BETWEEN ? AND ? ORDER BY chunk_index`, d.path, first, last)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", d.path, err)
	}
	defer res.Close()

	for res.Next() {
		var ci int64
		var blob []byte
		if err := res.Scan(&ci, &blob); err != nil {
			return nil, err
		}
		vals := decodeFloats(blob)
		chunkStart := ci * chunk
		lo := max(rowOffset, chunkStart)
		hi := min(rowOffset+count, chunkStart+int64(len(vals))/w)
		if hi <= lo {
			continue
		}
		copy(out[(lo-rowOffset)*w:(hi-rowOffset)*w], vals[(lo-chunkStart)*w:(hi-chunkStart)*w])
	}
	return out, res.Err()
}

// ReadFloat64 returns the whole dataset.
func (d *Dataset) ReadFloat64() ([]float64, error) {
	db, err := d.f.conn()
	if err != nil {
		return nil, err
	}
	if err := db.QueryRow(`SELECT rows FROM datasets WHERE path = ?`, d.path).Scan(&d.rows); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", d.path, err)
	}
	return d.ReadSlab(0, d.rows)
}
