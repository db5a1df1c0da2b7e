package boxio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/banshee-data/mdspace/internal/boxtree"
)

// Store persists event ranges addressed in events, not bytes. A range is
// always read back with the same offset and count it was written with.
type Store interface {
	WriteAt(offset int64, events []boxtree.Event) error
	ReadAt(offset, count int64) ([]boxtree.Event, error)
	// Release tells the store a range is no longer referenced.
	Release(offset, count int64) error
	Sync() error
	Close() error
}

// FileStore keeps fixed-size records in a single scratch file.
type FileStore struct {
	f   *os.File
	nd  int
	rec int64

	bufs sync.Pool
}

var _ Store = (*FileStore)(nil)

// OpenFileStore creates (or truncates) the scratch file at path.
func OpenFileStore(path string, nd int) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, &StorageError{Op: "open", Offset: -1, Err: err}
	}
	return &FileStore{
		f:   f,
		nd:  nd,
		rec: int64(RecordSize(nd)),
		bufs: sync.Pool{New: func() any {
			b := make([]byte, 0, 64*1024)
			return &b
		}},
	}, nil
}

func (s *FileStore) Path() string { return s.f.Name() }

func (s *FileStore) WriteAt(offset int64, events []boxtree.Event) error {
	bp := s.bufs.Get().(*[]byte)
	defer s.bufs.Put(bp)
	*bp = EncodeEvents((*bp)[:0], events, s.nd)
	if _, err := s.f.WriteAt(*bp, offset*s.rec); err != nil {
		return &StorageError{Op: "write", Offset: offset, Count: int64(len(events)), Err: err}
	}
	return nil
}

func (s *FileStore) ReadAt(offset, count int64) ([]boxtree.Event, error) {
	buf := make([]byte, count*s.rec)
	if _, err := s.f.ReadAt(buf, offset*s.rec); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, &StorageError{Op: "read", Offset: offset, Count: count, Err: err}
	}
	events, err := DecodeEvents(buf, s.nd)
	if err != nil {
		return nil, &StorageError{Op: "decode", Offset: offset, Count: count, Err: err}
	}
	return events, nil
}

// Release is a no-op; DiskBuffer reuses the space.
func (s *FileStore) Release(offset, count int64) error { return nil }

func (s *FileStore) Sync() error {
	if err := s.f.Sync(); err != nil {
		return &StorageError{Op: "sync", Offset: -1, Err: err}
	}
	return nil
}

func (s *FileStore) Close() error {
	if err := s.f.Close(); err != nil {
		return &StorageError{Op: "close", Offset: -1, Err: err}
	}
	return nil
}

// MemStore keeps ranges in memory.
type MemStore struct {
	mu     sync.Mutex
	events []boxtree.Event
	closed bool
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore { return &MemStore{} }

func (s *MemStore) WriteAt(offset int64, events []boxtree.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &StorageError{Op: "write", Offset: offset, Count: int64(len(events)), Err: os.ErrClosed}
	}
	end := offset + int64(len(events))
	if int64(len(s.events)) < end {
		s.events = append(s.events, make([]boxtree.Event, end-int64(len(s.events)))...)
	}
	for i, e := range events {
		e.Center = append([]float64(nil), e.Center...)
		s.events[offset+int64(i)] = e
	}
	return nil
}

func (s *MemStore) ReadAt(offset, count int64) ([]boxtree.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, &StorageError{Op: "read", Offset: offset, Count: count, Err: os.ErrClosed}
	}
	if offset < 0 || offset+count > int64(len(s.events)) {
		return nil, &StorageError{Op: "read", Offset: offset, Count: count, Err: io.ErrUnexpectedEOF}
	}
	out := make([]boxtree.Event, count)
	for i := range out {
		e := s.events[offset+int64(i)]
		e.Center = append([]float64(nil), e.Center...)
		out[i] = e
	}
	return out, nil
}

func (s *MemStore) Release(offset, count int64) error { return nil }
func (s *MemStore) Sync() error                       { return nil }

func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Len is the number of event slots the store has grown to.
func (s *MemStore) Len() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.events))
}

func (s *MemStore) String() string { return fmt.Sprintf("MemStore(%d)", s.Len()) }
