package boxio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/banshee-data/mdspace/internal/boxtree"
	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
)

// blockHeaderSize is codec (1) + raw length (4) + xxhash of raw bytes (8).
const blockHeaderSize = 13

// BadgerStore keeps every written range as one block keyed by its offset.
// Blocks carry an xxhash checksum of the uncompressed records.
type BadgerStore struct {
	db    *badger.DB
	nd    int
	codec byte
}

var _ Store = (*BadgerStore)(nil)

// OpenBadgerStore opens a store at dir, or in memory when dir is empty.
// compression is one of the config.Compression* values.
func OpenBadgerStore(dir string, nd int, compression string) (*BadgerStore, error) {
	codec, err := codecFor(compression)
	if err != nil {
		return nil, err
	}
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, &StorageError{Op: "open", Offset: -1, Err: err}
		}
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithSyncWrites(false).WithNumVersionsToKeep(1).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, &StorageError{Op: "open", Offset: -1, Err: fmt.Errorf("open badger database: %w", err)}
	}
	return &BadgerStore{db: db, nd: nd, codec: codec}, nil
}

func blockKey(offset int64) []byte {
	k := make([]byte, 9)
	k[0] = 'e'
	binary.BigEndian.PutUint64(k[1:], uint64(offset))
	return k
}

func (s *BadgerStore) WriteAt(offset int64, events []boxtree.Event) error {
	raw := EncodeEvents(nil, events, s.nd)
	codec, payload, err := compressBlock(s.codec, raw)
	if err != nil {
		return &StorageError{Op: "compress", Offset: offset, Count: int64(len(events)), Err: err}
	}
	val := make([]byte, blockHeaderSize+len(payload))
	val[0] = codec
	binary.LittleEndian.PutUint32(val[1:], uint32(len(raw)))
	binary.LittleEndian.PutUint64(val[5:], xxhash.Sum64(raw))
	copy(val[blockHeaderSize:], payload)

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(blockKey(offset), val)
	})
	if err != nil {
		return &StorageError{Op: "write", Offset: offset, Count: int64(len(events)), Err: err}
	}
	return nil
}

func (s *BadgerStore) ReadAt(offset, count int64) ([]boxtree.Event, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blockKey(offset))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, &StorageError{Op: "read", Offset: offset, Count: count, Err: err}
	}
	if len(val) < blockHeaderSize {
		return nil, &StorageError{Op: "read", Offset: offset, Count: count, Err: errors.New("short block header")}
	}
	rawLen := int(binary.LittleEndian.Uint32(val[1:]))
	sum := binary.LittleEndian.Uint64(val[5:])
	raw, err := decompressBlock(val[0], val[blockHeaderSize:], rawLen)
	if err != nil {
		return nil, &StorageError{Op: "decompress", Offset: offset, Count: count, Err: err}
	}
	if len(raw) != rawLen || xxhash.Sum64(raw) != sum {
		return nil, &StorageError{Op: "read", Offset: offset, Count: count, Err: errChecksum}
	}
	events, err := DecodeEvents(raw, s.nd)
	if err != nil {
		return nil, &StorageError{Op: "decode", Offset: offset, Count: count, Err: err}
	}
	if int64(len(events)) != count {
		return nil, &StorageError{Op: "read", Offset: offset, Count: count,
			Err: fmt.Errorf("block holds %d events", len(events))}
	}
	return events, nil
}

// Release deletes the block starting at offset, if any.
func (s *BadgerStore) Release(offset, count int64) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(blockKey(offset))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return &StorageError{Op: "release", Offset: offset, Count: count, Err: err}
	}
	return nil
}

func (s *BadgerStore) Sync() error {
	if err := s.db.Sync(); err != nil {
		return &StorageError{Op: "sync", Offset: -1, Err: err}
	}
	return nil
}

func (s *BadgerStore) Close() error {
	if err := s.db.Close(); err != nil {
		return &StorageError{Op: "close", Offset: -1, Err: err}
	}
	return nil
}
