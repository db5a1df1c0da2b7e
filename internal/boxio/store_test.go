package boxio

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/banshee-data/mdspace/internal/config"
	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	s, err := OpenFileStore(filepath.Join(t.TempDir(), "events.bin"), 3)
	require.NoError(t, err)
	defer s.Close()

	events := sampleEvents()
	require.NoError(t, s.WriteAt(4, events))
	got, err := s.ReadAt(4, 3)
	require.NoError(t, err)
	assert.Equal(t, events, got)

	_, err = s.ReadAt(100, 2)
	assert.True(t, errors.Is(err, ErrStorageIO), "err = %v", err)
	var se *StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "read", se.Op)
	assert.NoError(t, s.Sync())
}

func TestBadgerStoreCompression(t *testing.T) {
	for _, c := range []string{config.CompressionNone, config.CompressionZstd, config.CompressionLZ4} {
		t.Run(c, func(t *testing.T) {
			s, err := OpenBadgerStore("", 3, c)
			require.NoError(t, err)
			defer s.Close()

			in := sampleEvents()
			for i := 0; i < 50; i++ {
				in = append(in, sampleEvents()...)
			}
			require.NoError(t, s.WriteAt(0, in))
			got, err := s.ReadAt(0, int64(len(in)))
			require.NoError(t, err)
			assert.Equal(t, in, got)

			_, err = s.ReadAt(0, 2)
			assert.True(t, errors.Is(err, ErrStorageIO))

			require.NoError(t, s.Release(0, int64(len(in))))
			_, err = s.ReadAt(0, int64(len(in)))
			assert.True(t, errors.Is(err, ErrStorageIO))
			assert.NoError(t, s.Release(0, 1))
		})
	}
}

func TestBadgerStoreChecksum(t *testing.T) {
	s, err := OpenBadgerStore("", 3, config.CompressionNone)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.WriteAt(9, sampleEvents()))
	require.NoError(t, s.corrupt(9))
	_, err = s.ReadAt(9, 3)
	assert.True(t, errors.Is(err, ErrStorageIO))
	assert.True(t, errors.Is(err, errChecksum))
}

func TestBadgerStoreOnDisk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blocks")
	s, err := OpenBadgerStore(dir, 3, config.CompressionZstd)
	require.NoError(t, err)
	require.NoError(t, s.WriteAt(0, sampleEvents()))
	require.NoError(t, s.Sync())
	require.NoError(t, s.Close())

	s, err = OpenBadgerStore(dir, 3, config.CompressionZstd)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.ReadAt(0, 3)
	require.NoError(t, err)
	assert.Equal(t, sampleEvents(), got)
}

func TestOpenBadgerStoreUnknownCompression(t *testing.T) {
	_, err := OpenBadgerStore("", 3, "brotli")
	assert.Error(t, err)
}

func TestMemStore(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.WriteAt(2, sampleEvents()))
	assert.Equal(t, int64(5), s.Len())
	got, err := s.ReadAt(2, 3)
	require.NoError(t, err)
	assert.Equal(t, sampleEvents(), got)

	_, err = s.ReadAt(4, 3)
	assert.True(t, errors.Is(err, ErrStorageIO))
	require.NoError(t, s.Close())
	_, err = s.ReadAt(2, 1)
	assert.True(t, errors.Is(err, ErrStorageIO))
}

// corrupt flips the last payload byte of the block at offset.
func (s *BadgerStore) corrupt(offset int64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(blockKey(offset))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		val[len(val)-1] ^= 0xff
		return txn.Set(blockKey(offset), val)
	})
}
