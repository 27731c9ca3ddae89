// Package mmapstore implements a mavl.Store as an append-only, memory-mapped ordered key-value
// log: inserts and tombstones are appended sequentially, an in-memory sorted index tracks the
// live key set, and Compact rewrites the log keeping only live entries. The mmap lifecycle
// (resize-on-demand, background flush, background resize) is the teacher's own pattern,
// adapted from a hash-array-mapped-trie node store to a flat log. Compaction runs only when
// Compact is called; no background goroutine triggers it.
package mmapstore

import "context"
import "encoding/binary"
import "fmt"
import "os"
import "path/filepath"
import "runtime"
import "sort"
import "sync"
import "sync/atomic"

import "golang.org/x/sync/errgroup"

import "github.com/sirgallo/mavl"


const headerSize = 8 // nextOffset, big-endian uint64

const (
	recordTombstone byte = 0
	recordLive      byte = 1
)

type indexEntry struct {
	key      []byte
	valueOff int
	valueLen int
}

// Store is a memory-mapped, append-only mavl.Store.
type Store struct {
	filepath string

	file *os.File
	data atomic.Value // MMap

	isResizing   uint32
	rwResizeLock sync.RWMutex

	mu         sync.RWMutex
	index      []indexEntry
	nextOffset uint64

	signalFlushChan  chan struct{}
	signalResizeChan chan int
	closeOnce        sync.Once
	closeChan        chan struct{}
	group            *errgroup.Group
}

// Open memory-maps the log file at opts.Filepath/opts.FileName, creating and initializing it if
//	it does not yet exist, and replaying existing records into the in-memory index.
func Open(opts Options) (*Store, error) {
	path := filepath.Join(opts.Filepath, opts.FileName)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil { return nil, err }

	s := &Store{
		filepath:         opts.Filepath,
		file:             f,
		signalFlushChan:  make(chan struct{}, 1),
		signalResizeChan: make(chan int, 1),
		closeChan:        make(chan struct{}),
	}
	s.data.Store(MMap{})

	size := opts.InitialSize
	if size == 0 { size = int64(DefaultPageSize) * defaultInitialPages }

	info, err := f.Stat()
	if err != nil { return nil, err }

	if info.Size() == 0 {
		if err := f.Truncate(size); err != nil { return nil, err }
		if err := s.mMap(); err != nil { return nil, err }

		s.nextOffset = headerSize
		s.storeNextOffset()
	} else {
		if err := s.mMap(); err != nil { return nil, err }

		mMap := s.data.Load().(MMap)
		s.nextOffset = binary.BigEndian.Uint64(mMap[0:headerSize])

		if err := s.replay(); err != nil { return nil, err }
	}

	group, ctx := errgroup.WithContext(context.Background())
	s.group = group
	group.Go(func() error { s.handleFlush(ctx); return nil })
	group.Go(func() error { s.handleResize(ctx); return nil })

	return s, nil
}

// Close flushes and unmaps the log file.
func (s *Store) Close() error {
	var err error

	s.closeOnce.Do(func() {
		close(s.closeChan)
		s.group.Wait()

		if syncErr := s.file.Sync(); syncErr != nil { err = syncErr; return }

		mMap := s.data.Load().(MMap)
		if unmapErr := mMap.Unmap(); unmapErr != nil { err = unmapErr; return }

		err = s.file.Close()
	})

	return err
}

func (s *Store) mMap() error {
	mMap, err := Map(s.file, RDWR, 0)
	if err != nil { return err }

	s.data.Store(mMap)
	return nil
}

func (s *Store) storeNextOffset() {
	mMap := s.data.Load().(MMap)
	binary.BigEndian.PutUint64(mMap[0:headerSize], s.nextOffset)
}

// replay re-parses every record from headerSize to nextOffset into the in-memory index. Used only
//	on Open against a pre-existing file.
func (s *Store) replay() error {
	mMap := s.data.Load().(MMap)
	off := int(headerSize)
	end := int(s.nextOffset)

	for off < end {
		flag := mMap[off]
		off++

		keyLen, n := binary.Uvarint(mMap[off:end])
		if n <= 0 { return fmt.Errorf("mmapstore: corrupt record while replaying log") }
		off += n

		key := append([]byte(nil), mMap[off:off+int(keyLen)]...)
		off += int(keyLen)

		if flag == recordTombstone {
			s.removeFromIndex(key)
			continue
		}

		valueLen, n := binary.Uvarint(mMap[off:end])
		if n <= 0 { return fmt.Errorf("mmapstore: corrupt record while replaying log") }
		off += n

		s.putIndex(key, off, int(valueLen))
		off += int(valueLen)
	}

	return nil
}

func (s *Store) searchIndex(key []byte) int {
	return sort.Search(len(s.index), func(i int) bool { return compareBytes(s.index[i].key, key) >= 0 })
}

func (s *Store) putIndex(key []byte, valueOff, valueLen int) {
	i := s.searchIndex(key)

	if i < len(s.index) && compareBytes(s.index[i].key, key) == 0 {
		s.index[i].valueOff = valueOff
		s.index[i].valueLen = valueLen
		return
	}

	s.index = append(s.index, indexEntry{})
	copy(s.index[i+1:], s.index[i:])
	s.index[i] = indexEntry{ key: key, valueOff: valueOff, valueLen: valueLen }
}

func (s *Store) removeFromIndex(key []byte) bool {
	i := s.searchIndex(key)
	if i >= len(s.index) || compareBytes(s.index[i].key, key) != 0 { return false }

	s.index = append(s.index[:i], s.index[i+1:]...)
	return true
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n { n = len(b) }

	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] { return -1 }
			return 1
		}
	}

	switch {
		case len(a) < len(b): return -1
		case len(a) > len(b): return 1
		default: return 0
	}
}

// append writes a record at the end of the log, resizing first if necessary, and signals an
//	optimistic background flush. Callers hold s.mu for writing.
func (s *Store) append(record []byte) (int, error) {
	required := int(s.nextOffset) + len(record)

	mMap := s.data.Load().(MMap)
	if required > len(mMap) {
		if err := s.resizeMmap(required); err != nil { return 0, err }
		mMap = s.data.Load().(MMap)
	}

	offset := int(s.nextOffset)
	copy(mMap[offset:required], record)

	s.nextOffset = uint64(required)
	s.storeNextOffset()
	s.signalFlush()

	return offset, nil
}

func (s *Store) signalFlush() {
	select {
		case s.signalFlushChan <- struct{}{}:
		default:
	}
}

func (s *Store) handleFlush(ctx context.Context) {
	for {
		select {
			case <-ctx.Done():
				return
			case <-s.closeChan:
				return
			case <-s.signalFlushChan:
				for atomic.LoadUint32(&s.isResizing) == 1 { runtime.Gosched() }

				s.rwResizeLock.RLock()
				if err := s.file.Sync(); err != nil { fmt.Fprintln(os.Stderr, "mmapstore: error flushing to disk:", err) }
				s.rwResizeLock.RUnlock()
		}
	}
}

func (s *Store) handleResize(ctx context.Context) {
	for {
		select {
			case <-ctx.Done():
				return
			case <-s.closeChan:
				return
			case required := <-s.signalResizeChan:
				s.resizeMmap(required)
		}
	}
}

// resizeMmap grows the backing file to at least required bytes and remaps it. Called either
//	directly by the writer (append) or via the background resize handler.
func (s *Store) resizeMmap(required int) error {
	if ! atomic.CompareAndSwapUint32(&s.isResizing, 0, 1) { return nil }
	defer atomic.StoreUint32(&s.isResizing, 0)

	s.rwResizeLock.Lock()
	defer s.rwResizeLock.Unlock()

	mMap := s.data.Load().(MMap)
	current := len(mMap)

	newSize := current * 2
	if current == 0 { newSize = int(DefaultPageSize) * defaultInitialPages }
	if current >= MaxResize { newSize = current + MaxResize }
	for newSize < required { newSize *= 2 }

	if err := s.file.Sync(); err != nil { return err }
	if err := mMap.Unmap(); err != nil { return err }
	if err := s.file.Truncate(int64(newSize)); err != nil { return err }

	return s.mMap()
}

var _ mavl.Store = (*Store)(nil)
