package pagestore

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	// PageSize is the default page size, 4 kilobytes.
	PageSize = 4096
)

// PageID addresses a page's logical position in the backing file. Ids are
// dense and monotonic, page 0 always exists and ids are never reused.
type PageID uint64

// PageStore turns a single backing file into an array of uniformly sized,
// randomly addressable pages. All file I/O is synchronous, a write has been
// flushed to disk by the time the call returns. Apart from Allocate, the
// store does not serialize concurrent access to the same page, a buffer
// pool or lock manager above is expected to do that.
type PageStore struct {
	pageSize      int
	lastAllocated atomic.Uint64

	// Independent positioned-I/O handles so that reads never have to
	// share a cursor with writes.
	reader *os.File
	writer *os.File

	logger *zap.Logger
}

type Option func(*PageStore)

func WithPageSize(pageSize int) Option {
	return func(s *PageStore) {
		if pageSize > 0 {
			s.pageSize = pageSize
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *PageStore) {
		s.logger = logger
	}
}

// New opens the database file at filepath.Join(dataDir, filename), creating
// it if it does not exist, and initializes page 0 to zero bytes. The zero
// write happens on every open, clobbering whatever occupied page 0 before,
// so the first page is always in a deterministic state.
func New(dataDir, filename string, opts ...Option) (*PageStore, error) {
	aStore := &PageStore{
		pageSize: PageSize,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(aStore)
	}

	path := filepath.Join(dataDir, filename)

	writer, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening db file %q: %w", path, err)
	}
	reader, err := os.OpenFile(path, os.O_RDONLY, 0600)
	if err != nil {
		err = fmt.Errorf("opening db file %q for reading: %w", path, err)
		return nil, multierr.Append(err, writer.Close())
	}
	aStore.writer = writer
	aStore.reader = reader

	if err := aStore.Write(0, make([]byte, aStore.pageSize)); err != nil {
		return nil, multierr.Append(err, aStore.Close())
	}

	aStore.logger.Debug(
		"opened page store",
		zap.String("path", path),
		zap.Int("page_size", aStore.pageSize),
	)

	return aStore, nil
}

// PageSize returns the fixed page size, constant for the store's lifetime.
func (s *PageStore) PageSize() int {
	return s.pageSize
}

// Watermark returns the highest page id allocated so far.
func (s *PageStore) Watermark() PageID {
	return PageID(s.lastAllocated.Load())
}

// Allocate hands out a new, never-before-used page id and zero-fills the
// page on disk before returning, so the caller can immediately read back an
// all-zero page. Safe to call concurrently without external locking.
func (s *PageStore) Allocate() (PageID, error) {
	pageID := PageID(s.lastAllocated.Add(1))
	if err := s.Write(pageID, make([]byte, s.pageSize)); err != nil {
		return 0, fmt.Errorf("initializing page %d: %w", pageID, err)
	}
	s.logger.Debug("allocated page", zap.Uint64("page_id", uint64(pageID)))
	return pageID, nil
}

// Offset converts a page id into a byte offset in the backing file. Pure,
// performs no I/O. Fails with ErrArithmeticOverflow rather than letting a
// pathologically large id wrap around and misdirect I/O.
func (s *PageStore) Offset(pageID PageID) (int64, error) {
	if pageID > math.MaxInt64/PageID(s.pageSize) {
		return 0, fmt.Errorf("offset of page %d: %w", pageID, ErrArithmeticOverflow)
	}
	return int64(pageID) * int64(s.pageSize), nil
}

// Read returns the page's bytes as an owned buffer of exactly PageSize()
// bytes. A short read (end of file before a full page) is an error, never a
// partial result. The page id is not checked against the watermark.
func (s *PageStore) Read(pageID PageID) ([]byte, error) {
	offset, err := s.Offset(pageID)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, s.pageSize)
	if _, err := s.reader.ReadAt(buf, offset); err != nil {
		return nil, fmt.Errorf("reading page %d: %w", pageID, err)
	}
	return buf, nil
}

// Write stores data at the page's offset and flushes it to disk before
// returning. Data longer than the page size is rejected with ErrInvalidData.
// Data shorter than the page size overwrites only the page's prefix, bytes
// beyond len(data) keep whatever was previously stored there.
func (s *PageStore) Write(pageID PageID, data []byte) error {
	if len(data) > s.pageSize {
		return fmt.Errorf("%w: page data must fit in a page", ErrInvalidData)
	}
	offset, err := s.Offset(pageID)
	if err != nil {
		return err
	}
	if _, err := s.writer.WriteAt(data, offset); err != nil {
		return fmt.Errorf("writing page %d: %w", pageID, err)
	}
	if err := s.writer.Sync(); err != nil {
		return fmt.Errorf("syncing page %d: %w", pageID, err)
	}
	return nil
}

// Close releases both file handles. The store must not be used afterwards.
func (s *PageStore) Close() error {
	s.logger.Debug("closing page store")
	return multierr.Combine(
		s.reader.Close(),
		s.writer.Close(),
	)
}
