package netcdf

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/dosecast/internal/forecast"
	"github.com/breatheroute/dosecast/internal/resilience"
)

// Buffer is an in-memory NetCDF storage.
type Buffer struct {
	data []byte
}

// NewBuffer wraps data. The buffer takes ownership of the slice.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// ReadAt implements io.ReaderAt.
func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements io.WriterAt, growing the buffer as needed.
func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	end := int(off) + len(p)
	if end > len(b.data) {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
	}
	return copy(b.data[off:], p), nil
}

// Bytes returns the buffer contents.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// FileSource reads grids from a NetCDF file on local disk.
type FileSource struct {
	path   string
	layout Layout
}

// NewFileSource creates a source backed by the file at path.
func NewFileSource(path string, layout Layout) *FileSource {
	return &FileSource{path: path, layout: layout}
}

// Name returns the source identifier.
func (s *FileSource) Name() string {
	return "netcdf:" + filepath.Base(s.path)
}

// FetchGrid opens the file and decodes one lead time.
func (s *FileSource) FetchGrid(ctx context.Context, leadTime int) (*forecast.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open forecast file: %w", err)
	}
	defer f.Close()

	return Decode(f, s.layout, leadTime)
}

// RemoteSourceConfig holds configuration for a source that downloads the
// forecast file over HTTP.
type RemoteSourceConfig struct {
	// URL of the NetCDF file.
	URL string

	// Layout of the variables in the file.
	Layout Layout

	// Client performs the download with retries and a circuit breaker.
	Client *resilience.Client

	// Registry receives download success and failure records. Optional.
	Registry *resilience.Registry

	// MaxAge is how long a downloaded file is decoded from memory before
	// being fetched again (default: 1 hour).
	MaxAge time.Duration

	// Logger for download operations.
	Logger zerolog.Logger
}

// RemoteSource downloads the forecast file once and decodes every lead time
// from the in-memory copy until it ages out.
type RemoteSource struct {
	url      string
	layout   Layout
	client   *resilience.Client
	registry *resilience.Registry
	maxAge   time.Duration
	logger   zerolog.Logger

	mu           sync.Mutex
	file         *Buffer
	downloadedAt time.Time
}

// NewRemoteSource creates a new remote NetCDF source.
func NewRemoteSource(cfg RemoteSourceConfig) *RemoteSource {
	maxAge := cfg.MaxAge
	if maxAge == 0 {
		maxAge = time.Hour
	}

	client := cfg.Client
	if client == nil {
		client = resilience.NewClient(resilience.DefaultClientConfig("netcdf-remote"))
	}

	return &RemoteSource{
		url:      cfg.URL,
		layout:   cfg.Layout,
		client:   client,
		registry: cfg.Registry,
		maxAge:   maxAge,
		logger:   cfg.Logger,
	}
}

// Name returns the source identifier.
func (s *RemoteSource) Name() string {
	return s.client.Name()
}

// FetchGrid decodes one lead time, downloading the file first when the
// in-memory copy is missing or too old.
func (s *RemoteSource) FetchGrid(ctx context.Context, leadTime int) (*forecast.Grid, error) {
	file, err := s.currentFile(ctx)
	if err != nil {
		return nil, err
	}
	return Decode(file, s.layout, leadTime)
}

func (s *RemoteSource) currentFile(ctx context.Context) (*Buffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil && time.Since(s.downloadedAt) < s.maxAge {
		return s.file, nil
	}

	data, err := s.client.Fetch(ctx, s.url)
	if err != nil {
		s.recordFailure(err)
		if s.file != nil {
			s.logger.Warn().Err(err).Time("downloaded_at", s.downloadedAt).Msg("keeping previous forecast file after download error")
			return s.file, nil
		}
		return nil, fmt.Errorf("download forecast file: %w", err)
	}
	s.recordSuccess()

	s.file = NewBuffer(data)
	s.downloadedAt = time.Now()
	s.logger.Info().Str("url", s.url).Int("bytes", len(data)).Msg("forecast file downloaded")
	return s.file, nil
}

func (s *RemoteSource) recordSuccess() {
	if s.registry != nil {
		s.registry.RecordSuccess(s.client.Name())
	}
}

func (s *RemoteSource) recordFailure(err error) {
	if s.registry != nil {
		s.registry.RecordFailure(s.client.Name(), err)
	}
}
