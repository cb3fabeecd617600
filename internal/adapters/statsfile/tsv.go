package statsfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
	"github.com/lcalzada-xor/floodctl/internal/core/ports"
)

// Header is the first line of every statistics file.
const Header = "Time\tNode\tFace\tSignal\tValue"

// TSVSink writes statistics rows as tab separated text, one row per line.
// The file is truncated on open and flushed after every batch so readers can
// tail it while the controller runs.
type TSVSink struct {
	mu   sync.Mutex
	path string
	f    *os.File
	out  io.Writer
	w    *bufio.Writer
}

// Open creates (or truncates) path and writes the header.
func Open(path string) (*TSVSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrSinkUnavailable, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSinkUnavailable, err)
	}
	s := &TSVSink{path: path, f: f, out: f, w: bufio.NewWriter(f)}
	if _, err := s.w.WriteString(Header + "\n"); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrSinkUnavailable, err)
	}
	if err := s.w.Flush(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrSinkUnavailable, err)
	}
	return s, nil
}

// Path returns the file location.
func (s *TSVSink) Path() string { return s.path }

// WriteRows appends rows and flushes. On failure the unwritten part of the
// batch is discarded so the next batch starts on a clean line.
func (s *TSVSink) WriteRows(rows []domain.StatsRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return domain.ErrSinkUnavailable
	}
	for _, r := range rows {
		if _, err := s.w.WriteString(FormatRow(r)); err != nil {
			s.w.Reset(s.out)
			return err
		}
	}
	if err := s.w.Flush(); err != nil {
		s.w.Reset(s.out)
		return err
	}
	return nil
}

// Close flushes and closes the file.
func (s *TSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	flushErr := s.w.Flush()
	closeErr := s.f.Close()
	s.f = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// FormatRow renders one line including the trailing newline.
func FormatRow(r domain.StatsRow) string {
	return formatFloat(r.Time) + "\t" + r.Node + "\t" + r.Face + "\t" + r.Signal + "\t" + formatFloat(r.Value) + "\n"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var _ ports.StatsSink = (*TSVSink)(nil)
