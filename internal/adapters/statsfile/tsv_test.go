package statsfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
)

func TestTSVSink_WritesHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "cc.txt")
	sink, err := Open(path)
	require.NoError(t, err)

	rows := domain.Counters{MessagesReceived: 2, MessagesSent: 1, BytesReceived: 144, BytesSent: 68}.Rows(10, "CC")
	require.NoError(t, sink.WriteRows(rows))

	// flushed without closing
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, Header, lines[0])
	assert.Equal(t, "10\tCC\tall\tNumReceived\t2", lines[1])
	assert.Equal(t, "10\tCC\tall\tSizeSent\t68", lines[4])

	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())
	assert.ErrorIs(t, sink.WriteRows(rows), domain.ErrSinkUnavailable)
}

func TestTSVSink_TruncatesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cc.txt")
	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0o644))

	sink, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Header+"\n", string(data))
}

func TestFormatRow_FractionalTime(t *testing.T) {
	row := domain.StatsRow{Time: 2.5, Node: "CC", Face: "all", Signal: domain.SignalSizeReceived, Value: 108}
	assert.Equal(t, "2.5\tCC\tall\tSizeReceived\t108\n", FormatRow(row))
}

func TestOpen_UnwritableLocation(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := Open(filepath.Join(blocker, "cc.txt"))
	assert.ErrorIs(t, err, domain.ErrSinkUnavailable)
}

// flakyWriter fails its next fails writes, then passes through.
type flakyWriter struct {
	w     io.Writer
	fails int
}

func (f *flakyWriter) Write(p []byte) (int, error) {
	if f.fails > 0 {
		f.fails--
		return 0, errors.New("disk full")
	}
	return f.w.Write(p)
}

func TestTSVSink_FailedBatchLeavesNoPartialRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cc.txt")
	sink, err := Open(path)
	require.NoError(t, err)
	defer sink.Close()

	sink.out = &flakyWriter{w: sink.f, fails: 1}
	sink.w.Reset(sink.out)

	lost := domain.Counters{MessagesReceived: 9}.Rows(10, "CC")
	require.Error(t, sink.WriteRows(lost))

	kept := domain.Counters{MessagesReceived: 3}.Rows(20, "CC")
	require.NoError(t, sink.WriteRows(kept))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, Header, lines[0])
	assert.Equal(t, "20\tCC\tall\tNumReceived\t3", lines[1])
	assert.NotContains(t, string(data), "\t9\n")
}
