package pcap

import (
	"TrafficParser/internal/model"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func writeSample(t *testing.T, path string) []SynthFrame {
	t.Helper()
	frames, err := SampleFrames(testStart)
	require.NoError(t, err)
	require.NoError(t, WriteCaptureFile(path, frames))
	return frames
}

func readAll(t *testing.T, r *Reader) []Frame {
	t.Helper()
	var out []Frame
	for {
		f, err := r.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, f)
	}
}

func TestReaderClassicPcap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.pcap")
	frames := writeSample(t, path)

	r, err := NewReader(path, 0)
	require.NoError(t, err)
	defer r.Close()

	got := readAll(t, r)
	require.Len(t, got, len(frames))
	assert.Equal(t, layers.LinkTypeEthernet, r.LinkType())
	assert.Equal(t, "sample.pcap", got[0].File)
	for i := range got {
		assert.Equal(t, i, got[i].Index)
		assert.Equal(t, frames[i].Data, got[i].Data)
		assert.True(t, frames[i].Timestamp.Equal(got[i].CaptureInfo.Timestamp))
	}
	assert.Equal(t, 0, r.Skipped())

	_, err = r.Next()
	assert.Equal(t, io.EOF, err, "exhausted reader keeps returning EOF")
}

func TestReaderPcapNg(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.pcapng")
	frames := writeSample(t, path)

	r, err := NewReader(path, 0)
	require.NoError(t, err)
	defer r.Close()

	got := readAll(t, r)
	require.Len(t, got, len(frames))
	assert.Equal(t, layers.LinkTypeEthernet, got[0].LinkType)
	assert.Equal(t, frames[3].Data, got[3].Data)
}

func TestReaderFrameCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capped.pcap")
	frames := writeSample(t, path)

	r, err := NewReader(path, 4)
	require.NoError(t, err)
	defer r.Close()

	got := readAll(t, r)
	assert.Len(t, got, 4)
	assert.Equal(t, 4, r.Read())
	assert.Equal(t, len(frames)-4, r.Skipped())
}

func TestReaderRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pcap")
	require.NoError(t, os.WriteFile(path, []byte("this is not a capture file at all"), 0o644))

	_, err := NewReader(path, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrSourceFormat))
}

func TestReaderEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pcap")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := NewReader(path, 0)
	assert.ErrorIs(t, err, model.ErrSourceFormat)
}

func TestReaderTruncatedRecord(t *testing.T) {
	frames, err := SampleFrames(testStart)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCapture(&buf, frames[:3]))
	// Chop the last record in half.
	data := buf.Bytes()[:buf.Len()-len(frames[2].Data)/2]

	path := filepath.Join(t.TempDir(), "truncated.pcap")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	r, err := NewReader(path, 0)
	require.NoError(t, err)
	defer r.Close()

	for i := 0; i < 2; i++ {
		f, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, frames[i].Data, f.Data)
	}
	_, err = r.Next()
	assert.ErrorIs(t, err, model.ErrSourceFormat)
	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestListCaptureFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pcap", "a.PCAPNG", "notes.txt", "c.pcap.bak"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.pcap"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested.pcap", "inner.pcap"), nil, 0o644))

	files, err := ListCaptureFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.PCAPNG"),
		filepath.Join(dir, "b.pcap"),
	}, files)
}

func TestListCaptureFilesEmptyDir(t *testing.T) {
	files, err := ListCaptureFiles(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestListCaptureFilesMissingDir(t *testing.T) {
	_, err := ListCaptureFiles(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestListCaptureFilesNotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.pcap")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := ListCaptureFiles(path)
	assert.ErrorIs(t, err, model.ErrConfiguration)
}
