package pcap

import (
	"TrafficParser/internal/model"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Frame is one raw captured packet together with where it came from.
type Frame struct {
	File        string
	Index       int
	Data        []byte
	CaptureInfo gopacket.CaptureInfo
	LinkType    layers.LinkType
}

// packetDataReader is satisfied by both pcapgo.Reader and pcapgo.NgReader.
type packetDataReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
}

// Reader reads frames from a single pcap or pcapng file.
type Reader struct {
	file      *os.File
	source    packetDataReader
	linkType  layers.LinkType
	name      string
	maxFrames int
	read      int
	skipped   int
	done      bool
}

// IsCaptureFile reports whether name has a recognised capture extension.
func IsCaptureFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".pcap") || strings.HasSuffix(lower, ".pcapng")
}

// ListCaptureFiles returns the capture files directly under dir, sorted by name.
func ListCaptureFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, model.NewPathError(model.ErrNotFound, dir, err)
		}
		return nil, model.NewPathError(model.ErrConfiguration, dir, err)
	}
	if !info.IsDir() {
		return nil, model.NewPathError(model.ErrConfiguration, dir, errors.New("not a directory"))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, model.NewPathError(model.ErrConfiguration, dir, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !IsCaptureFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// NewReader opens a capture file. maxFrames caps how many frames Next yields;
// zero or less means no cap. A file that cannot be opened or whose header is not
// a valid pcap/pcapng header fails with model.ErrSourceFormat.
func NewReader(filePath string, maxFrames int) (*Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, model.NewPathError(model.ErrSourceFormat, filePath, err)
	}

	r := &Reader{file: file, name: filepath.Base(filePath), maxFrames: maxFrames}

	// Try pcapng first, then fall back to classic pcap.
	if ng, err := pcapgo.NewNgReader(file, pcapgo.DefaultNgReaderOptions); err == nil {
		r.source, r.linkType = ng, ng.LinkType()
		return r, nil
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, model.NewPathError(model.ErrSourceFormat, filePath, fmt.Errorf("failed to rewind: %w", err))
	}
	classic, err := pcapgo.NewReader(file)
	if err != nil {
		file.Close()
		return nil, model.NewPathError(model.ErrSourceFormat, filePath, err)
	}
	r.source, r.linkType = classic, classic.LinkType()
	return r, nil
}

// Name returns the base name of the underlying file.
func (r *Reader) Name() string {
	return r.name
}

// LinkType returns the link type declared by the file header.
func (r *Reader) LinkType() layers.LinkType {
	return r.linkType
}

// Next returns the next frame, or io.EOF once the file (or the cap) is exhausted.
// Frames beyond the cap are consumed and counted by Skipped. A corrupt record
// fails with model.ErrSourceFormat; frames returned before it remain valid.
func (r *Reader) Next() (Frame, error) {
	if r.done {
		return Frame{}, io.EOF
	}
	for {
		data, ci, err := r.source.ReadPacketData()
		if err == io.EOF {
			r.done = true
			return Frame{}, io.EOF
		}
		if err != nil {
			r.done = true
			return Frame{}, model.NewPathError(model.ErrSourceFormat, r.name,
				fmt.Errorf("frame %d: %w", r.read+r.skipped, err))
		}
		if r.maxFrames > 0 && r.read >= r.maxFrames {
			r.skipped++
			continue
		}

		frame := Frame{
			File:        r.name,
			Index:       r.read,
			Data:        append([]byte(nil), data...),
			CaptureInfo: ci,
			LinkType:    r.linkType,
		}
		r.read++
		return frame, nil
	}
}

// Read returns the number of frames yielded so far.
func (r *Reader) Read() int {
	return r.read
}

// Skipped returns the number of frames dropped because of the per-file cap.
func (r *Reader) Skipped() int {
	return r.skipped
}

// Close closes the file.
func (r *Reader) Close() error {
	return r.file.Close()
}
