package placement

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/settler/internal/world"
)

// JSONLSink writes one JSON object per placement, zstd-compressed.
type JSONLSink struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
	n   int
}

// CreateJSONL creates (or truncates) path and its parent directory.
func CreateJSONL(path string) (*JSONLSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &JSONLSink{
		f:   f,
		enc: enc,
		w:   bufio.NewWriterSize(enc, 128*1024),
	}, nil
}

// Place appends one line.
func (s *JSONLSink) Place(pos world.Vec3, material string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.w == nil {
		return fmt.Errorf("jsonl sink closed")
	}
	b, err := json.Marshal(Placement{X: pos.X, Y: pos.Y, Z: pos.Z, Material: material})
	if err != nil {
		return err
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}
	s.n++
	return nil
}

// Count returns the number of lines written.
func (s *JSONLSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// Close flushes the buffer and the zstd frame, then closes the file.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err1, err2 error
	if s.w != nil {
		err1 = s.w.Flush()
		s.w = nil
	}
	if s.enc != nil {
		err2 = s.enc.Close()
		s.enc = nil
	}
	if s.f != nil {
		if err := s.f.Close(); err != nil && err1 == nil && err2 == nil {
			return err
		}
		s.f = nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}

// ReadJSONL decodes a file written by JSONLSink.
func ReadJSONL(path string) ([]Placement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	return decodeLines(dec)
}

func decodeLines(r io.Reader) ([]Placement, error) {
	var out []Placement
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		var p Placement
		if err := json.Unmarshal(sc.Bytes(), &p); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, p)
	}
	return out, sc.Err()
}
