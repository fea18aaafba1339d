package bench

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"
)

// OpSource is a random-access sequence of wire-form ops.
type OpSource interface {
	Len() int
	At(i int) (Op, error)
}

// OpList is an in-memory OpSource.
type OpList []Op

func (l OpList) Len() int { return len(l) }

func (l OpList) At(i int) (Op, error) {
	if i < 0 || i >= len(l) {
		return Op{}, fmt.Errorf("op %d out of range [0, %d)", i, len(l))
	}
	return l[i], nil
}

// OpLogWriter appends fixed-width op records to a file.
type OpLogWriter struct {
	file   *os.File
	writer *bufio.Writer
	buf    [RecordSize]byte
	count  int
}

func CreateOpLog(path string) (*OpLogWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create op log %s: %w", path, err)
	}
	return &OpLogWriter{file: file, writer: bufio.NewWriter(file)}, nil
}

func (w *OpLogWriter) Write(op Op) error {
	encodeOp(w.buf[:], op)
	if _, err := w.writer.Write(w.buf[:]); err != nil {
		return fmt.Errorf("failed to write op %d: %w", w.count, err)
	}
	w.count++
	return nil
}

func (w *OpLogWriter) Count() int {
	return w.count
}

func (w *OpLogWriter) Close() error {
	if err := w.writer.Flush(); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("failed to sync file: %w", err)
	}
	return w.file.Close()
}

// OpLogReader maps an op log read-only and decodes records on demand.
type OpLogReader struct {
	file   *os.File
	handle mmap.MMap
}

func OpenOpLog(path string) (*OpLogReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open op log %s: %w", path, err)
	}

	fi, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if fi.Size()%RecordSize != 0 {
		_ = file.Close()
		return nil, fmt.Errorf("op log %s has size %d, not a multiple of %d", path, fi.Size(), RecordSize)
	}

	res := &OpLogReader{file: file}
	// empty files cannot be mapped
	if fi.Size() == 0 {
		return res, nil
	}

	handle, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to mmap file %s: %w", path, err)
	}
	res.handle = handle
	return res, nil
}

func (r *OpLogReader) Len() int {
	return len(r.handle) / RecordSize
}

func (r *OpLogReader) At(i int) (Op, error) {
	offset := i * RecordSize
	if i < 0 || offset+RecordSize > len(r.handle) {
		return Op{}, fmt.Errorf("trying to read beyond mapped data: op %d of %d", i, r.Len())
	}
	op, err := decodeOp(r.handle[offset : offset+RecordSize])
	if err != nil {
		return Op{}, fmt.Errorf("op %d: %w", i, err)
	}
	return op, nil
}

func (r *OpLogReader) Close() error {
	if r.handle != nil {
		if err := r.handle.Unmap(); err != nil {
			_ = r.file.Close()
			return err
		}
		r.handle = nil
	}
	return r.file.Close()
}

var (
	_ OpSource  = OpList(nil)
	_ OpSource  = &OpLogReader{}
	_ io.Closer = &OpLogReader{}
)
