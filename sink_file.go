package logpp

import (
	"bufio"
	"os"
	"path/filepath"
)

// FileSink appends encoded records to a single file
type FileSink struct {
	path    string
	file    *os.File
	w       *bufio.Writer
	enc     Encoder
	flush   string
	size    int64
	scratch []byte
}

func newFileSink(sc *SinkConfig) (*FileSink, error) {
	enc, err := newEncoder(sc.Format, sc.Pattern)
	if err != nil {
		return nil, err
	}
	s := &FileSink{
		path:  sc.Target,
		enc:   enc,
		flush: sc.Flush,
	}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

// openLogFile creates parent directories and opens path for appending
func openLogFile(path string) (*os.File, int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, 0, fmtErrorf("failed to create log directory for '%s': %w", path, err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, 0, fmtErrorf("failed to open/create log file '%s': %w", path, err)
	}
	var size int64
	if fi, err := file.Stat(); err == nil {
		size = fi.Size()
	}
	return file, size, nil
}

func (s *FileSink) open() error {
	file, size, err := openLogFile(s.path)
	if err != nil {
		return err
	}
	s.file = file
	s.size = size
	if s.w == nil {
		s.w = bufio.NewWriterSize(file, fileBufferSize)
	} else {
		s.w.Reset(file)
	}
	return nil
}

// reopen switches to a fresh descriptor if the file at path is no longer the open one
func (s *FileSink) reopen() error {
	if s.file != nil {
		cur, err := s.file.Stat()
		if err == nil {
			if onDisk, err := os.Stat(s.path); err == nil && os.SameFile(cur, onDisk) {
				s.size = onDisk.Size()
				return nil
			}
		}
		if err := s.w.Flush(); err != nil {
			return err
		}
		if err := s.file.Close(); err != nil {
			return fmtErrorf("failed to close stale log file '%s': %w", s.path, err)
		}
		s.file = nil
	}
	return s.open()
}

// Write appends the batch; with the batch flush policy the buffer is handed
// to the OS once per batch, with the record policy once per record
func (s *FileSink) Write(records []Record) error {
	if s.file == nil {
		return fmtErrorf("log file '%s' is closed", s.path)
	}
	for i := range records {
		s.scratch = s.enc.AppendRecord(s.scratch[:0], &records[i])
		n, err := s.w.Write(s.scratch)
		s.size += int64(n)
		if err != nil {
			return err
		}
		if s.flush == FlushRecord {
			if err := s.w.Flush(); err != nil {
				return err
			}
		}
	}
	return s.w.Flush()
}

// Flush writes out buffered bytes and syncs the file to disk
func (s *FileSink) Flush() error {
	if s.file == nil {
		return nil
	}
	if err := s.w.Flush(); err != nil {
		return err
	}
	return s.file.Sync()
}

func (s *FileSink) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.Flush()
	if cerr := s.file.Close(); cerr != nil {
		err = combineErrors(err, fmtErrorf("failed to close log file '%s': %w", s.path, cerr))
	}
	s.file = nil
	return err
}

// Size returns the current file size in bytes
func (s *FileSink) Size() int64 {
	return s.size
}
