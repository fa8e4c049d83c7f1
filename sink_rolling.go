package logpp

import (
	"strings"
	"sync/atomic"
	"time"
)

// rotationInterval is either a calendar unit or a fixed duration aligned to the zero time
type rotationInterval struct {
	unit  string
	every time.Duration
}

// parseInterval accepts minute, hour, day, month, year or a positive Go duration
func parseInterval(s string) (rotationInterval, error) {
	switch unit := strings.ToLower(strings.TrimSpace(s)); unit {
	case "minute", "hour", "day", "month", "year":
		return rotationInterval{unit: unit}, nil
	case "":
		return rotationInterval{}, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return rotationInterval{}, fmtErrorf("invalid interval '%s' (use minute, hour, day, month, year or a duration): %w", s, err)
	}
	if d <= 0 {
		return rotationInterval{}, fmtErrorf("interval must be positive: %s", s)
	}
	return rotationInterval{every: d}, nil
}

func (ri rotationInterval) enabled() bool {
	return ri.unit != "" || ri.every > 0
}

// next returns the first boundary strictly after t
func (ri rotationInterval) next(t time.Time) time.Time {
	y, m, d := t.Date()
	loc := t.Location()
	switch ri.unit {
	case "minute":
		return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc).Add(time.Minute)
	case "hour":
		return time.Date(y, m, d, t.Hour(), 0, 0, 0, loc).Add(time.Hour)
	case "day":
		return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	case "month":
		return time.Date(y, m+1, 1, 0, 0, 0, 0, loc)
	case "year":
		return time.Date(y+1, 1, 1, 0, 0, 0, 0, loc)
	}
	if ri.every > 0 {
		return t.Truncate(ri.every).Add(ri.every)
	}
	return time.Time{}
}

// RollingFileSink is a file sink that archives the current file when it grows
// past max_size or when an interval boundary is crossed.
// Thresholds are checked before each record, so a rotation never splits a record.
type RollingFileSink struct {
	file         *FileSink
	maxSize      int64
	interval     rotationInterval
	nextRotation time.Time
	archive      archiveOptions
	rotations    atomic.Uint64
	// lastArchive is the path of the most recent archive
	lastArchive string
}

func newRollingFileSink(sc *SinkConfig) (*RollingFileSink, error) {
	interval, err := parseInterval(sc.Interval)
	if err != nil {
		return nil, err
	}
	file, err := newFileSink(sc)
	if err != nil {
		return nil, err
	}

	layout := sc.ArchiveLayout
	if layout == "" {
		layout = defaultArchiveLayout
	}
	s := &RollingFileSink{
		file:     file,
		maxSize:  sc.MaxSize,
		interval: interval,
		archive: archiveOptions{
			strategy: sc.Archive,
			layout:   layout,
			maxFiles: sc.MaxFiles,
			compress: sc.Compress,

			maxAge:       sc.MaxAge,
			maxTotalSize: sc.MaxTotalSize,
			minDiskFree:  sc.MinDiskFree,
		},
	}
	if interval.enabled() {
		s.nextRotation = interval.next(time.Now())
	}
	return s, nil
}

// shouldRotate checks the thresholds for a pending record of n bytes stamped at t
func (s *RollingFileSink) shouldRotate(n int64, t time.Time) bool {
	if s.maxSize > 0 && s.file.size > 0 && s.file.size+n > s.maxSize {
		return true
	}
	if !s.nextRotation.IsZero() && !t.Before(s.nextRotation) {
		return true
	}
	return false
}

func (s *RollingFileSink) Write(records []Record) error {
	var err error
	f := s.file
	for i := range records {
		r := &records[i]
		f.scratch = f.enc.AppendRecord(f.scratch[:0], r)

		if s.shouldRotate(int64(len(f.scratch)), r.Time) {
			if rerr := s.rotate(r.Time); rerr != nil {
				err = combineErrors(err, rerr)
			}
		}
		if f.file == nil {
			// A failed reopen is retried on the next record
			if oerr := f.open(); oerr != nil {
				return combineErrors(err, oerr)
			}
		}

		n, werr := f.w.Write(f.scratch)
		f.size += int64(n)
		if werr != nil {
			return combineErrors(err, werr)
		}
		if f.flush == FlushRecord {
			if ferr := f.w.Flush(); ferr != nil {
				return combineErrors(err, ferr)
			}
		}
	}
	if f.file != nil {
		err = combineErrors(err, f.w.Flush())
	}
	return err
}

// rotate flushes and closes the current file, archives it and reopens the target path.
// When archiving fails the original file is reopened for appending so nothing is lost.
func (s *RollingFileSink) rotate(now time.Time) error {
	f := s.file
	if s.interval.enabled() {
		s.nextRotation = s.interval.next(now)
	}
	if f.file != nil {
		if err := f.w.Flush(); err != nil {
			return fmtErrorf("failed to flush log file '%s' before rotation: %w", f.path, err)
		}
		if err := f.file.Close(); err != nil {
			return fmtErrorf("failed to close log file '%s' before rotation: %w", f.path, err)
		}
		f.file = nil
	}

	archivePath, archErr := archiveLogFile(f.path, s.archive, now)
	if archivePath != "" {
		s.lastArchive = archivePath
		s.rotations.Add(1)
	}

	if err := f.open(); err != nil {
		return combineErrors(archErr, err)
	}
	return archErr
}

func (s *RollingFileSink) reopen() error {
	return s.file.reopen()
}

// Flush writes out buffered bytes and syncs the current file
func (s *RollingFileSink) Flush() error {
	return s.file.Flush()
}

func (s *RollingFileSink) Close() error {
	return s.file.Close()
}

// Rotations returns the number of completed rotations
func (s *RollingFileSink) Rotations() uint64 {
	return s.rotations.Load()
}
