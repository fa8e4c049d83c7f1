package logpp

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
)

// archiveOptions controls how rotated files are named, compressed and retained
type archiveOptions struct {
	strategy string
	layout   string
	maxFiles int
	compress string

	// Disk guards, zero disables each
	maxAge       time.Duration
	maxTotalSize int64
	minDiskFree  int64
}

func (o archiveOptions) guarded() bool {
	return o.maxAge > 0 || o.maxTotalSize > 0 || o.minDiskFree > 0
}

// compressedExt returns the file extension appended by a compression method
func compressedExt(method string) string {
	switch method {
	case CompressGzip:
		return ".gz"
	case CompressBrotli:
		return ".br"
	default:
		return ""
	}
}

// archiveLogFile moves the closed log file at path to its archive name.
// It returns the final archive path, which is empty when nothing was archived.
func archiveLogFile(path string, opts archiveOptions, now time.Time) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmtErrorf("cannot archive log file '%s': %w", path, err)
	}

	var archivePath string
	if opts.strategy == ArchiveTimestamp {
		candidate := path + "." + now.Format(opts.layout)
		if !archiveExists(candidate) {
			archivePath = candidate
		}
	}
	if archivePath == "" {
		// Incremental naming, also the fallback for timestamp collisions
		if err := shiftArchives(path, opts.maxFiles); err != nil {
			return "", err
		}
		archivePath = path + ".0"
	}

	if err := os.Rename(path, archivePath); err != nil {
		return "", fmtErrorf("failed to rename log file from '%s' to '%s': %w", path, archivePath, err)
	}

	var finalErr error
	if opts.compress != "" {
		compressed, err := compressFile(archivePath, opts.compress)
		if err != nil {
			finalErr = err
		} else {
			archivePath = compressed
		}
	}

	if opts.strategy == ArchiveTimestamp && opts.maxFiles > 0 {
		if err := cleanOldArchives(path, opts.maxFiles); err != nil {
			finalErr = combineErrors(finalErr, err)
		}
	}
	if opts.guarded() {
		if err := enforceRetention(path, opts, now); err != nil {
			finalErr = combineErrors(finalErr, err)
		}
	}
	return archivePath, finalErr
}

// archiveExists checks for an archive with or without a compression extension
func archiveExists(candidate string) bool {
	for _, ext := range [...]string{"", ".gz", ".br"} {
		if _, err := os.Stat(candidate + ext); err == nil {
			return true
		}
	}
	return false
}

type indexedArchive struct {
	index  int
	suffix string // compression extension, possibly empty
}

// listIncremental finds archives named <base>.<n> or <base>.<n>.<ext>
func listIncremental(path string) ([]indexedArchive, error) {
	dir := filepath.Dir(path)
	base := filepath.Base(path) + "."
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmtErrorf("failed to read log directory '%s': %w", dir, err)
	}

	var archives []indexedArchive
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, base) {
			continue
		}
		rest := name[len(base):]
		digits, suffix := rest, ""
		if dot := strings.IndexByte(rest, '.'); dot >= 0 {
			digits, suffix = rest[:dot], rest[dot:]
		}
		if suffix != "" && suffix != ".gz" && suffix != ".br" {
			continue
		}
		idx, err := strconv.Atoi(digits)
		if err != nil || idx < 0 || strconv.Itoa(idx) != digits {
			continue
		}
		archives = append(archives, indexedArchive{index: idx, suffix: suffix})
	}
	return archives, nil
}

// shiftArchives renames <base>.<n> to <base>.<n+1>, newest last, freeing <base>.0.
// Archives that would land at or past maxFiles are removed instead.
func shiftArchives(path string, maxFiles int) error {
	archives, err := listIncremental(path)
	if err != nil {
		return err
	}
	sort.Slice(archives, func(i, j int) bool { return archives[i].index > archives[j].index })

	var finalErr error
	for _, a := range archives {
		from := path + "." + strconv.Itoa(a.index) + a.suffix
		if maxFiles > 0 && a.index+1 >= maxFiles {
			if err := os.Remove(from); err != nil {
				finalErr = combineErrors(finalErr, fmtErrorf("failed to remove old archive '%s': %w", from, err))
			}
			continue
		}
		to := path + "." + strconv.Itoa(a.index+1) + a.suffix
		if err := os.Rename(from, to); err != nil {
			return combineErrors(finalErr, fmtErrorf("failed to shift archive '%s' to '%s': %w", from, to, err))
		}
	}
	return finalErr
}

// archiveMeta describes one archive of the active file
type archiveMeta struct {
	name    string
	modTime time.Time
	size    int64
	index   int // Incremental index, -1 for other names
}

// listArchives returns every file named <base>.<suffix> next to path, oldest first.
// Equal modification times fall back to the incremental index, where higher is older.
func listArchives(path string) ([]archiveMeta, error) {
	dir := filepath.Dir(path)
	base := filepath.Base(path) + "."
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmtErrorf("failed to read log directory '%s': %w", dir, err)
	}

	var archives []archiveMeta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), base) {
			continue
		}
		info, errInfo := entry.Info()
		if errInfo != nil {
			continue
		}
		index := -1
		digits, _, _ := strings.Cut(entry.Name()[len(base):], ".")
		if n, err := strconv.Atoi(digits); err == nil && n >= 0 && strconv.Itoa(n) == digits {
			index = n
		}
		archives = append(archives, archiveMeta{name: entry.Name(), modTime: info.ModTime(), size: info.Size(), index: index})
	}

	sort.SliceStable(archives, func(i, j int) bool {
		a, b := archives[i], archives[j]
		if !a.modTime.Equal(b.modTime) {
			return a.modTime.Before(b.modTime)
		}
		if a.index != b.index {
			return a.index > b.index
		}
		return a.name < b.name
	})
	return archives, nil
}

// cleanOldArchives keeps the newest maxFiles archives of path, by modification time
func cleanOldArchives(path string, maxFiles int) error {
	archives, err := listArchives(path)
	if err != nil {
		return err
	}
	if len(archives) <= maxFiles {
		return nil
	}

	dir := filepath.Dir(path)
	var finalErr error
	for _, a := range archives[:len(archives)-maxFiles] {
		filePath := filepath.Join(dir, a.name)
		if err := os.Remove(filePath); err != nil {
			finalErr = combineErrors(finalErr, fmtErrorf("failed to remove old archive '%s': %w", filePath, err))
		}
	}
	return finalErr
}

// enforceRetention applies the disk guards to the archives of path: archives
// older than maxAge are removed, then the oldest ones while the active file plus
// its archives exceed maxTotalSize or free space is below minDiskFree.
// The active file is never removed.
func enforceRetention(path string, opts archiveOptions, now time.Time) error {
	archives, err := listArchives(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	var finalErr error
	remove := func(a archiveMeta) bool {
		filePath := filepath.Join(dir, a.name)
		if err := os.Remove(filePath); err != nil {
			finalErr = combineErrors(finalErr, fmtErrorf("failed to remove old archive '%s': %w", filePath, err))
			return false
		}
		return true
	}

	if opts.maxAge > 0 {
		cutoff := now.Add(-opts.maxAge)
		kept := archives[:0]
		for _, a := range archives {
			if a.modTime.Before(cutoff) && remove(a) {
				continue
			}
			kept = append(kept, a)
		}
		archives = kept
	}

	if opts.maxTotalSize > 0 {
		var total int64
		if info, err := os.Stat(path); err == nil {
			total = info.Size()
		}
		for _, a := range archives {
			total += a.size
		}
		for len(archives) > 0 && total > opts.maxTotalSize {
			if remove(archives[0]) {
				total -= archives[0].size
			}
			archives = archives[1:]
		}
	}

	if opts.minDiskFree > 0 {
		free, err := diskFreeSpace(dir)
		if err != nil {
			return combineErrors(finalErr, err)
		}
		for len(archives) > 0 && free < opts.minDiskFree {
			if remove(archives[0]) {
				free += archives[0].size
			}
			archives = archives[1:]
		}
		if free < opts.minDiskFree {
			finalErr = combineErrors(finalErr, fmtErrorf("free space in '%s' is %d bytes, below min_disk_free %d with no archives left to remove", dir, free, opts.minDiskFree))
		}
	}
	return finalErr
}

// compressFile replaces path with a compressed copy and returns the new path
func compressFile(path, method string) (string, error) {
	dstPath := path + compressedExt(method)
	src, err := os.Open(path)
	if err != nil {
		return "", fmtErrorf("failed to open archive '%s' for compression: %w", path, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(dstPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmtErrorf("failed to create compressed archive '%s': %w", dstPath, err)
	}

	var zw io.WriteCloser
	switch method {
	case CompressGzip:
		zw, err = gzip.NewWriterLevel(dst, gzip.DefaultCompression)
		if err != nil {
			dst.Close()
			os.Remove(dstPath)
			return "", fmtErrorf("failed to create gzip writer: %w", err)
		}
	case CompressBrotli:
		zw = brotli.NewWriterLevel(dst, brotli.DefaultCompression)
	default:
		dst.Close()
		os.Remove(dstPath)
		return "", fmtErrorf("unknown compression method '%s'", method)
	}

	_, err = io.Copy(zw, src)
	err = combineErrors(err, zw.Close())
	err = combineErrors(err, dst.Close())
	if err != nil {
		os.Remove(dstPath)
		return "", fmtErrorf("failed to compress archive '%s': %w", path, err)
	}

	src.Close()
	if err := os.Remove(path); err != nil {
		return dstPath, fmtErrorf("failed to remove uncompressed archive '%s': %w", path, err)
	}
	return dstPath, nil
}

// archiveDirStats counts archives of path and their total size
func archiveDirStats(path string) (count int, size int64, err error) {
	dir := filepath.Dir(path)
	base := filepath.Base(path) + "."
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return -1, -1, fmtErrorf("failed to read log directory '%s': %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), base) {
			continue
		}
		info, errInfo := entry.Info()
		if errInfo != nil {
			continue
		}
		count++
		size += info.Size()
	}
	return count, size, nil
}
