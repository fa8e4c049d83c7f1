package logpp

import (
	"path/filepath"
	"runtime"
	"time"
)

// handleHeartbeat writes a stats record for the pipeline and one disk record
// per rolling file sink. Heartbeats bypass the queue and are not counted as
// dispatched records.
func (p *pipeline) handleHeartbeat() {
	now := time.Now()
	sequence := p.reg.state.HeartbeatSequence.Add(1)

	records := make([]Record, 0, 1+len(p.bindings))
	records = append(records, p.procHeartbeat(now, sequence))
	for _, b := range p.bindings {
		if b.kind == SinkRollingFile {
			records = append(records, p.diskHeartbeat(now, sequence, b))
		}
	}

	hb := batchPool.Get().(*batch)
	hb.records = append(hb.records[:0], records...)
	p.fanOut(hb)
}

// procHeartbeat reports queue, drop and runtime statistics
func (p *pipeline) procHeartbeat(now time.Time, sequence uint64) Record {
	s := p.reg.Stats()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return Record{
		Time:    now,
		Level:   LevelInfo,
		Logger:  internalLoggerName,
		Message: "heartbeat",
		Fields: []Field{
			String("type", "proc"),
			Uint64("sequence", sequence),
			Float64("uptime_hours", s.Uptime.Hours()),
			Int("queue_len", s.QueueLen),
			Int("queue_capacity", s.QueueCapacity),
			Uint64("enqueued", s.Enqueued),
			Uint64("dispatched", s.Dispatched),
			Uint64("dropped", s.Dropped()),
			Uint64("format_errors", s.FormatErrors),
			Float64("alloc_mb", float64(memStats.Alloc)/(1000*1000)),
			Uint64("num_gc", uint64(memStats.NumGC)),
			Int("num_goroutine", runtime.NumGoroutine()),
		},
	}
}

// diskHeartbeat reports the archive directory state of a rolling file sink
func (p *pipeline) diskHeartbeat(now time.Time, sequence uint64, b *sinkBinding) Record {
	fields := []Field{
		String("type", "disk"),
		Uint64("sequence", sequence),
		String("sink", b.name),
	}
	if rot, ok := b.sink.(rotator); ok {
		fields = append(fields, Uint64("rotations", rot.Rotations()))
	}

	count, size, err := archiveDirStats(b.target)
	if err != nil {
		p.reg.internalLog("warning - heartbeat failed to read archives of sink '%s': %v\n", b.name, err)
	} else {
		fields = append(fields,
			Int("archive_count", count),
			Float64("archive_size_mb", float64(size)/(1024*1024)),
		)
	}
	if free, err := diskFreeSpace(filepath.Dir(b.target)); err == nil {
		fields = append(fields, Float64("disk_free_mb", float64(free)/(1024*1024)))
	}

	return Record{
		Time:    now,
		Level:   LevelInfo,
		Logger:  internalLoggerName,
		Message: "heartbeat",
		Fields:  fields,
	}
}
