package upload

import (
	"io"
	"math"
	"time"
)

// minElapsed is the smallest interval a throughput figure is derived from.
const minElapsed = time.Millisecond

// ProgressFunc receives cumulative byte counts from a transport.
type ProgressFunc func(sent, total int64)

// Progress holds the figures derived from a single progress event. Nothing
// is smoothed; every event is computed from scratch.
type Progress struct {
	BytesSent  int64
	TotalBytes int64
	Percent    int
	Elapsed    time.Duration
	// Throughput is in bytes per second; zero unless RateKnown.
	Throughput float64
	ETA        time.Duration
	RateKnown  bool
}

// Compute derives percent, throughput and ETA from a cumulative count.
func Compute(sent, total int64, elapsed time.Duration) Progress {
	if sent < 0 {
		sent = 0
	}
	if total > 0 && sent > total {
		sent = total
	}

	p := Progress{BytesSent: sent, TotalBytes: total, Elapsed: elapsed}
	if total > 0 {
		p.Percent = int(math.Round(100 * float64(sent) / float64(total)))
	}

	if elapsed < minElapsed || sent == 0 {
		return p
	}

	p.Throughput = float64(sent) / elapsed.Seconds()
	p.RateKnown = true
	remaining := float64(total - sent)
	if remaining > 0 {
		p.ETA = time.Duration(remaining / p.Throughput * float64(time.Second))
	}
	return p
}

// ProgressReader reports the cumulative number of bytes read through it.
type ProgressReader struct {
	r      io.Reader
	total  int64
	read   int64
	report ProgressFunc
}

// NewProgressReader wraps r, reporting against the expected total size.
func NewProgressReader(r io.Reader, total int64, report ProgressFunc) *ProgressReader {
	return &ProgressReader{r: r, total: total, report: report}
}

func (p *ProgressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		if p.report != nil {
			p.report(p.read, p.total)
		}
	}
	return n, err
}

// BytesRead returns the number of bytes read so far.
func (p *ProgressReader) BytesRead() int64 {
	return p.read
}
