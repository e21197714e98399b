package common

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Metrics aggregates decode counters across every log handled by one run. It
// satisfies ulog.Observer and is safe for concurrent decodes.
type Metrics struct {
	mu          sync.Mutex
	start       time.Time
	end         time.Time
	bytes       int64
	totalBytes  int64
	records     int64
	dataRecords int64
	skipped     int64
	decodes     int64
	failures    int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Start() {
	m.mu.Lock()
	if m.start.IsZero() {
		m.start = time.Now()
		m.end = time.Time{}
	}
	m.mu.Unlock()
}

func (m *Metrics) Stop() {
	m.mu.Lock()
	if !m.start.IsZero() && m.end.IsZero() {
		m.end = time.Now()
	}
	m.mu.Unlock()
}

// ObserveRecord counts one decoded record of size bytes.
func (m *Metrics) ObserveRecord(recordType byte, size int, skipped bool) {
	m.mu.Lock()
	m.records++
	if size > 0 {
		m.bytes += int64(size)
	}
	if skipped {
		m.skipped++
	}
	if recordType == 'D' {
		m.dataRecords++
	}
	m.mu.Unlock()
}

// AddBytes accounts for input consumed outside of records, such as the file
// header.
func (m *Metrics) AddBytes(n int64) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	m.bytes += n
	m.mu.Unlock()
}

// AddTotalBytes grows the expected input size used for Completion.
func (m *Metrics) AddTotalBytes(n int64) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	m.totalBytes += n
	m.mu.Unlock()
}

// DecodeDone records the outcome of one whole log.
func (m *Metrics) DecodeDone(err error) {
	m.mu.Lock()
	m.decodes++
	if err != nil {
		m.failures++
	}
	m.mu.Unlock()
}

// Snapshot copies the counters. Duration runs until Stop is called.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := MetricsSnapshot{
		Bytes:       m.bytes,
		TotalBytes:  m.totalBytes,
		Records:     m.records,
		DataRecords: m.dataRecords,
		Skipped:     m.skipped,
		Decodes:     m.decodes,
		Failures:    m.failures,
	}
	switch {
	case m.start.IsZero():
	case m.end.IsZero():
		s.Duration = time.Since(m.start)
	default:
		s.Duration = m.end.Sub(m.start)
	}
	return s
}

type MetricsSnapshot struct {
	Duration    time.Duration
	Bytes       int64
	TotalBytes  int64
	Records     int64
	DataRecords int64
	Skipped     int64
	Decodes     int64
	Failures    int64
}

// MiBPerSecond is zero until some time has elapsed.
func (s MetricsSnapshot) MiBPerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Bytes) / (1 << 20) / s.Duration.Seconds()
}

// Completion is the consumed share of TotalBytes in [0, 1], or zero when the
// total is unknown.
func (s MetricsSnapshot) Completion() float64 {
	if s.TotalBytes <= 0 {
		return 0
	}
	return min(max(float64(s.Bytes)/float64(s.TotalBytes), 0), 1)
}

func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	units := []string{"KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}
	v := float64(b) / unit
	i := 0
	for ; v >= unit && i < len(units)-1; i++ {
		v /= unit
	}
	return fmt.Sprintf("%.2f %s", v, units[i])
}

func (s MetricsSnapshot) progressLine() string {
	var sb strings.Builder
	sb.WriteString("Decoded: ")
	if s.TotalBytes > 0 {
		fmt.Fprintf(&sb, "%6.2f%% (%s / %s)", s.Completion()*100, FormatBytes(s.Bytes), FormatBytes(s.TotalBytes))
	} else {
		sb.WriteString(FormatBytes(s.Bytes))
	}
	fmt.Fprintf(&sb, " %d logs %d records %.2f MiB/s", s.Decodes, s.Records, s.MiBPerSecond())
	return sb.String()
}

// statusLine rewrites a single terminal line in place.
type statusLine struct {
	w     io.Writer
	width int
}

func (l *statusLine) set(text string) {
	if n := l.width - len(text); n > 0 {
		text += strings.Repeat(" ", n)
	}
	fmt.Fprint(l.w, "\r"+text)
	l.width = len(text)
}

func (l *statusLine) clear() {
	if l.width > 0 {
		fmt.Fprint(l.w, "\r"+strings.Repeat(" ", l.width)+"\r\n")
	}
}

// StartProgressPrinter rewrites a one-line progress summary to w every
// interval until the returned stop function is called.
func StartProgressPrinter(w io.Writer, m *Metrics, interval time.Duration) func() {
	if m == nil || w == nil {
		return func() {}
	}
	if interval <= 0 {
		interval = time.Second
	}
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		line := &statusLine{w: w}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				line.set(m.Snapshot().progressLine())
			case <-done:
				line.clear()
				return
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}
