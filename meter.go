package adbfs

import (
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Meter counts bytes moving through a transfer and reports throughput.
type Meter struct {
	label string
	start time.Time
	total uint64
}

func NewMeter(label string) *Meter {
	return NewMeterAt(label, time.Now())
}

func NewMeterAt(label string, start time.Time) *Meter {
	return &Meter{label: label, start: start}
}

func (m *Meter) Add(n int64) {
	if n > 0 {
		atomic.AddUint64(&m.total, uint64(n))
	}
}

func (m *Meter) Bytes() uint64 {
	return atomic.LoadUint64(&m.total)
}

func (m *Meter) MbPerSecond() float64 {
	total := m.Bytes()
	elapsed := time.Since(m.start).Milliseconds()
	if total == 0 || elapsed == 0 {
		return 0
	}
	return (float64(total) / float64(elapsed) * 1000) / 1024.0 / 1024.0
}

func (m *Meter) String() string {
	return m.label + ": " + humanize.IBytes(m.Bytes()) + " in " + time.Since(m.start).Round(time.Millisecond).String()
}

func (m *Meter) Writer(w io.Writer) io.Writer {
	return &meterWriter{w: w, m: m}
}

func (m *Meter) Reader(r io.Reader) io.Reader {
	return &meterReader{r: r, m: m}
}

// Report logs progress every interval until the returned stop func is called,
// which also logs the final total.
func (m *Meter) Report(interval time.Duration) (stop func()) {
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				log.Printf("[Meter] %s (%.2fMb/s)", m, m.MbPerSecond())
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		<-finished
		log.Printf("[Meter] %s -> %.2fMb/s", m, m.MbPerSecond())
	}
}

type meterWriter struct {
	w io.Writer
	m *Meter
}

func (mw *meterWriter) Write(p []byte) (int, error) {
	n, err := mw.w.Write(p)
	mw.m.Add(int64(n))
	return n, err
}

type meterReader struct {
	r io.Reader
	m *Meter
}

func (mr *meterReader) Read(p []byte) (int, error) {
	n, err := mr.r.Read(p)
	mr.m.Add(int64(n))
	return n, err
}
