package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	simplifyStartedTotal   atomic.Uint64
	simplifyCompletedTotal atomic.Uint64
	simplifyFailedTotal    atomic.Uint64

	extractCompletedTotal atomic.Uint64
	extractFailedTotal    atomic.Uint64

	renderCompletedTotal atomic.Uint64
	renderFailedTotal    atomic.Uint64

	documentsCreatedTotal atomic.Uint64

	simplifyDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncSimplifyStarted increments the simplify started counter.
func IncSimplifyStarted() {
	simplifyStartedTotal.Add(1)
}

// IncSimplifyCompleted increments the simplify completed counter.
func IncSimplifyCompleted() {
	simplifyCompletedTotal.Add(1)
}

// IncSimplifyFailed increments the simplify failed counter.
func IncSimplifyFailed() {
	simplifyFailedTotal.Add(1)
}

// IncExtractCompleted increments the extract completed counter.
func IncExtractCompleted() {
	extractCompletedTotal.Add(1)
}

// IncExtractFailed increments the extract failed counter.
func IncExtractFailed() {
	extractFailedTotal.Add(1)
}

// IncRenderCompleted increments the render completed counter.
func IncRenderCompleted() {
	renderCompletedTotal.Add(1)
}

// IncRenderFailed increments the render failed counter.
func IncRenderFailed() {
	renderFailedTotal.Add(1)
}

// IncDocumentsCreated increments the documents created counter.
func IncDocumentsCreated() {
	documentsCreatedTotal.Add(1)
}

// ObserveSimplifyDurationMs records a simplify round-trip in milliseconds.
func ObserveSimplifyDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	simplifyDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "simplify_started_total", "Total simplify requests started", simplifyStartedTotal.Load())
	writeCounter(&buf, "simplify_completed_total", "Total simplify requests completed", simplifyCompletedTotal.Load())
	writeCounter(&buf, "simplify_failed_total", "Total simplify requests failed", simplifyFailedTotal.Load())
	writeCounter(&buf, "extract_completed_total", "Total extractions completed", extractCompletedTotal.Load())
	writeCounter(&buf, "extract_failed_total", "Total extractions failed", extractFailedTotal.Load())
	writeCounter(&buf, "render_completed_total", "Total PDF renders completed", renderCompletedTotal.Load())
	writeCounter(&buf, "render_failed_total", "Total PDF renders failed", renderFailedTotal.Load())
	writeCounter(&buf, "documents_created_total", "Total documents created", documentsCreatedTotal.Load())
	writeHistogram(&buf, "simplify_duration_ms", "Simplify round-trip in milliseconds", simplifyDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// NowMillis returns current time in milliseconds, useful for callers without time utilities.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
