package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	docRequestsCreatedTotal   atomic.Uint64
	docRequestsSubmittedTotal atomic.Uint64
	docRequestsExpiredTotal   atomic.Uint64
	tokensResolvedTotal       atomic.Uint64
	tokenResolveFailedTotal   atomic.Uint64
	uploadsRegisteredTotal    atomic.Uint64
	uploadDecisionsTotal      atomic.Uint64

	sweepDuration = newHistogram([]float64{10, 25, 50, 100, 250, 500, 1000, 5000})
)

// IncDocRequestsCreated increments the created-requests counter.
func IncDocRequestsCreated() {
	docRequestsCreatedTotal.Add(1)
}

// IncDocRequestsSubmitted increments the submitted-requests counter.
func IncDocRequestsSubmitted() {
	docRequestsSubmittedTotal.Add(1)
}

// AddDocRequestsExpired adds the count of requests expired in one sweep.
func AddDocRequestsExpired(n int64) {
	if n > 0 {
		docRequestsExpiredTotal.Add(uint64(n))
	}
}

// IncTokensResolved increments the successful-resolve counter.
func IncTokensResolved() {
	tokensResolvedTotal.Add(1)
}

// IncTokenResolveFailed increments the failed-resolve counter.
func IncTokenResolveFailed() {
	tokenResolveFailedTotal.Add(1)
}

// IncUploadsRegistered increments the registered-uploads counter.
func IncUploadsRegistered() {
	uploadsRegisteredTotal.Add(1)
}

// IncUploadDecisions increments the upload-decisions counter.
func IncUploadDecisions() {
	uploadDecisionsTotal.Add(1)
}

// ObserveSweepDurationMs records a sweep duration in milliseconds.
func ObserveSweepDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	sweepDuration.Observe(value)
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
	writeCounter(&buf, "doc_requests_created_total", "Total document requests created", docRequestsCreatedTotal.Load())
	writeCounter(&buf, "doc_requests_submitted_total", "Total document requests submitted", docRequestsSubmittedTotal.Load())
	writeCounter(&buf, "doc_requests_expired_total", "Total document requests expired by the sweeper", docRequestsExpiredTotal.Load())
	writeCounter(&buf, "tokens_resolved_total", "Total access tokens resolved", tokensResolvedTotal.Load())
	writeCounter(&buf, "token_resolve_failed_total", "Total access token resolutions rejected", tokenResolveFailedTotal.Load())
	writeCounter(&buf, "uploads_registered_total", "Total uploads registered or replaced", uploadsRegisteredTotal.Load())
	writeCounter(&buf, "upload_decisions_total", "Total upload status decisions", uploadDecisionsTotal.Load())
	writeHistogram(&buf, "sweep_duration_ms", "Expiration sweep duration in milliseconds", sweepDuration.Snapshot())
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
