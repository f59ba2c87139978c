package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for HTTP traffic and the
// integration pipeline.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	webhookCount map[string]int64
	replyCount   map[string]int64
	closureCount int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		webhookCount: make(map[string]int64),
		replyCount:   make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordWebhook counts a processed webhook by event name and outcome
// ("handled", "ignored" or "failed").
func (m *Metrics) RecordWebhook(event, outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.webhookCount[event+"|"+outcome]++
}

// RecordReplySync accumulates reply sync counters by result bucket
// ("synced", "skipped" or "failed").
func (m *Metrics) RecordReplySync(bucket string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replyCount[bucket] += int64(count)
}

// RecordClosureNotified counts a delivered closure notification.
func (m *Metrics) RecordClosureNotified() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closureCount++
}

// Snapshot returns a copy of all counters for the metrics endpoint.
func (m *Metrics) Snapshot() map[string]any {
	if m == nil {
		return map[string]any{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]any{
		"requests":          copyCounts(m.requestCount),
		"errors":            copyCounts(m.errorCount),
		"webhooks":          copyCounts(m.webhookCount),
		"reply_sync":        copyCounts(m.replyCount),
		"closures_notified": m.closureCount,
	}
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
