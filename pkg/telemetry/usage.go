package telemetry

import (
	"fmt"
	"sync"

	"github.com/vango-go/improv-battle/pkg/types"
)

// UsageCollector accumulates token usage across agent turns. One
// collector belongs to one session; totals are logged at shutdown.
type UsageCollector struct {
	mu    sync.Mutex
	total types.Usage
	turns int
}

// NewUsageCollector creates an empty collector.
func NewUsageCollector() *UsageCollector {
	return &UsageCollector{}
}

// Collect adds one turn's usage to the running total.
func (c *UsageCollector) Collect(usage types.Usage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total = c.total.Add(usage)
	c.turns++
}

// Total returns the accumulated usage.
func (c *UsageCollector) Total() types.Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Turns returns the number of collected turns.
func (c *UsageCollector) Turns() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turns
}

// Summary returns a human-readable usage summary.
func (c *UsageCollector) Summary() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("turns=%d input_tokens=%d output_tokens=%d total_tokens=%d",
		c.turns, c.total.InputTokens, c.total.OutputTokens, c.total.TotalTokens)
}
