package errors

import (
	"fmt"
	"html"
	"sync"
	"time"
)

// Event is a single build failure recorded for the browser overlay.
type Event struct {
	Message   string
	Timestamp time.Time
}

// Collector holds the error of the most recent failed build and renders it
// as an HTML overlay fragment. The dev server does not use it: build
// failures are broadcast by internal/devserver directly, and its autoreload
// client logs them to the browser console without showing an overlay.
type Collector struct {
	mutex  sync.RWMutex
	events []Event
}

// NewCollector creates an empty error collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Set replaces the collector's contents with a single error, as produced by
// one failed build.
func (c *Collector) Set(err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.events = []Event{{Message: err.Error(), Timestamp: time.Now()}}
}

// Clear removes all recorded errors, called after a successful build.
func (c *Collector) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.events = nil
}

// Events returns a copy of the currently recorded errors.
func (c *Collector) Events() []Event {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// HasErrors reports whether any error is currently recorded.
func (c *Collector) HasErrors() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.events) > 0
}

// Overlay renders the recorded errors as an HTML overlay fragment, or ""
// when none are recorded.
func (c *Collector) Overlay() string {
	events := c.Events()
	if len(events) == 0 {
		return ""
	}

	var body string
	for _, e := range events {
		body += fmt.Sprintf(
			`<div class="trunk-error"><span class="trunk-error-time">%s</span><pre>%s</pre></div>`,
			e.Timestamp.Format("15:04:05"), html.EscapeString(e.Message),
		)
	}

	return `<div id="trunk-error-overlay">` + body + `</div>`
}
