package planner

import (
	"bytes"
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"roadsim/internal/logging"
)

// counter advances by one on every read after the first.
type counter struct{ reads atomic.Int64 }

func (c *counter) Progress() int64 { return 2 + c.reads.Add(1) }

func TestReportProgressStopsAtTotal(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(logging.Config{Output: &buf})

	c := &counter{}
	done := make(chan struct{})
	go func() {
		ReportProgress(context.Background(), c, 2, time.Millisecond, log)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reporter did not stop after reaching total")
	}
	if !strings.Contains(buf.String(), "planning progress") {
		t.Fatalf("no progress line logged: %q", buf.String())
	}
}

func TestReportProgressStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ReportProgress(ctx, &counter{}, 10, time.Hour, nil)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reporter ignored cancellation")
	}
}
