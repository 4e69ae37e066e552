package pstore

import (
	"fmt"
	"sync/atomic"

	"github.com/cellardb/cellar/lib/engine"
	"github.com/cellardb/cellar/lib/store/pstore/internal"
)

// --------------------------------------------------------------------------
// Corruption Flag
// --------------------------------------------------------------------------

// CorruptionFlag records that the engine reported structural corruption.
// It is written from the relay consumer goroutine and read by the store
// lifecycle, so all access is atomic.
type CorruptionFlag struct {
	flag atomic.Bool
}

func (f *CorruptionFlag) Set(corrupted bool) {
	f.flag.Store(corrupted)
}

func (f *CorruptionFlag) IsSet() bool {
	return f.flag.Load()
}

// --------------------------------------------------------------------------
// Log Interceptor
// --------------------------------------------------------------------------

// interceptor receives the engine's log lines, scans them for corruption
// markers and forwards the noteworthy ones to the store logger.
//
// The engine invokes its log sink from internal threads, sometimes while
// holding engine locks. The sink therefore only enqueues and returns: all
// classification and forwarding happens on a dedicated consumer goroutine
// that never calls back into the engine.
type interceptor struct {
	queue *internal.LineQueue
	flag  *CorruptionFlag
	done  chan struct{}
}

// newInterceptor creates an interceptor and starts its consumer.
func newInterceptor(flag *CorruptionFlag) *interceptor {
	i := &interceptor{
		queue: internal.NewLineQueue(),
		flag:  flag,
		done:  make(chan struct{}),
	}
	go i.consume()
	return i
}

// sink returns the engine-facing side of the interceptor.
func (i *interceptor) sink() engine.LogSink {
	return &logSink{queue: i.queue}
}

// consume drains the relay until it is closed. A line carrying a
// corruption marker sets the corruption flag. Debug and info lines from
// the engine are dropped, warnings and errors are forwarded at
// informational severity since they describe engine internals, not store
// failures.
func (i *interceptor) consume() {
	defer close(i.done)
	for line := range i.queue.Recv() {
		if engine.ContainsCorruptionMarker(line.Text) {
			i.flag.Set(true)
			Logger.Warningf("engine reported corruption: %s", line.Text)
			continue
		}
		if line.Level < internal.SeverityWarning {
			continue
		}
		Logger.Infof("engine: %s", line.Text)
	}
}

// Close shuts the relay down and waits until every enqueued line has been
// processed. After Close returns the corruption flag is final.
func (i *interceptor) Close() {
	i.queue.Close()
	<-i.done
}

// --------------------------------------------------------------------------
// Engine-Facing Sink
// --------------------------------------------------------------------------

// logSink adapts the engine's logging callbacks onto the relay queue. Its
// methods are safe to call from any engine thread and never block on the
// consumer.
type logSink struct {
	queue *internal.LineQueue
}

func (s *logSink) Errorf(format string, args ...interface{}) {
	s.push(internal.SeverityError, format, args...)
}

func (s *logSink) Warningf(format string, args ...interface{}) {
	s.push(internal.SeverityWarning, format, args...)
}

func (s *logSink) Infof(format string, args ...interface{}) {
	s.push(internal.SeverityInfo, format, args...)
}

func (s *logSink) Debugf(format string, args ...interface{}) {
	s.push(internal.SeverityDebug, format, args...)
}

func (s *logSink) push(level internal.Severity, format string, args ...interface{}) {
	s.queue.Push(&internal.Line{
		Level: level,
		Text:  fmt.Sprintf(format, args...),
	})
}
