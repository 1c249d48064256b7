package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status values recorded for signature operations.
const (
	StatusOK       = "OK"
	StatusRejected = "REJECTED"
	StatusError    = "ERROR"
)

// Entry represents an audit log entry.
type Entry struct {
	ID          string            `json:"id"`
	Timestamp   time.Time         `json:"timestamp"`
	Operation   string            `json:"operation"`
	Subject     string            `json:"subject,omitempty"`
	Status      string            `json:"status"`
	PeerAddress string            `json:"peerAddress,omitempty"`
	RequestID   string            `json:"requestId,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Filter selects entries in Query. Zero fields match everything.
type Filter struct {
	Subject   string
	Operation string
	Start     time.Time
	End       time.Time
	Limit     int
}

// Subscriber receives audit entries via a channel.
type Subscriber struct {
	C  chan Entry
	id string
}

// Logger is an async audit logger that decouples the critical path from log writes.
type Logger struct {
	entries chan Entry
	out     io.Writer

	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	store       []Entry
	maxStored   int

	closeMu sync.RWMutex
	closed  bool
	done    chan struct{}
}

// NewLogger creates a logger with the given buffer size and output writer.
// At most maxStored entries are kept for Query; zero keeps everything.
func NewLogger(bufferSize, maxStored int, out io.Writer) *Logger {
	l := &Logger{
		entries:     make(chan Entry, bufferSize),
		out:         out,
		subscribers: make(map[string]*Subscriber),
		maxStored:   maxStored,
		done:        make(chan struct{}),
	}
	go l.processLoop()
	return l
}

// Log sends an entry to the async processing pipeline. Non-blocking if buffer has capacity.
func (l *Logger) Log(src Source, operation, subject, status string, metadata map[string]string) {
	entry := Entry{
		ID:          uuid.NewString(),
		Timestamp:   time.Now(),
		Operation:   operation,
		Subject:     subject,
		Status:      status,
		PeerAddress: src.PeerAddress,
		RequestID:   src.RequestID,
		Metadata:    metadata,
	}

	l.closeMu.RLock()
	defer l.closeMu.RUnlock()
	if l.closed {
		slog.Warn("audit logger closed, dropping entry", "operation", operation)
		return
	}

	select {
	case l.entries <- entry:
	default:
		slog.Warn("audit log buffer full, dropping entry", "operation", operation)
	}
}

// Subscribe creates a new subscriber that receives entries via a buffered channel.
func (l *Logger) Subscribe() *Subscriber {
	l.mu.Lock()
	defer l.mu.Unlock()

	sub := &Subscriber{
		C:  make(chan Entry, 64),
		id: uuid.NewString(),
	}
	l.subscribers[sub.id] = sub
	return sub
}

// Unsubscribe removes a subscriber.
func (l *Logger) Unsubscribe(sub *Subscriber) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.subscribers[sub.id]; !ok {
		return
	}
	delete(l.subscribers, sub.id)
	close(sub.C)
}

// Query returns stored audit entries matching the filter, newest first.
func (l *Logger) Query(f Filter) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var results []Entry
	for i := len(l.store) - 1; i >= 0; i-- {
		e := l.store[i]
		if f.Subject != "" && e.Subject != f.Subject {
			continue
		}
		if f.Operation != "" && e.Operation != f.Operation {
			continue
		}
		if !f.Start.IsZero() && e.Timestamp.Before(f.Start) {
			continue
		}
		if !f.End.IsZero() && e.Timestamp.After(f.End) {
			continue
		}
		results = append(results, e)
		if f.Limit > 0 && len(results) >= f.Limit {
			break
		}
	}
	return results
}

// Close stops the processing loop and waits for it to finish. Entries
// logged after Close are dropped. Close may be called more than once.
func (l *Logger) Close() {
	l.closeMu.Lock()
	if !l.closed {
		l.closed = true
		close(l.entries)
	}
	l.closeMu.Unlock()
	<-l.done
}

func (l *Logger) processLoop() {
	defer close(l.done)

	for entry := range l.entries {
		l.mu.Lock()
		l.store = append(l.store, entry)
		if l.maxStored > 0 && len(l.store) > l.maxStored {
			l.store = l.store[len(l.store)-l.maxStored:]
		}
		l.mu.Unlock()

		if l.out != nil {
			data, err := json.Marshal(entry)
			if err != nil {
				slog.Error("audit marshal", "error", err)
				continue
			}
			fmt.Fprintf(l.out, "%s\n", data)
		}

		// Fan-out to subscribers (non-blocking)
		l.mu.RLock()
		for _, sub := range l.subscribers {
			select {
			case sub.C <- entry:
			default:
				// subscriber too slow, drop
			}
		}
		l.mu.RUnlock()
	}
}
