package daemon

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

// Default ring buffer sizes for the two line streams the daemon keeps.
const (
	logHistorySize   = 1000
	eventHistorySize = 100
)

// LineBroadcaster fans out text lines to subscribed clients and keeps a
// ring buffer of recent lines for history replay. The daemon runs two of
// these: one for rendered log output and one for tab event JSON lines.
type LineBroadcaster struct {
	clients map[chan string]bool
	history []string
	maxHist int
	mu      sync.RWMutex
}

func NewLineBroadcaster(historySize int) *LineBroadcaster {
	if historySize <= 0 {
		historySize = logHistorySize
	}
	return &LineBroadcaster{
		clients: make(map[chan string]bool),
		history: make([]string, 0, historySize),
		maxHist: historySize,
	}
}

// Subscribe adds a client channel that receives every broadcast line.
func (b *LineBroadcaster) Subscribe() chan string {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan string, 100)
	b.clients[ch] = true
	return ch
}

// SubscribeWithHistory adds a client and returns up to historyLines of
// recent lines. The history comes back as a slice so replaying it never
// competes with live broadcasts for channel buffer space.
func (b *LineBroadcaster) SubscribeWithHistory(historyLines int) (chan string, []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan string, 100)
	b.clients[ch] = true

	var history []string
	if historyLines > 0 && len(b.history) > 0 {
		start := len(b.history) - historyLines
		if start < 0 {
			start = 0
		}
		history = make([]string, len(b.history)-start)
		copy(history, b.history[start:])
	}

	return ch, history
}

func (b *LineBroadcaster) Unsubscribe(ch chan string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.clients, ch)
	close(ch)
}

// Broadcast records the line in history and delivers it to every
// subscriber. Slow clients with full buffers are skipped rather than
// allowed to stall the daemon.
func (b *LineBroadcaster) Broadcast(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.history) >= b.maxHist {
		b.history = b.history[1:]
	}
	b.history = append(b.history, line)

	for ch := range b.clients {
		select {
		case ch <- line:
		default:
		}
	}
}

// History returns a copy of the buffered lines, oldest first.
func (b *LineBroadcaster) History() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, len(b.history))
	copy(out, b.history)
	return out
}

// logWriter forwards rendered log output into a broadcaster.
type logWriter struct {
	broadcaster *LineBroadcaster
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	w.broadcaster.Broadcast(string(p))
	return len(p), nil
}

// setupLogging routes slog through tint to both stderr and the log
// broadcaster. The handler emits at debug level; clients filter.
func (d *Daemon) setupLogging() {
	multiWriter := io.MultiWriter(os.Stderr, &logWriter{broadcaster: d.logBroadcast})

	handler := tint.NewHandler(multiWriter, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.DateTime,
	})

	slog.SetDefault(slog.New(handler))
}

// handleLogs streams rendered log lines to the client until it
// disconnects, optionally preceded by recent history.
func (d *Daemon) handleLogs(conn net.Conn, showHistory bool, historyLines int) {
	banner := "Connected to windock daemon logs. Press Ctrl+C to exit.\n"
	d.streamLines(conn, d.logBroadcast, banner, showHistory, historyLines)
}

// handleAttach streams the raw daemon log feed, same content as stderr.
func (d *Daemon) handleAttach(conn net.Conn, showHistory bool, historyLines int) {
	banner := "Attached to windock daemon. Press Ctrl+C to detach.\n\n"
	d.streamLines(conn, d.logBroadcast, banner, showHistory, historyLines)
}

// handleEvents streams tab lifecycle events as JSON lines. No banner is
// written so consumers can parse every line.
func (d *Daemon) handleEvents(conn net.Conn) {
	d.streamLines(conn, d.eventBroadcast, "", false, 0)
}

// streamLines subscribes the connection to a broadcaster and copies
// lines until the client goes away or the subscription closes.
func (d *Daemon) streamLines(conn net.Conn, b *LineBroadcaster, banner string, showHistory bool, historyLines int) {
	defer conn.Close()

	var lineChan chan string
	var history []string
	if showHistory {
		lineChan, history = b.SubscribeWithHistory(historyLines)
	} else {
		lineChan = b.Subscribe()
	}
	defer b.Unsubscribe(lineChan)

	if banner != "" {
		if _, err := conn.Write([]byte(banner)); err != nil {
			slog.Warn(fmt.Sprintf("Failed to send banner to stream client: %v", err))
			return
		}
	}

	for _, line := range history {
		if _, err := conn.Write([]byte(line)); err != nil {
			return
		}
	}

	// Detect client disconnect by draining the read side.
	done := make(chan bool)
	go func() {
		reader := bufio.NewReader(conn)
		io.Copy(io.Discard, reader)
		done <- true
	}()

	for {
		select {
		case line, ok := <-lineChan:
			if !ok {
				return
			}
			if _, err := conn.Write([]byte(line)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
