package logbus

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"
)

type Message struct {
	Type string `json:"type"`
	Time int64  `json:"time"`
	Data any    `json:"data"`
}

type LogData struct {
	Level  string         `json:"level"`
	Msg    string         `json:"msg"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Bus keeps the most recent messages in a bounded buffer and fans every new
// message out to subscribers. Slow subscribers miss messages rather than
// block publishers.
type Bus struct {
	mu     sync.RWMutex
	buf    []Message
	cap    int
	subs   map[chan Message]struct{}
	closed bool
	out    *log.Logger
}

func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 200
	}
	return &Bus{
		cap:  capacity,
		buf:  make([]Message, 0, capacity),
		subs: make(map[chan Message]struct{}),
	}
}

// Mirror makes every Log call also print one line to out. Pass nil to stop.
func (b *Bus) Mirror(out *log.Logger) *Bus {
	b.mu.Lock()
	b.out = out
	b.mu.Unlock()
	return b
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
	}
	b.subs = nil
	b.buf = nil
}

func (b *Bus) Snapshot() []Message {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Message, len(b.buf))
	copy(out, b.buf)
	return out
}

// Logs returns buffered log entries, optionally restricted to one level.
func (b *Bus) Logs(level string) []LogData {
	level = strings.ToLower(strings.TrimSpace(level))
	var out []LogData
	for _, msg := range b.Snapshot() {
		data, ok := msg.Data.(LogData)
		if !ok {
			continue
		}
		if level != "" && data.Level != level {
			continue
		}
		out = append(out, data)
	}
	return out
}

func (b *Bus) Subscribe(buffer int) (<-chan Message, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Message, buffer)
	b.mu.Lock()
	if b.closed {
		close(ch)
		b.mu.Unlock()
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if b.subs != nil {
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

func (b *Bus) Publish(typ string, data any) {
	msg := Message{
		Type: typ,
		Time: time.Now().UnixMilli(),
		Data: data,
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	if len(b.buf) < b.cap {
		b.buf = append(b.buf, msg)
	} else if b.cap > 0 {
		copy(b.buf, b.buf[1:])
		b.buf[b.cap-1] = msg
	}
	for ch := range b.subs {
		select {
		case ch <- msg:
		default:
		}
	}
	out := b.out
	b.mu.Unlock()

	if data, ok := data.(LogData); ok && out != nil {
		out.Print(formatLine(data))
	}
}

func (b *Bus) Log(level, message string, fields map[string]any) {
	if b == nil {
		return
	}
	b.Publish("log", LogData{Level: level, Msg: message, Fields: fields})
}

func formatLine(d LogData) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-5s %s", strings.ToUpper(d.Level), d.Msg)
	keys := make([]string, 0, len(d.Fields))
	for k := range d.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, d.Fields[k])
	}
	return sb.String()
}
