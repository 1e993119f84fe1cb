package logbus

import (
	"bytes"
	"log"
	"strings"
	"testing"
	"time"
)

func TestBus_RingBufferKeepsNewest(t *testing.T) {
	b := New(2)
	b.Log("info", "one", nil)
	b.Log("info", "two", nil)
	b.Log("warn", "three", nil)

	logs := b.Logs("")
	if len(logs) != 2 {
		t.Fatalf("buffered: got=%d want=2", len(logs))
	}
	if logs[0].Msg != "two" || logs[1].Msg != "three" {
		t.Fatalf("order: got=%s,%s", logs[0].Msg, logs[1].Msg)
	}
	if warn := b.Logs("WARN"); len(warn) != 1 || warn[0].Msg != "three" {
		t.Fatalf("level filter: got=%+v", warn)
	}
}

func TestBus_SubscribeReceivesNewMessages(t *testing.T) {
	b := New(10)
	ch, cancel := b.Subscribe(4)
	defer cancel()

	b.Log("info", "notification sent", map[string]any{"orderId": "abc"})

	select {
	case msg := <-ch:
		data, ok := msg.Data.(LogData)
		if !ok || data.Msg != "notification sent" || data.Fields["orderId"] != "abc" {
			t.Fatalf("unexpected message: %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatalf("subscriber did not receive message")
	}

	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed after cancel")
	}
}

func TestBus_MirrorWritesSortedFields(t *testing.T) {
	var buf bytes.Buffer
	b := New(10).Mirror(log.New(&buf, "", 0))
	b.Log("warn", "amount missing", map[string]any{"orderId": "x", "channel": "slack"})

	got := strings.TrimSpace(buf.String())
	want := "WARN  amount missing channel=slack orderId=x"
	if got != want {
		t.Fatalf("mirror: got=%q want=%q", got, want)
	}
}

func TestBus_ClosedAndNil(t *testing.T) {
	b := New(10)
	b.Close()
	b.Log("info", "after close", nil)
	if n := len(b.Snapshot()); n != 0 {
		t.Fatalf("closed bus buffered %d messages", n)
	}
	ch, _ := b.Subscribe(1)
	if _, ok := <-ch; ok {
		t.Fatalf("subscribe on closed bus should return closed channel")
	}

	var nilBus *Bus
	nilBus.Log("info", "ignored", nil)
	if got := nilBus.Snapshot(); got != nil {
		t.Fatalf("nil bus snapshot: got=%v", got)
	}
	if got := nilBus.Logs("warn"); got != nil {
		t.Fatalf("nil bus logs: got=%v", got)
	}
}
