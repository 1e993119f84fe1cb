package main

import (
	"encoding/json"
	"flag"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// A stand-in for a Slack incoming webhook. Point slack.webhookURL at
// http://<addr>/mock/slack and watch the payloads scroll by.
func main() {
	addr := flag.String("addr", ":8090", "listen address")
	failStatus := flag.Int("fail-status", 0, "answer every post with this HTTP status (0 = succeed)")
	failEvery := flag.Int("fail-every", 0, "fail every Nth post with a 500 (0 = never)")
	flag.Parse()

	var (
		mu       sync.Mutex
		received []map[string]any
		count    atomic.Int64
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/mock/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	mux.HandleFunc("/mock/slack", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, "read error", http.StatusBadRequest)
			return
		}
		var body map[string]any
		if err := json.Unmarshal(raw, &body); err != nil {
			http.Error(w, "invalid_payload", http.StatusBadRequest)
			return
		}
		n := count.Add(1)
		id := uuid.NewString()
		log.Printf("slack post #%d id=%s channel=%v username=%v\n%v", n, id, body["channel"], body["username"], body["text"])

		mu.Lock()
		received = append(received, body)
		if len(received) > 100 {
			received = received[len(received)-100:]
		}
		mu.Unlock()

		status := *failStatus
		if status == 0 && *failEvery > 0 && n%int64(*failEvery) == 0 {
			status = http.StatusInternalServerError
		}
		if status >= 300 {
			log.Printf("slack post #%d answered with %d", n, status)
			http.Error(w, "mock_failure", status)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/mock/slack/received", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		mu.Lock()
		out := make([]map[string]any, len(received))
		copy(out, received)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": out, "total": count.Load()})
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("mock slack webhook listening on %s", *addr)
	log.Fatal(srv.ListenAndServe())
}
