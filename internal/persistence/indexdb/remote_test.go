package indexdb

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestRemoteIndex_BatchesAndRetries(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	var digests []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			http.Error(w, "temporary failure", http.StatusInternalServerError)
			return
		}
		if got := r.Header.Get("x-bm-index-token"); got != "secret" {
			http.Error(w, "bad token", http.StatusUnauthorized)
			return
		}
		var body struct {
			Events []struct {
				Kind    string   `json:"kind"`
				Payload SolveRow `json:"payload"`
			} `json:"events"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, ev := range body.Events {
			digests = append(digests, ev.Payload.Digest)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d, err := OpenRemote(RemoteConfig{
		Endpoint:      srv.URL,
		Token:         "secret",
		BatchSize:     2,
		FlushInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("OpenRemote: %v", err)
	}
	d.RecordSolve(sampleRow("a"))
	d.RecordSolve(sampleRow("b"))
	d.RecordSolve(sampleRow("c"))
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(digests) != 3 || digests[0] != "a" || digests[2] != "c" {
		t.Fatalf("digests=%v", digests)
	}
	if d.Sent() != 3 || d.Lost() != 0 {
		t.Fatalf("sent=%d lost=%d", d.Sent(), d.Lost())
	}
}

func TestOpenRemote_RequiresEndpoint(t *testing.T) {
	if _, err := OpenRemote(RemoteConfig{Endpoint: "  "}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestMulti(t *testing.T) {
	a := &SQLiteIndex{ch: make(chan req, 4)}
	b := &SQLiteIndex{ch: make(chan req, 4)}
	Multi{a, nil, b}.RecordSolve(sampleRow("m"))
	if len(a.ch) != 1 || len(b.ch) != 1 {
		t.Fatalf("fan-out failed: %d %d", len(a.ch), len(b.ch))
	}
}
