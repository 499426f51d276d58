package objstore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestClientPut_SignsPathStyleRequest(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		gotHash string
		gotBody string
		gotType string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		gotHash = r.Header.Get("x-amz-content-sha256")
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
	}))
	defer srv.Close()

	c, err := New(Config{Endpoint: srv.URL, Bucket: "levels", AccessKeyID: "AK", SecretAccessKey: "SK"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	body := []byte(`{"id":"corridor"}`)
	if err := c.Put(context.Background(), "annotated/corridor one.json", body, "application/json"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if gotPath != "/levels/annotated/corridor%20one.json" {
		t.Fatalf("path=%q", gotPath)
	}
	if !strings.HasPrefix(gotAuth, "AWS4-HMAC-SHA256 Credential=AK/20260301/auto/s3/aws4_request, SignedHeaders=host;x-amz-content-sha256;x-amz-date, Signature=") {
		t.Fatalf("auth=%q", gotAuth)
	}
	if gotHash != sha256Hex(body) {
		t.Fatalf("payload hash=%q want %q", gotHash, sha256Hex(body))
	}
	if gotBody != string(body) || gotType != "application/json" {
		t.Fatalf("body=%q type=%q", gotBody, gotType)
	}
}

func TestClientPut_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "AccessDenied", http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := New(Config{Endpoint: srv.URL, Bucket: "b", AccessKeyID: "a", SecretAccessKey: "s"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = c.Put(context.Background(), "k", []byte("x"), "")
	if err == nil || !strings.Contains(err.Error(), "status=403") {
		t.Fatalf("err=%v want status=403", err)
	}
}

func TestNew_RequiresCredentials(t *testing.T) {
	if _, err := New(Config{Endpoint: "example.com", Bucket: "b"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestCleanKey(t *testing.T) {
	cases := map[string]string{
		"a/b.json":       "a/b.json",
		"/a//b.json":     "a/b.json",
		`a\b.json`:       "a/b.json",
		"../escape":      "",
		"a/../../x":      "",
		"":               "",
		"  solves/x.zst": "solves/x.zst",
	}
	for in, want := range cases {
		if got := CleanKey(in); got != want {
			t.Fatalf("CleanKey(%q)=%q want %q", in, got, want)
		}
	}
}

type memPutter struct {
	mu    sync.Mutex
	keys  []string
	fails int
}

func (m *memPutter) Put(_ context.Context, key string, _ []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fails > 0 {
		m.fails--
		return errors.New("unavailable")
	}
	m.keys = append(m.keys, key)
	return nil
}

func TestPublisher_PrefixAndRetry(t *testing.T) {
	put := &memPutter{fails: 1}
	p := NewPublisher(put, PublisherConfig{Prefix: "run-1/", Workers: 1})
	p.backoff = 0

	p.Publish(Object{Key: "a.json", Body: []byte("{}")})
	p.Publish(Object{Key: "sub/b.json", Body: []byte("{}")})
	p.Publish(Object{Key: "../bad", Body: []byte("{}")})
	p.Close()

	sort.Strings(put.keys)
	want := []string{"run-1/a.json", "run-1/sub/b.json"}
	if strings.Join(put.keys, ",") != strings.Join(want, ",") {
		t.Fatalf("keys=%v want %v", put.keys, want)
	}
	st := p.Stats()
	if st.Enqueued != 3 || st.Uploaded != 2 || st.Failed != 1 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestPublisher_GivesUpAfterMaxAttempts(t *testing.T) {
	put := &memPutter{fails: 10}
	p := NewPublisher(put, PublisherConfig{Workers: 1, MaxAttempts: 3})
	p.backoff = 0
	p.Publish(Object{Key: "x.json"})
	p.Close()

	if st := p.Stats(); st.Failed != 1 || st.Uploaded != 0 {
		t.Fatalf("stats=%+v", st)
	}
	if put.fails != 7 {
		t.Fatalf("attempts=%d want 3", 10-put.fails)
	}
}

func TestPublisher_PublishFile(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "out", "corridor.json")
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(local, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	put := &memPutter{}
	p := NewPublisher(put, PublisherConfig{Workers: 1})
	if err := p.PublishFile(dir, local, "application/json"); err != nil {
		t.Fatalf("PublishFile: %v", err)
	}
	p.Close()
	if len(put.keys) != 1 || put.keys[0] != "out/corridor.json" {
		t.Fatalf("keys=%v", put.keys)
	}
}

func TestPublisher_NilIsNoop(t *testing.T) {
	var p *Publisher
	p.Publish(Object{Key: "x"})
	if err := p.PublishFile("/", "/x", ""); err != nil {
		t.Fatalf("PublishFile: %v", err)
	}
	p.Close()
	if st := p.Stats(); st != (Stats{}) {
		t.Fatalf("stats=%+v", st)
	}
}
