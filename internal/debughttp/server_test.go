package debughttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"framesched/internal/storage"
	"framesched/pkg/interval"
	logx "framesched/pkg/logx"
	"framesched/pkg/scheduler"
)

type fakeSource struct {
	snap    scheduler.Snapshot
	recs    []storage.Record
	recErr  error
	hidden  []bool
	stopped bool
}

func (f *fakeSource) Snapshot(context.Context) (scheduler.Snapshot, error) { return f.snap, nil }

func (f *fakeSource) Recent(_ context.Context, n int) ([]storage.Record, error) {
	if f.recErr != nil {
		return nil, f.recErr
	}
	if n < len(f.recs) {
		return f.recs[len(f.recs)-n:], nil
	}
	return f.recs, nil
}

func (f *fakeSource) SetHidden(h bool) bool {
	f.hidden = append(f.hidden, h)
	return !f.stopped
}

func do(t *testing.T, h http.Handler, method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSnapshotEndpoint(t *testing.T) {
	t.Parallel()
	src := &fakeSource{snap: scheduler.Snapshot{
		Running: true,
		Pulses:  7,
		Intervals: []interval.State{
			{Name: "a", Enabled: true, Delay: 100 * time.Millisecond, Remaining: interval.Unbounded},
			{Name: "b", Delay: time.Second, Iteration: 2, Remaining: 0},
		},
	}}
	rec := do(t, Handler(src, "", logx.Nop()), http.MethodGet, "/snapshot", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got snapshotView
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Running || got.Pulses != 7 || len(got.Intervals) != 2 {
		t.Fatalf("snapshot = %+v", got)
	}
	if got.Intervals[0].Remaining != nil || got.Intervals[0].Delay != "100ms" {
		t.Fatalf("unbounded interval = %+v", got.Intervals[0])
	}
	if got.Intervals[1].Remaining == nil || *got.Intervals[1].Remaining != 0 {
		t.Fatalf("bounded interval = %+v", got.Intervals[1])
	}
}

func TestJournalEndpoint(t *testing.T) {
	t.Parallel()
	src := &fakeSource{recs: []storage.Record{{Name: "a", Iteration: 1}, {Name: "a", Iteration: 2}}}
	h := Handler(src, "", logx.Nop())

	rec := do(t, h, http.MethodGet, "/journal?n=1", nil)
	var got []storage.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Iteration != 2 {
		t.Fatalf("records = %+v", got)
	}

	if rec := do(t, h, http.MethodGet, "/journal?n=0", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("n=0 status = %d", rec.Code)
	}

	src.recErr = storage.ErrDisabled
	if rec := do(t, h, http.MethodGet, "/journal", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("disabled status = %d", rec.Code)
	}
}

func TestVisibilityEndpoint(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	h := Handler(src, "", logx.Nop())
	if rec := do(t, h, http.MethodGet, "/visibility?hidden=true", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/visibility?hidden=maybe", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad value status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/visibility?hidden=true", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("POST status = %d", rec.Code)
	}
	if len(src.hidden) != 1 || !src.hidden[0] {
		t.Fatalf("SetHidden calls = %v", src.hidden)
	}
	src.stopped = true
	if rec := do(t, h, http.MethodPost, "/visibility?hidden=false", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("stopped status = %d", rec.Code)
	}
}

func TestTokenAuth(t *testing.T) {
	t.Parallel()
	h := Handler(&fakeSource{}, "s3cret", logx.Nop())
	tests := []struct {
		name   string
		target string
		hdr    map[string]string
		want   int
	}{
		{name: "missing", target: "/healthz", want: http.StatusUnauthorized},
		{name: "wrong query", target: "/healthz?token=nope", want: http.StatusUnauthorized},
		{name: "query", target: "/healthz?token=s3cret", want: http.StatusOK},
		{name: "bearer", target: "/healthz", hdr: map[string]string{"Authorization": "Bearer s3cret"}, want: http.StatusOK},
	}
	for _, tt := range tests {
		if rec := do(t, h, http.MethodGet, tt.target, tt.hdr); rec.Code != tt.want {
			t.Fatalf("%s: status = %d, want %d", tt.name, rec.Code, tt.want)
		}
	}
}

func TestCheckAddr(t *testing.T) {
	t.Parallel()
	tests := []struct {
		cfg Config
		ok  bool
	}{
		{cfg: Config{}, ok: true},
		{cfg: Config{Addr: "localhost:7070"}, ok: true},
		{cfg: Config{Addr: ":7070"}, ok: false},
		{cfg: Config{Addr: "0.0.0.0:7070", Token: "t"}, ok: true},
		{cfg: Config{Addr: "10.0.0.1:7070", AllowInsecure: true}, ok: true},
		{cfg: Config{Addr: "no-port"}, ok: false},
	}
	for _, tt := range tests {
		if err := CheckAddr(tt.cfg); (err == nil) != tt.ok {
			t.Fatalf("CheckAddr(%+v) = %v, want ok=%v", tt.cfg, err, tt.ok)
		}
	}
}
