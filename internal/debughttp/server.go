// Package debughttp serves an optional diagnostics endpoint: health, the
// scheduler snapshot, recent journal records, a visibility toggle and pprof.
package debughttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	hpprof "net/http/pprof"
	"strconv"
	"strings"
	"time"

	"framesched/internal/storage"
	logx "framesched/pkg/logx"
	"framesched/pkg/scheduler"
)

// Config controls the server.
//
// Security:
//   - Prefer binding to localhost (default).
//   - A non-loopback Addr requires Token or AllowInsecure.
type Config struct {
	Enabled       bool
	Addr          string
	Token         string
	AllowInsecure bool

	ReadTimeout time.Duration
	IdleTimeout time.Duration
}

const DefaultAddr = "127.0.0.1:6060"

// Source is what the server reports on. All methods must be safe to call
// from HTTP handler goroutines.
type Source interface {
	Snapshot(ctx context.Context) (scheduler.Snapshot, error)
	Recent(ctx context.Context, n int) ([]storage.Record, error)
	SetHidden(hidden bool) bool
}

// CheckAddr rejects an insecure bind.
func CheckAddr(cfg Config) error {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		addr = DefaultAddr
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("debug.addr: %w", err)
	}
	if !cfg.AllowInsecure && strings.TrimSpace(cfg.Token) == "" && !isLoopbackAddr(addr) {
		return errors.New("debug.addr: non-loopback addr requires token or allow_insecure")
	}
	return nil
}

// Serve listens on cfg.Addr and serves until ctx is done. It returns nil
// when disabled.
func Serve(ctx context.Context, cfg Config, src Source, log logx.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if err := CheckAddr(cfg); err != nil {
		return err
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		addr = DefaultAddr
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("debug listen: %w", err)
	}
	srv := &http.Server{
		Handler:     Handler(src, cfg.Token, log),
		ReadTimeout: cfg.ReadTimeout,
		IdleTimeout: cfg.IdleTimeout,
		// WriteTimeout stays 0 so /debug/pprof/profile can run for 30s.
	}

	go func() {
		<-ctx.Done()
		cctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = srv.Shutdown(cctx)
		cancel()
	}()

	if cfg.AllowInsecure && cfg.Token == "" && !isLoopbackAddr(addr) {
		log.Warn("debug server running without token on non-loopback addr (insecure)", logx.String("addr", addr))
	}
	log.Info("debug server started", logx.String("addr", ln.Addr().String()), logx.Bool("token_set", cfg.Token != ""))

	err = srv.Serve(ln)
	if ctx.Err() != nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Handler builds the diagnostics mux.
func Handler(src Source, token string, log logx.Logger) http.Handler {
	mux := http.NewServeMux()
	wrap := func(h http.HandlerFunc) http.HandlerFunc { return withAuth(token, h) }

	mux.HandleFunc("/healthz", wrap(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		// A response proves the frame loop is draining its queue.
		if _, err := src.Snapshot(ctx); err != nil {
			http.Error(w, "frame loop unresponsive: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	mux.HandleFunc("/snapshot", wrap(func(w http.ResponseWriter, r *http.Request) {
		snap, err := src.Snapshot(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, log, viewSnapshot(snap))
	}))

	mux.HandleFunc("/journal", wrap(func(w http.ResponseWriter, r *http.Request) {
		n := 50
		if raw := r.URL.Query().Get("n"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v <= 0 || v > 1000 {
				http.Error(w, "n must be 1..1000", http.StatusBadRequest)
				return
			}
			n = v
		}
		recs, err := src.Recent(r.Context(), n)
		if errors.Is(err, storage.ErrDisabled) {
			http.Error(w, "journal disabled", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if recs == nil {
			recs = []storage.Record{}
		}
		writeJSON(w, log, recs)
	}))

	mux.HandleFunc("/visibility", wrap(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		hidden, err := strconv.ParseBool(r.URL.Query().Get("hidden"))
		if err != nil {
			http.Error(w, "hidden must be true or false", http.StatusBadRequest)
			return
		}
		if !src.SetHidden(hidden) {
			http.Error(w, "frame loop stopped", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	mux.HandleFunc("/debug/pprof/", wrap(hpprof.Index))
	mux.HandleFunc("/debug/pprof/cmdline", wrap(hpprof.Cmdline))
	mux.HandleFunc("/debug/pprof/profile", wrap(hpprof.Profile))
	mux.HandleFunc("/debug/pprof/symbol", wrap(hpprof.Symbol))
	mux.HandleFunc("/debug/pprof/trace", wrap(hpprof.Trace))
	return mux
}

func writeJSON(w http.ResponseWriter, log logx.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Debug("debug response write failed", logx.Err(err))
	}
}

// withAuth accepts "Authorization: Bearer <token>" or ?token=<token>.
func withAuth(token string, h http.HandlerFunc) http.HandlerFunc {
	tok := strings.TrimSpace(token)
	if tok == "" {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("token"); got != "" {
			if got == tok {
				h(w, r)
				return
			}
			unauthorized(w)
			return
		}
		const p = "Bearer "
		if ah := r.Header.Get("Authorization"); strings.HasPrefix(ah, p) && strings.TrimSpace(strings.TrimPrefix(ah, p)) == tok {
			h(w, r)
			return
		}
		unauthorized(w)
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func isLoopbackAddr(addr string) bool {
	h, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	h = strings.TrimSpace(h)
	if h == "" {
		// all interfaces
		return false
	}
	if strings.EqualFold(h, "localhost") {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}
