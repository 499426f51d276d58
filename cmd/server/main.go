package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"blockmaze.ai/internal/persistence/indexdb"
	solvelog "blockmaze.ai/internal/persistence/log"
	"blockmaze.ai/internal/sim/catalogs"
	"blockmaze.ai/internal/sim/pipeline"
	"blockmaze.ai/internal/sim/tuning"
	"blockmaze.ai/internal/transport/ws"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "http listen address")
		configDir   = flag.String("configs", "./configs", "config directory")
		tuningPath  = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir     = flag.String("data", "./data", "runtime data directory (solve logs, index)")
		disableDB   = flag.Bool("disable_db", false, "disable the solve index and digest cache")
		disableLog  = flag.Bool("disable_solve_log", false, "disable the JSONL solve log")
		maxInFlight = flag.Int("max_in_flight", 8, "concurrent solves across all connections")
		timeoutMs   = flag.Int("request_timeout_ms", 10000, "per-solve timeout when neither request nor tuning sets one")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	cfg := ws.Config{
		Pipeline:       pipeline.New(cats.Terrain, tune),
		Logger:         logger,
		MaxInFlight:    *maxInFlight,
		RequestTimeout: time.Duration(*timeoutMs) * time.Millisecond,
	}

	var sqlite *indexdb.SQLiteIndex
	if !*disableDB {
		sqlite, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "solves.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		if err := sqlite.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
		idx := indexdb.Multi{sqlite}
		if endpoint := strings.TrimSpace(os.Getenv("BM_INDEX_REMOTE_URL")); endpoint != "" {
			remote, err := indexdb.OpenRemote(indexdb.RemoteConfig{
				Endpoint: endpoint,
				Token:    strings.TrimSpace(os.Getenv("BM_INDEX_REMOTE_TOKEN")),
				Logger:   logger,
			})
			if err != nil {
				logger.Fatalf("open remote index: %v", err)
			}
			idx = append(idx, remote)
		}
		defer idx.Close()
		cfg.Cache = sqlite
		cfg.Index = idx
	}
	if !*disableLog {
		sl := solvelog.NewSolveLogger(*dataDir)
		defer sl.Close()
		cfg.SolveLog = sl
	}

	srvWS := ws.NewServer(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		st := srvWS.Stats()
		gauge(rw, "blockmaze_ws_connections", "Open websocket connections.", float64(st.Connections))
		gauge(rw, "blockmaze_solves_in_flight", "Solves currently running.", float64(st.InFlight))
		counter(rw, "blockmaze_solves_total", "Solves answered by the search.", st.Solved)
		counter(rw, "blockmaze_solves_cached_total", "Solves answered from the digest cache.", st.Cached)
		counter(rw, "blockmaze_requests_rejected_total", "Requests rejected before solving.", st.Rejected)
		counter(rw, "blockmaze_solves_failed_total", "Solves that ended with an error.", st.Failed)
		if sqlite != nil {
			is := sqlite.Stats()
			gauge(rw, "blockmaze_index_queue_depth", "Pending index writes.", float64(is.QueueDepth))
			counter(rw, "blockmaze_index_written_total", "Rows written to the index.", is.WrittenTotal)
			counter(rw, "blockmaze_index_dropped_total", "Rows dropped on a full index queue.", is.DropSolveTotal)
		}
	})
	mux.HandleFunc("/stats", srvWS.StatsHandler())
	if envBool("BM_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/solve", srvWS.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (terrain=%s)", *addr, cats.Terrain.Digest[:12])
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func gauge(rw http.ResponseWriter, name, help string, v float64) {
	fmt.Fprintf(rw, "# HELP %s %s\n# TYPE %s gauge\n%s %g\n", name, help, name, name, v)
}

func counter(rw http.ResponseWriter, name, help string, v uint64) {
	fmt.Fprintf(rw, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", name, help, name, name, v)
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
