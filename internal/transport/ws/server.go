package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"blockmaze.ai/internal/persistence/indexdb"
	solvelog "blockmaze.ai/internal/persistence/log"
	"blockmaze.ai/internal/protocol"
	"blockmaze.ai/internal/sim/actions"
	"blockmaze.ai/internal/sim/pipeline"
	"blockmaze.ai/internal/sim/report"
	"blockmaze.ai/internal/sim/solver"
	"blockmaze.ai/internal/sim/world"
)

// Cache is the read side of a solve index.
type Cache interface {
	LookupByDigest(ctx context.Context, digest string) (indexdb.SolveRow, bool, error)
}

type Config struct {
	Pipeline *pipeline.Pipeline

	// Optional.
	Cache    Cache
	Index    indexdb.Index
	SolveLog *solvelog.SolveLogger
	Logger   *log.Logger

	// MaxInFlight bounds concurrent solves across all connections.
	MaxInFlight int
	// RequestTimeout applies when neither the request nor tuning sets one.
	RequestTimeout time.Duration
}

type Server struct {
	cfg Config
	log *log.Logger

	// tuningDigest guards cache hits against rows solved under other settings.
	tuningDigest string

	upgrader websocket.Upgrader
	sem      chan struct{}

	conns    atomic.Int64
	solved   atomic.Uint64
	cached   atomic.Uint64
	rejected atomic.Uint64
	failed   atomic.Uint64
}

func NewServer(cfg Config) *Server {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 8
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(nopWriter{}, "", 0)
	}
	return &Server{
		cfg:          cfg,
		log:          logger,
		tuningDigest: cfg.Pipeline.Tuning.ResultDigest(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		sem: make(chan struct{}, cfg.MaxInFlight),
	}
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		s.conns.Add(1)
		defer s.conns.Add(-1)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan []byte, 16)
		writerDone := make(chan struct{})

		// Writer goroutine.
		go func() {
			defer close(writerDone)
			for b := range out {
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					cancel()
					// Drain so senders never block.
					for range out {
					}
					return
				}
			}
		}()

		send := func(v any) {
			b, err := json.Marshal(v)
			if err != nil {
				s.log.Printf("marshal reply: %v", err)
				return
			}
			select {
			case out <- b:
			case <-ctx.Done():
			}
		}

		var inflight sync.WaitGroup

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			req, errMsg := decodeSolve(msg)
			if errMsg != nil {
				s.rejected.Add(1)
				send(errMsg)
				continue
			}

			select {
			case s.sem <- struct{}{}:
			default:
				s.rejected.Add(1)
				send(protocol.NewError(req.RequestID, protocol.ErrBusy, "too many solves in flight"))
				continue
			}
			inflight.Add(1)
			go func() {
				defer inflight.Done()
				defer func() { <-s.sem }()
				send(s.solve(ctx, req))
			}()
		}

		cancel()
		inflight.Wait()
		close(out)
		<-writerDone
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
	}
}

// decodeSolve returns either a usable request or the ERROR to send back.
func decodeSolve(msg []byte) (protocol.SolveMsg, *protocol.ErrorMsg) {
	var req protocol.SolveMsg
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		e := protocol.NewError("", protocol.ErrProtoBadRequest, "bad json")
		return req, &e
	}
	if base.Type != protocol.TypeSolve {
		e := protocol.NewError("", protocol.ErrProtoBadRequest, "expected SOLVE")
		return req, &e
	}
	if err := json.Unmarshal(msg, &req); err != nil {
		e := protocol.NewError("", protocol.ErrProtoBadRequest, err.Error())
		return req, &e
	}
	if strings.TrimSpace(req.RequestID) == "" {
		req.RequestID = uuid.NewString()
	}
	if req.ProtocolVersion != protocol.Version {
		e := protocol.NewError(req.RequestID, protocol.ErrProtoBadRequest, "bad protocol_version")
		return req, &e
	}
	if err := protocol.ValidateSolve(msg); err != nil {
		e := protocol.NewError(req.RequestID, protocol.ErrBadRequest, err.Error())
		return req, &e
	}
	return req, nil
}

func (s *Server) solve(ctx context.Context, req protocol.SolveMsg) any {
	w, err := world.FromJSON(req.Level, s.cfg.Pipeline.Terrain)
	if err != nil {
		s.failed.Add(1)
		return protocol.NewError(req.RequestID, protocol.ErrMalformedWorld, err.Error())
	}

	overrides := req.MaxExpansions > 0 || req.TimeoutMs > 0
	if s.cfg.Cache != nil && !overrides {
		row, ok, err := s.cfg.Cache.LookupByDigest(ctx, w.Digest())
		if err != nil {
			s.log.Printf("cache lookup %s: %v", w.Digest(), err)
		} else if ok && row.TuningDigest == s.tuningDigest {
			s.cached.Add(1)
			return s.solutionFromRow(req, row)
		}
	}

	p := *s.cfg.Pipeline
	if req.MaxExpansions > 0 {
		p.Tuning.Search.MaxExpansions = req.MaxExpansions
	}
	timeout := s.cfg.RequestTimeout
	if req.TimeoutMs > 0 {
		timeout = time.Duration(req.TimeoutMs) * time.Millisecond
		p.Tuning.Search.TimeoutMs = 0
	}
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sol, err := p.SolveWorld(sctx, w)
	rec := solvelog.RecordOf(sol, req.Level)
	rec.RequestID = req.RequestID
	if err != nil {
		s.failed.Add(1)
		code := protocol.ErrInternal
		if errors.Is(err, solver.ErrExpansionLimit) || errors.Is(err, context.DeadlineExceeded) {
			code = protocol.ErrLimit
		}
		rec.Error, rec.ErrorCode = err.Error(), code
		s.writeRecord(rec)
		s.log.Printf("solve %s level=%s code=%s err=%v", req.RequestID, w.ID(), code, err)
		return protocol.NewError(req.RequestID, code, err.Error())
	}
	if !sol.Found {
		rec.ErrorCode = protocol.ErrNoSolution
	}
	s.writeRecord(rec)
	if s.cfg.Index != nil && !overrides {
		s.cfg.Index.RecordSolve(indexdb.RowOf(sol, req.RequestID))
	}
	s.solved.Add(1)
	s.log.Printf("solve %s level=%s found=%v blocks=%d expanded=%d elapsed=%s",
		req.RequestID, w.ID(), sol.Found, sol.BlockCount, sol.Expanded, sol.Elapsed)

	msg := protocol.SolutionMsg{
		Type:            protocol.TypeSolution,
		ProtocolVersion: protocol.Version,
		RequestID:       req.RequestID,
		LevelID:         sol.LevelID,
		Digest:          sol.Digest,
		Found:           sol.Found,
		BlockCount:      sol.BlockCount,
		RawActions:      actions.Names(sol.RawActions),
		Structured:      emptyIfNil(sol.Structured),
		Expanded:        sol.Expanded,
	}
	if sol.Found {
		prog := sol.Program
		msg.Program = &prog
		if req.WithXML {
			msg.XML = sol.XML
		}
	}
	return msg
}

func (s *Server) solutionFromRow(req protocol.SolveMsg, row indexdb.SolveRow) protocol.SolutionMsg {
	msg := protocol.SolutionMsg{
		Type:            protocol.TypeSolution,
		ProtocolVersion: protocol.Version,
		RequestID:       req.RequestID,
		LevelID:         row.LevelID,
		Digest:          row.Digest,
		Found:           row.Found,
		BlockCount:      row.BlockCount,
		RawActions:      actions.Names(row.Actions),
		Structured:      emptyIfNil(row.Structured),
		Expanded:        row.Expanded,
		Cached:          true,
	}
	if row.Found {
		prog := row.Program
		msg.Program = &prog
		if req.WithXML {
			if xml, err := report.BlocklyXML(prog); err == nil {
				msg.XML = xml
			}
		}
	}
	return msg
}

func (s *Server) writeRecord(rec solvelog.SolveRecord) {
	if s.cfg.SolveLog == nil {
		return
	}
	if err := s.cfg.SolveLog.WriteSolve(rec); err != nil {
		s.log.Printf("solve log: %v", err)
	}
}

func emptyIfNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

type Stats struct {
	Connections int64  `json:"connections"`
	InFlight    int    `json:"in_flight"`
	Solved      uint64 `json:"solved"`
	Cached      uint64 `json:"cached"`
	Rejected    uint64 `json:"rejected"`
	Failed      uint64 `json:"failed"`
}

func (s *Server) Stats() Stats {
	return Stats{
		Connections: s.conns.Load(),
		InFlight:    len(s.sem),
		Solved:      s.solved.Load(),
		Cached:      s.cached.Load(),
		Rejected:    s.rejected.Load(),
		Failed:      s.failed.Load(),
	}
}

// StatsHandler serves Stats as JSON to loopback clients only.
func (s *Server) StatsHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(s.Stats())
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
