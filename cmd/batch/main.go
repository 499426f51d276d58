package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"blockmaze.ai/internal/persistence/indexdb"
	solvelog "blockmaze.ai/internal/persistence/log"
	"blockmaze.ai/internal/persistence/objstore"
	"blockmaze.ai/internal/protocol"
	"blockmaze.ai/internal/sim/catalogs"
	"blockmaze.ai/internal/sim/pipeline"
	"blockmaze.ai/internal/sim/solver"
	"blockmaze.ai/internal/sim/tuning"
	"blockmaze.ai/internal/sim/world"
)

type counters struct {
	solved   atomic.Int64
	unsolved atomic.Int64
	failed   atomic.Int64
	blocks   atomic.Int64
}

func main() {
	var (
		inDir      = flag.String("in", "./levels", "directory of level *.json files")
		outDir     = flag.String("out", "./levels_solved", "directory for annotated levels")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir    = flag.String("data", "./data", "runtime data directory (solve logs, index)")
		preset     = flag.String("preset", "", "toolbox preset name from toolbox_presets.json to apply before solving")
		workers    = flag.Int("workers", runtime.NumCPU(), "levels solved in parallel")
		disableDB  = flag.Bool("disable_db", false, "disable the solve index")
		failFast   = flag.Bool("fail_fast", false, "stop at the first level that cannot be read or solved")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[batch] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	tune, err := loadTuning(*configDir, *tuningPath, logger)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}

	var presetRaw []byte
	if name := strings.TrimSpace(*preset); name != "" {
		p, ok := cats.Toolbox.Preset(name)
		if !ok {
			logger.Fatalf("unknown toolbox preset %q", name)
		}
		presetRaw = p
	}

	files, err := levelFiles(*inDir)
	if err != nil {
		logger.Fatalf("list levels: %v", err)
	}
	if len(files) == 0 {
		logger.Printf("no levels in %s", *inDir)
		return
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		logger.Fatalf("create out dir: %v", err)
	}

	idx, err := openIndex(*dataDir, *disableDB, logger)
	if err != nil {
		logger.Fatalf("open index: %v", err)
	}
	if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
		logger.Printf("index: upsert catalogs: %v", err)
	}
	pub, err := openPublisher(logger)
	if err != nil {
		logger.Fatalf("init publisher: %v", err)
	}
	solveLog := solvelog.NewSolveLogger(*dataDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(cats.Terrain, tune)
	var c counters
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, *workers))
	for _, path := range files {
		path := path
		g.Go(func() error {
			err := solveFile(gctx, p, path, *outDir, presetRaw, tune.MaxBlocksSlack, solveLog, idx, pub, &c)
			if err == nil {
				return nil
			}
			c.failed.Add(1)
			logger.Printf("%s: %v", filepath.Base(path), err)
			if *failFast || errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	runErr := g.Wait()

	if err := solveLog.Close(); err != nil {
		logger.Printf("close solve log: %v", err)
	}
	if err := idx.Close(); err != nil {
		logger.Printf("close index: %v", err)
	}
	if pub != nil {
		logs, err := solvelog.Files(filepath.Join(*dataDir, "solves"), "solves")
		if err != nil {
			logger.Printf("list solve logs: %v", err)
		}
		for _, f := range logs {
			if err := pub.PublishFile(*dataDir, f, "application/zstd"); err != nil {
				logger.Printf("publish %s: %v", f, err)
			}
		}
		pub.Close()
		st := pub.Stats()
		logger.Printf("published uploaded=%d failed=%d dropped=%d", st.Uploaded, st.Failed, st.Dropped)
	}

	solved, unsolved, failed := c.solved.Load(), c.unsolved.Load(), c.failed.Load()
	avg := 0.0
	if solved > 0 {
		avg = float64(c.blocks.Load()) / float64(solved)
	}
	logger.Printf("levels=%d solved=%d unsolved=%d failed=%d avg_blocks=%.2f elapsed=%s",
		len(files), solved, unsolved, failed, avg, time.Since(start).Round(time.Millisecond))

	if runErr != nil || failed > 0 {
		os.Exit(1)
	}
}

func solveFile(ctx context.Context, p *pipeline.Pipeline, path, outDir string, preset []byte, slack int,
	solveLog *solvelog.SolveLogger, idx *batchIndex, pub *objstore.Publisher, c *counters) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if preset != nil {
		if raw, err = pipeline.ApplyToolbox(raw, preset); err != nil {
			return err
		}
	}
	if err := protocol.ValidateLevel(raw); err != nil {
		return err
	}

	name := filepath.Base(path)
	sol, err := p.SolveJSON(ctx, raw)
	if err != nil {
		rec := solvelog.SolveRecord{Time: time.Now().UTC(), Source: name, Error: err.Error(), ErrorCode: errorCode(err)}
		_ = solveLog.WriteSolve(rec)
		return err
	}

	out, err := pipeline.Annotate(raw, sol, slack)
	if err != nil {
		return err
	}
	out = append(out, '\n')
	if err := os.WriteFile(filepath.Join(outDir, name), out, 0o644); err != nil {
		return err
	}
	pub.Publish(objstore.Object{Key: "levels/" + name, Body: out, ContentType: "application/json"})

	rec := solvelog.RecordOf(sol, raw)
	rec.Source = name
	if !sol.Found {
		rec.ErrorCode = protocol.ErrNoSolution
	}
	if err := solveLog.WriteSolve(rec); err != nil {
		return err
	}
	idx.RecordSolve(indexdb.RowOf(sol, name))

	if sol.Found {
		c.solved.Add(1)
		c.blocks.Add(int64(sol.BlockCount))
	} else {
		c.unsolved.Add(1)
	}
	return nil
}

func errorCode(err error) string {
	var mw *world.MalformedWorldError
	switch {
	case errors.As(err, &mw):
		return protocol.ErrMalformedWorld
	case errors.Is(err, solver.ErrExpansionLimit), errors.Is(err, context.DeadlineExceeded):
		return protocol.ErrLimit
	default:
		return protocol.ErrInternal
	}
}

func levelFiles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// loadTuning reads tuning.yaml; a missing default file means defaults.
func loadTuning(configDir, path string, logger *log.Logger) (tuning.Tuning, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		p = filepath.Join(configDir, "tuning.yaml")
	}
	t, err := tuning.Load(p)
	if err != nil && os.IsNotExist(err) && strings.TrimSpace(path) == "" {
		logger.Printf("tuning not found (%s); using defaults", p)
		return tuning.Defaults(), nil
	}
	return t, err
}
