package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	solvelog "blockmaze.ai/internal/persistence/log"
	"blockmaze.ai/internal/sim/catalogs"
	"blockmaze.ai/internal/sim/pipeline"
	"blockmaze.ai/internal/sim/tuning"
	"blockmaze.ai/internal/sim/world"
)

type tally struct {
	records  int
	verified int
	unsolved int
	skipped  int
	resolved int
	failures int
}

func main() {
	var (
		logsDir   = flag.String("logs", "./data/solves", "directory containing solves-*.jsonl.zst")
		file      = flag.String("file", "", "single solve log file (overrides -logs)")
		configDir = flag.String("configs", "./configs", "config directory")
		resolve   = flag.Bool("resolve", false, "solve each level again and compare block counts")
		verbose   = flag.Bool("v", false, "print every record")
	)
	flag.Parse()

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	tune, err := tuning.Load(filepath.Join(*configDir, "tuning.yaml"))
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
		tune = tuning.Defaults()
	}
	p := pipeline.New(cats.Terrain, tune)

	files := []string{*file}
	if *file == "" {
		files, err = solvelog.Files(*logsDir, "solves")
		if err != nil {
			fmt.Fprintln(os.Stderr, "list logs:", err)
			os.Exit(1)
		}
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no solve logs found")
		os.Exit(2)
	}

	var t tally
	for _, f := range files {
		err := solvelog.ReadSolves(f, func(rec solvelog.SolveRecord) error {
			t.records++
			if msg := check(p, cats.Terrain, rec, *resolve, &t); msg != "" {
				t.failures++
				fmt.Printf("FAIL %s %s: %s\n", filepath.Base(f), label(rec), msg)
			} else if *verbose {
				fmt.Printf("ok   %s %s found=%v blocks=%d\n", filepath.Base(f), label(rec), rec.Found, rec.BlockCount)
			}
			return nil
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "read %s: %v\n", f, err)
			os.Exit(1)
		}
	}

	fmt.Printf("records=%d verified=%d unsolved=%d skipped=%d resolved=%d failures=%d\n",
		t.records, t.verified, t.unsolved, t.skipped, t.resolved, t.failures)
	if t.failures > 0 {
		os.Exit(1)
	}
}

// check returns a failure description, or "" when the record holds up.
func check(p *pipeline.Pipeline, terrain catalogs.TerrainCatalog, rec solvelog.SolveRecord, resolve bool, t *tally) string {
	if rec.Error != "" || len(rec.Level) == 0 {
		t.skipped++
		return ""
	}
	w, err := world.FromJSON(rec.Level, terrain)
	if err != nil {
		return fmt.Sprintf("level: %v", err)
	}
	if rec.Digest != "" && w.Digest() != rec.Digest {
		return fmt.Sprintf("digest %s, recorded %s (terrain catalog changed?)", w.Digest()[:12], short(rec.Digest))
	}

	if !rec.Found {
		t.unsolved++
	} else {
		if rec.Program == nil {
			return "found without a program"
		}
		if err := pipeline.Verify(w, rec.RawActions, *rec.Program, rec.BlockCount); err != nil {
			return err.Error()
		}
		t.verified++
	}

	if !resolve {
		return ""
	}
	sol, err := p.SolveWorld(context.Background(), w)
	if err != nil {
		return fmt.Sprintf("resolve: %v", err)
	}
	t.resolved++
	if sol.Found != rec.Found || sol.BlockCount != rec.BlockCount {
		return fmt.Sprintf("resolve: found=%v blocks=%d, recorded found=%v blocks=%d", sol.Found, sol.BlockCount, rec.Found, rec.BlockCount)
	}
	return ""
}

func label(rec solvelog.SolveRecord) string {
	switch {
	case rec.LevelID != "":
		return rec.LevelID
	case rec.Source != "":
		return rec.Source
	case rec.RequestID != "":
		return rec.RequestID
	}
	return short(rec.Digest)
}

func short(s string) string {
	if len(s) > 12 {
		return s[:12]
	}
	return s
}
