package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"blockmaze.ai/internal/protocol"
	"blockmaze.ai/internal/sim/actions"
	"blockmaze.ai/internal/sim/catalogs"
	"blockmaze.ai/internal/sim/pipeline"
	"blockmaze.ai/internal/sim/tuning"
)

func main() {
	var (
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		maxExp     = flag.Int("max_expansions", -1, "override search.max_expansions (0 = unbounded)")
		showXML    = flag.Bool("xml", false, "print the Blockly XML workspace")
		asJSON     = flag.Bool("json", false, "print the solution as JSON instead of text")
		annotate   = flag.String("annotate", "", "write the annotated level to this path")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] level.json\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	raw, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read level:", err)
		os.Exit(1)
	}
	if err := protocol.ValidateLevel(raw); err != nil {
		fmt.Fprintln(os.Stderr, "invalid level:", err)
		os.Exit(1)
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	tune, err := loadTuning(*configDir, *tuningPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}
	if *maxExp >= 0 {
		tune.Search.MaxExpansions = *maxExp
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sol, err := pipeline.New(cats.Terrain, tune).SolveJSON(ctx, raw)
	if err != nil {
		fmt.Fprintln(os.Stderr, "solve:", err)
		os.Exit(1)
	}

	if *annotate != "" {
		out, err := pipeline.Annotate(raw, sol, tune.MaxBlocksSlack)
		if err != nil {
			fmt.Fprintln(os.Stderr, "annotate:", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*annotate, append(out, '\n'), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, "write annotated level:", err)
			os.Exit(1)
		}
	}

	if *asJSON {
		printJSON(sol, *showXML)
	} else {
		printText(sol, *showXML)
	}
	if !sol.Found {
		os.Exit(3)
	}
}

// loadTuning reads tuning.yaml; a missing file means defaults.
func loadTuning(configDir, path string) (tuning.Tuning, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		p = filepath.Join(configDir, "tuning.yaml")
	}
	t, err := tuning.Load(p)
	if err != nil && os.IsNotExist(err) && strings.TrimSpace(path) == "" {
		return tuning.Defaults(), nil
	}
	return t, err
}

func printText(sol pipeline.Solution, showXML bool) {
	id := sol.LevelID
	if id == "" {
		id = sol.Digest[:12]
	}
	if !sol.Found {
		fmt.Printf("level %s: no solution (expanded=%d visited=%d elapsed=%s)\n", id, sol.Expanded, sol.Visited, sol.Elapsed)
		return
	}
	fmt.Printf("level %s: %d actions, %d blocks (expanded=%d visited=%d cost=%.1f elapsed=%s)\n",
		id, len(sol.RawActions), sol.BlockCount, sol.Expanded, sol.Visited, sol.Cost, sol.Elapsed)
	fmt.Println()
	fmt.Println("raw actions:", strings.Join(actions.Names(sol.RawActions), ", "))
	fmt.Println()
	for _, line := range sol.Structured {
		fmt.Println(line)
	}
	if showXML {
		fmt.Println()
		fmt.Println(sol.XML)
	}
}

func printJSON(sol pipeline.Solution, showXML bool) {
	out := struct {
		LevelID    string   `json:"level_id,omitempty"`
		Digest     string   `json:"digest"`
		Found      bool     `json:"found"`
		BlockCount int      `json:"block_count"`
		RawActions []string `json:"raw_actions"`
		Structured []string `json:"structured"`
		Program    any      `json:"program,omitempty"`
		XML        string   `json:"xml,omitempty"`
		Expanded   int      `json:"expanded"`
		Visited    int      `json:"visited"`
		ElapsedMs  int64    `json:"elapsed_ms"`
	}{
		LevelID:    sol.LevelID,
		Digest:     sol.Digest,
		Found:      sol.Found,
		BlockCount: sol.BlockCount,
		RawActions: actions.Names(sol.RawActions),
		Structured: sol.Structured,
		Expanded:   sol.Expanded,
		Visited:    sol.Visited,
		ElapsedMs:  sol.Elapsed.Milliseconds(),
	}
	if sol.Found {
		out.Program = sol.Program
	}
	if showXML {
		out.XML = sol.XML
	}
	if out.RawActions == nil {
		out.RawActions = []string{}
	}
	if out.Structured == nil {
		out.Structured = []string{}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}
