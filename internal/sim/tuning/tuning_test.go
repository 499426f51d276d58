package tuning

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults_Valid(t *testing.T) {
	d := Defaults()
	if err := d.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if d.Search.InPlaceCost != 1.1 || d.Search.UnmetGoalPenalty != 10 {
		t.Fatalf("unexpected defaults: %+v", d.Search)
	}
	if d.Synth.ProcedureRounds != 3 || d.Synth.ProcedureMinLen != 3 || d.Synth.ProcedureMaxLen != 10 {
		t.Fatalf("unexpected synth defaults: %+v", d.Synth)
	}
}

func TestLoad_PartialOverride(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	raw := "search:\n  max_expansions: 5000\n  timeout_ms: 250\nmax_blocks_slack: 3\n"
	if err := os.WriteFile(p, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Search.MaxExpansions != 5000 || got.MaxBlocksSlack != 3 {
		t.Fatalf("override not applied: %+v", got)
	}
	if got.Search.MoveCost != 1 || got.Synth.ProcedureMaxLen != 10 {
		t.Fatalf("defaults lost: %+v", got)
	}
	if got.Search.Timeout() != 250*time.Millisecond {
		t.Fatalf("timeout=%v", got.Search.Timeout())
	}
}

func TestLoad_RejectsBadWindow(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	raw := "synth:\n  procedure_min_len: 6\n  procedure_max_len: 4\n"
	if err := os.WriteFile(p, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestResultDigest_TracksSolutionSettingsOnly(t *testing.T) {
	base := Defaults().ResultDigest()
	if got := Defaults().ResultDigest(); got != base {
		t.Fatalf("digest not stable: %s vs %s", got, base)
	}

	budget := Defaults()
	budget.Search.MaxExpansions = 7
	budget.MaxBlocksSlack = 9
	if got := budget.ResultDigest(); got != base {
		t.Fatalf("budget settings changed digest")
	}

	penalty := Defaults()
	penalty.Search.UnmetGoalPenalty++
	if got := penalty.ResultDigest(); got == base {
		t.Fatalf("penalty change kept digest %s", got)
	}
}
