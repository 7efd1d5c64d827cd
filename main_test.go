package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/galapagotchi/store"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestConfigDump(t *testing.T) {
	out, err := execute(t, "config", "dump", "--log-level", "error")
	if err != nil {
		t.Fatalf("config dump: %v", err)
	}
	for _, key := range []string{"evolution:", "max_population: 24", "survival_rate: 0.66"} {
		if !strings.Contains(out, key) {
			t.Errorf("dump missing %q", key)
		}
	}
}

func TestGenomeSeedRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genomes.db")

	if _, err := execute(t, "genome", "seed", "--store", path, "--seed", "5", "--log-level", "error"); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if _, err := execute(t, "genome", "seed", "--store", path, "--log-level", "error"); err == nil {
		t.Error("second seed without --force succeeded")
	}
	if _, err := execute(t, "genome", "seed", "--store", path, "--force", "--log-level", "error"); err != nil {
		t.Errorf("forced seed: %v", err)
	}

	s, err := store.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	history, err := s.History(context.Background(), "0,0", 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("history = %d records, want 2", len(history))
	}
}

func TestGenomeShowWithoutStore(t *testing.T) {
	if _, err := execute(t, "genome", "show", "--log-level", "error"); err == nil {
		t.Error("expected error without a store")
	}
}

func TestRunStopsAtMaxFrames(t *testing.T) {
	out := filepath.Join(t.TempDir(), "run")
	if _, err := execute(t, "run", "--seed", "1", "--max-frames", "50", "--output-dir", out, "--log-level", "error"); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestJourneySetAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genomes.db")

	out, err := execute(t, "journey", "show", "--store", path, "--log-level", "error")
	if err != nil {
		t.Fatalf("show before set: %v", err)
	}
	if !strings.Contains(out, "config") || !strings.Contains(out, "2,0 -> 4,0 -> 3,-1") {
		t.Errorf("show before set = %q, want the config journey", out)
	}

	if _, err := execute(t, "journey", "set", "--store", path, "1,0", "--log-level", "error"); err == nil {
		t.Error("set accepted an invalid cell")
	}
	if _, err := execute(t, "journey", "set", "--store", path, "--log-level", "error", "--", "-2,0", "-4,0"); err != nil {
		t.Fatalf("set: %v", err)
	}

	out, err = execute(t, "journey", "show", "--store", path, "--json", "--log-level", "error")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	for _, want := range []string{`"source":"store"`, `"legs":["-2,0","-4,0"]`} {
		if !strings.Contains(out, want) {
			t.Errorf("show = %q, missing %s", out, want)
		}
	}
}

func TestGenomeShowJSONWritesToCommandOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genomes.db")
	if _, err := execute(t, "genome", "seed", "--store", path, "--seed", "5", "--log-level", "error"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	out, err := execute(t, "genome", "show", "--store", path, "--json", "--log-level", "error")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, `"home":"0,0"`) || !strings.Contains(out, `"generation":0`) {
		t.Errorf("show output = %q", out)
	}
}
