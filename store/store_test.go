package store

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openMemory(t *testing.T) *GenomeStore {
	t.Helper()
	s, err := Open(context.Background(), Memory)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadMissing(t *testing.T) {
	s := openMemory(t)
	_, err := s.Load(context.Background(), "0,0")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveReplacesCurrent(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	if err := s.Save(ctx, "0,0", 1, []byte{1, 2, 3}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s.now = func() time.Time { return base.Add(time.Minute) }
	if err := s.Save(ctx, "0,0", 4, []byte{9}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, "2,0", 2, []byte{7, 7}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rec, err := s.Load(ctx, "0,0")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(rec.Data, []byte{9}) || rec.Generation != 4 {
		t.Errorf("current = %v gen %d, want [9] gen 4", rec.Data, rec.Generation)
	}
	if !rec.SavedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("saved_at = %v", rec.SavedAt)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	for gen := 0; gen < 5; gen++ {
		if err := s.Save(ctx, "0,0", gen, []byte{byte(gen)}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if err := s.Save(ctx, "2,0", 9, []byte{9}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	tests := []struct {
		name  string
		limit int
		want  []int
	}{
		{"limited", 2, []int{4, 3}},
		{"all", 0, []int{4, 3, 2, 1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := s.History(ctx, "0,0", tt.limit)
			if err != nil {
				t.Fatalf("History: %v", err)
			}
			if len(recs) != len(tt.want) {
				t.Fatalf("history = %d records, want %d", len(recs), len(tt.want))
			}
			for i, gen := range tt.want {
				if recs[i].Generation != gen {
					t.Errorf("record %d generation = %d, want %d", i, recs[i].Generation, gen)
				}
			}
		})
	}
}

func TestFilePersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "genomes.db")

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Save(ctx, "0,0", 3, []byte("abc")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	rec, err := s.Load(ctx, "0,0")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(rec.Data) != "abc" || rec.Generation != 3 {
		t.Errorf("loaded %q gen %d", rec.Data, rec.Generation)
	}
}

func TestJourneyReplacesCurrent(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	if _, err := s.LoadJourney(ctx, "0,0"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadJourney before save: err = %v, want ErrNotFound", err)
	}
	if err := s.SaveJourney(ctx, "0,0", nil); err == nil {
		t.Error("SaveJourney accepted an empty journey")
	}

	if err := s.SaveJourney(ctx, "0,0", []string{"2,0", "4,0"}); err != nil {
		t.Fatalf("SaveJourney: %v", err)
	}
	if err := s.SaveJourney(ctx, "0,0", []string{"-2,0"}); err != nil {
		t.Fatalf("SaveJourney: %v", err)
	}
	if err := s.SaveJourney(ctx, "2,0", []string{"4,0", "6,0"}); err != nil {
		t.Fatalf("SaveJourney: %v", err)
	}

	tests := []struct {
		home string
		want []string
	}{
		{"0,0", []string{"-2,0"}},
		{"2,0", []string{"4,0", "6,0"}},
	}
	for _, tt := range tests {
		t.Run(tt.home, func(t *testing.T) {
			j, err := s.LoadJourney(ctx, tt.home)
			if err != nil {
				t.Fatalf("LoadJourney: %v", err)
			}
			if strings.Join(j.Legs, " ") != strings.Join(tt.want, " ") {
				t.Errorf("legs = %v, want %v", j.Legs, tt.want)
			}
			if j.HomeID != tt.home {
				t.Errorf("home = %q, want %q", j.HomeID, tt.home)
			}
		})
	}

	if _, err := s.Load(ctx, "0,0"); !errors.Is(err, ErrNotFound) {
		t.Errorf("journey save created a genome: err = %v", err)
	}
}

func TestSchemaUpgradeAddsJourneys(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "genomes.db")

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `DROP TABLE journeys`); err != nil {
		t.Fatalf("drop journeys: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE schema_version SET version = 1`); err != nil {
		t.Fatalf("downgrade: %v", err)
	}
	s.Close()

	s, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	var version int
	if err := s.db.QueryRowContext(ctx, `SELECT version FROM schema_version`).Scan(&version); err != nil {
		t.Fatalf("read version: %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("version = %d, want %d", version, SchemaVersion)
	}
	if err := s.SaveJourney(ctx, "0,0", []string{"2,0"}); err != nil {
		t.Errorf("SaveJourney after upgrade: %v", err)
	}
}
