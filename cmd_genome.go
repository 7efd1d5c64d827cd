package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/galapagotchi/config"
	"github.com/pthm-cable/galapagotchi/sim"
	"github.com/pthm-cable/galapagotchi/store"
)

func newGenomeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genome",
		Short: "Inspect and seed stored genomes",
		Long: `Inspect and seed the genomes kept in the SQLite store.

Examples:
  galapagotchi genome show --store genomes.db
  galapagotchi genome history --store genomes.db --limit 5
  galapagotchi genome seed --store genomes.db --seed 42`,
	}

	cmd.PersistentFlags().String("store", "", "SQLite genome store (empty = use config)")
	cmd.PersistentFlags().String("home", "", "Home cell id (empty = use config)")
	cmd.PersistentFlags().Bool("json", false, "Output as JSON")

	cmd.AddCommand(
		newGenomeShowCmd(),
		newGenomeHistoryCmd(),
		newGenomeSeedCmd(),
	)
	return cmd
}

// openStore opens the store named by --store or the config.
func openStore(cmd *cobra.Command) (*store.GenomeStore, string, error) {
	cfg := config.Cfg()
	path, _ := cmd.Flags().GetString("store")
	if path == "" {
		path = cfg.Store.Path
	}
	if path == "" {
		return nil, "", errors.New("no genome store configured: pass --store or set store.path")
	}
	home, _ := cmd.Flags().GetString("home")
	if home == "" {
		home = cfg.Island.Home
	}
	s, err := store.Open(cmd.Context(), path)
	if err != nil {
		return nil, "", err
	}
	return s, home, nil
}

type recordJSON struct {
	Home       string    `json:"home"`
	Generation int       `json:"generation"`
	SavedAt    time.Time `json:"saved_at"`
	Bytes      int       `json:"bytes"`
	Data       string    `json:"data"`
}

func toJSON(r store.Record) recordJSON {
	return recordJSON{
		Home:       r.HomeID,
		Generation: r.Generation,
		SavedAt:    r.SavedAt,
		Bytes:      len(r.Data),
		Data:       hex.EncodeToString(r.Data),
	}
}

func printRecords(cmd *cobra.Command, records []store.Record) error {
	w := cmd.OutOrStdout()
	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		out := make([]recordJSON, len(records))
		for i, r := range records {
			out[i] = toJSON(r)
		}
		return json.NewEncoder(w).Encode(out)
	}
	for _, r := range records {
		if _, err := fmt.Fprintf(w, "%s  gen %-5d  %s  %d bytes\n  %s\n",
			r.SavedAt.Format(time.RFC3339), r.Generation, r.HomeID, len(r.Data), hex.EncodeToString(r.Data)); err != nil {
			return err
		}
	}
	return nil
}

func newGenomeShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current genome of a home",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, home, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			rec, err := s.Load(cmd.Context(), home)
			if err != nil {
				return err
			}
			return printRecords(cmd, []store.Record{rec})
		},
	}
}

func newGenomeHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved genomes of a home, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, home, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			records, err := s.History(cmd.Context(), home, limit)
			if err != nil {
				return err
			}
			return printRecords(cmd, records)
		},
	}
	cmd.Flags().Int("limit", 10, "Maximum records to list (0 = all)")
	return cmd
}

func newGenomeSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Store a random genome for a home",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, home, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			force, _ := cmd.Flags().GetBool("force")
			if !force {
				_, err := s.Load(cmd.Context(), home)
				if err == nil {
					return fmt.Errorf("home %s already has a genome; pass --force to replace it", home)
				}
				if !errors.Is(err, store.ErrNotFound) {
					return err
				}
			}

			seed, _ := cmd.Flags().GetInt64("seed")
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			genetics := sim.NewGenetics(rand.New(rand.NewSource(seed)))
			data := genetics.Random(config.Cfg().Body.StrandLength).Data()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			if err := s.Save(ctx, home, 0, data); err != nil {
				return err
			}
			rec, err := s.Load(ctx, home)
			if err != nil {
				return err
			}
			return printRecords(cmd, []store.Record{rec})
		},
	}
	cmd.Flags().Int64("seed", 0, "RNG seed (0 = time-based)")
	cmd.Flags().Bool("force", false, "Replace an existing genome")
	return cmd
}
