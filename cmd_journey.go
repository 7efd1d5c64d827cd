package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/galapagotchi/config"
	"github.com/pthm-cable/galapagotchi/sim"
	"github.com/pthm-cable/galapagotchi/store"
)

func newJourneyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journey",
		Short: "Inspect and set the journey of a home",
		Long: `Inspect and set the journey a home's population travels. A journey kept
in the store replaces island.journey from the config. Separate cells with a
negative x from flags with "--".

Examples:
  galapagotchi journey show --store genomes.db
  galapagotchi journey set --store genomes.db 2,0 4,0 3,-1
  galapagotchi journey set --store genomes.db -- -2,0 -4,0`,
	}

	cmd.PersistentFlags().String("store", "", "SQLite genome store (empty = use config)")
	cmd.PersistentFlags().String("home", "", "Home cell id (empty = use config)")
	cmd.PersistentFlags().Bool("json", false, "Output as JSON")

	cmd.AddCommand(
		newJourneyShowCmd(),
		newJourneySetCmd(),
	)
	return cmd
}

type journeyJSON struct {
	Home    string     `json:"home"`
	Source  string     `json:"source"`
	Legs    []string   `json:"legs"`
	SavedAt *time.Time `json:"saved_at,omitempty"`
}

func printJourney(cmd *cobra.Command, j journeyJSON) error {
	w := cmd.OutOrStdout()
	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		return json.NewEncoder(w).Encode(j)
	}
	saved := ""
	if j.SavedAt != nil {
		saved = "  " + j.SavedAt.Format(time.RFC3339)
	}
	_, err := fmt.Fprintf(w, "%s  %s%s\n  %s\n", j.Home, j.Source, saved, strings.Join(j.Legs, " -> "))
	return err
}

func newJourneyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the journey a run would travel",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, home, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			j, err := s.LoadJourney(cmd.Context(), home)
			switch {
			case err == nil:
				return printJourney(cmd, journeyJSON{Home: home, Source: "store", Legs: j.Legs, SavedAt: &j.SavedAt})
			case errors.Is(err, store.ErrNotFound):
				return printJourney(cmd, journeyJSON{Home: home, Source: "config", Legs: config.Cfg().Island.Journey})
			default:
				return err
			}
		},
	}
}

func newJourneySetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <cell>...",
		Short: "Store the journey of a home",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for i, id := range args {
				if _, err := sim.ParseCoords(id); err != nil {
					return fmt.Errorf("leg %d: %w", i, err)
				}
			}

			s, home, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.SaveJourney(cmd.Context(), home, args); err != nil {
				return err
			}
			j, err := s.LoadJourney(cmd.Context(), home)
			if err != nil {
				return err
			}
			return printJourney(cmd, journeyJSON{Home: home, Source: "store", Legs: j.Legs, SavedAt: &j.SavedAt})
		},
	}
}
