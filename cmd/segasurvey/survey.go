package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/segasurvey/internal/generate"
	"github.com/TobiSchelling/segasurvey/internal/lyrics"
)

func newPool(gen *generate.Generator) *generate.Pool {
	return generate.NewPool(gen, cfg.Generation.QueueSize, log)
}

var generateCmd = &cobra.Command{
	Use:   "generate <session>",
	Short: "Generate AI lyrics for a session and wait for them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := newGenerator(db).GenerateSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if res.Skipped {
			fmt.Printf("Session %s already has a full set.\n", args[0])
			return nil
		}
		fmt.Printf("Generated %d lyrics for %s: %s\n", res.Created, res.SessionID, strings.Join(res.Genres, ", "))
		return nil
	},
}

var (
	mixAge         int
	mixFamiliarity int
	mixSentiment   string
	mixJSON        bool
)

var mixCmd = &cobra.Command{
	Use:   "mix <session>",
	Short: "Build a lyric mix for a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		prefs := lyrics.Preferences{
			Age:             mixAge,
			SegaFamiliarity: mixFamiliarity,
			AISentiment:     lyrics.ParseSentiment(mixSentiment),
		}
		res, err := newMixer(db).Mix(cmd.Context(), args[0], prefs)
		if err != nil {
			return err
		}

		if mixJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		mode := "mixed"
		if res.FallbackMode {
			mode = "human only"
		}
		fmt.Printf("Session %s: %d items (%d human, %d AI, %s)\n\n", res.SessionID, res.TotalCount, res.HumanCount, res.AICount, mode)
		for _, it := range res.Items {
			who := "human"
			if it.IsAI {
				who = "ai"
			}
			first, _, _ := strings.Cut(it.Text, "\n")
			fmt.Printf("  %2d. [%-11s] %-5s %s\n", it.DisplayIndex, it.Genre, who, first)
		}
		return nil
	},
}

func init() {
	mixCmd.Flags().IntVar(&mixAge, "age", 0, "Participant age")
	mixCmd.Flags().IntVar(&mixFamiliarity, "familiarity", 0, "Sega familiarity, 1-5")
	mixCmd.Flags().StringVar(&mixSentiment, "sentiment", "", "AI sentiment: hate, no, neutral, ok, pro or 1-5")
	mixCmd.Flags().BoolVar(&mixJSON, "json", false, "Print the full result as JSON")
}
