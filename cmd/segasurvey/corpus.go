package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/segasurvey/internal/collect"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Manage the human lyric corpus",
}

var corpusImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import human lyrics from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := collect.LoadCorpusFile(args[0])
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		r, err := collect.Import(cmd.Context(), db, f, log)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d lyrics (%d duplicates, %d invalid).\n", r.Imported, r.Duplicates, r.Invalid)
		return nil
	},
}

var corpusCollectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Harvest lyrics from the configured feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(cfg.Corpus.Feeds) == 0 {
			fmt.Println("No feeds configured. Add some under corpus.feeds in your config.")
			return nil
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Println("Collecting lyrics from feeds...")
		result, err := collect.NewCollector(cfg, db, log).Collect(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Println("\nCollection complete:")
		fmt.Printf("  Total found: %d\n", result.TotalFound)
		fmt.Printf("  New lyrics: %d\n", result.NewLyrics)
		fmt.Printf("  Completed from page: %d\n", result.Fetched)
		fmt.Printf("  Duplicates skipped: %d\n", result.Duplicates)
		fmt.Printf("  Too short: %d\n", result.TooShort)

		if len(result.Sources) > 0 {
			fmt.Println("\nLyrics by source:")
			type kv struct {
				key string
				val int
			}
			var sorted []kv
			for k, v := range result.Sources {
				sorted = append(sorted, kv{k, v})
			}
			sort.Slice(sorted, func(i, j int) bool { return sorted[i].val > sorted[j].val })
			for _, s := range sorted {
				fmt.Printf("  %s: %d\n", s.key, s.val)
			}
		}
		return nil
	},
}

var corpusGenre string

var corpusListCmd = &cobra.Command{
	Use:   "list",
	Short: "List corpus lyrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		rows, err := db.HumanLyrics(cmd.Context())
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("Corpus is empty. Add lyrics with: segasurvey corpus import")
			return nil
		}

		shown := 0
		for _, h := range rows {
			if corpusGenre != "" && !strings.EqualFold(h.Genre, corpusGenre) {
				continue
			}
			first, _, _ := strings.Cut(h.Text, "\n")
			if len(first) > 60 {
				first = first[:60] + "..."
			}
			fmt.Printf("  [%d] %-11s %s\n", h.ID, h.Genre, first)
			shown++
		}
		fmt.Printf("\n%d of %d lyrics\n", shown, len(rows))
		return nil
	},
}

var corpusExportCmd = &cobra.Command{
	Use:   "export <file.yaml>",
	Short: "Write the corpus to a YAML file in import format",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		rows, err := db.HumanLyrics(cmd.Context())
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(collect.ExportCorpus(rows))
		if err != nil {
			return fmt.Errorf("encoding corpus: %w", err)
		}
		if err := os.WriteFile(args[0], data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", args[0], err)
		}
		fmt.Printf("Exported %d lyrics to %s\n", len(rows), args[0])
		return nil
	},
}

func init() {
	corpusListCmd.Flags().StringVarP(&corpusGenre, "genre", "g", "", "Only list this genre")

	corpusCmd.AddCommand(corpusImportCmd)
	corpusCmd.AddCommand(corpusCollectCmd)
	corpusCmd.AddCommand(corpusListCmd)
	corpusCmd.AddCommand(corpusExportCmd)
}
