package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/segasurvey/internal/lyrics"
)

var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Move generated lyrics in and out of the legacy flat format",
}

var poolOut string

var poolExportCmd = &cobra.Command{
	Use:   "export <session>",
	Short: "Print a session's generated lyrics as one flat YAML row",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		rows, err := db.SessionAILyrics(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("session %s has no generated lyrics", args[0])
		}

		data, err := yaml.Marshal(lyrics.FlattenAI(args[0], rows))
		if err != nil {
			return fmt.Errorf("encoding pool: %w", err)
		}
		if poolOut == "" {
			_, err = os.Stdout.Write(data)
			return err
		}
		return os.WriteFile(poolOut, data, 0o644)
	},
}

var poolSession string

var poolImportCmd = &cobra.Command{
	Use:   "import-legacy <file.yaml>",
	Short: "Import a flat per-genre row into a session's pool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		var flat map[string]string
		if err := yaml.Unmarshal(data, &flat); err != nil {
			return fmt.Errorf("parsing %s: %w", args[0], err)
		}

		sessionID := poolSession
		if sessionID == "" {
			sessionID = flat["session_id"]
		}
		if sessionID == "" {
			return fmt.Errorf("no session_id in %s; pass --session", args[0])
		}

		rows := lyrics.ExpandFlatAI(sessionID, flat)
		if len(rows) == 0 {
			return fmt.Errorf("no lyrics found in %s", args[0])
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.InsertAILyrics(cmd.Context(), rows)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d of %d lyrics into session %s\n", n, len(rows), sessionID)
		return nil
	},
}

func init() {
	poolExportCmd.Flags().StringVarP(&poolOut, "out", "o", "", "Write to file instead of stdout")
	poolImportCmd.Flags().StringVar(&poolSession, "session", "", "Session id (defaults to the file's session_id)")

	poolCmd.AddCommand(poolExportCmd)
	poolCmd.AddCommand(poolImportCmd)
}
