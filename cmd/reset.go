package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	resetTables bool
	resetFiles  bool
	resetYes    bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear stored sessions and local episode logs",
	Long: `Clears all history. By default both the database tables and the data dir
logs are cleared; use --tables or --files to pick one. The database is the
one configured by --db, XWAKE_DATABASE_URL or the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tables, files, err := resetTargets(cfg.Database.URL)
		if err != nil {
			return err
		}
		if requested := resetTables || !resetFiles; requested && !tables {
			fmt.Fprintln(os.Stderr, "No database configured; skipping session tables.")
		}
		reader := bufio.NewReader(os.Stdin)

		if tables {
			if confirm(reader, "Drop all xwake session tables?") {
				db, err := openStore(cmd.Context())
				if err != nil {
					return err
				}
				err = db.Reset(cmd.Context())
				db.Close(context.Background())
				if err != nil {
					return fmt.Errorf("reset database: %w", err)
				}
				fmt.Println("Database cleared.")
			}
		}

		if files {
			if confirm(reader, fmt.Sprintf("Delete episode and summary logs in %s?", cfg.DataDir)) {
				for _, name := range []string{"episodes.jsonl", "current.jsonl", "current.jsonl.old"} {
					removeFile(filepath.Join(cfg.DataDir, name))
				}
				fmt.Println("Local logs cleared.")
			}
		}
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetTables, "tables", false, "Clear the session database tables")
	resetCmd.Flags().BoolVar(&resetFiles, "files", false, "Clear episode and summary logs in the data dir")
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(resetCmd)
}

// resetTargets decides what reset clears. With neither flag set both are
// cleared. Asking only for the tables without a database is an error.
func resetTargets(dbURL string) (tables, files bool, err error) {
	tables, files = resetTables, resetFiles
	if !tables && !files {
		tables, files = true, true
	}
	if tables && dbURL == "" {
		if !files {
			return false, false, fmt.Errorf("--tables needs a database: set --db or XWAKE_DATABASE_URL")
		}
		tables = false
	}
	return tables, files, nil
}

func confirm(r *bufio.Reader, prompt string) bool {
	if resetYes {
		return true
	}
	fmt.Printf("%s [y/N]: ", prompt)
	res, _ := r.ReadString('\n')
	res = strings.TrimSpace(strings.ToLower(res))
	return res == "y" || res == "yes"
}

func removeFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to remove %s: %v\n", path, err)
	}
}
