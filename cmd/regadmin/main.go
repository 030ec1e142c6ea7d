// Command regadmin is the operations CLI for the registration database:
// spreadsheet imports, attendance reconciliation reports, sphere maintenance,
// event membership, and admin account bootstrap.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tnsecretariat/regadmin/internal/config"
	"github.com/tnsecretariat/regadmin/internal/db"
	"github.com/tnsecretariat/regadmin/internal/store"
)

var (
	cfg      config.Config
	flagDB   string
	flagYes  bool
	flagsImp struct {
		importDir string
	}
)

var rootCmd = &cobra.Command{
	Use:           "regadmin",
	Short:         "Administer the event registration database",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if flagDB != "" {
			cfg.DBPath = flagDB
		}
		if flagsImp.importDir != "" {
			cfg.ImportDir = flagsImp.importDir
		}
		return db.Init(cfg.DBPath)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (overrides DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&flagsImp.importDir, "import-dir", "", "directory searched for spreadsheet files (overrides IMPORT_DIR)")
	rootCmd.PersistentFlags().BoolVarP(&flagYes, "yes", "y", false, "answer yes to confirmation prompts")
}

func st() *store.Store { return store.New(db.Conn()) }

// confirm prompts on stdin unless --yes was given.
func confirm(msg string) bool {
	if flagYes {
		return true
	}
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", msg)
	sc := bufio.NewScanner(os.Stdin)
	if !sc.Scan() {
		return false
	}
	ans := strings.ToLower(strings.TrimSpace(sc.Text()))
	return ans == "y" || ans == "yes"
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
