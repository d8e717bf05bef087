// Package dbpathcmder provides the dbpath command for printing the resolved
// SQLite database path.
package dbpathcmder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/glancelabs/glance/pkg/dotdir"
)

const dbFileName = "glance.db"

const dbpathLongDesc string = `Print the resolved path to the glance SQLite database.

Resolution order:
  1. --sqlite flag (or storage.sqlite_path config value)
  2. GLANCE_SQLITE or GLANCE_STORAGE_SQLITE_PATH environment variable
  3. glance.db inside the resolved .glance/ directory

Examples:
  glance dbpath
  glance dbpath --must-exist
  sqlite3 "$(glance dbpath)"`

const dbpathShortDesc string = "Print the resolved SQLite database path"

// Resolve returns the SQLite path glance commands should open. An explicit
// override wins, then the environment, then glance.db in the dot directory.
func Resolve(override, glanceDir string) (string, error) {
	if strings.TrimSpace(override) != "" {
		return override, nil
	}

	if envPath := strings.TrimSpace(os.Getenv("GLANCE_SQLITE")); envPath != "" {
		return envPath, nil
	}
	if envPath := strings.TrimSpace(os.Getenv("GLANCE_STORAGE_SQLITE_PATH")); envPath != "" {
		return envPath, nil
	}

	ddm := dotdir.NewManager()
	target, err := ddm.Target(glanceDir)
	if err != nil {
		return "", err
	}

	return filepath.Join(target, dbFileName), nil
}

func NewDBPathCmd() *cobra.Command {
	var sqlitePath string
	var mustExist bool

	cmd := &cobra.Command{
		Use:   "dbpath",
		Short: dbpathShortDesc,
		Long:  dbpathLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			glanceDir, _ := cmd.Flags().GetString("glance-dir")

			path, err := Resolve(sqlitePath, glanceDir)
			if err != nil {
				return err
			}

			if mustExist {
				if _, err := os.Stat(path); err != nil {
					return fmt.Errorf("no database at %s; run glance init first", path)
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&sqlitePath, "sqlite", "s", "", "Path to SQLite database")
	cmd.Flags().BoolVar(&mustExist, "must-exist", false, "Fail if the database file does not exist")

	return cmd
}
