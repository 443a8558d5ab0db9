package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/pable/pgaweekly/internal/model"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Manage the player registry",
}

var registryImportCmd = &cobra.Command{
	Use:   "import <players.csv>",
	Short: "Import registry players from a CSV of id,name rows",
	Long: `Upserts players into the registry. Each row holds a player id and the
display name used for matching. A header row starting with "id" is skipped.
Re-importing an id replaces its name.`,
	Args: cobra.ExactArgs(1),
	RunE: runRegistryImport,
}

func init() {
	registryCmd.AddCommand(registryImportCmd)
}

func runRegistryImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return errors.Wrap(err, "open players file")
	}
	defer f.Close()

	players, err := readRegistryCSV(f)
	if err != nil {
		return errors.Wrapf(err, "read %s", args[0])
	}
	if len(players) == 0 {
		return errors.WithHint(errors.Newf("%s has no players", args[0]), "expected rows of id,name")
	}

	db, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.ImportPlayers(cmd.Context(), players)
	if err != nil {
		return errors.Wrap(err, "import players")
	}
	fmt.Fprintf(os.Stdout, "Imported %d players into the registry.\n", n)
	return nil
}

func readRegistryCSV(r io.Reader) ([]model.Player, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []model.Player
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if line == 1 && len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "id") {
			continue
		}
		if len(rec) < 2 {
			fmt.Fprintf(os.Stderr, "[skip] line %d: expected id,name\n", line)
			continue
		}
		id, name := strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1])
		if id == "" || name == "" {
			fmt.Fprintf(os.Stderr, "[skip] line %d: empty id or name\n", line)
			continue
		}
		out = append(out, model.Player{ID: id, Name: name})
	}
}
