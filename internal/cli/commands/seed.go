package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridplan-labs/gridplan/internal/cli/output"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load course and room data from CSV files",
		Long: `Load courses.csv and rooms.csv from the seeds directory into the
database, replacing any previously loaded data.

Missing files are skipped; the database then keeps its current contents
for that table.`,
		Example: `  # Load seeds from the default directory
  gridplan seed

  # Load seeds from a specific directory
  gridplan seed --seeds-dir ./data/seeds

  # Machine-readable result
  gridplan seed --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeedCmd(cmd)
		},
	}

	return cmd
}

type seedResult struct {
	SeedsDir string `json:"seeds_dir"`
	Courses  int    `json:"courses"`
	Rooms    int    `json:"rooms"`
}

func runSeedCmd(cmd *cobra.Command) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()

	if err := newSeedLoader(cc).Load(ctx); err != nil {
		return err
	}

	courses, err := cc.Store.ListCourses(ctx)
	if err != nil {
		return err
	}
	rooms, err := cc.Store.ListRooms(ctx)
	if err != nil {
		return err
	}

	result := seedResult{SeedsDir: cc.Cfg.SeedsDir, Courses: len(courses), Rooms: len(rooms)}

	if cc.Renderer.EffectiveMode() == output.ModeJSON {
		return cc.Renderer.JSON(result)
	}

	cc.Renderer.Header("Seeds")
	cc.Renderer.Success(fmt.Sprintf("Loaded %d courses and %d rooms", result.Courses, result.Rooms))
	cc.Renderer.Muted("Source: " + result.SeedsDir)
	return nil
}
