package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ocularid/eyemark/internal/attendance"
	"github.com/ocularid/eyemark/internal/config"
)

var markCmd = &cobra.Command{
	Use:   "mark <image>",
	Short: "Mark attendance from an eye photo",
	Long: `Mark attendance by matching a photo against the enrolled registry.
The nearest student within the acceptance threshold gets a new ledger
record; otherwise no record is written.`,
	Args: cobra.ExactArgs(1),
	RunE: runMark,
}

func init() {
	rootCmd.AddCommand(markCmd)
}

func runMark(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	embedding, err := embedImageFile(ctx, newExtractor(cfg), args[0])
	if err != nil {
		return err
	}

	outcome, err := newMarker(cfg, st).Mark(ctx, embedding)
	if err != nil {
		return fmt.Errorf("marking attendance: %w", err)
	}

	switch outcome.Kind {
	case attendance.OutcomeMarked:
		fmt.Printf("Attendance marked for %s (%s), distance %.4f\n",
			outcome.Name, outcome.StudentID, outcome.Distance)
	case attendance.OutcomeNoStudents:
		fmt.Println("No students registered yet")
	default:
		fmt.Println("No matching student found")
	}
	return nil
}
