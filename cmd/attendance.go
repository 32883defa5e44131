package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ocularid/eyemark/internal/config"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Show the attendance ledger",
	Long:  `Show attendance records, newest first. Use --student to filter by id.`,
	RunE:  runAttendance,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)

	attendanceCmd.Flags().String("student", "", "Only show records for this student id")
}

func runAttendance(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ListAttendance(cmd.Context(), mustGetString(cmd, "student"))
	if err != nil {
		return fmt.Errorf("listing attendance: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No attendance records found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTUDENT\tTIMESTAMP")
	for _, r := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\n", r.ID, r.StudentID, r.Timestamp)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d record(s)\n", len(records))
	return nil
}
