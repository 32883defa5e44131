package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ocularid/eyemark/internal/config"
	"github.com/ocularid/eyemark/internal/store"
)

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "List registered students",
	RunE:  runStudents,
}

func init() {
	rootCmd.AddCommand(studentsCmd)

	studentsCmd.Flags().String("query", "", "Filter by name, ignoring case and diacritics")
}

func runStudents(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	students, err := st.ListAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing students: %w", err)
	}
	students = store.FilterByName(students, mustGetString(cmd, "query"))

	if len(students) == 0 {
		fmt.Println("No students found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDEPARTMENT\tDIM")
	for _, s := range students {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", s.ID, s.Name, s.Department, len(s.Embedding))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d student(s)\n", len(students))
	return nil
}
