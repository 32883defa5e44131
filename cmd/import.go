package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ocularid/eyemark/internal/attendance"
	"github.com/ocularid/eyemark/internal/config"
	"github.com/ocularid/eyemark/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import <directory>",
	Short: "Bulk register students from a directory of photos",
	Long: `Bulk register students from a directory of eye photos.
Each file is registered under its base name: "s-42.jpg" becomes student
id "s-42", and "s-42__Ada Novak.jpg" sets the name as well. Files whose
photo yields no eye region are reported and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().String("department", "", "Department assigned to all imported students (required)")
	importCmd.MarkFlagRequired("department")
}

// parseImportFilename splits a photo filename into student id and name.
// The separator "__" is unlikely in real ids; without it the id doubles
// as the name.
func parseImportFilename(filename string) (id, name string) {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	if id, name, ok := strings.Cut(stem, "__"); ok {
		return id, name
	}
	return stem, stem
}

func isImageFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp":
		return true
	}
	return false
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	dir := args[0]
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading directory: %w", err)
	}

	var photos []string
	for _, entry := range entries {
		if !entry.IsDir() && isImageFile(entry.Name()) {
			photos = append(photos, entry.Name())
		}
	}
	if len(photos) == 0 {
		return fmt.Errorf("no image files found in %s", dir)
	}

	ex := newExtractor(cfg)
	registrar := attendance.NewRegistrar(st)
	department := mustGetString(cmd, "department")
	ctx := cmd.Context()

	bar := progressbar.NewOptions(len(photos),
		progressbar.OptionSetDescription("Registering students"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
	)

	var failed []string
	for _, filename := range photos {
		id, name := parseImportFilename(filename)

		embedding, err := embedImageFile(ctx, ex, filepath.Join(dir, filename))
		if err == nil {
			err = registrar.Register(ctx, store.Student{
				ID:         id,
				Name:       name,
				Department: department,
				Embedding:  embedding,
			})
		}
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", filename, err))
		}
		bar.Add(1)
	}

	fmt.Printf("Imported %d of %d students\n", len(photos)-len(failed), len(photos))
	for _, f := range failed {
		fmt.Printf("  skipped %s\n", f)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d photo(s) could not be registered", len(failed))
	}
	return nil
}
