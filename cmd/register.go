package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ocularid/eyemark/internal/attendance"
	"github.com/ocularid/eyemark/internal/config"
	"github.com/ocularid/eyemark/internal/extractor"
	"github.com/ocularid/eyemark/internal/imaging"
	"github.com/ocularid/eyemark/internal/store"
)

var registerCmd = &cobra.Command{
	Use:   "register <image>",
	Short: "Register a student from an eye photo",
	Long: `Register a student in the attendance registry.
The photo is sent to the embedding extractor and the resulting eye-region
embedding is stored under the given student id. Registering an existing id
replaces the previous record.`,
	Args: cobra.ExactArgs(1),
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().String("id", "", "Student id (required)")
	registerCmd.Flags().String("name", "", "Student name (required)")
	registerCmd.Flags().String("department", "", "Student department (required)")
	registerCmd.MarkFlagRequired("id")
	registerCmd.MarkFlagRequired("name")
	registerCmd.MarkFlagRequired("department")
}

// embedImageFile loads a photo from disk, normalizes it and extracts the
// eye-region embedding.
func embedImageFile(ctx context.Context, ex *extractor.Client, path string) ([]float32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	photo, err := imaging.Normalize(raw, imaging.MaxDimension)
	if err != nil {
		return nil, fmt.Errorf("%s is not a valid image: %w", path, err)
	}
	embedding, err := ex.Extract(ctx, photo)
	if err != nil {
		if errors.Is(err, extractor.ErrNoEyeRegion) {
			return nil, fmt.Errorf("no eye region detected in %s", path)
		}
		return nil, fmt.Errorf("extracting embedding: %w", err)
	}
	return embedding, nil
}

func runRegister(cmd *cobra.Command, args []string) error {
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

	id := mustGetString(cmd, "id")
	name := mustGetString(cmd, "name")
	registrar := attendance.NewRegistrar(st)
	err = registrar.Register(ctx, store.Student{
		ID:         id,
		Name:       name,
		Department: mustGetString(cmd, "department"),
		Embedding:  embedding,
	})
	if err != nil {
		return fmt.Errorf("registering student: %w", err)
	}

	fmt.Printf("Registered %s (%s) with a %d-dim embedding\n", name, id, len(embedding))
	return nil
}
