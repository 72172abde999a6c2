package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/openshelf/circulation-go/catalog"
	"github.com/openshelf/circulation-go/config"
	"github.com/openshelf/circulation-go/core"
)

const seedActorID = "seed"

func newSeedCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create sample libraries and books in the configured store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd.Context(), debug)
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	return cmd
}

func runSeed(ctx context.Context, debug bool) error {
	logger := newLogger(debug)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store, cleanup, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	catalogManager, err := catalog.NewManager(store)
	if err != nil {
		return err
	}

	seeds := []struct {
		library core.LibraryFields
		books   []core.BookFields
	}{
		{
			library: core.LibraryFields{Name: "Central Library", Location: "Main Street 1"},
			books: []core.BookFields{
				{Title: "The Count of Monte Cristo", Author: "Alexandre Dumas"},
				{Title: "Walden", Author: "Henry David Thoreau"},
				{Title: "The Art of War", Author: "Sun Tzu", Edition: "Annotated"},
			},
		},
		{
			library: core.LibraryFields{Name: "Harbor Branch", Location: "Pier 4"},
			books: []core.BookFields{
				{Title: "Moby-Dick", Author: "Herman Melville"},
				{Title: "Twenty Thousand Leagues Under the Seas", Author: "Jules Verne"},
			},
		},
	}

	for _, seed := range seeds {
		library, err := catalogManager.CreateLibrary(ctx, seedActorID, seed.library)
		if err != nil {
			return err
		}

		logger.Info("library created", "id", library.ID, "name", library.Name)

		for _, fields := range seed.books {
			book, err := catalogManager.CreateBook(ctx, seedActorID, library.ID, fields)
			if err != nil {
				return err
			}

			logger.Info("book created", "id", book.ID, "title", book.Title)
		}
	}

	return nil
}
