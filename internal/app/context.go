package app

import (
	"context"
	"fmt"

	"craftplan/internal/catalog"
	"craftplan/internal/config"
	"craftplan/internal/dataset"
	"craftplan/internal/repo"
)

// ResolveCatalog picks the active recipe catalog for a workspace. An
// explicit dataset override wins, then recipes imported into the workspace
// DB, then the config's default dataset path.
func ResolveCatalog(ctx context.Context, cfg *config.Config, datasetOverride string, r repo.Repo) (*catalog.Catalog, string, error) {
	if datasetOverride != "" {
		return catalogFromCSV(datasetOverride)
	}
	n, err := r.CountRecipes(ctx)
	if err != nil {
		return nil, "", err
	}
	if n > 0 {
		rules, err := r.ListRecipes(ctx)
		if err != nil {
			return nil, "", err
		}
		cat, err := catalog.New(rules)
		if err != nil {
			return nil, "", fmt.Errorf("workspace catalog: %w", err)
		}
		return cat, "workspace", nil
	}
	return catalogFromCSV(cfg.Dataset.Path)
}

func catalogFromCSV(path string) (*catalog.Catalog, string, error) {
	rules, err := dataset.Load(path)
	if err != nil {
		return nil, "", err
	}
	cat, err := catalog.New(rules)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return cat, path, nil
}
