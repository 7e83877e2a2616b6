package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	pollservice "altvote/contexts/polling/poll-service"
)

func TestSeedCategoriesIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte("categories:\n  - Food\n  - Sports\n  - \"  food \"\n"), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	file, err := LoadSeedFile(path)
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}
	if len(file.Categories) != 3 {
		t.Fatalf("expected 3 raw names, got %#v", file.Categories)
	}

	module := pollservice.NewInMemoryModule(nil, nil)
	ctx := context.Background()
	created, err := seedCategories(ctx, module.Categories, file)
	if err != nil || created != 2 {
		t.Fatalf("expected 2 categories created, got %d (%v)", created, err)
	}
	created, err = seedCategories(ctx, module.Categories, file)
	if err != nil || created != 0 {
		t.Fatalf("expected rerun to create nothing, got %d (%v)", created, err)
	}
}

func TestLoadSeedFileRejectsMissingFile(t *testing.T) {
	if _, err := LoadSeedFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected missing seed file to fail")
	}
}

func TestShippedSeedFileParses(t *testing.T) {
	file, err := LoadSeedFile(filepath.Join("..", "..", "..", "seed", "categories.yaml"))
	if err != nil {
		t.Fatalf("load shipped seed: %v", err)
	}
	if len(file.Categories) == 0 {
		t.Fatal("expected shipped seed to list categories")
	}
}
