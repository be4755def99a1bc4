package main

import (
	"context"
	"testing"

	"github.com/gin-gonic/gin"

	"salesdesk/backend/internal/config"
	"salesdesk/backend/internal/store/memory"
)

func TestOpenRepositoryDefaultsToMemory(t *testing.T) {
	repo, closeFn, err := openRepository(context.Background(), config.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if closeFn != nil {
		t.Fatal("in-memory repository should not register a closer")
	}
	if _, ok := repo.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", repo)
	}

	items, err := repo.ListItems(context.Background(), false)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty store without seeding, got %d items", len(items))
	}
}

func TestOpenRepositorySeedsDemoData(t *testing.T) {
	repo, _, err := openRepository(context.Background(), config.Config{SeedDemoData: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items, err := repo.ListItems(context.Background(), false)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) == 0 {
		t.Fatal("expected seeded demo items")
	}
}

func TestGinModeFallsBackToRelease(t *testing.T) {
	if got := ginMode("debug"); got != gin.DebugMode {
		t.Fatalf("expected debug, got %q", got)
	}
	if got := ginMode("verbose"); got != gin.ReleaseMode {
		t.Fatalf("expected release fallback, got %q", got)
	}
}
