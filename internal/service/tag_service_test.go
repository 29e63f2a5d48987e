package service

import (
	"context"
	"errors"
	"testing"

	"github.com/folio/internal/auth"
	"github.com/folio/internal/db"
)

func TestTagService_CreateAndUniqueness(t *testing.T) {
	gdb := setupTestDB(t)
	svc := NewTagService(gdb)
	ctx := context.Background()

	tag, err := svc.Create(ctx, "  Machine Learning ", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tag.Name != "Machine Learning" || tag.Slug != "machine-learning" {
		t.Fatalf("unexpected tag %+v", tag)
	}

	if _, err := svc.Create(ctx, "Machine Learning", "ml"); !errors.Is(err, ErrTagExists) {
		t.Fatalf("expected ErrTagExists for duplicate name, got %v", err)
	}
	if _, err := svc.Create(ctx, "ML", "machine-learning"); !errors.Is(err, ErrTagExists) {
		t.Fatalf("expected ErrTagExists for duplicate slug, got %v", err)
	}
	if _, err := svc.Create(ctx, "  ", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for blank name, got %v", err)
	}
}

func TestTagService_DeleteGuardsUsage(t *testing.T) {
	gdb := setupTestDB(t)
	svc := NewTagService(gdb)
	ctx := context.Background()

	author := createUser(t, gdb, "writer", auth.RoleAuthor)
	used := createTag(t, gdb, "Go", "go")
	unused := createTag(t, gdb, "Rust", "rust")
	createPost(t, gdb, postSeed{Slug: "draft", AuthorID: author.ID, Status: db.PostStatusDraft, Tags: []db.Tag{used}})

	if err := svc.Delete(ctx, used.ID); !errors.Is(err, ErrTagInUse) {
		t.Fatalf("expected ErrTagInUse even for draft usage, got %v", err)
	}
	if err := svc.Delete(ctx, unused.ID); err != nil {
		t.Fatalf("delete unused: %v", err)
	}
	if err := svc.Delete(ctx, unused.ID); !errors.Is(err, ErrTagNotFound) {
		t.Fatalf("expected ErrTagNotFound, got %v", err)
	}
}

func TestTagService_ListCounts(t *testing.T) {
	gdb := setupTestDB(t)
	svc := NewTagService(gdb)
	ctx := context.Background()

	author := createUser(t, gdb, "writer", auth.RoleAuthor)
	golang := createTag(t, gdb, "Go", "go")
	createTag(t, gdb, "Zig", "zig")
	createPost(t, gdb, postSeed{Slug: "live", AuthorID: author.ID, Tags: []db.Tag{golang}})
	createPost(t, gdb, postSeed{Slug: "draft", AuthorID: author.ID, Status: db.PostStatusDraft, Tags: []db.Tag{golang}})

	public, err := svc.List(ctx, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(public) != 2 || public[0].Name != "Go" || public[0].PostCount != 1 || public[1].PostCount != 0 {
		t.Fatalf("unexpected public counts %+v", public)
	}

	all, err := svc.List(ctx, false)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if all[0].PostCount != 2 {
		t.Fatalf("expected admin count to include drafts, got %d", all[0].PostCount)
	}
}

func TestTagService_Update(t *testing.T) {
	gdb := setupTestDB(t)
	svc := NewTagService(gdb)
	ctx := context.Background()

	first := createTag(t, gdb, "Go", "go")
	createTag(t, gdb, "Rust", "rust")

	if _, err := svc.Update(ctx, first.ID, "Rust", ""); !errors.Is(err, ErrTagExists) {
		t.Fatalf("expected ErrTagExists, got %v", err)
	}
	updated, err := svc.Update(ctx, first.ID, "Golang", "golang")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Slug != "golang" {
		t.Fatalf("unexpected slug %q", updated.Slug)
	}
	if _, err := svc.Update(ctx, 9999, "x", ""); !errors.Is(err, ErrTagNotFound) {
		t.Fatalf("expected ErrTagNotFound, got %v", err)
	}
}
