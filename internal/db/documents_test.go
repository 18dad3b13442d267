package db_test

import (
	"errors"
	"sort"
	"testing"

	"github.com/google/uuid"

	"github.com/ConfabulousDev/teamdocs/internal/db"
	"github.com/ConfabulousDev/teamdocs/internal/testutil"
)

func TestDocumentLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	env := testutil.SetupTestEnvironment(t)
	env.CleanDB(t)
	const owner = "team@example.com"

	doc := testutil.CreateTestDocument(t, env, owner, "Plan", "")
	id := uuid.MustParse(doc.ID)

	got, err := env.DB.GetDocument(env.Ctx, owner, id)
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if got.Title != "Plan" || got.Content != "" || got.OwnerEmail != owner {
		t.Errorf("unexpected document: %+v", got)
	}

	prev, err := env.DB.UpdateDocumentContent(env.Ctx, owner, id, "first draft")
	if err != nil {
		t.Fatalf("UpdateDocumentContent failed: %v", err)
	}
	if prev != "" {
		t.Errorf("expected empty previous content, got %q", prev)
	}
	prev, err = env.DB.UpdateDocumentContent(env.Ctx, owner, id, "second draft")
	if err != nil {
		t.Fatalf("UpdateDocumentContent failed: %v", err)
	}
	if prev != "first draft" {
		t.Errorf("expected previous content %q, got %q", "first draft", prev)
	}

	if err := env.DB.DeleteDocument(env.Ctx, owner, id); err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}
	if _, err := env.DB.GetDocument(env.Ctx, owner, id); !errors.Is(err, db.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := env.DB.DeleteDocument(env.Ctx, owner, id); !errors.Is(err, db.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound on second delete, got %v", err)
	}
}

func TestDocumentOwnership(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	env := testutil.SetupTestEnvironment(t)
	env.CleanDB(t)

	mine := testutil.CreateTestDocument(t, env, "team@example.com", "Mine", "")
	testutil.CreateTestDocument(t, env, "team@example.com", "Also mine", "")
	theirs := testutil.CreateTestDocument(t, env, "other@example.com", "Theirs", "")
	theirsID := uuid.MustParse(theirs.ID)

	if _, err := env.DB.GetDocument(env.Ctx, "team@example.com", theirsID); !errors.Is(err, db.ErrDocumentNotFound) {
		t.Errorf("another team's document must look missing, got %v", err)
	}
	if _, err := env.DB.UpdateDocumentContent(env.Ctx, "team@example.com", theirsID, "x"); !errors.Is(err, db.ErrDocumentNotFound) {
		t.Errorf("another team's document must not be writable, got %v", err)
	}
	if err := env.DB.DeleteDocument(env.Ctx, "team@example.com", theirsID); !errors.Is(err, db.ErrDocumentNotFound) {
		t.Errorf("another team's document must not be deletable, got %v", err)
	}

	docs, err := env.DB.ListDocuments(env.Ctx, "team@example.com")
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}

	ids, err := env.DB.ListOwnedDocumentIDs(env.Ctx, "team@example.com")
	if err != nil {
		t.Fatalf("ListOwnedDocumentIDs failed: %v", err)
	}
	sort.Strings(ids)
	found := false
	for _, id := range ids {
		if id == theirs.ID {
			t.Error("owned ids must not include another team's document")
		}
		if id == mine.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %s among %v", mine.ID, ids)
	}

	n, err := env.DB.DeleteTeamDocuments(env.Ctx, "team@example.com")
	if err != nil {
		t.Fatalf("DeleteTeamDocuments failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 deleted, got %d", n)
	}
	if c := testutil.CountRows(t, env, "documents"); c != 1 {
		t.Errorf("expected the other team's document to remain, got %d rows", c)
	}
}

func TestListDocuments_Empty(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	env := testutil.SetupTestEnvironment(t)
	env.CleanDB(t)

	docs, err := env.DB.ListDocuments(env.Ctx, "nobody@example.com")
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if docs == nil || len(docs) != 0 {
		t.Errorf("expected an empty non-nil slice, got %#v", docs)
	}
}
