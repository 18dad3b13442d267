package db_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ConfabulousDev/teamdocs/internal/analytics"
	"github.com/ConfabulousDev/teamdocs/internal/testutil"
)

func TestActivityRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	env := testutil.SetupTestEnvironment(t)
	env.CleanDB(t)

	doc := testutil.CreateTestDocument(t, env, "team@example.com", "Plan", "")
	other := testutil.CreateTestDocument(t, env, "other@example.com", "Other", "")
	at := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

	testutil.CreateTestActivity(t, env, doc.ID, "alice", at, 12)
	testutil.CreateTestActivity(t, env, doc.ID, "bob", at.Add(time.Hour), 3)
	testutil.CreateTestActivity(t, env, other.ID, "zed", at, 99)

	events, err := env.DB.FetchEvents(env.Ctx, []string{doc.ID})
	if err != nil {
		t.Fatalf("FetchEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	total := 0
	for _, ev := range events {
		if ev.DocID != doc.ID || ev.Action != "update" || ev.ID == "" {
			t.Errorf("unexpected event: %+v", ev)
		}
		ts, ok := analytics.NormalizeTimestamp(ev.Timestamp)
		if !ok {
			t.Fatalf("timestamp should be present for %+v", ev)
		}
		if ts.UTC().Minute() != 30 || !ts.Equal(at) && !ts.Equal(at.Add(time.Hour)) {
			t.Errorf("unexpected timestamp %v", ts)
		}
		total += ev.WordsAdded
	}
	if total != 15 {
		t.Errorf("expected 15 words, got %d", total)
	}
}

func TestFetchEvents_NullColumns(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	env := testutil.SetupTestEnvironment(t)
	env.CleanDB(t)

	_, err := env.DB.Exec(env.Ctx, `
		INSERT INTO activity_logs (id, doc_id, user_email, action, occurred_at, words_added)
		VALUES (gen_random_uuid(), 'legacy-doc', NULL, 'update', NULL, NULL),
		       (gen_random_uuid(), 'legacy-doc', 'carol', 'update', NOW(), -4)
	`)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	events, err := env.DB.FetchEvents(env.Ctx, []string{"legacy-doc"})
	if err != nil {
		t.Fatalf("FetchEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	for _, ev := range events {
		if ev.WordsAdded != 0 {
			t.Errorf("expected words clamped to 0, got %d", ev.WordsAdded)
		}
		if ev.UserEmail == "" {
			if !ev.Timestamp.IsZero() {
				t.Error("NULL occurred_at should map to a missing timestamp")
			}
			if ev.User() != analytics.UnknownUser {
				t.Errorf("expected unknown user, got %q", ev.User())
			}
		}
	}
}

func TestDeleteEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	env := testutil.SetupTestEnvironment(t)
	env.CleanDB(t)

	doc := testutil.CreateTestDocument(t, env, "team@example.com", "Plan", "")
	other := testutil.CreateTestDocument(t, env, "other@example.com", "Other", "")
	now := time.Now()
	testutil.CreateTestActivity(t, env, doc.ID, "alice", now, 1)
	testutil.CreateTestActivity(t, env, doc.ID, "alice", now, 2)
	testutil.CreateTestActivity(t, env, other.ID, "zed", now, 3)

	n, err := env.DB.DeleteEvents(env.Ctx, nil)
	if err != nil || n != 0 {
		t.Fatalf("empty id list should be a no-op, got n=%d err=%v", n, err)
	}

	n, err = env.DB.DeleteEvents(env.Ctx, []string{doc.ID})
	if err != nil {
		t.Fatalf("DeleteEvents failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 deleted, got %d", n)
	}
	if c := testutil.CountRows(t, env, "activity_logs"); c != 1 {
		t.Errorf("expected 1 remaining row, got %d", c)
	}
}

func TestServiceComputeAgainstPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	env := testutil.SetupTestEnvironment(t)
	env.CleanDB(t)

	const team = "team@example.com"
	doc := testutil.CreateTestDocument(t, env, team, "Plan", "")
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	testutil.CreateTestActivity(t, env, doc.ID, "alice", at, 40)
	testutil.CreateTestActivity(t, env, doc.ID, "bob", at.Add(time.Hour), 10)

	svc := analytics.NewService(env.DB, env.DB)
	payload, err := svc.Compute(env.Ctx, team)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if len(payload.Contributors) != 2 || payload.Contributors[0].Username != "alice" {
		t.Errorf("unexpected contributors: %+v", payload.Contributors)
	}
	if payload.HourlyActivity["9"] != 1 || payload.HourlyActivity["10"] != 1 {
		t.Errorf("unexpected hourly activity: %v", payload.HourlyActivity)
	}

	deleted, err := svc.Reset(env.Ctx, team)
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", deleted)
	}
	if _, err := svc.Compute(env.Ctx, team); !errors.Is(err, analytics.ErrNoContent) {
		t.Errorf("expected ErrNoContent after reset, got %v", err)
	}
}

func TestDeleteOrphanedActivity(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	env := testutil.SetupTestEnvironment(t)
	env.CleanDB(t)

	live := testutil.CreateTestDocument(t, env, "team@example.com", "Live", "")
	now := time.Now()
	testutil.CreateTestActivity(t, env, live.ID, "alice", now, 1)
	for i := 0; i < 3; i++ {
		testutil.CreateTestActivity(t, env, "deleted-doc", "bob", now, 1)
	}

	n, err := env.DB.CountOrphanedActivity(env.Ctx)
	if err != nil {
		t.Fatalf("CountOrphanedActivity failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 orphaned rows, got %d", n)
	}

	n, err = env.DB.DeleteOrphanedActivity(env.Ctx, 2)
	if err != nil {
		t.Fatalf("DeleteOrphanedActivity failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected the limit to cap deletion at 2, got %d", n)
	}
	n, _ = env.DB.DeleteOrphanedActivity(env.Ctx, 10)
	if n != 1 {
		t.Errorf("expected 1 remaining orphan deleted, got %d", n)
	}
	if c := testutil.CountRows(t, env, "activity_logs"); c != 1 {
		t.Errorf("live document activity must survive, got %d rows", c)
	}
}
