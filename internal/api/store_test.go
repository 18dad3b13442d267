package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/ConfabulousDev/teamdocs/internal/analytics"
	"github.com/ConfabulousDev/teamdocs/internal/auth"
	"github.com/ConfabulousDev/teamdocs/internal/db"
	"github.com/ConfabulousDev/teamdocs/internal/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// memStore is an in-memory Store for handler tests.
type memStore struct {
	mu      sync.Mutex
	clock   quartz.Clock
	teams   map[string]*models.Team
	docs    map[string]*models.Document
	events  []analytics.ActivityEvent
	failOps map[string]error
	nextID  int64
}

var _ Store = (*memStore)(nil)

func newMemStore(clock quartz.Clock) *memStore {
	return &memStore{
		clock:   clock,
		teams:   make(map[string]*models.Team),
		docs:    make(map[string]*models.Document),
		failOps: make(map[string]error),
	}
}

// failOn makes the named operation return err.
func (m *memStore) failOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOps[op] = err
}

func (m *memStore) fail(op string) error {
	return m.failOps[op]
}

func (m *memStore) CreateTeam(_ context.Context, email, passwordHash string, usernames []string) (*models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateTeam"); err != nil {
		return nil, err
	}
	if _, ok := m.teams[email]; ok {
		return nil, db.ErrTeamExists
	}
	m.nextID++
	now := m.clock.Now()
	team := &models.Team{ID: m.nextID, Email: email, PasswordHash: passwordHash,
		Usernames: append([]string(nil), usernames...), CreatedAt: now, UpdatedAt: now}
	m.teams[email] = team
	cp := *team
	return &cp, nil
}

func (m *memStore) GetTeamByEmail(_ context.Context, email string) (*models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetTeamByEmail"); err != nil {
		return nil, err
	}
	team, ok := m.teams[email]
	if !ok {
		return nil, db.ErrTeamNotFound
	}
	cp := *team
	cp.Usernames = append([]string(nil), team.Usernames...)
	return &cp, nil
}

func (m *memStore) UpdateTeamPassword(_ context.Context, email, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	team, ok := m.teams[email]
	if !ok {
		return db.ErrTeamNotFound
	}
	team.PasswordHash = passwordHash
	return nil
}

func (m *memStore) AddTeamMember(_ context.Context, email, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	team, ok := m.teams[email]
	if !ok {
		return db.ErrTeamNotFound
	}
	if team.HasMember(username) {
		return db.ErrMemberExists
	}
	team.Usernames = append(team.Usernames, username)
	return nil
}

func (m *memStore) RemoveTeamMember(_ context.Context, email, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	team, ok := m.teams[email]
	if !ok {
		return db.ErrTeamNotFound
	}
	if !team.HasMember(username) {
		return db.ErrMemberNotFound
	}
	if len(team.Usernames) <= 1 {
		return db.ErrLastMember
	}
	kept := team.Usernames[:0:0]
	for _, u := range team.Usernames {
		if u != username {
			kept = append(kept, u)
		}
	}
	team.Usernames = kept
	return nil
}

func (m *memStore) DeleteTeam(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.teams, email)
	return nil
}

func (m *memStore) ListTeams(_ context.Context) ([]models.TeamSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListTeams"); err != nil {
		return nil, err
	}
	out := []models.TeamSummary{}
	for _, t := range m.teams {
		s := models.TeamSummary{Email: t.Email, Members: append([]string{}, t.Usernames...), CreatedAt: t.CreatedAt}
		for _, d := range m.docs {
			if d.OwnerEmail == t.Email {
				s.Documents++
			}
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *memStore) CreateDocument(_ context.Context, ownerEmail, title, content string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateDocument"); err != nil {
		return nil, err
	}
	now := m.clock.Now()
	doc := &models.Document{ID: uuid.NewString(), Title: title, Content: content,
		OwnerEmail: ownerEmail, CreatedAt: now, UpdatedAt: now}
	m.docs[doc.ID] = doc
	cp := *doc
	return &cp, nil
}

func (m *memStore) ListDocuments(_ context.Context, ownerEmail string) ([]models.DocumentSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListDocuments"); err != nil {
		return nil, err
	}
	var out []models.DocumentSummary
	for _, d := range m.docs {
		if d.OwnerEmail == ownerEmail {
			out = append(out, models.DocumentSummary{ID: d.ID, Title: d.Title, UpdatedAt: d.UpdatedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *memStore) owned(ownerEmail string, docID uuid.UUID) (*models.Document, error) {
	d, ok := m.docs[docID.String()]
	if !ok || d.OwnerEmail != ownerEmail {
		return nil, db.ErrDocumentNotFound
	}
	return d, nil
}

func (m *memStore) GetDocument(_ context.Context, ownerEmail string, docID uuid.UUID) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.owned(ownerEmail, docID)
	if err != nil {
		return nil, err
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) UpdateDocumentContent(_ context.Context, ownerEmail string, docID uuid.UUID, content string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.owned(ownerEmail, docID)
	if err != nil {
		return "", err
	}
	previous := d.Content
	d.Content = content
	d.UpdatedAt = m.clock.Now()
	return previous, nil
}

func (m *memStore) DeleteDocument(_ context.Context, ownerEmail string, docID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.owned(ownerEmail, docID); err != nil {
		return err
	}
	delete(m.docs, docID.String())
	return nil
}

func (m *memStore) DeleteTeamDocuments(_ context.Context, ownerEmail string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, d := range m.docs {
		if d.OwnerEmail == ownerEmail {
			delete(m.docs, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListOwnedDocumentIDs(_ context.Context, ownerEmail string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListOwnedDocumentIDs"); err != nil {
		return nil, err
	}
	var ids []string
	for id, d := range m.docs {
		if d.OwnerEmail == ownerEmail {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memStore) AppendActivity(_ context.Context, rec models.ActivityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("AppendActivity"); err != nil {
		return err
	}
	m.events = append(m.events, analytics.ActivityEvent{
		ID:         uuid.NewString(),
		DocID:      rec.DocID,
		UserEmail:  rec.UserEmail,
		Action:     rec.Action,
		Timestamp:  analytics.TimestampOf(rec.OccurredAt),
		WordsAdded: rec.WordsAdded,
	})
	return nil
}

func (m *memStore) FetchEvents(_ context.Context, docIDs []string) ([]analytics.ActivityEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FetchEvents"); err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(docIDs))
	for _, id := range docIDs {
		want[id] = true
	}
	var out []analytics.ActivityEvent
	for _, e := range m.events {
		if want[e.DocID] {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) DeleteEvents(_ context.Context, docIDs []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("DeleteEvents"); err != nil {
		return 0, err
	}
	want := make(map[string]bool, len(docIDs))
	for _, id := range docIDs {
		want[id] = true
	}
	kept := m.events[:0:0]
	var n int64
	for _, e := range m.events {
		if want[e.DocID] {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return n, nil
}

func (m *memStore) Ping(context.Context) error {
	return m.fail("Ping")
}

func (m *memStore) eventsFor(docID string) []analytics.ActivityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []analytics.ActivityEvent
	for _, e := range m.events {
		if e.DocID == docID {
			out = append(out, e)
		}
	}
	return out
}

// memArchive records archive calls.
type memArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemArchive() *memArchive {
	return &memArchive{objects: make(map[string][]byte)}
}

func (a *memArchive) UploadArchive(_ context.Context, teamEmail, docID, fileName string, data []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := teamEmail + "/" + docID + "/" + fileName
	a.objects[key] = append([]byte(nil), data...)
	return key, nil
}

func (a *memArchive) DeleteDocumentArchives(_ context.Context, teamEmail, docID string) (int, error) {
	return a.deletePrefix(teamEmail + "/" + docID + "/"), nil
}

func (a *memArchive) DeleteTeamArchives(_ context.Context, teamEmail string) (int, error) {
	return a.deletePrefix(teamEmail + "/"), nil
}

func (a *memArchive) deletePrefix(prefix string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for k := range a.objects {
		if strings.HasPrefix(k, prefix) {
			delete(a.objects, k)
			n++
		}
	}
	return n
}

func (a *memArchive) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.objects)
}

// testEnv is a router wired to in-memory collaborators.
type testEnv struct {
	store   *memStore
	archive *memArchive
	clock   *quartz.Mock
	tokens  *auth.TokenIssuer
	server  *Server
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := quartz.NewMock(t)
	clock.Set(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))

	tokens, err := auth.NewTokenIssuer(testSecret, 2*time.Hour, 7*24*time.Hour, auth.WithTokenClock(clock))
	if err != nil {
		t.Fatalf("NewTokenIssuer failed: %v", err)
	}

	store := newMemStore(clock)
	archive := newMemArchive()
	server := NewServer(store, archive, tokens, Config{Clock: clock, Version: "test"})
	return &testEnv{
		store:   store,
		archive: archive,
		clock:   clock,
		tokens:  tokens,
		server:  server,
		handler: server.SetupRoutes(),
	}
}

// seedTeam creates a team directly in the store.
func (e *testEnv) seedTeam(t *testing.T, email, password string, usernames ...string) {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if _, err := e.store.CreateTeam(context.Background(), email, hash, usernames); err != nil {
		t.Fatalf("CreateTeam failed: %v", err)
	}
}

// seedDocument creates a document directly in the store.
func (e *testEnv) seedDocument(t *testing.T, owner, title, content string) string {
	t.Helper()
	doc, err := e.store.CreateDocument(context.Background(), owner, title, content)
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}
	return doc.ID
}

// do sends a request, authenticated as team when team is non-empty.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType, team string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if team != "" {
		token, err := e.tokens.IssueAccess(team)
		if err != nil {
			t.Fatalf("IssueAccess failed: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

// doJSON sends payload as a JSON body.
func (e *testEnv) doJSON(t *testing.T, method, path string, payload interface{}, team string) *httptest.ResponseRecorder {
	t.Helper()
	if payload == nil {
		return e.do(t, method, path, nil, "", team)
	}
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	return e.do(t, method, path, bytes.NewReader(b), "application/json", team)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decodeBody(t, w, &body)
	return body["error"]
}

func message(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decodeBody(t, w, &body)
	return body["message"]
}

var errBoom = errors.New("boom")
