package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"taskgate/internal/db"
	"taskgate/internal/domain"
	"taskgate/internal/engine"
	"taskgate/internal/escalation"
	"taskgate/internal/migrate"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn)
	e.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	for _, a := range []domain.Actor{
		{ID: "admin", Name: "Admin", Role: "admin", IsActive: true, CreatedAt: "2024-01-01T00:00:00Z"},
		{ID: "dev", Name: "Dana", Role: "developer", IsActive: true, CreatedAt: "2024-01-01T00:00:00Z"},
		{ID: "viewer", Name: "Vic", Role: "viewer", IsActive: true, CreatedAt: "2024-01-01T00:00:00Z"},
		{ID: "former", Name: "Fred", Role: "developer", IsActive: false, CreatedAt: "2024-01-01T00:00:00Z"},
	} {
		if err := e.Repo.InsertActor(ctx, a); err != nil {
			t.Fatalf("seed actor %s: %v", a.ID, err)
		}
	}
	if err := e.Repo.InsertProject(ctx, domain.Project{
		ID: "proj-1", Name: "Platform", Status: "active", CreatedAt: "2024-01-01T00:00:00Z",
	}); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	handler, err := New(Config{
		Engine:   e,
		Sweeper:  escalation.NewSweeper(e),
		BasePath: "/v0",
		Auth: AuthConfig{
			JWTSecret:              "test-secret",
			AllowLegacyActorHeader: true,
		},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func asAdmin() map[string]string { return map[string]string{"X-Actor-Id": "admin"} }

func TestTaskLifecycle(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks", map[string]any{
		"project_id": "proj-1",
		"title":      "Ship feature",
		"type":       "feature",
	}, asAdmin())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task status %d: %s", res.StatusCode, string(data))
	}
	var created domain.Task
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}
	if created.Status != "backlog" {
		t.Fatalf("expected backlog, got %s", created.Status)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/tasks/"+created.ID, nil, asAdmin())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get task status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks/"+created.ID+"/status", map[string]any{
		"status": "done",
	}, asAdmin())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("set status %d: %s", res.StatusCode, string(data))
	}
	var done domain.Task
	if err := json.Unmarshal(data, &done); err != nil {
		t.Fatalf("unmarshal done: %v", err)
	}
	if done.Status != "done" || done.CompletedAt == nil {
		t.Fatalf("expected completed done task, got %+v", done)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/tasks/"+created.ID+"/activity", nil, asAdmin())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("activity status %d: %s", res.StatusCode, string(data))
	}
	var entries []domain.ActivityLogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("unmarshal activity: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected created and status_changed entries, got %d", len(entries))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks/"+created.ID+"/status", map[string]any{
		"status": "archived",
	}, asAdmin())
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unknown status, got %d: %s", res.StatusCode, string(data))
	}
}

func TestAuthRequired(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/tasks", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d: %s", res.StatusCode, string(data))
	}

	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health must not require auth, got %d", res.StatusCode)
	}
}

func TestUnknownActorRejected(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/me", nil, map[string]string{"X-Actor-Id": "ghost"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for an unknown actor, got %d: %s", res.StatusCode, string(data))
	}
}

func TestInactiveActorRejected(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/me", nil, map[string]string{"X-Actor-Id": "former"})
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for a deactivated actor, got %d: %s", res.StatusCode, string(data))
	}
}

func TestViewerCannotCreate(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/tasks", map[string]any{
		"project_id": "proj-1",
		"title":      "Nope",
		"type":       "feature",
	}, map[string]string{"X-Actor-Id": "viewer"})
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for a viewer, got %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "forbidden" {
		t.Fatalf("expected forbidden code, got %q", envelope.Error.Code)
	}
}

func TestDevLoginRoundTrip(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/auth/dev/login", map[string]any{
		"actor_id": "admin",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("dev login status %d: %s", res.StatusCode, string(data))
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &login); err != nil {
		t.Fatalf("unmarshal login: %v", err)
	}
	if login.Token == "" {
		t.Fatalf("expected a token")
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/me", nil, map[string]string{
		"Authorization": "Bearer " + login.Token,
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me status %d: %s", res.StatusCode, string(data))
	}
	var me WhoAmIResponse
	if err := json.Unmarshal(data, &me); err != nil {
		t.Fatalf("unmarshal me: %v", err)
	}
	if me.ActorID != "admin" || me.Role != "admin" || me.ViewScope != "all" {
		t.Fatalf("unexpected identity: %+v", me)
	}
	if len(me.Capabilities) != 13 {
		t.Fatalf("admin must hold every capability, got %d", len(me.Capabilities))
	}

	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v0/me", nil, map[string]string{
		"Authorization": "Bearer not-a-token",
	})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a bad token, got %d", res.StatusCode)
	}
}

func TestVisibilityOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks", map[string]any{
		"project_id":   "proj-1",
		"title":        "Mine",
		"type":         "feature",
		"assignee_ref": "virtual:dev",
	}, asAdmin())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create assigned task: %d %s", res.StatusCode, string(data))
	}
	var mine domain.Task
	_ = json.Unmarshal(data, &mine)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks", map[string]any{
		"project_id": "proj-1",
		"title":      "Other",
		"type":       "feature",
	}, asAdmin())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create other task: %d %s", res.StatusCode, string(data))
	}
	var other domain.Task
	_ = json.Unmarshal(data, &other)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/tasks", nil, map[string]string{"X-Actor-Id": "dev"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list as dev: %d %s", res.StatusCode, string(data))
	}
	var visible []domain.Task
	if err := json.Unmarshal(data, &visible); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(visible) != 1 || visible[0].ID != mine.ID {
		t.Fatalf("dev must only see the assigned task, got %d", len(visible))
	}

	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v0/tasks/"+other.ID, nil, map[string]string{"X-Actor-Id": "dev"})
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("invisible task must read as 404, got %d", res.StatusCode)
	}
}

func TestRulesRoundTrip(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPut, srv.URL+"/v0/rules", []map[string]any{{
		"threshold":  24,
		"unit":       "hours",
		"scope":      "all",
		"target_ref": "virtual:admin",
		"action":     "assign",
	}}, asAdmin())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("replace rules: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/rules", nil, asAdmin())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list rules: %d %s", res.StatusCode, string(data))
	}
	var rules []map[string]any
	if err := json.Unmarshal(data, &rules); err != nil {
		t.Fatalf("unmarshal rules: %v", err)
	}
	if len(rules) != 1 || rules[0]["target_ref"] != "virtual:admin" {
		t.Fatalf("unexpected rules: %+v", rules)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/rules", nil, map[string]string{"X-Actor-Id": "dev"})
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for a developer, got %d: %s", res.StatusCode, string(data))
	}
}

func TestSettingsEndpointGuard(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/settings", nil, map[string]string{"X-Actor-Id": "dev"})
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for a developer, got %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/settings", nil, asAdmin())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("admin settings read failed: %d %s", res.StatusCode, string(data))
	}
}
