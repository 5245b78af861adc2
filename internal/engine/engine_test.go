package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"taskgate/internal/access"
	"taskgate/internal/config"
	"taskgate/internal/db"
	"taskgate/internal/domain"
	"taskgate/internal/engine"
	"taskgate/internal/migrate"
	"taskgate/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	Admin  domain.Actor
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn)
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	env := testEnv{Engine: eng, Ctx: ctx}
	env.Admin = env.addActor(t, "admin", "Admin", "admin")
	if err := eng.Repo.InsertProject(ctx, domain.Project{
		ID: "proj-1", Name: "Platform", Status: "active", CreatedAt: "2024-01-01T00:00:00Z",
	}); err != nil {
		t.Fatalf("insert project: %v", err)
	}
	return env
}

func (env testEnv) addActor(t *testing.T, id, name, role string) domain.Actor {
	t.Helper()
	a := domain.Actor{ID: id, Name: name, Role: role, IsActive: true, CreatedAt: "2024-01-01T00:00:00Z"}
	if err := env.Engine.Repo.InsertActor(env.Ctx, a); err != nil {
		t.Fatalf("insert actor %s: %v", id, err)
	}
	return a
}

func (env testEnv) createTask(t *testing.T, opts engine.TaskCreateOptions) domain.Task {
	t.Helper()
	if opts.ProjectID == "" {
		opts.ProjectID = "proj-1"
	}
	task, err := env.Engine.CreateTask(env.Ctx, env.Admin, opts)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func (env testEnv) participantFor(t *testing.T, actorID string) domain.Participant {
	t.Helper()
	p, err := env.Engine.Repo.GetParticipantByActor(env.Ctx, actorID)
	if err != nil {
		t.Fatalf("participant for %s: %v", actorID, err)
	}
	return p
}

func (env testEnv) activity(t *testing.T, taskID string) []domain.ActivityLogEntry {
	t.Helper()
	entries, err := env.Engine.Repo.ListActivity(env.Ctx, taskID, 100)
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	return entries
}

func TestDoneAwardsTimeBasedXP(t *testing.T) {
	// base 10 + feature 20 + high 15 = 45, then the time modifier
	cases := []struct {
		name   string
		logged float64
		want   int
	}{
		{"early", 8, 54},
		{"on_time", 10, 50},
		{"late", 12, 38},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.addActor(t, "dev", "Dana", "developer")
			task := env.createTask(t, engine.TaskCreateOptions{
				Title:          "Ship feature",
				Type:           "feature",
				Priority:       "high",
				EstimatedHours: 10,
				AssigneeRef:    "virtual:dev",
			})
			if _, err := env.Engine.LogTime(env.Ctx, env.Admin, task.ID, tc.logged); err != nil {
				t.Fatalf("log time: %v", err)
			}
			done, err := env.Engine.TransitionTaskStatus(env.Ctx, env.Admin, task.ID, domain.StatusDone)
			if err != nil {
				t.Fatalf("transition: %v", err)
			}
			if done.XPEarned == nil || *done.XPEarned != tc.want {
				t.Fatalf("expected %d xp, got %v", tc.want, done.XPEarned)
			}
			if done.CompletedAt == nil {
				t.Fatalf("expected completed_at to be set")
			}
			p := env.participantFor(t, "dev")
			if p.Experience != tc.want {
				t.Fatalf("expected participant experience %d, got %d", tc.want, p.Experience)
			}
		})
	}
}

func TestDoneWithoutAssigneeAwardsNothing(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, engine.TaskCreateOptions{Title: "Orphan", Type: "feature"})
	done, err := env.Engine.TransitionTaskStatus(env.Ctx, env.Admin, task.ID, domain.StatusDone)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if done.XPEarned != nil {
		t.Fatalf("expected no xp for unassigned task, got %d", *done.XPEarned)
	}
	if done.CompletedAt == nil {
		t.Fatalf("expected completed_at to be set")
	}
	tasks, err := env.Engine.ListTasks(env.Ctx, env.Admin, repo.ListTasksOptions{})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	for _, child := range tasks {
		if child.ParentID != nil && *child.ParentID == task.ID {
			t.Fatalf("unassigned task must not spawn a testing subtask, got %s", child.ID)
		}
	}
}

func TestReopenReversesExactAward(t *testing.T) {
	env := newTestEnv(t)
	env.addActor(t, "dev", "Dana", "developer")
	task := env.createTask(t, engine.TaskCreateOptions{
		Title:       "Ship feature",
		Type:        "feature",
		Priority:    "high",
		AssigneeRef: "virtual:dev",
	})
	if _, err := env.Engine.TransitionTaskStatus(env.Ctx, env.Admin, task.ID, domain.StatusDone); err != nil {
		t.Fatalf("complete: %v", err)
	}
	awarded := env.participantFor(t, "dev").Experience
	if awarded == 0 {
		t.Fatalf("expected a nonzero award")
	}
	reopened, err := env.Engine.TransitionTaskStatus(env.Ctx, env.Admin, task.ID, domain.StatusInProgress)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.XPEarned != nil {
		t.Fatalf("expected xp_earned cleared, got %d", *reopened.XPEarned)
	}
	if reopened.CompletedAt != nil {
		t.Fatalf("expected completed_at cleared")
	}
	p := env.participantFor(t, "dev")
	if p.Experience != 0 {
		t.Fatalf("expected experience back to 0, got %d", p.Experience)
	}
	if p.Level != 1 {
		t.Fatalf("expected level 1, got %d", p.Level)
	}
}

func TestReversalClampsAtZero(t *testing.T) {
	env := newTestEnv(t)
	env.addActor(t, "dev", "Dana", "developer")
	task := env.createTask(t, engine.TaskCreateOptions{
		Title:       "Ship feature",
		Type:        "feature",
		AssigneeRef: "virtual:dev",
	})
	if _, err := env.Engine.TransitionTaskStatus(env.Ctx, env.Admin, task.ID, domain.StatusDone); err != nil {
		t.Fatalf("complete: %v", err)
	}
	p := env.participantFor(t, "dev")
	tx, err := env.Engine.DB.BeginTx(env.Ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	if err := env.Engine.Repo.SetParticipantExperience(env.Ctx, tx, p.ID, 10, 1); err != nil {
		t.Fatalf("set experience: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := env.Engine.TransitionTaskStatus(env.Ctx, env.Admin, task.ID, domain.StatusTodo); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	p = env.participantFor(t, "dev")
	if p.Experience != 0 {
		t.Fatalf("expected experience clamped at 0, got %d", p.Experience)
	}
}

func TestDoneClonesTestingSubtask(t *testing.T) {
	env := newTestEnv(t)
	env.addActor(t, "dev", "Dana", "developer")
	env.addActor(t, "qa", "Quinn", "tester")
	settings := config.Default()
	settings.Workflow.DefaultTesterRef = "virtual:qa"
	if err := env.Engine.Repo.UpsertSettings(env.Ctx, repo.DefaultOrgID, settings); err != nil {
		t.Fatalf("seed settings: %v", err)
	}
	task := env.createTask(t, engine.TaskCreateOptions{
		Title:       "Ship feature",
		Type:        "feature",
		Priority:    "high",
		AssigneeRef: "virtual:dev",
	})

	src := filepath.Join(t.TempDir(), "design.md")
	if err := os.WriteFile(src, []byte("test cases"), 0o644); err != nil {
		t.Fatalf("write attachment: %v", err)
	}
	tx, err := env.Engine.DB.BeginTx(env.Ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	if err := env.Engine.Repo.InsertChecklistItem(env.Ctx, tx, domain.ChecklistItem{
		ID: "chk-1", TaskID: task.ID, Title: "verify flow", Done: true, Position: 1,
	}); err != nil {
		t.Fatalf("insert checklist item: %v", err)
	}
	if err := env.Engine.Repo.InsertAttachment(env.Ctx, tx, domain.Attachment{
		ID: "att-1", TaskID: task.ID, FileName: "design.md", FilePath: src, CreatedAt: "2024-01-01T00:00:00Z",
	}); err != nil {
		t.Fatalf("insert attachment: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if _, err := env.Engine.TransitionTaskStatus(env.Ctx, env.Admin, task.ID, domain.StatusDone); err != nil {
		t.Fatalf("complete: %v", err)
	}

	tasks, err := env.Engine.ListTasks(env.Ctx, env.Admin, repo.ListTasksOptions{})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	var clone *domain.Task
	for i := range tasks {
		if tasks[i].ParentID != nil && *tasks[i].ParentID == task.ID {
			clone = &tasks[i]
		}
	}
	if clone == nil {
		t.Fatalf("expected a testing subtask")
	}
	if clone.Type != "testing" || clone.Status != domain.StatusTodo {
		t.Fatalf("expected testing/todo subtask, got %s/%s", clone.Type, clone.Status)
	}
	if clone.Title != task.Title {
		t.Fatalf("expected cloned title %q, got %q", task.Title, clone.Title)
	}
	if clone.XPEarned != nil {
		t.Fatalf("clone must not carry xp")
	}
	qa := env.participantFor(t, "qa")
	if clone.AssigneeID == nil || *clone.AssigneeID != qa.ID {
		t.Fatalf("expected default tester assignment")
	}

	items, err := env.Engine.Repo.ListChecklistItems(env.Ctx, clone.ID)
	if err != nil {
		t.Fatalf("list checklist: %v", err)
	}
	if len(items) != 1 || items[0].Done {
		t.Fatalf("expected one unchecked cloned item, got %+v", items)
	}
	atts, err := env.Engine.Repo.ListAttachments(env.Ctx, clone.ID)
	if err != nil {
		t.Fatalf("list attachments: %v", err)
	}
	if len(atts) != 1 {
		t.Fatalf("expected one cloned attachment, got %d", len(atts))
	}
	if atts[0].FilePath == src {
		t.Fatalf("expected a deep file copy, path reused: %s", atts[0].FilePath)
	}
	data, err := os.ReadFile(atts[0].FilePath)
	if err != nil {
		t.Fatalf("read copied file: %v", err)
	}
	if string(data) != "test cases" {
		t.Fatalf("copied file content mismatch: %q", data)
	}

	var system *domain.ActivityLogEntry
	for _, e := range env.activity(t, clone.ID) {
		if e.Action == "subtask_created" {
			entry := e
			system = &entry
		}
	}
	if system == nil {
		t.Fatalf("expected a subtask_created activity entry")
	}
	if system.ActorID != nil {
		t.Fatalf("subtask_created must be system-originated, got actor %s", *system.ActorID)
	}
}

func TestNoSubtaskForTestingType(t *testing.T) {
	env := newTestEnv(t)
	env.addActor(t, "qa", "Quinn", "tester")
	task := env.createTask(t, engine.TaskCreateOptions{
		Title:       "Verify release",
		Type:        "testing",
		AssigneeRef: "virtual:qa",
	})
	if _, err := env.Engine.TransitionTaskStatus(env.Ctx, env.Admin, task.ID, domain.StatusDone); err != nil {
		t.Fatalf("complete: %v", err)
	}
	tasks, err := env.Engine.ListTasks(env.Ctx, env.Admin, repo.ListTasksOptions{})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	for _, c := range tasks {
		if c.ParentID != nil && *c.ParentID == task.ID {
			t.Fatalf("testing task must not spawn another testing subtask")
		}
	}
}

func TestNoSubtaskWhenAutomationDisabled(t *testing.T) {
	env := newTestEnv(t)
	settings := config.Default()
	settings.Workflow.AutoTestingSubtask = false
	if err := env.Engine.Repo.UpsertSettings(env.Ctx, repo.DefaultOrgID, settings); err != nil {
		t.Fatalf("seed settings: %v", err)
	}
	task := env.createTask(t, engine.TaskCreateOptions{Title: "Ship feature", Type: "feature"})
	if _, err := env.Engine.TransitionTaskStatus(env.Ctx, env.Admin, task.ID, domain.StatusDone); err != nil {
		t.Fatalf("complete: %v", err)
	}
	tasks, err := env.Engine.ListTasks(env.Ctx, env.Admin, repo.ListTasksOptions{})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected no subtask, got %d tasks", len(tasks))
	}
}

func TestInvalidStatusRejected(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, engine.TaskCreateOptions{Title: "Ship feature"})
	_, err := env.Engine.TransitionTaskStatus(env.Ctx, env.Admin, task.ID, "archived")
	var ite engine.InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if ite.Status != "archived" {
		t.Fatalf("expected rejected status in error, got %q", ite.Status)
	}
}

func TestSameStatusIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, engine.TaskCreateOptions{Title: "Ship feature"})
	before := len(env.activity(t, task.ID))
	got, err := env.Engine.TransitionTaskStatus(env.Ctx, env.Admin, task.ID, domain.StatusBacklog)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if got.Status != domain.StatusBacklog {
		t.Fatalf("unexpected status %s", got.Status)
	}
	if after := len(env.activity(t, task.ID)); after != before {
		t.Fatalf("no-op transition must not log activity: %d -> %d entries", before, after)
	}
}

func TestAssignedOnlyVisibility(t *testing.T) {
	env := newTestEnv(t)
	dev := env.addActor(t, "dev", "Dana", "developer")
	mine := env.createTask(t, engine.TaskCreateOptions{Title: "Mine", AssigneeRef: "virtual:dev"})
	other := env.createTask(t, engine.TaskCreateOptions{Title: "Other"})

	tasks, err := env.Engine.ListTasks(env.Ctx, dev, repo.ListTasksOptions{})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != mine.ID {
		t.Fatalf("expected only the assigned task, got %d", len(tasks))
	}
	if _, err := env.Engine.GetTask(env.Ctx, dev, other.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("invisible task must read as not found, got %v", err)
	}
	if _, err := env.Engine.GetTask(env.Ctx, dev, mine.ID); err != nil {
		t.Fatalf("assigned task must be readable: %v", err)
	}
}

func TestRestrictedActorWithoutParticipantSeesNothing(t *testing.T) {
	env := newTestEnv(t)
	viewer := env.addActor(t, "vic", "Vic", "viewer")
	env.createTask(t, engine.TaskCreateOptions{Title: "Hidden"})
	tasks, err := env.Engine.ListTasks(env.Ctx, viewer, repo.ListTasksOptions{})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected an empty listing, got %d tasks", len(tasks))
	}
}

func TestProjectScopeVisibility(t *testing.T) {
	env := newTestEnv(t)
	qa := env.addActor(t, "qa", "Quinn", "tester")
	if err := env.Engine.Repo.InsertProject(env.Ctx, domain.Project{
		ID: "proj-2", Name: "Mobile", Status: "active", CreatedAt: "2024-01-01T00:00:00Z",
	}); err != nil {
		t.Fatalf("insert project: %v", err)
	}
	inA := env.createTask(t, engine.TaskCreateOptions{Title: "Assigned in A", AssigneeRef: "virtual:qa"})
	alsoA := env.createTask(t, engine.TaskCreateOptions{Title: "Unassigned in A"})
	inB := env.createTask(t, engine.TaskCreateOptions{ProjectID: "proj-2", Title: "In B"})

	tasks, err := env.Engine.ListTasks(env.Ctx, qa, repo.ListTasksOptions{})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	seen := map[string]bool{}
	for _, task := range tasks {
		seen[task.ID] = true
	}
	if !seen[inA.ID] || !seen[alsoA.ID] {
		t.Fatalf("expected both tasks of the assigned project to be visible")
	}
	if seen[inB.ID] {
		t.Fatalf("task in a foreign project must be invisible")
	}
}

func TestUpdateTaskLogsFieldDiffs(t *testing.T) {
	env := newTestEnv(t)
	env.addActor(t, "dev", "Dana", "developer")
	task := env.createTask(t, engine.TaskCreateOptions{Title: "Original", AssigneeRef: "virtual:dev"})

	newTitle := "Renamed"
	high := "high"
	unassign := ""
	updated, err := env.Engine.UpdateTask(env.Ctx, env.Admin, engine.TaskUpdateOptions{
		ID:          task.ID,
		Title:       &newTitle,
		Priority:    &high,
		AssigneeRef: &unassign,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Renamed" || updated.Priority != "high" || updated.AssigneeID != nil {
		t.Fatalf("update not applied: %+v", updated)
	}

	byField := map[string]domain.ActivityLogEntry{}
	for _, e := range env.activity(t, task.ID) {
		if e.Action == "updated" {
			byField[e.Field] = e
		}
	}
	if len(byField) != 3 {
		t.Fatalf("expected 3 field diffs, got %d", len(byField))
	}
	if e := byField["title"]; e.OldValue != "Original" || e.NewValue != "Renamed" {
		t.Fatalf("title diff wrong: %+v", e)
	}
	if e := byField["assignee"]; e.OldValue != "Dana" || e.NewValue != "unassigned" {
		t.Fatalf("assignee diff must use display names: %+v", e)
	}

	// identical values produce no new entries
	before := len(env.activity(t, task.ID))
	if _, err := env.Engine.UpdateTask(env.Ctx, env.Admin, engine.TaskUpdateOptions{
		ID:    task.ID,
		Title: &newTitle,
	}); err != nil {
		t.Fatalf("no-op update: %v", err)
	}
	if after := len(env.activity(t, task.ID)); after != before {
		t.Fatalf("no-op update logged activity: %d -> %d", before, after)
	}
}

func TestAssignRoleGuard(t *testing.T) {
	env := newTestEnv(t)
	dev := env.addActor(t, "dev", "Dana", "developer")
	env.addActor(t, "newbie", "Nora", "viewer")

	var fe access.ForbiddenError
	if err := env.Engine.AssignRole(env.Ctx, dev, "newbie", "manager"); !errors.As(err, &fe) {
		t.Fatalf("expected escalation to be forbidden, got %v", err)
	}
	if err := env.Engine.AssignRole(env.Ctx, dev, "newbie", "developer"); !errors.As(err, &fe) {
		t.Fatalf("granting own rank must be forbidden, got %v", err)
	}
	if err := env.Engine.AssignRole(env.Ctx, dev, "newbie", "viewer"); err != nil {
		t.Fatalf("granting a lower rank must succeed: %v", err)
	}
	if err := env.Engine.AssignRole(env.Ctx, env.Admin, "newbie", "team_lead"); err != nil {
		t.Fatalf("admin grant failed: %v", err)
	}
	got, err := env.Engine.Repo.GetActor(env.Ctx, "newbie")
	if err != nil {
		t.Fatalf("get actor: %v", err)
	}
	if got.Role != "team_lead" {
		t.Fatalf("expected role team_lead, got %s", got.Role)
	}

	audit, err := env.Engine.Repo.ListAudit(env.Ctx, 10)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	found := false
	for _, e := range audit {
		if e.Action == "role_assigned" && e.TargetID == "newbie" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a role_assigned audit entry")
	}
}

func TestReplaceSettingsProfileGuard(t *testing.T) {
	env := newTestEnv(t)
	mgr := env.addActor(t, "mgr", "Morgan", "manager")

	base := config.Default()
	p := base.Permissions["manager"]
	p.AccessSettings = true
	base.Permissions["manager"] = p
	if err := env.Engine.ReplaceSettings(env.Ctx, env.Admin, base); err != nil {
		t.Fatalf("admin replace: %v", err)
	}

	// same profiles, new rules: allowed
	next := config.Default()
	next.Permissions["manager"] = p
	next.AutomationRules = []config.AutomationRule{{
		Threshold: 24, Unit: "hours", Scope: "all", TargetRef: "virtual:mgr", Action: "assign",
	}}
	if err := env.Engine.ReplaceSettings(env.Ctx, mgr, next); err != nil {
		t.Fatalf("manager rule change: %v", err)
	}

	// touched profiles: forbidden below the top role
	tampered := config.Default()
	tampered.Permissions["manager"] = p
	vp := tampered.Permissions["viewer"]
	vp.Create = true
	tampered.Permissions["viewer"] = vp
	var fe access.ForbiddenError
	if err := env.Engine.ReplaceSettings(env.Ctx, mgr, tampered); !errors.As(err, &fe) {
		t.Fatalf("expected profile edit to be forbidden, got %v", err)
	}

	if err := env.Engine.ReplaceSettings(env.Ctx, env.Admin, tampered); err != nil {
		t.Fatalf("admin profile edit failed: %v", err)
	}
}

func TestReplaceAutomationRules(t *testing.T) {
	env := newTestEnv(t)
	mgr := env.addActor(t, "mgr", "Morgan", "manager")
	dev := env.addActor(t, "dev", "Dana", "developer")

	rules := []config.AutomationRule{{
		Threshold: 48, Unit: "hours", Scope: "all", TargetRef: "virtual:mgr", Action: "assign",
	}}
	// manager holds manageTaskSettings without accessSettings
	got, err := env.Engine.ReplaceAutomationRules(env.Ctx, mgr, rules)
	if err != nil {
		t.Fatalf("manager rule replace: %v", err)
	}
	if len(got.AutomationRules) != 1 {
		t.Fatalf("expected one rule, got %d", len(got.AutomationRules))
	}
	stored, err := env.Engine.Settings(env.Ctx)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if len(stored.AutomationRules) != 1 || stored.AutomationRules[0].Threshold != 48 {
		t.Fatalf("rules not persisted: %+v", stored.AutomationRules)
	}

	var fe access.ForbiddenError
	if _, err := env.Engine.ReplaceAutomationRules(env.Ctx, dev, nil); !errors.As(err, &fe) {
		t.Fatalf("expected developers to be denied, got %v", err)
	}
	if _, err := env.Engine.ReplaceAutomationRules(env.Ctx, mgr, []config.AutomationRule{{
		Threshold: 0, Unit: "hours", Scope: "all", TargetRef: "virtual:mgr", Action: "assign",
	}}); err == nil {
		t.Fatalf("invalid rules must be rejected")
	}
}

func TestLeaderboardReflectsAwards(t *testing.T) {
	env := newTestEnv(t)
	env.addActor(t, "dev", "Dana", "developer")

	// base 10 + feature 20 + medium 10, no time logs
	first := env.createTask(t, engine.TaskCreateOptions{Title: "First", Type: "feature", AssigneeRef: "virtual:dev"})
	if _, err := env.Engine.TransitionTaskStatus(env.Ctx, env.Admin, first.ID, domain.StatusDone); err != nil {
		t.Fatalf("complete: %v", err)
	}
	dev := env.participantFor(t, "dev")

	entries, err := env.Engine.Leaderboard(env.Ctx, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	var row *domain.LeaderboardEntry
	for i := range entries {
		if entries[i].ParticipantID == dev.ID {
			row = &entries[i]
		}
	}
	if row == nil {
		t.Fatalf("expected dev on the leaderboard")
	}
	if row.Experience != 40 || row.TasksDone != 1 || row.Name != "Dana" {
		t.Fatalf("unexpected row: %+v", *row)
	}

	second := env.createTask(t, engine.TaskCreateOptions{Title: "Second", Type: "feature", AssigneeRef: "virtual:dev"})
	if _, err := env.Engine.TransitionTaskStatus(env.Ctx, env.Admin, second.ID, domain.StatusDone); err != nil {
		t.Fatalf("complete: %v", err)
	}
	entries, err = env.Engine.Leaderboard(env.Ctx, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	for _, e := range entries {
		if e.ParticipantID == dev.ID && e.Experience != 80 {
			t.Fatalf("expected cache invalidation after award, experience %d", e.Experience)
		}
	}
}

func TestLeaderboardCacheFollowsEngineClock(t *testing.T) {
	env := newTestEnv(t)
	env.addActor(t, "dev", "Dana", "developer")
	task := env.createTask(t, engine.TaskCreateOptions{Title: "First", Type: "feature", AssigneeRef: "virtual:dev"})
	if _, err := env.Engine.TransitionTaskStatus(env.Ctx, env.Admin, task.ID, domain.StatusDone); err != nil {
		t.Fatalf("complete: %v", err)
	}
	dev := env.participantFor(t, "dev")

	experienceOf := func(t *testing.T) int {
		t.Helper()
		entries, err := env.Engine.Leaderboard(env.Ctx, 10)
		if err != nil {
			t.Fatalf("leaderboard: %v", err)
		}
		for _, e := range entries {
			if e.ParticipantID == dev.ID {
				return e.Experience
			}
		}
		t.Fatalf("expected dev on the leaderboard")
		return 0
	}
	if got := experienceOf(t); got != 40 {
		t.Fatalf("expected 40 experience, got %d", got)
	}

	// write experience behind the cache's back
	tx, err := env.Engine.DB.BeginTx(env.Ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	if err := env.Engine.Repo.SetParticipantExperience(env.Ctx, tx, dev.ID, 500, engine.CalculateLevel(500)); err != nil {
		t.Fatalf("set experience: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got := experienceOf(t); got != 40 {
		t.Fatalf("expected the cached value while fresh, got %d", got)
	}

	env.Engine.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 10, 0, 0, time.UTC) }
	if got := experienceOf(t); got != 500 {
		t.Fatalf("expected a refetch once the injected clock passed the ttl, got %d", got)
	}
}

func TestCommentRequiresVisibilityAndCapability(t *testing.T) {
	env := newTestEnv(t)
	dev := env.addActor(t, "dev", "Dana", "developer")
	visible := env.createTask(t, engine.TaskCreateOptions{Title: "Mine", AssigneeRef: "virtual:dev"})
	hidden := env.createTask(t, engine.TaskCreateOptions{Title: "Other"})

	c, err := env.Engine.AddComment(env.Ctx, dev, visible.ID, "looks good")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	if c.AuthorID == nil {
		t.Fatalf("expected comment author")
	}
	if _, err := env.Engine.AddComment(env.Ctx, dev, hidden.ID, "sneaky"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("commenting an invisible task must read as not found, got %v", err)
	}
	if _, err := env.Engine.AddComment(env.Ctx, dev, visible.ID, ""); err == nil {
		t.Fatalf("empty comment must be rejected")
	}
}
