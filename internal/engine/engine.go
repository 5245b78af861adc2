package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"taskgate/internal/access"
	"taskgate/internal/activity"
	"taskgate/internal/config"
	"taskgate/internal/directory"
	"taskgate/internal/domain"
	"taskgate/internal/repo"
)

// Engine drives task mutations, their side effects and the
// authorization checks in front of them.
type Engine struct {
	DB       *sql.DB
	Repo     repo.Repo
	Access   access.Service
	Dir      directory.Directory
	Activity activity.Writer
	OrgID    string
	Now      func() time.Time
	Logger   *log.Logger
	Stats    *StatsCache
}

func New(db *sql.DB) Engine {
	r := repo.Repo{DB: db}
	return Engine{
		DB:       db,
		Repo:     r,
		Access:   access.Service{Store: r},
		Dir:      directory.Directory{Repo: r},
		Activity: activity.Writer{DB: db},
		OrgID:    repo.DefaultOrgID,
		Now:      time.Now,
		Stats:    NewStatsCache(5 * time.Minute),
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) logger() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.Default()
}

// Settings loads the org settings, seeding defaults on first access.
func (e Engine) Settings(ctx context.Context) (*config.Settings, error) {
	s, err := e.Repo.GetSettings(ctx, e.OrgID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	seed := config.Default()
	if err := e.Repo.UpsertSettings(ctx, e.OrgID, seed); err != nil {
		return nil, fmt.Errorf("seed settings: %w", err)
	}
	return seed, nil
}

// settingsOrRestrictive never fails an authorization path: an
// unreadable settings blob degrades to the most restrictive
// interpretation instead of an error.
func (e Engine) settingsOrRestrictive(ctx context.Context) *config.Settings {
	s, err := e.Settings(ctx)
	if err != nil {
		e.logger().Printf("settings unresolvable, denying by default: %v", err)
		return &config.Settings{}
	}
	return s
}

// AuthorizeCapability reports whether the actor holds a capability.
func (e Engine) AuthorizeCapability(ctx context.Context, actor domain.Actor, c config.Capability) bool {
	return e.Access.HasCapability(e.settingsOrRestrictive(ctx), actor, c)
}

// VisibilityFilter builds the task predicate for the actor, to be
// AND-ed into any task query.
func (e Engine) VisibilityFilter(ctx context.Context, actor domain.Actor) (access.Filter, error) {
	return e.Access.BuildTaskFilter(ctx, e.settingsOrRestrictive(ctx), actor)
}

// ListTasks returns tasks visible to the actor, narrowed by opts.
func (e Engine) ListTasks(ctx context.Context, actor domain.Actor, opts repo.ListTasksOptions) ([]domain.Task, error) {
	f, err := e.VisibilityFilter(ctx, actor)
	if err != nil {
		return nil, err
	}
	opts.Visibility = f
	return e.Repo.ListTasks(ctx, opts)
}

// GetTask returns a task the actor may see. Absent and invisible are
// both ErrNotFound so existence never leaks.
func (e Engine) GetTask(ctx context.Context, actor domain.Actor, id string) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return t, err
	}
	visible, err := e.Access.CheckTask(ctx, e.settingsOrRestrictive(ctx), actor, t)
	if err != nil {
		return domain.Task{}, err
	}
	if !visible {
		return domain.Task{}, repo.ErrNotFound
	}
	return t, nil
}

// TaskCreateOptions are parameters for creating a task.
type TaskCreateOptions struct {
	ProjectID          string
	Type               string
	Title              string
	Description        string
	Priority           string
	AssigneeRef        string
	ReleaseID          string
	BusinessValue      *int
	AcceptanceCriteria string
	Tags               string
	Component          string
	EstimatedHours     float64
	DueDate            string
}

func (e Engine) CreateTask(ctx context.Context, actor domain.Actor, opts TaskCreateOptions) (domain.Task, error) {
	settings := e.settingsOrRestrictive(ctx)
	if err := e.Access.RequireCapability(settings, actor, config.CapCreate); err != nil {
		return domain.Task{}, err
	}
	if opts.Title == "" {
		return domain.Task{}, errors.New("title is required")
	}
	if opts.ProjectID == "" {
		return domain.Task{}, errors.New("project is required")
	}
	if _, err := e.Repo.GetProject(ctx, opts.ProjectID); err != nil {
		return domain.Task{}, err
	}
	if opts.Type == "" {
		opts.Type = "feature"
	}
	if opts.Priority == "" {
		opts.Priority = "medium"
	}
	// the reporter is always a durable participant, never a raw actor id
	reporter, err := e.Dir.EnsureForActor(ctx, actor.ID)
	if err != nil {
		return domain.Task{}, err
	}
	now := e.now().UTC().Format(time.RFC3339)
	t := domain.Task{
		ID:                 uuid.New().String(),
		ProjectID:          opts.ProjectID,
		Type:               opts.Type,
		Title:              opts.Title,
		Description:        opts.Description,
		Status:             domain.StatusBacklog,
		Priority:           opts.Priority,
		ReporterID:         reporter.ID,
		BusinessValue:      opts.BusinessValue,
		AcceptanceCriteria: opts.AcceptanceCriteria,
		Tags:               opts.Tags,
		Component:          opts.Component,
		EstimatedHours:     opts.EstimatedHours,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if opts.ReleaseID != "" {
		t.ReleaseID = &opts.ReleaseID
	}
	if opts.DueDate != "" {
		t.DueDate = &opts.DueDate
	}
	if opts.AssigneeRef != "" {
		if err := e.Access.RequireCapability(settings, actor, config.CapAssign); err != nil {
			return domain.Task{}, err
		}
		p, err := e.Dir.Resolve(ctx, directory.ParseRef(opts.AssigneeRef))
		if err != nil {
			return domain.Task{}, err
		}
		t.AssigneeID = &p.ID
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	e.Activity.Task(ctx, domain.ActivityLogEntry{
		TaskID:      t.ID,
		ActorID:     &reporter.ID,
		Action:      "created",
		Description: fmt.Sprintf("created task %q", t.Title),
	})
	return t, nil
}

// TaskUpdateOptions encapsulates field mutations. Status changes go
// through TransitionTaskStatus, not here.
type TaskUpdateOptions struct {
	ID             string
	Title          *string
	Description    *string
	Priority       *string
	Type           *string
	AssigneeRef    *string // empty string unassigns
	ProjectID      *string
	ReleaseID      *string // empty string clears
	DueDate        *string // empty string clears
	EstimatedHours *float64
}

// UpdateTask applies field mutations, diffing old against new and
// emitting one activity entry per changed field with display values
// resolved at log time.
func (e Engine) UpdateTask(ctx context.Context, actor domain.Actor, opts TaskUpdateOptions) (domain.Task, error) {
	settings := e.settingsOrRestrictive(ctx)
	t, err := e.GetTask(ctx, actor, opts.ID)
	if err != nil {
		return t, err
	}
	if err := e.Access.RequireCapability(settings, actor, config.CapEdit); err != nil {
		return t, err
	}
	original := t
	var diffs []domain.ActivityLogEntry
	actorParticipant, err := e.Dir.EnsureForActor(ctx, actor.ID)
	if err != nil {
		return t, err
	}

	record := func(field, oldVal, newVal string) {
		diffs = append(diffs, domain.ActivityLogEntry{
			TaskID:      t.ID,
			ActorID:     &actorParticipant.ID,
			Action:      "updated",
			Field:       field,
			OldValue:    oldVal,
			NewValue:    newVal,
			Description: fmt.Sprintf("changed %s", field),
		})
	}

	if opts.Title != nil && *opts.Title != t.Title {
		record("title", t.Title, *opts.Title)
		t.Title = *opts.Title
	}
	if opts.Description != nil && *opts.Description != t.Description {
		record("description", t.Description, *opts.Description)
		t.Description = *opts.Description
	}
	if opts.Priority != nil && *opts.Priority != t.Priority {
		record("priority", t.Priority, *opts.Priority)
		t.Priority = *opts.Priority
	}
	if opts.Type != nil && *opts.Type != t.Type {
		record("type", t.Type, *opts.Type)
		t.Type = *opts.Type
	}
	if opts.AssigneeRef != nil {
		if err := e.Access.RequireCapability(settings, actor, config.CapAssign); err != nil {
			return t, err
		}
		var newID *string
		if *opts.AssigneeRef != "" {
			p, err := e.Dir.Resolve(ctx, directory.ParseRef(*opts.AssigneeRef))
			if err != nil {
				return t, err
			}
			newID = &p.ID
		}
		if !equalStringPtr(t.AssigneeID, newID) {
			record("assignee", e.participantName(ctx, t.AssigneeID), e.participantName(ctx, newID))
			t.AssigneeID = newID
		}
	}
	if opts.ProjectID != nil && *opts.ProjectID != t.ProjectID {
		if _, err := e.Repo.GetProject(ctx, *opts.ProjectID); err != nil {
			return t, err
		}
		record("project", e.projectName(ctx, t.ProjectID), e.projectName(ctx, *opts.ProjectID))
		t.ProjectID = *opts.ProjectID
	}
	if opts.ReleaseID != nil {
		var newID *string
		if *opts.ReleaseID != "" {
			if _, err := e.Repo.GetRelease(ctx, *opts.ReleaseID); err != nil {
				return t, err
			}
			newID = opts.ReleaseID
		}
		if !equalStringPtr(t.ReleaseID, newID) {
			record("release", e.releaseName(ctx, t.ReleaseID), e.releaseName(ctx, newID))
			t.ReleaseID = newID
		}
	}
	if opts.DueDate != nil {
		var newDue *string
		if *opts.DueDate != "" {
			newDue = opts.DueDate
		}
		if !equalStringPtr(t.DueDate, newDue) {
			record("due_date", deref(t.DueDate), deref(newDue))
			t.DueDate = newDue
		}
	}
	if opts.EstimatedHours != nil && *opts.EstimatedHours != t.EstimatedHours {
		record("estimated_hours", fmt.Sprintf("%g", t.EstimatedHours), fmt.Sprintf("%g", *opts.EstimatedHours))
		t.EstimatedHours = *opts.EstimatedHours
	}

	if len(diffs) == 0 {
		return original, nil
	}
	t.UpdatedAt = e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return original, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
		return original, err
	}
	if err := tx.Commit(); err != nil {
		return original, err
	}
	for _, d := range diffs {
		e.Activity.Task(ctx, d)
	}
	return t, nil
}

// TransitionTaskStatus moves a task to a new status and fires the
// edge-specific side effects. The primary mutation is the operation
// of record; side effects run post-commit, best-effort, with the
// activity entry written last.
func (e Engine) TransitionTaskStatus(ctx context.Context, actor domain.Actor, taskID, newStatus string) (domain.Task, error) {
	if !domain.ValidStatus(newStatus) {
		return domain.Task{}, InvalidTransitionError{Status: newStatus}
	}
	settings := e.settingsOrRestrictive(ctx)
	t, err := e.GetTask(ctx, actor, taskID)
	if err != nil {
		return t, err
	}
	if err := e.Access.RequireCapability(settings, actor, config.CapChangeStatus); err != nil {
		return t, err
	}
	if t.Status == newStatus {
		return t, nil
	}
	actorParticipant, err := e.Dir.EnsureForActor(ctx, actor.ID)
	if err != nil {
		return t, err
	}

	original := t
	now := e.now().UTC().Format(time.RFC3339)
	t.Status = newStatus
	t.UpdatedAt = now

	entering := newStatus == domain.StatusDone
	leaving := original.Status == domain.StatusDone

	var awarded int
	if entering {
		t.CompletedAt = &now
		if t.AssigneeID != nil {
			awarded = e.scoreTask(ctx, t, settings.Gamification)
			t.XPEarned = &awarded
		}
	}
	var reversed int
	if leaving {
		if original.XPEarned != nil {
			reversed = *original.XPEarned
		}
		t.CompletedAt = nil
		t.XPEarned = nil
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return original, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
		return original, err
	}
	if err := tx.Commit(); err != nil {
		return original, err
	}

	var hooks []hook
	if entering && t.AssigneeID != nil {
		assigneeID := *t.AssigneeID
		hooks = append(hooks, hook{"award_xp", func(ctx context.Context) error {
			return e.adjustExperience(ctx, assigneeID, awarded)
		}})
		hooks = append(hooks, hook{"notify_assignee", func(ctx context.Context) error {
			e.Activity.Notify(ctx, domain.Notification{
				ParticipantID: assigneeID,
				Kind:          "task_completed",
				Message:       fmt.Sprintf("task %q completed, %d XP earned", t.Title, awarded),
				TaskID:        t.ID,
			})
			return nil
		}})
	}
	if entering && t.AssigneeID != nil && t.Type != settings.Workflow.TestingTaskType && settings.Workflow.AutoTestingSubtask {
		hooks = append(hooks, hook{"testing_subtask", func(ctx context.Context) error {
			return e.cloneTestingSubtask(ctx, t, settings.Workflow)
		}})
	}
	if leaving && original.AssigneeID != nil && reversed > 0 {
		assigneeID := *original.AssigneeID
		hooks = append(hooks, hook{"reverse_xp", func(ctx context.Context) error {
			return e.adjustExperience(ctx, assigneeID, -reversed)
		}})
	}
	hooks = append(hooks, hook{"activity_log", func(ctx context.Context) error {
		e.Activity.Task(ctx, domain.ActivityLogEntry{
			TaskID:      t.ID,
			ActorID:     &actorParticipant.ID,
			Action:      "status_changed",
			Field:       "status",
			OldValue:    original.Status,
			NewValue:    newStatus,
			Description: fmt.Sprintf("status %s -> %s", original.Status, newStatus),
		})
		return nil
	}})
	e.runHooks(ctx, hooks)
	return t, nil
}

// hook is one post-commit side effect with isolated error handling.
type hook struct {
	name string
	fn   func(ctx context.Context) error
}

func (e Engine) runHooks(ctx context.Context, hooks []hook) {
	for _, h := range hooks {
		if err := h.fn(ctx); err != nil {
			e.logger().Printf("side effect %s failed: %v", h.name, err)
		}
	}
}

// adjustExperience adds delta (which may be negative) to a
// participant's experience and recomputes the level. The storage
// layer clamps at zero, closing the repeated complete/reopen exploit.
func (e Engine) adjustExperience(ctx context.Context, participantID string, delta int) error {
	p, err := e.Repo.GetParticipant(ctx, participantID)
	if err != nil {
		return err
	}
	exp := p.Experience + delta
	if exp < 0 {
		exp = 0
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.SetParticipantExperience(ctx, tx, participantID, exp, CalculateLevel(exp)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.Stats.Invalidate()
	return nil
}

// cloneTestingSubtask copies a completed task into a testing child:
// content, checklists and attachments (files deep-copied), status
// todo, optionally assigned to the configured default tester.
func (e Engine) cloneTestingSubtask(ctx context.Context, parent domain.Task, wf config.Workflow) error {
	now := e.now().UTC().Format(time.RFC3339)
	clone := domain.Task{
		ID:                 uuid.New().String(),
		ProjectID:          parent.ProjectID,
		ParentID:           &parent.ID,
		ReleaseID:          parent.ReleaseID,
		Type:               wf.TestingTaskType,
		Title:              parent.Title,
		Description:        parent.Description,
		Status:             domain.StatusTodo,
		Priority:           parent.Priority,
		ReporterID:         parent.ReporterID,
		BusinessValue:      parent.BusinessValue,
		AcceptanceCriteria: parent.AcceptanceCriteria,
		Tags:               parent.Tags,
		Component:          parent.Component,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if wf.DefaultTesterRef != "" {
		p, err := e.Dir.Resolve(ctx, directory.ParseRef(wf.DefaultTesterRef))
		if err != nil {
			e.logger().Printf("default tester %s unresolvable, leaving subtask unassigned: %v", wf.DefaultTesterRef, err)
		} else {
			clone.AssigneeID = &p.ID
		}
	}
	items, err := e.Repo.ListChecklistItems(ctx, parent.ID)
	if err != nil {
		return err
	}
	attachments, err := e.Repo.ListAttachments(ctx, parent.ID)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertTask(ctx, tx, clone); err != nil {
		return err
	}
	for _, item := range items {
		item.ID = uuid.New().String()
		item.TaskID = clone.ID
		item.Done = false
		if err := e.Repo.InsertChecklistItem(ctx, tx, item); err != nil {
			return err
		}
	}
	for _, a := range attachments {
		copied, err := copyAttachmentFile(a.FilePath)
		if err != nil {
			e.logger().Printf("attachment copy failed for %s: %v", a.FilePath, err)
			continue
		}
		a.ID = uuid.New().String()
		a.TaskID = clone.ID
		a.FilePath = copied
		a.CreatedAt = now
		if err := e.Repo.InsertAttachment(ctx, tx, a); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.Activity.Task(ctx, domain.ActivityLogEntry{
		TaskID:      clone.ID,
		ActorID:     nil, // system-originated
		Action:      "subtask_created",
		Description: fmt.Sprintf("testing subtask created from %s", parent.ID),
	})
	return nil
}

func copyAttachmentFile(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()
	dir, base := filepath.Split(path)
	target := filepath.Join(dir, uuid.New().String()+"-"+base)
	dst, err := os.Create(target)
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return target, nil
}

// AddComment records a comment by the actor's participant.
func (e Engine) AddComment(ctx context.Context, actor domain.Actor, taskID, body string) (domain.Comment, error) {
	settings := e.settingsOrRestrictive(ctx)
	if _, err := e.GetTask(ctx, actor, taskID); err != nil {
		return domain.Comment{}, err
	}
	if err := e.Access.RequireCapability(settings, actor, config.CapComment); err != nil {
		return domain.Comment{}, err
	}
	if body == "" {
		return domain.Comment{}, errors.New("comment body required")
	}
	p, err := e.Dir.EnsureForActor(ctx, actor.ID)
	if err != nil {
		return domain.Comment{}, err
	}
	c := domain.Comment{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		AuthorID:  &p.ID,
		Body:      body,
		CreatedAt: e.now().UTC().Format(time.RFC3339),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return c, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertComment(ctx, tx, c); err != nil {
		return c, err
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	e.Activity.Task(ctx, domain.ActivityLogEntry{
		TaskID:      taskID,
		ActorID:     &p.ID,
		Action:      "commented",
		Description: "added a comment",
	})
	return c, nil
}

// LogTime records durable work hours against a task.
func (e Engine) LogTime(ctx context.Context, actor domain.Actor, taskID string, hours float64) (domain.TimeLog, error) {
	if hours <= 0 {
		return domain.TimeLog{}, errors.New("hours must be positive")
	}
	if _, err := e.GetTask(ctx, actor, taskID); err != nil {
		return domain.TimeLog{}, err
	}
	p, err := e.Dir.EnsureForActor(ctx, actor.ID)
	if err != nil {
		return domain.TimeLog{}, err
	}
	tl := domain.TimeLog{
		ID:            uuid.New().String(),
		TaskID:        taskID,
		ParticipantID: p.ID,
		Hours:         hours,
		CreatedAt:     e.now().UTC().Format(time.RFC3339),
	}
	return tl, e.Repo.InsertTimeLog(ctx, tl)
}

// AssignRole changes a target actor's role, guarded against privilege
// escalation and recorded in the audit log.
func (e Engine) AssignRole(ctx context.Context, actor domain.Actor, targetActorID, newRole string) error {
	if err := e.Access.GuardRoleAssignment(actor, newRole); err != nil {
		return err
	}
	target, err := e.Repo.GetActor(ctx, targetActorID)
	if err != nil {
		return err
	}
	if err := e.Repo.UpdateActorRole(ctx, targetActorID, newRole); err != nil {
		return err
	}
	e.Activity.Audit(ctx, domain.AuditLogEntry{
		Action:   "role_assigned",
		ActorID:  actor.ID,
		TargetID: targetActorID,
		Details:  fmt.Sprintf("role %s -> %s", target.Role, newRole),
	})
	return nil
}

// ReplaceSettings swaps the whole settings blob. Permission profiles
// may only be edited by the top role; the replace is whole-blob, not
// a field patch.
func (e Engine) ReplaceSettings(ctx context.Context, actor domain.Actor, s *config.Settings) error {
	if !access.IsTopRole(actor.Role) {
		if err := e.Access.RequireCapability(e.settingsOrRestrictive(ctx), actor, config.CapAccessSettings); err != nil {
			return err
		}
		current, err := e.Settings(ctx)
		if err != nil {
			return err
		}
		if !equalPermissions(current.Permissions, s.Permissions) {
			return access.ForbiddenError{Reason: "only the top role may edit permission profiles"}
		}
	}
	if err := e.Repo.UpsertSettings(ctx, e.OrgID, s); err != nil {
		return err
	}
	e.Activity.Audit(ctx, domain.AuditLogEntry{
		Action:  "settings_updated",
		ActorID: actor.ID,
		Details: "settings blob replaced",
	})
	return nil
}

// ReplaceAutomationRules swaps the escalation rule list, leaving the
// rest of the settings blob untouched. Guarded by manageTaskSettings
// rather than accessSettings: rules are workflow automation, not
// permission configuration.
func (e Engine) ReplaceAutomationRules(ctx context.Context, actor domain.Actor, rules []config.AutomationRule) (*config.Settings, error) {
	s, err := e.Settings(ctx)
	if err != nil {
		return nil, err
	}
	if err := e.Access.RequireCapability(s, actor, config.CapManageTaskSettings); err != nil {
		return nil, err
	}
	s.AutomationRules = rules
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := e.Repo.UpsertSettings(ctx, e.OrgID, s); err != nil {
		return nil, err
	}
	e.Activity.Audit(ctx, domain.AuditLogEntry{
		Action:  "rules_updated",
		ActorID: actor.ID,
		Details: fmt.Sprintf("%d automation rules", len(rules)),
	})
	return s, nil
}

// Leaderboard serves ranked participant statistics through the TTL
// cache.
func (e Engine) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	entries, err := e.Stats.Get(e.now(), func() ([]domain.LeaderboardEntry, error) {
		return e.Repo.Leaderboard(ctx, statsCacheSize)
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(entries) {
		return entries[:limit], nil
	}
	return entries, nil
}

// --- display helpers ---

func (e Engine) participantName(ctx context.Context, id *string) string {
	if id == nil {
		return "unassigned"
	}
	p, err := e.Repo.GetParticipant(ctx, *id)
	if err != nil {
		return *id
	}
	a, err := e.Repo.GetActor(ctx, p.ActorID)
	if err != nil || a.Name == "" {
		return *id
	}
	return a.Name
}

func (e Engine) projectName(ctx context.Context, id string) string {
	p, err := e.Repo.GetProject(ctx, id)
	if err != nil || p.Name == "" {
		return id
	}
	return p.Name
}

func (e Engine) releaseName(ctx context.Context, id *string) string {
	if id == nil {
		return "none"
	}
	r, err := e.Repo.GetRelease(ctx, *id)
	if err != nil || r.Name == "" {
		return *id
	}
	return r.Name
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func equalPermissions(a, b map[string]config.PermissionProfile) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}
