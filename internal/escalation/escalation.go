// Package escalation reassigns overdue tasks according to the
// configured automation rules. It runs from a timer, never from a
// request path.
package escalation

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskgate/internal/access"
	"taskgate/internal/config"
	"taskgate/internal/directory"
	"taskgate/internal/domain"
	"taskgate/internal/engine"
	"taskgate/internal/repo"
)

// AuthorStrategy is one way of picking the participant that authors
// system-generated comments. Returns nil when it has no candidate.
type AuthorStrategy func(ctx context.Context, r repo.Repo) (*string, error)

// DefaultAuthorStrategies is the ordered chain evaluated on each
// sweep: a dedicated system actor, then any administrator, then any
// participant at all. First hit wins.
func DefaultAuthorStrategies() []AuthorStrategy {
	return []AuthorStrategy{systemActorAuthor, adminAuthor, anyParticipantAuthor}
}

func systemActorAuthor(ctx context.Context, r repo.Repo) (*string, error) {
	actors, err := r.ListActors(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range actors {
		if strings.Contains(strings.ToLower(a.Name), "system") || strings.Contains(strings.ToLower(a.Email), "system") {
			p, err := r.ParticipantByActor(ctx, a.ID)
			if err != nil {
				return nil, err
			}
			if p != nil {
				return &p.ID, nil
			}
		}
	}
	return nil, nil
}

func adminAuthor(ctx context.Context, r repo.Repo) (*string, error) {
	participants, err := r.ListParticipants(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range participants {
		if access.IsTopRole(p.Role) {
			id := p.ID
			return &id, nil
		}
	}
	return nil, nil
}

func anyParticipantAuthor(ctx context.Context, r repo.Repo) (*string, error) {
	participants, err := r.ListParticipants(ctx)
	if err != nil {
		return nil, err
	}
	if len(participants) == 0 {
		return nil, nil
	}
	id := participants[0].ID
	return &id, nil
}

// Sweeper executes one escalation pass over all configured rules.
type Sweeper struct {
	Engine  engine.Engine
	Authors []AuthorStrategy
	Now     func() time.Time
	Logger  *log.Logger
}

func NewSweeper(e engine.Engine) Sweeper {
	return Sweeper{Engine: e, Authors: DefaultAuthorStrategies(), Now: e.Now}
}

func (s Sweeper) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s Sweeper) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}

// Run executes the sweep. One bad rule does not abort the scan and
// one bad task does not abort its rule.
func (s Sweeper) Run(ctx context.Context) error {
	settings, err := s.Engine.Settings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	for i, rule := range settings.AutomationRules {
		if err := s.runRule(ctx, rule); err != nil {
			s.logger().Printf("escalation rule %d skipped: %v", i, err)
		}
	}
	return nil
}

func (s Sweeper) runRule(ctx context.Context, rule config.AutomationRule) error {
	if rule.Action != "assign" {
		return fmt.Errorf("unsupported action %q", rule.Action)
	}
	target, err := s.Engine.Dir.Resolve(ctx, directory.ParseRef(rule.TargetRef))
	if err != nil {
		return fmt.Errorf("resolve target %s: %w", rule.TargetRef, err)
	}
	cutoff := s.now().UTC().Add(-rule.Duration()).Format(time.RFC3339)

	scopeAssignee := ""
	if rule.Scope != "" && rule.Scope != "all" {
		scoped, err := s.Engine.Dir.Resolve(ctx, directory.ParseRef(rule.Scope))
		if err != nil {
			return fmt.Errorf("resolve scope %s: %w", rule.Scope, err)
		}
		scopeAssignee = scoped.ID
	}
	// the exclusion of the target's own tasks is the loop guard: a
	// task already escalated never re-escalates to the same owner
	candidates, err := s.Engine.Repo.ListOverdueTasks(ctx, cutoff, target.ID, scopeAssignee)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return nil
	}
	author, err := s.resolveAuthor(ctx)
	if err != nil {
		return fmt.Errorf("resolve comment author: %w", err)
	}
	if author == nil {
		// system comments always carry an author; without one the
		// overdue tasks stay untouched until a participant exists
		return fmt.Errorf("no comment author available, %d overdue tasks left untouched", len(candidates))
	}
	for _, t := range candidates {
		if err := s.escalate(ctx, t, target, author, rule); err != nil {
			s.logger().Printf("escalation of task %s skipped: %v", t.ID, err)
		}
	}
	return nil
}

func (s Sweeper) resolveAuthor(ctx context.Context) (*string, error) {
	for _, strategy := range s.Authors {
		id, err := strategy(ctx, s.Engine.Repo)
		if err != nil {
			return nil, err
		}
		if id != nil {
			return id, nil
		}
	}
	return nil, nil
}

func (s Sweeper) escalate(ctx context.Context, t domain.Task, target domain.Participant, author *string, rule config.AutomationRule) error {
	now := s.now().UTC().Format(time.RFC3339)
	previous := t.AssigneeID
	t.AssigneeID = &target.ID
	t.UpdatedAt = now

	tx, err := s.Engine.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := s.Engine.Repo.UpdateTask(ctx, tx, t); err != nil {
		return err
	}
	if err := s.Engine.Repo.InsertComment(ctx, tx, domain.Comment{
		ID:        uuid.New().String(),
		TaskID:    t.ID,
		AuthorID:  author,
		Body:      fmt.Sprintf("Task overdue for more than %d %s, automatically reassigned.", rule.Threshold, rule.Unit),
		CreatedAt: now,
	}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.Engine.Activity.Task(ctx, domain.ActivityLogEntry{
		TaskID:      t.ID,
		ActorID:     nil,
		Action:      "escalated",
		Field:       "assignee",
		OldValue:    previousName(ctx, s.Engine, previous),
		NewValue:    previousName(ctx, s.Engine, &target.ID),
		Description: fmt.Sprintf("overdue task escalated after %d %s", rule.Threshold, rule.Unit),
	})
	return nil
}

func previousName(ctx context.Context, e engine.Engine, id *string) string {
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
