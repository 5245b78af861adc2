// Package activity provides the append-only activity, audit and
// notification writers. Writes are best-effort: a failed write is
// reported to the operator log, never propagated, so logging can
// never fail the operation it describes.
package activity

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/google/uuid"

	"taskgate/internal/domain"
)

type Writer struct {
	DB     *sql.DB
	Now    func() time.Time
	Logger *log.Logger
}

func (w Writer) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

func (w Writer) logger() *log.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return log.Default()
}

func nullableStringPtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

// Task appends one activity entry. Entries are immutable once written.
func (w Writer) Task(ctx context.Context, e domain.ActivityLogEntry) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt == "" {
		e.CreatedAt = w.now().UTC().Format(time.RFC3339)
	}
	_, err := w.DB.ExecContext(ctx, `INSERT INTO activity_log(id,task_id,actor_id,action,field,old_value,new_value,description,created_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		e.ID, e.TaskID, nullableStringPtr(e.ActorID), e.Action, e.Field, e.OldValue, e.NewValue, e.Description, e.CreatedAt)
	if err != nil {
		w.logger().Printf("activity log write failed (task=%s action=%s): %v", e.TaskID, e.Action, err)
	}
}

// Audit appends one administrative audit entry.
func (w Writer) Audit(ctx context.Context, e domain.AuditLogEntry) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt == "" {
		e.CreatedAt = w.now().UTC().Format(time.RFC3339)
	}
	_, err := w.DB.ExecContext(ctx, `INSERT INTO audit_log(id,action,actor_id,target_id,details,created_at) VALUES (?,?,?,?,?,?)`,
		e.ID, e.Action, e.ActorID, e.TargetID, e.Details, e.CreatedAt)
	if err != nil {
		w.logger().Printf("audit log write failed (action=%s target=%s): %v", e.Action, e.TargetID, err)
	}
}

// Notify records a notification for a participant. Creation is the
// side effect; delivery is someone else's problem.
func (w Writer) Notify(ctx context.Context, n domain.Notification) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt == "" {
		n.CreatedAt = w.now().UTC().Format(time.RFC3339)
	}
	_, err := w.DB.ExecContext(ctx, `INSERT INTO notifications(id,participant_id,kind,message,task_id,created_at) VALUES (?,?,?,?,?,?)`,
		n.ID, n.ParticipantID, n.Kind, n.Message, n.TaskID, n.CreatedAt)
	if err != nil {
		w.logger().Printf("notification write failed (participant=%s kind=%s): %v", n.ParticipantID, n.Kind, err)
	}
}
