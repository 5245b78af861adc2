package repo

import (
	"context"
	"database/sql"

	"taskgate/internal/domain"
)

func (r Repo) ListActivity(ctx context.Context, taskID string, limit int) ([]domain.ActivityLogEntry, error) {
	query := `SELECT id,task_id,actor_id,action,field,old_value,new_value,description,created_at FROM activity_log WHERE task_id=? ORDER BY created_at DESC, id DESC`
	args := []any{taskID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ActivityLogEntry
	for rows.Next() {
		var e domain.ActivityLogEntry
		var actor sql.NullString
		if err := rows.Scan(&e.ID, &e.TaskID, &actor, &e.Action, &e.Field, &e.OldValue, &e.NewValue, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		if actor.Valid {
			e.ActorID = &actor.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r Repo) ListAudit(ctx context.Context, limit int) ([]domain.AuditLogEntry, error) {
	query := `SELECT id,action,actor_id,target_id,details,created_at FROM audit_log ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.AuditLogEntry
	for rows.Next() {
		var e domain.AuditLogEntry
		if err := rows.Scan(&e.ID, &e.Action, &e.ActorID, &e.TargetID, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r Repo) ListNotifications(ctx context.Context, participantID string) ([]domain.Notification, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,participant_id,kind,message,task_id,created_at FROM notifications WHERE participant_id=? ORDER BY created_at DESC, id DESC`, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.ParticipantID, &n.Kind, &n.Message, &n.TaskID, &n.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, rows.Err()
}
