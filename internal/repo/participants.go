package repo

import (
	"context"
	"database/sql"

	"taskgate/internal/domain"
)

func (r Repo) InsertActor(ctx context.Context, a domain.Actor) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO actors(id,name,email,role,is_active,created_at) VALUES (?,?,?,?,?,?)`,
		a.ID, a.Name, a.Email, a.Role, a.IsActive, a.CreatedAt)
	return err
}

func (r Repo) GetActor(ctx context.Context, id string) (domain.Actor, error) {
	var a domain.Actor
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,email,role,is_active,created_at FROM actors WHERE id=?`, id).
		Scan(&a.ID, &a.Name, &a.Email, &a.Role, &a.IsActive, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	return a, err
}

func (r Repo) UpdateActorRole(ctx context.Context, id, role string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE actors SET role=? WHERE id=?`, role, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	// keep the workflow identity's role defaults in step
	_, err = r.DB.ExecContext(ctx, `UPDATE participants SET role=? WHERE actor_id=?`, role, id)
	return err
}

func (r Repo) ListActors(ctx context.Context) ([]domain.Actor, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,email,role,is_active,created_at FROM actors ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Actor
	for rows.Next() {
		var a domain.Actor
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.Role, &a.IsActive, &a.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func scanParticipant(row *sql.Row) (domain.Participant, error) {
	var p domain.Participant
	err := row.Scan(&p.ID, &p.ActorID, &p.Role, &p.Experience, &p.Level, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

func (r Repo) InsertParticipant(ctx context.Context, p domain.Participant) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO participants(id,actor_id,role,experience,level,created_at) VALUES (?,?,?,?,?,?)`,
		p.ID, p.ActorID, p.Role, p.Experience, p.Level, p.CreatedAt)
	return err
}

func (r Repo) GetParticipant(ctx context.Context, id string) (domain.Participant, error) {
	return scanParticipant(r.DB.QueryRowContext(ctx, `SELECT id,actor_id,role,experience,level,created_at FROM participants WHERE id=?`, id))
}

func (r Repo) GetParticipantByActor(ctx context.Context, actorID string) (domain.Participant, error) {
	return scanParticipant(r.DB.QueryRowContext(ctx, `SELECT id,actor_id,role,experience,level,created_at FROM participants WHERE actor_id=?`, actorID))
}

// ParticipantByActor satisfies the access.Store contract: absence is
// nil, not an error, so predicate construction stays total.
func (r Repo) ParticipantByActor(ctx context.Context, actorID string) (*domain.Participant, error) {
	p, err := r.GetParticipantByActor(ctx, actorID)
	if err == ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r Repo) ListParticipants(ctx context.Context) ([]domain.Participant, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,actor_id,role,experience,level,created_at FROM participants ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.ID, &p.ActorID, &p.Role, &p.Experience, &p.Level, &p.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// SetParticipantExperience writes experience and level. The storage
// layer clamps experience at zero so reversals can never drive it
// negative.
func (r Repo) SetParticipantExperience(ctx context.Context, tx *sql.Tx, id string, experience, level int) error {
	if experience < 0 {
		experience = 0
	}
	_, err := tx.ExecContext(ctx, `UPDATE participants SET experience=?, level=? WHERE id=?`, experience, level, id)
	return err
}

// Leaderboard returns participants ranked by experience with their
// completed-task counts.
func (r Repo) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.DB.QueryContext(ctx, `
SELECT p.id, COALESCE(a.name,''), p.experience, p.level,
       (SELECT COUNT(*) FROM tasks t WHERE t.assignee_id=p.id AND t.status=?)
FROM participants p
LEFT JOIN actors a ON a.id=p.actor_id
ORDER BY p.experience DESC, p.id
LIMIT ?`, domain.StatusDone, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.ParticipantID, &e.Name, &e.Experience, &e.Level, &e.TasksDone); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
