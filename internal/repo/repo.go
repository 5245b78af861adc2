package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"taskgate/internal/access"
	"taskgate/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func nullableIntPtr(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

// --- projects & releases ---

func (r Repo) InsertProject(ctx context.Context, p domain.Project) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO projects(id,name,status,created_at) VALUES (?,?,?,?)`,
		p.ID, p.Name, p.Status, p.CreatedAt)
	return err
}

func (r Repo) GetProject(ctx context.Context, id string) (domain.Project, error) {
	var p domain.Project
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,status,created_at FROM projects WHERE id=?`, id).
		Scan(&p.ID, &p.Name, &p.Status, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

func (r Repo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,status,created_at FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) InsertRelease(ctx context.Context, rel domain.Release) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO releases(id,project_id,name,created_at) VALUES (?,?,?,?)`,
		rel.ID, rel.ProjectID, rel.Name, rel.CreatedAt)
	return err
}

func (r Repo) GetRelease(ctx context.Context, id string) (domain.Release, error) {
	var rel domain.Release
	err := r.DB.QueryRowContext(ctx, `SELECT id,project_id,name,created_at FROM releases WHERE id=?`, id).
		Scan(&rel.ID, &rel.ProjectID, &rel.Name, &rel.CreatedAt)
	if err == sql.ErrNoRows {
		return rel, ErrNotFound
	}
	return rel, err
}

// --- tasks ---

const taskColumns = `id,project_id,parent_id,release_id,type,title,description,status,priority,assignee_id,reporter_id,business_value,acceptance_criteria,tags,component,estimated_hours,due_date,completed_at,xp_earned,created_at,updated_at`

func scanTask(scan func(dest ...any) error) (domain.Task, error) {
	var t domain.Task
	var parentID, releaseID, assigneeID, dueDate, completedAt sql.NullString
	var businessValue, xpEarned sql.NullInt64
	err := scan(&t.ID, &t.ProjectID, &parentID, &releaseID, &t.Type, &t.Title, &t.Description,
		&t.Status, &t.Priority, &assigneeID, &t.ReporterID, &businessValue, &t.AcceptanceCriteria,
		&t.Tags, &t.Component, &t.EstimatedHours, &dueDate, &completedAt, &xpEarned,
		&t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	if parentID.Valid {
		t.ParentID = &parentID.String
	}
	if releaseID.Valid {
		t.ReleaseID = &releaseID.String
	}
	if assigneeID.Valid {
		t.AssigneeID = &assigneeID.String
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.String
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.String
	}
	if businessValue.Valid {
		v := int(businessValue.Int64)
		t.BusinessValue = &v
	}
	if xpEarned.Valid {
		v := int(xpEarned.Int64)
		t.XPEarned = &v
	}
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.ProjectID, nullableStringPtr(t.ParentID), nullableStringPtr(t.ReleaseID), t.Type, t.Title, t.Description,
		t.Status, t.Priority, nullableStringPtr(t.AssigneeID), t.ReporterID, nullableIntPtr(t.BusinessValue),
		t.AcceptanceCriteria, t.Tags, t.Component, t.EstimatedHours, nullableStringPtr(t.DueDate),
		nullableStringPtr(t.CompletedAt), nullableIntPtr(t.XPEarned), t.CreatedAt, t.UpdatedAt)
	return err
}

func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `UPDATE tasks SET project_id=?, parent_id=?, release_id=?, type=?, title=?, description=?, status=?, priority=?, assignee_id=?, reporter_id=?, business_value=?, acceptance_criteria=?, tags=?, component=?, estimated_hours=?, due_date=?, completed_at=?, xp_earned=?, updated_at=? WHERE id=?`,
		t.ProjectID, nullableStringPtr(t.ParentID), nullableStringPtr(t.ReleaseID), t.Type, t.Title, t.Description,
		t.Status, t.Priority, nullableStringPtr(t.AssigneeID), t.ReporterID, nullableIntPtr(t.BusinessValue),
		t.AcceptanceCriteria, t.Tags, t.Component, t.EstimatedHours, nullableStringPtr(t.DueDate),
		nullableStringPtr(t.CompletedAt), nullableIntPtr(t.XPEarned), t.UpdatedAt, t.ID)
	return err
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	return scanTask(row.Scan)
}

func (r Repo) GetTaskTx(ctx context.Context, tx *sql.Tx, id string) (domain.Task, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	return scanTask(row.Scan)
}

// ListTasksOptions narrows a task listing. Visibility is AND-ed into
// the query and must always be set by the caller.
type ListTasksOptions struct {
	Visibility access.Filter
	ProjectID  string
	Status     string
	AssigneeID string
	Limit      int
}

func (r Repo) ListTasks(ctx context.Context, opts ListTasksOptions) ([]domain.Task, error) {
	clauses := []string{"1=1"}
	var args []any
	if clause, vargs := opts.Visibility.SQL(); clause != "" {
		clauses = append(clauses, clause)
		args = append(args, vargs...)
	}
	if opts.ProjectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, opts.ProjectID)
	}
	if opts.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, opts.Status)
	}
	if opts.AssigneeID != "" {
		clauses = append(clauses, "assignee_id=?")
		args = append(args, opts.AssigneeID)
	}
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY created_at DESC, id DESC`
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// ListOverdueTasks selects escalation candidates: not done, due before
// cutoff, and not already assigned to the exclusion target. scopeAssignee
// further restricts to one current assignee when non-empty.
func (r Repo) ListOverdueTasks(ctx context.Context, cutoff, excludeAssignee, scopeAssignee string) ([]domain.Task, error) {
	clauses := []string{"status != ?", "due_date IS NOT NULL", "due_date < ?"}
	args := []any{domain.StatusDone, cutoff}
	if excludeAssignee != "" {
		clauses = append(clauses, "(assignee_id IS NULL OR assignee_id != ?)")
		args = append(args, excludeAssignee)
	}
	if scopeAssignee != "" {
		clauses = append(clauses, "assignee_id = ?")
		args = append(args, scopeAssignee)
	}
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY due_date ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// AssignedProjectIDs returns the distinct projects where the participant
// is assignee on at least one task. Part of the access.Store contract.
func (r Repo) AssignedProjectIDs(ctx context.Context, participantID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT DISTINCT project_id FROM tasks WHERE assignee_id=?`, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- checklist items, attachments, comments, time logs ---

func (r Repo) ListChecklistItems(ctx context.Context, taskID string) ([]domain.ChecklistItem, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,task_id,title,done,position FROM checklist_items WHERE task_id=? ORDER BY position`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ChecklistItem
	for rows.Next() {
		var c domain.ChecklistItem
		if err := rows.Scan(&c.ID, &c.TaskID, &c.Title, &c.Done, &c.Position); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) InsertChecklistItem(ctx context.Context, tx *sql.Tx, c domain.ChecklistItem) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO checklist_items(id,task_id,title,done,position) VALUES (?,?,?,?,?)`,
		c.ID, c.TaskID, c.Title, c.Done, c.Position)
	return err
}

func (r Repo) ListAttachments(ctx context.Context, taskID string) ([]domain.Attachment, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,task_id,file_name,file_path,created_at FROM attachments WHERE task_id=? ORDER BY created_at`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Attachment
	for rows.Next() {
		var a domain.Attachment
		if err := rows.Scan(&a.ID, &a.TaskID, &a.FileName, &a.FilePath, &a.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) InsertAttachment(ctx context.Context, tx *sql.Tx, a domain.Attachment) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO attachments(id,task_id,file_name,file_path,created_at) VALUES (?,?,?,?,?)`,
		a.ID, a.TaskID, a.FileName, a.FilePath, a.CreatedAt)
	return err
}

func (r Repo) InsertComment(ctx context.Context, tx *sql.Tx, c domain.Comment) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO comments(id,task_id,author_id,body,created_at) VALUES (?,?,?,?,?)`,
		c.ID, c.TaskID, nullableStringPtr(c.AuthorID), c.Body, c.CreatedAt)
	return err
}

func (r Repo) ListComments(ctx context.Context, taskID string) ([]domain.Comment, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,task_id,author_id,body,created_at FROM comments WHERE task_id=? ORDER BY created_at`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Comment
	for rows.Next() {
		var c domain.Comment
		var author sql.NullString
		if err := rows.Scan(&c.ID, &c.TaskID, &author, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		if author.Valid {
			c.AuthorID = &author.String
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) InsertTimeLog(ctx context.Context, tl domain.TimeLog) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO time_logs(id,task_id,participant_id,hours,created_at) VALUES (?,?,?,?,?)`,
		tl.ID, tl.TaskID, tl.ParticipantID, tl.Hours, tl.CreatedAt)
	return err
}

// SumTimeLogHours returns the total logged hours for a task and whether
// any durable time logs exist at all.
func (r Repo) SumTimeLogHours(ctx context.Context, taskID string) (float64, bool, error) {
	var total sql.NullFloat64
	var count int
	err := r.DB.QueryRowContext(ctx, `SELECT SUM(hours), COUNT(*) FROM time_logs WHERE task_id=?`, taskID).
		Scan(&total, &count)
	if err != nil {
		return 0, false, err
	}
	if count == 0 {
		return 0, false, nil
	}
	return total.Float64, true, nil
}
