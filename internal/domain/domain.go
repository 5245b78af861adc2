package domain

// Task statuses form a closed set. The state machine allows any
// transition between two members; unknown targets are rejected.
const (
	StatusBacklog    = "backlog"
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusInReview   = "in_review"
	StatusTesting    = "testing"
	StatusDone       = "done"
	StatusBlocked    = "blocked"
	StatusCancelled  = "cancelled"
)

// Statuses lists every valid task status.
var Statuses = []string{
	StatusBacklog, StatusTodo, StatusInProgress, StatusInReview,
	StatusTesting, StatusDone, StatusBlocked, StatusCancelled,
}

// ValidStatus reports whether s is a member of the closed status set.
func ValidStatus(s string) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Actor is an authenticated identity, owned by the external identity
// store. The engine only reads it; its role label is free-form and may
// carry historical casing variants.
type Actor struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// Participant is the durable workflow identity behind task
// assignee/reporter fields. An Actor has zero or one Participant.
type Participant struct {
	ID         string `json:"id"`
	ActorID    string `json:"actor_id"`
	Role       string `json:"role"`
	Experience int    `json:"experience"`
	Level      int    `json:"level"`
	CreatedAt  string `json:"created_at" format:"date-time"`
}

type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Release struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Task struct {
	ID                 string  `json:"id"`
	ProjectID          string  `json:"project_id"`
	ParentID           *string `json:"parent_id,omitempty"`
	ReleaseID          *string `json:"release_id,omitempty"`
	Type               string  `json:"type"`
	Title              string  `json:"title"`
	Description        string  `json:"description,omitempty"`
	Status             string  `json:"status" enum:"backlog,todo,in_progress,in_review,testing,done,blocked,cancelled"`
	Priority           string  `json:"priority"`
	AssigneeID         *string `json:"assignee_id,omitempty"`
	ReporterID         string  `json:"reporter_id"`
	BusinessValue      *int    `json:"business_value,omitempty"`
	AcceptanceCriteria string  `json:"acceptance_criteria,omitempty"`
	Tags               string  `json:"tags,omitempty"`
	Component          string  `json:"component,omitempty"`
	EstimatedHours     float64 `json:"estimated_hours,omitempty"`
	DueDate            *string `json:"due_date,omitempty" format:"date-time"`
	CompletedAt        *string `json:"completed_at,omitempty" format:"date-time"`
	XPEarned           *int    `json:"xp_earned,omitempty"`
	CreatedAt          string  `json:"created_at" format:"date-time"`
	UpdatedAt          string  `json:"updated_at" format:"date-time"`
}

// ChecklistItem belongs to a task and is cloned with it.
type ChecklistItem struct {
	ID       string `json:"id"`
	TaskID   string `json:"task_id"`
	Title    string `json:"title"`
	Done     bool   `json:"done"`
	Position int    `json:"position"`
}

// Attachment is a stored file reference; cloning a task deep-copies
// the underlying file, not just the row.
type Attachment struct {
	ID        string `json:"id"`
	TaskID    string `json:"task_id"`
	FileName  string `json:"file_name"`
	FilePath  string `json:"file_path"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Comment struct {
	ID        string  `json:"id"`
	TaskID    string  `json:"task_id"`
	AuthorID  *string `json:"author_id,omitempty"`
	Body      string  `json:"body"`
	CreatedAt string  `json:"created_at" format:"date-time"`
}

// TimeLog is a durable work-duration record; sums feed the scorer's
// actual-hours computation when present.
type TimeLog struct {
	ID            string  `json:"id"`
	TaskID        string  `json:"task_id"`
	ParticipantID string  `json:"participant_id"`
	Hours         float64 `json:"hours"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
}

// ActivityLogEntry is an append-only, task-keyed record of one field
// mutation. Old/new values are display strings resolved at log time,
// never raw ids. A nil ActorID marks a system-originated entry.
type ActivityLogEntry struct {
	ID          string  `json:"id"`
	TaskID      string  `json:"task_id"`
	ActorID     *string `json:"actor_id,omitempty"`
	Action      string  `json:"action"`
	Field       string  `json:"field,omitempty"`
	OldValue    string  `json:"old_value,omitempty"`
	NewValue    string  `json:"new_value,omitempty"`
	Description string  `json:"description"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
}

// AuditLogEntry is an append-only record of an administrative action
// (settings changes, role assignment, user CRUD).
type AuditLogEntry struct {
	ID        string `json:"id"`
	Action    string `json:"action"`
	ActorID   string `json:"actor_id"`
	TargetID  string `json:"target_id,omitempty"`
	Details   string `json:"details,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// Notification is a side-effect write only; delivery is out of scope.
type Notification struct {
	ID            string `json:"id"`
	ParticipantID string `json:"participant_id"`
	Kind          string `json:"kind"`
	Message       string `json:"message"`
	TaskID        string `json:"task_id,omitempty"`
	CreatedAt     string `json:"created_at" format:"date-time"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// LeaderboardEntry is a computed statistics row, not a stored record.
type LeaderboardEntry struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	Experience    int    `json:"experience"`
	Level         int    `json:"level"`
	TasksDone     int    `json:"tasks_done"`
}
