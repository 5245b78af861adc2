package server

import (
	"taskgate/internal/config"
	"taskgate/internal/domain"
	"taskgate/internal/engine"
)

// Request payloads

type CreateTaskRequest struct {
	ProjectID          string   `json:"project_id"`
	Type               string   `json:"type,omitempty" enum:"feature,bug,testing,chore"`
	Title              string   `json:"title"`
	Description        *string  `json:"description,omitempty"`
	Priority           *string  `json:"priority,omitempty" enum:"critical,high,medium,low"`
	AssigneeRef        *string  `json:"assignee_ref,omitempty"`
	ReleaseID          *string  `json:"release_id,omitempty"`
	BusinessValue      *int     `json:"business_value,omitempty"`
	AcceptanceCriteria *string  `json:"acceptance_criteria,omitempty"`
	Tags               *string  `json:"tags,omitempty"`
	Component          *string  `json:"component,omitempty"`
	EstimatedHours     *float64 `json:"estimated_hours,omitempty"`
	DueDate            *string  `json:"due_date,omitempty" format:"date-time"`
}

type UpdateTaskRequest struct {
	Title          *string  `json:"title,omitempty"`
	Description    *string  `json:"description,omitempty"`
	Priority       *string  `json:"priority,omitempty" enum:"critical,high,medium,low"`
	Type           *string  `json:"type,omitempty" enum:"feature,bug,testing,chore"`
	AssigneeRef    *string  `json:"assignee_ref,omitempty"`
	ProjectID      *string  `json:"project_id,omitempty"`
	ReleaseID      *string  `json:"release_id,omitempty"`
	DueDate        *string  `json:"due_date,omitempty" format:"date-time"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
}

type SetTaskStatusRequest struct {
	Status string `json:"status" enum:"backlog,todo,in_progress,in_review,testing,done,blocked,cancelled"`
}

type AddCommentRequest struct {
	Body string `json:"body"`
}

type LogTimeRequest struct {
	Hours float64 `json:"hours"`
}

type AssignRoleRequest struct {
	Role string `json:"role"`
}

type DevLoginRequest struct {
	ActorID string `json:"actor_id"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

// Response payloads

type TaskResponse struct {
	ID                 string   `json:"id"`
	ProjectID          string   `json:"project_id"`
	ParentID           *string  `json:"parent_id,omitempty"`
	ReleaseID          *string  `json:"release_id,omitempty"`
	Type               string   `json:"type"`
	Title              string   `json:"title"`
	Description        string   `json:"description,omitempty"`
	Status             string   `json:"status" enum:"backlog,todo,in_progress,in_review,testing,done,blocked,cancelled"`
	Priority           string   `json:"priority"`
	AssigneeID         *string  `json:"assignee_id,omitempty"`
	ReporterID         string   `json:"reporter_id"`
	BusinessValue      *int     `json:"business_value,omitempty"`
	AcceptanceCriteria string   `json:"acceptance_criteria,omitempty"`
	Tags               string   `json:"tags,omitempty"`
	Component          string   `json:"component,omitempty"`
	EstimatedHours     float64  `json:"estimated_hours,omitempty"`
	DueDate            *string  `json:"due_date,omitempty" format:"date-time"`
	CompletedAt        *string  `json:"completed_at,omitempty" format:"date-time"`
	XPEarned           *int     `json:"xp_earned,omitempty"`
	CreatedAt          string   `json:"created_at" format:"date-time"`
	UpdatedAt          string   `json:"updated_at" format:"date-time"`
}

type WhoAmIResponse struct {
	ActorID      string   `json:"actor_id"`
	Role         string   `json:"role"`
	Capabilities []string `json:"capabilities"`
	ViewScope    string   `json:"view_scope"`
}

type ActivityEntryResponse struct {
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

type AuditEntryResponse struct {
	ID        string `json:"id"`
	Action    string `json:"action"`
	ActorID   string `json:"actor_id"`
	TargetID  string `json:"target_id,omitempty"`
	Details   string `json:"details,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type CommentResponse struct {
	ID        string  `json:"id"`
	TaskID    string  `json:"task_id"`
	AuthorID  *string `json:"author_id,omitempty"`
	Body      string  `json:"body"`
	CreatedAt string  `json:"created_at" format:"date-time"`
}

type LeaderboardEntryResponse struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	Experience    int    `json:"experience"`
	Level         int    `json:"level"`
	TasksDone     int    `json:"tasks_done"`
}

func taskResponse(t domain.Task) TaskResponse {
	return TaskResponse(t)
}

func mapTasks(items []domain.Task) []TaskResponse {
	res := make([]TaskResponse, 0, len(items))
	for _, t := range items {
		res = append(res, taskResponse(t))
	}
	return res
}

func mapActivity(items []domain.ActivityLogEntry) []ActivityEntryResponse {
	res := make([]ActivityEntryResponse, 0, len(items))
	for _, e := range items {
		res = append(res, ActivityEntryResponse(e))
	}
	return res
}

func mapAudit(items []domain.AuditLogEntry) []AuditEntryResponse {
	res := make([]AuditEntryResponse, 0, len(items))
	for _, e := range items {
		res = append(res, AuditEntryResponse(e))
	}
	return res
}

func mapComments(items []domain.Comment) []CommentResponse {
	res := make([]CommentResponse, 0, len(items))
	for _, c := range items {
		res = append(res, CommentResponse(c))
	}
	return res
}

func mapLeaderboard(items []domain.LeaderboardEntry) []LeaderboardEntryResponse {
	res := make([]LeaderboardEntryResponse, 0, len(items))
	for _, e := range items {
		res = append(res, LeaderboardEntryResponse(e))
	}
	return res
}

func createOptions(req CreateTaskRequest) engine.TaskCreateOptions {
	opts := engine.TaskCreateOptions{
		ProjectID: req.ProjectID,
		Type:      req.Type,
		Title:     req.Title,
	}
	if req.Description != nil {
		opts.Description = *req.Description
	}
	if req.Priority != nil {
		opts.Priority = *req.Priority
	}
	if req.AssigneeRef != nil {
		opts.AssigneeRef = *req.AssigneeRef
	}
	if req.ReleaseID != nil {
		opts.ReleaseID = *req.ReleaseID
	}
	opts.BusinessValue = req.BusinessValue
	if req.AcceptanceCriteria != nil {
		opts.AcceptanceCriteria = *req.AcceptanceCriteria
	}
	if req.Tags != nil {
		opts.Tags = *req.Tags
	}
	if req.Component != nil {
		opts.Component = *req.Component
	}
	if req.EstimatedHours != nil {
		opts.EstimatedHours = *req.EstimatedHours
	}
	if req.DueDate != nil {
		opts.DueDate = *req.DueDate
	}
	return opts
}

func capabilityNames(p config.PermissionProfile) []string {
	all := []config.Capability{
		config.CapCreate, config.CapEdit, config.CapDelete, config.CapComment,
		config.CapAssign, config.CapChangeStatus, config.CapArchive,
		config.CapViewReports, config.CapManageProjects, config.CapExport,
		config.CapAccessSettings, config.CapManageTaskSettings, config.CapViewAll,
	}
	names := []string{}
	for _, c := range all {
		if p.Allows(c) {
			names = append(names, string(c))
		}
	}
	return names
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
