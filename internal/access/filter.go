package access

import "taskgate/internal/domain"

// FilterKind enumerates the shapes a visibility predicate can take.
type FilterKind int

const (
	// FilterAll applies no restriction.
	FilterAll FilterKind = iota
	// FilterNothing is the vacuous, never-true predicate used when a
	// restricted actor has no workflow identity to match against.
	FilterNothing
	// FilterAssignee matches tasks assigned to one participant.
	FilterAssignee
	// FilterProjects matches tasks in a fixed project set.
	FilterProjects
)

// Filter is the view-scope predicate the calling CRUD layer ANDs into
// any task query. It also evaluates single records for detail views.
type Filter struct {
	Kind          FilterKind
	ParticipantID string
	ProjectIDs    []string
}

// SQL renders the predicate as a WHERE fragment with placeholders.
// FilterAll renders empty (no restriction).
func (f Filter) SQL() (string, []any) {
	switch f.Kind {
	case FilterAll:
		return "", nil
	case FilterAssignee:
		return "assignee_id = ?", []any{f.ParticipantID}
	case FilterProjects:
		if len(f.ProjectIDs) == 0 {
			return "1=0", nil
		}
		clause := "project_id IN (?" + repeat(",?", len(f.ProjectIDs)-1) + ")"
		args := make([]any, len(f.ProjectIDs))
		for i, id := range f.ProjectIDs {
			args[i] = id
		}
		return clause, args
	default:
		return "1=0", nil
	}
}

// Matches evaluates the predicate against a single task.
func (f Filter) Matches(t domain.Task) bool {
	switch f.Kind {
	case FilterAll:
		return true
	case FilterAssignee:
		return t.AssigneeID != nil && *t.AssigneeID == f.ParticipantID
	case FilterProjects:
		for _, id := range f.ProjectIDs {
			if t.ProjectID == id {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
