package access

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"taskgate/internal/config"
	"taskgate/internal/domain"
)

// ErrUnauthenticated is returned when no actor accompanies a request.
var ErrUnauthenticated = errors.New("authentication required")

// ForbiddenError indicates a capability or escalation-guard denial.
type ForbiddenError struct {
	Capability config.Capability
	Reason     string
}

func (e ForbiddenError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("capability %s required", e.Capability)
}

// Store is the participant lookup surface the resolver needs. Absence
// is reported as nil, not an error, so resolution stays total.
type Store interface {
	ParticipantByActor(ctx context.Context, actorID string) (*domain.Participant, error)
	AssignedProjectIDs(ctx context.Context, participantID string) ([]string, error)
}

// Service composes the identity resolver with the permission store
// into capability checks, view-scope predicates, and the
// privilege-escalation guard. All methods degrade to the most
// restrictive interpretation rather than failing.
type Service struct {
	Store Store
}

// ResolveProfile returns the actor's effective permission profile.
// The top role receives the fixed all-true override; everyone else
// resolves canonical key, then raw label, then the minimal default.
func (s Service) ResolveProfile(settings *config.Settings, actor domain.Actor) config.PermissionProfile {
	if IsTopRole(actor.Role) {
		return config.FullProfile()
	}
	if settings == nil || settings.Permissions == nil {
		return config.MinimalProfile()
	}
	if p, ok := settings.Permissions[NormalizeRole(actor.Role)]; ok {
		return p
	}
	if p, ok := settings.Permissions[actor.Role]; ok {
		return p
	}
	return config.MinimalProfile()
}

// HasCapability reports whether the actor's profile grants c.
func (s Service) HasCapability(settings *config.Settings, actor domain.Actor, c config.Capability) bool {
	return s.ResolveProfile(settings, actor).Allows(c)
}

// RequireCapability returns a ForbiddenError unless the actor's
// profile grants c.
func (s Service) RequireCapability(settings *config.Settings, actor domain.Actor, c config.Capability) error {
	if !s.HasCapability(settings, actor, c) {
		return ForbiddenError{Capability: c}
	}
	return nil
}

// BuildTaskFilter derives the visibility predicate for the actor.
// Restricted scopes with no resolvable participant yield the
// never-true predicate, never an unrestricted one.
func (s Service) BuildTaskFilter(ctx context.Context, settings *config.Settings, actor domain.Actor) (Filter, error) {
	profile := s.ResolveProfile(settings, actor)
	if IsTopRole(actor.Role) || profile.ViewScope == config.ScopeAll {
		return Filter{Kind: FilterAll}, nil
	}
	p, err := s.Store.ParticipantByActor(ctx, actor.ID)
	if err != nil {
		return Filter{Kind: FilterNothing}, err
	}
	if p == nil {
		return Filter{Kind: FilterNothing}, nil
	}
	switch profile.ViewScope {
	case config.ScopeAssignedOnly:
		return Filter{Kind: FilterAssignee, ParticipantID: p.ID}, nil
	case config.ScopeProject:
		ids, err := s.Store.AssignedProjectIDs(ctx, p.ID)
		if err != nil {
			return Filter{Kind: FilterNothing}, err
		}
		if len(ids) == 0 {
			// zero assigned projects narrows to own tasks, it
			// never widens to unrestricted
			return Filter{Kind: FilterAssignee, ParticipantID: p.ID}, nil
		}
		sort.Strings(ids)
		return Filter{Kind: FilterProjects, ParticipantID: p.ID, ProjectIDs: ids}, nil
	default:
		return Filter{Kind: FilterNothing}, nil
	}
}

// CheckTask is the single-record variant of BuildTaskFilter for
// detail views.
func (s Service) CheckTask(ctx context.Context, settings *config.Settings, actor domain.Actor, t domain.Task) (bool, error) {
	f, err := s.BuildTaskFilter(ctx, settings, actor)
	if err != nil {
		return false, err
	}
	return f.Matches(t), nil
}

// GuardRoleAssignment prevents privilege escalation: the top role may
// grant anything, everyone else only strictly lower-ranked roles. An
// empty requested role is a no-op.
func (s Service) GuardRoleAssignment(actor domain.Actor, requestedRole string) error {
	if requestedRole == "" {
		return nil
	}
	if IsTopRole(actor.Role) {
		return nil
	}
	if LevelOf(requestedRole) >= LevelOf(actor.Role) {
		return ForbiddenError{
			Reason: fmt.Sprintf("cannot grant role %s at or above own rank", requestedRole),
		}
	}
	return nil
}
