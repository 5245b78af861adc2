package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskgate/internal/config"
	"taskgate/internal/domain"
	"taskgate/internal/repo"
)

// ResolveActorAndSettings ensures the workspace has usable settings and
// an actor record for the caller, seeding both on first run. The very
// first actor in an empty directory becomes the administrator so a
// fresh workspace is never locked out; later unknown actors come in as
// viewers.
func ResolveActorAndSettings(ctx context.Context, r repo.Repo, actorID string) (domain.Actor, *config.Settings, error) {
	if actorID == "" {
		actorID = "local-user"
	}
	settings, err := r.GetSettings(ctx, repo.DefaultOrgID)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return domain.Actor{}, nil, err
		}
		settings = config.Default()
		if err := r.UpsertSettings(ctx, repo.DefaultOrgID, settings); err != nil {
			return domain.Actor{}, nil, fmt.Errorf("seed settings: %w", err)
		}
	}
	actor, err := r.GetActor(ctx, actorID)
	if err == nil {
		return actor, settings, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return domain.Actor{}, nil, err
	}
	existing, err := r.ListActors(ctx)
	if err != nil {
		return domain.Actor{}, nil, err
	}
	role := "viewer"
	if len(existing) == 0 {
		role = "admin"
	}
	actor = domain.Actor{
		ID:        actorID,
		Name:      actorID,
		Role:      role,
		IsActive:  true,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := r.InsertActor(ctx, actor); err != nil {
		return domain.Actor{}, nil, fmt.Errorf("create actor %s: %w", actorID, err)
	}
	return actor, settings, nil
}
