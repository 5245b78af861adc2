// Package directory maps actor identities to durable workflow
// participants, materializing one lazily on first reference.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskgate/internal/domain"
	"taskgate/internal/repo"
)

// VirtualPrefix tags a reference that names an actor with no
// participant yet.
const VirtualPrefix = "virtual:"

// Ref is a tagged participant reference: either a real participant id
// or a pending actor id awaiting materialization. Parsing happens once
// here instead of prefix checks scattered through business logic.
type Ref struct {
	participantID string
	actorID       string
}

// Real references an existing participant by id.
func Real(participantID string) Ref {
	return Ref{participantID: participantID}
}

// Pending references an actor whose participant may not exist yet.
func Pending(actorID string) Ref {
	return Ref{actorID: actorID}
}

// ParseRef reads a stored reference string. "virtual:<actor-id>"
// yields a pending ref; anything else is a real participant id.
func ParseRef(s string) Ref {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, VirtualPrefix); ok {
		return Pending(rest)
	}
	return Real(s)
}

func (r Ref) IsZero() bool {
	return r.participantID == "" && r.actorID == ""
}

func (r Ref) String() string {
	if r.actorID != "" {
		return VirtualPrefix + r.actorID
	}
	return r.participantID
}

// Directory resolves refs against storage.
type Directory struct {
	Repo repo.Repo
	Now  func() time.Time
}

func (d Directory) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Resolve returns the durable participant behind a ref, materializing
// one from the actor record on first use. A real ref that names no
// participant is retried as an actor id, so historical data carrying
// raw actor ids still resolves.
func (d Directory) Resolve(ctx context.Context, ref Ref) (domain.Participant, error) {
	if ref.IsZero() {
		return domain.Participant{}, fmt.Errorf("empty participant ref")
	}
	if ref.participantID != "" {
		p, err := d.Repo.GetParticipant(ctx, ref.participantID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return domain.Participant{}, err
		}
		return d.EnsureForActor(ctx, ref.participantID)
	}
	return d.EnsureForActor(ctx, ref.actorID)
}

// EnsureForActor returns the actor's participant, creating one with
// defaults copied from the actor's role if absent.
func (d Directory) EnsureForActor(ctx context.Context, actorID string) (domain.Participant, error) {
	p, err := d.Repo.GetParticipantByActor(ctx, actorID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return domain.Participant{}, err
	}
	actor, err := d.Repo.GetActor(ctx, actorID)
	if err != nil {
		return domain.Participant{}, fmt.Errorf("resolve actor %s: %w", actorID, err)
	}
	p = domain.Participant{
		ID:         uuid.New().String(),
		ActorID:    actor.ID,
		Role:       actor.Role,
		Experience: 0,
		Level:      1,
		CreatedAt:  d.now().UTC().Format(time.RFC3339),
	}
	if err := d.Repo.InsertParticipant(ctx, p); err != nil {
		return domain.Participant{}, fmt.Errorf("materialize participant for actor %s: %w", actorID, err)
	}
	return p, nil
}
