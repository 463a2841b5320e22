package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCodes struct {
	bySector map[uuid.UUID][]string
	all      []string
	err      error
}

func (s stubCodes) Codes(_ context.Context, sectorID *uuid.UUID) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	if sectorID == nil {
		return s.all, nil
	}
	return s.bySector[*sectorID], nil
}

func TestOpenForSector(t *testing.T) {
	ctx := context.Background()
	sector := uuid.New()
	src := stubCodes{
		bySector: map[uuid.UUID][]string{sector: {"pat-1", "PAT-2"}},
		all:      []string{"PAT-1", "PAT-2", "PAT-3"},
	}
	e := NewEngine(NewMemoryStore())

	id, err := e.OpenForSector(ctx, src, "TI", sector, "ana")
	require.NoError(t, err)
	snap, err := e.Get(id)
	require.NoError(t, err)
	require.NotNil(t, snap.Session.SectorID)
	assert.Equal(t, sector, *snap.Session.SectorID)
	out, err := e.Outcome(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"PAT-1", "PAT-2"}, out.Missing)

	id, err = e.OpenForRegistry(ctx, src, "Geral", "ana")
	require.NoError(t, err)
	out, _ = e.Outcome(id)
	assert.Len(t, out.Missing, 3)
}

func TestOpenForSector_EmptyOrFailing(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(NewMemoryStore())

	_, err := e.OpenForSector(ctx, stubCodes{}, "vazio", uuid.New(), "")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = e.OpenForRegistry(ctx, stubCodes{}, "vazio", "")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	boom := errors.New("db down")
	_, err = e.OpenForRegistry(ctx, stubCodes{err: boom}, "x", "")
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, e.List(""))
}
