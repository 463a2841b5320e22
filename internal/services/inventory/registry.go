package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// CodeSource lists the asset codes that should be present, optionally within one sector.
type CodeSource interface {
	Codes(ctx context.Context, sectorID *uuid.UUID) ([]string, error)
}

// OpenForSector opens a session expecting every active asset of a sector.
func (e *Engine) OpenForSector(ctx context.Context, src CodeSource, description string, sectorID uuid.UUID, performedBy string) (uuid.UUID, error) {
	codes, err := src.Codes(ctx, &sectorID)
	if err != nil {
		return uuid.Nil, err
	}
	if len(codes) == 0 {
		return uuid.Nil, fmt.Errorf("%w: sector %s has no active assets", ErrInvalidArgument, sectorID)
	}
	return e.Open(ctx, OpenInput{
		Description: description,
		Codes:       codes,
		SectorID:    &sectorID,
		PerformedBy: performedBy,
	})
}

// OpenForRegistry opens a session expecting every active asset in the registry.
func (e *Engine) OpenForRegistry(ctx context.Context, src CodeSource, description, performedBy string) (uuid.UUID, error) {
	codes, err := src.Codes(ctx, nil)
	if err != nil {
		return uuid.Nil, err
	}
	if len(codes) == 0 {
		return uuid.Nil, fmt.Errorf("%w: registry has no active assets", ErrInvalidArgument)
	}
	return e.Open(ctx, OpenInput{Description: description, Codes: codes, PerformedBy: performedBy})
}
