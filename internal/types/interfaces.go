package types

import "context"

// StationRepository resolves stations by primary key.
//
// GetByID returns an AppError with ErrCodeNotFoundStation when no row
// matches, and ErrCodeInternalDB for any other storage failure.
type StationRepository interface {
	GetByID(ctx context.Context, id int64) (*Station, error)
}
