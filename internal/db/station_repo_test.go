package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"clima/internal/types"
)

// --- Mock DBTX ---

type mockDBTX struct {
	mock.Mock
}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDBTX) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if r := args.Get(0); r != nil {
		return r.(pgx.Rows), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// --- Mock Row ---

type mockRow struct {
	scanErr error
	scanFn  func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error {
	if r.scanFn != nil {
		return r.scanFn(dest...)
	}
	return r.scanErr
}

// --- StationRepository Tests ---

func TestStationRepository_GetByID_Found(t *testing.T) {
	db := new(mockDBTX)
	repo := NewStationRepository(db)

	row := &mockRow{
		scanFn: func(dest ...any) error {
			*dest[0].(*int64) = 5
			*dest[1].(*string) = "Bogotá"
			*dest[2].(*float64) = 4.6
			*dest[3].(*float64) = -74.1
			return nil
		},
	}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{int64(5)}).Return(row)

	station, err := repo.GetByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, &types.Station{ID: 5, Name: "Bogotá", Latitude: 4.6, Longitude: -74.1}, station)
	db.AssertExpectations(t)
}

func TestStationRepository_GetByID_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewStationRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	station, err := repo.GetByID(context.Background(), 999)
	require.Error(t, err)
	assert.Nil(t, station)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundStation, appErr.Code)
	assert.Equal(t, 404, appErr.HTTPStatus())
}

func TestStationRepository_GetByID_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewStationRepository(db)

	connErr := errors.New("connection reset by peer")
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: connErr})

	_, err := repo.GetByID(context.Background(), 1)
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
	assert.ErrorIs(t, err, connErr)
}

func TestStationRepository_Ping(t *testing.T) {
	db := new(mockDBTX)
	repo := NewStationRepository(db)

	db.On("QueryRow", mock.Anything, "SELECT 1", mock.Anything).
		Return(&mockRow{scanFn: func(dest ...any) error {
			*dest[0].(*int) = 1
			return nil
		}}).Once()
	db.On("QueryRow", mock.Anything, "SELECT 1", mock.Anything).
		Return(&mockRow{scanErr: errors.New("down")}).Once()

	assert.NoError(t, repo.Ping(context.Background()))

	err := repo.Ping(context.Background())
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}
