package history

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharecycle-console/internal/api"
	"github.com/sharecycle-console/internal/common/logger"
	"github.com/sharecycle-console/pkg/sharecycle/models"
)

type mockHistoryAPI struct {
	trips       func(ctx context.Context, query api.TripQuery) (models.TripPage, error)
	tripDetails func(ctx context.Context, tripID string) (models.TripDetails, error)
}

func (m *mockHistoryAPI) Trips(ctx context.Context, query api.TripQuery) (models.TripPage, error) {
	return m.trips(ctx, query)
}
func (m *mockHistoryAPI) TripDetails(ctx context.Context, tripID string) (models.TripDetails, error) {
	return m.tripDetails(ctx, tripID)
}

var _ API = (*mockHistoryAPI)(nil)

// pagedAPI simulates a server with a fixed number of pages, recording
// every requested page number.
func pagedAPI(totalPages int, requested *[]int) *mockHistoryAPI {
	return &mockHistoryAPI{
		trips: func(_ context.Context, query api.TripQuery) (models.TripPage, error) {
			*requested = append(*requested, query.Page)
			page := query.Page
			if totalPages > 0 && page >= totalPages {
				// out-of-range pages come back empty but still report
				// the real page count
				return models.TripPage{Page: page, TotalPages: totalPages}, nil
			}
			return models.TripPage{
				Entries:    []models.TripHistoryEntry{{TripID: "t1"}},
				Page:       page,
				TotalPages: totalPages,
			}, nil
		},
	}
}

func TestLoadPage_OutOfRangeClampsAndRefetchesOnce(t *testing.T) {
	var requested []int
	view := NewView(pagedAPI(3, &requested), 20, logger.Nop())

	require.NoError(t, view.LoadPage(context.Background(), 7))

	assert.Equal(t, []int{7, 2}, requested, "exactly one corrective re-fetch")
	current, total := view.Page()
	assert.Equal(t, 2, current)
	assert.Equal(t, 3, total)
	assert.Len(t, view.Entries(), 1)
}

func TestLoadPage_InRangeFetchesOnce(t *testing.T) {
	var requested []int
	view := NewView(pagedAPI(3, &requested), 20, logger.Nop())

	require.NoError(t, view.LoadPage(context.Background(), 1))

	assert.Equal(t, []int{1}, requested)
}

func TestApplyFilters_ResetsToFirstPage(t *testing.T) {
	var requested []int
	view := NewView(pagedAPI(5, &requested), 20, logger.Nop())
	require.NoError(t, view.LoadPage(context.Background(), 3))

	require.NoError(t, view.ApplyFilters(context.Background(), Filters{BikeType: models.BikeElectric}))

	current, _ := view.Page()
	assert.Equal(t, 0, current)
	assert.Equal(t, []int{3, 0}, requested)
}

func TestApplyFilters_PassesFiltersToQuery(t *testing.T) {
	var got api.TripQuery
	mock := &mockHistoryAPI{
		trips: func(_ context.Context, query api.TripQuery) (models.TripPage, error) {
			got = query
			return models.TripPage{}, nil
		},
	}
	view := NewView(mock, 25, logger.Nop())

	require.NoError(t, view.ApplyFilters(context.Background(), Filters{
		StartTime: "2026-08-01T00:00:00",
		EndTime:   "2026-08-29T00:00:00",
		BikeType:  models.BikeStandard,
	}))

	assert.Equal(t, "2026-08-01T00:00:00", got.StartTime)
	assert.Equal(t, models.BikeStandard, got.BikeType)
	assert.Equal(t, 25, got.PageSize)
}

func TestSetSearch_ResetsPageAndCarriesTerm(t *testing.T) {
	var queries []api.TripQuery
	mock := &mockHistoryAPI{
		trips: func(_ context.Context, query api.TripQuery) (models.TripPage, error) {
			queries = append(queries, query)
			return models.TripPage{TotalPages: 5}, nil
		},
	}
	view := NewView(mock, 20, logger.Nop())
	view.SetDebounce(0)
	require.NoError(t, view.LoadPage(context.Background(), 3))

	view.SetSearch(context.Background(), "abc123")

	require.Len(t, queries, 2)
	assert.Equal(t, "abc123", queries[1].Search)
	assert.Equal(t, 0, queries[1].Page)
}

func TestSetSearch_SameTermDoesNotReload(t *testing.T) {
	calls := 0
	mock := &mockHistoryAPI{
		trips: func(_ context.Context, _ api.TripQuery) (models.TripPage, error) {
			calls++
			return models.TripPage{}, nil
		},
	}
	view := NewView(mock, 20, logger.Nop())
	view.SetDebounce(0)

	view.SetSearch(context.Background(), "abc")
	view.SetSearch(context.Background(), "abc")
	view.SetSearch(context.Background(), " abc ")

	assert.Equal(t, 1, calls, "whitespace and repeats collapse to one reload")
}

func TestLoad_ErrorClearsEntriesAndRecordsMessage(t *testing.T) {
	mock := &mockHistoryAPI{
		trips: func(_ context.Context, _ api.TripQuery) (models.TripPage, error) {
			return models.TripPage{}, errors.New("history unavailable")
		},
	}
	view := NewView(mock, 20, logger.Nop())

	require.Error(t, view.LoadPage(context.Background(), 0))

	assert.Empty(t, view.Entries())
	listErr, _ := view.Errors()
	assert.Equal(t, "history unavailable", listErr)
}

func TestLoadDetails_RoundTrip(t *testing.T) {
	mock := &mockHistoryAPI{
		tripDetails: func(_ context.Context, tripID string) (models.TripDetails, error) {
			return models.TripDetails{
				TripHistoryEntry: models.TripHistoryEntry{TripID: tripID, TotalCost: 3.8},
				BaseCost:         1.0,
			}, nil
		},
	}
	view := NewView(mock, 20, logger.Nop())

	require.NoError(t, view.LoadDetails(context.Background(), "t1"))
	details := view.Details()
	require.NotNil(t, details)
	assert.Equal(t, "t1", details.TripID)

	view.CloseDetails()
	assert.Nil(t, view.Details())
}
