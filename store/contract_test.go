package store

import (
	"context"
	"testing"
	"time"

	"restaurant-tracker-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises behavior every backend must share. missingID is
// a well-formed id that does not exist.
func runStoreContract(t *testing.T, s Store, missingID string) {
	t.Run("restaurants", func(t *testing.T) { testRestaurantLifecycle(t, s, missingID) })
	t.Run("filters", func(t *testing.T) { testFilters(t, s) })
	t.Run("accounts", func(t *testing.T) { testAccounts(t, s, missingID) })
	t.Run("ping", func(t *testing.T) { require.NoError(t, s.Ping(context.Background())) })
}

func newRestaurant(name string, owners ...string) *models.Restaurant {
	return &models.Restaurant{
		Name:         name,
		CuisineType:  "Thai",
		LocationText: "Madrid",
		Owners:       owners,
	}
}

// visitAt truncates to milliseconds, the precision of BSON dates
func visitAt(day int, comment string) models.Visit {
	return models.Visit{Date: time.Date(2024, 1, day, 12, 30, 0, 0, time.UTC), Comment: comment}
}

func testRestaurantLifecycle(t *testing.T, s Store, missingID string) {
	ctx := context.Background()

	assert.False(t, s.ValidID("definitely not an id"))
	assert.True(t, s.ValidID(missingID))

	r := newRestaurant("Lotus", "a@x.com")
	require.NoError(t, s.CreateRestaurant(ctx, r))
	require.NotEmpty(t, r.ID)
	assert.True(t, s.ValidID(r.ID))

	got, err := s.GetRestaurant(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lotus", got.Name)
	assert.Equal(t, []string{"a@x.com"}, got.Owners)
	assert.NotNil(t, got.Visits)
	assert.Empty(t, got.Visits)
	assert.Nil(t, got.Geo)

	_, err = s.GetRestaurant(ctx, missingID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = s.GetRestaurant(ctx, "bad")
	assert.ErrorIs(t, err, models.ErrInvalidID)

	first, err := s.AppendVisit(ctx, r.ID, visitAt(5, "first"))
	require.NoError(t, err)
	require.Len(t, first.Visits, 1)
	second, err := s.AppendVisit(ctx, r.ID, visitAt(2, "second"))
	require.NoError(t, err)
	require.Len(t, second.Visits, 2)
	assert.Equal(t, "first", second.Visits[0].Comment)
	assert.Equal(t, "second", second.Visits[1].Comment)
	assert.True(t, second.Visits[0].Date.Equal(visitAt(5, "").Date))

	_, err = s.AppendVisit(ctx, missingID, visitAt(1, ""))
	assert.ErrorIs(t, err, models.ErrNotFound)

	got.Name = "Lotus Garden"
	got.Geo = models.NewGeoPoint(-3.7, 40.4, "Calle 1")
	got.Visits = nil // never written by UpdateRestaurant
	updated, err := s.UpdateRestaurant(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "Lotus Garden", updated.Name)
	require.NotNil(t, updated.Geo)
	assert.Equal(t, []float64{-3.7, 40.4}, updated.Geo.Coordinates)
	assert.Len(t, updated.Visits, 2)

	updated.Geo = nil
	cleared, err := s.UpdateRestaurant(ctx, updated)
	require.NoError(t, err)
	assert.Nil(t, cleared.Geo)

	replaced, err := s.ReplaceVisits(ctx, r.ID, []models.Visit{visitAt(9, "only")})
	require.NoError(t, err)
	require.Len(t, replaced.Visits, 1)
	assert.Equal(t, "only", replaced.Visits[0].Comment)

	emptied, err := s.ReplaceVisits(ctx, r.ID, nil)
	require.NoError(t, err)
	assert.NotNil(t, emptied.Visits)
	assert.Empty(t, emptied.Visits)

	require.NoError(t, s.DeleteRestaurant(ctx, r.ID))
	assert.ErrorIs(t, s.DeleteRestaurant(ctx, r.ID), models.ErrNotFound)
	assert.ErrorIs(t, s.DeleteRestaurant(ctx, "bad"), models.ErrInvalidID)
}

func testFilters(t *testing.T, s Store) {
	ctx := context.Background()

	shared := newRestaurant("Shared", "f1@x.com", "f2@x.com")
	solo := newRestaurant("Solo", "f1@x.com")
	other := newRestaurant("Other", "f2@x.com")
	for _, r := range []*models.Restaurant{shared, solo, other} {
		require.NoError(t, s.CreateRestaurant(ctx, r))
	}
	_, err := s.AppendVisit(ctx, solo.ID, visitAt(1, ""))
	require.NoError(t, err)
	_, err = s.UpdateRestaurant(ctx, &models.Restaurant{
		ID: other.ID, Name: other.Name, CuisineType: other.CuisineType, LocationText: other.LocationText,
		Owners: other.Owners, Geo: models.NewGeoPoint(1, 2, ""),
	})
	require.NoError(t, err)

	names := func(f Filter) []string {
		items, err := s.FindRestaurants(ctx, f)
		require.NoError(t, err)
		out := []string{}
		for _, r := range items {
			out = append(out, r.Name)
		}
		return out
	}

	assert.Equal(t, []string{"Shared", "Solo"}, names(Filter{Owner: "f1@x.com"}))
	assert.Equal(t, []string{"Shared", "Other"}, names(Filter{Owner: "f2@x.com"}))
	assert.Equal(t, []string{"Solo"}, names(Filter{Owner: "f1@x.com", Visited: VisitedYes}))
	assert.Equal(t, []string{"Shared"}, names(Filter{Owner: "f1@x.com", Visited: VisitedNo}))
	assert.Equal(t, []string{"Shared", "Solo"}, names(Filter{Owner: "f1@x.com", MissingGeo: true}))
	assert.Empty(t, names(Filter{Owner: "nobody@x.com"}))
	// owner matching is exact, not a substring search
	assert.Empty(t, names(Filter{Owner: "f1@x"}))
}

func testAccounts(t *testing.T, s Store, missingID string) {
	ctx := context.Background()

	a := &models.Account{Username: "ana", Email: "ana@x.com", PasswordHash: "hash", Role: models.RoleUser}
	require.NoError(t, s.CreateAccount(ctx, a))
	require.NotEmpty(t, a.ID)

	dup := &models.Account{Username: "ana2", Email: "ana@x.com", PasswordHash: "hash", Role: models.RoleUser}
	assert.ErrorIs(t, s.CreateAccount(ctx, dup), models.ErrDuplicateEmail)

	found, err := s.FindAccountByEmail(ctx, "ana@x.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, found.ID)
	assert.Equal(t, "hash", found.PasswordHash)

	_, err = s.FindAccountByEmail(ctx, "who@x.com")
	assert.ErrorIs(t, err, models.ErrNotFound)

	byID, err := s.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana", byID.Username)

	_, err = s.GetAccount(ctx, missingID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = s.GetAccount(ctx, "bad")
	assert.ErrorIs(t, err, models.ErrInvalidID)
}
