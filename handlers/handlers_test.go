package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"restaurant-tracker-api/auth"
	"restaurant-tracker-api/catalog"
	"restaurant-tracker-api/handlers"
	"restaurant-tracker-api/middleware"
	"restaurant-tracker-api/models"
	"restaurant-tracker-api/places"
	"restaurant-tracker-api/policy"
	"restaurant-tracker-api/routes"
	"restaurant-tracker-api/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	curator   = "curator@example.com"
	coCurator = "co@example.com"
)

type fakePlaces struct {
	results []places.Place
	err     error
	query   string
}

func (f *fakePlaces) Search(_ context.Context, q string) ([]places.Place, error) {
	f.query = q
	if q == "" {
		return nil, models.ErrValidation
	}
	return f.results, f.err
}

type testAPI struct {
	t      *testing.T
	engine *gin.Engine
	places *fakePlaces
	auth   *auth.Service
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := store.OpenSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	authSvc := auth.NewService(s, []byte("test-secret"), time.Hour)
	fp := &fakePlaces{}
	h := &handlers.Handler{
		Auth:    authSvc,
		Catalog: catalog.NewService(s, policy.New(curator, coCurator)),
		Places:  fp,
		Store:   s,
		Version: "test",
	}
	return &testAPI{
		t:      t,
		engine: routes.NewEngine(h, authSvc, []string{"*"}, middleware.NewMetrics()),
		places: fp,
		auth:   authSvc,
	}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

// signup registers an account and logs it in
func (a *testAPI) signup(email string, role models.UserRole) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"username": email, "email": email, "password": "secret", "role": role,
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": "secret"})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func lotus() gin.H {
	return gin.H{"name": "Lotus", "cuisineType": "Thai", "locationText": "Madrid"}
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/api/auth/register", "", gin.H{"username": "ana", "email": "ana@x.com", "password": "pw"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "password")

	w = api.do(http.MethodPost, "/api/auth/register", "", gin.H{"username": "ana", "email": "ana@x.com", "password": "pw"})
	assert.Equal(t, http.StatusInternalServerError, w.Code, "duplicate email")

	w = api.do(http.MethodPost, "/api/auth/register", "", gin.H{"username": "ana", "email": "nope", "password": "pw"})
	assert.Equal(t, http.StatusInternalServerError, w.Code, "invalid email")

	w = api.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "ana@x.com", "password": "wrong"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	wrong := w.Body.String()
	w = api.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "who@x.com", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, wrong, w.Body.String(), "login failures must not reveal which part was wrong")

	w = api.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "ana@x.com", "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	token := decode[struct {
		Token string `json:"token"`
	}](t, w).Token

	w = api.do(http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[struct {
		User models.Account `json:"user"`
	}](t, w)
	assert.Equal(t, "ana@x.com", profile.User.Email)

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/profile", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/profile", "garbage", nil).Code)
}

func TestOwnershipFlow(t *testing.T) {
	api := newTestAPI(t)
	a := api.signup("a@x.com", "")
	b := api.signup("b@x.com", "")

	w := api.do(http.MethodPost, "/api/restaurants", a, lotus())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.Restaurant](t, w)
	assert.Equal(t, []string{"a@x.com"}, created.Owners)
	assert.Empty(t, created.Visits)

	path := "/api/restaurants/" + created.ID

	w = api.do(http.MethodPut, path, b, gin.H{"name": "Hijacked"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodDelete, path, b, nil).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPut, path+"/visits/replace", b, gin.H{"visits": []gin.H{}}).Code)

	w = api.do(http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Lotus", decode[models.Restaurant](t, w).Name)

	// visits need no token
	w = api.do(http.MethodPut, path+"/visits", "", gin.H{"date": "2024-05-01T20:00:00Z", "comment": "great"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[models.Restaurant](t, w).Visits, 1)

	w = api.do(http.MethodPut, path, a, gin.H{"name": "Lotus Garden", "description": "noodles"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.Restaurant](t, w)
	assert.Equal(t, "Lotus Garden", updated.Name)
	assert.Equal(t, "noodles", updated.Description)
	assert.Len(t, updated.Visits, 1)

	w = api.do(http.MethodPut, path+"/visits/replace", a, gin.H{"visits": []gin.H{
		{"date": "2023-01-01", "comment": "one"},
		{"date": "2023-02-01", "comment": "two"},
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[models.Restaurant](t, w).Visits, 2)

	w = api.do(http.MethodDelete, path, a, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, path, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, path, a, nil).Code)
}

func TestCuratorFlow(t *testing.T) {
	api := newTestAPI(t)
	cur := api.signup(curator, "")
	co := api.signup(coCurator, "")
	stranger := api.signup("z@x.com", "")

	w := api.do(http.MethodPost, "/api/restaurants", cur, lotus())
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[models.Restaurant](t, w)
	assert.Equal(t, []string{curator, coCurator}, created.Owners)

	path := "/api/restaurants/" + created.ID
	assert.Equal(t, http.StatusOK, api.do(http.MethodPut, path, co, gin.H{"cuisineType": "Vietnamese"}).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPut, path, stranger, gin.H{"cuisineType": "Other"}).Code)

	w = api.do(http.MethodGet, "/api/restaurants/public", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	public := decode[catalog.Listing](t, w)
	require.Equal(t, 1, public.Total)
	assert.Equal(t, "Vietnamese", public.Items[0].CuisineType)

	w = api.do(http.MethodGet, "/api/restaurants", co, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[catalog.Listing](t, w).Total)
}

func TestListRestaurants(t *testing.T) {
	api := newTestAPI(t)
	a := api.signup("a@x.com", "")

	var ids []string
	for _, n := range []string{"Charlie", "Alpha", "Bravo"} {
		body := lotus()
		body["name"] = n
		w := api.do(http.MethodPost, "/api/restaurants", a, body)
		require.Equal(t, http.StatusCreated, w.Code)
		ids = append(ids, decode[models.Restaurant](t, w).ID)
	}
	require.Equal(t, http.StatusOK, api.do(http.MethodPut, "/api/restaurants/"+ids[0]+"/visits", "", gin.H{"date": "2024-03-01"}).Code)
	require.Equal(t, http.StatusOK, api.do(http.MethodPut, "/api/restaurants/"+ids[2]+"/visits", "", gin.H{"date": "2024-01-01"}).Code)

	list := func(query string) []string {
		w := api.do(http.MethodGet, "/api/restaurants"+query, a, nil)
		require.Equal(t, http.StatusOK, w.Code)
		l := decode[catalog.Listing](t, w)
		require.Equal(t, len(l.Items), l.Total)
		var names []string
		for _, r := range l.Items {
			names = append(names, r.Name)
		}
		return names
	}

	assert.Equal(t, []string{"Charlie", "Alpha", "Bravo"}, list(""))
	assert.Equal(t, []string{"Alpha", "Bravo", "Charlie"}, list("?sort=name"))
	assert.Equal(t, []string{"Bravo", "Charlie", "Alpha"}, list("?sort=date"))
	assert.Equal(t, []string{"Bravo", "Charlie"}, list("?visited=yes&sort=date"))
	assert.Equal(t, []string{"Alpha"}, list("?visited=no"))
	assert.Equal(t, []string{"Charlie", "Alpha", "Bravo"}, list("?visited=bogus&sort=bogus"))
	assert.Empty(t, list("?owner=nobody@x.com"))

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/restaurants", "", nil).Code)
}

func TestRestaurantErrors(t *testing.T) {
	api := newTestAPI(t)
	a := api.signup("a@x.com", "")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
	}{
		{name: "invalid id", method: http.MethodGet, path: "/api/restaurants/not-an-id", status: http.StatusBadRequest},
		{name: "unknown id", method: http.MethodGet, path: "/api/restaurants/4f7d2b7a-8d4e-4a43-9a51-0f1f3f6c2a10", status: http.StatusNotFound},
		{name: "visit on invalid id", method: http.MethodPut, path: "/api/restaurants/bad/visits", body: gin.H{}, status: http.StatusBadRequest},
		{name: "visit with bad date", method: http.MethodPut, path: "/api/restaurants/4f7d2b7a-8d4e-4a43-9a51-0f1f3f6c2a10/visits", body: gin.H{"date": "whenever"}, status: http.StatusBadRequest},
		{name: "create without token", method: http.MethodPost, path: "/api/restaurants", body: lotus(), status: http.StatusUnauthorized},
		{name: "create missing fields", method: http.MethodPost, path: "/api/restaurants", token: a, body: gin.H{"name": "x"}, status: http.StatusBadRequest},
		{name: "create partial geo", method: http.MethodPost, path: "/api/restaurants", token: a, body: gin.H{
			"name": "x", "cuisineType": "y", "locationText": "z", "geo": gin.H{"coordinates": []float64{1}},
		}, status: http.StatusBadRequest},
		{name: "update invalid id", method: http.MethodPut, path: "/api/restaurants/bad", token: a, body: gin.H{}, status: http.StatusBadRequest},
		{name: "delete unknown id", method: http.MethodDelete, path: "/api/restaurants/4f7d2b7a-8d4e-4a43-9a51-0f1f3f6c2a10", token: a, status: http.StatusNotFound},
		{name: "admin route as user", method: http.MethodGet, path: "/api/admin/restaurants", token: a, status: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestAdminListsEverything(t *testing.T) {
	api := newTestAPI(t)
	a := api.signup("a@x.com", "")
	root := api.signup("root@x.com", models.RoleAdmin)

	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/restaurants", a, lotus()).Code)
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/restaurants", root, lotus()).Code)

	w := api.do(http.MethodGet, "/api/admin/restaurants", root, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[catalog.Listing](t, w).Total)
}

func TestSearchPlaces(t *testing.T) {
	api := newTestAPI(t)
	api.places.results = []places.Place{{ID: "p1", DisplayText: "Calle 1", Coordinates: []float64{-3.7, 40.4}}}

	w := api.do(http.MethodPost, "/api/places/search", "", gin.H{"textQuery": "lotus"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"features": [{"id": "p1", "displayText": "Calle 1", "coordinates": [-3.7, 40.4]}]}`, w.Body.String())
	assert.Equal(t, "lotus", api.places.query)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/places/search", "", gin.H{}).Code)

	api.places.err = models.ErrMissingLocation
	assert.Equal(t, http.StatusInternalServerError, api.do(http.MethodPost, "/api/places/search", "", gin.H{"textQuery": "x"}).Code)

	api.places.err = models.ErrUpstream
	assert.Equal(t, http.StatusInternalServerError, api.do(http.MethodPost, "/api/places/search", "", gin.H{"textQuery": "x"}).Code)
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version":"test"`)

	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/health/ready", "", nil).Code)

	w = api.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "restaurant_tracker_http_requests_total")
}
