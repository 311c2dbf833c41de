// Package store persists restaurants and accounts. Two backends implement
// the same interfaces: GormStore (SQLite through gorm) and MongoStore.
package store

import (
	"context"
	"fmt"

	"restaurant-tracker-api/config"
	"restaurant-tracker-api/models"
)

// Visited filter values
const (
	VisitedAny = ""
	VisitedYes = "yes"
	VisitedNo  = "no"
)

// Filter narrows FindRestaurants. Zero values mean "no restriction".
type Filter struct {
	Owner      string
	Visited    string
	MissingGeo bool
}

type RestaurantStore interface {
	// ValidID reports whether id is syntactically valid for this backend
	ValidID(id string) bool
	FindRestaurants(ctx context.Context, f Filter) ([]models.Restaurant, error)
	GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error)
	// CreateRestaurant assigns r.ID and the timestamps
	CreateRestaurant(ctx context.Context, r *models.Restaurant) error
	// UpdateRestaurant replaces every field except the id and the visits
	UpdateRestaurant(ctx context.Context, r *models.Restaurant) (*models.Restaurant, error)
	AppendVisit(ctx context.Context, id string, v models.Visit) (*models.Restaurant, error)
	ReplaceVisits(ctx context.Context, id string, visits []models.Visit) (*models.Restaurant, error)
	DeleteRestaurant(ctx context.Context, id string) error
}

type AccountStore interface {
	// CreateAccount assigns a.ID; fails with models.ErrDuplicateEmail
	CreateAccount(ctx context.Context, a *models.Account) error
	FindAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetAccount(ctx context.Context, id string) (*models.Account, error)
}

type Store interface {
	RestaurantStore
	AccountStore
	Ping(ctx context.Context) error
	Close() error
}

// Open connects the backend selected by the configuration
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		return OpenSQLite(cfg.SQLitePath)
	case config.BackendMongo:
		return OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
}

func invalidID(id string) error {
	return fmt.Errorf("%q: %w", id, models.ErrInvalidID)
}

func nonNilVisits(v []models.Visit) []models.Visit {
	if v == nil {
		return []models.Visit{}
	}
	return v
}
