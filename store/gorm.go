package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"restaurant-tracker-api/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var gormLog = logrus.WithField("context", "store/gorm")

// GormStore keeps restaurants and accounts in SQLite. Owners, visits and
// geo are JSON columns; filters use the SQLite JSON1 functions.
type GormStore struct {
	db *gorm.DB
}

// OpenSQLite opens (creating if needed) the database file at path and migrates the schema
func OpenSQLite(path string) (*GormStore, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.New(gormLog, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection keeps transactions serialized
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.Account{}, &models.Restaurant{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	gormLog.WithField("path", path).Info("Database connected and migrated")
	return &GormStore{db: db}, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ── Restaurants ─────────────────────────────────────────────────────────────

func (s *GormStore) ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *GormStore) FindRestaurants(ctx context.Context, f Filter) ([]models.Restaurant, error) {
	query := s.db.WithContext(ctx).Model(&models.Restaurant{})

	if f.Owner != "" {
		query = query.Where("EXISTS (SELECT 1 FROM json_each(restaurants.owners) WHERE json_each.value = ?)", f.Owner)
	}
	switch f.Visited {
	case VisitedYes:
		query = query.Where("COALESCE(json_array_length(restaurants.visits), 0) > 0")
	case VisitedNo:
		query = query.Where("COALESCE(json_array_length(restaurants.visits), 0) = 0")
	}
	if f.MissingGeo {
		query = query.Where("restaurants.geo IS NULL")
	}

	restaurants := []models.Restaurant{}
	if err := query.Order("restaurants.rowid").Find(&restaurants).Error; err != nil {
		return nil, fmt.Errorf("find restaurants: %w", err)
	}
	for i := range restaurants {
		restaurants[i].Visits = nonNilVisits(restaurants[i].Visits)
	}
	return restaurants, nil
}

func (s *GormStore) GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	if !s.ValidID(id) {
		return nil, invalidID(id)
	}
	return getRestaurant(s.db.WithContext(ctx), id)
}

func getRestaurant(db *gorm.DB, id string) (*models.Restaurant, error) {
	var r models.Restaurant
	if err := db.First(&r, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("restaurant", id)
		}
		return nil, fmt.Errorf("get restaurant %s: %w", id, err)
	}
	r.Visits = nonNilVisits(r.Visits)
	return &r, nil
}

func (s *GormStore) CreateRestaurant(ctx context.Context, r *models.Restaurant) error {
	r.ID = uuid.NewString()
	r.Visits = nonNilVisits(r.Visits)
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("create restaurant: %w", err)
	}
	return nil
}

func (s *GormStore) UpdateRestaurant(ctx context.Context, r *models.Restaurant) (*models.Restaurant, error) {
	return s.mutate(ctx, r.ID, func(existing *models.Restaurant) {
		existing.Name = r.Name
		existing.CuisineType = r.CuisineType
		existing.LocationText = r.LocationText
		existing.Description = r.Description
		existing.ImageURL = r.ImageURL
		existing.Geo = r.Geo
		existing.Owners = r.Owners
	})
}

func (s *GormStore) AppendVisit(ctx context.Context, id string, v models.Visit) (*models.Restaurant, error) {
	return s.mutate(ctx, id, func(existing *models.Restaurant) {
		existing.Visits = append(existing.Visits, v)
	})
}

func (s *GormStore) ReplaceVisits(ctx context.Context, id string, visits []models.Visit) (*models.Restaurant, error) {
	return s.mutate(ctx, id, func(existing *models.Restaurant) {
		existing.Visits = nonNilVisits(visits)
	})
}

// mutate reads, changes and writes one restaurant inside a transaction
func (s *GormStore) mutate(ctx context.Context, id string, change func(*models.Restaurant)) (*models.Restaurant, error) {
	if !s.ValidID(id) {
		return nil, invalidID(id)
	}
	var updated *models.Restaurant
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := getRestaurant(tx, id)
		if err != nil {
			return err
		}
		change(existing)
		if err := tx.Save(existing).Error; err != nil {
			return fmt.Errorf("save restaurant %s: %w", id, err)
		}
		updated = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *GormStore) DeleteRestaurant(ctx context.Context, id string) error {
	if !s.ValidID(id) {
		return invalidID(id)
	}
	res := s.db.WithContext(ctx).Delete(&models.Restaurant{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete restaurant %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("restaurant", id)
	}
	return nil
}

// ── Accounts ────────────────────────────────────────────────────────────────

func (s *GormStore) CreateAccount(ctx context.Context, a *models.Account) error {
	db := s.db.WithContext(ctx)

	var existing models.Account
	if err := db.Where("email = ?", a.Email).First(&existing).Error; err == nil {
		return fmt.Errorf("%s: %w", a.Email, models.ErrDuplicateEmail)
	}

	a.ID = uuid.NewString()
	if err := db.Create(a).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%s: %w", a.Email, models.ErrDuplicateEmail)
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *GormStore) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var a models.Account
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("account", email)
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &a, nil
}

func (s *GormStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	if !s.ValidID(id) {
		return nil, invalidID(id)
	}
	var a models.Account
	if err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("account", id)
		}
		return nil, fmt.Errorf("get account %s: %w", id, err)
	}
	return &a, nil
}
