// Package catalog implements the restaurant list: CRUD, visit tracking,
// filtered and sorted listings, guarded by the ownership policy.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"restaurant-tracker-api/models"
	"restaurant-tracker-api/policy"
	"restaurant-tracker-api/store"

	"github.com/araddon/dateparse"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("context", "catalog")

type Service struct {
	store  store.RestaurantStore
	policy *policy.Policy
	now    func() time.Time
}

func NewService(s store.RestaurantStore, p *policy.Policy) *Service {
	return &Service{store: s, policy: p, now: time.Now}
}

// Listing is the {total, items} envelope returned by every list operation
type Listing struct {
	Total int                 `json:"total"`
	Items []models.Restaurant `json:"items"`
}

func newListing(items []models.Restaurant) *Listing {
	if items == nil {
		items = []models.Restaurant{}
	}
	return &Listing{Total: len(items), Items: items}
}

type ListOptions struct {
	Visited string // "yes", "no" or empty
	Owner   string // defaults to the requester
	Sort    string // "date", "name", "cuisineType" or empty
}

type CreateInput struct {
	Name         string
	CuisineType  string
	LocationText string
	Description  string
	ImageURL     string
	Geo          *models.GeoPoint
}

// UpdateInput carries the fields to change; nil means "keep".
type UpdateInput struct {
	Name         *string
	CuisineType  *string
	LocationText *string
	Description  *string
	ImageURL     *string
	Geo          *models.GeoPoint
	ClearGeo     bool
}

// VisitInput is a visit as submitted by a client. An empty Date means now.
type VisitInput struct {
	Date    string
	Comment string
}

// ListPublic returns the curator's list. No curator configured means no public list.
func (s *Service) ListPublic(ctx context.Context) (*Listing, error) {
	if s.policy.Curator == "" {
		return newListing(nil), nil
	}
	items, err := s.store.FindRestaurants(ctx, store.Filter{Owner: s.policy.Curator})
	if err != nil {
		return nil, err
	}
	return newListing(items), nil
}

// ListForAccount lists the restaurants owned by opts.Owner, or by the requester
// when no owner is given, filtered by visit state and sorted in memory.
func (s *Service) ListForAccount(ctx context.Context, requester string, opts ListOptions) (*Listing, error) {
	owner := opts.Owner
	if owner == "" {
		owner = requester
	}
	filter := store.Filter{Owner: owner}
	switch opts.Visited {
	case store.VisitedYes, store.VisitedNo:
		filter.Visited = opts.Visited
	}

	items, err := s.store.FindRestaurants(ctx, filter)
	if err != nil {
		return nil, err
	}
	SortRestaurants(items, opts.Sort)

	logger.WithFields(logrus.Fields{
		"owner":   owner,
		"visited": filter.Visited,
		"sort":    opts.Sort,
		"total":   len(items),
	}).Debug("Listed restaurants")
	return newListing(items), nil
}

// ListAll returns every record regardless of owner
func (s *Service) ListAll(ctx context.Context) (*Listing, error) {
	items, err := s.store.FindRestaurants(ctx, store.Filter{})
	if err != nil {
		return nil, err
	}
	return newListing(items), nil
}

// ListMissingGeo returns the records that have no structured location yet
func (s *Service) ListMissingGeo(ctx context.Context) ([]models.Restaurant, error) {
	return s.store.FindRestaurants(ctx, store.Filter{MissingGeo: true})
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.Restaurant, error) {
	if err := s.checkID(id); err != nil {
		return nil, err
	}
	return s.store.GetRestaurant(ctx, id)
}

// Create stores a new restaurant owned by requester (or by the curator pair
// when the requester is one of them). Visits start empty.
func (s *Service) Create(ctx context.Context, requester string, in CreateInput) (*models.Restaurant, error) {
	r := &models.Restaurant{
		Name:         strings.TrimSpace(in.Name),
		CuisineType:  strings.TrimSpace(in.CuisineType),
		LocationText: strings.TrimSpace(in.LocationText),
		Description:  in.Description,
		ImageURL:     strings.TrimSpace(in.ImageURL),
		Geo:          normalizeGeo(in.Geo),
		Owners:       s.policy.InitialOwners(requester),
		Visits:       []models.Visit{},
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateRestaurant(ctx, r); err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"id": r.ID, "owners": r.Owners}).Info("Restaurant created")
	return r, nil
}

// Update applies the supplied fields to a restaurant the requester may modify
func (s *Service) Update(ctx context.Context, requester, id string, in UpdateInput) (*models.Restaurant, error) {
	r, err := s.authorized(ctx, requester, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		r.Name = strings.TrimSpace(*in.Name)
	}
	if in.CuisineType != nil {
		r.CuisineType = strings.TrimSpace(*in.CuisineType)
	}
	if in.LocationText != nil {
		r.LocationText = strings.TrimSpace(*in.LocationText)
	}
	if in.Description != nil {
		r.Description = *in.Description
	}
	if in.ImageURL != nil {
		r.ImageURL = strings.TrimSpace(*in.ImageURL)
	}
	if in.ClearGeo {
		r.Geo = nil
	} else if in.Geo != nil {
		r.Geo = normalizeGeo(in.Geo)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateRestaurant(ctx, r)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"id": id, "by": requester}).Info("Restaurant updated")
	return updated, nil
}

// RecordVisit appends one visit. Ownership is not required.
func (s *Service) RecordVisit(ctx context.Context, id string, in VisitInput) (*models.Restaurant, error) {
	if err := s.checkID(id); err != nil {
		return nil, err
	}
	v, err := s.newVisit(in)
	if err != nil {
		return nil, err
	}
	r, err := s.store.AppendVisit(ctx, id, v)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"id": id, "date": v.Date}).Info("Visit recorded")
	return r, nil
}

// ReplaceVisits swaps the whole visit sequence of a restaurant the requester may modify
func (s *Service) ReplaceVisits(ctx context.Context, requester, id string, in []VisitInput) (*models.Restaurant, error) {
	if _, err := s.authorized(ctx, requester, id); err != nil {
		return nil, err
	}
	visits := make([]models.Visit, 0, len(in))
	for i, vi := range in {
		v, err := s.newVisit(vi)
		if err != nil {
			return nil, fmt.Errorf("visit %d: %w", i, err)
		}
		visits = append(visits, v)
	}
	r, err := s.store.ReplaceVisits(ctx, id, visits)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"id": id, "visits": len(visits)}).Info("Visits replaced")
	return r, nil
}

// Delete permanently removes a restaurant the requester may modify
func (s *Service) Delete(ctx context.Context, requester, id string) error {
	if _, err := s.authorized(ctx, requester, id); err != nil {
		return err
	}
	if err := s.store.DeleteRestaurant(ctx, id); err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{"id": id, "by": requester}).Info("Restaurant deleted")
	return nil
}

// SetGeo attaches a structured location without an ownership check.
// Used by operator tooling, never by the HTTP API.
func (s *Service) SetGeo(ctx context.Context, id string, geo *models.GeoPoint) (*models.Restaurant, error) {
	r, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.Geo = normalizeGeo(geo)
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return s.store.UpdateRestaurant(ctx, r)
}

// authorized loads a restaurant and checks that requester may modify it.
// The record may vanish before the following write; the store then reports
// ErrNotFound like any other missing record.
func (s *Service) authorized(ctx context.Context, requester, id string) (*models.Restaurant, error) {
	r, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanModify(requester, r) {
		logger.WithFields(logrus.Fields{"id": id, "requester": requester}).Warn("Modification refused")
		return nil, fmt.Errorf("restaurant %s: %w", id, models.ErrForbidden)
	}
	return r, nil
}

func (s *Service) checkID(id string) error {
	if !s.store.ValidID(id) {
		return fmt.Errorf("%q: %w", id, models.ErrInvalidID)
	}
	return nil
}

func (s *Service) newVisit(in VisitInput) (models.Visit, error) {
	v := models.Visit{Comment: in.Comment, Date: s.now().UTC()}
	if d := strings.TrimSpace(in.Date); d != "" {
		parsed, err := dateparse.ParseIn(d, time.UTC)
		if err != nil {
			return models.Visit{}, fmt.Errorf("%w: date %q is not a recognizable date", models.ErrValidation, d)
		}
		v.Date = parsed.UTC()
	}
	return v, nil
}

// normalizeGeo fills the implicit "Point" type; validation rejects anything else incomplete
func normalizeGeo(g *models.GeoPoint) *models.GeoPoint {
	if g == nil {
		return nil
	}
	out := *g
	if out.Type == "" {
		out.Type = models.GeoPointType
	}
	return &out
}
