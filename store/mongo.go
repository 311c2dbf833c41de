package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restaurant-tracker-api/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var mongoLog = logrus.WithField("context", "store/mongo")

const (
	restaurantsCollection = "restaurants"
	accountsCollection    = "accounts"
	opTimeout             = 10 * time.Second
)

// MongoStore keeps restaurants and accounts as MongoDB documents
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

type restaurantDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Name         string             `bson:"name"`
	CuisineType  string             `bson:"cuisineType"`
	LocationText string             `bson:"locationText"`
	Description  string             `bson:"description"`
	ImageURL     string             `bson:"imageUrl"`
	Geo          *geoDoc            `bson:"geo,omitempty"`
	Owners       []string           `bson:"owners"`
	Visits       []visitDoc         `bson:"visits"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

type geoDoc struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
	PlaceName   string    `bson:"placeName,omitempty"`
}

type visitDoc struct {
	Date    time.Time `bson:"date"`
	Comment string    `bson:"comment"`
}

type accountDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password"`
	Role         models.UserRole    `bson:"role"`
	CreatedAt    time.Time          `bson:"createdAt"`
}

// OpenMongo connects to uri, pings the server and ensures the indexes exist
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	mongoLog.Info("Connecting to MongoDB...")
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &MongoStore{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	mongoLog.WithField("database", database).Info("Connected to MongoDB")
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.accounts().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create accounts index: %w", err)
	}
	_, err = s.restaurants().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owners", Value: 1}}},
		{Keys: bson.D{{Key: "geo", Value: "2dsphere"}}},
	})
	if err != nil {
		return fmt.Errorf("create restaurants indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) restaurants() *mongo.Collection {
	return s.db.Collection(restaurantsCollection)
}

func (s *MongoStore) accounts() *mongo.Collection {
	return s.db.Collection(accountsCollection)
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// ── Restaurants ─────────────────────────────────────────────────────────────

func (s *MongoStore) ValidID(id string) bool {
	return primitive.IsValidObjectID(id)
}

func (s *MongoStore) FindRestaurants(ctx context.Context, f Filter) ([]models.Restaurant, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{}
	if f.Owner != "" {
		filter["owners"] = f.Owner
	}
	switch f.Visited {
	case VisitedYes:
		filter["visits.0"] = bson.M{"$exists": true}
	case VisitedNo:
		filter["$or"] = bson.A{
			bson.M{"visits": bson.M{"$exists": false}},
			bson.M{"visits": nil},
			bson.M{"visits": bson.M{"$size": 0}},
		}
	}
	if f.MissingGeo {
		filter["geo"] = nil
	}

	cursor, err := s.restaurants().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		mongoLog.WithError(err).Error("Failed to find restaurants")
		return nil, fmt.Errorf("find restaurants: %w", err)
	}
	defer cursor.Close(ctx)

	docs := make([]restaurantDoc, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode restaurants: %w", err)
	}
	restaurants := make([]models.Restaurant, 0, len(docs))
	for i := range docs {
		restaurants = append(restaurants, *docs[i].toModel())
	}
	return restaurants, nil
}

func (s *MongoStore) GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, invalidID(id)
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc restaurantDoc
	if err := s.restaurants().FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound("restaurant", id)
		}
		return nil, fmt.Errorf("get restaurant %s: %w", id, err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) CreateRestaurant(ctx context.Context, r *models.Restaurant) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	r.Visits = nonNilVisits(r.Visits)
	doc := newRestaurantDoc(r)
	doc.ID = primitive.NewObjectID()

	if _, err := s.restaurants().InsertOne(ctx, doc); err != nil {
		mongoLog.WithError(err).Error("Failed to insert restaurant")
		return fmt.Errorf("create restaurant: %w", err)
	}
	r.ID = doc.ID.Hex()
	return nil
}

func (s *MongoStore) UpdateRestaurant(ctx context.Context, r *models.Restaurant) (*models.Restaurant, error) {
	set := bson.M{
		"name":         r.Name,
		"cuisineType":  r.CuisineType,
		"locationText": r.LocationText,
		"description":  r.Description,
		"imageUrl":     r.ImageURL,
		"owners":       r.Owners,
		"updatedAt":    time.Now().UTC(),
	}
	update := bson.M{"$set": set}
	if r.Geo != nil {
		set["geo"] = newGeoDoc(r.Geo)
	} else {
		update["$unset"] = bson.M{"geo": ""}
	}
	return s.findOneAndUpdate(ctx, r.ID, update)
}

func (s *MongoStore) AppendVisit(ctx context.Context, id string, v models.Visit) (*models.Restaurant, error) {
	return s.findOneAndUpdate(ctx, id, bson.M{
		"$push": bson.M{"visits": visitDoc{Date: v.Date, Comment: v.Comment}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (s *MongoStore) ReplaceVisits(ctx context.Context, id string, visits []models.Visit) (*models.Restaurant, error) {
	return s.findOneAndUpdate(ctx, id, bson.M{
		"$set": bson.M{"visits": newVisitDocs(visits), "updatedAt": time.Now().UTC()},
	})
}

func (s *MongoStore) findOneAndUpdate(ctx context.Context, id string, update bson.M) (*models.Restaurant, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, invalidID(id)
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc restaurantDoc
	err = s.restaurants().FindOneAndUpdate(ctx, bson.M{"_id": oid}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound("restaurant", id)
		}
		mongoLog.WithError(err).WithField("id", id).Error("Failed to update restaurant")
		return nil, fmt.Errorf("update restaurant %s: %w", id, err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) DeleteRestaurant(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return invalidID(id)
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.restaurants().DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete restaurant %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return notFound("restaurant", id)
	}
	return nil
}

// ── Accounts ────────────────────────────────────────────────────────────────

func (s *MongoStore) CreateAccount(ctx context.Context, a *models.Account) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	doc := accountDoc{
		ID:           primitive.NewObjectID(),
		Username:     a.Username,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Role:         a.Role,
		CreatedAt:    a.CreatedAt,
	}
	if _, err := s.accounts().InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", a.Email, models.ErrDuplicateEmail)
		}
		return fmt.Errorf("create account: %w", err)
	}
	a.ID = doc.ID.Hex()
	return nil
}

func (s *MongoStore) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.findAccount(ctx, bson.M{"email": email}, email)
}

func (s *MongoStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, invalidID(id)
	}
	return s.findAccount(ctx, bson.M{"_id": oid}, id)
}

func (s *MongoStore) findAccount(ctx context.Context, filter bson.M, key string) (*models.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc accountDoc
	if err := s.accounts().FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound("account", key)
		}
		return nil, fmt.Errorf("find account %s: %w", key, err)
	}
	return &models.Account{
		ID:           doc.ID.Hex(),
		Username:     doc.Username,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		Role:         doc.Role,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

// ── Document mapping ────────────────────────────────────────────────────────

func newRestaurantDoc(r *models.Restaurant) *restaurantDoc {
	return &restaurantDoc{
		Name:         r.Name,
		CuisineType:  r.CuisineType,
		LocationText: r.LocationText,
		Description:  r.Description,
		ImageURL:     r.ImageURL,
		Geo:          newGeoDoc(r.Geo),
		Owners:       r.Owners,
		Visits:       newVisitDocs(r.Visits),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func newGeoDoc(g *models.GeoPoint) *geoDoc {
	if g == nil {
		return nil
	}
	return &geoDoc{Type: g.Type, Coordinates: g.Coordinates, PlaceName: g.PlaceName}
}

func newVisitDocs(visits []models.Visit) []visitDoc {
	docs := make([]visitDoc, 0, len(visits))
	for _, v := range visits {
		docs = append(docs, visitDoc{Date: v.Date, Comment: v.Comment})
	}
	return docs
}

func (d *restaurantDoc) toModel() *models.Restaurant {
	r := &models.Restaurant{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		CuisineType:  d.CuisineType,
		LocationText: d.LocationText,
		Description:  d.Description,
		ImageURL:     d.ImageURL,
		Owners:       d.Owners,
		Visits:       make([]models.Visit, 0, len(d.Visits)),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if d.Geo != nil {
		r.Geo = &models.GeoPoint{Type: d.Geo.Type, Coordinates: d.Geo.Coordinates, PlaceName: d.Geo.PlaceName}
	}
	for _, v := range d.Visits {
		r.Visits = append(r.Visits, models.Visit{Date: v.Date, Comment: v.Comment})
	}
	return r
}
