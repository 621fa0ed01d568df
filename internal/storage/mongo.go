package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FooledKiwi/busease/internal/geo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	stopsCollection = "stops"
	busesCollection = "buses"
)

// locationDocument is the embedded {lat, lng} sub-document.
type locationDocument struct {
	Lat float64 `bson:"lat"`
	Lng float64 `bson:"lng"`
}

type stopDocument struct {
	StopID   string           `bson:"stop_id"`
	StopName string           `bson:"stop_name"`
	Location locationDocument `bson:"location"`
}

type busDocument struct {
	BusID           string            `bson:"bus_id"`
	BusNumber       string            `bson:"bus_number"`
	BusName         string            `bson:"bus_name,omitempty"`
	PredefinedStops []string          `bson:"predefined_stops"`
	CurrentLocation *locationDocument `bson:"current_location,omitempty"`
	LastStopPassed  *string           `bson:"last_stop_passed,omitempty"`
	Status          string            `bson:"status,omitempty"`
	LastUpdated     *time.Time        `bson:"last_updated,omitempty"`
}

func (d stopDocument) toStop() *Stop {
	return &Stop{
		ID:       d.StopID,
		Name:     d.StopName,
		Location: geo.Point{Lat: d.Location.Lat, Lng: d.Location.Lng},
	}
}

func (d busDocument) toBus() *Bus {
	b := &Bus{
		ID:              d.BusID,
		Number:          d.BusNumber,
		Name:            d.BusName,
		PredefinedStops: d.PredefinedStops,
		Status:          d.Status,
		LastUpdated:     d.LastUpdated,
	}
	if d.CurrentLocation != nil {
		b.CurrentLocation = &geo.Point{Lat: d.CurrentLocation.Lat, Lng: d.CurrentLocation.Lng}
	}
	if d.LastStopPassed != nil && *d.LastStopPassed != "" {
		last := *d.LastStopPassed
		b.LastStopPassed = &last
	}
	return b
}

// MongoStore is the document-store implementation of Store. Each bus and
// stop is one document keyed by its bus_id / stop_id field.
type MongoStore struct {
	client *mongo.Client
	stops  *mongo.Collection
	buses  *mongo.Collection
}

// NewMongoStore connects to uri, verifies the connection, and returns a
// Store over the database named dbName.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("storage: mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("storage: mongo ping: %w", err)
	}

	db := client.Database(dbName)
	return &MongoStore{
		client: client,
		stops:  db.Collection(stopsCollection),
		buses:  db.Collection(busesCollection),
	}, nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// FindStopByName returns the first stop named name, or (nil, nil).
func (s *MongoStore) FindStopByName(ctx context.Context, name string) (*Stop, error) {
	return s.findStop(ctx, "FindStopByName", bson.M{"stop_name": name})
}

// FindStopByID returns the stop identified by id, or (nil, nil).
func (s *MongoStore) FindStopByID(ctx context.Context, id string) (*Stop, error) {
	return s.findStop(ctx, "FindStopByID", bson.M{"stop_id": id})
}

// FindBusByID returns the bus identified by id, or (nil, nil).
func (s *MongoStore) FindBusByID(ctx context.Context, id string) (*Bus, error) {
	return s.findBus(ctx, "FindBusByID", bson.M{"bus_id": id})
}

// FindBusByName returns the first bus named name, or (nil, nil).
func (s *MongoStore) FindBusByName(ctx context.Context, name string) (*Bus, error) {
	return s.findBus(ctx, "FindBusByName", bson.M{"bus_name": name})
}

// FindBusesContainingStops returns buses whose predefined_stops holds every
// ID in stopIDs, in natural collection order.
func (s *MongoStore) FindBusesContainingStops(ctx context.Context, stopIDs []string) ([]Bus, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cur, err := s.buses.Find(ctx, bson.M{"predefined_stops": bson.M{"$all": stopIDs}})
	if err != nil {
		return nil, fmt.Errorf("storage: FindBusesContainingStops: %w", err)
	}
	defer cur.Close(ctx)

	var docs []busDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("storage: FindBusesContainingStops: decode: %w", err)
	}

	buses := make([]Bus, 0, len(docs))
	for _, d := range docs {
		buses = append(buses, *d.toBus())
	}
	return buses, nil
}

// UpdateBusFields sets the location fields and, when given, moves
// last_stop_passed forward. The update runs as an aggregation pipeline so the
// route-position comparison happens atomically on the server.
func (s *MongoStore) UpdateBusFields(ctx context.Context, id string, u BusUpdate) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	set := bson.D{
		{Key: "current_location", Value: bson.D{
			{Key: "lat", Value: u.CurrentLocation.Lat},
			{Key: "lng", Value: u.CurrentLocation.Lng},
		}},
		{Key: "last_updated", Value: u.LastUpdated},
	}
	if u.LastStopPassed != nil {
		set = append(set, bson.E{Key: "last_stop_passed", Value: advanceExpr(*u.LastStopPassed)})
	}

	res, err := s.buses.UpdateOne(ctx,
		bson.M{"bus_id": id},
		mongo.Pipeline{{{Key: "$set", Value: set}}},
	)
	if err != nil {
		return 0, fmt.Errorf("storage: UpdateBusFields: %w", err)
	}
	return res.ModifiedCount, nil
}

// advanceExpr yields stopID when it sits further along predefined_stops than
// the stored last_stop_passed, and the stored value otherwise.
func advanceExpr(stopID string) bson.M {
	return bson.M{"$cond": bson.A{
		bson.M{"$gt": bson.A{
			bson.M{"$indexOfArray": bson.A{"$predefined_stops", stopID}},
			bson.M{"$indexOfArray": bson.A{
				"$predefined_stops",
				bson.M{"$ifNull": bson.A{"$last_stop_passed", nil}},
			}},
		}},
		stopID,
		"$last_stop_passed",
	}}
}

func (s *MongoStore) findStop(ctx context.Context, op string, filter bson.M) (*Stop, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var doc stopDocument
	err := s.stops.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: %s: %w", op, err)
	}
	return doc.toStop(), nil
}

func (s *MongoStore) findBus(ctx context.Context, op string, filter bson.M) (*Bus, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var doc busDocument
	err := s.buses.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: %s: %w", op, err)
	}
	return doc.toBus(), nil
}
