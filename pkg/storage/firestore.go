package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"github.com/shopspring/decimal"
	"github.com/spothinta/spothinta/pkg/log"
	"github.com/spothinta/spothinta/pkg/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const pricesCollection = "prices"

// FirestoreDatabase implements the Database interface using Google Cloud
// Firestore. Each hourly interval is one document keyed by its start time,
// which makes duplicate detection a document-create conflict.
type FirestoreDatabase struct {
	client    *firestore.Client
	projectID string
	database  string
}

// priceDoc is the Firestore representation of a PriceInterval. The price
// is stored as a string to keep its exact decimal value.
type priceDoc struct {
	StartDate time.Time `firestore:"startDate"`
	EndDate   time.Time `firestore:"endDate"`
	Price     string    `firestore:"price"`
}

func (d priceDoc) toInterval() (types.PriceInterval, error) {
	price, err := decimal.NewFromString(d.Price)
	if err != nil {
		return types.PriceInterval{}, fmt.Errorf("invalid stored price %q: %w", d.Price, err)
	}
	return types.PriceInterval{
		Start:       d.StartDate.In(types.Helsinki),
		End:         d.EndDate.In(types.Helsinki),
		CentsPerKWH: price,
	}, nil
}

// configuredFirestore sets up the Firestore database.
// It registers flags for configuration.
func configuredFirestore() *FirestoreDatabase {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreDatabase{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how the firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the database is properly configured.
func (f *FirestoreDatabase) Validate() error {
	// Project ID verification could be here, but we allow empty if inferred.
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the database methods.
func (f *FirestoreDatabase) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreDatabase) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func docID(start time.Time) string {
	return start.UTC().Format("20060102T15")
}

// InsertPrices stores the given intervals, one document per hour. An
// interval whose document already exists counts as a duplicate and is
// skipped.
func (f *FirestoreDatabase) InsertPrices(ctx context.Context, prices []types.PriceInterval) (int, error) {
	coll := f.client.Collection(pricesCollection)
	inserted := 0
	for _, p := range prices {
		doc := priceDoc{
			StartDate: p.Start,
			EndDate:   p.End,
			Price:     p.CentsPerKWH.String(),
		}
		_, err := coll.Doc(docID(p.Start)).Create(ctx, doc)
		if err != nil {
			if status.Code(err) == codes.AlreadyExists {
				log.Ctx(ctx).DebugContext(ctx, "skipping duplicate price interval",
					slog.Time("start", p.Start))
				continue
			}
			return inserted, fmt.Errorf("failed to insert price starting %s: %w", p.Start.Format(time.RFC3339), err)
		}
		inserted++
	}
	return inserted, nil
}

// GetPricesForPeriod returns intervals with start >= start and end <= end,
// sorted ascending by start.
func (f *FirestoreDatabase) GetPricesForPeriod(ctx context.Context, start, end time.Time) ([]types.PriceInterval, error) {
	iter := f.client.Collection(pricesCollection).
		Where("startDate", ">=", start).
		Where("endDate", "<=", end).
		OrderBy("startDate", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var prices []types.PriceInterval
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query prices: %w", err)
		}
		var doc priceDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode price document %s: %w", snap.Ref.ID, err)
		}
		p, err := doc.toInterval()
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "skipping corrupt price document",
				slog.String("doc", snap.Ref.ID),
				slog.Any("error", err))
			continue
		}
		prices = append(prices, p)
	}
	return prices, nil
}

// GetLatestPriceTime returns the start of the most recent stored interval.
func (f *FirestoreDatabase) GetLatestPriceTime(ctx context.Context) (time.Time, error) {
	iter := f.client.Collection(pricesCollection).
		OrderBy("startDate", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return time.Time{}, ErrNoPrices
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest price: %w", err)
	}
	var doc priceDoc
	if err := snap.DataTo(&doc); err != nil {
		return time.Time{}, fmt.Errorf("failed to decode price document %s: %w", snap.Ref.ID, err)
	}
	return doc.StartDate.In(types.Helsinki), nil
}
