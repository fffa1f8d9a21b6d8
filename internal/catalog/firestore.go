package catalog

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"stockflow/internal/models"
	"stockflow/internal/util"

	"go.uber.org/zap"
)

// FirestoreCatalog stores one document per product, keyed by the product
// id. Change notification rides on the collection's native snapshot
// listener, which feeds the subscription hub.
type FirestoreCatalog struct {
	client     *firestore.Client
	collection string
	hub        *hub
	logger     *zap.Logger

	cancel context.CancelFunc

	mu     sync.Mutex
	latest []models.Product
	loaded bool
}

// NewFirestoreCatalog connects to firestore and starts the snapshot
// listener.
func NewFirestoreCatalog(ctx context.Context, projectID, collection, credentialsFile string) (*FirestoreCatalog, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	c := &FirestoreCatalog{
		client:     client,
		collection: collection,
		hub:        newHub(),
		logger:     util.GetLogger(),
		cancel:     cancel,
	}

	go c.listen(listenCtx)
	return c, nil
}

// Close stops the listener and releases the client.
func (c *FirestoreCatalog) Close() error {
	c.cancel()
	return c.client.Close()
}

func (c *FirestoreCatalog) col() *firestore.CollectionRef {
	return c.client.Collection(c.collection)
}

// listen republishes the full product set on every collection change.
func (c *FirestoreCatalog) listen(ctx context.Context) {
	it := c.col().Snapshots(ctx)
	defer it.Stop()

	for {
		qsnap, err := it.Next()
		if status.Code(err) == codes.Canceled {
			return
		}
		if err != nil {
			c.logger.Error("Firestore snapshot listener stopped", zap.Error(err))
			return
		}

		docs, err := qsnap.Documents.GetAll()
		if err != nil {
			c.logger.Error("Failed to read firestore snapshot documents", zap.Error(err))
			continue
		}

		products := make([]models.Product, 0, len(docs))
		for _, doc := range docs {
			p, err := docToProduct(doc)
			if err != nil {
				c.logger.Warn("Skipping malformed product document",
					zap.String("doc_id", doc.Ref.ID),
					zap.Error(err))
				continue
			}
			products = append(products, p)
		}

		c.mu.Lock()
		c.latest = products
		c.loaded = true
		c.mu.Unlock()

		c.hub.publish(products)
	}
}

func docToProduct(doc *firestore.DocumentSnapshot) (models.Product, error) {
	var p models.Product
	if err := doc.DataTo(&p); err != nil {
		return models.Product{}, err
	}
	p.ID = doc.Ref.ID
	return p, nil
}

// Snapshot reads the full product set directly from the collection.
func (c *FirestoreCatalog) Snapshot(ctx context.Context) ([]models.Product, error) {
	docs, err := c.col().Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read products collection: %w", err)
	}

	products := make([]models.Product, 0, len(docs))
	for _, doc := range docs {
		p, err := docToProduct(doc)
		if err != nil {
			c.logger.Warn("Skipping malformed product document",
				zap.String("doc_id", doc.Ref.ID),
				zap.Error(err))
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

// Subscribe registers fn. The last snapshot seen by the listener is
// delivered immediately when available; otherwise a direct read supplies
// the initial set.
func (c *FirestoreCatalog) Subscribe(fn func([]models.Product)) func() {
	unsubscribe := c.hub.subscribe(fn)

	c.mu.Lock()
	latest, loaded := c.latest, c.loaded
	c.mu.Unlock()

	if loaded {
		fn(latest)
	} else {
		go func() {
			products, err := c.Snapshot(context.Background())
			if err != nil {
				c.logger.Error("Failed to load initial catalog snapshot", zap.Error(err))
				return
			}
			fn(products)
		}()
	}

	return unsubscribe
}

// Create writes a new document. Firestore's own uniqueness check is the
// source of truth for duplicates.
func (c *FirestoreCatalog) Create(ctx context.Context, p models.Product) error {
	_, err := c.col().Doc(p.ID).Create(ctx, p)
	if status.Code(err) == codes.AlreadyExists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update merges the non-nil patch fields into the document. An empty
// patch still fails with ErrNotFound when the id does not exist.
func (c *FirestoreCatalog) Update(ctx context.Context, id string, patch models.ProductPatch) error {
	if patch.Empty() {
		_, err := c.col().Doc(id).Get(ctx)
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}

	var updates []firestore.Update
	if patch.Name != nil {
		updates = append(updates, firestore.Update{Path: "name", Value: *patch.Name})
	}
	if patch.Description != nil {
		updates = append(updates, firestore.Update{Path: "description", Value: *patch.Description})
	}
	if patch.MRP != nil {
		updates = append(updates, firestore.Update{Path: "mrp", Value: *patch.MRP})
	}
	if patch.CostPriceCode != nil {
		updates = append(updates, firestore.Update{Path: "costPriceCode", Value: *patch.CostPriceCode})
	}
	if patch.Stock != nil {
		updates = append(updates, firestore.Update{Path: "stock", Value: *patch.Stock})
	}
	if patch.LowInventoryFactor != nil {
		updates = append(updates, firestore.Update{Path: "lowInventoryFactor", Value: *patch.LowInventoryFactor})
	}

	_, err := c.col().Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

// DecrementStock runs a transaction so the read-check-write cannot race
// another register.
func (c *FirestoreCatalog) DecrementStock(ctx context.Context, id string, qty int) error {
	ref := c.col().Doc(id)

	return c.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err != nil {
			return err
		}

		p, err := docToProduct(doc)
		if err != nil {
			return err
		}

		if p.Stock < qty {
			return fmt.Errorf("%w: have %d, requested %d", ErrInsufficientStock, p.Stock, qty)
		}

		return tx.Update(ref, []firestore.Update{
			{Path: "stock", Value: p.Stock - qty},
		})
	})
}
