package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentRow is the table layout GormStore keeps documents in.
type DocumentRow struct {
	Collection string `gorm:"primaryKey;type:varchar(64)"`
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	Body       string `gorm:"type:text"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (DocumentRow) TableName() string { return "documents" }

// GormStore is a GORM implementation of DocumentStore. Bodies are stored as
// JSON. ID filters, string field filters (sqlite and postgres JSON operators)
// and limits run in SQL; anything else is filtered after loading.
type GormStore struct {
	db  *gorm.DB
	hub *ChangeHub
}

// NewGormStore creates a new instance of GormStore.
func NewGormStore(db *gorm.DB, hub *ChangeHub) *GormStore {
	if hub == nil {
		hub = NewChangeHub()
	}
	return &GormStore{
		db:  db,
		hub: hub,
	}
}

// Migrate creates the documents table.
func (s *GormStore) Migrate() error {
	if err := s.db.AutoMigrate(&DocumentRow{}); err != nil {
		return fmt.Errorf("failed to migrate documents table: %w", err)
	}
	return nil
}

func rowToRecord(row DocumentRow) (Record, error) {
	doc := Document{}
	if row.Body != "" {
		if err := json.Unmarshal([]byte(row.Body), &doc); err != nil {
			return Record{}, fmt.Errorf("failed to decode document %s: %w", row.ID, err)
		}
	}
	return Record{ID: row.ID, Data: doc}, nil
}

// Get retrieves a single document by its ID from the database.
func (s *GormStore) Get(ctx context.Context, collection, id string) (Record, error) {
	var row DocumentRow
	if err := s.db.WithContext(ctx).First(&row, "collection = ? AND id = ?", collection, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Record{}, notFound(collection, id)
		}
		return Record{}, fmt.Errorf("failed to get document by ID %s: %w", id, err)
	}
	return rowToRecord(row)
}

// Query retrieves the matching documents of a collection in ID order.
func (s *GormStore) Query(ctx context.Context, collection string, q Query) ([]Record, error) {
	tx := s.db.WithContext(ctx).Where("collection = ?", collection)
	pushed := true
	for _, f := range q.Where {
		if f.Field == FieldID {
			tx = tx.Where("id = ?", cast.ToString(f.Value))
			continue
		}
		expr, args, ok := s.fieldEquals(f)
		if !ok {
			pushed = false
			continue
		}
		tx = tx.Where(expr, args...)
	}
	tx = tx.Order(s.idOrder())
	if pushed && q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []DocumentRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		r, err := rowToRecord(row)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return q.apply(records), nil
}

var jsonFieldName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// fieldEquals translates a string equality filter on a body field into the
// dialect's JSON extraction. Other value types stay on the loose Go-side match.
func (s *GormStore) fieldEquals(f Filter) (string, []any, bool) {
	v, ok := f.Value.(string)
	if !ok || !jsonFieldName.MatchString(f.Field) {
		return "", nil, false
	}
	switch s.db.Dialector.Name() {
	case "sqlite":
		return "json_extract(body, ?) = ?", []any{"$." + f.Field, v}, true
	case "postgres":
		return "(body::jsonb ->> ?) = ?", []any{f.Field, v}, true
	}
	return "", nil, false
}

// idOrder sorts bytewise so SQL order and limits agree with the other stores.
func (s *GormStore) idOrder() string {
	if s.db.Dialector.Name() == "postgres" {
		return `id COLLATE "C"`
	}
	return "id"
}

// Add creates a new document under a generated ID.
func (s *GormStore) Add(ctx context.Context, collection string, doc Document) (string, error) {
	id := uuid.New().String()
	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	row := DocumentRow{Collection: collection, ID: id, Body: string(body)}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("failed to create document: %w", err)
	}
	s.hub.Notify(collection)
	return id, nil
}

// Set creates or fully replaces the document with the given ID.
func (s *GormStore) Set(ctx context.Context, collection, id string, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	row := DocumentRow{Collection: collection, ID: id, Body: string(body)}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"body", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to set document %s: %w", id, err)
	}
	s.hub.Notify(collection)
	return nil
}

// Delete deletes a document by its ID from the database.
func (s *GormStore) Delete(ctx context.Context, collection, id string) error {
	res := s.db.WithContext(ctx).Delete(&DocumentRow{}, "collection = ? AND id = ?", collection, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete document: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound(collection, id)
	}
	s.hub.Notify(collection)
	return nil
}

// Subscribe registers a live query on the store.
func (s *GormStore) Subscribe(ctx context.Context, collection string, q Query, listener Listener) (Unsubscribe, error) {
	return s.hub.Subscribe(ctx, s, collection, q, listener)
}
