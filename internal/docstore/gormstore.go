package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// record is the single relational table backing the document store.
// Payload holds the marshalled document.
type record struct {
	Collection string `gorm:"primaryKey;size:64"`
	DocID      string `gorm:"primaryKey;size:128"`
	Payload    string `gorm:"not null"`
	UpdatedAt  time.Time
}

func (record) TableName() string { return "documents" }

type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("migrate documents table: %w", err)
	}
	return &GormStore{DB: db}, nil
}

func (s *GormStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var rec record
	err := s.DB.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal([]byte(rec.Payload), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (s *GormStore) Set(ctx context.Context, collection, id string, doc Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document %s/%s: %w", collection, id, err)
	}

	rec := record{Collection: collection, DocID: id, Payload: string(data), UpdatedAt: time.Now().UTC()}
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "doc_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(&rec).Error
}

// Update applies a shallow merge: top-level fields in patch overwrite
// the stored document, everything else is kept.
func (s *GormStore) Update(ctx context.Context, collection, id string, patch Document) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec record
		err := tx.Where("collection = ? AND doc_id = ?", collection, id).First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var doc Document
		if err := json.Unmarshal([]byte(rec.Payload), &doc); err != nil {
			return fmt.Errorf("unmarshal document %s/%s: %w", collection, id, err)
		}
		for k, v := range patch {
			doc[k] = v
		}

		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshal document %s/%s: %w", collection, id, err)
		}
		return tx.Model(&record{}).
			Where("collection = ? AND doc_id = ?", collection, id).
			Updates(map[string]any{"payload": string(data), "updated_at": time.Now().UTC()}).Error
	})
}

func (s *GormStore) Delete(ctx context.Context, collection, id string) error {
	return s.DB.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		Delete(&record{}).Error
}

// Query loads the collection and evaluates filters in process. The
// deployment this serves keeps collections small enough that pushing
// predicates into SQL against a JSON payload is not worth the coupling.
func (s *GormStore) Query(ctx context.Context, collection string, filters []Filter, opts QueryOptions) ([]Document, error) {
	var recs []record
	if err := s.DB.WithContext(ctx).Where("collection = ?", collection).Find(&recs).Error; err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(recs))
	for _, rec := range recs {
		var doc Document
		if err := json.Unmarshal([]byte(rec.Payload), &doc); err != nil {
			return nil, fmt.Errorf("unmarshal document %s/%s: %w", collection, rec.DocID, err)
		}
		if matchesAll(doc, filters) {
			docs = append(docs, doc)
		}
	}

	if opts.OrderBy != "" {
		sort.SliceStable(docs, func(i, j int) bool {
			cmp, ok := compare(docs[i][opts.OrderBy], docs[j][opts.OrderBy])
			if !ok {
				return false
			}
			if opts.Desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}
	if opts.Limit > 0 && len(docs) > opts.Limit {
		docs = docs[:opts.Limit]
	}
	return docs, nil
}

func matchesAll(doc Document, filters []Filter) bool {
	for _, f := range filters {
		if !matches(doc[f.Field], f) {
			return false
		}
	}
	return true
}

func matches(got any, f Filter) bool {
	cmp, ok := compare(got, f.Value)
	if !ok {
		// Incomparable values only satisfy inequality.
		return f.Op == "!="
	}
	switch f.Op {
	case "==":
		return cmp == 0
	case "!=":
		return cmp != 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	}
	return false
}

// compare normalizes both sides to the JSON value domain before
// comparing. Booleans order false < true so equality filters on flags
// work.
func compare(a, b any) (int, bool) {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		if !bok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		// RFC3339Nano trims trailing zeros, so timestamps have to be
		// compared as times, not lexically.
		if at, err := time.Parse(time.RFC3339Nano, av); err == nil {
			if bt, err := time.Parse(time.RFC3339Nano, bv); err == nil {
				switch {
				case at.Before(bt):
					return -1, true
				case at.After(bt):
					return 1, true
				}
				return 0, true
			}
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		}
		return 1, true
	case nil:
		if b == nil {
			return 0, true
		}
		return 0, false
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
