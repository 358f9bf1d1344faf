// Package bolt provides a bbolt-backed document store implementing storage.Store.
// Each record is one JSON document keyed by its ID.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/mmynk/divvy/internal/models"
	"github.com/mmynk/divvy/internal/storage"
)

// Bucket names.
const (
	BucketExpenses = "expenses"
	BucketPayments = "payments"
)

var _ storage.Store = (*Store)(nil)

// Store represents the bbolt database wrapper.
type Store struct {
	db *bolt.DB
}

// expenseDoc is the stored form of an expense. Seq breaks ties between
// records with the same timestamp so newer inserts list first.
type expenseDoc struct {
	Seq uint64 `json:"seq"`
	models.Expense
}

type paymentDoc struct {
	Seq uint64 `json:"seq"`
	models.Payment
}

// New opens (or creates) the database file and initializes buckets.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range []string{BucketExpenses, BucketPayments} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// put stores doc under id, assigning the next sequence number.
func put(tx *bolt.Tx, bucket, id string, setSeq func(uint64), doc any) error {
	b := tx.Bucket([]byte(bucket))
	seq, err := b.NextSequence()
	if err != nil {
		return fmt.Errorf("failed to allocate sequence: %w", err)
	}
	setSeq(seq)
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", bucket, err)
	}
	return b.Put([]byte(id), data)
}

func get(tx *bolt.Tx, bucket, kind, id string, doc any) error {
	data := tx.Bucket([]byte(bucket)).Get([]byte(id))
	if data == nil {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", kind, err)
	}
	return nil
}

func del(tx *bolt.Tx, bucket, kind, id string) error {
	b := tx.Bucket([]byte(bucket))
	if b.Get([]byte(id)) == nil {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	return b.Delete([]byte(id))
}

// CreateExpense persists a new expense document.
func (s *Store) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.OccurredAt.IsZero() {
		expense.OccurredAt = time.Now()
	}

	doc := &expenseDoc{Expense: *expense}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return put(tx, BucketExpenses, expense.ID, func(seq uint64) { doc.Seq = seq }, doc)
	})
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}
	return nil
}

// GetExpense retrieves an expense by ID.
func (s *Store) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	var doc expenseDoc
	err := s.db.View(func(tx *bolt.Tx) error {
		return get(tx, BucketExpenses, "expense", id, &doc)
	})
	if err != nil {
		return nil, err
	}
	return &doc.Expense, nil
}

// ListExpenses returns all expenses, newest first.
func (s *Store) ListExpenses(ctx context.Context) ([]*models.Expense, error) {
	var docs []expenseDoc
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketExpenses)).ForEach(func(_, v []byte) error {
			var doc expenseDoc
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("failed to unmarshal expense: %w", err)
			}
			docs = append(docs, doc)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].OccurredAt.Equal(docs[j].OccurredAt) {
			return docs[i].OccurredAt.After(docs[j].OccurredAt)
		}
		return docs[i].Seq > docs[j].Seq
	})

	expenses := make([]*models.Expense, len(docs))
	for i := range docs {
		expenses[i] = &docs[i].Expense
	}
	return expenses, nil
}

// UpdateExpense applies a partial update inside a single write transaction.
func (s *Store) UpdateExpense(ctx context.Context, id string, update models.ExpenseUpdate) (*models.Expense, error) {
	var updated models.Expense
	err := s.db.Update(func(tx *bolt.Tx) error {
		var doc expenseDoc
		if err := get(tx, BucketExpenses, "expense", id, &doc); err != nil {
			return err
		}
		doc.Expense = update.Apply(doc.Expense)
		updated = doc.Expense

		data, err := json.Marshal(&doc)
		if err != nil {
			return fmt.Errorf("failed to marshal expense: %w", err)
		}
		return tx.Bucket([]byte(BucketExpenses)).Put([]byte(id), data)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteExpense removes an expense document.
func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return del(tx, BucketExpenses, "expense", id)
	})
}

// CreatePayment persists a new payment document.
func (s *Store) CreatePayment(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if payment.OccurredAt.IsZero() {
		payment.OccurredAt = time.Now()
	}

	doc := &paymentDoc{Payment: *payment}
	doc.RelatedExpenseIDs = relatedIDs(payment.RelatedExpenseIDs)
	err := s.db.Update(func(tx *bolt.Tx) error {
		return put(tx, BucketPayments, payment.ID, func(seq uint64) { doc.Seq = seq }, doc)
	})
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// relatedIDs returns ids sorted and without duplicates, the order the SQL
// stores read them back in.
func relatedIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

// GetPayment retrieves a payment by ID.
func (s *Store) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	var doc paymentDoc
	err := s.db.View(func(tx *bolt.Tx) error {
		return get(tx, BucketPayments, "payment", id, &doc)
	})
	if err != nil {
		return nil, err
	}
	return &doc.Payment, nil
}

// ListPayments returns all payments, newest first.
func (s *Store) ListPayments(ctx context.Context) ([]*models.Payment, error) {
	var docs []paymentDoc
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketPayments)).ForEach(func(_, v []byte) error {
			var doc paymentDoc
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("failed to unmarshal payment: %w", err)
			}
			docs = append(docs, doc)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].OccurredAt.Equal(docs[j].OccurredAt) {
			return docs[i].OccurredAt.After(docs[j].OccurredAt)
		}
		return docs[i].Seq > docs[j].Seq
	})

	payments := make([]*models.Payment, len(docs))
	for i := range docs {
		payments[i] = &docs[i].Payment
	}
	return payments, nil
}

// DeletePayment removes a payment document.
func (s *Store) DeletePayment(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return del(tx, BucketPayments, "payment", id)
	})
}
