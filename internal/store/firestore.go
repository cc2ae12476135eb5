package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/castlemilk/pfinance/insights/internal/insights"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

const (
	transactionsCollection = "transactions"

	// firestorePageSize bounds each query; the source pages until exhausted.
	firestorePageSize = 500
	// firestoreBatchLimit is the maximum number of writes per batch commit.
	firestoreBatchLimit = 500
)

// FirestoreSource reads ledger records from the transactions collection.
type FirestoreSource struct {
	client   *firestore.Client
	pageSize int
}

// NewFirestoreSource creates a new Firestore-backed transaction source
func NewFirestoreSource(client *firestore.Client) *FirestoreSource {
	return &FirestoreSource{
		client:   client,
		pageSize: firestorePageSize,
	}
}

// rangeQuery filters by user and day range. Firestore requires OrderBy on the
// range field first, so results are ordered by date then document ID, which
// is also the cursor used between pages.
func (s *FirestoreSource) rangeQuery(userID string, r DateRange) firestore.Query {
	query := s.client.Collection(transactionsCollection).Where("userId", "==", userID)
	if !r.Start.IsZero() {
		query = query.Where("date", ">=", insights.Day(r.Start))
	}
	if !r.End.IsZero() {
		query = query.Where("date", "<", insights.Day(r.End).AddDate(0, 0, 1))
	}
	return query.OrderBy("date", firestore.Asc).OrderBy(firestore.DocumentID, firestore.Asc)
}

func (s *FirestoreSource) ListTransactions(ctx context.Context, userID string, r DateRange) ([]insights.Transaction, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	var records []TransactionRecord
	var cursor *firestore.DocumentSnapshot
	for {
		query := s.rangeQuery(userID, r).Limit(s.pageSize)
		if cursor != nil {
			query = query.StartAfter(cursor.Data()["date"], cursor.Ref.ID)
		}

		page, last, err := s.readPage(ctx, query)
		if err != nil {
			return nil, err
		}
		records = append(records, page...)
		if len(page) < s.pageSize {
			break
		}
		cursor = last
	}
	return convertRecords(records)
}

func (s *FirestoreSource) readPage(ctx context.Context, query firestore.Query) ([]TransactionRecord, *firestore.DocumentSnapshot, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	var (
		records []TransactionRecord
		last    *firestore.DocumentSnapshot
	)
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list transactions: %w", err)
		}
		var rec TransactionRecord
		if err := doc.DataTo(&rec); err != nil {
			return nil, nil, fmt.Errorf("failed to parse transaction %s: %w", doc.Ref.ID, err)
		}
		rec.ID = doc.Ref.ID
		records = append(records, rec)
		last = doc
	}
	return records, last, nil
}

// PutRecords writes records in batches of at most 500. Records without an ID
// get a generated one.
func (s *FirestoreSource) PutRecords(ctx context.Context, records ...TransactionRecord) error {
	for _, rec := range records {
		if _, err := rec.ToTransaction(); err != nil {
			return err
		}
	}

	coll := s.client.Collection(transactionsCollection)
	for i := 0; i < len(records); i += firestoreBatchLimit {
		end := min(i+firestoreBatchLimit, len(records))
		batch := s.client.Batch()
		for _, rec := range records[i:end] {
			if rec.ID == "" {
				rec.ID = uuid.New().String()
			}
			rec.Date = insights.Day(rec.Date)
			batch.Set(coll.Doc(rec.ID), rec)
		}
		if _, err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("failed to batch write transactions: %w", err)
		}
	}
	return nil
}

// DeleteUser deletes all transactions of a user.
func (s *FirestoreSource) DeleteUser(ctx context.Context, userID string) error {
	docs, err := s.client.Collection(transactionsCollection).Where("userId", "==", userID).Documents(ctx).GetAll()
	if err != nil {
		return fmt.Errorf("failed to query transactions: %w", err)
	}
	for i := 0; i < len(docs); i += firestoreBatchLimit {
		end := min(i+firestoreBatchLimit, len(docs))
		batch := s.client.Batch()
		for _, doc := range docs[i:end] {
			batch.Delete(doc.Ref)
		}
		if _, err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("failed to batch delete transactions: %w", err)
		}
	}
	return nil
}
