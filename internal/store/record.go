package store

import (
	"fmt"
	"time"

	"github.com/castlemilk/pfinance/insights/internal/insights"
)

// TransactionKind is the ledger direction of a record.
type TransactionKind string

const (
	KindCredit TransactionKind = "credit"
	KindDebit  TransactionKind = "debit"
)

// TransactionRecord is a ledger row as persisted by the transaction sources.
type TransactionRecord struct {
	ID          string          `firestore:"-" json:"id"`
	UserID      string          `firestore:"userId" json:"userId"`
	Date        time.Time       `firestore:"date" json:"date"`
	Amount      float64         `firestore:"amount" json:"amount"`
	Kind        TransactionKind `firestore:"kind" json:"kind"`
	Description string          `firestore:"description" json:"description"`
	Category    string          `firestore:"category,omitempty" json:"category,omitempty"`
}

// ToTransaction converts the record into an analytics transaction. Credits
// become income and debits expenses; the date is truncated to its UTC day.
// Invalid records return an error wrapping *insights.ValidationError.
func (r TransactionRecord) ToTransaction() (insights.Transaction, error) {
	tx := insights.Transaction{
		ID:          r.ID,
		Date:        insights.Day(r.Date),
		Amount:      r.Amount,
		Description: r.Description,
		Category:    r.Category,
	}
	switch r.Kind {
	case KindCredit:
		tx.Type = insights.Income
	case KindDebit:
		tx.Type = insights.Expense
	default:
		return insights.Transaction{}, fmt.Errorf("record %s: %w", r.ID,
			&insights.ValidationError{TransactionID: r.ID, Field: "kind", Reason: fmt.Sprintf("unknown kind %q", r.Kind)})
	}
	if err := tx.Validate(); err != nil {
		return insights.Transaction{}, fmt.Errorf("record %s: %w", r.ID, err)
	}
	return tx, nil
}

// RecordFromTransaction builds the ledger record of an analytics transaction.
func RecordFromTransaction(userID string, tx insights.Transaction) TransactionRecord {
	kind := KindDebit
	if tx.Type == insights.Income {
		kind = KindCredit
	}
	return TransactionRecord{
		ID:          tx.ID,
		UserID:      userID,
		Date:        insights.Day(tx.Date),
		Amount:      tx.Amount,
		Kind:        kind,
		Description: tx.Description,
		Category:    tx.Category,
	}
}

// convertRecords converts records in order, failing on the first invalid one.
func convertRecords(records []TransactionRecord) ([]insights.Transaction, error) {
	txs := make([]insights.Transaction, 0, len(records))
	for _, rec := range records {
		tx, err := rec.ToTransaction()
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
