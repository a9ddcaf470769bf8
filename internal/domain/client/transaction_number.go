package client

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pharmabill/backend/internal/domain/shared"
)

const transactionNumberDateLayout = "20060102"

var transactionNumberPrefixes = map[TransactionType]string{
	TransactionTypeInvoice:    "INV",
	TransactionTypePayment:    "PAY",
	TransactionTypeCreditNote: "CN",
	TransactionTypeDebitNote:  "DN",
}

// Prefix returns the document number prefix, e.g. "INV"
func (t TransactionType) Prefix() string {
	return transactionNumberPrefixes[t]
}

// TransactionNumber is a parsed document number
type TransactionNumber struct {
	Type     TransactionType
	Date     time.Time
	Sequence int
}

// GenerateTransactionNumber formats {PREFIX}-{YYYYMMDD}-{SEQ}, with the sequence
// zero padded to at least four digits: INV-20250118-0001.
// Sequences restart per pharmacy, type and day.
func GenerateTransactionNumber(txType TransactionType, sequence int, date time.Time) (string, error) {
	prefix, ok := transactionNumberPrefixes[txType]
	if !ok {
		return "", shared.NewValidationError("invalid transaction type: %q", txType)
	}
	if sequence < 1 {
		return "", shared.NewValidationError("sequence must be positive")
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, date.Format(transactionNumberDateLayout), sequence), nil
}

// ParseTransactionNumber is the inverse of GenerateTransactionNumber
func ParseTransactionNumber(number string) (TransactionNumber, error) {
	parts := strings.Split(number, "-")
	if len(parts) != 3 {
		return TransactionNumber{}, shared.NewValidationError("invalid transaction number format: %q", number)
	}

	var txType TransactionType
	for t, p := range transactionNumberPrefixes {
		if p == parts[0] {
			txType = t
			break
		}
	}
	if txType == "" {
		return TransactionNumber{}, shared.NewValidationError("invalid transaction number prefix: %q", parts[0])
	}

	date, err := time.Parse(transactionNumberDateLayout, parts[1])
	if err != nil {
		return TransactionNumber{}, shared.NewValidationError("invalid transaction number date: %q", parts[1])
	}

	seq, err := strconv.Atoi(parts[2])
	if err != nil || seq < 1 || len(parts[2]) < 4 {
		return TransactionNumber{}, shared.NewValidationError("invalid transaction number sequence: %q", parts[2])
	}

	return TransactionNumber{Type: txType, Date: date, Sequence: seq}, nil
}
