// Package ledger checks and prepares the cleaned trade ledger.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"trade-snapshot-lab/internal/domain"
)

// Violation describes the first record found to break the input contract.
type Violation struct {
	Index    int    // position in the input slice
	TicketID string // offending ticket, may be empty
	Field    string
	Reason   string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s: record %d (ticket %q) field %s: %s",
		domain.ErrDataContract, v.Index, v.TicketID, v.Field, v.Reason)
}

// Unwrap lets errors.Is match domain.ErrDataContract.
func (v *Violation) Unwrap() error {
	return domain.ErrDataContract
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func recordValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks every record against the cleaned-ledger contract:
// required identifiers, positive volume, close after open, unique tickets
// and a single currency per account. It fails on the first violation.
func Validate(records []domain.TradeRecord) error {
	v := recordValidator()

	tickets := make(map[string]int, len(records))
	currencies := make(map[string]string)

	for i := range records {
		r := &records[i]

		if err := v.Struct(r); err != nil {
			var fieldErrs validator.ValidationErrors
			if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
				fe := fieldErrs[0]
				return &Violation{
					Index:    i,
					TicketID: r.TicketID,
					Field:    fe.Field(),
					Reason:   describe(fe),
				}
			}
			return fmt.Errorf("validate record %d: %w", i, err)
		}

		if prev, exists := tickets[r.TicketID]; exists {
			return &Violation{
				Index:    i,
				TicketID: r.TicketID,
				Field:    "TicketID",
				Reason:   fmt.Sprintf("duplicate of record %d", prev),
			}
		}
		tickets[r.TicketID] = i

		if cur, exists := currencies[r.AccountID]; exists && cur != r.Currency {
			return &Violation{
				Index:    i,
				TicketID: r.TicketID,
				Field:    "Currency",
				Reason:   fmt.Sprintf("account %s has currencies %s and %s", r.AccountID, cur, r.Currency),
			}
		}
		currencies[r.AccountID] = r.Currency
	}

	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "missing"
	case "gt":
		return fmt.Sprintf("must be greater than %s, got %v", fe.Param(), fe.Value())
	case "gtfield":
		return fmt.Sprintf("must be after %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}
