package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-snapshot-lab/internal/domain"
)

func day(d, h int) time.Time {
	return time.Date(2020, time.June, d, h, 0, 0, 0, time.UTC)
}

func makeRecord(ticket string) domain.TradeRecord {
	return domain.TradeRecord{
		TicketID:   ticket,
		AccountID:  "acc-1",
		ServerID:   "srv-1",
		Instrument: "EURUSD",
		Volume:     1.5,
		OpenTime:   day(10, 9),
		CloseTime:  day(10, 11),
		Currency:   "USD",
	}
}

func TestValidate_Valid(t *testing.T) {
	records := []domain.TradeRecord{makeRecord("t1"), makeRecord("t2")}
	require.NoError(t, Validate(records))
}

func TestValidate_Empty(t *testing.T) {
	require.NoError(t, Validate(nil))
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *domain.TradeRecord)
		field  string
	}{
		{"zero volume", func(r *domain.TradeRecord) { r.Volume = 0 }, "Volume"},
		{"negative volume", func(r *domain.TradeRecord) { r.Volume = -2 }, "Volume"},
		{"close before open", func(r *domain.TradeRecord) { r.CloseTime = day(9, 0) }, "CloseTime"},
		{"close equals open", func(r *domain.TradeRecord) { r.CloseTime = r.OpenTime }, "CloseTime"},
		{"missing close", func(r *domain.TradeRecord) { r.CloseTime = time.Time{} }, "CloseTime"},
		{"missing account", func(r *domain.TradeRecord) { r.AccountID = "" }, "AccountID"},
		{"missing instrument", func(r *domain.TradeRecord) { r.Instrument = "" }, "Instrument"},
		{"missing currency", func(r *domain.TradeRecord) { r.Currency = "" }, "Currency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := makeRecord("t1")
			tt.mutate(&r)

			err := Validate([]domain.TradeRecord{makeRecord("t0"), r})
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrDataContract))

			var v *Violation
			require.True(t, errors.As(err, &v))
			assert.Equal(t, 1, v.Index)
			assert.Equal(t, tt.field, v.Field)
		})
	}
}

func TestValidate_DuplicateTicket(t *testing.T) {
	err := Validate([]domain.TradeRecord{makeRecord("t1"), makeRecord("t1")})

	var v *Violation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, "TicketID", v.Field)
	assert.ErrorIs(t, err, domain.ErrDataContract)
}

func TestValidate_CurrencyConflict(t *testing.T) {
	other := makeRecord("t2")
	other.Currency = "EUR"

	err := Validate([]domain.TradeRecord{makeRecord("t1"), other})

	var v *Violation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, "Currency", v.Field)
}

func TestJoin_FiltersAndOrders(t *testing.T) {
	closeLate := day(12, 10)
	closeEarly := day(11, 10)
	openAfterClose := day(11, 9)

	accounts := []*domain.Account{
		{LoginHash: "a1", ServerHash: "s1", Currency: "USD", Enable: true},
		{LoginHash: "a1", ServerHash: "s1", Currency: "USD", Enable: true}, // duplicate
		{LoginHash: "a2", ServerHash: "s1", Currency: "EUR", Enable: false},
	}
	trades := []*domain.Trade{
		{TicketHash: "t-late", LoginHash: "a1", ServerHash: "s1", Symbol: "EURUSD", Volume: 1, OpenTime: day(10, 0), CloseTime: &closeLate},
		{TicketHash: "t-early", LoginHash: "a1", ServerHash: "s1", Symbol: "GBPUSD", Volume: 2, OpenTime: day(10, 0), CloseTime: &closeEarly},
		{TicketHash: "t-open", LoginHash: "a1", ServerHash: "s1", Symbol: "EURUSD", Volume: 1, OpenTime: day(10, 0)},
		{TicketHash: "t-disabled", LoginHash: "a2", ServerHash: "s1", Symbol: "EURUSD", Volume: 1, OpenTime: day(10, 0), CloseTime: &closeLate},
		{TicketHash: "t-orphan", LoginHash: "a3", ServerHash: "s1", Symbol: "EURUSD", Volume: 1, OpenTime: day(10, 0), CloseTime: &closeLate},
		{TicketHash: "t-inverted", LoginHash: "a1", ServerHash: "s1", Symbol: "EURUSD", Volume: 1, OpenTime: day(11, 12), CloseTime: &openAfterClose},
	}

	records := Join(accounts, trades)

	require.Len(t, records, 2)
	assert.Equal(t, "t-early", records[0].TicketID)
	assert.Equal(t, "t-late", records[1].TicketID)
	assert.Equal(t, "USD", records[0].Currency)
	assert.Equal(t, "GBPUSD", records[0].Instrument)
	require.NoError(t, Validate(records))
}
