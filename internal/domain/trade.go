package domain

import "time"

// Trade represents a closed or open deal as stored in the source ledger.
// Corresponds to trades table in PostgreSQL.
type Trade struct {
	TicketHash   string     // PRIMARY KEY
	LoginHash    string     // owning account
	ServerHash   string     // broker server
	Symbol       string     // traded instrument
	Digits       int        // price precision
	Cmd          int        // 0 = buy, 1 = sell
	Volume       float64    // lots
	OpenTime     time.Time  // position open timestamp
	CloseTime    *time.Time // nil while the position is open
	OpenPrice    float64
	ContractSize *float64 // nullable in source
}

// AccountKey returns the account the trade belongs to.
func (t Trade) AccountKey() AccountKey {
	return AccountKey{LoginHash: t.LoginHash, ServerHash: t.ServerHash}
}

// TradeRecord is a closed trade joined with its account.
// It is the read-only input of the snapshot engine.
type TradeRecord struct {
	TicketID   string    `validate:"required"`
	AccountID  string    `validate:"required"`
	ServerID   string    `validate:"required"`
	Instrument string    `validate:"required"`
	Volume     float64   `validate:"gt=0"`
	OpenTime   time.Time `validate:"required"`
	CloseTime  time.Time `validate:"required,gtfield=OpenTime"`
	Currency   string    `validate:"required"`
}

// Position returns the (account, server, instrument) key of the trade.
func (r TradeRecord) Position() PositionKey {
	return PositionKey{AccountID: r.AccountID, ServerID: r.ServerID, Instrument: r.Instrument}
}
