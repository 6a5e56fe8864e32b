package pipeline

import (
	"context"
	"fmt"
	"time"

	"trade-snapshot-lab/internal/domain"
	"trade-snapshot-lab/internal/storage"
)

// Fixture accounts. acc_004 is disabled and never reaches the ledger.
var fixtureAccounts = []domain.Account{
	{LoginHash: "acc_001", ServerHash: "srv_eu", CountryHash: "c_de", Currency: "EUR", Enable: true},
	{LoginHash: "acc_001", ServerHash: "srv_us", CountryHash: "c_de", Currency: "EUR", Enable: true},
	{LoginHash: "acc_002", ServerHash: "srv_eu", CountryHash: "c_fr", Currency: "EUR", Enable: true},
	{LoginHash: "acc_003", ServerHash: "srv_us", CountryHash: "c_us", Currency: "USD", Enable: true},
	{LoginHash: "acc_004", ServerHash: "srv_us", CountryHash: "c_us", Currency: "USD", Enable: false},
}

var fixtureSymbols = []string{"EURUSD", "XAUUSD", "GBPUSD"}

// DemoAccounts returns the fixture accounts.
func DemoAccounts() []*domain.Account {
	out := make([]*domain.Account, len(fixtureAccounts))
	for i := range fixtureAccounts {
		a := fixtureAccounts[i]
		out[i] = &a
	}
	return out
}

// DemoTrades returns a deterministic trade history from 2020-05-20 to
// 2020-09-28. Every fourth account-day is idle; one trade per account is
// left open and one has a close time before its open time, so the loader
// has something to drop.
func DemoTrades() []*domain.Trade {
	first := time.Date(2020, time.May, 20, 0, 0, 0, 0, time.UTC)
	last := time.Date(2020, time.September, 28, 0, 0, 0, 0, time.UTC)

	var trades []*domain.Trade
	seq := 0
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		n := int(day.Sub(first).Hours() / 24)
		for ai, a := range fixtureAccounts {
			if (n+ai)%4 == 3 {
				continue
			}
			seq++
			open := day.Add(time.Duration(8+ai) * time.Hour).Add(time.Duration(n%60) * time.Minute)
			closeAt := open.Add(time.Duration(30+10*ai) * time.Minute)
			cs := 100000.0
			trades = append(trades, &domain.Trade{
				TicketHash:   fmt.Sprintf("tkt_%06d", seq),
				LoginHash:    a.LoginHash,
				ServerHash:   a.ServerHash,
				Symbol:       fixtureSymbols[(n+ai)%len(fixtureSymbols)],
				Digits:       5,
				Cmd:          seq % 2,
				Volume:       float64(1+(n*7+ai*3)%10) / 10,
				OpenTime:     open,
				CloseTime:    &closeAt,
				OpenPrice:    1.1 + float64(n%50)/1000,
				ContractSize: &cs,
			})
		}
	}

	for _, a := range fixtureAccounts {
		open := last.Add(20 * time.Hour)
		seq++
		trades = append(trades, &domain.Trade{
			TicketHash: fmt.Sprintf("tkt_%06d", seq),
			LoginHash:  a.LoginHash,
			ServerHash: a.ServerHash,
			Symbol:     "EURUSD",
			Digits:     5,
			Volume:     1,
			OpenTime:   open,
		})

		inverted := open.Add(-time.Hour)
		seq++
		trades = append(trades, &domain.Trade{
			TicketHash: fmt.Sprintf("tkt_%06d", seq),
			LoginHash:  a.LoginHash,
			ServerHash: a.ServerHash,
			Symbol:     "EURUSD",
			Digits:     5,
			Volume:     1,
			OpenTime:   open,
			CloseTime:  &inverted,
		})
	}

	return trades
}

// LoadFixtures populates stores with the demo ledger.
func LoadFixtures(ctx context.Context, accountStore storage.AccountStore, tradeStore storage.TradeStore) error {
	if err := accountStore.InsertBulk(ctx, DemoAccounts()); err != nil {
		return fmt.Errorf("load fixture accounts: %w", err)
	}
	if err := tradeStore.InsertBulk(ctx, DemoTrades()); err != nil {
		return fmt.Errorf("load fixture trades: %w", err)
	}
	return nil
}
