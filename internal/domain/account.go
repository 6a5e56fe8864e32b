package domain

// Account represents a trading account registered on a broker server.
// Corresponds to users table in PostgreSQL.
type Account struct {
	LoginHash   string // account identifier
	ServerHash  string // broker server identifier
	CountryHash string // account country (hashed)
	Currency    string // account denomination currency
	Enable      bool   // only enabled accounts enter the ledger
}

// AccountKey identifies an account on a server.
type AccountKey struct {
	LoginHash  string
	ServerHash string
}

// Key returns the (login, server) identity of the account.
func (a Account) Key() AccountKey {
	return AccountKey{LoginHash: a.LoginHash, ServerHash: a.ServerHash}
}
