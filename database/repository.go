package database

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/edupay/fincore/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	account      // Interface for account-related operations
	transaction  // Interface for transaction-related operations
	conversion   // Interface for currency conversion records
	revenue      // Interface for revenue share records
	reservation  // Interface for resource reservations
	verification // Interface for gateway verification bookkeeping
}

// account defines methods for handling ledger accounts.
type account interface {
	GetAccount(ctx context.Context, principal model.Principal, currency string) (*model.Account, error) // Retrieves the account for one (principal, currency) pair
	GetAccountsByPrincipal(ctx context.Context, principal model.Principal) ([]model.Account, error)     // Retrieves all accounts a principal holds
}

// transaction defines methods for handling transactions. Every method that
// mutates an account balance also writes the explaining log row inside the
// same SQL transaction.
type transaction interface {
	ApplyTransaction(ctx context.Context, account *model.Account, txn *model.Transaction) error                                                                        // Persists one log entry and its balance mutation atomically
	TransactionExistsByRef(ctx context.Context, reference string) (bool, error)                                                                                        // Checks if a transaction exists by reference
	GetTransactionByRef(ctx context.Context, reference string) (*model.Transaction, error)                                                                             // Retrieves a transaction by reference
	GetTransactions(ctx context.Context, principal model.Principal, currency string, filter model.TransactionFilter, limit int, offset int64) ([]model.Transaction, error) // Retrieves transactions newest-first with pagination
	SumTransactionAmounts(ctx context.Context, principal model.Principal, currency string) (decimal.Decimal, error)                                                    // Replays the log: sum of signed amounts for one pair
}

// conversion defines methods for currency conversion records.
type conversion interface {
	ApplyConversion(ctx context.Context, source, destination *model.Account, debit, credit *model.Transaction, conv *model.Conversion) error // Persists a conversion and both legs atomically
	GetConversion(ctx context.Context, id string) (*model.Conversion, error)                                                                 // Retrieves a conversion by ID
}

// revenue defines methods for revenue share records.
type revenue interface {
	ApplySettlement(ctx context.Context, account *model.Account, credit *model.Transaction, share *model.RevenueShare) error // Persists a share record and the seller credit atomically
	GetRevenueShareBySaleRef(ctx context.Context, saleReference string) (*model.RevenueShare, error)                         // Retrieves a share record by sale reference
}

// reservation defines methods for resource reservations.
type reservation interface {
	CreateReservation(ctx context.Context, r *model.Reservation) error                                                    // Persists a new hold
	GetReservation(ctx context.Context, id string) (*model.Reservation, error)                                            // Retrieves a reservation by ID
	SumOpenReservations(ctx context.Context, principal model.Principal, resourceType string) (decimal.Decimal, error)     // Sums reserved amounts still in 'reserved' status
	FinalizeReservation(ctx context.Context, r *model.Reservation) error                                                  // Applies a terminal transition, guarded on status = 'reserved'
	GetReservations(ctx context.Context, principal model.Principal, resourceType string, limit int, offset int64) ([]model.Reservation, error) // Lists a principal's reservations newest-first
}

// verification defines methods for gateway verification bookkeeping.
type verification interface {
	RecordVerificationAttempt(ctx context.Context, reference, status string) error       // Upserts attempt metadata for a non-settled verification
	GetVerificationAttempt(ctx context.Context, reference string) (*model.VerificationAttempt, error) // Retrieves attempt metadata by reference
}
