// Package live generates next-day limit order sheets from persisted account
// state and reconciles them against realized closes. Live trading executes at
// the raw close; adjClose stays a backtest-only concept.
package live

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/shopspring/decimal"
	"github.com/tierlab/splitbuy/internal/logger"
	"github.com/tierlab/splitbuy/internal/types"
	"github.com/tierlab/splitbuy/pkg/errors"
	"go.uber.org/zap"
)

// Account is the persisted head state of one live strategy instance. Tier
// holdings live in their own table; cash and the reference prices needed to
// rebuild the engine live here.
type Account struct {
	AccountID    string          `yaml:"account_id" json:"account_id"`
	Ticker       string          `yaml:"ticker" json:"ticker"`
	Strategy     string          `yaml:"strategy" json:"strategy"`
	Cash         decimal.Decimal `yaml:"cash" json:"cash"`
	CycleCapital decimal.Decimal `yaml:"cycle_capital" json:"cycle_capital"`
	LastBuyPrice decimal.Decimal `yaml:"last_buy_price" json:"last_buy_price"`
	// LastClose is the raw close of the most recently processed trading day;
	// it anchors the next day's buy trigger while the account is in cash.
	LastClose decimal.Decimal `yaml:"last_close" json:"last_close"`
	CreatedAt time.Time       `yaml:"created_at" json:"created_at"`
	UpdatedAt time.Time       `yaml:"updated_at" json:"updated_at"`
}

// AccountState persists accounts, tier holdings and daily orders in DuckDB.
// Monetary values are stored as strings so no precision is lost round-tripping
// through the database.
type AccountState struct {
	db  *sql.DB
	log *logger.Logger
}

// NewAccountState opens (or creates) the database at dbPath and ensures the
// schema exists. An empty path opens an in-memory database.
func NewAccountState(dbPath string, log *logger.Logger) (*AccountState, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to open account store", err)
	}

	schemas := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			account_id VARCHAR PRIMARY KEY,
			ticker VARCHAR NOT NULL,
			strategy VARCHAR NOT NULL,
			cash VARCHAR NOT NULL,
			cycle_capital VARCHAR NOT NULL,
			last_buy_price VARCHAR NOT NULL,
			last_close VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS account_tiers (
			account_id VARCHAR NOT NULL,
			tier_index INTEGER NOT NULL,
			entry_date DATE NOT NULL,
			entry_price VARCHAR NOT NULL,
			share_count BIGINT NOT NULL,
			days_held INTEGER NOT NULL,
			PRIMARY KEY (account_id, tier_index)
		)`,
		`CREATE TABLE IF NOT EXISTS daily_orders (
			order_id VARCHAR PRIMARY KEY,
			account_id VARCHAR NOT NULL,
			ticker VARCHAR NOT NULL,
			date DATE NOT NULL,
			tier_index INTEGER NOT NULL,
			side VARCHAR NOT NULL,
			limit_price VARCHAR NOT NULL,
			quantity BIGINT NOT NULL,
			executed BOOLEAN NOT NULL,
			executed_price VARCHAR,
			created_at TIMESTAMP NOT NULL
		)`,
	}

	for _, schema := range schemas {
		if _, err := db.Exec(schema); err != nil {
			db.Close()

			return nil, errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to create account schema", err)
		}
	}

	return &AccountState{db: db, log: log}, nil
}

// CreateAccount inserts a fresh, fully-in-cash account.
func (s *AccountState) CreateAccount(ctx context.Context, account Account) error {
	now := time.Now().UTC()

	query, args, err := sq.Insert("accounts").
		Columns("account_id", "ticker", "strategy", "cash", "cycle_capital", "last_buy_price", "last_close", "created_at", "updated_at").
		Values(account.AccountID, account.Ticker, account.Strategy,
			account.Cash.String(), account.CycleCapital.String(), account.LastBuyPrice.String(), account.LastClose.String(),
			now, now).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build account insert", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to create account %s", account.AccountID)
	}

	s.log.Info("account created",
		zap.String("account_id", account.AccountID),
		zap.String("ticker", account.Ticker),
		zap.String("strategy", account.Strategy),
	)

	return nil
}

// GetAccount loads the head state of one account.
func (s *AccountState) GetAccount(ctx context.Context, accountID string) (Account, error) {
	query, args, err := sq.Select("account_id", "ticker", "strategy", "cash", "cycle_capital", "last_buy_price", "last_close", "created_at", "updated_at").
		From("accounts").
		Where(sq.Eq{"account_id": accountID}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return Account{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build account query", err)
	}

	var account Account
	var cash, cycleCapital, lastBuyPrice, lastClose string

	row := s.db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&account.AccountID, &account.Ticker, &account.Strategy,
		&cash, &cycleCapital, &lastBuyPrice, &lastClose,
		&account.CreatedAt, &account.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return Account{}, errors.Newf(errors.ErrCodeAccountNotFound, "account %s not found", accountID)
		}

		return Account{}, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to load account %s", accountID)
	}

	if account.Cash, err = decimal.NewFromString(cash); err != nil {
		return Account{}, errors.Wrap(errors.ErrCodeQueryFailed, "corrupt cash value", err)
	}
	if account.CycleCapital, err = decimal.NewFromString(cycleCapital); err != nil {
		return Account{}, errors.Wrap(errors.ErrCodeQueryFailed, "corrupt cycle capital value", err)
	}
	if account.LastBuyPrice, err = decimal.NewFromString(lastBuyPrice); err != nil {
		return Account{}, errors.Wrap(errors.ErrCodeQueryFailed, "corrupt last buy price value", err)
	}
	if account.LastClose, err = decimal.NewFromString(lastClose); err != nil {
		return Account{}, errors.Wrap(errors.ErrCodeQueryFailed, "corrupt last close value", err)
	}

	return account, nil
}

// GetPosition rebuilds the full tier layout for an account. Empty tiers are
// not stored; splitCount fixes the layout width.
func (s *AccountState) GetPosition(ctx context.Context, accountID string, splitCount int, cash decimal.Decimal) (types.CyclePosition, error) {
	query, args, err := sq.Select("tier_index", "entry_date", "entry_price", "share_count", "days_held").
		From("account_tiers").
		Where(sq.Eq{"account_id": accountID}).
		OrderBy("tier_index ASC").
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return types.CyclePosition{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build tier query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return types.CyclePosition{}, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to load tiers for %s", accountID)
	}
	defer rows.Close()

	tiers := make([]types.Tier, splitCount)
	for i := range tiers {
		tiers[i] = types.Tier{Index: i}
	}

	for rows.Next() {
		var (
			tierIndex, daysHeld int
			entryDate           time.Time
			entryPrice          string
			shareCount          int64
		)

		if err := rows.Scan(&tierIndex, &entryDate, &entryPrice, &shareCount, &daysHeld); err != nil {
			return types.CyclePosition{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan tier", err)
		}

		if tierIndex < 0 || tierIndex >= splitCount {
			return types.CyclePosition{}, errors.Newf(errors.ErrCodeInconsistentState,
				"stored tier index %d outside strategy layout of %d tiers", tierIndex, splitCount)
		}

		price, err := decimal.NewFromString(entryPrice)
		if err != nil {
			return types.CyclePosition{}, errors.Wrap(errors.ErrCodeQueryFailed, "corrupt entry price", err)
		}

		tiers[tierIndex] = types.Tier{
			Index:      tierIndex,
			EntryDate:  entryDate,
			EntryPrice: price,
			ShareCount: shareCount,
			DaysHeld:   daysHeld,
		}
	}

	if err := rows.Err(); err != nil {
		return types.CyclePosition{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate tiers", err)
	}

	return types.CyclePosition{Tiers: tiers, Cash: cash}, nil
}

// SaveState atomically replaces an account's head state and tier holdings.
func (s *AccountState) SaveState(ctx context.Context, account Account, position types.CyclePosition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	update, args, err := sq.Update("accounts").
		Set("strategy", account.Strategy).
		Set("cash", types.RoundMoney(position.Cash).String()).
		Set("cycle_capital", account.CycleCapital.String()).
		Set("last_buy_price", account.LastBuyPrice.String()).
		Set("last_close", account.LastClose.String()).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"account_id": account.AccountID}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build account update", err)
	}

	if _, err := tx.ExecContext(ctx, update, args...); err != nil {
		return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to update account %s", account.AccountID)
	}

	// Tiers are upserted in place and only emptied tiers deleted. A blanket
	// delete-then-reinsert of a still-held (account_id, tier_index) would
	// trip DuckDB's duplicate-key check even inside one transaction.
	holding := position.HoldingTiers()

	heldIndexes := make([]int, 0, len(holding))
	for _, tier := range holding {
		heldIndexes = append(heldIndexes, tier.Index)
	}

	delBuilder := sq.Delete("account_tiers").
		Where(sq.Eq{"account_id": account.AccountID})
	if len(heldIndexes) > 0 {
		delBuilder = delBuilder.Where(sq.NotEq{"tier_index": heldIndexes})
	}

	del, args, err := delBuilder.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build tier delete", err)
	}

	if _, err := tx.ExecContext(ctx, del, args...); err != nil {
		return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to clear emptied tiers for %s", account.AccountID)
	}

	for _, tier := range holding {
		insert, args, err := sq.Insert("account_tiers").
			Options("OR REPLACE").
			Columns("account_id", "tier_index", "entry_date", "entry_price", "share_count", "days_held").
			Values(account.AccountID, tier.Index, tier.EntryDate.Format(types.DateLayout), tier.EntryPrice.String(), tier.ShareCount, tier.DaysHeld).
			PlaceholderFormat(sq.Question).
			ToSql()
		if err != nil {
			return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build tier upsert", err)
		}

		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to save tier %d for %s", tier.Index, account.AccountID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to commit state", err)
	}

	return nil
}

// InsertOrders appends orders to the order sheet.
func (s *AccountState) InsertOrders(ctx context.Context, orders []types.DailyOrder) error {
	for _, order := range orders {
		if err := order.Validate(); err != nil {
			return err
		}

		query, args, err := sq.Insert("daily_orders").
			Columns("order_id", "account_id", "ticker", "date", "tier_index", "side", "limit_price", "quantity", "executed", "executed_price", "created_at").
			Values(order.OrderID, order.AccountID, order.Ticker, order.Date.Format(types.DateLayout),
				order.TierIndex, string(order.Side), order.LimitPrice.String(), order.Quantity,
				order.Executed, nil, order.CreatedAt).
			PlaceholderFormat(sq.Question).
			ToSql()
		if err != nil {
			return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build order insert", err)
		}

		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to insert order %s", order.OrderID)
		}
	}

	return nil
}

// PendingOrders returns the unexecuted orders for an account, oldest first.
func (s *AccountState) PendingOrders(ctx context.Context, accountID string) ([]types.DailyOrder, error) {
	query, args, err := sq.Select("order_id", "account_id", "ticker", "date", "tier_index", "side", "limit_price", "quantity", "created_at").
		From("daily_orders").
		Where(sq.Eq{"account_id": accountID, "executed": false}).
		OrderBy("date ASC", "tier_index ASC").
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build pending order query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to load pending orders for %s", accountID)
	}
	defer rows.Close()

	var orders []types.DailyOrder

	for rows.Next() {
		var order types.DailyOrder
		var side, limitPrice string

		if err := rows.Scan(&order.OrderID, &order.AccountID, &order.Ticker, &order.Date,
			&order.TierIndex, &side, &limitPrice, &order.Quantity, &order.CreatedAt); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan order", err)
		}

		order.Side = types.OrderSide(side)
		if order.LimitPrice, err = decimal.NewFromString(limitPrice); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "corrupt limit price", err)
		}

		orders = append(orders, order)
	}

	return orders, rows.Err()
}

// MarkOrderExecuted records the fill price for one order.
func (s *AccountState) MarkOrderExecuted(ctx context.Context, orderID string, fillPrice decimal.Decimal) error {
	query, args, err := sq.Update("daily_orders").
		Set("executed", true).
		Set("executed_price", fillPrice.String()).
		Where(sq.Eq{"order_id": orderID}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build order update", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to mark order %s executed", orderID)
	}

	return nil
}

// DeletePendingOrders drops the still-unexecuted orders for an account. Called
// after carry-forward re-evaluation, once the stale sheet has been superseded.
func (s *AccountState) DeletePendingOrders(ctx context.Context, accountID string) error {
	query, args, err := sq.Delete("daily_orders").
		Where(sq.Eq{"account_id": accountID, "executed": false}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build order delete", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to delete pending orders for %s", accountID)
	}

	return nil
}

// Close closes the underlying database.
func (s *AccountState) Close() error {
	return s.db.Close()
}
