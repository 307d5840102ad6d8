package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries holds the SQL of the ledger. It runs on the pool or inside a
// transaction (WithTx).
type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Transaction is a persisted transactions row.
type Transaction struct {
	GroupID     int64
	ID          int64
	UserID      int64
	Type        string
	AmountCents int64
	Description string
	CategoryID  int64
	MoneyTypeID int64
	Currency    string
	Timestamp   string
}

// ExchangeTransaction is a persisted exchange_transactions row.
type ExchangeTransaction struct {
	ID                int64
	GroupID           int64
	TransactionID     int64
	SourceCurrency    string
	TargetCurrency    string
	ExchangeRate      string
	SourceAmountCents int64
	TargetAmountCents int64
}

// EntryRow is a transaction joined with registry names and its optional exchange detail.
type EntryRow struct {
	Transaction
	CategoryName  string
	MoneyTypeName string
	Exchange      *ExchangeTransaction
}

type CategorySumRow struct {
	Name       string
	TotalCents int64
}

// Registry

const ensureCategory = `INSERT INTO categories (name) VALUES (?) ON CONFLICT (name) DO NOTHING`

const getCategoryID = `SELECT id FROM categories WHERE name = ?`

func (q *Queries) GetOrCreateCategory(ctx context.Context, name string) (int64, error) {
	if _, err := q.db.ExecContext(ctx, ensureCategory, name); err != nil {
		return 0, err
	}
	var id int64
	err := q.db.QueryRowContext(ctx, getCategoryID, name).Scan(&id)
	return id, err
}

func (q *Queries) GetCategoryID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, getCategoryID, name).Scan(&id)
	return id, err
}

const getCategoryName = `SELECT name FROM categories WHERE id = ?`

func (q *Queries) GetCategoryName(ctx context.Context, id int64) (string, error) {
	var name string
	err := q.db.QueryRowContext(ctx, getCategoryName, id).Scan(&name)
	return name, err
}

const renameCategory = `UPDATE categories SET name = ? WHERE id = ?`

func (q *Queries) RenameCategory(ctx context.Context, id int64, name string) error {
	_, err := q.db.ExecContext(ctx, renameCategory, name, id)
	return err
}

const listCategoryNames = `SELECT name FROM categories ORDER BY name`

func (q *Queries) ListCategoryNames(ctx context.Context) ([]string, error) {
	return q.queryStrings(ctx, listCategoryNames)
}

const ensureMoneyType = `INSERT INTO money_types (name) VALUES (?) ON CONFLICT (name) DO NOTHING`

const getMoneyTypeID = `SELECT id FROM money_types WHERE name = ?`

func (q *Queries) GetOrCreateMoneyType(ctx context.Context, name string) (int64, error) {
	if _, err := q.db.ExecContext(ctx, ensureMoneyType, name); err != nil {
		return 0, err
	}
	var id int64
	err := q.db.QueryRowContext(ctx, getMoneyTypeID, name).Scan(&id)
	return id, err
}

func (q *Queries) GetMoneyTypeID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, getMoneyTypeID, name).Scan(&id)
	return id, err
}

const getMoneyTypeName = `SELECT name FROM money_types WHERE id = ?`

func (q *Queries) GetMoneyTypeName(ctx context.Context, id int64) (string, error) {
	var name string
	err := q.db.QueryRowContext(ctx, getMoneyTypeName, id).Scan(&name)
	return name, err
}

// Ledger writes

const nextTransactionID = `
INSERT INTO ledger_sequences (group_id, last_id) VALUES (?, 1)
ON CONFLICT (group_id) DO UPDATE SET last_id = last_id + 1
RETURNING last_id`

func (q *Queries) NextTransactionID(ctx context.Context, groupID int64) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, nextTransactionID, groupID).Scan(&id)
	return id, err
}

const createTransaction = `
INSERT INTO transactions (
    group_id, id, user_id, type, amount_cents, description,
    category_id, money_type_id, currency, timestamp
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, t Transaction) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		t.GroupID, t.ID, t.UserID, t.Type, t.AmountCents, t.Description,
		t.CategoryID, t.MoneyTypeID, t.Currency, t.Timestamp)
	return err
}

const createExchangeTransaction = `
INSERT INTO exchange_transactions (
    group_id, transaction_id, source_currency, target_currency,
    exchange_rate, source_amount_cents, target_amount_cents
) VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateExchangeTransaction(ctx context.Context, e ExchangeTransaction) (int64, error) {
	res, err := q.db.ExecContext(ctx, createExchangeTransaction,
		e.GroupID, e.TransactionID, e.SourceCurrency, e.TargetCurrency,
		e.ExchangeRate, e.SourceAmountCents, e.TargetAmountCents)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const deleteExchangeByTransaction = `DELETE FROM exchange_transactions WHERE group_id = ? AND transaction_id = ?`

const deleteTransaction = `DELETE FROM transactions WHERE group_id = ? AND id = ?`

// DeleteTransaction removes a transaction and its exchange detail. It
// returns the number of transactions removed.
func (q *Queries) DeleteTransaction(ctx context.Context, groupID, id int64) (int64, error) {
	if _, err := q.db.ExecContext(ctx, deleteExchangeByTransaction, groupID, id); err != nil {
		return 0, err
	}
	res, err := q.db.ExecContext(ctx, deleteTransaction, groupID, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteGroupExchanges = `DELETE FROM exchange_transactions WHERE group_id = ?`

const deleteGroupTransactions = `DELETE FROM transactions WHERE group_id = ?`

const deleteGroupSequence = `DELETE FROM ledger_sequences WHERE group_id = ?`

// ClearGroup removes every row of a scope and its id sequence.
func (q *Queries) ClearGroup(ctx context.Context, groupID int64) (int64, error) {
	if _, err := q.db.ExecContext(ctx, deleteGroupExchanges, groupID); err != nil {
		return 0, err
	}
	res, err := q.db.ExecContext(ctx, deleteGroupTransactions, groupID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if _, err := q.db.ExecContext(ctx, deleteGroupSequence, groupID); err != nil {
		return 0, err
	}
	return n, nil
}

// Ledger reads

const countTransactions = `SELECT COUNT(*) FROM transactions WHERE group_id = ?`

func (q *Queries) CountTransactions(ctx context.Context, groupID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countTransactions, groupID).Scan(&n)
	return n, err
}

const sumAmounts = `
SELECT COALESCE(SUM(amount_cents), 0)
FROM transactions
WHERE group_id = ? AND money_type_id = ? AND currency = ?`

func (q *Queries) SumAmounts(ctx context.Context, groupID, moneyTypeID int64, currency string) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx, sumAmounts, groupID, moneyTypeID, currency).Scan(&total)
	return total, err
}

const sumExchangedSource = `
SELECT COALESCE(SUM(e.source_amount_cents), 0)
FROM exchange_transactions e
JOIN transactions t ON t.group_id = e.group_id AND t.id = e.transaction_id
WHERE e.group_id = ? AND t.money_type_id = ? AND e.source_currency = ?`

// SumExchangedSource totals what exchanges consumed out of currency.
func (q *Queries) SumExchangedSource(ctx context.Context, groupID, moneyTypeID int64, currency string) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx, sumExchangedSource, groupID, moneyTypeID, currency).Scan(&total)
	return total, err
}

const categorySums = `
SELECT c.name, SUM(t.amount_cents) AS total
FROM transactions t
JOIN categories c ON c.id = t.category_id
WHERE t.group_id = ? AND t.currency = ?
GROUP BY c.name
ORDER BY total DESC, c.name`

func (q *Queries) CategorySums(ctx context.Context, groupID int64, currency string) ([]CategorySumRow, error) {
	rows, err := q.db.QueryContext(ctx, categorySums, groupID, currency)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategorySumRow
	for rows.Next() {
		var i CategorySumRow
		if err := rows.Scan(&i.Name, &i.TotalCents); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listCurrencies = `
SELECT currency FROM transactions WHERE group_id = ?
UNION
SELECT source_currency FROM exchange_transactions WHERE group_id = ?
ORDER BY 1`

func (q *Queries) ListCurrencies(ctx context.Context, groupID int64) ([]string, error) {
	return q.queryStrings(ctx, listCurrencies, groupID, groupID)
}

const entryColumns = `
SELECT t.group_id, t.id, t.user_id, t.type, t.amount_cents, t.description,
       t.category_id, t.money_type_id, t.currency, t.timestamp,
       c.name, m.name,
       e.id, e.source_currency, e.target_currency, e.exchange_rate,
       e.source_amount_cents, e.target_amount_cents
FROM transactions t
JOIN categories c ON c.id = t.category_id
JOIN money_types m ON m.id = t.money_type_id
LEFT JOIN exchange_transactions e ON e.group_id = t.group_id AND e.transaction_id = t.id`

const listRecent = entryColumns + `
WHERE t.group_id = ? AND (? = '' OR c.name = ?)
ORDER BY t.timestamp DESC, t.id DESC
LIMIT ?`

// ListRecent returns the newest entries first. A limit <= 0 returns all.
func (q *Queries) ListRecent(ctx context.Context, groupID int64, category string, limit int) ([]EntryRow, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := q.db.QueryContext(ctx, listRecent, groupID, category, category, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []EntryRow
	for rows.Next() {
		i, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getEntry = entryColumns + `
WHERE t.group_id = ? AND t.id = ?`

func (q *Queries) GetEntry(ctx context.Context, groupID, id int64) (EntryRow, error) {
	return scanEntry(q.db.QueryRowContext(ctx, getEntry, groupID, id))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (EntryRow, error) {
	var (
		i          EntryRow
		exID       sql.NullInt64
		src, dst   sql.NullString
		rate       sql.NullString
		srcC, dstC sql.NullInt64
	)
	err := s.Scan(
		&i.GroupID, &i.ID, &i.UserID, &i.Type, &i.AmountCents, &i.Description,
		&i.CategoryID, &i.MoneyTypeID, &i.Currency, &i.Timestamp,
		&i.CategoryName, &i.MoneyTypeName,
		&exID, &src, &dst, &rate, &srcC, &dstC,
	)
	if err != nil {
		return EntryRow{}, err
	}
	if exID.Valid {
		i.Exchange = &ExchangeTransaction{
			ID:                exID.Int64,
			GroupID:           i.GroupID,
			TransactionID:     i.ID,
			SourceCurrency:    src.String,
			TargetCurrency:    dst.String,
			ExchangeRate:      rate.String,
			SourceAmountCents: srcC.Int64,
			TargetAmountCents: dstC.Int64,
		}
	}
	return i, nil
}

func (q *Queries) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}
