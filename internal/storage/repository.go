package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/rows"
	"finanzas/internal/source"
)

var (
	ErrNotFound    = source.ErrNotFound
	ErrWalletInUse = source.ErrWalletInUse
)

// timeFormat is fixed width so stored UTC timestamps sort as strings.
const timeFormat = "2006-01-02T15:04:05.000Z07:00"

type SQLiteRepository struct {
	db         *sql.DB
	normalizer rows.Normalizer
	logs       *log.StructuredLogger
}

var (
	_ source.Reader = (*SQLiteRepository)(nil)
	_ source.Writer = (*SQLiteRepository)(nil)
)

// dsn enables foreign keys and a busy timeout on every pooled connection.
func dsn(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func NewSQLiteRepository(dbPath string, loc *time.Location, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dsn(dbPath)); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if logger == nil {
		logger = log.Discard()
	}
	return &SQLiteRepository{
		db:         db,
		normalizer: rows.Normalizer{Location: loc},
		logs:       log.NewStructuredLogger(logger),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const selectTransactions = `
SELECT t.id, t.monto, t.tipo, t.descripcion, t.fecha_transaccion, t.categoria_id, t.billetera_id,
       c.id, c.nombre, c.tipo, b.id, b.nombre
FROM transacciones t
LEFT JOIN categorias c ON c.id = t.categoria_id
LEFT JOIN billeteras b ON b.id = t.billetera_id`

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f source.TransactionFilter) ([]core.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if !f.AllWallets() {
		where = append(where, "t.billetera_id = ?")
		args = append(args, f.WalletID)
	}
	if f.CategoryID != "" {
		where = append(where, "t.categoria_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.Kind.IsSet() {
		where = append(where, "t.tipo = ?")
		args = append(args, string(f.Kind))
	}
	if f.From != nil {
		where = append(where, "t.fecha_transaccion >= ?")
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		where = append(where, "t.fecha_transaccion <= ?")
		args = append(args, formatTime(*f.To))
	}

	query := selectTransactions
	if len(where) > 0 {
		query += "\nWHERE " + strings.Join(where, " AND ")
	}
	query += "\nORDER BY t.fecha_transaccion DESC, t.created_at DESC"
	if f.Limit > 0 {
		query += "\nLIMIT ?"
		args = append(args, f.Limit)
	}

	in, err := r.queryTransactions(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	txs := r.normalizer.Transactions(in)
	r.logs.LogRowsDropped(ctx, "transacciones", len(in)-len(txs))
	return txs, nil
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]rows.TransactionRow, error) {
	res, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer res.Close()

	var out []rows.TransactionRow
	for res.Next() {
		var (
			row                                       rows.TransactionRow
			monto, tipo, desc, fecha, catID, walletID sql.NullString
			relCatID, relCatName, relCatKind          sql.NullString
			relWalletID, relWalletName                sql.NullString
		)
		if err := res.Scan(&row.ID, &monto, &tipo, &desc, &fecha, &catID, &walletID,
			&relCatID, &relCatName, &relCatKind, &relWalletID, &relWalletName); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		row.Monto = rows.AmountOf(nullable(monto))
		row.Tipo = ptr(tipo)
		row.Descripcion = ptr(desc)
		row.FechaTransaccion = ptr(fecha)
		row.CategoriaID = ptr(catID)
		row.BilleteraID = ptr(walletID)
		if relCatID.Valid {
			row.Categorias = rows.One(rows.Related{ID: ptr(relCatID), Nombre: ptr(relCatName), Tipo: ptr(relCatKind)})
		}
		if relWalletID.Valid {
			row.Billeteras = rows.One(rows.Related{ID: ptr(relWalletID), Nombre: ptr(relWalletName)})
		}
		out = append(out, row)
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) ListWallets(ctx context.Context) ([]core.Wallet, error) {
	res, err := r.db.QueryContext(ctx, `SELECT id, nombre FROM billeteras ORDER BY nombre COLLATE NOCASE, id`)
	if err != nil {
		return nil, fmt.Errorf("query wallets: %w", err)
	}
	defer res.Close()

	var in []rows.WalletRow
	for res.Next() {
		var (
			row  rows.WalletRow
			name sql.NullString
		)
		if err := res.Scan(&row.ID, &name); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		row.Nombre = ptr(name)
		in = append(in, row)
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallets: %w", err)
	}
	return r.normalizer.Wallets(in), nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	res, err := r.db.QueryContext(ctx, `SELECT id, nombre, tipo FROM categorias ORDER BY nombre COLLATE NOCASE, id`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer res.Close()

	var in []rows.CategoryRow
	for res.Next() {
		var (
			row        rows.CategoryRow
			name, kind sql.NullString
		)
		if err := res.Scan(&row.ID, &name, &kind); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		row.Nombre, row.Tipo = ptr(name), ptr(kind)
		in = append(in, row)
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return r.normalizer.Categories(in), nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	res, err := r.db.QueryContext(ctx, `
SELECT p.id, p.categoria_id, p.monto, p.periodo, c.id, c.nombre
FROM presupuestos p
LEFT JOIN categorias c ON c.id = p.categoria_id
ORDER BY p.created_at, p.id`)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer res.Close()

	var in []rows.BudgetRow
	for res.Next() {
		var (
			row                   rows.BudgetRow
			catID, monto, periodo sql.NullString
			relCatID, relCatName  sql.NullString
		)
		if err := res.Scan(&row.ID, &catID, &monto, &periodo, &relCatID, &relCatName); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		row.CategoriaID = ptr(catID)
		row.Monto = rows.AmountOf(nullable(monto))
		row.Periodo = ptr(periodo)
		if relCatID.Valid {
			row.Categorias = rows.One(rows.Related{ID: ptr(relCatID), Nombre: ptr(relCatName)})
		}
		in = append(in, row)
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	budgets := r.normalizer.Budgets(in)
	r.logs.LogRowsDropped(ctx, "presupuestos", len(in)-len(budgets))
	return budgets, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO transacciones (id, monto, tipo, descripcion, fecha_transaccion, categoria_id, billetera_id)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.Amount.String(), string(tx.Kind), nullString(tx.Description),
		formatTime(tx.OccurredAt), nullString(tx.CategoryID), nullString(tx.WalletID))
	if err != nil {
		if isForeignKeyError(err) {
			return core.Transaction{}, fmt.Errorf("create transaction: unknown wallet or category: %w", ErrNotFound)
		}
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	in, err := r.queryTransactions(ctx, selectTransactions+"\nWHERE t.id = ?", tx.ID)
	if err != nil {
		return core.Transaction{}, err
	}
	saved := r.normalizer.Transactions(in)
	if len(saved) != 1 {
		return core.Transaction{}, fmt.Errorf("read back transaction %s: %w", tx.ID, ErrNotFound)
	}
	r.logs.LogTransactionCreated(ctx, tx.ID, string(tx.Kind), tx.Amount.Cents, tx.WalletID, tx.CategoryID)
	return saved[0], nil
}

func (r *SQLiteRepository) CreateWallet(ctx context.Context, w core.Wallet) (core.Wallet, error) {
	if err := w.Validate(); err != nil {
		return core.Wallet{}, err
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	w.Name = strings.TrimSpace(w.Name)
	if _, err := r.db.ExecContext(ctx, `INSERT INTO billeteras (id, nombre) VALUES (?, ?)`, w.ID, w.Name); err != nil {
		return core.Wallet{}, fmt.Errorf("create wallet: %w", err)
	}
	return w, nil
}

// DeleteWallet removes a wallet that no transaction references.
func (r *SQLiteRepository) DeleteWallet(ctx context.Context, id string) error {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete wallet: %w", err)
	}
	defer dbtx.Rollback()

	var refs int
	if err := dbtx.QueryRowContext(ctx, `SELECT COUNT(*) FROM transacciones WHERE billetera_id = ?`, id).Scan(&refs); err != nil {
		return fmt.Errorf("count wallet transactions: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("delete wallet %s (%d transactions): %w", id, refs, ErrWalletInUse)
	}

	res, err := dbtx.ExecContext(ctx, `DELETE FROM billeteras WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete wallet: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete wallet %s: %w", id, ErrNotFound)
	}
	return dbtx.Commit()
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Name = strings.TrimSpace(c.Name)
	_, err := r.db.ExecContext(ctx, `INSERT INTO categorias (id, nombre, tipo) VALUES (?, ?, ?)`,
		c.ID, c.Name, nullString(string(c.Kind)))
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

// UpsertBudget replaces the limit of an existing budget for the same
// category and month, keeping its id.
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	var name sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT nombre FROM categorias WHERE id = ?`, b.CategoryID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("upsert budget: category %s: %w", b.CategoryID, ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}

	newID := b.ID
	if newID == "" {
		newID = uuid.NewString()
	}
	err = r.db.QueryRowContext(ctx, `
INSERT INTO presupuestos (id, categoria_id, monto, periodo) VALUES (?, ?, ?, ?)
ON CONFLICT (categoria_id, periodo) DO UPDATE SET monto = excluded.monto
RETURNING id`,
		newID, b.CategoryID, b.Limit.String(), b.Period.FirstDay()).Scan(&b.ID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	b.CategoryLabel = core.Label(name.String, core.UncategorizedLabel)
	return b, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func ptr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func nullable(s sql.NullString) any {
	if !s.Valid {
		return nil
	}
	return s.String
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func isForeignKeyError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint")
}
