package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"

	"salesdesk/backend/internal/domain"
	"salesdesk/backend/internal/store"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	log.Info().Msg("database schema applied")
	return nil
}

const itemColumns = `id, name, description, price, stock, min_stock, category, sku, active, created_at, updated_at`

const salespersonColumns = `id, name, phone, total_sales, items_allocated, active, created_at, updated_at`

const allocationColumns = `id, salesperson_id, item_id, item_name, item_price, quantity, sold_quantity,
	payment_received, allocation_date, status, settled_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*domain.Item, error) {
	var item domain.Item
	if err := row.Scan(
		&item.ID, &item.Name, &item.Description, &item.Price, &item.Stock, &item.MinStock,
		&item.Category, &item.SKU, &item.Active, &item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &item, nil
}

func scanSalesperson(row rowScanner) (*domain.Salesperson, error) {
	var sp domain.Salesperson
	if err := row.Scan(
		&sp.ID, &sp.Name, &sp.Phone, &sp.TotalSales, &sp.ItemsAllocated, &sp.Active, &sp.CreatedAt, &sp.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &sp, nil
}

func scanAllocation(row rowScanner) (*domain.Allocation, error) {
	var (
		a         domain.Allocation
		settledAt sql.NullTime
	)
	if err := row.Scan(
		&a.ID, &a.SalespersonID, &a.ItemID, &a.ItemName, &a.ItemPrice, &a.Quantity, &a.SoldQuantity,
		&a.PaymentReceived, &a.AllocationDate, &a.Status, &settledAt, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if settledAt.Valid {
		t := settledAt.Time.UTC()
		a.SettledAt = &t
	}
	a.AllocationDate = a.AllocationDate.UTC()
	return &a, nil
}

func notFound(err error, kind string, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", store.ErrNotFound, kind, id)
	}
	return err
}

func (s *Store) ListItems(ctx context.Context, includeInactive bool) ([]domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE active OR $1
		ORDER BY name, id
	`, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Item, 0, 64)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *Store) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "item", id)
	}
	return item, nil
}

func (s *Store) ListStockMovements(ctx context.Context, itemID string, limit int) ([]domain.StockMovement, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, delta, stock_after, reason, COALESCE(allocation_id, ''), created_at
		FROM stock_movements
		WHERE ($1 = '' OR item_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, itemID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := make([]domain.StockMovement, 0, limit)
	for rows.Next() {
		var m domain.StockMovement
		if err := rows.Scan(&m.ID, &m.ItemID, &m.Delta, &m.StockAfter, &m.Reason, &m.AllocationID, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (s *Store) ListSalespeople(ctx context.Context, includeInactive bool) ([]domain.Salesperson, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+salespersonColumns+`
		FROM salespeople
		WHERE active OR $1
		ORDER BY name, id
	`, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	people := make([]domain.Salesperson, 0, 32)
	for rows.Next() {
		sp, err := scanSalesperson(rows)
		if err != nil {
			return nil, err
		}
		people = append(people, *sp)
	}
	return people, rows.Err()
}

func (s *Store) GetSalesperson(ctx context.Context, id string) (*domain.Salesperson, error) {
	sp, err := scanSalesperson(s.db.QueryRowContext(ctx, `SELECT `+salespersonColumns+` FROM salespeople WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "salesperson", id)
	}
	return sp, nil
}

func (s *Store) ListAllocations(ctx context.Context, filter domain.AllocationFilter) ([]domain.Allocation, error) {
	where, args := allocationWhere(filter)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+allocationColumns+`
		FROM allocations
		`+where+`
		ORDER BY allocation_date DESC, created_at DESC, id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	allocations := make([]domain.Allocation, 0, 64)
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, err
		}
		allocations = append(allocations, *a)
	}
	return allocations, rows.Err()
}

func (s *Store) GetAllocation(ctx context.Context, id string) (*domain.Allocation, error) {
	a, err := scanAllocation(s.db.QueryRowContext(ctx, `SELECT `+allocationColumns+` FROM allocations WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "allocation", id)
	}
	return a, nil
}

func allocationWhere(filter domain.AllocationFilter) (string, []any) {
	clauses := make([]string, 0, 5)
	args := make([]any, 0, 5)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filter.SalespersonID != "" {
		add("salesperson_id = $%d", filter.SalespersonID)
	}
	if filter.ItemID != "" {
		add("item_id = $%d", filter.ItemID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.From != nil {
		add("allocation_date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("allocation_date < $%d", *filter.To)
	}
	if len(clauses) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// InTx runs fn in a READ COMMITTED transaction. Rows read through the
// ForUpdate methods stay locked until commit; callers lock allocation, then
// item, then salesperson.
func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) GetItemForUpdate(ctx context.Context, id string) (*domain.Item, error) {
	item, err := scanItem(t.tx.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "item", id)
	}
	return item, nil
}

func (t *pgTx) FindActiveItemBySKU(ctx context.Context, sku string) (*domain.Item, error) {
	item, err := scanItem(t.tx.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE active AND upper(sku) = upper($1)
		LIMIT 1
	`, sku))
	if err != nil {
		return nil, notFound(err, "sku", sku)
	}
	return item, nil
}

func (t *pgTx) InsertItem(ctx context.Context, item domain.Item) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, item.ID, item.Name, item.Description, item.Price, item.Stock, item.MinStock,
		item.Category, item.SKU, item.Active, item.CreatedAt, item.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: sku %s is already in use", store.ErrValidation, item.SKU)
	}
	return err
}

func (t *pgTx) UpdateItemDetails(ctx context.Context, item domain.Item) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE items
		SET name = $2, description = $3, price = $4, min_stock = $5, category = $6, sku = $7,
			active = $8, updated_at = $9
		WHERE id = $1
	`, item.ID, item.Name, item.Description, item.Price, item.MinStock, item.Category, item.SKU,
		item.Active, item.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: sku %s is already in use", store.ErrValidation, item.SKU)
	}
	return expectOneRow(res, err, "item", item.ID)
}

func (t *pgTx) UpdateItemStock(ctx context.Context, id string, stock int) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE items SET stock = $2, updated_at = now() WHERE id = $1
	`, id, stock)
	return expectOneRow(res, err, "item", id)
}

func (t *pgTx) InsertStockMovement(ctx context.Context, m domain.StockMovement) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO stock_movements (id, item_id, delta, stock_after, reason, allocation_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, m.ID, m.ItemID, m.Delta, m.StockAfter, m.Reason, nullIfEmpty(m.AllocationID), m.CreatedAt)
	return err
}

func (t *pgTx) GetSalespersonForUpdate(ctx context.Context, id string) (*domain.Salesperson, error) {
	sp, err := scanSalesperson(t.tx.QueryRowContext(ctx, `SELECT `+salespersonColumns+` FROM salespeople WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "salesperson", id)
	}
	return sp, nil
}

func (t *pgTx) InsertSalesperson(ctx context.Context, sp domain.Salesperson) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO salespeople (`+salespersonColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, sp.ID, sp.Name, sp.Phone, sp.TotalSales, sp.ItemsAllocated, sp.Active, sp.CreatedAt, sp.UpdatedAt)
	return err
}

func (t *pgTx) UpdateSalespersonDetails(ctx context.Context, sp domain.Salesperson) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE salespeople SET name = $2, phone = $3, active = $4, updated_at = $5 WHERE id = $1
	`, sp.ID, sp.Name, sp.Phone, sp.Active, sp.UpdatedAt)
	return expectOneRow(res, err, "salesperson", sp.ID)
}

func (t *pgTx) UpdateSalespersonTotals(ctx context.Context, sp domain.Salesperson) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE salespeople SET total_sales = $2, items_allocated = $3, updated_at = $4 WHERE id = $1
	`, sp.ID, sp.TotalSales, sp.ItemsAllocated, sp.UpdatedAt)
	return expectOneRow(res, err, "salesperson", sp.ID)
}

func (t *pgTx) GetAllocationForUpdate(ctx context.Context, id string) (*domain.Allocation, error) {
	a, err := scanAllocation(t.tx.QueryRowContext(ctx, `SELECT `+allocationColumns+` FROM allocations WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "allocation", id)
	}
	return a, nil
}

func (t *pgTx) InsertAllocation(ctx context.Context, a domain.Allocation) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO allocations (`+allocationColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, a.ID, a.SalespersonID, a.ItemID, a.ItemName, a.ItemPrice, a.Quantity, a.SoldQuantity,
		a.PaymentReceived, a.AllocationDate, a.Status, nullTime(a.SettledAt), a.CreatedAt, a.UpdatedAt)
	return err
}

func (t *pgTx) UpdateAllocation(ctx context.Context, a domain.Allocation) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE allocations
		SET quantity = $2, sold_quantity = $3, payment_received = $4, status = $5,
			settled_at = $6, updated_at = $7
		WHERE id = $1
	`, a.ID, a.Quantity, a.SoldQuantity, a.PaymentReceived, a.Status, nullTime(a.SettledAt), a.UpdatedAt)
	return expectOneRow(res, err, "allocation", a.ID)
}

func (t *pgTx) DeleteAllocation(ctx context.Context, id string) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM allocations WHERE id = $1`, id)
	return expectOneRow(res, err, "allocation", id)
}

func (t *pgTx) CountOpenAllocations(ctx context.Context, filter domain.AllocationFilter) (int, error) {
	filter.Status = domain.AllocationStatusAllocated
	where, args := allocationWhere(filter)
	var count int
	if err := t.tx.QueryRowContext(ctx, `SELECT count(*) FROM allocations `+where, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func expectOneRow(res sql.Result, err error, kind string, id string) error {
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s %s", store.ErrNotFound, kind, id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}
