package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shestoi/stockkeeper/internal/repository"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

const recordColumns = `id::text, product_id, location_code, quantity, reserved_quantity, status, created_at, updated_at`

// Repository реализует StockRepository используя PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository создаёт новый PostgreSQL репозиторий
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

func scanRecord(row pgx.Row) (repository.StockRecord, error) {
	var (
		rec    repository.StockRecord
		status string
	)
	err := row.Scan(&rec.ID, &rec.ProductID, &rec.LocationCode, &rec.Quantity, &rec.ReservedQuantity, &status, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return repository.StockRecord{}, err
	}
	rec.Status = repository.Status(status)
	return rec, nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// Create вставляет новую запись
func (r *Repository) Create(ctx context.Context, record repository.StockRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	id := uuid.New()
	if record.ID != "" {
		parsed, err := uuid.Parse(record.ID)
		if err != nil {
			return fmt.Errorf("%w: id: %v", repository.ErrInvalidRecord, err)
		}
		id = parsed
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO stock_records (id, product_id, location_code, quantity, reserved_quantity, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
		id.String(), record.ProductID, record.LocationCode, record.Quantity, record.ReservedQuantity, string(record.Status), createdAt)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("insert stock record: %w", err)
	}
	return nil
}

// Get получает запись по ключу
func (r *Repository) Get(ctx context.Context, key repository.Key) (repository.StockRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM stock_records WHERE product_id = $1 AND location_code = $2`,
		key.ProductID, key.LocationCode)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.StockRecord{}, repository.ErrNotFound
		}
		return repository.StockRecord{}, fmt.Errorf("select stock record: %w", err)
	}
	return rec, nil
}

// GetMany получает записи по списку товаров одним запросом
func (r *Repository) GetMany(ctx context.Context, productIDs []string, locationCode string) (map[string]repository.StockRecord, error) {
	out := make(map[string]repository.StockRecord, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	records, err := r.query(ctx,
		`SELECT `+recordColumns+` FROM stock_records WHERE product_id = ANY($1) AND location_code = $2`,
		productIDs, locationCode)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		out[rec.ProductID] = rec
	}
	return out, nil
}

// ListByMaxQuantity возвращает записи с quantity <= threshold
func (r *Repository) ListByMaxQuantity(ctx context.Context, locationCode string, threshold int32) ([]repository.StockRecord, error) {
	return r.query(ctx,
		`SELECT `+recordColumns+` FROM stock_records
		 WHERE location_code = $1 AND quantity <= $2 ORDER BY product_id`,
		locationCode, threshold)
}

// ListByMaxAvailable возвращает записи с quantity - reserved_quantity <= threshold
func (r *Repository) ListByMaxAvailable(ctx context.Context, locationCode string, threshold int32) ([]repository.StockRecord, error) {
	return r.query(ctx,
		`SELECT `+recordColumns+` FROM stock_records
		 WHERE location_code = $1 AND quantity - reserved_quantity <= $2 ORDER BY product_id`,
		locationCode, threshold)
}

func (r *Repository) query(ctx context.Context, sql string, args ...any) ([]repository.StockRecord, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query stock records: %w", err)
	}
	defer rows.Close()

	var out []repository.StockRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock records: %w", err)
	}
	return out, nil
}

func guardClause(g repository.Guard) string {
	switch g {
	case repository.GuardAvailable:
		return ` AND quantity - reserved_quantity >= $5`
	case repository.GuardReserved:
		return ` AND reserved_quantity >= $5`
	case repository.GuardCapacity:
		return ` AND quantity <= 2147483647 - $5::integer`
	default:
		return ` AND $5::integer IS NOT NULL`
	}
}

// Apply атомарно проверяет условие и применяет мутацию одним UPDATE ... WHERE ... RETURNING
// Отсутствие строк означает: либо записи нет, либо условие не выполнено
func (r *Repository) Apply(ctx context.Context, key repository.Key, m repository.Mutation) (repository.StockRecord, error) {
	sql := `UPDATE stock_records
		SET quantity = quantity + $3,
		    reserved_quantity = reserved_quantity + $4,
		    updated_at = now()
		WHERE product_id = $1 AND location_code = $2` + guardClause(m.Guard) + `
		RETURNING ` + recordColumns

	row := r.pool.QueryRow(ctx, sql, key.ProductID, key.LocationCode, m.QuantityDelta, m.ReservedDelta, m.GuardAmount)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || pgCode(err) == pgCheckViolation {
			return repository.StockRecord{}, repository.ErrConditionFailed
		}
		return repository.StockRecord{}, fmt.Errorf("apply stock mutation: %w", err)
	}
	return rec, nil
}

// UpdateDerivedStatus записывает статус, если текущий статус не DISCONTINUED
func (r *Repository) UpdateDerivedStatus(ctx context.Context, key repository.Key, status repository.Status) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE stock_records SET status = $3, updated_at = now()
		 WHERE product_id = $1 AND location_code = $2 AND status <> $4`,
		key.ProductID, key.LocationCode, string(status), string(repository.StatusDiscontinued))
	if err != nil {
		return false, fmt.Errorf("update derived status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetStatus безусловно записывает статус
func (r *Repository) SetStatus(ctx context.Context, key repository.Key, status repository.Status) (repository.StockRecord, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE stock_records SET status = $3, updated_at = now()
		 WHERE product_id = $1 AND location_code = $2
		 RETURNING `+recordColumns,
		key.ProductID, key.LocationCode, string(status))
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.StockRecord{}, repository.ErrNotFound
		}
		return repository.StockRecord{}, fmt.Errorf("set status: %w", err)
	}
	return rec, nil
}
