package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shestoi/stockkeeper/internal/repository"
)

// entry хранит одну складскую запись под собственным мьютексом
type entry struct {
	mu     sync.Mutex
	record repository.StockRecord
}

// MemoryRepository реализует StockRepository используя in-memory хранилище
// Используется для разработки и тестирования
// Индекс записей защищён RWMutex, а каждая запись - своим мьютексом,
// поэтому мутации разных товаров не блокируют друг друга
type MemoryRepository struct {
	mu      sync.RWMutex
	entries map[repository.Key]*entry
	now     func() time.Time
}

// NewMemoryRepository создаёт новый in-memory репозиторий
// Если seed != nil, записи копируются в хранилище (пустой ID заменяется на uuid)
func NewMemoryRepository(seed []repository.StockRecord) *MemoryRepository {
	r := &MemoryRepository{
		entries: make(map[repository.Key]*entry, len(seed)),
		now:     time.Now,
	}
	for _, rec := range seed {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		r.entries[rec.Key()] = &entry{record: rec}
	}
	return r
}

func (r *MemoryRepository) lookup(key repository.Key) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key]
	return e, ok
}

// snapshot возвращает копию всех записей склада
func (r *MemoryRepository) snapshot(locationCode string) []repository.StockRecord {
	r.mu.RLock()
	list := make([]*entry, 0, len(r.entries))
	for k, e := range r.entries {
		if k.LocationCode == locationCode {
			list = append(list, e)
		}
	}
	r.mu.RUnlock()

	out := make([]repository.StockRecord, 0, len(list))
	for _, e := range list {
		e.mu.Lock()
		out = append(out, e.record)
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// Create сохраняет новую запись
func (r *MemoryRepository) Create(ctx context.Context, record repository.StockRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := record.Validate(); err != nil {
		return err
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := r.now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[record.Key()]; exists {
		return repository.ErrAlreadyExists
	}
	r.entries[record.Key()] = &entry{record: record}
	return nil
}

// Get получает запись по ключу
func (r *MemoryRepository) Get(ctx context.Context, key repository.Key) (repository.StockRecord, error) {
	if err := ctx.Err(); err != nil {
		return repository.StockRecord{}, err
	}
	e, ok := r.lookup(key)
	if !ok {
		return repository.StockRecord{}, repository.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record, nil
}

// GetMany получает записи по списку товаров
func (r *MemoryRepository) GetMany(ctx context.Context, productIDs []string, locationCode string) (map[string]repository.StockRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]repository.StockRecord, len(productIDs))
	for _, id := range productIDs {
		e, ok := r.lookup(repository.Key{ProductID: id, LocationCode: locationCode})
		if !ok {
			continue
		}
		e.mu.Lock()
		out[id] = e.record
		e.mu.Unlock()
	}
	return out, nil
}

// ListByMaxQuantity возвращает записи с quantity <= threshold
func (r *MemoryRepository) ListByMaxQuantity(ctx context.Context, locationCode string, threshold int32) ([]repository.StockRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []repository.StockRecord
	for _, rec := range r.snapshot(locationCode) {
		if rec.Quantity <= threshold {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ListByMaxAvailable возвращает записи с quantity - reserved_quantity <= threshold
func (r *MemoryRepository) ListByMaxAvailable(ctx context.Context, locationCode string, threshold int32) ([]repository.StockRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []repository.StockRecord
	for _, rec := range r.snapshot(locationCode) {
		if rec.Available() <= threshold {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Apply проверяет условие и применяет мутацию под мьютексом записи
// Проверка и запись выполняются в одной критической секции
func (r *MemoryRepository) Apply(ctx context.Context, key repository.Key, m repository.Mutation) (repository.StockRecord, error) {
	if err := ctx.Err(); err != nil {
		return repository.StockRecord{}, err
	}
	e, ok := r.lookup(key)
	if !ok {
		return repository.StockRecord{}, repository.ErrConditionFailed
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !m.Holds(e.record) {
		return repository.StockRecord{}, repository.ErrConditionFailed
	}

	next := e.record
	next.Quantity += m.QuantityDelta
	next.ReservedQuantity += m.ReservedDelta
	if next.Quantity < 0 || next.ReservedQuantity < 0 || next.ReservedQuantity > next.Quantity {
		return repository.StockRecord{}, repository.ErrConditionFailed
	}
	next.UpdatedAt = r.now()
	e.record = next
	return next, nil
}

// UpdateDerivedStatus записывает статус, если запись не DISCONTINUED
func (r *MemoryRepository) UpdateDerivedStatus(ctx context.Context, key repository.Key, status repository.Status) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	e, ok := r.lookup(key)
	if !ok {
		return false, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.record.Status == repository.StatusDiscontinued {
		return false, nil
	}
	e.record.Status = status
	e.record.UpdatedAt = r.now()
	return true, nil
}

// SetStatus безусловно записывает статус
func (r *MemoryRepository) SetStatus(ctx context.Context, key repository.Key, status repository.Status) (repository.StockRecord, error) {
	if err := ctx.Err(); err != nil {
		return repository.StockRecord{}, err
	}
	e, ok := r.lookup(key)
	if !ok {
		return repository.StockRecord{}, repository.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record.Status = status
	e.record.UpdatedAt = r.now()
	return e.record, nil
}
