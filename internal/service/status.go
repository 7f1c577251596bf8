package service

import "github.com/shestoi/stockkeeper/internal/repository"

// DefaultLowStockThreshold - порог LOW_STOCK, если он не задан в конфигурации
const DefaultLowStockThreshold int32 = 5

// DeriveStatus вычисляет статус по доступному количеству и порогу
// Никогда не возвращает DISCONTINUED: этот статус ставится только администратором
func DeriveStatus(available, threshold int32) repository.Status {
	switch {
	case available <= 0:
		return repository.StatusOutOfStock
	case available <= threshold:
		return repository.StatusLowStock
	default:
		return repository.StatusInStock
	}
}
