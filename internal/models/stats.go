package models

import "time"

// ValidationRecord — одна подписанная цена из /stork_signed_prices.
// Формируется из ответа API и никогда не сохраняется.
type ValidationRecord struct {
	Asset     string
	Price     float64
	MsgHash   string
	Timestamp time.Time
}

// UserStats — статистика аккаунта на момент тика.
// PerAssetResults заполняется записями того же тика.
type UserStats struct {
	Email           string
	ValidCount      int64
	InvalidCount    int64
	PerAssetResults []ValidationRecord
}

// Validation — результат проверки записи, отправляемый в API.
type Validation struct {
	MsgHash string `json:"msg_hash"`
	Valid   bool   `json:"valid"`
}

// Plausible — грубая проверка записи без криптографии:
// положительная цена, непустой хэш и ненулевая метка времени.
func (r ValidationRecord) Plausible() bool {
	return r.Price > 0 && r.MsgHash != "" && !r.Timestamp.IsZero()
}
