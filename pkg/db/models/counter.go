package models

// Counter is a named sequence scope (e.g. "order_2608"). Sequence is mutated
// only through the atomic upsert-increment in the counters repository.
type Counter struct {
	Key      string `gorm:"column:key;primaryKey"`
	Sequence int64  `gorm:"column:sequence;not null;default:0"`
}
