package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mandibook/mandibook-backend/pkg/enums"
)

// Product is a catalog item. Orders snapshot the name and unit at placement
// time, so later edits here never rewrite history.
type Product struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string     `gorm:"column:name;not null"`
	Unit      enums.Unit `gorm:"column:unit;type:product_unit;not null"`
	Category  string     `gorm:"column:category;not null"`
	IsActive  bool       `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
