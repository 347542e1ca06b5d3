// internal/domain/store/entity.go
package store

import (
	"database/sql"
	"time"
)

type Store struct {
	ID        int64          `json:"id" db:"id"`
	Name      string         `json:"name" db:"name"`
	Address   sql.NullString `json:"address,omitempty" db:"address"`
	Phone     sql.NullString `json:"phone,omitempty" db:"phone"`
	Rating    float64        `json:"rating" db:"rating"`
	Active    bool           `json:"active" db:"active"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// Staff is a store employee allowed to confirm redemptions. The PIN is held
// only as a bcrypt hash.
type Staff struct {
	ID        int64     `json:"id" db:"id"`
	StoreID   int64     `json:"store_id" db:"store_id"`
	Name      string    `json:"name" db:"name"`
	PINHash   string    `json:"-" db:"pin_hash"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Discount struct {
	ID           int64           `json:"id" db:"id"`
	StoreID      int64           `json:"store_id" db:"store_id"`
	Title        string          `json:"title" db:"title"`
	Type         string          `json:"type" db:"type"`
	Value        float64         `json:"value" db:"value"`
	MinPurchase  sql.NullFloat64 `json:"min_purchase,omitempty" db:"min_purchase"`
	MaxDiscount  sql.NullFloat64 `json:"max_discount,omitempty" db:"max_discount"`
	Availability []byte          `json:"-" db:"availability"`
	Restrictions sql.NullString  `json:"restrictions,omitempty" db:"restrictions"`
	Active       bool            `json:"active" db:"active"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// Device tracks an opaque client device for anti-abuse correlation and
// loyalty levelling. Level increases as successful redemptions accumulate.
type Device struct {
	DeviceID    string    `json:"device_id" db:"device_id"`
	Level       int       `json:"level" db:"level"`
	Redemptions int       `json:"redemptions" db:"redemptions"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
