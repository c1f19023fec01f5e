// Package store persists reconciliation output: marketplace-only products
// upserted by SKU id, and a log record per sync run. The core only depends
// on the upsert and existence-check contracts, not on the store's query
// language.
package store

import "time"

// Product is one persisted marketplace product, keyed by its stable SKU id.
type Product struct {
	SKUID     string    `bson:"sku_id" json:"sku_id"`
	Barcode   string    `bson:"barcode,omitempty" json:"barcode,omitempty"`
	Title     string    `bson:"product_title,omitempty" json:"title,omitempty"`
	Amount    float64   `bson:"amount" json:"amount"`
	Price     float64   `bson:"price" json:"price"`
	Source    string    `bson:"source" json:"source"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	CreatedAt time.Time `bson:"created_at,omitempty" json:"created_at,omitempty"`
}

// UpsertResult counts how an upsert batch split between inserts and updates.
type UpsertResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

// RunLog is one sync run's log record.
type RunLog struct {
	ID             string    `bson:"_id" json:"id"`
	Pairing        string    `bson:"pairing" json:"pairing"`
	Status         string    `bson:"status" json:"status"` // started, success, failed
	ItemsProcessed int       `bson:"items_processed" json:"items_processed"`
	ItemsFailed    int       `bson:"items_failed" json:"items_failed"`
	ErrorMessage   string    `bson:"error_message,omitempty" json:"error_message,omitempty"`
	StartedAt      time.Time `bson:"started_at" json:"started_at"`
	CompletedAt    time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}

// Run statuses.
const (
	StatusStarted = "started"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)
