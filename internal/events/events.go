// Package events is the typed event catalog for the retail-ops domain.
//
// The dispatcher itself accepts arbitrary strings as event names; this
// package pins down the names the application publishes and the payload
// shapes that travel with them, so producers and consumers agree at the
// edges without the dispatcher constraining either.
package events

// Performance event names.
const (
	// PerformanceRecorded is published when a day's actuals are entered.
	PerformanceRecorded = "performance.recorded"

	// PerformanceAnomaly is published when entered actuals deviate from
	// budget beyond the configured threshold.
	PerformanceAnomaly = "performance.anomaly"
)

// Order event names.
const (
	// OrderSimulated is published when an order simulation completes.
	OrderSimulated = "order.simulated"

	// OrderConfirmed is published when a simulated order is accepted.
	OrderConfirmed = "order.confirmed"
)

// Stock and master-data event names.
const (
	// StockAdjusted is published when stock counts change.
	StockAdjusted = "stock.adjusted"

	// MasterDataChanged is published when product or store master rows
	// are created, updated, or deleted.
	MasterDataChanged = "masterdata.changed"
)

// Session and infrastructure event names.
const (
	// UserChanged is published when the session user changes.
	UserChanged = "session.user-changed"

	// SettingsUpdated is published after user settings are persisted.
	SettingsUpdated = "settings.updated"

	// CacheCleared is published after the store's cache is dropped.
	CacheCleared = "cache.cleared"

	// NotificationAdded is published when a user-facing notification is
	// raised.
	NotificationAdded = "notification.added"

	// StateChanged is published by the application root for every store
	// mutation; the payload carries the action type.
	StateChanged = "state.changed"
)

// PerformanceEntry is the payload for PerformanceRecorded.
type PerformanceEntry struct {
	// Date is the business date in YYYY-MM-DD form.
	Date string

	// StoreID identifies the store.
	StoreID string

	// ProductID identifies the product.
	ProductID string

	// Sold is the number of units sold.
	Sold int

	// Discarded is the number of units discarded.
	Discarded int

	// Revenue is the day's revenue for the product, in minor units.
	Revenue int64
}

// OrderSimulation is the payload for OrderSimulated and OrderConfirmed.
type OrderSimulation struct {
	// Date is the target delivery date.
	Date string

	// StoreID identifies the store.
	StoreID string

	// Lines are the simulated order quantities per product.
	Lines []OrderLine
}

// OrderLine is one product row of an order simulation.
type OrderLine struct {
	ProductID string
	Quantity  int
}

// StockAdjustment is the payload for StockAdjusted.
type StockAdjustment struct {
	ProductID string
	Delta     int
	Reason    string
}

// MasterDataChange is the payload for MasterDataChanged.
type MasterDataChange struct {
	// Entity is the master table that changed ("product", "store").
	Entity string

	// Op is the operation ("create", "update", "delete").
	Op string

	// ID identifies the changed row.
	ID string
}

// StateChange is the payload for StateChanged.
type StateChange struct {
	// Action is the store action type that caused the mutation.
	Action string
}
