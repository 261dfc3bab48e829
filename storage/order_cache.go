package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pvaldez/pizza-express/models"
	"github.com/pvaldez/pizza-express/utils"
)

// MaxSnapshotAge is how long a cached order list stays usable. Older
// snapshots are discarded on read and the caller falls back to the database.
const MaxSnapshotAge = 24 * time.Hour

// Envelope wraps a cached collection with the time it was taken.
type Envelope struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	Version   string          `json:"version"`
}

// OrderCache keeps a snapshot of the order list in the KV store so dashboards
// keep working through short database outages.
type OrderCache struct {
	kv  KV
	key string
	now func() time.Time
}

func NewOrderCache(kv KV) *OrderCache {
	return &OrderCache{kv: kv, key: OfflineOrdersKey, now: time.Now}
}

func (c *OrderCache) Store(ctx context.Context, orders []models.Order) error {
	data, err := json.Marshal(orders)
	if err != nil {
		return err
	}
	env := Envelope{
		Data:      data,
		Timestamp: c.now().UnixMilli(),
		Version:   "1.0",
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return c.kv.Set(ctx, c.key, payload)
}

// Load returns the cached orders, or an empty slice if the snapshot is
// missing, malformed, or older than MaxSnapshotAge. Stale snapshots are
// deleted so the next read does not pay for them again.
func (c *OrderCache) Load(ctx context.Context) []models.Order {
	payload, err := c.kv.Get(ctx, c.key)
	if err != nil {
		return nil
	}

	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		utils.ErrorLogger.Printf("order cache: malformed snapshot: %v", err)
		return nil
	}

	cutoff := c.now().Add(-MaxSnapshotAge).UnixMilli()
	if env.Timestamp < cutoff {
		utils.InfoLogger.Println("order cache: snapshot older than 24h, discarding")
		if err := c.kv.Delete(ctx, c.key); err != nil {
			utils.ErrorLogger.Printf("order cache: delete stale snapshot: %v", err)
		}
		return nil
	}

	var orders []models.Order
	if err := json.Unmarshal(env.Data, &orders); err != nil {
		utils.ErrorLogger.Printf("order cache: malformed order list: %v", err)
		return nil
	}
	return orders
}
