package notification

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/ppewatch/internal/datastore"
	"github.com/tphakala/ppewatch/internal/errors"
	"github.com/tphakala/ppewatch/internal/logger"
	"github.com/tphakala/ppewatch/internal/observability/metrics"
)

// Directory resolves worker ids to display names and lists broadcast
// recipients. Lookups are cached for ttl; misses are cached too.
type Directory struct {
	store   Store
	cache   *cache.Cache
	metrics *metrics.NotificationMetrics
}

// NewDirectory creates a directory over store. ttl <= 0 uses five minutes.
func NewDirectory(store Store, ttl time.Duration, m *metrics.NotificationMetrics) *Directory {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Directory{store: store, cache: cache.New(ttl, 0), metrics: m}
}

// Name returns the recipient name for a worker id, or "" when unknown.
// Store faults are logged and treated as unknown.
func (d *Directory) Name(ctx context.Context, workerID string) string {
	if workerID == "" {
		return ""
	}
	if v, ok := d.cache.Get(workerID); ok {
		d.recordLookup(true)
		return v.(string)
	}
	d.recordLookup(false)

	name := ""
	r, err := d.store.GetRecipient(ctx, workerID)
	switch {
	case err == nil:
		name = r.Name
	case errors.IsNotFound(err):
	default:
		GetLogger().Warn("recipient lookup failed", logger.Error(err))
		return ""
	}
	d.cache.SetDefault(workerID, name)
	return name
}

// Recipients lists active recipients, optionally limited to one department.
func (d *Directory) Recipients(ctx context.Context, department string) ([]datastore.Recipient, error) {
	return d.store.ListRecipients(ctx, department)
}

// Invalidate drops a cached name after the directory changes.
func (d *Directory) Invalidate(workerID string) {
	d.cache.Delete(workerID)
}

func (d *Directory) recordLookup(hit bool) {
	if d.metrics != nil {
		d.metrics.RecordRecipientLookup(hit)
	}
}
