package datastore

import (
	"context"
	"time"
)

// SaveOutcomes stores the outcomes of a dispatch batch or broadcast.
func (ds *DataStore) SaveOutcomes(ctx context.Context, outcomes []DeliveryOutcome) (err error) {
	if len(outcomes) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { ds.observe("save_outcomes", "delivery_outcomes", start, len(outcomes), err) }()

	for i := range outcomes {
		if outcomes[i].BatchID == "" {
			return validationError("delivery outcome requires a batch id", "batch_id", outcomes[i].Recipient)
		}
		if outcomes[i].AttemptedAt.IsZero() {
			outcomes[i].AttemptedAt = time.Now().UTC()
		}
	}

	if err = ds.DB.WithContext(ctx).CreateInBatches(outcomes, 100).Error; err != nil {
		return dbError(err, "save_outcomes", "", "count", len(outcomes))
	}
	return nil
}

// SaveDeliveryHistory appends one history entry.
func (ds *DataStore) SaveDeliveryHistory(ctx context.Context, history *DeliveryHistory) (err error) {
	if history.BatchID == "" {
		return validationError("delivery history requires a batch id", "batch_id", "")
	}
	if history.Kind == "" {
		return validationError("delivery history requires a kind", "kind", "")
	}
	start := time.Now()
	defer func() { ds.observe("save_history", "delivery_histories", start, 1, err) }()

	if err = ds.DB.WithContext(ctx).Create(history).Error; err != nil {
		return dbError(err, "save_delivery_history", "", "batch_id", history.BatchID)
	}
	return nil
}

// DeliveryTotalsSince sums history rows per kind created at or after since.
func (ds *DataStore) DeliveryTotalsSince(ctx context.Context, since time.Time) ([]KindTotal, error) {
	var totals []KindTotal
	err := ds.DB.WithContext(ctx).Model(&DeliveryHistory{}).
		Select("kind, COUNT(*) AS batches, SUM(sent) AS sent, SUM(succeeded) AS succeeded, SUM(failed) AS failed").
		Where("created_at >= ?", since.UTC()).
		Group("kind").
		Order("kind").
		Scan(&totals).Error
	if err != nil {
		return nil, dbError(err, "delivery_totals", "", "since", since)
	}
	return totals, nil
}

// RecentDeliveryHistory returns the newest history entries first.
func (ds *DataStore) RecentDeliveryHistory(ctx context.Context, limit int) ([]DeliveryHistory, error) {
	var rows []DeliveryHistory
	q := ds.DB.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, dbError(err, "recent_delivery_history", "", "limit", limit)
	}
	return rows, nil
}

// OutcomesForBatch returns the outcomes recorded under one batch id.
func (ds *DataStore) OutcomesForBatch(ctx context.Context, batchID string) ([]DeliveryOutcome, error) {
	var rows []DeliveryOutcome
	if err := ds.DB.WithContext(ctx).Where("batch_id = ?", batchID).Order("id").Find(&rows).Error; err != nil {
		return nil, dbError(err, "outcomes_for_batch", "", "batch_id", batchID)
	}
	return rows, nil
}
