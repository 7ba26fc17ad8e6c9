package datastore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/ppewatch/internal/detection"
	"github.com/tphakala/ppewatch/internal/logger"
	"github.com/tphakala/ppewatch/internal/violation"
)

const violationsTable = "violations"

// Append persists records in one transaction. IDs and CreatedAt are written
// back into the slice. Either every record is stored or none is.
func (ds *DataStore) Append(ctx context.Context, records []violation.Record) (err error) {
	if len(records) == 0 {
		return nil
	}
	for i := range records {
		if records[i].Missing.Empty() {
			return validationError("violation record has no missing equipment", "missing", records[i].Frame)
		}
	}

	start := time.Now()
	defer func() { ds.observe("append", violationsTable, start, len(records), err) }()

	rows := make([]Violation, len(records))
	for i := range records {
		rows[i] = FromRecord(&records[i])
		rows[i].ID = 0
		rows[i].Notified = false
	}

	ds.writeMu.Lock()
	defer ds.writeMu.Unlock()

	err = ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
	ds.recordTransaction(err)
	if err != nil {
		return dbError(err, "append_violations", "high", "count", len(records))
	}

	for i := range rows {
		records[i].ID = rows[i].ID
		records[i].CreatedAt = rows[i].CreatedAt
		records[i].Notified = false
	}
	return nil
}

// FetchUnnotified returns up to limit unnotified records in insertion order
// and marks them notified in the same transaction, so no record is returned
// twice even under concurrent callers. limit <= 0 means no limit.
func (ds *DataStore) FetchUnnotified(ctx context.Context, limit int) (records []violation.Record, err error) {
	start := time.Now()
	defer func() { ds.observe("fetch_unnotified", violationsTable, start, len(records), err) }()

	ds.writeMu.Lock()
	defer ds.writeMu.Unlock()

	var rows []Violation
	err = ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("notified = ?", false).Order("id")
		if ds.supportsRowLocks() {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if limit > 0 {
			q = q.Limit(limit)
		}
		if err := q.Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		ids := make([]uint, len(rows))
		for i := range rows {
			ids[i] = rows[i].ID
		}
		res := tx.Model(&Violation{}).
			Where("id IN ? AND notified = ?", ids, false).
			Update("notified", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(ids)) {
			return stateError(fmt.Errorf("flipped %d of %d violations", res.RowsAffected, len(ids)),
				"fetch_unnotified", "expected", len(ids))
		}
		return nil
	})
	ds.recordTransaction(err)
	if err != nil {
		return nil, dbError(err, "fetch_unnotified", "high", "limit", limit)
	}

	records = make([]violation.Record, len(rows))
	for i := range rows {
		rows[i].Notified = true
		records[i] = rows[i].ToRecord()
	}

	if len(records) > 0 {
		GetLogger().Debug("fetched unnotified violations", logger.Int("count", len(records)))
	}
	return records, nil
}

// CountUnnotified returns how many records are waiting for dispatch.
func (ds *DataStore) CountUnnotified(ctx context.Context) (int64, error) {
	var n int64
	if err := ds.DB.WithContext(ctx).Model(&Violation{}).Where("notified = ?", false).Count(&n).Error; err != nil {
		return 0, dbError(err, "count_unnotified", "")
	}
	return n, nil
}

// groupRow is the scan target for the per-type aggregate query.
type groupRow struct {
	Location      string
	Count         int64
	AvgConfidence float64
	FirstMs       int64
	LastMs        int64
}

// ViolationsInWindow aggregates records with timestamp >= now-days, grouped
// by (violation type, location). A record missing several items contributes
// one row to each of its types. Groups are ordered by count descending, then
// type and location for stable output.
func (ds *DataStore) ViolationsInWindow(ctx context.Context, days int, now time.Time) (groups []ViolationGroup, err error) {
	if days <= 0 {
		return nil, validationError("report window must be at least one day", "days", days)
	}

	start := time.Now()
	defer func() { ds.observe("violations_in_window", violationsTable, start, len(groups), err) }()

	since := now.Add(-time.Duration(days) * 24 * time.Hour).UnixMilli()
	flags := []struct {
		column    string
		equipment detection.Equipment
	}{
		{"missing_helmet", detection.Helmet},
		{"missing_vest", detection.Vest},
		{"missing_goggles", detection.Goggles},
	}

	db := ds.DB.WithContext(ctx)
	for _, f := range flags {
		var rows []groupRow
		err = db.Model(&Violation{}).
			Select("location, COUNT(*) AS count, AVG(confidence) AS avg_confidence, "+
				"MIN(occurred_unix_ms) AS first_ms, MAX(occurred_unix_ms) AS last_ms").
			Where(f.column+" = ? AND occurred_unix_ms >= ?", true, since).
			Group("location").
			Scan(&rows).Error
		if err != nil {
			return nil, dbError(err, "violations_in_window", "", "days", days, "type", f.equipment.ViolationType())
		}
		for _, r := range rows {
			groups = append(groups, ViolationGroup{
				Type:          f.equipment.ViolationType(),
				Location:      r.Location,
				Count:         r.Count,
				AvgConfidence: r.AvgConfidence,
				FirstSeen:     time.UnixMilli(r.FirstMs).UTC(),
				LastSeen:      time.UnixMilli(r.LastMs).UTC(),
			})
		}
	}

	sortGroups(groups)
	return groups, nil
}

func sortGroups(groups []ViolationGroup) {
	slices.SortFunc(groups, func(a, b ViolationGroup) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Type, b.Type); c != 0 {
			return c
		}
		return cmp.Compare(a.Location, b.Location)
	})
}
