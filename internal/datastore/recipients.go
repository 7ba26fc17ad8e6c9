package datastore

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertRecipient inserts a recipient or updates the existing row with the
// same chat id.
func (ds *DataStore) UpsertRecipient(ctx context.Context, r *Recipient) error {
	r.ChatID = strings.TrimSpace(r.ChatID)
	if r.ChatID == "" {
		return validationError("recipient chat id is required", "chat_id", "")
	}

	err := ds.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "department", "active", "updated_at"}),
	}).Create(r).Error
	if err != nil {
		return dbError(err, "upsert_recipient", "", "chat_id", r.ChatID)
	}
	return nil
}

// GetRecipient looks up a recipient by chat id.
func (ds *DataStore) GetRecipient(ctx context.Context, chatID string) (*Recipient, error) {
	var r Recipient
	err := ds.DB.WithContext(ctx).Where("chat_id = ?", chatID).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError("recipient", chatID)
	}
	if err != nil {
		return nil, dbError(err, "get_recipient", "", "chat_id", chatID)
	}
	return &r, nil
}

// ListRecipients returns active recipients ordered by chat id. An empty
// department returns everyone.
func (ds *DataStore) ListRecipients(ctx context.Context, department string) ([]Recipient, error) {
	var rows []Recipient
	q := ds.DB.WithContext(ctx).Where("active = ?", true)
	if department != "" {
		q = q.Where("department = ?", department)
	}
	if err := q.Order("chat_id").Find(&rows).Error; err != nil {
		return nil, dbError(err, "list_recipients", "", "department", department)
	}
	return rows, nil
}

// RecipientCountsByDepartment counts active recipients per department.
func (ds *DataStore) RecipientCountsByDepartment(ctx context.Context) ([]DepartmentCount, error) {
	var counts []DepartmentCount
	err := ds.DB.WithContext(ctx).Model(&Recipient{}).
		Select("department, COUNT(*) AS count").
		Where("active = ?", true).
		Group("department").
		Order("department").
		Scan(&counts).Error
	if err != nil {
		return nil, dbError(err, "recipient_counts", "")
	}
	return counts, nil
}
