package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"ticketly/internal/seats"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrEventNotFound   = seats.ErrEventNotFound
	ErrVersionConflict = errors.New("event was modified concurrently")
)

type Repository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Update(ctx context.Context, id uuid.UUID, version int, updates map[string]interface{}) (*Event, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountTickets(ctx context.Context, id uuid.UUID) (int64, error)
	GetAll(ctx context.Context, query EventListQuery) ([]Event, int64, error)

	// Scheduler support
	SyncStatuses(ctx context.Context, now time.Time) (activated, closed int64, err error)
	ForEachEvent(ctx context.Context, batchSize int, fn func(*Event) error) error
	SetAvailableSeats(ctx context.Context, id uuid.UUID, version, available int) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, event *Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	var event Event
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

func (r *repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Event{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// Update applies updates only if the row is still at version, so edits
// never clobber a booking that committed in between.
func (r *repository) Update(ctx context.Context, id uuid.UUID, version int, updates map[string]interface{}) (*Event, error) {
	updates["version"] = gorm.Expr("version + 1")

	result := r.db.WithContext(ctx).Model(&Event{}).
		Where("id = ? AND version = ?", id, version).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrVersionConflict
	}

	return r.GetByID(ctx, id)
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Event{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *repository) CountTickets(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Table("tickets").Where("event_id = ?", id).Count(&count).Error
	return count, err
}

func (r *repository) GetAll(ctx context.Context, query EventListQuery) ([]Event, int64, error) {
	var events []Event
	var totalCount int64

	db := r.db.WithContext(ctx).Model(&Event{})

	if query.Q != "" {
		searchTerm := "%" + strings.ToLower(query.Q) + "%"
		db = db.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(organizer) LIKE ? OR LOWER(venue_name) LIKE ?",
			searchTerm, searchTerm, searchTerm, searchTerm)
	}

	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
	}

	if query.Category != "" {
		db = db.Where("LOWER(category) = ?", strings.ToLower(query.Category))
	}

	if err := db.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	offset := (query.Page - 1) * query.Limit

	// seat maps are heavy and not needed for listings
	err := db.Omit("seats_map").
		Order("date_time ASC").
		Offset(offset).
		Limit(query.Limit).
		Find(&events).Error

	return events, totalCount, err
}

// SyncStatuses moves upcoming events to active on their day and closes
// every open event whose start time has passed.
func (r *repository) SyncStatuses(ctx context.Context, now time.Time) (activated, closed int64, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Event{}).
			Where("status IN ? AND date_time <= ?", []Status{StatusActive, StatusUpcoming}, now).
			Updates(map[string]interface{}{"status": StatusClosed, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		closed = res.RowsAffected

		endOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
		res = tx.Model(&Event{}).
			Where("status = ? AND date_time > ? AND date_time < ?", StatusUpcoming, now, endOfDay).
			Updates(map[string]interface{}{"status": StatusActive, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		activated = res.RowsAffected
		return nil
	})
	return activated, closed, err
}

func (r *repository) ForEachEvent(ctx context.Context, batchSize int, fn func(*Event) error) error {
	var batch []Event
	result := r.db.WithContext(ctx).
		Select("id", "seats_amount", "available_seats", "seats_map", "version").
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			for i := range batch {
				if err := fn(&batch[i]); err != nil {
					return err
				}
			}
			return nil
		})
	return result.Error
}

// SetAvailableSeats writes the count only while the event is still at
// version. It reports false when a booking changed the event since it was
// read.
func (r *repository) SetAvailableSeats(ctx context.Context, id uuid.UUID, version, available int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&Event{}).
		Where("id = ? AND version = ?", id, version).
		Update("available_seats", available)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
