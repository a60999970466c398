package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aniladanir/lead-funnel/internal/cache"
	"github.com/aniladanir/lead-funnel/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MutateFunc changes a lead inside a transaction and returns the messages that
// must be logged together with the change.
type MutateFunc func(lead *domain.Lead) ([]*domain.Message, error)

type Repository interface {
	Create(ctx context.Context, lead *domain.Lead, fn MutateFunc) error
	Get(ctx context.Context, id int) (*domain.Lead, error)
	Mutate(ctx context.Context, id int, fn MutateFunc) (*domain.Lead, error)
	DueForNudge(ctx context.Context, now time.Time, limit int) ([]domain.Lead, error)
	ListMessages(ctx context.Context, leadID int) ([]domain.Message, error)
	UpdateDelivery(ctx context.Context, msg *domain.Message) error
	CacheReceipt(ctx context.Context, providerID string, sentTime time.Time) error
	LockNudge(ctx context.Context, leadID int, ttl time.Duration) (unlock func(), ok bool, err error)
	Ping(ctx context.Context) error
}

type repo struct {
	db    *gorm.DB
	cache cache.Cache
}

func NewLeadRepository(db *gorm.DB, cache cache.Cache) Repository {
	return &repo{db: db, cache: cache}
}

// Models lists the tables owned by this repository, for auto migration.
func Models() []any {
	return []any{&domain.Lead{}, &domain.Message{}}
}

// Create inserts the lead and lets fn complete it before the transaction commits
func (r *repo) Create(ctx context.Context, lead *domain.Lead, fn MutateFunc) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(lead).Error; err != nil {
			return err
		}
		return r.apply(tx, lead, fn)
	})
}

// Get returns the lead with the given id
func (r *repo) Get(ctx context.Context, id int) (*domain.Lead, error) {
	var lead domain.Lead
	if err := r.db.WithContext(ctx).First(&lead, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLeadNotFound
		}
		return nil, err
	}
	return &lead, nil
}

// Mutate locks the lead row, applies fn and saves the result with its messages.
// Nothing is written when fn returns an error.
func (r *repo) Mutate(ctx context.Context, id int, fn MutateFunc) (*domain.Lead, error) {
	var lead domain.Lead
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.locking(tx).First(&lead, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrLeadNotFound
			}
			return err
		}
		return r.apply(tx, &lead, fn)
	})
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

// DueForNudge returns the leads whose nudge time has passed, oldest first
func (r *repo) DueForNudge(ctx context.Context, now time.Time, limit int) ([]domain.Lead, error) {
	var leads []domain.Lead
	err := r.db.WithContext(ctx).
		Where("status <> ? AND next_nudge_at IS NOT NULL AND next_nudge_at <= ?", domain.LeadScheduled, now.UTC()).
		Order("next_nudge_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&leads).Error
	return leads, err
}

// ListMessages returns the conversation log of a lead in insertion order
func (r *repo) ListMessages(ctx context.Context, leadID int) ([]domain.Message, error) {
	var messages []domain.Message
	err := r.db.WithContext(ctx).Where("lead_id = ?", leadID).Order("id ASC").Find(&messages).Error
	return messages, err
}

// UpdateDelivery stores the delivery outcome of an outbound message
func (r *repo) UpdateDelivery(ctx context.Context, msg *domain.Message) error {
	now := time.Now().UTC()
	msg.UpdatedAt = &now
	return r.db.WithContext(ctx).Model(msg).
		Select("delivery", "delivery_error", "provider_id", "updated_at").
		Updates(msg).Error
}

// CacheReceipt writes given receipt attributes to cache
func (r *repo) CacheReceipt(ctx context.Context, providerID string, sentTime time.Time) error {
	key := fmt.Sprintf("sent_msg:%s", providerID)

	value := map[string]any{
		"messageId": providerID,
		"sentAt":    sentTime,
	}

	jsonVal, _ := json.Marshal(value)
	// Expire after 24 hours to keep memory clean
	return r.cache.Set(ctx, key, string(jsonVal), 24*time.Hour)
}

// LockNudge takes the per-lead nudge lock shared by every instance using the
// same cache. The returned unlock only releases a lock this call still owns.
func (r *repo) LockNudge(ctx context.Context, leadID int, ttl time.Duration) (func(), bool, error) {
	key := fmt.Sprintf("nudge_lock:%d", leadID)
	token := uuid.NewString()

	ok, err := r.cache.SetNX(ctx, key, token, ttl)
	if err != nil || !ok {
		return func() {}, ok, err
	}

	return func() {
		// the lock may have expired and been taken by someone else
		if val, err := r.cache.Get(context.Background(), key); err == nil && val == token {
			_ = r.cache.Del(context.Background(), key)
		}
	}, true, nil
}

func (r *repo) Ping(ctx context.Context) error {
	sqlDb, err := r.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDb.PingContext(ctx); err != nil {
		return err
	}
	return r.cache.Ping(ctx)
}

func (r *repo) apply(tx *gorm.DB, lead *domain.Lead, fn MutateFunc) error {
	messages, err := fn(lead)
	if err != nil {
		return err
	}
	if err := tx.Save(lead).Error; err != nil {
		return err
	}
	for _, m := range messages {
		m.LeadID = lead.ID
		if err := tx.Create(m).Error; err != nil {
			return err
		}
	}
	return nil
}

// locking selects the lead row for update where the dialect supports it.
// sqlite serializes writers on its own.
func (r *repo) locking(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
