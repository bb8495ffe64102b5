package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/richardliu001/org-wallet/internal/model"
	"gorm.io/gorm"
)

// NewWalletEvent builds an outbox row for a wallet aggregate.
func NewWalletEvent(walletID uint64, eventType string, payload interface{}) (*model.OutboxEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &model.OutboxEvent{
		Aggregate:   "OrgWallet",
		AggregateID: walletID,
		EventType:   eventType,
		Payload:     string(data),
	}, nil
}

// CreateOutboxEvent writes event in the caller's unit of work.
func (r *Repository) CreateOutboxEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error {
	return tx.WithContext(ctx).Create(evt).Error
}

// PollOutbox pulls unprocessed events.
func (r *Repository) PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	var evts []model.OutboxEvent
	err := r.db.WithContext(ctx).Where("processed = ?", false).Order("id").Limit(limit).Find(&evts).Error
	return evts, err
}

// MarkOutboxProcessed sets processed flag.
func (r *Repository) MarkOutboxProcessed(ctx context.Context, id uint64) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.OutboxEvent{}).Where("id = ?", id).
		Updates(map[string]interface{}{"processed": true, "processed_at": &now}).Error
}
