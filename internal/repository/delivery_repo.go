package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"coopleo-web/internal/models"
)

// DeliveryLog keeps one row per recommendations email handed to a provider.
type DeliveryLog interface {
	Record(ctx context.Context, d *models.Delivery) error
}

type DeliveryRepo struct {
	pool *pgxpool.Pool
}

func NewDeliveryRepo(pool *pgxpool.Pool) *DeliveryRepo {
	return &DeliveryRepo{pool: pool}
}

func (r *DeliveryRepo) Record(ctx context.Context, d *models.Delivery) error {
	query := `INSERT INTO email_deliveries (id, conversation_id, recipient, provider)
		VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING RETURNING created_at`

	err := r.pool.QueryRow(ctx, query, d.ID, d.ConversationID, d.Recipient, d.Provider).Scan(&d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// already recorded
		return nil
	}
	return err
}

type MemoryDeliveryLog struct {
	mu         sync.Mutex
	deliveries []models.Delivery
}

func NewMemoryDeliveryLog() *MemoryDeliveryLog {
	return &MemoryDeliveryLog{}
}

func (m *MemoryDeliveryLog) Record(ctx context.Context, d *models.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, *d)
	return nil
}
