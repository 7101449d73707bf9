package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"coopleo-web/internal/models"
)

// TurnLog records the exchanges of each conversation so a transcript can be
// rebuilt server-side.
type TurnLog interface {
	Append(ctx context.Context, t *models.Turn) error
	ListByConversation(ctx context.Context, conversationID string) ([]models.Turn, error)
	DeleteConversation(ctx context.Context, conversationID string) error
}

type TurnRepo struct {
	pool *pgxpool.Pool
}

func NewTurnRepo(pool *pgxpool.Pool) *TurnRepo {
	return &TurnRepo{pool: pool}
}

func (r *TurnRepo) Append(ctx context.Context, t *models.Turn) error {
	query := `INSERT INTO conversation_turns (conversation_id, user_message, assistant_message)
		VALUES ($1, $2, $3) RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query, t.ConversationID, t.UserMessage, t.AssistantMessage).
		Scan(&t.ID, &t.CreatedAt)
}

func (r *TurnRepo) ListByConversation(ctx context.Context, conversationID string) ([]models.Turn, error) {
	query := `SELECT id, conversation_id, user_message, assistant_message, created_at
		FROM conversation_turns WHERE conversation_id = $1 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []models.Turn
	for rows.Next() {
		var t models.Turn
		if err := rows.Scan(&t.ID, &t.ConversationID, &t.UserMessage, &t.AssistantMessage, &t.CreatedAt); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func (r *TurnRepo) DeleteConversation(ctx context.Context, conversationID string) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM conversation_turns WHERE conversation_id = $1", conversationID)
	return err
}

// MemoryTurnLog is the TurnLog used when no database is configured.
type MemoryTurnLog struct {
	mu     sync.Mutex
	nextID int64
	turns  map[string][]models.Turn
	now    func() time.Time
}

func NewMemoryTurnLog() *MemoryTurnLog {
	return &MemoryTurnLog{turns: make(map[string][]models.Turn), now: time.Now}
}

func (m *MemoryTurnLog) Append(ctx context.Context, t *models.Turn) error {
	if t.ConversationID == "" {
		return fmt.Errorf("turn without conversation id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = m.nextID
	t.CreatedAt = m.now()
	m.turns[t.ConversationID] = append(m.turns[t.ConversationID], *t)
	return nil
}

func (m *MemoryTurnLog) ListByConversation(ctx context.Context, conversationID string) ([]models.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Turn(nil), m.turns[conversationID]...), nil
}

func (m *MemoryTurnLog) DeleteConversation(ctx context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.turns, conversationID)
	return nil
}
