package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/logger"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/metrics"
)

const (
	TypePurchaseConfirmed    = "purchase_confirmed"
	TypePaymentRejected      = "payment_rejected"
	TypeBalanceCredited      = "balance_credited"
	TypeEntitlementActivated = "entitlement_activated"
	TypeEntitlementExpired   = "entitlement_expired"
	TypeRenewalSuccess       = "renewal_success"
	TypeRenewalFailed        = "renewal_failed"
	TypeCommissionEarned     = "commission_earned"

	queueKey  = "notifications"
	failedKey = "notifications:failed"
)

type Job struct {
	OwnerID  int               `json:"owner_id"`
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Tries    int               `json:"tries"`
	Created  time.Time         `json:"created"`
}

type Notification struct {
	ID        int64     `db:"id" json:"id"`
	OwnerID   int       `db:"owner_id" json:"owner_id"`
	Type      string    `db:"type" json:"type"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	Metadata  []byte    `db:"metadata" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Service queues notifications through redis and drains them into the in-app
// inbox table. Callers treat Notify as fire-and-forget; delivery failures
// never propagate back into the money paths.
type Service struct {
	redis *redis.Client
	db    *sqlx.DB
}

func New(redisAddr string, db *sqlx.DB) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		db: db,
	}
}

func (s *Service) Notify(ctx context.Context, ownerID int, ntype, title, message string, metadata map[string]string) error {
	job := Job{
		OwnerID:  ownerID,
		Type:     ntype,
		Title:    title,
		Message:  message,
		Metadata: metadata,
		Created:  time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal notification: %v", err)
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Errorf("Failed to queue notification for user %d: %v", ownerID, err)
		return err
	}

	logger.Debugf("Notification queued: %s for user %d", ntype, ownerID)
	return nil
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("Notification worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	metrics.NotificationQueueDepth.Set(float64(s.QueueLength(context.Background())))

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad notification data: %v", err)
		return
	}

	job.Tries++
	if err := s.deliver(ctx, job); err != nil {
		logger.Errorf("Failed to deliver notification to user %d: %v", job.OwnerID, err)

		if job.Tries < 3 {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, data)
		} else {
			logger.Errorf("Notification for user %d failed after 3 attempts", job.OwnerID)
			s.saveFailed(job, err)
		}
		return
	}
}

// deliver lands the notification in the user's in-app inbox. Push/e-mail
// fan-out is owned by a separate consumer reading the same table.
func (s *Service) deliver(ctx context.Context, job Job) error {
	meta, err := json.Marshal(job.Metadata)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notifications (owner_id, type, title, message, metadata)
		VALUES ($1, $2, $3, $4, $5)
	`, job.OwnerID, job.Type, job.Title, job.Message, meta)
	return err
}

func (s *Service) saveFailed(job Job, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedKey, data)
}

func (s *Service) ListByOwner(ctx context.Context, ownerID int, limit, offset int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	list := []Notification{}
	err := s.db.SelectContext(ctx, &list, `
		SELECT id, owner_id, type, title, message, metadata, created_at
		FROM notifications
		WHERE owner_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	return list, err
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}
