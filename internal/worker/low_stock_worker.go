package worker

// low_stock_worker.go
// Processes QueueLowStock jobs: mails every active admin of the shop that a
// product fell to or below the low-stock threshold.

import (
	"context"
	"encoding/json"
	"fmt"

	"spazatrack/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// LowStockPayload is the job body pushed by the sale recorder after commit.
type LowStockPayload struct {
	ShopID      string `json:"shop_id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Threshold   int    `json:"threshold"`
}

// Sender is the subset of infra.Mailer the worker needs.
type Sender interface {
	Enabled() bool
	Send(to []string, subject, body string) error
}

// ShopStaff lists the users of a shop.
type ShopStaff interface {
	ListByShop(ctx context.Context, shopID uuid.UUID) ([]model.User, error)
}

type LowStockWorker struct {
	mailer Sender
	users  ShopStaff
}

func NewLowStockWorker(mailer Sender, users ShopStaff) *LowStockWorker {
	return &LowStockWorker{mailer: mailer, users: users}
}

// Process sends the alert. Malformed payloads are dropped (retrying cannot fix
// them); delivery failures are returned so the pool retries.
func (w *LowStockWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload LowStockPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("low_stock_worker: invalid payload")
		return nil
	}
	shopID, err := uuid.Parse(payload.ShopID)
	if err != nil {
		log.Error().Str("shop_id", payload.ShopID).Msg("low_stock_worker: invalid shop id")
		return nil
	}

	logger := log.With().
		Str("shop_id", payload.ShopID).
		Str("product_id", payload.ProductID).
		Int("quantity", payload.Quantity).
		Logger()

	if w.mailer == nil || !w.mailer.Enabled() {
		logger.Warn().Str("product", payload.ProductName).Msg("low stock (SMTP not configured, alert logged only)")
		return nil
	}

	users, err := w.users.ListByShop(ctx, shopID)
	if err != nil {
		return fmt.Errorf("list shop users: %w", err)
	}
	var to []string
	for _, u := range users {
		if u.Role == model.RoleAdmin && u.IsActive && u.Email != "" {
			to = append(to, u.Email)
		}
	}
	if len(to) == 0 {
		logger.Warn().Msg("low_stock_worker: shop has no active admin to notify")
		return nil
	}

	subject := fmt.Sprintf("Low stock: %s", payload.ProductName)
	body := fmt.Sprintf("%s is down to %d unit(s) (alert threshold %d).\nRestock soon to avoid missed sales.\n",
		payload.ProductName, payload.Quantity, payload.Threshold)
	if err := w.mailer.Send(to, subject, body); err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	logger.Info().Int("recipients", len(to)).Msg("low_stock_worker: alert sent")
	return nil
}
