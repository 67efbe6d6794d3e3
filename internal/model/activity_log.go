package model

import (
	"time"

	"github.com/google/uuid"
)

// Journal actions.
const (
	ActionRegister       = "register"
	ActionLogin          = "login"
	ActionAddProduct     = "add_product"
	ActionUpdateStock    = "update_stock"
	ActionDeleteProduct  = "delete_product"
	ActionRecordSale     = "record_sale"
	ActionActivateUser   = "activate_user"
	ActionDeactivateUser = "deactivate_user"
)

// ActivityLog is an append-only audit entry. Rows are never updated or deleted.
type ActivityLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Action    string    `gorm:"type:varchar(50);not null"`
	Details   string    `gorm:"type:varchar(500)"`
	IPAddress *string   `gorm:"type:varchar(50)"`
	Timestamp time.Time `gorm:"not null;index"`
	ShopID    uuid.UUID `gorm:"type:uuid;not null;index"`
}
