package port

import (
	"context"
	"time"
)

// DeployAuditRecord - запись о проверке готовности к деплою.
type DeployAuditRecord struct {
	ID             string
	Requester      string
	CanDeploy      bool
	ActiveSessions int
	Threshold      int
	CheckedAt      time.Time
}

// DeployAuditRepository хранит журнал проверок деплоя (DynamoDB).
type DeployAuditRepository interface {
	Save(ctx context.Context, record DeployAuditRecord) error
	ListRecent(ctx context.Context, limit int) ([]DeployAuditRecord, error)
}
