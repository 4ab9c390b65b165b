package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mandibook/mandibook-backend/internal/orders"
	"github.com/mandibook/mandibook-backend/pkg/enums"
	"github.com/mandibook/mandibook-backend/pkg/logger"
)

type batchConfirmer interface {
	ConfirmBatchedOrders(ctx context.Context, actor orders.Actor) (int, error)
}

// BatchConfirmJob advances batched pending orders to confirmed once their
// cutoff cycle runs. It acts as a system admin so the transitions pass the
// same permission checks as a human operator's.
type BatchConfirmJob struct {
	svc     batchConfirmer
	logg    *logger.Logger
	actorID uuid.UUID
}

// NewBatchConfirmJob builds the batch confirmation job.
func NewBatchConfirmJob(svc batchConfirmer, logg *logger.Logger, actorID uuid.UUID) (*BatchConfirmJob, error) {
	if svc == nil {
		return nil, fmt.Errorf("order service required")
	}
	if actorID == uuid.Nil {
		return nil, fmt.Errorf("system actor id required")
	}
	return &BatchConfirmJob{svc: svc, logg: logg, actorID: actorID}, nil
}

// Name identifies the job in logs and metrics.
func (j *BatchConfirmJob) Name() string {
	return "batch-confirm"
}

// Run confirms every batched pending order.
func (j *BatchConfirmJob) Run(ctx context.Context) error {
	confirmed, err := j.svc.ConfirmBatchedOrders(ctx, orders.Actor{
		UserID: j.actorID,
		Role:   enums.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("confirm batched orders: %w", err)
	}
	if j.logg != nil {
		j.logg.Info(j.logg.WithField(ctx, "confirmed", confirmed), "batch confirmation pass complete")
	}
	return nil
}
