package repository

import (
	"context"

	"pos-license-platform/internal/domain/model"
)

// PlanRepository is the port for subscription plans.
type PlanRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Plan) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Plan, error)
	FindByCode(ctx context.Context, tx Tx, code string) (*model.Plan, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.Plan, error)
}
