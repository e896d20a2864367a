package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// TransferRepository aprobación de traspasos entre ubicaciones
type TransferRepository interface {
	Approve(ctx context.Context, transferID, approver string) (bool, error)
}

type transferRepository struct {
	db *sqlx.DB
}

func NewTransferRepository(db *sqlx.DB) TransferRepository {
	return &transferRepository{db: db}
}

// Approve llama a process_transfer_approval, que mueve las cajas y cierra el
// traspaso en una sola transacción del lado de la base. Devuelve false si el
// traspaso no existe o ya no está pendiente.
func (r *transferRepository) Approve(ctx context.Context, transferID, approver string) (bool, error) {
	var ok bool
	if err := r.db.GetContext(ctx, &ok, `SELECT process_transfer_approval($1, $2)`, transferID, approver); err != nil {
		return false, fmt.Errorf("failed to approve transfer: %w", err)
	}
	return ok, nil
}
