package interfaces

import (
	"context"

	"github.com/Aleph-Project/Aleph/internal/models"
)

type WarehouseRepo interface {
	// RecordPlay resolves all six dimensions and inserts one fact row
	// inside a single transaction.
	RecordPlay(ctx context.Context, play *models.PlayRecord) error
}
