package ports

import (
	"context"

	"github.com/Yogeshviper/azure-ai-operator/internal/core/domain"
)

// TurnRepository keeps chat sessions and the turns handled in them.
type TurnRepository interface {
	CreateSession(ctx context.Context, s domain.Session) error
	GetSession(ctx context.Context, id string) (domain.Session, error)
	SaveTurn(ctx context.Context, t domain.Turn) error
	ListTurns(ctx context.Context, sessionID string) ([]domain.Turn, error)
}
