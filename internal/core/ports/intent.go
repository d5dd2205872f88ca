package ports

import (
	"context"

	"github.com/Yogeshviper/azure-ai-operator/internal/core/domain"
)

// IntentCompiler turns one free-text message into an Intent.
type IntentCompiler interface {
	AnalyzeIntent(ctx context.Context, message string) (domain.Intent, error)
}
