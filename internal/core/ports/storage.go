package ports

import (
	"context"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
)

// StatsSink is the append-only tabular statistics output.
type StatsSink interface {
	// WriteRows appends rows and flushes them.
	WriteRows(rows []domain.StatsRow) error
	// Close releases the underlying resource.
	Close() error
}

// VerdictRepository persists announced verdicts.
type VerdictRepository interface {
	SaveVerdictsBatch(ctx context.Context, verdicts []domain.Verdict) error
	ListVerdicts(ctx context.Context, limit int) ([]domain.Verdict, error)
	GetVerdict(ctx context.Context, id string) (*domain.Verdict, error)
	Close() error
}

// VerdictObserver is told about every announced verdict after dispatch.
type VerdictObserver interface {
	OnVerdict(v domain.Verdict)
}

// StatsObserver is told about every statistics emission.
type StatsObserver interface {
	OnStats(e domain.StatsEmission)
}
