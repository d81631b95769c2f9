package events

import (
	"context"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
)

// Publisher получатель событий обращений.
type Publisher interface {
	Publish(ctx context.Context, event entity.IncidentEvent)
}

// Fanout раздаёт событие всем получателям по порядку; nil пропускаются.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event entity.IncidentEvent) {
	for _, p := range f {
		if p != nil {
			p.Publish(ctx, event)
		}
	}
}
