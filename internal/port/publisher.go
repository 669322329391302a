package port

import (
	"context"

	"github.com/strogmv/assembler/assembler"
)

type Publisher interface {
	PublishDeploymentEvent(ctx context.Context, event assembler.Event) error
}
