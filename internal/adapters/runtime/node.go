package runtime

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/ember/internal/core/ports"
)

// NodeID is the unique identifier for the runtime table Graft node.
const NodeID graft.ID = "adapter.runtime"

func init() {
	graft.Register(graft.Node[ports.Runtime]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Runtime, error) {
			return NewTable(), nil
		},
	})
}
