package platform

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/strata/pkg/adapters/fs"
	"github.com/aretw0/strata/pkg/adapters/mongo"
	"github.com/aretw0/strata/pkg/connection"
	"github.com/aretw0/strata/pkg/core"
)

// newDialer returns the dialer used by the connection resolver: mongodb://
// servers go to the MongoDB adapter, file:// servers to the filesystem store.
func newDialer(o *options, logger *slog.Logger) connection.Dialer {
	mongoDial := mongo.NewDialer(mongo.WithLogger(logger))
	fsDial := fs.NewDialer(fs.Config{
		Format:       o.format,
		SystemDir:    o.systemDir,
		Logger:       logger,
		ErrorHandler: o.errorHandler,
	})

	return func(ctx context.Context, server, database string) (core.Store, error) {
		switch {
		case strings.HasPrefix(server, "mongodb://"), strings.HasPrefix(server, "mongodb+srv://"):
			return mongoDial(ctx, server, database)
		case strings.HasPrefix(server, "file://"):
			return fsDial(ctx, server, database)
		default:
			return nil, fmt.Errorf("unknown server scheme: %q", server)
		}
	}
}

// staticHandle serves an injected store.
type staticHandle struct {
	store core.Store
}

func (h staticHandle) Handle(ctx context.Context) (core.Store, error) {
	return h.store, nil
}
