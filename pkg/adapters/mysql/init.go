package mysql

import (
	"log/slog"

	"github.com/leapstack-labs/blux/pkg/adapter"
)

func init() {
	adapter.Register(DialectName, func(logger *slog.Logger) adapter.Adapter { return New(logger) }, "mariadb", "aurora-mysql")
}
