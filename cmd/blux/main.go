// Package main provides the blux command-line tool.
package main

import (
	"os"

	"github.com/leapstack-labs/blux/internal/cli"

	// Register dialect adapters.
	_ "github.com/leapstack-labs/blux/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/blux/pkg/adapters/mssql"
	_ "github.com/leapstack-labs/blux/pkg/adapters/mysql"
	_ "github.com/leapstack-labs/blux/pkg/adapters/oracle"
	_ "github.com/leapstack-labs/blux/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/blux/pkg/adapters/sqlite"
	_ "github.com/leapstack-labs/blux/pkg/adapters/teradata"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
