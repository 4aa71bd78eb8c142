package postgres

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/alphabot-ai/contextoverflow/internal/store"
	"github.com/alphabot-ai/contextoverflow/internal/store/storetest"
)

// startPostgres runs one container for the whole test and returns its DSN.
func startPostgres(t *testing.T) string {
	t.Helper()
	if os.Getenv("CONTEXTOVERFLOW_PG_TESTS") != "1" {
		t.Skip("set CONTEXTOVERFLOW_PG_TESTS=1 to run postgres tests (needs docker)")
	}

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("contextoverflow"),
		tcpostgres.WithUsername("contextoverflow"),
		tcpostgres.WithPassword("contextoverflow"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestConformance(t *testing.T) {
	dsn := startPostgres(t)

	admin, err := Open(dsn)
	require.NoError(t, err)
	defer admin.Close()

	storetest.Run(t, func(t *testing.T) store.Store {
		// Each subtest gets its own database so counts start at zero.
		name := "t_" + strings.ToLower(strings.NewReplacer("/", "_", "-", "_").Replace(t.Name()))
		if len(name) > 60 {
			name = name[:60]
		}
		require.NoError(t, admin.db.Exec(fmt.Sprintf(`CREATE DATABASE "%s"`, name)).Error)

		st, err := Open(strings.Replace(dsn, "/contextoverflow?", "/"+name+"?", 1))
		require.NoError(t, err)
		return st
	})
}
