package eligibility

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func TestPostgres_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:17-alpine",
		postgres.WithDatabase("otpgate"),
		postgres.WithUsername("otpgate"),
		postgres.WithPassword("otpgate"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, migration.Run(dsn, migration.DirectionUp))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `INSERT INTO eligible_phone_numbers (phone_number) VALUES ($1)`, "+14155550100")
	require.NoError(t, err)

	p := NewPostgres(pool, "", instrument.NewNoop())

	ok, err := p.IsEligible(ctx, "+14155550100")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.IsEligible(ctx, "+10000000000")
	require.NoError(t, err)
	assert.False(t, ok)
}
