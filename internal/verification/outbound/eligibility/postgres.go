package eligibility

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
)

// DefaultPostgresTable is the table created by the bundled migrations.
const DefaultPostgresTable = "eligible_phone_numbers"

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres looks the phone number up in a table keyed by phone_number.
type Postgres struct {
	conn  querier
	query string
	ins   instrument.Instrumentation
}

func NewPostgres(conn querier, table string, ins instrument.Instrumentation) *Postgres {
	if table == "" {
		table = DefaultPostgresTable
	}

	return &Postgres{
		conn:  conn,
		query: fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE phone_number = $1)", pgx.Identifier{table}.Sanitize()),
		ins:   ins,
	}
}

func (p *Postgres) IsEligible(ctx context.Context, phone string) (ok bool, err error) {
	ctx, span := startSpan(ctx, p.ins, DriverPostgres)
	defer func() { endSpan(span, ok, err) }()

	if err := p.conn.QueryRow(ctx, p.query, phone).Scan(&ok); err != nil {
		return false, fmt.Errorf("eligibility: postgres lookup: %w", err)
	}

	return ok, nil
}
