package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/captable/internal/domain"
	"github.com/iho/captable/internal/usecase"
)

const pgErrUniqueViolation = "23505"

const (
	getCompanySQL = `SELECT shares_per_percent FROM companies WHERE id = $1`

	listTeamMembersSQL = `SELECT id, name, role, equity_percent FROM team_members
WHERE company_id = $1 ORDER BY created_at, id`

	// Only investors of closed rounds hold equity.
	listInvestorsSQL = `SELECT id, name, equity_percent FROM investors
WHERE company_id = $1 AND status = 'closed' ORDER BY created_at, id`

	forUpdate = ` FOR UPDATE`

	insertTeamMemberSQL = `INSERT INTO team_members (id, company_id, name, role, equity_percent, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)`

	insertInvestorSQL = `INSERT INTO investors (id, company_id, name, status, equity_percent, created_at, updated_at)
VALUES ($1, $2, $3, 'closed', $4, $5, $5)`

	updateTeamEquitySQL = `UPDATE team_members SET equity_percent = $3, updated_at = $4
WHERE company_id = $1 AND id = $2`

	updateInvestorEquitySQL = `UPDATE investors SET equity_percent = $3, updated_at = $4
WHERE company_id = $1 AND id = $2`

	deleteTeamMemberSQL = `DELETE FROM team_members WHERE company_id = $1 AND id = $2`
	deleteInvestorSQL   = `DELETE FROM investors WHERE company_id = $1 AND id = $2`
)

// querier is the subset of pgx shared by pools and transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// StakeholderRepository implements usecase.StakeholderRepository.
type StakeholderRepository struct {
	db  querier
	now func() time.Time
}

// NewStakeholderRepository creates a new StakeholderRepository.
func NewStakeholderRepository(pool *pgxpool.Pool) *StakeholderRepository {
	return newStakeholderRepository(pool)
}

func newStakeholderRepository(db querier) *StakeholderRepository {
	return &StakeholderRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Load reads a company's ownership rows without locking.
func (r *StakeholderRepository) Load(ctx context.Context, companyID string) (*domain.StakeholderData, error) {
	return r.load(ctx, r.db, companyID, "")
}

// LoadForUpdate reads a company's ownership rows and locks the company row and
// every stakeholder row until the transaction ends.
func (r *StakeholderRepository) LoadForUpdate(ctx context.Context, tx usecase.Transaction, companyID string) (*domain.StakeholderData, error) {
	return r.load(ctx, tx.(*Tx).PgxTx(), companyID, forUpdate)
}

func (r *StakeholderRepository) load(ctx context.Context, q querier, companyID, lock string) (*domain.StakeholderData, error) {
	data := &domain.StakeholderData{CompanyID: companyID}

	if err := q.QueryRow(ctx, getCompanySQL+lock, companyID).Scan(&data.SharesPerPercent); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCompanyNotFound, companyID)
		}
		return nil, err
	}

	team, err := queryRows(ctx, q, listTeamMembersSQL+lock, companyID, func(row pgx.Rows) (domain.TeamRow, error) {
		var (
			m      domain.TeamRow
			equity pgtype.Numeric
		)
		err := row.Scan(&m.ID, &m.Name, &m.Role, &equity)
		m.EquityPercent = numericToDecimal(equity)
		return m, err
	})
	if err != nil {
		return nil, err
	}

	investors, err := queryRows(ctx, q, listInvestorsSQL+lock, companyID, func(row pgx.Rows) (domain.InvestorRow, error) {
		var (
			inv    domain.InvestorRow
			equity pgtype.Numeric
		)
		err := row.Scan(&inv.ID, &inv.Name, &equity)
		inv.EquityPercent = numericToDecimal(equity)
		return inv, err
	})
	if err != nil {
		return nil, err
	}

	data.Team = team
	data.Investors = investors

	return data, nil
}

// Insert stores a new stakeholder. Founders and team members go to
// team_members, investors to investors as part of a closed round.
func (r *StakeholderRepository) Insert(ctx context.Context, tx usecase.Transaction, companyID string, entry domain.Entry) error {
	pgxTx := tx.(*Tx).PgxTx()
	now := r.now()

	var err error
	switch entry.Kind {
	case domain.KindFounder, domain.KindTeam:
		_, err = pgxTx.Exec(ctx, insertTeamMemberSQL,
			entry.ID, companyID, entry.Name, roleForKind(entry.Kind), decimalToNumeric(entry.EquityPercent), now)
	case domain.KindInvestor:
		_, err = pgxTx.Exec(ctx, insertInvestorSQL,
			entry.ID, companyID, entry.Name, decimalToNumeric(entry.EquityPercent), now)
	default:
		return entry.Kind.Validate()
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateEntry, entry.ID)
	}

	return err
}

// SaveEquity writes back the percentage of every entry.
func (r *StakeholderRepository) SaveEquity(ctx context.Context, tx usecase.Transaction, companyID string, entries []domain.Entry) error {
	pgxTx := tx.(*Tx).PgxTx()
	now := r.now()

	for _, e := range entries {
		query, err := bySide(e.Kind, updateTeamEquitySQL, updateInvestorEquitySQL)
		if err != nil {
			return err
		}

		tag, err := pgxTx.Exec(ctx, query, companyID, e.ID, decimalToNumeric(e.EquityPercent.Round(2)), now)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", domain.ErrEntryNotFound, e.ID)
		}
	}

	return nil
}

// Delete removes a stakeholder row.
func (r *StakeholderRepository) Delete(ctx context.Context, tx usecase.Transaction, companyID string, entry domain.Entry) error {
	query, err := bySide(entry.Kind, deleteTeamMemberSQL, deleteInvestorSQL)
	if err != nil {
		return err
	}

	tag, err := tx.(*Tx).PgxTx().Exec(ctx, query, companyID, entry.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrEntryNotFound, entry.ID)
	}

	return nil
}

func queryRows[T any](ctx context.Context, q querier, sql, companyID string, scan func(pgx.Rows) (T, error)) ([]T, error) {
	rows, err := q.Query(ctx, sql, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	return out, rows.Err()
}

func bySide(kind domain.Kind, team, investor string) (string, error) {
	switch kind {
	case domain.KindFounder, domain.KindTeam:
		return team, nil
	case domain.KindInvestor:
		return investor, nil
	default:
		return "", kind.Validate()
	}
}

func roleForKind(kind domain.Kind) string {
	if kind == domain.KindFounder {
		return "Founder"
	}
	return "Team"
}
