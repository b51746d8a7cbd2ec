package repository

import (
	"context"
	"database/sql"
	"errors"
)

var ErrNotFound = errors.New("not found")

// MarketView é uma linha de bet_markets como exposta pela API de histórico
type MarketView struct {
	Address         string `json:"address"`
	Category        string `json:"category"`
	ExternalEventID string `json:"externalEventId"`
	Dealer          string `json:"dealer"`
	Status          string `json:"status"`
	Deposit         string `json:"deposit"`
	TotalStaked     string `json:"totalStaked"`
	PaidOut         string `json:"paidOut"`
	WinningOutcome  *int   `json:"winningOutcome,omitempty"`
	UpdatedAt       string `json:"updatedAt"`
}

type WagerView struct {
	Participant string `json:"participant"`
	Outcome     int    `json:"outcome"`
	Amount      string `json:"amount"`
	PlacedAt    string `json:"placedAt"`
}

type PayoutView struct {
	Participant string  `json:"participant"`
	Amount      string  `json:"amount"`
	Status      string  `json:"status"`
	Reason      *string `json:"reason,omitempty"`
	UpdatedAt   string  `json:"updatedAt"`
}

// ReadRepo consulta o read model mantido pelo Processor
type ReadRepo struct {
	DB *sql.DB
}

func NewReadRepo(db *sql.DB) *ReadRepo { return &ReadRepo{DB: db} }

const marketCols = `
	address, category, external_event_id, dealer, status,
	deposit::text, total_staked::text, paid_out::text, winning_outcome,
	to_char(updated_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"')`

func scanMarket(s interface{ Scan(...any) error }) (MarketView, error) {
	var (
		m   MarketView
		win sql.NullInt32
	)
	err := s.Scan(&m.Address, &m.Category, &m.ExternalEventID, &m.Dealer, &m.Status,
		&m.Deposit, &m.TotalStaked, &m.PaidOut, &win, &m.UpdatedAt)
	if win.Valid {
		w := int(win.Int32)
		m.WinningOutcome = &w
	}
	return m, err
}

// ListMarkets devolve os mercados da categoria (todos se vazia), mais recentes primeiro
func (r *ReadRepo) ListMarkets(ctx context.Context, category string) ([]MarketView, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+marketCols+`
		FROM bet_markets
		WHERE $1::text = '' OR category = $1
		ORDER BY updated_at DESC`, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []MarketView{}
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *ReadRepo) GetMarket(ctx context.Context, address string) (MarketView, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+marketCols+` FROM bet_markets WHERE address = $1`, address)
	m, err := scanMarket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return MarketView{}, ErrNotFound
	}
	return m, err
}

func (r *ReadRepo) ListWagers(ctx context.Context, market string) ([]WagerView, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT participant, outcome, amount::text,
		       to_char(placed_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"')
		FROM bet_wagers
		WHERE market = $1
		ORDER BY placed_at, participant`, market)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WagerView{}
	for rows.Next() {
		var w WagerView
		if err := rows.Scan(&w.Participant, &w.Outcome, &w.Amount, &w.PlacedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *ReadRepo) ListPayouts(ctx context.Context, market string) ([]PayoutView, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT participant, amount::text, status, reason,
		       to_char(updated_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"')
		FROM bet_payouts
		WHERE market = $1
		ORDER BY updated_at, participant`, market)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []PayoutView{}
	for rows.Next() {
		var (
			p      PayoutView
			reason sql.NullString
		)
		if err := rows.Scan(&p.Participant, &p.Amount, &p.Status, &reason, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if reason.Valid {
			p.Reason = &reason.String
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
