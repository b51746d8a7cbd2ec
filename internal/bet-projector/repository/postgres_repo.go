package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bingozwb/bet-center/pkg/contracts/events"
)

// Record é uma mensagem do tópico já decodificada, com sua posição no Kafka
type Record struct {
	Partition int
	Offset    int64
	Envelope  events.Envelope
	Event     events.Event
}

// PostgresRepo projeta os eventos dos mercados nas tabelas do read model
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{DB: db}
}

// Apply grava o evento no log e atualiza a projeção na mesma transação.
// Retorna false quando (partition, offset) já foi aplicado: reentrega do Kafka.
func (r *PostgresRepo) Apply(ctx context.Context, rec Record) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		INSERT INTO bet_event_log (kafka_partition, kafka_offset, type, market, ts_unix_ms, payload)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (kafka_partition, kafka_offset) DO NOTHING`,
		rec.Partition, rec.Offset, rec.Envelope.Type, rec.Envelope.Market, rec.Envelope.TsUnixMs, []byte(rec.Envelope.Payload),
	)
	if err != nil {
		return false, fmt.Errorf("insert event log: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	at := time.UnixMilli(rec.Envelope.TsUnixMs).UTC()
	if err := project(ctx, tx, rec.Event, at); err != nil {
		return false, fmt.Errorf("project %s: %w", rec.Envelope.Type, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

func project(ctx context.Context, tx *sql.Tx, ev events.Event, at time.Time) error {
	var err error
	switch e := ev.(type) {
	case *events.MarketCreated:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO bet_markets
			  (address, category, external_event_id, dealer, admin, minimum_stake, handicap,
			   left_odds, middle_odds, right_odds, format, start_time, duration, deposit, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6::numeric,$7,$8,$9,$10,$11,$12,$13,$14::numeric,$15)
			ON CONFLICT (address) DO NOTHING`,
			e.Market, e.Category, e.ExternalEventID, e.Dealer, e.Admin, e.MinimumStake, e.Handicap,
			int64(e.Odds[0]), int64(e.Odds[1]), int64(e.Odds[2]), e.Format, e.StartTime, e.Duration, e.Deposit, at,
		)
	case *events.WagerPlaced:
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO bet_wagers (market, participant, outcome, amount, placed_at)
			VALUES ($1,$2,$3,$4::numeric,$5)
			ON CONFLICT (market, participant) DO NOTHING`,
			e.Market, e.Participant, e.Outcome, e.Amount, at,
		); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE bet_markets SET total_staked = $2::numeric, updated_at = $3 WHERE address = $1`,
			e.Market, e.TotalStaked, at,
		)
	case *events.DepositRecharged:
		_, err = tx.ExecContext(ctx, `
			UPDATE bet_markets SET deposit = $2::numeric, updated_at = $3 WHERE address = $1`,
			e.Market, e.Deposit, at,
		)
	case *events.MarketClosed:
		_, err = tx.ExecContext(ctx, `
			UPDATE bet_markets
			   SET status = 'CLOSING', left_points = $2, right_points = $3, winning_outcome = $4, updated_at = $5
			 WHERE address = $1`,
			e.Market, e.LeftPoints, e.RightPoints, e.WinningOutcome, at,
		)
	case *events.Payout:
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO bet_payouts (market, participant, amount, status, reason, updated_at)
			VALUES ($1,$2,$3::numeric,'PAID',NULL,$4)
			ON CONFLICT (market, participant) DO UPDATE SET
			  amount = EXCLUDED.amount, status = 'PAID', reason = NULL, updated_at = EXCLUDED.updated_at`,
			e.Market, e.Participant, e.Amount, at,
		); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE bet_markets SET paid_out = paid_out + $2::numeric, updated_at = $3 WHERE address = $1`,
			e.Market, e.Amount, at,
		)
	case *events.PayoutFailed:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO bet_payouts (market, participant, amount, status, reason, updated_at)
			VALUES ($1,$2,$3::numeric,'FAILED',$4,$5)
			ON CONFLICT (market, participant) DO UPDATE SET
			  status = 'FAILED', reason = EXCLUDED.reason, updated_at = EXCLUDED.updated_at
			WHERE bet_payouts.status <> 'PAID'`,
			e.Market, e.Participant, e.Amount, e.Reason, at,
		)
	case *events.SettlementCompleted:
		_, err = tx.ExecContext(ctx, `
			UPDATE bet_markets SET status = 'CLOSED', updated_at = $2 WHERE address = $1`,
			e.Market, at,
		)
	default:
		return fmt.Errorf("unsupported event %T", ev)
	}
	return err
}
