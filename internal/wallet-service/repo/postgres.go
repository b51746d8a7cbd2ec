package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// Postgres implementa a carteira por endereço; saldos em wei (NUMERIC)
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
)

// normalize: o mesmo endereço com caixas diferentes é a mesma carteira
func normalize(address string) string { return strings.ToLower(address) }

func parseNumeric(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid numeric %q", s)
	}
	return v, nil
}

// ensureWallet cria a carteira se ainda não existir e devolve o id travado (FOR UPDATE)
func ensureWallet(ctx context.Context, tx *sql.Tx, address string) (string, error) {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO wallets(id, address, balance, version) VALUES($1,$2,0,1) ON CONFLICT (address) DO NOTHING`,
		uuid.New().String(), address); err != nil {
		return "", err
	}
	var id string
	if err := tx.QueryRowContext(ctx, `SELECT id FROM wallets WHERE address=$1 FOR UPDATE`, address).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func balanceOf(ctx context.Context, tx *sql.Tx, walletID string) (*big.Int, error) {
	var s string
	if err := tx.QueryRowContext(ctx, `SELECT balance::text FROM wallets WHERE id=$1`, walletID).Scan(&s); err != nil {
		return nil, err
	}
	return parseNumeric(s)
}

// GetOrCreateWallet retorna o walletId e o saldo do endereço
func (p *Postgres) GetOrCreateWallet(ctx context.Context, address string) (walletID string, balance *big.Int, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", nil, err
	}
	defer tx.Rollback()

	if walletID, err = ensureWallet(ctx, tx, normalize(address)); err != nil {
		return "", nil, err
	}
	if balance, err = balanceOf(ctx, tx, walletID); err != nil {
		return "", nil, err
	}
	if err = tx.Commit(); err != nil {
		return "", nil, err
	}
	return walletID, balance, nil
}

// Deposit credita o endereço (depósito externo ou pagamento de aposta).
// Com externalRef o crédito é idempotente: a mesma ref não credita duas vezes.
func (p *Postgres) Deposit(ctx context.Context, address string, amount *big.Int, externalRef string) (walletID string, newBalance *big.Int, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", nil, err
	}
	defer tx.Rollback()

	if walletID, err = ensureWallet(ctx, tx, normalize(address)); err != nil {
		return "", nil, err
	}

	credit := true
	if externalRef != "" {
		var n int
		if err = tx.QueryRowContext(ctx,
			`SELECT count(*) FROM wallet_ledger WHERE wallet_id=$1 AND operation_type='CREDIT' AND description=$2`,
			walletID, "deposit:"+externalRef).Scan(&n); err != nil {
			return "", nil, err
		}
		credit = n == 0
	}

	if credit {
		if _, err = tx.ExecContext(ctx,
			`UPDATE wallets SET balance = balance + $1::numeric, version = version + 1 WHERE id=$2`,
			amount.String(), walletID); err != nil {
			return "", nil, err
		}
		desc := "deposit:" + externalRef
		if externalRef == "" {
			desc = "deposit:" + uuid.New().String()
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO wallet_ledger(wallet_id, operation_type, amount, description) VALUES($1,'CREDIT',$2::numeric,$3)`,
			walletID, amount.String(), desc); err != nil {
			return "", nil, err
		}
	}

	if newBalance, err = balanceOf(ctx, tx, walletID); err != nil {
		return "", nil, err
	}
	if err = tx.Commit(); err != nil {
		return "", nil, err
	}
	return walletID, newBalance, nil
}

// Reserve cria uma reserva PENDING e debita o saldo (bloqueio).
// Idempotente por (wallet_id, external_ref).
func (p *Postgres) Reserve(ctx context.Context, address string, amount *big.Int, externalRef string) (reservationID string, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var walletID string
	if err = tx.QueryRowContext(ctx, `SELECT id FROM wallets WHERE address=$1 FOR UPDATE`, normalize(address)).Scan(&walletID); err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNotFound
		}
		return "", err
	}

	var exists string
	err = tx.QueryRowContext(ctx, `SELECT id FROM wallet_reservations WHERE wallet_id=$1 AND external_ref=$2`, walletID, externalRef).Scan(&exists)
	if err == nil {
		return exists, nil
	} else if err != sql.ErrNoRows {
		return "", err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance = balance - $1::numeric, version = version + 1 WHERE id=$2 AND balance >= $1::numeric`,
		amount.String(), walletID)
	if err != nil {
		return "", err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", ErrInsufficientFunds
	}

	reservationID = uuid.New().String()
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_reservations(id, wallet_id, external_ref, amount, status) VALUES($1,$2,$3,$4::numeric,'PENDING')`,
		reservationID, walletID, externalRef, amount.String()); err != nil {
		return "", err
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_ledger(wallet_id, operation_type, amount, description) VALUES($1,'RESERVE',$2::numeric,$3)`,
		walletID, amount.String(), "reserve:"+externalRef); err != nil {
		return "", err
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}
	return reservationID, nil
}

type reservation struct {
	id       string
	walletID string
	amount   string
	status   string
}

func lockReservation(ctx context.Context, tx *sql.Tx, address, externalRef string) (reservation, error) {
	var r reservation
	err := tx.QueryRowContext(ctx, `
		SELECT wr.id, wr.wallet_id, wr.amount::text, wr.status
		FROM wallet_reservations wr
		JOIN wallets w ON w.id = wr.wallet_id
		WHERE w.address=$1 AND wr.external_ref=$2
		FOR UPDATE OF wr`, normalize(address), externalRef).Scan(&r.id, &r.walletID, &r.amount, &r.status)
	if err == sql.ErrNoRows {
		return r, ErrNotFound
	}
	return r, err
}

// Commit efetiva uma reserva PENDING. Idempotente.
func (p *Postgres) Commit(ctx context.Context, address, externalRef string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	r, err := lockReservation(ctx, tx, address, externalRef)
	if err != nil {
		return err
	}
	if r.status != "PENDING" {
		return nil
	}

	if _, err = tx.ExecContext(ctx, `UPDATE wallet_reservations SET status='COMMITTED' WHERE id=$1`, r.id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_ledger(wallet_id, operation_type, amount, description) VALUES($1,'DEBIT',$2::numeric,$3)`,
		r.walletID, r.amount, "commit:"+externalRef); err != nil {
		return err
	}
	return tx.Commit()
}

// Refund desfaz uma reserva PENDING devolvendo o saldo. Idempotente.
func (p *Postgres) Refund(ctx context.Context, address, externalRef string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	r, err := lockReservation(ctx, tx, address, externalRef)
	if err != nil {
		return err
	}
	if r.status != "PENDING" {
		return nil
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE wallets SET balance = balance + $1::numeric, version = version + 1 WHERE id=$2`,
		r.amount, r.walletID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `UPDATE wallet_reservations SET status='REFUNDED' WHERE id=$1`, r.id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_ledger(wallet_id, operation_type, amount, description) VALUES($1,'REFUND',$2::numeric,$3)`,
		r.walletID, r.amount, "refund:"+externalRef); err != nil {
		return err
	}
	return tx.Commit()
}
