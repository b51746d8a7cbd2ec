package repo

// Schema cria as tabelas da wallet. NUMERIC(78,0) comporta qualquer uint256.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS wallets (
		id         UUID PRIMARY KEY,
		address    TEXT UNIQUE NOT NULL,
		balance    NUMERIC(78,0) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		version    BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS wallet_reservations (
		id           UUID PRIMARY KEY,
		wallet_id    UUID NOT NULL REFERENCES wallets(id),
		external_ref TEXT NOT NULL,
		amount       NUMERIC(78,0) NOT NULL,
		status       TEXT NOT NULL, -- PENDING | COMMITTED | REFUNDED
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (wallet_id, external_ref)
	)`,
	`CREATE TABLE IF NOT EXISTS wallet_ledger (
		id             BIGSERIAL PRIMARY KEY,
		wallet_id      UUID NOT NULL REFERENCES wallets(id),
		operation_type TEXT NOT NULL, -- CREDIT | RESERVE | DEBIT | REFUND
		amount         NUMERIC(78,0) NOT NULL,
		description    TEXT NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS wallet_ledger_credit_ref_idx
		ON wallet_ledger (wallet_id, description) WHERE operation_type = 'CREDIT'`,
}
