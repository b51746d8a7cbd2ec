package repository

// Schema são os DDLs idempotentes do read model, aplicados com db.Migrate
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS bet_event_log (
		kafka_partition INT         NOT NULL,
		kafka_offset    BIGINT      NOT NULL,
		type            TEXT        NOT NULL,
		market          TEXT        NOT NULL,
		ts_unix_ms      BIGINT      NOT NULL,
		payload         JSONB       NOT NULL,
		received_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (kafka_partition, kafka_offset)
	)`,
	`CREATE INDEX IF NOT EXISTS bet_event_log_market_idx ON bet_event_log (market, ts_unix_ms)`,
	`CREATE TABLE IF NOT EXISTS bet_markets (
		address           TEXT PRIMARY KEY,
		category          TEXT    NOT NULL,
		external_event_id TEXT    NOT NULL,
		dealer            TEXT    NOT NULL,
		admin             TEXT    NOT NULL,
		minimum_stake     NUMERIC NOT NULL,
		handicap          INT     NOT NULL,
		left_odds         BIGINT  NOT NULL,
		middle_odds       BIGINT  NOT NULL,
		right_odds        BIGINT  NOT NULL,
		format            SMALLINT NOT NULL,
		start_time        BIGINT  NOT NULL,
		duration          BIGINT  NOT NULL,
		deposit           NUMERIC NOT NULL,
		total_staked      NUMERIC NOT NULL DEFAULT 0,
		paid_out          NUMERIC NOT NULL DEFAULT 0,
		status            TEXT    NOT NULL DEFAULT 'OPEN',
		left_points       BIGINT,
		right_points      BIGINT,
		winning_outcome   SMALLINT,
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS bet_markets_category_idx ON bet_markets (category)`,
	`CREATE TABLE IF NOT EXISTS bet_wagers (
		market      TEXT     NOT NULL,
		participant TEXT     NOT NULL,
		outcome     SMALLINT NOT NULL,
		amount      NUMERIC  NOT NULL,
		placed_at   TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (market, participant)
	)`,
	`CREATE TABLE IF NOT EXISTS bet_payouts (
		market      TEXT    NOT NULL,
		participant TEXT    NOT NULL,
		amount      NUMERIC NOT NULL,
		status      TEXT    NOT NULL, -- PAID | FAILED
		reason      TEXT,
		updated_at  TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (market, participant)
	)`,
}
