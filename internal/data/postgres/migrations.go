package postgres

import (
	"gitlab.com/distributed_lab/kit/pgdb"
	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

type MigrateDirection string

const (
	MigrateUp   MigrateDirection = "up"
	MigrateDown MigrateDirection = "down"
)

const migrateUpSQL = `
CREATE TABLE IF NOT EXISTS orders (
    order_hash  VARCHAR(66) PRIMARY KEY,
    direction   SMALLINT    NOT NULL,
    maker       VARCHAR(42) NOT NULL,
    src_asset   VARCHAR(42) NOT NULL,
    dst_asset   VARCHAR(42) NOT NULL,
    src_amount  NUMERIC(78) NOT NULL,
    dst_amount  NUMERIC(78) NOT NULL,
    deadline    TIMESTAMP   NOT NULL,
    nonce       BIGINT      NOT NULL,
    hash_lock   VARCHAR(66) NOT NULL,
    secret      VARCHAR(66),
    status      SMALLINT    NOT NULL,
    created_at  TIMESTAMP   NOT NULL,
    executed_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS orders_status_deadline_idx ON orders (status, deadline);

CREATE TABLE IF NOT EXISTS escrows (
    order_hash            VARCHAR(66) NOT NULL REFERENCES orders (order_hash),
    side                  SMALLINT    NOT NULL,
    chain                 VARCHAR(32) NOT NULL,
    contract              VARCHAR(42) NOT NULL,
    locked_amount         NUMERIC(78) NOT NULL,
    safety_deposit        NUMERIC(78) NOT NULL,
    deployed_at_block     BIGINT      NOT NULL,
    withdrawal_start      TIMESTAMP   NOT NULL,
    cancellation_deadline TIMESTAMP   NOT NULL,
    PRIMARY KEY (order_hash, side)
);

CREATE TABLE IF NOT EXISTS jobs (
    id         VARCHAR(36) PRIMARY KEY,
    order_hash VARCHAR(66) NOT NULL REFERENCES orders (order_hash),
    resolver   VARCHAR(42) NOT NULL,
    stake      NUMERIC(78) NOT NULL,
    status     SMALLINT    NOT NULL,
    created_at TIMESTAMP   NOT NULL
);

CREATE TABLE IF NOT EXISTS last_blocks (
    chain  VARCHAR(32) PRIMARY KEY,
    height BIGINT NOT NULL
);`

const migrateDownSQL = `
DROP TABLE IF EXISTS last_blocks;
DROP TABLE IF EXISTS jobs;
DROP TABLE IF EXISTS escrows;
DROP TABLE IF EXISTS orders;`

func Migrate(db *pgdb.DB, direction MigrateDirection) error {
	query := migrateUpSQL
	if direction == MigrateDown {
		query = migrateDownSQL
	}
	err := db.ExecRaw(query)
	return errors.Wrap(err, "failed to apply migrations", logan.F{"direction": direction})
}
