package repo

// pgSchema — схема журнала PostgreSQL. Идемпотентна.
const pgSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id          UUID PRIMARY KEY,
	params      JSONB NOT NULL,
	status      TEXT NOT NULL,
	phase       TEXT,
	driver      TEXT NOT NULL,
	profile     TEXT NOT NULL,
	pauses      INTEGER NOT NULL DEFAULT 0,
	started_at  TIMESTAMPTZ,
	finished_at TIMESTAMPTZ,
	error       TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS runs_status_idx ON runs (status);
CREATE INDEX IF NOT EXISTS runs_created_at_idx ON runs (created_at DESC);

CREATE TABLE IF NOT EXISTS run_phases (
	run_id      UUID NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
	phase       TEXT NOT NULL,
	ordinal     INTEGER NOT NULL,
	status      TEXT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	error       TEXT,
	PRIMARY KEY (run_id, phase)
);
`

// sqliteSchema — схема журнала SQLite. Идемпотентна.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	params      TEXT NOT NULL,
	status      TEXT NOT NULL,
	phase       TEXT,
	driver      TEXT NOT NULL,
	profile     TEXT NOT NULL,
	pauses      INTEGER NOT NULL DEFAULT 0,
	started_at  TIMESTAMP,
	finished_at TIMESTAMP,
	error       TEXT,
	created_at  TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS runs_status_idx ON runs (status);
CREATE INDEX IF NOT EXISTS runs_created_at_idx ON runs (created_at DESC);

CREATE TABLE IF NOT EXISTS run_phases (
	run_id      TEXT NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
	phase       TEXT NOT NULL,
	ordinal     INTEGER NOT NULL,
	status      TEXT NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP,
	error       TEXT,
	PRIMARY KEY (run_id, phase)
);
`
