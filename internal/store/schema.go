package store

// sqliteSchema creates the ledger tables for SQLite.
// Money columns hold integer minor units of the row's currency.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
    code TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    type TEXT NOT NULL CHECK (type IN ('ASSET', 'LIABILITY', 'EQUITY', 'REVENUE', 'EXPENSE'))
)`,
	`CREATE TABLE IF NOT EXISTS batches (
    id TEXT PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    source_type TEXT NOT NULL,
    source_id TEXT NOT NULL,
    currency TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('DRAFT', 'POSTED')),
    memo TEXT NOT NULL DEFAULT '',
    entity_ref TEXT NOT NULL DEFAULT '',
    reverses_batch_id TEXT UNIQUE REFERENCES batches(id),
    superseded_by TEXT REFERENCES batches(id),
    created_at TEXT NOT NULL
)`,
	// At most one live original batch per source event.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_batches_active_source
    ON batches(source_type, source_id)
    WHERE superseded_by IS NULL AND reverses_batch_id IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_batches_source_id ON batches(source_id)`,
	`CREATE TABLE IF NOT EXISTS entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    batch_id TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
    line INTEGER NOT NULL,
    account TEXT NOT NULL REFERENCES accounts(code),
    debit INTEGER NOT NULL DEFAULT 0,
    credit INTEGER NOT NULL DEFAULT 0,
    currency TEXT NOT NULL,
    ref TEXT NOT NULL DEFAULT '',
    CHECK ((debit > 0 AND credit = 0) OR (debit = 0 AND credit > 0)),
    UNIQUE (batch_id, line)
)`,
	`CREATE INDEX IF NOT EXISTS idx_entries_account ON entries(account)`,
	`CREATE TRIGGER IF NOT EXISTS trg_batches_balanced
BEFORE UPDATE OF status ON batches
WHEN NEW.status = 'POSTED'
BEGIN
    SELECT RAISE(ABORT, 'unbalanced batch')
    WHERE NOT EXISTS (SELECT 1 FROM entries WHERE batch_id = NEW.id)
       OR (SELECT SUM(debit) - SUM(credit) FROM entries WHERE batch_id = NEW.id) <> 0;
END`,
	`CREATE TRIGGER IF NOT EXISTS trg_entries_posted_immutable
BEFORE INSERT ON entries
WHEN (SELECT status FROM batches WHERE id = NEW.batch_id) = 'POSTED'
BEGIN
    SELECT RAISE(ABORT, 'batch already posted');
END`,
	`CREATE TABLE IF NOT EXISTS instruments (
    id TEXT PRIMARY KEY,
    check_number TEXT NOT NULL,
    bank TEXT NOT NULL DEFAULT '',
    issue_date TEXT NOT NULL,
    due_date TEXT NOT NULL,
    amount INTEGER NOT NULL CHECK (amount > 0),
    currency TEXT NOT NULL,
    direction TEXT NOT NULL CHECK (direction IN ('IN', 'OUT')),
    status TEXT NOT NULL CHECK (status IN ('PENDING', 'CASHED', 'RETURNED', 'BOUNCED', 'RESUBMITTED', 'CANCELLED', 'ARCHIVED')),
    counterparty_type TEXT NOT NULL DEFAULT '',
    counterparty_id TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_instruments_bank_number ON instruments(bank, check_number)`,
	`CREATE TABLE IF NOT EXISTS instrument_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    instrument_id TEXT NOT NULL REFERENCES instruments(id) ON DELETE CASCADE,
    from_status TEXT NOT NULL,
    to_status TEXT NOT NULL,
    actor TEXT NOT NULL DEFAULT '',
    notes TEXT NOT NULL DEFAULT '',
    at TEXT NOT NULL,
    batch_id TEXT NOT NULL DEFAULT ''
)`,
	`CREATE INDEX IF NOT EXISTS idx_instrument_history_instrument ON instrument_history(instrument_id)`,
	`CREATE TABLE IF NOT EXISTS fx_rates (
    from_currency TEXT NOT NULL,
    to_currency TEXT NOT NULL,
    effective_at TEXT NOT NULL,
    rate TEXT NOT NULL,
    PRIMARY KEY (from_currency, to_currency, effective_at)
)`,
	`CREATE TABLE IF NOT EXISTS shipments (
    id TEXT PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    currency TEXT NOT NULL,
    extras_total TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('OPEN', 'RECEIVED')),
    received_at TEXT NOT NULL DEFAULT ''
)`,
	`CREATE TABLE IF NOT EXISTS shipment_lines (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    shipment_id TEXT NOT NULL REFERENCES shipments(id) ON DELETE CASCADE,
    product_id TEXT NOT NULL,
    warehouse_id TEXT NOT NULL,
    quantity TEXT NOT NULL,
    unit_cost TEXT NOT NULL,
    extra_share TEXT NOT NULL DEFAULT '0',
    landed_unit_cost TEXT NOT NULL DEFAULT '0'
)`,
	`CREATE TABLE IF NOT EXISTS stock_levels (
    product_id TEXT NOT NULL,
    warehouse_id TEXT NOT NULL,
    quantity TEXT NOT NULL,
    PRIMARY KEY (product_id, warehouse_id)
)`,
}

// postgresSchema creates the same layout for PostgreSQL.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
    code TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    type TEXT NOT NULL CHECK (type IN ('ASSET', 'LIABILITY', 'EQUITY', 'REVENUE', 'EXPENSE'))
)`,
	`CREATE TABLE IF NOT EXISTS batches (
    id TEXT PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    source_type TEXT NOT NULL,
    source_id TEXT NOT NULL,
    currency TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('DRAFT', 'POSTED')),
    memo TEXT NOT NULL DEFAULT '',
    entity_ref TEXT NOT NULL DEFAULT '',
    reverses_batch_id TEXT UNIQUE REFERENCES batches(id),
    superseded_by TEXT REFERENCES batches(id),
    created_at TEXT NOT NULL
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_batches_active_source
    ON batches(source_type, source_id)
    WHERE superseded_by IS NULL AND reverses_batch_id IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_batches_source_id ON batches(source_id)`,
	`CREATE TABLE IF NOT EXISTS entries (
    id BIGSERIAL PRIMARY KEY,
    batch_id TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
    line INTEGER NOT NULL,
    account TEXT NOT NULL REFERENCES accounts(code),
    debit BIGINT NOT NULL DEFAULT 0,
    credit BIGINT NOT NULL DEFAULT 0,
    currency TEXT NOT NULL,
    ref TEXT NOT NULL DEFAULT '',
    CHECK ((debit > 0 AND credit = 0) OR (debit = 0 AND credit > 0)),
    UNIQUE (batch_id, line)
)`,
	`CREATE INDEX IF NOT EXISTS idx_entries_account ON entries(account)`,
	`CREATE OR REPLACE FUNCTION tally_batch_balanced() RETURNS trigger AS $$
BEGIN
    IF NEW.status = 'POSTED' AND (
        NOT EXISTS (SELECT 1 FROM entries WHERE batch_id = NEW.id)
        OR (SELECT SUM(debit) - SUM(credit) FROM entries WHERE batch_id = NEW.id) <> 0
    ) THEN
        RAISE EXCEPTION 'unbalanced batch %', NEW.code USING ERRCODE = 'check_violation';
    END IF;
    RETURN NEW;
END;
$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS trg_batches_balanced ON batches`,
	`CREATE TRIGGER trg_batches_balanced
    BEFORE UPDATE OF status ON batches
    FOR EACH ROW EXECUTE FUNCTION tally_batch_balanced()`,
	`CREATE OR REPLACE FUNCTION tally_entries_posted_immutable() RETURNS trigger AS $$
BEGIN
    IF (SELECT status FROM batches WHERE id = NEW.batch_id) = 'POSTED' THEN
        RAISE EXCEPTION 'batch already posted' USING ERRCODE = 'check_violation';
    END IF;
    RETURN NEW;
END;
$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS trg_entries_posted_immutable ON entries`,
	`CREATE TRIGGER trg_entries_posted_immutable
    BEFORE INSERT ON entries
    FOR EACH ROW EXECUTE FUNCTION tally_entries_posted_immutable()`,
	`CREATE TABLE IF NOT EXISTS instruments (
    id TEXT PRIMARY KEY,
    check_number TEXT NOT NULL,
    bank TEXT NOT NULL DEFAULT '',
    issue_date TEXT NOT NULL,
    due_date TEXT NOT NULL,
    amount BIGINT NOT NULL CHECK (amount > 0),
    currency TEXT NOT NULL,
    direction TEXT NOT NULL CHECK (direction IN ('IN', 'OUT')),
    status TEXT NOT NULL CHECK (status IN ('PENDING', 'CASHED', 'RETURNED', 'BOUNCED', 'RESUBMITTED', 'CANCELLED', 'ARCHIVED')),
    counterparty_type TEXT NOT NULL DEFAULT '',
    counterparty_id TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_instruments_bank_number ON instruments(bank, check_number)`,
	`CREATE TABLE IF NOT EXISTS instrument_history (
    id BIGSERIAL PRIMARY KEY,
    instrument_id TEXT NOT NULL REFERENCES instruments(id) ON DELETE CASCADE,
    from_status TEXT NOT NULL,
    to_status TEXT NOT NULL,
    actor TEXT NOT NULL DEFAULT '',
    notes TEXT NOT NULL DEFAULT '',
    at TEXT NOT NULL,
    batch_id TEXT NOT NULL DEFAULT ''
)`,
	`CREATE INDEX IF NOT EXISTS idx_instrument_history_instrument ON instrument_history(instrument_id)`,
	`CREATE TABLE IF NOT EXISTS fx_rates (
    from_currency TEXT NOT NULL,
    to_currency TEXT NOT NULL,
    effective_at TEXT NOT NULL,
    rate TEXT NOT NULL,
    PRIMARY KEY (from_currency, to_currency, effective_at)
)`,
	`CREATE TABLE IF NOT EXISTS shipments (
    id TEXT PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    currency TEXT NOT NULL,
    extras_total TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('OPEN', 'RECEIVED')),
    received_at TEXT NOT NULL DEFAULT ''
)`,
	`CREATE TABLE IF NOT EXISTS shipment_lines (
    id BIGSERIAL PRIMARY KEY,
    shipment_id TEXT NOT NULL REFERENCES shipments(id) ON DELETE CASCADE,
    product_id TEXT NOT NULL,
    warehouse_id TEXT NOT NULL,
    quantity TEXT NOT NULL,
    unit_cost TEXT NOT NULL,
    extra_share TEXT NOT NULL DEFAULT '0',
    landed_unit_cost TEXT NOT NULL DEFAULT '0'
)`,
	`CREATE TABLE IF NOT EXISTS stock_levels (
    product_id TEXT NOT NULL,
    warehouse_id TEXT NOT NULL,
    quantity TEXT NOT NULL,
    PRIMARY KEY (product_id, warehouse_id)
)`,
}
