// File: internal/storage/migrations.go
package storage

// Migration represents a database migration
type Migration struct {
	Version     string
	Description string
	SQL         string
}

// GetSQLiteMigrations returns SQLite migration scripts
func GetSQLiteMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create cursors table",
			SQL: `
				CREATE TABLE IF NOT EXISTS cursors (
					pipeline TEXT PRIMARY KEY,
					last_block INTEGER NOT NULL,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				);
			`,
		},
		{
			Version:     "002",
			Description: "Create token_candidates table",
			SQL: `
				CREATE TABLE IF NOT EXISTS token_candidates (
					address TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					symbol TEXT NOT NULL,
					decimals INTEGER NOT NULL,
					total_supply TEXT NOT NULL,
					deployer TEXT NOT NULL,
					deploy_block INTEGER NOT NULL,
					deploy_tx_hash TEXT NOT NULL,
					discovered_at DATETIME NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_candidates_deployer ON token_candidates(deployer);
				CREATE INDEX IF NOT EXISTS idx_candidates_deploy_block ON token_candidates(deploy_block);
				CREATE INDEX IF NOT EXISTS idx_candidates_discovered_at ON token_candidates(discovered_at);
			`,
		},
		{
			Version:     "003",
			Description: "Create token_scores table",
			SQL: `
				CREATE TABLE IF NOT EXISTS token_scores (
					address TEXT PRIMARY KEY,
					liquidity_score INTEGER NOT NULL,
					holder_score INTEGER NOT NULL,
					contract_score INTEGER NOT NULL,
					deployer_score INTEGER NOT NULL,
					confidence INTEGER NOT NULL,
					risk_tier TEXT NOT NULL,
					scored_at DATETIME DEFAULT CURRENT_TIMESTAMP
				);

				CREATE INDEX IF NOT EXISTS idx_scores_risk_tier ON token_scores(risk_tier);
				CREATE INDEX IF NOT EXISTS idx_scores_confidence ON token_scores(confidence);
			`,
		},
		{
			Version:     "004",
			Description: "Create trades table",
			SQL: `
				CREATE TABLE IF NOT EXISTS trades (
					tx_hash TEXT NOT NULL,
					wallet TEXT NOT NULL,
					token TEXT NOT NULL,
					kind TEXT NOT NULL,
					amount_token REAL NOT NULL DEFAULT 0,
					amount_base REAL NOT NULL DEFAULT 0,
					timestamp DATETIME NOT NULL,
					PRIMARY KEY (wallet, tx_hash)
				);

				CREATE INDEX IF NOT EXISTS idx_trades_wallet ON trades(wallet);
				CREATE INDEX IF NOT EXISTS idx_trades_token ON trades(token);
				CREATE INDEX IF NOT EXISTS idx_trades_timestamp ON trades(timestamp);
			`,
		},
		{
			Version:     "005",
			Description: "Create wallet_stats table",
			SQL: `
				CREATE TABLE IF NOT EXISTS wallet_stats (
					address TEXT PRIMARY KEY,
					label TEXT NOT NULL,
					total_trades INTEGER NOT NULL DEFAULT 0,
					wins INTEGER NOT NULL DEFAULT 0,
					losses INTEGER NOT NULL DEFAULT 0,
					win_rate REAL NOT NULL DEFAULT 0,
					total_invested REAL NOT NULL DEFAULT 0,
					total_returned REAL NOT NULL DEFAULT 0,
					realized_pnl REAL NOT NULL DEFAULT 0,
					avg_hold_hours REAL NOT NULL DEFAULT 0,
					tokens_deployed INTEGER NOT NULL DEFAULT 0,
					confidence_score INTEGER NOT NULL DEFAULT 0,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				);

				CREATE INDEX IF NOT EXISTS idx_wallet_stats_label ON wallet_stats(label);
			`,
		},
	}
}

// GetPostgreSQLMigrations returns PostgreSQL migration scripts
func GetPostgreSQLMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create cursors table",
			SQL: `
				CREATE TABLE IF NOT EXISTS cursors (
					pipeline TEXT PRIMARY KEY,
					last_block BIGINT NOT NULL,
					updated_at TIMESTAMPTZ DEFAULT NOW()
				);
			`,
		},
		{
			Version:     "002",
			Description: "Create token_candidates table",
			SQL: `
				CREATE TABLE IF NOT EXISTS token_candidates (
					address TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					symbol TEXT NOT NULL,
					decimals SMALLINT NOT NULL,
					total_supply TEXT NOT NULL,
					deployer TEXT NOT NULL,
					deploy_block BIGINT NOT NULL,
					deploy_tx_hash TEXT NOT NULL,
					discovered_at TIMESTAMPTZ NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_candidates_deployer ON token_candidates(deployer);
				CREATE INDEX IF NOT EXISTS idx_candidates_deploy_block ON token_candidates(deploy_block);
				CREATE INDEX IF NOT EXISTS idx_candidates_discovered_at ON token_candidates(discovered_at);
			`,
		},
		{
			Version:     "003",
			Description: "Create token_scores table",
			SQL: `
				CREATE TABLE IF NOT EXISTS token_scores (
					address TEXT PRIMARY KEY,
					liquidity_score INTEGER NOT NULL,
					holder_score INTEGER NOT NULL,
					contract_score INTEGER NOT NULL,
					deployer_score INTEGER NOT NULL,
					confidence INTEGER NOT NULL,
					risk_tier TEXT NOT NULL,
					scored_at TIMESTAMPTZ DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_scores_risk_tier ON token_scores(risk_tier);
				CREATE INDEX IF NOT EXISTS idx_scores_confidence ON token_scores(confidence);
			`,
		},
		{
			Version:     "004",
			Description: "Create trades table",
			SQL: `
				CREATE TABLE IF NOT EXISTS trades (
					tx_hash TEXT NOT NULL,
					wallet TEXT NOT NULL,
					token TEXT NOT NULL,
					kind TEXT NOT NULL,
					amount_token DOUBLE PRECISION NOT NULL DEFAULT 0,
					amount_base DOUBLE PRECISION NOT NULL DEFAULT 0,
					timestamp TIMESTAMPTZ NOT NULL,
					PRIMARY KEY (wallet, tx_hash)
				);

				CREATE INDEX IF NOT EXISTS idx_trades_wallet ON trades(wallet);
				CREATE INDEX IF NOT EXISTS idx_trades_token ON trades(token);
				CREATE INDEX IF NOT EXISTS idx_trades_timestamp ON trades(timestamp);
			`,
		},
		{
			Version:     "005",
			Description: "Create wallet_stats table",
			SQL: `
				CREATE TABLE IF NOT EXISTS wallet_stats (
					address TEXT PRIMARY KEY,
					label TEXT NOT NULL,
					total_trades INTEGER NOT NULL DEFAULT 0,
					wins INTEGER NOT NULL DEFAULT 0,
					losses INTEGER NOT NULL DEFAULT 0,
					win_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
					total_invested DOUBLE PRECISION NOT NULL DEFAULT 0,
					total_returned DOUBLE PRECISION NOT NULL DEFAULT 0,
					realized_pnl DOUBLE PRECISION NOT NULL DEFAULT 0,
					avg_hold_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
					tokens_deployed INTEGER NOT NULL DEFAULT 0,
					confidence_score INTEGER NOT NULL DEFAULT 0,
					updated_at TIMESTAMPTZ DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_wallet_stats_label ON wallet_stats(label);
			`,
		},
	}
}
