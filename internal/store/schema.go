package store

// schemaVersion is bumped whenever a table below changes shape. Stores
// written with any other version are rejected rather than guessed at.
const schemaVersion = 1

var schema = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);
CREATE TABLE IF NOT EXISTS stage_runs (
	id TEXT PRIMARY KEY,
	run TEXT NOT NULL,
	stage TEXT NOT NULL,
	status TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT,
	ok INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	error TEXT
);
CREATE INDEX IF NOT EXISTS idx_stage_runs_run ON stage_runs(run, started_at);

-- One row per simulated district election.
CREATE TABLE IF NOT EXISTS summary_rows (
	run TEXT NOT NULL,
	plan INTEGER NOT NULL,
	district INTEGER NOT NULL,
	replicate INTEGER NOT NULL,
	district_num INTEGER NOT NULL,
	winners INTEGER NOT NULL,
	election_method TEXT NOT NULL,
	voter_model TEXT NOT NULL,
	sim_index INTEGER NOT NULL,
	focal_seats INTEGER NOT NULL,
	total_ivap REAL NOT NULL,
	total_vap REAL NOT NULL,
	settings_match TEXT NOT NULL,
	profile_file TEXT NOT NULL,
	settings_file TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_summary_rows_run ON summary_rows(run, district_num, winners, voter_model);

CREATE TABLE IF NOT EXISTS plan_summaries (
	run TEXT NOT NULL,
	plan INTEGER NOT NULL,
	district_num INTEGER NOT NULL,
	winners INTEGER NOT NULL,
	voter_model TEXT NOT NULL,
	replicate INTEGER NOT NULL,
	focal_seats INTEGER NOT NULL,
	total_seats INTEGER NOT NULL,
	PRIMARY KEY (run, district_num, winners, voter_model, plan, replicate)
);

CREATE TABLE IF NOT EXISTS distributions (
	run TEXT NOT NULL,
	district_num INTEGER NOT NULL,
	winners INTEGER NOT NULL,
	voter_model TEXT NOT NULL,
	total_seats INTEGER NOT NULL,
	count INTEGER NOT NULL,
	mean REAL,
	std_dev REAL,
	min REAL,
	median REAL,
	max REAL,
	PRIMARY KEY (run, district_num, winners, voter_model)
);

CREATE TABLE IF NOT EXISTS reference (
	run TEXT PRIMARY KEY,
	focal_group TEXT NOT NULL,
	iprop REAL NOT NULL,
	iprop_turnout REAL NOT NULL,
	combined_support REAL NOT NULL,
	total_ivap REAL NOT NULL,
	total_vap REAL NOT NULL,
	dropped_rows INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL
);
`
