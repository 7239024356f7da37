package store

// Timestamps are stored as INTEGER unix nanoseconds, UTC.
const schema = `
CREATE TABLE IF NOT EXISTS star_systems (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL UNIQUE,
	last_updated INTEGER
);

CREATE TABLE IF NOT EXISTS minor_factions (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS presences (
	id               TEXT PRIMARY KEY,
	star_system_id   TEXT NOT NULL REFERENCES star_systems(id),
	minor_faction_id TEXT NOT NULL REFERENCES minor_factions(id),
	influence        REAL NOT NULL,
	security_level   TEXT,
	UNIQUE (star_system_id, minor_faction_id)
);

CREATE TABLE IF NOT EXISTS presence_states (
	presence_id TEXT NOT NULL REFERENCES presences(id) ON DELETE CASCADE,
	state       TEXT NOT NULL,
	PRIMARY KEY (presence_id, state)
);

CREATE TABLE IF NOT EXISTS conflicts (
	id                      TEXT PRIMARY KEY,
	star_system_id          TEXT NOT NULL REFERENCES star_systems(id),
	minor_faction1_id       TEXT NOT NULL REFERENCES minor_factions(id),
	minor_faction1_won_days INTEGER NOT NULL,
	minor_faction1_stake    TEXT NOT NULL DEFAULT '',
	minor_faction2_id       TEXT NOT NULL REFERENCES minor_factions(id),
	minor_faction2_won_days INTEGER NOT NULL,
	minor_faction2_stake    TEXT NOT NULL DEFAULT '',
	war_type                TEXT NOT NULL,
	status                  TEXT NOT NULL,
	last_updated            INTEGER NOT NULL,
	UNIQUE (star_system_id, minor_faction1_id, minor_faction2_id)
);

CREATE TABLE IF NOT EXISTS guilds (
	guild_id                   TEXT PRIMARY KEY,
	supported_minor_faction_id TEXT REFERENCES minor_factions(id)
);

CREATE TABLE IF NOT EXISTS guild_presence_goals (
	guild_id    TEXT NOT NULL REFERENCES guilds(guild_id) ON DELETE CASCADE,
	presence_id TEXT NOT NULL REFERENCES presences(id) ON DELETE CASCADE,
	goal        TEXT NOT NULL,
	PRIMARY KEY (guild_id, presence_id)
);

CREATE TABLE IF NOT EXISTS carriers (
	carrier_id  TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	star_system TEXT NOT NULL,
	observed_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_presences_faction ON presences(minor_faction_id);
CREATE INDEX IF NOT EXISTS idx_conflicts_system ON conflicts(star_system_id);
CREATE INDEX IF NOT EXISTS idx_carriers_observed ON carriers(observed_at);
`
