package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/ajitpratap0/bgs-goals/internal/models"
)

// SQLiteStore implements Store on a single SQLite file.
type SQLiteStore struct {
	db     *sqlx.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if needed) the database at path. Writes are
// serialised through one connection, so each transaction is isolated from every other.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to %s: %w", path, err)
	}

	logger.Info("opened fact store", "path", path)
	return &SQLiteStore{db: db, path: path, logger: logger}, nil
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func unixNano(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// --- facts ---

func (s *SQLiteStore) ApplySystemFacts(ctx context.Context, facts models.SystemFacts) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		systemID, err := touchStarSystem(ctx, tx, facts.StarSystem, facts.Timestamp)
		if err != nil {
			return err
		}

		keep := make([]string, 0, len(facts.Factions))
		for _, ff := range facts.Factions {
			factionID, err := ensureMinorFaction(ctx, tx, ff.Name)
			if err != nil {
				return err
			}
			presenceID, err := upsertPresence(ctx, tx, systemID, factionID, ff.Influence, ff.SecurityLevel)
			if err != nil {
				return err
			}
			if err := replaceStates(ctx, tx, presenceID, ff.States); err != nil {
				return err
			}
			keep = append(keep, factionID)
		}

		if len(keep) > 0 {
			query, args, err := sqlx.In(`DELETE FROM presences WHERE star_system_id = ? AND minor_faction_id NOT IN (?)`, systemID, keep)
			if err != nil {
				return fmt.Errorf("building stale presence delete: %w", err)
			}
			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("deleting stale presences in %s: %w", facts.StarSystem, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				s.logger.Info("removed stale presences", "star_system", facts.StarSystem, "count", n)
			}
		}

		for _, c := range facts.Conflicts {
			if err := upsertConflict(ctx, tx, systemID, c, facts.Timestamp); err != nil {
				return err
			}
		}
		return nil
	})
}

func touchStarSystem(ctx context.Context, tx *sqlx.Tx, name string, at time.Time) (string, error) {
	_, err := tx.ExecContext(ctx, `INSERT INTO star_systems (id, name, last_updated) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET last_updated = excluded.last_updated`,
		uuid.NewString(), name, unixNano(at))
	if err != nil {
		return "", fmt.Errorf("upserting star system %s: %w", name, err)
	}
	return idByName(ctx, tx, "star_systems", name)
}

func ensureStarSystem(ctx context.Context, tx *sqlx.Tx, name string) (string, error) {
	_, err := tx.ExecContext(ctx, `INSERT INTO star_systems (id, name) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		uuid.NewString(), name)
	if err != nil {
		return "", fmt.Errorf("creating star system %s: %w", name, err)
	}
	return idByName(ctx, tx, "star_systems", name)
}

func ensureMinorFaction(ctx context.Context, tx *sqlx.Tx, name string) (string, error) {
	_, err := tx.ExecContext(ctx, `INSERT INTO minor_factions (id, name) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		uuid.NewString(), name)
	if err != nil {
		return "", fmt.Errorf("creating minor faction %s: %w", name, err)
	}
	return idByName(ctx, tx, "minor_factions", name)
}

// idByName looks up the id of a named row; table is always a package constant.
func idByName(ctx context.Context, q sqlx.QueryerContext, table, name string) (string, error) {
	var id string
	if err := sqlx.GetContext(ctx, q, &id, `SELECT id FROM `+table+` WHERE name = ?`, name); err != nil {
		return "", fmt.Errorf("looking up %s %s: %w", table, name, err)
	}
	return id, nil
}

func nullSecurity(level models.SecurityLevel) sql.NullString {
	return sql.NullString{String: string(level), Valid: level != models.SecurityUnknown}
}

func upsertPresence(ctx context.Context, tx *sqlx.Tx, systemID, factionID string, influence float64, level models.SecurityLevel) (string, error) {
	_, err := tx.ExecContext(ctx, `INSERT INTO presences (id, star_system_id, minor_faction_id, influence, security_level)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(star_system_id, minor_faction_id) DO UPDATE SET
			influence = excluded.influence,
			security_level = excluded.security_level`,
		uuid.NewString(), systemID, factionID, influence, nullSecurity(level))
	if err != nil {
		return "", fmt.Errorf("upserting presence: %w", err)
	}
	return presenceID(ctx, tx, systemID, factionID)
}

func ensurePresence(ctx context.Context, tx *sqlx.Tx, systemID, factionID string) (string, error) {
	_, err := tx.ExecContext(ctx, `INSERT INTO presences (id, star_system_id, minor_faction_id, influence)
		VALUES (?, ?, ?, 0) ON CONFLICT(star_system_id, minor_faction_id) DO NOTHING`,
		uuid.NewString(), systemID, factionID)
	if err != nil {
		return "", fmt.Errorf("creating presence: %w", err)
	}
	return presenceID(ctx, tx, systemID, factionID)
}

func presenceID(ctx context.Context, tx *sqlx.Tx, systemID, factionID string) (string, error) {
	var id string
	err := tx.GetContext(ctx, &id, `SELECT id FROM presences WHERE star_system_id = ? AND minor_faction_id = ?`, systemID, factionID)
	if err != nil {
		return "", fmt.Errorf("looking up presence: %w", err)
	}
	return id, nil
}

func replaceStates(ctx context.Context, tx *sqlx.Tx, presenceID string, states []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM presence_states WHERE presence_id = ?`, presenceID); err != nil {
		return fmt.Errorf("clearing presence states: %w", err)
	}
	for _, state := range states {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO presence_states (presence_id, state) VALUES (?, ?)`, presenceID, state); err != nil {
			return fmt.Errorf("inserting presence state %s: %w", state, err)
		}
	}
	return nil
}

func upsertConflict(ctx context.Context, tx *sqlx.Tx, systemID string, c models.Conflict, at time.Time) error {
	f1, err := ensureMinorFaction(ctx, tx, c.MinorFaction1)
	if err != nil {
		return err
	}
	f2, err := ensureMinorFaction(ctx, tx, c.MinorFaction2)
	if err != nil {
		return err
	}

	var existing struct {
		ID         string `db:"id"`
		Faction1ID string `db:"minor_faction1_id"`
	}
	err = tx.GetContext(ctx, &existing, `SELECT id, minor_faction1_id FROM conflicts
		WHERE star_system_id = ?
		AND ((minor_faction1_id = ? AND minor_faction2_id = ?) OR (minor_faction1_id = ? AND minor_faction2_id = ?))`,
		systemID, f1, f2, f2, f1)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `INSERT INTO conflicts (id, star_system_id,
			minor_faction1_id, minor_faction1_won_days, minor_faction1_stake,
			minor_faction2_id, minor_faction2_won_days, minor_faction2_stake,
			war_type, status, last_updated)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), systemID,
			f1, c.MinorFaction1WonDays, c.MinorFaction1Stake,
			f2, c.MinorFaction2WonDays, c.MinorFaction2Stake,
			string(c.WarType), string(c.Status), unixNano(at))
		if err != nil {
			return fmt.Errorf("inserting conflict %s vs %s: %w", c.MinorFaction1, c.MinorFaction2, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("looking up conflict %s vs %s: %w", c.MinorFaction1, c.MinorFaction2, err)
	}

	won1, stake1, won2, stake2 := c.MinorFaction1WonDays, c.MinorFaction1Stake, c.MinorFaction2WonDays, c.MinorFaction2Stake
	if existing.Faction1ID == f2 {
		won1, stake1, won2, stake2 = won2, stake2, won1, stake1
	}
	_, err = tx.ExecContext(ctx, `UPDATE conflicts SET
		minor_faction1_won_days = ?, minor_faction1_stake = ?,
		minor_faction2_won_days = ?, minor_faction2_stake = ?,
		war_type = ?, status = ?, last_updated = ?
		WHERE id = ?`,
		won1, stake1, won2, stake2, string(c.WarType), string(c.Status), unixNano(at), existing.ID)
	if err != nil {
		return fmt.Errorf("updating conflict %s vs %s: %w", c.MinorFaction1, c.MinorFaction2, err)
	}
	return nil
}

// --- reads ---

type presenceRow struct {
	ID            string         `db:"id"`
	StarSystem    string         `db:"star_system"`
	MinorFaction  string         `db:"minor_faction"`
	Influence     float64        `db:"influence"`
	SecurityLevel sql.NullString `db:"security_level"`
}

const presenceSelect = `SELECT p.id, s.name AS star_system, f.name AS minor_faction, p.influence, p.security_level
	FROM presences p
	JOIN star_systems s ON s.id = p.star_system_id
	JOIN minor_factions f ON f.id = p.minor_faction_id`

// selectPresences runs presenceSelect with the given filter; slice arguments expand
// into IN lists.
func selectPresences(ctx context.Context, q sqlx.QueryerContext, where string, args ...any) ([]models.Presence, error) {
	query, qargs, err := sqlx.In(presenceSelect+" WHERE "+where+" ORDER BY s.name, p.influence DESC, f.name", args...)
	if err != nil {
		return nil, fmt.Errorf("building presence query: %w", err)
	}
	var rows []presenceRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, qargs...); err != nil {
		return nil, fmt.Errorf("selecting presences: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	query, qargs, err = sqlx.In(`SELECT presence_id, state FROM presence_states WHERE presence_id IN (?) ORDER BY state`, ids)
	if err != nil {
		return nil, fmt.Errorf("building state query: %w", err)
	}
	var stateRows []struct {
		PresenceID string `db:"presence_id"`
		State      string `db:"state"`
	}
	if err := sqlx.SelectContext(ctx, q, &stateRows, query, qargs...); err != nil {
		return nil, fmt.Errorf("selecting presence states: %w", err)
	}
	states := make(map[string][]string, len(rows))
	for _, sr := range stateRows {
		states[sr.PresenceID] = append(states[sr.PresenceID], sr.State)
	}

	out := make([]models.Presence, len(rows))
	for i, r := range rows {
		out[i] = models.Presence{
			StarSystem:    r.StarSystem,
			MinorFaction:  r.MinorFaction,
			Influence:     r.Influence,
			SecurityLevel: models.SecurityLevel(r.SecurityLevel.String),
			States:        states[r.ID],
		}
	}
	return out, nil
}

type conflictRow struct {
	StarSystem    string `db:"star_system"`
	Faction1      string `db:"minor_faction1"`
	Faction1Won   int    `db:"minor_faction1_won_days"`
	Faction1Stake string `db:"minor_faction1_stake"`
	Faction2      string `db:"minor_faction2"`
	Faction2Won   int    `db:"minor_faction2_won_days"`
	Faction2Stake string `db:"minor_faction2_stake"`
	WarType       string `db:"war_type"`
	Status        string `db:"status"`
	LastUpdated   int64  `db:"last_updated"`
}

const conflictSelect = `SELECT s.name AS star_system,
		f1.name AS minor_faction1, c.minor_faction1_won_days, c.minor_faction1_stake,
		f2.name AS minor_faction2, c.minor_faction2_won_days, c.minor_faction2_stake,
		c.war_type, c.status, c.last_updated
	FROM conflicts c
	JOIN star_systems s ON s.id = c.star_system_id
	JOIN minor_factions f1 ON f1.id = c.minor_faction1_id
	JOIN minor_factions f2 ON f2.id = c.minor_faction2_id`

func selectConflicts(ctx context.Context, q sqlx.QueryerContext, where string, args ...any) ([]models.Conflict, error) {
	query, qargs, err := sqlx.In(conflictSelect+" WHERE "+where+" ORDER BY s.name, f1.name, f2.name", args...)
	if err != nil {
		return nil, fmt.Errorf("building conflict query: %w", err)
	}
	var rows []conflictRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, qargs...); err != nil {
		return nil, fmt.Errorf("selecting conflicts: %w", err)
	}
	var out []models.Conflict
	for _, r := range rows {
		out = append(out, models.Conflict{
			StarSystem:           r.StarSystem,
			MinorFaction1:        r.Faction1,
			MinorFaction1WonDays: r.Faction1Won,
			MinorFaction1Stake:   r.Faction1Stake,
			MinorFaction2:        r.Faction2,
			MinorFaction2WonDays: r.Faction2Won,
			MinorFaction2Stake:   r.Faction2Stake,
			WarType:              models.WarType(r.WarType),
			Status:               models.ConflictStatus(r.Status),
			LastUpdated:          fromUnixNano(r.LastUpdated),
		})
	}
	return out, nil
}

func (s *SQLiteStore) StarSystem(ctx context.Context, name string) (*models.StarSystem, error) {
	var row struct {
		Name        string        `db:"name"`
		LastUpdated sql.NullInt64 `db:"last_updated"`
	}
	err := s.db.GetContext(ctx, &row, `SELECT name, last_updated FROM star_systems WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: star system %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("getting star system %s: %w", name, err)
	}
	sys := &models.StarSystem{Name: row.Name}
	if row.LastUpdated.Valid {
		sys.LastUpdated = fromUnixNano(row.LastUpdated.Int64)
	}
	return sys, nil
}

func (s *SQLiteStore) HasMinorFaction(ctx context.Context, name string) (bool, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM minor_factions WHERE name = ?`, name); err != nil {
		return false, fmt.Errorf("checking minor faction %s: %w", name, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Presence(ctx context.Context, key models.PresenceKey) (*models.Presence, error) {
	ps, err := selectPresences(ctx, s.db, "s.name = ? AND f.name = ?", key.StarSystem, key.MinorFaction)
	if err != nil {
		return nil, err
	}
	if len(ps) == 0 {
		return nil, fmt.Errorf("%w: presence of %s in %s", ErrNotFound, key.MinorFaction, key.StarSystem)
	}
	return &ps[0], nil
}

func (s *SQLiteStore) PresencesInSystem(ctx context.Context, system string) ([]models.Presence, error) {
	return selectPresences(ctx, s.db, "s.name = ?", system)
}

func (s *SQLiteStore) ConflictsInSystem(ctx context.Context, system string) ([]models.Conflict, error) {
	return selectConflicts(ctx, s.db, "s.name = ?", system)
}

// --- guild configuration ---

func (s *SQLiteStore) SupportedMinorFactions(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.SelectContext(ctx, &names, `SELECT DISTINCT f.name FROM guilds g
		JOIN minor_factions f ON f.id = g.supported_minor_faction_id
		ORDER BY f.name`)
	if err != nil {
		return nil, fmt.Errorf("selecting supported minor factions: %w", err)
	}
	return names, nil
}

func (s *SQLiteStore) GoalStarSystems(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.SelectContext(ctx, &names, `SELECT DISTINCT s.name FROM guild_presence_goals gpg
		JOIN presences p ON p.id = gpg.presence_id
		JOIN star_systems s ON s.id = p.star_system_id
		ORDER BY s.name`)
	if err != nil {
		return nil, fmt.Errorf("selecting goal star systems: %w", err)
	}
	return names, nil
}

func (s *SQLiteStore) StarSystemGuilds(ctx context.Context) (map[string][]string, error) {
	var rows []struct {
		StarSystem string `db:"star_system"`
		GuildID    string `db:"guild_id"`
	}
	err := s.db.SelectContext(ctx, &rows, `SELECT s.name AS star_system, gpg.guild_id AS guild_id
		FROM guild_presence_goals gpg
		JOIN presences p ON p.id = gpg.presence_id
		JOIN star_systems s ON s.id = p.star_system_id
		UNION
		SELECT s.name AS star_system, g.guild_id AS guild_id
		FROM guilds g
		JOIN presences p ON p.minor_faction_id = g.supported_minor_faction_id
		JOIN star_systems s ON s.id = p.star_system_id
		ORDER BY 1, 2`)
	if err != nil {
		return nil, fmt.Errorf("selecting star system guilds: %w", err)
	}
	out := make(map[string][]string)
	for _, r := range rows {
		out[r.StarSystem] = append(out[r.StarSystem], r.GuildID)
	}
	return out, nil
}

func supportedMinorFaction(ctx context.Context, q sqlx.QueryerContext, guildID string) (string, error) {
	var name string
	err := sqlx.GetContext(ctx, q, &name, `SELECT f.name FROM guilds g
		JOIN minor_factions f ON f.id = g.supported_minor_faction_id
		WHERE g.guild_id = ?`, guildID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: supported minor faction for guild %s", ErrNotFound, guildID)
	}
	if err != nil {
		return "", fmt.Errorf("getting supported minor faction for guild %s: %w", guildID, err)
	}
	return name, nil
}

func (s *SQLiteStore) SupportedMinorFaction(ctx context.Context, guildID string) (string, error) {
	return supportedMinorFaction(ctx, s.db, guildID)
}

func (s *SQLiteStore) SetSupportedMinorFaction(ctx context.Context, guildID, faction string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		factionID, err := ensureMinorFaction(ctx, tx, faction)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO guilds (guild_id, supported_minor_faction_id) VALUES (?, ?)
			ON CONFLICT(guild_id) DO UPDATE SET supported_minor_faction_id = excluded.supported_minor_faction_id`,
			guildID, factionID)
		if err != nil {
			return fmt.Errorf("setting supported minor faction for guild %s: %w", guildID, err)
		}
		return nil
	})
}

func (s *SQLiteStore) AddGoals(ctx context.Context, goals []models.GoalAssignment) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, g := range goals {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO guilds (guild_id) VALUES (?)`, g.GuildID); err != nil {
				return fmt.Errorf("creating guild %s: %w", g.GuildID, err)
			}
			systemID, err := ensureStarSystem(ctx, tx, g.StarSystem)
			if err != nil {
				return err
			}
			factionID, err := ensureMinorFaction(ctx, tx, g.MinorFaction)
			if err != nil {
				return err
			}
			pid, err := ensurePresence(ctx, tx, systemID, factionID)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, `INSERT INTO guild_presence_goals (guild_id, presence_id, goal) VALUES (?, ?, ?)
				ON CONFLICT(guild_id, presence_id) DO UPDATE SET goal = excluded.goal`,
				g.GuildID, pid, g.Goal)
			if err != nil {
				return fmt.Errorf("setting goal for %s in %s: %w", g.MinorFaction, g.StarSystem, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) RemoveGoals(ctx context.Context, guildID string, keys []models.PresenceKey) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		seen := make(map[models.PresenceKey]struct{}, len(keys))
		for _, k := range keys {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			res, err := tx.ExecContext(ctx, `DELETE FROM guild_presence_goals
				WHERE guild_id = ? AND presence_id = (
					SELECT p.id FROM presences p
					JOIN star_systems s ON s.id = p.star_system_id
					JOIN minor_factions f ON f.id = p.minor_faction_id
					WHERE s.name = ? AND f.name = ?)`,
				guildID, k.StarSystem, k.MinorFaction)
			if err != nil {
				return fmt.Errorf("removing goal for %s in %s: %w", k.MinorFaction, k.StarSystem, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("%w: goal for %s in %s", ErrNotFound, k.MinorFaction, k.StarSystem)
			}
		}
		return nil
	})
}

type goalRow struct {
	GuildID      string `db:"guild_id"`
	StarSystem   string `db:"star_system"`
	MinorFaction string `db:"minor_faction"`
	Goal         string `db:"goal"`
}

const goalSelect = `SELECT gpg.guild_id, s.name AS star_system, f.name AS minor_faction, gpg.goal
	FROM guild_presence_goals gpg
	JOIN presences p ON p.id = gpg.presence_id
	JOIN star_systems s ON s.id = p.star_system_id
	JOIN minor_factions f ON f.id = p.minor_faction_id`

func selectGoals(ctx context.Context, q sqlx.QueryerContext, where string, args ...any) ([]models.GoalAssignment, error) {
	var rows []goalRow
	if err := sqlx.SelectContext(ctx, q, &rows, goalSelect+" WHERE "+where+" ORDER BY s.name, f.name", args...); err != nil {
		return nil, fmt.Errorf("selecting goals: %w", err)
	}
	var out []models.GoalAssignment
	for _, r := range rows {
		out = append(out, models.GoalAssignment(r))
	}
	return out, nil
}

func (s *SQLiteStore) Goals(ctx context.Context, guildID string) ([]models.GoalAssignment, error) {
	return selectGoals(ctx, s.db, "gpg.guild_id = ?", guildID)
}

func (s *SQLiteStore) GuildSnapshot(ctx context.Context, guildID string) (*models.GuildSnapshot, error) {
	snap := &models.GuildSnapshot{
		GuildID:         guildID,
		SystemPresences: make(map[string][]models.Presence),
		SystemConflicts: make(map[string][]models.Conflict),
	}
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		faction, err := supportedMinorFaction(ctx, tx, guildID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		snap.MinorFaction = faction

		if snap.Presences, err = selectPresences(ctx, tx, "f.name = ?", faction); err != nil {
			return err
		}
		if snap.Goals, err = selectGoals(ctx, tx, "gpg.guild_id = ? AND f.name = ?", guildID, faction); err != nil {
			return err
		}
		if len(snap.Presences) == 0 {
			return nil
		}

		systems := make([]string, 0, len(snap.Presences))
		for _, p := range snap.Presences {
			systems = append(systems, p.StarSystem)
		}
		all, err := selectPresences(ctx, tx, "s.name IN (?)", systems)
		if err != nil {
			return err
		}
		for _, p := range all {
			snap.SystemPresences[p.StarSystem] = append(snap.SystemPresences[p.StarSystem], p)
		}
		conflicts, err := selectConflicts(ctx, tx, "s.name IN (?)", systems)
		if err != nil {
			return err
		}
		for _, c := range conflicts {
			snap.SystemConflicts[c.StarSystem] = append(snap.SystemConflicts[c.StarSystem], c)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading snapshot for guild %s: %w", guildID, err)
	}
	return snap, nil
}

// --- carriers ---

func (s *SQLiteStore) RecordCarrierSighting(ctx context.Context, sighting models.CarrierSighting) (bool, string, error) {
	var moved bool
	var previous string
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var prev struct {
			StarSystem string `db:"star_system"`
			ObservedAt int64  `db:"observed_at"`
		}
		err := tx.GetContext(ctx, &prev, `SELECT star_system, observed_at FROM carriers WHERE carrier_id = ?`, sighting.CarrierID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("looking up carrier %s: %w", sighting.CarrierID, err)
		default:
			previous = prev.StarSystem
			if unixNano(sighting.ObservedAt) < prev.ObservedAt {
				return nil
			}
			moved = prev.StarSystem != sighting.StarSystem
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO carriers (carrier_id, name, star_system, observed_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(carrier_id) DO UPDATE SET
				name = excluded.name,
				star_system = excluded.star_system,
				observed_at = excluded.observed_at`,
			sighting.CarrierID, sighting.Name, sighting.StarSystem, unixNano(sighting.ObservedAt))
		if err != nil {
			return fmt.Errorf("recording carrier %s: %w", sighting.CarrierID, err)
		}
		return nil
	})
	if err != nil {
		return false, "", err
	}
	return moved, previous, nil
}

func (s *SQLiteStore) CarrierSightingsBefore(ctx context.Context, t time.Time) ([]models.CarrierSighting, error) {
	var rows []struct {
		CarrierID  string `db:"carrier_id"`
		Name       string `db:"name"`
		StarSystem string `db:"star_system"`
		ObservedAt int64  `db:"observed_at"`
	}
	err := s.db.SelectContext(ctx, &rows, `SELECT carrier_id, name, star_system, observed_at FROM carriers
		WHERE observed_at < ? ORDER BY observed_at`, unixNano(t))
	if err != nil {
		return nil, fmt.Errorf("selecting carriers: %w", err)
	}
	out := make([]models.CarrierSighting, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.CarrierSighting{
			CarrierID:  r.CarrierID,
			Name:       r.Name,
			StarSystem: r.StarSystem,
			ObservedAt: fromUnixNano(r.ObservedAt),
		})
	}
	return out, nil
}

func (s *SQLiteStore) DeleteCarrierSighting(ctx context.Context, carrierID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM carriers WHERE carrier_id = ?`, carrierID)
	if err != nil {
		return fmt.Errorf("deleting carrier %s: %w", carrierID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: carrier %s", ErrNotFound, carrierID)
	}
	return nil
}

// --- stats ---

func (s *SQLiteStore) Stats(ctx context.Context) (*models.StoreStats, error) {
	stats := &models.StoreStats{}
	counts := []struct {
		table string
		dst   *int64
	}{
		{"star_systems", &stats.StarSystems},
		{"minor_factions", &stats.MinorFactions},
		{"presences", &stats.Presences},
		{"conflicts", &stats.Conflicts},
		{"guild_presence_goals", &stats.Goals},
		{"guilds", &stats.Guilds},
		{"carriers", &stats.Carriers},
	}
	for _, c := range counts {
		if err := s.db.GetContext(ctx, c.dst, `SELECT COUNT(*) FROM `+c.table); err != nil {
			return nil, fmt.Errorf("counting %s: %w", c.table, err)
		}
	}
	return stats, nil
}
