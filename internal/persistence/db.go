// Package persistence provides SQLite-based session storage. The map itself
// is never stored; it is regenerated from the generation config kept in
// session_meta.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/hexfront/internal/game"
	"github.com/talgya/hexfront/internal/hex"
	"github.com/talgya/hexfront/internal/world"
)

// Meta keys.
const (
	MetaSessionID  = "session_id"
	MetaGenConfig  = "gen_config" // world.GenConfig as JSON, seed resolved
	MetaTurn       = "turn"
	MetaEdenStress = "eden_stress"
	MetaCapital    = "capital"
	MetaNextUnitID = "next_unit_id"
	MetaNextCityID = "next_city_id"
)

// DB wraps a SQLite connection for session persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer at a time; turn saves and admin snapshots can overlap.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS units (
		id INTEGER PRIMARY KEY,
		kind TEXT NOT NULL,
		pos_col INTEGER NOT NULL,
		pos_row INTEGER NOT NULL,
		remaining_movement INTEGER NOT NULL,
		building_capital INTEGER NOT NULL,
		build_turns_remaining INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cities (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		pos_col INTEGER NOT NULL,
		pos_row INTEGER NOT NULL,
		population INTEGER NOT NULL,
		base_production INTEGER NOT NULL,
		base_science INTEGER NOT NULL,
		territory_radius INTEGER NOT NULL,
		production INTEGER NOT NULL,
		science INTEGER NOT NULL,
		founded_turn INTEGER NOT NULL,
		buildings_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		turn INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS session_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_turn ON events(turn);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type unitRow struct {
	ID                  uint64 `db:"id"`
	Kind                string `db:"kind"`
	Col                 int    `db:"pos_col"`
	Row                 int    `db:"pos_row"`
	RemainingMovement   int    `db:"remaining_movement"`
	BuildingCapital     bool   `db:"building_capital"`
	BuildTurnsRemaining int    `db:"build_turns_remaining"`
}

type cityRow struct {
	ID              uint64 `db:"id"`
	Name            string `db:"name"`
	Col             int    `db:"pos_col"`
	Row             int    `db:"pos_row"`
	Population      int    `db:"population"`
	BaseProduction  int    `db:"base_production"`
	BaseScience     int    `db:"base_science"`
	TerritoryRadius int    `db:"territory_radius"`
	Production      int    `db:"production"`
	Science         int    `db:"science"`
	FoundedTurn     int    `db:"founded_turn"`
	BuildingsJSON   string `db:"buildings_json"`
}

// SaveUnits writes all units to the database (full replace).
func (db *DB) SaveUnits(units []game.Unit) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM units"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO units
		(id, kind, pos_col, pos_row, remaining_movement, building_capital, build_turns_remaining)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range units {
		_, err := stmt.Exec(
			uint64(u.ID), u.Kind.String(), u.Position.Col, u.Position.Row,
			u.RemainingMovement, u.BuildingCapital, u.BuildTurnsRemaining,
		)
		if err != nil {
			return fmt.Errorf("insert unit %d: %w", u.ID, err)
		}
	}

	return tx.Commit()
}

// SaveCities writes all cities to the database (full replace).
func (db *DB) SaveCities(cities []game.City) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM cities"); err != nil {
		return err
	}

	for _, c := range cities {
		buildingsJSON, err := json.Marshal(c.Buildings)
		if err != nil {
			return fmt.Errorf("encode buildings of city %d: %w", c.ID, err)
		}
		_, err = tx.Exec(`INSERT INTO cities
			(id, name, pos_col, pos_row, population, base_production, base_science,
			 territory_radius, production, science, founded_turn, buildings_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uint64(c.ID), c.Name, c.Position.Col, c.Position.Row, c.Population,
			c.BaseProduction, c.BaseScience, c.TerritoryRadius,
			c.Production, c.Science, c.FoundedTurn, string(buildingsJSON),
		)
		if err != nil {
			return fmt.Errorf("insert city %d: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// SaveEvents replaces the stored event log with events.
func (db *DB) SaveEvents(events []game.Event) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM events"); err != nil {
		return err
	}
	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (turn, description, category) VALUES (?, ?, ?)",
			e.Turn, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair in session metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO session_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM session_meta WHERE key = ?", key)
	return value, err
}

func (db *DB) metaInt(key string) (int64, error) {
	v, err := db.GetMeta(key)
	if err != nil {
		return 0, fmt.Errorf("meta %s: %w", key, err)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("meta %s: %w", key, err)
	}
	return n, nil
}

// HasSessionState reports whether a session was saved to this database.
func (db *DB) HasSessionState() bool {
	_, err := db.GetMeta(MetaSessionID)
	return err == nil
}

// SaveSession performs a full save of the session state plus the map
// generation config needed to regenerate it.
func (db *DB) SaveSession(s *game.Session) error {
	st := s.State()
	slog.Info("saving session", "id", st.ID, "turn", st.Turn, "units", len(st.Units), "cities", len(st.Cities))

	if err := db.SaveUnits(st.Units); err != nil {
		return fmt.Errorf("save units: %w", err)
	}
	if err := db.SaveCities(st.Cities); err != nil {
		return fmt.Errorf("save cities: %w", err)
	}
	if err := db.SaveEvents(st.Events); err != nil {
		return fmt.Errorf("save events: %w", err)
	}

	gen, err := json.Marshal(s.Map.Config())
	if err != nil {
		return fmt.Errorf("marshal gen config: %w", err)
	}

	meta := map[string]string{
		MetaSessionID:  st.ID,
		MetaGenConfig:  string(gen),
		MetaTurn:       strconv.Itoa(st.Turn),
		MetaEdenStress: strconv.Itoa(st.EdenStress),
		MetaCapital:    strconv.FormatBool(st.Capital),
		MetaNextUnitID: strconv.FormatUint(uint64(st.NextUnitID), 10),
		MetaNextCityID: strconv.FormatUint(uint64(st.NextCityID), 10),
	}
	for k, v := range meta {
		if err := db.SaveMeta(k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	slog.Info("session saved")
	return nil
}

// GenConfig returns the stored generation config. Generating from it
// rebuilds the saved map regardless of the current config file.
func (db *DB) GenConfig() (world.GenConfig, error) {
	var cfg world.GenConfig
	raw, err := db.GetMeta(MetaGenConfig)
	if err != nil {
		return cfg, fmt.Errorf("meta %s: %w", MetaGenConfig, err)
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", MetaGenConfig, err)
	}
	return cfg, nil
}

// LoadMap regenerates the saved map from the stored generation config.
func (db *DB) LoadMap() (*world.Map, error) {
	cfg, err := db.GenConfig()
	if err != nil {
		return nil, err
	}
	m, err := world.Generate(cfg)
	if err != nil {
		return nil, fmt.Errorf("regenerate map: %w", err)
	}
	return m, nil
}

// LoadState reads the saved session state.
func (db *DB) LoadState() (game.State, error) {
	var st game.State
	var err error

	if st.ID, err = db.GetMeta(MetaSessionID); err != nil {
		return st, fmt.Errorf("meta %s: %w", MetaSessionID, err)
	}
	turn, err := db.metaInt(MetaTurn)
	if err != nil {
		return st, err
	}
	stress, err := db.metaInt(MetaEdenStress)
	if err != nil {
		return st, err
	}
	nextUnit, err := db.metaInt(MetaNextUnitID)
	if err != nil {
		return st, err
	}
	nextCity, err := db.metaInt(MetaNextCityID)
	if err != nil {
		return st, err
	}
	capital, err := db.GetMeta(MetaCapital)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return st, err
	}
	st.Turn = int(turn)
	st.EdenStress = int(stress)
	st.NextUnitID = game.UnitID(nextUnit)
	st.NextCityID = game.CityID(nextCity)
	st.Capital, _ = strconv.ParseBool(capital)

	var units []unitRow
	if err := db.conn.Select(&units, "SELECT * FROM units ORDER BY id"); err != nil {
		return st, fmt.Errorf("load units: %w", err)
	}
	for _, r := range units {
		kind, err := game.ParseUnitKind(r.Kind)
		if err != nil {
			return st, fmt.Errorf("unit %d: %w", r.ID, err)
		}
		st.Units = append(st.Units, game.Unit{
			ID:                  game.UnitID(r.ID),
			Kind:                kind,
			Position:            hex.Coord{Col: r.Col, Row: r.Row},
			RemainingMovement:   r.RemainingMovement,
			BuildingCapital:     r.BuildingCapital,
			BuildTurnsRemaining: r.BuildTurnsRemaining,
		})
	}

	var cities []cityRow
	if err := db.conn.Select(&cities, "SELECT * FROM cities ORDER BY id"); err != nil {
		return st, fmt.Errorf("load cities: %w", err)
	}
	for _, r := range cities {
		var buildings []game.BuildingKind
		if err := json.Unmarshal([]byte(r.BuildingsJSON), &buildings); err != nil {
			return st, fmt.Errorf("city %d buildings: %w", r.ID, err)
		}
		st.Cities = append(st.Cities, game.City{
			ID:              game.CityID(r.ID),
			Name:            r.Name,
			Position:        hex.Coord{Col: r.Col, Row: r.Row},
			Population:      r.Population,
			BaseProduction:  r.BaseProduction,
			BaseScience:     r.BaseScience,
			TerritoryRadius: r.TerritoryRadius,
			Production:      r.Production,
			Science:         r.Science,
			Buildings:       buildings,
			FoundedTurn:     r.FoundedTurn,
		})
	}

	if err := db.conn.Select(&st.Events,
		"SELECT turn, description, category FROM events ORDER BY id"); err != nil {
		return st, fmt.Errorf("load events: %w", err)
	}

	slog.Info("session state loaded", "id", st.ID, "turn", st.Turn, "units", len(st.Units), "cities", len(st.Cities))
	return st, nil
}

// LoadSession restores the saved session onto m, which must be the map
// returned by LoadMap.
func (db *DB) LoadSession(m *world.Map, minAlienBaseDistance int, rng *rand.Rand) (*game.Session, error) {
	st, err := db.LoadState()
	if err != nil {
		return nil, err
	}
	return game.Restore(m, minAlienBaseDistance, rng, st), nil
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]game.Event, error) {
	var events []game.Event
	err := db.conn.Select(&events,
		"SELECT turn, description, category FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}
