// Package store is the dev backend's persistence layer: users,
// registration tokens, the intelligence records, classified file blobs,
// and the audit log, all in a single SQLite database like the service it
// emulates.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/swarapotd-rgb/threat-neutralizer/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	username TEXT PRIMARY KEY,
	pass_hash TEXT NOT NULL,
	role TEXT NOT NULL,
	totp_secret TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS reg_tokens (
	token TEXT PRIMARY KEY,
	used INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS agents (
	agent_number TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	rank TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	clearance_level TEXT NOT NULL DEFAULT 'standard',
	last_mission TEXT NOT NULL DEFAULT '',
	photo_url TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS locations (
	location_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT '',
	access_level TEXT NOT NULL DEFAULT '',
	geolocation TEXT NOT NULL DEFAULT '',
	contents TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	last_accessed TEXT NOT NULL DEFAULT '',
	security_level TEXT NOT NULL DEFAULT 'standard'
);
CREATE TABLE IF NOT EXISTS operations (
	operation_id TEXT PRIMARY KEY,
	code_name TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT '',
	priority TEXT NOT NULL DEFAULT '',
	start_date TEXT NOT NULL DEFAULT '',
	end_date TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	involved_agents TEXT NOT NULL DEFAULT '[]',
	target_location TEXT NOT NULL DEFAULT '',
	classified_level TEXT NOT NULL DEFAULT 'standard'
);
CREATE TABLE IF NOT EXISTS files (
	file_id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	file_data BLOB NOT NULL,
	access_level TEXT NOT NULL DEFAULT 'standard'
);
CREATE TABLE IF NOT EXISTS audit_log (
	id INTEGER PRIMARY KEY,
	username TEXT NOT NULL,
	role TEXT NOT NULL,
	action TEXT NOT NULL,
	details TEXT NOT NULL,
	timestamp TEXT NOT NULL
);
`

// ErrNotFound covers both absent records and records the requesting role
// is not allowed to see; the API deliberately does not distinguish them.
var ErrNotFound = errors.New("not found")

type User struct {
	Username   string
	PassHash   string
	Role       string
	TOTPSecret string
}

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) CreateUser(u User) error {
	_, err := s.db.Exec(
		`INSERT INTO users (username, pass_hash, role, totp_secret, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.Username, u.PassHash, u.Role, u.TOTPSecret, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) FindUser(username string) (*User, error) {
	row := s.db.QueryRow(
		`SELECT username, pass_hash, role, totp_secret FROM users WHERE username = ?`, username)
	var u User
	if err := row.Scan(&u.Username, &u.PassHash, &u.Role, &u.TOTPSecret); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) AddRegToken(token string) error {
	_, err := s.db.Exec(
		`INSERT INTO reg_tokens (token, used) VALUES (?, 0) ON CONFLICT(token) DO NOTHING`, token)
	return err
}

// ConsumeRegToken marks token used and reports whether it was valid and
// unused. Each registration token admits exactly one account.
func (s *Store) ConsumeRegToken(token string) (bool, error) {
	res, err := s.db.Exec(`UPDATE reg_tokens SET used = 1 WHERE token = ? AND used = 0`, token)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) Agents(admin bool) ([]model.Agent, error) {
	q := `SELECT agent_number, name, rank, status, clearance_level, last_mission, photo_url FROM agents`
	if !admin {
		q += ` WHERE clearance_level = 'standard'`
	}
	rows, err := s.db.Query(q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	agents := []model.Agent{}
	for rows.Next() {
		var a model.Agent
		if err := rows.Scan(&a.AgentNumber, &a.Name, &a.Rank, &a.Status, &a.ClearanceLevel, &a.LastMission, &a.PhotoURL); err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

func (s *Store) AgentByID(id string, admin bool) (*model.Agent, error) {
	row := s.db.QueryRow(
		`SELECT agent_number, name, rank, status, clearance_level, last_mission, photo_url FROM agents WHERE agent_number = ?`, id)
	var a model.Agent
	if err := row.Scan(&a.AgentNumber, &a.Name, &a.Rank, &a.Status, &a.ClearanceLevel, &a.LastMission, &a.PhotoURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !admin && a.ClearanceLevel != "standard" {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *Store) Locations(admin bool) ([]model.Location, error) {
	q := `SELECT location_id, name, type, access_level, geolocation, contents, status, last_accessed, security_level FROM locations`
	if !admin {
		q += ` WHERE security_level = 'standard'`
	}
	rows, err := s.db.Query(q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	locs := []model.Location{}
	for rows.Next() {
		var l model.Location
		if err := rows.Scan(&l.LocationID, &l.Name, &l.Type, &l.AccessLevel, &l.Geolocation, &l.Contents, &l.Status, &l.LastAccessed, &l.SecurityLevel); err != nil {
			return nil, err
		}
		locs = append(locs, l)
	}
	return locs, rows.Err()
}

func (s *Store) LocationByID(id string, admin bool) (*model.Location, error) {
	row := s.db.QueryRow(
		`SELECT location_id, name, type, access_level, geolocation, contents, status, last_accessed, security_level FROM locations WHERE location_id = ?`, id)
	var l model.Location
	if err := row.Scan(&l.LocationID, &l.Name, &l.Type, &l.AccessLevel, &l.Geolocation, &l.Contents, &l.Status, &l.LastAccessed, &l.SecurityLevel); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !admin && l.SecurityLevel != "standard" {
		return nil, ErrNotFound
	}
	return &l, nil
}

func (s *Store) Operations(admin bool) ([]model.Operation, error) {
	q := `SELECT operation_id, code_name, status, priority, start_date, end_date, description, involved_agents, target_location, classified_level FROM operations`
	if !admin {
		q += ` WHERE classified_level = 'standard'`
	}
	rows, err := s.db.Query(q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ops := []model.Operation{}
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		// the list endpoint ships agent ids, not resolved refs
		ops = append(ops, *op)
	}
	return ops, rows.Err()
}

// OperationByID returns the detail shape: involved agents and the target
// location resolved into abbreviated refs, filtered by clearance.
func (s *Store) OperationByID(id string, admin bool) (*model.Operation, error) {
	rows, err := s.db.Query(
		`SELECT operation_id, code_name, status, priority, start_date, end_date, description, involved_agents, target_location, classified_level FROM operations WHERE operation_id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	op, err := scanOperation(rows)
	if err != nil {
		return nil, err
	}
	if !admin && op.ClassifiedLevel != "standard" {
		return nil, ErrNotFound
	}

	var agentIDs []string
	_ = json.Unmarshal(op.InvolvedAgents, &agentIDs)
	refs := []model.AgentRef{}
	for _, aid := range agentIDs {
		a, err := s.AgentByID(aid, admin)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		refs = append(refs, model.AgentRef{ID: a.AgentNumber, Name: a.Name, Rank: a.Rank})
	}
	op.InvolvedAgents, _ = json.Marshal(refs)

	var locID string
	_ = json.Unmarshal(op.TargetLocation, &locID)
	op.TargetLocation = nil
	if locID != "" {
		if l, err := s.LocationByID(locID, admin); err == nil {
			op.TargetLocation, _ = json.Marshal(model.LocationRef{ID: l.LocationID, Name: l.Name, Type: l.Type})
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return op, nil
}

func scanOperation(rows *sql.Rows) (*model.Operation, error) {
	var op model.Operation
	var agents, target string
	if err := rows.Scan(&op.OperationID, &op.CodeName, &op.Status, &op.Priority, &op.StartDate, &op.EndDate, &op.Description, &agents, &target, &op.ClassifiedLevel); err != nil {
		return nil, err
	}
	op.InvolvedAgents = json.RawMessage(agents)
	if target != "" {
		op.TargetLocation, _ = json.Marshal(target)
	}
	return &op, nil
}

func (s *Store) Files(admin bool) ([]model.File, error) {
	q := `SELECT file_id, filename, access_level FROM files`
	if !admin {
		q += ` WHERE access_level = 'standard'`
	}
	rows, err := s.db.Query(q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	files := []model.File{}
	for rows.Next() {
		var f model.File
		if err := rows.Scan(&f.FileID, &f.Filename, &f.AccessLevel); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// FileByID returns the raw blob regardless of role; the caller enforces
// the access-level check so it can answer 403 rather than 404.
func (s *Store) FileByID(id string) (filename string, data []byte, accessLevel string, err error) {
	row := s.db.QueryRow(`SELECT filename, file_data, access_level FROM files WHERE file_id = ?`, id)
	if err := row.Scan(&filename, &data, &accessLevel); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, "", ErrNotFound
		}
		return "", nil, "", err
	}
	return filename, data, accessLevel, nil
}

func (s *Store) LogActivity(username, role, action, details string) {
	// best effort, same as the service being emulated
	_, _ = s.db.Exec(
		`INSERT INTO audit_log (username, role, action, details, timestamp) VALUES (?, ?, ?, ?, ?)`,
		username, role, action, details, time.Now().UTC().Format(time.RFC3339),
	)
}

func (s *Store) AuditLogs(limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT username, role, timestamp, action, details FROM audit_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	logs := []model.AuditEntry{}
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.Username, &e.Role, &e.Timestamp, &e.Action, &e.Details); err != nil {
			return nil, err
		}
		logs = append(logs, e)
	}
	return logs, rows.Err()
}
