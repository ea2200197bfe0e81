package store

import (
	"database/sql"
	"encoding/json"
)

// Seed loads the demo dataset when the database is empty. Running it
// against a populated database is a no-op, so restarts keep state.
func (s *Store) Seed() error {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM agents`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := seedAgents(tx); err != nil {
		return err
	}
	if err := seedLocations(tx); err != nil {
		return err
	}
	if err := seedOperations(tx); err != nil {
		return err
	}
	if err := seedFiles(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func seedAgents(tx *sql.Tx) error {
	agents := [][]string{
		{"AGT-001", "Viktor Reyes", "Senior Field Officer", "active", "standard", "Operation Nightfall", "/static/agents/agt-001.png"},
		{"AGT-002", "Mara Lindqvist", "Analyst", "active", "standard", "Operation Glasshouse", "/static/agents/agt-002.png"},
		{"AGT-003", "Tomasz Adler", "Field Officer", "inactive", "standard", "Operation Driftwood", "/static/agents/agt-003.png"},
		{"AGT-004", "Elena Sorokina", "Station Chief", "active", "restricted", "Operation Silent Harbor", "/static/agents/agt-004.png"},
		{"AGT-005", "Dev Anand", "Courier", "missing", "restricted", "Operation Ember", "/static/agents/agt-005.png"},
	}
	for _, a := range agents {
		if _, err := tx.Exec(
			`INSERT INTO agents (agent_number, name, rank, status, clearance_level, last_mission, photo_url) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			a[0], a[1], a[2], a[3], a[4], a[5], a[6]); err != nil {
			return err
		}
	}
	return nil
}

func seedLocations(tx *sql.Tx) error {
	locations := [][]string{
		{"LOC-001", "Warehouse Delta", "safehouse", "standard", "59.3293,18.0686", "comms equipment, field kits", "operational", "2026-08-12T09:30:00Z", "standard"},
		{"LOC-002", "Pier 14 Annex", "dead drop", "standard", "53.5511,9.9937", "document cache", "operational", "2026-07-30T22:10:00Z", "standard"},
		{"LOC-003", "Station K", "listening post", "restricted", "48.2082,16.3738", "sigint arrays", "degraded", "2026-08-01T04:45:00Z", "restricted"},
	}
	for _, l := range locations {
		if _, err := tx.Exec(
			`INSERT INTO locations (location_id, name, type, access_level, geolocation, contents, status, last_accessed, security_level) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			l[0], l[1], l[2], l[3], l[4], l[5], l[6], l[7], l[8]); err != nil {
			return err
		}
	}
	return nil
}

func seedOperations(tx *sql.Tx) error {
	type opRow struct {
		id, code, status, priority, start, end, desc string
		agents                                       []string
		target, level                                string
	}
	ops := []opRow{
		{"OP-1001", "Nightfall", "active", "high", "2026-06-01", "", "Surveillance of courier network across the northern corridor.", []string{"AGT-001", "AGT-002"}, "LOC-001", "standard"},
		{"OP-1002", "Glasshouse", "planning", "medium", "2026-09-15", "", "Asset recruitment at trade conferences.", []string{"AGT-002"}, "LOC-002", "standard"},
		{"OP-1003", "Silent Harbor", "active", "critical", "2026-05-20", "", "Counter-intelligence sweep of harbor facilities.", []string{"AGT-004", "AGT-005"}, "LOC-003", "restricted"},
	}
	for _, o := range ops {
		ids, _ := json.Marshal(o.agents)
		if _, err := tx.Exec(
			`INSERT INTO operations (operation_id, code_name, status, priority, start_date, end_date, description, involved_agents, target_location, classified_level) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.id, o.code, o.status, o.priority, o.start, o.end, o.desc, string(ids), o.target, o.level); err != nil {
			return err
		}
	}
	return nil
}

func seedFiles(tx *sql.Tx) error {
	files := []struct {
		id, name, level string
		data            []byte
	}{
		{"DOC-001", "field_safety_manual.txt", "standard",
			[]byte("FIELD SAFETY MANUAL\n\n1. Verify dead drop sites before use.\n2. Rotate comms keys weekly.\n")},
		{"DOC-002", "nightfall_brief.txt", "restricted",
			[]byte("OPERATION NIGHTFALL BRIEF\n\nCourier network mapping, northern corridor. Distribution restricted.\n")},
	}
	for _, f := range files {
		if _, err := tx.Exec(
			`INSERT INTO files (file_id, filename, file_data, access_level) VALUES (?, ?, ?, ?)`,
			f.id, f.name, f.data, f.level); err != nil {
			return err
		}
	}
	return nil
}
