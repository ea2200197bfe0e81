package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/swarapotd-rgb/threat-neutralizer/internal/model"
	"github.com/swarapotd-rgb/threat-neutralizer/internal/server/store"
)

func (c *claims) isAdmin() bool { return c.Role == "admin" }

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	c := requestClaims(r)
	agents, err := s.store.Agents(c.isAdmin())
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.store.LogActivity(c.Username, c.Role, "list_agents", fmt.Sprintf("%d records", len(agents)))
	writeJSON(w, map[string]any{"agents": agents, "username": c.Username, "role": c.Role})
}

func (s *Server) handleAgentByID(w http.ResponseWriter, r *http.Request) {
	c := requestClaims(r)
	id := mux.Vars(r)["id"]
	a, err := s.store.AgentByID(id, c.isAdmin())
	if errors.Is(err, store.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Agent not found")
		return
	}
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	// dossier fields are masked on the wire regardless of clearance
	a.PersonalInfo = map[string]any{
		"date_of_birth": "REDACTED",
		"nationality":   "REDACTED",
		"languages":     "REDACTED",
	}
	s.store.LogActivity(c.Username, c.Role, "view_agent", id)
	writeJSON(w, map[string]any{"agent": a})
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	c := requestClaims(r)
	locs, err := s.store.Locations(c.isAdmin())
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.store.LogActivity(c.Username, c.Role, "list_locations", fmt.Sprintf("%d records", len(locs)))
	writeJSON(w, map[string]any{"locations": locs, "username": c.Username, "role": c.Role})
}

func (s *Server) handleLocationByID(w http.ResponseWriter, r *http.Request) {
	c := requestClaims(r)
	id := mux.Vars(r)["id"]
	l, err := s.store.LocationByID(id, c.isAdmin())
	if errors.Is(err, store.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Location not found")
		return
	}
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.store.LogActivity(c.Username, c.Role, "view_location", id)
	writeJSON(w, map[string]any{"location": l})
}

func (s *Server) handleOperations(w http.ResponseWriter, r *http.Request) {
	c := requestClaims(r)
	ops, err := s.store.Operations(c.isAdmin())
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.store.LogActivity(c.Username, c.Role, "list_operations", fmt.Sprintf("%d records", len(ops)))
	writeJSON(w, map[string]any{"operations": ops, "username": c.Username, "role": c.Role})
}

func (s *Server) handleOperationByID(w http.ResponseWriter, r *http.Request) {
	c := requestClaims(r)
	id := mux.Vars(r)["id"]
	op, err := s.store.OperationByID(id, c.isAdmin())
	if errors.Is(err, store.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Operation not found")
		return
	}
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.store.LogActivity(c.Username, c.Role, "view_operation", id)
	writeJSON(w, map[string]any{"operation": op})
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	c := requestClaims(r)
	files, err := s.store.Files(c.isAdmin())
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.store.LogActivity(c.Username, c.Role, "list_files", fmt.Sprintf("%d records", len(files)))
	writeJSON(w, map[string]any{"files": files, "username": c.Username, "role": c.Role})
}

// handleFileByID streams the stored blob. Restricted files answer 403 to
// non-admins rather than 404 so the audit trail records the attempt.
func (s *Server) handleFileByID(w http.ResponseWriter, r *http.Request) {
	c := requestClaims(r)
	id := mux.Vars(r)["id"]
	filename, data, accessLevel, err := s.store.FileByID(id)
	if errors.Is(err, store.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "File not found")
		return
	}
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !c.isAdmin() && accessLevel != "standard" {
		s.store.LogActivity(c.Username, c.Role, "file_denied", id)
		writeDetail(w, http.StatusForbidden, "Insufficient clearance")
		return
	}

	s.store.LogActivity(c.Username, c.Role, "download_file", id)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	c := requestClaims(r)
	if !c.isAdmin() {
		writeDetail(w, http.StatusForbidden, "Admin access required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := s.store.AuditLogs(limit)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if logs == nil {
		logs = []model.AuditEntry{}
	}
	writeJSON(w, map[string]any{"logs": logs, "total": len(logs)})
}
