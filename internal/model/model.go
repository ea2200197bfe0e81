// Package model defines the read-only record shapes the DeepWatch backend
// returns. The client never owns authoritative copies of these; they live
// only for the duration of a view.
package model

import (
	"encoding/json"
	"errors"
	"strings"
)

// Agent is a field-agent record. PersonalInfo is only populated on the
// detail endpoint and its keys are server-defined.
type Agent struct {
	AgentNumber    string         `json:"agent_number"`
	Name           string         `json:"name"`
	Rank           string         `json:"rank"`
	Status         string         `json:"status"`
	ClearanceLevel string         `json:"clearance_level"`
	LastMission    string         `json:"last_mission"`
	PhotoURL       string         `json:"photo_url"`
	PersonalInfo   map[string]any `json:"personal_info,omitempty"`
}

func (a *Agent) Validate() error {
	if strings.TrimSpace(a.AgentNumber) == "" {
		return errors.New("agent record missing agent_number")
	}
	if strings.TrimSpace(a.Name) == "" {
		return errors.New("agent record missing name")
	}
	return nil
}

type Location struct {
	LocationID    string `json:"location_id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	AccessLevel   string `json:"access_level"`
	Geolocation   string `json:"geolocation"`
	Contents      string `json:"contents"`
	Status        string `json:"status"`
	LastAccessed  string `json:"last_accessed"`
	SecurityLevel string `json:"security_level"`
}

func (l *Location) Validate() error {
	if strings.TrimSpace(l.LocationID) == "" {
		return errors.New("location record missing location_id")
	}
	if strings.TrimSpace(l.Name) == "" {
		return errors.New("location record missing name")
	}
	return nil
}

// AgentRef and LocationRef are the abbreviated cross-references embedded
// in an operation detail.
type AgentRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Rank string `json:"rank"`
}

type LocationRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Operation carries different shapes for InvolvedAgents and TargetLocation
// depending on the endpoint: the list endpoint returns raw identifiers, the
// detail endpoint returns resolved refs. Both are kept as raw JSON and
// decoded on demand.
type Operation struct {
	OperationID     string          `json:"operation_id"`
	CodeName        string          `json:"code_name"`
	Status          string          `json:"status"`
	Priority        string          `json:"priority"`
	StartDate       string          `json:"start_date"`
	EndDate         string          `json:"end_date"`
	Description     string          `json:"description"`
	InvolvedAgents  json.RawMessage `json:"involved_agents,omitempty"`
	TargetLocation  json.RawMessage `json:"target_location,omitempty"`
	ClassifiedLevel string          `json:"classified_level"`
}

func (o *Operation) Validate() error {
	if strings.TrimSpace(o.OperationID) == "" {
		return errors.New("operation record missing operation_id")
	}
	if strings.TrimSpace(o.CodeName) == "" {
		return errors.New("operation record missing code_name")
	}
	return nil
}

// AgentIDs decodes InvolvedAgents as the list-endpoint shape.
func (o *Operation) AgentIDs() []string {
	var ids []string
	if err := json.Unmarshal(o.InvolvedAgents, &ids); err != nil {
		return nil
	}
	return ids
}

// AgentRefs decodes InvolvedAgents as the detail-endpoint shape.
func (o *Operation) AgentRefs() []AgentRef {
	var refs []AgentRef
	if err := json.Unmarshal(o.InvolvedAgents, &refs); err != nil {
		return nil
	}
	return refs
}

// LocationRef decodes TargetLocation as the detail-endpoint shape.
func (o *Operation) LocationRef() *LocationRef {
	if len(o.TargetLocation) == 0 {
		return nil
	}
	var ref LocationRef
	if err := json.Unmarshal(o.TargetLocation, &ref); err != nil {
		return nil
	}
	if ref.ID == "" && ref.Name == "" {
		return nil
	}
	return &ref
}

// File is a classified-file listing entry. Content is fetched separately
// as a binary payload.
type File struct {
	FileID      string `json:"file_id"`
	Filename    string `json:"filename"`
	AccessLevel string `json:"access_level"`
}

func (f *File) Validate() error {
	if strings.TrimSpace(f.FileID) == "" {
		return errors.New("file record missing file_id")
	}
	if strings.TrimSpace(f.Filename) == "" {
		return errors.New("file record missing filename")
	}
	return nil
}

// AuditEntry is one row of the backend activity log (admin only).
type AuditEntry struct {
	Username  string `json:"username"`
	Role      string `json:"role"`
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
	Details   string `json:"details"`
}
