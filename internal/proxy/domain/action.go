// Package domain defines the proxied action whitelist, the inbound request and the proxy error kinds.
package domain

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Action is one whitelisted tenant operation: a single HTTP method class against a single table.
type Action struct {
	Name   string
	Method string
	Table  string
}

// Tenant tables reachable through the proxy.
const (
	TableEmployees    = "employees"
	TableWorkSessions = "work_sessions"
	TableSettings     = "organization_settings"
)

// Actions is the complete whitelist. Anything not listed is rejected before any network call.
var Actions = map[string]Action{
	"GET_EMPLOYEES":       {Name: "GET_EMPLOYEES", Method: http.MethodGet, Table: TableEmployees},
	"CREATE_EMPLOYEE":     {Name: "CREATE_EMPLOYEE", Method: http.MethodPost, Table: TableEmployees},
	"UPDATE_EMPLOYEE":     {Name: "UPDATE_EMPLOYEE", Method: http.MethodPatch, Table: TableEmployees},
	"DELETE_EMPLOYEE":     {Name: "DELETE_EMPLOYEE", Method: http.MethodDelete, Table: TableEmployees},
	"GET_WORK_SESSIONS":   {Name: "GET_WORK_SESSIONS", Method: http.MethodGet, Table: TableWorkSessions},
	"CREATE_WORK_SESSION": {Name: "CREATE_WORK_SESSION", Method: http.MethodPost, Table: TableWorkSessions},
	"UPDATE_WORK_SESSION": {Name: "UPDATE_WORK_SESSION", Method: http.MethodPatch, Table: TableWorkSessions},
	"DELETE_WORK_SESSION": {Name: "DELETE_WORK_SESSION", Method: http.MethodDelete, Table: TableWorkSessions},
	"GET_SETTINGS":        {Name: "GET_SETTINGS", Method: http.MethodGet, Table: TableSettings},
	"UPDATE_SETTINGS":     {Name: "UPDATE_SETTINGS", Method: http.MethodPatch, Table: TableSettings},
}

// LookupAction returns the whitelisted action for name. Matching is exact: identifiers are
// upper-case and case variants are not accepted.
func LookupAction(name string) (Action, bool) {
	a, ok := Actions[name]
	return a, ok
}

// Request is the inbound body of POST /api/v1/org-proxy.
type Request struct {
	Action  string          `json:"action"`
	OrgID   string          `json:"orgId"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ValidateOrgID checks that OrgID is a UUID and rewrites it to the canonical lower-case dashed
// form, so braced, urn:uuid: and undashed spellings reach the store as one id.
func (r *Request) ValidateOrgID() error {
	id, err := uuid.Parse(strings.TrimSpace(r.OrgID))
	if err != nil {
		return fmt.Errorf("%w: orgId must be a UUID", ErrBadRequest)
	}
	r.OrgID = id.String()
	return nil
}

// ValidatePayload rejects payloads that are not JSON objects. null and absent are allowed.
func (r *Request) ValidatePayload() error {
	p := strings.TrimSpace(string(r.Payload))
	if p == "" || p == "null" {
		return nil
	}
	if !strings.HasPrefix(p, "{") {
		return fmt.Errorf("%w: payload must be an object", ErrBadRequest)
	}
	return nil
}
