package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/swarapotd-rgb/threat-neutralizer/internal/model"
)

type registerReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
	RegToken string `json:"regtoken"`
}

// RegisterResult is the register response. Msg carries the outcome
// sentinel ("all good" on success); Secret is only present alongside it.
type RegisterResult struct {
	Msg    string `json:"msg"`
	Secret string `json:"secret"`
}

// Register submits a registration gated by the admin token. The outcome is
// carried in the body's msg field regardless of HTTP status, so the result
// is returned whenever the body parses; only transport and parse failures
// are errors.
func (c *Client) Register(ctx context.Context, username, password, regtoken string) (RegisterResult, error) {
	body, _, err := c.call(ctx, http.MethodPost, "/register", registerReq{
		Username: username,
		Password: password,
		RegToken: regtoken,
	}, false)
	if err != nil {
		return RegisterResult{}, err
	}
	var res RegisterResult
	if err := json.Unmarshal(body, &res); err != nil {
		return RegisterResult{}, &ValidationError{Endpoint: "/register", Reason: err.Error()}
	}
	if res.Msg == "" {
		return RegisterResult{}, &ValidationError{Endpoint: "/register", Reason: "response carried no msg"}
	}
	return res, nil
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code"`
}

type LoginResult struct {
	Token    string `json:"token"`
	Role     string `json:"role"`
	Username string `json:"username"`
}

// Login exchanges credentials plus a TOTP code for a bearer token. A
// success status without a token in the body is treated as a malformed
// response, not a login.
func (c *Client) Login(ctx context.Context, username, password, totpCode string) (LoginResult, error) {
	body, status, err := c.call(ctx, http.MethodPost, "/login", loginReq{
		Username: username,
		Password: password,
		TOTPCode: totpCode,
	}, false)
	if err != nil {
		return LoginResult{}, err
	}
	if status < 200 || status > 299 {
		return LoginResult{}, &StatusError{Status: status, Detail: errorDetail(body)}
	}
	var res LoginResult
	if err := json.Unmarshal(body, &res); err != nil {
		return LoginResult{}, &ValidationError{Endpoint: "/login", Reason: err.Error()}
	}
	if res.Token == "" {
		return LoginResult{}, &ValidationError{Endpoint: "/login", Reason: "success response carried no token"}
	}
	return res, nil
}

type verifyReq struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Verify asks the backend whether the current token still matches the
// stored identity. Used as the courtesy check when entering the login view
// with an existing session.
func (c *Client) Verify(ctx context.Context, username, role string) error {
	body, status, err := c.call(ctx, http.MethodPost, "/verify", verifyReq{Username: username, Role: role}, true)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return &StatusError{Status: status, Detail: errorDetail(body)}
	}
	return nil
}

func (c *Client) Agents(ctx context.Context) ([]model.Agent, error) {
	var env struct {
		Agents *[]model.Agent `json:"agents"`
	}
	if err := c.getJSON(ctx, "/agents", &env); err != nil {
		return nil, err
	}
	if env.Agents == nil {
		return nil, &ValidationError{Endpoint: "/agents", Reason: "missing agents list"}
	}
	return *env.Agents, nil
}

func (c *Client) AgentByID(ctx context.Context, id string) (*model.Agent, error) {
	path := "/agents/" + url.PathEscape(id)
	var env struct {
		Agent *model.Agent `json:"agent"`
	}
	if err := c.getJSON(ctx, path, &env); err != nil {
		return nil, err
	}
	if env.Agent == nil {
		return nil, &ValidationError{Endpoint: path, Reason: "missing agent record"}
	}
	if err := env.Agent.Validate(); err != nil {
		return nil, &ValidationError{Endpoint: path, Reason: err.Error()}
	}
	return env.Agent, nil
}

func (c *Client) Locations(ctx context.Context) ([]model.Location, error) {
	var env struct {
		Locations *[]model.Location `json:"locations"`
	}
	if err := c.getJSON(ctx, "/locations", &env); err != nil {
		return nil, err
	}
	if env.Locations == nil {
		return nil, &ValidationError{Endpoint: "/locations", Reason: "missing locations list"}
	}
	return *env.Locations, nil
}

func (c *Client) LocationByID(ctx context.Context, id string) (*model.Location, error) {
	path := "/locations/" + url.PathEscape(id)
	var env struct {
		Location *model.Location `json:"location"`
	}
	if err := c.getJSON(ctx, path, &env); err != nil {
		return nil, err
	}
	if env.Location == nil {
		return nil, &ValidationError{Endpoint: path, Reason: "missing location record"}
	}
	if err := env.Location.Validate(); err != nil {
		return nil, &ValidationError{Endpoint: path, Reason: err.Error()}
	}
	return env.Location, nil
}

func (c *Client) Operations(ctx context.Context) ([]model.Operation, error) {
	var env struct {
		Operations *[]model.Operation `json:"operations"`
	}
	if err := c.getJSON(ctx, "/operations", &env); err != nil {
		return nil, err
	}
	if env.Operations == nil {
		return nil, &ValidationError{Endpoint: "/operations", Reason: "missing operations list"}
	}
	return *env.Operations, nil
}

func (c *Client) OperationByID(ctx context.Context, id string) (*model.Operation, error) {
	path := "/operations/" + url.PathEscape(id)
	var env struct {
		Operation *model.Operation `json:"operation"`
	}
	if err := c.getJSON(ctx, path, &env); err != nil {
		return nil, err
	}
	if env.Operation == nil {
		return nil, &ValidationError{Endpoint: path, Reason: "missing operation record"}
	}
	if err := env.Operation.Validate(); err != nil {
		return nil, &ValidationError{Endpoint: path, Reason: err.Error()}
	}
	return env.Operation, nil
}

func (c *Client) Files(ctx context.Context) ([]model.File, error) {
	var env struct {
		Files *[]model.File `json:"files"`
	}
	if err := c.getJSON(ctx, "/api/files", &env); err != nil {
		return nil, err
	}
	if env.Files == nil {
		return nil, &ValidationError{Endpoint: "/api/files", Reason: "missing files list"}
	}
	return *env.Files, nil
}

// FileContent is a downloaded classified file. Filename comes from the
// server's Content-Disposition header, falling back to the file id.
type FileContent struct {
	Filename string
	Data     []byte
}

func (c *Client) FileByID(ctx context.Context, id string) (*FileContent, error) {
	path := "/api/files/" + url.PathEscape(id)
	token := c.token()
	if token == "" {
		return nil, ErrNoSession
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: read body: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Status: resp.StatusCode, Detail: errorDetail(body)}
	}

	filename := id
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			filename = params["filename"]
		}
	}
	return &FileContent{Filename: filename, Data: body}, nil
}

// Logs fetches the backend audit trail. Admin only; non-admins get a 403
// StatusError.
func (c *Client) Logs(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	path := "/logs"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var env struct {
		Logs  *[]model.AuditEntry `json:"logs"`
		Total int                 `json:"total"`
	}
	if err := c.getJSON(ctx, path, &env); err != nil {
		return nil, err
	}
	if env.Logs == nil {
		return nil, &ValidationError{Endpoint: "/logs", Reason: "missing logs list"}
	}
	return *env.Logs, nil
}
