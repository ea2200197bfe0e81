// Package web serves the DeepWatch dashboard as server-rendered HTML. It
// is a thin gateway: every page is built from a live backend call made
// with the bearer token held in the browser's cookie session.
package web

import (
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"github.com/swarapotd-rgb/threat-neutralizer/internal/api"
	"github.com/swarapotd-rgb/threat-neutralizer/internal/auth"
	"github.com/swarapotd-rgb/threat-neutralizer/internal/totp"
)

const sessionName = "deepwatch"

type Handler struct {
	client *api.Client
	store  *sessions.CookieStore
	router *mux.Router
	logger *log.Logger
}

// New builds the gateway around an unauthenticated API client. When
// cookieKey is empty a random key is generated, which logs every browser
// out on restart.
func New(client *api.Client, cookieKey []byte) *Handler {
	if len(cookieKey) == 0 {
		cookieKey = securecookie.GenerateRandomKey(32)
	}
	store := sessions.NewCookieStore(cookieKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   8 * 3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	h := &Handler{
		client: client,
		store:  store,
		router: mux.NewRouter(),
		logger: log.New(os.Stdout, "[web] ", log.LstdFlags|log.Lshortfile),
	}
	h.routes()
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.router.HandleFunc("/", h.handleIndex).Methods(http.MethodGet)
	h.router.HandleFunc("/login", h.handleLoginPage).Methods(http.MethodGet)
	h.router.HandleFunc("/login", h.handleLogin).Methods(http.MethodPost)
	h.router.HandleFunc("/register", h.handleRegisterPage).Methods(http.MethodGet)
	h.router.HandleFunc("/register", h.handleRegister).Methods(http.MethodPost)
	h.router.HandleFunc("/logout", h.handleLogout).Methods(http.MethodPost)

	h.router.HandleFunc("/agents", h.authed(h.handleAgents)).Methods(http.MethodGet)
	h.router.HandleFunc("/agents/{id}", h.authed(h.handleAgentDetail)).Methods(http.MethodGet)
	h.router.HandleFunc("/locations", h.authed(h.handleLocations)).Methods(http.MethodGet)
	h.router.HandleFunc("/locations/{id}", h.authed(h.handleLocationDetail)).Methods(http.MethodGet)
	h.router.HandleFunc("/operations", h.authed(h.handleOperations)).Methods(http.MethodGet)
	h.router.HandleFunc("/operations/{id}", h.authed(h.handleOperationDetail)).Methods(http.MethodGet)
	h.router.HandleFunc("/files", h.authed(h.handleFiles)).Methods(http.MethodGet)
	h.router.HandleFunc("/files/{id}", h.authed(h.handleFileDownload)).Methods(http.MethodGet)
	h.router.HandleFunc("/logs", h.authed(h.handleLogs)).Methods(http.MethodGet)
}

type pageData struct {
	Title    string
	Username string
	Role     string
	Error    string
	Notice   string

	Secret string
	URI    string

	Columns  []string
	Rows     []tableRow
	Fields   []detailField
	BackLink string
}

type tableRow struct {
	Link  string
	Cells []string
}

type detailField struct {
	Name  string
	Value string
}

func (h *Handler) session(r *http.Request) *sessions.Session {
	// a stale or tampered cookie decodes to a fresh session, which is
	// exactly the logged-out state we want
	sess, _ := h.store.Get(r, sessionName)
	return sess
}

func sessionString(sess *sessions.Session, key string) string {
	v, _ := sess.Values[key].(string)
	return v
}

// authed redirects to the login page when no token is in the cookie and
// hands authenticated handlers a client bound to that token.
func (h *Handler) authed(fn func(http.ResponseWriter, *http.Request, *api.Client, *pageData)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := h.session(r)
		token := sessionString(sess, "token")
		if token == "" {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		data := &pageData{
			Username: sessionString(sess, "username"),
			Role:     sessionString(sess, "role"),
		}
		fn(w, r, h.client.WithToken(token), data)
	}
}

// fail renders err on the current page, except 401s: those destroy the
// cookie session and bounce the browser to the login form.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, data *pageData, err error) bool {
	if err == nil {
		return false
	}
	if api.IsUnauthorized(err) {
		h.clearSession(w, r)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return true
	}
	h.logger.Printf("backend error: %v", err)
	data.Error = err.Error()
	h.render(w, listPage, data)
	return true
}

func (h *Handler) clearSession(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	sess.Options.MaxAge = -1
	_ = sess.Save(r, w)
}

func (h *Handler) render(w http.ResponseWriter, t *template.Template, data *pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		h.logger.Printf("render: %v", err)
	}
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if sessionString(h.session(r), "token") != "" {
		http.Redirect(w, r, "/agents", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, loginPage, &pageData{Title: "Login"})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	code := strings.TrimSpace(r.FormValue("totp_code"))

	res, err := h.client.Login(r.Context(), username, password, code)
	if err != nil {
		msg := "login failed, please check your credentials"
		var se *api.StatusError
		if errors.As(err, &se) && se.Detail != "" {
			msg = se.Detail
		}
		h.render(w, loginPage, &pageData{Title: "Login", Error: msg})
		return
	}

	sess := h.session(r)
	sess.Values["token"] = res.Token
	sess.Values["username"] = res.Username
	sess.Values["role"] = res.Role
	if err := sess.Save(r, w); err != nil {
		h.logger.Printf("save session: %v", err)
	}
	http.Redirect(w, r, "/agents", http.StatusSeeOther)
}

func (h *Handler) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, registerPage, &pageData{Title: "Register"})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	regtoken := strings.TrimSpace(r.FormValue("regtoken"))

	res, err := h.client.Register(r.Context(), username, password, regtoken)
	if err != nil {
		h.render(w, registerPage, &pageData{Title: "Register", Error: "registration failed, please try again"})
		return
	}
	if res.Msg != auth.RegisterSentinel {
		h.render(w, registerPage, &pageData{Title: "Register", Error: res.Msg})
		return
	}
	h.render(w, provisionedPage, &pageData{
		Title:  "Account created",
		Secret: res.Secret,
		URI:    totp.ProvisionURI(username, res.Secret),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.clearSession(w, r)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) handleAgents(w http.ResponseWriter, r *http.Request, c *api.Client, data *pageData) {
	agents, err := c.Agents(r.Context())
	if h.fail(w, r, data, err) {
		return
	}
	data.Title = "Agents"
	data.Columns = []string{"Agent", "Name", "Rank", "Status", "Last Mission"}
	for _, a := range agents {
		data.Rows = append(data.Rows, tableRow{
			Link:  "/agents/" + url.PathEscape(a.AgentNumber),
			Cells: []string{a.AgentNumber, a.Name, a.Rank, a.Status, a.LastMission},
		})
	}
	h.render(w, listPage, data)
}

func (h *Handler) handleAgentDetail(w http.ResponseWriter, r *http.Request, c *api.Client, data *pageData) {
	a, err := c.AgentByID(r.Context(), mux.Vars(r)["id"])
	if h.fail(w, r, data, err) {
		return
	}
	data.Title = a.Name
	data.BackLink = "/agents"
	data.Fields = []detailField{
		{"Agent number", a.AgentNumber},
		{"Name", a.Name},
		{"Rank", a.Rank},
		{"Status", a.Status},
		{"Clearance", a.ClearanceLevel},
		{"Last mission", a.LastMission},
	}
	for k, v := range a.PersonalInfo {
		data.Fields = append(data.Fields, detailField{k, fmt.Sprint(v)})
	}
	h.render(w, detailPage, data)
}

func (h *Handler) handleLocations(w http.ResponseWriter, r *http.Request, c *api.Client, data *pageData) {
	locs, err := c.Locations(r.Context())
	if h.fail(w, r, data, err) {
		return
	}
	data.Title = "Locations"
	data.Columns = []string{"Location", "Name", "Type", "Status", "Security"}
	for _, l := range locs {
		data.Rows = append(data.Rows, tableRow{
			Link:  "/locations/" + url.PathEscape(l.LocationID),
			Cells: []string{l.LocationID, l.Name, l.Type, l.Status, l.SecurityLevel},
		})
	}
	h.render(w, listPage, data)
}

func (h *Handler) handleLocationDetail(w http.ResponseWriter, r *http.Request, c *api.Client, data *pageData) {
	l, err := c.LocationByID(r.Context(), mux.Vars(r)["id"])
	if h.fail(w, r, data, err) {
		return
	}
	data.Title = l.Name
	data.BackLink = "/locations"
	data.Fields = []detailField{
		{"Location", l.LocationID},
		{"Name", l.Name},
		{"Type", l.Type},
		{"Access level", l.AccessLevel},
		{"Geolocation", l.Geolocation},
		{"Contents", l.Contents},
		{"Status", l.Status},
		{"Last accessed", l.LastAccessed},
		{"Security level", l.SecurityLevel},
	}
	h.render(w, detailPage, data)
}

func (h *Handler) handleOperations(w http.ResponseWriter, r *http.Request, c *api.Client, data *pageData) {
	ops, err := c.Operations(r.Context())
	if h.fail(w, r, data, err) {
		return
	}
	data.Title = "Operations"
	data.Columns = []string{"Operation", "Code name", "Status", "Priority", "Start"}
	for _, o := range ops {
		data.Rows = append(data.Rows, tableRow{
			Link:  "/operations/" + url.PathEscape(o.OperationID),
			Cells: []string{o.OperationID, o.CodeName, o.Status, o.Priority, o.StartDate},
		})
	}
	h.render(w, listPage, data)
}

func (h *Handler) handleOperationDetail(w http.ResponseWriter, r *http.Request, c *api.Client, data *pageData) {
	op, err := c.OperationByID(r.Context(), mux.Vars(r)["id"])
	if h.fail(w, r, data, err) {
		return
	}
	data.Title = op.CodeName
	data.BackLink = "/operations"
	data.Fields = []detailField{
		{"Operation", op.OperationID},
		{"Code name", op.CodeName},
		{"Status", op.Status},
		{"Priority", op.Priority},
		{"Start date", op.StartDate},
		{"End date", op.EndDate},
		{"Description", op.Description},
		{"Classified level", op.ClassifiedLevel},
	}
	var involved []string
	for _, ref := range op.AgentRefs() {
		involved = append(involved, fmt.Sprintf("%s (%s, %s)", ref.Name, ref.ID, ref.Rank))
	}
	data.Fields = append(data.Fields, detailField{"Involved agents", strings.Join(involved, "; ")})
	if ref := op.LocationRef(); ref != nil {
		data.Fields = append(data.Fields, detailField{"Target location", fmt.Sprintf("%s (%s, %s)", ref.Name, ref.ID, ref.Type)})
	}
	h.render(w, detailPage, data)
}

func (h *Handler) handleFiles(w http.ResponseWriter, r *http.Request, c *api.Client, data *pageData) {
	files, err := c.Files(r.Context())
	if h.fail(w, r, data, err) {
		return
	}
	data.Title = "Files"
	data.Columns = []string{"File", "Filename", "Access level"}
	for _, f := range files {
		data.Rows = append(data.Rows, tableRow{
			Link:  "/files/" + url.PathEscape(f.FileID),
			Cells: []string{f.FileID, f.Filename, f.AccessLevel},
		})
	}
	h.render(w, listPage, data)
}

func (h *Handler) handleFileDownload(w http.ResponseWriter, r *http.Request, c *api.Client, data *pageData) {
	fc, err := c.FileByID(r.Context(), mux.Vars(r)["id"])
	if h.fail(w, r, data, err) {
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fc.Filename))
	_, _ = w.Write(fc.Data)
}

func (h *Handler) handleLogs(w http.ResponseWriter, r *http.Request, c *api.Client, data *pageData) {
	logs, err := c.Logs(r.Context(), 100)
	if h.fail(w, r, data, err) {
		return
	}
	data.Title = "Activity"
	data.Columns = []string{"Time", "User", "Role", "Action", "Details"}
	for _, e := range logs {
		data.Rows = append(data.Rows, tableRow{
			Cells: []string{e.Timestamp, e.Username, e.Role, e.Action, e.Details},
		})
	}
	h.render(w, listPage, data)
}
