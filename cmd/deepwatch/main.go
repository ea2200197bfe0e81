// Command deepwatch is the terminal client for the DeepWatch dashboard
// backend: registration, TOTP login, and read-only access to the agent,
// location, operation, and file registries.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/swarapotd-rgb/threat-neutralizer/internal/api"
	"github.com/swarapotd-rgb/threat-neutralizer/internal/auth"
	"github.com/swarapotd-rgb/threat-neutralizer/internal/config"
	"github.com/swarapotd-rgb/threat-neutralizer/internal/model"
	"github.com/swarapotd-rgb/threat-neutralizer/internal/session"
	"github.com/swarapotd-rgb/threat-neutralizer/internal/totp"
	"github.com/swarapotd-rgb/threat-neutralizer/internal/view"
)

func main() {
	// ---- register ----
	regCmd := flag.NewFlagSet("register", flag.ExitOnError)
	regUser := regCmd.String("user", "", "username")
	regPass := regCmd.String("pass", "", "password")
	regToken := regCmd.String("regtoken", "", "registration token issued by an admin")
	regServer := regCmd.String("server", "", "backend URL (overrides config)")

	// ---- login ----
	loginCmd := flag.NewFlagSet("login", flag.ExitOnError)
	loginUser := loginCmd.String("user", "", "username")
	loginPass := loginCmd.String("pass", "", "password")
	loginCode := loginCmd.String("code", "", "6-digit authenticator code")
	loginServer := loginCmd.String("server", "", "backend URL (overrides config)")

	// ---- totp ----
	totpCmd := flag.NewFlagSet("totp", flag.ExitOnError)
	totpSecret := totpCmd.String("secret", "", "base32 TOTP secret")

	// ---- resource listings ----
	agentsCmd := flag.NewFlagSet("agents", flag.ExitOnError)
	agentsID := agentsCmd.String("id", "", "show one agent")
	locationsCmd := flag.NewFlagSet("locations", flag.ExitOnError)
	locationsID := locationsCmd.String("id", "", "show one location")
	operationsCmd := flag.NewFlagSet("operations", flag.ExitOnError)
	operationsID := operationsCmd.String("id", "", "show one operation")
	filesCmd := flag.NewFlagSet("files", flag.ExitOnError)
	filesID := filesCmd.String("id", "", "download one file")
	filesOut := filesCmd.String("out", "", "output path (defaults to server filename)")

	// ---- logs ----
	logsCmd := flag.NewFlagSet("logs", flag.ExitOnError)
	logsLimit := logsCmd.Int("limit", 50, "max entries")

	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "register":
		_ = regCmd.Parse(os.Args[2:])
		app, err := buildApp(*regServer)
		dieIf(err)
		dieIf(cmdRegister(app, *regUser, *regPass, *regToken))

	case "login":
		_ = loginCmd.Parse(os.Args[2:])
		app, err := buildApp(*loginServer)
		dieIf(err)
		dieIf(cmdLogin(app, *loginUser, *loginPass, *loginCode))

	case "logout":
		app, err := buildApp("")
		dieIf(err)
		dieIf(app.flow.Logout())
		fmt.Println("Logged out.")

	case "whoami":
		app, err := buildApp("")
		dieIf(err)
		dieIf(cmdWhoami(app))

	case "totp":
		_ = totpCmd.Parse(os.Args[2:])
		dieIf(cmdTOTP(*totpSecret))

	case "agents":
		_ = agentsCmd.Parse(os.Args[2:])
		app, err := buildApp("")
		dieIf(err)
		dieIf(cmdAgents(app, *agentsID))

	case "locations":
		_ = locationsCmd.Parse(os.Args[2:])
		app, err := buildApp("")
		dieIf(err)
		dieIf(cmdLocations(app, *locationsID))

	case "operations":
		_ = operationsCmd.Parse(os.Args[2:])
		app, err := buildApp("")
		dieIf(err)
		dieIf(cmdOperations(app, *operationsID))

	case "files":
		_ = filesCmd.Parse(os.Args[2:])
		app, err := buildApp("")
		dieIf(err)
		dieIf(cmdFiles(app, *filesID, *filesOut))

	case "logs":
		_ = logsCmd.Parse(os.Args[2:])
		app, err := buildApp("")
		dieIf(err)
		dieIf(cmdLogs(app, *logsLimit))

	default:
		usage()
	}
}

func usage() {
	fmt.Print(`deepwatch commands:

  register   --user alice --pass secret --regtoken TOKEN [--server URL]
  login      --user alice --pass secret --code 123456 [--server URL]
  logout
  whoami
  totp       --secret BASE32SECRET
  agents     [--id AGT-001]
  locations  [--id LOC-001]
  operations [--id OP-1001]
  files      [--id DOC-001 [--out report.txt]]
  logs       [--limit 50]

Examples:
  deepwatch register --user alice --pass hunter2 --regtoken 4f3c...
  deepwatch login --user alice --pass hunter2 --code 123456
  deepwatch agents --id AGT-001
`)
}

func dieIf(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// ============ App Wiring ============

type app struct {
	cfg    config.Config
	store  *session.Store
	client *api.Client
	flow   *auth.Flow
}

func buildApp(serverOverride string) (*app, error) {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return nil, err
	}
	if serverOverride != "" {
		cfg.Server = serverOverride
	}

	sessPath := cfg.SessionFile
	if sessPath == "" {
		if sessPath, err = session.DefaultPath(); err != nil {
			return nil, err
		}
	}
	store := session.NewStore(sessPath)

	client := api.New(cfg.Server,
		api.WithTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second),
		api.WithTokenSource(func() string {
			s, err := store.Get()
			if err != nil {
				return ""
			}
			return s.Token
		}),
	)
	return &app{
		cfg:    cfg,
		store:  store,
		client: client,
		flow:   auth.NewFlow(client, store, nil),
	}, nil
}

// requireSession validates the cached login against /verify before any
// resource command runs, mirroring the dashboard's startup check.
func (a *app) requireSession(ctx context.Context) error {
	if !a.flow.CheckSession(ctx) {
		return fmt.Errorf("not logged in (run: deepwatch login)")
	}
	return nil
}

// bounce clears the local session when the backend answered 401, so the
// next command starts from the login step.
func (a *app) bounce(err error) error {
	if a.flow.HandleUnauthorized(err) {
		return fmt.Errorf("session expired, please log in again")
	}
	return err
}

// ============ Commands ============

func cmdRegister(a *app, username, password, regtoken string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	prov, err := a.flow.Register(ctx, username, password, regtoken)
	if err != nil {
		return err
	}
	fmt.Println("Account created.")
	fmt.Println("TOTP secret:", prov.Secret)
	fmt.Println("Provisioning URI:", prov.URI)
	fmt.Println("Add the secret to your authenticator app, then run: deepwatch login")
	return nil
}

func cmdLogin(a *app, username, password, code string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.flow.Login(ctx, username, password, code); err != nil {
		return err
	}
	s := a.flow.Session()
	fmt.Printf("Logged in as %s (%s).\n", s.Username, s.Role)
	return nil
}

func cmdWhoami(a *app) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := a.store.Get()
	if err != nil {
		return err
	}
	if !s.Valid() {
		fmt.Println("Not logged in.")
		return nil
	}
	if !a.flow.CheckSession(ctx) {
		fmt.Println("Stored session is no longer valid.")
		return nil
	}
	fmt.Printf("%s (%s)\n", s.Username, s.Role)
	return nil
}

func cmdTOTP(secret string) error {
	if secret == "" {
		return fmt.Errorf("--secret required")
	}
	code, err := totp.Code(secret, time.Now())
	if err != nil {
		return err
	}
	fmt.Println(code)
	return nil
}

func cmdAgents(a *app, id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	res := view.NewResource("agents", a.client.Agents, a.client.AgentByID, a.flow.HandleUnauthorized)
	if id == "" {
		if err := res.Activate(ctx); err != nil {
			return a.bounce(err)
		}
		items, _ := res.Items()
		for _, ag := range items {
			fmt.Printf("%-10s %-24s %-22s %-10s %s\n", ag.AgentNumber, ag.Name, ag.Rank, ag.Status, ag.LastMission)
		}
		return nil
	}

	if err := res.Select(ctx, id); err != nil {
		return a.bounce(err)
	}
	ag, err := res.Detail()
	if err != nil {
		return err
	}
	fmt.Println("Agent:     ", ag.AgentNumber)
	fmt.Println("Name:      ", ag.Name)
	fmt.Println("Rank:      ", ag.Rank)
	fmt.Println("Status:    ", ag.Status)
	fmt.Println("Clearance: ", ag.ClearanceLevel)
	fmt.Println("Mission:   ", ag.LastMission)
	for k, v := range ag.PersonalInfo {
		fmt.Printf("%-11s %v\n", k+":", v)
	}
	return nil
}

func cmdLocations(a *app, id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	res := view.NewResource("locations", a.client.Locations, a.client.LocationByID, a.flow.HandleUnauthorized)
	if id == "" {
		if err := res.Activate(ctx); err != nil {
			return a.bounce(err)
		}
		items, _ := res.Items()
		for _, l := range items {
			fmt.Printf("%-10s %-24s %-16s %-12s %s\n", l.LocationID, l.Name, l.Type, l.Status, l.SecurityLevel)
		}
		return nil
	}

	if err := res.Select(ctx, id); err != nil {
		return a.bounce(err)
	}
	l, err := res.Detail()
	if err != nil {
		return err
	}
	fmt.Println("Location:     ", l.LocationID)
	fmt.Println("Name:         ", l.Name)
	fmt.Println("Type:         ", l.Type)
	fmt.Println("Access level: ", l.AccessLevel)
	fmt.Println("Geolocation:  ", l.Geolocation)
	fmt.Println("Contents:     ", l.Contents)
	fmt.Println("Status:       ", l.Status)
	fmt.Println("Last accessed:", l.LastAccessed)
	fmt.Println("Security:     ", l.SecurityLevel)
	return nil
}

func cmdOperations(a *app, id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	res := view.NewResource("operations", a.client.Operations, a.client.OperationByID, a.flow.HandleUnauthorized)
	if id == "" {
		if err := res.Activate(ctx); err != nil {
			return a.bounce(err)
		}
		items, _ := res.Items()
		for _, op := range items {
			fmt.Printf("%-10s %-18s %-10s %-10s %s\n", op.OperationID, op.CodeName, op.Status, op.Priority, op.StartDate)
		}
		return nil
	}

	if err := res.Select(ctx, id); err != nil {
		return a.bounce(err)
	}
	op, err := res.Detail()
	if err != nil {
		return err
	}
	fmt.Println("Operation:  ", op.OperationID)
	fmt.Println("Code name:  ", op.CodeName)
	fmt.Println("Status:     ", op.Status)
	fmt.Println("Priority:   ", op.Priority)
	fmt.Println("Start date: ", op.StartDate)
	fmt.Println("End date:   ", op.EndDate)
	fmt.Println("Classified: ", op.ClassifiedLevel)
	fmt.Println("Description:", op.Description)
	for _, ref := range op.AgentRefs() {
		fmt.Printf("Agent:       %s (%s, %s)\n", ref.Name, ref.ID, ref.Rank)
	}
	if ref := op.LocationRef(); ref != nil {
		fmt.Printf("Target:      %s (%s, %s)\n", ref.Name, ref.ID, ref.Type)
	}
	return nil
}

func cmdFiles(a *app, id, out string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	if id == "" {
		files, err := a.client.Files(ctx)
		if err != nil {
			return a.bounce(err)
		}
		for _, f := range files {
			fmt.Printf("%-10s %-40s %s\n", f.FileID, f.Filename, f.AccessLevel)
		}
		return nil
	}

	fc, err := a.client.FileByID(ctx, id)
	if err != nil {
		return a.bounce(err)
	}
	if out == "" {
		out = fc.Filename
	}
	if err := os.WriteFile(out, fc.Data, 0o644); err != nil {
		return err
	}
	fmt.Printf("Saved %s (%d bytes)\n", out, len(fc.Data))
	return nil
}

func cmdLogs(a *app, limit int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	logs, err := a.client.Logs(ctx, limit)
	if err != nil {
		return a.bounce(err)
	}
	printLogs(logs)
	return nil
}

func printLogs(logs []model.AuditEntry) {
	for _, e := range logs {
		fmt.Printf("%-20s %-12s %-8s %-16s %s\n", e.Timestamp, e.Username, e.Role, e.Action, e.Details)
	}
}
