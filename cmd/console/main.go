// Command console is the operator shell for the shipdesk API.
//
//	console [-ephemeral] <command> [flags] [args]
//
// Commands: login, register, verify, logout, whoami, clients, shipments,
// status, history, seed. Run a command with -h for its flags.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"shipdesk/internal/apiclient"
	"shipdesk/internal/config"
	"shipdesk/internal/console"
	"shipdesk/internal/model"
	"shipdesk/internal/observability"
	"shipdesk/internal/session"
)

const usage = `usage: console [-ephemeral] <command> [flags] [args]

commands:
  login     -email E [-password P]        log in (password falls back to SHIPDESK_PASSWORD)
  register  -name N -email E -password P  create an account
  verify    -token T                      confirm an email address
  logout                                  end the session
  whoami                                  show the logged-in user
  clients   list|get|create|update|delete
  shipments list|get|create|update
  status    <shipment-id> <status> [-note N]
  history   <shipment-id> [-page N] [-size N]
  seed      clients|shipments [-count N]
`

func main() {
	global := flag.NewFlagSet("console", flag.ExitOnError)
	ephemeral := global.Bool("ephemeral", false, "keep the session in memory only")
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	_ = global.Parse(os.Args[1:])
	if global.NArg() == 0 {
		global.Usage()
		os.Exit(2)
	}

	cfg := config.LoadConsole()
	if *ephemeral {
		cfg.TokenStore = "memory"
	}
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shell, cleanup := newApp(cfg, logger)
	defer cleanup()

	if err := shell.run(ctx, global.Arg(0), global.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		cleanup()
		os.Exit(1)
	}
}

type app struct {
	session *session.Manager
	console *console.Console
	out     io.Writer
}

func newApp(cfg *config.ConsoleConfig, logger *zap.Logger) (*app, func()) {
	cleanup := func() {}
	var store session.TokenStore
	switch cfg.TokenStore {
	case "redis":
		rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPass, DB: cfg.RedisDB})
		if err := rc.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis not reachable, the session will not persist", zap.Error(err))
		}
		store = session.NewRedisStore(rc, 0)
		cleanup = func() { _ = rc.Close() }
	case "memory":
		store = session.NewMemoryStore()
	default:
		store = session.NewFileStore(cfg.TokenFile)
	}

	transport := apiclient.NewTransport(cfg.APIURL, cfg.Timeout, logger)
	manager := session.NewManager(transport, store, logger)
	manager.Subscribe(func(s session.Snapshot) {
		logger.Debug("session changed", zap.Bool("authenticated", s.IsAuthenticated()))
	})
	manager.OnLogout(func() {
		fmt.Fprintln(os.Stderr, "logged out; run `console login` to sign in again")
	})
	api := apiclient.NewClient(transport, manager, logger)

	return &app{session: manager, console: console.New(api), out: os.Stdout}, cleanup
}

// public commands run without a session.
var public = map[string]bool{"login": true, "register": true, "verify": true}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	if !public[cmd] {
		a.session.Restore(ctx)
	}
	if !public[cmd] && cmd != "logout" {
		if err := a.session.Require(); err != nil {
			return err
		}
	}

	switch cmd {
	case "login":
		return a.login(ctx, args)
	case "register":
		return a.register(ctx, args)
	case "verify":
		return a.verify(ctx, args)
	case "logout":
		return a.session.Logout(ctx)
	case "whoami":
		return a.print(a.session.Snapshot().User)
	case "clients":
		return a.clients(ctx, args)
	case "shipments":
		return a.shipments(ctx, args)
	case "status":
		return a.status(ctx, args)
	case "history":
		return a.history(ctx, args)
	case "seed":
		return a.seed(ctx, args)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("SHIPDESK_PASSWORD"), "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("login needs -email and a password")
	}
	user, err := a.session.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "logged in as %s <%s>\n", user.Name, user.Email)
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password, at least 6 characters")
	if err := fs.Parse(args); err != nil {
		return err
	}
	msg, err := a.session.Register(ctx, *name, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *app) verify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	token := fs.String("token", "", "token from the verification link")
	if err := fs.Parse(args); err != nil {
		return err
	}
	msg, err := a.session.VerifyEmail(ctx, *token)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *app) clients(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("clients needs list, get, create, update or delete")
	}
	sub, args := args[0], args[1:]
	fs := flag.NewFlagSet("clients "+sub, flag.ContinueOnError)
	search := fs.String("search", "", "name or email substring")
	page, size := pageFlags(fs)
	var in console.ClientInput
	var owner string
	fs.StringVar(&in.Name, "name", "", "client name")
	fs.StringVar(&in.Email, "email", "", "client email")
	fs.StringVar(&in.Phone, "phone", "", "client phone")
	fs.StringVar(&owner, "owner", "", "owning user id (admins only)")
	fs.Func("address", "line1[|city|country|zip], repeatable", func(v string) error {
		in.Addresses = append(in.Addresses, parseAddress(v))
		return nil
	})
	if err := fs.Parse(reorder(args, 1)); err != nil {
		return err
	}
	if owner != "" {
		id, err := uuid.Parse(owner)
		if err != nil {
			return fmt.Errorf("invalid -owner: %w", err)
		}
		in.OwnerUserID = &id
	}

	switch sub {
	case "list":
		res, err := a.console.Clients.List(ctx, *search, model.PageRequest{Page: *page, PageSize: *size})
		return a.result(res, err)
	case "create":
		res, err := a.console.Clients.Create(ctx, in)
		return a.result(res, err)
	}

	id, err := idArg(fs)
	if err != nil {
		return err
	}
	switch sub {
	case "get":
		res, err := a.console.Clients.Get(ctx, id)
		return a.result(res, err)
	case "update":
		res, err := a.console.Clients.Update(ctx, id, in)
		return a.result(res, err)
	case "delete":
		if err := a.console.Clients.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "deleted")
		return nil
	}
	return fmt.Errorf("unknown clients command %q", sub)
}

func (a *app) shipments(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("shipments needs list, get, create or update")
	}
	sub, args := args[0], args[1:]
	fs := flag.NewFlagSet("shipments "+sub, flag.ContinueOnError)
	page, size := pageFlags(fs)
	var (
		in       console.ShipmentInput
		clientID string
		status   string
		search   string
		eta      string
	)
	fs.StringVar(&clientID, "client", "", "client id")
	fs.StringVar(&status, "status", "", "created, in_transit, delivered or canceled")
	fs.StringVar(&search, "search", "", "code, origin or destination substring")
	fs.StringVar(&in.Code, "code", "", "shipment code")
	fs.StringVar(&in.Origin, "origin", "", "origin")
	fs.StringVar(&in.Destination, "dest", "", "destination")
	fs.Float64Var(&in.WeightKg, "weight", 0, "weight in kg")
	fs.StringVar(&eta, "eta", "", "estimated arrival, RFC3339")
	if err := fs.Parse(reorder(args, 1)); err != nil {
		return err
	}
	in.Status = model.ShipmentStatus(status)
	if eta != "" {
		t, err := time.Parse(time.RFC3339, eta)
		if err != nil {
			return fmt.Errorf("invalid -eta: %w", err)
		}
		in.ETA = &t
	}
	var clientRef *uuid.UUID
	if clientID != "" {
		id, err := uuid.Parse(clientID)
		if err != nil {
			return fmt.Errorf("invalid -client: %w", err)
		}
		clientRef = &id
		in.ClientID = id
	}

	switch sub {
	case "list":
		query := console.ShipmentQuery{ClientID: clientRef, Status: in.Status, Search: search}
		res, err := a.console.Shipments.List(ctx, query, model.PageRequest{Page: *page, PageSize: *size})
		return a.result(res, err)
	case "create":
		res, err := a.console.Shipments.Create(ctx, in)
		return a.result(res, err)
	}

	id, err := idArg(fs)
	if err != nil {
		return err
	}
	switch sub {
	case "get":
		res, err := a.console.Shipments.Detail(ctx, id, model.PageRequest{Page: *page, PageSize: *size})
		return a.result(res, err)
	case "update":
		res, err := a.console.Shipments.Update(ctx, id, in)
		return a.result(res, err)
	}
	return fmt.Errorf("unknown shipments command %q", sub)
}

func (a *app) status(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	note := fs.String("note", "", "reason for the change")
	if err := fs.Parse(reorder(args, 2)); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("status needs <shipment-id> <status>")
	}
	id, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid shipment id: %w", err)
	}
	res, err := a.console.Shipments.UpdateStatus(ctx, id, model.ShipmentStatus(fs.Arg(1)), *note)
	return a.result(res, err)
}

func (a *app) history(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	page, size := pageFlags(fs)
	if err := fs.Parse(reorder(args, 1)); err != nil {
		return err
	}
	id, err := idArg(fs)
	if err != nil {
		return err
	}
	res, err := a.console.Shipments.History(ctx, id, model.PageRequest{Page: *page, PageSize: *size})
	return a.result(res, err)
}

func (a *app) seed(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("seed needs clients or shipments")
	}
	sub, args := args[0], args[1:]
	fs := flag.NewFlagSet("seed "+sub, flag.ContinueOnError)
	count := fs.Int("count", 0, "rows to generate, server default when 0")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		n   int
		err error
	)
	switch sub {
	case "clients":
		n, err = a.console.Seed.Clients(ctx, *count)
	case "shipments":
		n, err = a.console.Seed.Shipments(ctx, *count)
	default:
		return fmt.Errorf("unknown seed command %q", sub)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "inserted %d %s\n", n, sub)
	return nil
}

func (a *app) result(v any, err error) error {
	if err != nil {
		return err
	}
	return a.print(v)
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func pageFlags(fs *flag.FlagSet) (page, size *int) {
	return fs.Int("page", 0, "page number"), fs.Int("size", 0, "page size")
}

func idArg(fs *flag.FlagSet) (uuid.UUID, error) {
	if fs.NArg() != 1 {
		return uuid.Nil, fmt.Errorf("%s needs exactly one id", fs.Name())
	}
	id, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", fs.Arg(0), err)
	}
	return id, nil
}

// reorder moves up to n leading positional arguments behind the flags,
// since the flag package stops at the first non-flag.
func reorder(args []string, n int) []string {
	var positional, rest []string
	for _, arg := range args {
		if len(positional) < n && !strings.HasPrefix(arg, "-") && (len(rest) == 0 || !needsValue(rest[len(rest)-1])) {
			positional = append(positional, arg)
			continue
		}
		rest = append(rest, arg)
	}
	return append(rest, positional...)
}

func needsValue(arg string) bool {
	return strings.HasPrefix(arg, "-") && !strings.Contains(arg, "=")
}

func parseAddress(v string) model.Address {
	parts := strings.SplitN(v, "|", 4)
	for len(parts) < 4 {
		parts = append(parts, "")
	}
	return model.Address{Line1: parts[0], City: parts[1], Country: parts[2], Zip: parts[3]}
}

// describe renders err for the operator.
func describe(err error) string {
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		return "not logged in; run `console login` first"
	case errors.Is(err, context.Canceled):
		return "interrupted"
	}
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.Code != "" {
		return fmt.Sprintf("%s (%s)", apiclient.Message(err), apiErr.Code)
	}
	return apiclient.Message(err)
}
