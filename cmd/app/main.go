package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sqliteadapter "github.com/SolidPro12/Asset-Management-System-sub000/internal/adapters/db/sqlite"
	httpadapter "github.com/SolidPro12/Asset-Management-System-sub000/internal/adapters/http"
	"github.com/SolidPro12/Asset-Management-System-sub000/internal/adapters/notify"
	rpcadapter "github.com/SolidPro12/Asset-Management-System-sub000/internal/adapters/rpcjson"
	"github.com/SolidPro12/Asset-Management-System-sub000/internal/adapters/tabular"
	"github.com/SolidPro12/Asset-Management-System-sub000/internal/application"
	"github.com/SolidPro12/Asset-Management-System-sub000/internal/domain"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

type serverConfig struct {
	addr              string
	rpcSocket         string
	dbPath            string
	bootstrapEmail    string
	bootstrapPassword string
	notifySender      string
	liveEvents        bool
}

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "assetctl",
		Usage: "Asset management server and CLI",
		Commands: []*cli.Command{
			serverCommand(),
			authCommand(),
			assetsCommand(),
			requestsCommand(),
			allocationsCommand(),
			ticketsCommand(),
			historyCommand(),
			usersCommand(),
			settingsCommand(),
			auditCommand(),
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		fmt.Fprintln(os.Stderr, "assetctl:", err)
		if errorKind(err) == "unauthenticated" {
			fmt.Fprintln(os.Stderr, "run `assetctl auth login` to sign in again")
		}
		os.Exit(exitCode(err))
	}
}

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run HTTP and JSON-RPC servers",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":8080", Usage: "HTTP listen address", Sources: cli.EnvVars("AMS_ADDR")},
			&cli.StringFlag{Name: "rpc-socket", Value: defaultSocket, Usage: "JSON-RPC unix socket path", Sources: cli.EnvVars("AMS_RPC_SOCKET")},
			&cli.StringFlag{Name: "db-path", Value: "assets.db", Usage: "SQLite database path", Sources: cli.EnvVars("AMS_DB_PATH")},
			&cli.StringFlag{Name: "bootstrap-admin-email", Value: "admin@assets.local", Usage: "initial super admin email", Sources: cli.EnvVars("AMS_BOOTSTRAP_ADMIN_EMAIL")},
			&cli.StringFlag{Name: "bootstrap-admin-password", Value: "admin", Usage: "initial super admin password when users are empty", Sources: cli.EnvVars("AMS_BOOTSTRAP_ADMIN_PASSWORD")},
			&cli.StringFlag{Name: "notify-sender", Usage: "from address shown on logged notifications", Sources: cli.EnvVars("AMS_NOTIFY_SENDER")},
			&cli.BoolFlag{Name: "live-events", Value: true, Usage: "serve websocket notifications on /api/events", Sources: cli.EnvVars("AMS_LIVE_EVENTS")},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runServer(ctx, serverConfig{
				addr:              c.String("addr"),
				rpcSocket:         c.String("rpc-socket"),
				dbPath:            c.String("db-path"),
				bootstrapEmail:    c.String("bootstrap-admin-email"),
				bootstrapPassword: c.String("bootstrap-admin-password"),
				notifySender:      c.String("notify-sender"),
				liveEvents:        c.Bool("live-events"),
			})
		},
	}
}

func runServer(ctx context.Context, cfg serverConfig) error {
	db, err := sqliteadapter.Open(cfg.dbPath)
	if err != nil {
		return err
	}
	if err := sqliteadapter.RunMigrations(ctx, db); err != nil {
		return err
	}
	if version, err := sqliteadapter.SchemaVersion(ctx, db); err == nil {
		log.Printf("database %s at schema version %d", cfg.dbPath, version)
	}

	notifiers := notify.Fanout{notify.LogNotifier{Sender: cfg.notifySender}}
	var hub *notify.Hub
	if cfg.liveEvents {
		hub = notify.NewHub()
		notifiers = append(notifiers, hub)
	}

	repo := sqliteadapter.NewRepository(db)
	service := application.NewService(repo, application.WithNotifier(notifiers))
	if err := service.BootstrapAdmin(ctx, cfg.bootstrapEmail, cfg.bootstrapPassword); err != nil {
		return err
	}

	router := httpadapter.NewRouter(service, hub)
	srv := &http.Server{Addr: cfg.addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	rpcSrv, err := rpcadapter.Start(cfg.rpcSocket, service)
	if err != nil {
		return err
	}

	defer func() {
		_ = rpcSrv.Close()
	}()
	log.Printf("json-rpc listening on unix://%s", cfg.rpcSocket)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("received signal %s, shutting down", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "output raw JSON"}
}

// runOp loads the client config, runs the operation built from the flags and
// prints the decoded result.
func runOp[T any](build func(c *cli.Command) (operation, error), show func(T)) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		op, err := build(c)
		if err != nil {
			return err
		}
		var out T
		if err := op.run(ctx, cfg, &out); err != nil {
			return err
		}
		if c.Bool("json") {
			return printJSON(out)
		}
		show(out)
		return nil
	}
}

func optUint(c *cli.Command, name string) *uint {
	if !c.IsSet(name) {
		return nil
	}
	v := uint(c.Uint(name))
	return &v
}

func idPath(prefix string, c *cli.Command, suffix string) string {
	return prefix + "/" + uintToString(uint(c.Uint("id"))) + suffix
}

func idFlag(usage string) cli.Flag {
	return &cli.UintFlag{Name: "id", Required: true, Usage: usage}
}

func printOK(what string) func(map[string]any) {
	return func(map[string]any) { fmt.Println(what) }
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authentication commands",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Login and store CLI token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "transport", Value: "uds", Sources: cli.EnvVars("ASSETCTL_TRANSPORT")},
					&cli.StringFlag{Name: "server", Value: defaultServer, Sources: cli.EnvVars("ASSETCTL_SERVER")},
					&cli.StringFlag{Name: "socket", Value: defaultSocket, Sources: cli.EnvVars("ASSETCTL_SOCKET")},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true, Sources: cli.EnvVars("ASSETCTL_PASSWORD")},
					&cli.StringFlag{Name: "token-name", Value: "cli"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg := cliConfig{Transport: c.String("transport"), Server: c.String("server"), Socket: c.String("socket")}
					var out struct {
						Token string `json:"token"`
						Email string `json:"email"`
						Role  string `json:"role"`
					}
					err := doLogin(ctx, cfg, c.String("email"), c.String("password"), c.String("token-name"), &out)
					if err != nil {
						return err
					}
					cfg.Token = out.Token
					if err := saveConfig(cfg); err != nil {
						return err
					}
					fmt.Printf("logged in as %s (%s)\n", out.Email, out.Role)
					return nil
				},
			},
			{
				Name:  "whoami",
				Usage: "Show current authenticated user",
				Flags: []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out struct {
						ID         uint   `json:"id"`
						Email      string `json:"email"`
						Name       string `json:"name"`
						Department string `json:"department"`
						Role       string `json:"role"`
					}
					if err := doWhoAmI(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printKV([][2]string{{"id", uintToString(out.ID)}, {"email", out.Email}, {"name", out.Name}, {"department", orDash(out.Department)}, {"role", out.Role}})
					return nil
				},
			},
			{
				Name:  "logout",
				Usage: "Clear local CLI auth token",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					_ = doLogout(ctx, cfg)
					cfg.Token = ""
					if err := saveConfig(cfg); err != nil {
						return err
					}
					fmt.Println("logged out")
					return nil
				},
			},
		},
	}
}

func assetFilterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "status"},
		&cli.StringFlag{Name: "category"},
		&cli.StringFlag{Name: "department"},
		&cli.StringFlag{Name: "q"},
		&cli.IntFlag{Name: "limit"},
	}
}

func assetFilter(c *cli.Command) map[string]any {
	return map[string]any{
		"status":     c.String("status"),
		"category":   c.String("category"),
		"department": c.String("department"),
		"q":          c.String("q"),
		"limit":      c.Int("limit"),
	}
}

func assetsCommand() *cli.Command {
	return &cli.Command{
		Name:  "assets",
		Usage: "Asset registry commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List assets",
				Flags: append(assetFilterFlags(), jsonFlag()),
				Action: runOp(func(c *cli.Command) (operation, error) {
					return operation{rpc: "assets.list", method: http.MethodGet, path: "/api/assets", params: assetFilter(c)}, nil
				}, printAssets),
			},
			{
				Name:  "get",
				Usage: "Show one asset",
				Flags: []cli.Flag{idFlag("asset id"), jsonFlag()},
				Action: runOp(func(c *cli.Command) (operation, error) {
					return operation{rpc: "assets.get", method: http.MethodGet, path: idPath("/api/assets", c, ""), params: map[string]any{"id": c.Uint("id")}}, nil
				}, printAsset),
			},
			{
				Name:  "create",
				Usage: "Register an asset",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "tag", Required: true},
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "category", Required: true},
					&cli.StringFlag{Name: "department"},
					&cli.StringFlag{Name: "location"},
					&cli.StringFlag{Name: "purchase-date", Usage: "YYYY-MM-DD"},
					&cli.StringFlag{Name: "purchase-cost", Usage: "decimal amount"},
					&cli.StringFlag{Name: "warranty-end", Usage: "YYYY-MM-DD"},
					&cli.StringSliceFlag{Name: "spec", Usage: "key=value, repeatable"},
					jsonFlag(),
				},
				Action: runOp(func(c *cli.Command) (operation, error) {
					specs, err := parseSpecFlags(c.StringSlice("spec"))
					if err != nil {
						return operation{}, err
					}
					params := map[string]any{
						"tag":           c.String("tag"),
						"name":          c.String("name"),
						"category":      c.String("category"),
						"department":    c.String("department"),
						"location":      c.String("location"),
						"purchase_date": c.String("purchase-date"),
						"warranty_end":  c.String("warranty-end"),
						"specs":         specs,
					}
					if raw := c.String("purchase-cost"); raw != "" {
						cost, err := parseCost(raw)
						if err != nil {
							return operation{}, err
						}
						params["purchase_cost"] = cost
					}
					return operation{rpc: "assets.create", method: http.MethodPost, path: "/api/assets", params: params}, nil
				}, printAsset),
			},
			{
				Name:  "retire",
				Usage: "Retire an asset",
				Flags: []cli.Flag{idFlag("asset id"), &cli.StringFlag{Name: "reason", Required: true}, jsonFlag()},
				Action: runOp(func(c *cli.Command) (operation, error) {
					return operation{rpc: "assets.retire", method: http.MethodPost, path: idPath("/api/assets", c, "/retire"), params: map[string]any{"id": c.Uint("id"), "reason": c.String("reason")}}, nil
				}, printAsset),
			},
			{
				Name:  "maintenance",
				Usage: "Asset maintenance",
				Commands: []*cli.Command{
					{
						Name:  "start",
						Usage: "Send an asset to maintenance, or queue it while allocated",
						Flags: []cli.Flag{idFlag("asset id"), &cli.StringFlag{Name: "reason", Required: true}, jsonFlag()},
						Action: runOp(func(c *cli.Command) (operation, error) {
							return operation{rpc: "assets.maintenance.start", method: http.MethodPost, path: idPath("/api/assets", c, "/maintenance"), params: map[string]any{"id": c.Uint("id"), "reason": c.String("reason")}}, nil
						}, func(r domain.MaintenanceRecord) { printMaintenance([]domain.MaintenanceRecord{r}) }),
					},
					{
						Name:  "finish",
						Usage: "Close open maintenance",
						Flags: []cli.Flag{idFlag("asset id"), &cli.StringFlag{Name: "resolution", Required: true}, &cli.BoolFlag{Name: "retire"}, jsonFlag()},
						Action: runOp(func(c *cli.Command) (operation, error) {
							return operation{rpc: "assets.maintenance.finish", method: http.MethodPost, path: idPath("/api/assets", c, "/maintenance/finish"), params: map[string]any{"id": c.Uint("id"), "resolution": c.String("resolution"), "retire": c.Bool("retire")}}, nil
						}, func(r domain.MaintenanceRecord) { printMaintenance([]domain.MaintenanceRecord{r}) }),
					},
					{
						Name:  "list",
						Usage: "Maintenance records of an asset",
						Flags: []cli.Flag{idFlag("asset id"), &cli.IntFlag{Name: "limit"}, jsonFlag()},
						Action: runOp(func(c *cli.Command) (operation, error) {
							return operation{rpc: "assets.maintenance.list", method: http.MethodGet, path: idPath("/api/assets", c, "/maintenance"), params: map[string]any{"id": c.Uint("id"), "limit": c.Int("limit")}}, nil
						}, printMaintenance),
					},
				},
			},
			importCommand("assets"),
			exportCommand("assets", assetFilterFlags(), assetFilter),
			templateCommand("assets", tabular.AssetImportHeader),
		},
	}
}

func requestsCommand() *cli.Command {
	payloadFlags := func(required bool) []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "category", Required: required},
			&cli.IntFlag{Name: "quantity", Value: 1},
			&cli.StringFlag{Name: "specification", Required: required},
			&cli.StringFlag{Name: "department"},
			&cli.StringFlag{Name: "location"},
			&cli.StringFlag{Name: "type", Usage: "regular or express"},
			&cli.StringFlag{Name: "expected-delivery", Usage: "YYYY-MM-DD"},
		}
	}
	payload := func(c *cli.Command) map[string]any {
		params := map[string]any{
			"category":          c.String("category"),
			"quantity":          c.Int("quantity"),
			"specification":     c.String("specification"),
			"department":        c.String("department"),
			"location":          c.String("location"),
			"request_type":      c.String("type"),
			"expected_delivery": c.String("expected-delivery"),
		}
		if c.IsSet("id") {
			params["id"] = c.Uint("id")
		}
		return params
	}
	simple := func(name, usage, rpc, suffix string) *cli.Command {
		return &cli.Command{
			Name:  name,
			Usage: usage,
			Flags: []cli.Flag{idFlag("request id"), jsonFlag()},
			Action: runOp(func(c *cli.Command) (operation, error) {
				return operation{rpc: rpc, method: http.MethodPost, path: idPath("/api/requests", c, suffix), params: map[string]any{"id": c.Uint("id")}}, nil
			}, printRequest),
		}
	}
	return &cli.Command{
		Name:  "requests",
		Usage: "Asset request workflow",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List requests",
				Flags: []cli.Flag{&cli.StringFlag{Name: "status"}, &cli.StringFlag{Name: "department"}, &cli.UintFlag{Name: "requester-id"}, &cli.IntFlag{Name: "limit"}, jsonFlag()},
				Action: runOp(func(c *cli.Command) (operation, error) {
					return operation{rpc: "requests.list", method: http.MethodGet, path: "/api/requests", params: map[string]any{
						"status": c.String("status"), "department": c.String("department"), "requester_id": optUint(c, "requester-id"), "limit": c.Int("limit"),
					}}, nil
				}, printRequests),
			},
			{
				Name:  "get",
				Usage: "Show one request",
				Flags: []cli.Flag{idFlag("request id"), jsonFlag()},
				Action: runOp(func(c *cli.Command) (operation, error) {
					return operation{rpc: "requests.get", method: http.MethodGet, path: idPath("/api/requests", c, ""), params: map[string]any{"id": c.Uint("id")}}, nil
				}, printRequest),
			},
			{
				Name:  "submit",
				Usage: "Submit a new request",
				Flags: append(payloadFlags(true), jsonFlag()),
				Action: runOp(func(c *cli.Command) (operation, error) {
					return operation{rpc: "requests.submit", method: http.MethodPost, path: "/api/requests", params: payload(c)}, nil
				}, printRequest),
			},
			{
				Name:  "edit",
				Usage: "Edit a pending request",
				Flags: append(payloadFlags(true), idFlag("request id"), jsonFlag()),
				Action: runOp(func(c *cli.Command) (operation, error) {
					return operation{rpc: "requests.edit", method: http.MethodPut, path: idPath("/api/requests", c, ""), params: payload(c)}, nil
				}, printRequest),
			},
			{
				Name:  "delete",
				Usage: "Delete a request and its history",
				Flags: []cli.Flag{idFlag("request id"), jsonFlag()},
				Action: runOp(func(c *cli.Command) (operation, error) {
					return operation{rpc: "requests.delete", method: http.MethodDelete, path: idPath("/api/requests", c, ""), params: map[string]any{"id": c.Uint("id")}}, nil
				}, printOK("deleted")),
			},
			simple("approve", "Approve a pending request", "requests.approve", "/approve"),
			{
				Name:  "reject",
				Usage: "Reject a pending request",
				Flags: []cli.Flag{idFlag("request id"), &cli.StringFlag{Name: "reason", Required: true}, jsonFlag()},
				Action: runOp(func(c *cli.Command) (operation, error) {
					return operation{rpc: "requests.reject", method: http.MethodPost, path: idPath("/api/requests", c, "/reject"), params: map[string]any{"id": c.Uint("id"), "reason": c.String("reason")}}, nil
				}, printRequest),
			},
			simple("procure", "Start procurement for an approved request", "requests.procure", "/procure"),
			{
				Name:  "fulfill",
				Usage: "Allocate assets to the requester and fulfill the request",
				Flags: []cli.Flag{idFlag("request id"), &cli.UintSliceFlag{Name: "asset-id", Required: true}, &cli.StringFlag{Name: "condition"}, jsonFlag()},
				Action: runOp(func(c *cli.Command) (operation, error) {
					return operation{rpc: "requests.fulfill", method: http.MethodPost, path: idPath("/api/requests", c, "/fulfill"), params: map[string]any{
						"id": c.Uint("id"), "asset_ids": c.UintSlice("asset-id"), "condition": c.String("condition"),
					}}, nil
				}, func(out struct {
					Request     domain.RequestView  `json:"request"`
					Allocations []domain.Allocation `json:"allocations"`
				}) {
					printRequest(out.Request)
					for _, a := range out.Allocations {
						fmt.Println()
						printAllocation(a)
					}
				}),
			},
			subjectHistoryCommand("requests", domain.SubjectRequest),
		},
	}
}

func allocationsCommand() *cli.Command {
	return &cli.Command{
		Name:  "allocations",
		Usage: "Allocation ledger",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List allocations",
				Flags: []cli.Flag{&cli.UintFlag{Name: "asset-id"}, &cli.UintFlag{Name: "employee-id"}, &cli.StringFlag{Name: "department"}, &cli.StringFlag{Name: "status"}, &cli.IntFlag{Name: "limit"}, jsonFlag()},
				Action: runOp(func(c *cli.Command) (operation, error) {
					return operation{rpc: "allocations.list", method: http.MethodGet, path: "/api/allocations", params: map[string]any{
						"asset_id": optUint(c, "asset-id"), "employee_id": optUint(c, "employee-id"), "department": c.String("department"), "status": c.String("status"), "limit": c.Int("limit"),
					}}, nil
				}, printAllocations),
			},
			{
				Name:  "get",
				Usage: "Show one allocation",
				Flags: []cli.Flag{idFlag("allocation id"), jsonFlag()},
				Action: runOp(func(c *cli.Command) (operation, error) {
					return operation{rpc: "allocations.get", method: http.MethodGet, path: idPath("/api/allocations", c, ""), params: map[string]any{"id": c.Uint("id")}}, nil
				}, printAllocation),
			},
			{
				Name:  "create",
				Usage: "Allocate an available asset to an employee",
				Flags: []cli.Flag{&cli.UintFlag{Name: "asset-id", Required: true}, &cli.UintFlag{Name: "employee-id", Required: true}, &cli.StringFlag{Name: "condition"}, &cli.StringFlag{Name: "notes"}, &cli.UintFlag{Name: "request-id"}, jsonFlag()},
				Action: runOp(func(c *cli.Command) (operation, error) {
					return operation{rpc: "allocations.create", method: http.MethodPost, path: "/api/allocations", params: map[string]any{
						"asset_id": c.Uint("asset-id"), "employee_id": c.Uint("employee-id"), "condition": c.String("condition"), "notes": c.String("notes"), "request_id": optUint(c, "request-id"),
					}}, nil
				}, printAllocation),
			},
			{
				Name:  "return",
				Usage: "Return an active allocation",
				Flags: []cli.Flag{idFlag("allocation id"), &cli.StringFlag{Name: "condition", Required: true}, &cli.StringFlag{Name: "notes"}, jsonFlag()},
				Action: runOp(func(c *cli.Command) (operation, error) {
					return operation{rpc: "allocations.return", method: http.MethodPost, path: idPath("/api/allocations", c, "/return"), params: map[string]any{
						"id": c.Uint("id"), "condition": c.String("condition"), "notes": c.String("notes"),
					}}, nil
				}, printAllocation),
			},
			{
				Name:  "transfer",
				Usage: "Move an active allocation to another employee",
				Flags: []cli.Flag{idFlag("allocation id"), &cli.UintFlag{Name: "employee-id", Required: true}, &cli.StringFlag{Name: "condition"}, &cli.StringFlag{Name: "notes"}, jsonFlag()},
				Action: runOp(func(c *cli.Command) (operation, error) {
					return operation{rpc: "allocations.transfer", method: http.MethodPost, path: idPath("/api/allocations", c, "/transfer"), params: map[string]any{
						"id": c.Uint("id"), "employee_id": c.Uint("employee-id"), "condition": c.String("condition"), "notes": c.String("notes"),
					}}, nil
				}, printAllocation),
			},
			subjectHistoryCommand("allocations", domain.SubjectAllocation),
		},
	}
}

func ticketsCommand() *cli.Command {
	payloadFlags := func() []cli.Flag {
		return []cli.Flag{
			&cli.UintFlag{Name: "asset-id", Required: true},
			&cli.StringFlag{Name: "title", Required: true},
			&cli.StringFlag{Name: "description", Required: true},
			&cli.StringFlag{Name: "priority", Value: "medium"},
			&cli.StringFlag{Name: "category", Required: true},
			&cli.StringFlag{Name: "department"},
			&cli.StringFlag{Name: "location"},
			&cli.StringFlag{Name: "deadline", Usage: "YYYY-MM-DD"},
			&cli.StringFlag{Name: "attachment", Usage: "path to a PDF; only its metadata is sent"},
		}
	}
	payload := func(c *cli.Command) (map[string]any, error) {
		params := map[string]any{
			"asset_id":    c.Uint("asset-id"),
			"title":       c.String("title"),
			"description": c.String("description"),
			"priority":    c.String("priority"),
			"category":    c.String("category"),
			"department":  c.String("department"),
			"location":    c.String("location"),
			"deadline":    c.String("deadline"),
		}
		if c.IsSet("id") {
			params["id"] = c.Uint("id")
		}
		if path := c.String("attachment"); path != "" {
			meta, err := attachmentMeta(path)
			if err != nil {
				return nil, err
			}
			params["attachment"] = meta
		}
		return params, nil
	}
	printTicket := func(t domain.Ticket) { printTickets([]domain.Ticket{t}) }
	return &cli.Command{
		Name:  "tickets",
		Usage: "Ticket workflow",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List tickets",
				Flags: []cli.Flag{&cli.UintFlag{Name: "asset-id"}, &cli.UintFlag{Name: "assignee-id"}, &cli.StringFlag{Name: "department"}, &cli.StringFlag{Name: "status"}, &cli.IntFlag{Name: "limit"}, jsonFlag()},
				Action: runOp(func(c *cli.Command) (operation, error) {
					return operation{rpc: "tickets.list", method: http.MethodGet, path: "/api/tickets", params: map[string]any{
						"asset_id": optUint(c, "asset-id"), "assignee_id": optUint(c, "assignee-id"), "department": c.String("department"), "status": c.String("status"), "limit": c.Int("limit"),
					}}, nil
				}, printTickets),
			},
			{
				Name:  "get",
				Usage: "Show one ticket",
				Flags: []cli.Flag{idFlag("ticket id"), jsonFlag()},
				Action: runOp(func(c *cli.Command) (operation, error) {
					return operation{rpc: "tickets.get", method: http.MethodGet, path: idPath("/api/tickets", c, ""), params: map[string]any{"id": c.Uint("id")}}, nil
				}, printTicket),
			},
			{
				Name:  "create",
				Usage: "Open a ticket against an asset you hold",
				Flags: append(payloadFlags(), jsonFlag()),
				Action: runOp(func(c *cli.Command) (operation, error) {
					params, err := payload(c)
					if err != nil {
						return operation{}, err
					}
					return operation{rpc: "tickets.create", method: http.MethodPost, path: "/api/tickets", params: params}, nil
				}, printTicket),
			},
			{
				Name:  "edit",
				Usage: "Edit an open ticket",
				Flags: append(payloadFlags(), idFlag("ticket id"), jsonFlag()),
				Action: runOp(func(c *cli.Command) (operation, error) {
					params, err := payload(c)
					if err != nil {
						return operation{}, err
					}
					return operation{rpc: "tickets.edit", method: http.MethodPut, path: idPath("/api/tickets", c, ""), params: params}, nil
				}, printTicket),
			},
			{
				Name:  "status",
				Usage: "Move a ticket to another status",
				Flags: []cli.Flag{idFlag("ticket id"), &cli.StringFlag{Name: "to", Required: true}, &cli.StringFlag{Name: "remark"}, jsonFlag()},
				Action: runOp(func(c *cli.Command) (operation, error) {
					return operation{rpc: "tickets.status", method: http.MethodPost, path: idPath("/api/tickets", c, "/status"), params: map[string]any{
						"id": c.Uint("id"), "status": c.String("to"), "remark": c.String("remark"),
					}}, nil
				}, printTicket),
			},
			{
				Name:  "cancel",
				Usage: "Cancel your own open ticket",
				Flags: []cli.Flag{idFlag("ticket id"), &cli.StringFlag{Name: "reason", Required: true}, jsonFlag()},
				Action: runOp(func(c *cli.Command) (operation, error) {
					return operation{rpc: "tickets.cancel", method: http.MethodPost, path: idPath("/api/tickets", c, "/cancel"), params: map[string]any{"id": c.Uint("id"), "reason": c.String("reason")}}, nil
				}, printTicket),
			},
			{
				Name:  "assign",
				Usage: "Assign a ticket to a staff member",
				Flags: []cli.Flag{idFlag("ticket id"), &cli.UintFlag{Name: "assignee-id", Required: true}, jsonFlag()},
				Action: runOp(func(c *cli.Command) (operation, error) {
					return operation{rpc: "tickets.assign", method: http.MethodPost, path: idPath("/api/tickets", c, "/assign"), params: map[string]any{"id": c.Uint("id"), "assignee_id": c.Uint("assignee-id")}}, nil
				}, printTicket),
			},
			subjectHistoryCommand("tickets", domain.SubjectTicket),
		},
	}
}

func subjectHistoryCommand(resource string, subject domain.SubjectType) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show the history of one record",
		Flags: []cli.Flag{idFlag(string(subject) + " id"), jsonFlag()},
		Action: runOp(func(c *cli.Command) (operation, error) {
			return operation{rpc: "history.list", method: http.MethodGet, path: idPath("/api/"+resource, c, "/history"), params: map[string]any{
				"subject_type": string(subject), "subject_id": c.Uint("id"),
			}}, nil
		}, printHistory),
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Browse record history",
		Flags: []cli.Flag{&cli.StringFlag{Name: "subject-type", Usage: "asset, request, allocation or ticket"}, &cli.UintFlag{Name: "subject-id"}, &cli.IntFlag{Name: "limit"}, jsonFlag()},
		Action: runOp(func(c *cli.Command) (operation, error) {
			return operation{rpc: "history.list", method: http.MethodGet, path: "/api/history", params: map[string]any{
				"subject_type": c.String("subject-type"), "subject_id": optUint(c, "subject-id"), "limit": c.Int("limit"),
			}}, nil
		}, printHistory),
	}
}

func userFilterFlags() []cli.Flag {
	return []cli.Flag{&cli.StringFlag{Name: "q"}, &cli.StringFlag{Name: "department"}, &cli.StringFlag{Name: "role"}, &cli.IntFlag{Name: "limit"}}
}

func userFilter(c *cli.Command) map[string]any {
	return map[string]any{"q": c.String("q"), "department": c.String("department"), "role": c.String("role"), "limit": c.Int("limit")}
}

func usersCommand() *cli.Command {
	printUser := func(u domain.User) { printUsers([]domain.User{u}) }
	return &cli.Command{
		Name:  "users",
		Usage: "Users and roles",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List users",
				Flags: append(userFilterFlags(), jsonFlag()),
				Action: runOp(func(c *cli.Command) (operation, error) {
					return operation{rpc: "users.list", method: http.MethodGet, path: "/api/users", params: userFilter(c)}, nil
				}, printUsers),
			},
			{
				Name:  "get",
				Usage: "Show one user",
				Flags: []cli.Flag{idFlag("user id"), jsonFlag()},
				Action: runOp(func(c *cli.Command) (operation, error) {
					return operation{rpc: "users.get", method: http.MethodGet, path: idPath("/api/users", c, ""), params: map[string]any{"id": c.Uint("id")}}, nil
				}, printUser),
			},
			{
				Name:  "create",
				Usage: "Create user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "employee-code"},
					&cli.StringFlag{Name: "department"},
					&cli.StringFlag{Name: "location"},
					&cli.StringFlag{Name: "role", Value: string(domain.RoleUser)},
					jsonFlag(),
				},
				Action: runOp(func(c *cli.Command) (operation, error) {
					return operation{rpc: "users.create", method: http.MethodPost, path: "/api/users", params: map[string]any{
						"email": c.String("email"), "password": c.String("password"), "name": c.String("name"),
						"employee_code": c.String("employee-code"), "department": c.String("department"),
						"location": c.String("location"), "role": c.String("role"),
					}}, nil
				}, printUser),
			},
			{
				Name:  "role",
				Usage: "Change a user's role",
				Flags: []cli.Flag{idFlag("user id"), &cli.StringFlag{Name: "role", Required: true}, &cli.StringFlag{Name: "department"}, jsonFlag()},
				Action: runOp(func(c *cli.Command) (operation, error) {
					return operation{rpc: "users.role", method: http.MethodPost, path: idPath("/api/users", c, "/role"), params: map[string]any{
						"id": c.Uint("id"), "role": c.String("role"), "department": c.String("department"),
					}}, nil
				}, printUser),
			},
			{
				Name:  "department-head",
				Usage: "Make a user the head of a department",
				Flags: []cli.Flag{idFlag("user id"), &cli.StringFlag{Name: "department", Required: true}, jsonFlag()},
				Action: runOp(func(c *cli.Command) (operation, error) {
					return operation{rpc: "users.department_head", method: http.MethodPost, path: idPath("/api/users", c, "/department-head"), params: map[string]any{
						"id": c.Uint("id"), "department": c.String("department"),
					}}, nil
				}, printUser),
			},
			importCommand("users"),
			exportCommand("users", userFilterFlags(), userFilter),
			templateCommand("users", tabular.UserImportHeader),
		},
	}
}

func settingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "System settings",
		Commands: []*cli.Command{
			{
				Name:  "notifications",
				Usage: "Show notification settings",
				Flags: []cli.Flag{jsonFlag()},
				Action: runOp(func(c *cli.Command) (operation, error) {
					return operation{rpc: "settings.notifications.get", method: http.MethodGet, path: "/api/settings/notifications"}, nil
				}, printNotificationSettings),
				Commands: []*cli.Command{
					{
						Name:  "set",
						Usage: "Replace notification settings",
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "enabled", Value: true},
							&cli.StringFlag{Name: "sender"},
							&cli.StringSliceFlag{Name: "event", Usage: "event type to deliver, repeatable; none means all"},
							jsonFlag(),
						},
						Action: runOp(func(c *cli.Command) (operation, error) {
							return operation{rpc: "settings.notifications.set", method: http.MethodPut, path: "/api/settings/notifications", params: map[string]any{
								"enabled": c.Bool("enabled"), "sender_address": c.String("sender"), "events": c.StringSlice("event"),
							}}, nil
						}, printNotificationSettings),
					},
				},
			},
		},
	}
}

func auditCommand() *cli.Command {
	return &cli.Command{
		Name:  "audit",
		Usage: "Audit log commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List audit logs",
				Flags: []cli.Flag{&cli.IntFlag{Name: "limit", Value: 200}, jsonFlag()},
				Action: runOp(func(c *cli.Command) (operation, error) {
					return operation{rpc: "audit.list", method: http.MethodGet, path: "/api/audit/logs", params: map[string]any{"limit": c.Int("limit")}}, nil
				}, printAuditRecords),
			},
		},
	}
}

func importCommand(resource string) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import " + resource + " from a CSV file",
		Flags: []cli.Flag{&cli.StringFlag{Name: "file", Required: true}, jsonFlag()},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(c.String("file"))
			if err != nil {
				return err
			}
			var report application.ImportReport
			if err := doImport(ctx, cfg, resource, data, &report); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(report)
			}
			printImportReport(report)
			return nil
		},
	}
}

func exportCommand(resource string, flags []cli.Flag, filter func(*cli.Command) map[string]any) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export " + resource + " as CSV",
		Flags: append(flags, &cli.StringFlag{Name: "out", Usage: "output file; stdout when empty"}),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			data, err := doExport(ctx, cfg, resource, filter(c))
			if err != nil {
				return err
			}
			if out := c.String("out"); out != "" {
				return os.WriteFile(out, data, 0o644)
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}
}

func templateCommand(resource string, header []string) *cli.Command {
	return &cli.Command{
		Name:  "template",
		Usage: "Print the CSV header expected by " + resource + " import",
		Action: func(ctx context.Context, c *cli.Command) error {
			w := csv.NewWriter(os.Stdout)
			if err := w.Write(header); err != nil {
				return err
			}
			w.Flush()
			return w.Error()
		},
	}
}
