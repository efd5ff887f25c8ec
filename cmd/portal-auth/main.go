package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	auth "github.com/goliatone/go-portal-auth"
	"github.com/goliatone/go-portal-auth/middleware/jwtware"
	"github.com/goliatone/go-portal-auth/repository"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	_ "github.com/lib/pq"
)

type App struct {
	config *auth.Options
	logger *glog.BaseLogger
	db     *bun.DB
	users  *repository.UserRepository
	srv    router.Server[*fiber.App]
	gate   *auth.Gate
	auther *auth.RouteAuthenticator
	tokens *auth.TokenServiceImpl
}

func (a *App) GetLogger(name string) auth.Logger {
	return logAdapter{l: a.logger.GetLogger(name)}
}

// logAdapter formats printf style messages for glog
type logAdapter struct {
	l glog.Logger
}

func (g logAdapter) Debug(format string, args ...any) { g.l.Debug(fmt.Sprintf(format, args...)) }
func (g logAdapter) Info(format string, args ...any)  { g.l.Info(fmt.Sprintf(format, args...)) }
func (g logAdapter) Warn(format string, args ...any)  { g.l.Warn(fmt.Sprintf(format, args...)) }
func (g logAdapter) Error(format string, args ...any) { g.l.Error(fmt.Sprintf(format, args...)) }

func main() {
	cfg, err := auth.LoadConfig(".env", ".env.local")
	if err != nil {
		fmt.Fprintf(os.Stderr, "portal-auth: configuration error: %v\n", err)
		os.Exit(1)
	}

	level := glog.Info
	if cfg.Debug {
		level = glog.Trace
	}

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(level),
		glog.WithName("portal-auth"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	if cfg.Debug {
		fmt.Println(print.MaybeHighlightJSON(cfg))
	}

	app := &App{config: cfg, logger: lgr}
	ctx := context.Background()

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithAuth(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	app.srv.Serve(cfg.Addr)

	sig := WaitExitSignal()
	app.GetLogger("app").Info("shutting down on %s", sig)
	_ = app.db.Close()
}

func WithPersistence(ctx context.Context, app *App) error {
	dsn := app.config.DatabaseDSN

	var db *bun.DB
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return err
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	} else {
		sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return err
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())
	}

	if err := db.PingContext(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryExternal, "database unreachable")
	}

	app.db = db
	app.users = repository.NewUserRepository(db)

	if err := app.users.EnsureSchema(ctx); err != nil {
		return err
	}

	return SeedAdmin(ctx, app)
}

// SeedAdmin creates the configured admin account when it does not exist yet
func SeedAdmin(ctx context.Context, app *App) error {
	email := app.config.SeedAdminEmail
	if email == "" {
		return nil
	}

	if _, err := app.users.GetByIdentifier(ctx, email); err == nil {
		return nil
	} else if !auth.IsIdentityNotFoundError(err) {
		return err
	}

	hash := auth.RandomPasswordHash()
	if pwd := app.config.SeedAdminPassword; pwd != "" {
		if res := auth.ValidatePasswordPolicy(pwd); !res.Valid {
			return errors.New("seed admin password: "+res.Reason, errors.CategoryValidation)
		}
		h, err := auth.HashPassword(pwd)
		if err != nil {
			return err
		}
		hash = h
	}

	user, err := app.users.Create(ctx, &auth.User{
		Email:        email,
		Name:         "Administrator",
		Role:         auth.RoleAdmin,
		PasswordHash: hash,
	})
	if err != nil {
		return err
	}

	app.GetLogger("seed").Info("seeded admin %s (%s)", user.Email, user.ID)
	return nil
}

func WithAuth(ctx context.Context, app *App) error {
	tokens, err := auth.NewTokenServiceFromConfig(app.config, app.GetLogger("tokens"))
	if err != nil {
		return err
	}
	app.tokens = tokens

	provider := auth.NewUserProvider(app.users).
		WithLogger(app.GetLogger("user_provider"))

	auther := auth.NewAuthenticator(provider, tokens).
		WithLogger(app.GetLogger("auther"))

	httpAuth, err := auth.NewHTTPAuthenticator(auther, app.config)
	if err != nil {
		return err
	}
	app.auther = httpAuth.WithLogger(app.GetLogger("http_auth"))

	gate, err := auth.NewGateFromConfig(app.config, tokens, provider,
		auth.WithGateLogger(app.GetLogger("gate")),
	)
	if err != nil {
		return err
	}
	app.gate = gate

	return nil
}

func WithHTTPServer(ctx context.Context, app *App) error {
	app.srv = router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: app.config.Debug,
			StrictRouting:     false,
		}))
	})

	r := app.srv.Router()
	r.WithLogger(app.logger.GetLogger("router"))

	r.Use(jwtware.New(jwtware.Config{
		Gate:             app.gate,
		ContextKey:       auth.DefaultLocalsKey,
		RejectedRouteKey: app.config.GetRejectedRouteKey(),
		SecureCookies:    app.config.GetSecureCookies(),
		Logger:           app.GetLogger("jwtware"),
	}))

	controller := auth.NewAuthController(app.auther, app.tokens,
		auth.WithControllerLogger(app.GetLogger("auth_controller")),
		auth.WithControllerDebug(app.config.Debug),
	)
	auth.RegisterAuthRoutes(r, controller)

	PageRoutes(app, r)

	return nil
}

// PageRoutes mounts placeholder pages for each policy tier
func PageRoutes[T any](app *App, r router.Router[T]) {
	page := func(title string) router.HandlerFunc {
		return func(ctx router.Context) error {
			who := "anonymous"
			if claims, ok := auth.GetRouterClaims(ctx, auth.DefaultLocalsKey); ok {
				who = fmt.Sprintf("%s (%s)", claims.Email(), claims.Role())
			}
			return ctx.Status(http.StatusOK).SendString(title + ": " + who)
		}
	}

	r.Get("/", page("home"))
	r.Get("/login", page("login"))
	r.Get("/signup", page("signup"))
	r.Get("/dashboard", page("dashboard"))
	r.Get("/admin", page("admin"))
	r.Post("/logout", func(ctx router.Context) error {
		app.auther.Logout(ctx)
		return ctx.Redirect("/login", http.StatusSeeOther)
	})
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
