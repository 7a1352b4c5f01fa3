package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/figdraw/figdraw/internal/auth"
	"github.com/figdraw/figdraw/internal/collab"
	"github.com/figdraw/figdraw/internal/config"
	mw "github.com/figdraw/figdraw/internal/middleware"
	"github.com/figdraw/figdraw/internal/project"
	"github.com/figdraw/figdraw/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level, _ := cfg.Level()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	defaults, err := cfg.Defaults()
	if err != nil {
		return fmt.Errorf("load defaults: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	authService := auth.NewService(st, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService, slog.Default())

	projectService := project.NewService(st, defaults)
	projectHandler := project.NewHandler(projectService, slog.Default())

	hub := collab.NewHub(collab.NewStorePersistence(st), collab.Config{
		HistoryCapacity: cfg.HistoryCapacity,
		SaveInterval:    cfg.SaveInterval,
		Defaults:        defaults,
	})

	r := mux.NewRouter()
	r.Use(mw.Recovery, mw.Logger, mw.CORS(cfg.Origins()))

	r.HandleFunc("/auth/register", authHandler.Register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		auth.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)
	api.HandleFunc("/me", authHandler.Me).Methods(http.MethodGet)
	projectHandler.Routes(api)

	ws := &wsHandler{
		hub:      hub,
		auth:     authService,
		projects: projectService,
		origins:  cfg.OriginHosts(),
	}
	r.Handle("/ws/project/{projectId}", ws)

	// Preflight requests carry no token; CORS answers them.
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		slog.Info("server starting", "addr", srv.Addr, "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	if cfg.Store == "memory" {
		slog.Warn("using in-memory store, data is lost on exit")
		return store.NewMemory(), func() {}, nil
	}

	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	pg := store.NewPostgres(pool)
	if err := pg.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pg, pool.Close, nil
}

type wsHandler struct {
	hub      *collab.Hub
	auth     *auth.Service
	projects *project.Service
	origins  []string
}

func (h *wsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["projectId"]

	userID, displayName, status, err := h.identify(r, projectID)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := collab.NewClient(h.hub, conn, userID, displayName, projectID, uuid.NewString())
	if err := h.hub.Register(client); err != nil {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

// identify authenticates the connection. The playground is open to
// anonymous users; every other project needs a member's token.
func (h *wsHandler) identify(r *http.Request, projectID string) (userID, displayName string, status int, err error) {
	if projectID == collab.PlaygroundProjectID {
		return "anon-" + uuid.NewString()[:8], "Anonymous", 0, nil
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		return "", "", http.StatusUnauthorized, errors.New("missing token")
	}
	userID, err = h.auth.ValidateToken(token)
	if err != nil {
		return "", "", http.StatusUnauthorized, errors.New("invalid token")
	}

	if err := h.projects.CheckMembership(r.Context(), projectID, userID); err != nil {
		if errors.Is(err, project.ErrNotMember) {
			return "", "", http.StatusForbidden, errors.New("not a project member")
		}
		slog.Error("check membership", "error", err, "project", projectID)
		return "", "", http.StatusInternalServerError, errors.New("internal error")
	}

	user, err := h.auth.GetUser(r.Context(), userID)
	if err != nil {
		slog.Error("get user", "error", err, "user", userID)
		return "", "", http.StatusInternalServerError, errors.New("user not found")
	}
	return userID, user.DisplayName, 0, nil
}
