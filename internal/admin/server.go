// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/playreward/internal/auth"
	"github.com/ManuGH/playreward/internal/health"
	"github.com/ManuGH/playreward/internal/log"
	"github.com/ManuGH/playreward/internal/ratelimit"
	"github.com/ManuGH/playreward/internal/telemetry"
)

const maxBodyBytes = 64 << 10

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Token string
	// AllowAnonymous admits requests without a token when Token is empty.
	// Without it the API fails closed.
	AllowAnonymous bool
	// RequestsPerMinute limits each client address; 0 means 600.
	RequestsPerMinute int
	// NextPerMinute limits "next" per session; 0 means 6.
	NextPerMinute int
	// Health serves /healthz and /readyz when set.
	Health *health.Manager
}

// Server serves the command table.
type Server struct {
	cmds   *Commands
	cfg    ServerConfig
	next   *ratelimit.Limiter
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewServer creates the admin HTTP server.
func NewServer(cmds *Commands, cfg ServerConfig) *Server {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 600
	}
	if cfg.NextPerMinute <= 0 {
		cfg.NextPerMinute = 6
	}
	return &Server{
		cmds:   cmds,
		cfg:    cfg,
		next:   ratelimit.New(ratelimit.PerMinute(CmdNext, cfg.NextPerMinute)),
		tracer: telemetry.Tracer("playreward/admin"),
		logger: log.WithComponent("admin"),
	}
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(s.requestContext)

	if s.cfg.Health != nil {
		r.Get("/healthz", s.cfg.Health.ServeHealth)
		r.Get("/readyz", s.cfg.Health.ServeReady)
	} else {
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.Limit(
			s.cfg.RequestsPerMinute,
			time.Minute,
			httprate.WithKeyFuncs(func(r *http.Request) (string, error) { return ratelimit.ClientIP(r), nil }),
			httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "too many requests")
			}),
		))
		r.Use(s.authenticate)
		r.Get("/commands", s.handleNames)
		r.Post("/commands/{name}", s.handleCommand)
	})

	return otelhttp.NewHandler(r, "playreward-admin",
		otelhttp.WithFilter(func(r *http.Request) bool { return r.URL.Path != "/healthz" && r.URL.Path != "/readyz" }),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "HTTP " + r.Method + " " + r.URL.Path
		}),
	)
}

func (s *Server) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := log.ContextWithRequestID(r.Context(), chimw.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.WithContext(r.Context(), s.logger)

		if s.cfg.Token == "" {
			if !s.cfg.AllowAnonymous {
				logger.Error().Str(log.FieldEvent, "auth.fail_closed").Msg("admin token not set and anonymous access not allowed, denying")
				writeError(w, http.StatusUnauthorized, "unauthorized", "admin token required")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), auth.NewPrincipal(""))))
			return
		}

		token := auth.ExtractToken(r)
		if token == "" {
			logger.Warn().Str(log.FieldEvent, "auth.missing_header").Msg("authorization header missing")
			writeError(w, http.StatusUnauthorized, "unauthorized", "admin token required")
			return
		}
		if !auth.AuthorizeToken(token, s.cfg.Token) {
			logger.Warn().Str(log.FieldEvent, "auth.invalid_token").Msg("invalid admin token")
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid admin token")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), auth.NewPrincipal(token))))
	})
}

func (s *Server) handleNames(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"commands": s.cmds.Names()})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ctx, span := s.tracer.Start(r.Context(), "admin."+name)

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil || len(raw) > maxBodyBytes {
		telemetry.EndSpan(span, errors.New("body too large or unreadable"), "bad_request", telemetry.AdminAttributes(name, "rejected")...)
		writeError(w, http.StatusBadRequest, "bad_request", "request body too large or unreadable")
		return
	}

	if name == CmdNext {
		var args SessionArgs
		_ = json.Unmarshal(raw, &args)
		if !s.next.Allow(strconv.FormatUint(args.SessionID, 10)) {
			telemetry.EndSpan(span, nil, "", telemetry.AdminAttributes(name, "throttled")...)
			writeError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "next is limited per session")
			return
		}
	}

	logger := log.WithContext(ctx, s.logger).With().
		Str(log.FieldCommand, name).
		Str(log.FieldActor, actor(r)).
		Logger()

	res, err := s.cmds.Execute(ctx, name, raw)
	switch {
	case errors.Is(err, ErrUnknownCommand):
		telemetry.EndSpan(span, err, "unknown_command", telemetry.AdminAttributes(name, "rejected")...)
		writeError(w, http.StatusNotFound, "unknown_command", err.Error())
		return
	case err != nil:
		telemetry.EndSpan(span, err, "bad_arguments", telemetry.AdminAttributes(name, "rejected")...)
		writeError(w, http.StatusBadRequest, "bad_arguments", err.Error())
		return
	}

	status := http.StatusOK
	outcome := "ok"
	if !res.OK {
		status = http.StatusUnprocessableEntity
		outcome = "failed"
		logger.Warn().Str("result", res.Summary()).Msg("admin command failed")
	} else {
		logger.Info().Msg("admin command executed")
	}
	telemetry.EndSpan(span, nil, "", telemetry.AdminAttributes(name, outcome)...)
	if res.Lines == nil {
		res.Lines = []string{}
	}
	writeJSON(w, status, res)
}

func actor(r *http.Request) string {
	if p := auth.PrincipalFromContext(r.Context()); p != nil {
		return p.ID
	}
	return auth.AnonymousID
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, errorBody{Error: code, Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.L().Debug().Err(fmt.Errorf("encode response: %w", err)).Msg("admin response write failed")
	}
}
