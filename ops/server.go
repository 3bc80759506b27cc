// Package ops exposes a read-only HTTP surface over the finality and
// governance state for operators: the current finality pointers, the
// governor set, and individual proposal status. It never accepts a mutating
// request — Submit/Approve/Execute stay reachable only from the node's own
// consensus and transaction-processing code.
package ops

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"wakichain/finality"
	"wakichain/governance"
	"wakichain/ids"
	wakiotel "wakichain/observability/otel"
)

// TelemetryConfig selects which OpenTelemetry exporters EnableTelemetry
// turns on for this ops surface.
type TelemetryConfig struct {
	ServiceName string
	Environment string
	Endpoint    string
	Insecure    bool
	Traces      bool
	Metrics     bool
}

// EnableTelemetry configures the process-wide OpenTelemetry providers the
// otelhttp middleware in Router and any instrumented caller export through.
// Callers must invoke the returned shutdown function during teardown. With
// both Traces and Metrics false this only installs the propagator, which is
// always safe to call even without a reachable collector.
func EnableTelemetry(ctx context.Context, cfg TelemetryConfig) (func(context.Context) error, error) {
	return wakiotel.Init(ctx, wakiotel.Config{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.Endpoint,
		Insecure:    cfg.Insecure,
		Metrics:     cfg.Metrics,
		Traces:      cfg.Traces,
	})
}

// Server serves the read-only ops surface.
type Server struct {
	finality   *finality.Manager
	governance *governance.Engine
	jwtSecret  []byte
}

// NewServer builds a Server. jwtSecret authenticates the bearer token every
// request (other than /healthz) must present; a nil/empty secret disables
// authentication, which is only appropriate for a loopback-only deployment.
func NewServer(f *finality.Manager, g *governance.Engine, jwtSecret []byte) *Server {
	return &Server{finality: f, governance: g, jwtSecret: jwtSecret}
}

// Router builds the chi router backing this server, wrapped in an otelhttp
// handler so every request produces a trace span (component H's tracing
// surface: this HTTP boundary is instrumented even though the in-process
// finality/governance call paths are not, since those don't thread a
// context.Context through their hot path).
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/status/finality", s.handleFinalityStatus)
		r.Get("/status/governors", s.handleGovernors)
		r.Get("/status/proposals/{id}", s.handleProposalStatus)
	})
	return otelhttp.NewHandler(r, "wakichain.ops")
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// authenticate requires a valid HS256 bearer token when a jwtSecret is
// configured; it is a no-op otherwise.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.jwtSecret) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		_, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("ops: unexpected signing method %v", t.Header["alg"])
			}
			return s.jwtSecret, nil
		})
		if err != nil {
			http.Error(w, "invalid token: "+err.Error(), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type finalityStatusResponse struct {
	LocalHeight  uint64 `json:"local_height"`
	LocalHash    string `json:"local_hash"`
	GlobalHeight uint64 `json:"global_height"`
	GlobalHash   string `json:"global_hash"`
}

func (s *Server) handleFinalityStatus(w http.ResponseWriter, r *http.Request) {
	local := s.finality.LocalFinal()
	global := s.finality.GlobalFinal()
	writeJSON(w, http.StatusOK, finalityStatusResponse{
		LocalHeight:  local.Height,
		LocalHash:    local.Hash.String(),
		GlobalHeight: global.Height,
		GlobalHash:   global.Hash.String(),
	})
}

func (s *Server) handleGovernors(w http.ResponseWriter, r *http.Request) {
	governors, err := s.governance.Governors()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]string, 0, len(governors))
	for _, g := range governors {
		out = append(out, g.String())
	}
	writeJSON(w, http.StatusOK, out)
}

type proposalStatusResponse struct {
	ProposalId    string `json:"proposal_id"`
	Kind          string `json:"kind"`
	Status        string `json:"status"`
	Approvals     int    `json:"approvals"`
	CorrelationId string `json:"correlation_id"`
}

func (s *Server) handleProposalStatus(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	decoded, err := hex.DecodeString(raw)
	if err != nil || len(decoded) != len(ids.Hash256{}) {
		http.Error(w, "malformed proposal id", http.StatusBadRequest)
		return
	}
	var id ids.Hash256
	copy(id[:], decoded)

	p, found, err := s.governance.Proposal(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "proposal not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, proposalStatusResponse{
		ProposalId:    p.ProposalId.String(),
		Kind:          p.Kind.String(),
		Status:        p.Status.String(),
		Approvals:     len(p.Approvals),
		CorrelationId: p.CorrelationId,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
