package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/alecthomas/units"
	"github.com/canopy-network/stakebatch/controller"
	"github.com/canopy-network/stakebatch/fsm"
	"github.com/canopy-network/stakebatch/lib"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"golang.org/x/time/rate"
)

const (
	colon = ":"

	SoftwareVersion = "0.1.0"
	ContentType     = "Content-Type"
	ApplicationJSON = "application/json; charset=utf-8"
	RequestIdHeader = "X-Request-Id"
)

// Server serves the query, transaction and admin APIs of a settlement engine
type Server struct {
	// the engine controller
	controller *controller.Controller
	// the engine configuration
	config lib.Config
	// the running http servers
	servers []*http.Server
	logger  lib.LoggerI
	sync.Mutex
}

// NewServer constructs and returns a new RPC server
func NewServer(controller *controller.Controller, config lib.Config, logger lib.LoggerI) *Server {
	return &Server{
		controller: controller,
		config:     config,
		logger:     logger,
	}
}

// Start initializes the query and admin RPC servers
func (s *Server) Start() {
	go s.startRPC(createRouter(s), s.config.RPCPort)
	go s.startRPC(createAdminRouter(s), s.config.AdminPort)
}

// Stop gracefully shuts down the RPC servers
func (s *Server) Stop(ctx context.Context) {
	s.Lock()
	defer s.Unlock()
	for _, srv := range s.servers {
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Errorf("RPC server %s shutdown failed with err: %s", srv.Addr, err.Error())
		}
	}
}

// startRPC starts an RPC server with the provided router and port
func (s *Server) startRPC(router *httprouter.Router, port string) {
	srv := &http.Server{Addr: colon + port, Handler: s.handler(router)}
	s.Lock()
	s.servers = append(s.servers, srv)
	s.Unlock()
	s.logger.Infof("Starting RPC server at 0.0.0.0:%s", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Errorf("RPC server at %s stopped with err: %s", port, err.Error())
	}
}

// handler wraps the router with the CORS policy, the rate limit and a default timeout
func (s *Server) handler(router *httprouter.Router) http.Handler {
	cor := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS", "POST"},
	})
	timeout := time.Duration(s.config.TimeoutS) * time.Second
	return cor.Handler(newRateLimiter(s.config.RPCConfig).Handler(http.TimeoutHandler(router, timeout, lib.ErrServerTimeout().Error())))
}

// rateLimiter rejects requests above the configured rate with 429
type rateLimiter struct{ *rate.Limiter }

func newRateLimiter(c lib.RPCConfig) *rateLimiter {
	if c.RateLimit <= 0 {
		return &rateLimiter{rate.NewLimiter(rate.Inf, 0)}
	}
	return &rateLimiter{rate.NewLimiter(rate.Limit(c.RateLimit), max(c.RateBurst, 1))}
}

func (l *rateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow() {
			write(w, newErrorResponse(lib.ErrRateLimited()), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// logHandler tags every request with an id and logs it
type logHandler struct {
	path   string
	h      httprouter.Handle
	logger lib.LoggerI
}

func (h logHandler) Handle(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	id := r.Header.Get(RequestIdHeader)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(RequestIdHeader, id)
	start := time.Now()
	h.h(w, r, p)
	h.logger.Debugf("%s %s [%s] took %s", r.Method, h.path, id, time.Since(start))
}

// update runs a mutating engine operation and responds with its result
func (s *Server) update(w http.ResponseWriter, op func(sm *fsm.StateMachine) (any, lib.ErrorI)) {
	var result any
	if err := s.controller.Update(func(sm *fsm.StateMachine) (err lib.ErrorI) {
		result, err = op(sm)
		return
	}); err != nil {
		writeErr(w, err)
		return
	}
	write(w, result, http.StatusOK)
}

// view runs a read only engine operation and responds with its result
func (s *Server) view(w http.ResponseWriter, op func(sm *fsm.StateMachine) (any, lib.ErrorI)) {
	var result any
	if err := s.controller.View(func(sm *fsm.StateMachine) (err lib.ErrorI) {
		result, err = op(sm)
		return
	}); err != nil {
		writeErr(w, err)
		return
	}
	write(w, result, http.StatusOK)
}

// unmarshal the request body into ptr; an empty body leaves ptr untouched
func unmarshal(w http.ResponseWriter, r *http.Request, ptr any) bool {
	defer func() { _ = r.Body.Close() }()
	bz, err := io.ReadAll(io.LimitReader(r.Body, int64(units.MB)))
	if err != nil {
		writeErr(w, lib.ErrReadBody(err))
		return false
	}
	if len(bz) == 0 {
		return true
	}
	if err = json.Unmarshal(bz, ptr); err != nil {
		writeErr(w, lib.ErrJSONUnmarshal(err))
		return false
	}
	return true
}

// write marshaled payload to w
func write(w http.ResponseWriter, payload any, code int) {
	w.Header().Set(ContentType, ApplicationJSON)
	w.WriteHeader(code)
	bz, _ := json.MarshalIndent(payload, "", "  ")
	_, _ = w.Write(bz)
}

// writeErr responds with the error and the status of its kind
func writeErr(w http.ResponseWriter, err lib.ErrorI) {
	write(w, newErrorResponse(err), statusFor(err))
}
