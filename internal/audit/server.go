// Copyright 2023 OpenIDSR Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package audit

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/openidsr/surveillance-server/internal/middleware"
	"github.com/openidsr/surveillance-server/pkg/logging"
	"github.com/openidsr/surveillance-server/pkg/render"
)

// Server exposes the audit agent over HTTP for operator-triggered runs.
type Server struct {
	agent *Agent
	h     *render.Renderer
}

// NewServer wraps the agent with its HTTP surface.
func NewServer(agent *Agent) *Server {
	return &Server{
		agent: agent,
		h:     render.NewRenderer(),
	}
}

// Routes returns the router for this server.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.PopulateRequestID())
	r.Use(middleware.PopulateLogger(logging.DefaultLogger()))
	r.Use(middleware.Recovery())
	r.Handle("/health", http.HandlerFunc(s.handleHealth)).Methods(http.MethodGet)
	r.Handle("/v1/audit", http.HandlerFunc(s.handleRun)).Methods(http.MethodPost)
	r.Handle("/v1/findings", http.HandlerFunc(s.handleFindings)).Methods(http.MethodGet)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.h.RenderJSON(w, http.StatusOK, nil)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var scope []string
	if raw := strings.TrimSpace(r.URL.Query().Get("scope")); raw != "" {
		scope = strings.Split(raw, ",")
	}

	report, err := s.agent.RunAudit(ctx, scope)
	if err != nil {
		logging.FromContext(ctx).Errorw("audit run failed", "error", err)
		s.h.RenderJSON(w, http.StatusInternalServerError, err)
		return
	}
	s.h.RenderJSON(w, http.StatusOK, report)
}

func (s *Server) handleFindings(w http.ResponseWriter, r *http.Request) {
	s.h.RenderJSON(w, http.StatusOK, s.agent.Findings())
}
