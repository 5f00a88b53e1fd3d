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

package fusion

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/openidsr/surveillance-server/internal/middleware"
	"github.com/openidsr/surveillance-server/pkg/errkinds"
	"github.com/openidsr/surveillance-server/pkg/logging"
	"github.com/openidsr/surveillance-server/pkg/render"
)

// Server exposes the fusion engine over HTTP.
type Server struct {
	engine *Engine
	h      *render.Renderer
}

// NewServer wraps the engine with its HTTP surface.
func NewServer(engine *Engine) *Server {
	return &Server{
		engine: engine,
		h:      render.NewRenderer(),
	}
}

// Routes returns the router for this server.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.PopulateRequestID())
	r.Use(middleware.PopulateLogger(logging.DefaultLogger()))
	r.Use(middleware.Recovery())
	r.Handle("/health", http.HandlerFunc(s.handleHealth)).Methods(http.MethodGet)
	r.Handle("/v1/fuse", http.HandlerFunc(s.handleFuse)).Methods(http.MethodPost)
	r.Handle("/v1/timeline/{subject_id}", http.HandlerFunc(s.handleTimeline)).Methods(http.MethodGet)
	r.Handle("/v1/statistics", http.HandlerFunc(s.handleStatistics)).Methods(http.MethodGet)
	r.Handle("/v1/sweep", http.HandlerFunc(s.handleSweep)).Methods(http.MethodPost)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.h.RenderJSON(w, http.StatusOK, nil)
}

func (s *Server) handleFuse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req FuseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.h.RenderJSON(w, http.StatusBadRequest, err)
		return
	}

	record, err := s.engine.Fuse(ctx, &req)
	if err != nil {
		logging.FromContext(ctx).Warnw("fuse failed", "error", err)
		switch {
		case errkinds.IsValidation(err):
			s.h.RenderJSON(w, http.StatusBadRequest, err)
		case errkinds.IsIntegrity(err):
			s.h.RenderJSON(w, http.StatusConflict, err)
		default:
			s.h.RenderJSON(w, http.StatusInternalServerError, err)
		}
		return
	}

	s.h.RenderJSON(w, http.StatusOK, record)
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	subjectID := mux.Vars(r)["subject_id"]
	s.h.RenderJSON(w, http.StatusOK, s.engine.Timeline(subjectID))
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	s.h.RenderJSON(w, http.StatusOK, s.engine.Statistics())
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	transitioned := s.engine.SweepRetention(r.Context())
	s.h.RenderJSON(w, http.StatusOK, map[string]interface{}{
		"transitioned": transitioned,
	})
}
