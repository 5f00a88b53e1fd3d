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

package dispatch

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/openidsr/surveillance-server/internal/middleware"
	"github.com/openidsr/surveillance-server/internal/model"
	"github.com/openidsr/surveillance-server/pkg/errkinds"
	"github.com/openidsr/surveillance-server/pkg/logging"
	"github.com/openidsr/surveillance-server/pkg/render"
)

// Server is the broker-facing webhook surface of the distributor.
type Server struct {
	distributor *Distributor
	h           *render.Renderer
}

// NewServer wraps the distributor with its HTTP surface.
func NewServer(distributor *Distributor) *Server {
	return &Server{
		distributor: distributor,
		h:           render.NewRenderer(),
	}
}

// Routes returns the router for this server.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.PopulateRequestID())
	r.Use(middleware.PopulateLogger(logging.DefaultLogger()))
	r.Use(middleware.Recovery())
	r.Handle("/health", http.HandlerFunc(s.handleHealth)).Methods(http.MethodGet)
	r.Handle("/v1/alerts", http.HandlerFunc(s.handleAlert)).Methods(http.MethodPost)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.h.RenderJSON(w, http.StatusOK, nil)
}

func (s *Server) handleAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var alert model.Alert
	if err := json.NewDecoder(r.Body).Decode(&alert); err != nil {
		s.h.RenderJSON(w, http.StatusBadRequest, err)
		return
	}

	// The broker may omit identity and timing; fill them so downstream
	// deduplication and formatting have something to key on.
	if alert.AlertID == "" {
		alert.AlertID = uuid.NewString()
	}
	if alert.Timestamp.IsZero() {
		alert.Timestamp = model.NewUTCTime(time.Now())
	}

	results, err := s.distributor.Dispatch(ctx, &alert)
	if err != nil {
		logging.FromContext(ctx).Warnw("dispatch rejected", "error", err)
		if errkinds.IsValidation(err) {
			s.h.RenderJSON(w, http.StatusBadRequest, err)
			return
		}
		s.h.RenderJSON(w, http.StatusInternalServerError, err)
		return
	}

	s.h.RenderJSON(w, http.StatusOK, results)
}
