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

package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const contextKeyRequestID = contextKey("request_id")

// PopulateRequestID mints a correlation id for the request unless an earlier
// middleware already set one. There is no gateway in front of the fusion and
// audit surfaces, so the id originates here rather than from a header.
func PopulateRequestID() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if RequestIDFromContext(ctx) == "" {
				r = r.Clone(withRequestID(ctx, uuid.NewString()))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequestIDFromContext returns the request's correlation id, or the empty
// string when PopulateRequestID has not run.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, id)
}
