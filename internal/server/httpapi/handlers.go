package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/dmitrijs2005/teamflow/internal/server/api"
	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

var kindStatus = map[api.ErrorKind]int{
	api.KindValidation:       http.StatusBadRequest,
	api.KindInvalidProject:   http.StatusBadRequest,
	api.KindAlreadyRunning:   http.StatusConflict,
	api.KindNotFound:         http.StatusNotFound,
	api.KindInvalidState:     http.StatusConflict,
	api.KindPermissionDenied: http.StatusForbidden,
	api.KindUnauthorized:     http.StatusUnauthorized,
	api.KindUnknownOperation: http.StatusNotFound,
	api.KindInternal:         http.StatusInternalServerError,
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind api.ErrorKind) int {
	if code, ok := kindStatus[kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

func (s *Server) call(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, _ := api.PrincipalFrom(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, api.Response{
			Error: &api.ErrorBody{Kind: api.KindValidation, Message: "request body too large"},
		})
		return
	}

	resp := s.handler.Handle(ctx, api.Request{
		Principal: p,
		Operation: mux.Vars(r)["operation"],
		Params:    json.RawMessage(body),
		RequestID: requestIDFrom(ctx),
	})

	code := http.StatusOK
	if !resp.OK {
		code = StatusFor(resp.Error.Kind)
	}
	writeJSON(w, code, resp)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			s.logger.Warn(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
