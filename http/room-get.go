package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"

	"github.com/botarena/backend/httpjson"
	"github.com/botarena/backend/registry"
	"github.com/botarena/backend/srvcerror"
)

// getRoom is the polling endpoint: callers watch a room move through
// Waiting, Running and Finished.
func (httpserver *HttpServer) getRoom(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		httpjson.HandleError(logger, w, srvcerror.ErrValidation("missing room id"))
		return
	}

	room, err := httpserver.reg.GetRoom(r.Context(), roomID)
	if errors.Is(err, registry.ErrRowNotFound) {
		httpjson.HandleError(logger, w, srvcerror.ErrNotFound("room not found"))
		return
	}
	if err != nil {
		httpjson.HandleError(logger, w, srvcerror.ErrInternalSE().SetDebug(err))
		return
	}

	roomTeams, err := httpserver.reg.ListRoomTeams(r.Context(), roomID)
	if err != nil {
		httpjson.HandleError(logger, w, srvcerror.ErrInternalSE().SetDebug(err))
		return
	}

	httpjson.WriteSuccessJson(w, mapRoom(room, roomTeams))
}
