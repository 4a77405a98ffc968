package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"

	"github.com/botarena/backend/httpjson"
	"github.com/botarena/backend/srvcerror"
)

func (httpserver *HttpServer) startRound(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	username := usernameFromCtx(r.Context())
	if username == "" {
		httpjson.HandleError(logger, w, srvcerror.ErrUnauthorized("login required"))
		return
	}

	roundID := chi.URLParam(r, "roundId")
	if roundID == "" {
		httpjson.HandleError(logger, w, srvcerror.ErrValidation("missing round id"))
		return
	}

	roomIDs, err := httpserver.pairingSrvc.StartRound(r.Context(), roundID, username)
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}

	httpjson.WriteSuccessJson(w, StartRoundResponse{
		RoomIDs: roomIDs,
		Count:   len(roomIDs),
	})
}
