package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/httplog/v2"

	"github.com/botarena/backend/httpjson"
	"github.com/botarena/backend/pairing"
	"github.com/botarena/backend/srvcerror"
)

func (httpserver *HttpServer) createArenaMatch(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	username := usernameFromCtx(r.Context())
	if username == "" {
		httpjson.HandleError(logger, w, srvcerror.ErrUnauthorized("login required"))
		return
	}

	var body ArenaMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpjson.HandleError(logger, w, srvcerror.ErrValidation("malformed request body").SetDebug(err))
		return
	}
	if body.ContestID == "" || body.MapID == "" ||
		body.TeamIDs[0] == "" || body.TeamIDs[1] == "" ||
		body.Labels[0] == "" || body.Labels[1] == "" {
		httpjson.HandleError(logger, w, srvcerror.ErrValidation("missing required fields"))
		return
	}

	roomID, err := httpserver.pairingSrvc.CreateArenaMatch(r.Context(), pairing.ArenaRequest{
		ContestID: body.ContestID,
		MapID:     body.MapID,
		TeamIDs:   body.TeamIDs,
		Labels:    body.Labels,
		Exposed:   body.Exposed,
	}, username)
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}

	httpjson.WriteSuccessJson(w, ArenaMatchResponse{RoomID: roomID})
}
