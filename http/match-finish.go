package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/httplog/v2"

	"github.com/botarena/backend/httpjson"
	"github.com/botarena/backend/srvcerror"
)

// finishMatch is invoked by the match sandbox itself, authenticated by
// the token minted at launch.
func (httpserver *HttpServer) finishMatch(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	var body FinishMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpjson.HandleError(logger, w, srvcerror.ErrValidation("malformed request body").SetDebug(err))
		return
	}
	if body.Token == "" || len(body.Scores) == 0 {
		httpjson.HandleError(logger, w, srvcerror.ErrValidation("missing token or scores"))
		return
	}

	if err := httpserver.resultSrvc.HandleResult(r.Context(), body.Token, body.Scores); err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}

	httpjson.WriteSuccessJson(w, nil)
}

func (httpserver *HttpServer) crashMatch(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	var body CrashMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpjson.HandleError(logger, w, srvcerror.ErrValidation("malformed request body").SetDebug(err))
		return
	}
	if body.Token == "" {
		httpjson.HandleError(logger, w, srvcerror.ErrValidation("missing token"))
		return
	}

	if err := httpserver.resultSrvc.HandleCrash(r.Context(), body.Token); err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}

	httpjson.WriteSuccessJson(w, nil)
}
