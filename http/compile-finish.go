package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/httplog/v2"

	"github.com/botarena/backend/httpjson"
	"github.com/botarena/backend/srvcerror"
)

// finishCompile is invoked by the compiler sandbox itself,
// authenticated by the token minted at StartCompile.
func (httpserver *HttpServer) finishCompile(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	var body FinishCompileRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpjson.HandleError(logger, w, srvcerror.ErrValidation("malformed request body").SetDebug(err))
		return
	}
	if body.Token == "" || body.Status == "" {
		httpjson.HandleError(logger, w, srvcerror.ErrValidation("missing token or status"))
		return
	}

	if err := httpserver.compileSrvc.FinishCompile(r.Context(), body.Token, body.Status); err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}

	httpjson.WriteSuccessJson(w, nil)
}
