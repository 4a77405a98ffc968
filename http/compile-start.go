package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"

	"github.com/botarena/backend/httpjson"
	"github.com/botarena/backend/srvcerror"
)

func (httpserver *HttpServer) startCompile(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	username := usernameFromCtx(r.Context())
	if username == "" {
		httpjson.HandleError(logger, w, srvcerror.ErrUnauthorized("login required"))
		return
	}

	codeID := chi.URLParam(r, "codeId")
	if codeID == "" {
		httpjson.HandleError(logger, w, srvcerror.ErrValidation("missing code id"))
		return
	}

	if err := httpserver.compileSrvc.StartCompile(r.Context(), codeID, username); err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}

	httpjson.WriteSuccessJson(w, nil)
}
