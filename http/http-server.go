package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"

	"github.com/botarena/backend/compile"
	"github.com/botarena/backend/match"
	"github.com/botarena/backend/pairing"
	"github.com/botarena/backend/registry"
)

type HttpServer struct {
	compileSrvc *compile.Service
	pairingSrvc *pairing.Service
	resultSrvc  *match.ResultService
	reg         registry.Registry
	jwtKey      []byte
	router      *chi.Mux
}

func NewHttpServer(
	compileSrvc *compile.Service,
	pairingSrvc *pairing.Service,
	resultSrvc *match.ResultService,
	reg registry.Registry,
	jwtKey []byte,
) *HttpServer {
	router := chi.NewRouter()

	logger := httplog.NewLogger("botarena", httplog.Options{
		LogLevel:         slog.LevelDebug,
		Concise:          true,
		MessageFieldName: "message",
	})

	router.Use(httplog.RequestLogger(logger))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           3000,
	}))

	router.Use(getJwtAuthMiddleware(jwtKey))

	server := &HttpServer{
		compileSrvc: compileSrvc,
		pairingSrvc: pairingSrvc,
		resultSrvc:  resultSrvc,
		reg:         reg,
		jwtKey:      jwtKey,
		router:      router,
	}

	server.routes()

	return server
}

func (httpserver *HttpServer) Start(address string) error {
	return http.ListenAndServe(address, httpserver.router)
}

func (httpserver *HttpServer) Router() http.Handler {
	return httpserver.router
}

func (httpserver *HttpServer) routes() {
	r := httpserver.router
	r.Post("/api/arena/matches", httpserver.createArenaMatch)
	r.Post("/api/rounds/{roundId}/start", httpserver.startRound)
	r.Post("/api/matches/finish", httpserver.finishMatch)
	r.Post("/api/matches/crash", httpserver.crashMatch)
	r.Post("/api/codes/{codeId}/compile", httpserver.startCompile)
	r.Post("/api/codes/compile/finish", httpserver.finishCompile)
	r.Get("/api/rooms/{roomId}", httpserver.getRoom)
}
