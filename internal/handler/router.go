/*
Package handler provides the HTTP handlers and routing setup for the keychat server.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to specific handlers.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"keychat/internal/pkg/errs"
	"keychat/internal/pkg/limiter"
	"keychat/internal/pkg/logx"
	"keychat/internal/pkg/resp"
)

const (
	RegisterRate  = 0.2
	RegisterBurst = 5
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes the registration rate limiter, configures CORS, and applies
// global and per-route middleware.
func Router(deps *AppDeps) http.Handler {
	registerLimiter := limiter.NewIPRateLimiter(rate.Limit(RegisterRate), RegisterBurst)

	r := chi.NewRouter()

	corsAllowedOrigins := []string{}
	if deps.Config.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Store.Ping(r.Context()); err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		data := map[string]string{
			"status":  "ok",
			"service": "keychat",
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Route("/api", func(api chi.Router) {
		api.Route("/users", func(users chi.Router) {
			rateLimitedRegister := registerLimiter.Middleware(HandleRegister(deps))
			users.Post("/", http.HandlerFunc(rateLimitedRegister.ServeHTTP))
			users.Get("/", HandleListOnlineUsers(deps))
			users.Get("/{userID}", HandleGetUser(deps))
			users.Put("/{userID}", HandleSetPresence(deps))
			users.Put("/{userID}/pub_key", HandleSetPublicKey(deps))
			users.Put("/{userID}/id_addressee", HandleSetAddressee(deps))
			users.Put("/{userID}/id_group", HandleSetGroupPointer(deps))
			users.Delete("/{userID}", HandleDeleteUser(deps))
		})

		api.Post("/loginUser", HandleLogin(deps))

		api.Route("/chats", func(chats chi.Router) {
			chats.Post("/", HandleCreateChat(deps))
			chats.Get("/", HandleListChats(deps))
			chats.Get("/{chatID}", HandleGetChat(deps))
			chats.Get("/{userA}/{userB}", HandleGetChatByUsers(deps))
			chats.Post("/{chatID}/messages", HandleAddChatMessage(deps))
			chats.Delete("/{chatID}", HandleDeleteChat(deps))
		})

		api.Route("/chatGroups", func(groups chi.Router) {
			groups.Post("/", HandleCreateGroup(deps))
			groups.Get("/user/{userID}", HandleGetGroupsForUser(deps))
			groups.Post("/{groupID}/messages", HandleAddGroupMessage(deps))
			groups.Get("/{groupID}/messages", HandleGetGroupMessages(deps))
			groups.Get("/{groupID}/users", HandleGetGroupMembers(deps))
			groups.Delete("/{groupID}", HandleDeleteGroup(deps))
			groups.Delete("/{groupID}/{userID}", HandleRemoveGroupMember(deps))
		})
	})

	return r
}
