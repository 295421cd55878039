/*
Package handler provides HTTP handler functions for user identity management:
registration, login, presence, key material, and pointer updates.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"keychat/internal/models"
	"keychat/internal/pkg/errs"
	"keychat/internal/pkg/req"
	"keychat/internal/pkg/resp"
)

type RegisterInput struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Credential string `json:"credential"`
}

// HandleRegister processes the request to register a new user.
func HandleRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input RegisterInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		user, customErr := deps.Identity.Register(r.Context(), input.Email, input.Name, input.Credential)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"user": user})
	}
}

type LoginInput struct {
	Email      string `json:"email"`
	Credential string `json:"credential"`
}

// HandleLogin resolves a user by email and credential.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input LoginInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		user, customErr := deps.Identity.Login(r.Context(), input.Email, input.Credential)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"user": user})
	}
}

// HandleGetUser retrieves a user by id.
func HandleGetUser(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		user, customErr := deps.Identity.FindByID(r.Context(), userID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"user": user})
	}
}

// HandleListOnlineUsers returns a snapshot of all users currently online.
func HandleListOnlineUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, customErr := deps.Identity.ListOnline(r.Context())
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if users == nil {
			users = []models.User{}
		}
		resp.RespondSuccess(w, r, map[string]any{"users": users})
	}
}

type PresenceInput struct {
	Online *bool `json:"online"`
}

// HandleSetPresence toggles the user's online flag.
func HandleSetPresence(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		var input PresenceInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		if input.Online == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		user, customErr := deps.Identity.SetPresence(r.Context(), userID, *input.Online)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"user": user})
	}
}

// HandleSetPublicKey replaces the user's public-key material wholesale.
func HandleSetPublicKey(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		var input models.PublicKey
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		user, customErr := deps.Identity.SetPublicKey(r.Context(), userID, input)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"user": user})
	}
}

type AddresseeInput struct {
	AddresseeID string `json:"idAddressee"`
}

// HandleSetAddressee points the user at the peer it is currently addressing.
func HandleSetAddressee(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		var input AddresseeInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		user, customErr := deps.Identity.SetAddressee(r.Context(), userID, input.AddresseeID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"user": user})
	}
}

type GroupPointerInput struct {
	GroupID string `json:"idGroup"`
}

// HandleSetGroupPointer points the user at its current group.
func HandleSetGroupPointer(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		var input GroupPointerInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		user, customErr := deps.Identity.SetGroup(r.Context(), userID, input.GroupID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"user": user})
	}
}

// HandleDeleteUser removes a user record. Conversations and groups that
// reference it are left untouched.
func HandleDeleteUser(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		if customErr := deps.Identity.Delete(r.Context(), userID); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"deleted": userID})
	}
}
