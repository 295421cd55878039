/*
Package handler provides HTTP handler functions for pairwise conversations.
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

type CreateChatInput struct {
	UserA string `json:"userA"`
	UserB string `json:"userB"`
}

// HandleCreateChat resolves or creates the conversation for an unordered
// user pair.
func HandleCreateChat(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input CreateChatInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		conv, customErr := deps.Conversations.CreateOrGet(r.Context(), input.UserA, input.UserB)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"chat": conv})
	}
}

// HandleListChats returns every conversation.
func HandleListChats(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		convs, customErr := deps.Conversations.ListAll(r.Context())
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if convs == nil {
			convs = []models.Conversation{}
		}
		resp.RespondSuccess(w, r, map[string]any{"chats": convs})
	}
}

// HandleGetChatByUsers resolves the conversation for an unordered user pair
// without creating one.
func HandleGetChatByUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userA := chi.URLParam(r, "userA")
		userB := chi.URLParam(r, "userB")

		conv, customErr := deps.Conversations.FindByUsers(r.Context(), userA, userB)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"chat": conv})
	}
}

// HandleGetChat retrieves a conversation by id.
func HandleGetChat(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID := chi.URLParam(r, "chatID")

		conv, customErr := deps.Conversations.FindByID(r.Context(), chatID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"chat": conv})
	}
}

type ChatMessageInput struct {
	Message string `json:"message"`
	Sender  string `json:"sender"`
}

// HandleAddChatMessage appends a message to a conversation's log.
func HandleAddChatMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID := chi.URLParam(r, "chatID")

		var input ChatMessageInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		conv, customErr := deps.Conversations.AppendMessage(r.Context(), chatID, input.Message, input.Sender)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"chat": conv})
	}
}

// HandleDeleteChat removes a conversation. Deleting an absent conversation
// reports not found.
func HandleDeleteChat(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID := chi.URLParam(r, "chatID")

		deleted, customErr := deps.Conversations.Delete(r.Context(), chatID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		if !deleted {
			resp.RespondError(w, r, errs.NewError(errs.ErrChatNotFound))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"deleted": chatID})
	}
}
