/*
Package handler provides HTTP handler functions for group chats.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"keychat/internal/pkg/errs"
	"keychat/internal/pkg/req"
	"keychat/internal/pkg/resp"
)

type CreateGroupInput struct {
	UserIDs []string `json:"userIds"`
	Name    string   `json:"name,omitempty"`
}

// HandleCreateGroup resolves or creates the group for the given member set.
func HandleCreateGroup(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input CreateGroupInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		group, customErr := deps.Groups.CreateOrGet(r.Context(), input.UserIDs, input.Name)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"chatGroup": group})
	}
}

type GroupMessageInput struct {
	Message  string `json:"message"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
}

// HandleAddGroupMessage appends a message to a group's log.
func HandleAddGroupMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID := chi.URLParam(r, "groupID")

		var input GroupMessageInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		group, customErr := deps.Groups.AddMessage(r.Context(), groupID, input.Message, input.Sender, input.Receiver)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"chatGroup": group})
	}
}

// HandleGetGroupMessages returns a group's message log in insertion order.
func HandleGetGroupMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID := chi.URLParam(r, "groupID")

		messages, customErr := deps.Groups.GetMessages(r.Context(), groupID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"messages": messages})
	}
}

// HandleGetGroupMembers returns a group's member-id set.
func HandleGetGroupMembers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID := chi.URLParam(r, "groupID")

		members, customErr := deps.Groups.GetMembers(r.Context(), groupID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"userIds": members})
	}
}

// HandleGetGroupsForUser returns the identity key of every group the user
// belongs to.
func HandleGetGroupsForUser(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		keys, customErr := deps.Groups.ListGroupsForUser(r.Context(), userID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"groupIds": keys})
	}
}

// HandleRemoveGroupMember removes a user from a group's member set. The
// group is kept even when it becomes empty.
func HandleRemoveGroupMember(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID := chi.URLParam(r, "groupID")
		userID := chi.URLParam(r, "userID")

		group, customErr := deps.Groups.RemoveMember(r.Context(), groupID, userID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"chatGroup": group})
	}
}

// HandleDeleteGroup removes a group. Deleting an absent group reports not
// found.
func HandleDeleteGroup(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID := chi.URLParam(r, "groupID")

		deleted, customErr := deps.Groups.Delete(r.Context(), groupID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		if !deleted {
			resp.RespondError(w, r, errs.NewError(errs.ErrGroupNotFound))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"deleted": groupID})
	}
}
