package handler

import (
	"keychat/internal/app/conversation"
	"keychat/internal/app/group"
	"keychat/internal/app/identity"
	"keychat/internal/configs"
	"keychat/internal/store"
)

type AppDeps struct {
	Config        *configs.AppConfig
	Store         store.Store
	Identity      *identity.Directory
	Conversations *conversation.Registry
	Groups        *group.Registry
}
