package app

import (
	"gorm.io/gorm"

	"github.com/Hammadwakeel/R-S-RAG-backend/internal/data/repos"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/logger"
)

type Repos struct {
	Users    repos.UserRepo
	Tokens   repos.UserTokenRepo
	Sessions repos.ChatSessionRepo
	Messages repos.ChatMessageRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Users:    repos.NewUserRepo(db, log),
		Tokens:   repos.NewUserTokenRepo(db, log),
		Sessions: repos.NewChatSessionRepo(db, log),
		Messages: repos.NewChatMessageRepo(db, log),
	}
}
