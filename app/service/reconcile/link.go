package reconcile

import (
	"log/slog"
	"travelchat/app/model"
	"travelchat/app/service/chat"
	"travelchat/app/service/history"

	"github.com/samber/do"
)

// Link keeps the chat and history views from showing diverging entity sets.
// Both directions are plain callbacks; neither side reads the other's list.
type Link struct {
	chat    *chat.Service
	history *history.Service
}

func New(di *do.Injector) (*Link, error) {
	return Bind(
		do.MustInvoke[*chat.Service](di),
		do.MustInvoke[*history.Service](di),
	), nil
}

func Bind(chatSvc *chat.Service, historySvc *history.Service) *Link {
	link := &Link{
		chat:    chatSvc,
		history: historySvc,
	}

	chatSvc.OnCreated(link.created)
	historySvc.OnDeleted(link.deleted)

	return link
}

func (l *Link) created(rec model.Recommendation) {
	slog.Debug("Recommendation created", "id", rec.ID, "places", len(rec.ResponseJSON))

	l.history.NotifyCreated(rec)
}

func (l *Link) deleted(id int) {
	slog.Debug("Recommendation deleted", "id", id)

	l.chat.Forget(id)
}
