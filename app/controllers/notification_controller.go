package controllers

import (
	"errors"

	"gorm.io/gorm"

	"github.com/cellsync/cellsync/internal/pkg/trpc"
)

type listNotificationsInput struct {
	UnreadOnly bool `json:"unreadOnly"`
	Limit      int  `json:"limit" validate:"gte=0,lte=100"`
}

type markNotificationInput struct {
	ID uint `json:"id" validate:"required,gt=0"`
}

func (p *Procedures) listNotifications(c *trpc.Call) (any, error) {
	if p.Notifications == nil {
		return nil, notConfigured("Notificações")
	}
	var in listNotificationsInput
	if err := c.BindOptional(&in); err != nil {
		return nil, err
	}
	if in.Limit == 0 {
		in.Limit = 20
	}
	return p.Notifications.ListForUser(c.TenantID, c.User.UserID, in.UnreadOnly, in.Limit)
}

func (p *Procedures) markNotificationRead(c *trpc.Call) (any, error) {
	if p.Notifications == nil {
		return nil, notConfigured("Notificações")
	}
	var in markNotificationInput
	if err := c.Bind(&in); err != nil {
		return nil, err
	}
	err := p.Notifications.MarkRead(c.TenantID, c.User.UserID, in.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, trpc.NotFound("Notificação não encontrada")
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{"success": true}, nil
}
