package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2/log"

	"github.com/cellsync/cellsync/internal/pkg/auth"
	"github.com/cellsync/cellsync/internal/pkg/trpc"
	"github.com/cellsync/cellsync/internal/pkg/usercontext"
)

type changePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

func (p *Procedures) login(c *trpc.Call) (any, error) {
	var in auth.LoginInput
	if err := c.Bind(&in); err != nil {
		var te *trpc.Error
		if errors.As(err, &te) && te.Code == trpc.CodeBadRequest {
			return nil, trpc.Unauthorized(auth.InvalidCredentialsMessage)
		}
		return nil, err
	}

	user, err := p.Auth.Login(c.Context(), in, requestMeta(c.Fiber))
	switch {
	case errors.Is(err, auth.ErrTooManyAttempts):
		return nil, trpc.NewError(trpc.CodeTooManyRequests, "Muitas tentativas de login. Tente novamente em 15 minutos.")
	case errors.Is(err, auth.ErrInvalidCredentials):
		return nil, trpc.Unauthorized(auth.InvalidCredentialsMessage)
	case err != nil:
		return nil, err
	}

	token, _, err := p.Sessions.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	if c.Fiber != nil {
		p.Sessions.SetCookie(c.Fiber, token)
	}
	return map[string]any{
		"success": true,
		"user":    usercontext.FromUser(user),
	}, nil
}

// logout always succeeds; a missing or invalid cookie just gets cleared.
func (p *Procedures) logout(c *trpc.Call) (any, error) {
	if c.Fiber == nil {
		return map[string]any{"success": true}, nil
	}
	if claims, err := p.Sessions.FromRequest(c.Fiber); err == nil {
		if err := p.Sessions.Revoke(c.Context(), claims); err != nil {
			log.Warnf("[Auth] failed to revoke session %s: %v", claims.ID, err)
		}
		if user, err := p.Users.GetByID(claims.UserID); err == nil {
			p.Auth.Logout(c.Context(), user, requestMeta(c.Fiber))
		}
	}
	p.Sessions.Clear(c.Fiber)
	return map[string]any{"success": true}, nil
}

// me answers null for anonymous callers.
func (p *Procedures) me(c *trpc.Call) (any, error) {
	if !c.User.IsLoggedIn {
		return nil, nil
	}
	out := map[string]any{
		"id":             c.User.UserID,
		"name":           c.User.Name,
		"email":          c.User.Email,
		"role":           c.User.Role,
		"tenantId":       c.User.TenantID,
		"activeTenantId": c.TenantID,
	}
	return out, nil
}

func (p *Procedures) changePassword(c *trpc.Call) (any, error) {
	var in changePasswordInput
	if err := c.Bind(&in); err != nil {
		return nil, err
	}
	err := p.Auth.ChangePassword(c.Context(), c.User.UserID, in.CurrentPassword, in.NewPassword)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return nil, trpc.BadRequest("Senha atual incorreta")
	case errors.Is(err, auth.ErrWeakPassword):
		return nil, trpc.BadRequest("A nova senha deve ter pelo menos 8 caracteres, com letras e números")
	case errors.Is(err, auth.ErrUserNotFound):
		return nil, trpc.NotFound("Usuário não encontrado")
	case err != nil:
		return nil, err
	}
	return map[string]any{"success": true}, nil
}
