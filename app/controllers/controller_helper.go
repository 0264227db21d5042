package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/cellsync/cellsync/internal/pkg/auth"
)

// GetClientIP determines the client address behind Cloudflare or a proxy.
func GetClientIP(c *fiber.Ctx) string {
	if cfIP := strings.TrimSpace(c.Get("CF-Connecting-IP")); cfIP != "" {
		return cfIP
	}
	// X-Forwarded-For can contain a list of IPs, the first one is the client
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(c.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	// IPv4-mapped IPv6 (::ffff:192.168.1.1)
	return strings.TrimPrefix(c.IP(), "::ffff:")
}

func requestMeta(c *fiber.Ctx) auth.Meta {
	if c == nil {
		return auth.Meta{}
	}
	return auth.Meta{IPAddress: GetClientIP(c), UserAgent: c.Get(fiber.HeaderUserAgent)}
}
