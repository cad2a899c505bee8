// Package auth provides slots for issuing and verifying the HMAC-signed
// bearer tickets the HTTP pipeline authenticates with. Startup scripts use
// auth_ticket to mint service tokens for the modules they initialize.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vk/magicd/internal/lambda"
	"github.com/vk/magicd/internal/registry"
)

// Module implements the registry.Module interface for this package. Secret
// is the same HMAC secret the HTTP pipeline validates against.
type Module struct {
	Secret string
}

// claims mirrors the claims layout the HTTP pipeline's auth middleware
// expects.
type claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// onTicket is the handler for the 'auth_ticket' slot. It writes the signed
// token back into the invocation node under "value".
func (m *Module) onTicket(ctx context.Context, args *lambda.Node) error {
	if m.Secret == "" {
		return fmt.Errorf("auth_ticket requires an auth secret to be configured")
	}

	subject, ok := args.GetString("subject")
	if !ok {
		return fmt.Errorf("auth_ticket requires a 'subject' argument")
	}
	role, _ := args.GetString("role")

	lifetime := 2 * time.Hour
	if raw, ok := args.GetString("duration"); ok {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid 'duration' argument: %w", err)
		}
		lifetime = parsed
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	})

	signed, err := token.SignedString([]byte(m.Secret))
	if err != nil {
		return fmt.Errorf("signing ticket: %w", err)
	}

	args.SetString("value", signed)
	return nil
}

// onVerify is the handler for the 'auth_verify' slot. It writes the
// ticket's subject and role back into the invocation node.
func (m *Module) onVerify(ctx context.Context, args *lambda.Node) error {
	if m.Secret == "" {
		return fmt.Errorf("auth_verify requires an auth secret to be configured")
	}

	value, ok := args.GetString("value")
	if !ok {
		return fmt.Errorf("auth_verify requires a 'value' argument")
	}

	parsed := &claims{}
	token, err := jwt.ParseWithClaims(value, parsed, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(m.Secret), nil
	})
	if err != nil {
		return fmt.Errorf("verifying ticket: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("ticket is not valid")
	}

	args.SetString("subject", parsed.Subject)
	args.SetString("role", parsed.Role)
	return nil
}

// Register registers the auth slots with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterSlot("auth_ticket", &registry.RegisteredSlot{
		New: func() registry.Handler { return registry.HandlerFunc(m.onTicket) },
	})
	r.RegisterSlot("auth_verify", &registry.RegisteredSlot{
		New: func() registry.Handler { return registry.HandlerFunc(m.onVerify) },
	})
}
