package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/magicd/internal/lambda"
	"github.com/vk/magicd/internal/registry"
)

func newAuthRegistry(secret string) *registry.Registry {
	reg := registry.New()
	(&Module{Secret: secret}).Register(reg)
	reg.Freeze()
	return reg
}

func TestTicketRoundTrip(t *testing.T) {
	reg := newAuthRegistry("secret")

	ticket := lambda.New("auth_ticket")
	ticket.SetString("subject", "alice")
	ticket.SetString("role", "root")
	require.NoError(t, reg.Signal(context.Background(), "auth_ticket", ticket))

	token, ok := ticket.GetString("value")
	require.True(t, ok)
	require.NotEmpty(t, token)

	verify := lambda.New("auth_verify")
	verify.SetString("value", token)
	require.NoError(t, reg.Signal(context.Background(), "auth_verify", verify))

	subject, _ := verify.GetString("subject")
	assert.Equal(t, "alice", subject)
	role, _ := verify.GetString("role")
	assert.Equal(t, "root", role)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := newAuthRegistry("secret-a")
	verifier := newAuthRegistry("secret-b")

	ticket := lambda.New("auth_ticket")
	ticket.SetString("subject", "alice")
	require.NoError(t, issuer.Signal(context.Background(), "auth_ticket", ticket))
	token, _ := ticket.GetString("value")

	verify := lambda.New("auth_verify")
	verify.SetString("value", token)
	assert.Error(t, verifier.Signal(context.Background(), "auth_verify", verify))
}

func TestVerifyRejectsExpiredTicket(t *testing.T) {
	reg := newAuthRegistry("secret")

	ticket := lambda.New("auth_ticket")
	ticket.SetString("subject", "alice")
	ticket.SetString("duration", "-1h")
	require.NoError(t, reg.Signal(context.Background(), "auth_ticket", ticket))
	token, _ := ticket.GetString("value")

	verify := lambda.New("auth_verify")
	verify.SetString("value", token)
	assert.Error(t, reg.Signal(context.Background(), "auth_verify", verify))
}

func TestTicketRequiresSubject(t *testing.T) {
	reg := newAuthRegistry("secret")
	assert.Error(t, reg.Signal(context.Background(), "auth_ticket", lambda.New("auth_ticket")))
}

func TestTicketRequiresConfiguredSecret(t *testing.T) {
	reg := newAuthRegistry("")
	ticket := lambda.New("auth_ticket")
	ticket.SetString("subject", "alice")
	assert.Error(t, reg.Signal(context.Background(), "auth_ticket", ticket))
}

func TestTicketRejectsInvalidDuration(t *testing.T) {
	reg := newAuthRegistry("secret")
	ticket := lambda.New("auth_ticket")
	ticket.SetString("subject", "alice")
	ticket.SetString("duration", "soon")
	assert.Error(t, reg.Signal(context.Background(), "auth_ticket", ticket))
}
