package email

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiagnoseSMTP(t *testing.T) {
	cases := []struct {
		err  string
		code string
		temp bool
	}{
		{"dial tcp 10.0.0.1:587: i/o timeout", "timeout", true},
		{"dial tcp: lookup smtp.example: no such host", "dial", true},
		{"x509: certificate signed by unknown authority", "tls", false},
		{"tls: handshake failure", "tls", false},
		{"535 5.7.8 Username and Password not accepted", "auth", false},
		{"421 4.7.0 Try again later", "rate_limited", true},
		{"550 5.1.1 user unknown", "invalid_recipient", false},
		{"550 5.7.1 message rejected by policy", "rejected", false},
		{"something odd", "unknown", false},
	}
	for _, tc := range cases {
		d := DiagnoseSMTP(errors.New(tc.err))
		require.Equal(t, tc.code, d.Code, tc.err)
		require.Equal(t, tc.temp, d.Temporary, tc.err)
	}
	require.Equal(t, "unknown", DiagnoseSMTP(nil).Code)
}

func TestCodeTemplate(t *testing.T) {
	tpl, err := ParseCodeTemplate("")
	require.NoError(t, err)

	body, err := tpl.Render(CodeVars{Name: "Jo Han", Code: "Ab3dE5gH"})
	require.NoError(t, err)
	require.Equal(t, "Hello Jo Han, this is your code: Ab3dE5gH\n", body)

	_, err = ParseCodeTemplate("{{.Code")
	require.Error(t, err)
}

func TestLogMailerKeepsMessages(t *testing.T) {
	var m LogMailer
	require.NoError(t, m.Send(context.Background(), Message{To: "jh123@kth.se", Subject: "s", Body: "b"}))
	require.Len(t, m.Sent(), 1)
	require.Equal(t, "jh123@kth.se", m.Sent()[0].To)
}

func TestSMTPSenderBuildsAddressHeader(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example", Port: 587, From: "Mods <mods@example.org>"})
	msg := s.build(Message{To: "jh123@kth.se", ToName: "Jo Han", Subject: "Discord authentication", Body: "x"})

	require.Equal(t, []string{`"Jo Han" <jh123@kth.se>`}, msg.GetHeader("To"))
	require.Equal(t, []string{"Discord authentication"}, msg.GetHeader("Subject"))
}

func TestSMTPSenderHonoursCancelledContext(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Send(ctx, Message{To: "a@b.c"}), context.Canceled)
}
