package emailsvc

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clms-app/clms/core"
	"github.com/clms-app/clms/testutil"
)

type badge struct {
	Name        string
	Description string
}

func badgeMessage() *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: "Ana", Address: "ana@school.io"}},
		Subject:      "You earned a new badge!",
		TemplateName: "badge_earned",
		TemplateData: map[string]interface{}{
			"Name":   "Ana",
			"XP":     120,
			"Level":  2,
			"Badges": []badge{{Name: "Scholar", Description: "Reach 100 XP"}},
		},
	}
}

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	conf := core.NewTestConfig()
	logger := new(testutil.Logger)
	ResetSentMessages()

	NewConsoleServiceMock(conf, logger).SendMessages(
		badgeMessage(),
		&core.EmailMessage{To: []mail.Address{{Address: "bob@school.io"}}, Subject: "Hi", BodyStr: "plain body"},
		&core.EmailMessage{Subject: "nobody to send to", BodyStr: "dropped"},
		&core.EmailMessage{To: []mail.Address{{Address: "bob@school.io"}}, TemplateName: "nope"},
	)

	sent := GetSentMessages()
	require.Len(t, sent, 2)

	assert.Contains(t, sent[0].TextContent, "Hi Ana,")
	assert.Contains(t, sent[0].TextContent, "* Scholar: Reach 100 XP")
	assert.Contains(t, sent[0].TextContent, "You now have 120 XP (level 2).")
	assert.Contains(t, sent[0].HTMLContent, "Scholar")

	assert.Equal(t, "plain body", sent[1].TextContent)
	assert.Empty(t, sent[1].HTMLContent)

	require.Equal(t, 1, logger.Len(), "unknown template is logged")
	assert.Contains(t, logger.Messages[0], `unknown email template "nope"`)
}

func TestSendgridService_prepare(t *testing.T) {
	conf := core.NewTestConfig()
	svc := NewSendgridService(conf, new(testutil.Logger)).(*sendgridService)

	msg := badgeMessage()
	require.NoError(t, msg.Render(conf))
	m := svc.prepare(*msg)

	assert.Equal(t, conf.DefaultFromEmail, m.From.Address)
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "["+conf.AppName+"] You earned a new badge!", m.Personalizations[0].Subject)
	require.Len(t, m.Personalizations[0].To, 1)
	assert.Equal(t, "ana@school.io", m.Personalizations[0].To[0].Address)
	require.Len(t, m.Content, 2)
	assert.Equal(t, "text/plain", m.Content[0].Type)
	assert.Equal(t, "text/html", m.Content[1].Type)
}
