package notify

import (
	"context"
	"net/smtp"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/shortsale-cli/internal/model"
)

func testLead() model.Lead {
	return model.Lead{
		Listing: model.Listing{
			ID:        "z111",
			Address:   "12 Elm St, Austin, TX 78701",
			AgentName: "Jane Doe",
			DetailURL: "https://example.com/listing/111",
		},
		Contact: model.Contact{
			Phone: "512-555-0147",
			Email: "jane@example.com",
		},
	}
}

// mockSMSClient implements smsgateway.Client for testing.
type mockSMSClient struct {
	lastTo   string
	lastText string
	calls    int
	err      error
}

func (m *mockSMSClient) Send(_ context.Context, to, text string) error {
	m.calls++
	m.lastTo = to
	m.lastText = text
	return m.err
}

func TestSMSNotify_Success(t *testing.T) {
	client := &mockSMSClient{}
	n := NewSMS(client, DefaultTemplates())

	require.NoError(t, n.Notify(context.Background(), testLead()))
	assert.Equal(t, "512-555-0147", client.lastTo)
	assert.Contains(t, client.lastText, "Jane Doe")
	assert.Contains(t, client.lastText, "12 Elm St, Austin, TX 78701")
}

func TestSMSNotify_MissingAgentNameFallsBack(t *testing.T) {
	client := &mockSMSClient{}
	n := NewSMS(client, DefaultTemplates())

	lead := testLead()
	lead.Listing.AgentName = ""
	require.NoError(t, n.Notify(context.Background(), lead))
	assert.Contains(t, client.lastText, "Hi there")
}

func TestSMSNotify_NoPhone(t *testing.T) {
	client := &mockSMSClient{}
	n := NewSMS(client, DefaultTemplates())

	lead := testLead()
	lead.Contact.Phone = ""
	err := n.Notify(context.Background(), lead)

	assert.Error(t, err)
	assert.Zero(t, client.calls)
}

func TestSMSNotify_GatewayFailure(t *testing.T) {
	client := &mockSMSClient{err: eris.New("gateway offline")}
	n := NewSMS(client, DefaultTemplates())

	assert.Error(t, n.Notify(context.Background(), testLead()))
}

func TestEmailNotify_Success(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	n := NewEmail(EmailConfig{
		Host: "smtp.example.com",
		Port: 587,
		From: "leads@example.com",
	}, DefaultTemplates())
	n.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	require.NoError(t, n.Notify(context.Background(), testLead()))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "leads@example.com", gotFrom)
	assert.Equal(t, []string{"jane@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Your short-sale listing at 12 Elm St, Austin, TX 78701")
}

func TestEmailNotify_NoEmail(t *testing.T) {
	n := NewEmail(EmailConfig{Host: "smtp.example.com", Port: 587, From: "x@example.com"}, DefaultTemplates())
	called := false
	n.sendMail = func(_ string, _ smtp.Auth, _ string, _ []string, _ []byte) error {
		called = true
		return nil
	}

	lead := testLead()
	lead.Contact.Email = ""
	assert.Error(t, n.Notify(context.Background(), lead))
	assert.False(t, called)
}

func TestLoadTemplates_Defaults(t *testing.T) {
	tmpl, err := LoadTemplates("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTemplates(), tmpl)
}

func TestLoadTemplates_PartialOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sms: \"Lead at {{.Listing.Address}}\"\n"), 0o644))

	tmpl, err := LoadTemplates(path)
	require.NoError(t, err)
	assert.Equal(t, "Lead at {{.Listing.Address}}", tmpl.SMS)
	assert.Equal(t, DefaultTemplates().EmailBody, tmpl.EmailBody)

	text, err := tmpl.RenderSMS(testLead())
	require.NoError(t, err)
	assert.Equal(t, "Lead at 12 Elm St, Austin, TX 78701", text)
}

func TestLoadTemplates_MissingFile(t *testing.T) {
	_, err := LoadTemplates("/nonexistent/templates.yaml")
	assert.Error(t, err)
}

func TestRender_BadTemplate(t *testing.T) {
	tmpl := Templates{SMS: "{{.Broken"}
	_, err := tmpl.RenderSMS(testLead())
	assert.Error(t, err)
}
