package alerts

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/wonny/projeval/internal/contracts"
	"github.com/wonny/projeval/pkg/httputil"
)

// Notifier forwards one alert to an external channel
type Notifier interface {
	Notify(ctx context.Context, alert contracts.PlatformAlert) error
}

// EmailConfig transactional e-mail API settings
type EmailConfig struct {
	APIURL string
	From   string
	To     []string
}

// emailMessage JSON body accepted by the e-mail API
type emailMessage struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

// EmailNotifier posts alerts to a transactional e-mail HTTP API
type EmailNotifier struct {
	client *httputil.Client
	cfg    EmailConfig
}

// NewEmailNotifier client must already carry auth headers
func NewEmailNotifier(client *httputil.Client, cfg EmailConfig) *EmailNotifier {
	return &EmailNotifier{client: client, cfg: cfg}
}

// Notify sends one alert; any non-2xx response is an error
func (n *EmailNotifier) Notify(ctx context.Context, alert contracts.PlatformAlert) error {
	msg := emailMessage{
		From:    n.cfg.From,
		To:      n.cfg.To,
		Subject: fmt.Sprintf("[%s] %s", strings.ToUpper(string(alert.Severity)), alert.Title),
		Text:    renderText(alert),
	}

	resp, err := n.client.PostJSON(ctx, n.cfg.APIURL, msg)
	if err != nil {
		return fmt.Errorf("send alert email: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("send alert email: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func renderText(a contracts.PlatformAlert) string {
	var b strings.Builder
	b.WriteString(a.Message)
	b.WriteString("\n\nSuggested action: ")
	b.WriteString(a.SuggestedAction)
	if len(a.AffectedProjectIDs) > 0 {
		b.WriteString("\nAffected projects: ")
		b.WriteString(strings.Join(a.AffectedProjectIDs, ", "))
	}
	if len(a.AffectedCategories) > 0 {
		b.WriteString("\nCategories: ")
		b.WriteString(strings.Join(a.AffectedCategories, ", "))
	}
	fmt.Fprintf(&b, "\nExpires: %s", a.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"))
	return b.String()
}
