package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/stellarcompass/compass/pkg/models"
)

// Per-type subject prefixes, matching the dashboard's toast icons.
var subjectPrefix = map[string]string{
	models.AlertWalletConnected:  "🔗",
	models.AlertPortfolioSummary: "📊",
	models.AlertOpportunities:    "🚀",
	models.AlertIdleAsset:        "💤",
	models.AlertAPYSpike:         "📈",
	models.AlertPriceMove:        "⚡",
	models.AlertRebalance:        "⚖️",
	models.AlertRisk:             "⚠️",
	models.AlertTest:             "🔔",
}

var emailTmpl = template.Must(template.New("alert").Parse(`<html>
  <body style="font-family: Arial, sans-serif; color: #333;">
    <h2 style="color: #4F46E5;">{{.Title}}</h2>
    <div style="background: #F3F4F6; padding: 20px; border-radius: 8px; margin: 20px 0;">
      <p>{{.Message}}</p>
      {{if .Wallet}}<p style="color: #666; font-size: 12px;">Wallet: {{.Wallet}}</p>{{end}}
    </div>
    {{if .Action}}<a href="{{.Action}}" style="background: #4F46E5; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">Take Action</a>{{end}}
    <p style="color: #999; font-size: 11px; margin-top: 24px;">Stellar Compass · priority {{.Priority}}</p>
  </body>
</html>`))

// renderEmail produces the subject, plain-text and HTML bodies for an alert.
func renderEmail(a models.Alert) (subject, text, html string, err error) {
	prefix, ok := subjectPrefix[a.Type]
	if !ok {
		prefix = "🔔"
	}
	subject = fmt.Sprintf("%s Stellar Compass: %s", prefix, a.Title)
	text = a.Message
	if a.Action != "" {
		text += "\n\n" + a.Action
	}

	var buf bytes.Buffer
	if err = emailTmpl.Execute(&buf, a); err != nil {
		return "", "", "", fmt.Errorf("email template: %w", err)
	}
	return subject, text, buf.String(), nil
}

// renderSMS produces the short-form body. Carriers truncate around 160 chars,
// so keep it tight.
func renderSMS(a models.Alert) string {
	body := fmt.Sprintf("Stellar Compass: %s. %s", a.Title, a.Message)
	if r := []rune(body); len(r) > 160 {
		body = string(r[:157]) + "..."
	}
	return body
}
