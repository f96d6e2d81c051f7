// Package outreach sends the internal alert email for a persisted prospect
// and keeps the audit trail. Sending is reviewer-triggered only; nothing in
// the pipeline calls into this package.
package outreach

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/confecoes-lanca/prospector/internal/model"
	"github.com/confecoes-lanca/prospector/internal/store"
	"github.com/confecoes-lanca/prospector/pkg/resend"
)

// EmailLogStore is the audit-trail surface. Satisfied by store.Store.
type EmailLogStore interface {
	LogEmail(ctx context.Context, entry model.EmailLog) error
}

// Config holds the alert recipients. To must not be empty.
type Config struct {
	From    string   `yaml:"from" mapstructure:"from"`
	To      []string `yaml:"to" mapstructure:"to"`
	ReplyTo string   `yaml:"reply_to" mapstructure:"reply_to"`
}

// Sender delivers prospect alerts through the email provider.
type Sender struct {
	client resend.Client
	logs   EmailLogStore
	cfg    Config
}

// NewSender creates a Sender.
func NewSender(client resend.Client, logs EmailLogStore, cfg Config) *Sender {
	return &Sender{client: client, logs: logs, cfg: cfg}
}

var alertTemplate = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; color: #1e293b; line-height: 1.6;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #e2e8f0; border-radius: 8px;">
    <h2 style="margin-top: 0; color: #0f172a;">Novo Potencial Cliente Detetado</h2>
    <p>Existe uma oportunidade de negócio com a marca <strong>{{.Name}}</strong>.</p>
    <div style="background-color: #f8fafc; padding: 20px; border-radius: 8px; margin: 20px 0;">
      <h3 style="margin-top: 0;">{{.Name}}</h3>
      <p><a href="{{.WebsiteURL}}">{{.WebsiteURL}}</a></p>
      <p><strong>Cidade:</strong> {{.City}}, {{.Country}}</p>
      <p><strong>Preço médio fato:</strong> {{.Price}}</p>
      <p><strong>Estilo:</strong> {{.BrandStyle}}</p>
      <p><strong>Pontuação:</strong> {{.Score}}</p>
      <p><strong>Descrição:</strong> {{.Overview}}</p>
    </div>
    <p>Esta marca foi validada automaticamente com base no perfil dos clientes Lança existentes.</p>
  </div>
</body>
</html>`))

type alertData struct {
	Name       string
	WebsiteURL string
	City       string
	Country    string
	Price      string
	BrandStyle string
	Score      string
	Overview   string
}

// ContactEmail derives the generic contact address for a prospect's domain.
func ContactEmail(p *model.Prospect) string {
	domain := store.ExtractDomain(p.WebsiteURL)
	if domain == "" {
		return ""
	}
	return "info@" + domain
}

// SendAlert emails the team about a prospect and records the attempt. The
// log entry is written for failures too, so the audit trail shows what was
// tried.
func (s *Sender) SendAlert(ctx context.Context, p *model.Prospect) error {
	if len(s.cfg.To) == 0 {
		return eris.New("outreach: no alert recipients configured")
	}

	html, err := renderAlert(p)
	if err != nil {
		return eris.Wrap(err, "outreach: render alert")
	}

	_, sendErr := s.client.Send(ctx, resend.SendRequest{
		From:    s.cfg.From,
		To:      s.cfg.To,
		ReplyTo: s.cfg.ReplyTo,
		Subject: "Novo Potencial Cliente: " + p.Name,
		HTML:    html,
		Text: fmt.Sprintf("Novo cliente detetado: %s\nWebsite: %s\nCidade: %s",
			p.Name, p.WebsiteURL, p.City),
	})

	entry := model.EmailLog{
		ProspectID: p.ID,
		To:         strings.Join(s.cfg.To, ", "),
		Status:     "sent",
		SentAt:     time.Now().UTC(),
	}
	if sendErr != nil {
		entry.Status = "failed"
		entry.Error = sendErr.Error()
	}
	if logErr := s.logs.LogEmail(ctx, entry); logErr != nil {
		zap.L().Warn("outreach: failed to record email log",
			zap.String("prospect_id", p.ID),
			zap.Error(logErr),
		)
	}

	if sendErr != nil {
		return eris.Wrap(sendErr, "outreach: send alert")
	}
	zap.L().Info("outreach: alert sent",
		zap.String("prospect_id", p.ID),
		zap.String("name", p.Name),
		zap.Int("recipients", len(s.cfg.To)),
	)
	return nil
}

func renderAlert(p *model.Prospect) (string, error) {
	data := alertData{
		Name:       p.Name,
		WebsiteURL: p.WebsiteURL,
		City:       p.City,
		Country:    p.Country,
		Price:      "N/A",
		BrandStyle: p.BrandStyle,
		Score:      "N/A",
		Overview:   p.Overview,
	}
	if p.AvgPriceEUR > 0 {
		data.Price = fmt.Sprintf("€%.0f", p.AvgPriceEUR)
	}
	if p.Breakdown != nil {
		data.Score = fmt.Sprintf("%.1f/100", p.Breakdown.FinalScore)
	}

	var buf bytes.Buffer
	if err := alertTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
