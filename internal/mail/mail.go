// Package mail sends the report and payment confirmation emails. Two
// backends exist: SMTP for self-hosted delivery and SendGrid for the
// hosted setup; both implement Mailer.
package mail

import (
	"context"
	"fmt"
	"html"

	"github.com/LukaSashic/gruenderai/internal/analysis"
)

// Attachment is a file carried with a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one outgoing email.
type Message struct {
	To          string
	ToName      string
	Subject     string
	HTML        string
	Attachments []Attachment
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ReportMessage composes the delivery email carrying the PDF report.
func ReportMessage(to, name string, a analysis.Analysis, pdf []byte) Message {
	if name == "" {
		name = "Gründerin/Gründer"
	}
	riskColor := map[analysis.RiskLevel]string{
		analysis.RiskLow:      "#16a34a",
		analysis.RiskMedium:   "#ca8a04",
		analysis.RiskHigh:     "#ea580c",
		analysis.RiskCritical: "#dc2626",
	}[a.RiskLevel]
	body := fmt.Sprintf(`<!doctype html><html lang="de"><body style="font-family:Arial,sans-serif;color:#1f2937;">
<div style="max-width:600px;margin:0 auto;">
<h1 style="color:#1e3a5f;">Ihre Businessplan-Analyse ist fertig</h1>
<p>Hallo %s,</p>
<p>vielen Dank für Ihren Kauf. Ihre vollständige Analyse für <strong>%s</strong> finden Sie im Anhang.</p>
<table style="border-collapse:collapse;margin:16px 0;">
<tr><td style="padding:6px 12px;border:1px solid #d1d5db;">Punktzahl</td><td style="padding:6px 12px;border:1px solid #d1d5db;"><strong>%d / 100</strong></td></tr>
<tr><td style="padding:6px 12px;border:1px solid #d1d5db;">Erreichbar nach Korrekturen</td><td style="padding:6px 12px;border:1px solid #d1d5db;"><strong>%d / 100</strong></td></tr>
<tr><td style="padding:6px 12px;border:1px solid #d1d5db;">Ablehnungsrisiko</td><td style="padding:6px 12px;border:1px solid #d1d5db;color:%s;"><strong>%s</strong></td></tr>
</table>
<p>Der Bericht enthält alle Korrekturvorlagen zum direkten Übernehmen in Ihren Plan.</p>
<p>Viel Erfolg bei Ihrer Gründung!<br>Ihr GrunderAI-Team</p>
</div></body></html>`,
		html.EscapeString(name), html.EscapeString(a.BusinessName),
		a.Score, a.PotentialScore, riskColor, a.RiskLevel)
	return Message{
		To:      to,
		ToName:  name,
		Subject: fmt.Sprintf("Ihre Businessplan-Analyse: %d/100 Punkte", a.Score),
		HTML:    body,
		Attachments: []Attachment{{
			Filename:    "businessplan-analyse.pdf",
			ContentType: "application/pdf",
			Data:        pdf,
		}},
	}
}

// ConfirmationMessage composes the payment receipt email.
func ConfirmationMessage(to, name, orderID, amount, currency string) Message {
	if name == "" {
		name = "Gründerin/Gründer"
	}
	body := fmt.Sprintf(`<!doctype html><html lang="de"><body style="font-family:Arial,sans-serif;color:#1f2937;">
<div style="max-width:600px;margin:0 auto;">
<h1 style="color:#1e3a5f;">Zahlungsbestätigung</h1>
<p>Hallo %s,</p>
<p>wir haben Ihre Zahlung über <strong>%s %s</strong> erhalten.</p>
<p>Bestellnummer: <code>%s</code></p>
<p>Ihr Analysebericht wird Ihnen in einer separaten E-Mail zugestellt.</p>
<p>Ihr GrunderAI-Team</p>
</div></body></html>`,
		html.EscapeString(name), html.EscapeString(amount), html.EscapeString(currency), html.EscapeString(orderID))
	return Message{
		To:      to,
		ToName:  name,
		Subject: "Zahlungsbestätigung – GrunderAI Businessplan-Analyse",
		HTML:    body,
	}
}
