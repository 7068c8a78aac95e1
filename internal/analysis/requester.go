package analysis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/LukaSashic/gruenderai/internal/criteria"
)

// MaxDocumentChars caps how much extracted plan text is sent to the
// model in a single analysis request.
const MaxDocumentChars = 8000

const systemPrompt = "Du bist ein Gutachter der Bundesagentur für Arbeit und prüfst deutsche " +
	"Businesspläne auf Gründungszuschuss-Fähigkeit nach den BA GZ 04 Kriterien. " +
	"Antworte ausschließlich mit validem JSON."

// Requester is the external-collaborator boundary to the model service.
// On success the raw object is handed unmodified to the normalizer; any
// failure is converted by the caller into the degraded analysis.
type Requester interface {
	RequestAnalysis(ctx context.Context, documentText string) (RawAnalysis, error)
}

// Messager is the slice of the Anthropic client the requester needs,
// kept narrow so tests can substitute a canned implementation.
type Messager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicRequester struct {
	messages Messager
	model    anthropic.Model
}

func NewAnthropicRequester(messages Messager, model string) *AnthropicRequester {
	m := anthropic.Model(model)
	if strings.TrimSpace(model) == "" {
		m = anthropic.ModelClaudeSonnet4_20250514
	}
	return &AnthropicRequester{messages: messages, model: m}
}

func NewAnthropicRequesterFromEnv(model string) (*AnthropicRequester, error) {
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return NewAnthropicRequester(&c.Messages, model), nil
}

func (r *AnthropicRequester) RequestAnalysis(ctx context.Context, documentText string) (RawAnalysis, error) {
	resp, err := r.messages.New(ctx, anthropic.MessageNewParams{
		Model:       r.model,
		MaxTokens:   8000,
		Temperature: anthropic.Float(0.3),
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(BuildPrompt(documentText)))},
	})
	if err != nil {
		return RawAnalysis{}, fmt.Errorf("model call: %w", err)
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return ParseRaw(sb.String())
}

// BuildPrompt assembles the analysis instruction from the criteria
// catalog and the (capped) extracted document text.
func BuildPrompt(documentText string) string {
	if len(documentText) > MaxDocumentChars {
		documentText = documentText[:MaxDocumentChars]
	}
	var b strings.Builder
	b.WriteString("Analysiere diesen deutschen Business Plan für Gründungszuschuss-Bewilligung.\n\n")
	b.WriteString("BUSINESS PLAN TEXT:\n")
	b.WriteString(documentText)
	b.WriteString("\n\nWICHTIG: ANTWORTE NUR AUF DEUTSCH!\n\nANALYSE-AUFGABEN:\n\n")
	b.WriteString("1. BUSINESS NAME & BRANCHE ERKENNEN: Extrahiere Firmennamen/Projektnamen und Branche aus dem Text.\n\n")
	b.WriteString("2. POSITIVE ASPEKTE IDENTIFIZIEREN: Liste 3-5 Dinge auf, die der Business Plan bereits gut macht.\n\n")
	b.WriteString("3. SCORE BERECHNEN (0-100):\n")
	b.WriteString("   - 85-100: Sehr gute Chancen (NIEDRIGES RISIKO)\n")
	b.WriteString("   - 65-84: Gute Chancen (MITTLERES RISIKO)\n")
	b.WriteString("   - 45-64: Moderate Chancen (HOHES RISIKO)\n")
	b.WriteString("   - 0-44: Kritisch (KRITISCHES RISIKO)\n\n")
	b.WriteString("4. TOP 3 ISSUES: je title, description, severity (KRITISCH/HOCH/MITTEL), fix, ")
	b.WriteString("copy_paste_text (3-5 Sätze), time_minutes (5-30), impact_points (3-15), why_it_works.\n\n")
	b.WriteString("5. 27 KRITERIEN CHECKLISTE: Bewerte ALLE Kriterien mit \"OK\", \"WARNUNG\", \"FEHLER\" oder \"NICHT_GEFUNDEN\":\n")
	b.WriteString(criteria.PromptSection())
	b.WriteString("\n6. KOPIERVORLAGEN (criteria_fixes) für alle WARNUNG/FEHLER Kriterien: ")
	b.WriteString("je problem, copy_paste_text, time_minutes, impact_points, why_it_works.\n\n")
	b.WriteString("7. UMSATZVERGLEICH (revenue_comparison): plan (Zahl), ihk_benchmark (Zahl oder Bereich wie \"120000-180000\"), deviation_percent.\n\n")
	b.WriteString("8. PERSONALISIERTE ZUSAMMENFASSUNG (personalized_summary): 4-5 Sätze mit Business-Namen, positiven Aspekten, kritischen Punkten.\n\n")
	b.WriteString("ANTWORT ALS JSON mit den Feldern: score, risk_level, detected_industry, business_name, ")
	b.WriteString("positive_aspects, issues, criteria_checklist, criteria_fixes, revenue_comparison, personalized_summary.\n")
	b.WriteString("ANTWORTE NUR MIT VALIDEM JSON.")
	return b.String()
}
