package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type cannedMessager struct {
	text   string
	err    error
	prompt string
}

func (m *cannedMessager) New(_ context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	if len(params.Messages) > 0 {
		for _, block := range params.Messages[0].Content {
			if block.OfText != nil {
				m.prompt = block.OfText.Text
			}
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{{Type: "text", Text: m.text}},
	}, nil
}

func TestRequestAnalysisParsesFencedResponse(t *testing.T) {
	m := &cannedMessager{text: "```json\n{\"score\": 61, \"business_name\": \"Testfirma\"}\n```"}
	r := NewAnthropicRequester(m, "")
	raw, err := r.RequestAnalysis(context.Background(), "Businessplan Text "+strings.Repeat("x", 200))
	if err != nil {
		t.Fatalf("RequestAnalysis: %v", err)
	}
	if asInt(raw.Score, -1) != 61 || raw.BusinessName != "Testfirma" {
		t.Fatalf("unexpected raw: %+v", raw)
	}
}

func TestRequestAnalysisPropagatesTransportError(t *testing.T) {
	m := &cannedMessager{err: errors.New("connection refused")}
	r := NewAnthropicRequester(m, "claude-sonnet-4-20250514")
	if _, err := r.RequestAnalysis(context.Background(), "text"); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestRequestAnalysisFailsOnNonJSON(t *testing.T) {
	m := &cannedMessager{text: "Es tut mir leid, ich kann das nicht analysieren."}
	r := NewAnthropicRequester(m, "")
	if _, err := r.RequestAnalysis(context.Background(), "text"); err == nil {
		t.Fatal("expected parse error for prose response")
	}
}

func TestBuildPromptContainsCatalogAndText(t *testing.T) {
	p := BuildPrompt("Mein Plan für einen Lebensmittelladen")
	for _, want := range []string{"G1", "F6", "M5", "B4", "Q3", "R3", "Lebensmittelladen", "WARNUNG", "NICHT_GEFUNDEN"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPromptCapsDocumentText(t *testing.T) {
	long := strings.Repeat("a", MaxDocumentChars*2)
	p := BuildPrompt(long)
	if strings.Contains(p, strings.Repeat("a", MaxDocumentChars+1)) {
		t.Fatal("document text was not capped")
	}
}

func TestNewAnthropicRequesterFromEnvRequiresKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	if _, err := NewAnthropicRequesterFromEnv(""); err == nil {
		t.Fatal("expected error without API key")
	}
}
