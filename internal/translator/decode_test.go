package translator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func candidate(parts ...*genai.Part) *genai.Candidate {
	return &genai.Candidate{Content: &genai.Content{Parts: parts}}
}

func TestDecodeResponse(t *testing.T) {
	tests := []struct {
		name     string
		resp     *genai.GenerateContentResponse
		wantText string
		wantTier DecodeTier
	}{
		{
			name:     "nil response",
			resp:     nil,
			wantTier: TierFailed,
		},
		{
			name:     "no candidates",
			resp:     &genai.GenerateContentResponse{},
			wantTier: TierFailed,
		},
		{
			name: "text accessor",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				candidate(&genai.Part{Text: "Hallo "}, &genai.Part{Text: "Welt"}),
			}},
			wantText: "Hallo Welt",
			wantTier: TierText,
		},
		{
			name: "parts of the only candidate",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				candidate(&genai.Part{Text: `caf\xc3\xa9`, Thought: true}),
			}},
			wantText: "café",
			wantTier: TierParts,
		},
		{
			name: "first of several candidates",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				candidate(&genai.Part{Text: `line\nbreak`}),
				candidate(&genai.Part{Text: "other"}),
			}},
			wantText: "line\nbreak",
			wantTier: TierCandidate,
		},
		{
			name: "broken escape in first candidate",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				candidate(&genai.Part{Text: `bad \x4`}),
				candidate(&genai.Part{Text: "other"}),
			}},
			wantTier: TierFailed,
		},
		{
			name: "candidate without content",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{FinishReason: genai.FinishReasonSafety},
			}},
			wantTier: TierFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, tier := DecodeResponse(tt.resp)
			assert.Equal(t, tt.wantTier, tier)
			assert.Equal(t, tt.wantText, text)
		})
	}
}

func TestUnescapeLiteral(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "plain", want: "plain"},
		{in: `a\tb`, want: "a\tb"},
		{in: `quote \"x\" and \'y\'`, want: `quote "x" and 'y'`},
		{in: `back\\slash`, want: `back\slash`},
		{in: `\101\102`, want: "AB"},
		{in: `\0`, want: "\x00"},
		{in: `caf\xc3\xa9`, want: "café"},
		{in: `keep \q`, want: `keep \q`},
		{in: "joined \\\nline", want: "joined line"},
		{in: `trailing\`, wantErr: true},
		{in: `\x4`, wantErr: true},
		{in: `\xzz`, wantErr: true},
		{in: `\xff`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := unescapeLiteral(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
