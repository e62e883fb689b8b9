package translator

import (
	"errors"
	"strings"
	"unicode/utf8"

	"google.golang.org/genai"
)

// DecodeTier records which strategy produced a response's text.
type DecodeTier int

const (
	TierText DecodeTier = iota
	TierParts
	TierCandidate
	TierFailed
)

func (t DecodeTier) String() string {
	switch t {
	case TierText:
		return "text"
	case TierParts:
		return "parts"
	case TierCandidate:
		return "candidate"
	default:
		return "failed"
	}
}

var errNoText = errors.New("response carries no text")

// DecodeResponse extracts the translated text from a generation response.
// Tiers are tried in order: the response's text accessor, the parts of its
// only candidate, then the parts of the first of several candidates. The
// latter two undo literal escape sequences.
func DecodeResponse(resp *genai.GenerateContentResponse) (string, DecodeTier) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", TierFailed
	}

	if len(resp.Candidates) == 1 {
		if text := resp.Text(); text != "" {
			return text, TierText
		}
		if text, err := decodeParts(resp.Candidates[0]); err == nil {
			return text, TierParts
		}
		return "", TierFailed
	}

	if text, err := decodeParts(resp.Candidates[0]); err == nil {
		return text, TierCandidate
	}
	return "", TierFailed
}

func decodeParts(c *genai.Candidate) (string, error) {
	if c == nil || c.Content == nil {
		return "", errNoText
	}
	var sb strings.Builder
	for _, p := range c.Content.Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errNoText
	}
	return unescapeLiteral(sb.String())
}

var (
	errTrailingBackslash = errors.New("trailing backslash")
	errInvalidHexEscape  = errors.New("invalid \\x escape")
	errInvalidUTF8       = errors.New("unescaped text is not valid UTF-8")
)

// unescapeLiteral resolves backslash escapes (\n, \t, \xhh, octal, quotes)
// to raw bytes and requires the result to be valid UTF-8. Unknown escapes are
// kept verbatim.
func unescapeLiteral(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}

	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		i++
		if i >= len(s) {
			return "", errTrailingBackslash
		}
		switch e := s[i]; e {
		case '\n':
			// line continuation
		case '\\', '\'', '"':
			out = append(out, e)
		case 'a':
			out = append(out, '\a')
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'v':
			out = append(out, '\v')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			v := int(e - '0')
			for n := 0; n < 2 && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '7'; n++ {
				i++
				v = v*8 + int(s[i]-'0')
			}
			out = append(out, byte(v))
		case 'x':
			if i+2 >= len(s) {
				return "", errInvalidHexEscape
			}
			hi, okHi := hexValue(s[i+1])
			lo, okLo := hexValue(s[i+2])
			if !okHi || !okLo {
				return "", errInvalidHexEscape
			}
			out = append(out, hi<<4|lo)
			i += 2
		default:
			out = append(out, '\\', e)
		}
	}

	if !utf8.Valid(out) {
		return "", errInvalidUTF8
	}
	return string(out), nil
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
