package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tliron/commonlog"

	"github.com/kitten/prosemd-lsp/internal/suggest"
)

var log = commonlog.GetLogger("prosemd.engine")

// LanguageTool checks text against a LanguageTool HTTP server.
type LanguageTool struct {
	baseURL  string
	language string
	client   *http.Client
}

// NewLanguageTool creates a client for the server at baseURL. A nil client
// uses a default one with a 30 second timeout.
func NewLanguageTool(baseURL, language string, client *http.Client) *LanguageTool {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &LanguageTool{
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
		client:   client,
	}
}

type checkResponse struct {
	Matches []ltMatch `json:"matches"`
}

type ltMatch struct {
	Message      string `json:"message"`
	Offset       int    `json:"offset"`
	Length       int    `json:"length"`
	Replacements []struct {
		Value string `json:"value"`
	} `json:"replacements"`
	Rule struct {
		ID        string `json:"id"`
		SubID     string `json:"subId"`
		IssueType string `json:"issueType"`
		Category  struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"category"`
	} `json:"rule"`
}

// Suggest posts text to /v2/check and converts the matches.
func (lt *LanguageTool) Suggest(ctx context.Context, text string) ([]suggest.Suggestion, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("language", lt.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, lt.baseURL+"/v2/check", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build check request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := lt.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("check request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode check response: %w", err)
	}

	runeAt := utf16ToRunes(text)
	suggestions := make([]suggest.Suggestion, 0, len(out.Matches))
	for _, m := range out.Matches {
		start, end := m.Offset, m.Offset+m.Length
		if start < 0 || end < start || end >= len(runeAt) {
			log.Warningf("dropping match %s outside of text: [%d, %d)", m.Rule.ID, start, end)
			continue
		}
		rule := m.Rule.ID
		if m.Rule.SubID != "" {
			rule += "[" + m.Rule.SubID + "]"
		}
		s := suggest.Suggestion{
			Start:     runeAt[start],
			End:       runeAt[end],
			Rule:      rule,
			Message:   m.Message,
			Category:  m.Rule.Category.ID,
			IssueType: m.Rule.IssueType,
		}
		for _, r := range m.Replacements {
			s.Replacements = append(s.Replacements, r.Value)
		}
		suggestions = append(suggestions, s)
	}
	log.Debugf("checked %d bytes: %d matches", len(text), len(suggestions))
	return suggestions, nil
}

// Ping fetches /v2/languages to make sure the server is up.
func (lt *LanguageTool) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lt.baseURL+"/v2/languages", nil)
	if err != nil {
		return fmt.Errorf("failed to build ping request: %w", err)
	}
	resp, err := lt.client.Do(req)
	if err != nil {
		return fmt.Errorf("languagetool at %s is unreachable: %w", lt.baseURL, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("languagetool at %s answered %s", lt.baseURL, resp.Status)
	}
	return nil
}

// utf16ToRunes maps every UTF-16 offset in text (including the end) to a rune
// offset. Offsets inside a surrogate pair map to the start of the character.
func utf16ToRunes(text string) []int {
	out := make([]int, 0, len(text)+1)
	i := 0
	for _, c := range text {
		out = append(out, i)
		if c >= 0x10000 {
			out = append(out, i)
		}
		i++
	}
	return append(out, i)
}
