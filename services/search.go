package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/patrickmn/go-cache"
	"k8s.io/klog/v2"
)

// Search replies that do not come from the model
const (
	MsgNoResults    = "🔍 No specific results found for your query. Try rephrasing it!"
	MsgSearchFailed = "🚫 Search failed: Please try again in a moment"
)

const searchTemplate = `Act as a web search assistant. Provide comprehensive but concise information about: %s
Format your response as a list of 3-4 key points, each starting with an emoji.
Make sure the information is factual and relevant.`

// SearchFormatter asks the chat model for key points about a query and
// splits the answer into display lines.
type SearchFormatter struct {
	model       ChatModel
	strictEmoji bool
	cache       *cache.Cache
}

var _ Searcher = &SearchFormatter{}

// NewSearchFormatter creates a formatter. A positive cacheTTL caches results
// per query; strictEmoji keeps only lines that open with an emoji.
func NewSearchFormatter(model ChatModel, cacheTTL time.Duration, strictEmoji bool) *SearchFormatter {
	s := &SearchFormatter{
		model:       model,
		strictEmoji: strictEmoji,
	}
	if cacheTTL > 0 {
		s.cache = cache.New(cacheTTL, 2*cacheTTL)
	}
	return s
}

// Search never fails: errors come back as a single explanatory line
func (s *SearchFormatter) Search(ctx context.Context, query string) (results []string) {
	defer func() {
		if rec := recover(); rec != nil {
			klog.Errorf("Web search panic: %v", rec)
			results = []string{MsgSearchFailed}
		}
	}()

	key := strings.ToLower(strings.Join(strings.Fields(query), " "))
	if cached, ok := s.cached(key); ok {
		klog.V(2).Infof("Search cache hit for %q", query)
		return cached
	}

	reply, err := s.model.SendChat(ctx, nil, BuildSearchPrompt(query))
	if err != nil {
		klog.Errorf("Web search error: %v", err)
		return []string{MsgSearchFailed}
	}

	results = ParseSearchResults(reply, s.strictEmoji)
	if len(results) == 0 {
		return []string{MsgNoResults}
	}

	klog.V(2).Infof("Search results for %q: %v", query, results)
	if s.cache != nil {
		s.cache.SetDefault(key, results)
	}
	return append([]string(nil), results...)
}

func (s *SearchFormatter) cached(key string) ([]string, bool) {
	if s.cache == nil {
		return nil, false
	}
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}
	results, ok := v.([]string)
	if !ok {
		return nil, false
	}
	return append([]string(nil), results...), true
}

// BuildSearchPrompt frames a query for the search assistant
func BuildSearchPrompt(query string) string {
	return fmt.Sprintf(searchTemplate, query)
}

// ParseSearchResults keeps the trimmed, non-empty lines of text in order.
// With strictEmoji set only lines whose first character is an emoji survive.
func ParseSearchResults(text string, strictEmoji bool) []string {
	var results []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strictEmoji && !startsWithEmoji(line) {
			continue
		}
		results = append(results, line)
	}
	return results
}

func startsWithEmoji(line string) bool {
	r, _ := utf8.DecodeRuneInString(line)
	switch {
	case r == utf8.RuneError:
		return false
	case unicode.Is(unicode.So, r):
		return true
	case r >= 0x1F000 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	}
	return false
}

// GetStatus returns the formatter configuration
func (s *SearchFormatter) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"strict_emoji": s.strictEmoji,
		"cache":        s.cache != nil,
	}
	if s.cache != nil {
		status["cached_queries"] = s.cache.ItemCount()
	}
	return status
}
