package llm

import (
	"fmt"
	"strings"

	"BulletinBriefs/internal/domain"
	"BulletinBriefs/internal/seo"
)

const expansionSystemPrompt = `You are a senior editor at TheBulletinBriefs, an Indian news and exam-prep publication.
You expand thin articles into complete, factual, well-structured news pieces.
Reply with a single JSON object: {"content": "<html body>"}.
Use only <h2>, <h3>, <p>, <ul>, <ol>, <li>, <strong> and <em> tags. Do not invent quotes or statistics.`

const draftSystemPrompt = `You are a news writer at TheBulletinBriefs.
Write an original, neutral news article for the brief you are given.
Reply with a single JSON object and nothing else:
{
  "title": string,
  "slug": string,
  "excerpt": string,
  "content": string (HTML using <h2>, <p>, <ul>, <li>),
  "meta_title": string (max 60 characters),
  "meta_description": string (max 160 characters),
  "seo_keywords": string[],
  "category": string
}`

func expansionUserPrompt(article domain.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", article.Title)
	if len(article.SEOKeywords) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(article.SEOKeywords, ", "))
	}
	fmt.Fprintf(&b, "Current text (%d characters):\n%s\n\n", seo.PlainTextLength(article.Content), seo.StripHTML(article.Content))
	fmt.Fprintf(&b, "Expand this article to at least %d characters of body text.", 3*seo.MinContentLen)
	return b.String()
}

func draftUserPrompt(brief domain.DraftBrief) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", brief.Topic)
	if brief.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", brief.Category)
	}
	if brief.Notes != "" {
		fmt.Fprintf(&b, "Editor notes: %s\n", brief.Notes)
	}
	return b.String()
}
