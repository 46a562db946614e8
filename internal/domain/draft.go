package domain

// DraftBrief is the editor input for an AI-drafted news article.
type DraftBrief struct {
	Topic    string `json:"topic"`
	Category string `json:"category"`
	Notes    string `json:"notes"`
}

// NewsDraft is a validated AI-generated article draft.
type NewsDraft struct {
	Title           string   `json:"title"`
	Slug            string   `json:"slug"`
	Excerpt         string   `json:"excerpt"`
	Content         string   `json:"content"`
	MetaTitle       string   `json:"meta_title"`
	MetaDescription string   `json:"meta_description"`
	SEOKeywords     []string `json:"seo_keywords"`
	Category        string   `json:"category"`
}
