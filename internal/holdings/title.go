package holdings

import (
	"fmt"
	"strings"
)

// DefaultTitle is used when neither a static title nor a page title exists
const DefaultTitle = "Untitled Fund"

// Titles maps source id → manually verified fund title.
// Built once at startup; read-only afterwards.
type Titles map[string]string

// ResolveTitle picks the display title for a source: static default first,
// then the page-derived title, then DefaultTitle.
func ResolveTitle(sourceID, pageTitle string, defaults Titles) string {
	if t, ok := defaults[sourceID]; ok && t != "" {
		return t
	}
	if t := strings.TrimSpace(pageTitle); t != "" {
		return t
	}
	return DefaultTitle
}

// TitleWithAmount appends " (1,234원)" when total is known
func TitleWithAmount(title string, total int64) string {
	if total <= 0 {
		return title
	}
	return fmt.Sprintf("%s (%s)", title, FormatAmount(total))
}

// ErrorTitle is the title of a failed source report
func ErrorTitle(name string) string {
	return name + " (Error)"
}
