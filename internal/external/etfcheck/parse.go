package etfcheck

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html"

	"github.com/gtoboy77/MoneyTrainer/internal/holdings"
)

// headerRows are summary rows above the composition list
const headerRows = 4

// blockTags break lines the way a rendered page does
var blockTags = map[string]bool{
	"br": true, "div": true, "p": true, "li": true, "ul": true,
	"dt": true, "dd": true, "h1": true, "h2": true, "h3": true, "h4": true,
}

// ParsePage extracts holdings rows and the page title from a composition page.
// Row order is the page order.
func ParsePage(r io.Reader) ([]holdings.RawRow, string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, "", fmt.Errorf("parse html: %w", err)
	}

	rows := []holdings.RawRow{}
	doc.Find("table tbody tr").Each(func(i int, tr *goquery.Selection) {
		if i < headerRows {
			return
		}

		cells := tr.Find("td")
		if cells.Length() < 3 {
			return
		}

		info := lines(cells.Eq(0))
		if len(info) == 0 || info[0] == "" {
			return
		}
		code := info[0]
		name := code
		if len(info) > 2 {
			name = info[2]
		}

		weight := decimal.Zero
		if w := lines(cells.Eq(2)); len(w) > 0 {
			// 앞의 숫자만 읽음 (등락 표시는 무시), 숫자가 없으면 0
			if parsed, err := holdings.ParseLeadingWeight(w[0]); err == nil {
				weight = parsed
			}
		}

		rows = append(rows, holdings.RawRow{
			Code:          code,
			Name:          name,
			WeightPercent: weight,
		})
	})

	return rows, pageTitle(doc), nil
}

// pageTitle: .instrument-name, else <title>, first "|" segment
func pageTitle(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.Find(".instrument-name").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if i := strings.Index(title, "|"); i >= 0 {
		title = title[:i]
	}
	return strings.TrimSpace(title)
}

// lines renders a cell as its visible text lines, blank lines dropped
func lines(sel *goquery.Selection) []string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		writeText(&b, n)
	}

	var out []string
	for _, line := range strings.Split(b.String(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}
	}

	block := n.Type == html.ElementNode && blockTags[n.Data]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteByte('\n')
	}
}
