// Package enrich back-fills top-ranked candidates by fetching their source
// pages: DOD and service dates from the page text, a portrait image from
// the markup. All mutations are additive; a present field is never
// overwritten and any per-page failure degrades to "no enrichment".
package enrich

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// blockTags render as newlines so date phrases in adjacent elements do not
// smash together.
var blockTags = map[string]struct{}{
	"p": {}, "div": {}, "br": {}, "li": {}, "ul": {}, "ol": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"tr": {}, "td": {}, "th": {}, "table": {}, "section": {},
	"article": {}, "header": {}, "footer": {}, "blockquote": {},
}

// skippedTags contribute no visible text.
var skippedTags = map[string]struct{}{
	"script": {}, "style": {}, "noscript": {}, "iframe": {}, "svg": {},
}

// Text converts an HTML document to plain text. Script and style bodies
// are dropped, block-level boundaries become newlines, entities arrive
// already decoded by the tokenizer, and whitespace runs collapse.
func Text(r io.Reader) string {
	tokenizer := html.NewTokenizer(r)

	var sb strings.Builder

	skipDepth := 0

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return collapseWhitespace(sb.String())

		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)

			if _, skip := skippedTags[tag]; skip {
				skipDepth++

				continue
			}

			if _, block := blockTags[tag]; block {
				sb.WriteByte('\n')
			}

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)

			if _, skip := skippedTags[tag]; skip && skipDepth > 0 {
				skipDepth--

				continue
			}

			if _, block := blockTags[tag]; block {
				sb.WriteByte('\n')
			}

		case html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			if _, block := blockTags[string(name)]; block {
				sb.WriteByte('\n')
			}

		case html.TextToken:
			if skipDepth == 0 {
				sb.Write(tokenizer.Text())
			}
		}
	}
}

// collapseWhitespace squeezes runs of spaces and tabs, trims each line, and
// drops empty lines.
func collapseWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}

	return strings.Join(kept, "\n")
}
