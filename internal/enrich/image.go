package enrich

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// siteSelectors map host suffixes to an img class fragment known to carry
// the obituary portrait on that platform. Checked before the generic
// fallbacks.
var siteSelectors = map[string]string{
	"legacy.com":          "crop-photo",
	"dignitymemorial.com": "obit-photo",
	"tributearchive.com":  "profile-image",
	"echovita.com":        "deceased-photo",
}

// placeholderRe rejects logos, sprites, and stock placeholders wherever an
// image URL is considered.
var placeholderRe = regexp.MustCompile(`(?i)logo|placeholder|default[-_]|sprite|icon|avatar[-_]?blank|share[-_]?image|og[-_]?default`)

// obitContainerRe matches container classes that usually wrap the portrait.
var obitContainerRe = regexp.MustCompile(`(?i)obit|photo|portrait|deceased|memorial`)

// ImageURL extracts the obituary portrait URL from raw HTML, in priority
// order: site-specific selector, Open Graph image, Twitter card image,
// then any img inside an obituary-ish container. Relative URLs resolve
// against the page URL. Returns "" when nothing usable is found.
func ImageURL(rawHTML, pageURL string) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}

	base, _ := url.Parse(pageURL)

	if src := siteSpecificImage(doc, pageURL); src != "" {
		return resolveURL(base, src)
	}

	if src := metaImage(doc, "og:image"); src != "" {
		return resolveURL(base, src)
	}

	if src := metaImage(doc, "twitter:image"); src != "" {
		return resolveURL(base, src)
	}

	if src := containerImage(doc); src != "" {
		return resolveURL(base, src)
	}

	return ""
}

func siteSpecificImage(doc *html.Node, pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")

	var classFragment string

	for suffix, fragment := range siteSelectors {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			classFragment = fragment

			break
		}
	}

	if classFragment == "" {
		return ""
	}

	return findImage(doc, func(n *html.Node) bool {
		return strings.Contains(attr(n, "class"), classFragment)
	})
}

// metaImage reads <meta property|name="..."> content, skipping placeholder
// and logo URLs.
func metaImage(doc *html.Node, property string) string {
	var found string

	walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "meta" {
			return true
		}

		if attr(n, "property") != property && attr(n, "name") != property {
			return true
		}

		content := strings.TrimSpace(attr(n, "content"))
		if content == "" || placeholderRe.MatchString(content) {
			return true
		}

		found = content

		return false
	})

	return found
}

// containerImage finds the first img nested under an element whose class
// looks like an obituary photo container.
func containerImage(doc *html.Node) string {
	var found string

	walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || !obitContainerRe.MatchString(attr(n, "class")) {
			return true
		}

		if src := findImage(n, func(*html.Node) bool { return true }); src != "" {
			found = src

			return false
		}

		return true
	})

	return found
}

// findImage returns the src of the first img under root accepted by the
// predicate, skipping placeholders.
func findImage(root *html.Node, accept func(*html.Node) bool) string {
	var found string

	walk(root, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "img" || !accept(n) {
			return true
		}

		src := strings.TrimSpace(attr(n, "src"))
		if src == "" {
			src = strings.TrimSpace(attr(n, "data-src"))
		}

		if src == "" || strings.HasPrefix(src, "data:") || placeholderRe.MatchString(src) {
			return true
		}

		found = src

		return false
	})

	return found
}

// walk runs fn over the tree depth-first; fn returning false stops the walk.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if !walk(child, fn) {
			return false
		}
	}

	return true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}

	return ""
}

func resolveURL(base *url.URL, ref string) string {
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}

	if base == nil {
		return parsed.String()
	}

	return base.ResolveReference(parsed).String()
}
