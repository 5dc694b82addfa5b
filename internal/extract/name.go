package extract

import (
	"net/url"
	"regexp"
	"strings"
)

// NameParts is the structured output of person-name extraction. First and
// Last may be empty when only a display name could be recovered.
type NameParts struct {
	Full  string
	First string
	Last  string
}

var (
	// Social-media artifacts: "(@handle)", "• Instagram", "| Facebook",
	// "on Instagram".
	socialHandleRe   = regexp.MustCompile(`\s*\(@[\w.]+\)`)
	socialSuffixRe   = regexp.MustCompile(`(?i)\s*(?:•\s*Instagram|\|\s*Facebook|\bon Instagram\b).*$`)
	memorialSuffixRe = regexp.MustCompile(`(?i)(?:'s)?\s*(?:Memorial Website|Tribute Wall)\s*$`)
	sentenceContinRe = regexp.MustCompile(`(?i)[,\s]+(?:who\s+)?(?:passed away|died|went to be with|service information will be|services will be|funeral services will|was born).*$`)
	honorificRe      = regexp.MustCompile(`^(?:Dr|Mr|Mrs|Ms|Rev|Fr|Sr|Pastor|Deacon|Sister|Brother|Capt|Sgt|Col)\.?\s+`)
	obituaryWordRe   = regexp.MustCompile(`(?i)\s*\bobituary\b:?\s*`)
	parenDatesRe     = regexp.MustCompile(`\s*\([^)]*\d[^)]*\)`)
	yearRangeStripRe = regexp.MustCompile(`\s*\b(?:1[89]|20)\d{2}\s*[-–—]\s*(?:19|20)\d{2}\b`)
	trailingAgeRe    = regexp.MustCompile(`,\s*\d{1,3}\s*$`)
	descriptiveRe    = regexp.MustCompile(`(?i),\s+(?:beloved|loving|devoted|longtime|late|formerly|age[d]?\s|a\s|an\s|of\s).*$`)
	trailingCityRe   = regexp.MustCompile(`(?:,|\s+of)?\s+[A-Z][a-z]+,\s*(?:[A-Z]{2}|[A-Z][a-z]+(?:\s[A-Z][a-z]+)?)\s*$`)
	dashSeparatorRe  = regexp.MustCompile(`\s+[-–—]\s+`)
	whitespaceCollRe = regexp.MustCompile(`\s+`)

	// Smashed-date artifacts: a month name abutting the final letter of a
	// name with no separator ("Stephen KellyFebruary 7, 2026"). May is
	// special-cased below so legitimate surnames ("Jesse May") survive.
	smashedMonthRe = regexp.MustCompile(`([a-z])(?:January|February|March|April|June|July|August|September|October|November|December)\b.*$`)
	smashedMayRe   = regexp.MustCompile(`([a-z])May\s+\d.*$`)

	// nameSuffixes are generational/professional suffixes popped from the
	// token tail before choosing the surname.
	nameSuffixes = map[string]bool{
		"jr": true, "sr": true, "ii": true, "iii": true, "iv": true, "v": true,
		"esq": true, "md": true, "phd": true, "dds": true, "rn": true,
	}

	// lastNameBlocklist rejects generic words that title parsing sometimes
	// leaves in surname position.
	lastNameBlocklist = map[string]bool{
		"videos": true, "website": true, "memorial": true, "obituary": true,
		"obituaries": true, "photos": true, "images": true, "soon": true,
		"funeral": true, "notice": true, "notices": true, "tribute": true,
		"tributes": true, "online": true, "services": true, "announcement": true,
		"announcements": true, "legacy": true, "county": true, "home": true,
	}

	// genericTitleRe marks a cleaned title as useless for name extraction.
	genericTitleRe = regexp.MustCompile(`(?i)^(?:recent obituaries|full text of|death notices?|in loving memory|obituaries)\b`)

	// Snippet fallback patterns, in priority order.
	snippetLastFirstRe = regexp.MustCompile(`\b([A-Z]{2,}),\s+([A-Z][a-z]+)`)
	snippetPassedRe    = regexp.MustCompile(`\b([A-Z][a-zA-Z'\-]+(?:\s+[A-Z][a-zA-Z'\-]+\.?){1,3})(?:,\s*\d{1,3},?)?\s+(?:of\s+[A-Z][a-zA-Z\s]+,?\s*)?(?:passed away|died|has passed)`)
	snippetAgeCommaRe  = regexp.MustCompile(`\b([A-Z][a-z]+)\s+((?:[A-Z]\.\s+)?[A-Z][a-zA-Z'\-]+),\s+(\d{1,3}),`)

	// slugSectionRe locates the obituary section of a URL path.
	slugSectionRe = regexp.MustCompile(`(?i)/(?:obituaries|obituary|obits|tribute|tributes)/`)
	slugTrailerRe = regexp.MustCompile(`(?:[-_]?\d+)?(?:\.\w+)?$`)
)

// PersonName extracts the deceased's name from a search hit. The title
// pipeline runs first; if it yields only a generic phrase, snippet patterns
// are tried, then the URL slug. queryLast (the saved search's last name, may
// be "") anchors the weakest snippet pattern.
func PersonName(title, snippet, pageURL, queryLast string) NameParts {
	if parts := nameFromTitle(title); parts.Last != "" {
		return parts
	}

	if parts := nameFromSnippet(snippet, queryLast); parts.Last != "" {
		return parts
	}

	return nameFromSlug(pageURL)
}

// nameFromTitle runs the ordered strip pipeline over a result title and
// splits what remains into name parts.
func nameFromTitle(title string) NameParts {
	cleaned := cleanTitle(title)
	if cleaned == "" || genericTitleRe.MatchString(cleaned) {
		return NameParts{}
	}

	tokens := strings.Fields(cleaned)
	if len(tokens) < 2 {
		return NameParts{}
	}

	// Pop trailing generational/professional suffixes.
	for len(tokens) > 1 {
		tail := strings.ToLower(strings.Trim(tokens[len(tokens)-1], ".,"))
		if !nameSuffixes[tail] {
			break
		}

		tokens = tokens[:len(tokens)-1]
	}

	if len(tokens) < 2 {
		return NameParts{}
	}

	first := strings.Trim(tokens[0], ".,")

	// Last name is the final token longer than a single letter, so middle
	// initials never become surnames.
	last := ""

	for i := len(tokens) - 1; i > 0; i-- {
		candidate := strings.Trim(tokens[i], ".,")
		if len([]rune(candidate)) > 1 {
			last = candidate

			break
		}
	}

	if !validLastName(last) {
		return NameParts{}
	}

	return NameParts{
		Full:  strings.Join(tokens, " "),
		First: first,
		Last:  last,
	}
}

// cleanTitle applies the strip pipeline in order. Each strip removes one
// class of artifact the sources decorate titles with.
func cleanTitle(title string) string {
	t := strings.TrimSpace(title)

	t = socialHandleRe.ReplaceAllString(t, "")
	t = socialSuffixRe.ReplaceAllString(t, "")
	t = memorialSuffixRe.ReplaceAllString(t, "")
	t = smashedMonthRe.ReplaceAllString(t, "$1")
	t = smashedMayRe.ReplaceAllString(t, "$1")
	t = sentenceContinRe.ReplaceAllString(t, "")
	t = trailingCityRe.ReplaceAllString(t, "")
	t = honorificRe.ReplaceAllString(t, "")
	t = parenDatesRe.ReplaceAllString(t, "")
	t = yearRangeStripRe.ReplaceAllString(t, "")
	t = pickSegment(t, "|")
	t = pickDashSegment(t)
	t = obituaryWordRe.ReplaceAllString(t, " ")
	t = trailingAgeRe.ReplaceAllString(t, "")
	t = descriptiveRe.ReplaceAllString(t, "")
	t = strings.Trim(t, " -–—,|")

	return whitespaceCollRe.ReplaceAllString(t, " ")
}

// pickSegment splits on a delimiter and returns the first segment that is
// not a generic phrase. Site names ride after pipes ("John Smith | Legacy");
// occasionally the name is the second segment ("Obituaries | John Smith").
func pickSegment(t, delim string) string {
	if !strings.Contains(t, delim) {
		return t
	}

	segments := strings.Split(t, delim)
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg != "" && !genericTitleRe.MatchString(seg) && strings.ContainsAny(seg, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ") {
			return seg
		}
	}

	return strings.TrimSpace(segments[0])
}

// pickDashSegment splits on space-surrounded dashes only, preserving
// hyphenated surnames like "Gonzalez-Irizarry".
func pickDashSegment(t string) string {
	segments := dashSeparatorRe.Split(t, -1)
	if len(segments) == 1 {
		return t
	}

	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg != "" && !genericTitleRe.MatchString(seg) {
			return seg
		}
	}

	return strings.TrimSpace(segments[0])
}

// validLastName rejects surname candidates that are years, numbers, or
// generic page words. Month names are legitimate surnames ("Jesse May") and
// pass through.
func validLastName(last string) bool {
	if last == "" {
		return false
	}

	lower := strings.ToLower(last)
	if lastNameBlocklist[lower] {
		return false
	}

	digitsOnly := true

	for _, r := range last {
		if r < '0' || r > '9' {
			digitsOnly = false

			break
		}
	}

	return !digitsOnly
}

// nameFromSnippet tries snippet patterns in priority order:
// "LASTNAME, Firstname", "Full Name passed away", "First Last, NN,",
// and finally "First <queryLast>".
func nameFromSnippet(snippet, queryLast string) NameParts {
	if strings.TrimSpace(snippet) == "" {
		return NameParts{}
	}

	if m := snippetLastFirstRe.FindStringSubmatch(snippet); m != nil {
		last := titleCase(m[1])
		if validLastName(last) {
			return NameParts{Full: m[2] + " " + last, First: m[2], Last: last}
		}
	}

	if m := snippetPassedRe.FindStringSubmatch(snippet); m != nil {
		if parts := splitFullName(m[1]); parts.Last != "" {
			return parts
		}
	}

	if m := snippetAgeCommaRe.FindStringSubmatch(snippet); m != nil {
		last := strings.TrimSpace(m[2])
		if validLastName(last) {
			return NameParts{Full: m[1] + " " + last, First: m[1], Last: last}
		}
	}

	if queryLast != "" {
		re, err := regexp.Compile(`\b([A-Z][a-z]+)\s+(` + regexp.QuoteMeta(titleCase(queryLast)) + `)\b`)
		if err == nil {
			if m := re.FindStringSubmatch(snippet); m != nil {
				return NameParts{Full: m[1] + " " + m[2], First: m[1], Last: m[2]}
			}
		}
	}

	return NameParts{}
}

// nameFromSlug recovers a name from URL paths shaped like
// "/obituaries/first-middle-last" or "/obituary/first-last-1234567".
func nameFromSlug(pageURL string) NameParts {
	if pageURL == "" {
		return NameParts{}
	}

	u, err := url.Parse(pageURL)
	if err != nil {
		return NameParts{}
	}

	loc := slugSectionRe.FindStringIndex(u.Path)
	if loc == nil {
		return NameParts{}
	}

	segment := u.Path[loc[1]:]
	if idx := strings.IndexByte(segment, '/'); idx >= 0 {
		segment = segment[:idx]
	}

	segment = slugTrailerRe.ReplaceAllString(segment, "")

	parts := strings.Split(segment, "-")
	words := make([]string, 0, len(parts))

	for _, p := range parts {
		if p == "" || isAllDigits(p) {
			continue
		}

		words = append(words, titleCase(p))
	}

	if len(words) < 2 {
		return NameParts{}
	}

	last := words[len(words)-1]
	if !validLastName(last) {
		return NameParts{}
	}

	return NameParts{
		Full:  strings.Join(words, " "),
		First: words[0],
		Last:  last,
	}
}

// splitFullName splits a multi-word display name into first/last, skipping
// single-letter middle initials in surname position.
func splitFullName(full string) NameParts {
	tokens := strings.Fields(strings.TrimSpace(full))
	if len(tokens) < 2 {
		return NameParts{}
	}

	last := ""

	for i := len(tokens) - 1; i > 0; i-- {
		candidate := strings.Trim(tokens[i], ".,")
		if len([]rune(candidate)) > 1 && !nameSuffixes[strings.ToLower(candidate)] {
			last = candidate

			break
		}
	}

	if !validLastName(last) {
		return NameParts{}
	}

	return NameParts{Full: strings.Join(tokens, " "), First: strings.Trim(tokens[0], ".,"), Last: last}
}

func titleCase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	runes := []rune(s)
	runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]

	return string(runes)
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
