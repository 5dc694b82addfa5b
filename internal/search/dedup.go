package search

// Dedup merges candidates that share a fingerprint. Within a group the
// highest-provisional-score candidate wins, losers' URLs land in the
// winner's alsoFoundAt, and missing structured fields (name parts, age,
// DOD, location, service dates, image) are borrowed from a native
// funeral-home source even when the native hit scored lower. Input order
// is preserved for winners, so dedup is idempotent: running it twice
// yields the same slice.
func Dedup(candidates []Candidate, score func(*Candidate) int) []Candidate {
	if len(candidates) <= 1 {
		return candidates
	}

	order := make([]string, 0, len(candidates))
	winners := make(map[string]*Candidate, len(candidates))
	natives := make(map[string]*Candidate)

	for i := range candidates {
		candidate := candidates[i]
		fp := candidate.Fingerprint

		if candidate.Provider == ProviderNative {
			if _, seen := natives[fp]; !seen {
				keep := candidate
				natives[fp] = &keep
			}
		}

		current, seen := winners[fp]
		if !seen {
			order = append(order, fp)
			keep := candidate
			winners[fp] = &keep

			continue
		}

		if score(&candidate) > score(current) {
			candidate.AlsoFoundAt = appendURL(candidate.AlsoFoundAt, current.URL)
			candidate.AlsoFoundAt = append(candidate.AlsoFoundAt, current.AlsoFoundAt...)
			keep := candidate
			winners[fp] = &keep
		} else {
			current.AlsoFoundAt = appendURL(current.AlsoFoundAt, candidate.URL)
			current.AlsoFoundAt = append(current.AlsoFoundAt, candidate.AlsoFoundAt...)
		}
	}

	merged := make([]Candidate, 0, len(order))

	for _, fp := range order {
		winner := winners[fp]

		if native, ok := natives[fp]; ok && winner.Provider != ProviderNative {
			borrowStructured(winner, native)
		}

		merged = append(merged, *winner)
	}

	return merged
}

// borrowStructured copies structured fields the winner is missing from a
// native-source sibling. The winner's score and URL are untouched.
func borrowStructured(winner, native *Candidate) {
	if winner.NameFirst == "" && native.NameFirst != "" {
		winner.NameFirst = native.NameFirst
	}

	if winner.NameLast == "" && native.NameLast != "" {
		winner.NameLast = native.NameLast
	}

	if winner.Age == 0 && native.Age != 0 {
		winner.Age = native.Age
	}

	if winner.DOD == "" && native.DOD != "" {
		winner.DOD = native.DOD
	}

	if winner.City == "" && native.City != "" {
		winner.City = native.City
	}

	if winner.State == "" && native.State != "" {
		winner.State = native.State
	}

	if winner.DateVisitation == "" && native.DateVisitation != "" {
		winner.DateVisitation = native.DateVisitation
	}

	if winner.DateFuneral == "" && native.DateFuneral != "" {
		winner.DateFuneral = native.DateFuneral
	}

	if winner.ImageURL == "" && native.ImageURL != "" {
		winner.ImageURL = native.ImageURL
	}
}

func appendURL(urls []string, url string) []string {
	if url == "" {
		return urls
	}

	for _, existing := range urls {
		if existing == url {
			return urls
		}
	}

	return append(urls, url)
}
