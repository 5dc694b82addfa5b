package normalize

import (
	"sort"
	"testing"
)

func TestName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "lowercase and trim",
			input: "  JAMES  ",
			want:  "james",
		},
		{
			name:  "apostrophe removed",
			input: "O'Brien",
			want:  "obrien",
		},
		{
			name:  "internal hyphen preserved",
			input: "Gonzalez-Irizarry",
			want:  "gonzalez-irizarry",
		},
		{
			name:  "whitespace collapsed",
			input: "Mary   Jo",
			want:  "mary jo",
		},
		{
			name:  "trailing period removed",
			input: "Jr.",
			want:  "jr",
		},
		{
			name:  "empty input",
			input: "   ",
			want:  "",
		},
		{
			name:  "diacritics preserved",
			input: "José",
			want:  "josé",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Name(tt.input); got != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCity(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "st period prefix",
			input: "St. Louis",
			want:  "saint louis",
		},
		{
			name:  "st space prefix",
			input: "St Paul",
			want:  "saint paul",
		},
		{
			name:  "saint prefix unchanged",
			input: "Saint Charles",
			want:  "saint charles",
		},
		{
			name:  "plain city",
			input: "Hamilton",
			want:  "hamilton",
		},
		{
			name:  "punctuation and casing",
			input: "  CINCINNATI, ",
			want:  "cincinnati",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := City(tt.input); got != tt.want {
				t.Errorf("City(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCityVariants(t *testing.T) {
	got := CityVariants("St. Louis")
	want := []string{"saint louis", "st louis"}

	if len(got) != len(want) {
		t.Fatalf("CityVariants(St. Louis) = %v, want %v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("CityVariants(St. Louis)[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if got := CityVariants("Dayton"); len(got) != 1 || got[0] != "dayton" {
		t.Errorf("CityVariants(Dayton) = %v, want [dayton]", got)
	}
}

func TestState(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "full name", input: "Ohio", want: "OH"},
		{name: "full name lowercase", input: "new york", want: "NY"},
		{name: "code passthrough lowercase", input: "oh", want: "OH"},
		{name: "code passthrough uppercase", input: "CA", want: "CA"},
		{name: "unknown passthrough uppercased", input: "zz", want: "ZZ"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := State(tt.input); got != tt.want {
				t.Errorf("State(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsStateCode(t *testing.T) {
	if !IsStateCode("OH") {
		t.Error("IsStateCode(OH) = false, want true")
	}

	if !IsStateCode("ohio") {
		t.Error("IsStateCode(ohio) = false, want true")
	}

	if IsStateCode("ZZ") {
		t.Error("IsStateCode(ZZ) = true, want false")
	}
}

func TestKeywords(t *testing.T) {
	got := Keywords(" Teacher, Elks Lodge ,, ")
	want := []string{"teacher", "elks lodge"}

	if len(got) != len(want) {
		t.Fatalf("Keywords = %v, want %v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keywords[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if got := Keywords(" , "); got != nil {
		t.Errorf("Keywords of empties = %v, want nil", got)
	}
}

func TestSearchKeyDeterminism(t *testing.T) {
	a := SearchKey("Smith", "James", "Hamilton", "OH", 71)
	b := SearchKey("SMITH", "james", "hamilton", "oh", 71)

	if a != b {
		t.Errorf("search keys differ across casing: %q vs %q", a, b)
	}

	if len(a) != 16 {
		t.Errorf("search key length = %d, want 16", len(a))
	}

	for _, r := range a {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			t.Errorf("search key contains non-hex character %q", r)
		}
	}
}

func TestSearchKeyDistinguishesQueries(t *testing.T) {
	a := SearchKey("Smith", "James", "Hamilton", "OH", 71)
	b := SearchKey("Smith", "James", "Hamilton", "OH", 72)
	c := SearchKey("Smith", "James", "Cincinnati", "OH", 71)

	if a == b {
		t.Error("different ages produced the same search key")
	}

	if a == c {
		t.Error("different cities produced the same search key")
	}
}

func TestSearchKeyCityVariantsCollapse(t *testing.T) {
	// St. Louis and Saint Louis normalize to the same canonical city, so the
	// search keys must match.
	a := SearchKey("Fagan", "Mary", "St. Louis", "MO", 80)
	b := SearchKey("Fagan", "Mary", "Saint Louis", "MO", 80)

	if a != b {
		t.Errorf("city variants produced different keys: %q vs %q", a, b)
	}
}

func TestNicknamesVariants(t *testing.T) {
	n := NewNicknames()

	got := n.Variants("Jim")
	sort.Strings(got)

	wantMembers := map[string]bool{"jim": true, "james": true, "jimmy": true, "jamie": true}
	if len(got) != len(wantMembers) {
		t.Fatalf("Variants(Jim) = %v, want members %v", got, wantMembers)
	}

	for _, v := range got {
		if !wantMembers[v] {
			t.Errorf("unexpected variant %q", v)
		}
	}
}

func TestNicknamesUnknownName(t *testing.T) {
	n := NewNicknames()

	got := n.Variants("Zebulon")
	if len(got) != 1 || got[0] != "zebulon" {
		t.Errorf("Variants(Zebulon) = %v, want [zebulon]", got)
	}
}

func TestNicknamesAreVariants(t *testing.T) {
	n := NewNicknames()

	if !n.AreVariants("Jim", "James") {
		t.Error("AreVariants(Jim, James) = false, want true")
	}

	if !n.AreVariants("jimmy", "jamie") {
		t.Error("AreVariants(jimmy, jamie) = false, want true")
	}

	if n.AreVariants("Jim", "Jim") {
		t.Error("AreVariants(Jim, Jim) = true, want false (equal names are not nicknames)")
	}

	if n.AreVariants("Jim", "Robert") {
		t.Error("AreVariants(Jim, Robert) = true, want false")
	}
}

func TestNicknamesAugmentationTransitivity(t *testing.T) {
	n := NewNicknames()

	// Persisted-table augmentation: linking one new name into an existing
	// group makes it a variant of every member.
	n.AddPair("james", "seamus")

	if !n.AreVariants("seamus", "jimmy") {
		t.Error("augmented name not transitively linked to group")
	}

	// Merging two existing groups keeps membership total.
	n.AddPair("james", "john")

	if !n.AreVariants("jimmy", "jack") {
		t.Error("merged groups are not mutual variants")
	}
}
