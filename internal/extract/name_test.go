package extract

import "testing"

func TestPersonNameFromTitle(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		wantFirst string
		wantLast  string
	}{
		{
			name:      "plain obituary title",
			title:     "John Smith Obituary",
			wantFirst: "John",
			wantLast:  "Smith",
		},
		{
			name:      "smashed date artifact",
			title:     "Stephen KellyFebruary 7, 2026",
			wantFirst: "Stephen",
			wantLast:  "Kelly",
		},
		{
			name:      "month as surname survives",
			title:     "Jesse Gerald May Obituary - Newcomer Dayton",
			wantFirst: "Jesse",
			wantLast:  "May",
		},
		{
			name:      "smashed May with day is stripped",
			title:     "Robert JonesMay 12, 2025",
			wantFirst: "Robert",
			wantLast:  "Jones",
		},
		{
			name:      "honorific stripped",
			title:     "Dr. William Harris Obituary",
			wantFirst: "William",
			wantLast:  "Harris",
		},
		{
			name:      "trailing city and state",
			title:     "Margaret Olson Obituary Fargo, ND",
			wantFirst: "Margaret",
			wantLast:  "Olson",
		},
		{
			name:      "trailing city and full state name",
			title:     "Helen Carter of Dayton, Ohio",
			wantFirst: "Helen",
			wantLast:  "Carter",
		},
		{
			name:      "pipe suffix",
			title:     "Dorothy Mae Wilson | Tribute Archive",
			wantFirst: "Dorothy",
			wantLast:  "Wilson",
		},
		{
			name:      "hyphenated surname preserved",
			title:     "Carmen Gonzalez-Irizarry Obituary - Legacy Chapel",
			wantFirst: "Carmen",
			wantLast:  "Gonzalez-Irizarry",
		},
		{
			name:      "generational suffix popped",
			title:     "Walter Reed Jr. Obituary",
			wantFirst: "Walter",
			wantLast:  "Reed",
		},
		{
			name:      "year range stripped",
			title:     "Frank Novak 1941 - 2025",
			wantFirst: "Frank",
			wantLast:  "Novak",
		},
		{
			name:      "parenthetical dates stripped",
			title:     "Alice Freeman (1938-2024)",
			wantFirst: "Alice",
			wantLast:  "Freeman",
		},
		{
			name:      "trailing age stripped",
			title:     "Harold Bennett, 88",
			wantFirst: "Harold",
			wantLast:  "Bennett",
		},
		{
			name:      "memorial website suffix",
			title:     "Ruth Palmer's Memorial Website",
			wantFirst: "Ruth",
			wantLast:  "Palmer",
		},
		{
			name:      "sentence continuation cut",
			title:     "Gloria Reyes passed away peacefully at home",
			wantFirst: "Gloria",
			wantLast:  "Reyes",
		},
		{
			name:      "middle initial not surname",
			title:     "Edna Mae Thompson Obituary",
			wantFirst: "Edna",
			wantLast:  "Thompson",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PersonName(tt.title, "", "", "")
			if got.First != tt.wantFirst || got.Last != tt.wantLast {
				t.Errorf("PersonName(%q) = {First:%q Last:%q}, want {First:%q Last:%q}",
					tt.title, got.First, got.Last, tt.wantFirst, tt.wantLast)
			}
		})
	}
}

func TestPersonNameSnippetFallback(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		snippet   string
		queryLast string
		wantFirst string
		wantLast  string
	}{
		{
			name:      "generic title uses LASTNAME comma Firstname",
			title:     "Recent Obituaries",
			snippet:   "SMITH, James Edward, of Hamilton, passed away January 15, 2024.",
			wantFirst: "James",
			wantLast:  "Smith",
		},
		{
			name:      "passed away pattern",
			title:     "Obituaries",
			snippet:   "Eleanor Grace Whitfield passed away on Tuesday at her home.",
			wantFirst: "Eleanor",
			wantLast:  "Whitfield",
		},
		{
			name:      "age comma pattern",
			title:     "Death Notices",
			snippet:   "Arthur Klein, 92, died Sunday at Mercy Hospital.",
			wantFirst: "Arthur",
			wantLast:  "Klein",
		},
		{
			name:      "query hint anchors match",
			title:     "Full text of the notice",
			snippet:   "Services for Vernon Castillo are pending.",
			queryLast: "castillo",
			wantFirst: "Vernon",
			wantLast:  "Castillo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PersonName(tt.title, tt.snippet, "", tt.queryLast)
			if got.First != tt.wantFirst || got.Last != tt.wantLast {
				t.Errorf("PersonName(title=%q, snippet=%q) = {First:%q Last:%q}, want {First:%q Last:%q}",
					tt.title, tt.snippet, got.First, got.Last, tt.wantFirst, tt.wantLast)
			}
		})
	}
}

func TestPersonNameSlugFallback(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantFirst string
		wantLast  string
	}{
		{
			name:      "simple slug",
			url:       "https://www.example.com/obituaries/john-smith",
			wantFirst: "John",
			wantLast:  "Smith",
		},
		{
			name:      "slug with middle name and id",
			url:       "https://memorials.example.com/obituary/mary-ellen-fagan-11098223",
			wantFirst: "Mary",
			wantLast:  "Fagan",
		},
		{
			name:      "tribute path",
			url:       "https://chapel.example.com/tribute/walter-novak/",
			wantFirst: "Walter",
			wantLast:  "Novak",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PersonName("Recent Obituaries", "", tt.url, "")
			if got.First != tt.wantFirst || got.Last != tt.wantLast {
				t.Errorf("PersonName(slug %q) = {First:%q Last:%q}, want {First:%q Last:%q}",
					tt.url, got.First, got.Last, tt.wantFirst, tt.wantLast)
			}
		})
	}
}

func TestPersonNameRejectsGenericSurnames(t *testing.T) {
	// "Videos" in surname position is a parse artifact, not a person.
	got := PersonName("Obituary Videos", "", "", "")
	if got.Last != "" {
		t.Errorf("PersonName(Obituary Videos) = %+v, want no last name", got)
	}

	// All-digit and year surnames are rejected.
	got = PersonName("John 2024", "", "", "")
	if got.Last != "" {
		t.Errorf("PersonName(John 2024) = %+v, want no last name", got)
	}
}

func TestCityState(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantCity  string
		wantState string
	}{
		{
			name:      "of city with code",
			text:      "James Smith, 71, of Hamilton, OH, passed away.",
			wantCity:  "Hamilton",
			wantState: "OH",
		},
		{
			name:      "in city with full state name",
			text:      "She died at her home in Saint Paul, Minnesota on Sunday.",
			wantCity:  "Saint Paul",
			wantState: "MN",
		},
		{
			name:      "multi word city",
			text:      "longtime resident of West Palm Beach, FL",
			wantCity:  "West Palm Beach",
			wantState: "FL",
		},
		{
			name:      "invalid state code skipped",
			text:      "a man of Honor, ZZ until the end",
			wantCity:  "",
			wantState: "",
		},
		{
			name:      "no location",
			text:      "He loved fishing and his grandchildren.",
			wantCity:  "",
			wantState: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CityState(tt.text)
			if got.City != tt.wantCity || got.State != tt.wantState {
				t.Errorf("CityState(%q) = %+v, want {City:%q State:%q}", tt.text, got, tt.wantCity, tt.wantState)
			}
		})
	}
}

func TestAge(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "age keyword", text: "died at age 71 on Sunday", want: 71},
		{name: "aged keyword", text: "aged 88, of Dayton", want: 88},
		{name: "years old", text: "was 94 years old", want: 94},
		{name: "comma form", text: "Smith, 71, of Hamilton", want: 71},
		{name: "comma form below floor rejected", text: "Room, 12, Building 4", want: 0},
		{name: "over max rejected", text: "age 150 is not plausible", want: 0},
		{name: "no age", text: "beloved husband and father", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Age(tt.text); got != tt.want {
				t.Errorf("Age(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}
