package normalize

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// nicknameSeed is the built-in nickname groups. Each inner slice is one
// mutual-variant group; group membership is total (every member is a variant
// of every other member). The seed must be sufficient on its own; persisted
// and file-based variants only augment it.
var nicknameSeed = [][]string{
	{"james", "jim", "jimmy", "jamie"},
	{"john", "jack", "johnny", "jon"},
	{"robert", "rob", "bob", "bobby", "robbie", "bert"},
	{"william", "will", "bill", "billy", "willie", "liam"},
	{"richard", "rick", "dick", "richie", "ricky"},
	{"michael", "mike", "mikey", "mick"},
	{"david", "dave", "davey"},
	{"thomas", "tom", "tommy"},
	{"charles", "charlie", "chuck", "chas"},
	{"joseph", "joe", "joey"},
	{"christopher", "chris", "kit"},
	{"daniel", "dan", "danny"},
	{"matthew", "matt", "matty"},
	{"anthony", "tony"},
	{"donald", "don", "donnie"},
	{"steven", "stephen", "steve", "stevie"},
	{"andrew", "andy", "drew"},
	{"kenneth", "ken", "kenny"},
	{"joshua", "josh"},
	{"gerald", "jerry", "gerry"},
	{"timothy", "tim", "timmy"},
	{"ronald", "ron", "ronnie"},
	{"edward", "ed", "eddie", "ted", "teddy", "ned"},
	{"jason", "jay"},
	{"jeffrey", "jeff"},
	{"gregory", "greg"},
	{"raymond", "ray"},
	{"lawrence", "larry"},
	{"nicholas", "nick", "nicky"},
	{"eugene", "gene"},
	{"russell", "russ", "rusty"},
	{"benjamin", "ben", "benny"},
	{"samuel", "sam", "sammy"},
	{"frederick", "fred", "freddie"},
	{"alexander", "alex", "al"},
	{"patrick", "pat", "paddy"},
	{"dennis", "denny"},
	{"walter", "walt", "wally"},
	{"henry", "hank", "harry"},
	{"arthur", "art", "artie"},
	{"albert", "al", "bertie"},
	{"leonard", "leo", "len", "lenny"},
	{"vincent", "vince", "vinny"},
	{"francis", "frank", "frankie"},
	{"mary", "marie", "molly", "polly"},
	{"patricia", "pat", "patty", "tricia", "trish"},
	{"jennifer", "jen", "jenny"},
	{"linda", "lindy"},
	{"elizabeth", "liz", "beth", "betty", "betsy", "eliza", "libby", "lizzie"},
	{"barbara", "barb", "barbie", "babs"},
	{"susan", "sue", "susie", "suzy"},
	{"jessica", "jess", "jessie"},
	{"sarah", "sara", "sally"},
	{"karen", "kari"},
	{"margaret", "maggie", "meg", "peggy", "peg", "marge", "margie", "rita"},
	{"dorothy", "dot", "dottie", "dolly"},
	{"nancy", "nan"},
	{"deborah", "debra", "deb", "debbie"},
	{"sandra", "sandy"},
	{"kimberly", "kim"},
	{"donna", "dona"},
	{"catherine", "katherine", "kathryn", "kate", "katie", "kathy", "cathy", "kay", "kitty"},
	{"christine", "christina", "chris", "chrissy", "tina"},
	{"rebecca", "becky", "becca"},
	{"virginia", "ginny", "ginger"},
	{"judith", "judy"},
	{"janet", "jan"},
	{"pamela", "pam"},
	{"cynthia", "cindy"},
	{"kathleen", "kathy", "katie"},
	{"florence", "flo", "flossie"},
	{"frances", "fran", "frannie", "fanny"},
	{"victoria", "vicky", "vicki", "tori"},
	{"jacqueline", "jackie"},
	{"gertrude", "trudy", "gertie"},
	{"theodore", "ted", "teddy", "theo"},
	{"abigail", "abby", "gail"},
	{"eleanor", "ellie", "nell", "nellie", "nora"},
	{"beverly", "bev"},
	{"harold", "hal", "harry"},
	{"stanley", "stan"},
	{"norman", "norm"},
	{"eugenia", "gena"},
	{"josephine", "jo", "josie"},
	{"veronica", "ronnie"},
	{"angela", "angie"},
	{"stephanie", "steph"},
	{"melissa", "mel", "missy"},
	{"amanda", "mandy"},
	{"suzanne", "sue", "susie"},
	{"roberta", "bobbie"},
	{"wilma", "billie"},
}

// Nicknames holds bidirectional nickname variant groups with transitive
// membership: if A↔B and A↔C, then A, B and C are all mutual variants.
//
// The zero value is not usable; construct with NewNicknames. Augmentation
// (AddPair) merges groups, keeping membership total.
//
// Nicknames is built once at startup and is read-only afterwards, so it is
// safe for concurrent readers without locking.
type Nicknames struct {
	groups map[string]map[string]struct{}
}

// NewNicknames builds the nickname set from the static code seed.
func NewNicknames() *Nicknames {
	n := &Nicknames{groups: make(map[string]map[string]struct{})}

	for _, group := range nicknameSeed {
		for i := 1; i < len(group); i++ {
			n.AddPair(group[0], group[i])
		}
	}

	return n
}

// AddPair records that a and b are nickname variants of each other. If either
// already belongs to a group, the groups are merged so membership stays
// transitive.
func (n *Nicknames) AddPair(a, b string) {
	a = Name(a)
	b = Name(b)

	if a == "" || b == "" || a == b {
		return
	}

	ga, okA := n.groups[a]
	gb, okB := n.groups[b]

	switch {
	case !okA && !okB:
		g := map[string]struct{}{a: {}, b: {}}
		n.groups[a] = g
		n.groups[b] = g
	case okA && !okB:
		ga[b] = struct{}{}
		n.groups[b] = ga
	case !okA && okB:
		gb[a] = struct{}{}
		n.groups[a] = gb
	case okA && okB:
		if _, same := ga[b]; same {
			return
		}
		// Merge the smaller group into the larger one
		if len(gb) > len(ga) {
			ga, gb = gb, ga
		}

		for member := range gb {
			ga[member] = struct{}{}
			n.groups[member] = ga
		}
	}
}

// Variants returns the normalized input plus every member of its nickname
// group. A name with no known variants returns a single-element slice.
// Output order is not specified.
func (n *Nicknames) Variants(name string) []string {
	canonical := Name(name)
	if canonical == "" {
		return nil
	}

	group, ok := n.groups[canonical]
	if !ok {
		return []string{canonical}
	}

	out := make([]string, 0, len(group)+1)
	out = append(out, canonical)

	for member := range group {
		if member != canonical {
			out = append(out, member)
		}
	}

	return out
}

// AreVariants reports whether a and b belong to the same nickname group
// (after normalization). Equal names are not considered nickname variants.
func (n *Nicknames) AreVariants(a, b string) bool {
	ca := Name(a)
	cb := Name(b)

	if ca == "" || cb == "" || ca == cb {
		return false
	}

	group, ok := n.groups[ca]
	if !ok {
		return false
	}

	_, member := group[cb]

	return member
}

// nicknameFile is the YAML shape of an optional nickname override file:
//
//	groups:
//	  - [james, jim, jimmy]
//	  - [margaret, peggy]
type nicknameFile struct {
	Groups [][]string `yaml:"groups"`
}

// LoadFile augments the nickname set from a YAML file of variant groups.
// Groups in the file merge with the seed; the file never replaces it.
func (n *Nicknames) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read nickname file: %w", err)
	}

	var file nicknameFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse nickname file %s: %w", path, err)
	}

	for _, group := range file.Groups {
		for i := 1; i < len(group); i++ {
			n.AddPair(group[0], group[i])
		}
	}

	return nil
}
