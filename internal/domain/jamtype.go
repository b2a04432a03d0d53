package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// JamType identifies which jam site a submission link belongs to. New jam
// sites are added by implementing the same four operations and registering
// them in jamTypes below, rather than by subclassing — the same
// tagged-variant + dispatch-table shape the teacher uses for its algorithm
// name → solver function dispatch in solver-svc.
type JamType string

const (
	JamTypeItch      JamType = "itch"
	JamTypeLudumDare JamType = "ludum_dare"
)

var (
	itchJamLinkRe   = regexp.MustCompile(`^(https://itch\.io/jam/[a-z0-9_-]+)/?$`)
	itchEntryTailRe = regexp.MustCompile(`^/rate/([0-9]+)/?$`)

	ludumDareJamLinkRe   = regexp.MustCompile(`^(https://ldjam\.com/events/ludum-dare/[0-9]+)/?$`)
	ludumDareEntryTailRe = regexp.MustCompile(`^/([a-z0-9-]+)/?`)

	// Full-link variants of the above, used when no jam link is known yet
	// (e.g. /played has no exchange context to anchor a prefix to).
	itchFullEntryRe      = regexp.MustCompile(`^(https://itch\.io/jam/[a-z0-9_-]+)/rate/([0-9]+)/?$`)
	ludumDareFullEntryRe = regexp.MustCompile(`^(https://ldjam\.com/events/ludum-dare/[0-9]+)/([a-z0-9-]+)/?`)
)

// ludumDareReservedSlugs are LD jam-page tails that collide with entry-link
// shape but are not entries.
var ludumDareReservedSlugs = map[string]bool{
	"results": true,
	"games":   true,
	"theme":   true,
	"stats":   true,
}

// jamTypeOps is the per-variant operation set. Every JamType value must have
// an entry in jamTypes.
type jamTypeOps struct {
	jamLinkExample string
	normalizeJam   func(link string) (string, bool)
	entryExample   func(jamLink string) string
	normalizeEntry func(jamLink, entryLink string) (string, bool)
}

var jamTypes = map[JamType]jamTypeOps{
	JamTypeItch: {
		jamLinkExample: "https://itch.io/jam/example-jam",
		normalizeJam: func(link string) (string, bool) {
			m := itchJamLinkRe.FindStringSubmatch(link)
			if m == nil {
				return "", false
			}
			return m[1], true
		},
		entryExample: func(jamLink string) string {
			return jamLink + "/rate/123456"
		},
		normalizeEntry: func(jamLink, entryLink string) (string, bool) {
			tail, ok := strings.CutPrefix(entryLink, jamLink)
			if !ok {
				return "", false
			}
			m := itchEntryTailRe.FindStringSubmatch(tail)
			if m == nil {
				return "", false
			}
			return fmt.Sprintf("%s/rate/%s", jamLink, m[1]), true
		},
	},
	JamTypeLudumDare: {
		jamLinkExample: "https://ldjam.com/events/ludum-dare/123456",
		normalizeJam: func(link string) (string, bool) {
			m := ludumDareJamLinkRe.FindStringSubmatch(link)
			if m == nil {
				return "", false
			}
			return m[1], true
		},
		entryExample: func(jamLink string) string {
			return jamLink + "/example-game"
		},
		normalizeEntry: func(jamLink, entryLink string) (string, bool) {
			tail, ok := strings.CutPrefix(entryLink, jamLink)
			if !ok {
				return "", false
			}
			m := ludumDareEntryTailRe.FindStringSubmatch(tail)
			if m == nil {
				return "", false
			}
			slug := m[1]
			if slug == "" || ludumDareReservedSlugs[slug] {
				return "", false
			}
			return fmt.Sprintf("%s/%s", jamLink, slug), true
		},
	},
}

// Valid reports whether j is a known jam type.
func (j JamType) Valid() bool {
	_, ok := jamTypes[j]
	return ok
}

func (j JamType) ops() jamTypeOps {
	ops, ok := jamTypes[j]
	if !ok {
		panic(fmt.Sprintf("domain: unknown jam type %q", j))
	}
	return ops
}

// JamLinkExample returns a syntactically valid jam link for this jam type,
// used in user-facing usage hints.
func (j JamType) JamLinkExample() string {
	return j.ops().jamLinkExample
}

// NormalizeJamLink validates and canonicalises a jam link against this jam
// type's shape, stripping any trailing slash. Returns ok=false if link does
// not match.
func (j JamType) NormalizeJamLink(link string) (normalized string, ok bool) {
	return j.ops().normalizeJam(link)
}

// ExampleEntryLink returns a syntactically valid entry link for jamLink
// (which must already be normalized), used in user-facing usage hints.
func (j JamType) ExampleEntryLink(jamLink string) string {
	return j.ops().entryExample(jamLink)
}

// NormalizeEntryLink validates and canonicalises an entry link against
// jamLink (the exchange's normalized jam link). Returns ok=false if
// entryLink is not a child of jamLink or does not match the entry shape.
func (j JamType) NormalizeEntryLink(jamLink, entryLink string) (normalized string, ok bool) {
	return j.ops().normalizeEntry(jamLink, entryLink)
}

// ParseStandaloneEntryLink recognizes a full entry link with no prior jam
// link context, for commands (like /played) that record a played game
// without reference to a specific exchange. It tries every known jam
// type's full link shape and reports which one matched.
func ParseStandaloneEntryLink(link string) (jamType JamType, normalized string, ok bool) {
	if m := itchFullEntryRe.FindStringSubmatch(link); m != nil {
		return JamTypeItch, fmt.Sprintf("%s/rate/%s", m[1], m[2]), true
	}
	if m := ludumDareFullEntryRe.FindStringSubmatch(link); m != nil {
		slug := m[2]
		if slug == "" || ludumDareReservedSlugs[slug] {
			return "", "", false
		}
		return JamTypeLudumDare, fmt.Sprintf("%s/%s", m[1], slug), true
	}
	return "", "", false
}
