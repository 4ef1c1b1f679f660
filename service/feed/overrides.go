package feed

import "strings"

// OverrideStore answers curator override lookups by transaction hash.
type OverrideStore interface {
	IsBlacklisted(hash string) bool
	IsWhitelisted(hash string) bool
}

// Overrides is an immutable OverrideStore built from static hash lists.
// Hashes are compared case-insensitively.
type Overrides struct {
	blacklist map[string]struct{}
	whitelist map[string]struct{}
}

// NewOverrides builds an override set. Blank entries are ignored.
func NewOverrides(blacklist, whitelist []string) *Overrides {
	return &Overrides{
		blacklist: hashSet(blacklist),
		whitelist: hashSet(whitelist),
	}
}

// IsBlacklisted reports whether hash is on the blacklist.
func (o *Overrides) IsBlacklisted(hash string) bool {
	if o == nil {
		return false
	}
	_, ok := o.blacklist[normalizeHash(hash)]
	return ok
}

// IsWhitelisted reports whether hash is on the whitelist.
func (o *Overrides) IsWhitelisted(hash string) bool {
	if o == nil {
		return false
	}
	_, ok := o.whitelist[normalizeHash(hash)]
	return ok
}

func hashSet(hashes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		if h = normalizeHash(h); h != "" {
			set[h] = struct{}{}
		}
	}
	return set
}

func normalizeHash(hash string) string {
	return strings.ToUpper(strings.TrimSpace(hash))
}
