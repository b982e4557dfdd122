package auth

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
)

// ModuleKey identifies a platform module in a permission map (e.g. "product",
// "order", "user"). Keys are validated on the way in so that a typo made when
// editing a role surfaces as an error instead of silently denying everything.
type ModuleKey string

// ActionKey identifies an action within a module (e.g. "view", "edit").
type ActionKey string

// keyPattern is the valid format for module and action keys:
// lowercase alphanumeric with hyphens and underscores, 1-64 characters.
var keyPattern = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// Valid reports whether the module key has an acceptable format.
func (m ModuleKey) Valid() bool { return keyPattern.MatchString(string(m)) }

// Valid reports whether the action key has an acceptable format.
func (a ActionKey) Valid() bool { return keyPattern.MatchString(string(a)) }

// PermissionMap maps a module to the actions a role may perform on it.
// An absent module grants nothing; matching is exact and case-sensitive.
type PermissionMap map[ModuleKey][]ActionKey

// Allows reports whether the map grants the given action on the given module.
func (p PermissionMap) Allows(module ModuleKey, action ActionKey) bool {
	for _, a := range p[module] {
		if a == action {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. Cached entries hand out clones so callers can
// never mutate shared state.
func (p PermissionMap) Clone() PermissionMap {
	if p == nil {
		return PermissionMap{}
	}
	out := make(PermissionMap, len(p))
	for module, actions := range p {
		copied := make([]ActionKey, len(actions))
		copy(copied, actions)
		out[module] = copied
	}
	return out
}

// Modules returns the module keys in sorted order. Used for stable audit and
// log output.
func (p PermissionMap) Modules() []ModuleKey {
	keys := make([]ModuleKey, 0, len(p))
	for m := range p {
		keys = append(keys, m)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// ParsePermissionMap builds a validated PermissionMap from raw string data
// (typically decoded JSON from the roles table or an admin request).
// Duplicate actions are collapsed; invalid keys are rejected outright.
func ParsePermissionMap(raw map[string][]string) (PermissionMap, error) {
	out := make(PermissionMap, len(raw))
	for module, actions := range raw {
		mk := ModuleKey(module)
		if !mk.Valid() {
			return nil, fmt.Errorf("invalid module key %q", module)
		}
		seen := make(map[ActionKey]struct{}, len(actions))
		var deduped []ActionKey
		for _, action := range actions {
			ak := ActionKey(action)
			if !ak.Valid() {
				return nil, fmt.Errorf("invalid action key %q for module %q", action, module)
			}
			if _, ok := seen[ak]; ok {
				continue
			}
			seen[ak] = struct{}{}
			deduped = append(deduped, ak)
		}
		out[mk] = deduped
	}
	return out, nil
}

// DecodePermissionMap parses the JSON stored in the roles table. A NULL or
// empty column decodes to an empty map; no action is ever implicitly granted.
func DecodePermissionMap(data []byte) (PermissionMap, error) {
	if len(data) == 0 {
		return PermissionMap{}, nil
	}
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding permission map: %w", err)
	}
	return ParsePermissionMap(raw)
}

// EncodePermissionMap serialises a PermissionMap for storage.
func EncodePermissionMap(p PermissionMap) ([]byte, error) {
	if p == nil {
		p = PermissionMap{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding permission map: %w", err)
	}
	return data, nil
}
