package model

import (
	"bytes"
	"encoding/json"
)

// Claim records which member has taken responsibility for an item.
// The zero value means nobody has: a shared item still needs to be
// claimed, an ingredient still needs to be bought. That third state is
// meaningful, not just an absent owner, so it gets its own type instead
// of a nullable reference.
type Claim struct {
	MemberID string `json:"id"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar,omitempty"`
}

// Claimed reports whether the claim names a member. Legacy checklist rows
// carried only a display name, so a claim with a name but no id still counts.
func (c Claim) Claimed() bool {
	return c.MemberID != "" || c.Name != ""
}

// By reports whether the claim is held by the given member.
func (c Claim) By(memberID string) bool {
	return c.MemberID != "" && c.MemberID == memberID
}

// ClaimFor builds a Claim naming the given member.
func ClaimFor(m Member) Claim {
	return Claim{MemberID: m.ID, Name: m.Name, Avatar: m.Avatar}
}

// claimJSON avoids recursing into Claim's own marshalers.
type claimJSON struct {
	MemberID string `json:"id"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar,omitempty"`
}

// MarshalJSON emits null for an unclaimed item, matching the wire format
// where owner: null means "needs purchase".
func (c Claim) MarshalJSON() ([]byte, error) {
	if !c.Claimed() {
		return []byte("null"), nil
	}
	return json.Marshal(claimJSON(c))
}

// UnmarshalJSON accepts null as the unclaimed state. Legacy rows carry
// entry owners without a member id; those decode with only name/avatar set.
func (c *Claim) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*c = Claim{}
		return nil
	}
	var raw claimJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Claim(raw)
	return nil
}
