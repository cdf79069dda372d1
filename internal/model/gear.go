package model

// GearGroup separates gear everyone relies on from gear each person
// packs for themselves.
type GearGroup string

const (
	// GearShared items are claimable: one member commits to bringing them.
	GearShared GearGroup = "shared"
	// GearIndividual items belong to whoever added them and track a
	// packed flag instead of a claim.
	GearIndividual GearGroup = "individual"
)

type GearItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Group     GearGroup `json:"group"`
	Owner     Claim     `json:"owner"`
	Mandatory bool      `json:"mandatory,omitempty"`
	Packed    bool      `json:"packed,omitempty"`
	Custom    bool      `json:"custom,omitempty"`
}
