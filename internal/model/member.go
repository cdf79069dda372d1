package model

// AdminID is the reserved administrator member id. The roster always
// contains this record once provisioned; the loader re-asserts its
// privileged flag on snapshots written by older clients.
const AdminID = "trip-admin"

// Member is one person on the trip roster. Headcount is how many people
// the member represents when bills are split (0 excludes them).
type Member struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Avatar    string `json:"avatar"`
	IsAdmin   bool   `json:"isAdmin,omitempty"`
	Headcount int    `json:"headcount"`
}
