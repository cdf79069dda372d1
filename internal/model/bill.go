package model

// Bill is one shared expense. Amount is in whole currency units.
// Bills are independent of the linkage subsystem.
type Bill struct {
	ID      string `json:"id"`
	PayerID string `json:"payerId"`
	Label   string `json:"label"`
	Amount  int64  `json:"amount"`
	Date    string `json:"date"`
}
