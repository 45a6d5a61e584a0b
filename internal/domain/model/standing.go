package model

// Standing is one row of the ranked board.
type Standing struct {
	Rank int    `json:"rank"`
	Team string `json:"team"`
	Record
}
