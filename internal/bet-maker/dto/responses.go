package dto

type BetResponse struct {
	ID     int64  `json:"id"`
	Amount string `json:"amount,omitempty"`
	Status string `json:"status"`
}

type BetSummary struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}
