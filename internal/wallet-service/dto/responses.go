package dto

type WalletResponse struct {
	Address  string `json:"address"`
	WalletID string `json:"walletId"`
	Balance  string `json:"balance"`
}

type ReservationResponse struct {
	ReservationID string `json:"reservation_id"`
	Status        string `json:"status"`
}
