package dto

// Valores monetários são strings decimais (wei); endereços em hex.
// O chamador se identifica pelo header X-Caller-Address.

type CreateMarketRequest struct {
	Category        string `json:"category"`
	ExternalEventID string `json:"external_event_id"`
	MinimumStake    string `json:"minimum_stake"`
	Handicap        int32  `json:"handicap"`
	LeftOdds        uint64 `json:"left_odds"` // x100
	MiddleOdds      uint64 `json:"middle_odds"`
	RightOdds       uint64 `json:"right_odds"`
	Format          uint8  `json:"format"` // 1 = sem empate, 3 = com empate
	StartTime       int64  `json:"start_time"`
	Duration        int64  `json:"duration"`
	Deposit         string `json:"deposit"` // colateral do dealer
}

type PlaceBetRequest struct {
	Outcome uint8  `json:"outcome"` // 1 | 2 | 3
	Amount  string `json:"amount"`
}

type RechargeDepositRequest struct {
	Amount string `json:"amount"`
}

type CloseBetRequest struct {
	LeftPoints  uint32 `json:"left_points"`
	RightPoints uint32 `json:"right_points"`
}
