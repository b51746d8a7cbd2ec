package dto

// Valores monetários trafegam como string decimal (wei) para não perder precisão
// Endereços em hex (0x...)

type DepositRequest struct {
	Address     string `json:"address"`
	Amount      string `json:"amount"`
	ExternalRef string `json:"external_ref,omitempty"` // opcional p/ idempotência simples
}

type ReserveRequest struct {
	Address     string `json:"address"`
	Amount      string `json:"amount"`
	ExternalRef string `json:"external_ref"` // ex: "stake:{mercado}:{participante}:{tentativa}"
}

type CommitRequest struct {
	Address     string `json:"address"`
	ExternalRef string `json:"external_ref"`
}

type RefundRequest struct {
	Address     string `json:"address"`
	ExternalRef string `json:"external_ref"`
}
