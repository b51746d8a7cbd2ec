package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	walletdto "github.com/bingozwb/bet-center/internal/wallet-service/dto"
)

// Client fala com o wallet-service: escrow das apostas/colateral e crédito dos pagamentos
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

// Reserve bloqueia amount na carteira de owner (idempotente por ref)
func (c *Client) Reserve(ctx context.Context, owner common.Address, amount *big.Int, ref string) (string, error) {
	var out walletdto.ReservationResponse
	err := c.post(ctx, "/wallet/reserve", walletdto.ReserveRequest{
		Address:     owner.Hex(),
		Amount:      amount.String(),
		ExternalRef: ref,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.ReservationID, nil
}

// Commit efetiva a reserva: os fundos passam a pertencer ao mercado
func (c *Client) Commit(ctx context.Context, owner common.Address, ref string) error {
	return c.post(ctx, "/wallet/commit", walletdto.CommitRequest{Address: owner.Hex(), ExternalRef: ref}, nil)
}

// Refund devolve a reserva ao dono (chamada rejeitada pelo mercado)
func (c *Client) Refund(ctx context.Context, owner common.Address, ref string) error {
	return c.post(ctx, "/wallet/refund", walletdto.RefundRequest{Address: owner.Hex(), ExternalRef: ref}, nil)
}

// Credit deposita amount na carteira de to
func (c *Client) Credit(ctx context.Context, to common.Address, amount *big.Int, ref string) error {
	return c.post(ctx, "/wallet/deposit", walletdto.DepositRequest{
		Address:     to.Hex(),
		Amount:      amount.String(),
		ExternalRef: ref,
	}, nil)
}

// Transfer implementa bet.Transferer. A ref é única por (mercado, vencedor),
// então uma nova tentativa do mesmo pagamento não credita duas vezes.
func (c *Client) Transfer(ctx context.Context, from, to common.Address, amount *big.Int) error {
	return c.Credit(ctx, to, amount, PayoutRef(from, to))
}

func PayoutRef(market, to common.Address) string {
	return "payout:" + market.Hex() + ":" + to.Hex()
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("wallet %s http %d", path, res.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
