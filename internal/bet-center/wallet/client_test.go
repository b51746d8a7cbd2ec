package wallet_test

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bingozwb/bet-center/internal/bet-center/wallet"
	walletdto "github.com/bingozwb/bet-center/internal/wallet-service/dto"
)

var (
	marketAddr = common.HexToAddress("0x00000000000000000000000000000000000000ff")
	user       = common.HexToAddress("0x00000000000000000000000000000000000000a2")
)

func TestTransferCreditsWinner(t *testing.T) {
	var got walletdto.DepositRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wallet/deposit" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := wallet.New(srv.URL)
	if err := c.Transfer(context.Background(), marketAddr, user, big.NewInt(25e16)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got.Address != user.Hex() || got.Amount != "250000000000000000" {
		t.Errorf("request = %+v", got)
	}
	if got.ExternalRef != wallet.PayoutRef(marketAddr, user) {
		t.Errorf("ref = %s", got.ExternalRef)
	}
}

func TestReserveReturnsReservationID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req walletdto.ReserveRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.ExternalRef != "stake:1" {
			t.Errorf("ref = %s", req.ExternalRef)
		}
		_ = json.NewEncoder(w).Encode(walletdto.ReservationResponse{ReservationID: "res-1", Status: "PENDING"})
	}))
	defer srv.Close()

	id, err := wallet.New(srv.URL).Reserve(context.Background(), user, big.NewInt(1e17), "stake:1")
	if err != nil || id != "res-1" {
		t.Fatalf("reserve = %q, %v", id, err)
	}
}

func TestHTTPErrorsSurface(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "insufficient funds", http.StatusConflict)
	}))
	defer srv.Close()

	c := wallet.New(srv.URL)
	tests := []struct {
		name string
		call func() error
	}{
		{"reserve", func() error {
			_, err := c.Reserve(context.Background(), user, big.NewInt(1), "r")
			return err
		}},
		{"commit", func() error { return c.Commit(context.Background(), user, "r") }},
		{"refund", func() error { return c.Refund(context.Background(), user, "r") }},
		{"transfer", func() error { return c.Transfer(context.Background(), marketAddr, user, big.NewInt(1)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); err == nil {
				t.Fatal("expected error on 409")
			}
		})
	}
}
