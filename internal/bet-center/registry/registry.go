package registry

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/bingozwb/bet-center/internal/bet"
	"github.com/bingozwb/bet-center/pkg/contracts/events"
)

var ErrMarketNotFound = errors.New("market not found")

// Options configura o registro de mercados
type Options struct {
	Address         common.Address // endereço do registro; base para derivar mercados
	Admin           common.Address // único que pode encerrar mercados
	Transfers       bet.Transferer
	PayoutBatchSize int
	Log             *zap.Logger
}

// Registry cria mercados e os indexa por categoria.
// O índice é append-only e preserva a ordem de criação.
type Registry struct {
	mu         sync.RWMutex
	addr       common.Address
	admin      common.Address
	nonce      uint64
	markets    map[common.Address]*bet.Market
	byCategory map[string][]common.Address

	transfers bet.Transferer
	batch     int
	log       *zap.Logger
}

func New(opts Options) *Registry {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		addr:       opts.Address,
		admin:      opts.Admin,
		markets:    make(map[common.Address]*bet.Market),
		byCategory: make(map[string][]common.Address),
		transfers:  opts.Transfers,
		batch:      opts.PayoutBatchSize,
		log:        log,
	}
}

func (r *Registry) Address() common.Address { return r.addr }
func (r *Registry) Admin() common.Address   { return r.admin }

// CreateMarket cria o mercado com o colateral já transferido pelo dealer.
// O endereço é derivado como num deploy de contrato: keccak(rlp(registro, nonce)).
func (r *Registry) CreateMarket(dealer common.Address, odds bet.OddsTable, collateral *big.Int) (*bet.Market, *bet.Receipt, error) {
	if collateral == nil || collateral.Sign() <= 0 {
		return nil, nil, fmt.Errorf("%w: collateral must be positive", bet.ErrInvalidConfiguration)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	addr := crypto.CreateAddress(r.addr, r.nonce)
	m, err := bet.New(bet.Config{
		Address:         addr,
		Dealer:          dealer,
		Admin:           r.admin,
		Odds:            odds,
		Deposit:         collateral,
		Transfers:       r.transfers,
		PayoutBatchSize: r.batch,
		Log:             r.log,
	})
	if err != nil {
		return nil, nil, err
	}
	r.nonce++
	r.markets[addr] = m
	r.byCategory[odds.Category] = append(r.byCategory[odds.Category], addr)

	r.log.Info("market created",
		zap.String("market", addr.Hex()),
		zap.String("category", odds.Category),
		zap.String("event", odds.ExternalEventID),
		zap.String("dealer", dealer.Hex()),
		zap.String("deposit", collateral.String()),
	)

	rec := &bet.Receipt{Events: []events.Event{&events.MarketCreated{
		Market:          addr.Hex(),
		Category:        odds.Category,
		ExternalEventID: odds.ExternalEventID,
		Dealer:          dealer.Hex(),
		Admin:           r.admin.Hex(),
		Deposit:         collateral.String(),
		MinimumStake:    odds.MinimumStake.String(),
		Handicap:        odds.Handicap,
		Odds:            odds.Odds,
		Format:          uint8(odds.Format),
		StartTime:       odds.StartTime,
		Duration:        odds.Duration,
	}}}
	return m, rec, nil
}

// Market busca um mercado pelo endereço
func (r *Registry) Market(addr common.Address) (*bet.Market, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.markets[addr]
	if !ok {
		return nil, ErrMarketNotFound
	}
	return m, nil
}

// BetsByCategory retorna os endereços da categoria em ordem de criação
func (r *Registry) BetsByCategory(category string) []common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.byCategory[category]
	out := make([]common.Address, len(list))
	copy(out, list)
	return out
}

// Categories lista as categorias conhecidas, ordenadas
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byCategory))
	for c := range r.byCategory {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
