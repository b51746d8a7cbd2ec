package bet

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Position é a aposta registrada de um participante
type Position struct {
	Amount  *big.Int
	Outcome Outcome
}

// ParticipantBook mapeia participante -> posição e mantém o roster em ordem de entrada
type ParticipantBook struct {
	positions map[common.Address]Position
	roster    []common.Address
}

func NewParticipantBook() *ParticipantBook {
	return &ParticipantBook{positions: make(map[common.Address]Position)}
}

// Has diz se o participante já apostou
func (b *ParticipantBook) Has(addr common.Address) bool {
	_, ok := b.positions[addr]
	return ok
}

// Record registra a primeira aposta; uma segunda é rejeitada
func (b *ParticipantBook) Record(addr common.Address, p Position) error {
	if b.Has(addr) {
		return ErrAlreadyWagered
	}
	b.positions[addr] = Position{Amount: new(big.Int).Set(p.Amount), Outcome: p.Outcome}
	b.roster = append(b.roster, addr)
	return nil
}

// Position retorna uma cópia da posição do participante
func (b *ParticipantBook) Position(addr common.Address) (Position, bool) {
	p, ok := b.positions[addr]
	if !ok {
		return Position{}, false
	}
	return Position{Amount: new(big.Int).Set(p.Amount), Outcome: p.Outcome}, true
}

// At retorna o i-ésimo participante do roster
func (b *ParticipantBook) At(i int) (common.Address, Position) {
	addr := b.roster[i]
	return addr, b.positions[addr]
}

func (b *ParticipantBook) Len() int { return len(b.roster) }

// Roster retorna uma cópia da lista de participantes
func (b *ParticipantBook) Roster() []common.Address {
	out := make([]common.Address, len(b.roster))
	copy(out, b.roster)
	return out
}
