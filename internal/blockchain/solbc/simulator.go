// internal/blockchain/solbc/simulator.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/mr-tron/base58"

	"github.com/rovshanmuradov/compressed-swap/internal/blockchain"
)

// Simulator method names, used to script failures and read call counts.
const (
	MethodHealth    = "health"
	MethodBlockhash = "latestBlockhash"
	MethodSend      = "send"
	MethodConfirm   = "confirm"
	MethodBalance   = "getBalance"
	MethodAirdrop   = "requestAirdrop"
)

// ErrNodeDown is what a simulated node returns while it is marked down.
var ErrNodeDown = errors.New("simulated node is down")

// Simulator is an in-memory blockchain.Connection with scripted failures.
// All randomness comes from a seeded source so runs are reproducible.
type Simulator struct {
	mu           sync.Mutex
	endpoint     string
	rng          *rand.Rand
	down         bool
	failures     map[string][]error
	calls        map[string]int
	balances     map[string]uint64
	confirmDelay time.Duration
	confirmErr   error
	sent         []*blockchain.SignedOperation
	slot         uint64
}

// NewSimulator creates a healthy simulated node.
func NewSimulator(endpoint string, seed uint64) *Simulator {
	return &Simulator{
		endpoint: endpoint,
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		failures: make(map[string][]error),
		calls:    make(map[string]int),
		balances: make(map[string]uint64),
		slot:     1000,
	}
}

// FailNext queues errors returned by the next calls of method, in order.
func (s *Simulator) FailNext(method string, errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = append(s.failures[method], errs...)
}

// SetDown makes every call fail with ErrNodeDown until cleared.
func (s *Simulator) SetDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

// SetBalance sets the lamport balance of address.
func (s *Simulator) SetBalance(address string, lamports uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[address] = lamports
}

// SetConfirmDelay makes Confirm wait d before answering.
func (s *Simulator) SetConfirmDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmDelay = d
}

// SetConfirmError makes Confirm report an on-chain failure.
func (s *Simulator) SetConfirmError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmErr = err
}

// Calls returns how many times method was invoked.
func (s *Simulator) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// Sent returns the operations accepted by Send.
func (s *Simulator) Sent() []*blockchain.SignedOperation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*blockchain.SignedOperation, len(s.sent))
	copy(out, s.sent)
	return out
}

// enter counts the call and pops a scripted failure. Callers hold s.mu.
func (s *Simulator) enter(method string) error {
	s.calls[method]++
	if s.down {
		return ErrNodeDown
	}
	queue := s.failures[method]
	if len(queue) == 0 {
		return nil
	}
	err := queue[0]
	s.failures[method] = queue[1:]
	return err
}

// randomBase58 encodes n random bytes.
func (s *Simulator) randomBase58(n int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(s.rng.UintN(256))
	}
	return base58.Encode(buf)
}

// newSignature returns an 87 or 88 character base58 signature.
func (s *Simulator) newSignature() string {
	for {
		sig := s.randomBase58(64)
		if len(sig) == 87 || len(sig) == 88 {
			return sig
		}
	}
}

func (s *Simulator) Endpoint() string {
	return s.endpoint
}

func (s *Simulator) Health(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enter(MethodHealth)
}

func (s *Simulator) LatestBlockhash(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(MethodBlockhash); err != nil {
		return "", err
	}
	return s.randomBase58(32), nil
}

func (s *Simulator) Send(_ context.Context, op *blockchain.SignedOperation) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(MethodSend); err != nil {
		return "", err
	}
	if op == nil {
		return "", fmt.Errorf("empty signed operation")
	}
	s.sent = append(s.sent, op)
	s.slot++
	return s.newSignature(), nil
}

func (s *Simulator) Confirm(ctx context.Context, id string) (blockchain.ConfirmationResult, error) {
	s.mu.Lock()
	if err := s.enter(MethodConfirm); err != nil {
		s.mu.Unlock()
		return blockchain.ConfirmationResult{}, err
	}
	delay, onChainErr, slot := s.confirmDelay, s.confirmErr, s.slot
	s.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return blockchain.ConfirmationResult{}, ctx.Err()
		case <-timer.C:
		}
	}
	return blockchain.ConfirmationResult{
		Identifier:  id,
		Slot:        slot,
		Err:         onChainErr,
		ConfirmedAt: time.Now(),
	}, nil
}

func (s *Simulator) GetBalance(_ context.Context, address string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(MethodBalance); err != nil {
		return 0, err
	}
	return s.balances[address], nil
}

// RequestAirdrop credits the balance immediately.
func (s *Simulator) RequestAirdrop(_ context.Context, address string, lamports uint64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(MethodAirdrop); err != nil {
		return "", err
	}
	s.balances[address] += lamports
	return s.newSignature(), nil
}

var _ blockchain.Connection = (*Simulator)(nil)

// SimNetwork is a set of simulated nodes keyed by endpoint.
type SimNetwork struct {
	mu    sync.Mutex
	seed  uint64
	nodes map[string]*Simulator
}

// NewSimNetwork creates an empty network; nodes are created on first use.
func NewSimNetwork(seed uint64) *SimNetwork {
	return &SimNetwork{seed: seed, nodes: make(map[string]*Simulator)}
}

// Node returns the simulator for endpoint, creating it if needed.
func (n *SimNetwork) Node(endpoint string) *Simulator {
	n.mu.Lock()
	defer n.mu.Unlock()
	if node, ok := n.nodes[endpoint]; ok {
		return node
	}
	node := NewSimulator(endpoint, n.seed+uint64(len(n.nodes)))
	n.nodes[endpoint] = node
	return node
}

// Dialer returns a blockchain.Dialer backed by this network.
func (n *SimNetwork) Dialer() blockchain.Dialer {
	return func(endpoint string) (blockchain.Connection, error) {
		return n.Node(endpoint), nil
	}
}
