package genesis

import (
	"context"
	"encoding/json"
	"fmt"

	"gridledger/core"
	"gridledger/core/types"
	"gridledger/crypto"
)

// SystemAccount signs genesis transitions that have no natural caller.
var SystemAccount = crypto.Address{}

// Transitions expands the document into the ordered transitions that seed the
// ledger: balances, users, devices, market data, grid metrics, priorities and
// exchange rates. Sequence numbers start at 1.
func (s *Spec) Transitions() ([]types.Transition, error) {
	ts := uint64(s.genesisTimestamp.Unix())
	var out []types.Transition
	add := func(caller crypto.Address, op types.Op, payload interface{}) error {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s: %w", op, err)
		}
		out = append(out, types.Transition{
			Seq:       uint64(len(out) + 1),
			Timestamp: ts,
			Caller:    caller,
			Op:        op,
			Payload:   raw,
		})
		return nil
	}

	for _, account := range s.allocAccounts() {
		addr, err := crypto.DecodeAddress(account)
		if err != nil {
			return nil, err
		}
		if err := add(SystemAccount, types.OpMint, types.MintPayload{Account: addr, Amount: s.Alloc[account]}); err != nil {
			return nil, err
		}
	}
	for _, u := range s.Users {
		addr, err := crypto.DecodeAddress(u.Address)
		if err != nil {
			return nil, err
		}
		if err := add(addr, types.OpRegisterUser, types.RegisterUserPayload{Role: u.Role}); err != nil {
			return nil, err
		}
	}
	for _, d := range s.Devices {
		owner, err := crypto.DecodeAddress(d.Owner)
		if err != nil {
			return nil, err
		}
		if err := add(owner, types.OpRegisterDevice, types.RegisterDevicePayload{DeviceType: d.Type, Capacity: d.Capacity}); err != nil {
			return nil, err
		}
	}
	for _, m := range s.Markets {
		if err := add(SystemAccount, types.OpUpdateMarketData, types.UpdateMarketDataPayload{Location: m.Location, Price: m.Price, Volume: m.Volume}); err != nil {
			return nil, err
		}
	}
	for _, g := range s.Grid {
		if err := add(SystemAccount, types.OpUpdateGridMetrics, types.UpdateGridMetricsPayload{
			Location:        g.Location,
			CongestionLevel: g.Congestion,
			LossFactor:      g.Loss,
			StabilityIndex:  g.Stability,
		}); err != nil {
			return nil, err
		}
	}
	for _, p := range s.Priorities {
		entries := make([]types.LocationPriorityEntry, 0, len(p.Entries))
		for _, e := range p.Entries {
			entries = append(entries, types.LocationPriorityEntry{Location: e.Location, Priority: e.Priority, DistanceFactor: e.Distance})
		}
		if err := add(SystemAccount, types.OpUpdateLocationPriorities, types.UpdateLocationPrioritiesPayload{Source: p.Source, Priorities: entries}); err != nil {
			return nil, err
		}
	}
	for _, r := range s.Rates {
		if err := add(SystemAccount, types.OpUpdateExchangeRate, types.UpdateExchangeRatePayload{From: r.From, To: r.To, Rate: r.Rate}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Apply seeds an empty ledger. A ledger that already has committed
// transitions is left untouched and Apply reports zero. Each hook sees every
// genesis receipt, in order, after it commits.
func Apply(ctx context.Context, proc *core.Processor, spec *Spec, hooks ...core.CommitHook) (int, error) {
	height, err := proc.Height()
	if err != nil {
		return 0, err
	}
	if height != 0 {
		return 0, nil
	}
	txs, err := spec.Transitions()
	if err != nil {
		return 0, err
	}
	for i, tx := range txs {
		receipt, err := proc.Apply(ctx, tx)
		if err != nil {
			return i, fmt.Errorf("genesis transition %d (%s): %w", tx.Seq, tx.Op, err)
		}
		for _, hook := range hooks {
			hook(receipt)
		}
	}
	return len(txs), nil
}
