// Package genesis seeds an empty ledger from a YAML document.
package genesis

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	"gridledger/crypto"
	"gridledger/native/registry"
)

// Spec is the on-disk genesis document.
type Spec struct {
	GenesisTime string            `yaml:"genesisTime"`
	Alloc       map[string]string `yaml:"alloc"` // account -> amount
	Users       []UserSpec        `yaml:"users"`
	Devices     []DeviceSpec      `yaml:"devices"`
	Markets     []MarketSpec      `yaml:"markets"`
	Grid        []GridSpec        `yaml:"grid"`
	Priorities  []PrioritySpec    `yaml:"priorities"`
	Rates       []RateSpec        `yaml:"rates"`

	genesisTimestamp time.Time
}

type UserSpec struct {
	Address string `yaml:"address"`
	Role    string `yaml:"role"`
}

type DeviceSpec struct {
	Owner    string `yaml:"owner"`
	Type     string `yaml:"type"`
	Capacity uint32 `yaml:"capacity"`
}

type MarketSpec struct {
	Location string `yaml:"location"`
	Price    string `yaml:"price"`
	Volume   uint64 `yaml:"volume"`
}

type GridSpec struct {
	Location   string `yaml:"location"`
	Congestion uint8  `yaml:"congestion"`
	Loss       uint8  `yaml:"loss"`
	Stability  uint8  `yaml:"stability"`
}

type PrioritySpec struct {
	Source  string              `yaml:"source"`
	Entries []PriorityEntrySpec `yaml:"entries"`
}

type PriorityEntrySpec struct {
	Location string `yaml:"location"`
	Priority uint8  `yaml:"priority"`
	Distance uint8  `yaml:"distance"`
}

type RateSpec struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
	Rate string `yaml:"rate"`
}

// Load reads and validates a genesis document. Unknown keys are rejected.
func Load(path string) (*Spec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis %q: %w", path, err)
	}
	spec, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("genesis %q: %w", path, err)
	}
	return spec, nil
}

// Parse decodes and validates a genesis document held in memory.
func Parse(raw []byte) (*Spec, error) {
	var spec Spec
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("invalid: %w", err)
	}
	return &spec, nil
}

// Timestamp returns the parsed genesis time.
func (s *Spec) Timestamp() time.Time { return s.genesisTimestamp }

func parseGenesisTime(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, errors.New("genesisTime must be provided")
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid genesisTime %q: %w", value, err)
	}
	return ts.UTC(), nil
}

func parseAmount(value string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, errors.New("amount must be provided")
	}
	return uint256.FromDecimal(trimmed)
}

func (s *Spec) validate() error {
	ts, err := parseGenesisTime(s.GenesisTime)
	if err != nil {
		return err
	}
	s.genesisTimestamp = ts

	for _, account := range s.allocAccounts() {
		if _, err := crypto.DecodeAddress(account); err != nil {
			return fmt.Errorf("alloc[%q]: %w", account, err)
		}
		if _, err := parseAmount(s.Alloc[account]); err != nil {
			return fmt.Errorf("alloc[%q]: %w", account, err)
		}
	}

	users := make(map[string]struct{}, len(s.Users))
	for i, u := range s.Users {
		addr, err := crypto.DecodeAddress(u.Address)
		if err != nil {
			return fmt.Errorf("users[%d]: %w", i, err)
		}
		if _, err := registry.ParseRole(u.Role); err != nil {
			return fmt.Errorf("users[%d]: %w", i, err)
		}
		key := string(addr[:])
		if _, dup := users[key]; dup {
			return fmt.Errorf("users[%d]: duplicate address %q", i, u.Address)
		}
		users[key] = struct{}{}
	}

	for i, d := range s.Devices {
		addr, err := crypto.DecodeAddress(d.Owner)
		if err != nil {
			return fmt.Errorf("devices[%d]: %w", i, err)
		}
		if _, ok := users[string(addr[:])]; !ok {
			return fmt.Errorf("devices[%d]: owner %q is not a genesis user", i, d.Owner)
		}
		if _, err := registry.ParseDeviceType(d.Type); err != nil {
			return fmt.Errorf("devices[%d]: %w", i, err)
		}
	}

	for i, m := range s.Markets {
		if strings.TrimSpace(m.Location) == "" {
			return fmt.Errorf("markets[%d]: location must be provided", i)
		}
		price, err := parseAmount(m.Price)
		if err != nil {
			return fmt.Errorf("markets[%d]: %w", i, err)
		}
		if price.IsZero() {
			return fmt.Errorf("markets[%d]: price must be positive", i)
		}
	}

	for i, g := range s.Grid {
		if strings.TrimSpace(g.Location) == "" {
			return fmt.Errorf("grid[%d]: location must be provided", i)
		}
		if g.Congestion > 100 || g.Loss > 100 || g.Stability > 100 {
			return fmt.Errorf("grid[%d]: metrics must be within [0,100]", i)
		}
	}

	for i, p := range s.Priorities {
		if strings.TrimSpace(p.Source) == "" {
			return fmt.Errorf("priorities[%d]: source must be provided", i)
		}
	}

	for i, r := range s.Rates {
		if strings.TrimSpace(r.From) == "" || strings.TrimSpace(r.To) == "" {
			return fmt.Errorf("rates[%d]: from and to must be provided", i)
		}
		if _, err := parseAmount(r.Rate); err != nil {
			return fmt.Errorf("rates[%d]: %w", i, err)
		}
	}
	return nil
}

func (s *Spec) allocAccounts() []string {
	accounts := make([]string, 0, len(s.Alloc))
	for account := range s.Alloc {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)
	return accounts
}
