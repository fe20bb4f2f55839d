package memledger

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/cloudx-io/assetauction/core"
)

// Genesis seeds a registry and bank at daemon start.
type Genesis struct {
	Assets   []GenesisAsset         `json:"assets"`
	Balances map[core.Address]int64 `json:"balances"`
}

type GenesisAsset struct {
	ID     string       `json:"id"`
	Holder core.Address `json:"holder"`
}

// ParseGenesis decodes a genesis document, rejecting unknown fields.
func ParseGenesis(r io.Reader) (*Genesis, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var g Genesis
	if err := dec.Decode(&g); err != nil {
		return nil, fmt.Errorf("failed to parse genesis: %w", err)
	}
	return &g, nil
}

// Apply mints every asset and deposits every balance.
func (g *Genesis) Apply(reg *Registry, bank *Bank) error {
	for _, a := range g.Assets {
		if _, err := reg.Mint(a.ID, a.Holder); err != nil {
			return fmt.Errorf("genesis asset: %w", err)
		}
	}

	owners := make([]core.Address, 0, len(g.Balances))
	for who := range g.Balances {
		owners = append(owners, who)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })

	for _, who := range owners {
		if err := bank.Deposit(who, g.Balances[who]); err != nil {
			return fmt.Errorf("genesis balance: %w", err)
		}
	}
	return nil
}

// Capture returns the current registry and bank contents as a Genesis that
// Apply reproduces on empty collaborators.
func Capture(reg *Registry, bank *Bank) *Genesis {
	g := &Genesis{Balances: make(map[core.Address]int64)}

	reg.mu.RLock()
	for _, id := range sortedKeys(reg.holders) {
		g.Assets = append(g.Assets, GenesisAsset{ID: id, Holder: reg.holders[id]})
	}
	reg.mu.RUnlock()

	bank.mu.RLock()
	for who, amount := range bank.balances {
		if amount > 0 {
			g.Balances[who] = amount
		}
	}
	bank.mu.RUnlock()
	return g
}

func sortedKeys(m map[string]core.Address) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
