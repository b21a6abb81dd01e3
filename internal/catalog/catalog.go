// Package catalog holds known contract interfaces keyed by address.
// When the monitored contract's interface is known, event matching can
// use exact names instead of heuristic topic comparison.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// DefaultCreateEventNames are the event-name synonyms treated as a
// token-creation signal in a known interface.
var DefaultCreateEventNames = []string{"TokenCreated", "TokenDeployed", "Launched"}

// DefaultLockEventNames are the synonyms treated as a settings lock.
var DefaultLockEventNames = []string{"SettingsLocked", "ContractLocked", "LiquidityLocked"}

// Catalog maps contract addresses to their known ABIs.
type Catalog struct {
	byAddress map[common.Address]abi.ABI
	create    map[string]struct{}
	lock      map[string]struct{}
}

// New builds an empty catalog with the given event-name synonym sets.
// Nil slices fall back to the defaults.
func New(createNames, lockNames []string) *Catalog {
	if len(createNames) == 0 {
		createNames = DefaultCreateEventNames
	}
	if len(lockNames) == 0 {
		lockNames = DefaultLockEventNames
	}
	c := &Catalog{
		byAddress: make(map[common.Address]abi.ABI),
		create:    make(map[string]struct{}, len(createNames)),
		lock:      make(map[string]struct{}, len(lockNames)),
	}
	for _, name := range createNames {
		c.create[strings.ToLower(name)] = struct{}{}
	}
	for _, name := range lockNames {
		c.lock[strings.ToLower(name)] = struct{}{}
	}
	return c
}

// Load reads a directory of <address>.json ABI files into a catalog.
// A missing directory yields an empty catalog, not an error.
func Load(dir string, createNames, lockNames []string) (*Catalog, error) {
	c := New(createNames, lockNames)
	if dir == "" {
		return c, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("read catalog dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".json")
		if !common.IsHexAddress(name) {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read catalog entry %s: %w", entry.Name(), err)
		}
		parsed, err := abi.JSON(strings.NewReader(string(raw)))
		if err != nil {
			return nil, fmt.Errorf("parse catalog entry %s: %w", entry.Name(), err)
		}
		c.byAddress[common.HexToAddress(name)] = parsed
	}

	return c, nil
}

// Add registers an interface for an address.
func (c *Catalog) Add(addr common.Address, parsed abi.ABI) {
	c.byAddress[addr] = parsed
}

// Known reports whether an interface is registered for addr.
func (c *Catalog) Known(addr common.Address) bool {
	_, ok := c.byAddress[addr]
	return ok
}

// CreateEvent matches topic0 against the creation-event synonyms of the
// interface known for addr.
func (c *Catalog) CreateEvent(addr common.Address, topic0 common.Hash) (abi.Event, bool) {
	return c.match(addr, topic0, c.create)
}

// LockEvent matches topic0 against the lock-event synonyms of the
// interface known for addr.
func (c *Catalog) LockEvent(addr common.Address, topic0 common.Hash) (abi.Event, bool) {
	return c.match(addr, topic0, c.lock)
}

func (c *Catalog) match(addr common.Address, topic0 common.Hash, names map[string]struct{}) (abi.Event, bool) {
	parsed, ok := c.byAddress[addr]
	if !ok {
		return abi.Event{}, false
	}
	for _, event := range parsed.Events {
		if event.ID != topic0 {
			continue
		}
		if _, ok := names[strings.ToLower(event.RawName)]; ok {
			return event, true
		}
	}
	return abi.Event{}, false
}
