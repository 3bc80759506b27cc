package delegate

import (
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"wakichain/ids"
)

// SeedEntry is one delegate's YAML representation in a genesis/delegate-seed
// fixture, hex-encoded the way operators hand-author these files.
type SeedEntry struct {
	RegIdHeight   uint64 `yaml:"reg_id_height"`
	RegIdIndex    uint16 `yaml:"reg_id_index"`
	OwnerPubKey   string `yaml:"owner_pub_key"`
	MinerPubKey   string `yaml:"miner_pub_key"`
	ReceivedVotes uint64 `yaml:"received_votes"`
}

// SeedFile is the top-level shape of a delegate-seed fixture: a single
// active set, used to bootstrap tests and local genesis configuration
// without hand-building Set literals.
type SeedFile struct {
	UpdateHeight uint64      `yaml:"update_height"`
	Delegates    []SeedEntry `yaml:"delegates"`
}

// LoadSeedFile reads and decodes a YAML delegate-seed fixture into a Set.
func LoadSeedFile(path string) (Set, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("delegate: read seed file: %w", err)
	}
	var seed SeedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return Set{}, fmt.Errorf("delegate: decode seed file: %w", err)
	}
	return seed.toSet()
}

func (seed SeedFile) toSet() (Set, error) {
	entries := make([]Entry, 0, len(seed.Delegates))
	for i, d := range seed.Delegates {
		owner, err := hex.DecodeString(d.OwnerPubKey)
		if err != nil {
			return Set{}, fmt.Errorf("delegate: entry %d owner_pub_key: %w", i, err)
		}
		miner, err := hex.DecodeString(d.MinerPubKey)
		if err != nil {
			return Set{}, fmt.Errorf("delegate: entry %d miner_pub_key: %w", i, err)
		}
		entries = append(entries, Entry{
			RegId:         ids.RegId{Height: d.RegIdHeight, Index: d.RegIdIndex},
			OwnerPubKey:   ids.PubKey(owner),
			MinerPubKey:   ids.PubKey(miner),
			ReceivedVotes: d.ReceivedVotes,
		})
	}
	return Set{Entries: entries, UpdateHeight: seed.UpdateHeight}, nil
}
