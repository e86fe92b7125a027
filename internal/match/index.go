package match

import (
	"unicode/utf8"

	"corella/internal/ledger"
)

type indexedEntity struct {
	entity     ledger.RegistryEntity
	normalized string
}

// Index blocks active registry entities by the first rune of their normalized
// name so fuzzy scoring only touches plausible candidates.
type Index struct {
	blocks map[rune][]indexedEntity
	size   int
}

// NewIndex builds a candidate index from a registry snapshot. Inactive
// entities and entities whose name normalizes to empty are excluded.
func NewIndex(entities []ledger.RegistryEntity) *Index {
	idx := &Index{blocks: make(map[rune][]indexedEntity)}
	for _, entity := range entities {
		if !entity.Active() {
			continue
		}
		normalized := NormalizeName(entity.Name)
		if normalized == "" {
			continue
		}
		key, _ := utf8.DecodeRuneInString(normalized)
		idx.blocks[key] = append(idx.blocks[key], indexedEntity{entity: entity, normalized: normalized})
		idx.size++
	}
	return idx
}

// Size returns the number of indexed entities.
func (idx *Index) Size() int {
	return idx.size
}

// Blocks returns the number of distinct blocking keys.
func (idx *Index) Blocks() int {
	return len(idx.blocks)
}

// Lookup returns the entities sharing a blocking key with the given name.
func (idx *Index) Lookup(name string) []ledger.RegistryEntity {
	block := idx.lookup(NormalizeName(name))
	entities := make([]ledger.RegistryEntity, 0, len(block))
	for _, candidate := range block {
		entities = append(entities, candidate.entity)
	}
	return entities
}

func (idx *Index) lookup(normalized string) []indexedEntity {
	if normalized == "" {
		return nil
	}
	key, _ := utf8.DecodeRuneInString(normalized)
	return idx.blocks[key]
}
