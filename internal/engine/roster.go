package engine

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Villager is one member of the fixed village population.
type Villager uint8

const (
	Monk Villager = iota
	Plumwoman
	Appleman
	Hooker
	Fishwoman
	Butcher
	Blacksmith
	Shepherd
	Squire
	Carpenter
	Witchhunter
	Farmer

	populationSize
)

// PopulationSize is the number of villagers in the roster.
const PopulationSize = int(populationSize)

// AssassinCount is how many villagers the assassin side designates.
const AssassinCount = 3

var villagerNames = [PopulationSize]string{
	"monk", "plumwoman", "appleman", "hooker", "fishwoman", "butcher",
	"blacksmith", "shepherd", "squire", "carpenter", "witchhunter", "farmer",
}

// Population returns every villager in roster order.
func Population() []Villager {
	out := make([]Villager, PopulationSize)
	for i := range out {
		out[i] = Villager(i)
	}
	return out
}

func (v Villager) Valid() bool { return v < populationSize }

func (v Villager) String() string {
	if !v.Valid() {
		return fmt.Sprintf("Villager(%d)", v)
	}
	return villagerNames[v]
}

// ParseVillager looks a name up in the roster.
func ParseVillager(name string) (Villager, error) {
	for i, n := range villagerNames {
		if n == name {
			return Villager(i), nil
		}
	}
	return 0, fmt.Errorf("unknown villager %q", name)
}

func (v Villager) MarshalText() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("invalid villager %d", v)
	}
	return []byte(villagerNames[v]), nil
}

func (v *Villager) UnmarshalText(b []byte) error {
	p, err := ParseVillager(string(b))
	if err != nil {
		return err
	}
	*v = p
	return nil
}

// VillagerSet is a set of roster members.
type VillagerSet uint16

// NewVillagerSet builds a set from the given villagers.
func NewVillagerSet(vs ...Villager) VillagerSet {
	var s VillagerSet
	for _, v := range vs {
		s = s.Add(v)
	}
	return s
}

func (s VillagerSet) Add(v Villager) VillagerSet { return s | 1<<v }

func (s VillagerSet) Has(v Villager) bool { return v.Valid() && s&(1<<v) != 0 }

func (s VillagerSet) Intersect(o VillagerSet) VillagerSet { return s & o }

func (s VillagerSet) Len() int {
	n := 0
	for x := s; x != 0; x &= x - 1 {
		n++
	}
	return n
}

// Slice returns the members in roster order.
func (s VillagerSet) Slice() []Villager {
	var out []Villager
	for i := 0; i < PopulationSize; i++ {
		if s.Has(Villager(i)) {
			out = append(out, Villager(i))
		}
	}
	return out
}

// Names returns the member names sorted alphabetically.
func (s VillagerSet) Names() []string {
	var names []string
	for _, v := range s.Slice() {
		names = append(names, v.String())
	}
	sort.Strings(names)
	return names
}

func (s VillagerSet) MarshalJSON() ([]byte, error) {
	names := s.Names()
	if names == nil {
		names = []string{}
	}
	return json.Marshal(names)
}

func (s *VillagerSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	var out VillagerSet
	for _, n := range names {
		v, err := ParseVillager(n)
		if err != nil {
			return err
		}
		out = out.Add(v)
	}
	*s = out
	return nil
}
