package variants

import (
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"
)

// ID identifies one treatment in the experiment.
type ID string

const (
	VariantA ID = "A"
	VariantB ID = "B"
	VariantC ID = "C"
	VariantD ID = "D"
)

// order is the fixed total order used for random assignment and manual cycling.
var order = []ID{VariantA, VariantB, VariantC, VariantD}

// Content is the static content bundle rendered for a treatment.
// It is configuration, not behavior: the state machine never looks inside it.
type Content struct {
	Name     string `yaml:"name"`
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
	CTA      string `yaml:"cta"`
	Reward   string `yaml:"reward"`
}

// Catalog maps every treatment id to its content bundle.
type Catalog map[ID]Content

// Builtin returns the default catalog.
func Builtin() Catalog {
	return Catalog{
		VariantA: {
			Name:     "Emotional",
			Title:    "Your AI Remembered",
			Subtitle: "Your Private Memory Vault made this moment seamless. Share with a friend.",
			CTA:      "Get Referral Link",
			Reward:   "+1 GB Vault Space for both",
		},
		VariantB: {
			Name:     "Value-First",
			Title:    "You Just Saved 5 Minutes",
			Subtitle: "Vity auto-injected your context. No more copy-paste repetition.",
			CTA:      "Share & Get +1GB Free",
			Reward:   "Unlock bonus storage instantly",
		},
		VariantC: {
			Name:     "Social Proof",
			Title:    "12,847 Users Share Daily",
			Subtitle: "Join the privacy-first AI memory movement.",
			CTA:      "Get Your Invite Link",
			Reward:   "Both you & friend get rewards",
		},
		VariantD: {
			Name:     "Scarcity",
			Title:    "Beta Referral Bonus",
			Subtitle: "Early users get 2x vault space. Limited time offer.",
			CTA:      "Claim My Referral Link",
			Reward:   "2x storage for beta referrers",
		},
	}
}

// Load reads a catalog from a YAML file keyed by variant id. Every id in the
// fixed set must be present so a cycle can never land on an empty bundle.
func Load(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read variants file: %w", err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse variants file: %w", err)
	}

	for _, id := range order {
		c, ok := catalog[id]
		if !ok {
			return nil, fmt.Errorf("variants file missing variant %s", id)
		}
		if c.Title == "" || c.CTA == "" {
			return nil, fmt.Errorf("variant %s needs at least a title and a cta", id)
		}
	}

	return catalog, nil
}

// All returns the fixed set of treatment ids in cycle order.
func All() []ID {
	ids := make([]ID, len(order))
	copy(ids, order)
	return ids
}

// Valid reports whether id names a known treatment.
func Valid(id ID) bool {
	for _, v := range order {
		if v == id {
			return true
		}
	}
	return false
}

// Next returns the treatment after id in the fixed order, wrapping around.
// Unknown ids restart at the first treatment.
func Next(id ID) ID {
	for i, v := range order {
		if v == id {
			return order[(i+1)%len(order)]
		}
	}
	return order[0]
}

// Pick selects a treatment uniformly at random, used once per record creation.
func Pick() ID {
	return order[rand.Intn(len(order))]
}
