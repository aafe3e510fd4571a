package recommend

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TierSet is one emotion's coping actions across the three horizons.
type TierSet struct {
	Immediate []string `yaml:"immediate"`
	ShortTerm []string `yaml:"short_term"`
	LongTerm  []string `yaml:"long_term"`
}

// Catalog is the declarative rule table the generator draws from. The
// built-in default covers the common emotions; deployments can override it
// with a YAML file.
type Catalog struct {
	Emotions  map[string]TierSet `yaml:"emotions"`
	Default   TierSet            `yaml:"default"`
	Grounding []string           `yaml:"grounding"`
	Urgent    string             `yaml:"urgent"`
}

func DefaultCatalog() Catalog {
	return Catalog{
		Emotions: map[string]TierSet{
			"angry": {
				Immediate: []string{
					"Step away from the situation for a few minutes",
					"Count slowly to ten before responding",
				},
				ShortTerm: []string{
					"Go for a brisk walk or do light exercise",
					"Write down what triggered the anger",
				},
				LongTerm: []string{
					"Practice identifying anger triggers early",
					"Consider anger management techniques or counseling",
				},
			},
			"sad": {
				Immediate: []string{
					"Reach out to someone you trust",
					"Allow yourself to feel without judgment",
				},
				ShortTerm: []string{
					"Spend time on an activity you usually enjoy",
					"Keep a simple daily routine",
				},
				LongTerm: []string{
					"Build a regular social support habit",
					"Talk to a professional if low mood persists",
				},
			},
			"stressed": {
				Immediate: []string{
					"Take five slow, deep breaths",
					"Drop one non-essential task from today",
				},
				ShortTerm: []string{
					"Break work into small, concrete steps",
					"Schedule a short break every hour",
				},
				LongTerm: []string{
					"Review workload and commitments weekly",
					"Build a consistent sleep schedule",
				},
			},
			"fear": {
				Immediate: []string{
					"Name the specific thing you are afraid of",
					"Focus on what is in your control right now",
				},
				ShortTerm: []string{
					"Gradually face the feared situation in small steps",
					"Share the worry with someone you trust",
				},
				LongTerm: []string{
					"Practice exposure at a comfortable pace",
					"Consider professional support for persistent anxiety",
				},
			},
			"happy": {
				Immediate: []string{
					"Take a moment to savor what went well",
				},
				ShortTerm: []string{
					"Share the positive moment with someone",
					"Note what contributed to feeling good",
				},
				LongTerm: []string{
					"Repeat the activities that reliably lift your mood",
				},
			},
		},
		Default: TierSet{
			Immediate: []string{
				"Pause and check in with how you are feeling",
			},
			ShortTerm: []string{
				"Take a short walk outside",
				"Stay hydrated and eat regularly",
			},
			LongTerm: []string{
				"Keep a regular sleep and exercise routine",
				"Make time for activities you enjoy",
			},
		},
		Grounding: []string{
			"Ground yourself: name five things you can see right now",
			"Breathe in for four counts, hold for four, out for four",
		},
		Urgent: "Stop what you are doing and take a few minutes to settle before anything else",
	}
}

// LoadCatalog reads a YAML override file on top of the built-in defaults.
// Only sections present in the file replace their default counterparts.
func LoadCatalog(path string) (Catalog, error) {
	catalog := DefaultCatalog()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read rules catalog: %w", err)
	}

	var override Catalog
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return Catalog{}, fmt.Errorf("parse rules catalog: %w", err)
	}

	for emotion, tiers := range override.Emotions {
		catalog.Emotions[emotion] = tiers
	}
	if len(override.Default.Immediate)+len(override.Default.ShortTerm)+len(override.Default.LongTerm) > 0 {
		catalog.Default = override.Default
	}
	if len(override.Grounding) > 0 {
		catalog.Grounding = override.Grounding
	}
	if override.Urgent != "" {
		catalog.Urgent = override.Urgent
	}
	return catalog, nil
}
