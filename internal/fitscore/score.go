package fitscore

import (
	"math"

	"github.com/MarcelCutts/home-finder-sub001/internal/models"
)

func dimensionValues(analysis *models.QualityAnalysis, bedrooms int) map[string]struct {
	value  float64
	active bool
} {
	vals := map[string]struct {
		value  float64
		active bool
	}{}
	set := func(key string, v float64, ok bool) {
		vals[key] = struct {
			value  float64
			active bool
		}{v, ok}
	}

	kv, kok := kitchenValue(analysis.Kitchen)
	set("kitchen", kv, kok)

	sv, sok := soundValue(analysis.FlooringNoise)
	set("sound", sv, sok)

	lv, lok := lightValue(analysis.LightSpace)
	set("light", lv, lok)

	wv, wok := workspaceValue(bedrooms, analysis.Bedroom, analysis.Space)
	set("workspace", wv, wok)

	hv, hok := hostingValue(analysis.Space, analysis.FlooringNoise)
	set("hosting", hv, hok)

	vv, vok := vibeValue(analysis.ListingExtract, analysis.Highlights)
	set("vibe", vv, vok)

	spv, spok := spaceValue(analysis.Space, analysis.OutdoorSpace)
	set("space", spv, spok)

	return vals
}

// ComputeFitScore reduces a completed quality analysis to a single 0-100
// suitability score, or nil if every weighted dimension is unknown (spec
// §4.6, §8 property 10).
func ComputeFitScore(analysis *models.QualityAnalysis, bedrooms int) *int {
	if analysis == nil {
		return nil
	}
	dims := dimensionValues(analysis, bedrooms)

	var weightedSum float64
	var activeWeight int
	for key, weight := range Weights {
		d := dims[key]
		if !d.active {
			continue
		}
		weightedSum += d.value * float64(weight)
		activeWeight += weight
	}
	if activeWeight == 0 {
		return nil
	}

	score := weightedSum / float64(activeWeight) * 100
	score -= conditionPenalty(analysis.ConditionConcerns, analysis.ConcernSeverity)
	score = math.Max(0, math.Min(100, score))

	result := int(math.Round(score))
	return &result
}

// Icon is one lifestyle quick-glance indicator.
type Icon struct {
	State   string
	Tooltip string
}

var iconTooltips = map[string]map[string]string{
	"workspace": {
		StateGood:    "Plenty of room to work from home comfortably.",
		StateNeutral: "Workspace viability is unclear from the listing.",
		StateConcern: "Limited space for a home office setup.",
	},
	"hosting": {
		StateGood:    "Spacious and quiet enough to comfortably host guests.",
		StateNeutral: "Hosting suitability is unclear from the listing.",
		StateConcern: "Tight or noisy — hosting guests may be a squeeze.",
	},
	"kitchen": {
		StateGood:    "Well-equipped modern kitchen with a gas hob.",
		StateNeutral: "Kitchen quality is unclear from the listing.",
		StateConcern: "Dated kitchen or electric-only hob.",
	},
	"vibe": {
		StateGood:    "Character property with period features.",
		StateNeutral: "No strong character signal either way.",
		StateConcern: "Lacks character — plain new-build stock.",
	},
	"space": {
		StateGood:    "Spacious, with outdoor space to enjoy.",
		StateNeutral: "Space is unclear from the listing.",
		StateConcern: "Tight on space with no outdoor area.",
	},
}

// ComputeLifestyleIcons reduces the same analysis to five quick-glance
// lifestyle indicators, independent of ComputeFitScore's overall number
// (spec §4.6). Returns nil if analysis is nil; an inactive dimension is
// reported neutral rather than omitted.
func ComputeLifestyleIcons(analysis *models.QualityAnalysis, bedrooms int) map[string]Icon {
	if analysis == nil {
		return nil
	}
	dims := dimensionValues(analysis, bedrooms)
	keys := []string{"workspace", "hosting", "kitchen", "vibe", "space"}

	icons := make(map[string]Icon, len(keys))
	for _, key := range keys {
		d := dims[key]
		state := StateNeutral
		if d.active {
			state = classify(d.value)
		}
		icons[key] = Icon{State: state, Tooltip: iconTooltips[key][state]}
	}
	return icons
}
