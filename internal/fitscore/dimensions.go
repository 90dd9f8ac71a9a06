package fitscore

import (
	"strings"

	"github.com/MarcelCutts/home-finder-sub001/internal/models"
)

// Each dimension function returns (value in [0,1], active). active is false
// when nothing in the analysis speaks to that dimension, so it's excluded
// from both the numerator and the active-weight denominator.

func triValue(t models.TriState) (float64, bool) {
	switch t {
	case models.TriYes:
		return 1, true
	case models.TriNo:
		return 0, true
	default:
		return 0, false
	}
}

func boolPtrValue(b *bool) (float64, bool) {
	if b == nil {
		return 0, false
	}
	if *b {
		return 1, true
	}
	return 0, false
}

func avg(vals []float64) (float64, bool) {
	if len(vals) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals)), true
}

var kitchenQuality = map[string]float64{
	"modern": 1.0, "decent": 0.6, "dated": 0.2,
}

var hobQuality = map[string]float64{
	"gas": 1.0, "induction": 0.7, "electric": 0.2,
}

func kitchenValue(k models.KitchenAnalysis) (float64, bool) {
	var weighted, weightTotal float64
	if v, ok := kitchenQuality[k.OverallQuality]; ok {
		weighted += v * 2
		weightTotal += 2
	}
	if v, ok := hobQuality[k.HobType]; ok {
		weighted += v * 2
		weightTotal += 2
	}
	if v, ok := triValue(k.HasDishwasher); ok {
		weighted += v * 0.5
		weightTotal += 0.5
	}
	if v, ok := triValue(k.HasWashingMachine); ok {
		weighted += v * 0.5
		weightTotal += 0.5
	}
	if weightTotal == 0 {
		return 0, false
	}
	return weighted / weightTotal, true
}

var constructionQuality = map[string]float64{
	"solid_brick": 1.0, "concrete": 0.6, "timber_frame": 0.5, "mixed": 0.5,
}

func soundValue(f *models.FlooringNoiseAnalysis) (float64, bool) {
	if f == nil {
		return 0, false
	}
	var vals []float64
	if v, ok := triValue(f.HasDoubleGlazing); ok {
		vals = append(vals, v)
	}
	if v, ok := constructionQuality[f.BuildingConstruction]; ok {
		vals = append(vals, v)
	}
	if len(f.NoiseIndicators) > 0 {
		vals = append(vals, 0)
	}
	return avg(vals)
}

var naturalLightQuality = map[string]float64{
	"excellent": 1.0, "good": 0.75, "fair": 0.4, "poor": 0.15,
}

var ceilingHeightQuality = map[string]float64{
	"high": 1.0, "standard": 0.6, "low": 0.3,
}

var floorLevelQuality = map[string]float64{
	"top": 1.0, "upper": 0.7, "ground": 0.4, "basement": 0.2,
}

func lightValue(l models.LightSpaceAnalysis) (float64, bool) {
	var vals []float64
	if v, ok := naturalLightQuality[l.NaturalLight]; ok {
		vals = append(vals, v)
	}
	if v, ok := ceilingHeightQuality[l.CeilingHeight]; ok {
		vals = append(vals, v)
	}
	if v, ok := floorLevelQuality[l.FloorLevel]; ok {
		vals = append(vals, v)
	}
	if v, ok := boolPtrValue(l.FeelsSpacious); ok {
		vals = append(vals, v)
	}
	return avg(vals)
}

// workspaceValue follows spec §4.6 literally: bedrooms >= 2 is full credit;
// a 1-bed is partial, graded by spaciousness and desk-fit; a studio with no
// desk is zero.
func workspaceValue(bedrooms int, bedroom *models.BedroomAnalysis, space models.SpaceAnalysis) (float64, bool) {
	if bedrooms >= 2 {
		return 1.0, true
	}
	deskKnown := bedroom != nil && (bedroom.CanFitDesk == models.TriYes || bedroom.CanFitDesk == models.TriNo)
	desk := deskKnown && bedroom.CanFitDesk == models.TriYes
	spaciousKnown := space.IsSpaciousEnough != nil
	spacious := spaciousKnown && *space.IsSpaciousEnough

	if !deskKnown && !spaciousKnown {
		return 0, false
	}

	if bedrooms == 1 {
		switch {
		case spacious && desk:
			return 0.8, true
		case spacious || desk:
			return 0.5, true
		default:
			return 0.2, true
		}
	}
	// studio
	if desk {
		return 0.6, true
	}
	return 0.0, true
}

func hostingValue(space models.SpaceAnalysis, flooring *models.FlooringNoiseAnalysis) (float64, bool) {
	var vals []float64
	if v, ok := boolPtrValue(space.IsSpaciousEnough); ok {
		vals = append(vals, v)
	}
	if flooring != nil {
		if v, ok := constructionQuality[flooring.BuildingConstruction]; ok {
			vals = append(vals, v)
		}
		switch {
		case len(flooring.NoiseIndicators) > 0:
			vals = append(vals, 0)
		case flooring.HasDoubleGlazing == models.TriYes:
			vals = append(vals, 1)
		}
	}
	return avg(vals)
}

var propertyTypeVibe = map[string]float64{
	"warehouse": 1.0, "victorian": 0.9, "georgian": 0.9, "edwardian": 0.9,
	"period": 0.9, "new_build": 0.5,
}

var characterKeywords = []string{"period", "character", "original", "victorian", "georgian", "edwardian"}

func hasCharacterKeyword(highlights []string) bool {
	for _, h := range highlights {
		lower := strings.ToLower(h)
		for _, kw := range characterKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

func vibeValue(extract *models.ListingExtraction, highlights []string) (float64, bool) {
	var vals []float64
	if extract != nil {
		if v, ok := propertyTypeVibe[extract.PropertyType]; ok {
			vals = append(vals, v)
		}
	}
	switch {
	case hasCharacterKeyword(highlights):
		vals = append(vals, 1.0)
	case len(highlights) > 0:
		vals = append(vals, 0.3)
	}
	return avg(vals)
}

// spaceValue weights spaciousness well above outdoor amenity, per the test
// pinning "spacious, no outdoor" as still a "good" result.
func spaceValue(space models.SpaceAnalysis, outdoor *models.OutdoorSpaceAnalysis) (float64, bool) {
	spaciousV, spaciousOK := boolPtrValue(space.IsSpaciousEnough)
	hasOutdoor := outdoor != nil && (outdoor.HasBalcony || outdoor.HasGarden || outdoor.HasTerrace || outdoor.HasSharedGarden)
	outdoorOK := outdoor != nil

	switch {
	case spaciousOK && outdoorOK:
		outdoorV := 0.0
		if hasOutdoor {
			outdoorV = 1.0
		}
		return spaciousV*0.7 + outdoorV*0.3, true
	case spaciousOK:
		return spaciousV, true
	case outdoorOK:
		if hasOutdoor {
			return 1.0, true
		}
		return 0.3, true
	default:
		return 0, false
	}
}

var severityPenalty = map[string]float64{
	"minor": 5, "moderate": 10, "serious": 15,
}

func conditionPenalty(concerns bool, severity string) float64 {
	if !concerns {
		return 0
	}
	if p, ok := severityPenalty[severity]; ok {
		return p
	}
	return 5
}
