package fitscore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarcelCutts/home-finder-sub001/internal/models"
)

func fullAnalysis() *models.QualityAnalysis {
	spacious := true
	return &models.QualityAnalysis{
		Kitchen: models.KitchenAnalysis{
			OverallQuality: "decent", HobType: "gas",
			HasDishwasher: models.TriYes, HasWashingMachine: models.TriYes,
		},
		Condition: models.ConditionAnalysis{OverallCondition: "good"},
		LightSpace: models.LightSpaceAnalysis{
			NaturalLight: "good", FeelsSpacious: &spacious, CeilingHeight: "high", FloorLevel: "upper",
		},
		Space: models.SpaceAnalysis{IsSpaciousEnough: &spacious, Confidence: "high"},
		Bedroom: &models.BedroomAnalysis{
			PrimaryIsDouble: models.TriYes, CanFitDesk: models.TriYes,
		},
		OutdoorSpace: &models.OutdoorSpaceAnalysis{HasBalcony: true},
		FlooringNoise: &models.FlooringNoiseAnalysis{
			HasDoubleGlazing: models.TriYes, BuildingConstruction: "solid_brick",
		},
		ListingExtract:    &models.ListingExtraction{PropertyType: "victorian"},
		Highlights:        []string{"Period features", "High ceilings"},
		OverallRating:     intPtr(4),
		ConditionConcerns: false,
	}
}

func intPtr(v int) *int { return &v }

func TestComputeFitScore_NilAnalysisReturnsNil(t *testing.T) {
	assert.Nil(t, ComputeFitScore(nil, 2))
}

func TestComputeFitScore_ReturnsScoreInRange(t *testing.T) {
	score := ComputeFitScore(fullAnalysis(), 2)
	require.NotNil(t, score)
	assert.GreaterOrEqual(t, *score, 0)
	assert.LessOrEqual(t, *score, 100)
}

func TestComputeFitScore_ElectricHobLowersKitchenScore(t *testing.T) {
	gas := fullAnalysis()
	electric := fullAnalysis()
	electric.Kitchen.HobType = "electric"

	gasScore := ComputeFitScore(gas, 2)
	elecScore := ComputeFitScore(electric, 2)
	require.NotNil(t, gasScore)
	require.NotNil(t, elecScore)
	assert.Greater(t, *gasScore, *elecScore)
}

func TestComputeFitScore_StudioScoresLowerThanTwoBed(t *testing.T) {
	notSpacious := false
	analysis := fullAnalysis()
	analysis.Bedroom.CanFitDesk = models.TriNo
	analysis.Space.IsSpaciousEnough = &notSpacious

	studio := ComputeFitScore(analysis, 0)
	twoBed := ComputeFitScore(analysis, 2)
	require.NotNil(t, studio)
	require.NotNil(t, twoBed)
	assert.Less(t, *studio, *twoBed)
}

func TestComputeFitScore_WarehouseGetsVibeBonus(t *testing.T) {
	warehouse := fullAnalysis()
	warehouse.ListingExtract.PropertyType = "warehouse"
	newBuild := fullAnalysis()
	newBuild.ListingExtract.PropertyType = "new_build"

	wScore := ComputeFitScore(warehouse, 2)
	nScore := ComputeFitScore(newBuild, 2)
	require.NotNil(t, wScore)
	require.NotNil(t, nScore)
	assert.Greater(t, *wScore, *nScore)
}

func TestComputeFitScore_WeightsSumTo100(t *testing.T) {
	var sum int
	for _, w := range Weights {
		sum += w
	}
	assert.Equal(t, 100, sum)
}

func TestComputeFitScore_ConditionConcernsReduceScore(t *testing.T) {
	noConcerns := fullAnalysis()
	serious := fullAnalysis()
	serious.ConditionConcerns = true
	serious.ConcernSeverity = "serious"

	s1 := ComputeFitScore(noConcerns, 2)
	s2 := ComputeFitScore(serious, 2)
	require.NotNil(t, s1)
	require.NotNil(t, s2)
	assert.Greater(t, *s1, *s2)
}

func TestComputeFitScore_MissingSectionsStillProduceScore(t *testing.T) {
	partial := &models.QualityAnalysis{
		Kitchen: models.KitchenAnalysis{OverallQuality: "modern", HobType: "gas"},
	}
	score := ComputeFitScore(partial, 1)
	require.NotNil(t, score)
	assert.GreaterOrEqual(t, *score, 0)
	assert.LessOrEqual(t, *score, 100)
}

func TestComputeFitScore_SpaciousOneBedGetsWorkspaceCredit(t *testing.T) {
	spacious := fullAnalysis()
	trueVal := true
	spacious.Space.IsSpaciousEnough = &trueVal

	compact := fullAnalysis()
	falseVal := false
	compact.Space.IsSpaciousEnough = &falseVal

	s1 := ComputeFitScore(spacious, 1)
	s2 := ComputeFitScore(compact, 1)
	require.NotNil(t, s1)
	require.NotNil(t, s2)
	assert.Greater(t, *s1, *s2)
}

func TestComputeFitScore_AllUnknownReturnsNil(t *testing.T) {
	analysis := &models.QualityAnalysis{
		Kitchen: models.KitchenAnalysis{OverallQuality: "unknown", HobType: "unknown"},
		Bedroom: &models.BedroomAnalysis{CanFitDesk: models.TriUnknown},
	}
	score := ComputeFitScore(analysis, 1)
	assert.Nil(t, score)
}

func TestComputeLifestyleIcons_NilAnalysisReturnsNil(t *testing.T) {
	assert.Nil(t, ComputeLifestyleIcons(nil, 2))
}

func TestComputeLifestyleIcons_ReturnsAllFiveKeys(t *testing.T) {
	icons := ComputeLifestyleIcons(fullAnalysis(), 2)
	require.NotNil(t, icons)
	assert.Len(t, icons, 5)
	for _, key := range []string{"workspace", "hosting", "kitchen", "vibe", "space"} {
		icon, ok := icons[key]
		assert.True(t, ok, key)
		assert.NotEmpty(t, icon.Tooltip)
		assert.Contains(t, []string{StateGood, StateNeutral, StateConcern}, icon.State)
	}
}

func TestComputeLifestyleIcons_WorkspaceGoodForTwoBed(t *testing.T) {
	icons := ComputeLifestyleIcons(fullAnalysis(), 2)
	assert.Equal(t, StateGood, icons["workspace"].State)
}

func TestComputeLifestyleIcons_WorkspaceConcernForStudioNoDesk(t *testing.T) {
	analysis := fullAnalysis()
	analysis.Bedroom.CanFitDesk = models.TriNo
	icons := ComputeLifestyleIcons(analysis, 0)
	assert.Equal(t, StateConcern, icons["workspace"].State)
}

func TestComputeLifestyleIcons_HostingGoodForSpaciousSolid(t *testing.T) {
	analysis := fullAnalysis()
	icons := ComputeLifestyleIcons(analysis, 2)
	assert.Equal(t, StateGood, icons["hosting"].State)
}

func TestComputeLifestyleIcons_HostingConcernForCompactNoisy(t *testing.T) {
	analysis := fullAnalysis()
	falseVal := false
	analysis.Space.IsSpaciousEnough = &falseVal
	analysis.FlooringNoise.NoiseIndicators = []string{"road noise"}
	icons := ComputeLifestyleIcons(analysis, 1)
	assert.Equal(t, StateConcern, icons["hosting"].State)
}

func TestComputeLifestyleIcons_KitchenGoodForGas(t *testing.T) {
	analysis := fullAnalysis()
	analysis.Kitchen.HobType = "gas"
	analysis.Kitchen.OverallQuality = "modern"
	icons := ComputeLifestyleIcons(analysis, 2)
	assert.Equal(t, StateGood, icons["kitchen"].State)
}

func TestComputeLifestyleIcons_KitchenConcernForElectric(t *testing.T) {
	analysis := fullAnalysis()
	analysis.Kitchen.HobType = "electric"
	analysis.Kitchen.OverallQuality = "dated"
	icons := ComputeLifestyleIcons(analysis, 2)
	assert.Equal(t, StateConcern, icons["kitchen"].State)
}

func TestComputeLifestyleIcons_VibeGoodForWarehouse(t *testing.T) {
	analysis := fullAnalysis()
	analysis.ListingExtract.PropertyType = "warehouse"
	icons := ComputeLifestyleIcons(analysis, 2)
	assert.Equal(t, StateGood, icons["vibe"].State)
}

func TestComputeLifestyleIcons_VibeNeutralForNewBuildNoHighlights(t *testing.T) {
	analysis := fullAnalysis()
	analysis.ListingExtract.PropertyType = "new_build"
	analysis.Highlights = nil
	icons := ComputeLifestyleIcons(analysis, 2)
	assert.Equal(t, StateNeutral, icons["vibe"].State)
}

func TestComputeLifestyleIcons_VibeGoodForCharacterHighlights(t *testing.T) {
	analysis := fullAnalysis()
	analysis.ListingExtract.PropertyType = "unknown"
	analysis.Highlights = []string{"Original period features throughout"}
	icons := ComputeLifestyleIcons(analysis, 2)
	assert.Equal(t, StateGood, icons["vibe"].State)
}

func TestComputeLifestyleIcons_SpaceGoodForSpaciousWithOutdoor(t *testing.T) {
	analysis := fullAnalysis()
	icons := ComputeLifestyleIcons(analysis, 2)
	assert.Equal(t, StateGood, icons["space"].State)
}

func TestComputeLifestyleIcons_SpaceConcernForNotSpacious(t *testing.T) {
	analysis := fullAnalysis()
	falseVal := false
	analysis.Space.IsSpaciousEnough = &falseVal
	analysis.OutdoorSpace = nil
	icons := ComputeLifestyleIcons(analysis, 1)
	assert.Equal(t, StateConcern, icons["space"].State)
}

func TestComputeLifestyleIcons_SpaceGoodForSpaciousNoOutdoor(t *testing.T) {
	analysis := fullAnalysis()
	analysis.OutdoorSpace = &models.OutdoorSpaceAnalysis{}
	icons := ComputeLifestyleIcons(analysis, 2)
	assert.Equal(t, StateGood, icons["space"].State)
}

func TestComputeFitScore_FullyUnknownAnalysisScenarioF(t *testing.T) {
	analysis := &models.QualityAnalysis{
		Kitchen:       models.KitchenAnalysis{OverallQuality: "unknown", HobType: "unknown"},
		Bedroom:       &models.BedroomAnalysis{CanFitDesk: models.TriUnknown},
		Space:         models.SpaceAnalysis{},
		FlooringNoise: &models.FlooringNoiseAnalysis{BuildingConstruction: "unknown", HasDoubleGlazing: models.TriUnknown},
		ListingExtract: &models.ListingExtraction{PropertyType: "unknown"},
		LightSpace:    models.LightSpaceAnalysis{CeilingHeight: "unknown"},
	}
	score := ComputeFitScore(analysis, 1)
	assert.Nil(t, score)

	icons := ComputeLifestyleIcons(analysis, 1)
	require.NotNil(t, icons)
	for _, icon := range icons {
		assert.Equal(t, StateNeutral, icon.State)
	}
}
