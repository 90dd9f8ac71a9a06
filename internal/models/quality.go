package models

// TriState mirrors the original's "yes"/"no"/"unknown" literal used wherever
// the visual analyzer can't commit to a boolean (spec §4.6 "tri-state
// fields"). The zero value is the empty string; callers should treat any
// value other than TriYes/TriNo as unknown.
type TriState string

const (
	TriYes     TriState = "yes"
	TriNo      TriState = "no"
	TriUnknown TriState = "unknown"
)

// KitchenAnalysis captures kitchen amenities and condition.
type KitchenAnalysis struct {
	OverallQuality    string   `json:"overall_quality"` // modern|decent|dated|unknown
	HobType           string   `json:"hob_type,omitempty"` // gas|electric|induction
	HasDishwasher     TriState `json:"has_dishwasher"`
	HasWashingMachine TriState `json:"has_washing_machine"`
	Notes             string   `json:"notes,omitempty"`
}

// ConditionAnalysis captures overall property condition and maintenance flags.
type ConditionAnalysis struct {
	OverallCondition    string   `json:"overall_condition"` // excellent|good|fair|poor|unknown
	HasVisibleDamp      TriState `json:"has_visible_damp"`
	HasVisibleMold      TriState `json:"has_visible_mold"`
	HasWornFixtures     TriState `json:"has_worn_fixtures"`
	MaintenanceConcerns []string `json:"maintenance_concerns,omitempty"`
	Confidence          string   `json:"confidence"` // high|medium|low
}

// LightSpaceAnalysis captures natural light and the general feel of space.
type LightSpaceAnalysis struct {
	NaturalLight  string `json:"natural_light"` // excellent|good|fair|poor|unknown
	WindowSizes   string `json:"window_sizes,omitempty"`
	FeelsSpacious *bool  `json:"feels_spacious,omitempty"`
	CeilingHeight string `json:"ceiling_height,omitempty"` // high|standard|low
	FloorLevel    string `json:"floor_level,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// SpaceAnalysis captures living-room size and hosting viability, replacing
// the original floorplan-measurement filter.
type SpaceAnalysis struct {
	LivingRoomSqm   *float64 `json:"living_room_sqm,omitempty"`
	IsSpaciousEnough *bool   `json:"is_spacious_enough,omitempty"`
	Confidence      string   `json:"confidence"`     // high|medium|low
	HostingLayout   string   `json:"hosting_layout"` // excellent|good|awkward|poor|unknown
}

// ValueAnalysis is the calculated value-for-money assessment, not LLM output
// except for the quality-adjusted fields.
type ValueAnalysis struct {
	AreaAverage           *int   `json:"area_average,omitempty"`
	Difference            *int   `json:"difference,omitempty"`
	Rating                string `json:"rating,omitempty"` // excellent|good|fair|poor
	Note                  string `json:"note,omitempty"`
	QualityAdjustedRating string `json:"quality_adjusted_rating,omitempty"`
	QualityAdjustedNote   string `json:"quality_adjusted_note,omitempty"`
}

// BathroomAnalysis captures bathroom amenities and condition.
type BathroomAnalysis struct {
	OverallCondition string   `json:"overall_condition"` // modern|decent|dated|unknown
	HasBathtub       TriState `json:"has_bathtub"`
	ShowerType       string   `json:"shower_type,omitempty"` // overhead|separate_cubicle|electric|none
	IsEnsuite        TriState `json:"is_ensuite"`
	Notes            string   `json:"notes,omitempty"`
}

// BedroomAnalysis captures primary bedroom space and workspace viability.
type BedroomAnalysis struct {
	PrimaryIsDouble     TriState `json:"primary_is_double"`
	HasBuiltInWardrobe  TriState `json:"has_built_in_wardrobe"`
	CanFitDesk          TriState `json:"can_fit_desk"`
	OfficeSeparation    string   `json:"office_separation"` // dedicated_room|separate_area|shared_space|none
	Notes               string   `json:"notes,omitempty"`
}

// OutdoorSpaceAnalysis captures outdoor amenity flags.
type OutdoorSpaceAnalysis struct {
	HasBalcony      bool   `json:"has_balcony"`
	HasGarden       bool   `json:"has_garden"`
	HasTerrace      bool   `json:"has_terrace"`
	HasSharedGarden bool   `json:"has_shared_garden"`
	Notes           string `json:"notes,omitempty"`
}

// StorageAnalysis captures built-in storage provision.
type StorageAnalysis struct {
	HasBuiltInWardrobes TriState `json:"has_built_in_wardrobes"`
	HasHallwayCupboard  TriState `json:"has_hallway_cupboard"`
	StorageRating       string   `json:"storage_rating"` // good|adequate|poor|unknown
}

// FlooringNoiseAnalysis captures flooring type and acoustic risk signals,
// the chief input to the sound/construction fit dimension.
type FlooringNoiseAnalysis struct {
	PrimaryFlooring     string   `json:"primary_flooring"` // hardwood|laminate|carpet|tile|mixed|unknown
	HasDoubleGlazing    TriState `json:"has_double_glazing"`
	BuildingConstruction string  `json:"building_construction,omitempty"` // solid_brick|concrete|timber_frame|mixed
	NoiseIndicators     []string `json:"noise_indicators,omitempty"`
	HostingNoiseRisk    string   `json:"hosting_noise_risk"` // low|moderate|high|unknown
	Notes               string   `json:"notes,omitempty"`
}

// ListingExtraction is structured data lifted from the free-text description.
type ListingExtraction struct {
	EPCRating        string `json:"epc_rating,omitempty"`
	ServiceChargePCM *int   `json:"service_charge_pcm,omitempty"`
	DepositWeeks     *int   `json:"deposit_weeks,omitempty"`
	BillsIncluded    TriState `json:"bills_included"`
	PetsAllowed      TriState `json:"pets_allowed"`
	Parking          string `json:"parking,omitempty"` // dedicated|street|none
	CouncilTaxBand   string `json:"council_tax_band,omitempty"`
	PropertyType     string `json:"property_type"`
	FurnishedStatus  string `json:"furnished_status,omitempty"`
	BroadbandType    string `json:"broadband_type,omitempty"` // fttp|fttc|cable|standard
}

// ListingRedFlags surfaces photo-coverage and description red flags without
// auto-filtering the listing.
type ListingRedFlags struct {
	MissingRoomPhotos   []string `json:"missing_room_photos,omitempty"`
	TooFewPhotos        bool     `json:"too_few_photos"`
	SelectiveAngles     bool     `json:"selective_angles"`
	DescriptionConcerns []string `json:"description_concerns,omitempty"`
	RedFlagCount        int      `json:"red_flag_count"`
}

// ViewingNotes carries property-specific viewing preparation guidance.
type ViewingNotes struct {
	CheckItems        []string `json:"check_items,omitempty"`
	QuestionsForAgent []string `json:"questions_for_agent,omitempty"`
	DealBreakerTests  []string `json:"deal_breaker_tests,omitempty"`
}

// QualityAnalysis is the complete structured output of the visual/listing
// quality-analyzer capability (spec §4.6, non-goal internals — this is the
// shape its adapter returns).
type QualityAnalysis struct {
	Kitchen    KitchenAnalysis    `json:"kitchen"`
	Condition  ConditionAnalysis  `json:"condition"`
	LightSpace LightSpaceAnalysis `json:"light_space"`
	Space      SpaceAnalysis      `json:"space"`

	Bathroom       *BathroomAnalysis      `json:"bathroom,omitempty"`
	Bedroom        *BedroomAnalysis       `json:"bedroom,omitempty"`
	OutdoorSpace   *OutdoorSpaceAnalysis  `json:"outdoor_space,omitempty"`
	Storage        *StorageAnalysis       `json:"storage,omitempty"`
	FlooringNoise  *FlooringNoiseAnalysis `json:"flooring_noise,omitempty"`
	ListingExtract *ListingExtraction     `json:"listing_extraction,omitempty"`
	RedFlags       *ListingRedFlags       `json:"listing_red_flags,omitempty"`
	ViewingNotes   *ViewingNotes          `json:"viewing_notes,omitempty"`

	Highlights []string `json:"highlights,omitempty"`
	Lowlights  []string `json:"lowlights,omitempty"`
	OneLine    string   `json:"one_line,omitempty"`

	ConditionConcerns bool   `json:"condition_concerns"`
	ConcernSeverity   string `json:"concern_severity,omitempty"` // minor|moderate|serious|none

	Value *ValueAnalysis `json:"value,omitempty"`

	// OverallRating is a 1-5 star rating from the analyzer; nil means the
	// analysis never completed (spec §4.7 "reset_failed_analyses" targets
	// rows with a null rating).
	OverallRating *int `json:"overall_rating,omitempty"`

	// Summary is the short text surfaced in notifications.
	Summary string `json:"summary"`
}
