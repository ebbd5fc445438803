package domain

// FindingTag identifies the kind of statement a Finding makes. Renderers map
// tags and their parameters to display text.
type FindingTag string

// Spirometry findings
const (
	TagMixedDefect            FindingTag = "mixed_defect"
	TagObstructiveDefect      FindingTag = "obstructive_defect"
	TagRestrictivePattern     FindingTag = "restrictive_pattern"
	TagPreservedRatio         FindingTag = "preserved_ratio"
	TagNormalSpirometry       FindingTag = "normal_spirometry"
	TagSpirometryNotAvailable FindingTag = "spirometry_not_available"
	TagSeverity               FindingTag = "severity"
)

// Lung volume findings
const (
	TagLungVolumesNotAvailable FindingTag = "lung_volumes_not_available"
	TagRestrictionConfirmed    FindingTag = "restriction_confirmed"
	TagHyperinflation          FindingTag = "hyperinflation"
	TagNormalLungVolumes       FindingTag = "normal_lung_volumes"
	TagAirTrapping             FindingTag = "air_trapping"
	TagDecreasedRV             FindingTag = "decreased_rv"
	TagNormalRV                FindingTag = "normal_rv"
)

// Diffusion findings
const (
	TagDiffusionNotAvailable FindingTag = "diffusion_not_available"
	TagReducedDiffusion      FindingTag = "reduced_diffusion"
	TagIncreasedDiffusion    FindingTag = "increased_diffusion"
	TagNormalDiffusion       FindingTag = "normal_diffusion"
	TagDifferential          FindingTag = "differential"
)

// Impression findings
const (
	TagPatternSummary         FindingTag = "pattern_summary"
	TagInsufficientData       FindingTag = "insufficient_data"
	TagParenchymalInvolvement FindingTag = "parenchymal_involvement"
	TagRecommendations        FindingTag = "recommendations"
)

// Finding is one structured interpretation statement. Only the fields
// relevant to the tag are populated.
type Finding struct {
	Tag       FindingTag            `json:"tag"`
	Pattern   Pattern               `json:"pattern,omitempty"`
	Parameter Parameter             `json:"parameter,omitempty"`
	Severity  Severity              `json:"severity,omitempty"`
	Tier      Tier                  `json:"tier,omitempty"`
	Values    map[Parameter]float64 `json:"values,omitempty"`
	Items     []string              `json:"items,omitempty"`
}

// Value returns the value recorded for p on the finding.
func (f Finding) Value(p Parameter) (float64, bool) {
	v, ok := f.Values[p]
	return v, ok
}

// Differential diagnosis entries
const (
	DxEmphysemaCOPD           = "Emphysema/COPD"
	DxInterstitialLungDisease = "Interstitial lung disease"
	DxPulmonaryVascular       = "Pulmonary vascular disease"
	DxAnemia                  = "Anemia"
	DxPolycythemia            = "Polycythemia"
	DxAlveolarHemorrhage      = "Alveolar hemorrhage"
	DxLeftToRightShunt        = "Left-to-right shunt"

	DxCOPD                 = "COPD"
	DxAsthma               = "Asthma"
	DxBronchiectasis       = "Bronchiectasis"
	DxChronicBronchitis    = "Chronic bronchitis"
	DxILD                  = "Interstitial lung disease (ILD)"
	DxChestWall            = "Chest wall disorder"
	DxNeuromuscular        = "Neuromuscular disease"
	DxObesity              = "Obesity"
	DxPleural              = "Pleural disease"
	DxCPFE                 = "Combined pulmonary fibrosis and emphysema"
	DxCOPDWithILD          = "COPD with coexisting ILD"
	DxSevereAsthmaTrapping = "Severe asthma with air trapping"
)

// Recommendation entries
const (
	RecClinicalCorrelation = "Clinical correlation"
	RecConsiderImaging     = "Consider imaging (chest X-ray or HRCT)"
	RecFollowUpPFTs        = "Follow-up PFTs to monitor progression"
	RecPulmonologyReferral = "Pulmonologist referral"
)
