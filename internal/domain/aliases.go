package domain

import "strings"

// parameterAliases maps normalized key spellings seen on lab reports and
// model output to recognized parameters. Keys are upper-cased with
// whitespace removed and '-' replaced by '_'.
var parameterAliases = map[string]Parameter{
	"FEV1":         FEV1,
	"FEV1_PRED":    FEV1Pred,
	"FEV1PRED":     FEV1Pred,
	"FEV1%PRED":    FEV1Pred,
	"%FEV1":        FEV1Pred,
	"FVC":          FVC,
	"FVC_PRED":     FVCPred,
	"FVCPRED":      FVCPred,
	"FVC%PRED":     FVCPred,
	"%FVC":         FVCPred,
	"FEV1_FVC":     FEV1FVC,
	"FEV1/FVC":     FEV1FVC,
	"FEV1/FVC%":    FEV1FVC,
	"FEV1%FVC":     FEV1FVC,
	"FEV1FVC":      FEV1FVC,
	"FEV1_FVC_PCT": FEV1FVC,
	"TLC":          TLC,
	"TLC_PRED":     TLCPred,
	"TLCPRED":      TLCPred,
	"TLC%PRED":     TLCPred,
	"%TLC":         TLCPred,
	"RV":           RV,
	"RV_PRED":      RVPred,
	"RVPRED":       RVPred,
	"RV%PRED":      RVPred,
	"%RV":          RVPred,
	"DLCO":         DLCO,
	"DLCO_PRED":    DLCOPred,
	"DLCOPRED":     DLCOPred,
	"DLCO%PRED":    DLCOPred,
	"%DLCO":        DLCOPred,
	"FEF25_75":     FEF2575,
	"FEF2575":      FEF2575,
	"FEF25_75%":    FEF2575,
}

// ResolveParameter maps a user or model supplied key to a recognized
// parameter. Matching ignores case and whitespace.
func ResolveParameter(key string) (Parameter, bool) {
	normalized := strings.ToUpper(strings.Join(strings.Fields(key), ""))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	p, ok := parameterAliases[normalized]
	return p, ok
}
