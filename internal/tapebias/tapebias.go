// Package tapebias classifies short/mid/long-term trend alignment into the
// Tape Bias taxonomy.
package tapebias

import "math"

// Label is a Tape Bias classification.
type Label string

const (
	Buy              Label = "Buy"
	LeaningBullish   Label = "Leaning Bullish"
	Neutral          Label = "Neutral"
	Topping          Label = "Topping"
	Bottoming        Label = "Bottoming"
	LeaningBearish   Label = "Leaning Bearish"
	Sell             Label = "Sell"
	InsufficientData Label = "Insufficient data"
)

// Threshold is the change magnitude (0.05%) at or below which a trend change is noise.
const Threshold = 0.0005

// Ordering names the relative order of the short, mid and long-term trend levels.
type Ordering int

const (
	Unordered Ordering = iota // at least two levels tie
	StMtLt                    // st < mt < lt
	StLtMt                    // st < lt < mt
	MtStLt                    // mt < st < lt
	MtLtSt                    // mt < lt < st
	LtStMt                    // lt < st < mt
	LtMtSt                    // lt < mt < st
)

// Signs names the direction combination of the short and mid-term changes.
type Signs int

const (
	BothUp Signs = iota
	StUpMtDown
	StDownMtUp
	BothDown
)

// table holds the 24 ordering x sign outcomes.
var table = map[Ordering][4]Label{
	StMtLt: {Buy, Bottoming, Bottoming, Sell},
	StLtMt: {LeaningBullish, Neutral, LeaningBullish, LeaningBearish},
	MtStLt: {LeaningBullish, Neutral, Neutral, LeaningBearish},
	MtLtSt: {LeaningBullish, Neutral, Neutral, LeaningBearish},
	LtStMt: {LeaningBullish, LeaningBearish, Neutral, LeaningBearish},
	LtMtSt: {Buy, Topping, Topping, Sell},
}

// Lookup returns the label for an ordering and sign combination.
// Unordered levels map to Neutral.
func Lookup(o Ordering, s Signs) Label {
	row, ok := table[o]
	if !ok || s < BothUp || s > BothDown {
		return Neutral
	}
	return row[s]
}

// Order classifies the three trend levels.
func Order(st, mt, lt float64) Ordering {
	switch {
	case st < mt && mt < lt:
		return StMtLt
	case st < lt && lt < mt:
		return StLtMt
	case mt < st && st < lt:
		return MtStLt
	case mt < lt && lt < st:
		return MtLtSt
	case lt < st && st < mt:
		return LtStMt
	case lt < mt && mt < st:
		return LtMtSt
	}
	return Unordered
}

// Classify returns the Tape Bias for trend levels st, mt, lt and the
// short and mid-term changes stc, mtc.
func Classify(st, mt, lt, stc, mtc float64) Label {
	for _, v := range []float64{st, mt, lt, stc, mtc} {
		if math.IsNaN(v) {
			return InsufficientData
		}
	}
	if math.Abs(stc) <= Threshold || math.Abs(mtc) <= Threshold {
		return Neutral
	}

	var s Signs
	switch {
	case stc > 0 && mtc > 0:
		s = BothUp
	case stc > 0 && mtc < 0:
		s = StUpMtDown
	case stc < 0 && mtc > 0:
		s = StDownMtUp
	default:
		s = BothDown
	}
	return Lookup(Order(st, mt, lt), s)
}

// ClassifyValues is Classify over possibly missing inputs; a missing input
// yields InsufficientData.
func ClassifyValues(st, mt, lt, stc, mtc float64, ok ...bool) Label {
	for _, present := range ok {
		if !present {
			return InsufficientData
		}
	}
	return Classify(st, mt, lt, stc, mtc)
}

// Directional reports whether l expresses a direction.
func (l Label) Directional() bool {
	return l != Neutral && l != InsufficientData
}
