package transit

import "fmt"

// HeadwayOptions are the headway shifts in seconds, indexed by action / 3.
var HeadwayOptions = [...]float64{-240, -180, -120, -60, 0, 60, 120, 180, 240}

// DwellOptions are the dwell extensions in seconds, indexed by action % 3.
var DwellOptions = [...]float64{0, 30, 60}

// NumActions is the size of the discrete action space.
const NumActions = len(HeadwayOptions) * len(DwellOptions)

// Decision is a decoded dispatch action.
type Decision struct {
	// HeadwayShift is added to the target headway when computing the next
	// dispatch time.
	HeadwayShift float64 `json:"headwayShift"`

	// DwellExtension is the minimum dwell requested at the first stop.
	DwellExtension float64 `json:"dwellExtension"`
}

// String formats the decision as "(shift, dwell)".
func (d Decision) String() string {
	return fmt.Sprintf("(%+.0f, %.0f)", d.HeadwayShift, d.DwellExtension)
}

// Decode maps an action index to its (headway shift, dwell extension) pair.
func Decode(action int) (Decision, error) {
	if action < 0 || action >= NumActions {
		return Decision{}, fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidAction, action, NumActions)
	}
	dwellCount := len(DwellOptions)
	return Decision{
		HeadwayShift:   HeadwayOptions[action/dwellCount],
		DwellExtension: DwellOptions[action%dwellCount],
	}, nil
}

// MustDecode is Decode for indices already known to be valid.
func MustDecode(action int) Decision {
	d, err := Decode(action)
	if err != nil {
		panic(err)
	}
	return d
}

// Encode maps a decision back to its action index.
func Encode(d Decision) (int, error) {
	h := indexOf(HeadwayOptions[:], d.HeadwayShift)
	w := indexOf(DwellOptions[:], d.DwellExtension)
	if h < 0 || w < 0 {
		return 0, fmt.Errorf("%w: headway %.0f dwell %.0f", ErrInvalidDecision, d.HeadwayShift, d.DwellExtension)
	}
	return h*len(DwellOptions) + w, nil
}

// ActionTable returns every decision in action-index order.
func ActionTable() []Decision {
	table := make([]Decision, NumActions)
	for i := range table {
		table[i] = MustDecode(i)
	}
	return table
}

func indexOf(options []float64, v float64) int {
	for i, o := range options {
		if o == v {
			return i
		}
	}
	return -1
}
