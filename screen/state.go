package screen

import "github.com/raushankrgupta/fitly-client/models"

// View is the screen currently shown
type View string

const (
	ViewAuth View = "auth"
	ViewMain View = "main"
)

// State is a serializable snapshot of everything the screen shows
type State struct {
	View     View                          `json:"view"`
	Person   *models.ImageAsset            `json:"person,omitempty"`
	Garment  *models.ImageAsset            `json:"garment,omitempty"`
	Result   *models.TryOnResult           `json:"result,omitempty"`
	Error    string                        `json:"error,omitempty"`
	InFlight bool                          `json:"in_flight"`
	Session  *models.Session               `json:"session,omitempty"`
	Plans    map[string]models.PricingPlan `json:"plans,omitempty"`
	Quality  string                        `json:"quality,omitempty"`
	// RemainingUsage is nil when no limit applies or the plan is unknown
	RemainingUsage *int `json:"remaining_usage,omitempty"`
}

// Ready reports whether both images are selected
func (s State) Ready() bool {
	return s.Person != nil && s.Garment != nil
}

// remaining computes the try-ons left for the current session. ok is false
// when there is no session, the plan is not in the catalog, or the plan is unlimited.
func (s State) remaining() (left int, ok bool) {
	if s.Session == nil {
		return 0, false
	}
	plan, found := s.Plans[s.Session.Plan]
	if !found {
		return 0, false
	}
	left, unlimited := plan.Remaining(s.Session.DailyUsage)
	if unlimited {
		return 0, false
	}
	return left, true
}

func (s State) copy() State {
	out := s
	if s.Session != nil {
		sess := *s.Session
		out.Session = &sess
	}
	if s.Result != nil {
		res := *s.Result
		out.Result = &res
	}
	if s.RemainingUsage != nil {
		n := *s.RemainingUsage
		out.RemainingUsage = &n
	}
	if s.Plans != nil {
		out.Plans = make(map[string]models.PricingPlan, len(s.Plans))
		for k, v := range s.Plans {
			out.Plans[k] = v
		}
	}
	return out
}
