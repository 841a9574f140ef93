// Package snowball holds the per-conflict-set Snowball decision state
// (spec.md §4.5) that the avalanche engine drives to a decision, adapted
// from the teacher's snow/consensus/snowstorm.Directed conflict graph but
// simplified to the flat preference/confidence model spec.md §4.5 names
// explicitly (see DESIGN.md).
package snowball

import "time"

// Parameters are the Avalanche engine's tunable constants (spec.md §4.5,
// §6), all overridable via config.Config; the zero value of Parameters is
// never used directly — Defaults() must be called to get the spec's
// required defaults.
type Parameters struct {
	K             int           // sample size
	Alpha         int           // quorum
	BetaLocal     int           // local-finality confidence threshold
	BetaMax       int           // max rounds before giving up
	PollTimeout   time.Duration // per-query timeout
	RoundDelayMin time.Duration
	RoundDelayMax time.Duration
}

// Defaults returns the spec.md §4.5/§6 default parameters.
func Defaults() Parameters {
	return Parameters{
		K:             20,
		Alpha:         14,
		BetaLocal:     20,
		BetaMax:       100,
		PollTimeout:   200 * time.Millisecond,
		RoundDelayMin: 50 * time.Millisecond,
		RoundDelayMax: 200 * time.Millisecond,
	}
}

// Verify checks the parameters satisfy the engine's internal assumptions
// (alpha must be an achievable majority of a k-sample).
func (p Parameters) Verify() error {
	if p.K <= 0 {
		return errInvalid("k must be positive")
	}
	if p.Alpha <= p.K/2 || p.Alpha > p.K {
		return errInvalid("alpha must be in (k/2, k]")
	}
	if p.BetaLocal <= 0 || p.BetaMax < p.BetaLocal {
		return errInvalid("beta_max must be >= beta_local > 0")
	}
	return nil
}

type paramError string

func (e paramError) Error() string { return "snowball: " + string(e) }

func errInvalid(msg string) error { return paramError(msg) }
