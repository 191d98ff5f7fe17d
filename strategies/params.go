package strategies

import "fmt"

// Params are the tunable options shared by the fixed-parameter strategies.
// A zero field takes its default.
type Params struct {
	Lookback          int     `json:"lookback,omitempty" yaml:"lookback,omitempty"`
	Threshold         float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Window            int     `json:"window,omitempty" yaml:"window,omitempty"`
	NumStd            float64 `json:"num_std,omitempty" yaml:"num_std,omitempty"`
	ShortWindow       int     `json:"short_window,omitempty" yaml:"short_window,omitempty"`
	LongWindow        int     `json:"long_window,omitempty" yaml:"long_window,omitempty"`
	InitialInvestment float64 `json:"initial_investment,omitempty" yaml:"initial_investment,omitempty"`
}

func DefaultParams() Params {
	return Params{
		Lookback:    14,
		Threshold:   0.05,
		Window:      20,
		NumStd:      2,
		ShortWindow: 50,
		LongWindow:  200,
	}
}

// WithDefaults fills zero fields from DefaultParams.
func (p Params) WithDefaults() Params {
	d := DefaultParams()
	if p.Lookback == 0 {
		p.Lookback = d.Lookback
	}
	if p.Threshold == 0 {
		p.Threshold = d.Threshold
	}
	if p.Window == 0 {
		p.Window = d.Window
	}
	if p.NumStd == 0 {
		p.NumStd = d.NumStd
	}
	if p.ShortWindow == 0 {
		p.ShortWindow = d.ShortWindow
	}
	if p.LongWindow == 0 {
		p.LongWindow = d.LongWindow
	}
	return p
}

// Validate rejects out-of-range values. Call it after WithDefaults.
func (p Params) Validate() error {
	switch {
	case p.Lookback <= 0:
		return fmt.Errorf("%w: lookback must be positive, got %d", ErrInvalidParameters, p.Lookback)
	case p.Threshold <= 0:
		return fmt.Errorf("%w: threshold must be positive, got %g", ErrInvalidParameters, p.Threshold)
	case p.Window <= 1:
		return fmt.Errorf("%w: window must be greater than 1, got %d", ErrInvalidParameters, p.Window)
	case p.NumStd <= 0:
		return fmt.Errorf("%w: num_std must be positive, got %g", ErrInvalidParameters, p.NumStd)
	case p.ShortWindow <= 0 || p.LongWindow <= 0:
		return fmt.Errorf("%w: invalid window sizes short=%d long=%d", ErrInvalidParameters, p.ShortWindow, p.LongWindow)
	case p.InitialInvestment < 0:
		return fmt.Errorf("%w: initial_investment must not be negative", ErrInvalidParameters)
	}
	return nil
}
