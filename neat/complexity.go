package neat

// ComplexityRegulationMode is the current direction of structural evolution.
type ComplexityRegulationMode int

const (
	// Complexifying uses the configured mutation and mating settings.
	Complexifying ComplexityRegulationMode = iota
	// Simplifying stops adding structure and favours connection deletion.
	Simplifying
)

func (m ComplexityRegulationMode) String() string {
	if m == Simplifying {
		return "simplifying"
	}
	return "complexifying"
}

// ComplexityRegulator decides, once per generation, whether the population should grow
// or shed structure.
type ComplexityRegulator interface {
	UpdateMode(generation int, meanComplexity float64) ComplexityRegulationMode
	Mode() ComplexityRegulationMode
}

// NullComplexityRegulator always complexifies.
type NullComplexityRegulator struct{}

// UpdateMode implements ComplexityRegulator.
func (NullComplexityRegulator) UpdateMode(int, float64) ComplexityRegulationMode {
	return Complexifying
}

// Mode implements ComplexityRegulator.
func (NullComplexityRegulator) Mode() ComplexityRegulationMode { return Complexifying }

// AbsoluteComplexityRegulator switches to simplifying when the population mean complexity
// rises above Ceiling. It switches back once at least MinSimplificationGenerations have
// passed, the mean is below the ceiling again, and the moving average of the mean has
// stopped falling.
type AbsoluteComplexityRegulator struct {
	Ceiling                      float64
	MinSimplificationGenerations int

	mode           ComplexityRegulationMode
	lastTransition int
	prevAverage    float64
	history        []float64 // ring buffer of recent mean complexities
	historyNext    int
	historyFull    bool
}

// NewAbsoluteComplexityRegulator creates a regulator averaging the last historyLength
// mean complexities.
func NewAbsoluteComplexityRegulator(ceiling float64, minSimplificationGenerations, historyLength int) *AbsoluteComplexityRegulator {
	return &AbsoluteComplexityRegulator{
		Ceiling:                      ceiling,
		MinSimplificationGenerations: minSimplificationGenerations,
		history:                      make([]float64, max(1, historyLength)),
	}
}

// NewComplexityRegulator builds the regulator described by cfg.
func NewComplexityRegulator(cfg ComplexityConfig) ComplexityRegulator {
	if cfg.Strategy == "absolute" {
		return NewAbsoluteComplexityRegulator(cfg.Ceiling, cfg.MinSimplificationGenerations, cfg.HistoryLength)
	}
	return NullComplexityRegulator{}
}

// Mode implements ComplexityRegulator.
func (r *AbsoluteComplexityRegulator) Mode() ComplexityRegulationMode {
	return r.mode
}

// UpdateMode implements ComplexityRegulator.
func (r *AbsoluteComplexityRegulator) UpdateMode(generation int, meanComplexity float64) ComplexityRegulationMode {
	r.record(meanComplexity)
	avg := r.average()

	switch r.mode {
	case Complexifying:
		if meanComplexity > r.Ceiling {
			r.mode = Simplifying
			r.lastTransition = generation
			r.prevAverage = avg
		}
	case Simplifying:
		if generation-r.lastTransition > r.MinSimplificationGenerations &&
			meanComplexity < r.Ceiling &&
			avg-r.prevAverage >= 0 {
			r.mode = Complexifying
			r.lastTransition = generation
		}
		r.prevAverage = avg
	}
	return r.mode
}

func (r *AbsoluteComplexityRegulator) record(v float64) {
	r.history[r.historyNext] = v
	r.historyNext = (r.historyNext + 1) % len(r.history)
	if r.historyNext == 0 {
		r.historyFull = true
	}
}

func (r *AbsoluteComplexityRegulator) average() float64 {
	n := r.historyNext
	if r.historyFull {
		n = len(r.history)
	}
	return Mean(r.history[:n])
}
