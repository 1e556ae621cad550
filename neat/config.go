package neat

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Config stores the configuration parameters for an evolutionary run.
type Config struct {
	Neat         NeatConfig         `yaml:"neat"`
	Genome       GenomeConfig       `yaml:"genome"`
	Reproduction ReproductionConfig `yaml:"reproduction"`
	Mutation     AsexualSettings    `yaml:"mutation"`
	Crossover    CrossoverConfig    `yaml:"crossover"`
	Speciation   SpeciationConfig   `yaml:"speciation"`
	Complexity   ComplexityConfig   `yaml:"complexity"`
}

// NeatConfig holds parameters of the generation driver.
type NeatConfig struct {
	PopSize               int     `ini:"pop_size" yaml:"pop_size"`
	FitnessThreshold      float64 `ini:"fitness_threshold" yaml:"fitness_threshold"`
	NoFitnessTermination  bool    `ini:"no_fitness_termination" yaml:"no_fitness_termination"`
	EvaluationParallelism int     `ini:"evaluation_parallelism" yaml:"evaluation_parallelism"` // <= 0 selects GOMAXPROCS
}

// GenomeConfig holds the parameters shared by every genome (the meta genome).
type GenomeConfig struct {
	NumInputs                    int     `ini:"num_inputs" yaml:"num_inputs"`
	NumOutputs                   int     `ini:"num_outputs" yaml:"num_outputs"`
	FeedForward                  bool    `ini:"feed_forward" yaml:"feed_forward"` // If true, recurrent connections are disallowed
	Activation                   string  `ini:"activation" yaml:"activation"`
	ConnectionWeightScale        float64 `ini:"connection_weight_scale" yaml:"connection_weight_scale"`
	InitialConnectionsProportion float64 `ini:"initial_connections_proportion" yaml:"initial_connections_proportion"`
}

// ReproductionConfig holds parameters related to offspring allocation and parent selection.
type ReproductionConfig struct {
	ElitismProportion            float64 `ini:"elitism_proportion" yaml:"elitism_proportion"`
	SelectionProportion          float64 `ini:"selection_proportion" yaml:"selection_proportion"`
	OffspringSexualProportion    float64 `ini:"offspring_sexual_proportion" yaml:"offspring_sexual_proportion"`
	InterspeciesMatingProportion float64 `ini:"interspecies_mating_proportion" yaml:"interspecies_mating_proportion"`
	SpeciesFitnessFunc           string  `ini:"species_fitness_func" yaml:"species_fitness_func"`
	Parallelism                  int     `ini:"parallelism" yaml:"parallelism"` // <= 0 selects GOMAXPROCS
}

// CrossoverConfig holds parameters of sexual reproduction.
type CrossoverConfig struct {
	SecondaryParentGeneProbability float64 `ini:"secondary_parent_gene_probability" yaml:"secondary_parent_gene_probability"`
}

// SpeciationConfig holds parameters related to speciation.
type SpeciationConfig struct {
	SpeciesCount           int     `ini:"species_count" yaml:"species_count"`
	Strategy               string  `ini:"strategy" yaml:"strategy"` // "kmeans" or "regularized"
	DistanceMetric         string  `ini:"distance_metric" yaml:"distance_metric"`
	MatchCoefficient       float64 `ini:"match_coefficient" yaml:"match_coefficient"`
	MismatchCoefficient    float64 `ini:"mismatch_coefficient" yaml:"mismatch_coefficient"`
	MismatchConstant       float64 `ini:"mismatch_constant" yaml:"mismatch_constant"`
	MaxIterations          int     `ini:"max_iterations" yaml:"max_iterations"`
	RegularizationConstant float64 `ini:"regularization_constant" yaml:"regularization_constant"`
	Parallelism            int     `ini:"parallelism" yaml:"parallelism"`
}

// ComplexityConfig holds parameters of complexity regulation.
type ComplexityConfig struct {
	Strategy                     string  `ini:"strategy" yaml:"strategy"` // "none" or "absolute"
	Ceiling                      float64 `ini:"ceiling" yaml:"ceiling"`
	MinSimplificationGenerations int     `ini:"min_simplification_generations" yaml:"min_simplification_generations"`
	HistoryLength                int     `ini:"history_length" yaml:"history_length"`
}

// DefaultConfig returns a configuration holding the documented defaults.
// Input and output counts are left at zero and must be supplied.
func DefaultConfig() *Config {
	return &Config{
		Neat: NeatConfig{
			PopSize:          150,
			FitnessThreshold: 0,
		},
		Genome: GenomeConfig{
			FeedForward:                  true,
			Activation:                   "LeakyReLU",
			ConnectionWeightScale:        5.0,
			InitialConnectionsProportion: 0.1,
		},
		Reproduction: ReproductionConfig{
			ElitismProportion:            0.2,
			SelectionProportion:          0.2,
			OffspringSexualProportion:    0.5,
			InterspeciesMatingProportion: 0.01,
			SpeciesFitnessFunc:           "mean",
		},
		Mutation: DefaultAsexualSettings(),
		Crossover: CrossoverConfig{
			SecondaryParentGeneProbability: DefaultSecondaryParentGeneProbability,
		},
		Speciation: SpeciationConfig{
			SpeciesCount:           10,
			Strategy:               "kmeans",
			DistanceMetric:         "manhattan",
			MatchCoefficient:       1,
			MismatchCoefficient:    1,
			MaxIterations:          DefaultMaxKMeansIterations,
			RegularizationConstant: DefaultRegularizationConstant,
		},
		Complexity: ComplexityConfig{
			Strategy:                     "none",
			MinSimplificationGenerations: 10,
			HistoryLength:                10,
		},
	}
}

// LoadConfig loads configuration parameters from an INI file, or from YAML when the path
// ends in .yaml or .yml. Keys absent from the file keep their DefaultConfig values.
func LoadConfig(filePath string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
		}
		return ParseYAMLConfig(data)
	}
	return loadINIConfig(filePath)
}

// ParseINIConfig parses INI configuration data.
func ParseINIConfig(data []byte) (*Config, error) {
	return loadINIConfig(data)
}

func loadINIConfig(source any) (*Config, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true, // Allow # comments starting with # or ;
		UnescapeValueCommentSymbols: true, // If # or ; appear in value, treat as value
	}, source)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	config := DefaultConfig()

	// Map sections to structs
	sections := []struct {
		name   string
		target any
	}{
		{"NEAT", &config.Neat},
		{"Genome", &config.Genome},
		{"Reproduction", &config.Reproduction},
		{"Mutation", &config.Mutation},
		{"Crossover", &config.Crossover},
		{"Speciation", &config.Speciation},
		{"Complexity", &config.Complexity},
	}
	for _, s := range sections {
		if err := cfg.Section(s.name).MapTo(s.target); err != nil {
			return nil, fmt.Errorf("failed to map [%s] section: %w", s.name, err)
		}
	}

	config.clean()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ParseYAMLConfig parses YAML configuration data.
func ParseYAMLConfig(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse yaml config: %w", err)
	}
	config.clean()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// clean strips inline comments and whitespace from string values.
func (c *Config) clean() {
	c.Genome.Activation = cleanIniString(c.Genome.Activation)
	c.Reproduction.SpeciesFitnessFunc = cleanIniString(c.Reproduction.SpeciesFitnessFunc)
	c.Speciation.Strategy = cleanIniString(c.Speciation.Strategy)
	c.Speciation.DistanceMetric = cleanIniString(c.Speciation.DistanceMetric)
	c.Complexity.Strategy = cleanIniString(c.Complexity.Strategy)
}

// Validate checks every section. Errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Neat.PopSize <= 0 {
		return fmt.Errorf("%w: pop_size must be positive", ErrInvalidConfig)
	}
	if _, err := c.Meta(); err != nil {
		return err
	}
	if c.Genome.InitialConnectionsProportion <= 0 || c.Genome.InitialConnectionsProportion > 1 {
		return fmt.Errorf("%w: initial_connections_proportion must be in (0,1]", ErrInvalidConfig)
	}

	r := c.Reproduction
	for name, p := range map[string]float64{
		"elitism_proportion":             r.ElitismProportion,
		"selection_proportion":           r.SelectionProportion,
		"offspring_sexual_proportion":    r.OffspringSexualProportion,
		"interspecies_mating_proportion": r.InterspeciesMatingProportion,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("%w: %s must be between 0 and 1", ErrInvalidConfig, name)
		}
	}
	if _, ok := StatFunctions[strings.ToLower(r.SpeciesFitnessFunc)]; !ok {
		return fmt.Errorf("%w: invalid species_fitness_func '%s'", ErrInvalidConfig, r.SpeciesFitnessFunc)
	}

	if err := c.Mutation.Validate(); err != nil {
		return err
	}
	if p := c.Crossover.SecondaryParentGeneProbability; p < 0 || p > 1 {
		return fmt.Errorf("%w: secondary_parent_gene_probability must be between 0 and 1", ErrInvalidConfig)
	}

	s := c.Speciation
	if s.SpeciesCount <= 0 {
		return fmt.Errorf("%w: species_count must be positive", ErrInvalidConfig)
	}
	if s.Strategy != "kmeans" && s.Strategy != "regularized" {
		return fmt.Errorf("%w: invalid speciation strategy '%s', must be one of 'kmeans', 'regularized'", ErrInvalidConfig, s.Strategy)
	}
	if _, err := c.DistanceMetric(); err != nil {
		return err
	}
	if s.MatchCoefficient < 0 || s.MismatchCoefficient < 0 || s.MismatchConstant < 0 {
		return fmt.Errorf("%w: distance coefficients cannot be negative", ErrInvalidConfig)
	}
	if s.RegularizationConstant < 0 {
		return fmt.Errorf("%w: regularization_constant cannot be negative", ErrInvalidConfig)
	}

	x := c.Complexity
	switch x.Strategy {
	case "none", "":
	case "absolute":
		if x.Ceiling < 1 {
			return fmt.Errorf("%w: complexity ceiling must be at least 1", ErrInvalidConfig)
		}
		if x.MinSimplificationGenerations < 1 {
			return fmt.Errorf("%w: min_simplification_generations must be at least 1", ErrInvalidConfig)
		}
		if x.HistoryLength < 1 {
			return fmt.Errorf("%w: complexity history_length must be at least 1", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: invalid complexity strategy '%s', must be one of 'none', 'absolute'", ErrInvalidConfig, x.Strategy)
	}
	return nil
}

// Meta builds the meta genome described by the [Genome] section.
func (c *Config) Meta() (*MetaNeatGenome, error) {
	return NewMetaNeatGenome(c.Genome.NumInputs, c.Genome.NumOutputs, c.Genome.FeedForward,
		c.Genome.Activation, c.Genome.ConnectionWeightScale)
}

// DistanceMetric builds the metric described by the [Speciation] section.
func (c *Config) DistanceMetric() (DistanceMetric, error) {
	s := c.Speciation
	return NewDistanceMetric(s.DistanceMetric, s.MatchCoefficient, s.MismatchCoefficient, s.MismatchConstant)
}

// SpeciationStrategy builds the strategy described by the [Speciation] section.
func (c *Config) SpeciationStrategy() (SpeciationStrategy, error) {
	metric, err := c.DistanceMetric()
	if err != nil {
		return nil, err
	}
	s := c.Speciation
	base := GeneticKMeansSpeciation{
		Metric:        metric,
		MaxIterations: s.MaxIterations,
		Parallelism:   s.Parallelism,
	}
	if s.Strategy == "regularized" {
		return &RegularizedGeneticKMeansSpeciation{
			GeneticKMeansSpeciation: base,
			RegularizationConstant:  s.RegularizationConstant,
		}, nil
	}
	return &base, nil
}

// cleanIniString removes inline comments and trims whitespace from a string read from INI.
func cleanIniString(s string) string {
	// Remove comments starting with # or ;
	if idx := strings.IndexAny(s, "#;"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
