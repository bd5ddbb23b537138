package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator checks configuration structs against their validate tags plus
// the cross-section rules of the simulation kernel
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterStructValidation(validateSearch, SimulationConfig{})
	return &Validator{validate: v}
}

// validateSearch rejects a prioritized search whose wait step cannot fit
// in its time horizon
func validateSearch(sl validator.StructLevel) {
	sim := sl.Current().Interface().(SimulationConfig)
	if sim.PathFinder != "prioritized" {
		return
	}
	if sim.Search.WaitStep > sim.Search.MaxTime {
		sl.ReportError(sim.Search.WaitStep, "Search.WaitStep", "WaitStep", "ltefield_max_time", "")
	}
}

func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return describe(err)
	}
	return nil
}

func describe(err error) error {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		// drop the root struct name: Config.Simulation.MaxStep -> Simulation.MaxStep
		field := e.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		rule := e.Tag()
		if e.Param() != "" {
			rule += "=" + e.Param()
		}
		messages = append(messages, fmt.Sprintf("%s violates %s (value: %v)", field, rule, e.Value()))
	}
	return fmt.Errorf("validation failed:\n  %s", strings.Join(messages, "\n  "))
}

// ValidateConfig validates the entire configuration
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}
