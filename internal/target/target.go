// Package target defines the subject of one intelligence run: a company
// name paired with an analysis objective.
package target

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Objective is the focus area of a run.
type Objective string

// The objectives an operator can choose from.
const (
	GeneralAnalysis   Objective = "General Analysis"
	FindWeaknesses    Objective = "Find Weaknesses"
	ProductPricing    Objective = "Product Pricing"
	LeadershipScandal Objective = "Leadership Scandal"
)

// DefaultObjective is preselected in the dashboard and used when a caller
// leaves the objective empty.
const DefaultObjective = GeneralAnalysis

// DefaultName is the target prefilled in the dashboard.
const DefaultName = "Nvidia"

// Objectives returns every objective in display order.
func Objectives() []Objective {
	return []Objective{GeneralAnalysis, FindWeaknesses, ProductPricing, LeadershipScandal}
}

// Valid reports whether o is one of [Objectives].
func (o Objective) Valid() bool {
	for _, v := range Objectives() {
		if o == v {
			return true
		}
	}
	return false
}

// ParseObjective matches s against the objective labels, ignoring case and
// surrounding whitespace. An empty string yields [DefaultObjective].
func ParseObjective(s string) (Objective, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultObjective, nil
	}
	for _, o := range Objectives() {
		if strings.EqualFold(s, string(o)) {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown objective %q", s)
}

// Spec is the pair (target name, objective) for one run. It is built once
// per submission and never mutated.
type Spec struct {
	Name      string    `validate:"required"`
	Objective Objective `validate:"objective"`
}

// ErrEmptyName is returned by [New] when the target name is blank.
var ErrEmptyName = errors.New("target name is required")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Labels contain spaces, so oneof cannot express them.
	_ = v.RegisterValidation("objective", func(fl validator.FieldLevel) bool {
		return Objective(fl.Field().String()).Valid()
	})
	return v
}

// New trims name, resolves objective and validates the result. A blank
// name returns [ErrEmptyName].
func New(name, objective string) (Spec, error) {
	obj, err := ParseObjective(objective)
	if err != nil {
		return Spec{}, err
	}
	s := Spec{Name: strings.TrimSpace(name), Objective: obj}
	if err := s.Validate(); err != nil {
		return Spec{}, err
	}
	return s, nil
}

// Validate checks Name and Objective.
func (s Spec) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			switch fe.Field() {
			case "Name":
				return ErrEmptyName
			case "Objective":
				return fmt.Errorf("unknown objective %q", s.Objective)
			}
		}
	}
	return fmt.Errorf("invalid target: %w", err)
}

// ExportFilename returns the download name for this target's report,
// "Stratagem_<name>_Report.md". Path separators and control characters in
// the name are replaced with underscores; everything else is kept.
func (s Spec) ExportFilename() string {
	return ExportFilename(s.Name)
}

// ExportFilename is [Spec.ExportFilename] for a bare name.
func ExportFilename(name string) string {
	clean := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == '"' || unicode.IsControl(r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	return "Stratagem_" + clean + "_Report.md"
}

// ExportContentType is the MIME type of exported reports.
const ExportContentType = "text/markdown"
