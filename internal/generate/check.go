package generate

import (
	"github.com/kingrea/testgen/internal/bank"
	"github.com/kingrea/testgen/internal/config"
	"github.com/kingrea/testgen/internal/sampler"
)

// Inspection is the result of validating a bank and exam configuration
// without sampling.
type Inspection struct {
	Items   int
	Total   int
	Exclude []string
	Reports []sampler.TagReport
}

// Short returns the quotas that can never be met.
func (in *Inspection) Short() []sampler.TagReport {
	var short []sampler.TagReport
	for _, r := range in.Reports {
		if r.Short() {
			short = append(short, r)
		}
	}
	return short
}

// Inspect loads both inputs and reports per-tag eligibility.
func Inspect(bankPath, configPath string) (*Inspection, error) {
	exam, err := config.LoadExam(configPath)
	if err != nil {
		return nil, err
	}
	b, err := bank.Load(bankPath)
	if err != nil {
		return nil, err
	}
	return &Inspection{
		Items:   b.Len(),
		Total:   exam.TotalItems(),
		Exclude: append([]string{}, exam.Exclude...),
		Reports: sampler.Feasibility(b.Pool(), exam.Quotas, exam.ExcludeSet()),
	}, nil
}
