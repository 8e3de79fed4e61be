// Package generate runs one test generation end to end: load the inputs,
// sample a selection, render both variants, write them out and compile.
package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kingrea/testgen/internal/artifact"
	"github.com/kingrea/testgen/internal/bank"
	"github.com/kingrea/testgen/internal/compile"
	"github.com/kingrea/testgen/internal/config"
	"github.com/kingrea/testgen/internal/logging"
	"github.com/kingrea/testgen/internal/render"
	"github.com/kingrea/testgen/internal/sampler"
)

// ErrAborted is returned when the review step rejects the selection.
var ErrAborted = errors.New("generate: aborted during review")

// Decision is the outcome of reviewing a selection.
type Decision int

const (
	Accept Decision = iota
	Resample
	Abort
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case Resample:
		return "resample"
	default:
		return "abort"
	}
}

// ReviewFunc inspects a sampled selection before rendering. Round counts
// samples shown so far, starting at 1.
type ReviewFunc func(items []bank.Item, round int) (Decision, error)

// Request describes one run.
type Request struct {
	BankPath   string
	ConfigPath string
	OutFile    string
	MaxTries   int
	// Seed makes sampling reproducible when set.
	Seed *uint64
	// SkipCompile writes the sources without invoking the compiler.
	SkipCompile bool
}

// Report summarises a completed run.
type Report struct {
	RunID     string
	Attempts  int
	Rounds    int
	Selection sampler.Selection
	Sources   map[render.Variant]string
	Manifest  string
	Compiled  bool
}

// Generator carries the collaborators shared by runs.
type Generator struct {
	Logger   *logging.Logger
	Compiler compile.Compiler
	// Chooser overrides the random chooser. Request.Seed is ignored when set.
	Chooser sampler.Chooser
	Review  ReviewFunc
	Version string

	now func() time.Time
}

// New returns a generator that compiles with c.
func New(logger *logging.Logger, c compile.Compiler) *Generator {
	return &Generator{Logger: logger, Compiler: c, Version: "dev"}
}

type manifestBody struct {
	Bank      string   `json:"bank"`
	Config    string   `json:"config"`
	Tags      []string `json:"tags"`
	Exclude   []string `json:"exclude"`
	Selection []int    `json:"selection"`
	Questions []string `json:"questions"`
	Attempts  int      `json:"attempts"`
	MaxTries  int      `json:"max_tries"`
}

// Run executes req. Sampling exhaustion and malformed input abort before
// anything is written. A compiler failure leaves the sources on disk.
func (g *Generator) Run(ctx context.Context, req Request) (Report, error) {
	log := g.Logger.Zap()
	runID := uuid.NewString()
	log = log.With(zap.String("run", runID))

	exam, err := config.LoadExam(req.ConfigPath)
	if err != nil {
		return Report{}, err
	}
	b, err := bank.Load(req.BankPath)
	if err != nil {
		return Report{}, err
	}
	log.Info("inputs loaded",
		zap.String("bank", req.BankPath),
		zap.Int("items", b.Len()),
		zap.String("config", req.ConfigPath),
		zap.Int("quotas", len(exam.Quotas)),
	)

	chooser := g.chooser(req)
	var (
		sel      sampler.Selection
		items    []bank.Item
		attempts int
		rounds   int
	)
	for {
		rounds++
		sel, attempts, err = g.sample(log, b, exam, req.MaxTries, chooser)
		if err != nil {
			return Report{}, err
		}
		items, err = b.Resolve(sel)
		if err != nil {
			return Report{}, err
		}
		if g.Review == nil {
			break
		}
		decision, err := g.Review(items, rounds)
		if err != nil {
			return Report{}, err
		}
		log.Info("review decision", zap.Int("round", rounds), zap.Stringer("decision", decision))
		if decision == Accept {
			break
		}
		if decision == Abort {
			return Report{}, ErrAborted
		}
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
	}

	docs, err := render.All(items, exam.Document)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		RunID:     runID,
		Attempts:  attempts,
		Rounds:    rounds,
		Selection: sel,
		Sources:   map[render.Variant]string{},
	}
	store := g.store(req.OutFile)
	meta := artifact.Metadata{
		RunID:    runID,
		Version:  g.version(),
		Inputs:   []string{req.BankPath, req.ConfigPath},
		Checksum: b.Checksum,
		Notes:    g.notes(req, attempts),
	}
	for _, v := range render.Variants {
		ref := sourceRef(v)
		m := meta
		m.Notes = withNote(meta.Notes, "variant", v.String())
		path, err := store.Write(ref, []byte(docs[v]), m)
		if err != nil {
			return report, err
		}
		report.Sources[v] = path
		log.Info("source written", zap.String("variant", v.String()), zap.String("path", path))
	}

	body, err := json.Marshal(manifestBody{
		Bank:      req.BankPath,
		Config:    req.ConfigPath,
		Tags:      tagNames(exam.Quotas),
		Exclude:   append([]string{}, exam.Exclude...),
		Selection: []int(sel),
		Questions: questionTexts(items),
		Attempts:  attempts,
		MaxTries:  req.MaxTries,
	})
	if err != nil {
		return report, fmt.Errorf("generate: encode manifest: %w", err)
	}
	if report.Manifest, err = store.Write(artifact.Manifest, body, meta); err != nil {
		return report, err
	}

	if req.SkipCompile || g.Compiler == nil {
		log.Info("compilation skipped")
		return report, nil
	}
	for _, v := range render.Variants {
		path := report.Sources[v]
		log.Info("compiling", zap.String("variant", v.String()), zap.String("path", path))
		if err := g.Compiler.Compile(ctx, path); err != nil {
			log.Info("compile failed", zap.String("path", path), zap.Error(err))
			return report, err
		}
	}
	report.Compiled = true
	return report, nil
}

func (g *Generator) sample(log *zap.Logger, b *bank.Bank, exam *config.Exam, maxTries int, chooser sampler.Chooser) (sampler.Selection, int, error) {
	attempts := 0
	observer := func(attempt int, err error) {
		attempts = attempt
		if err != nil {
			log.Debug("attempt infeasible", zap.Int("attempt", attempt), zap.Error(err))
		}
	}
	sel, err := sampler.Sample(b.Pool(), exam.Quotas, exam.ExcludeSet(), maxTries,
		sampler.WithChooser(chooser),
		sampler.WithObserver(observer),
	)
	if err != nil {
		log.Info("sampling failed", zap.Int("max_tries", maxTries), zap.Error(err))
		return nil, attempts, err
	}
	log.Info("selection sampled", zap.Int("attempts", attempts), zap.Ints("selection", sel))
	return sel, attempts, nil
}

func (g *Generator) chooser(req Request) sampler.Chooser {
	if g.Chooser != nil {
		return g.Chooser
	}
	if req.Seed != nil {
		return sampler.NewSeededChooser(*req.Seed)
	}
	return sampler.NewRandomChooser()
}

func (g *Generator) store(outfile string) *artifact.Store {
	if g.now != nil {
		return artifact.NewStore(outfile, artifact.WithClock(g.now))
	}
	return artifact.NewStore(outfile)
}

func (g *Generator) version() string {
	if strings.TrimSpace(g.Version) == "" {
		return "dev"
	}
	return g.Version
}

func (g *Generator) notes(req Request, attempts int) map[string]string {
	notes := map[string]string{
		"attempts":  strconv.Itoa(attempts),
		"max_tries": strconv.Itoa(req.MaxTries),
	}
	if req.Seed != nil && g.Chooser == nil {
		notes["seed"] = strconv.FormatUint(*req.Seed, 10)
	}
	return notes
}

func sourceRef(v render.Variant) artifact.Ref {
	if v == render.AnswerKey {
		return artifact.KeySource
	}
	return artifact.PlainSource
}

func withNote(notes map[string]string, key, value string) map[string]string {
	out := make(map[string]string, len(notes)+1)
	for k, v := range notes {
		out[k] = v
	}
	out[key] = value
	return out
}

func tagNames(quotas []sampler.Quota) []string {
	names := make([]string, len(quotas))
	for i, q := range quotas {
		names[i] = q.Tag
	}
	return names
}

func questionTexts(items []bank.Item) []string {
	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = it.Text
	}
	return texts
}
