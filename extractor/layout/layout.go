// Package layout holds the per-bank strategies that turn a page into
// transaction candidates. Strategies are declared under `layouts` in the
// configuration and selected by name or detected from the statement text.
package layout

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/aqlanhadi/extrato/extractor/common"
	"github.com/aqlanhadi/extrato/extractor/statement"
	"github.com/spf13/viper"
)

// Generic is the fallback layout name.
const Generic = "GENERIC"

var ErrUnknownLayout = errors.New("unknown layout")

// Layout extracts candidates from one page of a given bank's statement.
type Layout interface {
	Name() string
	// Source is the preferred extraction source; empty defers to the configuration.
	Source() common.Source
	Detect(text string) bool
	ExtractCandidates(page common.Page) []common.Candidate
}

// Definition is one `layouts.<NAME>` configuration block.
type Definition struct {
	Detect           string   `mapstructure:"detect"`
	Source           string   `mapstructure:"source"`
	DatePattern      string   `mapstructure:"date_pattern"`
	ValuePattern     string   `mapstructure:"value_pattern"`
	ReferencePattern string   `mapstructure:"reference_pattern"`
	IgnoreLines      []string `mapstructure:"ignore_lines"`
	Priority         int      `mapstructure:"priority"`
}

type patternLayout struct {
	name     string
	source   common.Source
	detect   *regexp.Regexp
	priority int
	parser   *statement.Parser
}

func (l *patternLayout) Name() string          { return l.name }
func (l *patternLayout) Source() common.Source { return l.source }

func (l *patternLayout) Detect(text string) bool {
	return l.detect != nil && l.detect.MatchString(text)
}

func (l *patternLayout) ExtractCandidates(page common.Page) []common.Candidate {
	return l.parser.ParsePage(page)
}

// New builds a regex-driven layout. Patterns left empty use the generic ones,
// with the value pattern derived from the indicators.
func New(name string, def Definition, ind common.Indicators) (Layout, error) {
	name = strings.ToUpper(name)

	patterns, err := statement.CompilePatterns(def.DatePattern, def.ValuePattern, def.ReferencePattern, def.IgnoreLines, ind)
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", name, err)
	}

	l := &patternLayout{
		name:     name,
		priority: def.Priority,
		parser:   statement.NewParser(patterns),
	}

	if def.Detect != "" {
		if l.detect, err = regexp.Compile(def.Detect); err != nil {
			return nil, fmt.Errorf("layout %s: invalid detect pattern: %w", name, err)
		}
	}

	switch source := common.Source(strings.ToLower(def.Source)); source {
	case "", common.SourceText, common.SourceTable:
		l.source = source
	default:
		return nil, fmt.Errorf("layout %s: invalid source %q", name, def.Source)
	}

	return l, nil
}

type Registry struct {
	layouts []*patternLayout
	byName  map[string]*patternLayout
}

// Load reads every `layouts` block from v. A GENERIC layout is always present.
func Load(v *viper.Viper, ind common.Indicators) (*Registry, error) {
	defs := map[string]Definition{}
	if err := v.UnmarshalKey("layouts", &defs); err != nil {
		return nil, fmt.Errorf("failed to read layouts: %w", err)
	}
	return NewRegistry(defs, ind)
}

func NewRegistry(defs map[string]Definition, ind common.Indicators) (*Registry, error) {
	r := &Registry{byName: map[string]*patternLayout{}}

	for name, def := range defs {
		l, err := New(name, def, ind)
		if err != nil {
			return nil, err
		}
		r.add(l.(*patternLayout))
	}
	if _, ok := r.byName[Generic]; !ok {
		l, _ := New(Generic, Definition{}, ind)
		r.add(l.(*patternLayout))
	}

	sort.SliceStable(r.layouts, func(i, j int) bool {
		if r.layouts[i].priority != r.layouts[j].priority {
			return r.layouts[i].priority > r.layouts[j].priority
		}
		return r.layouts[i].name < r.layouts[j].name
	})

	return r, nil
}

func (r *Registry) add(l *patternLayout) {
	r.layouts = append(r.layouts, l)
	r.byName[l.name] = l
}

// Get looks a layout up by name, case-insensitively.
func (r *Registry) Get(name string) (Layout, error) {
	if l, ok := r.byName[strings.ToUpper(strings.TrimSpace(name))]; ok {
		return l, nil
	}
	return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownLayout, name, strings.Join(r.Names(), ", "))
}

// Detect returns the highest priority layout recognising text, or GENERIC.
func (r *Registry) Detect(text string) Layout {
	for _, l := range r.layouts {
		if l.Detect(text) {
			return l
		}
	}
	return r.byName[Generic]
}

// Names lists the layouts in detection order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.layouts))
	for _, l := range r.layouts {
		names = append(names, l.name)
	}
	return names
}
