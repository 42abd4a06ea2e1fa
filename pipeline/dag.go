package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lattes-dw/builders"
	"lattes-dw/validation"
)

var (
	ErrCycle         = errors.New("pipeline: dependency cycle")
	ErrUnknownStep   = errors.New("pipeline: unknown step")
	ErrDuplicateStep = errors.New("pipeline: duplicate step")
)

// Outcome is what a step hands back to the runner. Either field may be nil.
type Outcome struct {
	Result *builders.Result   `json:"result,omitempty"`
	Report *validation.Report `json:"report,omitempty"`
}

// StepFunc does the work of one step.
type StepFunc func(ctx context.Context) (*Outcome, error)

// Step is a named node of the pipeline graph.
type Step struct {
	Name      string
	DependsOn []string
	Run       StepFunc
}

// Graph holds the steps in insertion order.
type Graph struct {
	steps []Step
	index map[string]int
}

func NewGraph() *Graph {
	return &Graph{index: map[string]int{}}
}

// Add registers a step. Dependencies may be added later; they are checked by Order.
func (g *Graph) Add(s Step) error {
	if s.Name == "" {
		return fmt.Errorf("pipeline: step without name")
	}
	if _, ok := g.index[s.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateStep, s.Name)
	}
	g.index[s.Name] = len(g.steps)
	g.steps = append(g.steps, s)
	return nil
}

// MustAdd is Add for statically known graphs.
func (g *Graph) MustAdd(s Step) {
	if err := g.Add(s); err != nil {
		panic(err)
	}
}

// Step looks up a step by name.
func (g *Graph) Step(name string) (Step, bool) {
	i, ok := g.index[name]
	if !ok {
		return Step{}, false
	}
	return g.steps[i], true
}

// Names lists the step names in insertion order.
func (g *Graph) Names() []string {
	names := make([]string, len(g.steps))
	for i, s := range g.steps {
		names[i] = s.Name
	}
	return names
}

// Order returns the steps in dependency order. Among ready steps the one added
// first runs first, so the order is deterministic.
func (g *Graph) Order() ([]Step, error) {
	indegree := make([]int, len(g.steps))
	dependents := make([][]int, len(g.steps))
	for i, s := range g.steps {
		for _, dep := range s.DependsOn {
			j, ok := g.index[dep]
			if !ok {
				return nil, fmt.Errorf("%w: %q required by %q", ErrUnknownStep, dep, s.Name)
			}
			indegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	done := make([]bool, len(g.steps))
	order := make([]Step, 0, len(g.steps))
	for len(order) < len(g.steps) {
		next := -1
		for i := range g.steps {
			if !done[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			var stuck []string
			for i, s := range g.steps {
				if !done[i] {
					stuck = append(stuck, s.Name)
				}
			}
			return nil, fmt.Errorf("%w among %s", ErrCycle, strings.Join(stuck, ", "))
		}
		done[next] = true
		order = append(order, g.steps[next])
		for _, d := range dependents[next] {
			indegree[d]--
		}
	}
	return order, nil
}
