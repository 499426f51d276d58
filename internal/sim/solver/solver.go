package solver

import (
	"context"
	"errors"

	"blockmaze.ai/internal/sim/actions"
	"blockmaze.ai/internal/sim/world"
)

var ErrExpansionLimit = errors.New("solver: expansion limit reached")

type Options struct {
	Costs            Costs
	UnmetGoalPenalty int

	// MaxExpansions bounds the number of processed nodes; 0 means unbounded.
	MaxExpansions int
}

func DefaultOptions() Options {
	return Options{Costs: DefaultCosts(), UnmetGoalPenalty: 10}
}

type Result struct {
	Path     []actions.Action
	Found    bool
	Cost     float64
	Expanded int
	Visited  int
}

// ctxCheckEvery is how many expansions pass between context checks.
const ctxCheckEvery = 512

// Solve runs A* from the start state of w. A search that exhausts the open
// set returns Found=false and a nil error. Errors are only returned for a
// cancelled context or an exceeded expansion limit.
func Solve(ctx context.Context, w *world.World, opts Options) (Result, error) {
	var (
		nodes   arena
		open    openSet
		visited = map[string]struct{}{}
		res     Result
	)

	if err := ctx.Err(); err != nil {
		return res, err
	}

	start := NewState(w)
	root := nodes.add(node{
		state:  start,
		key:    start.Key(),
		parent: noParent,
		h:      float64(heuristic(w, start, opts.UnmetGoalPenalty)),
	})
	open.push(nodes.at(root).f(), root)

	for open.Len() > 0 {
		cur := open.pop()
		n := nodes.at(cur)
		if _, seen := visited[n.key]; seen {
			continue
		}
		visited[n.key] = struct{}{}
		res.Expanded++

		if res.Expanded%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				res.Visited = len(visited)
				return res, err
			}
		}
		if opts.MaxExpansions > 0 && res.Expanded > opts.MaxExpansions {
			res.Visited = len(visited)
			return res, ErrExpansionLimit
		}

		if GoalReached(w, n.state) {
			res.Path = nodes.path(cur)
			res.Found = true
			res.Cost = n.g
			res.Visited = len(visited)
			return res, nil
		}

		state, g := n.state, n.g
		for _, a := range actions.ExpansionOrder {
			next, ok := Step(w, state, a)
			if !ok {
				continue
			}
			key := next.Key()
			if _, seen := visited[key]; seen {
				continue
			}
			child := nodes.add(node{
				state:  next,
				key:    key,
				parent: cur,
				action: a,
				g:      g + opts.Costs.Of(a),
				h:      float64(heuristic(w, next, opts.UnmetGoalPenalty)),
			})
			open.push(nodes.at(child).f(), child)
		}
	}

	res.Visited = len(visited)
	return res, nil
}
