package query

// Planner is anything that can hand an Evaluator a plan to run. Both *Stage
// and *JoinBuilder are Planners.
type Planner interface {
	Plan() *Node
}
