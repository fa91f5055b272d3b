package decision

import "github.com/kiosklabs/shelfscan/internal/domain/suggestion"

// Evaluation is the complete outcome of one engine run: the decision, the
// policy metadata, the generated suggestions and the operator-facing
// message. It is the unit stored in the result cache, so a repeat scan
// skips suggestion generation as well as ranking.
type Evaluation struct {
	decision    Decision
	meta        Meta
	suggestions []suggestion.Entry
	message     string
}

// NewEvaluation assembles an evaluation.
func NewEvaluation(d Decision, meta Meta, suggestions []suggestion.Entry, message string) Evaluation {
	return Evaluation{decision: d, meta: meta, suggestions: suggestions, message: message}
}

// Decision returns the policy decision.
func (e *Evaluation) Decision() Decision { return e.decision }

// Meta returns the policy metadata.
func (e *Evaluation) Meta() Meta { return e.meta }

// Suggestions returns the pick-list alternatives (nil after AutoAccept).
func (e *Evaluation) Suggestions() []suggestion.Entry { return e.suggestions }

// Message returns the operator-facing message.
func (e *Evaluation) Message() string { return e.message }
