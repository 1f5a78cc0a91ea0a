package orders

type Status string

const (
	StatusContinues     Status = "continues"
	StatusCompleted     Status = "completed"
	StatusBreaks        Status = "breaks"
	StatusPaused        Status = "paused"
	StatusAwaitingInput Status = "awaiting-input"
)

// Report is the per-agent outcome of one engine call.
type Report struct {
	Turn      int    `json:"turn"`
	Agent     string `json:"agent"`
	OrderID   string `json:"order_id,omitempty"`
	OrderKind Kind   `json:"order_kind"`
	Status    Status `json:"status"`
	Message   string `json:"message"`

	RegionsMoved      int    `json:"regions_moved,omitempty"`
	Destination       string `json:"destination,omitempty"`
	DistanceRemaining int    `json:"distance_remaining,omitempty"`

	// Atomic actions performed, e.g. "move:ridge", "attack:Ney", "fortify".
	Actions []string `json:"actions,omitempty"`
	Combat  bool     `json:"combat,omitempty"`

	RequiresInput bool          `json:"requires_input,omitempty"`
	InterruptKind InterruptKind `json:"interrupt_kind,omitempty"`
	ValidChoices  []Choice      `json:"valid_choices,omitempty"`
	Location      string        `json:"location,omitempty"`
	Opponent      string        `json:"opponent,omitempty"`
	Ally          string        `json:"ally,omitempty"`
	IsFirstStep   bool          `json:"is_first_step,omitempty"`

	ReputationDelta int `json:"reputation_delta,omitempty"`
}

// Terminal reports whether the order is gone after this report.
func (r Report) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusBreaks
}

func (r *Report) AddAction(kind, target string) {
	if target == "" {
		r.Actions = append(r.Actions, kind)
		return
	}
	r.Actions = append(r.Actions, kind+":"+target)
}

// WithInterrupt copies the interrupt context into the report and marks it as
// needing operator input.
func (r *Report) WithInterrupt(p *PendingInterrupt) {
	if p == nil {
		return
	}
	r.RequiresInput = true
	r.InterruptKind = p.Kind
	r.ValidChoices = append([]Choice(nil), p.ValidChoices...)
	r.Location = p.Location
	r.Opponent = p.Opponent
	r.Ally = p.Ally
	r.IsFirstStep = p.IsFirstStep
}
