package runtime

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"campaign.ai/internal/sim/combat"
	"campaign.ai/internal/sim/orders"
	modelpkg "campaign.ai/internal/sim/world/kernel/model"
)

func TestFootAgentAdvancesOneHopPerPass(t *testing.T) {
	s := newStub("a b", "b c")
	a := s.add(&modelpkg.Agent{Name: "A", Strength: 10, Location: "a"})
	s.standing(a, &orders.Order{Kind: orders.KindAdvanceTo, Target: "c", RemainingPath: []string{"b", "c"}})

	reps := s.run("blue")
	rep := reportFor(t, reps, "A")
	if rep.Status != orders.StatusContinues {
		t.Fatalf("expected continues, got %s (%s)", rep.Status, rep.Message)
	}
	if a.Location != "b" {
		t.Fatalf("expected A at b, got %s", a.Location)
	}
	if a.Order == nil || !reflect.DeepEqual(a.Order.RemainingPath, []string{"c"}) {
		t.Fatalf("unexpected remaining path: %#v", a.Order)
	}
	if rep.RegionsMoved != 1 || rep.DistanceRemaining != 1 || rep.Destination != "c" {
		t.Fatalf("unexpected progress fields: %#v", rep)
	}
}

func TestMountedAgentBudget(t *testing.T) {
	s := newStub("a b", "b c", "c d")
	a := s.add(&modelpkg.Agent{Name: "A", Strength: 10, Location: "a", Mounted: true})
	s.standing(a, &orders.Order{Kind: orders.KindAdvanceTo, Target: "d", RemainingPath: []string{"b", "c", "d"}})

	rep := reportFor(t, s.run(""), "A")
	if rep.RegionsMoved != 2 || a.Location != "c" {
		t.Fatalf("expected two hops to c, moved=%d at %s", rep.RegionsMoved, a.Location)
	}

	s.turn++
	rep = reportFor(t, s.run(""), "A")
	if rep.Status != orders.StatusCompleted || a.Location != "d" {
		t.Fatalf("expected arrival at d, got %s at %s", rep.Status, a.Location)
	}
	if a.Order != nil {
		t.Fatalf("expected order cleared on completion")
	}
}

func TestLaterHostileHopStopsEarlyWithoutInterrupt(t *testing.T) {
	s := newStub("a b", "b c", "c d")
	a := s.add(&modelpkg.Agent{Name: "A", Strength: 10, Location: "a", Mounted: true, Disposition: orders.Cautious})
	s.add(&modelpkg.Agent{Name: "X", Side: "red", Strength: 10, Location: "c"})
	s.standing(a, &orders.Order{Kind: orders.KindAdvanceTo, Target: "d", RemainingPath: []string{"b", "c", "d"}})

	reps := s.run("blue")
	rep := reportFor(t, reps, "A")
	if rep.RequiresInput || a.Interrupt != nil {
		t.Fatalf("partial progress must not interrupt: %#v", rep)
	}
	if a.Location != "b" || rep.RegionsMoved != 1 {
		t.Fatalf("expected stop at b, at %s moved %d", a.Location, rep.RegionsMoved)
	}
	assertNoTrespass(t, s, reps)
}

func TestIssuedTurnPassIsStatusOnly(t *testing.T) {
	s := newStub("a b", "b c", "c d")
	a := s.add(&modelpkg.Agent{Name: "A", Strength: 10, Location: "a"})

	issued, err := IssueOrder(s, s.tune, "A", IssueRequest{Kind: orders.KindAdvanceTo, Target: "d"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if issued.RegionsMoved != 1 || a.Location != "b" {
		t.Fatalf("issuing action should take step one, moved=%d at %s", issued.RegionsMoved, a.Location)
	}

	reps := s.run("")
	rep := reportFor(t, reps, "A")
	if a.Location != "b" {
		t.Fatalf("same-turn pass moved the agent to %s", a.Location)
	}
	if rep.Status != orders.StatusContinues || rep.RegionsMoved != 0 || len(rep.Actions) != 0 {
		t.Fatalf("expected status-only report, got %#v", rep)
	}
}

func TestSecondPassInSameTurnIsSkipped(t *testing.T) {
	s := newStub("a b", "b c", "c d")
	a := s.add(&modelpkg.Agent{Name: "A", Strength: 10, Location: "a"})
	s.standing(a, &orders.Order{Kind: orders.KindAdvanceTo, Target: "d", RemainingPath: []string{"b", "c", "d"}})

	s.run("")
	if a.Location != "b" {
		t.Fatalf("expected b after first pass, got %s", a.Location)
	}
	if reps := s.run(""); len(reps) != 0 || a.Location != "b" {
		t.Fatalf("second pass should be a no-op, got %#v at %s", reps, a.Location)
	}
}

func TestPursueCompletesWhenTargetStrengthGone(t *testing.T) {
	s := newStub("x y")
	b := s.add(&modelpkg.Agent{Name: "B", Strength: 10, Location: "x"})
	s.add(&modelpkg.Agent{Name: "X", Side: "red", Strength: 0, Location: "x"})
	s.standing(b, &orders.Order{Kind: orders.KindPursue, Target: "X", TargetKind: orders.TargetAgent})

	rep := reportFor(t, s.run("blue"), "B")
	if rep.Status != orders.StatusCompleted {
		t.Fatalf("expected completed, got %s", rep.Status)
	}
	if !strings.Contains(rep.Message, "X") {
		t.Fatalf("expected reason to name X, got %q", rep.Message)
	}
	if b.Order != nil {
		t.Fatalf("expected order cleared")
	}
}

func TestPursueFollowsLiveLocationAndEngages(t *testing.T) {
	s := newStub("a b", "b c")
	p := s.add(&modelpkg.Agent{Name: "P", Strength: 20, Location: "a"})
	x := s.add(&modelpkg.Agent{Name: "X", Side: "red", Strength: 1, Location: "c"})
	s.standing(p, &orders.Order{Kind: orders.KindPursue, Target: "X", TargetKind: orders.TargetAgent})

	x.Location = "b"
	reps := s.run("blue")
	rep := reportFor(t, reps, "P")
	if !rep.Combat {
		t.Fatalf("expected P to engage X next door, got %#v", rep)
	}
	if rep.Status != orders.StatusCompleted || s.agents["X"] != nil {
		t.Fatalf("expected X destroyed and order completed, got %s (%s)", rep.Status, rep.Message)
	}
	assertNoTrespass(t, s, reps)
}

func TestCautiousBlockedFirstHopRaisesInterrupt(t *testing.T) {
	s := newStub("a b", "b c")
	c := s.add(&modelpkg.Agent{Name: "C", Strength: 10, Location: "a", Disposition: orders.Cautious})
	s.add(&modelpkg.Agent{Name: "X", Side: "red", Strength: 10, Location: "b"})
	s.standing(c, &orders.Order{Kind: orders.KindAdvanceTo, Target: "c", RemainingPath: []string{"b", "c"}})

	rep := reportFor(t, s.run("blue"), "C")
	if c.Interrupt == nil || c.Interrupt.Kind != orders.InterruptBlockedPath {
		t.Fatalf("expected blocked-path interrupt, got %#v", c.Interrupt)
	}
	want := []orders.Choice{orders.ChoiceAttack, orders.ChoiceGoAround, orders.ChoiceHold, orders.ChoiceCancel}
	if !reflect.DeepEqual(rep.ValidChoices, want) {
		t.Fatalf("unexpected choices: %#v", rep.ValidChoices)
	}
	if c.Location != "a" || rep.RegionsMoved != 0 {
		t.Fatalf("blocked agent moved to %s", c.Location)
	}
	if !rep.RequiresInput || rep.Status != orders.StatusPaused || rep.Opponent != "X" || rep.Location != "b" {
		t.Fatalf("unexpected report: %#v", rep)
	}
}

func TestInterruptedAgentReportsAwaitingInput(t *testing.T) {
	s := newStub("a b", "b c")
	c := s.add(&modelpkg.Agent{Name: "C", Strength: 10, Location: "a", Disposition: orders.Cautious})
	s.add(&modelpkg.Agent{Name: "X", Side: "red", Strength: 10, Location: "b"})
	s.standing(c, &orders.Order{Kind: orders.KindAdvanceTo, Target: "c", RemainingPath: []string{"b", "c"}})
	s.run("blue")

	s.turn++
	rep := reportFor(t, s.run("blue"), "C")
	if rep.Status != orders.StatusAwaitingInput || !rep.RequiresInput {
		t.Fatalf("expected awaiting-input, got %#v", rep)
	}
	if c.Location != "a" {
		t.Fatalf("frozen order moved the agent")
	}
}

func TestOrchestratorStopsAtFirstDecision(t *testing.T) {
	s := newStub("a b", "b c", "d e", "e f")
	s.add(&modelpkg.Agent{Name: "X", Side: "red", Strength: 10, Location: "b"})
	first := s.add(&modelpkg.Agent{Name: "Alpha", Strength: 10, Location: "a", Disposition: orders.Cautious})
	second := s.add(&modelpkg.Agent{Name: "Bravo", Strength: 10, Location: "d"})
	s.standing(first, &orders.Order{Kind: orders.KindAdvanceTo, Target: "c", RemainingPath: []string{"b", "c"}})
	s.standing(second, &orders.Order{Kind: orders.KindAdvanceTo, Target: "f", RemainingPath: []string{"e", "f"}})

	reps := s.run("blue")
	if len(reps) != 1 || reps[0].Agent != "Alpha" {
		t.Fatalf("expected only Alpha's report, got %#v", reps)
	}
	if second.Location != "d" {
		t.Fatalf("Bravo should wait for the next call")
	}

	if _, err := Respond(s, s.tune, "Alpha", orders.InterruptBlockedPath, orders.ChoiceHold); err != nil {
		t.Fatalf("respond: %v", err)
	}
	reps = s.run("blue")
	if reportFor(t, reps, "Bravo").RegionsMoved != 1 || second.Location != "e" {
		t.Fatalf("expected Bravo to move once the decision is made, got %#v", reps)
	}
}

func TestAggressiveBlockedPathByOdds(t *testing.T) {
	s := newStub("a b", "b c")
	agg := s.add(&modelpkg.Agent{Name: "G", Strength: 20, Location: "a", Disposition: orders.Aggressive})
	x := s.add(&modelpkg.Agent{Name: "X", Side: "red", Strength: 5, Location: "b"})
	s.standing(agg, &orders.Order{Kind: orders.KindAdvanceTo, Target: "c", RemainingPath: []string{"b", "c"}})

	reps := s.run("blue")
	rep := reportFor(t, reps, "G")
	if !rep.Combat || !hasAction(rep, "attack:X") || agg.Interrupt != nil {
		t.Fatalf("expected automatic attack, got %#v", rep)
	}
	if x.Strength >= 5 {
		t.Fatalf("expected losses on X, strength %d", x.Strength)
	}
	assertNoTrespass(t, s, reps)

	s = newStub("a b", "b c")
	agg = s.add(&modelpkg.Agent{Name: "G", Strength: 10, Location: "a", Disposition: orders.Aggressive})
	s.add(&modelpkg.Agent{Name: "X", Side: "red", Strength: 10, Location: "b"})
	s.standing(agg, &orders.Order{Kind: orders.KindAdvanceTo, Target: "c", RemainingPath: []string{"b", "c"}})

	rep = reportFor(t, s.run("blue"), "G")
	if rep.InterruptKind != orders.InterruptBlockedPathBadOdds {
		t.Fatalf("expected bad-odds interrupt, got %#v", rep)
	}
	want := []orders.Choice{orders.ChoiceAttackAnyway, orders.ChoiceGoAround, orders.ChoiceHold, orders.ChoiceCancel}
	if !reflect.DeepEqual(rep.ValidChoices, want) {
		t.Fatalf("unexpected choices: %#v", rep.ValidChoices)
	}
	if rep.Combat || agg.Location != "a" {
		t.Fatalf("no fight expected at poor odds")
	}
}

func TestLiteralReroutesAroundEveryHostile(t *testing.T) {
	s := newStub("a b", "b d", "a c", "c d", "a e", "e d")
	lit := s.add(&modelpkg.Agent{Name: "L", Strength: 10, Location: "a", Disposition: orders.Literal})
	s.add(&modelpkg.Agent{Name: "X", Side: "red", Strength: 10, Location: "b"})
	s.add(&modelpkg.Agent{Name: "Y", Side: "red", Strength: 10, Location: "c"})
	s.standing(lit, &orders.Order{Kind: orders.KindAdvanceTo, Target: "d", RemainingPath: []string{"b", "d"}})

	reps := s.run("blue")
	rep := reportFor(t, reps, "L")
	if rep.RequiresInput || lit.Interrupt != nil {
		t.Fatalf("literal agents reroute silently: %#v", rep)
	}
	if lit.Location != "e" || !reflect.DeepEqual(lit.Order.RemainingPath, []string{"d"}) {
		t.Fatalf("expected reroute via e, at %s path %#v", lit.Location, lit.Order.RemainingPath)
	}
	assertNoTrespass(t, s, reps)
}

func TestLiteralBreaksWhenNoRouteAvoidsHostiles(t *testing.T) {
	s := newStub("a b", "b c")
	lit := s.add(&modelpkg.Agent{Name: "L", Strength: 10, Location: "a", Disposition: orders.Literal})
	s.add(&modelpkg.Agent{Name: "X", Side: "red", Strength: 10, Location: "b"})
	s.standing(lit, &orders.Order{Kind: orders.KindAdvanceTo, Target: "c", RemainingPath: []string{"b", "c"}})

	rep := reportFor(t, s.run("blue"), "L")
	if rep.Status != orders.StatusBreaks || lit.Order != nil || lit.Location != "a" {
		t.Fatalf("expected broken order in place, got %#v", rep)
	}
}

func TestLiteralNeverGetsCannonFire(t *testing.T) {
	s := newStub("a b", "b c", "c d", "d e", "e f", "f g")
	lit := s.add(&modelpkg.Agent{Name: "L", Strength: 10, Location: "a", Disposition: orders.Literal})
	s.standing(lit, &orders.Order{Kind: orders.KindAdvanceTo, Target: "g"})

	for i := 0; i < 5; i++ {
		s.battles = []modelpkg.Battle{
			{Location: lit.Location, Participants: []string{"P", "Q"}, Result: combat.ResultStalemate},
			{Location: "c", Participants: []string{"R", "S"}, Result: combat.ResultWin},
		}
		for _, rep := range s.run("blue") {
			if rep.InterruptKind == orders.InterruptCannonFire {
				t.Fatalf("turn %d: literal agent got cannon fire: %#v", s.turn, rep)
			}
		}
		s.turn++
	}
	if lit.Location != "f" {
		t.Fatalf("expected steady progress to f, at %s", lit.Location)
	}
}

func TestCautiousCannonFireThenContinue(t *testing.T) {
	s := newStub("a b", "b c", "c d")
	c := s.add(&modelpkg.Agent{Name: "C", Strength: 10, Location: "a", Disposition: orders.Cautious, Reputation: 5})
	s.standing(c, &orders.Order{Kind: orders.KindAdvanceTo, Target: "d", RemainingPath: []string{"b", "c", "d"}})
	s.battles = []modelpkg.Battle{{Location: "c", Participants: []string{"P", "Q"}}}

	rep := reportFor(t, s.run("blue"), "C")
	if rep.InterruptKind != orders.InterruptCannonFire || rep.Location != "c" || c.Location != "a" {
		t.Fatalf("expected cannon-fire interrupt, got %#v", rep)
	}
	if rep.IsFirstStep {
		t.Fatalf("order issued on an earlier turn is not on its first step")
	}

	res, err := Respond(s, s.tune, "C", orders.InterruptCannonFire, orders.ChoiceContinue)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if c.Interrupt != nil || c.Order == nil {
		t.Fatalf("continue keeps the order and clears the interrupt")
	}
	if c.Location != "b" || res.RegionsMoved != 1 {
		t.Fatalf("continue should step once, at %s", c.Location)
	}
	if c.Reputation != 5-s.tune.ContinuePenalty || res.ReputationDelta != -s.tune.ContinuePenalty {
		t.Fatalf("expected continue penalty, reputation %d", c.Reputation)
	}
	if reps := s.run("blue"); len(reps) != 0 {
		t.Fatalf("the battle was acknowledged and the agent already moved: %#v", reps)
	}
}

func TestAggressiveInvestigatesCannonFire(t *testing.T) {
	s := newStub("a b", "b c", "a z")
	g := s.add(&modelpkg.Agent{Name: "G", Strength: 10, Location: "a", Disposition: orders.Aggressive})
	s.standing(g, &orders.Order{Kind: orders.KindAdvanceTo, Target: "z", RemainingPath: []string{"z"}})
	s.battles = []modelpkg.Battle{{Location: "c", Participants: []string{"P", "Q"}}}

	rep := reportFor(t, s.run("blue"), "G")
	if rep.RequiresInput || g.Interrupt != nil {
		t.Fatalf("aggressive agents do not ask: %#v", rep)
	}
	if rep.Status != orders.StatusBreaks || g.Order != nil {
		t.Fatalf("expected order abandoned, got %s", rep.Status)
	}
	if g.Location != "b" || !hasAction(rep, "move:b") {
		t.Fatalf("expected a move toward the battle, at %s", g.Location)
	}
}

func TestRespondInvestigateMarchesOnBattle(t *testing.T) {
	s := newStub("a b", "b c")
	c := s.add(&modelpkg.Agent{Name: "C", Strength: 10, Location: "a", Disposition: orders.Cautious})
	s.standing(c, &orders.Order{Kind: orders.KindHold, Target: "a"})
	s.battles = []modelpkg.Battle{{Location: "b", Participants: []string{"P", "Q"}}}
	s.run("blue")

	rep, err := Respond(s, s.tune, "C", orders.InterruptCannonFire, orders.ChoiceInvestigate)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if c.Order != nil || c.Interrupt != nil || c.Location != "b" {
		t.Fatalf("expected order dropped and a move to b, at %s", c.Location)
	}
	if rep.Status != orders.StatusBreaks || rep.RegionsMoved != 1 {
		t.Fatalf("unexpected report: %#v", rep)
	}
}

func TestRespondRejectsWithoutMutation(t *testing.T) {
	s := newStub("a b", "b c")
	c := s.add(&modelpkg.Agent{Name: "C", Strength: 10, Location: "a", Disposition: orders.Cautious, Reputation: 3})
	s.add(&modelpkg.Agent{Name: "X", Side: "red", Strength: 10, Location: "b"})
	s.standing(c, &orders.Order{Kind: orders.KindAdvanceTo, Target: "c", RemainingPath: []string{"b", "c"}})
	s.run("blue")
	before := c.Clone()

	if _, err := Respond(s, s.tune, "C", orders.InterruptBlockedPath, orders.ChoiceInvestigate); err == nil {
		t.Fatalf("expected invalid choice")
	}
	if _, err := Respond(s, s.tune, "C", orders.InterruptCannonFire, orders.ChoiceCancel); err == nil {
		t.Fatalf("expected kind mismatch")
	}
	if _, err := Respond(s, s.tune, "Nobody", orders.InterruptBlockedPath, orders.ChoiceCancel); err == nil {
		t.Fatalf("expected unknown agent")
	}
	if !reflect.DeepEqual(before, c) {
		t.Fatalf("rejected response mutated the agent:\nbefore %#v\nafter  %#v", before, c)
	}
}

func TestRespondStaleInterruptIsCleared(t *testing.T) {
	s := newStub("a b")
	c := s.add(&modelpkg.Agent{Name: "C", Strength: 10, Location: "a"})
	s.standing(c, &orders.Order{OrderID: "new", Kind: orders.KindHold, Target: "a"})
	c.Interrupt = &orders.PendingInterrupt{
		Kind:         orders.InterruptBlockedPath,
		OrderID:      "old",
		ValidChoices: orders.ChoicesFor(orders.InterruptBlockedPath),
	}

	_, err := Respond(s, s.tune, "C", orders.InterruptBlockedPath, orders.ChoiceCancel)
	if err == nil || !strings.Contains(err.Error(), ErrStaleInterrupt.Error()) {
		t.Fatalf("expected stale interrupt, got %v", err)
	}
	if c.Interrupt != nil || c.Order == nil || c.Order.OrderID != "new" {
		t.Fatalf("stale interrupt should be dropped and the order kept")
	}
}

func TestRespondStaleInterruptWinsOverBadAnswer(t *testing.T) {
	for _, tc := range []struct {
		name   string
		kind   orders.InterruptKind
		choice orders.Choice
	}{
		{"wrong kind", orders.InterruptCannonFire, orders.ChoiceContinue},
		{"choice not offered", orders.InterruptBlockedPath, orders.ChoiceInvestigate},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := newStub("a b")
			c := s.add(&modelpkg.Agent{Name: "C", Strength: 10, Location: "a"})
			s.standing(c, &orders.Order{OrderID: "new", Kind: orders.KindHold, Target: "a"})
			c.Interrupt = &orders.PendingInterrupt{
				Kind:         orders.InterruptBlockedPath,
				OrderID:      "old",
				ValidChoices: orders.ChoicesFor(orders.InterruptBlockedPath),
			}

			_, err := Respond(s, s.tune, "C", tc.kind, tc.choice)
			if !errors.Is(err, ErrStaleInterrupt) {
				t.Fatalf("expected stale interrupt, got %v", err)
			}
			if c.Interrupt != nil {
				t.Fatalf("dangling interrupt should be dropped")
			}
		})
	}
}

func TestRespondGoAroundAvoidsEveryHostile(t *testing.T) {
	s := newStub("a b", "b d", "a c", "c d", "a e", "e d")
	c := s.add(&modelpkg.Agent{Name: "C", Strength: 10, Location: "a", Disposition: orders.Cautious})
	s.add(&modelpkg.Agent{Name: "X", Side: "red", Strength: 10, Location: "b"})
	s.add(&modelpkg.Agent{Name: "Y", Side: "red", Strength: 10, Location: "c"})
	s.standing(c, &orders.Order{Kind: orders.KindAdvanceTo, Target: "d", RemainingPath: []string{"b", "d"}})
	s.run("blue")

	rep, err := Respond(s, s.tune, "C", orders.InterruptBlockedPath, orders.ChoiceGoAround)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if c.Location != "e" || rep.Status != orders.StatusContinues {
		t.Fatalf("expected detour through e, at %s (%s)", c.Location, rep.Message)
	}
	if c.Order == nil || !reflect.DeepEqual(c.Order.RemainingPath, []string{"d"}) {
		t.Fatalf("unexpected path after go-around: %#v", c.Order)
	}
}

func TestRespondAttackKeepsOrder(t *testing.T) {
	s := newStub("a b", "b c")
	c := s.add(&modelpkg.Agent{Name: "C", Strength: 30, Location: "a", Disposition: orders.Cautious})
	s.add(&modelpkg.Agent{Name: "X", Side: "red", Strength: 1, Location: "b"})
	s.standing(c, &orders.Order{Kind: orders.KindAdvanceTo, Target: "c", RemainingPath: []string{"b", "c"}})
	s.run("blue")

	rep, err := Respond(s, s.tune, "C", orders.InterruptBlockedPath, orders.ChoiceAttack)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if !rep.Combat || s.agents["X"] != nil {
		t.Fatalf("expected X destroyed, got %#v", rep)
	}
	if c.Order == nil || c.Location != "b" || !reflect.DeepEqual(c.Order.RemainingPath, []string{"c"}) {
		t.Fatalf("expected C to take b and keep marching, at %s order %#v", c.Location, c.Order)
	}
}

func TestCancelPenaltyFreeOnFirstStep(t *testing.T) {
	s := newStub("a b", "b c")
	c := s.add(&modelpkg.Agent{Name: "C", Strength: 10, Location: "a", Disposition: orders.Cautious, Reputation: 10})
	s.add(&modelpkg.Agent{Name: "X", Side: "red", Strength: 10, Location: "b"})

	issued, err := IssueOrder(s, s.tune, "C", IssueRequest{Kind: orders.KindAdvanceTo, Target: "c"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !issued.IsFirstStep || c.Interrupt == nil || !c.Interrupt.IsFirstStep {
		t.Fatalf("expected a first-step interrupt, got %#v", issued)
	}
	rep, err := CancelOrder(s, s.tune, "C")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if rep.ReputationDelta != 0 || c.Reputation != 10 {
		t.Fatalf("first-step cancel must be free, delta %d", rep.ReputationDelta)
	}
	if c.Order != nil || c.Interrupt != nil {
		t.Fatalf("cancel must clear order and interrupt together")
	}
}

func TestCancelPenaltyAfterFirstStep(t *testing.T) {
	s := newStub("a b", "b c")
	c := s.add(&modelpkg.Agent{Name: "C", Strength: 10, Location: "a", Disposition: orders.Cautious, Reputation: 10})
	s.add(&modelpkg.Agent{Name: "X", Side: "red", Strength: 10, Location: "b"})
	s.standing(c, &orders.Order{Kind: orders.KindAdvanceTo, Target: "c", RemainingPath: []string{"b", "c"}})
	s.run("blue")

	rep, err := Respond(s, s.tune, "C", orders.InterruptBlockedPath, orders.ChoiceCancel)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if rep.ReputationDelta != -s.tune.CancelPenalty || c.Reputation != 10-s.tune.CancelPenalty {
		t.Fatalf("expected cancel penalty, delta %d", rep.ReputationDelta)
	}

	d := s.add(&modelpkg.Agent{Name: "D", Strength: 10, Location: "c", Reputation: 4})
	s.standing(d, &orders.Order{Kind: orders.KindHold, Target: "c"})
	rep, err = CancelOrder(s, s.tune, "D")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if rep.ReputationDelta == 0 || d.Reputation != 4-s.tune.CancelPenalty {
		t.Fatalf("cancelling an active order costs reputation, delta %d", rep.ReputationDelta)
	}
	if _, err := CancelOrder(s, s.tune, "D"); err == nil {
		t.Fatalf("expected error cancelling without an order")
	}
}

func TestRepeatedCombatRaisesInterrupt(t *testing.T) {
	s := newStub("a b")
	p := s.add(&modelpkg.Agent{Name: "P", Strength: 10, Location: "a"})
	s.add(&modelpkg.Agent{Name: "X", Side: "red", Strength: 10, Location: "a"})
	o := s.standing(p, &orders.Order{Kind: orders.KindPursue, Target: "X", TargetKind: orders.TargetAgent})
	o.RecordCombat("X", s.turn-1, combat.ResultStalemate)

	reps := s.run("blue")
	rep := reportFor(t, reps, "P")
	if rep.InterruptKind != orders.InterruptRepeatedCombat || rep.Combat {
		t.Fatalf("expected repeated-combat interrupt without fighting, got %#v", rep)
	}
	if rep.Opponent != "X" {
		t.Fatalf("expected opponent X, got %q", rep.Opponent)
	}
}

func TestHoldStancesByDisposition(t *testing.T) {
	s := newStub("keep field")
	lit := s.add(&modelpkg.Agent{Name: "L", Strength: 20, Location: "keep", Disposition: orders.Literal})
	s.add(&modelpkg.Agent{Name: "X", Side: "red", Strength: 1, Location: "field"})
	s.standing(lit, &orders.Order{Kind: orders.KindHold, Target: "keep"})

	rep := reportFor(t, s.run("blue"), "L")
	if !lit.Holding || lit.DefenseBonus != s.tune.HoldDefenseBonus {
		t.Fatalf("literal hold should set immovable flag and bonus: %#v", lit)
	}
	if rep.Combat || lit.Location != "keep" {
		t.Fatalf("literal never sorties")
	}

	s = newStub("keep field")
	cau := s.add(&modelpkg.Agent{Name: "C", Strength: 20, Location: "keep", Disposition: orders.Cautious})
	s.standing(cau, &orders.Order{Kind: orders.KindHold, Target: "keep"})
	rep = reportFor(t, s.run("blue"), "C")
	if !cau.Fortified || !hasAction(rep, "fortify") {
		t.Fatalf("cautious hold should fortify, got %#v", rep)
	}
	s.turn++
	rep = reportFor(t, s.run("blue"), "C")
	if hasAction(rep, "fortify") {
		t.Fatalf("already fortified, got %#v", rep)
	}
}

func TestAggressiveHoldSortiesAndReturns(t *testing.T) {
	s := newStub("keep field", "keep far")
	g := s.add(&modelpkg.Agent{Name: "G", Strength: 20, Location: "keep", Disposition: orders.Aggressive})
	s.add(&modelpkg.Agent{Name: "X", Side: "red", Strength: 1, Location: "field"})
	s.add(&modelpkg.Agent{Name: "Y", Side: "red", Strength: 50, Location: "far"})
	s.standing(g, &orders.Order{Kind: orders.KindHold, Target: "keep"})

	reps := s.run("blue")
	rep := reportFor(t, reps, "G")
	if !hasAction(rep, "attack:X") || hasAction(rep, "attack:Y") {
		t.Fatalf("expected a sortie against the weak X only, got %#v", rep.Actions)
	}
	if g.Location != "keep" || rep.RegionsMoved != 0 {
		t.Fatalf("sortie must end at the hold region, at %s moved %d", g.Location, rep.RegionsMoved)
	}
	if g.Order == nil || rep.Status != orders.StatusContinues {
		t.Fatalf("hold order continues after a sortie")
	}
	assertNoTrespass(t, s, reps)
}

func TestHoldMarchesFirst(t *testing.T) {
	s := newStub("a b", "b c")
	h := s.add(&modelpkg.Agent{Name: "H", Strength: 10, Location: "a", Disposition: orders.Literal})
	s.standing(h, &orders.Order{Kind: orders.KindHold, Target: "c"})

	rep := reportFor(t, s.run("blue"), "H")
	if h.Location != "b" || h.Holding || rep.Status != orders.StatusContinues {
		t.Fatalf("expected march toward c, at %s", h.Location)
	}
	s.turn++
	s.run("blue")
	if h.Location != "c" || !h.Holding {
		t.Fatalf("expected holding at c, at %s holding=%v", h.Location, h.Holding)
	}
}

func TestSupportReachesAllyAndCompletes(t *testing.T) {
	s := newStub("a b", "b c")
	sup := s.add(&modelpkg.Agent{Name: "S", Strength: 10, Location: "a", Mounted: true})
	s.add(&modelpkg.Agent{Name: "Ally", Strength: 10, Location: "c"})
	s.standing(sup, &orders.Order{Kind: orders.KindSupport, Target: "Ally", TargetKind: orders.TargetAgent})

	rep := reportFor(t, s.run("blue"), "S")
	if sup.Location != "c" {
		t.Fatalf("expected S beside its ally, at %s", sup.Location)
	}
	if rep.Status != orders.StatusCompleted || !strings.Contains(rep.Message, "secure") {
		t.Fatalf("expected ally secure, got %s (%s)", rep.Status, rep.Message)
	}
}

func TestSupportStaysWhileAllyThreatened(t *testing.T) {
	s := newStub("a b", "b c")
	sup := s.add(&modelpkg.Agent{Name: "S", Strength: 10, Location: "b"})
	s.add(&modelpkg.Agent{Name: "Ally", Strength: 10, Location: "b"})
	s.add(&modelpkg.Agent{Name: "X", Side: "red", Strength: 50, Location: "c"})
	s.standing(sup, &orders.Order{Kind: orders.KindSupport, Target: "Ally", TargetKind: orders.TargetAgent})

	rep := reportFor(t, s.run("blue"), "S")
	if rep.Status != orders.StatusContinues || sup.Order == nil {
		t.Fatalf("expected supporting, got %s (%s)", rep.Status, rep.Message)
	}
}

func TestCautiousSupportAsksBeforeFollowing(t *testing.T) {
	s := newStub("a b", "b c", "c d", "d e")
	sup := s.add(&modelpkg.Agent{Name: "S", Strength: 10, Location: "a", Disposition: orders.Cautious})
	ally := s.add(&modelpkg.Agent{Name: "Ally", Strength: 10, Location: "c"})
	s.standing(ally, &orders.Order{Kind: orders.KindAdvanceTo, Target: "e", RemainingPath: []string{"d", "e"}})
	s.standing(sup, &orders.Order{Kind: orders.KindSupport, Target: "Ally", TargetKind: orders.TargetAgent})

	reps := RunOrdersSystem(s, s.tune, SystemInput{})
	if len(reps) == 0 {
		t.Fatalf("expected reports")
	}
	rep := reportFor(t, reps, "S")
	if rep.InterruptKind != orders.InterruptAllyRelocating || rep.Ally != "Ally" {
		t.Fatalf("expected ally-relocating, got %#v", rep)
	}

	_, err := Respond(s, s.tune, "S", orders.InterruptAllyRelocating, orders.ChoiceFollow)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if sup.Location != "b" || !sup.Order.FollowConfirmed {
		t.Fatalf("follow should re-path toward the ally, at %s", sup.Location)
	}
}

func TestConditionCompletesBeforeMovement(t *testing.T) {
	s := newStub("a b", "b c")
	a := s.add(&modelpkg.Agent{Name: "A", Strength: 10, Location: "a"})
	s.standing(a, &orders.Order{
		Kind:          orders.KindAdvanceTo,
		Target:        "c",
		RemainingPath: []string{"b", "c"},
		StartedTurn:   1,
		IssuedTurn:    1,
		Condition:     &orders.Condition{MaxTurns: 1},
	})

	rep := reportFor(t, s.run("blue"), "A")
	if rep.Status != orders.StatusCompleted || a.Location != "a" {
		t.Fatalf("expected completion in place, got %s at %s", rep.Status, a.Location)
	}
}

func TestIssueOrderValidation(t *testing.T) {
	s := newStub("a b", "c d")
	s.add(&modelpkg.Agent{Name: "A", Strength: 10, Location: "a"})
	s.add(&modelpkg.Agent{Name: "F", Strength: 10, Location: "b"})
	s.add(&modelpkg.Agent{Name: "X", Side: "red", Strength: 10, Location: "b"})

	cases := []IssueRequest{
		{Kind: "MARCH", Target: "b"},
		{Kind: orders.KindAdvanceTo, Target: "nowhere", TargetKind: orders.TargetRegion},
		{Kind: orders.KindAdvanceTo, Target: "X"},
		{Kind: orders.KindPursue, Target: "F"},
		{Kind: orders.KindSupport, Target: "X"},
		{Kind: orders.KindAdvanceTo},
		{Kind: orders.KindHold, Target: "a", Condition: &orders.Condition{Expr: "strength >"}},
	}
	for _, req := range cases {
		if _, err := IssueOrder(s, s.tune, "A", req); err == nil {
			t.Fatalf("expected rejection for %#v", req)
		}
	}
	if _, err := IssueOrder(s, s.tune, "Nobody", IssueRequest{Kind: orders.KindHold}); err == nil {
		t.Fatalf("expected unknown agent")
	}
}

func TestIssueOrderResolvesTargets(t *testing.T) {
	s := newStub("a b", "b c", "c d", "x y")
	a := s.add(&modelpkg.Agent{Name: "A", Strength: 10, Location: "a"})
	s.add(&modelpkg.Agent{Name: "F", Strength: 10, Location: "c"})
	s.add(&modelpkg.Agent{Name: "X", Side: "red", Strength: 10, Location: "d"})

	if _, err := IssueOrder(s, s.tune, "A", IssueRequest{Kind: orders.KindHold}); err != nil {
		t.Fatalf("hold: %v", err)
	}
	if a.Order.Target != "a" || a.Order.TargetKind != orders.TargetRegion {
		t.Fatalf("generic hold should hold in place, got %#v", a.Order)
	}

	if _, err := IssueOrder(s, s.tune, "A", IssueRequest{Kind: orders.KindAdvanceTo, Target: "F"}); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if a.Order.SnapshotLocation != "c" || a.Order.TargetKind != orders.TargetAgent {
		t.Fatalf("expected snapshot of F's region, got %#v", a.Order)
	}
	s.agents["F"].Location = "d"
	if a.Order.Destination() != "c" {
		t.Fatalf("advance must not track a moving friend")
	}

	if _, err := IssueOrder(s, s.tune, "A", IssueRequest{Kind: orders.KindPursue}); err != nil {
		t.Fatalf("pursue: %v", err)
	}
	if a.Order.Target != "X" {
		t.Fatalf("generic pursue should pick the nearest hostile, got %q", a.Order.Target)
	}

	rep, err := IssueOrder(s, s.tune, "A", IssueRequest{Kind: orders.KindAdvanceTo, Target: "y"})
	if err != nil {
		t.Fatalf("unreachable targets are reported, not rejected: %v", err)
	}
	if rep.Status != orders.StatusBreaks || a.Order != nil {
		t.Fatalf("expected broken order, got %#v", rep)
	}
}

func TestFreshInterruptStopsThePass(t *testing.T) {
	s := newStub("a b", "b c", "d e")
	alpha := s.add(&modelpkg.Agent{Name: "Alpha", Strength: 10, Location: "a", Disposition: orders.Cautious})
	bravo := s.add(&modelpkg.Agent{Name: "Bravo", Strength: 10, Location: "d"})
	s.add(&modelpkg.Agent{Name: "X", Side: "red", Strength: 10, Location: "b"})
	s.standing(bravo, &orders.Order{Kind: orders.KindAdvanceTo, Target: "e", RemainingPath: []string{"e"}})

	if _, err := IssueOrder(s, s.tune, "Alpha", IssueRequest{Kind: orders.KindAdvanceTo, Target: "c"}); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if alpha.Interrupt == nil {
		t.Fatalf("expected a blocked-path interrupt on issue")
	}

	reps := s.run("blue")
	if len(reps) != 1 || reps[0].Agent != "Alpha" || !reps[0].RequiresInput {
		t.Fatalf("pass should stop at Alpha's decision, got %#v", reps)
	}
	if bravo.Location != "d" || bravo.Order.LastAdvancedTurn == s.turn {
		t.Fatalf("Bravo must wait for the next pass, at %s", bravo.Location)
	}
}

func TestIssuedOrderReportsStatusOncePerTurn(t *testing.T) {
	s := newStub("a b")
	s.add(&modelpkg.Agent{Name: "A", Strength: 10, Location: "a"})
	if _, err := IssueOrder(s, s.tune, "A", IssueRequest{Kind: orders.KindAdvanceTo, Target: "b"}); err != nil {
		t.Fatalf("issue: %v", err)
	}

	first := s.run("blue")
	if rep := reportFor(t, first, "A"); rep.RequiresInput || rep.Status != orders.StatusContinues {
		t.Fatalf("unexpected status report: %#v", rep)
	}
	if again := s.run("blue"); len(again) != 0 {
		t.Fatalf("second pass repeated the status report: %#v", again)
	}
}
