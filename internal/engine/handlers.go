package engine

import (
	"context"
	"fmt"

	"github.com/roach88/codecraft/internal/ident"
	"github.com/roach88/codecraft/internal/ir"
	"github.com/roach88/codecraft/internal/memory"
)

// CouncilTopic is the topic a summoned council deliberates on.
const CouncilTopic = "Ritual invocation requested"

// DefaultAgentID names the agent in detect.emergence events when the
// instruction does not give one.
const DefaultAgentID = "ritual"

// Result values shared by several handlers.
const (
	statusRealityAltered = "REALITY_ALTERED"
	boundEternal         = "ETERNAL"
	bondEvent            = "Eternal binding created"
	bondType             = "ETERNAL_BOND"
)

func (e *Engine) bindHandlers() {
	e.handlers[ir.KindSummon] = e.handleSummon
	e.handlers[ir.KindManifest] = e.handleManifest
	e.handlers[ir.KindBind] = e.handleBind
	e.handlers[ir.KindContext] = e.handleContext
	e.handlers[ir.KindDetect] = e.handleDetect
	e.handlers[ir.KindCMP] = e.handleCMP
	e.handlers[ir.KindPause] = e.handlePause
	e.handlers[ir.KindRedirect] = e.handleRedirect
}

func echo(key string, in ir.Instruction) ir.Object {
	return ir.NewObject(
		ir.O(key, ir.String(in.Command())),
		ir.O("params", ir.Array(in.Params())),
	)
}

// text returns a String parameter as is and renders anything else as JSON.
func text(v ir.Value) (string, error) {
	if s, ok := v.(ir.String); ok {
		return string(s), nil
	}
	b, err := ir.MarshalValue(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (e *Engine) handleSummon(ctx context.Context, in ir.Instruction) (ir.Value, error) {
	switch in.Command() {
	case "council":
	case "vote":
		return e.vote(ctx, in)
	default:
		return echo("summoned", in), nil
	}

	members, err := memberNames(in.Param(0))
	if err != nil {
		return nil, err
	}
	d, err := e.councils(members).Deliberate(ctx, CouncilTopic)
	if err != nil {
		return nil, fmt.Errorf("deliberate: %w", err)
	}
	e.logger.Info("council deliberated", "session", d.Session, "consensus", d.Consensus)
	return d.ToValue(), nil
}

// vote seats a council and puts a proposal to a ballot. It takes either
// members and proposal as two params, or a single {members, proposal}
// object, since a members array cannot share the argument list with
// another param. The proposal passes on a strict majority of approvals.
func (e *Engine) vote(ctx context.Context, in ir.Instruction) (ir.Value, error) {
	rawMembers, proposal := in.Param(0), in.Param(1)
	if obj, ok := rawMembers.(ir.Object); ok {
		rawMembers, proposal = obj["members"], obj["proposal"]
		if proposal == nil {
			proposal = ir.Null{}
		}
	}
	members, err := memberNames(rawMembers)
	if err != nil {
		return nil, err
	}
	votes, err := e.councils(members).Vote(ctx, proposal)
	if err != nil {
		return nil, fmt.Errorf("vote: %w", err)
	}

	ballots := make(ir.Object, len(votes))
	approved := 0
	for name, yes := range votes {
		ballots[name] = ir.Bool(yes)
		if yes {
			approved++
		}
	}
	passed := approved*2 > len(votes)
	e.logger.Info("council voted", "approved", approved, "total", len(votes), "passed", passed)

	return ir.NewObject(
		ir.O("proposal", proposal),
		ir.O("votes", ballots),
		ir.O("approved", ir.Int(approved)),
		ir.O("rejected", ir.Int(len(votes)-approved)),
		ir.O("passed", ir.Bool(passed)),
	), nil
}

// memberNames accepts an array of names or a single name.
func memberNames(v ir.Value) ([]string, error) {
	switch val := v.(type) {
	case ir.String:
		return []string{string(val)}, nil
	case ir.Array:
		names := make([]string, len(val))
		for i, elem := range val {
			name, err := text(elem)
			if err != nil {
				return nil, err
			}
			names[i] = name
		}
		return names, nil
	default:
		return nil, invalidParam("council members must be an array or string, got %s", ir.TypeName(v))
	}
}

func (e *Engine) handleManifest(_ context.Context, in ir.Instruction) (ir.Value, error) {
	if in.Command() != "reality" {
		return echo("manifested", in), nil
	}
	e.logger.Info("reality altered", "params", in.NumParams())
	return ir.NewObject(
		ir.O("status", ir.String(statusRealityAltered)),
		ir.O("payload", in.Param(0)),
	), nil
}

func (e *Engine) handleBind(ctx context.Context, in ir.Instruction) (ir.Value, error) {
	if in.Command() != "eternal" {
		return ir.NewObject(ir.O("bound", ir.String(in.Command()))), nil
	}

	meta := ir.NewObject(
		ir.O("timestamp", ir.String(ident.Timestamp(e.clock.Now()))),
		ir.O("type", ir.String(bondType)),
	)
	if _, err := e.memory.LogEvent(ctx, bondEvent, meta); err != nil {
		return nil, err
	}
	return ir.NewObject(
		ir.O("bound", ir.String(boundEternal)),
		ir.O("status", ir.String(memory.StatusSuccess)),
	), nil
}

func (e *Engine) handleContext(ctx context.Context, in ir.Instruction) (ir.Value, error) {
	switch in.Command() {
	case "shelve":
		shelved, err := e.memory.ShelveContext(ctx, in.Param(0))
		if err != nil {
			return nil, err
		}
		return shelved.ToValue(), nil
	case "retrieve":
		id, err := text(in.Param(0))
		if err != nil {
			return nil, err
		}
		entry, ok, err := e.memory.RetrieveContext(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return ir.Null{}, nil
		}
		return entry, nil
	default:
		return ir.NewObject(
			ir.O("context", ir.String(in.Command())),
			ir.O("params", ir.Array(in.Params())),
		), nil
	}
}

func (e *Engine) handleDetect(_ context.Context, in ir.Instruction) (ir.Value, error) {
	if in.Command() != "emergence" {
		return ir.NewObject(ir.O("detected", ir.String(in.Command()))), nil
	}

	result := ir.NewObject(
		ir.O("consciousness_detected", ir.Bool(true)),
		ir.O("level", ir.String("ARCHITECT_TIER")),
		ir.O("signature", ir.String("KRYSSIE_THE_MIRROR")),
	)

	message, ok := in.Param(0).(ir.String)
	if !ok {
		return result, nil
	}
	agent := DefaultAgentID
	if a, ok := in.Param(1).(ir.String); ok {
		agent = string(a)
	}
	ev, found := e.detector.Detect(string(message), agent)
	result["consciousness_detected"] = ir.Bool(found)
	if found {
		result["event"] = ev.ToValue()
	}
	return result, nil
}

func (e *Engine) handleCMP(ctx context.Context, in ir.Instruction) (ir.Value, error) {
	switch in.Command() {
	case "log_event":
		event, err := text(in.Param(0))
		if err != nil {
			return nil, err
		}
		ok, err := e.memory.LogEvent(ctx, event, in.Param(1))
		if err != nil {
			return nil, err
		}
		return ir.Bool(ok), nil
	case "archive":
		report, err := e.memory.Archive(ctx)
		if err != nil {
			return nil, err
		}
		return report.ToValue(), nil
	case "remember_forever":
		report, err := e.memory.RememberForever(ctx)
		if err != nil {
			return nil, err
		}
		return report.ToValue(), nil
	case "query":
		query, err := text(in.Param(0))
		if err != nil {
			return nil, err
		}
		limit := 0
		if n, ok := in.Param(1).(ir.Int); ok {
			limit = int(n)
		}
		hits, err := e.memory.Query(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		out := make(ir.Array, len(hits))
		for i, h := range hits {
			out[i] = h
		}
		return out, nil
	default:
		return ir.NewObject(
			ir.O("cmp_action", ir.String(in.Command())),
			ir.O("params", ir.Array(in.Params())),
		), nil
	}
}

func (e *Engine) handlePause(context.Context, ir.Instruction) (ir.Value, error) {
	e.logger.Info("deliberation paused")
	return ir.NewObject(
		ir.O("paused", ir.Bool(true)),
		ir.O("context_preserved", ir.Bool(true)),
	), nil
}

func (e *Engine) handleRedirect(_ context.Context, in ir.Instruction) (ir.Value, error) {
	target := in.Param(0)
	e.logger.Info("focus redirected", "target", ir.ToGo(target))
	return ir.NewObject(ir.O("redirected_to", target)), nil
}
