package probe

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"launchscope/internal/model"
)

// DiscoverMechanics probes a token contract for fee and mechanism
// parameters using the configured candidate getters. Population order
// is fixed: direct getters, then tuple getters, then mapping getters; a
// populated key is never overwritten.
func (p *Probe) DiscoverMechanics(ctx context.Context, token common.Address) *model.Mechanism {
	snapshot := model.NewMechanism()

	for _, candidate := range p.cfg.MechanismNumericGetters {
		for _, fn := range candidate.Getters {
			if v, ok := p.callUint(ctx, token, fn); ok {
				snapshot.FillNumber(candidate.Key, v)
				break
			}
		}
	}

	for _, candidate := range p.cfg.MechanismFlagGetters {
		for _, fn := range candidate.Getters {
			if v, ok := p.callBool(ctx, token, fn); ok {
				snapshot.FillFlag(candidate.Key, v)
				break
			}
		}
	}

	for _, tuple := range p.cfg.MechanismTupleGetters {
		missing := false
		for _, key := range tuple.Keys {
			if !snapshot.HasNumber(key) {
				missing = true
				break
			}
		}
		if !missing {
			continue
		}
		values, ok := p.callUintTuple(ctx, token, tuple.Name, len(tuple.Keys))
		if !ok {
			continue
		}
		for i, key := range tuple.Keys {
			snapshot.FillNumber(key, values[i])
		}
	}

	for _, candidate := range p.cfg.MechanismNumericGetters {
		if snapshot.HasNumber(candidate.Key) {
			continue
		}
		for _, fn := range p.cfg.MechanismMapGetters {
			if v, ok := p.callUintKeyed(ctx, token, fn, candidate.Key); ok {
				snapshot.FillNumber(candidate.Key, v)
				break
			}
		}
		if snapshot.HasNumber(candidate.Key) {
			continue
		}
		for _, fn := range p.cfg.MechanismMapGettersBytes32 {
			if v, ok := p.callUintBytes32Keyed(ctx, token, fn, candidate.Key); ok {
				snapshot.FillNumber(candidate.Key, v)
				break
			}
		}
	}

	for _, fn := range p.cfg.DenominatorGetters {
		if v, ok := p.callUint(ctx, token, fn); ok && v.Sign() > 0 {
			snapshot.Denominator = v
			break
		}
	}

	return snapshot
}

// PreferredDenominators exposes the configured per-key table for
// percentage resolution downstream.
func (p *Probe) PreferredDenominators() map[string]int64 {
	return p.cfg.PreferredDenominators
}
