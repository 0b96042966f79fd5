package engine

// resolveItem applies def from caster to target. Self-targeted kinds ignore
// target. The returned outcome only carries the effect fields; the caller
// fills in identifiers and the message.
func (n Navigator) resolveItem(caster, target *PlayerState, def ItemDefinition) ItemEffectOutcome {
	switch def.Kind {
	case EffectRocket:
		return n.applyRocket(caster, def.Amount)
	case EffectAnchor:
		return n.applyAnchor(target, def.Amount)
	case EffectSwap:
		return n.applySwap(caster, target)
	case EffectFreeze:
		return n.applyFreeze(target, def.Amount)
	case EffectShield:
		return n.applyShield(caster, def.Amount)
	}
	return ItemEffectOutcome{Token: TokenNoEffect}
}

// applyRocket stores a delayed bonus for the caster's next roll. Bonuses
// stack until that roll clears them.
func (n Navigator) applyRocket(caster *PlayerState, amount int) ItemEffectOutcome {
	caster.PendingBonus += amount
	return ItemEffectOutcome{
		EffectKind:  EffectRocket,
		FromCell:    caster.Position,
		ToCell:      caster.Position,
		BonusStored: caster.PendingBonus,
		Consumed:    true,
		Token:       TokenNone,
	}
}

func (n Navigator) applyAnchor(target *PlayerState, amount int) ItemEffectOutcome {
	out := ItemEffectOutcome{EffectKind: EffectAnchor, FromCell: target.Position, ToCell: target.Position}

	// Nothing to pull back, keep the item
	if target.Position <= StartCell {
		out.Token = TokenNoEffect
		return out
	}
	if n.absorb(target, EffectAnchor) {
		return blocked(out)
	}

	target.Position -= amount
	if target.Position < StartCell {
		target.Position = StartCell
	}
	out.ToCell = target.Position
	out.Consumed = true
	out.Token = TokenNone
	return out
}

func (n Navigator) applySwap(caster, target *PlayerState) ItemEffectOutcome {
	out := ItemEffectOutcome{EffectKind: EffectSwap, FromCell: caster.Position, ToCell: caster.Position}
	if n.absorb(target, EffectSwap) {
		return blocked(out)
	}

	caster.Position, target.Position = target.Position, caster.Position
	out.ToCell = caster.Position
	out.Consumed = true
	out.Token = TokenNone
	return out
}

func (n Navigator) applyFreeze(target *PlayerState, turns int) ItemEffectOutcome {
	out := ItemEffectOutcome{EffectKind: EffectFreeze, FromCell: target.Position, ToCell: target.Position}
	if n.absorb(target, EffectFreeze) {
		return blocked(out)
	}

	target.FrozenTurns = turns
	out.TargetFrozen = true
	out.Consumed = true
	out.Token = TokenNone
	return out
}

func (n Navigator) applyShield(caster *PlayerState, turns int) ItemEffectOutcome {
	caster.ShieldActive = true
	caster.ShieldTurns = turns
	return ItemEffectOutcome{
		EffectKind:      EffectShield,
		FromCell:        caster.Position,
		ToCell:          caster.Position,
		ShieldActivated: true,
		Consumed:        true,
		Token:           TokenNone,
	}
}

func blocked(out ItemEffectOutcome) ItemEffectOutcome {
	out.WasBlockedByShield = true
	out.Consumed = false
	out.Token = TokenBlockedByShield
	return out
}
