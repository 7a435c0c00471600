package workflow

import (
	"github.com/ternarybob/ordino/internal/models"
)

// resolution is the outcome of phase 1: the role a trigger targets plus the
// status-label side effect, computed without any I/O.
type resolution struct {
	target      models.Role
	statusLabel *string // set by cancel; nil otherwise
}

// resolveTransition maps (current role, trigger) onto a target role. hasReview
// decides whether start-from-work lands on review or jumps to terminal.
func resolveTransition(current models.Role, previous *models.Role, trigger models.Trigger, hasReview bool) (resolution, error) {
	if !trigger.Valid() {
		return resolution{}, models.ValidationErr("unknown trigger %q (valid: %v)", trigger, models.ValidTriggers())
	}

	// hold is an alias of block
	if trigger == models.TriggerHold {
		trigger = models.TriggerBlock
	}

	switch trigger {
	case models.TriggerStart:
		switch current {
		case models.RoleQueue:
			return resolution{target: models.RoleWork}, nil
		case models.RoleWork:
			if hasReview {
				return resolution{target: models.RoleReview}, nil
			}
			return resolution{target: models.RoleTerminal}, nil
		case models.RoleReview:
			return resolution{target: models.RoleTerminal}, nil
		case models.RoleTerminal:
			return resolution{}, models.ValidationErr("item is already terminal")
		case models.RoleBlocked:
			return resolution{}, models.ValidationErr("item is blocked, resume it first")
		}

	case models.TriggerComplete:
		switch current {
		case models.RoleTerminal:
			return resolution{}, models.ValidationErr("item is already terminal")
		case models.RoleBlocked:
			return resolution{}, models.ValidationErr("item is blocked, resume it first")
		default:
			return resolution{target: models.RoleTerminal}, nil
		}

	case models.TriggerBlock:
		switch current {
		case models.RoleBlocked:
			return resolution{}, models.ValidationErr("item is already blocked")
		case models.RoleTerminal:
			return resolution{}, models.ValidationErr("cannot block a terminal item")
		default:
			return resolution{target: models.RoleBlocked}, nil
		}

	case models.TriggerResume:
		if current != models.RoleBlocked {
			return resolution{}, models.ValidationErr("cannot resume an item that is not blocked")
		}
		if previous == nil {
			return resolution{}, models.ValidationErr("blocked item has no previous role to resume into")
		}
		return resolution{target: *previous}, nil

	case models.TriggerCancel:
		if current == models.RoleTerminal {
			return resolution{}, models.ValidationErr("item is already terminal")
		}
		label := "cancelled"
		return resolution{target: models.RoleTerminal, statusLabel: &label}, nil
	}

	return resolution{}, models.ValidationErr("unknown trigger %q (valid: %v)", trigger, models.ValidTriggers())
}

// forwardTransition reports whether moving current -> target progresses the
// item along the queue -> work -> review -> terminal ordering. Blocked sits at
// ordinal -1, so resume counts as forward and re-validates gates.
func forwardTransition(current, target models.Role) bool {
	return target != models.RoleBlocked && target.Ordinal() > current.Ordinal()
}
