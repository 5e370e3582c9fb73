package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// Status is the moderation state of a project.
type Status string

const (
	// StatusDraft is editable by its author and may be deleted.
	StatusDraft Status = "draft"
	// StatusOnModeration waits for a moderator decision.
	StatusOnModeration Status = "onModeration"
	// StatusAccepted is terminal; the project collects contributions.
	StatusAccepted Status = "accepted"
	// StatusRejected is terminal.
	StatusRejected Status = "rejected"
)

var (
	// ErrInvalidStatus is returned when a status value is not one of the four variants.
	ErrInvalidStatus = errors.New("invalid project status")
	// ErrInvalidTransition is returned when an action is not allowed from the current status.
	ErrInvalidTransition = errors.New("transition not allowed")
)

// ParseStatus converts a wire value into a Status. Both "onModeration" and
// "on_moderation" are accepted.
func ParseStatus(s string) (Status, error) {
	switch s {
	case string(StatusDraft):
		return StatusDraft, nil
	case string(StatusOnModeration), "on_moderation":
		return StatusOnModeration, nil
	case string(StatusAccepted):
		return StatusAccepted, nil
	case string(StatusRejected):
		return StatusRejected, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Valid reports whether s is one of the four defined variants.
func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// UnmarshalJSON rejects unknown statuses so no fifth value can enter the model.
func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Scan implements sql.Scanner; stored values go through ParseStatus.
func (s *Status) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("scan status: unsupported type %T", src)
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value implements driver.Valuer.
func (s Status) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, string(s))
	}
	return string(s), nil
}

// Action is a lifecycle operation on a project.
type Action string

const (
	ActionSubmit        Action = "submit"
	ActionAccept        Action = "accept"
	ActionReject        Action = "reject"
	ActionReturnToDraft Action = "to_draft"
	ActionDelete        Action = "delete"
)

// transitions maps a source status to the actions allowed from it and their
// target. Deletion has an empty target: the project ceases to exist.
var transitions = map[Status]map[Action]Status{
	StatusDraft: {
		ActionSubmit: StatusOnModeration,
		ActionDelete: "",
	},
	StatusOnModeration: {
		ActionAccept:        StatusAccepted,
		ActionReject:        StatusRejected,
		ActionReturnToDraft: StatusDraft,
	},
}

// Apply returns the status reached by performing a from s.
func (s Status) Apply(a Action) (Status, error) {
	next, ok := transitions[s][a]
	if !ok {
		return s, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, a, s)
	}
	return next, nil
}

// Can reports whether a is allowed from s.
func (s Status) Can(a Action) bool {
	_, ok := transitions[s][a]
	return ok
}

// Terminal reports whether no action leads out of s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// IsModeration reports whether a is a moderator decision.
func (a Action) IsModeration() bool {
	return a == ActionAccept || a == ActionReject || a == ActionReturnToDraft
}

// RequiresComment reports whether a must carry a non-empty moderator comment.
func (a Action) RequiresComment() bool {
	return a == ActionReturnToDraft
}
