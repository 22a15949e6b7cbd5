package aging

import "fmt"

// Status is the lifecycle state of a receivable. The zero value is invalid so
// an unclassified receivable can never pass as current.
type Status uint8

const (
	StatusCurrent Status = iota + 1
	StatusOverdue7
	StatusOverdue15
	StatusOverdue30
	StatusOverdue60
	StatusAtRisk
	StatusPaid
	StatusDisputed
	StatusWrittenOff
)

var statusNames = map[Status]string{
	StatusCurrent:    "current",
	StatusOverdue7:   "overdue_7",
	StatusOverdue15:  "overdue_15",
	StatusOverdue30:  "overdue_30",
	StatusOverdue60:  "overdue_60",
	StatusAtRisk:     "at_risk",
	StatusPaid:       "paid",
	StatusDisputed:   "disputed",
	StatusWrittenOff: "written_off",
}

// ActiveStatuses lists the non-terminal statuses in ascending risk order.
func ActiveStatuses() []Status {
	return []Status{StatusCurrent, StatusOverdue7, StatusOverdue15, StatusOverdue30, StatusOverdue60, StatusAtRisk}
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// Valid reports whether s is one of the declared statuses.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// IsTerminal reports whether the receivable left active aging.
func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusDisputed || s == StatusWrittenOff
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("aging: invalid status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus resolves a status name.
func ParseStatus(name string) (Status, error) {
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("aging: unknown status %q", name)
}

// TerminalFlag is the persisted state of a receivable. Only explicit
// collection actions move it away from FlagOpen.
type TerminalFlag uint8

const (
	FlagOpen TerminalFlag = iota
	FlagPaid
	FlagDisputed
	FlagWrittenOff
)

var flagNames = map[TerminalFlag]string{
	FlagOpen:       "open",
	FlagPaid:       "paid",
	FlagDisputed:   "disputed",
	FlagWrittenOff: "written_off",
}

func (f TerminalFlag) String() string {
	if name, ok := flagNames[f]; ok {
		return name
	}
	return fmt.Sprintf("flag(%d)", uint8(f))
}

// ParseTerminalFlag resolves the stored column value.
func ParseTerminalFlag(name string) (TerminalFlag, error) {
	for f, n := range flagNames {
		if n == name {
			return f, nil
		}
	}
	return FlagOpen, fmt.Errorf("aging: unknown terminal flag %q", name)
}

// Status maps the flag to its terminal status; ok is false for FlagOpen.
func (f TerminalFlag) Status() (Status, bool) {
	switch f {
	case FlagPaid:
		return StatusPaid, true
	case FlagDisputed:
		return StatusDisputed, true
	case FlagWrittenOff:
		return StatusWrittenOff, true
	default:
		return 0, false
	}
}
