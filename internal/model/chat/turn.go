package chat

// Role identifies who authored a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of the transcript. Turns are values and are never
// modified after they are appended to a History.
type Turn struct {
	Role    Role   `json:"role"`
	Message string `json:"message"`
}

// UserTurn builds a turn authored by the user.
func UserTurn(message string) Turn {
	return Turn{Role: RoleUser, Message: message}
}

// AssistantTurn builds a turn authored by the assistant.
func AssistantTurn(message string) Turn {
	return Turn{Role: RoleAssistant, Message: message}
}

// History is the ordered transcript of a session. The zero value is an empty
// history. Append never mutates the receiver, so a History handed to a
// renderer stays stable while the processor builds the next one.
type History struct {
	turns []Turn
}

// NewHistory copies turns into a fresh History.
func NewHistory(turns ...Turn) History {
	if len(turns) == 0 {
		return History{}
	}
	return History{turns: append([]Turn(nil), turns...)}
}

// Append returns a history with turns added at the end.
func (h History) Append(turns ...Turn) History {
	if len(turns) == 0 {
		return h
	}
	next := make([]Turn, len(h.turns), len(h.turns)+len(turns))
	copy(next, h.turns)
	return History{turns: append(next, turns...)}
}

// Len reports the number of turns.
func (h History) Len() int {
	return len(h.turns)
}

// At returns the i-th turn.
func (h History) At(i int) Turn {
	return h.turns[i]
}

// Last returns the most recent turn, if any.
func (h History) Last() (Turn, bool) {
	if len(h.turns) == 0 {
		return Turn{}, false
	}
	return h.turns[len(h.turns)-1], true
}

// Turns returns a copy of the transcript in display order.
func (h History) Turns() []Turn {
	return append([]Turn(nil), h.turns...)
}

// Since returns the turns appended after the first n.
func (h History) Since(n int) []Turn {
	if n < 0 {
		n = 0
	}
	if n >= len(h.turns) {
		return nil
	}
	return append([]Turn(nil), h.turns[n:]...)
}

// HasPrefix reports whether prev is an unchanged prefix of h. Stores use it to
// reject writes that would rewrite or drop earlier turns.
func (h History) HasPrefix(prev History) bool {
	if prev.Len() > h.Len() {
		return false
	}
	for i, t := range prev.turns {
		if h.turns[i] != t {
			return false
		}
	}
	return true
}
