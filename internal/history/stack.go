package history

import (
	"github.com/charmbracelet/log"

	"github.com/Benny93/conceptmap-go/internal/logging"
)

// Stack is a linear undo/redo history.
//
// Entries below index have been applied; entries at or above index were
// undone and can be redone. Pushing discards the redo entries.
type Stack struct {
	cmds  []Command
	index int

	// clean is the index that matches the saved state, or -1 when that
	// state is no longer reachable.
	clean int
	limit int

	logger   *log.Logger
	onChange func()
}

// Option configures a Stack.
type Option func(*Stack)

// WithLimit caps the number of entries. The oldest entries are dropped once
// the cap is exceeded. Zero means unlimited.
func WithLimit(n int) Option {
	return func(s *Stack) { s.limit = n }
}

// WithLogger sets the logger used for debug and warning output.
func WithLogger(l *log.Logger) Option {
	return func(s *Stack) { s.logger = l }
}

// NewStack creates an empty, clean history.
func NewStack(opts ...Option) *Stack {
	s := &Stack{logger: logging.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers fn to run after every push, undo, redo, clear and
// clean-state change.
func (s *Stack) OnChange(fn func()) { s.onChange = fn }

// Push applies cmd by calling its Redo and records it. A command whose Redo
// fails is not recorded and the stack is left as it was; Push then returns
// false.
//
// When the top entry implements Merger and accepts cmd, the two collapse
// into a single entry. The entry marking the clean state is never merged
// into, so saving splits an ongoing drag into separate undo steps.
func (s *Stack) Push(cmd Command) bool {
	if !cmd.Redo() {
		s.logger.Warn("command rejected", "command", cmd.Text())
		return false
	}

	if s.index < len(s.cmds) {
		if s.clean > s.index {
			s.clean = -1
		}
		s.cmds = s.cmds[:s.index]
	}

	if s.index > 0 && s.clean != s.index {
		if m, ok := s.cmds[s.index-1].(Merger); ok && m.MergeWith(cmd) {
			s.logger.Debug("merged command", "command", cmd.Text())
			s.changed()
			return true
		}
	}

	s.cmds = append(s.cmds, cmd)
	s.index++
	s.logger.Debug("pushed command", "command", cmd.Text(), "depth", s.index)

	if s.limit > 0 && len(s.cmds) > s.limit {
		drop := len(s.cmds) - s.limit
		s.cmds = append([]Command(nil), s.cmds[drop:]...)
		s.index -= drop
		if s.clean >= 0 {
			s.clean -= drop
			if s.clean < 0 {
				s.clean = -1
			}
		}
	}
	s.changed()
	return true
}

// Undo reverts the most recent applied command.
// Returns false if there is nothing to undo.
func (s *Stack) Undo() bool {
	if !s.CanUndo() {
		return false
	}
	s.index--
	cmd := s.cmds[s.index]
	if !cmd.Undo() {
		s.logger.Warn("undo had no effect", "command", cmd.Text())
	}
	s.logger.Debug("undo", "command", cmd.Text())
	s.changed()
	return true
}

// Redo re-applies the most recently undone command.
// Returns false if there is nothing to redo.
func (s *Stack) Redo() bool {
	if !s.CanRedo() {
		return false
	}
	cmd := s.cmds[s.index]
	if !cmd.Redo() {
		s.logger.Warn("redo had no effect", "command", cmd.Text())
	}
	s.index++
	s.logger.Debug("redo", "command", cmd.Text())
	s.changed()
	return true
}

// CanUndo reports whether an applied command exists.
func (s *Stack) CanUndo() bool { return s.index > 0 }

// CanRedo reports whether an undone command exists.
func (s *Stack) CanRedo() bool { return s.index < len(s.cmds) }

// UndoText describes the command Undo would revert.
func (s *Stack) UndoText() string {
	if !s.CanUndo() {
		return ""
	}
	return s.cmds[s.index-1].Text()
}

// RedoText describes the command Redo would re-apply.
func (s *Stack) RedoText() string {
	if !s.CanRedo() {
		return ""
	}
	return s.cmds[s.index].Text()
}

// Count returns the number of recorded entries, applied or undone.
func (s *Stack) Count() int { return len(s.cmds) }

// Index returns the number of applied entries.
func (s *Stack) Index() int { return s.index }

// Command returns the entry at position i.
func (s *Stack) Command(i int) Command { return s.cmds[i] }

// Clear drops the whole history and marks the current state clean.
func (s *Stack) Clear() {
	s.cmds = nil
	s.index = 0
	s.clean = 0
	s.changed()
}

// SetClean marks the current state as saved.
func (s *Stack) SetClean() {
	s.clean = s.index
	s.changed()
}

// IsClean reports whether the current state matches the last saved one.
func (s *Stack) IsClean() bool { return s.clean == s.index }

func (s *Stack) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}
