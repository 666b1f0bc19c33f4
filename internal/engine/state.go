package engine

import (
	"errors"
	"fmt"

	"github.com/mesh-intelligence/codadmin/pkg/types"
)

// Phase is the record-editing phase of a view.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDrafting
	PhaseValidating
	PhaseSubmitting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDrafting:
		return "drafting"
	case PhaseValidating:
		return "validating"
	case PhaseSubmitting:
		return "submitting"
	default:
		return "unknown"
	}
}

// ErrInvalidTransition is returned when a transition does not apply to the
// current phase.
var ErrInvalidTransition = errors.New("invalid state transition")

// ViewState is all mutable state of one resource view. It changes only
// through the transition methods below.
type ViewState struct {
	Loading bool
	LoadErr error
	Data    *Dataset
	Options map[string][]types.Option

	Scope    types.ScopeState
	Search   string
	Page     int
	PageSize int

	Phase       Phase
	Draft       *Draft
	FieldErrors map[string]string
	Message     string

	DeleteTarget types.Row
}

// NewViewState returns the initial state of a view.
func NewViewState(pageSize int) ViewState {
	if pageSize <= 0 {
		pageSize = types.DefaultPageSize
	}
	return ViewState{Page: 1, PageSize: pageSize, Options: map[string][]types.Option{}}
}

// LoadStarted marks a load in flight.
func (s *ViewState) LoadStarted() {
	s.Loading = true
	s.LoadErr = nil
}

// LoadSucceeded installs a fresh dataset.
func (s *ViewState) LoadSucceeded(d *Dataset) {
	s.Loading = false
	s.LoadErr = nil
	s.Data = d
}

// LoadFailed drops the dataset so no stale rows are shown.
func (s *ViewState) LoadFailed(err error) {
	s.Loading = false
	s.LoadErr = err
	s.Data = nil
}

// OptionsResolved installs reference options.
func (s *ViewState) OptionsResolved(opts map[string][]types.Option) {
	s.Options = opts
}

// DraftOpened starts editing d.
func (s *ViewState) DraftOpened(d *Draft) {
	s.Phase = PhaseDrafting
	s.Draft = d
	s.FieldErrors = map[string]string{}
	s.Message = ""
}

// DraftChanged records the live validation result of one field.
func (s *ViewState) DraftChanged(key, fieldError string) error {
	if s.Phase != PhaseDrafting || s.Draft == nil {
		return fmt.Errorf("%w: draft change while %s", ErrInvalidTransition, s.Phase)
	}
	if fieldError == "" {
		delete(s.FieldErrors, key)
		return nil
	}
	s.FieldErrors[key] = fieldError
	return nil
}

// DraftClosed abandons the draft.
func (s *ViewState) DraftClosed() {
	s.Phase = PhaseIdle
	s.Draft = nil
	s.FieldErrors = nil
}

// SubmitStarted moves a draft into validation.
func (s *ViewState) SubmitStarted() error {
	if s.Phase != PhaseDrafting || s.Draft == nil {
		return fmt.Errorf("%w: submit while %s", ErrInvalidTransition, s.Phase)
	}
	s.Phase = PhaseValidating
	s.Message = ""
	return nil
}

// SubmitValidated moves a valid draft into submission.
func (s *ViewState) SubmitValidated() error {
	if s.Phase != PhaseValidating {
		return fmt.Errorf("%w: validated while %s", ErrInvalidTransition, s.Phase)
	}
	s.Phase = PhaseSubmitting
	s.FieldErrors = map[string]string{}
	return nil
}

// SubmitFailed returns to drafting with the errors of err.
func (s *ViewState) SubmitFailed(err error) {
	s.Phase = PhaseDrafting
	var se *SaveError
	if errors.As(err, &se) {
		if len(se.FieldErrors) > 0 {
			s.FieldErrors = se.FieldErrors
		}
		s.Message = se.Message
		return
	}
	s.Message = err.Error()
}

// SubmitSucceeded closes the draft. A non-empty message reports a save whose
// dependent steps failed.
func (s *ViewState) SubmitSucceeded(message string) {
	s.Phase = PhaseIdle
	s.Draft = nil
	s.FieldErrors = nil
	s.Message = message
}

// SearchChanged sets the search text and returns to page 1.
func (s *ViewState) SearchChanged(query string) {
	s.Search = query
	s.Page = 1
}

// PageChanged sets the requested page; it is clamped when rendered.
func (s *ViewState) PageChanged(page int) {
	s.Page = page
}

// PageSizeChanged sets the page size and returns to page 1.
func (s *ViewState) PageSizeChanged(size int) error {
	if size <= 0 {
		return types.ErrPageSizeInvalid
	}
	s.PageSize = size
	s.Page = 1
	return nil
}

// ScopeChanged sets the scope and returns to page 1.
func (s *ViewState) ScopeChanged(scope types.ScopeState) {
	s.Scope = scope
	s.Page = 1
}

// DeleteRequested asks for confirmation to delete row.
func (s *ViewState) DeleteRequested(row types.Row) {
	s.DeleteTarget = row
}

// DeleteCancelled forgets the pending delete.
func (s *ViewState) DeleteCancelled() {
	s.DeleteTarget = nil
}

// DeleteFailed forgets the pending delete and reports err.
func (s *ViewState) DeleteFailed(err error) {
	s.DeleteTarget = nil
	s.Message = err.Error()
}
