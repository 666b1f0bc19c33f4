// This file implements View, the mounted state of one resource page: it wires
// the loader, resolver, scope filter and mutation controller to a ViewState.
package engine

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/codadmin/pkg/types"
)

// Deps are the collaborators of a view.
type Deps struct {
	Transport types.Transport
	Uploader  types.Uploader
	// Location carries the scope of client users; nil disables scope
	// persistence.
	Location types.Location
	Logger   *zap.Logger
	PageSize int
}

// View is one mounted resource view. Its methods are safe for concurrent use;
// results of loads that complete after Unmount are discarded.
type View struct {
	schema   types.ResourceSchema
	identity types.Identity
	access   Access
	location types.Location
	logger   *zap.Logger

	loader     *Loader
	resolver   *Resolver
	controller *Controller

	alive atomic.Bool
	seq   atomic.Uint64

	mu     sync.Mutex
	state  ViewState
	filter *ScopeFilter
}

// NewView creates an unmounted view of schema for identity.
func NewView(schema types.ResourceSchema, identity types.Identity, deps Deps) *View {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("resource", schema.Key))
	return &View{
		schema:     schema,
		identity:   identity,
		access:     AccessFor(schema, identity),
		location:   deps.Location,
		logger:     logger,
		loader:     NewLoader(deps.Transport, logger),
		resolver:   NewResolver(deps.Transport, logger),
		controller: NewController(deps.Transport, deps.Uploader, logger),
		state:      NewViewState(deps.PageSize),
	}
}

// Schema returns the schema of the view.
func (v *View) Schema() types.ResourceSchema {
	return v.schema
}

// Access returns what the identity may do in this view.
func (v *View) Access() Access {
	return v.access
}

// Scoped reports whether rows are narrowed by the scope filter.
func (v *View) Scoped() bool {
	return v.identity.IsClient()
}

// Mount reads the scope from the location, then loads rows and resolves
// reference options concurrently.
func (v *View) Mount(ctx context.Context) error {
	if !v.access.Read {
		return fmt.Errorf("%w: cannot view %s", types.ErrForbidden, v.schema.Key)
	}
	v.alive.Store(true)
	if v.Scoped() && v.location != nil {
		v.mu.Lock()
		v.state.ScopeChanged(types.ScopeFromQuery(v.location.Query()))
		v.mu.Unlock()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		v.ResolveOptions(ctx)
	}()
	err := v.Reload(ctx)
	<-done
	return err
}

// Unmount tears the view down. In-flight requests are not aborted but their
// results no longer touch the state.
func (v *View) Unmount() {
	v.alive.Store(false)
}

// Reload fetches the view's collections again. Only the latest load of a
// mounted view is applied.
func (v *View) Reload(ctx context.Context) error {
	if !v.alive.Load() {
		return types.ErrViewUnmounted
	}
	seq := v.seq.Add(1)
	v.mu.Lock()
	v.state.LoadStarted()
	v.mu.Unlock()

	data, err := v.loader.Load(ctx, v.schema, v.identity)

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.alive.Load() {
		v.logger.Debug("load result discarded after unmount")
		return types.ErrViewUnmounted
	}
	if v.seq.Load() != seq {
		v.logger.Debug("stale load result discarded")
		return nil
	}
	if err != nil {
		v.state.LoadFailed(err)
		v.filter = nil
		return err
	}
	v.state.LoadSucceeded(data)
	if v.Scoped() {
		v.filter = NewScopeFilter(v.schema, data)
	}
	return nil
}

// ResolveOptions refreshes the reference options of the view.
func (v *View) ResolveOptions(ctx context.Context) {
	opts := v.resolver.Resolve(ctx, v.schema)
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.alive.Load() {
		v.logger.Debug("options discarded after unmount")
		return
	}
	v.state.OptionsResolved(opts)
}

// State returns a snapshot of the view state.
func (v *View) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.state
	s.FieldErrors = maps.Clone(v.state.FieldErrors)
	s.Options = maps.Clone(v.state.Options)
	return s
}

// Listing is the rendered list of a view.
type Listing struct {
	Columns []string
	Page    Page
	// Gate replaces the rows for client users until the scope is deep enough.
	Gate    string
	Stats   Stats
	Loading bool
	Err     error
	Message string
}

// Visible returns the current page of scope- and search-filtered rows.
func (v *View) Visible() Listing {
	v.mu.Lock()
	defer v.mu.Unlock()
	rows, gate := v.filteredLocked()
	return Listing{
		Columns: v.schema.Columns(),
		Page:    Paginate(rows, v.state.Page, v.state.PageSize),
		Gate:    gate,
		Stats:   ComputeStats(v.schema, v.state.Data.allRows()),
		Loading: v.state.Loading,
		Err:     v.state.LoadErr,
		Message: v.state.Message,
	}
}

// Filtered returns every scope- and search-filtered row across all pages.
func (v *View) Filtered() []types.Row {
	v.mu.Lock()
	defer v.mu.Unlock()
	rows, _ := v.filteredLocked()
	return rows
}

func (v *View) filteredLocked() ([]types.Row, string) {
	data := v.state.Data
	if data == nil {
		return nil, ""
	}
	rows := data.Rows
	if v.Scoped() {
		if gate := Gate(v.schema, v.state.Scope); gate != "" {
			return nil, gate
		}
		if v.filter != nil {
			rows = v.filter.Filter(rows, v.state.Scope)
		}
	}
	return Search(v.schema, data, rows, v.state.Search), ""
}

func (d *Dataset) allRows() []types.Row {
	if d == nil {
		return nil
	}
	return d.Rows
}

// Cell returns the display value of one column of row.
func (v *View) Cell(row types.Row, column string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, r := range v.schema.Relations {
		if r.CountColumn != "" && r.CountColumn == column {
			return CellValue(v.schema, v.state.Data, row, column)
		}
	}
	return FormatValue(row[column])
}

// SetSearch changes the search text.
func (v *View) SetSearch(query string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.SearchChanged(query)
}

// SetPage requests a page; it is clamped when rendered.
func (v *View) SetPage(page int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.PageChanged(page)
}

// SetPageSize changes the page size.
func (v *View) SetPageSize(size int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state.PageSizeChanged(size)
}

// ScopeOptions are the choices of the three scope pickers.
type ScopeOptions struct {
	Merchants  []types.Option
	Branches   []types.Option
	Categories []types.Option
}

// ScopeOptions returns the picker options under the current scope.
func (v *View) ScopeOptions() ScopeOptions {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.filter == nil {
		return ScopeOptions{}
	}
	return ScopeOptions{
		Merchants:  v.filter.MerchantOptions(),
		Branches:   v.filter.BranchOptions(v.state.Scope),
		Categories: v.filter.CategoryOptions(v.state.Scope),
	}
}

// SelectMerchant changes the merchant level of the scope.
func (v *View) SelectMerchant(id string) error {
	return v.selectScope(func(f *ScopeFilter, s types.ScopeState) (types.ScopeState, error) {
		return f.SelectMerchant(s, id)
	})
}

// SelectBranch changes the branch level of the scope.
func (v *View) SelectBranch(id string) error {
	return v.selectScope(func(f *ScopeFilter, s types.ScopeState) (types.ScopeState, error) {
		return f.SelectBranch(s, id)
	})
}

// SelectCategory changes the category level of the scope.
func (v *View) SelectCategory(id string) error {
	return v.selectScope(func(f *ScopeFilter, s types.ScopeState) (types.ScopeState, error) {
		return f.SelectCategory(s, id)
	})
}

func (v *View) selectScope(apply func(*ScopeFilter, types.ScopeState) (types.ScopeState, error)) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.Scoped() || v.filter == nil {
		return fmt.Errorf("%w: scope is not active for this view", types.ErrInvalidScope)
	}
	next, err := apply(v.filter, v.state.Scope)
	if err != nil {
		return err
	}
	v.state.ScopeChanged(next)
	if v.location == nil {
		return nil
	}
	return v.location.Navigate(v.location.Path(), next.Encode(v.location.Query()))
}

// DrillDown moves the location to the next level below the row with id.
func (v *View) DrillDown(id int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	row, ok := v.rowLocked(id)
	if !ok {
		return fmt.Errorf("%w: %s %d", types.ErrNotFound, v.schema.Key, id)
	}
	path, query, ok := DrillDown(v.schema, row, v.state.Scope)
	if !ok {
		return fmt.Errorf("%w: %s has no drill-down", types.ErrInvalidScope, v.schema.Key)
	}
	if v.location == nil {
		return nil
	}
	return v.location.Navigate(path, query)
}

// Row returns the loaded row with id.
func (v *View) Row(id int64) (types.Row, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rowLocked(id)
}

func (v *View) rowLocked(id int64) (types.Row, bool) {
	if v.state.Data == nil {
		return nil, false
	}
	for _, row := range v.state.Data.Rows {
		if rid, ok := row.ID(); ok && rid == id {
			return row, true
		}
	}
	return nil, false
}

// OpenCreate opens an empty draft.
func (v *View) OpenCreate() error {
	if !v.access.Create {
		return fmt.Errorf("%w: cannot create %s", types.ErrForbidden, v.schema.Key)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.DraftOpened(NewDraft(v.schema))
	return nil
}

// OpenEdit opens a draft of the loaded row with id, selecting its current
// relation children and listing its images.
func (v *View) OpenEdit(id int64) error {
	if !v.access.Update {
		return fmt.Errorf("%w: cannot update %s", types.ErrForbidden, v.schema.Key)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	row, ok := v.rowLocked(id)
	if !ok {
		return fmt.Errorf("%w: %s %d", types.ErrNotFound, v.schema.Key, id)
	}
	d, err := DraftFromRow(v.schema, row)
	if err != nil {
		return err
	}
	for _, spec := range v.schema.Relations {
		d.Relations[spec.Name] = SelectedChildren(spec, v.state.Data, id)
	}
	if v.schema.Images != nil {
		d.Images = v.state.Data.Images(id)
	}
	v.state.DraftOpened(d)
	return nil
}

// draftLocked returns the open draft. Edits are refused outside the drafting
// phase.
func (v *View) draftLocked() (*Draft, error) {
	if v.state.Draft == nil {
		return nil, types.ErrNoDraft
	}
	if v.state.Phase != PhaseDrafting {
		return nil, fmt.Errorf("%w: draft edit while %s", ErrInvalidTransition, v.state.Phase)
	}
	return v.state.Draft, nil
}

// Change sets a draft field and revalidates it.
func (v *View) Change(key string, value any) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	d, err := v.draftLocked()
	if err != nil {
		return err
	}
	if err := d.Set(key, value); err != nil {
		return err
	}
	f, _ := v.schema.Field(key)
	return v.state.DraftChanged(key, FieldError(f, d.Get(key)))
}

// ToggleRelation flips one child of a relation selection.
func (v *View) ToggleRelation(name, id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	d, err := v.draftLocked()
	if err != nil {
		return err
	}
	return d.ToggleRelation(name, id)
}

// SetRelation replaces a relation selection.
func (v *View) SetRelation(name string, ids []string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	d, err := v.draftLocked()
	if err != nil {
		return err
	}
	return d.SetRelation(name, ids)
}

// AttachFile queues an image upload for the draft.
func (v *View) AttachFile(file types.FileUpload) error {
	if v.schema.Images == nil {
		return fmt.Errorf("%w: %s has no images", types.ErrNoUploadTarget, v.schema.Key)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	d, err := v.draftLocked()
	if err != nil {
		return err
	}
	d.Files = append(d.Files, file)
	return nil
}

// ToggleImageRemoval marks or unmarks an existing image for removal.
func (v *View) ToggleImageRemoval(imageID int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	d, err := v.draftLocked()
	if err != nil {
		return err
	}
	for _, img := range d.Images {
		if id, ok := img.ID(); ok && id == imageID {
			d.ToggleImageRemoval(imageID)
			return nil
		}
	}
	return fmt.Errorf("%w: image %d", types.ErrNotFound, imageID)
}

// CancelDraft abandons the open draft.
func (v *View) CancelDraft() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.DraftClosed()
}

// Submit validates and saves the draft. On success, or when only dependent
// steps failed, the draft closes and the view reloads.
func (v *View) Submit(ctx context.Context) error {
	v.mu.Lock()
	if err := v.state.SubmitStarted(); err != nil {
		v.mu.Unlock()
		return err
	}
	d := v.state.Draft
	if errs := Validate(d); len(errs) > 0 {
		err := &SaveError{Kind: KindClientValidation, FieldErrors: errs, Message: MessageRequired, Err: types.ErrValidation}
		v.state.SubmitFailed(err)
		v.mu.Unlock()
		return err
	}
	if err := v.state.SubmitValidated(); err != nil {
		v.mu.Unlock()
		return err
	}
	saved := d.Clone()
	v.mu.Unlock()

	_, saveErr := v.controller.Save(ctx, saved)

	v.mu.Lock()
	if !v.alive.Load() {
		v.mu.Unlock()
		v.logger.Debug("save result discarded after unmount")
		return saveErr
	}
	if saveErr != nil {
		var se *SaveError
		if errors.As(saveErr, &se) && se.Kind == KindPartial {
			v.state.SubmitSucceeded(se.Message)
			v.mu.Unlock()
			_ = v.Reload(ctx)
			return saveErr
		}
		v.state.SubmitFailed(saveErr)
		v.mu.Unlock()
		return saveErr
	}
	v.state.SubmitSucceeded("")
	v.mu.Unlock()
	return v.Reload(ctx)
}

// RequestDelete asks for confirmation to delete the row with id.
func (v *View) RequestDelete(id int64) error {
	if !v.access.Delete {
		return fmt.Errorf("%w: cannot delete %s", types.ErrForbidden, v.schema.Key)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	row, ok := v.rowLocked(id)
	if !ok {
		return fmt.Errorf("%w: %s %d", types.ErrNotFound, v.schema.Key, id)
	}
	v.state.DeleteRequested(row)
	return nil
}

// CancelDelete drops the pending delete.
func (v *View) CancelDelete() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.DeleteCancelled()
}

// ConfirmDelete deletes the pending row and reloads.
func (v *View) ConfirmDelete(ctx context.Context) error {
	v.mu.Lock()
	target := v.state.DeleteTarget
	v.mu.Unlock()
	if target == nil {
		return types.ErrNotConfirmed
	}
	id, _ := target.ID()
	err := v.controller.Delete(ctx, v.schema, id, true)

	v.mu.Lock()
	if err != nil {
		v.state.DeleteFailed(err)
		v.mu.Unlock()
		return err
	}
	v.state.DeleteCancelled()
	v.mu.Unlock()
	return v.Reload(ctx)
}

// UploadAsset uploads a photo or flag for the record being edited and writes
// the returned URL into the draft.
func (v *View) UploadAsset(ctx context.Context, kind string, file types.FileUpload) (string, error) {
	spec, ok := v.schema.Upload(kind)
	if !ok {
		return "", fmt.Errorf("%w: %s %s", types.ErrNoUploadTarget, v.schema.Key, kind)
	}
	v.mu.Lock()
	d, err := v.draftLocked()
	v.mu.Unlock()
	if err != nil {
		return "", err
	}
	if !d.Editing() {
		return "", fmt.Errorf("%w: save the record before uploading", types.ErrNoUploadTarget)
	}
	url, err := v.controller.UploadAsset(ctx, v.schema, d.ID, kind, file)
	if err != nil || url == "" {
		return url, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state.Draft == d && v.state.Phase == PhaseDrafting {
		if err := d.Set(spec.URLField, url); err != nil {
			return url, err
		}
	}
	return url, nil
}

// RelationOptions returns the children a relation can link to, filtered by
// a case-insensitive label search.
func (v *View) RelationOptions(name, query string) ([]types.Option, error) {
	spec, ok := v.schema.Relation(name)
	if !ok {
		return nil, fmt.Errorf("%w: relation %q on %s", types.ErrUnknownField, name, v.schema.Key)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return FilterOptions(RelationOptions(spec, v.state.Data), query), nil
}

// RoleInfo returns the labels of the children counted for the row with id,
// e.g. the permission keys of a role.
func (v *View) RoleInfo(id int64) ([]string, error) {
	for _, spec := range v.schema.Relations {
		if spec.CountColumn == "" {
			continue
		}
		v.mu.Lock()
		defer v.mu.Unlock()
		return LinkedLabels(spec, v.state.Data, id), nil
	}
	return nil, fmt.Errorf("%w: %s has no linked permissions", types.ErrUnknownField, v.schema.Key)
}
