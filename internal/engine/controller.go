// This file implements the mutation controller: save (create or update plus
// relation and image sync) and confirmed delete.
package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/codadmin/pkg/types"
)

// ErrorKind classifies a failed save.
type ErrorKind int

const (
	// KindClientValidation: the draft failed validation; nothing was sent.
	KindClientValidation ErrorKind = iota + 1
	// KindServerValidation: the server rejected the payload with field or
	// general messages.
	KindServerValidation
	// KindTransport: the request failed; reported as one general message.
	KindTransport
	// KindPartial: the record was saved but a dependent step failed.
	KindPartial
)

func (k ErrorKind) String() string {
	switch k {
	case KindClientValidation:
		return "client validation"
	case KindServerValidation:
		return "server validation"
	case KindTransport:
		return "transport"
	case KindPartial:
		return "partial"
	default:
		return "unknown"
	}
}

// SaveError is the error of a failed or partially failed save.
type SaveError struct {
	Kind        ErrorKind
	FieldErrors map[string]string
	Message     string
	// ID is the saved record id for KindPartial, when known.
	ID  int64
	Err error
}

func (e *SaveError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String() + " error"
}

func (e *SaveError) Unwrap() error {
	return e.Err
}

// SaveResult describes a successful save.
type SaveResult struct {
	ID      int64
	Created bool
}

// Controller runs record mutations against the transport.
type Controller struct {
	transport types.Transport
	uploader  types.Uploader
	sync      *Synchronizer
	logger    *zap.Logger
}

// NewController creates a controller. A nil logger disables logging.
func NewController(t types.Transport, u types.Uploader, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		transport: t,
		uploader:  u,
		sync:      NewSynchronizer(t, u, logger),
		logger:    logger,
	}
}

// Save validates the draft, creates or updates the record, then replaces its
// relations and updates its images. Failures are returned as *SaveError.
func (c *Controller) Save(ctx context.Context, d *Draft) (SaveResult, error) {
	schema := d.Schema
	if errs := Validate(d); len(errs) > 0 {
		return SaveResult{}, &SaveError{
			Kind:        KindClientValidation,
			FieldErrors: errs,
			Message:     MessageRequired,
			Err:         types.ErrValidation,
		}
	}
	payload, err := BuildPayload(d)
	if err != nil {
		return SaveResult{}, &SaveError{Kind: KindClientValidation, Message: MessageRequired, Err: err}
	}

	res := SaveResult{ID: d.ID, Created: !d.Editing()}
	if d.Editing() {
		if _, err := c.transport.Update(ctx, schema.Key, d.ID, payload); err != nil {
			return res, c.mutationError(schema, err)
		}
	} else {
		created, err := c.transport.Create(ctx, schema.Key, payload)
		if err != nil {
			return res, c.mutationError(schema, err)
		}
		if id, ok := created.ID(); ok && id != 0 {
			res.ID = id
		}
	}
	c.logger.Debug("record saved", zap.String("resource", schema.Key), zap.Int64("id", res.ID), zap.Bool("created", res.Created))

	targets := syncTargets(schema)
	if len(targets) == 0 {
		return res, nil
	}
	if res.ID == 0 {
		id, err := c.recoverID(ctx, schema, payload)
		if err != nil {
			c.logger.Warn("id recovery failed", zap.String("resource", schema.Key), zap.Error(err))
			return res, c.partial(schema, targets, 0, err)
		}
		res.ID = id
	}

	var failed []string
	var errs []error
	for _, spec := range schema.Relations {
		if err := c.syncRelation(ctx, d, spec, res.ID); err != nil {
			failed = append(failed, spec.Name)
			errs = append(errs, err)
		}
	}
	if schema.Images != nil {
		if err := c.syncImages(ctx, d, *schema.Images, res.ID); err != nil {
			failed = append(failed, "images")
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		c.logger.Warn("relation sync failed", zap.String("resource", schema.Key), zap.Int64("id", res.ID), zap.Error(err))
		return res, c.partial(schema, failed, res.ID, err)
	}
	return res, nil
}

func (c *Controller) syncRelation(ctx context.Context, d *Draft, spec types.RelationSpec, parentID int64) error {
	var existing []types.RelationLink
	if d.Editing() {
		links, err := c.sync.ExistingLinks(ctx, spec, parentID)
		if err != nil {
			return &SyncError{Target: spec.Name, Err: err}
		}
		existing = links
	}
	return c.sync.Replace(ctx, spec, parentID, existing, desiredIDs(d.Relations[spec.Name]))
}

func (c *Controller) syncImages(ctx context.Context, d *Draft, spec types.ImageSpec, parentID int64) error {
	if len(d.RemovedImages) == 0 && len(d.Files) == 0 {
		return nil
	}
	var existing []types.Row
	if d.Editing() {
		imgs, err := c.sync.ExistingImages(ctx, spec, parentID)
		if err != nil {
			return &SyncError{Target: "images", Err: err}
		}
		existing = imgs
	}
	return c.sync.SyncImages(ctx, spec, parentID, existing, d.RemovedImages, d.Files)
}

// ErrAmbiguousRecovery is returned when more than one row matches the
// business keys of a just-created record.
var ErrAmbiguousRecovery = errors.New("more than one record matches")

// ErrNoRecovery is returned when no row matches the business keys of a
// just-created record.
var ErrNoRecovery = errors.New("created record not found")

// recoverID re-lists the resource and finds the just-created row by the
// schema's recovery keys, trying each key set in order. A key set matches only
// when exactly one row carries all of its values.
func (c *Controller) recoverID(ctx context.Context, schema types.ResourceSchema, payload map[string]any) (int64, error) {
	if len(schema.RecoveryKeys) == 0 {
		return 0, ErrNoRecovery
	}
	rows, err := c.transport.List(ctx, schema.Key)
	if err != nil {
		return 0, fmt.Errorf("listing %s: %w", schema.Key, err)
	}
	ambiguous := false
	for _, keys := range schema.RecoveryKeys {
		var matches []int64
		for _, row := range rows {
			if matchesKeys(row, payload, keys) {
				if id, ok := row.ID(); ok {
					matches = append(matches, id)
				}
			}
		}
		switch len(matches) {
		case 0:
			continue
		case 1:
			return matches[0], nil
		default:
			ambiguous = true
		}
	}
	if ambiguous {
		return 0, ErrAmbiguousRecovery
	}
	return 0, ErrNoRecovery
}

func matchesKeys(row types.Row, payload map[string]any, keys []string) bool {
	for _, k := range keys {
		want, ok := payload[k]
		if !ok || types.Stringify(want) != row.String(k) {
			return false
		}
	}
	return true
}

// Delete removes a record. It refuses to act without confirmation.
func (c *Controller) Delete(ctx context.Context, schema types.ResourceSchema, id int64, confirmed bool) error {
	if !confirmed {
		return types.ErrNotConfirmed
	}
	if id <= 0 {
		return types.ErrInvalidID
	}
	if err := c.transport.Remove(ctx, schema.Key, id); err != nil {
		return fmt.Errorf("deleting %s %d: %w", schema.Key, id, err)
	}
	return nil
}

// UploadAsset posts a photo or flag for an existing record and returns the
// URL the server reports, read from the upload's URL field or "url".
func (c *Controller) UploadAsset(ctx context.Context, schema types.ResourceSchema, id int64, kind string, file types.FileUpload) (string, error) {
	spec, ok := schema.Upload(kind)
	if !ok || c.uploader == nil {
		return "", fmt.Errorf("%w: %s %s", types.ErrNoUploadTarget, schema.Key, kind)
	}
	if id <= 0 {
		return "", types.ErrInvalidID
	}
	row, err := c.uploader.Upload(ctx, spec.Path(id), spec.FileField, file, nil)
	if err != nil {
		return "", fmt.Errorf("uploading %s %s: %w", schema.Key, kind, err)
	}
	if u := row.String(spec.URLField); u != "" {
		return u, nil
	}
	return row.String("url"), nil
}

func (c *Controller) mutationError(schema types.ResourceSchema, err error) error {
	var se types.StatusError
	if errors.As(err, &se) && (se.StatusCode() == http.StatusBadRequest || se.StatusCode() == http.StatusUnprocessableEntity) {
		decoded := DecodeServerError(se.ResponseBody(), schema.Fields)
		if !decoded.Empty() {
			msg := decoded.Message
			if msg == "" {
				msg = err.Error()
			}
			return &SaveError{
				Kind:        KindServerValidation,
				FieldErrors: decoded.Fields,
				Message:     msg,
				Err:         fmt.Errorf("%w: %w", types.ErrValidation, err),
			}
		}
	}
	return &SaveError{Kind: KindTransport, Message: err.Error(), Err: err}
}

func (c *Controller) partial(schema types.ResourceSchema, targets []string, id int64, err error) *SaveError {
	noun := schema.Noun
	if noun == "" {
		noun = "Record"
	}
	return &SaveError{
		Kind:    KindPartial,
		Message: fmt.Sprintf("%s saved but could not sync %s.", noun, strings.Join(targets, " or ")),
		ID:      id,
		Err:     err,
	}
}

// syncTargets names the dependent steps of a save, in order.
func syncTargets(schema types.ResourceSchema) []string {
	var out []string
	for _, r := range schema.Relations {
		out = append(out, r.Name)
	}
	if schema.Images != nil {
		out = append(out, "images")
	}
	return out
}

// desiredIDs parses selected option values, dropping non-numeric values and
// duplicates while keeping selection order.
func desiredIDs(values []string) []int64 {
	seen := make(map[int64]bool, len(values))
	out := make([]int64, 0, len(values))
	for _, v := range values {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

