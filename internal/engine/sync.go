// This file implements the relation synchronizer: full replacement of a
// parent's join-table links, and the product image gallery update.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/codadmin/pkg/types"
)

// SyncError reports a relation or image sync that did not reach the desired
// state. Deleted links are not restored.
type SyncError struct {
	Target string
	// Failed lists the child ids whose links could not be created, or the
	// file names that could not be uploaded.
	Failed []string
	Err    error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("syncing %s: %v", e.Target, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Synchronizer writes relation links and images for a saved parent record.
type Synchronizer struct {
	transport types.Transport
	uploader  types.Uploader
	logger    *zap.Logger
}

// NewSynchronizer creates a synchronizer. The uploader may be nil when no
// schema with images is used. A nil logger disables logging.
func NewSynchronizer(t types.Transport, u types.Uploader, logger *zap.Logger) *Synchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synchronizer{transport: t, uploader: u, logger: logger}
}

// ExistingLinks lists the join table and returns the links of parentID in
// server order.
func (s *Synchronizer) ExistingLinks(ctx context.Context, spec types.RelationSpec, parentID int64) ([]types.RelationLink, error) {
	rows, err := s.transport.List(ctx, spec.LinkResource)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", spec.LinkResource, err)
	}
	return BuildLinkIndex(spec, rows).Get(parentID), nil
}

// Replace makes the links of parentID equal desired. Every existing link is
// deleted, all deletes running concurrently; once they have all succeeded one
// link per desired child id is created, again concurrently. If a delete fails
// nothing is created. Creates are all attempted; failed ones are reported in
// a *SyncError.
func (s *Synchronizer) Replace(ctx context.Context, spec types.RelationSpec, parentID int64, existing []types.RelationLink, desired []int64) error {
	var del errgroup.Group
	for _, link := range existing {
		del.Go(func() error {
			if err := s.transport.Remove(ctx, spec.LinkResource, link.ID); err != nil {
				return fmt.Errorf("deleting %s %d: %w", spec.LinkResource, link.ID, err)
			}
			return nil
		})
	}
	if err := del.Wait(); err != nil {
		return &SyncError{Target: spec.Name, Err: err}
	}

	var (
		mu     sync.Mutex
		failed []string
		errs   []error
		create errgroup.Group
	)
	for _, child := range desired {
		create.Go(func() error {
			_, err := s.transport.Create(ctx, spec.LinkResource, spec.Payload(parentID, child))
			if err != nil {
				mu.Lock()
				failed = append(failed, types.FormatID(child))
				errs = append(errs, fmt.Errorf("linking %s %d: %w", spec.ChildResource, child, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = create.Wait()

	s.logger.Debug("relation synced",
		zap.String("relation", spec.Name),
		zap.Int64("parent_id", parentID),
		zap.Int("deleted", len(existing)),
		zap.Int("created", len(desired)-len(failed)),
	)
	if len(errs) > 0 {
		return &SyncError{Target: spec.Name, Failed: failed, Err: errors.Join(errs...)}
	}
	return nil
}

// ExistingImages lists the image resource and returns the images of parentID.
func (s *Synchronizer) ExistingImages(ctx context.Context, spec types.ImageSpec, parentID int64) ([]types.Row, error) {
	rows, err := s.transport.List(ctx, spec.Resource)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", spec.Resource, err)
	}
	return BuildRowIndex(rows, spec.ParentKey).Get(parentID), nil
}

// SyncImages deletes the existing images listed in removed, then uploads the
// pending files in parallel. Upload i gets sort_order len(existing)+i+1.
func (s *Synchronizer) SyncImages(ctx context.Context, spec types.ImageSpec, parentID int64, existing []types.Row, removed []int64, files []types.FileUpload) error {
	drop := make(map[int64]bool, len(removed))
	for _, id := range removed {
		drop[id] = true
	}
	var del errgroup.Group
	for _, img := range existing {
		id, ok := img.ID()
		if !ok || !drop[id] {
			continue
		}
		del.Go(func() error {
			if err := s.transport.Remove(ctx, spec.Resource, id); err != nil {
				return fmt.Errorf("deleting %s %d: %w", spec.Resource, id, err)
			}
			return nil
		})
	}
	if err := del.Wait(); err != nil {
		return &SyncError{Target: "images", Err: err}
	}
	if len(files) == 0 {
		return nil
	}
	if s.uploader == nil {
		return &SyncError{Target: "images", Err: types.ErrNoUploadTarget}
	}

	var (
		mu     sync.Mutex
		failed []string
		errs   []error
		up     errgroup.Group
	)
	for i, file := range files {
		up.Go(func() error {
			fields := map[string]string{
				spec.ParentKey: types.FormatID(parentID),
				"sort_order":   strconv.Itoa(len(existing) + i + 1),
				"is_active":    "true",
			}
			if _, err := s.uploader.Upload(ctx, spec.UploadPath, spec.FileField, file, fields); err != nil {
				mu.Lock()
				failed = append(failed, file.Name)
				errs = append(errs, fmt.Errorf("uploading %s: %w", file.Name, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = up.Wait()

	s.logger.Debug("images synced",
		zap.Int64("parent_id", parentID),
		zap.Int("removed", len(drop)),
		zap.Int("uploaded", len(files)-len(failed)),
	)
	if len(errs) > 0 {
		return &SyncError{Target: "images", Failed: failed, Err: errors.Join(errs...)}
	}
	return nil
}
