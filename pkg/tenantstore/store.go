// Package tenantstore implements the tenant-scoped artifact store
// (C1): durable storage of memos, checkpoints and reports under a
// strict org/<org>/projects/<project>/ object-storage prefix.
package tenantstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/qualcode/nucleus/pkg/domain"
)

// PutResult is returned from every write, per SPEC_FULL.md §4.1.
type PutResult struct {
	URL    string
	Name   string
	SHA256 string
	Bytes  int
}

// Backend is the object-storage operations the store needs; satisfied
// by the S3 adapter and by the in-memory fallback used in tests and
// FORCE_MOCK_BLOBS mode.
type Backend interface {
	Put(ctx context.Context, container, key string, data []byte, contentType string) error
	Get(ctx context.Context, container, key string) ([]byte, error)
	List(ctx context.Context, container, prefix string, limit int) ([]string, error)
	DeletePrefix(ctx context.Context, container, prefix string) error
}

// Store enforces the tenant-prefix contract on top of a Backend.
type Store struct {
	backend        Backend
	container      string
	allowOrgless   bool
}

// New constructs a Store. allowOrgless mirrors the ALLOW_ORGLESS_TASKS
// feature flag: when true, writes with an empty org are permitted in
// non-strict mode.
func New(backend Backend, container string, allowOrgless bool) *Store {
	return &Store{backend: backend, container: container, allowOrgless: allowOrgless}
}

// Put writes data under org/<org>/projects/<project>/<logicalPath>. In
// strict mode, org must be non-empty or ErrTenantRequired is returned;
// in non-strict mode an empty org is tolerated only when allowOrgless
// is set, per the orgless-write-in-strict-mode scenario (§8 scenario 6).
func (s *Store) Put(ctx context.Context, org, project, logicalPath string, data []byte, contentType string, strict bool) (*PutResult, error) {
	if s.backend == nil {
		return nil, domain.ErrStorageUnavailable
	}
	if org == "" {
		if strict {
			return nil, domain.ErrTenantRequired
		}
		if !s.allowOrgless {
			return nil, domain.ErrTenantRequired
		}
	}
	if project == "" {
		return nil, domain.NewValidationError("project is required for tenant writes")
	}

	key := tenantKey(org, project, logicalPath)
	if err := s.backend.Put(ctx, s.container, key, data, contentType); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransientUpstream, err)
	}

	sum := sha256.Sum256(data)
	return &PutResult{
		URL:    fmt.Sprintf("%s/%s/%s", s.container, s.container, key),
		Name:   key,
		SHA256: hex.EncodeToString(sum[:]),
		Bytes:  len(data),
	}, nil
}

// Get reads a blob by its already-prefixed name.
func (s *Store) Get(ctx context.Context, blobName string) ([]byte, error) {
	if s.backend == nil {
		return nil, domain.ErrStorageUnavailable
	}
	data, err := s.backend.Get(ctx, s.container, blobName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransientUpstream, err)
	}
	return data, nil
}

// List returns blob names under the given prefix, bounded by limit.
func (s *Store) List(ctx context.Context, prefix string, limit int) ([]string, error) {
	if s.backend == nil {
		return nil, domain.ErrStorageUnavailable
	}
	names, err := s.backend.List(ctx, s.container, prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransientUpstream, err)
	}
	return names, nil
}

// DeletePrefix removes every blob under the given prefix.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	if s.backend == nil {
		return domain.ErrStorageUnavailable
	}
	if err := s.backend.DeletePrefix(ctx, s.container, prefix); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransientUpstream, err)
	}
	return nil
}

// ProjectPrefix returns the mandatory org/<org>/projects/<project>/
// prefix for use by callers building their own logical paths (e.g.
// the runner's checkpoint path, the reports surface's scan root).
func ProjectPrefix(org, project string) string {
	if org == "" {
		return fmt.Sprintf("projects/%s/", project)
	}
	return fmt.Sprintf("org/%s/projects/%s/", org, project)
}

func tenantKey(org, project, logicalPath string) string {
	prefix := ProjectPrefix(org, project)
	return prefix + strings.TrimPrefix(logicalPath, "/")
}
