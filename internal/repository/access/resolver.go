// Package access resolves per-user access policies from the key-value store.
package access

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/db"
	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/domain"
)

// store is the consumer interface for policy lookups (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Resolver reads access policies written by the user-management service.
type Resolver struct {
	store     store
	keyPrefix string
	logger    *zap.Logger
}

// New creates a policy resolver. keyPrefix is the store namespace, e.g. "graphtalk:".
func New(s store, keyPrefix string, logger *zap.Logger) *Resolver {
	return &Resolver{store: s, keyPrefix: keyPrefix + "acl:user:", logger: logger}
}

// policyRecord is the stored JSON shape.
type policyRecord struct {
	Unrestricted bool     `json:"unrestricted,omitempty"`
	Files        []string `json:"files,omitempty"`
}

// Resolve returns the access policy for a user. A user without a policy
// record gets an empty allow-set: absence of permissions is not permission.
func (r *Resolver) Resolve(ctx context.Context, userID string) (domain.AccessPolicy, error) {
	if userID == "" {
		return domain.AllowFiles(nil), nil
	}

	data, err := r.store.Get(ctx, r.keyPrefix+userID)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			r.logger.Debug("No access policy record", zap.String("user_id", userID))
			return domain.AllowFiles(nil), nil
		}
		return domain.AccessPolicy{}, fmt.Errorf("resolve access policy: %w", err)
	}

	var rec policyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		// A corrupt record must not widen access.
		r.logger.Warn("Corrupt access policy record",
			zap.String("user_id", userID), zap.Error(err))
		return domain.AllowFiles(nil), nil
	}

	if rec.Unrestricted {
		return domain.Unrestricted(), nil
	}
	return domain.AllowFiles(rec.Files), nil
}
