package scylla

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"nurseconnect-registration/internal/bucketing"
	"nurseconnect-registration/internal/models"
	"nurseconnect-registration/internal/referral"
	"nurseconnect-registration/internal/util"
)

const (
	idCounterName  = "referral_links"
	maxCASAttempts = 10
)

var ErrIDAllocationFailed = errors.New("failed to allocate referral link id")

// ReferralRepository stores referral links in ScyllaDB. Ids come from a
// lightweight-transaction counter; MSISDN uniqueness comes from an
// INSERT ... IF NOT EXISTS on referral_links_by_msisdn.
type ReferralRepository struct {
	client    *ScyllaClient
	bucketing *bucketing.BucketingManager
}

func NewReferralRepository(client *ScyllaClient, bm *bucketing.BucketingManager) *ReferralRepository {
	return &ReferralRepository{client: client, bucketing: bm}
}

func (r *ReferralRepository) bucket(id int64) int {
	return r.bucketing.GetReferralBucket(strconv.FormatInt(id, 10))
}

func (r *ReferralRepository) GetByID(ctx context.Context, id int64) (*models.ReferralLink, error) {
	var link models.ReferralLink
	err := r.client.Query(ctx, r.client.Statements.GetLinkByID, r.bucket(id), id).
		Scan(&link.ID, &link.MSISDN, &link.CreatedAt)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, referral.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get referral link: %w", err)
	}
	return &link, nil
}

func (r *ReferralRepository) GetByMSISDN(ctx context.Context, msisdn string) (*models.ReferralLink, error) {
	var link models.ReferralLink
	err := r.client.Query(ctx, r.client.Statements.GetLinkByMSISDN, msisdn).
		Scan(&link.ID, &link.MSISDN, &link.CreatedAt)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, referral.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get referral link: %w", err)
	}
	return &link, nil
}

// Create allocates an id, writes the link row, then claims the MSISDN. When
// the claim loses, the link row is removed and referral.ErrDuplicate returned.
func (r *ReferralRepository) Create(ctx context.Context, msisdn string) (*models.ReferralLink, error) {
	id, err := r.allocateID(ctx)
	if err != nil {
		return nil, err
	}

	link := &models.ReferralLink{ID: id, MSISDN: msisdn, CreatedAt: time.Now().UTC().Truncate(time.Millisecond)}
	bucket := r.bucket(id)

	if err := r.client.Query(ctx, r.client.Statements.InsertLink, bucket, id, msisdn, link.CreatedAt).Exec(); err != nil {
		return nil, fmt.Errorf("failed to insert referral link: %w", err)
	}

	applied, err := r.client.Query(ctx, r.client.Statements.InsertLinkByMSISDN, msisdn, id, link.CreatedAt).
		MapScanCAS(map[string]interface{}{})
	if err != nil {
		return nil, fmt.Errorf("failed to claim msisdn: %w", err)
	}
	if !applied {
		if err := r.client.Query(ctx, r.client.Statements.DeleteLink, bucket, id).Exec(); err != nil {
			util.Warn("Failed to remove orphaned referral link",
				zap.Int64("id", id),
				zap.Error(err))
		}
		return nil, referral.ErrDuplicate
	}
	return link, nil
}

// allocateID hands out the next id with compare-and-set on the counter row.
// A stale read only costs a retry since the CAS rejects it.
func (r *ReferralRepository) allocateID(ctx context.Context) (int64, error) {
	stmts := r.client.Statements
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		var next int64
		err := r.client.Query(ctx, stmts.GetNextID, idCounterName).Scan(&next)
		switch {
		case errors.Is(err, gocql.ErrNotFound):
			applied, err := r.client.Query(ctx, stmts.InitNextID, idCounterName, int64(2)).
				MapScanCAS(map[string]interface{}{})
			if err != nil {
				return 0, fmt.Errorf("%w: %v", ErrIDAllocationFailed, err)
			}
			if applied {
				return 1, nil
			}
		case err != nil:
			return 0, fmt.Errorf("%w: %v", ErrIDAllocationFailed, err)
		default:
			applied, err := r.client.Query(ctx, stmts.AdvanceNextID, next+1, idCounterName, next).
				MapScanCAS(map[string]interface{}{})
			if err != nil {
				return 0, fmt.Errorf("%w: %v", ErrIDAllocationFailed, err)
			}
			if applied {
				return next, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: too much contention", ErrIDAllocationFailed)
}

func (r *ReferralRepository) HealthCheck(ctx context.Context) error {
	return r.client.HealthCheck(ctx)
}
