package bucketing

import (
	"hash"
	"sync"
	"time"

	"nurseconnect-registration/internal/config"

	"github.com/spaolacci/murmur3"
)

// BucketingManager spreads MSISDN-keyed rows across partitions and produces
// stable pseudonymous hashes for analytics.
type BucketingManager struct {
	referralBuckets int
	hasherPool      sync.Pool
}

func NewBucketingManager(cfg *config.Config) *BucketingManager {
	buckets := cfg.Bucketing.ReferralBuckets
	if buckets <= 0 {
		buckets = 1
	}

	bm := &BucketingManager{referralBuckets: buckets}
	bm.hasherPool = sync.Pool{
		New: func() interface{} {
			return murmur3.New64()
		},
	}
	return bm
}

// GetReferralBucket returns the partition bucket (0..n-1) for an MSISDN.
func (bm *BucketingManager) GetReferralBucket(msisdn string) int {
	return int(bm.getHash(msisdn) % uint64(bm.referralBuckets))
}

// HashMSISDN returns a stable 64 bit murmur3 hash of the MSISDN.
func (bm *BucketingManager) HashMSISDN(msisdn string) uint64 {
	return bm.getHash(msisdn)
}

// GetDateBucket returns the UTC day of t, used to partition analytics rows.
func (bm *BucketingManager) GetDateBucket(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func (bm *BucketingManager) ReferralBuckets() int {
	return bm.referralBuckets
}

func (bm *BucketingManager) getHash(key string) uint64 {
	hasher := bm.hasherPool.Get().(hash.Hash64)
	defer bm.hasherPool.Put(hasher)

	hasher.Reset()
	hasher.Write([]byte(key))
	return hasher.Sum64()
}
