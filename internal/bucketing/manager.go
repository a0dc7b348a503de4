package bucketing

import (
	"hash"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"

	"secops-service/internal/config"
	"secops-service/internal/models"
)

// BucketingManager spreads hot partitions. Subject-keyed tables (sessions,
// notifications, 2FA) hash (user_id, user_type) into a fixed bucket count;
// the audit log partitions by UTC day.
type BucketingManager struct {
	identityBuckets int
	eventBuckets    int
	hasherPool      sync.Pool
}

func NewBucketingManager(cfg *config.Config) *BucketingManager {
	bm := &BucketingManager{
		identityBuckets: cfg.Bucketing.IdentityBuckets,
		eventBuckets:    cfg.Bucketing.EventBuckets,
	}

	bm.hasherPool = sync.Pool{
		New: func() interface{} {
			return murmur3.New64()
		},
	}

	return bm
}

// SubjectBucket returns the consistent bucket for a subject, stable across
// restarts as long as the bucket count does not change.
func (bm *BucketingManager) SubjectBucket(subject models.Subject) int {
	return bm.getBucket(subject.UserID+"/"+subject.UserType, bm.identityBuckets)
}

// EventBucket buckets free-form identifiers (threat ids, incident ids).
func (bm *BucketingManager) EventBucket(identifier string) int {
	return bm.getBucket(identifier, bm.eventBuckets)
}

// Day returns the UTC date partition used by the audit log.
func (bm *BucketingManager) Day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func (bm *BucketingManager) getBucket(key string, numBuckets int) int {
	hasher := bm.hasherPool.Get().(hash.Hash64)
	defer bm.hasherPool.Put(hasher)

	hasher.Reset()
	hasher.Write([]byte(key))
	return int(hasher.Sum64() % uint64(numBuckets))
}

func (bm *BucketingManager) IdentityBuckets() int {
	return bm.identityBuckets
}

func (bm *BucketingManager) EventBuckets() int {
	return bm.eventBuckets
}
