package memory

import (
	"encoding/json"
	"fmt"
)

// Bucket names used by the durable backends, one per logical map plus the id counter.
const (
	BucketMeta    = "meta"
	BucketKitties = "kitties"
	BucketOwners  = "owners"
	BucketOwned   = "owned"
	BucketPrices  = "prices"
)

// Buckets lists every bucket in persistence order.
var Buckets = []string{BucketMeta, BucketKitties, BucketOwners, BucketOwned, BucketPrices}

type snapshotMeta struct {
	NextID KittyID `json:"next_id"`
}

// EncodeBucket marshals the portion of the snapshot stored under bucket.
func (s Snapshot) EncodeBucket(bucket string) ([]byte, error) {
	switch bucket {
	case BucketMeta:
		return json.Marshal(snapshotMeta{NextID: s.NextID})
	case BucketKitties:
		return json.Marshal(s.Kitties)
	case BucketOwners:
		return json.Marshal(s.Owners)
	case BucketOwned:
		return json.Marshal(s.Owned)
	case BucketPrices:
		return json.Marshal(s.Prices)
	default:
		return nil, fmt.Errorf("unknown bucket %s", bucket)
	}
}

// DecodeBucket unmarshals payload into the portion of the snapshot stored under
// bucket. Unknown buckets are ignored so older tables load cleanly.
func (s *Snapshot) DecodeBucket(bucket string, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	var err error
	switch bucket {
	case BucketMeta:
		var meta snapshotMeta
		if err = json.Unmarshal(payload, &meta); err == nil {
			s.NextID = meta.NextID
		}
	case BucketKitties:
		err = json.Unmarshal(payload, &s.Kitties)
	case BucketOwners:
		err = json.Unmarshal(payload, &s.Owners)
	case BucketOwned:
		err = json.Unmarshal(payload, &s.Owned)
	case BucketPrices:
		err = json.Unmarshal(payload, &s.Prices)
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}
