// Package redis persists best-effort snapshots of the registry so a
// restarted instance can warm-start instead of booting empty. The
// in-memory registry stays authoritative; everything here tolerates
// a missing or stale snapshot.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/modulant/lattice"
)

// DefaultRecordTTL bounds how long an orphaned record key can outlive the
// service it described. Records of services unregistered between two
// snapshot cycles age out instead of being tracked individually.
const DefaultRecordTTL = 48 * time.Hour

type Store struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewStore(client *goredis.Client) *Store {
	return &Store{client: client, ttl: DefaultRecordTTL}
}

func (s *Store) SaveRecord(ctx context.Context, rec *lattice.ServiceRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", rec.ID, err)
	}
	if err := s.client.Set(ctx, RecordKey(rec.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save record %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) GetRecord(ctx context.Context, id string) (*lattice.ServiceRecord, error) {
	data, err := s.client.Get(ctx, RecordKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, lattice.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", id, err)
	}
	var rec lattice.ServiceRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record %s: %w", id, err)
	}
	return &rec, nil
}

func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, RecordKey(id))
	pipe.SRem(ctx, KeySnapshotIDs, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	return nil
}

// SaveRecordsMany replaces the snapshot id set and upserts every record in
// a single pipeline. Individual record keys carry a TTL so entries removed
// from the id set eventually disappear on their own.
func (s *Store) SaveRecordsMany(ctx context.Context, records []*lattice.ServiceRecord) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, KeySnapshotIDs)
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record %s: %w", rec.ID, err)
		}
		pipe.Set(ctx, RecordKey(rec.ID), data, s.ttl)
		pipe.SAdd(ctx, KeySnapshotIDs, rec.ID)
	}
	pipe.Expire(ctx, KeySnapshotIDs, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save snapshot of %d records: %w", len(records), err)
	}
	return nil
}

// GetAllRecords loads the records named by the snapshot id set. Records
// whose key already aged out are skipped, not reported as errors.
func (s *Store) GetAllRecords(ctx context.Context) ([]*lattice.ServiceRecord, error) {
	ids, err := s.client.SMembers(ctx, KeySnapshotIDs).Result()
	if err != nil {
		return nil, fmt.Errorf("read snapshot ids: %w", err)
	}
	records := make([]*lattice.ServiceRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.GetRecord(ctx, id)
		if errors.Is(err, lattice.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
