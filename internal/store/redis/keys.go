package redis

import "fmt"

const (
	// KeyPrefixRecord is the prefix for a single service record snapshot.
	KeyPrefixRecord = "lattice:record:"

	// KeySnapshotIDs holds the set of record ids present in the last snapshot.
	KeySnapshotIDs = "lattice:snapshot:ids"
)

func RecordKey(id string) string {
	return fmt.Sprintf("%s%s", KeyPrefixRecord, id)
}
