// Package sync reconciles the local record set with the shared remote store.
// Conflict resolution is last-writer-wins on UpdatedAt with ties kept local;
// machine-local file paths are overlaid back onto records the remote wins.
package sync

import (
	"sort"

	"certhub/internal/domain"
)

// Plan is the outcome of merging the two record sets: the new local set plus
// the remote operations needed to converge.
type Plan struct {
	// Records is the reconciled local set, ordered by key.
	Records []domain.IssuanceRecord
	// Push lists records the local side won and must upsert remotely.
	Push []domain.IssuanceRecord
	// Adopt lists keys that existed only remotely; their artifacts are worth
	// pulling since no local file backs them yet.
	Adopt []domain.RecordKey
	// Deleted lists keys removed locally because a live remote no longer has
	// them.
	Deleted []domain.RecordKey
}

// remoteLive decides whether an empty spot on the remote side means
// "deleted" or "remote never populated". An empty remote against existing
// local records is treated as not yet populated, so nothing is deleted and
// everything local is pushed.
func remoteLive(local, remote []domain.IssuanceRecord) bool {
	return len(remote) > 0 || len(local) == 0
}

// Merge reconciles the two sets. It is pure and deterministic: same inputs,
// same plan, and applying the plan then merging again yields a no-op plan.
func Merge(local, remote []domain.IssuanceRecord) Plan {
	live := remoteLive(local, remote)

	remoteByKey := make(map[domain.RecordKey]domain.IssuanceRecord, len(remote))
	for _, rec := range remote {
		remoteByKey[rec.Key()] = rec
	}

	var plan Plan
	seen := make(map[domain.RecordKey]bool, len(local))

	for _, loc := range local {
		key := loc.Key()
		seen[key] = true

		rem, exists := remoteByKey[key]
		if !exists {
			if live {
				// Deletion by absence: a cooperating instance removed it.
				plan.Deleted = append(plan.Deleted, key)
				continue
			}
			plan.Records = append(plan.Records, loc)
			plan.Push = append(plan.Push, loc)
			continue
		}

		if rem.UpdatedAt.After(loc.UpdatedAt) {
			// Remote wins; local file pointers survive the overwrite.
			rem.ArtifactPath = loc.ArtifactPath
			rem.FolderPath = loc.FolderPath
			plan.Records = append(plan.Records, rem)
			continue
		}

		plan.Records = append(plan.Records, loc)
		if loc.UpdatedAt.After(rem.UpdatedAt) {
			plan.Push = append(plan.Push, loc)
		}
	}

	for _, rem := range remote {
		if seen[rem.Key()] {
			continue
		}
		plan.Records = append(plan.Records, rem)
		plan.Adopt = append(plan.Adopt, rem.Key())
	}

	sort.Slice(plan.Records, func(i, j int) bool {
		return plan.Records[i].Key().String() < plan.Records[j].Key().String()
	})
	return plan
}
