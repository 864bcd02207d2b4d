package sync

import (
	"time"

	"github.com/inkwell-app/inkwell/internal/models"
)

// action is the corrective operation the diff decides for one entity.
type action int

const (
	// actSkip means local, remote, and manifest agree; no I/O.
	actSkip action = iota
	// actUpload means the local version should be written to the remote.
	actUpload
	// actDownload means the remote version should be applied locally.
	actDownload
)

// decision is the classified outcome for one entity.
type decision struct {
	Action action
	// Conflict marks a both-changed entity whose winner was picked by
	// last-write-wins.
	Conflict bool
}

// decide is a pure decision function with no I/O: given the local
// snapshot entity (nil when absent locally), the manifest entry (nil when
// never synced), and the remote index record (nil when absent remotely),
// it classifies the entity and resolves conflicts.
//
// Conflict policy is last-write-wins by modification timestamp. On a tie
// the local side wins, which keeps the algorithm deterministic and avoids
// needless network traffic.
func decide(local *entity, man *models.ManifestEntry, remote *remoteEntity) decision {
	// Nothing anywhere, or a manifest orphan with no surviving sides.
	if local == nil && remote == nil {
		return decision{Action: actSkip}
	}

	// Never synced: anything present is new on its side.
	if man == nil {
		switch {
		case local != nil && remote == nil:
			return decision{Action: actUpload} // new-local
		case local == nil && remote != nil:
			return decision{Action: actDownload} // new-remote
		default:
			// New on both sides at once: same policy as both-changed.
			return resolveConflict(local.UpdatedAt, remote.UpdatedAt)
		}
	}

	localChanged := local == nil || local.Fingerprint != man.Fingerprint
	remoteChanged := remote == nil || remote.VersionTag != man.RemoteVersionTag

	switch {
	case !localChanged && !remoteChanged:
		return decision{Action: actSkip} // unchanged
	case localChanged && !remoteChanged:
		if local == nil {
			// Local side vanished while the remote is unchanged.
			// Deletion propagation is out of scope; leave the remote be.
			return decision{Action: actSkip}
		}
		return decision{Action: actUpload} // local-only-changed
	case !localChanged && remoteChanged:
		if remote == nil {
			// Remote side vanished; restore it from the local copy.
			return decision{Action: actUpload}
		}
		return decision{Action: actDownload} // remote-only-changed
	default:
		if local == nil {
			return decision{Action: actDownload, Conflict: true}
		}
		if remote == nil {
			return decision{Action: actUpload, Conflict: true}
		}
		return resolveConflict(local.UpdatedAt, remote.UpdatedAt)
	}
}

// resolveConflict applies last-write-wins; local wins ties.
func resolveConflict(localUpdated, remoteUpdated time.Time) decision {
	if remoteUpdated.After(localUpdated) {
		return decision{Action: actDownload, Conflict: true}
	}
	return decision{Action: actUpload, Conflict: true}
}
