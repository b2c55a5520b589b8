package library

import (
	"context"
	"sort"

	"github.com/cervantesaxel/musicflow/internal/models"
)

// Reconcile reports cached tracks no playlist references and playlist references with no cached track.
//
// With purge set the orphaned track records are deleted and the library saved. Dangling references are only
// reported.
func (s *Store) Reconcile(ctx context.Context, purge bool) (models.ReconcileReport, error) {
	var report models.ReconcileReport
	err := s.mutate(ctx, func(lib *models.Library) (bool, error) {
		report = Inspect(lib)
		if !purge || len(report.OrphanTracks) == 0 {
			return false, nil
		}

		for _, id := range report.OrphanTracks {
			delete(lib.Tracks, id)
		}
		report.Purged = len(report.OrphanTracks)
		s.logger.Info("purged orphan tracks", "count", report.Purged)
		return true, nil
	})
	if err != nil {
		return models.ReconcileReport{}, err
	}
	return report, nil
}

// Inspect computes the reconcile report without modifying lib.
func Inspect(lib *models.Library) models.ReconcileReport {
	report := models.ReconcileReport{OrphanTracks: []string{}, Dangling: []models.DanglingRef{}}

	referenced := make(map[string]struct{})
	for _, p := range lib.Playlists {
		for _, id := range p.Tracks {
			referenced[id] = struct{}{}
			if _, ok := lib.Tracks[id]; !ok {
				report.Dangling = append(report.Dangling, models.DanglingRef{PlaylistID: p.ID, TrackID: id})
			}
		}
	}

	for id := range lib.Tracks {
		if _, ok := referenced[id]; !ok {
			report.OrphanTracks = append(report.OrphanTracks, id)
		}
	}
	sort.Strings(report.OrphanTracks)

	return report
}
