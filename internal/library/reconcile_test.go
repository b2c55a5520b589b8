package library

import (
	"context"
	"reflect"
	"testing"

	"github.com/cervantesaxel/musicflow/internal/models"
	th "github.com/cervantesaxel/musicflow/internal/testing"
)

func TestReconcile(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*Store, *th.FailingStorage) {
		t.Helper()
		backend := th.NewFailingStorage(nil)
		s := newTestStore(t, backend)

		lib := models.NewLibrary()
		lib.Playlists = []*models.Playlist{
			{ID: "p1", Name: "One", Tracks: []string{"t1", "ghost"}},
			{ID: "p2", Name: "Two", Tracks: []string{"t2"}},
		}
		for _, id := range []string{"t1", "t2", "orphan-b", "orphan-a"} {
			lib.Tracks[id] = th.SampleTrack(id, 1000)
		}
		if err := s.Save(ctx, lib); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		return s, backend
	}

	t.Run("report only", func(t *testing.T) {
		s, backend := setup(t)
		writes := backend.WriteCount()

		report, err := s.Reconcile(ctx, false)
		if err != nil {
			t.Fatalf("Reconcile failed: %v", err)
		}

		if !reflect.DeepEqual(report.OrphanTracks, []string{"orphan-a", "orphan-b"}) {
			t.Errorf("unexpected orphans %v", report.OrphanTracks)
		}
		wantDangling := []models.DanglingRef{{PlaylistID: "p1", TrackID: "ghost"}}
		if !reflect.DeepEqual(report.Dangling, wantDangling) {
			t.Errorf("unexpected dangling %v", report.Dangling)
		}
		if report.Purged != 0 {
			t.Errorf("expected nothing purged, got %d", report.Purged)
		}
		if backend.WriteCount() != writes {
			t.Error("report-only reconcile wrote to storage")
		}
		if len(s.Load(ctx).Tracks) != 4 {
			t.Error("report-only reconcile removed tracks")
		}
	})

	t.Run("purge removes only orphans", func(t *testing.T) {
		s, _ := setup(t)

		report, err := s.Reconcile(ctx, true)
		if err != nil {
			t.Fatalf("Reconcile failed: %v", err)
		}
		if report.Purged != 2 {
			t.Errorf("expected 2 purged, got %d", report.Purged)
		}

		lib := s.Load(ctx)
		if len(lib.Tracks) != 2 {
			t.Errorf("expected 2 tracks left, got %d", len(lib.Tracks))
		}
		for _, id := range []string{"t1", "t2"} {
			if _, ok := lib.Tracks[id]; !ok {
				t.Errorf("referenced track %s was purged", id)
			}
		}
		if !reflect.DeepEqual(lib.Playlists[0].Tracks, []string{"t1", "ghost"}) {
			t.Errorf("dangling reference should be kept, got %v", lib.Playlists[0].Tracks)
		}
	})

	t.Run("clean library", func(t *testing.T) {
		report := Inspect(models.NewLibrary())
		if len(report.OrphanTracks) != 0 || len(report.Dangling) != 0 {
			t.Errorf("expected empty report, got %+v", report)
		}
	})
}
