package gateway

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/snipboard/internal/clip"
	"github.com/hpungsan/snipboard/internal/config"
	"github.com/hpungsan/snipboard/internal/db"
	"github.com/hpungsan/snipboard/internal/errors"
)

func testGateway(t *testing.T) *Local {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewLocal(database, config.DefaultConfig())
}

func TestSaveClip_AssignsID(t *testing.T) {
	g := testGateway(t)
	ctx := context.Background()

	saved, err := g.SaveClip(ctx, clip.Clip{Title: "draft"}, SaveOptions{})
	if err != nil {
		t.Fatalf("SaveClip failed: %v", err)
	}
	if saved.ID == "" {
		t.Error("draft should get a backend-assigned id")
	}
	if saved.CapturedAt == 0 {
		t.Error("draft should get a capture timestamp")
	}
	if saved.UpdatedAt == 0 {
		t.Error("save should stamp updatedAt")
	}
	if saved.SectionID != clip.InboxSectionID {
		t.Errorf("SectionID = %q, want inbox default", saved.SectionID)
	}
}

func TestSaveClip_DistinctIDsPersistOrder(t *testing.T) {
	g := testGateway(t)
	ctx := context.Background()

	first, err := g.SaveClip(ctx, clip.Clip{Title: "one"}, SaveOptions{})
	if err != nil {
		t.Fatalf("first SaveClip failed: %v", err)
	}
	second, err := g.SaveClip(ctx, clip.Clip{Title: "two"}, SaveOptions{})
	if err != nil {
		t.Fatalf("second SaveClip failed: %v", err)
	}
	if first.ID == second.ID {
		t.Error("drafts must get distinct ids")
	}

	data, err := g.GetData(ctx)
	if err != nil {
		t.Fatalf("GetData failed: %v", err)
	}
	if len(data.Clips) != 2 {
		t.Fatalf("got %d clips, want 2", len(data.Clips))
	}
	if data.Clips[0].ID != first.ID || data.Clips[1].ID != second.ID {
		t.Error("clips should appear in persist order")
	}
}

func TestSaveClip_UpsertByID(t *testing.T) {
	g := testGateway(t)
	ctx := context.Background()

	saved, err := g.SaveClip(ctx, clip.Clip{Title: "A"}, SaveOptions{})
	if err != nil {
		t.Fatalf("SaveClip failed: %v", err)
	}

	saved.Title = "B"
	resaved, err := g.SaveClip(ctx, *saved, SaveOptions{})
	if err != nil {
		t.Fatalf("resave failed: %v", err)
	}
	if resaved.ID != saved.ID {
		t.Errorf("id changed on upsert: %q != %q", resaved.ID, saved.ID)
	}

	data, err := g.GetData(ctx)
	if err != nil {
		t.Fatalf("GetData failed: %v", err)
	}
	if len(data.Clips) != 1 || data.Clips[0].Title != "B" {
		t.Errorf("clips = %+v, want single renamed clip", data.Clips)
	}
}

func TestDeleteClip_LockedSectionBlocks(t *testing.T) {
	g := testGateway(t)
	ctx := context.Background()

	if err := g.CreateSection(ctx, clip.Section{ID: "vault", Name: "Vault", Locked: true}); err != nil {
		t.Fatalf("CreateSection failed: %v", err)
	}
	saved, err := g.SaveClip(ctx, clip.Clip{Title: "secret", SectionID: "vault"}, SaveOptions{})
	if err != nil {
		t.Fatalf("SaveClip failed: %v", err)
	}

	result, err := g.DeleteClip(ctx, saved.ID)
	if err != nil {
		t.Fatalf("DeleteClip failed: %v", err)
	}
	if !result.Blocked {
		t.Fatal("delete in a locked section should be blocked")
	}

	data, _ := g.GetData(ctx)
	if len(data.Clips) != 1 {
		t.Error("blocked delete must not remove the clip")
	}
}

func TestDeleteClip_Unlocked(t *testing.T) {
	g := testGateway(t)
	ctx := context.Background()

	saved, err := g.SaveClip(ctx, clip.Clip{Title: "x"}, SaveOptions{})
	if err != nil {
		t.Fatalf("SaveClip failed: %v", err)
	}

	result, err := g.DeleteClip(ctx, saved.ID)
	if err != nil {
		t.Fatalf("DeleteClip failed: %v", err)
	}
	if !result.OK || result.Blocked {
		t.Errorf("result = %+v, want OK", result)
	}

	_, err = g.DeleteClip(ctx, saved.ID)
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second delete should be ErrNotFound, got %v", err)
	}
}

func TestSaveScreenshot_ReplaceAndResolve(t *testing.T) {
	g := testGateway(t)
	ctx := context.Background()

	saved, err := g.SaveScreenshot(ctx, []ScreenshotItem{
		{Filename: "shot.png", Data: []byte{1, 2}},
		{Filename: "", Data: []byte{3}}, // skipped
	})
	if err != nil {
		t.Fatalf("SaveScreenshot failed: %v", err)
	}
	if len(saved) != 1 || saved[0].Filename != "shot.png" {
		t.Errorf("saved = %+v", saved)
	}

	url, err := g.ScreenshotURL(ctx, "shot.png")
	if err != nil {
		t.Fatalf("ScreenshotURL failed: %v", err)
	}
	if url != "/screenshots/shot.png" {
		t.Errorf("url = %q", url)
	}

	_, err = g.ScreenshotURL(ctx, "missing.png")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("want ErrNotFound for missing asset, got %v", err)
	}
}

func TestSaveScreenshot_SizeLimit(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer database.Close()
	g := NewLocal(database, &config.Config{ScreenshotMaxBytes: 4})

	_, err = g.SaveScreenshot(context.Background(), []ScreenshotItem{
		{Filename: "big.png", Data: []byte{1, 2, 3, 4, 5}},
	})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("oversized raster should be rejected, got %v", err)
	}
}

func TestSectionOrderAndPatch(t *testing.T) {
	g := testGateway(t)
	ctx := context.Background()

	if err := g.CreateSection(ctx, clip.Section{ID: "work", Name: "Work"}); err != nil {
		t.Fatalf("CreateSection failed: %v", err)
	}

	if err := g.SaveSectionOrder(ctx, []SectionRef{
		{ID: "work", Name: "Deep Work"},
		{ID: "inbox", Name: "Inbox"},
	}); err != nil {
		t.Fatalf("SaveSectionOrder failed: %v", err)
	}

	tabs, err := g.LoadTabs(ctx)
	if err != nil {
		t.Fatalf("LoadTabs failed: %v", err)
	}
	if len(tabs.Sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(tabs.Sections))
	}
	if tabs.Sections[0].ID != "work" || tabs.Sections[0].Name != "Deep Work" {
		t.Errorf("order/rename not applied: %+v", tabs.Sections[0])
	}

	locked := true
	if err := g.UpdateSection(ctx, "work", SectionPatch{Locked: &locked}); err != nil {
		t.Fatalf("UpdateSection failed: %v", err)
	}
	tabs, _ = g.LoadTabs(ctx)
	if !tabs.Sections[0].Locked {
		t.Error("lock patch not applied")
	}
}

func TestDeleteSection_ProtectsInbox(t *testing.T) {
	g := testGateway(t)
	err := g.DeleteSection(context.Background(), clip.InboxSectionID)
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("deleting the inbox should be rejected, got %v", err)
	}
}

func TestSubscribe_EmitsClipEvents(t *testing.T) {
	g := testGateway(t)
	ctx := context.Background()
	events := g.Subscribe()

	saved, err := g.SaveClip(ctx, clip.Clip{Title: "x"}, SaveOptions{})
	if err != nil {
		t.Fatalf("SaveClip failed: %v", err)
	}

	select {
	case ev := <-events:
		if ev.Type != EventClip || ev.ID != saved.ID {
			t.Errorf("event = %+v, want clip event for %s", ev, saved.ID)
		}
	default:
		t.Fatal("expected a buffered clip event")
	}
}

func TestSaveClip_MirrorExportsProjection(t *testing.T) {
	g := testGateway(t)
	ctx := context.Background()
	exportDir := filepath.Join(t.TempDir(), "exports")

	path := exportDir
	if err := g.CreateSection(ctx, clip.Section{ID: "pub", Name: "Published"}); err != nil {
		t.Fatalf("CreateSection failed: %v", err)
	}
	if err := g.UpdateSection(ctx, "pub", SectionPatch{ExportPath: &path}); err != nil {
		t.Fatalf("UpdateSection failed: %v", err)
	}

	saved, err := g.SaveClip(ctx, clip.Clip{Title: "note", Text: "hello", SectionID: "pub"}, SaveOptions{Mirror: true})
	if err != nil {
		t.Fatalf("SaveClip failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(exportDir, saved.ID+".md"))
	if err != nil {
		t.Fatalf("projection file missing: %v", err)
	}
	if string(data) != "# note\n\nhello\n" {
		t.Errorf("projection = %q", data)
	}
}
