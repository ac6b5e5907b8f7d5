package collections

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/hermes-backend/internal/data/repos/testutil"
	types "github.com/yungbote/hermes-backend/internal/domain/collections"
	"github.com/yungbote/hermes-backend/internal/pkg/dbctx"
)

func TestLayerAndComponentRepos(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.New(ctx)
	log := testutil.Logger(t)

	col := testutil.SeedCollection(t, ctx, db, "punks")
	top := testutil.SeedLayer(t, ctx, db, col.ID, "hat", 2, false)
	bottom := testutil.SeedLayer(t, ctx, db, col.ID, "background", 0, true)
	red := testutil.SeedComponent(t, ctx, db, bottom, "red", "A", 50)
	testutil.SeedComponent(t, ctx, db, bottom, "blue", "A", 50)
	testutil.SeedComponent(t, ctx, db, bottom, "gold", "B", 100)
	testutil.SeedComponent(t, ctx, db, top, "cap", "A", 100)

	layers, err := NewLayerRepo(db, log).ListByCollection(dbc, col.ID)
	if err != nil {
		t.Fatalf("ListByCollection: %v", err)
	}
	if len(layers) != 2 || layers[0].ID != bottom.ID || layers[1].ID != top.ID {
		t.Fatalf("ListByCollection: expected bottom then top, got %+v", layers)
	}
	if layers[1].Required {
		t.Fatalf("hat layer should be optional")
	}

	comps := NewComponentRepo(db, log)
	classA, err := comps.ListByLayer(dbc, bottom.ID, "A")
	if err != nil {
		t.Fatalf("ListByLayer A: %v", err)
	}
	if len(classA) != 2 {
		t.Fatalf("ListByLayer A: expected 2, got %d", len(classA))
	}
	all, err := comps.ListByLayer(dbc, bottom.ID, "")
	if err != nil {
		t.Fatalf("ListByLayer all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListByLayer all: expected 3, got %d", len(all))
	}

	if err := comps.UpdateStats(dbc, red.ID, 4, 0.4, 40); err != nil {
		t.Fatalf("UpdateStats: %v", err)
	}
	got, err := comps.GetByIDs(dbc, []uuid.UUID{red.ID})
	if err != nil || len(got) != 1 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(got))
	}
	if got[0].GeneratedNumber != 4 || got[0].RarityPercent != 40 {
		t.Fatalf("UpdateStats not applied: %+v", got[0])
	}
}

func TestArtworkRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.New(ctx)
	log := testutil.Logger(t)

	col := testutil.SeedCollection(t, ctx, db, "punks")
	bg := testutil.SeedLayer(t, ctx, db, col.ID, "background", 0, true)
	hat := testutil.SeedLayer(t, ctx, db, col.ID, "hat", 1, true)
	red := testutil.SeedComponent(t, ctx, db, bg, "red", "A", 100)
	hatCap := testutil.SeedComponent(t, ctx, db, hat, "cap", "A", 100)

	repo := NewArtworkRepo(db, log)
	art := &types.Artwork{
		CollectionID: col.ID,
		OwnerUserID:  col.OwnerUserID,
		Name:         "#2",
		Filename:     "2.png",
		ImageKey:     "k2",
		Components: []types.ArtworkComponent{
			{ComponentID: hatCap.ID, LayerID: hat.ID, LayerRank: 1},
			{ComponentID: red.ID, LayerID: bg.ID, LayerRank: 0},
		},
	}
	if err := repo.Create(dbc, art); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if art.ID == uuid.Nil || art.DNA == "" {
		t.Fatalf("Create should assign id and dna: %+v", art)
	}
	if len(art.Components) != 2 || art.Components[0].ArtworkID != art.ID {
		t.Fatalf("Create should keep links bound to the artwork")
	}
	testutil.SeedArtwork(t, ctx, db, col.ID, 1, red)

	dup := &types.Artwork{
		CollectionID: col.ID,
		OwnerUserID:  col.OwnerUserID,
		Name:         "#3",
		Filename:     "3.png",
		ImageKey:     "k3",
		Components: []types.ArtworkComponent{
			{ComponentID: red.ID, LayerID: bg.ID, LayerRank: 0},
			{ComponentID: hatCap.ID, LayerID: hat.ID, LayerRank: 1},
		},
	}
	if err := repo.Create(dbc, dup); err == nil {
		t.Fatalf("Create: expected unique violation for duplicate DNA")
	}

	exists, err := repo.ExistsByDNA(dbc, col.ID, types.DNA([]uuid.UUID{red.ID, hatCap.ID}))
	if err != nil || !exists {
		t.Fatalf("ExistsByDNA: exists=%v err=%v", exists, err)
	}
	exists, err = repo.ExistsByDNA(dbc, uuid.New(), art.DNA)
	if err != nil || exists {
		t.Fatalf("ExistsByDNA other collection: exists=%v err=%v", exists, err)
	}

	list, err := repo.ListByCollection(dbc, col.ID)
	if err != nil {
		t.Fatalf("ListByCollection: %v", err)
	}
	if len(list) != 2 || list[0].Name != "#1" || list[1].Name != "#2" {
		t.Fatalf("ListByCollection: unexpected order %+v", list)
	}
	ids := list[1].ComponentIDs()
	if len(ids) != 2 || ids[0] != red.ID || ids[1] != hatCap.ID {
		t.Fatalf("ComponentIDs: expected bottom-first, got %v", ids)
	}

	n, err := repo.CountByCollection(dbc, col.ID)
	if err != nil || n != 2 {
		t.Fatalf("CountByCollection: n=%d err=%v", n, err)
	}
	n, err = repo.MaxOrdinal(dbc, col.ID)
	if err != nil || n != 3 {
		t.Fatalf("MaxOrdinal: n=%d err=%v", n, err)
	}
	n, err = repo.CountUsingComponent(dbc, red.ID)
	if err != nil || n != 2 {
		t.Fatalf("CountUsingComponent red: n=%d err=%v", n, err)
	}
	n, err = repo.CountUsingComponent(dbc, hatCap.ID)
	if err != nil || n != 1 {
		t.Fatalf("CountUsingComponent cap: n=%d err=%v", n, err)
	}

	if err := repo.UpdateFields(dbc, art.ID, map[string]interface{}{"rarity": 0.5}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	cols := NewCollectionRepo(db, log)
	if err := cols.SetGeneratedTrait(dbc, col.ID, 3); err != nil {
		t.Fatalf("SetGeneratedTrait: %v", err)
	}
	reloaded, err := cols.GetByID(dbc, col.ID)
	if err != nil || reloaded == nil || reloaded.GeneratedTrait != 3 {
		t.Fatalf("GetByID: %+v err=%v", reloaded, err)
	}
	missing, err := cols.GetByID(dbc, uuid.New())
	if err != nil || missing != nil {
		t.Fatalf("GetByID missing: %+v err=%v", missing, err)
	}
}
