package generation

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/hermes-backend/internal/domain/collections"
)

func TestBuildMetadata(t *testing.T) {
	bg := &collections.Layer{ID: uuid.New(), Name: "Background", Rank: 0}
	hat := &collections.Layer{ID: uuid.New(), Name: "Hat", Rank: 1}
	blue := &collections.Component{ID: uuid.New(), LayerID: bg.ID, Name: "Blue"}
	capHat := &collections.Component{ID: uuid.New(), LayerID: hat.ID, Name: "Cap"}
	col := &collections.Collection{
		FileTokenCID:        "bafycid",
		ExternalURLTemplate: "https://example.com/{filename_without_extension}?f={filename}&id={id}",
	}
	art := &collections.Artwork{
		ID:          uuid.New(),
		Name:        "#3",
		Description: "#3",
		Filename:    "3.png",
		Components: []collections.ArtworkComponent{
			{ComponentID: capHat.ID, LayerRank: 1},
			{ComponentID: blue.ID, LayerRank: 0},
		},
	}
	md := BuildMetadata(col, art, MetadataSources{
		Layers:     map[uuid.UUID]*collections.Layer{bg.ID: bg, hat.ID: hat},
		Components: map[uuid.UUID]*collections.Component{blue.ID: blue, capHat.ID: capHat},
	})

	if md.Image != "ipfs://bafycid/3.png" {
		t.Fatalf("image: %q", md.Image)
	}
	if want := "https://example.com/3?f=3.png&id=" + art.ID.String(); md.ExternalURL != want {
		t.Fatalf("external_url: want %q got %q", want, md.ExternalURL)
	}
	want := []Attribute{{TraitType: "Background", Value: "Blue"}, {TraitType: "Hat", Value: "Cap"}}
	if len(md.Attributes) != 2 || md.Attributes[0] != want[0] || md.Attributes[1] != want[1] {
		t.Fatalf("attributes: %+v", md.Attributes)
	}

	raw, err := EncodeMetadata(md)
	if err != nil {
		t.Fatalf("EncodeMetadata: %v", err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := doc["external_url"]; !ok {
		t.Fatalf("external_url missing from %s", raw)
	}
}

func TestBuildMetadataWithoutTemplate(t *testing.T) {
	md := BuildMetadata(&collections.Collection{FileTokenCID: "cid"}, &collections.Artwork{Filename: "1.png"}, MetadataSources{})
	if md.ExternalURL != "" || md.Attributes == nil {
		t.Fatalf("unexpected metadata %+v", md)
	}
}
