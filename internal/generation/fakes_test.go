package generation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/hermes-backend/internal/domain/collections"
)

var errNotFound = errors.New("not found")

// memStore is an in-memory LayerStore + ArtworkStore.
type memStore struct {
	mu         sync.Mutex
	collection *collections.Collection
	layers     []*collections.Layer
	components []*collections.Component
	artworks   []*collections.Artwork
	traits     map[uuid.UUID]int
	createErr  error
}

func newMemStore() *memStore {
	col := &collections.Collection{ID: uuid.New(), OwnerUserID: uuid.New(), Name: "fixture"}
	return &memStore{collection: col, traits: map[uuid.UUID]int{}}
}

func (m *memStore) addLayer(name string, rank int, required bool) *collections.Layer {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := &collections.Layer{ID: uuid.New(), CollectionID: m.collection.ID, Name: name, Rank: rank, Required: required}
	m.layers = append(m.layers, l)
	return l
}

func (m *memStore) addComponent(layer *collections.Layer, name string, weight float64) *collections.Component {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &collections.Component{
		ID:             uuid.New(),
		CollectionID:   m.collection.ID,
		LayerID:        layer.ID,
		Name:           name,
		ComponentClass: collections.DefaultComponentClass,
		RarityWeight:   weight,
	}
	c.ImageKey = ComponentImageKey(m.collection.ID, c.ID, name+".png")
	m.components = append(m.components, c)
	return c
}

func (m *memStore) ListLayers(ctx context.Context, collectionID uuid.UUID) ([]*collections.Layer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*collections.Layer
	for _, l := range m.layers {
		if l.CollectionID == collectionID {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

func (m *memStore) ListComponents(ctx context.Context, layerID uuid.UUID, class string) ([]*collections.Component, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*collections.Component
	for _, c := range m.components {
		if c.LayerID == layerID && (class == "" || c.ComponentClass == class) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) CountArtworksUsing(ctx context.Context, componentID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countUsingLocked(componentID), nil
}

func (m *memStore) countUsingLocked(componentID uuid.UUID) int {
	n := 0
	for _, a := range m.artworks {
		for _, ac := range a.Components {
			if ac.ComponentID == componentID {
				n++
			}
		}
	}
	return n
}

func (m *memStore) GetComponents(ctx context.Context, ids []uuid.UUID) ([]*collections.Component, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*collections.Component
	for _, id := range ids {
		for _, c := range m.components {
			if c.ID == id {
				cp := *c
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

func (m *memStore) component(id uuid.UUID) *collections.Component {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.components {
		if c.ID == id {
			cp := *c
			return &cp
		}
	}
	return nil
}

func (m *memStore) UpdateComponentStats(ctx context.Context, componentID uuid.UUID, n int, rarity, pct float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.components {
		if c.ID == componentID {
			c.GeneratedNumber, c.Rarity, c.RarityPercent = n, rarity, pct
			return nil
		}
	}
	return errNotFound
}

func (m *memStore) SetGeneratedTrait(ctx context.Context, collectionID uuid.UUID, total int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.traits[collectionID] = total
	return nil
}

func (m *memStore) ExistsWithComponents(ctx context.Context, collectionID uuid.UUID, ids []uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dna := collections.DNA(ids)
	for _, a := range m.artworks {
		if a.CollectionID == collectionID && a.DNA == dna {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateArtwork(ctx context.Context, art *collections.Artwork) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, a := range m.artworks {
		if a.CollectionID == art.CollectionID && a.DNA == art.DNA {
			return fmt.Errorf("duplicate dna %s", art.DNA)
		}
	}
	cp := *art
	cp.Components = append([]collections.ArtworkComponent(nil), art.Components...)
	m.artworks = append(m.artworks, &cp)
	return nil
}

func (m *memStore) ListArtworks(ctx context.Context, collectionID uuid.UUID) ([]*collections.Artwork, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*collections.Artwork
	for _, a := range m.artworks {
		if a.CollectionID == collectionID {
			cp := *a
			cp.Components = append([]collections.ArtworkComponent(nil), a.Components...)
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) MaxOrdinal(ctx context.Context, collectionID uuid.UUID) (int, error) {
	arts, _ := m.ListArtworks(ctx, collectionID)
	highest := 0
	for _, a := range arts {
		if n, ok := collections.OrdinalFromFilename(a.Filename); ok && n > highest {
			highest = n
		}
	}
	return highest, nil
}

func (m *memStore) UpdateArtwork(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.artworks {
		if a.ID != id {
			continue
		}
		for k, v := range fields {
			switch k {
			case "name":
				a.Name = v.(string)
			case "description":
				a.Description = v.(string)
			case "filename":
				a.Filename = v.(string)
			case "image_key":
				a.ImageKey = v.(string)
			case "rarity":
				a.Rarity = v.(float64)
			case "rarity_percent":
				a.RarityPercent = v.(float64)
			default:
				return fmt.Errorf("unexpected field %q", k)
			}
		}
		return nil
	}
	return errNotFound
}

func (m *memStore) allArtworks() []*collections.Artwork {
	arts, _ := m.ListArtworks(context.Background(), m.collection.ID)
	return arts
}

type blob struct {
	data        []byte
	contentType string
}

type memImages struct {
	mu    sync.Mutex
	blobs map[string]blob
}

func newMemImages() *memImages { return &memImages{blobs: map[string]blob{}} }

func (m *memImages) Read(ctx context.Context, key string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, "", fmt.Errorf("%s: %w", key, errNotFound)
	}
	return b.data, b.contentType, nil
}

func (m *memImages) Write(ctx context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = blob{data: data, contentType: contentType}
	return nil
}

func (m *memImages) Copy(ctx context.Context, srcKey, dstKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[srcKey]
	if !ok {
		return fmt.Errorf("%s: %w", srcKey, errNotFound)
	}
	m.blobs[dstKey] = b
	return nil
}

func (m *memImages) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}

func (m *memImages) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[key]
	return ok
}

func (m *memImages) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

type statusRecorder struct {
	mu       sync.Mutex
	statuses []string
}

func (r *statusRecorder) SetStatus(ctx context.Context, status string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
	return nil
}

func (r *statusRecorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return ""
	}
	return r.statuses[len(r.statuses)-1]
}

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture png: %v", err)
	}
	return buf.Bytes()
}

// seedImages stores a small opaque image for every component.
func seedImages(t *testing.T, store *memStore, images *memImages) {
	t.Helper()
	for i, c := range store.components {
		shade := uint8(40 + (i*37)%200)
		data := solidPNG(t, 4, 4, color.NRGBA{R: shade, G: 255 - shade, B: 90, A: 255})
		if err := images.Write(context.Background(), c.ImageKey, data, "image/png"); err != nil {
			t.Fatalf("seed image: %v", err)
		}
	}
}

// dedupeAcceptor accepts any non-empty candidate it has not seen before.
type dedupeAcceptor struct {
	seen map[string]bool
}

func newDedupeAcceptor() *dedupeAcceptor { return &dedupeAcceptor{seen: map[string]bool{}} }

func (d *dedupeAcceptor) Accept(ctx context.Context, plan *Plan, c Candidate) (bool, error) {
	ids := plan.ComponentIDs(c)
	if len(ids) == 0 {
		return false, nil
	}
	dna := collections.DNA(ids)
	if d.seen[dna] {
		return false, nil
	}
	d.seen[dna] = true
	return true, nil
}
