package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebaystore/parser/internal/config"
	"ebaystore/parser/internal/domain"
	"ebaystore/parser/internal/state"
)

type fakeClient struct {
	ids      []domain.ItemID
	failing  map[domain.ItemID]error
	fetched  []domain.ItemID
	listWalk int
}

func (f *fakeClient) CollectItemIDs(ctx context.Context, store string) ([]domain.ItemID, error) {
	f.listWalk++
	return f.ids, nil
}

func (f *fakeClient) GetItem(ctx context.Context, itemID domain.ItemID) (*domain.DetailRecord, error) {
	f.fetched = append(f.fetched, itemID)
	if err, ok := f.failing[itemID]; ok {
		return nil, err
	}
	return &domain.DetailRecord{
		ItemID: itemID,
		Title:  "Part " + string(itemID),
		Price:  "9.99",
	}, nil
}

type countingStore struct {
	state.ProgressStore
	saves int
}

func (c *countingStore) Save(ctx context.Context, progress *domain.CrawlProgress) error {
	c.saves++
	return c.ProgressStore.Save(ctx, progress)
}

func testService(t *testing.T, cl *fakeClient, cfg config.EbayConfig) (*Service, *countingStore) {
	t.Helper()
	store := &countingStore{ProgressStore: state.NewFileProgressStore(t.TempDir())}
	if cfg.Store == "" {
		cfg.Store = "teststore"
	}
	return NewService(cl, store, nil, nil, cfg), store
}

func ids(n int) []domain.ItemID {
	out := make([]domain.ItemID, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.ItemID(fmt.Sprintf("11111111%04d", i)))
	}
	return out
}

func TestRunErrorIsolation(t *testing.T) {
	all := ids(3)
	cl := &fakeClient{
		ids:     all,
		failing: map[domain.ItemID]error{all[1]: fmt.Errorf("boom")},
	}
	svc, _ := testService(t, cl, config.EbayConfig{})

	progress, err := svc.Run(context.Background())
	require.NoError(t, err, "one failing item must not abort the run")

	assert.Len(t, progress.Records, 2)
	require.Len(t, progress.Errors, 1)
	assert.Equal(t, all[1], progress.Errors[0].ItemID)
	assert.Contains(t, progress.Errors[0].Message, "boom")
	assert.Len(t, cl.fetched, 3)
}

func TestRunCheckpointBatching(t *testing.T) {
	cl := &fakeClient{ids: ids(12)}
	svc, store := testService(t, cl, config.EbayConfig{})

	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	// Two full batches of five plus the unconditional final save.
	assert.Equal(t, 3, store.saves)
}

func TestRunFinalSaveAlwaysHappens(t *testing.T) {
	cl := &fakeClient{ids: ids(2)}
	svc, store := testService(t, cl, config.EbayConfig{})

	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, store.saves, "below one batch, only the final save runs")
}

func TestRunResumeSkipsProcessed(t *testing.T) {
	all := ids(4)
	dir := t.TempDir()
	fileStore := state.NewFileProgressStore(dir)

	prior := domain.NewCrawlProgress("teststore")
	prior.AddRecord(domain.DetailRecord{ItemID: all[0], Title: "done"})
	prior.AddError(domain.ErrorRecord{ItemID: all[1], Message: "failed before"})
	require.NoError(t, fileStore.Save(context.Background(), prior))

	cl := &fakeClient{ids: all}
	store := &countingStore{ProgressStore: fileStore}
	svc := NewService(cl, store, nil, nil, config.EbayConfig{Store: "teststore", Resume: true})

	progress, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []domain.ItemID{all[2], all[3]}, cl.fetched,
		"processed items, including prior errors, are never refetched")
	assert.Len(t, progress.Records, 3)
	assert.Len(t, progress.Errors, 1)
}

func TestRunMaxItemsCapsWork(t *testing.T) {
	cl := &fakeClient{ids: ids(10)}
	svc, _ := testService(t, cl, config.EbayConfig{MaxItems: 3})

	progress, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, cl.fetched, 3)
	assert.Len(t, progress.Records, 3)
}

func TestRunSeedFileBypassesListing(t *testing.T) {
	seedPath := filepath.Join(t.TempDir(), "seeds.txt")
	seedContent := `123456789012

https://www.ebay.co.uk/itm/987654321098?hash=x
123456789012
not-an-item
`
	require.NoError(t, os.WriteFile(seedPath, []byte(seedContent), 0o644))

	cl := &fakeClient{}
	svc, _ := testService(t, cl, config.EbayConfig{SeedFile: seedPath})

	progress, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, cl.listWalk, "seed file replaces the listing walk")
	assert.Equal(t, []domain.ItemID{"123456789012", "987654321098"}, cl.fetched)
	assert.Len(t, progress.Records, 2)
}

func TestRunCancelledContextStillCheckpoints(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cl := &fakeClient{ids: ids(5)}
	svc, store := testService(t, cl, config.EbayConfig{})

	progress, err := svc.Run(ctx)
	require.NoError(t, err)

	assert.Empty(t, cl.fetched)
	assert.Empty(t, progress.Records)
	assert.Equal(t, 1, store.saves, "the final checkpoint is written even when cancelled")
}

func TestLoadSeedIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.txt")
	content := `111111111
https://www.ebay.co.uk/itm/222222222333?var=0
  333333333
garbage line
12345678
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := LoadSeedIDs(path)
	require.NoError(t, err)

	assert.Equal(t, []domain.ItemID{"111111111", "222222222333", "333333333"}, got,
		"too-short and unrecognized lines are skipped")
}
