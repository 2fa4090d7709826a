package indicator

import (
	"context"
	"testing"

	"swing-scannerv1/internal/model"
)

// memSnapshotStore is an in-memory model.SnapshotStore for tests.
type memSnapshotStore struct {
	data []byte
	err  error
}

var _ model.SnapshotStore = (*memSnapshotStore)(nil)

func (m *memSnapshotStore) SaveSnapshotJSON(_ context.Context, data []byte) error {
	if m.err != nil {
		return m.err
	}
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *memSnapshotStore) ReadLatestSnapshotJSON(_ context.Context) ([]byte, error) {
	return m.data, m.err
}

func TestSnapshot_RoundTripContinuesIdentically(t *testing.T) {
	bars := trendBars(80)
	warm, tail := bars[:50], bars[50:]

	orig := NewEngine("AAPL", Config{})
	for _, bar := range warm {
		orig.Update(bar)
	}

	snap := orig.Snapshot()
	restored, err := RestoreEngine(Config{}, snap)
	if err != nil {
		t.Fatal(err)
	}

	for i, bar := range tail {
		want, err1 := orig.Update(bar)
		got, err2 := restored.Update(bar)
		if (err1 == nil) != (err2 == nil) {
			t.Fatalf("tail bar %d: error mismatch: %v vs %v", i, err1, err2)
		}
		if want != got {
			t.Fatalf("tail bar %d: restored engine diverged:\n%+v\n%+v", i, want, got)
		}
	}
}

func TestSnapshot_SetJSONRoundTrip(t *testing.T) {
	set := NewSet(Config{})
	for _, ins := range []string{"AAPL", "TSLA"} {
		e := set.Engine(ins)
		for _, bar := range trendBars(40) {
			e.Update(bar)
		}
	}

	data, err := set.Snapshot().Marshal()
	if err != nil {
		t.Fatal(err)
	}
	snap, err := UnmarshalEngineSnapshot(data)
	if err != nil {
		t.Fatal(err)
	}
	restored, err := RestoreSet(Config{}, snap)
	if err != nil {
		t.Fatal(err)
	}

	for _, ins := range []string{"AAPL", "TSLA"} {
		want, err := set.Engine(ins).Reading()
		if err != nil {
			t.Fatal(err)
		}
		got, err := restored.Engine(ins).Reading()
		if err != nil {
			t.Fatal(err)
		}
		if want != got {
			t.Errorf("%s: restored reading differs:\n%+v\n%+v", ins, want, got)
		}
	}
}

func TestRestorer_CheckpointThenRestore(t *testing.T) {
	store := &memSnapshotStore{}
	restorer := NewRestorer(Config{}, store)

	set := NewSet(Config{})
	e := set.Engine("MSFT")
	for _, bar := range trendBars(40) {
		e.Update(bar)
	}
	if err := restorer.Checkpoint(context.Background(), set); err != nil {
		t.Fatal(err)
	}

	restored := restorer.Restore(context.Background())
	want, err := e.Reading()
	if err != nil {
		t.Fatal(err)
	}
	got, err := restored.Engine("MSFT").Reading()
	if err != nil {
		t.Fatal(err)
	}
	if want != got {
		t.Errorf("restored reading differs:\n%+v\n%+v", want, got)
	}
}

func TestRestorer_ColdStartsWithoutSnapshot(t *testing.T) {
	restorer := NewRestorer(Config{}, &memSnapshotStore{})
	set := restorer.Restore(context.Background())
	if got := len(set.Instruments()); got != 0 {
		t.Errorf("expected empty cold-start set, got %d instruments", got)
	}
}

func TestRestore_FutureSchemaVersionColdStarts(t *testing.T) {
	set := NewSet(Config{})
	e := set.Engine("AAPL")
	for _, bar := range trendBars(40) {
		e.Update(bar)
	}
	snap := set.Snapshot()
	snap.Version = 99
	data, err := snap.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	r := NewRestorer(Config{}, &memSnapshotStore{data: data})
	got := r.Restore(context.Background())
	if n := got.Engine("AAPL").BarsSeen(); n != 0 {
		t.Fatalf("unknown schema version restored anyway: BarsSeen=%d, want 0", n)
	}
}
