package difficulty

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePersister struct {
	mu    sync.Mutex
	saved []Configuration
	err   error
}

func (f *fakePersister) SaveActive(_ context.Context, c Configuration) (Configuration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return Configuration{}, f.err
	}
	c.ID = int64(len(f.saved) + 1)
	f.saved = append(f.saved, c)
	return c, nil
}

func TestActive_ReplaceValid(t *testing.T) {
	p := &fakePersister{}
	a := NewActive(DefaultConfiguration(), p)

	next := DefaultConfiguration()
	next.SignalsHigh = 9
	got, err := a.Replace(context.Background(), next)
	require.NoError(t, err)

	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, 9, a.Current().SignalsHigh)
	assert.Equal(t, "default", a.Current().Name)
	assert.False(t, a.Current().UpdatedAt.IsZero())
	assert.Len(t, p.saved, 1)
}

func TestActive_InvalidKeepsPrevious(t *testing.T) {
	p := &fakePersister{}
	a := NewActive(DefaultConfiguration(), p)

	bad := DefaultConfiguration()
	bad.TimeLow = 5
	bad.TimeMedium = 8
	bad.SignalsHigh = 99

	_, err := a.Replace(context.Background(), bad)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has(RuleTimeOrder))
	assert.True(t, verr.Has(RuleBounds))

	assert.Equal(t, DefaultConfiguration().TimeLow, a.Current().TimeLow)
	assert.Equal(t, DefaultConfiguration().SignalsHigh, a.Current().SignalsHigh)
	assert.Empty(t, p.saved, "invalid configuration must not be persisted")
}

func TestActive_PersistFailureKeepsPrevious(t *testing.T) {
	p := &fakePersister{err: errors.New("disk full")}
	a := NewActive(DefaultConfiguration(), p)

	next := DefaultConfiguration()
	next.SignalsLow = 2
	_, err := a.Replace(context.Background(), next)
	require.Error(t, err)
	assert.Equal(t, 3, a.Current().SignalsLow)
}

func TestActive_ConcurrentReadersSeeWholeConfigurations(t *testing.T) {
	a := NewActive(DefaultConfiguration(), nil)

	alt := DefaultConfiguration()
	alt.SignalsLow, alt.SignalsMedium, alt.SignalsHigh = 4, 8, 12
	alt.TimeLow, alt.TimeMedium, alt.TimeHigh = 20, 10, 4

	var wg sync.WaitGroup
	stop := make(chan struct{})
	torn := make(chan Configuration, 1)

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				c := a.Current()
				if Validate(c) != nil {
					select {
					case torn <- c:
					default:
					}
					return
				}
			}
		}()
	}

	for i := range 200 {
		next := DefaultConfiguration()
		if i%2 == 0 {
			next = alt
		}
		_, err := a.Replace(context.Background(), next)
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()

	select {
	case c := <-torn:
		t.Fatalf("reader observed an inconsistent configuration: %+v", c)
	default:
	}
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("name: exam\nsignals_high: 9\ntime_low: 15\nuse_model: false\n"), 0o644))

	cfg, err := LoadProfile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "exam", cfg.Name)
	assert.Equal(t, 9, cfg.SignalsHigh)
	assert.Equal(t, 15.0, cfg.TimeLow)
	assert.False(t, cfg.UseModel)
	assert.Equal(t, 5, cfg.SignalsMedium, "unset fields keep defaults")

	tomlPath := filepath.Join(dir, "profile.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte("name = \"night\"\ninitial_tier = 1\nmin_hit_rate = 0.8\n"), 0o644))

	cfg, err = LoadProfile(tomlPath)
	require.NoError(t, err)
	assert.Equal(t, "night", cfg.Name)
	assert.Equal(t, TierMedium, cfg.InitialTier)
	assert.Equal(t, 0.8, cfg.MinHitRate)

	_, err = LoadProfile(filepath.Join(dir, "profile.ini"))
	assert.Error(t, err)
}

func TestParseTier(t *testing.T) {
	tests := []struct {
		in      string
		want    Tier
		wantErr bool
	}{
		{"low", TierLow, false},
		{"Medium", TierMedium, false},
		{"alta", TierHigh, false},
		{"2", TierHigh, false},
		{"3", 0, true},
		{"extreme", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseTier(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	assert.Equal(t, TierLow, ClampTier(-4))
	assert.Equal(t, TierHigh, ClampTier(7))
}
