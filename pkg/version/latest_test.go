package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveLatest(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		want       string
		found      bool
	}{
		{
			name:       "ga beats newer rc",
			candidates: []string{"4.2.0", "4.2.0-rc.1", "4.1.9"},
			want:       "4.2.0",
			found:      true,
		},
		{
			name:       "only prereleases",
			candidates: []string{"4.3.0-alpha.1"},
			found:      false,
		},
		{
			name:  "empty set",
			found: false,
		},
		{
			name:       "picks maximum ga",
			candidates: []string{"3.13.7", "4.0.4", "4.1.0-beta.2", "4.0.9"},
			want:       "4.0.9",
			found:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var vs []Version
			for _, c := range tt.candidates {
				vs = append(vs, MustParse(c))
			}
			got, found := ResolveLatest(vs)
			assert.Equal(t, tt.found, found)
			if tt.found {
				assert.Equal(t, tt.want, got.String())
			}
		})
	}
}

func TestResolveLatestInAlphaTrack(t *testing.T) {
	vs := []Version{
		MustParse("4.3.0-alpha.3"),
		MustParse("4.3.0-alpha.12"),
		MustParse("4.2.0"), // not an alpha, ignored on the alpha track
	}
	got, found := ResolveLatestIn(TrackAlpha, vs)
	assert.True(t, found)
	assert.Equal(t, "4.3.0-alpha.12", got.String())

	_, found = ResolveLatestIn(TrackAlpha, []Version{MustParse("4.2.0")})
	assert.False(t, found)

	// Non-alpha tracks behave exactly like ResolveLatest.
	got, found = ResolveLatestIn(TrackRelease, vs)
	assert.True(t, found)
	assert.Equal(t, "4.2.0", got.String())
}
